package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Dashboard.URL == "" {
		t.Error("expected a default dashboard URL")
	}

	if len(cfg.People) != 4 {
		t.Fatalf("expected 4 tracked people, got %d", len(cfg.People))
	}

	if cfg.People[0] != "Chuanqi Li" {
		t.Errorf("expected manager first in people list, got %s", cfg.People[0])
	}

	if cfg.Manager != "Chuanqi Li" {
		t.Errorf("expected manager 'Chuanqi Li', got %s", cfg.Manager)
	}

	if cfg.Dashboard.NavTimeout != 60 {
		t.Errorf("expected nav timeout 60, got %d", cfg.Dashboard.NavTimeout)
	}

	if cfg.Dashboard.SettleDelay != 4 {
		t.Errorf("expected settle delay 4, got %d", cfg.Dashboard.SettleDelay)
	}

	if !cfg.Scrape.Headless {
		t.Error("expected headless scraping by default")
	}

	if cfg.Upload.Backend != "rclone" {
		t.Errorf("expected rclone upload backend, got %s", cfg.Upload.Backend)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
}

func TestDefaultDataDir(t *testing.T) {
	dir := DefaultDataDir()

	if dir == "" {
		t.Error("DefaultDataDir returned empty string")
	}

	if filepath.Base(dir) != ".usagedash" {
		t.Errorf("expected data dir to end with .usagedash, got %s", dir)
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Dir = "/srv/dash"
	cfg.Output.File = "index.html"

	if got := cfg.OutputPath(); got != "/srv/dash/index.html" {
		t.Errorf("OutputPath = %s", got)
	}

	if got := cfg.LogPath(); got != "/srv/dash/scrape.log" {
		t.Errorf("LogPath = %s", got)
	}

	if got := cfg.RowsPath(); got != "/srv/dash/rows.json" {
		t.Errorf("RowsPath = %s", got)
	}
}

func TestDBPath(t *testing.T) {
	cfg := DefaultConfig()

	if filepath.Base(cfg.DBPath()) != "usagedash.db" {
		t.Errorf("expected db path to end with usagedash.db, got %s", cfg.DBPath())
	}

	cfg.History.DBPath = "/tmp/custom.db"
	if cfg.DBPath() != "/tmp/custom.db" {
		t.Errorf("expected db path override, got %s", cfg.DBPath())
	}
}

func TestProfileDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/data"

	if got := cfg.ProfileDir(); got != "/data/browser-profile" {
		t.Errorf("ProfileDir = %s", got)
	}

	cfg.Scrape.ProfileDir = "/home/ubuntu/.browser_data_dir"
	if got := cfg.ProfileDir(); got != "/home/ubuntu/.browser_data_dir" {
		t.Errorf("ProfileDir override = %s", got)
	}
}

func TestAddr(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr = %s", cfg.Addr())
	}
}

func TestApplyFileOverlay(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Partial file: untouched fields must keep their defaults.
	content := `
server:
  port: 9090
upload:
  backend: none
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Upload.Backend != "none" {
		t.Errorf("expected backend none, got %s", cfg.Upload.Backend)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host kept, got %s", cfg.Server.Host)
	}

	if len(cfg.People) != 4 {
		t.Errorf("expected default people kept, got %d entries", len(cfg.People))
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvironmentVariableExpansion(t *testing.T) {
	os.Setenv("TEST_DASH_DIR", "/srv/expanded")
	defer os.Unsetenv("TEST_DASH_DIR")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
output:
  dir: ${TEST_DASH_DIR}
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.Output.Dir != "/srv/expanded" {
		t.Errorf("expected expanded output dir, got %s", cfg.Output.Dir)
	}
}

func TestLoadFromBytes(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("manager: Someone Else\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}

	if cfg.Manager != "Someone Else" {
		t.Errorf("expected overridden manager, got %s", cfg.Manager)
	}

	if cfg.Dashboard.URL == "" {
		t.Error("expected default URL kept")
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if loc.String() != "America/Los_Angeles" {
		t.Errorf("expected America/Los_Angeles, got %s", loc)
	}

	cfg.Schedule.Timezone = ""
	loc, err = cfg.Location()
	if err != nil {
		t.Fatalf("Location with empty timezone failed: %v", err)
	}
	if loc == nil {
		t.Error("expected local location fallback")
	}
}

func TestEnsureDirs(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output.Dir = filepath.Join(tmpDir, "out")
	cfg.DataDir = filepath.Join(tmpDir, "data")
	cfg.History.DBPath = ""

	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}

	for _, dir := range []string{cfg.Output.Dir, filepath.Dir(cfg.DBPath())} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("dir not created: %v", err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}
