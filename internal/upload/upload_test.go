package upload

import (
	"context"
	"strings"
	"testing"

	"github.com/ai4p/usagedash/internal/config"
)

func TestNewBackendSelection(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{"", "rclone"},
		{"rclone", "rclone"},
		{"drive", "drive"},
		{"none", "none"},
	}

	for _, tt := range tests {
		cfg := config.DefaultConfig()
		cfg.Upload.Backend = tt.backend
		up, err := New(cfg)
		if err != nil {
			t.Fatalf("New(backend=%q): %v", tt.backend, err)
		}
		if up.Name() != tt.want {
			t.Errorf("New(backend=%q).Name() = %q, want %q", tt.backend, up.Name(), tt.want)
		}
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Upload.Backend = "ftp"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	} else if !strings.Contains(err.Error(), "rclone, drive, none") {
		t.Errorf("error should name the valid backends, got %q", err)
	}
}

func TestRcloneArgs(t *testing.T) {
	r := NewRclone("manus_google_drive", "ai4p_dashboard/index.html", "/home/ubuntu/.gdrive-rclone.ini")
	got := r.args("/home/ubuntu/ai4p_dashboard/index.html")
	want := []string{
		"copyto",
		"/home/ubuntu/ai4p_dashboard/index.html",
		"manus_google_drive:ai4p_dashboard/index.html",
		"--config",
		"/home/ubuntu/.gdrive-rclone.ini",
	}
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRcloneArgsNoConfig(t *testing.T) {
	r := NewRclone("gdrive", "reports/index.html", "")
	got := r.args("/tmp/index.html")
	if len(got) != 3 {
		t.Fatalf("args = %v, want 3 elements without --config", got)
	}
	if got[2] != "gdrive:reports/index.html" {
		t.Errorf("destination = %q", got[2])
	}
}

func TestDriveFileNameDefault(t *testing.T) {
	for _, name := range []string{"", "."} {
		d := NewDrive("/tmp/creds.json", "folder123", name)
		if d.fileName != "index.html" {
			t.Errorf("NewDrive(fileName=%q).fileName = %q, want index.html", name, d.fileName)
		}
	}
}

func TestDriveFileNameFromRemotePath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Upload.Backend = "drive"
	cfg.Upload.RemotePath = "ai4p_dashboard/index.html"
	up, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := up.(*Drive)
	if !ok {
		t.Fatalf("New returned %T, want *Drive", up)
	}
	if d.fileName != "index.html" {
		t.Errorf("fileName = %q, want index.html", d.fileName)
	}
}

func TestDriveQuery(t *testing.T) {
	got := driveQuery("index.html", "")
	if got != "name = 'index.html' and trashed = false" {
		t.Errorf("query = %q", got)
	}

	got = driveQuery("index.html", "folder123")
	if !strings.Contains(got, "'folder123' in parents") {
		t.Errorf("query missing parent clause: %q", got)
	}
}

func TestDisabledUploader(t *testing.T) {
	if err := (Disabled{}).Upload(context.Background(), "/nope/missing.html"); err != nil {
		t.Errorf("Disabled.Upload: %v", err)
	}
}
