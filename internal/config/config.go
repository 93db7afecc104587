// Package config holds the runtime configuration for usagedash.
// Defaults are compiled in; the embedded etc/usagedash.yaml and an
// optional per-user config.yaml overlay them in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDashboardURL is the UniDash one-pager with the manager rollup
// pre-selected via the encoded query state.
const DefaultDashboardURL = "https://www.internalfb.com/unidash/dashboard/ai_usage_at_meta/" +
	"ai4p_by_pillar/overall_one_pager" +
	"?dimensional_context_793502160125540=%7B%22macros%22%3A[]%2C%22limit%22%3A5%7D" +
	"&events=%7B%221764239757418050%22%3A%7B%22select_manager_rollup_macro%22%3A%7B" +
	"%22data%22%3A%22chuanqi%22%2C%22publisher_id%22%3A%221764239757418050%22%7D%2C" +
	"%221764239757418050%22%3A%7B%22data%22%3A%22chuanqi%22%2C%22publisher_id%22%3A" +
	"%221764239757418050%22%7D%7D%7D" +
	"&var_1606330854110453period=%7B%22minutes_back%22%3A129600%2C%22time_type%22%3A%22dynamic%22%7D"

// Config is the full runtime configuration.
type Config struct {
	Dashboard DashboardConfig `yaml:"dashboard"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
	People    []string        `yaml:"people"`  // canonical display names, in report order
	Manager   string          `yaml:"manager"` // distinguished row for the org-level cards
	Output    OutputConfig    `yaml:"output"`
	Upload    UploadConfig    `yaml:"upload"`
	Server    ServerConfig    `yaml:"server"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	History   HistoryConfig   `yaml:"history"`
	DataDir   string          `yaml:"data_dir"` // ~/.usagedash
}

// DashboardConfig points the scraper at the UniDash page.
type DashboardConfig struct {
	URL         string `yaml:"url"`
	SectionText string `yaml:"section_text"` // heading that marks the reports table
	NavTimeout  int    `yaml:"nav_timeout"`  // seconds, page navigation
	WaitTimeout int    `yaml:"wait_timeout"` // seconds, section heading wait
	NameTimeout int    `yaml:"name_timeout"` // seconds, manager name wait
	SettleDelay int    `yaml:"settle_delay"` // seconds of extra render time
}

// ScrapeConfig selects and tunes the browser engine.
type ScrapeConfig struct {
	Engine              string `yaml:"engine"`      // "playwright" or "cdp"
	Headless            bool   `yaml:"headless"`
	ProfileDir          string `yaml:"profile_dir"` // persistent browser profile (carries auth cookies)
	ChromePath          string `yaml:"chrome_path"` // cdp engine only; auto-detected when empty
	ScreenshotOnFailure bool   `yaml:"screenshot_on_failure"`
}

// OutputConfig names the published report location.
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
}

// UploadConfig describes where the report is copied after publish.
type UploadConfig struct {
	Backend         string `yaml:"backend"` // "rclone", "drive", or "none"
	Remote          string `yaml:"remote"`  // rclone remote name
	RemotePath      string `yaml:"remote_path"`
	RcloneConfig    string `yaml:"rclone_config"`
	CredentialsFile string `yaml:"credentials_file"` // drive backend: service account JSON
	FolderID        string `yaml:"folder_id"`        // drive backend: destination folder
}

// ServerConfig is the HTTP listener for the published report.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	LiveReload bool   `yaml:"live_reload"`
}

// ScheduleConfig drives the in-process refresh cron.
type ScheduleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
}

// HistoryConfig controls the run-history database.
type HistoryConfig struct {
	DBPath   string `yaml:"db_path"`   // defaults to <data_dir>/data/usagedash.db
	KeepRuns int    `yaml:"keep_runs"` // older runs are pruned past this count
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Dashboard: DashboardConfig{
			URL:         DefaultDashboardURL,
			SectionText: "Manager and Recursive Reports",
			NavTimeout:  60,
			WaitTimeout: 30,
			NameTimeout: 20,
			SettleDelay: 4,
		},
		Scrape: ScrapeConfig{
			Engine:              "playwright",
			Headless:            true,
			ScreenshotOnFailure: true,
		},
		People: []string{
			"Chuanqi Li",
			"Bolun Yang",
			"Eleanor Pachaud",
			"Vivian Wang (Ads)",
		},
		Manager: "Chuanqi Li",
		Output: OutputConfig{
			Dir:  "/home/ubuntu/ai4p_dashboard",
			File: "index.html",
		},
		Upload: UploadConfig{
			Backend:      "rclone",
			Remote:       "manus_google_drive",
			RemotePath:   "ai4p_dashboard/index.html",
			RcloneConfig: "/home/ubuntu/.gdrive-rclone.ini",
		},
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			LiveReload: true,
		},
		Schedule: ScheduleConfig{
			Enabled:  true,
			Cron:     "0 8,12,18 * * *",
			Timezone: "America/Los_Angeles",
		},
		History: HistoryConfig{
			KeepRuns: 500,
		},
		DataDir: DefaultDataDir(),
	}
}

// DefaultDataDir returns the default data directory (~/.usagedash)
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".usagedash"
	}
	return filepath.Join(home, ".usagedash")
}

// LoadFromBytes loads configuration from YAML bytes with environment
// variable expansion, over the compiled-in defaults.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.expandPaths()
	return cfg, nil
}

// LoadFrom loads config from a specific path
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.ApplyFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFile overlays the YAML file at path onto c. Fields absent from
// the file keep their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return err
	}
	c.expandPaths()
	return nil
}

// UserConfigPath returns the per-user overlay location under dataDir.
func UserConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

func (c *Config) expandPaths() {
	c.DataDir = os.ExpandEnv(c.DataDir)
	c.Output.Dir = os.ExpandEnv(c.Output.Dir)
	c.Scrape.ProfileDir = os.ExpandEnv(c.Scrape.ProfileDir)
	c.Scrape.ChromePath = os.ExpandEnv(c.Scrape.ChromePath)
	c.Upload.RcloneConfig = os.ExpandEnv(c.Upload.RcloneConfig)
	c.Upload.CredentialsFile = os.ExpandEnv(c.Upload.CredentialsFile)
	c.History.DBPath = os.ExpandEnv(c.History.DBPath)
}

// OutputPath is the published report file.
func (c *Config) OutputPath() string {
	return filepath.Join(c.Output.Dir, c.Output.File)
}

// LogPath is the run log, kept next to the report.
func (c *Config) LogPath() string {
	return filepath.Join(c.Output.Dir, "scrape.log")
}

// RowsPath is the last scrape's raw rows, kept for offline re-rendering.
func (c *Config) RowsPath() string {
	return filepath.Join(c.Output.Dir, "rows.json")
}

// ScreenshotPath is where a failed scrape leaves its page capture.
func (c *Config) ScreenshotPath() string {
	return filepath.Join(c.Output.Dir, "failure.png")
}

// DBPath returns the path to the SQLite run-history database
func (c *Config) DBPath() string {
	if c.History.DBPath != "" {
		return c.History.DBPath
	}
	return filepath.Join(c.DataDir, "data", "usagedash.db")
}

// ProfileDir returns the persistent browser profile directory
func (c *Config) ProfileDir() string {
	if c.Scrape.ProfileDir != "" {
		return c.Scrape.ProfileDir
	}
	return filepath.Join(c.DataDir, "browser-profile")
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location resolves the schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

// EnsureDirs creates the output and data directories if missing.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.Output.Dir, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(c.DBPath()), 0o700)
}
