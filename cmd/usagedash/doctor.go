package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai4p/usagedash/internal/scheduler"
	"github.com/ai4p/usagedash/internal/scrape"
)

// DoctorCmd creates the doctor command for health checks
func DoctorCmd() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system health and diagnose issues",
		Long: `Run diagnostics on this usagedash installation.

Checks:
  - Configuration and schedule
  - Browser availability for scraping
  - Upload backend (rclone binary / Drive credentials)
  - Output directory and run history
  - A running serve instance, if any

Examples:
  usagedash doctor           # Run all diagnostics
  usagedash doctor --fix     # Attempt to fix issues`,
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(fix)
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Attempt to fix detected issues")
	return cmd
}

type checkResult struct {
	name    string
	status  string // "ok", "warn", "error"
	message string
}

func runDoctor(fix bool) {
	fmt.Println("\033[1m🔍 usagedash doctor\033[0m")
	fmt.Println("===================")
	fmt.Println()

	var results []checkResult
	results = append(results, checkConfig()...)
	results = append(results, checkBrowser()...)
	results = append(results, checkUpload()...)
	results = append(results, checkOutput()...)
	results = append(results, checkHistory()...)
	results = append(results, checkServe()...)

	fmt.Println()
	okCount := 0
	warnCount := 0
	errorCount := 0

	for _, r := range results {
		switch r.status {
		case "ok":
			fmt.Printf("\033[32m✓\033[0m %s: %s\n", r.name, r.message)
			okCount++
		case "warn":
			fmt.Printf("\033[33m⚠\033[0m %s: %s\n", r.name, r.message)
			warnCount++
		case "error":
			fmt.Printf("\033[31m✗\033[0m %s: %s\n", r.name, r.message)
			errorCount++
		}
	}

	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  \033[32m%d passed\033[0m", okCount)
	if warnCount > 0 {
		fmt.Printf("  \033[33m%d warnings\033[0m", warnCount)
	}
	if errorCount > 0 {
		fmt.Printf("  \033[31m%d errors\033[0m", errorCount)
	}
	fmt.Println()

	if errorCount > 0 && fix {
		fmt.Println()
		fmt.Println("Attempting fixes...")
		runFixes(results)
	}

	if errorCount > 0 {
		os.Exit(1)
	}
}

func checkConfig() []checkResult {
	var results []checkResult
	c := ServerConfig

	if cfgFile == "" {
		results = append(results, checkResult{
			name:    "Config",
			status:  "ok",
			message: "embedded defaults (etc/usagedash.yaml)",
		})
	} else {
		results = append(results, checkResult{
			name:    "Config",
			status:  "ok",
			message: cfgFile,
		})
	}

	if _, err := os.Stat(c.DataDir); os.IsNotExist(err) {
		results = append(results, checkResult{
			name:    "Data Directory",
			status:  "error",
			message: fmt.Sprintf("%s not found (any refresh creates it, or run with --fix)", c.DataDir),
		})
	} else {
		results = append(results, checkResult{
			name:    "Data Directory",
			status:  "ok",
			message: c.DataDir,
		})
	}

	if len(c.People) == 0 {
		results = append(results, checkResult{
			name:    "Tracked People",
			status:  "error",
			message: "people list is empty — every scrape would match nothing",
		})
	} else {
		results = append(results, checkResult{
			name:    "Tracked People",
			status:  "ok",
			message: fmt.Sprintf("%d names, manager %q", len(c.People), c.Manager),
		})
	}

	loc, err := c.Location()
	if err != nil {
		results = append(results, checkResult{
			name:    "Schedule",
			status:  "error",
			message: fmt.Sprintf("bad timezone %q: %v", c.Schedule.Timezone, err),
		})
		return results
	}
	if !c.Schedule.Enabled {
		results = append(results, checkResult{
			name:    "Schedule",
			status:  "ok",
			message: "disabled",
		})
		return results
	}
	if _, err := scheduler.New(c.Schedule.Cron, loc, func(context.Context) {}); err != nil {
		results = append(results, checkResult{
			name:    "Schedule",
			status:  "error",
			message: fmt.Sprintf("bad cron spec %q: %v", c.Schedule.Cron, err),
		})
	} else {
		results = append(results, checkResult{
			name:    "Schedule",
			status:  "ok",
			message: fmt.Sprintf("%q in %s", c.Schedule.Cron, loc),
		})
	}

	return results
}

func checkBrowser() []checkResult {
	var results []checkResult
	c := ServerConfig

	exe, err := scrape.FindChromeExecutable(c.Scrape.ChromePath)
	switch {
	case err != nil:
		results = append(results, checkResult{
			name:    "Browser",
			status:  "error",
			message: err.Error(),
		})
	case exe == nil && c.Scrape.Engine == "cdp":
		results = append(results, checkResult{
			name:    "Browser",
			status:  "error",
			message: fmt.Sprintf("no Chrome/Brave/Edge found on %s — the cdp engine needs one installed", runtime.GOOS),
		})
	case exe == nil:
		results = append(results, checkResult{
			name:    "Browser",
			status:  "warn",
			message: "no local browser found; playwright will download its own on first run",
		})
	default:
		results = append(results, checkResult{
			name:    "Browser",
			status:  "ok",
			message: fmt.Sprintf("%s at %s", exe.Kind, exe.Path),
		})
	}

	return results
}

func checkUpload() []checkResult {
	var results []checkResult
	c := ServerConfig

	switch c.Upload.Backend {
	case "none":
		results = append(results, checkResult{
			name:    "Upload",
			status:  "ok",
			message: "disabled",
		})

	case "", "rclone":
		if _, err := exec.LookPath("rclone"); err != nil {
			results = append(results, checkResult{
				name:    "Upload",
				status:  "error",
				message: "rclone not found in PATH",
			})
			return results
		}
		if c.Upload.Remote == "" {
			results = append(results, checkResult{
				name:    "Upload",
				status:  "error",
				message: "upload.remote is empty",
			})
			return results
		}
		if c.Upload.RcloneConfig != "" {
			if _, err := os.Stat(c.Upload.RcloneConfig); err != nil {
				results = append(results, checkResult{
					name:    "Upload",
					status:  "warn",
					message: fmt.Sprintf("rclone config %s not found; falling back to rclone's default", c.Upload.RcloneConfig),
				})
				return results
			}
		}
		results = append(results, checkResult{
			name:    "Upload",
			status:  "ok",
			message: fmt.Sprintf("rclone to %s:%s", c.Upload.Remote, c.Upload.RemotePath),
		})

	case "drive":
		if c.Upload.CredentialsFile == "" {
			results = append(results, checkResult{
				name:    "Upload",
				status:  "warn",
				message: "no credentials file configured; relying on application default credentials",
			})
			return results
		}
		if _, err := os.Stat(c.Upload.CredentialsFile); err != nil {
			results = append(results, checkResult{
				name:    "Upload",
				status:  "error",
				message: fmt.Sprintf("credentials file %s not found", c.Upload.CredentialsFile),
			})
			return results
		}
		results = append(results, checkResult{
			name:    "Upload",
			status:  "ok",
			message: fmt.Sprintf("Drive API with %s", c.Upload.CredentialsFile),
		})

	default:
		results = append(results, checkResult{
			name:    "Upload",
			status:  "error",
			message: fmt.Sprintf("unknown backend %q (valid: rclone, drive, none)", c.Upload.Backend),
		})
	}

	return results
}

func checkOutput() []checkResult {
	var results []checkResult
	c := ServerConfig

	info, err := os.Stat(c.Output.Dir)
	if err != nil {
		results = append(results, checkResult{
			name:    "Output Directory",
			status:  "error",
			message: fmt.Sprintf("%s not found (any refresh creates it, or run with --fix)", c.Output.Dir),
		})
		return results
	}
	if !info.IsDir() {
		results = append(results, checkResult{
			name:    "Output Directory",
			status:  "error",
			message: fmt.Sprintf("%s is not a directory", c.Output.Dir),
		})
		return results
	}

	// Writability probe — the renderer publishes via temp file + rename here.
	probe, err := os.CreateTemp(c.Output.Dir, ".doctor-*")
	if err != nil {
		results = append(results, checkResult{
			name:    "Output Directory",
			status:  "error",
			message: fmt.Sprintf("%s is not writable: %v", c.Output.Dir, err),
		})
		return results
	}
	probe.Close()
	os.Remove(probe.Name())

	if _, err := os.Stat(c.OutputPath()); err == nil {
		results = append(results, checkResult{
			name:    "Output Directory",
			status:  "ok",
			message: fmt.Sprintf("%s (dashboard published)", c.Output.Dir),
		})
	} else {
		results = append(results, checkResult{
			name:    "Output Directory",
			status:  "ok",
			message: fmt.Sprintf("%s (no dashboard published yet)", c.Output.Dir),
		})
	}

	return results
}

func checkHistory() []checkResult {
	var results []checkResult
	c := ServerConfig

	if _, err := os.Stat(c.DBPath()); os.IsNotExist(err) {
		results = append(results, checkResult{
			name:    "Run History",
			status:  "warn",
			message: "database not found (created on first refresh)",
		})
	} else {
		info, _ := os.Stat(c.DBPath())
		results = append(results, checkResult{
			name:    "Run History",
			status:  "ok",
			message: fmt.Sprintf("%s (%d KB)", c.DBPath(), info.Size()/1024),
		})
	}

	return results
}

func checkServe() []checkResult {
	var results []checkResult
	c := ServerConfig

	url := fmt.Sprintf("http://localhost:%d/healthz", c.Server.Port)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		results = append(results, checkResult{
			name:    "Server",
			status:  "warn",
			message: fmt.Sprintf("not running on port %d (start with 'usagedash serve')", c.Server.Port),
		})
		return results
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		results = append(results, checkResult{
			name:    "Server",
			status:  "ok",
			message: fmt.Sprintf("running on port %d", c.Server.Port),
		})
	} else {
		results = append(results, checkResult{
			name:    "Server",
			status:  "warn",
			message: fmt.Sprintf("unhealthy (status %d)", resp.StatusCode),
		})
	}

	return results
}

func runFixes(results []checkResult) {
	c := ServerConfig

	for _, r := range results {
		if r.status != "error" {
			continue
		}

		switch {
		case strings.Contains(r.name, "Data Directory"):
			if err := os.MkdirAll(filepath.Join(c.DataDir, "data"), 0755); err != nil {
				fmt.Printf("  \033[31m✗\033[0m Could not create %s: %v\n", c.DataDir, err)
			} else {
				fmt.Printf("  \033[32m✓\033[0m Created %s\n", c.DataDir)
			}
		case strings.Contains(r.name, "Output Directory"):
			if err := os.MkdirAll(c.Output.Dir, 0755); err != nil {
				fmt.Printf("  \033[31m✗\033[0m Could not create %s: %v\n", c.Output.Dir, err)
			} else {
				fmt.Printf("  \033[32m✓\033[0m Created %s\n", c.Output.Dir)
			}
		case strings.Contains(r.name, "Upload"):
			fmt.Println("  Install rclone or point upload.rclone_config at a valid remote")
		}
	}
}
