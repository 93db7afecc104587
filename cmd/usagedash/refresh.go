package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ai4p/usagedash/internal/config"
	"github.com/ai4p/usagedash/internal/history"
	"github.com/ai4p/usagedash/internal/logging"
	"github.com/ai4p/usagedash/internal/pipeline"
)

// RefreshCmd creates the refresh command (one-shot scrape and publish)
func RefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Scrape UniDash once and publish the dashboard",
		Long: `Scrapes the UniDash usage report, rebuilds the dashboard page, and
uploads it. This is the command to put in cron on a machine that does not
run 'usagedash serve'.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runRefresh(); err != nil {
				fmt.Fprintf(os.Stderr, "Refresh failed: %v\n", err)
				os.Exit(1)
			}
		},
	}
}

func runRefresh() error {
	c := ServerConfig

	if err := c.EnsureDirs(); err != nil {
		return err
	}

	// Mirror output to the run log next to the published report.
	if err := logging.TeeFile(c.LogPath()); err != nil {
		logging.Warnf("Could not open run log: %v", err)
	}
	defer logging.CloseFile()

	// Enforce single instance with a lock file: a second cron firing while
	// a slow scrape is still going must not race the first.
	lockFile, err := acquireLock(c.DataDir)
	if err != nil {
		return fmt.Errorf("another usagedash instance is running (%v)", err)
	}
	defer releaseLock(lockFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	store := openHistory(c)
	if store != nil {
		defer store.Close()
	}

	pipe, err := pipeline.New(c, store)
	if err != nil {
		return err
	}
	_, err = pipe.Refresh(ctx, history.TriggerCLI)
	return err
}

// openHistory opens the run-history store, or returns nil when it cannot be
// opened. Recording history is never worth failing a refresh over.
func openHistory(c *config.Config) *history.Store {
	store, err := history.Open(c.DBPath(), c.History.KeepRuns)
	if err != nil {
		logging.Warnf("Run history unavailable: %v", err)
		return nil
	}
	return store
}
