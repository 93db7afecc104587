package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ai4p/usagedash/internal/history"
	"github.com/ai4p/usagedash/internal/logging"
	"github.com/ai4p/usagedash/internal/pipeline"
	"github.com/ai4p/usagedash/internal/scheduler"
	"github.com/ai4p/usagedash/internal/server"
)

// ServeCmd creates the serve command (dashboard server + scheduled refreshes)
func ServeCmd() *cobra.Command {
	var noSchedule bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and refresh it on a schedule",
		Long: `Starts the dashboard HTTP server. Unless scheduling is disabled, the
configured cron schedule refreshes the page in-process; connected browsers
reload automatically when a new page is published.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runServe(noSchedule); err != nil {
				fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "serve only, without the in-process refresh schedule")
	return cmd
}

func runServe(noSchedule bool) error {
	c := ServerConfig

	if err := c.EnsureDirs(); err != nil {
		return err
	}

	lockFile, err := acquireLock(c.DataDir)
	if err != nil {
		return fmt.Errorf("another usagedash instance is running (%v)", err)
	}
	defer releaseLock(lockFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Infof("Received signal: %v - shutting down...", sig)
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

	var sched *scheduler.Scheduler
	if c.Schedule.Enabled && !noSchedule {
		loc, err := c.Location()
		if err != nil {
			return fmt.Errorf("invalid schedule timezone %q: %w", c.Schedule.Timezone, err)
		}
		sched, err = scheduler.New(c.Schedule.Cron, loc, func(ctx context.Context) {
			if _, err := pipe.Refresh(ctx, history.TriggerSchedule); err != nil {
				logging.Errorf("Scheduled refresh failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule.Cron, err)
		}
		sched.Start()
		defer sched.Stop()
	}

	return server.New(c, pipe, store, sched).Run(ctx)
}
