package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai4p/usagedash/internal/history"
)

// StatusCmd creates the status command (published page + recent runs)
func StatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the published dashboard and recent refresh runs",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runStatus(limit); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func runStatus(limit int) error {
	c := ServerConfig

	if info, err := os.Stat(c.OutputPath()); err == nil {
		fmt.Printf("Published: %s (%d bytes, %s)\n", c.OutputPath(), info.Size(),
			info.ModTime().Format(time.RFC1123))
	} else {
		fmt.Println("Published: none yet")
	}

	store, err := history.Open(c.DBPath(), c.History.KeepRuns)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Println()
	fmt.Printf("%-20s %-9s %-13s %5s %7s %-3s %s\n",
		"STARTED", "TRIGGER", "STATUS", "ROWS", "ORG", "UP", "NOTE")
	for _, run := range runs {
		note := run.Error
		if note == "" && run.UploadError != "" {
			note = "upload: " + run.UploadError
		}
		fmt.Printf("%-20s %-9s %-13s %5d %7s %-3s %s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Trigger,
			run.Status,
			run.RowsMatched,
			orDash(run.OrgUsage),
			yesNo(run.Uploaded),
			note)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "-"
}
