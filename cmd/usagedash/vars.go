package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ai4p/usagedash/internal/config"
	"github.com/ai4p/usagedash/internal/logging"
)

// Shared CLI flags (used across multiple command files)
var (
	cfgFile string
	verbose bool
)

// ServerConfig holds the loaded configuration (set by main)
var ServerConfig *config.Config

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config) *cobra.Command {
	ServerConfig = c

	rootCmd := &cobra.Command{
		Use:   "usagedash",
		Short: "usagedash - AI4P tool usage dashboard",
		Long: `usagedash pulls the org's AI tool usage numbers off the UniDash report,
renders them as a static dashboard page, and ships the page to Google Drive
and/or serves it over HTTP.

Run 'usagedash refresh' for a one-shot update, or 'usagedash serve' to keep
a dashboard server with scheduled refreshes running.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				if err := ServerConfig.ApplyFile(cfgFile); err != nil {
					return fmt.Errorf("failed to load config %s: %w", cfgFile, err)
				}
			}
			logging.SetDebug(verbose)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file overlaid on the embedded defaults")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add commands
	rootCmd.AddCommand(RefreshCmd())
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(RenderCmd())
	rootCmd.AddCommand(StatusCmd())
	rootCmd.AddCommand(DoctorCmd())

	return rootCmd
}
