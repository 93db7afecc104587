package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai4p/usagedash/internal/pipeline"
)

// RenderCmd creates the render command (rebuild the page without scraping)
func RenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Re-render the dashboard from the saved row snapshot",
		Long: `Rebuilds the dashboard page from the rows saved by the last successful
refresh, without opening a browser. Useful after template or config changes.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runRender(); err != nil {
				fmt.Fprintf(os.Stderr, "Render failed: %v\n", err)
				os.Exit(1)
			}
		},
	}
}

func runRender() error {
	c := ServerConfig

	if err := c.EnsureDirs(); err != nil {
		return err
	}

	pipe, err := pipeline.New(c, nil)
	if err != nil {
		return err
	}
	return pipe.Render(time.Now())
}
