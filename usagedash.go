package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	cli "github.com/ai4p/usagedash/cmd/usagedash"
	"github.com/ai4p/usagedash/internal/config"
)

//go:embed etc/usagedash.yaml
var embeddedConfig []byte

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load embedded config (defaults)
	c, err := config.LoadFromBytes(embeddedConfig)
	if err != nil {
		fmt.Printf("Failed to load embedded config: %v\n", err)
		os.Exit(1)
	}

	// A config file in the data dir overrides the compiled-in defaults;
	// --config overrides both (handled by the CLI).
	userConfig := config.UserConfigPath(c.DataDir)
	if _, statErr := os.Stat(userConfig); statErr == nil {
		if err := c.ApplyFile(userConfig); err != nil {
			fmt.Printf("Failed to load %s: %v\n", userConfig, err)
			os.Exit(1)
		}
	}

	if err := cli.SetupRootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
