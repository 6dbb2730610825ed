package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fixtape/fixtape/internal/config"
	"github.com/fixtape/fixtape/internal/storage/backend"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "fixtape",
	Short: "fixtape - record and replay file fixtures for tests",
	Long: `fixtape manages cassettes: keyed stores of files and directories
captured while tests run, so later runs can replay them byte-identically
without repeating the real work.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration for a command.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newBackend builds the configured cassette backend.
func newBackend(cfg *config.Config) (backend.Backend, error) {
	if cfg.Backend.Type == "s3" {
		return newS3Backend(cfg)
	}
	return backend.NewLocalFS(cfg.Cassette.Dir)
}
