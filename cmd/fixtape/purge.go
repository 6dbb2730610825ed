package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fixtape/fixtape/internal/keybuild"
	"github.com/fixtape/fixtape/internal/logger"
	"github.com/fixtape/fixtape/internal/storage"
)

var purgeAll bool

var purgeCmd = &cobra.Command{
	Use:   "purge [cassette]",
	Short: "Drop recorded file artifacts so a fixture can be re-recorded",
	Long: `Removes the captured file archives from a cassette. By default only
the file-artifact subtree is dropped and other recordings survive;
--all clears every entry while keeping the session metadata.`,
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeAll, "all", false, "drop every entry, not just file artifacts")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug, "")
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := newBackend(cfg)
	if err != nil {
		return fmt.Errorf("creating backend: %w", err)
	}

	ctx := context.Background()
	name := args[0]

	exists, err := b.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking cassette: %w", err)
	}
	if !exists {
		return fmt.Errorf("cassette %q not found", name)
	}

	c, err := storage.Open(ctx, b, name,
		storage.WithMode(storage.ModeWrite),
		storage.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("opening cassette: %w", err)
	}

	if purgeAll {
		if err := c.Reset(); err != nil {
			return err
		}
		log.Info("cleared cassette", zap.String("cassette", name))
	} else {
		n, err := c.Purge(keybuild.Markers())
		if err != nil {
			return err
		}
		log.Info("purged file artifacts",
			zap.String("cassette", name),
			zap.Int("dropped", n),
		)
	}

	return c.Close(ctx)
}
