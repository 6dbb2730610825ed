package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fixtape/fixtape/internal/logger"
	"github.com/fixtape/fixtape/internal/storage"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [cassette]",
	Short: "List the key sequences recorded in a cassette",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
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

	c, err := storage.Open(ctx, b, name, storage.WithLogger(log))
	if err != nil {
		return fmt.Errorf("opening cassette: %w", err)
	}

	meta := c.Meta()
	fmt.Printf("Cassette:    %s\n", name)
	fmt.Printf("Session:     %s\n", meta.SessionID)
	fmt.Printf("Recorded:    %s\n", meta.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Compression: %s\n", meta.Compression)
	fmt.Println()

	entries := c.Entries()
	if len(entries) == 0 {
		fmt.Println("No entries.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-60s %4d entr%s %10d bytes\n",
			strings.Join(e.Keys, "/"), e.Count, plural(e.Count), e.Bytes)
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return "y "
	}
	return "ies"
}
