package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fixtape/fixtape/internal/config"
	"github.com/fixtape/fixtape/internal/logger"
	"github.com/fixtape/fixtape/internal/storage/backend"
)

var pushCmd = &cobra.Command{
	Use:   "push [cassette]",
	Short: "Upload a locally recorded cassette to the shared S3 bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(args[0], true)
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull [cassette]",
	Short: "Download a cassette from the shared S3 bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
}

func runSync(name string, push bool) error {
	log := logger.Must(debug, "")
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Backend.S3.Bucket == "" {
		return fmt.Errorf("push/pull needs backend.s3.bucket configured")
	}

	local, err := backend.NewLocalFS(cfg.Cassette.Dir)
	if err != nil {
		return fmt.Errorf("creating local backend: %w", err)
	}
	remote, err := newS3Backend(cfg)
	if err != nil {
		return fmt.Errorf("creating s3 backend: %w", err)
	}

	src, dst := backend.Backend(local), backend.Backend(remote)
	direction := "push"
	if !push {
		src, dst = dst, src
		direction = "pull"
	}

	ctx := context.Background()
	data, err := src.Read(ctx, name)
	if err != nil {
		return fmt.Errorf("reading cassette %q: %w", name, err)
	}
	if err := dst.Write(ctx, name, data); err != nil {
		return fmt.Errorf("writing cassette %q: %w", name, err)
	}

	log.Info("cassette synced",
		zap.String("cassette", name),
		zap.String("direction", direction),
		zap.Int("bytes", len(data)),
	)
	return nil
}

func newS3Backend(cfg *config.Config) (*backend.S3, error) {
	return backend.NewS3(backend.S3Config{
		Bucket:    cfg.Backend.S3.Bucket,
		Endpoint:  cfg.Backend.S3.Endpoint,
		Region:    cfg.Backend.S3.Region,
		AccessKey: cfg.Backend.S3.AccessKey,
		SecretKey: cfg.Backend.S3.SecretKey,
		Prefix:    cfg.Backend.S3.Prefix,
	})
}
