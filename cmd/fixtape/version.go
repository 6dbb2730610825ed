package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Overridden at build time, e.g.:
//
//	go build -ldflags "-X main.version=v0.3.0 -X main.commit=$(git rev-parse --short HEAD)"
var (
	version = "dev"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the fixtape version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fixtape %s (commit %s, %s, %s/%s)\n",
			version, commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
