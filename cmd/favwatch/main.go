// Package main is the entry point for the favwatch CLI.
//
// favwatch can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	favwatch watch -c config.yaml    # Start watching favorites
//	favwatch validate -c config.yaml # Validate configuration
//	favwatch version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "favwatch",
	Short: "Watch a marketplace account's favorite listings",
	Long: `favwatch polls a marketplace API for a user's favorite listings
and prints every non-empty batch it receives.

It paces requests with a jittered interval, backs off automatically when
the remote service answers with repeated 403s, and keeps the session
alive with periodic re-authentication and app-version reports.

Quick start:
  1. Create a config file (favwatch.yaml)
  2. Run: favwatch watch -c favwatch.yaml
  3. Send SIGUSR1 to the process to pause/resume polling

Example config:
  api:
    base_url: https://api.example.com
    email: ${FAVWATCH_EMAIL}
    password: ${FAVWATCH_PASSWORD}
  polling_interval_min_in_ms: 40000
  polling_interval_max_in_ms: 120000`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this favwatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("favwatch %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
