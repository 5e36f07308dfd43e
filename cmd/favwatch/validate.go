package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkessler/favwatch/config"
)

// validateCmd validates a config file without starting the watcher.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a favwatch configuration file without starting the watcher.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  favwatch validate -c config.yaml
  favwatch validate --config /etc/favwatch/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Base URL:        %s\n", cfg.API.BaseURL)
	fmt.Printf("  Poll cadence:    %s\n", describeCadence(cfg))
	fmt.Printf("  Status server:   %s\n", describeStatus(cfg))

	return nil
}

// describeCadence summarizes the polling interval settings, mirroring
// the resolution order the watcher applies.
func describeCadence(cfg *config.Config) string {
	minSet := cfg.PollingIntervalMinMs != nil && *cfg.PollingIntervalMinMs > 0
	maxSet := cfg.PollingIntervalMaxMs != nil && *cfg.PollingIntervalMaxMs > 0

	if !minSet && !maxSet {
		if cfg.PollingIntervalMs != nil && *cfg.PollingIntervalMs > 0 {
			return fmt.Sprintf("fixed %dms", *cfg.PollingIntervalMs)
		}
		return "jittered, library defaults (40s-120s)"
	}

	minDesc := "default"
	if minSet {
		minDesc = fmt.Sprintf("%dms", *cfg.PollingIntervalMinMs)
	}
	maxDesc := "default"
	if maxSet {
		maxDesc = fmt.Sprintf("%dms", *cfg.PollingIntervalMaxMs)
	}
	return fmt.Sprintf("jittered, min %s / max %s", minDesc, maxDesc)
}

func describeStatus(cfg *config.Config) string {
	if !cfg.Status.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("enabled on port %d", cfg.Status.Port)
}
