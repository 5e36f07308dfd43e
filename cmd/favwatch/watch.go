package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/pkessler/favwatch"
	"github.com/pkessler/favwatch/api"
	"github.com/pkessler/favwatch/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a logger for CLI use. Interactive terminals get
// colorized output; everything else gets JSON for log collectors.
func newLogger() *slog.Logger {
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// watchCmd starts polling the configured account's favorites.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start watching favorites",
	Long: `Start polling the configured account's favorite listings.

The process will:
  - Load configuration from the specified YAML file (a .env file in the
    working directory is loaded first, so credentials can live there)
  - Authenticate and begin polling at a jittered interval
  - Print every non-empty batch of favorites to stdout

Polling starts enabled. Send SIGUSR1 to pause it; send SIGUSR1 again to
resume with fresh backoff state. Re-authentication and app-version
reports keep running while polling is paused.

The process runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  favwatch watch -c config.yaml
  favwatch watch --config /etc/favwatch/config.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// best effort; config values may reference the variables it sets
	_ = godotenv.Load()

	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"base_url", cfg.API.BaseURL,
		"status_server", cfg.Status.Enabled,
	)

	client := api.New(api.Config{
		BaseURL:    cfg.API.BaseURL,
		Email:      cfg.API.Email,
		Password:   cfg.API.Password,
		AppVersion: cfg.API.AppVersion,
	}, logger)

	opts := append(config.BuildOptions(cfg),
		favwatch.WithClient(client),
		favwatch.WithLogger(logger),
	)

	w, err := favwatch.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SIGUSR1 toggles the enable signal; start enabled
	enabled := make(chan bool, 1)
	enabled <- true
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	go func() {
		on := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-usr1:
				on = !on
				logger.Info("toggling polling", "enabled", on)
				select {
				case enabled <- on:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	go func() {
		for batch := range w.Batches() {
			for _, item := range batch {
				fmt.Println(string(item))
			}
			logger.Info("received favorites", "items", len(batch))
		}
	}()

	// start watcher - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx, enabled)
	}()

	// wait for the watcher to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("watcher error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("watcher error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
