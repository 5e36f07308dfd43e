package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/pkessler/favwatch"
	"github.com/pkessler/favwatch/api"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	// start mock marketplace API (see mock_server.go)
	mock := newMockMarketplace()
	go mock.Start(":9999")
	time.Sleep(100 * time.Millisecond)

	client := api.New(api.Config{
		BaseURL:  "http://localhost:9999",
		Email:    "demo@example.com",
		Password: "demo-password",
	}, logger)

	// aggressive cadence for demo purposes; production uses the 40s-120s
	// defaults and the 15s floor still applies here
	w, err := favwatch.New(
		favwatch.WithClient(client),
		favwatch.WithPollingIntervalMin(15*time.Second),
		favwatch.WithPollingIntervalMax(20*time.Second),
		favwatch.WithBackoff403(3, 2*time.Minute, 1*time.Minute),
		favwatch.WithStatusPort(8080),
		favwatch.WithLogger(logger),
		favwatch.WithBatchCallback(func(items []favwatch.Listing) {
			logger.Info("callback fired", "items", len(items))
		}),
	)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   favwatch Demo                                       ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Mock marketplace API:  http://localhost:9999        ║")
	fmt.Println("  ║   Status server:         http://localhost:8080        ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Polling toggles off and back on after a minute,     ║")
	fmt.Println("  ║   and a 403 burst arms the cooldown mid-run.          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// consume emitted batches
	go func() {
		for batch := range w.Batches() {
			for _, item := range batch {
				fmt.Printf("  favorite: %s\n", string(item))
			}
		}
	}()

	// drive the demo: churn favorites, toggle polling, inject 403s
	enabled := make(chan bool, 1)
	enabled <- true
	go func() {
		churn := time.NewTicker(25 * time.Second)
		defer churn.Stop()
		script := time.NewTimer(time.Minute)
		defer script.Stop()
		step := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-churn.C:
				mock.churn()
			case <-script.C:
				switch step {
				case 0:
					logger.Info("demo: pausing polling")
					enabled <- false
					script.Reset(30 * time.Second)
				case 1:
					logger.Info("demo: resuming polling with fresh backoff state")
					enabled <- true
					script.Reset(time.Minute)
				case 2:
					mock.inject403Burst(3)
				}
				step++
			}
		}
	}()

	if err := w.Start(ctx, enabled); err != nil {
		slog.Error("watcher error", "error", err)
		os.Exit(1)
	}
}
