package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billsync/config"
	"billsync/core/domain"
	"billsync/internal/bootstrap"
	"billsync/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "billsync",
	})

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	mode := flag.String("mode", "api", "Run mode: api, sync, backfill, bill")
	limit := flag.Int("limit", 0, "Max candidates per run (sync/backfill modes)")
	dryRun := flag.Bool("dry-run", false, "Extract but do not persist (sync/backfill/bill modes)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	switch *mode {
	case "api":
		runAPI(cfg)
	case "sync":
		runSync(cfg, domain.SyncOptions{Limit: *limit, DryRun: *dryRun})
	case "backfill":
		runSync(cfg, domain.SyncOptions{Limit: *limit, DryRun: *dryRun, Backfill: true})
	case "bill":
		runBill(cfg, *dryRun)
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

func runAPI(cfg *config.Config) {
	app, cleanup, err := bootstrap.NewAPI(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize API: %v", err)
	}
	defer cleanup()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- app.Shutdown()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Error("Error shutting down: %v", err)
			} else {
				logger.Info("API server shut down gracefully")
			}
		case <-ctx.Done():
			logger.Warn("API shutdown timed out, forcing exit")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

// runSync performs one payment sync run and prints the report.
func runSync(cfg *config.Config, opts domain.SyncOptions) {
	deps, cleanup, err := bootstrap.NewDependencies(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := deps.Engine.SyncPayments(ctx, opts)
	if err != nil {
		logger.Fatal("Sync failed: %v", err)
	}
	printJSON(report)
}

// runBill ingests the newest candidate bill email and prints the record.
func runBill(cfg *config.Config, dryRun bool) {
	deps, cleanup, err := bootstrap.NewDependencies(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rec, inserted, err := deps.Engine.SyncLatestBill(ctx, dryRun)
	if err != nil {
		logger.Fatal("Bill sync failed: %v", err)
	}
	printJSON(map[string]any{
		"record":   rec,
		"inserted": inserted,
		"dry_run":  dryRun,
	})
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode report: %v", err)
	}
	fmt.Println(string(out))
}
