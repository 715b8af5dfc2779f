package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"riyalmind/internal/amqp"
	"riyalmind/internal/config"
	"riyalmind/internal/export"
	applog "riyalmind/internal/log"
	"riyalmind/internal/storage"
	"riyalmind/internal/worker"
)

func main() {
	_ = godotenv.Load()
	applog.Setup()

	slog.Info("Starting riyalmind-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sheets export is optional; without credentials the worker falls back
	// to the in-memory writer, which keeps the queue drained in dev setups.
	var writer export.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		sheets, err := export.NewSheetsFromEnv(ctx)
		if err != nil {
			slog.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = sheets
		slog.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = export.NewMemoryWriter()
		slog.Info("Google Sheets disabled, using in-memory writer")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, writer, cfg.SyncBatchSize)

	// Recover anything missed while the worker was down.
	if err := syncWorker.StartupSweep(ctx); err != nil {
		slog.Error("Startup sweep failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
			return syncWorker.HandleMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		syncWorker.RunPeriodicSweep(ctx, cfg.SyncInterval)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Worker error", "error", err)
		os.Exit(1)
	}
	slog.Info("Worker stopped gracefully")
}
