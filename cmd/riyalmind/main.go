package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"riyalmind/internal/amqp"
	"riyalmind/internal/auth"
	"riyalmind/internal/config"
	apphttp "riyalmind/internal/http"
	applog "riyalmind/internal/log"
	"riyalmind/internal/service"
	"riyalmind/internal/storage"
)

func main() {
	// .env is for local development; absence is fine in containers.
	_ = godotenv.Load()
	applog.Setup()

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

	// AMQP is optional: without it expenses are still recorded, only the
	// spreadsheet export lags until the worker's sweep.
	var publisher service.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("AMQP unavailable, continuing without event publishing", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(repo), tokens)
	expenseSvc := service.NewExpenseService(repo, publisher)
	ledgerSvc := service.NewLedgerService(repo, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, authSvc, expenseSvc, ledgerSvc)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting riyalmind server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped gracefully")
}
