package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"

	"github.com/hiroki-koketsu/go-task-manager/internal/auth"
	"github.com/hiroki-koketsu/go-task-manager/internal/config"
	"github.com/hiroki-koketsu/go-task-manager/internal/handler"
	"github.com/hiroki-koketsu/go-task-manager/internal/repository"
	"github.com/hiroki-koketsu/go-task-manager/internal/service"
	"github.com/hiroki-koketsu/go-task-manager/internal/telemetry"
)

// taskStore is what the server needs from a store driver.
type taskStore interface {
	service.TaskStore
	Count(ctx context.Context) (int64, error)
	Close(ctx context.Context) error
}

func main() {
	startupLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		startupLogger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	startupLogger.Info("starting api server",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store", cfg.Store.Driver),
		slog.Bool("otel", cfg.OTelEnabled),
	)

	if err := run(cfg, startupLogger); err != nil {
		startupLogger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, startupLogger *slog.Logger) error {
	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			startupLogger.Error("failed to shutdown telemetry", slog.Any("error", err))
		}
	}()
	logger := tel.Logger

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.Meter(cfg.ServiceName), store.Count)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	tokens := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	taskHandler := handler.NewTaskHandler(service.NewTaskService(store, logger), logger, metrics)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(taskHandler, tokens, logger, cfg.RequestTimeout),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (taskStore, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return repository.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
	case config.DriverSQLite:
		return repository.OpenSQLite(cfg.SQLitePath)
	default:
		return repository.NewMemoryStore(), nil
	}
}
