package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hiroki-koketsu/go-task-manager/internal/client"
	"github.com/hiroki-koketsu/go-task-manager/internal/config"
	"github.com/hiroki-koketsu/go-task-manager/internal/telemetry"
	"github.com/hiroki-koketsu/go-task-manager/internal/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.ServiceName + "-web",
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown telemetry", slog.Any("error", err))
		}
	}()
	logger = tel.Logger

	ui, err := web.NewServer(cfg.Web.APIBaseURL, cfg.Web.SessionKey, client.NewHTTPClient(cfg.RequestTimeout), logger)
	if err != nil {
		logger.Error("failed to create web server", slog.Any("error", err))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Web.Port,
		Handler:      ui.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("web ui listening", slog.String("addr", server.Addr), slog.String("api", cfg.Web.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}
	logger.Info("web ui stopped")
}
