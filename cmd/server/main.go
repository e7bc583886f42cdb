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

	"votaya-server/internal/app"
	"votaya-server/internal/auth"
	"votaya-server/internal/config"
	"votaya-server/internal/protocol"
	httpTransport "votaya-server/internal/transport/http"
	"votaya-server/internal/transport/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	// Set up logger
	var logger *slog.Logger
	logOpts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	}

	slog.SetDefault(logger)

	logger.Info("starting votaya poll server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	if cfg.IsProduction() && cfg.Auth.JWTSecret == "dev-secret-change-in-production" {
		logger.Warn("running in production with the default JWT secret")
	}

	// Room registry and message router
	hub := app.NewHub(app.Options{
		CodeLength:  cfg.Poll.RoomCodeLength,
		MaxOptions:  cfg.Poll.MaxOptions,
		GracePeriod: cfg.Poll.RoomGracePeriod,
	}, logger)
	defer hub.Close()

	router := protocol.NewRouter(hub, logger)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	wsHandler := ws.NewHandler(router, verifier, logger)

	server := httpTransport.NewServer(cfg, hub, wsHandler, logger)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
