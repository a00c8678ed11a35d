package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errorreporting"
	"github.com/tablescout/tablescout/internal/logger"
	"github.com/tablescout/tablescout/internal/server"
	"github.com/tablescout/tablescout/internal/tracing"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	addr := flag.String("addr", ":8000", "listen address")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("Failed to initialize error reporting", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init("tablescout-server")
	if err != nil {
		logger.Warn("Failed to initialize tracing", "error", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				logger.Warn("Failed to shut down tracing", "error", err)
			}
		}()
	}

	srv, err := server.New(*addr)
	if err != nil {
		logger.Error("Failed to build server", "error", err)
		errorreporting.CaptureError(err)
		errorreporting.Flush(2 * time.Second)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		logger.Error("Server error", "error", err)
		errorreporting.CaptureError(err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
