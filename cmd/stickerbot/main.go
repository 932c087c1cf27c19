// Package main provides the entry point for the sticker converter service:
// the Telegram bot and the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maauso/stickerize/internal/bootstrap"
	"github.com/maauso/stickerize/internal/config"
	"github.com/maauso/stickerize/internal/media"
	"github.com/maauso/stickerize/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting stickerize",
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("temp_dir", cfg.TempDir),
		slog.Int64("max_input_bytes", cfg.MaxInputBytes),
		slog.Duration("process_timeout", cfg.ProcessTimeout),
		slog.Bool("bot_enabled", cfg.TelegramBotToken != ""),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	if cfg.SkipStartupChecks {
		logger.Warn("startup checks skipped")
	} else if err := media.CheckCommands(ctx, deps.Runner, deps.Checks, logger); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	errCh := make(chan error, 2)
	done := make(chan struct{}, 2)
	running := 0

	var srv *http.Server
	if deps.Handlers != nil {
		router := server.NewRouter(deps.Handlers, logger, server.DefaultConfig())
		srv = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2*cfg.ProcessTimeout + 30*time.Second, // A video sticker runs two tools
			IdleTimeout:  60 * time.Second,
			BaseContext:  func(_ net.Listener) context.Context { return ctx },
		}
		running++
		go func() {
			defer func() { done <- struct{}{} }()
			logger.Info("HTTP server listening",
				slog.String("addr", srv.Addr),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server failed: %w", err)
			}
		}()
	}

	if deps.Bot != nil {
		running++
		go func() {
			defer func() { done <- struct{}{} }()
			if err := deps.Bot.Run(ctx); err != nil {
				errCh <- fmt.Errorf("bot failed: %w", err)
			}
		}()
	}

	// Wait for shutdown signal or error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case runErr = <-errCh:
		logger.Error("component failed", slog.Any("error", runErr))
	}
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if srv != nil {
		logger.Info("shutting down server...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Join(runErr, fmt.Errorf("shutdown failed: %w", err))
		}
	}

	for ; running > 0; running-- {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			return errors.Join(runErr, fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err()))
		}
	}

	logger.Info("stopped gracefully")
	return runErr
}
