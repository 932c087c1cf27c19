// Package bootstrap provides dependency initialization for the sticker converter.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/maauso/stickerize/internal/config"
	"github.com/maauso/stickerize/internal/convert"
	"github.com/maauso/stickerize/internal/media"
	"github.com/maauso/stickerize/internal/server"
	"github.com/maauso/stickerize/internal/storage"
	"github.com/maauso/stickerize/internal/telegram"
)

// ErrNothingToRun is returned when neither the bot nor the HTTP API is configured.
var ErrNothingToRun = errors.New("bootstrap: set TELEGRAM_BOT_TOKEN or HTTP_PORT")

// Dependencies holds all initialized dependencies for the service.
type Dependencies struct {
	Runner     media.Runner
	Checks     []media.Check
	Dispatcher *convert.Dispatcher
	// Handlers is nil when the HTTP API is disabled.
	Handlers *server.Handlers
	// Bot is nil when no bot token is configured.
	Bot *telegram.Bot
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if cfg.TelegramBotToken == "" && !cfg.HTTPEnabled() {
		return nil, ErrNothingToRun
	}

	runner := NewRunner(cfg, logger)
	dispatcher, err := NewDispatcher(cfg, runner, logger)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Runner:     runner,
		Checks:     media.DefaultChecks(cfg.FFmpegPath, cfg.LottieToGIFPath),
		Dispatcher: dispatcher,
	}

	if cfg.HTTPEnabled() {
		source, err := initSource(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		deps.Handlers = server.NewHandlers(dispatcher, source, logger)
	}

	if cfg.TelegramBotToken != "" {
		client := &http.Client{Timeout: cfg.ProcessTimeout + 30*time.Second}
		bot, err := telegram.New(cfg.TelegramBotToken, dispatcher, client, logger)
		if err != nil {
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
		deps.Bot = bot
	}

	return deps, nil
}

// NewRunner creates the process runner with the configured timeout.
func NewRunner(cfg *config.Config, logger *slog.Logger) *media.ExecRunner {
	return media.NewExecRunner(
		media.WithTimeout(cfg.ProcessTimeout),
		media.WithRunnerLogger(logger),
	)
}

// NewDispatcher wires the converters and the temp directory into a dispatcher.
func NewDispatcher(cfg *config.Config, runner media.Runner, logger *slog.Logger) (*convert.Dispatcher, error) {
	temp, err := storage.NewTempDir(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	logger.Info("temp directory configured",
		slog.String("temp_dir", temp.Dir()),
	)

	images := media.NewImageConverter(media.WithImageLogger(logger))
	transcoder := media.NewFFmpegTranscoder(runner, temp,
		media.WithFFmpegPath(cfg.FFmpegPath),
		media.WithLottiePath(cfg.LottieToGIFPath),
		media.WithMaxLosslessBytes(cfg.MaxLosslessWebMBytes),
		media.WithTranscoderLogger(logger),
	)

	dispatcher := convert.NewDispatcher(images, transcoder, temp, logger)
	dispatcher.SetMaxInputBytes(cfg.MaxInputBytes)
	return dispatcher, nil
}

// initSource creates the object source for the HTTP API. It returns a nil
// source when neither S3 nor a local directory is configured.
func initSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (convert.Source, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		src, err := storage.NewS3Source(ctx, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 source: %w", err)
		}
		logger.Info("S3 source configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return src, nil
	}

	if cfg.SourceDir != "" {
		src, err := storage.NewLocalSource(cfg.SourceDir)
		if err != nil {
			return nil, fmt.Errorf("create local source: %w", err)
		}
		logger.Info("local source configured",
			slog.String("source_dir", src.Root()),
		)
		return src, nil
	}

	logger.Warn("no object source configured, POST /convert will answer 503")
	return nil, nil
}
