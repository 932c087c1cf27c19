// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidConfig is returned when a value fails validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config holds all configuration for the application.
type Config struct {
	// Telegram settings
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN" json:"-"` // Masked in JSON

	// Server settings. A zero port disables the HTTP API.
	HTTPPort int `env:"HTTP_PORT, default=8080" json:"http_port" validate:"gte=0,lte=65535"`

	// Storage settings
	TempDir   string `env:"TEMP_DIR, default=/tmp/stickerize" json:"temp_dir" validate:"required"`
	SourceDir string `env:"SOURCE_DIR" json:"source_dir,omitempty"`

	// External tools
	FFmpegPath      string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path" validate:"required"`
	LottieToGIFPath string `env:"LOTTIE_TO_GIF_PATH, default=lottie_to_gif.sh" json:"lottie_to_gif_path" validate:"required"`

	// Processing settings
	MaxInputBytes        int64         `env:"MAX_INPUT_BYTES, default=10485760" json:"max_input_bytes" validate:"gt=0"`
	MaxLosslessWebMBytes int           `env:"MAX_LOSSLESS_WEBM_BYTES, default=256000" json:"max_lossless_webm_bytes" validate:"gt=0"`
	ProcessTimeout       time.Duration `env:"PROCESS_TIMEOUT, default=60s" json:"process_timeout" validate:"gt=0"`
	SkipStartupChecks    bool          `env:"SKIP_STARTUP_CHECKS, default=false" json:"skip_startup_checks"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json TEXT JSON"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"` // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// HTTPEnabled returns true if the HTTP API should be served.
func (c *Config) HTTPEnabled() bool {
	return c.HTTPPort > 0
}

// Load reads configuration from environment variables using go-envconfig and
// validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{HTTPPort: %d, TempDir: %s, SourceDir: %s, FFmpegPath: %s, LottieToGIFPath: %s, MaxInputBytes: %d, MaxLosslessWebMBytes: %d, ProcessTimeout: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.HTTPPort,
		c.TempDir,
		c.SourceDir,
		c.FFmpegPath,
		c.LottieToGIFPath,
		c.MaxInputBytes,
		c.MaxLosslessWebMBytes,
		c.ProcessTimeout,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
