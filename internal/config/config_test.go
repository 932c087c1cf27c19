package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN",
	"HTTP_PORT",
	"TEMP_DIR",
	"SOURCE_DIR",
	"FFMPEG_PATH",
	"LOTTIE_TO_GIF_PATH",
	"MAX_INPUT_BYTES",
	"MAX_LOSSLESS_WEBM_BYTES",
	"PROCESS_TIMEOUT",
	"SKIP_STARTUP_CHECKS",
	"S3_BUCKET",
	"S3_REGION",
	"S3_ENDPOINT",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"LOG_FORMAT",
	"LOG_LEVEL",
}

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "/tmp/stickerize", cfg.TempDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "lottie_to_gif.sh", cfg.LottieToGIFPath)
	assert.Equal(t, int64(10<<20), cfg.MaxInputBytes)
	assert.Equal(t, 256000, cfg.MaxLosslessWebMBytes)
	assert.Equal(t, 60*time.Second, cfg.ProcessTimeout)
	assert.False(t, cfg.SkipStartupChecks)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.TelegramBotToken)
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("HTTP_PORT", "3000")
	t.Setenv("TEMP_DIR", "/custom/temp")
	t.Setenv("SOURCE_DIR", "/srv/media")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg")
	t.Setenv("LOTTIE_TO_GIF_PATH", "/opt/lottie_to_gif.sh")
	t.Setenv("MAX_INPUT_BYTES", "2048")
	t.Setenv("MAX_LOSSLESS_WEBM_BYTES", "1000")
	t.Setenv("PROCESS_TIMEOUT", "5s")
	t.Setenv("SKIP_STARTUP_CHECKS", "true")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.Equal(t, "/srv/media", cfg.SourceDir)
	assert.Equal(t, "/opt/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "/opt/lottie_to_gif.sh", cfg.LottieToGIFPath)
	assert.Equal(t, int64(2048), cfg.MaxInputBytes)
	assert.Equal(t, 1000, cfg.MaxLosslessWebMBytes)
	assert.Equal(t, 5*time.Second, cfg.ProcessTimeout)
	assert.True(t, cfg.SkipStartupChecks)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port not a number", "HTTP_PORT", "not-a-number"},
		{"port out of range", "HTTP_PORT", "70000"},
		{"timeout not a duration", "PROCESS_TIMEOUT", "soon"},
		{"zero timeout", "PROCESS_TIMEOUT", "0s"},
		{"zero input limit", "MAX_INPUT_BYTES", "0"},
		{"unknown log format", "LOG_FORMAT", "xml"},
		{"bad endpoint", "S3_ENDPOINT", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_HTTPEnabled(t *testing.T) {
	assert.True(t, (&Config{HTTPPort: 8080}).HTTPEnabled())
	assert.False(t, (&Config{HTTPPort: 0}).HTTPEnabled())
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		TelegramBotToken:   "123:secret-token",
		HTTPPort:           8080,
		TempDir:            "/tmp/test",
		FFmpegPath:         "ffmpeg",
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "bucket")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-token")
	assert.NotContains(t, str, "secret-key")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	assert.IsType(t, &slog.JSONHandler{}, logger.Handler())
	assert.False(t, logger.Enabled(t.Context(), slog.LevelDebug))
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	assert.IsType(t, &slog.TextHandler{}, logger.Handler())
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	// Text handler output is key=value
	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("test message")
	assert.Contains(t, buf.String(), "msg=\"test message\"")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
