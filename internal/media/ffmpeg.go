package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/maauso/stickerize/internal/storage"
)

const (
	// DefaultMaxLosslessWebMBytes is the largest lossless clip output accepted
	// before re-encoding lossy.
	DefaultMaxLosslessWebMBytes = 256_000

	// clipSeconds is the duration cap for clip outputs.
	clipSeconds = "3"

	// clipScaleFilter fits the clip within 512x512 keeping the aspect ratio.
	clipScaleFilter = "scale=w=512:h=512:force_original_aspect_ratio=decrease"
)

// Stager writes bytes to a fresh temporary file that the caller removes.
type Stager interface {
	Stage(ctx context.Context, pattern string, r io.Reader) (*storage.TempFile, error)
}

// Compile-time check that FFmpegTranscoder implements Transcoder.
var _ Transcoder = (*FFmpegTranscoder)(nil)

// FFmpegTranscoder implements Transcoder using the ffmpeg CLI and the
// lottie_to_gif.sh helper. All processes go through a Runner so they share
// its timeout and kill semantics.
type FFmpegTranscoder struct {
	runner      Runner
	stager      Stager
	ffmpegPath  string
	lottiePath  string
	maxLossless int
	logger      *slog.Logger
}

// TranscoderOption configures an FFmpegTranscoder.
type TranscoderOption func(*FFmpegTranscoder)

// WithFFmpegPath sets the ffmpeg binary. Defaults to "ffmpeg" (found via PATH).
func WithFFmpegPath(path string) TranscoderOption {
	return func(t *FFmpegTranscoder) {
		if path != "" {
			t.ffmpegPath = path
		}
	}
}

// WithLottiePath sets the lottie renderer script. Defaults to "lottie_to_gif.sh".
func WithLottiePath(path string) TranscoderOption {
	return func(t *FFmpegTranscoder) {
		if path != "" {
			t.lottiePath = path
		}
	}
}

// WithMaxLosslessBytes sets the lossless size ceiling for clips.
func WithMaxLosslessBytes(n int) TranscoderOption {
	return func(t *FFmpegTranscoder) {
		if n > 0 {
			t.maxLossless = n
		}
	}
}

// WithTranscoderLogger sets the logger.
func WithTranscoderLogger(logger *slog.Logger) TranscoderOption {
	return func(t *FFmpegTranscoder) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewFFmpegTranscoder creates a new FFmpegTranscoder.
func NewFFmpegTranscoder(runner Runner, stager Stager, opts ...TranscoderOption) *FFmpegTranscoder {
	t := &FFmpegTranscoder{
		runner:      runner,
		stager:      stager,
		ffmpegPath:  "ffmpeg",
		lottiePath:  "lottie_to_gif.sh",
		maxLossless: DefaultMaxLosslessWebMBytes,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ConvertClip implements Transcoder. At most two ffmpeg runs happen: lossless,
// then lossy if the lossless output is over the ceiling. Lossy output is
// accepted at any size.
func (t *FFmpegTranscoder) ConvertClip(ctx context.Context, path string) (Blob, error) {
	lossy := false
	for {
		args := clipArgs(path, lossy)
		out, err := t.run(ctx, "ffmpeg", t.ffmpegPath, args, nil)
		if err != nil {
			return Blob{}, err
		}

		if !lossy && len(out) > t.maxLossless {
			t.logger.Info("lossless clip too large, retrying lossy",
				slog.Int("bytes", len(out)),
				slog.Int("max_bytes", t.maxLossless),
			)
			lossy = true
			continue
		}

		return NewBlob(out, ExtWebM), nil
	}
}

// AnimationToGIF implements Transcoder.
func (t *FFmpegTranscoder) AnimationToGIF(ctx context.Context, path string) (Blob, error) {
	out, err := t.run(ctx, "lottie_to_gif", t.lottiePath, []string{path, "--output", "-"}, nil)
	if err != nil {
		return Blob{}, err
	}
	return NewBlob(out, ExtGIF), nil
}

// VideoToGIF implements Transcoder. ffmpeg needs a seekable input for webm,
// so the bytes are staged in a temporary file first.
func (t *FFmpegTranscoder) VideoToGIF(ctx context.Context, data []byte) (Blob, error) {
	tmp, err := t.stager.Stage(ctx, "video_sticker_*.webm", bytes.NewReader(data))
	if err != nil {
		return Blob{}, fmt.Errorf("stage video sticker: %w", err)
	}
	defer func() {
		if err := tmp.Remove(); err != nil {
			t.logger.Warn("failed to remove temp file",
				slog.String("path", tmp.Path()),
				slog.Any("error", err),
			)
		}
	}()

	args := []string{
		"-hide_banner",
		"-i", tmp.Path(),
		"-c:v", "gif",
		"-f", "gif",
		"-",
	}
	out, err := t.run(ctx, "ffmpeg", t.ffmpegPath, args, nil)
	if err != nil {
		return Blob{}, err
	}
	return NewBlob(out, ExtGIF), nil
}

// run executes a converter and returns its stdout. A non-zero exit or an
// empty output is reported as a ProcessError wrapping ErrTranscodeFailed.
func (t *FFmpegTranscoder) run(ctx context.Context, label, bin string, args []string, stdin []byte) ([]byte, error) {
	res, err := t.runner.Run(ctx, bin, args, stdin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	if !res.Success() || len(res.Stdout) == 0 {
		perr := &ProcessError{
			Name:     label,
			Args:     args,
			ExitCode: res.ExitCode,
			Stderr:   string(res.Stderr),
			Err:      ErrTranscodeFailed,
		}
		t.logger.Error("converter failed",
			slog.String("name", label),
			slog.Int("exit_code", res.ExitCode),
			slog.Int("stdout_bytes", len(res.Stdout)),
			slog.String("stderr", string(res.Stderr)),
		)
		return nil, perr
	}

	return res.Stdout, nil
}

func clipArgs(input string, lossy bool) []string {
	args := []string{"-hide_banner", "-t", clipSeconds, "-i", input}
	if !lossy {
		args = append(args, "-lossless", "1")
	}
	return append(args,
		"-vf", clipScaleFilter,
		"-c:v", "libvpx-vp9",
		"-f", "webm",
		"-an",
		"-",
	)
}
