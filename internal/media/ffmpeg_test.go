package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/stickerize/internal/storage"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// createTestVideo creates a short solid color clip using ffmpeg.
func createTestVideo(t *testing.T, path string, duration float64, color string) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=640x360:d=%.1f", color, duration),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, name string, args []string, stdin []byte) (*Result, error) {
	called := m.Called(ctx, name, args, stdin)
	res, _ := called.Get(0).(*Result)
	return res, called.Error(1)
}

func hasLossless(args []string) bool {
	return slices.Contains(args, "-lossless")
}

func newTestTranscoder(t *testing.T, runner Runner, opts ...TranscoderOption) *FFmpegTranscoder {
	t.Helper()
	td, err := storage.NewTempDir(filepath.Join(t.TempDir(), "stickerize"))
	require.NoError(t, err)
	return NewFFmpegTranscoder(runner, td, opts...)
}

func TestNewFFmpegTranscoder(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		tr := NewFFmpegTranscoder(&mockRunner{}, nil)
		assert.Equal(t, "ffmpeg", tr.ffmpegPath)
		assert.Equal(t, "lottie_to_gif.sh", tr.lottiePath)
		assert.Equal(t, DefaultMaxLosslessWebMBytes, tr.maxLossless)
	})

	t.Run("custom options", func(t *testing.T) {
		tr := NewFFmpegTranscoder(&mockRunner{}, nil,
			WithFFmpegPath("/usr/local/bin/ffmpeg"),
			WithLottiePath("/opt/lottie_to_gif.sh"),
			WithMaxLosslessBytes(1024),
		)
		assert.Equal(t, "/usr/local/bin/ffmpeg", tr.ffmpegPath)
		assert.Equal(t, "/opt/lottie_to_gif.sh", tr.lottiePath)
		assert.Equal(t, 1024, tr.maxLossless)
	})

	t.Run("ignores zero values", func(t *testing.T) {
		tr := NewFFmpegTranscoder(&mockRunner{}, nil, WithFFmpegPath(""), WithMaxLosslessBytes(0))
		assert.Equal(t, "ffmpeg", tr.ffmpegPath)
		assert.Equal(t, DefaultMaxLosslessWebMBytes, tr.maxLossless)
	})
}

func TestFFmpegTranscoder_ConvertClip(t *testing.T) {
	ctx := context.Background()

	t.Run("small lossless output is kept", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", ctx, "ffmpeg", mock.MatchedBy(hasLossless), mock.Anything).
			Return(&Result{Stdout: bytes.Repeat([]byte{1}, 1000)}, nil).Once()

		blob, err := newTestTranscoder(t, runner).ConvertClip(ctx, "/tmp/in.mp4")
		require.NoError(t, err)
		assert.Equal(t, ExtWebM, blob.Ext())
		assert.Equal(t, 1000, blob.Len())
		runner.AssertNumberOfCalls(t, "Run", 1)
	})

	t.Run("large lossless output is retried lossy", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", ctx, "ffmpeg", mock.MatchedBy(hasLossless), mock.Anything).
			Return(&Result{Stdout: bytes.Repeat([]byte{1}, 300_000)}, nil).Once()
		runner.On("Run", ctx, "ffmpeg", mock.MatchedBy(func(args []string) bool { return !hasLossless(args) }), mock.Anything).
			Return(&Result{Stdout: bytes.Repeat([]byte{2}, 100_000)}, nil).Once()

		blob, err := newTestTranscoder(t, runner).ConvertClip(ctx, "/tmp/in.mp4")
		require.NoError(t, err)
		assert.Equal(t, ExtWebM, blob.Ext())
		assert.Equal(t, 100_000, blob.Len())
		runner.AssertNumberOfCalls(t, "Run", 2)
		runner.AssertExpectations(t)
	})

	t.Run("oversized lossy output is accepted", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", ctx, "ffmpeg", mock.Anything, mock.Anything).
			Return(&Result{Stdout: bytes.Repeat([]byte{1}, 500_000)}, nil).Twice()

		blob, err := newTestTranscoder(t, runner).ConvertClip(ctx, "/tmp/in.mp4")
		require.NoError(t, err)
		assert.Equal(t, 500_000, blob.Len())
		runner.AssertNumberOfCalls(t, "Run", 2)
	})

	t.Run("ceiling is configurable", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", ctx, "ffmpeg", mock.Anything, mock.Anything).
			Return(&Result{Stdout: bytes.Repeat([]byte{1}, 300_000)}, nil).Once()

		_, err := newTestTranscoder(t, runner, WithMaxLosslessBytes(1_000_000)).ConvertClip(ctx, "/tmp/in.mp4")
		require.NoError(t, err)
		runner.AssertNumberOfCalls(t, "Run", 1)
	})

	t.Run("arguments", func(t *testing.T) {
		assert.Equal(t, []string{
			"-hide_banner", "-t", "3", "-i", "/tmp/in.mp4", "-lossless", "1",
			"-vf", "scale=w=512:h=512:force_original_aspect_ratio=decrease",
			"-c:v", "libvpx-vp9", "-f", "webm", "-an", "-",
		}, clipArgs("/tmp/in.mp4", false))
		assert.NotContains(t, clipArgs("/tmp/in.mp4", true), "-lossless")
	})

	t.Run("non-zero exit is a transcode failure", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", ctx, "ffmpeg", mock.Anything, mock.Anything).
			Return(&Result{Stderr: []byte("Invalid data found"), ExitCode: 1}, nil).Once()

		_, err := newTestTranscoder(t, runner).ConvertClip(ctx, "/tmp/in.mp4")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTranscodeFailed)

		var perr *ProcessError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, 1, perr.ExitCode)
		assert.Contains(t, perr.Stderr, "Invalid data found")
		runner.AssertNumberOfCalls(t, "Run", 1)
	})

	t.Run("empty output is a transcode failure", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", ctx, "ffmpeg", mock.Anything, mock.Anything).
			Return(&Result{}, nil).Once()

		_, err := newTestTranscoder(t, runner).ConvertClip(ctx, "/tmp/in.mp4")
		assert.ErrorIs(t, err, ErrTranscodeFailed)
	})

	t.Run("timeout propagates", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", ctx, "ffmpeg", mock.Anything, mock.Anything).
			Return(nil, ErrTimeout).Once()

		_, err := newTestTranscoder(t, runner).ConvertClip(ctx, "/tmp/in.mp4")
		assert.ErrorIs(t, err, ErrTimeout)
	})
}

func TestFFmpegTranscoder_AnimationToGIF(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{}
	runner.On("Run", ctx, "/opt/lottie_to_gif.sh", []string{"/tmp/sticker.tgs", "--output", "-"}, mock.Anything).
		Return(&Result{Stdout: []byte("GIF89a...")}, nil).Once()

	blob, err := newTestTranscoder(t, runner, WithLottiePath("/opt/lottie_to_gif.sh")).
		AnimationToGIF(ctx, "/tmp/sticker.tgs")
	require.NoError(t, err)
	assert.Equal(t, ExtGIF, blob.Ext())
	assert.Equal(t, []byte("GIF89a..."), blob.Bytes())
	runner.AssertExpectations(t)
}

func TestFFmpegTranscoder_VideoToGIF(t *testing.T) {
	ctx := context.Background()
	input := []byte("webm sticker bytes")

	var stagedPath string
	runner := &mockRunner{}
	runner.On("Run", ctx, "ffmpeg", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			argv := args.Get(2).([]string)
			idx := slices.Index(argv, "-i")
			require.GreaterOrEqual(t, idx, 0)
			stagedPath = argv[idx+1]

			content, err := os.ReadFile(stagedPath)
			require.NoError(t, err)
			assert.Equal(t, input, content)
			assert.Equal(t, []string{"-c:v", "gif", "-f", "gif", "-"}, argv[idx+2:])
		}).
		Return(&Result{Stdout: []byte("GIF89a")}, nil).Once()

	blob, err := newTestTranscoder(t, runner).VideoToGIF(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, ExtGIF, blob.Ext())

	_, err = os.Stat(stagedPath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "staged input should be removed")
}

func TestFFmpegTranscoder_VideoToGIF_RemovesStagedFileOnFailure(t *testing.T) {
	ctx := context.Background()

	var stagedPath string
	runner := &mockRunner{}
	runner.On("Run", ctx, "ffmpeg", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			argv := args.Get(2).([]string)
			stagedPath = argv[slices.Index(argv, "-i")+1]
		}).
		Return(&Result{ExitCode: 1, Stderr: []byte("bad input")}, nil).Once()

	_, err := newTestTranscoder(t, runner).VideoToGIF(ctx, []byte("junk"))
	assert.ErrorIs(t, err, ErrTranscodeFailed)

	_, err = os.Stat(stagedPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFFmpegTranscoder_ConvertClip_Integration(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	input := filepath.Join(dir, "input.mp4")
	createTestVideo(t, input, 5, "blue")

	runner := NewExecRunner(WithTimeout(2 * time.Minute))
	blob, err := newTestTranscoder(t, runner).ConvertClip(context.Background(), input)
	if err != nil {
		var perr *ProcessError
		if errors.As(err, &perr) && bytes.Contains([]byte(perr.Stderr), []byte("libvpx-vp9")) {
			t.Skip("ffmpeg built without libvpx-vp9")
		}
		t.Fatalf("ConvertClip failed: %v", err)
	}

	assert.Equal(t, ExtWebM, blob.Ext())
	require.Greater(t, blob.Len(), 4)
	// EBML magic
	assert.Equal(t, []byte{0x1A, 0x45, 0xDF, 0xA3}, blob.Bytes()[:4])
}
