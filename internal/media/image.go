package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"log/slog"
	"math"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// StickerSize is the bounding box edge for sticker outputs.
const StickerSize = 512

// DefaultMaxImagePixels caps decoded images at 512 MiB of RGBA.
const DefaultMaxImagePixels = (512 << 20) / 4

// Encoder writes an image in a compact lossless format.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// WebPEncoder encodes lossless (VP8L) webp.
type WebPEncoder struct{}

// Encode implements Encoder.
func (WebPEncoder) Encode(w io.Writer, img image.Image) error {
	return nativewebp.Encode(w, img, nil)
}

// Compile-time check that ImageConverter implements ImageProcessor.
var _ ImageProcessor = (*ImageConverter)(nil)

// ImageConverter implements ImageProcessor in-process.
type ImageConverter struct {
	encoder   Encoder
	size      int
	maxPixels int
	logger    *slog.Logger
}

// ImageOption configures an ImageConverter.
type ImageOption func(*ImageConverter)

// WithEncoder replaces the primary (webp) encoder.
func WithEncoder(e Encoder) ImageOption {
	return func(c *ImageConverter) {
		if e != nil {
			c.encoder = e
		}
	}
}

// WithMaxPixels sets the largest width*height accepted before decoding.
func WithMaxPixels(n int) ImageOption {
	return func(c *ImageConverter) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

// WithImageLogger sets the logger.
func WithImageLogger(logger *slog.Logger) ImageOption {
	return func(c *ImageConverter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewImageConverter creates an ImageConverter targeting StickerSize.
func NewImageConverter(opts ...ImageOption) *ImageConverter {
	c := &ImageConverter{
		encoder:   WebPEncoder{},
		size:      StickerSize,
		maxPixels: DefaultMaxImagePixels,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert implements ImageProcessor.
func (c *ImageConverter) Convert(data []byte) (Blob, error) {
	mime := mimetype.Detect(data).String()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		c.logger.Info("decode config failed",
			slog.String("mime", mime),
			slog.Int("bytes", len(data)),
			slog.Any("error", err),
		)
		return Blob{}, fmt.Errorf("%w: %w", ErrNotAnImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(c.maxPixels) {
		c.logger.Warn("image header exceeds pixel limit",
			slog.String("mime", mime),
			slog.Int("width", cfg.Width),
			slog.Int("height", cfg.Height),
			slog.Int("max_pixels", c.maxPixels),
		)
		return Blob{}, fmt.Errorf("%w: %w: %dx%d", ErrNotAnImage, ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		c.logger.Info("decode failed",
			slog.String("mime", mime),
			slog.Int("bytes", len(data)),
			slog.Any("error", err),
		)
		return Blob{}, fmt.Errorf("%w: %w", ErrNotAnImage, err)
	}

	bounds := img.Bounds()
	c.logger.Info("got image",
		slog.String("format", format),
		slog.String("mime", mime),
		slog.Int("width", bounds.Dx()),
		slog.Int("height", bounds.Dy()),
	)

	w, h, err := FitWithin(bounds.Dx(), bounds.Dy(), c.size, c.size)
	if err != nil {
		return Blob{}, fmt.Errorf("%w: %w", ErrNotAnImage, err)
	}
	resized := imaging.Resize(img, w, h, imaging.Lanczos)

	var buf bytes.Buffer
	if err := c.encoder.Encode(&buf, resized); err != nil {
		// Lossless encoders can reject some tiny inputs.
		c.logger.Warn("webp encode failed, falling back to png",
			slog.Int("width", w),
			slog.Int("height", h),
			slog.Any("error", err),
		)
		buf.Reset()
		if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
			return Blob{}, fmt.Errorf("encode png: %w", err)
		}
		return NewBlob(buf.Bytes(), ExtPNG), nil
	}

	return NewBlob(buf.Bytes(), ExtWebP), nil
}

// FitWithin scales (w, h) up or down so that it fits inside (maxW, maxH)
// touching at least one edge, preserving the aspect ratio.
func FitWithin(w, h, maxW, maxH int) (int, int, error) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d into %dx%d", ErrInvalidDimensions, w, h, maxW, maxH)
	}
	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(int(math.Round(float64(w)*ratio)), 1)
	nh := max(int(math.Round(float64(h)*ratio)), 1)
	return min(nw, maxW), min(nh, maxH), nil
}
