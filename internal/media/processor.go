// Package media converts user media into sticker-ready outputs: in-process
// image resizing and encoding, and ffmpeg/lottie driven transcoding for
// video-like inputs.
package media

import "context"

// ImageProcessor converts raw image bytes into a sticker-sized Blob.
type ImageProcessor interface {
	// Convert decodes data (format detected from content), fits it within
	// 512x512 and encodes it as lossless webp, or png if webp encoding fails.
	// Returns ErrNotAnImage if data cannot be decoded.
	Convert(data []byte) (Blob, error)
}

// Transcoder converts video-like media through external processes.
type Transcoder interface {
	// ConvertClip transcodes the file at path into a 3 second, 512x512 bounded
	// VP9 webm. A lossless pass is tried first and replaced by a single lossy
	// pass when its output is over the size ceiling.
	ConvertClip(ctx context.Context, path string) (Blob, error)

	// AnimationToGIF renders a vector-animated sticker file into a gif.
	AnimationToGIF(ctx context.Context, path string) (Blob, error)

	// VideoToGIF re-encodes video sticker bytes into a gif.
	VideoToGIF(ctx context.Context, data []byte) (Blob, error)
}
