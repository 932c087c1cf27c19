package media

import (
	"errors"
	"fmt"
)

// Static errors for media operations.
var (
	// ErrNotAnImage is returned when input bytes cannot be decoded as an image.
	ErrNotAnImage = errors.New("media: not an image")
	// ErrTranscodeFailed is returned when an external converter exits unsuccessfully.
	ErrTranscodeFailed = errors.New("media: transcode failed")
	// ErrTimeout is returned when an external process exceeds its deadline.
	ErrTimeout = errors.New("media: process timed out")
	// ErrSpawn is returned when an external process cannot be started.
	ErrSpawn = errors.New("media: process spawn failed")
	// ErrImageTooLarge is returned when an image header declares more pixels
	// than the decoder will allocate.
	ErrImageTooLarge = errors.New("media: image dimensions exceed the pixel limit")
	// ErrInvalidDimensions is returned when a resize bound is not positive.
	ErrInvalidDimensions = errors.New("media: invalid dimensions: width and height must be positive")
)

// ProcessError describes an unsuccessful external process run, including its
// stderr output.
type ProcessError struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s error: %v (exit code %d)\nargs: %v\nstderr: %s", e.Name, e.Err, e.ExitCode, e.Args, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
