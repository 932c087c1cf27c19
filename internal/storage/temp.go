package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// TempDir allocates uniquely named temporary files under a single directory.
type TempDir struct {
	dir string
}

// NewTempDir creates a TempDir rooted at dir.
// If dir is empty, a "stickerize" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewTempDir(dir string) (*TempDir, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "stickerize")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &TempDir{dir: dir}, nil
}

// Dir returns the temporary directory path.
func (d *TempDir) Dir() string {
	return d.dir
}

// Acquire creates a new empty file whose name is built from pattern (see
// os.CreateTemp). The caller owns the write handle and must call Remove once
// the file is no longer needed, on every exit path.
func (d *TempDir) Acquire(ctx context.Context, pattern string) (*TempFile, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(d.dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &TempFile{path: f.Name(), file: f}, nil
}

// Stage acquires a temp file, copies r into it and closes the write side.
// On failure the file is already removed.
func (d *TempDir) Stage(ctx context.Context, pattern string, r io.Reader) (*TempFile, error) {
	tmp, err := d.Acquire(ctx, pattern)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Remove()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = tmp.Remove()
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return tmp, nil
}

// TempFile is an exclusively owned temporary file.
type TempFile struct {
	path string

	mu      sync.Mutex
	file    *os.File
	removed bool
}

// Path returns the filesystem path. It stays valid until Remove.
func (t *TempFile) Path() string {
	return t.path
}

// Write writes to the open handle.
func (t *TempFile) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return 0, os.ErrClosed
	}
	return t.file.Write(p)
}

// Close closes the write handle. The file stays on disk until Remove.
// Closing twice is a no-op.
func (t *TempFile) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *TempFile) closeLocked() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// Remove closes the handle if still open and deletes the file. It is safe to
// call more than once.
func (t *TempFile) Remove() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.removed {
		return nil
	}
	t.removed = true

	closeErr := t.closeLocked()
	if err := os.Remove(t.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove temp file %s: %w", t.path, err)
	}
	return closeErr
}
