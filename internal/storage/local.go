package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Compile-time check that LocalSource implements ObjectSource.
var _ ObjectSource = (*LocalSource)(nil)

// LocalSource serves media objects from a directory on local disk.
// Keys are slash-separated paths relative to the root and may not escape it.
type LocalSource struct {
	root string
}

// NewLocalSource creates a LocalSource rooted at root.
func NewLocalSource(root string) (*LocalSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", abs)
	}
	return &LocalSource{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *LocalSource) Root() string {
	return s.root
}

// FetchFileRef stats the object and reports its size.
func (s *LocalSource) FetchFileRef(ctx context.Context, key string) (FileRef, error) {
	select {
	case <-ctx.Done():
		return FileRef{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	p, err := s.resolve(key)
	if err != nil {
		return FileRef{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileRef{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return FileRef{}, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.IsDir() {
		return FileRef{}, fmt.Errorf("%w: %s is a directory", ErrInvalidKey, key)
	}
	return FileRef{Path: key, Size: info.Size()}, nil
}

// DownloadToMemory reads the object into memory.
func (s *LocalSource) DownloadToMemory(ctx context.Context, ref FileRef) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	p, err := s.resolve(ref.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p) // #nosec G304 - path is confined to the source root
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref.Path, err)
	}
	return data, nil
}

// DownloadTo copies the object into w.
func (s *LocalSource) DownloadTo(ctx context.Context, ref FileRef, w io.Writer) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	p, err := s.resolve(ref.Path)
	if err != nil {
		return err
	}
	f, err := os.Open(p) // #nosec G304 - path is confined to the source root
	if err != nil {
		return fmt.Errorf("open %s: %w", ref.Path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", ref.Path, err)
	}
	return nil
}

func (s *LocalSource) resolve(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if key == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, rel), nil
}
