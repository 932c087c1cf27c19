// Package storage provides short-lived temporary files for conversions and the
// object sources (local disk, S3) that inbound media can be read from.
package storage

import (
	"context"
	"errors"
	"io"
)

// Static errors for storage operations.
var (
	// ErrObjectNotFound is returned when a referenced object does not exist.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrInvalidKey is returned when an object key is empty or escapes its root.
	ErrInvalidKey = errors.New("storage: invalid object key")
)

// FileRef is a resolved handle to remote or local media, carrying the size
// reported by the backend before any bytes are transferred.
type FileRef struct {
	// Path identifies the object within its backend.
	Path string
	// Size is the declared size in bytes.
	Size int64
}

// ObjectSource resolves and reads media objects by key.
type ObjectSource interface {
	// FetchFileRef resolves key to a FileRef without downloading it.
	FetchFileRef(ctx context.Context, key string) (FileRef, error)

	// DownloadToMemory reads the whole object into memory.
	DownloadToMemory(ctx context.Context, ref FileRef) ([]byte, error)

	// DownloadTo streams the object into w.
	DownloadTo(ctx context.Context, ref FileRef, w io.Writer) error
}
