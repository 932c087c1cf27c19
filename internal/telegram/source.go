package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mymmrac/telego"

	"github.com/maauso/stickerize/internal/convert"
	"github.com/maauso/stickerize/internal/storage"
)

// Static errors for file access.
var (
	// ErrNoFilePath is returned when Telegram resolves a file without a download path.
	ErrNoFilePath = errors.New("telegram: file has no download path")
	// ErrDownload is returned when the file server answers with a non-200 status.
	ErrDownload = errors.New("telegram: download failed")
)

// fileAPI is the part of the Bot API used to resolve and locate files.
type fileAPI interface {
	GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error)
	FileDownloadURL(filepath string) string
}

// Compile-time check that Source implements convert.Source.
var _ convert.Source = (*Source)(nil)

// Source resolves Telegram file ids and downloads them from the file server.
type Source struct {
	api    fileAPI
	client *http.Client
	logger *slog.Logger
}

// NewSource creates a new Source. A nil client uses http.DefaultClient.
func NewSource(api fileAPI, client *http.Client, logger *slog.Logger) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{api: api, client: client, logger: logger}
}

// FetchFileRef resolves a file id to its download path and size.
func (s *Source) FetchFileRef(ctx context.Context, id string) (storage.FileRef, error) {
	file, err := s.api.GetFile(ctx, &telego.GetFileParams{FileID: id})
	if err != nil {
		return storage.FileRef{}, fmt.Errorf("get file %s: %w", id, err)
	}
	if file.FilePath == "" {
		return storage.FileRef{}, fmt.Errorf("%w: %s", ErrNoFilePath, id)
	}
	return storage.FileRef{Path: file.FilePath, Size: int64(file.FileSize)}, nil
}

// DownloadToMemory downloads the whole file into memory.
func (s *Source) DownloadToMemory(ctx context.Context, ref storage.FileRef) ([]byte, error) {
	var buf bytes.Buffer
	if ref.Size > 0 {
		buf.Grow(int(ref.Size))
	}
	if err := s.DownloadTo(ctx, ref, &buf); err != nil {
		return nil, err
	}
	s.logger.Info("downloaded to memory", slog.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// DownloadTo streams the file into w.
func (s *Source) DownloadTo(ctx context.Context, ref storage.FileRef, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.api.FileDownloadURL(ref.Path), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", ref.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: %s", ErrDownload, ref.Path, resp.Status)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fmt.Errorf("download %s: %w", ref.Path, err)
	}
	s.logger.Debug("downloaded file",
		slog.String("path", ref.Path),
		slog.Int64("bytes", n),
		slog.Int64("declared_bytes", ref.Size),
	)
	return nil
}
