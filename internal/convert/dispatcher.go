// Package convert routes a single media request through the right converter
// and hands the outputs to a Deliverer.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maauso/stickerize/internal/media"
	"github.com/maauso/stickerize/internal/storage"
)

// DefaultMaxInputBytes is the largest accepted input.
const DefaultMaxInputBytes int64 = 10 << 20

// Request is one conversion request.
type Request struct {
	// FileID identifies the input for the Source.
	FileID string
	// DeclaredSize is the size announced by the front end before any fetch.
	DeclaredSize int64
	// Op selects the conversion path.
	Op Operation
	// BaseName is a hint for the output file name. Directory parts are ignored.
	BaseName string
	// Caption is attached to every delivery.
	Caption string
}

// Source resolves and downloads inputs.
type Source interface {
	FetchFileRef(ctx context.Context, id string) (storage.FileRef, error)
	DownloadToMemory(ctx context.Context, ref storage.FileRef) ([]byte, error)
	DownloadTo(ctx context.Context, ref storage.FileRef, w io.Writer) error
}

// Delivery is one output handed back to the caller.
type Delivery struct {
	File    media.Attachment
	Caption string
	// Raw marks outputs passed through without re-encoding by us; transports
	// should not second-guess their content type.
	Raw bool
}

// Deliverer sends outputs back to the caller. Implementations must be safe
// for concurrent use; video stickers deliver two outputs at once.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// TempFiles allocates temporary files for inputs that converters read by path.
type TempFiles interface {
	Acquire(ctx context.Context, pattern string) (*storage.TempFile, error)
}

// Dispatcher runs requests. It holds no per-request state and is safe for
// concurrent use.
type Dispatcher struct {
	images     media.ImageProcessor
	transcoder media.Transcoder
	temp       TempFiles
	logger     *slog.Logger
	// maxInputBytes bounds both the declared and the fetched size.
	maxInputBytes int64
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(images media.ImageProcessor, transcoder media.Transcoder, temp TempFiles, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		images:        images,
		transcoder:    transcoder,
		temp:          temp,
		logger:        logger,
		maxInputBytes: DefaultMaxInputBytes,
	}
}

// SetMaxInputBytes configures the input size limit.
func (d *Dispatcher) SetMaxInputBytes(n int64) {
	if n > 0 {
		d.maxInputBytes = n
	}
}

// MaxInputBytes returns the input size limit.
func (d *Dispatcher) MaxInputBytes() int64 {
	return d.maxInputBytes
}

// Handle runs req to completion. The returned error, if any, is an *Error.
// A request id set with WithRequestID is reused in logs and temp file names.
func (d *Dispatcher) Handle(ctx context.Context, src Source, dst Deliverer, req Request) error {
	id := RequestIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	r := &run{
		Dispatcher: d,
		id:         id,
		src:        src,
		dst:        dst,
		req:        req,
	}
	r.logger = d.logger.With(
		slog.String("request_id", r.id),
		slog.String("operation", req.Op.String()),
		slog.String("file_id", req.FileID),
	)

	start := time.Now()
	if err := r.handle(ctx); err != nil {
		cerr := Classify(err)
		r.logger.Error("request failed",
			slog.String("code", string(cerr.Code)),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return cerr
	}

	r.logger.Info("request completed", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// run is the state of a single request.
type run struct {
	*Dispatcher
	id     string
	src    Source
	dst    Deliverer
	req    Request
	logger *slog.Logger
}

func (r *run) handle(ctx context.Context) error {
	if !r.req.Op.IsValid() {
		return &Error{Code: CodeInternal, Err: fmt.Errorf("%w: %s", ErrInvalidOperation, r.req.Op)}
	}

	if r.req.DeclaredSize > r.maxInputBytes {
		return &Error{
			Code:    CodeTooLarge,
			Message: MsgTooLarge,
			Err:     fmt.Errorf("declared size %d exceeds %d", r.req.DeclaredSize, r.maxInputBytes),
		}
	}

	ref, err := r.src.FetchFileRef(ctx, r.req.FileID)
	if err != nil {
		return fmt.Errorf("fetch file ref: %w", err)
	}
	if ref.Size > r.maxInputBytes {
		return &Error{
			Code:    CodeTooLarge,
			Message: MsgFileTooBig,
			Err:     fmt.Errorf("file size %d exceeds %d", ref.Size, r.maxInputBytes),
		}
	}

	r.logger.Debug("fetched file ref",
		slog.String("path", ref.Path),
		slog.Int64("size", ref.Size),
	)

	switch r.req.Op.Kind() {
	case KindImage:
		return r.image(ctx, ref)
	case KindVideo:
		return r.video(ctx, ref)
	case KindSticker:
		switch r.req.Op.Format() {
		case StickerStatic:
			return r.staticSticker(ctx, ref)
		case StickerAnimated:
			return r.animatedSticker(ctx, ref)
		case StickerVideo:
			return r.videoSticker(ctx, ref)
		}
	}
	return &Error{Code: CodeInternal, Err: fmt.Errorf("%w: %s", ErrInvalidOperation, r.req.Op)}
}

func (r *run) image(ctx context.Context, ref storage.FileRef) error {
	data, err := r.download(ctx, ref)
	if err != nil {
		return err
	}
	blob, err := r.images.Convert(data)
	if err != nil {
		return err
	}
	return r.deliver(ctx, blob, false)
}

func (r *run) video(ctx context.Context, ref storage.FileRef) error {
	tmp, err := r.downloadToTemp(ctx, ref, "clip_")
	if err != nil {
		return err
	}
	defer r.removeTemp(tmp)

	blob, err := r.transcoder.ConvertClip(ctx, tmp.Path())
	if err != nil {
		return err
	}
	return r.deliver(ctx, blob, false)
}

func (r *run) staticSticker(ctx context.Context, ref storage.FileRef) error {
	data, err := r.download(ctx, ref)
	if err != nil {
		return err
	}
	return r.deliver(ctx, media.NewBlob(data, media.ExtWebP), true)
}

func (r *run) animatedSticker(ctx context.Context, ref storage.FileRef) error {
	tmp, err := r.downloadToTemp(ctx, ref, "animated_")
	if err != nil {
		return err
	}
	defer r.removeTemp(tmp)

	blob, err := r.transcoder.AnimationToGIF(ctx, tmp.Path())
	if err != nil {
		return err
	}
	return r.deliver(ctx, blob, true)
}

// videoSticker delivers the sticker as is and as a gif, concurrently. Both
// paths always run to completion. The as-is path takes precedence: its error
// is returned first (joined with the gif path's error when both fail).
func (r *run) videoSticker(ctx context.Context, ref storage.FileRef) error {
	data, err := r.download(ctx, ref)
	if err != nil {
		return err
	}

	var (
		wg      sync.WaitGroup
		webmErr error
		gifErr  error
	)
	wg.Go(func() {
		webmErr = r.deliver(ctx, media.NewBlob(data, media.ExtWebM), true)
	})
	wg.Go(func() {
		blob, err := r.transcoder.VideoToGIF(ctx, data)
		if err != nil {
			gifErr = err
			return
		}
		gifErr = r.deliver(ctx, blob, true)
	})
	wg.Wait()

	if gifErr != nil {
		r.logger.Warn("gif path failed",
			slog.Bool("webm_ok", webmErr == nil),
			slog.Any("error", gifErr),
		)
	}

	switch {
	case webmErr != nil && gifErr != nil:
		return errors.Join(webmErr, gifErr)
	case webmErr != nil:
		return webmErr
	default:
		return gifErr
	}
}

func (r *run) download(ctx context.Context, ref storage.FileRef) ([]byte, error) {
	data, err := r.src.DownloadToMemory(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return data, nil
}

// downloadToTemp downloads ref into a fresh temp file with its write side
// closed. The caller removes it.
func (r *run) downloadToTemp(ctx context.Context, ref storage.FileRef, prefix string) (*storage.TempFile, error) {
	tmp, err := r.temp.Acquire(ctx, prefix+r.id+"_*")
	if err != nil {
		return nil, fmt.Errorf("acquire temp file: %w", err)
	}
	if err := r.src.DownloadTo(ctx, ref, tmp); err != nil {
		r.removeTemp(tmp)
		return nil, fmt.Errorf("download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		r.removeTemp(tmp)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return tmp, nil
}

func (r *run) removeTemp(tmp *storage.TempFile) {
	if err := tmp.Remove(); err != nil {
		r.logger.Warn("failed to remove temp file",
			slog.String("path", tmp.Path()),
			slog.Any("error", err),
		)
	}
}

func (r *run) deliver(ctx context.Context, blob media.Blob, raw bool) error {
	d := Delivery{
		File:    blob.Named(r.req.BaseName),
		Caption: r.req.Caption,
		Raw:     raw,
	}
	r.logger.Info("sending output",
		slog.String("name", d.File.Name),
		slog.Int("bytes", blob.Len()),
		slog.Bool("raw", raw),
	)
	if err := r.dst.Deliver(ctx, d); err != nil {
		return &Error{
			Code:    CodeDelivery,
			Message: MsgDeliveryFailed,
			Err:     fmt.Errorf("deliver %s: %w", d.File.Name, err),
		}
	}
	return nil
}
