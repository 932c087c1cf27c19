package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/stickerize/internal/convert"
	"github.com/maauso/stickerize/internal/storage"
)

// maxBodyBytes bounds the JSON request body.
const maxBodyBytes = 64 << 10

// ConvertHandler runs one conversion request.
type ConvertHandler interface {
	Handle(ctx context.Context, src convert.Source, dst convert.Deliverer, req convert.Request) error
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	converter ConvertHandler
	source    convert.Source
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance. source may be nil, in which
// case POST /convert answers 503.
func NewHandlers(converter ConvertHandler, source convert.Source, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		converter: converter,
		source:    source,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Convert handles POST /convert requests.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeError(w, http.StatusServiceUnavailable, "no object source configured", "SOURCE_UNAVAILABLE")
		return
	}

	var req ConvertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	op, err := convert.ParseOperation(req.Operation, req.StickerFormat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	out := &collector{}
	err = h.converter.Handle(r.Context(), h.source, out, convert.Request{
		FileID:   req.Key,
		Op:       op,
		BaseName: req.BaseName,
		Caption:  req.Caption,
	})
	if err != nil {
		status, code := errorStatus(err)
		writeError(w, status, convert.UserMessage(err), code)
		return
	}

	writeJSON(w, http.StatusOK, ConvertResponse{Outputs: out.files()})
}

// errorStatus maps a conversion error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound, "OBJECT_NOT_FOUND"
	case errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest, "INVALID_KEY"
	}

	cerr := convert.Classify(err)
	code := strings.ToUpper(string(cerr.Code))
	switch cerr.Code {
	case convert.CodeTooLarge:
		return http.StatusRequestEntityTooLarge, code
	case convert.CodeNotAnImage:
		return http.StatusUnprocessableEntity, code
	case convert.CodeTimeout:
		return http.StatusGatewayTimeout, code
	case convert.CodeTranscodeFailed, convert.CodeDelivery, convert.CodeInternal:
		return http.StatusInternalServerError, code
	default:
		return http.StatusInternalServerError, code
	}
}

// collector is a convert.Deliverer that keeps outputs for the response body.
type collector struct {
	mu      sync.Mutex
	outputs []OutputFile
}

func (c *collector) Deliver(_ context.Context, d convert.Delivery) error {
	f := OutputFile{
		Name:       d.File.Name,
		MimeType:   mimetype.Detect(d.File.Data).String(),
		Size:       len(d.File.Data),
		Raw:        d.Raw,
		Caption:    d.Caption,
		DataBase64: base64.StdEncoding.EncodeToString(d.File.Data),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs = append(c.outputs, f)
	return nil
}

func (c *collector) files() []OutputFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]OutputFile(nil), c.outputs...)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
