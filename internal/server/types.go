// Package server provides the HTTP API of the sticker converter.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// ConvertRequest is the HTTP request body for converting a stored object.
type ConvertRequest struct {
	// Key identifies the input in the configured object source.
	Key string `json:"key" validate:"required,max=1024"`
	// Operation is one of image, video or sticker.
	Operation string `json:"operation" validate:"required,oneof=image video sticker"`
	// StickerFormat is required for stickers: static, animated or video.
	StickerFormat string `json:"sticker_format" validate:"omitempty,oneof=static animated video"`
	// BaseName is the output file name without extension.
	BaseName string `json:"base_name" validate:"max=255"`
	// Caption is echoed on every output.
	Caption string `json:"caption" validate:"max=1024"`
}

// OutputFile is one converted output.
type OutputFile struct {
	// Name is the output file name including extension.
	Name string `json:"name"`
	// MimeType is sniffed from the content.
	MimeType string `json:"mime_type"`
	// Size is the output size in bytes.
	Size int `json:"size"`
	// Raw is true when the input was passed through without re-encoding.
	Raw bool `json:"raw"`
	// Caption is the caption attached to the output, if any.
	Caption string `json:"caption,omitempty"`
	// DataBase64 is the base64-encoded output content.
	DataBase64 string `json:"data_base64"`
}

// ConvertResponse is the HTTP response after a successful conversion.
type ConvertResponse struct {
	// Outputs lists the converted files in delivery order.
	Outputs []OutputFile `json:"outputs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
