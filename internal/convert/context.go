package convert

import "context"

type requestIDKey struct{}

// maxRequestIDLen bounds caller supplied request ids.
const maxRequestIDLen = 64

// WithRequestID returns a context carrying id. Handle uses it as the request
// id when it is valid.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored in ctx, or "" when there
// is none or it is not valid.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	if !ValidRequestID(id) {
		return ""
	}
	return id
}

// ValidRequestID reports whether id is non-empty, at most 64 bytes and made of
// letters, digits, '-', '_' and '.'. Request ids end up in temp file names.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen || id == "." || id == ".." {
		return false
	}
	for _, c := range []byte(id) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
