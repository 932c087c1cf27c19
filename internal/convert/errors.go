package convert

import (
	"errors"
	"fmt"

	"github.com/maauso/stickerize/internal/media"
)

// Code classifies a failed request.
type Code string

const (
	// CodeInternal covers failures with no more specific class.
	CodeInternal Code = "internal"
	// CodeNotAnImage means the input could not be decoded as an image.
	CodeNotAnImage Code = "not_an_image"
	// CodeTranscodeFailed means an external converter exited unsuccessfully.
	CodeTranscodeFailed Code = "transcode_failed"
	// CodeTimeout means an external converter exceeded its deadline.
	CodeTimeout Code = "timeout"
	// CodeTooLarge means the input exceeded the size limit.
	CodeTooLarge Code = "too_large"
	// CodeDelivery means the output could not be handed back to the caller.
	CodeDelivery Code = "delivery"
)

// User-facing replies.
const (
	MsgNudge          = "Please send an image, GIF, or sticker."
	MsgHelp           = "Send an image, GIF, or sticker to convert."
	MsgTooLarge       = "File is too large."
	MsgFileTooBig     = "File too big"
	MsgNotAnImage     = "File is not an image."
	MsgDeliveryFailed = "Failed to send."
	MsgFallback       = "Something went wrong."
)

// Error is the terminal error of a request. Message, when set, is shown to the
// user verbatim; Err carries the internal cause for logs.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.UserMessage())
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the text to reply with.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Code {
	case CodeNotAnImage:
		return MsgNotAnImage
	case CodeTooLarge:
		return MsgTooLarge
	case CodeDelivery:
		return MsgDeliveryFailed
	case CodeTranscodeFailed, CodeTimeout, CodeInternal:
		return MsgFallback
	default:
		return MsgFallback
	}
}

// Classify maps err onto an *Error. An *Error anywhere in the chain decides
// the code and message; for joined errors the first one found wins.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		if error(e) == err {
			return e
		}
		return &Error{Code: e.Code, Message: e.Message, Err: err}
	}

	switch {
	case errors.Is(err, media.ErrNotAnImage):
		return &Error{Code: CodeNotAnImage, Message: MsgNotAnImage, Err: err}
	case errors.Is(err, media.ErrTimeout):
		return &Error{Code: CodeTimeout, Err: err}
	case errors.Is(err, media.ErrTranscodeFailed), errors.Is(err, media.ErrSpawn):
		return &Error{Code: CodeTranscodeFailed, Err: err}
	default:
		return &Error{Code: CodeInternal, Err: err}
	}
}

// UserMessage returns the reply text for any error, falling back to the
// generic message.
func UserMessage(err error) string {
	if e := Classify(err); e != nil {
		return e.UserMessage()
	}
	return MsgFallback
}
