package convert

import (
	"errors"
	"fmt"
)

// Kind is the top-level conversion requested for an input.
type Kind string

const (
	// KindImage converts a still image to a 512px webp (or png).
	KindImage Kind = "image"
	// KindVideo converts a clip or gif to a 3 second VP9 webm.
	KindVideo Kind = "video"
	// KindSticker converts an existing sticker, see StickerFormat.
	KindSticker Kind = "sticker"
)

// IsValid returns true if the kind is known.
func (k Kind) IsValid() bool {
	return k == KindImage || k == KindVideo || k == KindSticker
}

// StickerFormat is the sub-format of a sticker input.
type StickerFormat string

const (
	// StickerStatic is a raster webp sticker.
	StickerStatic StickerFormat = "static"
	// StickerAnimated is a vector-animated (lottie) sticker.
	StickerAnimated StickerFormat = "animated"
	// StickerVideo is a webm video sticker.
	StickerVideo StickerFormat = "video"
)

// IsValid returns true if the format is known.
func (f StickerFormat) IsValid() bool {
	return f == StickerStatic || f == StickerAnimated || f == StickerVideo
}

// ErrInvalidOperation is returned for an unknown operation or sticker format.
var ErrInvalidOperation = errors.New("invalid operation")

// Operation selects exactly one conversion path. The zero value is invalid.
type Operation struct {
	kind   Kind
	format StickerFormat
}

// ImageOp returns the image operation.
func ImageOp() Operation { return Operation{kind: KindImage} }

// VideoOp returns the video operation.
func VideoOp() Operation { return Operation{kind: KindVideo} }

// StickerOp returns the sticker operation for the given format.
func StickerOp(format StickerFormat) Operation {
	return Operation{kind: KindSticker, format: format}
}

// ParseOperation builds an Operation from its textual form. format is only
// consulted for stickers.
func ParseOperation(kind, format string) (Operation, error) {
	var op Operation
	switch Kind(kind) {
	case KindImage:
		op = ImageOp()
	case KindVideo:
		op = VideoOp()
	case KindSticker:
		op = StickerOp(StickerFormat(format))
	}
	if !op.IsValid() {
		return Operation{}, fmt.Errorf("%w: %q %q", ErrInvalidOperation, kind, format)
	}
	return op, nil
}

// Kind returns the operation kind.
func (o Operation) Kind() Kind { return o.kind }

// Format returns the sticker format; empty unless Kind is KindSticker.
func (o Operation) Format() StickerFormat { return o.format }

// IsValid returns true if the operation names a known conversion path.
func (o Operation) IsValid() bool {
	switch o.kind {
	case KindImage, KindVideo:
		return o.format == ""
	case KindSticker:
		return o.format.IsValid()
	default:
		return false
	}
}

func (o Operation) String() string {
	if o.kind == KindSticker {
		return string(o.kind) + "/" + string(o.format)
	}
	return string(o.kind)
}
