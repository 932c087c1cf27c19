package media

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// Ext is the output extension tag of a Blob.
type Ext string

// Known output extensions.
const (
	ExtWebP Ext = "webp"
	ExtPNG  Ext = "png"
	ExtWebM Ext = "webm"
	ExtGIF  Ext = "gif"
)

// defaultBaseName is used when no base name is supplied for an output file.
const defaultBaseName = "out"

// Valid reports whether e is one of the known extension tags.
func (e Ext) Valid() bool {
	switch e {
	case ExtWebP, ExtPNG, ExtWebM, ExtGIF:
		return true
	default:
		return false
	}
}

// Blob pairs converted bytes with the extension of their container.
// A Blob is never mutated after creation.
type Blob struct {
	data []byte
	ext  Ext
}

// NewBlob creates a Blob. It panics if ext is not a known extension tag.
func NewBlob(data []byte, ext Ext) Blob {
	if !ext.Valid() {
		panic(fmt.Sprintf("media: unknown blob extension %q", ext))
	}
	return Blob{data: data, ext: ext}
}

// Bytes returns the blob contents.
func (b Blob) Bytes() []byte { return b.data }

// Ext returns the extension tag.
func (b Blob) Ext() Ext { return b.ext }

// Len returns the size of the blob in bytes.
func (b Blob) Len() int { return len(b.data) }

// Attachment is a named file ready to hand to a transport.
type Attachment struct {
	Name string
	Data []byte
}

// Reader returns a fresh reader over the attachment contents.
func (a Attachment) Reader() io.Reader {
	return bytes.NewReader(a.Data)
}

// Named composes "<base>.<ext>" (or "out.<ext>" when base is empty) and returns
// the blob as an attachment with that name.
func (b Blob) Named(base string) Attachment {
	name := sanitizeBaseName(base)
	if name == "" {
		name = defaultBaseName
	}
	name += "." + string(b.ext)
	return Attachment{Name: name, Data: b.data}
}

// sanitizeBaseName strips any directory components so a user supplied name can
// only ever select a file name.
func sanitizeBaseName(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	base = filepath.Base(path.Base(strings.ReplaceAll(base, "\\", "/")))
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}
