// Package camera provides the frame source abstraction: a lease-tracked
// buffer pool in front of a capture driver. Exactly one Release must follow
// every successful Acquire, on every exit path; the pool makes buffer
// exhaustion visible instead of silent.
package camera

import "fmt"

// PixelFormat identifies the encoding of a frame's payload.
type PixelFormat uint8

const (
	// FormatJPEG is the target wire encoding; frames already in this
	// format are passed through without re-encoding.
	FormatJPEG PixelFormat = iota
	FormatRGB565
	FormatYUV422
	FormatGrayscale
)

// String returns the canonical lowercase name of the format.
func (f PixelFormat) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatRGB565:
		return "rgb565"
	case FormatYUV422:
		return "yuv422"
	case FormatGrayscale:
		return "grayscale"
	default:
		return "unknown"
	}
}

// ParseFormat converts a config string to a PixelFormat.
func ParseFormat(s string) (PixelFormat, error) {
	switch s {
	case "jpeg":
		return FormatJPEG, nil
	case "rgb565":
		return FormatRGB565, nil
	case "yuv422":
		return FormatYUV422, nil
	case "grayscale", "gray":
		return FormatGrayscale, nil
	default:
		return 0, fmt.Errorf("unknown pixel format %q", s)
	}
}

// Ownership tags who is responsible for a frame's payload.
type Ownership uint8

const (
	// OwnerPool marks a frame leased from the source's buffer pool; it
	// must be returned with Release.
	OwnerPool Ownership = iota
	// OwnerCaller marks a freshly allocated frame owned by the caller
	// (e.g. the output of a format conversion). Release is a bookkeeping
	// no-op for these.
	OwnerCaller
)

// Frame is a single captured picture. The payload is immutable once
// produced.
type Frame struct {
	Format PixelFormat
	Width  int
	Height int
	Data   []byte

	owner Ownership
	slot  int
}

// NewCallerFrame wraps caller-owned bytes in a Frame. Used for conversion
// outputs that never touch the pool.
func NewCallerFrame(format PixelFormat, width, height int, data []byte) *Frame {
	return &Frame{
		Format: format,
		Width:  width,
		Height: height,
		Data:   data,
		owner:  OwnerCaller,
	}
}

// Owner reports who owns the frame's payload.
func (f *Frame) Owner() Ownership {
	return f.owner
}

// Len returns the payload length in bytes.
func (f *Frame) Len() int {
	return len(f.Data)
}
