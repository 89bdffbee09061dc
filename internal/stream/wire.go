package stream

import (
	"io"
	"math"
	"strconv"
)

// chunkHeaderPrefix is the fixed part of every per-frame header. Only the
// decimal length and the terminating blank line vary.
const chunkHeaderPrefix = "Content-Type: image/jpeg\r\nContent-Length: "

// DefaultBoundary is the multipart boundary token used when none is
// configured.
const DefaultBoundary = "frame"

// ContentType returns the response content type announcing the boundary.
func ContentType(boundary string) string {
	return "multipart/x-mixed-replace;boundary=" + boundary
}

// ChunkWriter frames JPEG payloads onto a multipart/x-mixed-replace stream.
// Each chunk is boundary marker, header, payload, in that order; the stream
// never sends a terminating boundary.
type ChunkWriter struct {
	w        io.Writer
	boundary []byte
	header   []byte
}

// NewChunkWriter creates a writer emitting chunks delimited by boundary.
// The header scratch buffer is sized from the widest possible decimal
// rendering of a payload length rather than an assumed frame-size ceiling,
// so it can never truncate.
func NewChunkWriter(w io.Writer, boundary string) *ChunkWriter {
	if boundary == "" {
		boundary = DefaultBoundary
	}
	maxDigits := len(strconv.Itoa(math.MaxInt))
	return &ChunkWriter{
		w:        w,
		boundary: []byte("\r\n--" + boundary + "\r\n"),
		header:   make([]byte, 0, len(chunkHeaderPrefix)+maxDigits+len("\r\n\r\n")),
	}
}

// WriteChunk emits one frame unit as three ordered writes: boundary,
// header with the exact payload length, payload. The first failed write
// aborts the remaining writes for this frame.
func (cw *ChunkWriter) WriteChunk(payload []byte) error {
	if _, err := cw.w.Write(cw.boundary); err != nil {
		return err
	}

	hdr := cw.header[:0]
	hdr = append(hdr, chunkHeaderPrefix...)
	hdr = strconv.AppendInt(hdr, int64(len(payload)), 10)
	hdr = append(hdr, "\r\n\r\n"...)
	if _, err := cw.w.Write(hdr); err != nil {
		return err
	}

	if _, err := cw.w.Write(payload); err != nil {
		return err
	}
	return nil
}
