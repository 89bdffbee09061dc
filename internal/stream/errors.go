package stream

import (
	"errors"
	"fmt"
)

// Code classifies why a streaming session terminated.
type Code string

const (
	// CodeCaptureFailed: the camera produced no frame. Ends the session;
	// the next connection starts fresh and may succeed.
	CodeCaptureFailed Code = "capture_failed"
	// CodeEncodeFailed: format conversion could not produce JPEG bytes.
	CodeEncodeFailed Code = "encode_failed"
	// CodeTransportFailed: a write to the client failed, including an
	// ordinary disconnect. This is the expected end-of-stream condition,
	// not an anomaly.
	CodeTransportFailed Code = "transport_failed"
	// CodeSourceExhausted: leases outstripped releases. Systemic; the
	// exactly-once release discipline exists to keep this unreachable.
	CodeSourceExhausted Code = "source_exhausted"
)

// SessionError wraps the cause that ended a session with its code.
type SessionError struct {
	Code Code
	Err  error
}

// Error implements error.
func (e *SessionError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// CodeOf extracts the session termination code from err, or empty string.
func CodeOf(err error) Code {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsExpectedClose reports whether err is the normal client-disconnect end
// of a stream rather than a device-side fault.
func IsExpectedClose(err error) bool {
	return CodeOf(err) == CodeTransportFailed
}
