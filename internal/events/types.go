package events

// Event type constants for kelindar/event.
const (
	TypeSessionStarted uint32 = iota + 1
	TypeSessionEnded
	TypeThroughput
	TypeCaptureError
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStartedEvent is published when a stream client connects and a
// streaming session begins.
type SessionStartedEvent struct {
	RemoteAddr string `json:"remote_addr" example:"192.168.1.50:51234" doc:"Client address"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStartedEvent.
func (e SessionStartedEvent) Type() uint32 { return TypeSessionStarted }

// SessionEndedEvent is published when a streaming session terminates.
type SessionEndedEvent struct {
	RemoteAddr string `json:"remote_addr" example:"192.168.1.50:51234" doc:"Client address"`
	Reason     string `json:"reason" example:"transport_failed" doc:"Termination code"`
	Frames     uint64 `json:"frames" example:"1480" doc:"Frames delivered during the session"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:35:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionEndedEvent.
func (e SessionEndedEvent) Type() uint32 { return TypeSessionEnded }

// ThroughputEvent carries the periodic frames-per-second measurement of an
// active session.
type ThroughputEvent struct {
	RemoteAddr string  `json:"remote_addr" doc:"Client address"`
	FPS        float64 `json:"fps" example:"29.7" doc:"Measured frames per second"`
	Frames     uint64  `json:"frames" example:"100" doc:"Frames in the measurement window"`
	Timestamp  string  `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ThroughputEvent.
func (e ThroughputEvent) Type() uint32 { return TypeThroughput }

// CaptureErrorEvent is published when the camera fails to produce a frame.
type CaptureErrorEvent struct {
	Error     string `json:"error" example:"frame buffer pool exhausted" doc:"Error description"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }
