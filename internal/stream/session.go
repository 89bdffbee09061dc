// Package stream drives one long-lived MJPEG client connection: acquire a
// frame, guarantee JPEG, frame it onto the wire, release the buffer,
// repeat until the transport or the camera gives out.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/tomyangzx/ESP32-CAM/internal/camera"
	"github.com/tomyangzx/ESP32-CAM/internal/events"
)

// FrameSource leases frames. Release must be safe to call for any frame
// returned by Acquire or produced downstream from one.
type FrameSource interface {
	Acquire(ctx context.Context) (*camera.Frame, error)
	Release(*camera.Frame)
}

// FrameEncoder guarantees JPEG output. Implementations release the input
// frame themselves when they replace it with a converted one.
type FrameEncoder interface {
	EnsureJPEG(*camera.Frame) (*camera.Frame, error)
}

// Metrics receives per-frame observability side effects. Implementations
// must be non-blocking; a nil Metrics disables instrumentation.
type Metrics interface {
	ObserveFrame(bytes int)
	SetFPS(fps float64)
}

// Config tunes the session loop.
type Config struct {
	// Boundary is the multipart boundary token.
	Boundary string
	// FrameInterval is the minimum inter-frame delay capping the
	// outgoing rate. Zero disables pacing.
	FrameInterval time.Duration
	// ReportEvery sets the throughput reporting cadence in frames.
	ReportEvery int
}

// DefaultConfig returns the stock session configuration: ~30 fps pacing,
// throughput report every 100 frames.
func DefaultConfig() Config {
	return Config{
		Boundary:      DefaultBoundary,
		FrameInterval: 33 * time.Millisecond,
		ReportEvery:   100,
	}
}

// Params collects session dependencies. Source, Encoder, Writer and Logger
// are required; Bus and Metrics are optional.
type Params struct {
	Source     FrameSource
	Encoder    FrameEncoder
	Writer     io.Writer
	Config     Config
	Logger     *slog.Logger
	Bus        *events.Bus
	Metrics    Metrics
	RemoteAddr string
}

// Session owns the state of a single streaming connection. It is created
// per request, transitions once from streaming to closed, and is never
// reused.
type Session struct {
	src     FrameSource
	enc     FrameEncoder
	cw      *ChunkWriter
	cfg     Config
	logger  *slog.Logger
	bus     *events.Bus
	metrics Metrics
	remote  string

	frames       uint64
	windowStart  time.Time
	windowFrames uint64

	now func() time.Time
}

// New creates a session. It performs no I/O until Run.
func New(p Params) *Session {
	return &Session{
		src:     p.Source,
		enc:     p.Encoder,
		cw:      NewChunkWriter(p.Writer, p.Config.Boundary),
		cfg:     p.Config,
		logger:  p.Logger,
		bus:     p.Bus,
		metrics: p.Metrics,
		remote:  p.RemoteAddr,
		now:     time.Now,
	}
}

// Frames returns the number of frames fully delivered so far.
func (s *Session) Frames() uint64 {
	return s.frames
}

// Run drives the streaming loop until the camera, the encoder or the
// transport ends it. The returned error is always a *SessionError carrying
// the termination code; transport failure is the expected way out.
func (s *Session) Run(ctx context.Context) error {
	s.windowStart = s.now()

	for {
		frame, err := s.src.Acquire(ctx)
		if err != nil {
			code := CodeCaptureFailed
			if errors.Is(err, camera.ErrPoolExhausted) {
				code = CodeSourceExhausted
			}
			s.publishCaptureError(err)
			return &SessionError{Code: code, Err: err}
		}

		// The encoder releases the original lease itself when it
		// converts, so exactly one release happens per acquisition
		// on every path below.
		frame, err = s.enc.EnsureJPEG(frame)
		if err != nil {
			return &SessionError{Code: CodeEncodeFailed, Err: err}
		}

		payloadLen := frame.Len()
		werr := s.cw.WriteChunk(frame.Data)
		s.src.Release(frame)
		if werr != nil {
			return &SessionError{Code: CodeTransportFailed, Err: werr}
		}

		s.frames++
		s.windowFrames++
		if s.metrics != nil {
			s.metrics.ObserveFrame(payloadLen)
		}
		if s.cfg.ReportEvery > 0 && s.frames%uint64(s.cfg.ReportEvery) == 0 {
			s.reportThroughput()
		}

		if err := s.pace(ctx); err != nil {
			return &SessionError{Code: CodeTransportFailed, Err: err}
		}
	}
}

// pace applies the minimum inter-frame delay. It doubles as the session's
// cancellation point: an external teardown ends the loop at this iteration
// boundary.
func (s *Session) pace(ctx context.Context) error {
	if s.cfg.FrameInterval <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := time.NewTimer(s.cfg.FrameInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reportThroughput computes frames-per-second over the rolling window.
// Pure side effect; it never blocks or fails the loop.
func (s *Session) reportThroughput() {
	elapsed := s.now().Sub(s.windowStart)
	if elapsed <= 0 {
		return
	}
	fps := float64(s.windowFrames) / elapsed.Seconds()

	s.logger.Info("Stream throughput", "fps", fps, "frames", s.frames, "remote", s.remote)
	if s.metrics != nil {
		s.metrics.SetFPS(fps)
	}
	if s.bus != nil {
		s.bus.Publish(events.ThroughputEvent{
			RemoteAddr: s.remote,
			FPS:        fps,
			Frames:     s.windowFrames,
			Timestamp:  s.now().UTC().Format(time.RFC3339),
		})
	}

	s.windowStart = s.now()
	s.windowFrames = 0
}

func (s *Session) publishCaptureError(err error) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.CaptureErrorEvent{
		Error:     err.Error(),
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}
