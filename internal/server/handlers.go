package server

import (
	"net/http"
	"time"

	"github.com/tomyangzx/ESP32-CAM/internal/events"
	"github.com/tomyangzx/ESP32-CAM/internal/logging"
	"github.com/tomyangzx/ESP32-CAM/internal/metrics"
	"github.com/tomyangzx/ESP32-CAM/internal/status"
	"github.com/tomyangzx/ESP32-CAM/internal/stream"
)

// flushWriter pushes every write through to the client immediately so
// frames are not held back by response buffering.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err != nil {
		return n, err
	}
	fw.f.Flush()
	return n, nil
}

// handleStream serves the MJPEG stream. The connection stays open until
// the client disconnects or the camera fails.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	cfg := s.options.StreamConfig
	if cfg.Boundary == "" {
		cfg.Boundary = stream.DefaultBoundary
	}

	h := w.Header()
	h.Set("Content-Type", stream.ContentType(cfg.Boundary))
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	remote := r.RemoteAddr
	s.logger.Info("Stream client connected", "remote", remote)
	metrics.SessionStarted()
	s.publishSessionStarted(remote)

	sess := stream.New(stream.Params{
		Source:     s.options.Source,
		Encoder:    s.options.Encoder,
		Writer:     &flushWriter{w: w, f: flusher},
		Config:     cfg,
		Logger:     logging.GetLogger("stream"),
		Bus:        s.options.Bus,
		Metrics:    s.options.Metrics,
		RemoteAddr: remote,
	})

	err := sess.Run(r.Context())
	code := string(stream.CodeOf(err))
	if code == string(stream.CodeCaptureFailed) {
		metrics.CaptureError()
	}
	metrics.SessionEnded(code)
	s.publishSessionEnded(remote, code, sess.Frames())

	if stream.IsExpectedClose(err) {
		s.logger.Debug("Stream client disconnected",
			"remote", remote,
			"frames", sess.Frames())
		return
	}
	s.logger.Warn("Stream ended abnormally",
		"remote", remote,
		"reason", code,
		"error", err,
		"frames", sess.Frames())
}

// handleStatusPage serves the human-readable device status document.
func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if err := status.Render(w, s.options.Prober.Snapshot()); err != nil {
		s.logger.Error("Failed to render status page", "error", err)
	}
}

func (s *Server) publishSessionStarted(remote string) {
	if s.options.Bus == nil {
		return
	}
	s.options.Bus.Publish(events.SessionStartedEvent{
		RemoteAddr: remote,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) publishSessionEnded(remote, reason string, frames uint64) {
	if s.options.Bus == nil {
		return
	}
	s.options.Bus.Publish(events.SessionEndedEvent{
		RemoteAddr: remote,
		Reason:     reason,
		Frames:     frames,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}
