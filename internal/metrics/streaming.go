// Package metrics provides Prometheus instrumentation for the camera node.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	streamFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "espcam",
		Subsystem: "stream",
		Name:      "frames_total",
		Help:      "Frames fully delivered to clients",
	})

	streamBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "espcam",
		Subsystem: "stream",
		Name:      "bytes_total",
		Help:      "JPEG payload bytes delivered to clients",
	})

	streamFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "espcam",
		Subsystem: "stream",
		Name:      "fps",
		Help:      "Most recently measured delivery rate",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "espcam",
		Subsystem: "stream",
		Name:      "sessions_active",
		Help:      "Streaming sessions currently connected",
	})

	sessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "espcam",
		Subsystem: "stream",
		Name:      "sessions_ended_total",
		Help:      "Sessions ended, labeled by termination reason",
	}, []string{"reason"})

	captureErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "espcam",
		Subsystem: "camera",
		Name:      "capture_errors_total",
		Help:      "Frame acquisitions that failed",
	})
)

// Streaming feeds per-frame observations from the session loop into the
// Prometheus registry. The zero value is ready to use.
type Streaming struct{}

// ObserveFrame records one delivered frame of n payload bytes.
func (Streaming) ObserveFrame(n int) {
	streamFrames.Inc()
	streamBytes.Add(float64(n))
}

// SetFPS records the latest measured delivery rate.
func (Streaming) SetFPS(fps float64) {
	streamFPS.Set(fps)
}

// SessionStarted marks a new client connection.
func SessionStarted() {
	sessionsActive.Inc()
}

// SessionEnded marks a closed connection with its termination reason.
func SessionEnded(reason string) {
	sessionsActive.Dec()
	sessionsEnded.WithLabelValues(reason).Inc()
}

// CaptureError counts a failed frame acquisition.
func CaptureError() {
	captureErrors.Inc()
}

// Handler returns the Prometheus scrape endpoint. It collects all
// promauto-registered metrics automatically.
func Handler() http.Handler {
	return promhttp.Handler()
}
