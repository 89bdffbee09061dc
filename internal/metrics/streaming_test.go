package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStreamingObservations(t *testing.T) {
	var m Streaming

	framesBefore := testutil.ToFloat64(streamFrames)
	bytesBefore := testutil.ToFloat64(streamBytes)

	m.ObserveFrame(1024)
	m.ObserveFrame(2048)

	if got := testutil.ToFloat64(streamFrames) - framesBefore; got != 2 {
		t.Errorf("frames delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(streamBytes) - bytesBefore; got != 3072 {
		t.Errorf("bytes delta = %v, want 3072", got)
	}

	m.SetFPS(29.7)
	if got := testutil.ToFloat64(streamFPS); got != 29.7 {
		t.Errorf("fps = %v, want 29.7", got)
	}
}

func TestSessionLifecycleCounters(t *testing.T) {
	activeBefore := testutil.ToFloat64(sessionsActive)

	SessionStarted()
	if got := testutil.ToFloat64(sessionsActive) - activeBefore; got != 1 {
		t.Errorf("active delta after start = %v, want 1", got)
	}

	endedBefore := testutil.ToFloat64(sessionsEnded.WithLabelValues("transport_failed"))
	SessionEnded("transport_failed")

	if got := testutil.ToFloat64(sessionsActive) - activeBefore; got != 0 {
		t.Errorf("active delta after end = %v, want 0", got)
	}
	if got := testutil.ToFloat64(sessionsEnded.WithLabelValues("transport_failed")) - endedBefore; got != 1 {
		t.Errorf("ended delta = %v, want 1", got)
	}
}

func TestHandlerExportsStreamMetrics(t *testing.T) {
	Streaming{}.SetFPS(15.0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "espcam_stream_fps") {
		t.Error("expected espcam_stream_fps in scrape output")
	}
}
