package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/tomyangzx/ESP32-CAM/internal/camera"
	"github.com/tomyangzx/ESP32-CAM/internal/encode"
	"github.com/tomyangzx/ESP32-CAM/internal/metrics"
	"github.com/tomyangzx/ESP32-CAM/internal/status"
	"github.com/tomyangzx/ESP32-CAM/internal/stream"
)

func newTestServer(t *testing.T, opts *Options) *httptest.Server {
	t.Helper()
	if opts.Prober == nil {
		opts.Prober = status.NewProber("espcam-test")
	}
	if opts.StreamConfig.Boundary == "" {
		opts.StreamConfig = stream.Config{Boundary: "frame", FrameInterval: time.Millisecond}
	}
	srv := NewServer(opts)
	ts := httptest.NewServer(srv.GetMux())
	t.Cleanup(ts.Close)
	return ts
}

func newCameraOptions(t *testing.T) *Options {
	t.Helper()
	drv := camera.NewPatternDriver()
	if err := drv.Init(camera.DefaultControls()); err != nil {
		t.Fatal(err)
	}
	src := camera.NewSource(drv, 2, slog.Default())
	return &Options{
		Source:  src,
		Encoder: encode.New(src, 80),
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, newCameraOptions(t))

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"ok"`) {
		t.Errorf("health body = %s", body)
	}
}

func TestVersionEndpoint(t *testing.T) {
	ts := newTestServer(t, newCameraOptions(t))

	resp, err := http.Get(ts.URL + "/api/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var data VersionData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		t.Fatal(err)
	}
	if data.Version == "" || data.GoVersion == "" {
		t.Errorf("incomplete version data: %+v", data)
	}
}

func TestStatusEndpointReturnsFreshSnapshot(t *testing.T) {
	ts := newTestServer(t, newCameraOptions(t))

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var snap status.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.DeviceID != "espcam-test" {
		t.Errorf("device id = %q", snap.DeviceID)
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("uptime = %d", snap.UptimeSeconds)
	}
}

func TestStatusPageServesHTML(t *testing.T) {
	ts := newTestServer(t, newCameraOptions(t))

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", cc)
	}

	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	if !strings.Contains(page, "espcam-test") {
		t.Error("page missing device id")
	}
	if !strings.Contains(page, `href="/stream"`) {
		t.Error("page missing stream link")
	}
}

func TestStreamDeliversJPEGFrames(t *testing.T) {
	ts := newTestServer(t, newCameraOptions(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace;boundary=frame" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if ao := resp.Header.Get("Access-Control-Allow-Origin"); ao != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", ao)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", cc)
	}

	mr := multipart.NewReader(resp.Body, "frame")
	for i := 0; i < 3; i++ {
		part, err := mr.NextPart()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("frame %d: Content-Type = %q", i, ct)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
			t.Errorf("frame %d: payload does not start with JPEG SOI", i)
		}
	}
}

// failingSource ends the stream after a fixed number of frames.
type failingSource struct {
	payload []byte
	left    int
}

func (f *failingSource) Acquire(_ context.Context) (*camera.Frame, error) {
	if f.left == 0 {
		return nil, errors.New("sensor fault")
	}
	f.left--
	return camera.NewCallerFrame(camera.FormatJPEG, 320, 240, f.payload), nil
}

func (f *failingSource) Release(*camera.Frame) {}

type passthroughEncoder struct{}

func (passthroughEncoder) EnsureJPEG(f *camera.Frame) (*camera.Frame, error) {
	return f, nil
}

func TestStreamClosesWhenCameraFails(t *testing.T) {
	opts := &Options{
		Source:       &failingSource{payload: []byte("jpegdata"), left: 2},
		Encoder:      passthroughEncoder{},
		StreamConfig: stream.Config{Boundary: "frame"},
	}
	ts := newTestServer(t, opts)

	resp, err := http.Get(ts.URL + "/stream")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	// The body must end after two frames instead of hanging.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(body), "\r\n--frame\r\n"); got != 2 {
		t.Errorf("frames on wire = %d, want 2", got)
	}
}

// scrapeCounter reads one counter value from the /metrics endpoint.
func scrapeCounter(t *testing.T, ts *httptest.Server, name string) float64 {
	t.Helper()
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[0] == name {
			v, parseErr := strconv.ParseFloat(fields[1], 64)
			if parseErr != nil {
				t.Fatal(parseErr)
			}
			return v
		}
	}
	return 0
}

func TestCaptureFailureFeedsErrorCounter(t *testing.T) {
	opts := &Options{
		Source:            &failingSource{payload: []byte("jpegdata"), left: 1},
		Encoder:           passthroughEncoder{},
		StreamConfig:      stream.Config{Boundary: "frame"},
		PrometheusHandler: metrics.Handler(),
	}
	ts := newTestServer(t, opts)

	const counter = "espcam_camera_capture_errors_total"
	before := scrapeCounter(t, ts, counter)

	resp, err := http.Get(ts.URL + "/stream")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	after := scrapeCounter(t, ts, counter)
	if after-before != 1 {
		t.Errorf("capture errors delta = %v, want 1", after-before)
	}
}
