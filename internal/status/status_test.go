package status

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSnapshotFieldsAreFresh(t *testing.T) {
	p := NewProber("espcam-test")

	first := p.Snapshot()
	if first.DeviceID != "espcam-test" {
		t.Errorf("device id = %q", first.DeviceID)
	}
	if first.UptimeSeconds < 0 {
		t.Errorf("uptime = %d, want >= 0", first.UptimeSeconds)
	}

	time.Sleep(10 * time.Millisecond)
	second := p.Snapshot()
	if second.UptimeSeconds < first.UptimeSeconds {
		t.Errorf("uptime went backwards: %d then %d", first.UptimeSeconds, second.UptimeSeconds)
	}
}

func TestRenderContainsAllFields(t *testing.T) {
	s := Snapshot{
		DeviceID:        "espcam-node",
		IPAddress:       "192.168.1.23",
		MACAddress:      "aa:bb:cc:dd:ee:ff",
		FreeMemoryBytes: 184320,
		UptimeSeconds:   3600,
	}

	var buf bytes.Buffer
	if err := Render(&buf, s); err != nil {
		t.Fatal(err)
	}

	page := buf.String()
	for _, want := range []string{
		"espcam-node",
		"192.168.1.23",
		"aa:bb:cc:dd:ee:ff",
		"184320",
		"3600",
		`href="/stream"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRenderZeroValuesStayLiteral(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Snapshot{DeviceID: "cold-boot"}); err != nil {
		t.Fatal(err)
	}

	page := buf.String()
	if !strings.Contains(page, "0 bytes") {
		t.Error("zero free memory must render as the literal 0")
	}
	if !strings.Contains(page, "0 s") {
		t.Error("zero uptime must render as the literal 0")
	}
	if !strings.HasPrefix(page, "<!DOCTYPE html>") {
		t.Error("document must stay well-formed with zero values")
	}
}

func TestMemAvailableParsing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meminfo")
	content := "MemTotal:       16262708 kB\nMemFree:         1177740 kB\nMemAvailable:    8231234 kB\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, ok := memAvailable(path)
	if !ok {
		t.Fatal("expected MemAvailable to parse")
	}
	if want := uint64(8231234) * 1024; got != want {
		t.Errorf("free memory = %d, want %d", got, want)
	}

	if _, ok := memAvailable(filepath.Join(dir, "missing")); ok {
		t.Error("missing file must not report a value")
	}
}
