package encode

import (
	"bytes"
	"context"
	"image/jpeg"
	"testing"

	"github.com/tomyangzx/ESP32-CAM/internal/camera"
)

// countingReleaser records release calls per frame.
type countingReleaser struct {
	releases map[*camera.Frame]int
}

func newCountingReleaser() *countingReleaser {
	return &countingReleaser{releases: make(map[*camera.Frame]int)}
}

func (r *countingReleaser) Release(f *camera.Frame) {
	r.releases[f]++
}

func captureRaw(t *testing.T, format string) *camera.Frame {
	t.Helper()
	c := camera.DefaultControls()
	c.PixelFormat = format
	c.FrameWidth = 160
	c.FrameHeight = 120
	d := camera.NewPatternDriver()
	if err := d.Init(c); err != nil {
		t.Fatal(err)
	}
	f, err := d.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestJPEGIdentityPassThrough(t *testing.T) {
	rel := newCountingReleaser()
	enc := New(rel, 80)

	in := camera.NewCallerFrame(camera.FormatJPEG, 320, 240, []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9})
	out, err := enc.EnsureJPEG(in)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Error("JPEG input must pass through as the same frame")
	}
	if len(rel.releases) != 0 {
		t.Error("identity pass-through must not release anything")
	}
}

func TestRawConversionProducesJPEGAndReleasesOrigin(t *testing.T) {
	for _, format := range []string{"rgb565", "yuv422", "grayscale"} {
		rel := newCountingReleaser()
		enc := New(rel, 80)

		in := captureRaw(t, format)
		out, err := enc.EnsureJPEG(in)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}

		if out.Format != camera.FormatJPEG {
			t.Errorf("%s: output format = %s, want jpeg", format, out.Format)
		}
		if out == in {
			t.Errorf("%s: conversion must allocate a new frame", format)
		}
		if out.Owner() != camera.OwnerCaller {
			t.Errorf("%s: converted frame must be caller-owned", format)
		}
		if rel.releases[in] != 1 {
			t.Errorf("%s: origin released %d times, want exactly 1", format, rel.releases[in])
		}

		img, err := jpeg.Decode(bytes.NewReader(out.Data))
		if err != nil {
			t.Fatalf("%s: output not decodable: %v", format, err)
		}
		if img.Bounds().Dx() != in.Width || img.Bounds().Dy() != in.Height {
			t.Errorf("%s: decoded size %v, want %dx%d", format, img.Bounds(), in.Width, in.Height)
		}
	}
}

func TestConversionFailureStillReleases(t *testing.T) {
	rel := newCountingReleaser()
	enc := New(rel, 80)

	// Payload length does not match the declared dimensions.
	in := camera.NewCallerFrame(camera.FormatRGB565, 320, 240, []byte{0x00, 0x01})
	if _, err := enc.EnsureJPEG(in); err == nil {
		t.Fatal("expected conversion error")
	}
	if rel.releases[in] != 1 {
		t.Errorf("origin released %d times on failure, want exactly 1", rel.releases[in])
	}
}

func TestOddWidthYUV422Converts(t *testing.T) {
	rel := newCountingReleaser()
	enc := New(rel, 80)

	// 17x16 packed YUYV. The last pixel of the last row sits at the very end
	// of the payload, so any read past its two bytes would go out of range.
	w, h := 17, 16
	data := make([]byte, w*h*2)
	for i := range data {
		data[i] = byte(i)
	}
	in := camera.NewCallerFrame(camera.FormatYUV422, w, h, data)

	out, err := enc.EnsureJPEG(in)
	if err != nil {
		t.Fatal(err)
	}
	if rel.releases[in] != 1 {
		t.Errorf("origin released %d times, want exactly 1", rel.releases[in])
	}

	img, err := jpeg.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Errorf("decoded size %v, want %dx%d", img.Bounds(), w, h)
	}
}

func TestConversionFailureForMissingDimensions(t *testing.T) {
	rel := newCountingReleaser()
	enc := New(rel, 80)

	in := camera.NewCallerFrame(camera.FormatGrayscale, 0, 0, []byte{0x10})
	if _, err := enc.EnsureJPEG(in); err == nil {
		t.Fatal("expected error for missing dimensions")
	}
	if rel.releases[in] != 1 {
		t.Error("origin must be released on failure")
	}
}
