// Package encode guarantees that every frame handed to the wire is JPEG.
// Frames already in JPEG format pass through untouched; raw frames are
// converted at a fixed quality, and the originating leased buffer is
// released before the converted frame is returned so peak buffer occupancy
// never doubles.
package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/tomyangzx/ESP32-CAM/internal/camera"
)

// Releaser returns leased frames to their source.
type Releaser interface {
	Release(*camera.Frame)
}

// Encoder converts frames to JPEG at a fixed quality.
type Encoder struct {
	src     Releaser
	quality int
}

// New creates an Encoder releasing converted-away frames to src.
func New(src Releaser, quality int) *Encoder {
	return &Encoder{src: src, quality: quality}
}

// EnsureJPEG returns f unchanged when it is already JPEG. Otherwise it
// converts to JPEG into a newly allocated caller-owned frame and releases f
// exactly once, whether or not the conversion succeeds.
func (e *Encoder) EnsureJPEG(f *camera.Frame) (*camera.Frame, error) {
	if f.Format == camera.FormatJPEG {
		return f, nil
	}

	img, err := rawImage(f)
	if err != nil {
		e.src.Release(f)
		return nil, err
	}

	var buf bytes.Buffer
	encErr := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality})
	e.src.Release(f)
	if encErr != nil {
		return nil, fmt.Errorf("jpeg encode: %w", encErr)
	}

	return camera.NewCallerFrame(camera.FormatJPEG, f.Width, f.Height, buf.Bytes()), nil
}

// rawImage wraps a raw frame payload in an image.Image without copying
// where the layout allows it.
func rawImage(f *camera.Frame) (image.Image, error) {
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("frame has no dimensions (%dx%d)", w, h)
	}

	switch f.Format {
	case camera.FormatGrayscale:
		if len(f.Data) != w*h {
			return nil, fmt.Errorf("grayscale payload %d bytes, want %d", len(f.Data), w*h)
		}
		return &image.Gray{Pix: f.Data, Stride: w, Rect: image.Rect(0, 0, w, h)}, nil

	case camera.FormatRGB565:
		if len(f.Data) != w*h*2 {
			return nil, fmt.Errorf("rgb565 payload %d bytes, want %d", len(f.Data), w*h*2)
		}
		return &rgb565Image{pix: f.Data, width: w, height: h}, nil

	case camera.FormatYUV422:
		if len(f.Data) != w*h*2 {
			return nil, fmt.Errorf("yuv422 payload %d bytes, want %d", len(f.Data), w*h*2)
		}
		return yuyvToYCbCr(f.Data, w, h), nil

	default:
		return nil, fmt.Errorf("cannot convert format %s", f.Format)
	}
}

// rgb565Image is a read-only image.Image view over big-endian RGB565 bytes.
type rgb565Image struct {
	pix    []byte
	width  int
	height int
}

func (m *rgb565Image) ColorModel() color.Model { return color.RGBAModel }

func (m *rgb565Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

func (m *rgb565Image) At(x, y int) color.Color {
	i := (y*m.width + x) * 2
	v := uint16(m.pix[i])<<8 | uint16(m.pix[i+1])

	r := uint8(v>>11) << 3
	g := uint8(v>>5&0x3F) << 2
	b := uint8(v&0x1F) << 3
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// yuyvToYCbCr deinterleaves packed YUYV into planar 4:2:2. An odd width
// leaves the last column of each row as a lone Y/Cb pair with no Cr sample,
// so that Cr stays at its zero value.
func yuyvToYCbCr(data []byte, w, h int) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio422)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x += 2 {
			i := (y*w + x) * 2
			img.Y[y*img.YStride+x] = data[i]
			ci := y*img.CStride + x/2
			img.Cb[ci] = data[i+1]
			if x+1 < w {
				img.Y[y*img.YStride+x+1] = data[i+2]
				img.Cr[ci] = data[i+3]
			}
		}
	}
	return img
}
