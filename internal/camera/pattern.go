package camera

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Base test card size; captures scale it to the configured frame size.
const (
	cardWidth  = 160
	cardHeight = 120
)

// barColors are classic vertical color bars.
var barColors = []color.RGBA{
	{R: 0xC0, G: 0xC0, B: 0xC0, A: 0xFF}, // white
	{R: 0xC0, G: 0xC0, B: 0x00, A: 0xFF}, // yellow
	{R: 0x00, G: 0xC0, B: 0xC0, A: 0xFF}, // cyan
	{R: 0x00, G: 0xC0, B: 0x00, A: 0xFF}, // green
	{R: 0xC0, G: 0x00, B: 0xC0, A: 0xFF}, // magenta
	{R: 0xC0, G: 0x00, B: 0x00, A: 0xFF}, // red
	{R: 0x00, G: 0x00, B: 0xC0, A: 0xFF}, // blue
	{R: 0x13, G: 0x13, B: 0x13, A: 0xFF}, // black
}

// PatternDriver is a synthetic capture driver producing a moving test card.
// It exists so the streaming path can run and be tested without camera
// hardware.
type PatternDriver struct {
	mu       sync.Mutex
	controls Controls
	format   PixelFormat
	card     *image.RGBA
	seq      uint64
}

// NewPatternDriver creates an uninitialized pattern driver.
func NewPatternDriver() *PatternDriver {
	return &PatternDriver{}
}

// Init implements Driver.
func (d *PatternDriver) Init(c Controls) error {
	if err := c.Validate(); err != nil {
		return err
	}
	format, err := ParseFormat(c.PixelFormat)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.controls = c
	d.format = format
	d.card = renderCard()
	return nil
}

// Apply implements Driver. Controls take effect on the next capture.
func (d *PatternDriver) Apply(c Controls) error {
	if err := c.Validate(); err != nil {
		return err
	}
	format, err := ParseFormat(c.PixelFormat)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.controls = c
	d.format = format
	return nil
}

// Capture implements Driver. The produced frame is caller-owned until the
// Source tags it as leased.
func (d *PatternDriver) Capture(_ context.Context) (*Frame, error) {
	d.mu.Lock()
	c := d.controls
	format := d.format
	card := d.card
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	if card == nil {
		return nil, ErrEmptyFrame
	}

	dst := image.NewRGBA(image.Rect(0, 0, c.FrameWidth, c.FrameHeight))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), card, card.Bounds(), xdraw.Src, nil)

	drawSweep(dst, seq)
	if c.Brightness != 0 || c.Contrast != 0 {
		adjust(dst, c.Brightness, c.Contrast)
	}

	var data []byte
	switch format {
	case FormatJPEG:
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.JPEGQuality}); err != nil {
			return nil, err
		}
		data = buf.Bytes()
	case FormatRGB565:
		data = packRGB565(dst)
	case FormatYUV422:
		data = packYUYV(dst)
	case FormatGrayscale:
		data = packGray(dst)
	}

	return &Frame{
		Format: format,
		Width:  c.FrameWidth,
		Height: c.FrameHeight,
		Data:   data,
		owner:  OwnerCaller,
	}, nil
}

// Close implements Driver.
func (d *PatternDriver) Close() error {
	return nil
}

// renderCard draws the static color bars once.
func renderCard() *image.RGBA {
	card := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	barWidth := cardWidth / len(barColors)
	for x := 0; x < cardWidth; x++ {
		bar := x / barWidth
		if bar >= len(barColors) {
			bar = len(barColors) - 1
		}
		for y := 0; y < cardHeight; y++ {
			card.SetRGBA(x, y, barColors[bar])
		}
	}
	return card
}

// drawSweep paints a moving vertical indicator so consecutive frames differ.
func drawSweep(img *image.RGBA, seq uint64) {
	b := img.Bounds()
	w := b.Dx()
	if w == 0 {
		return
	}
	x0 := int(seq*4) % w
	for dx := 0; dx < 4 && x0+dx < w; dx++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			img.SetRGBA(x0+dx, y, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
		}
	}
}

// adjust applies sensor-style brightness/contrast steps (-2..2) in place.
func adjust(img *image.RGBA, brightness, contrast int) {
	// 1.0 +/- 0.25 per contrast step, 24 levels per brightness step.
	cf := 1.0 + 0.25*float64(contrast)
	bo := 24 * brightness

	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		for j := 0; j < 3; j++ {
			v := float64(pix[i+j])
			v = (v-128)*cf + 128 + float64(bo)
			pix[i+j] = clampByte(v)
		}
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// packRGB565 converts RGBA pixels to big-endian RGB565.
func packRGB565(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*2)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			v := uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
			out = append(out, byte(v>>8), byte(v))
		}
	}
	return out
}

// packYUYV converts RGBA pixels to packed YUYV (YUV 4:2:2).
func packYUYV(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*2)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x += 2 {
			c0 := img.RGBAAt(x, y)
			c1 := c0
			if x+1 < b.Max.X {
				c1 = img.RGBAAt(x+1, y)
			}
			y0, cb0, cr0 := color.RGBToYCbCr(c0.R, c0.G, c0.B)
			y1, cb1, cr1 := color.RGBToYCbCr(c1.R, c1.G, c1.B)
			cb := uint8((uint16(cb0) + uint16(cb1)) / 2)
			cr := uint8((uint16(cr0) + uint16(cr1)) / 2)
			out = append(out, y0, cb, y1, cr)
		}
	}
	return out
}

// packGray converts RGBA pixels to 8-bit grayscale.
func packGray(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			yy, _, _ := color.RGBToYCbCr(c.R, c.G, c.B)
			out = append(out, yy)
		}
	}
	return out
}
