package camera

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Controls holds sensor tuning knobs. They live in camera.toml and are
// hot-reloaded at runtime; none of them affect lease semantics.
type Controls struct {
	PixelFormat string `toml:"pixel_format"`
	FrameWidth  int    `toml:"frame_width"`
	FrameHeight int    `toml:"frame_height"`
	JPEGQuality int    `toml:"jpeg_quality"`
	Brightness  int    `toml:"brightness"`
	Contrast    int    `toml:"contrast"`
}

// DefaultControls is the conservative SVGA startup configuration; it keeps
// per-frame memory small on low-end boards.
func DefaultControls() Controls {
	return Controls{
		PixelFormat: "jpeg",
		FrameWidth:  800,
		FrameHeight: 600,
		JPEGQuality: 80,
	}
}

// Validate checks control ranges.
func (c Controls) Validate() error {
	if _, err := ParseFormat(c.PixelFormat); err != nil {
		return err
	}
	if c.FrameWidth < 16 || c.FrameHeight < 16 {
		return fmt.Errorf("frame size %dx%d too small", c.FrameWidth, c.FrameHeight)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality %d out of range 1-100", c.JPEGQuality)
	}
	if c.Brightness < -2 || c.Brightness > 2 {
		return fmt.Errorf("brightness %d out of range -2..2", c.Brightness)
	}
	if c.Contrast < -2 || c.Contrast > 2 {
		return fmt.Errorf("contrast %d out of range -2..2", c.Contrast)
	}
	return nil
}

// LoadControls reads camera controls from a TOML file, layered over
// defaults. A missing file yields the defaults without error.
func LoadControls(path string) (Controls, error) {
	c := DefaultControls()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, err
	}

	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to parse camera controls: %w", err)
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}
