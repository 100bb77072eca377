package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// Capturer grabs one frame from the screen. Failures are per-capture:
// the caller logs a notice and continues without a frame.
type Capturer interface {
	Capture() (image.Image, error)
}

// ScreenCapturer captures the primary display.
type ScreenCapturer struct {
	display int
}

// NewScreenCapturer returns a capturer for the primary display.
func NewScreenCapturer() *ScreenCapturer {
	return &ScreenCapturer{display: 0}
}

// Capture grabs the full primary display.
func (c *ScreenCapturer) Capture() (image.Image, error) {
	if screenshot.NumActiveDisplays() <= c.display {
		return nil, fmt.Errorf("display %d not available", c.display)
	}
	img, err := screenshot.CaptureDisplay(c.display)
	if err != nil {
		return nil, fmt.Errorf("failed to capture display %d: %w", c.display, err)
	}
	return img, nil
}
