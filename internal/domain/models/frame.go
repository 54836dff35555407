package models

import (
	"fmt"
	"time"
)

// Frame is one captured camera image as a tightly packed RGBA buffer.
// A Frame is never mutated after capture.
type Frame struct {
	Width      int
	Height     int
	Pix        []byte // RGBA, 4 bytes per pixel, row-major
	CapturedAt time.Time
}

// NewFrame validates dimensions against the buffer length.
func NewFrame(width, height int, pix []byte, capturedAt time.Time) (*Frame, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("frame: negative dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("frame: buffer length %d does not match %dx%d rgba", len(pix), width, height)
	}
	return &Frame{Width: width, Height: height, Pix: pix, CapturedAt: capturedAt}, nil
}

// PixelCount returns the number of pixels in the buffer.
func (f *Frame) PixelCount() int {
	if f == nil {
		return 0
	}
	return len(f.Pix) / 4
}
