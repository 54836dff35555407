package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"ChartSignal/internal/domain/models"
)

// FrameFromImage copies img into a tightly packed RGBA frame.
func FrameFromImage(img image.Image, at time.Time) (*models.Frame, error) {
	if img == nil {
		return nil, models.ErrNotReady
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, models.ErrNotReady
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return models.NewFrame(b.Dx(), b.Dy(), rgba.Pix, at)
}

// DecodeFrame decodes a PNG or JPEG payload.
func DecodeFrame(data []byte, at time.Time) (*models.Frame, error) {
	if len(data) == 0 {
		return nil, models.ErrNotReady
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	f, err := FrameFromImage(img, at)
	if err != nil {
		return nil, fmt.Errorf("decode %s frame: %w", format, err)
	}
	return f, nil
}
