package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"ChartSignal/internal/domain/models"
	drepo "ChartSignal/internal/domain/repository"
)

// StaticSource serves the same picture on every capture. It backs demos and
// replaying a saved screenshot.
type StaticSource struct {
	path string
	img  image.Image
	now  func() time.Time

	mu    sync.RWMutex
	frame *models.Frame
}

// NewStaticFileSource decodes path on Open.
func NewStaticFileSource(path string) *StaticSource {
	return &StaticSource{path: path, now: time.Now}
}

// NewStaticImageSource serves an in-memory image.
func NewStaticImageSource(img image.Image) *StaticSource {
	return &StaticSource{img: img, now: time.Now}
}

func (s *StaticSource) Name() string {
	if s.path != "" {
		return "static:" + s.path
	}
	return "static"
}

func (s *StaticSource) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var (
		f   *models.Frame
		err error
	)
	if s.path != "" {
		data, rerr := os.ReadFile(s.path)
		if rerr != nil {
			return &models.CameraUnavailableError{Source: s.Name(), Err: rerr}
		}
		f, err = DecodeFrame(data, s.now())
	} else {
		f, err = FrameFromImage(s.img, s.now())
	}
	if err != nil {
		return &models.CameraUnavailableError{Source: s.Name(), Err: fmt.Errorf("load image: %w", err)}
	}
	s.mu.Lock()
	s.frame = f
	s.mu.Unlock()
	return nil
}

func (s *StaticSource) Capture(ctx context.Context) (*models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	f := s.frame
	s.mu.RUnlock()
	if f == nil || f.Width == 0 || f.Height == 0 {
		return nil, models.ErrNotReady
	}
	out := *f
	out.CapturedAt = s.now()
	return &out, nil
}

func (s *StaticSource) Close() error {
	s.mu.Lock()
	s.frame = nil
	s.mu.Unlock()
	return nil
}

var _ drepo.FrameSource = (*StaticSource)(nil)
