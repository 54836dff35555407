package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ChartSignal/internal/domain/models"
	drepo "ChartSignal/internal/domain/repository"
	xhttp "ChartSignal/pkg/http"
)

const defaultMaxSnapshotBytes = 16 << 20

// SnapshotSource polls an HTTP endpoint that returns the current camera image
// (most IP cameras and phone webcam apps expose one).
type SnapshotSource struct {
	url      string
	headers  map[string]string
	client   *xhttp.Client
	maxBytes int64
	openWait time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	opened bool
}

type SnapshotOption func(*SnapshotSource)

// WithSnapshotHeaders sets request headers, e.g. basic auth for the camera.
func WithSnapshotHeaders(h map[string]string) SnapshotOption {
	return func(s *SnapshotSource) { s.headers = h }
}

// WithOpenTimeout bounds the retry window used by Open.
func WithOpenTimeout(d time.Duration) SnapshotOption {
	return func(s *SnapshotSource) {
		if d > 0 {
			s.openWait = d
		}
	}
}

func WithMaxSnapshotBytes(n int64) SnapshotOption {
	return func(s *SnapshotSource) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func NewSnapshotSource(url string, client *xhttp.Client, opts ...SnapshotOption) *SnapshotSource {
	if client == nil {
		client = xhttp.NewClient(xhttp.WithTimeout(5 * time.Second))
	}
	s := &SnapshotSource{
		url:      url,
		client:   client,
		maxBytes: defaultMaxSnapshotBytes,
		openWait: 10 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SnapshotSource) Name() string { return "snapshot" }

// Open polls the endpoint until it serves a decodable image or the retry window ends.
func (s *SnapshotSource) Open(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = s.openWait

	attempt := func() error {
		_, err := s.fetch(ctx)
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(attempt, backoff.WithContext(bo, ctx)); err != nil {
		return &models.CameraUnavailableError{Source: s.Name(), Err: err}
	}

	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
	return nil
}

func (s *SnapshotSource) Capture(ctx context.Context) (*models.Frame, error) {
	s.mu.RLock()
	opened := s.opened
	s.mu.RUnlock()
	if !opened {
		return nil, models.ErrNotReady
	}
	return s.fetch(ctx)
}

func (s *SnapshotSource) fetch(ctx context.Context) (*models.Frame, error) {
	body, _, err := s.client.Fetch(ctx, s.url, s.headers, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch: %w", err)
	}
	return DecodeFrame(body, s.now())
}

func (s *SnapshotSource) Close() error {
	s.mu.Lock()
	s.opened = false
	s.mu.Unlock()
	return nil
}

var _ drepo.FrameSource = (*SnapshotSource)(nil)
