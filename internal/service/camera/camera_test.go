package camera

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartSignal/internal/domain/models"
	xhttp "ChartSignal/pkg/http"
)

func testImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFrameFromImage(t *testing.T) {
	img := testImage(3, 2, color.RGBA{R: 10, G: 200, B: 10, A: 255})
	f, err := FrameFromImage(img.SubImage(image.Rect(1, 0, 3, 2)), time.Unix(5, 0))
	require.NoError(t, err)

	assert.Equal(t, 2, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.Len(t, f.Pix, 16)
	assert.Equal(t, []byte{10, 200, 10, 255}, f.Pix[:4])
}

func TestFrameFromEmptyImageNotReady(t *testing.T) {
	_, err := FrameFromImage(image.NewRGBA(image.Rect(0, 0, 0, 0)), time.Now())
	assert.ErrorIs(t, err, models.ErrNotReady)
}

func TestStaticImageSource(t *testing.T) {
	s := NewStaticImageSource(testImage(4, 4, color.RGBA{R: 200, A: 255}))
	ctx := context.Background()

	_, err := s.Capture(ctx)
	assert.ErrorIs(t, err, models.ErrNotReady)

	require.NoError(t, s.Open(ctx))
	f, err := s.Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Width)

	require.NoError(t, s.Close())
	_, err = s.Capture(ctx)
	assert.ErrorIs(t, err, models.ErrNotReady)
}

func TestStaticFileSourceMissing(t *testing.T) {
	s := NewStaticFileSource(filepath.Join(t.TempDir(), "missing.png"))
	err := s.Open(context.Background())

	var ce *models.CameraUnavailableError
	require.ErrorAs(t, err, &ce)
	assert.True(t, models.IsCameraUnavailable(err))
}

func TestSnapshotSource(t *testing.T) {
	payload := encodePNG(t, testImage(6, 5, color.RGBA{G: 220, A: 255}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	s := NewSnapshotSource(srv.URL, xhttp.NewClient(xhttp.WithTimeout(time.Second)))
	ctx := context.Background()

	_, err := s.Capture(ctx)
	assert.ErrorIs(t, err, models.ErrNotReady)

	require.NoError(t, s.Open(ctx))
	f, err := s.Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, f.Width)
	assert.Equal(t, 5, f.Height)
	require.NoError(t, s.Close())
}

func TestSnapshotSourceClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no camera", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewSnapshotSource(srv.URL, nil, WithOpenTimeout(5*time.Second))
	start := time.Now()
	err := s.Open(context.Background())

	require.Error(t, err)
	assert.True(t, models.IsCameraUnavailable(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWSSourceReceivesLatestFrame(t *testing.T) {
	payload := encodePNG(t, testImage(8, 8, color.RGBA{G: 250, A: 255}))
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		_ = conn.WriteMessage(websocket.BinaryMessage, payload)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s := NewWSSource("ws"+strings.TrimPrefix(srv.URL, "http"), 10*time.Millisecond, time.Second)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	require.Eventually(t, func() bool {
		f, err := s.Capture(ctx)
		return err == nil && f.Width == 8
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, s.IsConnected())
}

func TestWSSourceReconnectsWhenPeerGoesSilent(t *testing.T) {
	payload := encodePNG(t, testImage(8, 8, color.RGBA{G: 250, A: 255}))
	upgrader := websocket.Upgrader{}
	var conns atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)
		_ = conn.WriteMessage(websocket.BinaryMessage, payload)
		// never read, so pings go unanswered
		<-release
	}))
	defer srv.Close()
	defer close(release)

	s := NewWSSource("ws"+strings.TrimPrefix(srv.URL, "http"), 10*time.Millisecond, 50*time.Millisecond)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	require.Eventually(t, func() bool {
		return conns.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWSSourceDropsOversizedFrames(t *testing.T) {
	payload := encodePNG(t, testImage(64, 64, color.RGBA{G: 250, A: 255}))
	upgrader := websocket.Upgrader{}
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)
		_ = conn.WriteMessage(websocket.BinaryMessage, payload)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s := NewWSSource("ws"+strings.TrimPrefix(srv.URL, "http"), 10*time.Millisecond, time.Second,
		WithMaxFrameBytes(16))
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	require.Eventually(t, func() bool {
		return conns.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond)
	_, err := s.Capture(ctx)
	assert.ErrorIs(t, err, models.ErrNotReady)
}

func TestWSSourceDialFailure(t *testing.T) {
	s := NewWSSource("ws://127.0.0.1:1/frames", 0, 0)
	err := s.Open(context.Background())
	assert.True(t, models.IsCameraUnavailable(err))
}
