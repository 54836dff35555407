package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"ChartSignal/internal/domain/models"
	drepo "ChartSignal/internal/domain/repository"
	applogger "ChartSignal/pkg/logger"
)

// WSSource receives encoded frames pushed by a device agent over WebSocket.
// The latest frame wins; older ones are dropped.
type WSSource struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	pongWait       time.Duration
	maxAge         time.Duration
	maxFrameBytes  int64
	dialer         *websocket.Dialer
	log            *applogger.Logger
	now            func() time.Time

	mu        sync.RWMutex
	conn      *websocket.Conn
	latest    *models.Frame
	connected bool
	cancel    context.CancelFunc
	done      chan struct{}
}

type WSOption func(*WSSource)

// WithMaxFrameAge rejects frames older than d on Capture.
func WithMaxFrameAge(d time.Duration) WSOption {
	return func(s *WSSource) { s.maxAge = d }
}

// WithMaxFrameBytes caps the size of a single inbound message.
func WithMaxFrameBytes(n int64) WSOption {
	return func(s *WSSource) {
		if n > 0 {
			s.maxFrameBytes = n
		}
	}
}

func WithWSLogger(l *applogger.Logger) WSOption {
	return func(s *WSSource) {
		if l != nil {
			s.log = l
		}
	}
}

// NewWSSource creates a WebSocket frame source.
func NewWSSource(url string, reconnectDelay, pingInterval time.Duration, opts ...WSOption) *WSSource {
	if reconnectDelay <= 0 {
		reconnectDelay = time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 15 * time.Second
	}
	s := &WSSource{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		pongWait:       2 * pingInterval,
		maxAge:         5 * time.Second,
		maxFrameBytes:  8 << 20,
		dialer:         websocket.DefaultDialer,
		log:            applogger.Nop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WSSource) Name() string { return "websocket" }

// Open dials the agent and starts the read loop. The loop reconnects on its own.
func (s *WSSource) Open(ctx context.Context) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return &models.CameraUnavailableError{Source: s.Name(), Err: err}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.latest = nil
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(loopCtx, conn, done)
	return nil
}

func (s *WSSource) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	return conn, nil
}

func (s *WSSource) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		err := s.readLoop(ctx, conn)
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("frame feed disconnected", applogger.Error(err))

		conn = s.reconnect(ctx)
		if conn == nil {
			return
		}
	}
}

func (s *WSSource) reconnect(ctx context.Context) *websocket.Conn {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.reconnectDelay
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	var conn *websocket.Conn
	err := backoff.Retry(func() error {
		c, err := s.dial(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.log.Info("frame feed reconnected", applogger.String("url", s.url))
	return conn
}

func (s *WSSource) readLoop(ctx context.Context, conn *websocket.Conn) error {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()
	go func() {
		<-pingCtx.Done()
		// unblock ReadMessage on shutdown
		if ctx.Err() != nil {
			_ = conn.Close()
		}
	}()

	conn.SetReadLimit(s.maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	for {
		mt, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
		if mt != websocket.BinaryMessage {
			continue
		}
		f, err := DecodeFrame(b, s.now())
		if err != nil {
			s.log.Debug("dropping undecodable frame", applogger.Error(err))
			continue
		}
		s.mu.Lock()
		s.latest = f
		s.mu.Unlock()
	}
}

// Capture returns the newest frame received, or ErrNotReady if none is fresh.
func (s *WSSource) Capture(ctx context.Context) (*models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	f := s.latest
	s.mu.RUnlock()
	if f == nil || f.Width == 0 || f.Height == 0 {
		return nil, models.ErrNotReady
	}
	if s.maxAge > 0 && s.now().Sub(f.CapturedAt) > s.maxAge {
		return nil, models.ErrNotReady
	}
	return f, nil
}

// IsConnected indicates status.
func (s *WSSource) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Close stops the read loop and closes the connection.
func (s *WSSource) Close() error {
	s.mu.Lock()
	cancel, done, conn := s.cancel, s.done, s.conn
	s.cancel, s.done, s.conn = nil, nil, nil
	s.latest = nil
	s.connected = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
	return nil
}

var _ drepo.FrameSource = (*WSSource)(nil)
