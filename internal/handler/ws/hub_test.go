package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartSignal/internal/domain/models"
)

type receivedEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/signals"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) receivedEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev receivedEvent
	require.NoError(t, json.Unmarshal(b, &ev))
	return ev
}

func TestHubSendsSnapshotThenSignals(t *testing.T) {
	h := NewHub(WithSnapshot(func() []models.SignalRecord {
		return []models.SignalRecord{{ID: 1, Action: models.ActionCall}}
	}))
	conn := dialHub(t, h)

	ev := readEvent(t, conn)
	assert.Equal(t, "snapshot", ev.Type)
	var snap []models.SignalRecord
	require.NoError(t, json.Unmarshal(ev.Data, &snap))
	require.Len(t, snap, 1)

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.Deliver(context.Background(), models.SignalRecord{ID: 2, Action: models.ActionPut, Confidence: 88}))

	ev = readEvent(t, conn)
	assert.Equal(t, "signal", ev.Type)
	var rec models.SignalRecord
	require.NoError(t, json.Unmarshal(ev.Data, &rec))
	assert.Equal(t, int64(2), rec.ID)
	assert.Equal(t, 88, rec.Confidence)
}

func TestHubDoesNotLoseSignalEmittedDuringSnapshot(t *testing.T) {
	var h *Hub
	delivered := make(chan struct{})
	h = NewHub(WithSnapshot(func() []models.SignalRecord {
		go func() {
			defer close(delivered)
			_ = h.Deliver(context.Background(), models.SignalRecord{ID: 2, Action: models.ActionPut})
		}()
		time.Sleep(50 * time.Millisecond)
		return []models.SignalRecord{{ID: 1, Action: models.ActionCall}}
	}))
	conn := dialHub(t, h)

	ev := readEvent(t, conn)
	assert.Equal(t, "snapshot", ev.Type)

	ev = readEvent(t, conn)
	assert.Equal(t, "signal", ev.Type)
	var rec models.SignalRecord
	require.NoError(t, json.Unmarshal(ev.Data, &rec))
	assert.Equal(t, int64(2), rec.ID)
	<-delivered
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	h := NewHub()
	conn := dialHub(t, h)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	h := NewHub()
	conn := dialHub(t, h)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	h.Close()
	assert.Zero(t, h.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
