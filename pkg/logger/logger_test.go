package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches []LogBatch
	topics  []string
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.(LogBatch))
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func TestCollectorAggregatesRepeatedErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{
		Service:        "chartsignal",
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "logs",
		Publisher:      pub,
	})

	child := l.With("capture")
	for i := 0; i < 3; i++ {
		child.Error("frame capture failed", Error(errors.New("timeout")))
	}
	l.Error("other failure")

	l.RemoveCollector()

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	batch := pub.batches[0]
	assert.Equal(t, "chartsignal", batch.Service)
	assert.Equal(t, "logs", pub.topics[0])
	require.Len(t, batch.Entries, 2)

	counts := map[string]int{}
	for _, e := range batch.Entries {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, 3, counts["frame capture failed"])
	assert.Equal(t, 1, counts["other failure"])
}

func TestRemovedCollectorDetachesChildren(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: pub})
	child := l.With("api")
	l.RemoveCollector()

	child.Error("late error")
	assert.Nil(t, l.ref.c)
}

func TestCollectorFlushesOnThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x.go:1")
	assert.Equal(t, 1, c.Pending())
	c.AddLog("error", "b", nil, "x.go:2")

	assert.Zero(t, c.Pending())
	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
}
