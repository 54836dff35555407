package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartSignal/internal/domain/models"
	"ChartSignal/pkg/metrics"
)

type fakePublisher struct {
	sent   []models.SignalRecord
	err    error
	closed bool
}

func (p *fakePublisher) Publish(_ context.Context, rec models.SignalRecord) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, rec)
	return nil
}

func (p *fakePublisher) PublishBatch(_ context.Context, recs []models.SignalRecord) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, recs...)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func TestNewSignalProcessorValidatesBackend(t *testing.T) {
	_, err := NewSignalProcessor(nil, nil, metrics.Noop{}, BackendKafka)
	assert.Error(t, err)

	_, err = NewSignalProcessor(nil, nil, metrics.Noop{}, BackendClickHouse)
	assert.Error(t, err)

	_, err = NewSignalProcessor(nil, nil, metrics.Noop{}, "s3")
	assert.Error(t, err)

	p, err := NewSignalProcessor(nil, nil, metrics.Noop{}, "")
	require.NoError(t, err)
	assert.Equal(t, BackendNone, p.Backend())
	assert.NoError(t, p.Process(context.Background(), models.SignalRecord{ID: 1}))
}

func TestSignalProcessorRoutes(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	arch := &fakeArchive{}

	kp, err := NewSignalProcessor(pub, arch, metrics.Noop{}, BackendKafka)
	require.NoError(t, err)
	require.NoError(t, kp.Process(ctx, models.SignalRecord{ID: 1}))
	require.NoError(t, kp.ProcessBatch(ctx, []models.SignalRecord{{ID: 2}, {ID: 3}}))
	assert.Len(t, pub.sent, 3)
	assert.Empty(t, arch.stored)

	cp, err := NewSignalProcessor(pub, arch, metrics.Noop{}, BackendClickHouse)
	require.NoError(t, err)
	require.NoError(t, cp.Process(ctx, models.SignalRecord{ID: 4}))
	assert.Len(t, arch.stored, 1)

	cp.Close()
	assert.True(t, pub.closed)
}

func TestSignalProcessorWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	p, err := NewSignalProcessor(&fakePublisher{err: boom}, nil, metrics.Noop{}, BackendKafka)
	require.NoError(t, err)

	assert.ErrorIs(t, p.Process(context.Background(), models.SignalRecord{ID: 1}), boom)
}

func TestKafkaSignalsHandler(t *testing.T) {
	arch := &fakeArchive{}
	h := NewKafkaSignalsHandler("chartsignal.signals", arch, metrics.Noop{})
	assert.Equal(t, "chartsignal.signals", h.Topic())

	rec := statsRecord(9, models.ActionPut, 88, models.RiskMedium, statsBase)
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), b))
	require.Len(t, arch.stored, 1)
	assert.Equal(t, int64(9), arch.stored[0].ID)

	assert.Error(t, h.Handle(context.Background(), []byte("{")))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"id":1}`)))
}
