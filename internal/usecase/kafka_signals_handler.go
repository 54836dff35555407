package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ChartSignal/internal/domain/models"
	domrepo "ChartSignal/internal/domain/repository"
	pkgkafka "ChartSignal/pkg/kafka"
)

// KafkaSignalsHandler consumes published records and writes them to the archive.
type KafkaSignalsHandler struct {
	topic   string
	archive domrepo.Archive
	metrics domrepo.Metrics
}

func NewKafkaSignalsHandler(topic string, archive domrepo.Archive, metrics domrepo.Metrics) *KafkaSignalsHandler {
	return &KafkaSignalsHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *KafkaSignalsHandler) Topic() string { return h.topic }

func (h *KafkaSignalsHandler) Handle(ctx context.Context, b []byte) error {
	var rec models.SignalRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if rec.SessionID == "" || rec.Action == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("signal %d: missing session or action", rec.ID)
	}
	if !rec.CreatedAt.IsZero() {
		h.metrics.RecordLatency("archive_e2e", time.Since(rec.CreatedAt).Seconds())
	}

	start := time.Now()
	err := h.archive.Store(ctx, rec)
	h.metrics.RecordLatency("archive_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSignalsHandler)(nil)
