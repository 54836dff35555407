package repository

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"

	"ChartSignal/internal/domain/models"
	"ChartSignal/internal/domain/repository"
	pkgkafka "ChartSignal/pkg/kafka"
)

// SignalSchema tags every published record so consumers can reject foreign payloads.
const SignalSchema = "chartsignal.signal.v1"

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, rec models.SignalRecord) error {
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{signalMessage(rec)})
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, recs []models.SignalRecord) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(recs))
	for i, r := range recs {
		msgs[i] = signalMessage(r)
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// records of one session land on one partition
func signalMessage(rec models.SignalRecord) pkgkafka.Message {
	return pkgkafka.Message{
		Key:   []byte(rec.SessionID),
		Value: rec,
		Headers: []kafka.Header{
			pkgkafka.Header("schema", SignalSchema),
			pkgkafka.Header("signal_id", strconv.FormatInt(rec.ID, 10)),
			pkgkafka.Header("action", string(rec.Action)),
		},
	}
}
