package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pool-ledger/internal/config"
)

// KafkaRecorder publishes records to a Kafka topic as JSON. The message key
// is kind:id, so duplicates from a replay land on the same partition and
// compacted topics keep one copy.
type KafkaRecorder struct {
	writer *kafka.Writer
}

// NewKafkaRecorder creates a record publisher
func NewKafkaRecorder(cfg *config.KafkaConfig) *KafkaRecorder {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaRecorder{writer: writer}
}

func (r *KafkaRecorder) Record(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.Kind + ":" + rec.ID),
		Value: data,
		Time:  time.Now(),
	})
}

func (r *KafkaRecorder) Close() error {
	return r.writer.Close()
}
