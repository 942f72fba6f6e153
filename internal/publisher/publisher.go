// Package publisher fans persisted predictions out to downstream consumers.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"SignalSentinel/internal/model"
)

// Publisher delivers one persisted prediction.
type Publisher interface {
	Publish(ctx context.Context, rec model.PredictionRecord) error
	Close() error
}

// Event is the wire form of a published prediction.
type Event struct {
	ID             int64        `json:"id"`
	Instrument     string       `json:"instrument"`
	Signal         model.Signal `json:"signal"`
	PredictedPrice float64      `json:"predicted_price"`
	CreatedAt      time.Time    `json:"created_at"`
}

func NewEvent(rec model.PredictionRecord) Event {
	return Event{
		ID:             rec.ID,
		Instrument:     rec.Instrument,
		Signal:         rec.Signal,
		PredictedPrice: rec.PredictedPrice,
		CreatedAt:      rec.CreatedAt,
	}
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by instrument, so one instrument's
// signals stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Gzip,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, rec model.PredictionRecord) error {
	value, err := json.Marshal(NewEvent(rec))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(rec.Instrument),
		Value: value,
		Time:  rec.CreatedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, model.PredictionRecord) error { return nil }
func (Noop) Close() error { return nil }
