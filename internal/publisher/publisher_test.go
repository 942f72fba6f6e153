package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"SignalSentinel/internal/model"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisherKeysByInstrument(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{writer: fw}
	rec := model.PredictionRecord{
		ID:             7,
		Instrument:     "USD_JPY",
		Signal:         model.SignalSell,
		PredictedPrice: 151.2,
		CreatedAt:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := p.Publish(context.Background(), rec); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(fw.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(fw.msgs))
	}
	if string(fw.msgs[0].Key) != "USD_JPY" {
		t.Errorf("key = %q", fw.msgs[0].Key)
	}
	var ev Event
	if err := json.Unmarshal(fw.msgs[0].Value, &ev); err != nil {
		t.Fatalf("value not JSON: %v", err)
	}
	if ev.ID != 7 || ev.Signal != model.SignalSell || ev.PredictedPrice != 151.2 {
		t.Errorf("event = %+v", ev)
	}
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &fakeWriter{err: boom}}
	if err := p.Publish(context.Background(), model.PredictionRecord{Instrument: "EUR_USD"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped broker error", err)
	}
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "signals"); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, ""); err == nil {
		t.Error("expected error without topic")
	}
}
