package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type fakeKafkaWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSenderKeysByEventID(t *testing.T) {
	w := &fakeKafkaWriter{}
	pub := &queuePublisher{id: "k", typ: TypeKafka, sender: &kafkaSender{topic: "odds", writer: w, log: discardLogger{}}}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "evt-1" {
		t.Fatalf("key = %q", msg.Key)
	}
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["operation"] != "odds" || headers["sport_key"] != "basketball_nba" {
		t.Fatalf("unexpected headers %#v", headers)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !w.closed {
		t.Fatalf("writer was not closed")
	}
}

func TestKafkaSenderWriteError(t *testing.T) {
	w := &fakeKafkaWriter{err: errors.New("broker down")}
	s := &kafkaSender{topic: "odds", writer: w, log: discardLogger{}}
	if err := s.Send(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestNewKafkaPublisherRequiresConfig(t *testing.T) {
	if _, err := newKafkaPublisher(context.Background(), PublisherConfig{ID: "k", Type: TypeKafka}, nil); err == nil {
		t.Fatalf("expected error for missing kafka block")
	}
}
