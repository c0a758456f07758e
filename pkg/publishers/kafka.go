package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const kafkaWriteTimeout = 10 * time.Second

// kafkaWriter is the subset of *kafka.Writer used by kafkaSender.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaSender struct {
	topic  string
	writer kafkaWriter
	log    Logger
}

func newKafkaPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Kafka == nil {
		return nil, fmt.Errorf("publisher %q missing kafka configuration", cfg.ID)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: kafkaWriteTimeout,
	}

	return &queuePublisher{
		id:  cfg.ID,
		typ: TypeKafka,
		sender: &kafkaSender{
			topic:  cfg.Kafka.Topic,
			writer: writer,
			log:    ensureLogger(log),
		},
	}, nil
}

// Send writes the event keyed by its id so retries land on the same partition.
func (k *kafkaSender) Send(ctx context.Context, evt Event) error {
	payload, err := encodeEvent(evt)
	if err != nil {
		return err
	}

	attrs := evt.attributes()
	headers := make([]kafka.Header, 0, len(attrs))
	for key, v := range attrs {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	msg := kafka.Message{
		Key:     []byte(evt.ID),
		Value:   payload,
		Headers: headers,
		Time:    evt.FetchedAt,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.log.ErrorObj("kafka publisher send failed", "publisher_kafka_error", map[string]any{
			"topic":    k.topic,
			"event_id": evt.ID,
			"error":    err.Error(),
		})
		return fmt.Errorf("write kafka message: %w", err)
	}
	k.log.DebugObj("kafka publisher delivered event", "publisher_kafka_delivery", map[string]any{
		"topic":    k.topic,
		"event_id": evt.ID,
	})
	return nil
}

func (k *kafkaSender) Close() error {
	return k.writer.Close()
}
