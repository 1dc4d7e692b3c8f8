// Package kafka carries ledger events over a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/events"
	"fintrack/internal/log"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	topic  string
	logger *log.Logger
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher writes to topic on brokers. Messages are keyed by owner and
// hash-balanced, so one owner's events stay on one partition in order.
func NewPublisher(brokers []string, topic string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic:  topic,
		logger: logger.WithComponent(log.ComponentKafka),
	}
}

func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	data, err := events.Encode(ev)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Key()),
		Value: data,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "event_id", Value: []byte(ev.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("write %s to %s: %w", ev.Type, p.topic, err)
	}

	p.logger.DebugContext(ctx, "Published ledger event",
		log.FieldEventType, ev.Type,
		log.FieldOwnerID, ev.OwnerID,
		"topic", p.topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
