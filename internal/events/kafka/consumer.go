package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/events"
	"fintrack/internal/log"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads ledger events as part of a consumer group. Offsets are
// committed only after the handler succeeds, so delivery is at least once.
type Consumer struct {
	reader     messageReader
	logger     *log.Logger
	retryDelay time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		}),
		logger:     logger.WithComponent(log.ComponentKafka),
		retryDelay: time.Second,
	}
}

// Consume blocks until ctx is done. A message the handler rejects is
// retried in place; undecodable messages are committed and skipped.
func (c *Consumer) Consume(ctx context.Context, handler events.Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		ev, err := events.Decode(msg.Value)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping undecodable message",
				log.FieldError, err, "partition", msg.Partition, "offset", msg.Offset)
		} else if err := c.handle(ctx, handler, ev); err != nil {
			return nil // context cancelled while retrying
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, handler events.Handler, ev events.Event) error {
	for {
		err := handler(ctx, ev)
		if err == nil {
			return nil
		}
		c.logger.ErrorContext(ctx, "Event handler failed, retrying",
			log.FieldError, err, log.FieldEventType, ev.Type, "event_id", ev.ID)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
