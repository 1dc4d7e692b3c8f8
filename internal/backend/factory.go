// Package backend builds the infrastructure selected by configuration:
// the repository, the event publisher and consumer, the journal writer and
// the request authenticator.
package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/events"
	"fintrack/internal/events/kafka"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &Factory{logger: logger}
}

// OpenRepository connects to the configured database and migrates it.
func (f *Factory) OpenRepository(ctx context.Context, cfg *config.Config) (*storage.Repository, error) {
	storageCfg, err := StorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	repo, err := storage.Open(ctx, storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", storageCfg.Dialect, err)
	}
	f.logger.Info("Initialized repository", "backend", storageCfg.Dialect)
	return repo, nil
}

// NewPublisher returns the publisher for EVENTS_BACKEND. An unreachable AMQP
// broker is not fatal for the API: events are dropped with a warning.
func (f *Factory) NewPublisher(cfg *config.Config) (events.Publisher, error) {
	t, err := eventsType(cfg)
	if err != nil {
		return nil, err
	}

	switch t {
	case EventsAMQP:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			return events.NopPublisher{}, nil
		}
		f.logger.Info("Initialized AMQP publisher", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return client, nil
	case EventsKafka:
		f.logger.Info("Initialized Kafka publisher", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, f.logger), nil
	default:
		f.logger.Info("Ledger events disabled")
		return events.NopPublisher{}, nil
	}
}

// NewEventSource returns the consumer side of EVENTS_BACKEND for the worker.
func (f *Factory) NewEventSource(cfg *config.Config) (worker.EventSource, CleanupFunc, error) {
	t, err := eventsType(cfg)
	if err != nil {
		return nil, nil, err
	}

	switch t {
	case EventsAMQP:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to AMQP: %w", err)
		}
		return client, client.Close, nil
	case EventsKafka:
		c := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, f.logger)
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("events backend %q has nothing to consume; use amqp or kafka", t)
	}
}

// NewJournalWriter exports to Google Sheets when a spreadsheet is
// configured and keeps rows in memory otherwise.
func (f *Factory) NewJournalWriter(ctx context.Context, cfg *config.Config) (sheets.JournalWriter, error) {
	if !cfg.SheetsEnabled() {
		f.logger.Warn("GOOGLE_SPREADSHEET_ID not set, journal rows are kept in memory only")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, SheetsConfig(cfg), f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets journal", "sheet", cfg.GoogleSheetName)
	return client, nil
}

// NewAuthenticator returns the identity source for AUTH_MODE.
func (f *Factory) NewAuthenticator(cfg *config.Config) auth.Authenticator {
	if cfg.AuthMode == "header" {
		f.logger.Warn("Trusting the identity header; run behind an authenticating proxy", "header", auth.DefaultHeader)
		return auth.Header{}
	}
	return auth.NewJWT(cfg.JWTSecret, "")
}
