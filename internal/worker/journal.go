// Package worker holds the background jobs of ledger-worker: exporting
// ledger events to the journal and auditing account balances.
package worker

import (
	"context"
	"fmt"

	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// EventSource delivers ledger events until ctx is done.
type EventSource interface {
	Consume(ctx context.Context, handler events.Handler) error
}

// JournalExporter appends every delivered ledger event to the journal.
// Deletions become reversal rows; nothing already exported is rewritten.
type JournalExporter struct {
	writer sheets.JournalWriter
	logger *log.Logger
}

func NewJournalExporter(writer sheets.JournalWriter, logger *log.Logger) *JournalExporter {
	if logger == nil {
		logger = log.Nop()
	}
	return &JournalExporter{writer: writer, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleEvent implements events.Handler. An error leaves the event for
// redelivery; the writer skips rows it already has.
func (j *JournalExporter) HandleEvent(ctx context.Context, ev events.Event) error {
	rows := sheets.RowsFromEvent(ev)
	written, err := j.writer.AppendRows(ctx, rows)
	if err != nil {
		j.logger.ErrorContext(ctx, "Journal export failed",
			log.FieldOperation, log.OpExport,
			log.FieldEventType, ev.Type,
			"event_id", ev.ID,
			log.FieldError, err)
		return fmt.Errorf("export %s %s: %w", ev.Type, ev.ID, err)
	}

	j.logger.InfoContext(ctx, "Ledger event exported",
		log.FieldOperation, log.OpExport,
		log.FieldEventType, ev.Type,
		log.FieldOwnerID, ev.OwnerID,
		"event_id", ev.ID,
		"rows", len(rows),
		"written", written)
	return nil
}

// Run consumes src until ctx is done.
func (j *JournalExporter) Run(ctx context.Context, src EventSource) error {
	j.logger.InfoContext(ctx, "Journal exporter started")
	err := src.Consume(ctx, j.HandleEvent)
	j.logger.InfoContext(ctx, "Journal exporter stopped")
	return err
}
