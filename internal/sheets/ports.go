// Package sheets defines the journal export port and the mapping from ledger
// events to journal rows.
package sheets

import (
	"context"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"

	"github.com/shopspring/decimal"
)

// JournalRow is one line of the exported journal. Amount is signed from the
// account's point of view; a deleted entry is exported as a reversal row
// with the opposite sign.
type JournalRow struct {
	Key        string // unique per row: event id and entry id
	EventType  string
	OccurredAt time.Time
	OwnerID    string
	EntryID    string
	AccountID  string
	CategoryID string
	Type       string
	Amount     decimal.Decimal
	Date       time.Time
	TransferID string
	Note       string
}

// JournalWriter appends rows to an export target. Rows whose Key was already
// written are skipped so redelivered events never duplicate lines.
type JournalWriter interface {
	AppendRows(ctx context.Context, rows []JournalRow) (written int, err error)
}

// RowsFromEvent maps a ledger event to the rows it adds to the journal.
func RowsFromEvent(ev events.Event) []JournalRow {
	rows := make([]JournalRow, 0, len(ev.Entries))
	for _, p := range ev.Entries {
		e := p.Entry()
		amount := e.SignedAmount()
		if ev.Type == events.EntryDeleted {
			amount = amount.Neg()
		}
		owner := e.OwnerID
		if owner == "" {
			owner = ev.OwnerID
		}
		rows = append(rows, JournalRow{
			Key:        ev.ID + "/" + e.ID,
			EventType:  string(ev.Type),
			OccurredAt: ev.OccurredAt.UTC(),
			OwnerID:    owner,
			EntryID:    e.ID,
			AccountID:  e.AccountID,
			CategoryID: e.CategoryID,
			Type:       string(e.Type),
			Amount:     amount.Round(core.MaxAmountScale),
			Date:       e.Date.UTC(),
			TransferID: e.TransferID,
			Note:       e.Note,
		})
	}
	return rows
}
