// Package events defines the ledger events published after a unit of work
// commits, and the Publisher port the transports implement.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	EntryCreated      Type = "entry.created"
	EntryDeleted      Type = "entry.deleted"
	TransferCompleted Type = "transfer.completed"
)

// Event is the envelope written to the broker. Amounts are encoded as JSON
// strings by decimal.Decimal.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OwnerID    string    `json:"owner_id"`
	OccurredAt time.Time `json:"occurred_at"`
	TransferID string    `json:"transfer_id,omitempty"`
	Entries    []Entry   `json:"entries"`
}

type Entry struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"owner_id"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	AccountID  string          `json:"account_id"`
	CategoryID string          `json:"category_id"`
	Date       time.Time       `json:"date"`
	Note       string          `json:"note,omitempty"`
	TransferID string          `json:"transfer_id,omitempty"`
}

// Publisher delivers events to a broker. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Handler processes one delivered event. Transports redeliver the event when
// it returns an error.
type Handler func(ctx context.Context, ev Event) error

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

func fromEntry(e core.Entry) Entry {
	return Entry{
		ID:         e.ID,
		OwnerID:    e.OwnerID,
		Type:       string(e.Type),
		Amount:     e.Amount,
		AccountID:  e.AccountID,
		CategoryID: e.CategoryID,
		Date:       e.Date,
		Note:       e.Note,
		TransferID: e.TransferID,
	}
}

func newEvent(t Type, ownerID string, at time.Time, entries ...core.Entry) Event {
	ev := Event{
		ID:         uuid.NewString(),
		Type:       t,
		OwnerID:    ownerID,
		OccurredAt: at.UTC(),
		Entries:    make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		ev.Entries = append(ev.Entries, fromEntry(e))
	}
	return ev
}

func NewEntryCreated(e core.Entry, at time.Time) Event {
	return newEvent(EntryCreated, e.OwnerID, at, e)
}

func NewEntryDeleted(e core.Entry, at time.Time) Event {
	return newEvent(EntryDeleted, e.OwnerID, at, e)
}

// NewTransferCompleted carries both legs, source first.
func NewTransferCompleted(ownerID string, source, destination core.Entry) Event {
	ev := newEvent(TransferCompleted, ownerID, source.CreatedAt, source, destination)
	ev.TransferID = source.TransferID
	return ev
}

// Key is the partition/routing key of an event: all events of one owner are
// ordered relative to each other.
func (e Event) Key() string {
	return e.OwnerID
}

func Encode(ev Event) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return b, nil
}

func Decode(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" || len(ev.Entries) == 0 {
		return Event{}, fmt.Errorf("decode event: missing type or entries")
	}
	return ev, nil
}

// Entry converts the payload back to a ledger entry.
func (e Entry) Entry() core.Entry {
	return core.Entry{
		ID:         e.ID,
		OwnerID:    e.OwnerID,
		Type:       core.EntryType(e.Type),
		Amount:     e.Amount,
		AccountID:  e.AccountID,
		CategoryID: e.CategoryID,
		Date:       e.Date,
		Note:       e.Note,
		TransferID: e.TransferID,
	}
}
