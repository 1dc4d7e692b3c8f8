package sheets

import (
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"

	"github.com/shopspring/decimal"
)

func TestRowsFromEvent(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	expense := core.Entry{
		ID: "e1", OwnerID: "u1", Type: core.Expense, Amount: decimal.RequireFromString("12.40"),
		AccountID: "a1", CategoryID: "food", Date: at, Note: "lunch",
	}

	tests := []struct {
		name       string
		ev         events.Event
		wantAmount []string
		wantType   string
	}{
		{"created expense is negative", events.NewEntryCreated(expense, at), []string{"-12.4"}, "entry.created"},
		{"deleted expense is reversed", events.NewEntryDeleted(expense, at), []string{"12.4"}, "entry.deleted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := RowsFromEvent(tt.ev)
			if len(rows) != len(tt.wantAmount) {
				t.Fatalf("got %d rows", len(rows))
			}
			for i, r := range rows {
				if r.Amount.String() != tt.wantAmount[i] {
					t.Errorf("row %d amount %s, want %s", i, r.Amount, tt.wantAmount[i])
				}
				if r.EventType != tt.wantType || r.Key != tt.ev.ID+"/e1" || r.Note != "lunch" {
					t.Errorf("row %d: %+v", i, r)
				}
			}
		})
	}
}

func TestRowsFromTransfer(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	amount := decimal.RequireFromString("20")
	src := core.Entry{ID: "out", OwnerID: "u1", Type: core.Expense, Amount: amount, AccountID: "a1", CategoryID: core.TransferCategory, Date: at, TransferID: "t1", CreatedAt: at}
	dst := core.Entry{ID: "in", OwnerID: "u2", Type: core.Income, Amount: amount, AccountID: "b1", CategoryID: core.TransferCategory, Date: at, TransferID: "t1", CreatedAt: at}

	rows := RowsFromEvent(events.NewTransferCompleted("u1", src, dst))
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if !rows[0].Amount.Add(rows[1].Amount).IsZero() {
		t.Fatalf("transfer rows must cancel out: %s %s", rows[0].Amount, rows[1].Amount)
	}
	if rows[1].OwnerID != "u2" || rows[0].TransferID != "t1" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
