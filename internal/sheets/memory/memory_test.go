package memory

import (
	"context"
	"testing"

	"fintrack/internal/sheets"
)

func TestAppendRowsSkipsDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()

	n, err := s.AppendRows(ctx, []sheets.JournalRow{{Key: "ev1/e1"}, {Key: "ev1/e2"}})
	if err != nil || n != 2 {
		t.Fatalf("first append: n=%d err=%v", n, err)
	}
	n, err = s.AppendRows(ctx, []sheets.JournalRow{{Key: "ev1/e2"}, {Key: "ev2/e1"}})
	if err != nil || n != 1 {
		t.Fatalf("second append: n=%d err=%v", n, err)
	}

	rows := s.Rows()
	if len(rows) != 3 || rows[2].Key != "ev2/e1" {
		t.Fatalf("rows=%+v", rows)
	}
	rows[0].Key = "mutated"
	if s.Rows()[0].Key != "ev1/e1" {
		t.Fatal("Rows must return a copy")
	}
}

func TestAppendRowsHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().AppendRows(ctx, []sheets.JournalRow{{Key: "k"}}); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
