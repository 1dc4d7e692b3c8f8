// Package memory keeps exported journal rows in process. The worker uses it
// when no spreadsheet is configured; tests use it as a JournalWriter fake.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	seen map[string]struct{}
	rows []sheets.JournalRow
}

var _ sheets.JournalWriter = (*Store)(nil)

func New() *Store {
	return &Store{seen: make(map[string]struct{})}
}

// AppendRows stores rows not seen before and reports how many were new.
func (s *Store) AppendRows(ctx context.Context, rows []sheets.JournalRow) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range rows {
		if _, dup := s.seen[r.Key]; dup {
			continue
		}
		s.seen[r.Key] = struct{}{}
		s.rows = append(s.rows, r)
		n++
	}
	return n, nil
}

// Rows returns a copy of everything written so far, in append order.
func (s *Store) Rows() []sheets.JournalRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.JournalRow(nil), s.rows...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
