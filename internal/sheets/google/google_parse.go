package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Journal columns, A to L.
var columns = []string{
	"Key", "Event", "Occurred", "Date", "Owner", "Account",
	"Category", "Type", "Amount", "Transfer", "Entry", "Note",
}

const lastColumn = "L"

func headerRow() []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = c
	}
	return out
}

func rowValues(r sheets.JournalRow) []any {
	return []any{
		r.Key,
		r.EventType,
		r.OccurredAt.UTC().Format(time.RFC3339),
		r.Date.UTC().Format("2006-01-02"),
		r.OwnerID,
		r.AccountID,
		r.CategoryID,
		r.Type,
		r.Amount.StringFixed(core.MaxAmountScale),
		r.TransferID,
		r.EntryID,
		r.Note,
	}
}

// existingKeys collects column A, ignoring the header and blank cells.
func existingKeys(values [][]any) map[string]struct{} {
	keys := make(map[string]struct{}, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.EqualFold(v, columns[0]) {
			continue
		}
		keys[v] = struct{}{}
	}
	return keys
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
