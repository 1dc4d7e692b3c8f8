// Package http exposes the ledger as a JSON API.
//
// This file holds the request decoding helpers: JSON bodies, amounts that
// arrive as strings or numbers, dates and list filters.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks a body that could not be decoded at all.
var errBadRequest = errors.New("bad request")

// decodeJSON reads one JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body too large", errBadRequest)
		default:
			return fmt.Errorf("%w: malformed JSON: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", errBadRequest)
	}
	return nil
}

// amountInput accepts "12.40", "12,40" or 12.4. The raw text is kept so
// that no float conversion ever happens.
type amountInput struct {
	raw string
	set bool
}

func (a *amountInput) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	a.set = true
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &a.raw)
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	a.raw = n.String()
	return nil
}

// Positive parses a strictly positive amount.
func (a amountInput) Positive() (decimal.Decimal, error) {
	if !a.set {
		return decimal.Zero, core.ErrInvalidAmount
	}
	return core.ParseAmount(a.raw)
}

// OrZero parses an optional amount that may be zero or negative; the
// service decides what is allowed.
func (a amountInput) OrZero() (decimal.Decimal, error) {
	raw := strings.TrimSpace(a.raw)
	if !a.set || raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", core.ErrValidation, a.raw)
	}
	return d, nil
}

const dateLayout = "2006-01-02"

// parseDate accepts a calendar day (UTC midnight) or an RFC 3339 instant.
func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, true, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), false, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD or RFC 3339)", core.ErrValidation, s)
}

// parseRangeBound parses an optional query bound. A calendar day used as an
// upper bound covers the whole day.
func parseRangeBound(q url.Values, key string, upper bool) (time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return time.Time{}, nil
	}
	t, dateOnly, err := parseDate(v)
	if err != nil {
		return time.Time{}, err
	}
	if upper && dateOnly {
		t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return t, nil
}

// ParseDateRange reads from and to from the query string.
func ParseDateRange(q url.Values) (core.DateRange, error) {
	from, err := parseRangeBound(q, "from", false)
	if err != nil {
		return core.DateRange{}, err
	}
	to, err := parseRangeBound(q, "to", true)
	if err != nil {
		return core.DateRange{}, err
	}
	return core.DateRange{From: from, To: to}, nil
}

// ParseEntryFilter reads the list filters of GET /transactions.
func ParseEntryFilter(q url.Values) (core.EntryFilter, error) {
	var f core.EntryFilter

	if v := strings.TrimSpace(q.Get("type")); v != "" {
		t, err := core.ParseEntryType(v)
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	f.CategoryID = sanitizeInput(q.Get("categoryId"))
	f.AccountID = sanitizeInput(q.Get("accountId"))

	r, err := ParseDateRange(q)
	if err != nil {
		return f, err
	}
	f.From, f.To = r.From, r.To

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("%w: limit must be an integer", core.ErrValidation)
		}
		f.Limit = n
	}
	return f, nil
}

// sanitizeInput trims and removes control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
