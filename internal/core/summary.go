package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period is a named lookback window ending now.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	}
	return "", ErrInvalidPeriod
}

// Start returns the first instant of the lookback window that ends at now.
func (p Period) Start(now time.Time) (time.Time, error) {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7), nil
	case PeriodMonth:
		return now.AddDate(0, -1, 0), nil
	case PeriodYear:
		return now.AddDate(-1, 0, 0), nil
	}
	return time.Time{}, ErrInvalidPeriod
}

// DateRange is an optional inclusive range; zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return ErrInvalidRange
	}
	return nil
}

// CategoryAmount is the total of one category and entry type.
type CategoryAmount struct {
	CategoryID string
	Name       string
	Type       EntryType
	Amount     decimal.Decimal
	Count      int
}

type Summary struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	Net           decimal.Decimal
	TotalBalance  decimal.Decimal
	IncomeTrend   decimal.Decimal
	ExpenseTrend  decimal.Decimal
	ByCategory    []CategoryAmount
}

// BalancePoint is the running net change at the end of one UTC day.
type BalancePoint struct {
	Date    time.Time
	Balance decimal.Decimal
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
