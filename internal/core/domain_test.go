package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewEntryValidate(t *testing.T) {
	good := NewEntry{
		Type:       Expense,
		Amount:     decimal.RequireFromString("12.50"),
		CategoryID: "food",
		AccountID:  "acc-1",
		Note:       "lunch",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mod  func(*NewEntry)
		want error
	}{
		{"zero amount", func(e *NewEntry) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(e *NewEntry) { e.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"bad type", func(e *NewEntry) { e.Type = "refund" }, ErrInvalidType},
		{"no account", func(e *NewEntry) { e.AccountID = " " }, ErrEmptyAccount},
		{"no category", func(e *NewEntry) { e.CategoryID = "" }, ErrEmptyCategory},
		{"transfer category", func(e *NewEntry) { e.CategoryID = TransferCategory }, ErrReservedCategory},
		{"opening category", func(e *NewEntry) { e.CategoryID = OpeningBalanceCategory }, ErrReservedCategory},
		{"long note", func(e *NewEntry) { e.Note = strings.Repeat("x", MaxNoteLength+1) }, ErrNoteTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := good
			tc.mod(&e)
			err := e.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation kind, got %v", err)
			}
		})
	}
}

func TestSignedAmount(t *testing.T) {
	amt := decimal.RequireFromString("10.10")
	if got := (Entry{Type: Income, Amount: amt}).SignedAmount(); !got.Equal(amt) {
		t.Errorf("income: got %s", got)
	}
	if got := (Entry{Type: Expense, Amount: amt}).SignedAmount(); !got.Equal(amt.Neg()) {
		t.Errorf("expense: got %s", got)
	}
}

func TestParseEntryType(t *testing.T) {
	if got, err := ParseEntryType(" Income "); err != nil || got != Income {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := ParseEntryType("transfer"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestTransferRequestValidate(t *testing.T) {
	ok := TransferRequest{FromAccountID: "a", ToAccountID: "b", Amount: decimal.NewFromInt(1)}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	same := ok
	same.ToAccountID = "a"
	if err := same.Validate(); !errors.Is(err, ErrSameAccount) {
		t.Fatalf("expected ErrSameAccount, got %v", err)
	}
	zero := ok
	zero.Amount = decimal.Zero
	if err := zero.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestEntryFilterValidate(t *testing.T) {
	now := time.Now()
	if err := (EntryFilter{From: now, To: now.Add(-time.Hour)}).Validate(); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if err := (EntryFilter{Type: "x"}).Validate(); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if err := (EntryFilter{}).Validate(); err != nil {
		t.Fatalf("empty filter should be valid, got %v", err)
	}
}

func TestNewAccountValidate(t *testing.T) {
	cases := []struct {
		in   NewAccount
		want error
	}{
		{NewAccount{Name: "Cash", Currency: "USD"}, nil},
		{NewAccount{Name: "Cash", Currency: "EUR", OpeningBalance: decimal.NewFromInt(100)}, nil},
		{NewAccount{Name: "  ", Currency: "USD"}, ErrEmptyName},
		{NewAccount{Name: strings.Repeat("a", MaxAccountNameLength+1), Currency: "USD"}, ErrNameTooLong},
		{NewAccount{Name: "Cash", Currency: "GBP"}, ErrUnsupportedCurrency},
		{NewAccount{Name: "Cash", Currency: "USD", OpeningBalance: decimal.NewFromInt(-1)}, ErrNegativeOpening},
	}
	for i, tc := range cases {
		err := tc.in.Validate()
		if tc.want == nil && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestNewCategoryValidate(t *testing.T) {
	if err := (NewCategory{Name: "Food", Type: Expense}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (NewCategory{Name: strings.Repeat("f", MaxCategoryNameLength+1), Type: Expense}).Validate(); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
	if err := (NewCategory{Name: "Food"}).Validate(); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestPersistenceKeepsKind(t *testing.T) {
	if Persistence("op", nil) != nil {
		t.Fatal("nil error should stay nil")
	}
	err := Persistence("insert entry", errors.New("disk full"))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence kind, got %v", err)
	}
	nf := Persistence("get account", ErrNotFound)
	if Kind(nf) != ErrNotFound {
		t.Fatalf("expected not found to pass through, got %v", nf)
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		p    Period
		want time.Time
	}{
		{PeriodWeek, time.Date(2025, 3, 24, 12, 0, 0, 0, time.UTC)},
		{PeriodMonth, now.AddDate(0, -1, 0)},
		{PeriodYear, time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := tc.p.Start(now)
		if err != nil || !got.Equal(tc.want) {
			t.Errorf("%s: got %v (err=%v), want %v", tc.p, got, err, tc.want)
		}
	}
	if _, err := ParsePeriod("decade"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}
