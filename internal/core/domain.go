package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

// Reserved category ids. They are never stored in the categories table and
// cannot be used by callers when creating entries.
const (
	TransferCategory       = "transfer"
	OpeningBalanceCategory = "opening-balance"
)

const (
	MaxNoteLength         = 500
	MaxAccountNameLength  = 100
	MaxCategoryNameLength = 50
)

type (
	EntryType string

	Account struct {
		ID        string
		OwnerID   string
		Name      string
		Currency  string
		Balance   decimal.Decimal // cached sum of the account's signed entries
		CreatedAt time.Time
	}

	NewAccount struct {
		Name           string
		Currency       string
		OpeningBalance decimal.Decimal
	}

	Category struct {
		ID        string
		OwnerID   string
		Name      string
		Type      EntryType
		CreatedAt time.Time
	}

	NewCategory struct {
		Name string
		Type EntryType
	}

	// Entry is a single dated ledger record against exactly one account.
	Entry struct {
		ID         string
		OwnerID    string
		Type       EntryType
		Amount     decimal.Decimal // always positive; see SignedAmount
		AccountID  string
		CategoryID string
		Date       time.Time
		Note       string
		TransferID string // set on both legs of a transfer
		CreatedAt  time.Time
	}

	NewEntry struct {
		Type       EntryType
		Amount     decimal.Decimal
		CategoryID string
		AccountID  string
		Date       time.Time // zero means "now"
		Note       string
	}

	// EntryFilter enumerates every supported listing predicate. Set fields are
	// AND-combined; From and To are inclusive.
	EntryFilter struct {
		Type       EntryType
		CategoryID string
		AccountID  string
		From       time.Time
		To         time.Time
		Limit      int
	}

	TransferRequest struct {
		FromAccountID string
		ToAccountID   string
		Amount        decimal.Decimal
	}

	TransferResult struct {
		Success               bool
		TransferID            string
		Date                  time.Time
		NewSourceBalance      decimal.Decimal
		NewDestinationBalance decimal.Decimal
	}
)

// ParseEntryType accepts income or expense, case-insensitively.
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

// SignedDelta is the effect an entry of type t and amount has on its account.
func SignedDelta(t EntryType, amount decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return amount.Neg()
	}
	return amount
}

func IsReservedCategory(id string) bool {
	return id == TransferCategory || id == OpeningBalanceCategory
}

// SignedAmount returns +Amount for income and -Amount for expense.
func (e Entry) SignedAmount() decimal.Decimal {
	return SignedDelta(e.Type, e.Amount)
}

func (e Entry) IsTransferLeg() bool {
	return e.TransferID != ""
}

func (n NewEntry) Validate() error {
	if !n.Type.Valid() {
		return ErrInvalidType
	}
	if !n.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(n.AccountID) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(n.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if IsReservedCategory(n.CategoryID) {
		return ErrReservedCategory
	}
	if len([]rune(n.Note)) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

func (r TransferRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.FromAccountID) == "" || strings.TrimSpace(r.ToAccountID) == "" {
		return ErrEmptyAccount
	}
	if r.FromAccountID == r.ToAccountID {
		return ErrSameAccount
	}
	return nil
}

func (f EntryFilter) Validate() error {
	if f.Type != "" && !f.Type.Valid() {
		return ErrInvalidType
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return ErrInvalidRange
	}
	return nil
}

func (a NewAccount) Validate() error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len([]rune(name)) > MaxAccountNameLength {
		return ErrNameTooLong
	}
	if !IsSupportedCurrency(a.Currency) {
		return ErrUnsupportedCurrency
	}
	if a.OpeningBalance.IsNegative() {
		return ErrNegativeOpening
	}
	return nil
}

func (c NewCategory) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len([]rune(name)) > MaxCategoryNameLength {
		return ErrNameTooLong
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}
