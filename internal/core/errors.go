package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger wraps exactly one of these,
// so callers branch with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPersistence       = errors.New("persistence error")
)

var (
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidType         = fmt.Errorf("%w: type must be income or expense", ErrValidation)
	ErrEmptyAccount        = fmt.Errorf("%w: account id is required", ErrValidation)
	ErrEmptyCategory       = fmt.Errorf("%w: category id is required", ErrValidation)
	ErrNoteTooLong         = fmt.Errorf("%w: note too long (max %d characters)", ErrValidation, MaxNoteLength)
	ErrReservedCategory    = fmt.Errorf("%w: category is reserved", ErrValidation)
	ErrUnknownAccount      = fmt.Errorf("%w: unknown account", ErrValidation)
	ErrUnknownCategory     = fmt.Errorf("%w: unknown category", ErrValidation)
	ErrSameAccount         = fmt.Errorf("%w: source and destination accounts must differ", ErrValidation)
	ErrCurrencyMismatch    = fmt.Errorf("%w: accounts use different currencies", ErrValidation)
	ErrTransferLeg         = fmt.Errorf("%w: transfer entries cannot be deleted individually", ErrValidation)
	ErrInvalidPeriod       = fmt.Errorf("%w: period must be week, month or year", ErrValidation)
	ErrInvalidRange        = fmt.Errorf("%w: from must not be after to", ErrValidation)
	ErrEmptyName           = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNameTooLong         = fmt.Errorf("%w: name too long", ErrValidation)
	ErrDuplicateName       = fmt.Errorf("%w: name already in use", ErrValidation)
	ErrUnsupportedCurrency = fmt.Errorf("%w: unsupported currency", ErrValidation)
	ErrNegativeOpening     = fmt.Errorf("%w: opening balance must not be negative", ErrValidation)
	ErrInUse               = fmt.Errorf("%w: still referenced by ledger entries", ErrValidation)
)

// Persistence tags err as a persistence failure unless it already carries a
// ledger error kind.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Kind returns the ledger error kind wrapped by err, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrForbidden, ErrInsufficientFunds, ErrPersistence} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
