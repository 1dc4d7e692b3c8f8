package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/google/uuid"
)

// UnitOfWork runs fn atomically: all of its writes commit or none do.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(storage.Tx) error) error
}

type EntryReader interface {
	ListEntries(ctx context.Context, ownerID string, f core.EntryFilter) ([]core.Entry, error)
}

type LedgerStore interface {
	UnitOfWork
	EntryReader
}

// LedgerService creates and removes ledger entries and moves funds between
// accounts, keeping each account's cached balance equal to the sum of its
// entries.
type LedgerService struct {
	store     LedgerStore
	publisher events.Publisher
	logger    *log.Logger
	now       func() time.Time
}

func NewLedgerService(store LedgerStore, publisher events.Publisher, logger *log.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		now:       time.Now,
	}
}

// CreateTransaction records one income or expense entry and applies its
// signed amount to the account balance in the same unit of work.
func (s *LedgerService) CreateTransaction(ctx context.Context, ownerID string, in core.NewEntry) (core.Entry, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Entry{}, err
	}
	in.Amount = in.Amount.Round(core.MaxAmountScale)
	in.Note = strings.TrimSpace(in.Note)
	if err := in.Validate(); err != nil {
		s.logRejected(ctx, log.OpCreate, ownerID, err)
		return core.Entry{}, err
	}

	now := s.clock()
	date := now
	if !in.Date.IsZero() {
		date = in.Date.UTC().Truncate(time.Millisecond)
	}
	entry := core.Entry{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Type:       in.Type,
		Amount:     in.Amount,
		AccountID:  in.AccountID,
		CategoryID: in.CategoryID,
		Date:       date,
		Note:       in.Note,
		CreatedAt:  now,
	}

	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		if err := ownedAccount(ctx, tx, ownerID, entry.AccountID); err != nil {
			return err
		}
		if err := ownedCategory(ctx, tx, ownerID, entry.CategoryID); err != nil {
			return err
		}
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		_, err := tx.ApplyBalanceDelta(ctx, entry.AccountID, entry.SignedAmount())
		return err
	})
	if err != nil {
		s.logFailure(ctx, log.OpCreate, ownerID, err)
		return core.Entry{}, err
	}

	s.logger.InfoContext(ctx, "Ledger entry created", log.NewFields().
		WithOwner(ownerID).
		WithEntry(entry.ID, entry.AccountID, string(entry.Type), entry.Amount).
		ToSlice()...)
	s.publish(ctx, events.NewEntryCreated(entry, now))
	return entry, nil
}

// DeleteTransaction removes an entry owned by ownerID and reverses its effect
// on the account balance. Transfer legs cannot be removed on their own.
func (s *LedgerService) DeleteTransaction(ctx context.Context, ownerID, entryID string) (core.Entry, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Entry{}, err
	}
	if strings.TrimSpace(entryID) == "" {
		return core.Entry{}, fmt.Errorf("entry id is required: %w", core.ErrNotFound)
	}

	var removed core.Entry
	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		var err error
		removed, err = tx.DeleteEntry(ctx, entryID, ownerID)
		if err != nil {
			return err
		}
		if removed.IsTransferLeg() {
			return core.ErrTransferLeg
		}
		_, err = tx.ApplyBalanceDelta(ctx, removed.AccountID, removed.SignedAmount().Neg())
		return err
	})
	if err != nil {
		s.logFailure(ctx, log.OpDelete, ownerID, err)
		return core.Entry{}, err
	}

	s.logger.InfoContext(ctx, "Ledger entry deleted", log.NewFields().
		WithOwner(ownerID).
		WithEntry(removed.ID, removed.AccountID, string(removed.Type), removed.Amount).
		ToSlice()...)
	s.publish(ctx, events.NewEntryDeleted(removed, s.clock()))
	return removed, nil
}

// TransferFunds moves amount from one account to another as a mirrored pair
// of entries. Only the source account must belong to ownerID.
func (s *LedgerService) TransferFunds(ctx context.Context, ownerID string, req core.TransferRequest) (core.TransferResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.TransferResult{}, err
	}
	req.Amount = req.Amount.Round(core.MaxAmountScale)
	if err := req.Validate(); err != nil {
		s.logRejected(ctx, log.OpTransfer, ownerID, err)
		return core.TransferResult{}, err
	}

	now := s.clock()
	transferID := uuid.NewString()
	var (
		result      core.TransferResult
		source      core.Entry
		destination core.Entry
	)

	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		// Lock rows in id order so opposite transfers cannot deadlock.
		first, second := req.FromAccountID, req.ToAccountID
		if second < first {
			first, second = second, first
		}
		loaded := make(map[string]core.Account, 2)
		for _, id := range []string{first, second} {
			acc, err := tx.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			loaded[id] = acc
		}
		from, to := loaded[req.FromAccountID], loaded[req.ToAccountID]

		if from.OwnerID != ownerID {
			return fmt.Errorf("%w: account %s belongs to another owner", core.ErrForbidden, from.ID)
		}
		if from.Currency != to.Currency {
			return fmt.Errorf("%w (%s -> %s)", core.ErrCurrencyMismatch, from.Currency, to.Currency)
		}
		if from.Balance.LessThan(req.Amount) {
			return fmt.Errorf("%w: balance %s, requested %s", core.ErrInsufficientFunds, from.Balance, req.Amount)
		}

		if _, err := tx.ApplyBalanceDelta(ctx, from.ID, req.Amount.Neg()); err != nil {
			return err
		}
		if _, err := tx.ApplyBalanceDelta(ctx, to.ID, req.Amount); err != nil {
			return err
		}

		source = core.Entry{
			ID:         uuid.NewString(),
			OwnerID:    ownerID,
			Type:       core.Expense,
			Amount:     req.Amount,
			AccountID:  from.ID,
			CategoryID: core.TransferCategory,
			Date:       now,
			Note:       "Transfer to " + to.Name,
			TransferID: transferID,
			CreatedAt:  now,
		}
		destination = core.Entry{
			ID:         uuid.NewString(),
			OwnerID:    to.OwnerID,
			Type:       core.Income,
			Amount:     req.Amount,
			AccountID:  to.ID,
			CategoryID: core.TransferCategory,
			Date:       now,
			Note:       "Transfer from " + from.Name,
			TransferID: transferID,
			CreatedAt:  now,
		}
		if err := tx.InsertEntry(ctx, source); err != nil {
			return err
		}
		if err := tx.InsertEntry(ctx, destination); err != nil {
			return err
		}

		result = core.TransferResult{
			Success:               true,
			TransferID:            transferID,
			Date:                  now,
			NewSourceBalance:      from.Balance.Sub(req.Amount),
			NewDestinationBalance: to.Balance.Add(req.Amount),
		}
		return nil
	})
	if err != nil {
		s.logFailure(ctx, log.OpTransfer, ownerID, err)
		return core.TransferResult{}, err
	}

	s.logger.InfoContext(ctx, "Transfer completed",
		log.FieldOwnerID, ownerID,
		log.FieldTransferID, transferID,
		"from_account", req.FromAccountID,
		"to_account", req.ToAccountID,
		log.FieldAmount, req.Amount.String())
	s.publish(ctx, events.NewTransferCompleted(ownerID, source, destination))
	return result, nil
}

// ListTransactions returns the owner's entries matching f, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, ownerID string, f core.EntryFilter) ([]core.Entry, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, ownerID, f)
	if err != nil {
		s.logFailure(ctx, log.OpList, ownerID, err)
		return nil, err
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	return entries, nil
}

// publish runs after commit. A broker failure is logged and never fails the
// operation: the ledger is the source of truth.
func (s *LedgerService) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, string(ev.Type),
			log.FieldOwnerID, ev.OwnerID,
			log.FieldError, err)
	}
}

func (s *LedgerService) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *LedgerService) logRejected(ctx context.Context, op, ownerID string, err error) {
	s.logger.WarnContext(ctx, "Ledger operation rejected",
		log.FieldOperation, op, log.FieldOwnerID, ownerID, log.FieldError, err)
}

func (s *LedgerService) logFailure(ctx context.Context, op, ownerID string, err error) {
	logFailure(ctx, s.logger, op, ownerID, err)
}

// logFailure logs persistence failures at error level and business-rule
// rejections at warn level.
func logFailure(ctx context.Context, logger *log.Logger, op, ownerID string, err error) {
	fields := log.NewFields().WithOperation(op).WithOwner(ownerID).WithError(err)
	if kind := core.Kind(err); kind != nil {
		fields[log.FieldErrorKind] = kind.Error()
	}
	if errors.Is(err, core.ErrPersistence) || core.Kind(err) == nil {
		logger.ErrorContext(ctx, "Ledger operation failed", fields.ToSlice()...)
		return
	}
	logger.WarnContext(ctx, "Ledger operation rejected", fields.ToSlice()...)
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("%w: missing caller identity", core.ErrForbidden)
	}
	return nil
}

// ownedAccount checks that accountID exists and belongs to ownerID. Foreign
// and unknown accounts are indistinguishable to the caller.
func ownedAccount(ctx context.Context, tx storage.Tx, ownerID, accountID string) error {
	acc, err := tx.GetAccount(ctx, accountID)
	if errors.Is(err, core.ErrNotFound) || (err == nil && acc.OwnerID != ownerID) {
		return fmt.Errorf("%w: %s", core.ErrUnknownAccount, accountID)
	}
	return err
}

func ownedCategory(ctx context.Context, tx storage.Tx, ownerID, categoryID string) error {
	cat, err := tx.GetCategory(ctx, categoryID)
	if errors.Is(err, core.ErrNotFound) || (err == nil && cat.OwnerID != ownerID) {
		return fmt.Errorf("%w: %s", core.ErrUnknownCategory, categoryID)
	}
	return err
}
