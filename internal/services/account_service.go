package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/google/uuid"
)

type AccountStore interface {
	UnitOfWork
	GetAccount(ctx context.Context, id string) (core.Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
}

// AccountService manages account metadata. Balances change only through the
// ledger; a positive opening balance is booked as an income entry.
type AccountService struct {
	store           AccountStore
	logger          *log.Logger
	defaultCurrency string
	now             func() time.Time
}

func NewAccountService(store AccountStore, defaultCurrency string, logger *log.Logger) *AccountService {
	if logger == nil {
		logger = log.Nop()
	}
	return &AccountService{
		store:           store,
		logger:          logger.WithComponent(log.ComponentAccount),
		defaultCurrency: core.NormalizeCurrency(defaultCurrency),
		now:             time.Now,
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, ownerID string, in core.NewAccount) (core.Account, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Account{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Currency = core.NormalizeCurrency(in.Currency)
	if in.Currency == "" {
		in.Currency = s.defaultCurrency
	}
	in.OpeningBalance = in.OpeningBalance.Round(core.MaxAmountScale)
	if err := in.Validate(); err != nil {
		return core.Account{}, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	acc := core.Account{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      in.Name,
		Currency:  in.Currency,
		CreatedAt: now,
	}

	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		taken, err := tx.AccountNameTaken(ctx, ownerID, acc.Name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %q", core.ErrDuplicateName, acc.Name)
		}
		if err := tx.InsertAccount(ctx, acc); err != nil {
			return err
		}
		if !in.OpeningBalance.IsPositive() {
			return nil
		}

		opening := core.Entry{
			ID:         uuid.NewString(),
			OwnerID:    ownerID,
			Type:       core.Income,
			Amount:     in.OpeningBalance,
			AccountID:  acc.ID,
			CategoryID: core.OpeningBalanceCategory,
			Date:       now,
			Note:       "Opening balance",
			CreatedAt:  now,
		}
		if err := tx.InsertEntry(ctx, opening); err != nil {
			return err
		}
		acc.Balance, err = tx.ApplyBalanceDelta(ctx, acc.ID, opening.Amount)
		return err
	})
	if err != nil {
		logFailure(ctx, s.logger, log.OpCreate, ownerID, err)
		return core.Account{}, err
	}

	s.logger.InfoContext(ctx, "Account created",
		log.FieldOwnerID, ownerID,
		log.FieldAccountID, acc.ID,
		"currency", acc.Currency,
		"opening_balance", acc.Balance.String())
	return acc, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	accounts, err := s.store.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	return accounts, nil
}

// GetAccount returns ErrNotFound for accounts owned by someone else.
func (s *AccountService) GetAccount(ctx context.Context, ownerID, id string) (core.Account, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Account{}, err
	}
	acc, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	if acc.OwnerID != ownerID {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return acc, nil
}

// DeleteAccount removes an account that no ledger entry references.
func (s *AccountService) DeleteAccount(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		acc, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if acc.OwnerID != ownerID {
			return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
		}
		used, err := tx.AccountHasEntries(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return core.ErrInUse
		}
		return tx.DeleteAccount(ctx, id, ownerID)
	})
	if err != nil {
		logFailure(ctx, s.logger, log.OpDelete, ownerID, err)
		return err
	}
	s.logger.InfoContext(ctx, "Account deleted", log.FieldOwnerID, ownerID, log.FieldAccountID, id)
	return nil
}
