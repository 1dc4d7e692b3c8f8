package services

import (
	"context"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultAuditConcurrency = 4

type AuditStore interface {
	UnitOfWork
	ListAllAccounts(ctx context.Context) ([]core.Account, error)
}

// Drift is an account whose cached balance differs from its entries.
type Drift struct {
	AccountID string
	OwnerID   string
	Cached    decimal.Decimal
	Computed  decimal.Decimal
}

type AuditReport struct {
	Checked    int
	Drifts     []Drift
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r AuditReport) OK() bool {
	return len(r.Drifts) == 0
}

// AuditService verifies that every account balance equals the sum of its
// signed entries.
type AuditService struct {
	store       AuditStore
	logger      *log.Logger
	concurrency int
}

func NewAuditService(store AuditStore, concurrency int, logger *log.Logger) *AuditService {
	if concurrency <= 0 {
		concurrency = defaultAuditConcurrency
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &AuditService{
		store:       store,
		logger:      logger.WithComponent(log.ComponentAudit),
		concurrency: concurrency,
	}
}

// Run checks all accounts. Each account is read in its own unit of work so
// the balance and the entry sum come from one consistent snapshot.
func (s *AuditService) Run(ctx context.Context) (AuditReport, error) {
	report := AuditReport{StartedAt: time.Now().UTC()}

	accounts, err := s.store.ListAllAccounts(ctx)
	if err != nil {
		return report, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, a := range accounts {
		id := a.ID
		g.Go(func() error {
			var d Drift
			err := s.store.WithinTx(gctx, func(tx storage.Tx) error {
				acc, err := tx.GetAccount(gctx, id)
				if err != nil {
					return err
				}
				sum, err := tx.SumAccountEntries(gctx, id)
				if err != nil {
					return err
				}
				d = Drift{AccountID: acc.ID, OwnerID: acc.OwnerID, Cached: acc.Balance, Computed: sum}
				return nil
			})
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checked++
			if !d.Cached.Equal(d.Computed) {
				report.Drifts = append(report.Drifts, d)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logFailure(ctx, s.logger, log.OpAudit, "", err)
		return report, err
	}

	report.FinishedAt = time.Now().UTC()
	for _, d := range report.Drifts {
		s.logger.ErrorContext(ctx, "Balance drift detected",
			log.FieldAccountID, d.AccountID,
			log.FieldOwnerID, d.OwnerID,
			"cached", d.Cached.String(),
			"computed", d.Computed.String())
	}
	s.logger.InfoContext(ctx, "Balance audit finished",
		"checked", report.Checked,
		"drifts", len(report.Drifts),
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}
