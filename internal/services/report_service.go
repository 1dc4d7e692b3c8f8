package services

import (
	"context"
	"sort"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"

	"github.com/shopspring/decimal"
)

type ReportStore interface {
	EntryReader
	ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
}

// Labels of the reserved categories in summaries.
const (
	TransferCategoryName       = "Transfers"
	OpeningBalanceCategoryName = "Opening balances"
)

// ReportService derives read-only views from the ledger.
type ReportService struct {
	store  ReportStore
	logger *log.Logger
	now    func() time.Time
}

func NewReportService(store ReportStore, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.Nop()
	}
	return &ReportService{
		store:  store,
		logger: logger.WithComponent(log.ComponentReport),
		now:    time.Now,
	}
}

// GetSummary totals the owner's entries within r. When r.From is set the
// summary also reports how the average income and expense amounts moved
// compared with the preceding period of the same length.
func (s *ReportService) GetSummary(ctx context.Context, ownerID string, r core.DateRange) (core.Summary, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Summary{}, err
	}
	if err := r.Validate(); err != nil {
		return core.Summary{}, err
	}

	entries, err := s.store.ListEntries(ctx, ownerID, core.EntryFilter{From: r.From, To: r.To})
	if err != nil {
		logFailure(ctx, s.logger, log.OpSummary, ownerID, err)
		return core.Summary{}, err
	}
	accounts, err := s.store.ListAccounts(ctx, ownerID)
	if err != nil {
		logFailure(ctx, s.logger, log.OpSummary, ownerID, err)
		return core.Summary{}, err
	}
	categories, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		logFailure(ctx, s.logger, log.OpSummary, ownerID, err)
		return core.Summary{}, err
	}

	sum := core.Summary{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		TotalBalance:  decimal.Zero,
		IncomeTrend:   decimal.Zero,
		ExpenseTrend:  decimal.Zero,
		ByCategory:    byCategory(entries, categoryNames(categories)),
	}
	for _, e := range entries {
		if e.Type == core.Income {
			sum.TotalIncome = sum.TotalIncome.Add(e.Amount)
		} else {
			sum.TotalExpenses = sum.TotalExpenses.Add(e.Amount)
		}
	}
	sum.Net = sum.TotalIncome.Sub(sum.TotalExpenses)
	for _, a := range accounts {
		sum.TotalBalance = sum.TotalBalance.Add(a.Balance)
	}

	if !r.From.IsZero() {
		if err := s.fillTrend(ctx, ownerID, r, entries, &sum); err != nil {
			return core.Summary{}, err
		}
	}
	return sum, nil
}

func (s *ReportService) fillTrend(ctx context.Context, ownerID string, r core.DateRange, current []core.Entry, sum *core.Summary) error {
	to := r.To
	if to.IsZero() {
		to = s.now().UTC()
	}
	length := to.Sub(r.From)
	if length < 0 {
		return nil
	}

	prior, err := s.store.ListEntries(ctx, ownerID, core.EntryFilter{
		From: r.From.Add(-length),
		To:   r.From.Add(-time.Millisecond),
	})
	if err != nil {
		logFailure(ctx, s.logger, log.OpSummary, ownerID, err)
		return err
	}

	var inWindow []core.Entry
	for _, e := range current {
		if !e.Date.After(to) {
			inWindow = append(inWindow, e)
		}
	}
	sum.IncomeTrend = average(inWindow, core.Income).Sub(average(prior, core.Income))
	sum.ExpenseTrend = average(inWindow, core.Expense).Sub(average(prior, core.Expense))
	return nil
}

// GetBalanceHistory returns the running net change of the owner's entries
// over the lookback window of p, one point per UTC day that has entries.
// The series starts from zero; it is not an absolute balance.
func (s *ReportService) GetBalanceHistory(ctx context.Context, ownerID string, p core.Period) ([]core.BalancePoint, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	start, err := p.Start(s.now().UTC())
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListEntries(ctx, ownerID, core.EntryFilter{From: start})
	if err != nil {
		logFailure(ctx, s.logger, log.OpHistory, ownerID, err)
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	points := make([]core.BalancePoint, 0)
	running := decimal.Zero
	for _, e := range entries {
		running = running.Add(e.SignedAmount())
		day := core.DayOf(e.Date)
		if n := len(points); n > 0 && points[n-1].Date.Equal(day) {
			points[n-1].Balance = running
			continue
		}
		points = append(points, core.BalancePoint{Date: day, Balance: running})
	}
	return points, nil
}

// categoryNames maps category ids to display names, reserved ids included.
func categoryNames(categories []core.Category) map[string]string {
	names := map[string]string{
		core.TransferCategory:       TransferCategoryName,
		core.OpeningBalanceCategory: OpeningBalanceCategoryName,
	}
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

// byCategory totals entries per category and type. A category that no
// longer resolves keeps its id as the name.
func byCategory(entries []core.Entry, names map[string]string) []core.CategoryAmount {
	type key struct {
		id  string
		typ core.EntryType
	}
	totals := make(map[key]*core.CategoryAmount)
	for _, e := range entries {
		k := key{e.CategoryID, e.Type}
		ca, ok := totals[k]
		if !ok {
			name, ok := names[e.CategoryID]
			if !ok {
				name = e.CategoryID
			}
			ca = &core.CategoryAmount{CategoryID: e.CategoryID, Name: name, Type: e.Type, Amount: decimal.Zero}
			totals[k] = ca
		}
		ca.Amount = ca.Amount.Add(e.Amount)
		ca.Count++
	}

	out := make([]core.CategoryAmount, 0, len(totals))
	for _, ca := range totals {
		out = append(out, *ca)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		if out[i].CategoryID != out[j].CategoryID {
			return out[i].CategoryID < out[j].CategoryID
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// average is the mean amount of entries of type t, rounded to cents. No
// entries average to zero.
func average(entries []core.Entry, t core.EntryType) decimal.Decimal {
	total := decimal.Zero
	n := 0
	for _, e := range entries {
		if e.Type == t {
			total = total.Add(e.Amount)
			n++
		}
	}
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(core.MaxAmountScale)
}
