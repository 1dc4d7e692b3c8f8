package http

import (
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// Amounts leave the API as fixed two-decimal strings.
func amountString(d decimal.Decimal) string {
	return d.StringFixed(core.MaxAmountScale)
}

type entryRequest struct {
	Type       string      `json:"type"`
	Amount     amountInput `json:"amount"`
	CategoryID string      `json:"categoryId"`
	AccountID  string      `json:"accountId"`
	Date       string      `json:"date"`
	Note       string      `json:"note"`
}

func (r entryRequest) toNewEntry() (core.NewEntry, error) {
	t, err := core.ParseEntryType(r.Type)
	if err != nil {
		return core.NewEntry{}, err
	}
	amount, err := r.Amount.Positive()
	if err != nil {
		return core.NewEntry{}, err
	}
	in := core.NewEntry{
		Type:       t,
		Amount:     amount,
		CategoryID: sanitizeInput(r.CategoryID),
		AccountID:  sanitizeInput(r.AccountID),
		Note:       sanitizeInput(r.Note),
	}
	if r.Date != "" {
		if in.Date, _, err = parseDate(r.Date); err != nil {
			return core.NewEntry{}, err
		}
	}
	return in, nil
}

type transferRequest struct {
	FromAccountID string      `json:"fromAccountId"`
	ToAccountID   string      `json:"toAccountId"`
	Amount        amountInput `json:"amount"`
}

func (r transferRequest) toTransfer() (core.TransferRequest, error) {
	amount, err := r.Amount.Positive()
	if err != nil {
		return core.TransferRequest{}, err
	}
	return core.TransferRequest{
		FromAccountID: sanitizeInput(r.FromAccountID),
		ToAccountID:   sanitizeInput(r.ToAccountID),
		Amount:        amount,
	}, nil
}

type accountRequest struct {
	Name           string      `json:"name"`
	Currency       string      `json:"currency"`
	OpeningBalance amountInput `json:"openingBalance"`
}

type categoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type entryResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Amount     string    `json:"amount"`
	AccountID  string    `json:"accountId"`
	CategoryID string    `json:"categoryId"`
	Date       time.Time `json:"date"`
	Note       string    `json:"note,omitempty"`
	TransferID string    `json:"transferId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:         e.ID,
		Type:       string(e.Type),
		Amount:     amountString(e.Amount),
		AccountID:  e.AccountID,
		CategoryID: e.CategoryID,
		Date:       e.Date,
		Note:       e.Note,
		TransferID: e.TransferID,
		CreatedAt:  e.CreatedAt,
	}
}

func toEntryResponses(entries []core.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

type accountResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Currency         string    `json:"currency"`
	Balance          string    `json:"balance"`
	BalanceFormatted string    `json:"balanceFormatted"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:               a.ID,
		Name:             a.Name,
		Currency:         a.Currency,
		Balance:          amountString(a.Balance),
		BalanceFormatted: core.FormatAmount(a.Balance, a.Currency),
		CreatedAt:        a.CreatedAt,
	}
}

type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Type: string(c.Type), CreatedAt: c.CreatedAt}
}

type transferResponse struct {
	Success               bool      `json:"success"`
	TransferID            string    `json:"transferId"`
	Date                  time.Time `json:"date"`
	NewSourceBalance      string    `json:"newSourceBalance"`
	NewDestinationBalance string    `json:"newDestinationBalance"`
}

type categoryAmountResponse struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	Count      int    `json:"count"`
}

type summaryResponse struct {
	TotalIncome   string                   `json:"totalIncome"`
	TotalExpenses string                   `json:"totalExpenses"`
	Net           string                   `json:"net"`
	TotalBalance  string                   `json:"totalBalance"`
	IncomeTrend   string                   `json:"incomeTrend"`
	ExpenseTrend  string                   `json:"expenseTrend"`
	ByCategory    []categoryAmountResponse `json:"byCategory"`
}

func toSummaryResponse(s core.Summary) summaryResponse {
	out := summaryResponse{
		TotalIncome:   amountString(s.TotalIncome),
		TotalExpenses: amountString(s.TotalExpenses),
		Net:           amountString(s.Net),
		TotalBalance:  amountString(s.TotalBalance),
		IncomeTrend:   amountString(s.IncomeTrend),
		ExpenseTrend:  amountString(s.ExpenseTrend),
		ByCategory:    make([]categoryAmountResponse, 0, len(s.ByCategory)),
	}
	for _, c := range s.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryAmountResponse{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			Type:       string(c.Type),
			Amount:     amountString(c.Amount),
			Count:      c.Count,
		})
	}
	return out
}

type balancePointResponse struct {
	Date    string `json:"date"`
	Balance string `json:"balance"`
}

func toBalanceHistoryResponse(points []core.BalancePoint) []balancePointResponse {
	out := make([]balancePointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, balancePointResponse{Date: p.Date.Format(dateLayout), Balance: amountString(p.Balance)})
	}
	return out
}
