package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestSummaryTotalsAndCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "u1", "A", "0")
	salary := f.category(t, "u1", "Salary", core.Income)
	food := f.category(t, "u1", "Food", core.Expense)
	rent := f.category(t, "u1", "Rent", core.Expense)

	for _, e := range []core.NewEntry{
		{Type: core.Income, Amount: dec("2500"), CategoryID: salary.ID},
		{Type: core.Expense, Amount: dec("12.40"), CategoryID: food.ID},
		{Type: core.Expense, Amount: dec("7.60"), CategoryID: food.ID},
		{Type: core.Expense, Amount: dec("900"), CategoryID: rent.ID},
	} {
		e.AccountID = a.ID
		if _, err := f.ledger.CreateTransaction(ctx, "u1", e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	sum, err := f.reports.GetSummary(ctx, "u1", core.DateRange{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !sum.TotalIncome.Equal(dec("2500")) || !sum.TotalExpenses.Equal(dec("920")) || !sum.Net.Equal(dec("1580")) {
		t.Fatalf("totals: %+v", sum)
	}
	if !sum.TotalBalance.Equal(dec("1580")) {
		t.Fatalf("total balance %s", sum.TotalBalance)
	}
	if !sum.IncomeTrend.IsZero() || !sum.ExpenseTrend.IsZero() {
		t.Fatalf("unbounded range should have zero trend: %+v", sum)
	}

	want := []struct {
		id     string
		amount string
		count  int
	}{{salary.ID, "2500", 1}, {rent.ID, "900", 1}, {food.ID, "20", 2}}
	if len(sum.ByCategory) != len(want) {
		t.Fatalf("got %d categories", len(sum.ByCategory))
	}
	for i, w := range want {
		got := sum.ByCategory[i]
		if got.CategoryID != w.id || !got.Amount.Equal(dec(w.amount)) || got.Count != w.count {
			t.Errorf("position %d: got %+v, want %+v", i, got, w)
		}
	}
}

func TestSummaryNamesCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "u1", "A", "100")
	b := f.account(t, "u1", "B", "0")
	food := f.category(t, "u1", "Food", core.Expense)

	if _, err := f.ledger.CreateTransaction(ctx, "u1", core.NewEntry{Type: core.Expense, Amount: dec("5"), CategoryID: food.ID, AccountID: a.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.ledger.TransferFunds(ctx, "u1", core.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: dec("10")}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	sum, err := f.reports.GetSummary(ctx, "u1", core.DateRange{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	got := make(map[string]string)
	for _, c := range sum.ByCategory {
		got[c.CategoryID+"/"+string(c.Type)] = c.Name
	}
	want := map[string]string{
		food.ID + "/expense":                    "Food",
		core.TransferCategory + "/expense":      TransferCategoryName,
		core.TransferCategory + "/income":       TransferCategoryName,
		core.OpeningBalanceCategory + "/income": OpeningBalanceCategoryName,
	}
	if len(got) != len(want) {
		t.Fatalf("got categories %v", got)
	}
	for k, name := range want {
		if got[k] != name {
			t.Errorf("%s: name %q, want %q", k, got[k], name)
		}
	}
}

func TestSummaryEmptyIsZero(t *testing.T) {
	f := newFixture(t)
	sum, err := f.reports.GetSummary(context.Background(), "nobody", core.DateRange{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !sum.TotalIncome.IsZero() || !sum.TotalExpenses.IsZero() || !sum.Net.IsZero() || len(sum.ByCategory) != 0 {
		t.Fatalf("expected zero summary, got %+v", sum)
	}
}

func TestSummaryRangeAndTrend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "u1", "A", "0")
	inc := f.category(t, "u1", "Salary", core.Income)
	exp := f.category(t, "u1", "Food", core.Expense)

	day := func(d int) time.Time { return time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC) }
	for _, e := range []core.NewEntry{
		// prior period: Mar 1..10
		{Type: core.Income, Amount: dec("100"), CategoryID: inc.ID, Date: day(2)},
		{Type: core.Expense, Amount: dec("10"), CategoryID: exp.ID, Date: day(3)},
		{Type: core.Expense, Amount: dec("30"), CategoryID: exp.ID, Date: day(4)},
		// current period: Mar 11..20
		{Type: core.Income, Amount: dec("150"), CategoryID: inc.ID, Date: day(12)},
		{Type: core.Income, Amount: dec("250"), CategoryID: inc.ID, Date: day(13)},
		{Type: core.Expense, Amount: dec("50"), CategoryID: exp.ID, Date: day(14)},
		// after the range
		{Type: core.Expense, Amount: dec("999"), CategoryID: exp.ID, Date: day(25)},
	} {
		e.AccountID = a.ID
		if _, err := f.ledger.CreateTransaction(ctx, "u1", e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	from := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)
	sum, err := f.reports.GetSummary(ctx, "u1", core.DateRange{From: from, To: to})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !sum.TotalIncome.Equal(dec("400")) || !sum.TotalExpenses.Equal(dec("50")) {
		t.Fatalf("range totals: %+v", sum)
	}
	// income avg 200 vs 100, expense avg 50 vs 20
	if !sum.IncomeTrend.Equal(dec("100")) {
		t.Errorf("income trend %s, want 100", sum.IncomeTrend)
	}
	if !sum.ExpenseTrend.Equal(dec("30")) {
		t.Errorf("expense trend %s, want 30", sum.ExpenseTrend)
	}

	if _, err := f.reports.GetSummary(ctx, "u1", core.DateRange{From: to, To: from}); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestBalanceHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "u1", "A", "0")
	inc := f.category(t, "u1", "Salary", core.Income)
	exp := f.category(t, "u1", "Food", core.Expense)

	now := time.Date(2025, 6, 30, 18, 0, 0, 0, time.UTC)
	f.reports.now = func() time.Time { return now }

	at := func(d, h int) time.Time { return time.Date(2025, 6, d, h, 0, 0, 0, time.UTC) }
	for _, e := range []core.NewEntry{
		{Type: core.Income, Amount: dec("500"), CategoryID: inc.ID, Date: at(1, 9)}, // outside the week
		{Type: core.Income, Amount: dec("100"), CategoryID: inc.ID, Date: at(25, 9)},
		{Type: core.Expense, Amount: dec("20"), CategoryID: exp.ID, Date: at(25, 20)},
		{Type: core.Expense, Amount: dec("30"), CategoryID: exp.ID, Date: at(28, 7)},
	} {
		e.AccountID = a.ID
		if _, err := f.ledger.CreateTransaction(ctx, "u1", e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	points, err := f.reports.GetBalanceHistory(ctx, "u1", core.PeriodWeek)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []struct {
		day     time.Time
		balance string
	}{
		{time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC), "80"},
		{time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC), "50"},
	}
	if len(points) != len(want) {
		t.Fatalf("got %d points: %+v", len(points), points)
	}
	for i, w := range want {
		if !points[i].Date.Equal(w.day) || !points[i].Balance.Equal(dec(w.balance)) {
			t.Errorf("point %d: got %+v, want %v %s", i, points[i], w.day, w.balance)
		}
	}

	month, err := f.reports.GetBalanceHistory(ctx, "u1", core.PeriodMonth)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(month) != 3 || !month[len(month)-1].Balance.Equal(dec("550")) {
		t.Fatalf("month history: %+v", month)
	}
}

func TestBalanceHistoryEmptyWindow(t *testing.T) {
	f := newFixture(t)
	points, err := f.reports.GetBalanceHistory(context.Background(), "u1", core.PeriodYear)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if points == nil || len(points) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", points)
	}
}

func TestBalanceHistoryRejectsUnknownPeriod(t *testing.T) {
	f := newFixture(t)
	_, err := f.reports.GetBalanceHistory(context.Background(), "u1", core.Period("decade"))
	if !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("expected invalid period, got %v", err)
	}
}
