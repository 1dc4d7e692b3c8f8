package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func TestCreateAccountBooksOpeningBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc, err := f.accounts.CreateAccount(ctx, "u1", core.NewAccount{Name: "  Checking ", Currency: "eur", OpeningBalance: dec("250.5")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acc.Name != "Checking" || acc.Currency != "EUR" || !acc.Balance.Equal(dec("250.5")) {
		t.Fatalf("unexpected account %+v", acc)
	}

	entries, err := f.ledger.ListTransactions(ctx, "u1", core.EntryFilter{AccountID: acc.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].CategoryID != core.OpeningBalanceCategory || entries[0].Type != core.Income {
		t.Fatalf("expected one opening entry, got %+v", entries)
	}
	f.assertInvariant(t, acc.ID)
}

func TestCreateAccountDefaults(t *testing.T) {
	f := newFixture(t)
	acc, err := f.accounts.CreateAccount(context.Background(), "u1", core.NewAccount{Name: "Cash"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acc.Currency != "USD" || !acc.Balance.IsZero() {
		t.Fatalf("unexpected defaults %+v", acc)
	}
	entries, _ := f.ledger.ListTransactions(context.Background(), "u1", core.EntryFilter{})
	if len(entries) != 0 {
		t.Fatalf("zero opening balance should not create entries, got %d", len(entries))
	}
}

func TestCreateAccountRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.account(t, "u1", "Cash", "0")

	cases := []struct {
		name string
		in   core.NewAccount
		want error
	}{
		{"duplicate name", core.NewAccount{Name: "Cash"}, core.ErrDuplicateName},
		{"empty name", core.NewAccount{Name: " "}, core.ErrEmptyName},
		{"unsupported currency", core.NewAccount{Name: "Pounds", Currency: "GBP"}, core.ErrUnsupportedCurrency},
		{"negative opening", core.NewAccount{Name: "Debt", OpeningBalance: dec("-1")}, core.ErrNegativeOpening},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.accounts.CreateAccount(ctx, "u1", tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// names are unique per owner only
	if _, err := f.accounts.CreateAccount(ctx, "u2", core.NewAccount{Name: "Cash"}); err != nil {
		t.Fatalf("other owner may reuse the name: %v", err)
	}
}

func TestGetAndDeleteAccountAreOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "u1", "Cash", "0")
	funded := f.account(t, "u1", "Funded", "10")

	if _, err := f.accounts.GetAccount(ctx, "u2", acc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.accounts.DeleteAccount(ctx, "u2", acc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.accounts.DeleteAccount(ctx, "u1", funded.ID); !errors.Is(err, core.ErrInUse) {
		t.Fatalf("expected in use, got %v", err)
	}
	if err := f.accounts.DeleteAccount(ctx, "u1", acc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	list, err := f.accounts.ListAccounts(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != funded.ID {
		t.Fatalf("unexpected accounts %+v", list)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "u1", "Cash", "0")
	food := f.category(t, "u1", "Food", core.Expense)
	f.category(t, "u1", "Bonus", core.Income)

	if _, err := f.categories.CreateCategory(ctx, "u1", core.NewCategory{Name: "Food", Type: core.Expense}); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	list, err := f.categories.ListCategories(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Bonus" || list[1].Name != "Food" {
		t.Fatalf("expected categories sorted by name, got %+v", list)
	}

	if _, err := f.ledger.CreateTransaction(ctx, "u1", core.NewEntry{Type: core.Expense, Amount: dec("1"), CategoryID: food.ID, AccountID: a.ID}); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if err := f.categories.DeleteCategory(ctx, "u1", food.ID); !errors.Is(err, core.ErrInUse) {
		t.Fatalf("expected in use, got %v", err)
	}
	if err := f.categories.DeleteCategory(ctx, "u2", food.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAuditFindsNoDriftAfterLedgerOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "u1", "A", "100")
	b := f.account(t, "u2", "B", "3")
	if _, err := f.ledger.TransferFunds(ctx, "u1", core.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: dec("33.3")}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	audit := NewAuditService(f.repo, 2, nil)
	report, err := audit.Run(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if report.Checked != 2 || !report.OK() {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestAuditReportsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "u1", "A", "100")

	// Corrupt the cached balance without a matching entry.
	err := f.repo.WithinTx(ctx, func(tx storage.Tx) error {
		_, err := tx.ApplyBalanceDelta(ctx, a.ID, dec("1"))
		return err
	})
	if err != nil {
		t.Fatalf("corrupt balance: %v", err)
	}

	report, err := NewAuditService(f.repo, 0, nil).Run(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if report.OK() || len(report.Drifts) != 1 {
		t.Fatalf("expected one drift, got %+v", report)
	}
	d := report.Drifts[0]
	if d.AccountID != a.ID || !d.Cached.Equal(dec("101")) || !d.Computed.Equal(dec("100")) {
		t.Fatalf("unexpected drift %+v", d)
	}
}
