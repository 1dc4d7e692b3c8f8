package cli

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"

	"github.com/shopspring/decimal"
)

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, log.ComponentWorker)
	if logger.Component() != log.ComponentWorker {
		t.Errorf("component = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}

	quiet := SetupLogger(&config.Config{LogLevel: "error"}, "")
	if quiet.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled at error level")
	}
	if quiet.Component() != log.ComponentApp {
		t.Errorf("default component = %q", quiet.Component())
	}
}

func TestReportMarkdown(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	md := reportMarkdown(reportInput{
		Owner:    "u1",
		Range:    core.DateRange{From: from},
		Period:   core.PeriodWeek,
		Currency: "USD",
		Summary: core.Summary{
			TotalIncome:   decimal.NewFromInt(1000),
			TotalExpenses: decimal.RequireFromString("250.5"),
			Net:           decimal.RequireFromString("749.5"),
			TotalBalance:  decimal.RequireFromString("749.5"),
			IncomeTrend:   decimal.NewFromInt(10),
			ExpenseTrend:  decimal.NewFromInt(-5),
			ByCategory: []core.CategoryAmount{
				{CategoryID: "c1", Name: "Salary | bonus", Type: core.Income, Amount: decimal.NewFromInt(1000), Count: 2},
				{CategoryID: "gone", Type: core.Expense, Amount: decimal.RequireFromString("250.5"), Count: 1},
			},
		},
		History: []core.BalancePoint{
			{Date: from, Balance: decimal.NewFromInt(12)},
		},
	})

	for _, want := range []string{
		"# Ledger report for u1",
		"_Range: since 2025-03-01 00:00_",
		"| Income | $1,000.00 |",
		"| Expenses | $250.50 |",
		"| Expense trend | -5.00 |",
		`| Salary \| bonus | income | 2 | $1,000.00 |`,
		"| gone | expense | 1 | $250.50 |",
		"## Balance history (week)",
		"| 2025-03-01 | 12.00 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestReportMarkdownEmpty(t *testing.T) {
	md := reportMarkdown(reportInput{Owner: "u1", Period: core.PeriodMonth, Currency: "EUR"})
	if strings.Contains(md, "trend") {
		t.Errorf("unbounded range should not print trends:\n%s", md)
	}
	if !strings.Contains(md, "No entries in range.") || !strings.Contains(md, "No entries in period.") {
		t.Errorf("expected empty-state lines:\n%s", md)
	}
}

func TestDescribeRange(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		r    core.DateRange
		want string
	}{
		{core.DateRange{}, "all time"},
		{core.DateRange{From: day(1)}, "since 2025-01-01 00:00"},
		{core.DateRange{To: day(2)}, "until 2025-01-02 00:00"},
		{core.DateRange{From: day(1), To: day(2)}, "2025-01-01 00:00 to 2025-01-02 00:00"},
	}
	for _, tt := range tests {
		if got := describeRange(tt.r); got != tt.want {
			t.Errorf("describeRange(%+v) = %q, want %q", tt.r, got, tt.want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	out, err := renderMarkdown("# Title\n\nbody text\n", "notty")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "body text") {
		t.Fatalf("unexpected render: %q", out)
	}
}
