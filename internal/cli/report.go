package cli

import (
	"fmt"
	"net/url"
	"strings"

	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/services"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newReportCmd(a *app) *cobra.Command {
	var owner, from, to, period, style string
	var raw bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print an owner's summary and balance history",
		Long: `Print the income and expense summary for an optional date range,
followed by the running balance history of the chosen period (week, month or year).
Dates are YYYY-MM-DD or RFC 3339; a day used as --to covers the whole day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwnerFlag(owner); err != nil {
				return err
			}
			r, err := apphttp.ParseDateRange(url.Values{"from": {from}, "to": {to}})
			if err != nil {
				return err
			}
			p, err := core.ParsePeriod(period)
			if err != nil {
				return fmt.Errorf("invalid --period %q: %w", period, err)
			}

			repo, err := a.repository(cmd.Context())
			if err != nil {
				return err
			}
			reports := services.NewReportService(repo, a.logger)
			sum, err := reports.GetSummary(cmd.Context(), owner, r)
			if err != nil {
				return err
			}
			history, err := reports.GetBalanceHistory(cmd.Context(), owner, p)
			if err != nil {
				return err
			}

			md := reportMarkdown(reportInput{
				Owner:    owner,
				Range:    r,
				Period:   p,
				Currency: a.cfg.DefaultCurrency,
				Summary:  sum,
				History:  history,
			})
			if raw {
				_, err = fmt.Fprint(cmd.OutOrStdout(), md)
				return err
			}

			out, err := renderMarkdown(md, style)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Owner ID")
	cmd.Flags().StringVar(&from, "from", "", "Start of the summary range")
	cmd.Flags().StringVar(&to, "to", "", "End of the summary range")
	cmd.Flags().StringVar(&period, "period", string(core.PeriodMonth), "Balance history period: week, month or year")
	cmd.Flags().StringVar(&style, "style", "auto", "glamour style (auto, dark, light, notty)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without rendering")
	return cmd
}

func renderMarkdown(md, style string) (string, error) {
	opt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render(md)
}

type reportInput struct {
	Owner    string
	Range    core.DateRange
	Period   core.Period
	Currency string
	Summary  core.Summary
	History  []core.BalancePoint
}

func reportMarkdown(in reportInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger report for %s\n\n", in.Owner)
	fmt.Fprintf(&b, "_Range: %s_\n\n", describeRange(in.Range))

	s := in.Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| | Amount |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Income | %s |\n", core.FormatAmount(s.TotalIncome, in.Currency))
	fmt.Fprintf(&b, "| Expenses | %s |\n", core.FormatAmount(s.TotalExpenses, in.Currency))
	fmt.Fprintf(&b, "| Net | %s |\n", core.FormatAmount(s.Net, in.Currency))
	fmt.Fprintf(&b, "| Total balance | %s |\n", core.FormatAmount(s.TotalBalance, in.Currency))
	if !in.Range.From.IsZero() {
		fmt.Fprintf(&b, "| Income trend | %s |\n", fixed(s.IncomeTrend))
		fmt.Fprintf(&b, "| Expense trend | %s |\n", fixed(s.ExpenseTrend))
	}
	b.WriteString("\n")

	b.WriteString("## By category\n\n")
	if len(s.ByCategory) == 0 {
		b.WriteString("No entries in range.\n\n")
	} else {
		b.WriteString("| Category | Type | Entries | Amount |\n|---|---|---:|---:|\n")
		for _, c := range s.ByCategory {
			name := c.Name
			if name == "" {
				name = c.CategoryID
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", escapeCell(name), c.Type, c.Count, core.FormatAmount(c.Amount, in.Currency))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Balance history (%s)\n\n", in.Period)
	if len(in.History) == 0 {
		b.WriteString("No entries in period.\n")
	} else {
		b.WriteString("| Day | Running net |\n|---|---:|\n")
		for _, p := range in.History {
			fmt.Fprintf(&b, "| %s | %s |\n", p.Date.Format("2006-01-02"), fixed(p.Balance))
		}
	}
	return b.String()
}

func describeRange(r core.DateRange) string {
	const layout = "2006-01-02 15:04"
	switch {
	case r.From.IsZero() && r.To.IsZero():
		return "all time"
	case r.From.IsZero():
		return "until " + r.To.Format(layout)
	case r.To.IsZero():
		return "since " + r.From.Format(layout)
	default:
		return r.From.Format(layout) + " to " + r.To.Format(layout)
	}
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(core.MaxAmountScale)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
