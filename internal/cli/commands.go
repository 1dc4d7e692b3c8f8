package cli

import (
	"fmt"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var (
		rollback int
		status   bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply every pending schema migration to the configured database.
Use --status to print the applied version or --rollback N to revert the last N migrations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storageCfg, err := backend.StorageConfig(a.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case status:
			case rollback > 0:
				if err := storage.RollbackMigrations(storageCfg.Dialect, storageCfg.DSN(), rollback); err != nil {
					return err
				}
				success(out, "Rolled back %d migration(s)", rollback)
			default:
				if _, err := a.repository(cmd.Context()); err != nil {
					return err
				}
			}

			version, dirty, ok, err := storage.MigrationVersion(storageCfg.Dialect, storageCfg.DSN())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprint(out, pterm.Info.Sprintfln("%s database has no migrations applied", storageCfg.Dialect))
				return nil
			}
			if dirty {
				return fmt.Errorf("schema version %d is dirty; fix it by hand before migrating again", version)
			}
			success(out, "%s schema at version %d", storageCfg.Dialect, version)
			return nil
		},
	}

	cmd.Flags().IntVar(&rollback, "rollback", 0, "Revert the last N migrations")
	cmd.Flags().BoolVar(&status, "status", false, "Only print the applied schema version")
	return cmd
}

func newAuditCmd(a *app) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check every cached account balance against its entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository(cmd.Context())
			if err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = a.cfg.AuditConcurrency
			}

			report, err := services.NewAuditService(repo, concurrency, a.logger).Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.OK() {
				success(out, "%d account(s) checked, no drift", report.Checked)
				return nil
			}

			data := pterm.TableData{{"Account", "Owner", "Cached", "Computed", "Difference"}}
			for _, d := range report.Drifts {
				data = append(data, []string{
					d.AccountID,
					d.OwnerID,
					d.Cached.StringFixed(core.MaxAmountScale),
					d.Computed.StringFixed(core.MaxAmountScale),
					pterm.Red(d.Cached.Sub(d.Computed).StringFixed(core.MaxAmountScale)),
				})
			}
			if err := renderTable(out, data); err != nil {
				return err
			}
			return fmt.Errorf("balance drift on %d of %d account(s)", len(report.Drifts), report.Checked)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Accounts audited in parallel (default AUDIT_CONCURRENCY)")
	return cmd
}

func newAccountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "List and create accounts",
	}
	cmd.AddCommand(newAccountsListCmd(a))
	cmd.AddCommand(newAccountsCreateCmd(a))
	return cmd
}

func newAccountsListCmd(a *app) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's accounts with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwnerFlag(owner); err != nil {
				return err
			}
			repo, err := a.repository(cmd.Context())
			if err != nil {
				return err
			}
			accounts, err := services.NewAccountService(repo, a.cfg.DefaultCurrency, a.logger).ListAccounts(cmd.Context(), owner)
			if err != nil {
				return err
			}

			data := pterm.TableData{{"ID", "Name", "Currency", "Balance"}}
			for _, acc := range accounts {
				balance := core.FormatAmount(acc.Balance, acc.Currency)
				if acc.Balance.IsNegative() {
					balance = pterm.Red(balance)
				}
				data = append(data, []string{acc.ID, acc.Name, acc.Currency, balance})
			}

			out := cmd.OutOrStdout()
			if err := renderTable(out, data); err != nil {
				return err
			}
			fmt.Fprint(out, pterm.Info.Sprintfln("Total: %d accounts", len(accounts)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Owner ID")
	return cmd
}

func newAccountsCreateCmd(a *app) *cobra.Command {
	var owner, name, currency, opening string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account, optionally with an opening balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwnerFlag(owner); err != nil {
				return err
			}
			in := core.NewAccount{Name: name, Currency: currency}
			if opening != "" {
				amount, err := core.ParseAmount(opening)
				if err != nil {
					return fmt.Errorf("invalid --opening %q: %w", opening, err)
				}
				in.OpeningBalance = amount
			}

			repo, err := a.repository(cmd.Context())
			if err != nil {
				return err
			}
			acc, err := services.NewAccountService(repo, a.cfg.DefaultCurrency, a.logger).CreateAccount(cmd.Context(), owner, in)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Created account %q (%s) with balance %s",
				acc.Name, acc.ID, core.FormatAmount(acc.Balance, acc.Currency))
			return nil
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Owner ID")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Account name")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO currency code (default DEFAULT_CURRENCY)")
	cmd.Flags().StringVar(&opening, "opening", "", "Opening balance")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTransferCmd(a *app) *cobra.Command {
	var owner, from, to, amount string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move funds between two accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwnerFlag(owner); err != nil {
				return err
			}
			value, err := core.ParseAmount(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}

			repo, err := a.repository(cmd.Context())
			if err != nil {
				return err
			}
			pub, err := a.eventPublisher()
			if err != nil {
				return err
			}

			res, err := services.NewLedgerService(repo, pub, a.logger).TransferFunds(cmd.Context(), owner, core.TransferRequest{
				FromAccountID: from,
				ToAccountID:   to,
				Amount:        value,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			data := pterm.TableData{
				{"Transfer", res.TransferID},
				{"Date", res.Date.Format(time.RFC3339)},
				{"Source balance", res.NewSourceBalance.StringFixed(core.MaxAmountScale)},
				{"Destination balance", res.NewDestinationBalance.StringFixed(core.MaxAmountScale)},
			}
			table, err := pterm.DefaultTable.WithData(data).Srender()
			if err != nil {
				return err
			}
			success(out, "Transferred %s", value.StringFixed(core.MaxAmountScale))
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Owner ID of the source account")
	cmd.Flags().StringVar(&from, "from", "", "Source account ID")
	cmd.Flags().StringVar(&to, "to", "", "Destination account ID")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to move")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		owner string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwnerFlag(owner); err != nil {
				return err
			}
			if a.cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			token, err := auth.NewJWT(a.cfg.JWTSecret, "").Issue(owner, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Owner ID (token subject)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
