package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// app holds what ledgerctl commands share. The repository is opened on
// first use so that commands like token never touch the database.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	factory   *backend.Factory
	repo      *storage.Repository
	publisher events.Publisher
}

func (a *app) repository(ctx context.Context) (*storage.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	repo, err := a.factory.OpenRepository(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.repo = repo
	return repo, nil
}

func (a *app) eventPublisher() (events.Publisher, error) {
	if a.publisher != nil {
		return a.publisher, nil
	}
	p, err := a.factory.NewPublisher(a.cfg)
	if err != nil {
		return nil, err
	}
	a.publisher = p
	return p, nil
}

func (a *app) close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
}

// NewRootCmd builds the ledgerctl command tree. The returned func releases
// whatever the commands opened.
func NewRootCmd() (*cobra.Command, func()) {
	a := &app{}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Administer the fintrack ledger",
		Long:          `ledgerctl runs migrations and balance audits, manages accounts, moves funds and prints reports against the configured database.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = log.New(log.Config{
				Level:     log.ParseLevel(cfg.LogLevel),
				Format:    cfg.LogFormat,
				Component: log.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
			a.factory = backend.NewFactory(a.logger)
			return nil
		},
	}

	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newAuditCmd(a))
	root.AddCommand(newAccountsCmd(a))
	root.AddCommand(newTransferCmd(a))
	root.AddCommand(newReportCmd(a))
	root.AddCommand(newTokenCmd(a))

	return root, a.close
}

// Execute runs ledgerctl and exits non-zero on failure.
func Execute() {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	LoadEnvFile()
	root, cleanup := NewRootCmd()
	err := root.Execute()
	cleanup()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprint(w, pterm.Success.Sprintfln(format, args...))
}

func renderTable(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func requireOwnerFlag(owner string) error {
	if owner == "" {
		return fmt.Errorf("--owner is required")
	}
	return nil
}
