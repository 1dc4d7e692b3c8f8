package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Tx is the unit-of-work handle passed to Repository.WithinTx. Every write of
// the ledger happens through it.
type Tx interface {
	GetAccount(ctx context.Context, id string) (core.Account, error)
	InsertAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, id, ownerID string) error
	AccountNameTaken(ctx context.Context, ownerID, name string) (bool, error)
	AccountHasEntries(ctx context.Context, id string) (bool, error)
	ApplyBalanceDelta(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error)

	GetCategory(ctx context.Context, id string) (core.Category, error)
	InsertCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id, ownerID string) error
	CategoryNameTaken(ctx context.Context, ownerID, name string) (bool, error)
	CategoryHasEntries(ctx context.Context, ownerID, id string) (bool, error)

	InsertEntry(ctx context.Context, e core.Entry) error
	DeleteEntry(ctx context.Context, id, ownerID string) (core.Entry, error)
	SumAccountEntries(ctx context.Context, accountID string) (decimal.Decimal, error)
}

var _ Tx = (*Queries)(nil)

const (
	defaultMaxRetries = 3
	retryBaseDelay    = 20 * time.Millisecond
)

type Config struct {
	Dialect     Dialect
	SQLitePath  string
	PostgresDSN string
	MaxRetries  int // serialization-failure retries per unit of work
}

// DSN returns the driver connection string for the configured dialect.
func (c Config) DSN() string {
	if c.Dialect == Postgres {
		return c.PostgresDSN
	}
	return SQLiteDSN(c.SQLitePath)
}

// SQLiteDSN builds the connection string used for every SQLite handle:
// write transactions take the database lock up front and wait for it
// instead of failing with SQLITE_BUSY.
func SQLiteDSN(path string) string {
	return "file:" + path +
		"?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)"
}

type Repository struct {
	db         *sql.DB
	dialect    Dialect
	queries    *Queries
	maxRetries int
}

// Open connects to the configured backend and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.Dialect == "" {
		cfg.Dialect = SQLite
	}
	if cfg.Dialect == SQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := cfg.DSN()
	db, err := sql.Open(cfg.Dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Dialect, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(cfg.Dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	return &Repository{
		db:         db,
		dialect:    cfg.Dialect,
		queries:    New(db, cfg.Dialect),
		maxRetries: retries,
	}, nil
}

// NewSQLiteRepository opens (creating if needed) a SQLite ledger at dbPath.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	return Open(context.Background(), Config{Dialect: SQLite, SQLitePath: dbPath})
}

func (r *Repository) Dialect() Dialect {
	return r.dialect
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.Persistence("ping", err)
	}
	return nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithinTx runs fn in one database transaction. The transaction is committed
// when fn returns nil and rolled back on any error or panic. Serialization
// failures are retried from the start with a short backoff.
func (r *Repository) WithinTx(ctx context.Context, fn func(Tx) error) error {
	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			slog.DebugContext(ctx, "Retrying unit of work", "attempt", attempt, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return core.Persistence("retry transaction", ctx.Err())
			case <-time.After(delay):
			}
		}

		err = r.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return core.Persistence(fmt.Sprintf("transaction failed after %d attempts", r.maxRetries+1), err)
}

func (r *Repository) runTx(ctx context.Context, fn func(Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, r.dialect.txOptions())
	if err != nil {
		return core.Persistence("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return core.Persistence("commit transaction", err)
	}
	return nil
}

// Read side. These run outside a unit of work.

func (r *Repository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	return r.queries.GetAccount(ctx, id)
}

func (r *Repository) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	return r.queries.ListAccounts(ctx, ownerID)
}

func (r *Repository) ListAllAccounts(ctx context.Context) ([]core.Account, error) {
	return r.queries.ListAllAccounts(ctx)
}

func (r *Repository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	return r.queries.ListCategories(ctx, ownerID)
}

func (r *Repository) ListEntries(ctx context.Context, ownerID string, f core.EntryFilter) ([]core.Entry, error) {
	return r.queries.ListEntries(ctx, ownerID, f)
}

func (r *Repository) SumAccountEntries(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return r.queries.SumAccountEntries(ctx, accountID)
}
