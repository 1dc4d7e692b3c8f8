package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL of the ledger. Statements are written with ?
// placeholders and rebound for the dialect at execution time.
type Queries struct {
	db      DBTX
	dialect Dialect
	inTx    bool
}

func New(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect, inTx: true}
}

// lock returns the row-lock clause for reads made inside a unit of work.
func (q *Queries) lock() string {
	if !q.inTx {
		return ""
	}
	return q.dialect.lockClause()
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.dialect.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.dialect.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return q.db.QueryRowContext(ctx, q.dialect.rebind(query), args...)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// Accounts

const accountColumns = `id, owner_id, name, currency, balance, created_at`

func scanAccount(s scanner) (core.Account, error) {
	var (
		a       core.Account
		created int64
	)
	if err := s.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Currency, &a.Balance, &created); err != nil {
		return core.Account{}, err
	}
	a.CreatedAt = fromMillis(created)
	return a, nil
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

// GetAccount loads an account by id regardless of owner. Inside a postgres
// unit of work the row stays locked until commit.
func (q *Queries) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := scanAccount(q.queryRow(ctx, getAccount+q.lock(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, core.Persistence("get account", err)
	}
	return a, nil
}

const listAccounts = `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = ? ORDER BY name, id`

func (q *Queries) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := q.query(ctx, listAccounts, ownerID)
	if err != nil {
		return nil, core.Persistence("list accounts", err)
	}
	return collectAccounts(rows)
}

const listAllAccounts = `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`

func (q *Queries) ListAllAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.query(ctx, listAllAccounts)
	if err != nil {
		return nil, core.Persistence("list all accounts", err)
	}
	return collectAccounts(rows)
}

func collectAccounts(rows *sql.Rows) ([]core.Account, error) {
	defer rows.Close()
	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, core.Persistence("scan account", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistence("iterate accounts", err)
	}
	return out, nil
}

const insertAccount = `INSERT INTO accounts (id, owner_id, name, currency, balance, created_at) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertAccount(ctx context.Context, a core.Account) error {
	_, err := q.exec(ctx, insertAccount, a.ID, a.OwnerID, a.Name, a.Currency, a.Balance.String(), toMillis(a.CreatedAt))
	if isUniqueViolation(err) {
		return core.ErrDuplicateName
	}
	if err != nil {
		return core.Persistence("insert account", err)
	}
	return nil
}

const accountNameTaken = `SELECT COUNT(*) FROM accounts WHERE owner_id = ? AND name = ?`

func (q *Queries) AccountNameTaken(ctx context.Context, ownerID, name string) (bool, error) {
	return q.exists(ctx, "account name taken", accountNameTaken, ownerID, name)
}

const accountHasEntries = `SELECT COUNT(*) FROM entries WHERE account_id = ?`

func (q *Queries) AccountHasEntries(ctx context.Context, id string) (bool, error) {
	return q.exists(ctx, "account has entries", accountHasEntries, id)
}

const deleteAccount = `DELETE FROM accounts WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id, ownerID string) error {
	res, err := q.exec(ctx, deleteAccount, id, ownerID)
	if err != nil {
		return core.Persistence("delete account", err)
	}
	return expectOne(res, "account "+id)
}

const getBalance = `SELECT balance FROM accounts WHERE id = ?`

const setBalance = `UPDATE accounts SET balance = ? WHERE id = ?`

// ApplyBalanceDelta adds delta to the cached balance of an account and
// returns the new balance. It is the only writer of accounts.balance after
// an account is created. The sum is computed with decimal arithmetic so that
// TEXT balances in SQLite never pass through floating point.
func (q *Queries) ApplyBalanceDelta(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var current decimal.Decimal
	err := q.queryRow(ctx, getBalance+q.lock(), accountID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("account %s: %w", accountID, core.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, core.Persistence("read balance", err)
	}

	next := current.Add(delta)
	res, err := q.exec(ctx, setBalance, next.String(), accountID)
	if err != nil {
		return decimal.Zero, core.Persistence("update balance", err)
	}
	if err := expectOne(res, "account "+accountID); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

// Categories

const categoryColumns = `id, owner_id, name, type, created_at`

func scanCategory(s scanner) (core.Category, error) {
	var (
		c       core.Category
		typ     string
		created int64
	)
	if err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &typ, &created); err != nil {
		return core.Category{}, err
	}
	c.Type = core.EntryType(typ)
	c.CreatedAt = fromMillis(created)
	return c, nil
}

const getCategory = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(q.queryRow(ctx, getCategory, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, core.Persistence("get category", err)
	}
	return c, nil
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories WHERE owner_id = ? ORDER BY name, id`

func (q *Queries) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := q.query(ctx, listCategories, ownerID)
	if err != nil {
		return nil, core.Persistence("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, core.Persistence("scan category", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistence("iterate categories", err)
	}
	return out, nil
}

const insertCategory = `INSERT INTO categories (id, owner_id, name, type, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertCategory(ctx context.Context, c core.Category) error {
	_, err := q.exec(ctx, insertCategory, c.ID, c.OwnerID, c.Name, string(c.Type), toMillis(c.CreatedAt))
	if isUniqueViolation(err) {
		return core.ErrDuplicateName
	}
	if err != nil {
		return core.Persistence("insert category", err)
	}
	return nil
}

const categoryNameTaken = `SELECT COUNT(*) FROM categories WHERE owner_id = ? AND name = ?`

func (q *Queries) CategoryNameTaken(ctx context.Context, ownerID, name string) (bool, error) {
	return q.exists(ctx, "category name taken", categoryNameTaken, ownerID, name)
}

const categoryHasEntries = `SELECT COUNT(*) FROM entries WHERE owner_id = ? AND category_id = ?`

func (q *Queries) CategoryHasEntries(ctx context.Context, ownerID, id string) (bool, error) {
	return q.exists(ctx, "category has entries", categoryHasEntries, ownerID, id)
}

const deleteCategory = `DELETE FROM categories WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id, ownerID string) error {
	res, err := q.exec(ctx, deleteCategory, id, ownerID)
	if err != nil {
		return core.Persistence("delete category", err)
	}
	return expectOne(res, "category "+id)
}

// Entries

const entryColumns = `id, owner_id, type, amount, account_id, category_id, date, note, transfer_id, created_at`

func scanEntry(s scanner) (core.Entry, error) {
	var (
		e             core.Entry
		typ           string
		date, created int64
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &typ, &e.Amount, &e.AccountID, &e.CategoryID, &date, &e.Note, &e.TransferID, &created); err != nil {
		return core.Entry{}, err
	}
	e.Type = core.EntryType(typ)
	e.Date = fromMillis(date)
	e.CreatedAt = fromMillis(created)
	return e, nil
}

const insertEntry = `INSERT INTO entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertEntry(ctx context.Context, e core.Entry) error {
	_, err := q.exec(ctx, insertEntry,
		e.ID, e.OwnerID, string(e.Type), e.Amount.String(), e.AccountID, e.CategoryID,
		toMillis(e.Date), e.Note, e.TransferID, toMillis(e.CreatedAt))
	if err != nil {
		return core.Persistence("insert entry", err)
	}
	return nil
}

const deleteEntry = `DELETE FROM entries WHERE id = ? AND owner_id = ? RETURNING ` + entryColumns

// DeleteEntry removes an entry owned by ownerID and returns it. Absent and
// foreign entries both yield core.ErrNotFound.
func (q *Queries) DeleteEntry(ctx context.Context, id, ownerID string) (core.Entry, error) {
	e, err := scanEntry(q.queryRow(ctx, deleteEntry, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, core.Persistence("delete entry", err)
	}
	return e, nil
}

// ListEntries returns the owner's entries matching f, newest first.
func (q *Queries) ListEntries(ctx context.Context, ownerID string, f core.EntryFilter) ([]core.Entry, error) {
	var (
		where = []string{"owner_id = ?"}
		args  = []interface{}{ownerID}
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, toMillis(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, toMillis(f.To))
	}

	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` + strings.Join(where, " AND ") + ` ORDER BY date DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, core.Persistence("list entries", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, core.Persistence("scan entry", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistence("iterate entries", err)
	}
	return out, nil
}

const accountEntryAmounts = `SELECT type, amount FROM entries WHERE account_id = ?`

// SumAccountEntries returns the sum of signed entry amounts of an account.
func (q *Queries) SumAccountEntries(ctx context.Context, accountID string) (decimal.Decimal, error) {
	rows, err := q.query(ctx, accountEntryAmounts, accountID)
	if err != nil {
		return decimal.Zero, core.Persistence("sum entries", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var (
			typ    string
			amount decimal.Decimal
		)
		if err := rows.Scan(&typ, &amount); err != nil {
			return decimal.Zero, core.Persistence("scan entry amount", err)
		}
		sum = sum.Add(core.SignedDelta(core.EntryType(typ), amount))
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, core.Persistence("iterate entry amounts", err)
	}
	return sum, nil
}

func (q *Queries) exists(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	var n int64
	if err := q.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, core.Persistence(op, err)
	}
	return n > 0, nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return core.Persistence("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}
