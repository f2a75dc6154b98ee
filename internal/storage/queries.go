package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneta/internal/core"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("record not found")

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds every statement the ledger issues. It is bound either to
// the pool (reads) or to a transaction (mutations).
type Queries struct {
	db      DBTX
	dialect Dialect
}

// New returns queries bound to db, written for dialect.
func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

// WithTx returns a copy of q that runs inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (q *Queries) rebind(query string) string {
	if q.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func mustAffect(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Wallets

const walletColumns = `id, user_id, name, type, currency, balance, initial_balance, created_at, updated_at`

func scanWallet(s rowScanner) (core.Wallet, error) {
	var w core.Wallet
	var typ string
	err := s.Scan(&w.ID, &w.UserID, &w.Name, &typ, &w.Currency, &w.Balance, &w.InitialBalance, &w.CreatedAt, &w.UpdatedAt)
	w.Type = core.WalletType(typ)
	return w, err
}

func (q *Queries) CreateWallet(ctx context.Context, w core.Wallet) error {
	_, err := q.exec(ctx, `INSERT INTO wallets (`+walletColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Name, string(w.Type), w.Currency, w.Balance, w.InitialBalance, w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	return err
}

// GetWallet returns ErrNotFound when no wallet has the id.
func (q *Queries) GetWallet(ctx context.Context, id string) (core.Wallet, error) {
	w, err := scanWallet(q.queryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ?`, id))
	return w, notFound(err)
}

func (q *Queries) ListWalletsByUser(ctx context.Context, userID string) ([]core.Wallet, error) {
	rows, err := q.query(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListUserIDs returns every user that owns at least one wallet.
func (q *Queries) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := q.query(ctx, `SELECT DISTINCT user_id FROM wallets ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (q *Queries) CountWalletsByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM wallets WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

type UpdateWalletParams struct {
	ID        string
	Name      string
	Type      core.WalletType
	Currency  string
	UpdatedAt time.Time
}

func (q *Queries) UpdateWalletDetails(ctx context.Context, arg UpdateWalletParams) error {
	return mustAffect(q.exec(ctx, `UPDATE wallets SET name = ?, type = ?, currency = ?, updated_at = ? WHERE id = ?`,
		arg.Name, string(arg.Type), arg.Currency, arg.UpdatedAt.UTC(), arg.ID))
}

func (q *Queries) SetWalletBalance(ctx context.Context, w core.Wallet) error {
	return mustAffect(q.exec(ctx, `UPDATE wallets SET balance = ?, updated_at = ? WHERE id = ?`,
		w.Balance, w.UpdatedAt.UTC(), w.ID))
}

func (q *Queries) DeleteWallet(ctx context.Context, id string) error {
	return mustAffect(q.exec(ctx, `DELETE FROM wallets WHERE id = ?`, id))
}

func (q *Queries) CountTransactionsByWallet(ctx context.Context, walletID string) (int64, error) {
	var n int64
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE wallet_id = ?`, walletID).Scan(&n)
	return n, err
}

func (q *Queries) CountMonthlyBalancesByWallet(ctx context.Context, walletID string) (int64, error) {
	var n int64
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM monthly_balances WHERE wallet_id = ?`, walletID).Scan(&n)
	return n, err
}

// Transactions

const transactionColumns = `t.id, t.user_id, t.wallet_id, t.type, t.amount, t.title, t.description, t.date,
	t.opening_balance, t.closing_balance, t.direction, t.counterpart_id, t.created_at, t.updated_at`

func scanTransaction(s rowScanner, extra ...interface{}) (core.Transaction, error) {
	var (
		t           core.Transaction
		typ         string
		direction   sql.NullString
		counterpart sql.NullString
	)
	dest := []interface{}{&t.ID, &t.UserID, &t.WalletID, &typ, &t.Amount, &t.Title, &t.Description, &t.Date,
		&t.OpeningBalance, &t.ClosingBalance, &direction, &counterpart, &t.CreatedAt, &t.UpdatedAt}
	err := s.Scan(append(dest, extra...)...)
	t.Type = core.TransactionType(typ)
	t.Direction = core.Direction(direction.String)
	t.CounterpartID = counterpart.String
	return t, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.exec(ctx, `INSERT INTO transactions (id, user_id, wallet_id, type, amount, title, description, date,
		opening_balance, closing_balance, direction, counterpart_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.WalletID, string(t.Type), t.Amount, t.Title, t.Description, t.Date.UTC(),
		t.OpeningBalance, t.ClosingBalance, nullString(string(t.Direction)), nullString(t.CounterpartID),
		t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	return err
}

func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(q.queryRow(ctx, `SELECT `+transactionColumns+` FROM transactions t WHERE t.id = ?`, id))
	return t, notFound(err)
}

// UpdateTransaction persists the mutable fields and the balance snapshot.
func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return mustAffect(q.exec(ctx, `UPDATE transactions SET amount = ?, title = ?, description = ?, date = ?,
		opening_balance = ?, closing_balance = ?, updated_at = ? WHERE id = ?`,
		t.Amount, t.Title, t.Description, t.Date.UTC(), t.OpeningBalance, t.ClosingBalance, t.UpdatedAt.UTC(), t.ID))
}

func (q *Queries) UpdateTransactionDetails(ctx context.Context, id, title, description string, updatedAt time.Time) error {
	return mustAffect(q.exec(ctx, `UPDATE transactions SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		title, description, updatedAt.UTC(), id))
}

func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	return mustAffect(q.exec(ctx, `DELETE FROM transactions WHERE id = ?`, id))
}

// ListTransactionsParams filters transaction listings. Empty fields are
// ignored; Start/End are inclusive.
type ListTransactionsParams struct {
	UserID   string
	WalletID string
	Type     core.TransactionType
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]core.TransactionRow, error) {
	var (
		where = []string{"t.user_id = ?"}
		args  = []interface{}{arg.UserID}
	)
	if arg.WalletID != "" {
		where = append(where, "t.wallet_id = ?")
		args = append(args, arg.WalletID)
	}
	if arg.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, string(arg.Type))
	}
	if !arg.Start.IsZero() {
		where = append(where, "t.date >= ?")
		args = append(args, arg.Start.UTC())
	}
	if !arg.End.IsZero() {
		where = append(where, "t.date <= ?")
		args = append(args, arg.End.UTC())
	}

	stmt := `SELECT ` + transactionColumns + `, w.name, w.type, w.currency
		FROM transactions t JOIN wallets w ON w.id = t.wallet_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY t.date DESC, t.created_at DESC, t.id`
	if arg.Limit > 0 {
		stmt += ` LIMIT ? OFFSET ?`
		args = append(args, arg.Limit, arg.Offset)
	}

	rows, err := q.query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.TransactionRow
	for rows.Next() {
		var (
			row     core.TransactionRow
			walletT string
		)
		row.Transaction, err = scanTransaction(rows, &row.WalletName, &walletT, &row.WalletCurrency)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		row.WalletType = core.WalletType(walletT)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListWalletTransactions returns a wallet's transactions oldest first.
func (q *Queries) ListWalletTransactions(ctx context.Context, walletID string) ([]core.Transaction, error) {
	rows, err := q.query(ctx, `SELECT `+transactionColumns+` FROM transactions t
		WHERE t.wallet_id = ? ORDER BY t.date, t.created_at, t.id`, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Monthly balances

const monthlyBalanceColumns = `id, user_id, wallet_id, year, month, opening_balance, total_income, total_expense,
	closing_balance, created_at, updated_at`

func scanMonthlyBalance(s rowScanner) (core.MonthlyBalance, error) {
	var m core.MonthlyBalance
	err := s.Scan(&m.ID, &m.UserID, &m.WalletID, &m.Year, &m.Month, &m.OpeningBalance, &m.TotalIncome,
		&m.TotalExpense, &m.ClosingBalance, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (q *Queries) GetMonthlyBalance(ctx context.Context, userID, walletID string, year, month int) (core.MonthlyBalance, error) {
	m, err := scanMonthlyBalance(q.queryRow(ctx, `SELECT `+monthlyBalanceColumns+` FROM monthly_balances
		WHERE user_id = ? AND wallet_id = ? AND year = ? AND month = ?`, userID, walletID, year, month))
	return m, notFound(err)
}

func (q *Queries) CreateMonthlyBalance(ctx context.Context, m core.MonthlyBalance) error {
	_, err := q.exec(ctx, `INSERT INTO monthly_balances (`+monthlyBalanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.WalletID, m.Year, m.Month, m.OpeningBalance, m.TotalIncome, m.TotalExpense,
		m.ClosingBalance, m.CreatedAt.UTC(), m.UpdatedAt.UTC())
	return err
}

// UpdateMonthlyBalance writes the opening balance, totals and closing
// balance of an existing row.
func (q *Queries) UpdateMonthlyBalance(ctx context.Context, m core.MonthlyBalance) error {
	return mustAffect(q.exec(ctx, `UPDATE monthly_balances SET opening_balance = ?, total_income = ?,
		total_expense = ?, closing_balance = ?, updated_at = ? WHERE id = ?`,
		m.OpeningBalance, m.TotalIncome, m.TotalExpense, m.ClosingBalance, m.UpdatedAt.UTC(), m.ID))
}

// DeleteMonthlyBalance removes one bucket by id.
func (q *Queries) DeleteMonthlyBalance(ctx context.Context, id string) error {
	return mustAffect(q.exec(ctx, `DELETE FROM monthly_balances WHERE id = ?`, id))
}

// ListMonthlyBalancesAfter returns the wallet's rows strictly later than
// (year, month), oldest first.
func (q *Queries) ListMonthlyBalancesAfter(ctx context.Context, userID, walletID string, year, month int) ([]core.MonthlyBalance, error) {
	return q.listMonthlyBalances(ctx, `SELECT `+monthlyBalanceColumns+` FROM monthly_balances
		WHERE user_id = ? AND wallet_id = ? AND (year > ? OR (year = ? AND month > ?))
		ORDER BY year, month`, userID, walletID, year, year, month)
}

// ListMonthlyBalancesParams selects rows of one user inside an inclusive
// period range. A zero From or To leaves that side open.
type ListMonthlyBalancesParams struct {
	UserID   string
	WalletID string
	From     core.Period
	To       core.Period
}

// ListMonthlyBalances returns matching rows newest first.
func (q *Queries) ListMonthlyBalances(ctx context.Context, arg ListMonthlyBalancesParams) ([]core.MonthlyBalance, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []interface{}{arg.UserID}
	)
	if arg.WalletID != "" {
		where = append(where, "wallet_id = ?")
		args = append(args, arg.WalletID)
	}
	if arg.From.Valid() {
		where = append(where, "(year * 100 + month) >= ?")
		args = append(args, arg.From.Year*100+arg.From.Month)
	}
	if arg.To.Valid() {
		where = append(where, "(year * 100 + month) <= ?")
		args = append(args, arg.To.Year*100+arg.To.Month)
	}
	return q.listMonthlyBalances(ctx, `SELECT `+monthlyBalanceColumns+` FROM monthly_balances
		WHERE `+strings.Join(where, " AND ")+` ORDER BY year DESC, month DESC, wallet_id`, args...)
}

func (q *Queries) listMonthlyBalances(ctx context.Context, stmt string, args ...interface{}) ([]core.MonthlyBalance, error) {
	rows, err := q.query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.MonthlyBalance
	for rows.Next() {
		m, err := scanMonthlyBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
