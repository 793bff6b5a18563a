package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/shopspring/decimal"

	"github.com/lox/qif-interchange/internal/qif"
	"github.com/lox/qif-interchange/internal/types"
)

const dateLayout = "2006-01-02"

// DB represents a SQLite ledger database
type DB struct {
	db       *sql.DB
	logger   *log.Logger
	attempts uint
}

// ListOptions filters stored transactions
type ListOptions struct {
	// Kind limits results to one register kind, such as "Bank"
	Kind qif.Kind
	// Category matches the transaction category exactly
	Category string
	// Since excludes transactions dated before it
	Since time.Time
	// Limit caps the number of results, 0 means no limit
	Limit int
}

// New creates a new database connection
func New(dataDir string, logger *log.Logger) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "qif.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers inside this process
	db.SetMaxOpenConns(1)

	d := &DB{
		db:       db,
		logger:   logger,
		attempts: 5,
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db, logger.Debugf); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return d, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS imports (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			imported_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			import_id TEXT NOT NULL REFERENCES imports(id),
			kind TEXT NOT NULL,
			date TEXT,
			amount TEXT,
			cleared TEXT NOT NULL DEFAULT '',
			number TEXT NOT NULL DEFAULT '',
			payee TEXT NOT NULL DEFAULT '',
			memo TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS splits (
			transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			memo TEXT NOT NULL DEFAULT '',
			amount TEXT,
			PRIMARY KEY (transaction_id, seq)
		);

		CREATE TABLE IF NOT EXISTS categories (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			tax_related INTEGER NOT NULL DEFAULT 0,
			income INTEGER NOT NULL DEFAULT 0,
			expense INTEGER NOT NULL DEFAULT 0,
			budget TEXT,
			tax_schedule TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS classes (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create ledger tables: %w", err)
	}
	return nil
}

// isBusy reports whether err is a lock conflict worth retrying
func isBusy(err error) bool {
	return errors.Is(err, sqlite3.BUSY) || errors.Is(err, sqlite3.LOCKED)
}

// StoreDocument stores the register transactions, categories and classes of
// doc as one import. Transactions already present from an earlier import are
// skipped; investment and memorized transactions are counted as ignored.
func (d *DB) StoreDocument(ctx context.Context, source string, doc *qif.Document) (types.ImportSummary, error) {
	var summary types.ImportSummary

	err := retry.Do(
		func() error {
			var err error
			summary, err = d.storeDocument(ctx, source, doc)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(d.attempts),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Warn("Database busy, retrying", "source", source, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return types.ImportSummary{}, err
	}

	d.logger.Debug("Stored document", "source", source, "import_id", summary.ImportID,
		"stored", summary.Stored, "skipped", summary.Skipped, "ignored", summary.Ignored)
	return summary, nil
}

func (d *DB) storeDocument(ctx context.Context, source string, doc *qif.Document) (types.ImportSummary, error) {
	summary := types.ImportSummary{
		ImportID: uuid.NewString(),
		Source:   source,
		Ignored:  len(doc.InvestmentTransactions) + len(doc.MemorizedTransactions),
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO imports (id, source, imported_at) VALUES (?, ?, ?)`,
		summary.ImportID, source, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return summary, fmt.Errorf("failed to record import: %w", err)
	}

	for _, c := range doc.CategoryList {
		if c.Name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO categories (name, description, tax_related, income, expense, budget, tax_schedule)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.Name, c.Description, c.TaxRelated, c.IncomeCategory, c.ExpenseCategory, nullAmount(c.BudgetAmount), c.TaxSchedule); err != nil {
			return summary, fmt.Errorf("failed to store category %q: %w", c.Name, err)
		}
	}

	for _, c := range doc.ClassList {
		if c.Name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO classes (name, description) VALUES (?, ?)`,
			c.Name, c.Description); err != nil {
			return summary, fmt.Errorf("failed to store class %q: %w", c.Name, err)
		}
	}

	for _, kind := range qif.BasicKinds {
		seen := make(map[string]int)
		for _, t := range doc.Transactions(kind) {
			key := transactionKey(kind, t)
			id := generateTransactionID(key, seen[key])
			seen[key]++

			result, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO transactions (id, import_id, kind, date, amount, cleared, number, payee, memo, category)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, id, summary.ImportID, string(kind), nullDate(t.Date), nullAmount(t.Amount),
				t.ClearedStatus, t.Number, t.Payee, t.Memo, t.Category)
			if err != nil {
				return summary, fmt.Errorf("failed to store transaction: %w", err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return summary, fmt.Errorf("failed to get rows affected: %w", err)
			}
			if rowsAffected == 0 {
				d.logger.Debug("Transaction already stored", "id", id, "kind", kind, "payee", t.Payee)
				summary.Skipped++
				continue
			}

			for i, s := range t.Splits {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO splits (transaction_id, seq, category, memo, amount) VALUES (?, ?, ?, ?, ?)
				`, id, i, s.Category, s.Memo, nullAmount(s.Amount)); err != nil {
					return summary, fmt.Errorf("failed to store split: %w", err)
				}
			}
			summary.Stored++
		}
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("failed to commit import: %w", err)
	}
	return summary, nil
}

// transactionKey is the content a transaction is identified by
func transactionKey(kind qif.Kind, t qif.BasicTransaction) string {
	parts := []string{string(kind), nullDate(t.Date).String, nullAmount(t.Amount).String,
		t.Number, t.Payee, t.Memo, t.Category}
	for _, s := range t.Splits {
		parts = append(parts, s.Category, s.Memo, nullAmount(s.Amount).String)
	}
	return strings.Join(parts, "|")
}

// generateTransactionID hashes the transaction content together with how many
// identical transactions preceded it in the same file, so genuine duplicates
// within a file are kept while re-imports of the file are not.
func generateTransactionID(key string, occurrence int) string {
	h := sha256.New()
	h.Write([]byte(fmt.Sprintf("%s|%d", key, occurrence)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

// nullAmount stores amounts as text so their scale survives
func nullAmount(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: qif.FormatAmount(*d), Valid: true}
}

// Has checks if a transaction exists in the database
func (d *DB) Has(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM transactions WHERE id = ?)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction existence: %w", err)
	}

	return exists, nil
}

// Count returns the number of transactions in the database
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// ListTransactions returns stored transactions ordered by kind, date and the
// order they were stored in
func (d *DB) ListTransactions(ctx context.Context, opts ListOptions) ([]types.LedgerEntry, error) {
	query := `
		SELECT id, import_id, kind, date, amount, cleared, number, payee, memo, category
		FROM transactions
		WHERE 1=1`
	var args []interface{}

	if opts.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(opts.Kind))
	}
	if opts.Category != "" {
		query += ` AND category = ?`
		args = append(args, opts.Category)
	}
	if !opts.Since.IsZero() {
		query += ` AND date >= ?`
		args = append(args, opts.Since.Format(dateLayout))
	}
	query += ` ORDER BY kind, date, rowid`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	var entries []types.LedgerEntry
	for rows.Next() {
		var e types.LedgerEntry
		var date sql.NullString
		if err := rows.Scan(&e.ID, &e.ImportID, &e.Kind, &date, &e.Amount,
			&e.Cleared, &e.Number, &e.Payee, &e.Memo, &e.Category); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if date.Valid {
			e.Date, err = time.Parse(dateLayout, date.String)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to parse stored date %q: %w", date.String, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	rows.Close()

	// splits are loaded once the transaction rows are released, the pool
	// holds a single connection
	for i := range entries {
		splits, err := d.splits(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Splits = splits
	}

	return entries, nil
}

func (d *DB) splits(ctx context.Context, id string) ([]types.LedgerSplit, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT category, memo, amount FROM splits WHERE transaction_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query splits: %w", err)
	}
	defer rows.Close()

	var splits []types.LedgerSplit
	for rows.Next() {
		var s types.LedgerSplit
		if err := rows.Scan(&s.Category, &s.Memo, &s.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, s)
	}
	return splits, rows.Err()
}

// ListCategories returns every defined or used category with the number of
// stored transactions that reference it
func (d *DB) ListCategories(ctx context.Context) ([]types.CategorySummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT name, description, tax_related, income, expense, used FROM (
			SELECT c.name, c.description, c.tax_related, c.income, c.expense,
				(SELECT COUNT(*) FROM transactions t WHERE t.category = c.name) AS used
			FROM categories c
			UNION ALL
			SELECT t.category, '', 0, 0, 0, COUNT(*)
			FROM transactions t
			WHERE t.category != '' AND t.category NOT IN (SELECT name FROM categories)
			GROUP BY t.category
		)
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []types.CategorySummary
	for rows.Next() {
		var c types.CategorySummary
		if err := rows.Scan(&c.Name, &c.Description, &c.TaxRelated, &c.Income, &c.Expense, &c.Transactions); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// Document rebuilds a QIF document from the store: the class and category
// lists followed by the transactions selected by opts
func (d *DB) Document(ctx context.Context, opts ListOptions) (*qif.Document, error) {
	doc := &qif.Document{}

	var err error
	if doc.ClassList, err = d.classList(ctx); err != nil {
		return nil, err
	}
	if doc.CategoryList, err = d.categoryList(ctx); err != nil {
		return nil, err
	}

	entries, err := d.ListTransactions(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		t := qif.BasicTransaction{
			Date:          e.Date,
			Amount:        amountPtr(e.Amount),
			ClearedStatus: e.Cleared,
			Number:        e.Number,
			Payee:         e.Payee,
			Memo:          e.Memo,
			Category:      e.Category,
		}
		for _, s := range e.Splits {
			t.Splits = append(t.Splits, qif.Split{Category: s.Category, Memo: s.Memo, Amount: amountPtr(s.Amount)})
		}
		if err := doc.AddTransaction(qif.Kind(e.Kind), t); err != nil {
			return nil, fmt.Errorf("failed to rebuild transaction %s: %w", e.ID, err)
		}
	}

	return doc, nil
}

func (d *DB) classList(ctx context.Context) ([]qif.ClassListTransaction, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name, description FROM classes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	var classes []qif.ClassListTransaction
	for rows.Next() {
		var c qif.ClassListTransaction
		if err := rows.Scan(&c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classes: %w", err)
	}

	return classes, nil
}

func (d *DB) categoryList(ctx context.Context) ([]qif.CategoryListTransaction, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT name, description, tax_related, income, expense, budget, tax_schedule
		FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []qif.CategoryListTransaction
	for rows.Next() {
		var c qif.CategoryListTransaction
		var budget decimal.NullDecimal
		if err := rows.Scan(&c.Name, &c.Description, &c.TaxRelated, &c.IncomeCategory,
			&c.ExpenseCategory, &budget, &c.TaxSchedule); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.BudgetAmount = amountPtr(budget)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func amountPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
