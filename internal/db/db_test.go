package db

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/qif-interchange/internal/qif"
)

const ledgerQIF = `!Type:Cat
NGroceries
E
^
!Type:Bank
D1/2/2013
T-45.50
PCorner Grocer
LGroceries
^
D1/13/2013
T2,500.00
PAcme Corp
LSalary
^
D1/20/2013
T-150.00
PCity Utilities
SUtilities:Electric
$-90.00
SUtilities:Water
$-60.00
^
!Type:CCard
D1/15/2013
T-19.99
PBookstore
LGroceries
^
`

const investmentQIF = `!Type:Invst
D1/14/2013
NBuy
YACME
T125.00
^
`

func setupTestDB(t *testing.T) (*DB, func()) {
	// Create a temporary directory for the test database
	tempDir, err := os.MkdirTemp("", "qif-interchange-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	// Create a logger that discards output
	logger := log.New(io.Discard)
	logger.SetLevel(log.DebugLevel)

	db, err := New(tempDir, logger)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

func parseDocument(t *testing.T, input string) *qif.Document {
	t.Helper()
	doc, err := qif.Import(strings.NewReader(input), qif.Configuration{CustomReadCultureInfo: "en-US"})
	require.NoError(t, err)
	return doc
}

func TestStoreDocument(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	summary, err := db.StoreDocument(ctx, "ledger.qif", parseDocument(t, ledgerQIF+investmentQIF))
	require.NoError(t, err)
	assert.NotEmpty(t, summary.ImportID)
	assert.Equal(t, "ledger.qif", summary.Source)
	assert.Equal(t, 4, summary.Stored)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 1, summary.Ignored)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestStoreDocumentIsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	first, err := db.StoreDocument(ctx, "ledger.qif", parseDocument(t, ledgerQIF))
	require.NoError(t, err)

	second, err := db.StoreDocument(ctx, "ledger.qif", parseDocument(t, ledgerQIF))
	require.NoError(t, err)
	assert.NotEqual(t, first.ImportID, second.ImportID)
	assert.Equal(t, 0, second.Stored)
	assert.Equal(t, 4, second.Skipped)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestStoreDocumentKeepsDuplicatesWithinFile(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	input := "!Type:Cash\nD2/1/2013\nT-3.50\nPCoffee\n^\nD2/1/2013\nT-3.50\nPCoffee\n^\n"

	summary, err := db.StoreDocument(ctx, "cash.qif", parseDocument(t, input))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Stored)

	summary, err = db.StoreDocument(ctx, "cash.qif", parseDocument(t, input))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Stored)
	assert.Equal(t, 2, summary.Skipped)
}

func TestHasTransaction(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := db.StoreDocument(ctx, "ledger.qif", parseDocument(t, ledgerQIF))
	require.NoError(t, err)

	entries, err := db.ListTransactions(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	exists, err := db.Has(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.Has(ctx, "0000000000000000")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransactionIDConsistency(t *testing.T) {
	tx := qif.BasicTransaction{Payee: "Coffee"}
	key := transactionKey(qif.KindCash, tx)

	assert.Equal(t, generateTransactionID(key, 0), generateTransactionID(key, 0))
	assert.NotEqual(t, generateTransactionID(key, 0), generateTransactionID(key, 1))
	assert.NotEqual(t, key, transactionKey(qif.KindBank, tx))
}

func TestListTransactions(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := db.StoreDocument(ctx, "ledger.qif", parseDocument(t, ledgerQIF))
	require.NoError(t, err)

	all, err := db.ListTransactions(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	var payees []string
	for _, e := range all {
		payees = append(payees, e.Payee)
	}
	assert.Equal(t, []string{"Corner Grocer", "Acme Corp", "City Utilities", "Bookstore"}, payees)

	utilities := all[2]
	assert.Equal(t, "Bank", utilities.Kind)
	assert.Equal(t, time.Date(2013, 1, 20, 0, 0, 0, 0, time.UTC), utilities.Date)
	require.Len(t, utilities.Splits, 2)
	assert.Equal(t, "Utilities:Electric", utilities.Splits[0].Category)
	assert.Equal(t, "-90.00", utilities.Splits[0].Amount.Decimal.StringFixed(2))
	assert.True(t, decimal.RequireFromString("-150.00").Equal(utilities.Amount.Decimal))

	tests := []struct {
		name string
		opts ListOptions
		want int
	}{
		{"by kind", ListOptions{Kind: qif.KindCreditCard}, 1},
		{"by category", ListOptions{Category: "Groceries"}, 2},
		{"since", ListOptions{Since: time.Date(2013, 1, 14, 0, 0, 0, 0, time.UTC)}, 2},
		{"limit", ListOptions{Limit: 3}, 3},
		{"no match", ListOptions{Kind: qif.KindLiability}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := db.ListTransactions(ctx, tt.opts)
			require.NoError(t, err)
			assert.Len(t, entries, tt.want)
		})
	}
}

func TestListCategories(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := db.StoreDocument(ctx, "ledger.qif", parseDocument(t, ledgerQIF))
	require.NoError(t, err)

	categories, err := db.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)

	assert.Equal(t, "Groceries", categories[0].Name)
	assert.True(t, categories[0].Expense)
	assert.False(t, categories[0].Income)
	assert.Equal(t, 2, categories[0].Transactions)

	assert.Equal(t, "Salary", categories[1].Name)
	assert.Equal(t, 1, categories[1].Transactions)
}

func TestDocumentRebuildsExport(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := db.StoreDocument(ctx, "ledger.qif", parseDocument(t, ledgerQIF+investmentQIF))
	require.NoError(t, err)

	rebuilt, err := db.Document(ctx, ListOptions{})
	require.NoError(t, err)

	var want, got bytes.Buffer
	require.NoError(t, qif.Export(parseDocument(t, ledgerQIF), &want))
	require.NoError(t, qif.Export(rebuilt, &got))
	assert.Equal(t, want.String(), got.String())
}

func TestReopenSkipsAppliedMigrations(t *testing.T) {
	tempDir := t.TempDir()
	logger := log.New(io.Discard)

	first, err := New(tempDir, logger)
	require.NoError(t, err)
	_, err = first.StoreDocument(context.Background(), "ledger.qif", parseDocument(t, ledgerQIF))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(tempDir, logger)
	require.NoError(t, err)
	defer second.Close()

	count, err := second.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestDocumentIncludesStoredLists(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	lists := "!Type:Class\nNWork\n^\nNHome\nDHousehold\n^\n!Type:Cat\nNSalary\nI\nB100.00\n^\n"

	_, err := db.StoreDocument(ctx, "ledger.qif", parseDocument(t, lists+ledgerQIF))
	require.NoError(t, err)

	rebuilt, err := db.Document(ctx, ListOptions{})
	require.NoError(t, err)

	require.Len(t, rebuilt.ClassList, 2)
	assert.Equal(t, "Home", rebuilt.ClassList[0].Name)
	assert.Equal(t, "Household", rebuilt.ClassList[0].Description)
	assert.Equal(t, "Work", rebuilt.ClassList[1].Name)

	require.Len(t, rebuilt.CategoryList, 2)
	assert.Equal(t, "Groceries", rebuilt.CategoryList[0].Name)
	assert.True(t, rebuilt.CategoryList[0].ExpenseCategory)
	assert.Nil(t, rebuilt.CategoryList[0].BudgetAmount)

	salary := rebuilt.CategoryList[1]
	assert.Equal(t, "Salary", salary.Name)
	assert.True(t, salary.IncomeCategory)
	require.NotNil(t, salary.BudgetAmount)
	assert.Equal(t, "100.00", salary.BudgetAmount.StringFixed(2))
}

func TestDocumentFailsOnCanceledContext(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.StoreDocument(context.Background(), "ledger.qif", parseDocument(t, ledgerQIF))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := db.Document(ctx, ListOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, doc)
}
