package mcp

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/qif-interchange/internal/db"
)

const ledgerQIF = "!Type:Cat\nNGroceries\nE\n^\n" +
	"!Type:Bank\nD13/01/2013\nT-45,50\nPCorner Grocer\nLGroceries\n^\n" +
	"D20/01/2013\nT-150,00\nPCity Utilities\nSUtilities:Electric\n$-90,00\nSUtilities:Water\n$-60,00\n^\n"

func setupServer(t *testing.T) *Server {
	t.Helper()
	logger := log.New(io.Discard)

	store, err := db.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := New(store, logger)
	s.now = func() time.Time { return time.Date(2013, 1, 25, 12, 0, 0, 0, time.UTC) }
	return s
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, error) {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args

	result, err := handler(context.Background(), request)
	if err != nil {
		return "", err
	}
	require.Len(t, result.Content, 1)
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		return c.Text, nil
	case *mcp.TextContent:
		return c.Text, nil
	}
	t.Fatalf("unexpected content %T", result.Content[0])
	return "", nil
}

func writeLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.qif")
	require.NoError(t, os.WriteFile(path, []byte(ledgerQIF), 0644))
	return path
}

func TestImportQIF(t *testing.T) {
	s := setupServer(t)
	path := writeLedger(t)

	text, err := call(t, s.importQIFHandler, map[string]interface{}{"path": path, "culture": "fr-FR"})
	require.NoError(t, err)
	assert.Contains(t, text, "Stored: 2, already present: 0, not stored: 0")

	text, err = call(t, s.importQIFHandler, map[string]interface{}{"path": path, "culture": "fr-FR"})
	require.NoError(t, err)
	assert.Contains(t, text, "Stored: 0, already present: 2")
}

func TestImportQIFErrors(t *testing.T) {
	s := setupServer(t)
	path := writeLedger(t)

	_, err := call(t, s.importQIFHandler, map[string]interface{}{})
	assert.Error(t, err)

	// day 13 is not a month
	_, err = call(t, s.importQIFHandler, map[string]interface{}{"path": path, "culture": "en-US"})
	assert.ErrorContains(t, err, "13/01/2013")

	_, err = call(t, s.importQIFHandler, map[string]interface{}{"path": filepath.Join(t.TempDir(), "missing.qif")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListTransactions(t *testing.T) {
	s := setupServer(t)
	_, err := call(t, s.importQIFHandler, map[string]interface{}{"path": writeLedger(t), "date_format": "dd/MM/yyyy", "culture": "fr-FR"})
	require.NoError(t, err)

	text, err := call(t, s.listTransactionsHandler, map[string]interface{}{})
	require.NoError(t, err)
	assert.Contains(t, text, "2013-01-13: -45.50 - Corner Grocer")
	assert.Contains(t, text, "  Split: Utilities:Water -60.00")

	text, err = call(t, s.listTransactionsHandler, map[string]interface{}{"days": float64(7)})
	require.NoError(t, err)
	assert.NotContains(t, text, "Corner Grocer")
	assert.Contains(t, text, "City Utilities")

	text, err = call(t, s.listTransactionsHandler, map[string]interface{}{"category": "Groceries", "limit": "5"})
	require.NoError(t, err)
	assert.Contains(t, text, "Corner Grocer")
	assert.NotContains(t, text, "City Utilities")

	_, err = call(t, s.listTransactionsHandler, map[string]interface{}{"limit": "many"})
	assert.Error(t, err)
}

func TestListCategories(t *testing.T) {
	s := setupServer(t)
	_, err := call(t, s.importQIFHandler, map[string]interface{}{"path": writeLedger(t), "culture": "fr-FR"})
	require.NoError(t, err)

	text, err := call(t, s.listCategoriesHandler, nil)
	require.NoError(t, err)
	assert.Contains(t, text, "Groceries")
	assert.Contains(t, text, "1 transactions (expense)")
	assert.Contains(t, text, "Total Categorized Transactions: 1")
}

func TestIntArgument(t *testing.T) {
	args := map[string]interface{}{"a": 3, "b": float64(4), "c": "5", "d": true, "e": ""}

	for name, want := range map[string]int{"a": 3, "b": 4, "c": 5, "e": 9, "missing": 9} {
		got, err := intArgument(args, name, 9)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
	_, err := intArgument(args, "d", 9)
	assert.Error(t, err)
}
