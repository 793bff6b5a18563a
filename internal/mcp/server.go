package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lox/qif-interchange/internal/commands"
	"github.com/lox/qif-interchange/internal/db"
	"github.com/lox/qif-interchange/internal/qif"
)

type Server struct {
	db     *db.DB
	logger *log.Logger
	now    func() time.Time
}

func New(db *db.DB, logger *log.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// MCPServer builds the tool server without starting a transport
func (s *Server) MCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"QIF Ledger",
		"1.0.0",
	)

	mcpServer.AddTool(mcp.NewTool("import_qif",
		mcp.WithDescription("Import a QIF file into the ledger"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the QIF file"),
		),
		mcp.WithString("date_format",
			mcp.Description("Date pattern such as M/d/yyyy, overrides the locale's patterns"),
		),
		mcp.WithString("culture",
			mcp.Description("Locale used to read dates and amounts, for example en-US"),
		),
		mcp.WithString("encoding",
			mcp.Description("Character encoding of the file (utf-8, windows-1252, iso-8859-1)"),
		),
	), s.importQIFHandler)

	mcpServer.AddTool(mcp.NewTool("list_transactions",
		mcp.WithDescription("List stored register transactions with optional filters"),
		mcp.WithString("kind",
			mcp.Description("Filter by register kind (Bank, Cash, CCard, Oth A, Oth L)"),
		),
		mcp.WithString("category",
			mcp.Description("Filter by category. Use list_categories tool to see available categories."),
		),
		mcp.WithString("days",
			mcp.Description("Number of days to look back (default: all)"),
		),
		mcp.WithString("limit",
			mcp.Description("Maximum number of results to return (default: 50)"),
		),
	), s.listTransactionsHandler)

	mcpServer.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List all categories with their transaction counts"),
	), s.listCategoriesHandler)

	return mcpServer
}

// Run serves the tools over stdio until the client disconnects
func (s *Server) Run() error {
	return server.ServeStdio(s.MCPServer())
}

// intArgument reads an integer argument that clients may send as a number or
// a string
func intArgument(args map[string]interface{}, name string, def int) (int, error) {
	val, ok := args[name]
	if !ok {
		return def, nil
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		if v == "" {
			return def, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", name, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number or string", name)
	}
}

func (s *Server) importQIFHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, ok := request.Params.Arguments["path"].(string)
	if !ok || path == "" {
		return nil, errors.New("path must be a string")
	}

	read := commands.ReadConfig{}
	read.DateFormat, _ = request.Params.Arguments["date_format"].(string)
	read.Culture, _ = request.Params.Arguments["culture"].(string)
	read.Encoding, _ = request.Params.Arguments["encoding"].(string)

	f, err := read.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := qif.NewCodec(read.Configuration(), s.logger).Import(f)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}

	summary, err := s.db.StoreDocument(ctx, path, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", path, err)
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Imported %s (import %s)\n", path, summary.ImportID)
	for _, c := range doc.Counts() {
		if c.Count == 0 {
			continue
		}
		kind := string(c.Kind)
		if kind == "" {
			kind = "Unrecognized blocks"
		}
		fmt.Fprintf(&result, "  %-20s %d\n", kind, c.Count)
	}
	fmt.Fprintf(&result, "Stored: %d, already present: %d, not stored: %d\n", summary.Stored, summary.Skipped, summary.Ignored)

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) listTransactionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days, err := intArgument(request.Params.Arguments, "days", 0)
	if err != nil {
		return nil, err
	}
	limit, err := intArgument(request.Params.Arguments, "limit", 50)
	if err != nil {
		return nil, err
	}

	opts := db.ListOptions{Limit: limit}
	if kind, _ := request.Params.Arguments["kind"].(string); kind != "" {
		opts.Kind = qif.Kind(kind)
	}
	opts.Category, _ = request.Params.Arguments["category"].(string)
	if days > 0 {
		opts.Since = s.now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)
	}

	entries, err := s.db.ListTransactions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var result strings.Builder
	for _, e := range entries {
		date := "(no date)"
		if !e.Date.IsZero() {
			date = e.Date.Format("2006-01-02")
		}
		amount := ""
		if e.Amount.Valid {
			amount = qif.FormatAmount(e.Amount.Decimal)
		}
		fmt.Fprintf(&result, "%s: %s - %s\n", date, amount, e.Payee)
		fmt.Fprintf(&result, "  Kind: %s\n", e.Kind)
		if e.Category != "" {
			fmt.Fprintf(&result, "  Category: %s\n", e.Category)
		}
		if e.Memo != "" {
			fmt.Fprintf(&result, "  Memo: %s\n", e.Memo)
		}
		if e.Number != "" {
			fmt.Fprintf(&result, "  Number: %s\n", e.Number)
		}
		for _, sp := range e.Splits {
			splitAmount := ""
			if sp.Amount.Valid {
				splitAmount = qif.FormatAmount(sp.Amount.Decimal)
			}
			fmt.Fprintf(&result, "  Split: %s %s %s\n", sp.Category, splitAmount, sp.Memo)
		}
		result.WriteString("\n")
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) listCategoriesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories, err := s.db.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	var result strings.Builder
	result.WriteString("Categories\n\n")

	var totalTransactions int
	for _, cat := range categories {
		var flags []string
		if cat.Income {
			flags = append(flags, "income")
		}
		if cat.Expense {
			flags = append(flags, "expense")
		}
		if cat.TaxRelated {
			flags = append(flags, "tax")
		}
		fmt.Fprintf(&result, "%-30s %d transactions", cat.Name, cat.Transactions)
		if len(flags) > 0 {
			fmt.Fprintf(&result, " (%s)", strings.Join(flags, ", "))
		}
		result.WriteString("\n")
		totalTransactions += cat.Transactions
	}

	fmt.Fprintf(&result, "\nTotal Categorized Transactions: %d\n", totalTransactions)

	return mcp.NewToolResultText(result.String()), nil
}
