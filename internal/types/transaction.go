package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is a register transaction as kept in the ledger store,
// independent of the QIF layout it was read from
type LedgerEntry struct {
	ID       string              `json:"id"`
	ImportID string              `json:"import_id"`
	Kind     string              `json:"kind"`
	Date     time.Time           `json:"date"`
	Amount   decimal.NullDecimal `json:"amount"`
	Cleared  string              `json:"cleared,omitempty"`
	Number   string              `json:"number,omitempty"`
	Payee    string              `json:"payee,omitempty"`
	Memo     string              `json:"memo,omitempty"`
	Category string              `json:"category,omitempty"`
	Splits   []LedgerSplit       `json:"splits,omitempty"`
}

// LedgerSplit is one line of a split transaction
type LedgerSplit struct {
	Category string              `json:"category,omitempty"`
	Memo     string              `json:"memo,omitempty"`
	Amount   decimal.NullDecimal `json:"amount"`
}

// CategorySummary describes a category and how many stored transactions use it
type CategorySummary struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	TaxRelated   bool   `json:"tax_related,omitempty"`
	Income       bool   `json:"income,omitempty"`
	Expense      bool   `json:"expense,omitempty"`
	Transactions int    `json:"transactions"`
}

// ImportSummary reports what a single store operation did
type ImportSummary struct {
	ImportID string `json:"import_id"`
	Source   string `json:"source"`
	Stored   int    `json:"stored"`
	Skipped  int    `json:"skipped"`
	Ignored  int    `json:"ignored"`
}
