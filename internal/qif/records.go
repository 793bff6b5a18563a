package qif

import (
	"time"

	"github.com/shopspring/decimal"
)

// Records are value snapshots. Optional amounts are nil when absent, optional
// dates are the zero time. Dates hold only a calendar day: reading yields UTC
// midnight, and writing keeps the year, month and day of the value in its own
// location, dropping the time of day. Extra keeps, in order, every field the kind does
// not model and every repeat of a single-valued tag.

// AccountListTransaction is one entry of an !Account block.
type AccountListTransaction struct {
	Name                 string           // N
	Type                 string           // T
	Description          string           // D
	CreditLimit          *decimal.Decimal // L
	StatementBalanceDate time.Time        // /
	StatementBalance     *decimal.Decimal // $
	Extra                []Field
}

// CategoryListTransaction is one entry of a !Type:Cat block. The flags are
// kept exactly as read; income and expense are not reconciled.
type CategoryListTransaction struct {
	Name            string           // N
	Description     string           // D
	TaxRelated      bool             // T
	IncomeCategory  bool             // I
	ExpenseCategory bool             // E
	BudgetAmount    *decimal.Decimal // B
	TaxSchedule     string           // R
	Extra           []Field
}

// ClassListTransaction is one entry of a !Type:Class block.
type ClassListTransaction struct {
	Name        string // N
	Description string // D
	Extra       []Field
}

// Split apportions part of a transaction to another category. Split amounts
// are not required to add up to the parent amount.
type Split struct {
	Category string           // S
	Memo     string           // E
	Amount   *decimal.Decimal // $
	Percent  *decimal.Decimal // %
}

// BasicTransaction is a register entry of a Bank, Cash, CCard, Oth A or
// Oth L block.
type BasicTransaction struct {
	Date          time.Time        // D, calendar day only
	Amount        *decimal.Decimal // T
	PreciseAmount *decimal.Decimal // U
	ClearedStatus string           // C
	Number        string           // N
	Payee         string           // P
	Memo          string           // M
	Address       []string         // A, one per line
	Category      string           // L
	Reimbursable  bool             // F
	Splits        []Split
	Extra         []Field
}

// Amortization holds the loan fields of a memorized payment as written.
type Amortization struct {
	FirstPaymentDate  string // 1
	TotalYears        string // 2
	PaymentsMade      string // 3
	PeriodsPerYear    string // 4
	InterestRate      string // 5
	CurrentBalance    string // 6
	OriginalLoanTotal string // 7
}

// MemorizedTransaction is one entry of a !Type:Memorized block.
type MemorizedTransaction struct {
	// Type is the K field: C check, D deposit, P payment, I investment,
	// E electronic payee.
	Type string
	BasicTransaction
	Amortization Amortization
}

// InvestmentTransaction is one entry of a !Type:Invst block.
type InvestmentTransaction struct {
	Date              time.Time        // D
	Action            string           // N
	Security          string           // Y
	Price             *decimal.Decimal // I
	Quantity          *decimal.Decimal // Q
	Amount            *decimal.Decimal // T
	PreciseAmount     *decimal.Decimal // U
	ClearedStatus     string           // C
	Payee             string           // P
	Memo              string           // M
	Commission        *decimal.Decimal // O
	TransferAccount   string           // L
	TransferredAmount *decimal.Decimal // $
	Extra             []Field
}

// RawBlock is a block with a header this package does not decode. It is
// written back verbatim.
type RawBlock struct {
	Header string
	Lines  []string
}
