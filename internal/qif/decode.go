package qif

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	accountTags    = "NTDL/$"
	categoryTags   = "NDTIEBR"
	classTags      = "ND"
	basicTags      = "DTUCNPMLF"
	memorizedTags  = basicTags + "K1234567"
	investmentTags = "DNYIQTUCPMOL$"
	// repeatable in register entries
	basicMultiTags = "ASE$%"
)

// fieldTracker routes fields a record does not model, and repeats of
// single-valued tags, to the record's Extra list.
type fieldTracker struct {
	seen  map[rune]bool
	extra []Field
}

func newFieldTracker() *fieldTracker {
	return &fieldTracker{seen: make(map[rune]bool)}
}

// accept reports whether f should be decoded into a modeled field.
func (t *fieldTracker) accept(f Field, single, multi string) bool {
	if strings.ContainsRune(multi, f.Tag) {
		return true
	}
	if !strings.ContainsRune(single, f.Tag) || t.seen[f.Tag] {
		t.extra = append(t.extra, f)
		return false
	}
	t.seen[f.Tag] = true
	return true
}

func decodeBlock(doc *Document, p DatePolicy, b Block) error {
	if b.Kind == "" {
		doc.Unknown = append(doc.Unknown, RawBlock{
			Header: b.Header,
			Lines:  append([]string(nil), b.Lines...),
		})
		return nil
	}
	for i, record := range b.Records() {
		if err := decodeRecord(doc, p, b.Kind, SplitFields(record)); err != nil {
			return fmt.Errorf("%s block at line %d, record %d: %w", b.Kind.Header(), b.Line, i+1, err)
		}
	}
	return nil
}

func decodeRecord(doc *Document, p DatePolicy, kind Kind, fields []Field) error {
	switch kind {
	case KindAccount:
		a, err := p.decodeAccount(fields)
		if err != nil {
			return err
		}
		doc.AccountList = append(doc.AccountList, a)
	case KindCategory:
		c, err := p.decodeCategory(fields)
		if err != nil {
			return err
		}
		doc.CategoryList = append(doc.CategoryList, c)
	case KindClass:
		doc.ClassList = append(doc.ClassList, decodeClass(fields))
	case KindMemorized:
		m, err := p.decodeMemorized(fields)
		if err != nil {
			return err
		}
		doc.MemorizedTransactions = append(doc.MemorizedTransactions, m)
	case KindInvestment:
		t, err := p.decodeInvestment(fields)
		if err != nil {
			return err
		}
		doc.InvestmentTransactions = append(doc.InvestmentTransactions, t)
	default:
		register := doc.register(kind)
		if register == nil {
			return fmt.Errorf("no decoder for kind %q", kind)
		}
		tr := newFieldTracker()
		var tx BasicTransaction
		var splits splitTracker
		for _, f := range fields {
			if !tr.accept(f, basicTags, basicMultiTags) {
				continue
			}
			if err := p.basicField(&tx, &splits, f); err != nil {
				return err
			}
		}
		tx.Extra = tr.extra
		*register = append(*register, tx)
	}
	return nil
}

func (p DatePolicy) decodeAccount(fields []Field) (AccountListTransaction, error) {
	var a AccountListTransaction
	var err error
	tr := newFieldTracker()
	for _, f := range fields {
		if !tr.accept(f, accountTags, "") {
			continue
		}
		switch f.Tag {
		case 'N':
			a.Name = f.Value
		case 'T':
			a.Type = f.Value
		case 'D':
			a.Description = f.Value
		case 'L':
			a.CreditLimit, err = p.optionalAmount(f.Value)
		case '/':
			a.StatementBalanceDate, err = p.optionalDate(f.Value)
		case '$':
			a.StatementBalance, err = p.optionalAmount(f.Value)
		}
		if err != nil {
			return AccountListTransaction{}, err
		}
	}
	a.Extra = tr.extra
	return a, nil
}

func (p DatePolicy) decodeCategory(fields []Field) (CategoryListTransaction, error) {
	var c CategoryListTransaction
	var err error
	tr := newFieldTracker()
	for _, f := range fields {
		if !tr.accept(f, categoryTags, "") {
			continue
		}
		switch f.Tag {
		case 'N':
			c.Name = f.Value
		case 'D':
			c.Description = f.Value
		case 'T':
			c.TaxRelated = flag(f.Value)
		case 'I':
			c.IncomeCategory = flag(f.Value)
		case 'E':
			c.ExpenseCategory = flag(f.Value)
		case 'B':
			c.BudgetAmount, err = p.optionalAmount(f.Value)
		case 'R':
			c.TaxSchedule = f.Value
		}
		if err != nil {
			return CategoryListTransaction{}, err
		}
	}
	c.Extra = tr.extra
	return c, nil
}

func decodeClass(fields []Field) ClassListTransaction {
	var c ClassListTransaction
	tr := newFieldTracker()
	for _, f := range fields {
		if !tr.accept(f, classTags, "") {
			continue
		}
		switch f.Tag {
		case 'N':
			c.Name = f.Value
		case 'D':
			c.Description = f.Value
		}
	}
	c.Extra = tr.extra
	return c
}

func (p DatePolicy) decodeMemorized(fields []Field) (MemorizedTransaction, error) {
	var m MemorizedTransaction
	var splits splitTracker
	tr := newFieldTracker()
	for _, f := range fields {
		if !tr.accept(f, memorizedTags, basicMultiTags) {
			continue
		}
		switch f.Tag {
		case 'K':
			m.Type = f.Value
		case '1':
			m.Amortization.FirstPaymentDate = f.Value
		case '2':
			m.Amortization.TotalYears = f.Value
		case '3':
			m.Amortization.PaymentsMade = f.Value
		case '4':
			m.Amortization.PeriodsPerYear = f.Value
		case '5':
			m.Amortization.InterestRate = f.Value
		case '6':
			m.Amortization.CurrentBalance = f.Value
		case '7':
			m.Amortization.OriginalLoanTotal = f.Value
		default:
			if err := p.basicField(&m.BasicTransaction, &splits, f); err != nil {
				return MemorizedTransaction{}, err
			}
		}
	}
	m.Extra = tr.extra
	return m, nil
}

func (p DatePolicy) decodeInvestment(fields []Field) (InvestmentTransaction, error) {
	var t InvestmentTransaction
	var err error
	tr := newFieldTracker()
	for _, f := range fields {
		if !tr.accept(f, investmentTags, "") {
			continue
		}
		switch f.Tag {
		case 'D':
			t.Date, err = p.optionalDate(f.Value)
		case 'N':
			t.Action = f.Value
		case 'Y':
			t.Security = f.Value
		case 'I':
			t.Price, err = p.optionalAmount(f.Value)
		case 'Q':
			t.Quantity, err = p.optionalAmount(f.Value)
		case 'T':
			t.Amount, err = p.optionalAmount(f.Value)
		case 'U':
			t.PreciseAmount, err = p.optionalAmount(f.Value)
		case 'C':
			t.ClearedStatus = f.Value
		case 'P':
			t.Payee = f.Value
		case 'M':
			t.Memo = f.Value
		case 'O':
			t.Commission, err = p.optionalAmount(f.Value)
		case 'L':
			t.TransferAccount = f.Value
		case '$':
			t.TransferredAmount, err = p.optionalAmount(f.Value)
		}
		if err != nil {
			return InvestmentTransaction{}, err
		}
	}
	t.Extra = tr.extra
	return t, nil
}

// basicField applies one accepted register field to tx. splits tracks the
// split lines already seen for each entry of tx.Splits.
func (p DatePolicy) basicField(tx *BasicTransaction, splits *splitTracker, f Field) error {
	var err error
	switch f.Tag {
	case 'D':
		tx.Date, err = p.optionalDate(f.Value)
	case 'T':
		tx.Amount, err = p.optionalAmount(f.Value)
	case 'U':
		tx.PreciseAmount, err = p.optionalAmount(f.Value)
	case 'C':
		tx.ClearedStatus = f.Value
	case 'N':
		tx.Number = f.Value
	case 'P':
		tx.Payee = f.Value
	case 'M':
		tx.Memo = f.Value
	case 'A':
		tx.Address = append(tx.Address, f.Value)
	case 'L':
		tx.Category = f.Value
	case 'F':
		tx.Reimbursable = flag(f.Value)
	case 'S':
		splits.start(tx).Category = f.Value
	case 'E':
		splits.open(tx, splitMemo).Memo = f.Value
	case '$':
		var amount *decimal.Decimal
		if amount, err = p.optionalAmount(f.Value); err == nil {
			splits.open(tx, splitAmount).Amount = amount
		}
	case '%':
		var percent *decimal.Decimal
		if percent, err = p.optionalAmount(strings.TrimSuffix(strings.TrimSpace(f.Value), "%")); err == nil {
			splits.open(tx, splitPercent).Percent = percent
		}
	}
	return err
}

// splitTracker records, per split of a transaction, which of the E, $ and %
// lines have been read. A repeated line starts the next split even when the
// earlier value was empty.
type splitTracker []uint8

const (
	splitMemo uint8 = 1 << iota
	splitAmount
	splitPercent
)

// start appends a new split, as an S line does.
func (st *splitTracker) start(tx *BasicTransaction) *Split {
	tx.Splits = append(tx.Splits, Split{})
	*st = append(*st, 0)
	return &tx.Splits[len(tx.Splits)-1]
}

// open returns the last split unless it already holds the line kind seen,
// in which case a new split is started.
func (st *splitTracker) open(tx *BasicTransaction, seen uint8) *Split {
	n := len(tx.Splits)
	if n == 0 || (*st)[n-1]&seen != 0 {
		st.start(tx)
		n++
	}
	(*st)[n-1] |= seen
	return &tx.Splits[n-1]
}

func (p DatePolicy) optionalDate(v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, nil
	}
	return p.ParseDate(v)
}

func (p DatePolicy) optionalAmount(v string) (*decimal.Decimal, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	d, err := p.ParseAmount(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// flag is true for a present tag unless its value is an explicit false marker.
func flag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "n", "no":
		return false
	}
	return true
}
