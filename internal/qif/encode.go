package qif

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// encoder writes tag lines and remembers the first write error.
type encoder struct {
	w   *bufio.Writer
	err error
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{w: bufio.NewWriter(w)}
}

func (e *encoder) line(s string) {
	if e.err != nil {
		return
	}
	if _, e.err = e.w.WriteString(s); e.err == nil {
		e.err = e.w.WriteByte('\n')
	}
}

// field writes a tag line whose value must stay on that line.
func (e *encoder) field(tag rune, v string) {
	if e.err != nil {
		return
	}
	if strings.ContainsAny(v, "\r\n") {
		e.err = &FieldError{Tag: tag, Value: v, Reason: "value contains a line break"}
		return
	}
	e.line(string(tag) + v)
}

func (e *encoder) text(tag rune, v string) {
	if v != "" {
		e.field(tag, v)
	}
}

func (e *encoder) flag(tag rune, set bool) {
	if set {
		e.line(string(tag))
	}
}

func (e *encoder) amount(tag rune, d *decimal.Decimal) {
	if d != nil {
		e.line(string(tag) + FormatAmount(*d))
	}
}

// date writes the calendar date of t in its own location; the time of day
// is not kept.
func (e *encoder) date(tag rune, t time.Time) {
	if !t.IsZero() {
		e.line(string(tag) + FormatDate(t))
	}
}

// extra writes overflow fields. Tags that would read back as a header, a
// record separator or a blank line are refused.
func (e *encoder) extra(fields []Field) {
	for _, f := range fields {
		switch f.Tag {
		case '!', '^', '\r', '\n':
			if e.err == nil {
				e.err = &FieldError{Tag: f.Tag, Value: f.Value, Reason: "tag cannot start a field line"}
			}
			return
		}
		e.field(f.Tag, f.Value)
	}
}

func (e *encoder) end() {
	e.line("^")
}

func (e *encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

func (e *encoder) document(doc *Document) {
	if len(doc.ClassList) > 0 {
		e.line(KindClass.Header())
		for _, c := range doc.ClassList {
			e.text('N', c.Name)
			e.text('D', c.Description)
			e.extra(c.Extra)
			e.end()
		}
	}
	if len(doc.CategoryList) > 0 {
		e.line(KindCategory.Header())
		for _, c := range doc.CategoryList {
			e.category(c)
		}
	}
	if len(doc.AccountList) > 0 {
		e.line("!Option:AutoSwitch")
		e.line(KindAccount.Header())
		for _, a := range doc.AccountList {
			e.account(a)
		}
		e.line("!Clear:AutoSwitch")
	}
	for _, kind := range []Kind{KindBank, KindCash, KindCreditCard} {
		e.register(kind, *doc.register(kind))
	}
	if len(doc.InvestmentTransactions) > 0 {
		e.line(KindInvestment.Header())
		for _, t := range doc.InvestmentTransactions {
			e.investment(t)
		}
	}
	for _, kind := range []Kind{KindAsset, KindLiability} {
		e.register(kind, *doc.register(kind))
	}
	if len(doc.MemorizedTransactions) > 0 {
		e.line(KindMemorized.Header())
		for _, m := range doc.MemorizedTransactions {
			e.text('K', m.Type)
			e.basicBody(m.BasicTransaction)
			e.text('1', m.Amortization.FirstPaymentDate)
			e.text('2', m.Amortization.TotalYears)
			e.text('3', m.Amortization.PaymentsMade)
			e.text('4', m.Amortization.PeriodsPerYear)
			e.text('5', m.Amortization.InterestRate)
			e.text('6', m.Amortization.CurrentBalance)
			e.text('7', m.Amortization.OriginalLoanTotal)
			e.extra(m.Extra)
			e.end()
		}
	}
	for _, raw := range doc.Unknown {
		e.line(raw.Header)
		for _, l := range raw.Lines {
			e.line(l)
		}
	}
}

func (e *encoder) account(a AccountListTransaction) {
	e.text('N', a.Name)
	e.text('T', a.Type)
	e.text('D', a.Description)
	e.amount('L', a.CreditLimit)
	e.date('/', a.StatementBalanceDate)
	e.amount('$', a.StatementBalance)
	e.extra(a.Extra)
	e.end()
}

func (e *encoder) category(c CategoryListTransaction) {
	e.text('N', c.Name)
	e.text('D', c.Description)
	e.flag('T', c.TaxRelated)
	e.flag('I', c.IncomeCategory)
	e.flag('E', c.ExpenseCategory)
	e.amount('B', c.BudgetAmount)
	e.text('R', c.TaxSchedule)
	e.extra(c.Extra)
	e.end()
}

func (e *encoder) register(kind Kind, txs []BasicTransaction) {
	if len(txs) == 0 {
		return
	}
	e.line(kind.Header())
	for _, tx := range txs {
		e.basicBody(tx)
		e.extra(tx.Extra)
		e.end()
	}
}

// basicBody writes the modeled register fields. Every split starts with an S
// line so that splits read back one for one.
func (e *encoder) basicBody(tx BasicTransaction) {
	e.date('D', tx.Date)
	e.amount('U', tx.PreciseAmount)
	e.amount('T', tx.Amount)
	e.text('C', tx.ClearedStatus)
	e.text('N', tx.Number)
	e.text('P', tx.Payee)
	e.text('M', tx.Memo)
	for _, a := range tx.Address {
		e.field('A', a)
	}
	e.text('L', tx.Category)
	e.flag('F', tx.Reimbursable)
	for _, s := range tx.Splits {
		e.field('S', s.Category)
		e.text('E', s.Memo)
		e.amount('%', s.Percent)
		e.amount('$', s.Amount)
	}
}

func (e *encoder) investment(t InvestmentTransaction) {
	e.date('D', t.Date)
	e.text('N', t.Action)
	e.text('Y', t.Security)
	e.amount('I', t.Price)
	e.amount('Q', t.Quantity)
	e.amount('U', t.PreciseAmount)
	e.amount('T', t.Amount)
	e.text('C', t.ClearedStatus)
	e.text('P', t.Payee)
	e.text('M', t.Memo)
	e.amount('O', t.Commission)
	e.text('L', t.TransferAccount)
	e.amount('$', t.TransferredAmount)
	e.extra(t.Extra)
	e.end()
}
