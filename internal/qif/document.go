// Package qif reads and writes Quicken Interchange Format streams.
//
// A stream is a sequence of blocks, each opened by a "!Type:<Kind>" or
// "!Account" header, holding records separated by "^" lines. Each record
// line is a one character tag followed by its value. Dates have no fixed
// order in QIF, so reading resolves a DatePolicy from the Configuration and
// the host locale; writing always uses CanonicalDateFormat and dot-decimal
// amounts so output does not depend on the machine that produced it.
//
// Reading consults the ambient locale once per import. Programs that need the
// same result on every machine should set CustomReadCultureInfo or use Custom
// mode; changing the host locale while an import runs is not synchronized.
package qif

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Document holds decoded records grouped by kind, in the order they were
// read or appended. Records reference each other by name only.
type Document struct {
	AccountList            []AccountListTransaction
	CategoryList           []CategoryListTransaction
	ClassList              []ClassListTransaction
	BankTransactions       []BasicTransaction
	CashTransactions       []BasicTransaction
	CreditCardTransactions []BasicTransaction
	AssetTransactions      []BasicTransaction
	LiabilityTransactions  []BasicTransaction
	InvestmentTransactions []InvestmentTransaction
	MemorizedTransactions  []MemorizedTransaction
	Unknown                []RawBlock
}

// register returns the slice holding the given basic kind, or nil for other
// kinds.
func (d *Document) register(kind Kind) *[]BasicTransaction {
	switch kind {
	case KindBank:
		return &d.BankTransactions
	case KindCash:
		return &d.CashTransactions
	case KindCreditCard:
		return &d.CreditCardTransactions
	case KindAsset:
		return &d.AssetTransactions
	case KindLiability:
		return &d.LiabilityTransactions
	}
	return nil
}

// Transactions returns the register entries of a basic kind.
func (d *Document) Transactions(kind Kind) []BasicTransaction {
	if r := d.register(kind); r != nil {
		return *r
	}
	return nil
}

// AddTransaction appends tx to the register of a basic kind. Only the
// calendar day of tx.Date survives an export.
func (d *Document) AddTransaction(kind Kind, tx BasicTransaction) error {
	r := d.register(kind)
	if r == nil {
		return fmt.Errorf("qif: %q is not a register kind", kind)
	}
	*r = append(*r, tx)
	return nil
}

// KindCount is the number of records of one kind.
type KindCount struct {
	Kind  Kind
	Count int
}

// Counts lists the record count of every kind, in export order. Unknown
// blocks are reported under the empty kind.
func (d *Document) Counts() []KindCount {
	return []KindCount{
		{KindClass, len(d.ClassList)},
		{KindCategory, len(d.CategoryList)},
		{KindAccount, len(d.AccountList)},
		{KindBank, len(d.BankTransactions)},
		{KindCash, len(d.CashTransactions)},
		{KindCreditCard, len(d.CreditCardTransactions)},
		{KindInvestment, len(d.InvestmentTransactions)},
		{KindAsset, len(d.AssetTransactions)},
		{KindLiability, len(d.LiabilityTransactions)},
		{KindMemorized, len(d.MemorizedTransactions)},
		{"", len(d.Unknown)},
	}
}

// Codec imports and exports documents under one Configuration.
type Codec struct {
	config  Configuration
	logger  *log.Logger
	ambient LocaleSource
}

// NewCodec returns a Codec that reads the ambient locale from the process
// environment. A nil logger discards output.
func NewCodec(config Configuration, logger *log.Logger) *Codec {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Codec{
		config:  config,
		logger:  logger,
		ambient: EnvironmentLocale,
	}
}

// WithAmbientLocale returns a copy of c that asks src for the host locale.
func (c *Codec) WithAmbientLocale(src LocaleSource) *Codec {
	cp := *c
	cp.ambient = src
	return &cp
}

// Import decodes a whole stream. It returns either a complete Document or
// the first error met; nothing partial.
func (c *Codec) Import(r io.Reader) (*Document, error) {
	policy, err := ResolveDatePolicy(c.config, c.ambient)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Resolved date policy",
		"mode", c.config.ReadDateFormatMode,
		"locale", policy.Locale.Name,
		"patterns", policy.Patterns)

	doc := &Document{}
	scanner := NewScanner(r)
	for scanner.Scan() {
		block := scanner.Block()
		if block.Kind == "" {
			c.logger.Debug("Keeping unrecognized block", "header", block.Header, "line", block.Line)
		}
		if err := decodeBlock(doc, policy, block); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	c.logger.Debug("Imported QIF document", countsKeyvals(doc)...)
	return doc, nil
}

// ImportFile opens path as UTF-8 text and imports it.
func (c *Codec) ImportFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := c.Import(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Export writes doc to w. Output depends only on doc. A field that cannot be
// written on one line fails the export with a *FieldError.
func (c *Codec) Export(doc *Document, w io.Writer) error {
	e := newEncoder(w)
	e.document(doc)
	if err := e.flush(); err != nil {
		return fmt.Errorf("qif: export: %w", err)
	}
	c.logger.Debug("Exported QIF document", countsKeyvals(doc)...)
	return nil
}

// ExportFile creates or truncates path and writes doc to it.
func (c *Codec) ExportFile(doc *Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Export(doc, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Import decodes r with cfg and the process locale.
func Import(r io.Reader, cfg Configuration) (*Document, error) {
	return NewCodec(cfg, nil).Import(r)
}

// ImportFile decodes the file at path with cfg and the process locale.
func ImportFile(path string, cfg Configuration) (*Document, error) {
	return NewCodec(cfg, nil).ImportFile(path)
}

// Export writes doc to w.
func Export(doc *Document, w io.Writer) error {
	return NewCodec(Configuration{}, nil).Export(doc, w)
}

// ExportFile writes doc to the file at path.
func ExportFile(doc *Document, path string) error {
	return NewCodec(Configuration{}, nil).ExportFile(doc, path)
}

func countsKeyvals(doc *Document) []interface{} {
	var kv []interface{}
	for _, c := range doc.Counts() {
		if c.Count == 0 {
			continue
		}
		name := string(c.Kind)
		if name == "" {
			name = "unknown"
		}
		kv = append(kv, name, c.Count)
	}
	return kv
}
