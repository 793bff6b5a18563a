package qif

import (
	"bufio"
	"io"
	"strings"
)

// Kind identifies the record kind a block declares.
type Kind string

const (
	KindBank       Kind = "Bank"
	KindCash       Kind = "Cash"
	KindCreditCard Kind = "CCard"
	KindInvestment Kind = "Invst"
	KindAsset      Kind = "Oth A"
	KindLiability  Kind = "Oth L"
	KindAccount    Kind = "Account"
	KindCategory   Kind = "Cat"
	KindClass      Kind = "Class"
	KindMemorized  Kind = "Memorized"
)

// BasicKinds are the non-investment register kinds, in export order.
var BasicKinds = []Kind{KindBank, KindCash, KindCreditCard, KindAsset, KindLiability}

var typeHeaders = map[string]Kind{
	"bank":      KindBank,
	"cash":      KindCash,
	"ccard":     KindCreditCard,
	"invst":     KindInvestment,
	"oth a":     KindAsset,
	"oth l":     KindLiability,
	"cat":       KindCategory,
	"class":     KindClass,
	"memorized": KindMemorized,
}

// Header returns the header line that introduces a block of this kind.
func (k Kind) Header() string {
	if k == KindAccount {
		return "!Account"
	}
	return "!Type:" + string(k)
}

// Block is one header line and the lines that follow it up to the next
// header or the end of the stream.
type Block struct {
	// Kind is empty when the header is not recognized.
	Kind   Kind
	Header string
	// Line is the 1-based line number of the header.
	Line  int
	Lines []string
}

// Records splits the block on "^" separator lines. A trailing record with no
// separator is kept; records made only of blank lines are dropped.
func (b Block) Records() [][]string {
	var records [][]string
	var current []string
	flush := func() {
		for _, l := range current {
			if strings.TrimSpace(l) != "" {
				records = append(records, current)
				break
			}
		}
		current = nil
	}
	for _, l := range b.Lines {
		if strings.TrimSpace(l) == "^" {
			flush()
			continue
		}
		current = append(current, l)
	}
	flush()
	return records
}

// Scanner splits a QIF stream into blocks. It reads lazily and cannot be
// rewound; a new Scanner is needed to read the stream again.
type Scanner struct {
	r    *bufio.Reader
	line int

	block Block
	err   error
	done  bool

	next     string
	nextLine int
	hasNext  bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Scan advances to the next block. It returns false at the end of the stream
// or on error; Err tells which.
func (s *Scanner) Scan() bool {
	if s.err != nil || s.done {
		return false
	}

	var header string
	var headerLine int
	if s.hasNext {
		header, headerLine = s.next, s.nextLine
		s.hasNext = false
	} else {
		for {
			line, ok := s.readLine()
			if !ok {
				return false
			}
			if strings.TrimSpace(line) == "" || isDirective(line) {
				continue
			}
			if !isHeader(line) {
				s.err = &FormatError{Line: s.line, Text: line}
				return false
			}
			header, headerLine = line, s.line
			break
		}
	}

	block := Block{Kind: classifyHeader(header), Header: header, Line: headerLine}
	for {
		line, ok := s.readLine()
		if !ok {
			if s.err != nil {
				return false
			}
			break
		}
		if isDirective(line) {
			continue
		}
		if isHeader(line) {
			s.next, s.nextLine, s.hasNext = line, s.line, true
			break
		}
		block.Lines = append(block.Lines, line)
	}
	s.block = block
	return true
}

// Block returns the block read by the last successful Scan.
func (s *Scanner) Block() Block {
	return s.block
}

// Err returns the first error met, or nil at a clean end of stream.
func (s *Scanner) Err() error {
	return s.err
}

// readLine returns the next line without its line terminator.
func (s *Scanner) readLine() (string, bool) {
	line, err := s.r.ReadString('\n')
	if err != nil && err != io.EOF {
		s.err = err
		return "", false
	}
	if err == io.EOF && line == "" {
		s.done = true
		return "", false
	}
	s.line++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimRight(line, "\r")
	if s.line == 1 {
		line = strings.TrimPrefix(line, "\ufeff")
	}
	return line, true
}

func isHeader(line string) bool {
	return strings.HasPrefix(line, "!") && !isDirective(line)
}

// isDirective reports Quicken's !Option: and !Clear: switches, which do not
// open a block.
func isDirective(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "!option:") || strings.HasPrefix(lower, "!clear:")
}

func classifyHeader(header string) Kind {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "!account" {
		return KindAccount
	}
	if name, ok := strings.CutPrefix(h, "!type:"); ok {
		return typeHeaders[strings.TrimSpace(name)]
	}
	return ""
}
