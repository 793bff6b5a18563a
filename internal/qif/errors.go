package qif

import (
	"fmt"
	"strings"
)

// FormatError reports a structurally malformed stream, such as record data
// appearing before any header line.
type FormatError struct {
	Line int
	Text string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("qif: line %d: data outside of any !Type block: %q", e.Line, e.Text)
}

// DateDecodeError reports a date value that none of the resolved patterns
// could parse under the resolved locale.
type DateDecodeError struct {
	Value    string
	Patterns []string
	Locale   string
}

func (e *DateDecodeError) Error() string {
	return fmt.Sprintf("qif: cannot parse date %q with patterns [%s] (locale %s)",
		e.Value, strings.Join(e.Patterns, ", "), e.Locale)
}

// NumberDecodeError reports an amount literal that is not a decimal number
// under the resolved locale's separators.
type NumberDecodeError struct {
	Value  string
	Locale string
}

func (e *NumberDecodeError) Error() string {
	return fmt.Sprintf("qif: cannot parse amount %q (locale %s)", e.Value, e.Locale)
}

// ConfigurationError reports an unusable Configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "qif: invalid configuration: " + e.Reason
}

// FieldError reports a record field that cannot be written as a single QIF
// line, such as a value holding a line break.
type FieldError struct {
	Tag    rune
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("qif: field %q: %s: %q", string(e.Tag), e.Reason, e.Value)
}
