package qif

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a decimal literal using the policy locale's grouping and
// decimal separators.
func (p DatePolicy) ParseAmount(value string) (decimal.Decimal, error) {
	fail := &NumberDecodeError{Value: value, Locale: p.Locale.Name}

	var b strings.Builder
	digits, points := 0, 0
	for i, r := range strings.TrimSpace(value) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == p.Locale.Decimal:
			b.WriteByte('.')
			points++
		case slices.Contains(p.Locale.Group, r):
			if points > 0 {
				return decimal.Decimal{}, fail
			}
		case (r == '-' || r == '+') && i == 0:
			if r == '-' {
				b.WriteByte('-')
			}
		default:
			return decimal.Decimal{}, fail
		}
	}
	if digits == 0 || points > 1 {
		return decimal.Decimal{}, fail
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Decimal{}, fail
	}
	return d, nil
}

// FormatAmount writes d with a dot decimal separator, no grouping, and the
// number of decimals it was read with.
func FormatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
