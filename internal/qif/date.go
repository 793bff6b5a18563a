package qif

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// CanonicalDateFormat is the pattern every export writes dates with.
const CanonicalDateFormat = "MM/dd/yyyy"

var canonicalDate = mustCompileDatePattern(CanonicalDateFormat)

// DatePolicy is the outcome of resolving a Configuration against the host:
// the patterns dates are parsed with, and the locale whose separators apply
// to amounts.
type DatePolicy struct {
	Patterns []string
	Locale   Locale

	compiled []datePattern
}

// ResolveDatePolicy applies the precedence explicit pattern > explicit locale
// > ambient locale. ambient is only called when no explicit locale is set; a
// nil ambient reads the process environment.
func ResolveDatePolicy(cfg Configuration, ambient LocaleSource) (DatePolicy, error) {
	var loc Locale
	if cfg.CustomReadCultureInfo != "" {
		l, err := LookupLocale(cfg.CustomReadCultureInfo)
		if err != nil {
			return DatePolicy{}, &ConfigurationError{Reason: err.Error()}
		}
		loc = l
	} else {
		if ambient == nil {
			ambient = EnvironmentLocale
		}
		l, err := LookupLocale(ambient())
		if err != nil {
			// an unreadable host setting is not the caller's mistake
			l, _ = LookupLocale(InvariantLocale)
		}
		loc = l
	}

	var patterns []string
	switch cfg.ReadDateFormatMode {
	case Custom:
		if strings.TrimSpace(cfg.CustomReadDateFormat) == "" {
			return DatePolicy{}, &ConfigurationError{Reason: "custom date format mode requires CustomReadDateFormat"}
		}
		patterns = []string{cfg.CustomReadDateFormat}
	case AmbientCulture:
		patterns = loc.DatePatterns
	default:
		return DatePolicy{}, &ConfigurationError{Reason: fmt.Sprintf("unknown date format mode %d", cfg.ReadDateFormatMode)}
	}

	policy := DatePolicy{
		Patterns: append([]string(nil), patterns...),
		Locale:   loc,
	}
	for _, p := range patterns {
		c, err := compileDatePattern(p)
		if err != nil {
			return DatePolicy{}, &ConfigurationError{Reason: err.Error()}
		}
		policy.compiled = append(policy.compiled, c)
	}
	return policy, nil
}

// ParseDate tries each pattern in order; the first match wins.
func (p DatePolicy) ParseDate(value string) (time.Time, error) {
	for _, c := range p.compiled {
		if t, ok := c.parse(value); ok {
			return t, nil
		}
	}
	return time.Time{}, &DateDecodeError{
		Value:    value,
		Patterns: p.Patterns,
		Locale:   p.Locale.Name,
	}
}

// FormatDate writes t with CanonicalDateFormat.
func FormatDate(t time.Time) string {
	return canonicalDate.format(t)
}

type dateToken int

const (
	tokLiteral dateToken = iota
	tokDay
	tokMonth
	tokMonthName
	tokYear2
	tokYear4
)

type datePart struct {
	kind  dateToken
	width int
	lit   string
}

type datePattern struct {
	source string
	parts  []datePart
}

func mustCompileDatePattern(p string) datePattern {
	c, err := compileDatePattern(p)
	if err != nil {
		panic(err)
	}
	return c
}

func compileDatePattern(p string) (datePattern, error) {
	c := datePattern{source: p}
	var seenDay, seenMonth, seenYear bool
	for i := 0; i < len(p); {
		ch := p[i]
		if ch != 'd' && ch != 'M' && ch != 'y' {
			r, size := utf8.DecodeRuneInString(p[i:])
			i += size
			c.parts = append(c.parts, datePart{kind: tokLiteral, lit: string(r)})
			continue
		}
		n := 1
		for i+n < len(p) && p[i+n] == ch {
			n++
		}
		i += n
		switch {
		case ch == 'd' && n <= 2:
			c.parts = append(c.parts, datePart{kind: tokDay, width: n})
			seenDay = true
		case ch == 'M' && n <= 2:
			c.parts = append(c.parts, datePart{kind: tokMonth, width: n})
			seenMonth = true
		case ch == 'M' && n <= 4:
			c.parts = append(c.parts, datePart{kind: tokMonthName, width: n})
			seenMonth = true
		case ch == 'y' && n <= 2:
			c.parts = append(c.parts, datePart{kind: tokYear2})
			seenYear = true
		case ch == 'y' && n <= 4:
			c.parts = append(c.parts, datePart{kind: tokYear4})
			seenYear = true
		default:
			return datePattern{}, fmt.Errorf("date pattern %q: unsupported token %q", p, strings.Repeat(string(ch), n))
		}
	}
	if !seenDay || !seenMonth || !seenYear {
		return datePattern{}, fmt.Errorf("date pattern %q needs day, month and year", p)
	}
	return c, nil
}

// parse matches value against the pattern. Spaces are ignored, and Quicken's
// apostrophe year marker ("1/13'13") is accepted in place of the separator
// before the year, meaning 20xx.
func (c datePattern) parse(value string) (time.Time, bool) {
	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, value)

	var year, month, day int
	pos := 0
	apostrophe := false
	for i, part := range c.parts {
		switch part.kind {
		case tokLiteral:
			switch {
			case part.lit == " ":
				// spaces were removed from the value
			case strings.HasPrefix(s[pos:], part.lit):
				pos += len(part.lit)
			case pos < len(s) && s[pos] == '\'' && i+1 < len(c.parts) && c.parts[i+1].isYear():
				apostrophe = true
				pos++
			default:
				return time.Time{}, false
			}
		case tokDay, tokMonth:
			v, n := readDigits(s[pos:], 2)
			if n == 0 {
				return time.Time{}, false
			}
			pos += n
			if part.kind == tokDay {
				day = v
			} else {
				month = v
			}
		case tokMonthName:
			v, n := matchMonthName(s[pos:], part.width)
			if n == 0 {
				return time.Time{}, false
			}
			pos += n
			month = v
		case tokYear2, tokYear4:
			limit := 2
			if part.kind == tokYear4 {
				limit = 4
			}
			v, n := readDigits(s[pos:], limit)
			pos += n
			switch {
			case apostrophe && n >= 1 && n <= 2:
				year = 2000 + v
			case part.kind == tokYear4 && n == 4:
				year = v
			case part.kind == tokYear2 && n == 2:
				year = pivotYear(v)
			default:
				return time.Time{}, false
			}
		}
	}
	if pos != len(s) || month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func (c datePattern) format(t time.Time) string {
	var b strings.Builder
	for _, part := range c.parts {
		switch part.kind {
		case tokLiteral:
			b.WriteString(part.lit)
		case tokDay:
			fmt.Fprintf(&b, "%0*d", part.width, t.Day())
		case tokMonth:
			fmt.Fprintf(&b, "%0*d", part.width, int(t.Month()))
		case tokMonthName:
			b.WriteString(monthName(t.Month(), part.width))
		case tokYear2:
			fmt.Fprintf(&b, "%02d", t.Year()%100)
		case tokYear4:
			fmt.Fprintf(&b, "%04d", t.Year())
		}
	}
	return b.String()
}

func (p datePart) isYear() bool {
	return p.kind == tokYear2 || p.kind == tokYear4
}

// monthName is the English month name, abbreviated to three letters for MMM.
func monthName(m time.Month, width int) string {
	name := m.String()
	if width == 3 {
		return name[:3]
	}
	return name
}

// matchMonthName reads an English month name at the start of s, ignoring
// case, and returns the month and the bytes consumed.
func matchMonthName(s string, width int) (int, int) {
	for m := time.January; m <= time.December; m++ {
		name := monthName(m, width)
		if len(s) >= len(name) && strings.EqualFold(s[:len(name)], name) {
			return int(m), len(name)
		}
	}
	return 0, 0
}

// pivotYear maps two digit years to 1950-2049.
func pivotYear(v int) int {
	if v < 50 {
		return 2000 + v
	}
	return 1900 + v
}

func readDigits(s string, limit int) (int, int) {
	v, n := 0, 0
	for n < len(s) && n < limit && s[n] >= '0' && s[n] <= '9' {
		v = v*10 + int(s[n]-'0')
		n++
	}
	return v, n
}
