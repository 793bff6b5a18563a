package qif

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

// InvariantLocale is the identifier of the culture-neutral locale: MM/dd/yyyy
// dates, dot decimal separator, comma grouping.
const InvariantLocale = "und"

// Locale carries the conventions used to read dates and amounts.
type Locale struct {
	// Name is the normalized identifier that was asked for, e.g. "en-CA".
	Name string
	// DatePatterns are the short date patterns tried in order.
	DatePatterns []string
	Decimal      rune
	Group        []rune
}

// LocaleSource returns the identifier of the host's current locale. It is
// called once per import and never cached.
type LocaleSource func() string

// EnvironmentLocale reads the POSIX locale variables in priority order.
func EnvironmentLocale() string {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

var (
	spaceGroups = []rune{' ', '\u00a0', '\u202f'}
	commaGroup  = []rune{','}
	dotGroup    = []rune{'.'}
)

// conventions keyed by CLDR tag; lookups fall back through Tag.Parent.
var conventions = map[string]Locale{
	"und":    {DatePatterns: []string{"MM/dd/yyyy"}, Decimal: '.', Group: commaGroup},
	"en":     {DatePatterns: []string{"M/d/yyyy", "M/d/yy"}, Decimal: '.', Group: commaGroup},
	"en-US":  {DatePatterns: []string{"M/d/yyyy", "M/d/yy"}, Decimal: '.', Group: commaGroup},
	"en-001": {DatePatterns: []string{"dd/MM/yyyy", "dd/MM/yy"}, Decimal: '.', Group: commaGroup},
	"en-CA":  {DatePatterns: []string{"dd/MM/yyyy", "dd/MM/yy"}, Decimal: '.', Group: commaGroup},
	"en-GB":  {DatePatterns: []string{"dd/MM/yyyy", "dd/MM/yy"}, Decimal: '.', Group: commaGroup},
	"en-AU":  {DatePatterns: []string{"d/MM/yyyy", "d/MM/yy"}, Decimal: '.', Group: commaGroup},
	"en-NZ":  {DatePatterns: []string{"d/MM/yyyy", "d/MM/yy"}, Decimal: '.', Group: commaGroup},
	"en-IN":  {DatePatterns: []string{"dd-MM-yyyy", "dd/MM/yyyy"}, Decimal: '.', Group: commaGroup},
	"fr":     {DatePatterns: []string{"dd/MM/yyyy"}, Decimal: ',', Group: spaceGroups},
	"fr-CA":  {DatePatterns: []string{"yyyy-MM-dd"}, Decimal: ',', Group: spaceGroups},
	"fr-CH":  {DatePatterns: []string{"dd.MM.yyyy"}, Decimal: '.', Group: []rune{'\'', '’'}},
	"de":     {DatePatterns: []string{"dd.MM.yyyy", "dd.MM.yy"}, Decimal: ',', Group: dotGroup},
	"de-CH":  {DatePatterns: []string{"dd.MM.yyyy", "dd.MM.yy"}, Decimal: '.', Group: []rune{'\'', '’'}},
	"es":     {DatePatterns: []string{"dd/MM/yyyy"}, Decimal: ',', Group: dotGroup},
	"it":     {DatePatterns: []string{"dd/MM/yyyy"}, Decimal: ',', Group: dotGroup},
	"pt":     {DatePatterns: []string{"dd/MM/yyyy"}, Decimal: ',', Group: dotGroup},
	"nl":     {DatePatterns: []string{"d-M-yyyy"}, Decimal: ',', Group: dotGroup},
	"sv":     {DatePatterns: []string{"yyyy-MM-dd"}, Decimal: ',', Group: spaceGroups},
	"ja":     {DatePatterns: []string{"yyyy/MM/dd"}, Decimal: '.', Group: commaGroup},
	"zh":     {DatePatterns: []string{"yyyy/M/d"}, Decimal: '.', Group: commaGroup},
}

// LookupLocale resolves an identifier such as "en-CA", "fr_CA.UTF-8" or "C"
// to its conventions. Unknown regions fall back to their language, unknown
// languages to the invariant locale.
func LookupLocale(id string) (Locale, error) {
	tag, err := parseLocale(id)
	if err != nil {
		return Locale{}, err
	}
	for t := tag; ; t = t.Parent() {
		if loc, ok := conventions[t.String()]; ok {
			loc.Name = tag.String()
			return loc, nil
		}
		if t.IsRoot() {
			break
		}
	}
	loc := conventions[InvariantLocale]
	loc.Name = tag.String()
	return loc, nil
}

func parseLocale(id string) (language.Tag, error) {
	id = strings.TrimSpace(id)
	// POSIX form: language_TERRITORY.codeset@modifier
	if i := strings.IndexAny(id, ".@"); i >= 0 {
		id = id[:i]
	}
	switch id {
	case "", "C", "POSIX", "iv", "invariant":
		return language.Und, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(id, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("unknown locale %q: %w", id, err)
	}
	return tag, nil
}
