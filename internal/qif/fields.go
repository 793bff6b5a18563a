package qif

import (
	"strings"
	"unicode/utf8"
)

// Field is one tag line of a record.
type Field struct {
	Tag   rune
	Value string
}

func (f Field) String() string {
	return string(f.Tag) + f.Value
}

// SplitFields turns record lines into fields in their original order. Only
// trailing carriage returns are removed from values; blank lines are skipped.
func SplitFields(lines []string) []Field {
	fields := make([]Field, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		tag, size := utf8.DecodeRuneInString(line)
		fields = append(fields, Field{Tag: tag, Value: line[size:]})
	}
	return fields
}
