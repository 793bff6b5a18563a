package qif

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFields(t *testing.T) {
	fields := SplitFields([]string{
		"PCorner Grocery ",
		"",
		"   ",
		"T-45.67\r",
		"E",
		"M  leading spaces kept",
	})

	assert.Equal(t, []Field{
		{Tag: 'P', Value: "Corner Grocery "},
		{Tag: 'T', Value: "-45.67"},
		{Tag: 'E', Value: ""},
		{Tag: 'M', Value: "  leading spaces kept"},
	}, fields)
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "XCustom", Field{Tag: 'X', Value: "Custom"}.String())
	assert.Equal(t, "I", Field{Tag: 'I'}.String())
}
