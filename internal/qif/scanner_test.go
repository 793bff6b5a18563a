package qif

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, input string) ([]Block, error) {
	t.Helper()
	s := NewScanner(strings.NewReader(input))
	var blocks []Block
	for s.Scan() {
		blocks = append(blocks, s.Block())
	}
	return blocks, s.Err()
}

func TestScannerSplitsBlocksByHeader(t *testing.T) {
	input := "!Type:Bank\nD1/2/2013\nT-1.00\n^\nD1/3/2013\nT-2.00\n^\n!Type:Cat\nNFood\n^\n"

	blocks, err := scanAll(t, input)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.Equal(t, KindBank, blocks[0].Kind)
	assert.Equal(t, 1, blocks[0].Line)
	assert.Equal(t, [][]string{{"D1/2/2013", "T-1.00"}, {"D1/3/2013", "T-2.00"}}, blocks[0].Records())

	assert.Equal(t, KindCategory, blocks[1].Kind)
	assert.Equal(t, 8, blocks[1].Line)
	assert.Equal(t, [][]string{{"NFood"}}, blocks[1].Records())
}

func TestScannerHeaderMatching(t *testing.T) {
	tests := []struct {
		header string
		kind   Kind
	}{
		{"!Type:Bank", KindBank},
		{"!type:bank   ", KindBank},
		{"!Type:CCard", KindCreditCard},
		{"!Type:Oth A", KindAsset},
		{"!Type:Oth L", KindLiability},
		{"!Type:Invst", KindInvestment},
		{"!Type:Memorized", KindMemorized},
		{"!Type:Class", KindClass},
		{"!Account", KindAccount},
		{"!Type:Prices", ""},
		{"!Something", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			blocks, err := scanAll(t, tt.header+"\nX\n^\n")
			require.NoError(t, err)
			require.Len(t, blocks, 1)
			assert.Equal(t, tt.kind, blocks[0].Kind)
			assert.Equal(t, tt.header, blocks[0].Header)
		})
	}
}

func TestScannerSkipsDirectivesBOMAndCRLF(t *testing.T) {
	input := "\ufeff!Option:AutoSwitch\r\n!Account\r\nNChecking\r\nTBank\r\n^\r\n!Clear:AutoSwitch\r\n!Type:Bank\r\nD1/2/2013\r\n^\r\n"

	blocks, err := scanAll(t, input)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, KindAccount, blocks[0].Kind)
	assert.Equal(t, []string{"NChecking", "TBank", "^"}, blocks[0].Lines)
	assert.Equal(t, KindBank, blocks[1].Kind)
	assert.Equal(t, []string{"D1/2/2013", "^"}, blocks[1].Lines)
}

func TestScannerDataBeforeHeader(t *testing.T) {
	blocks, err := scanAll(t, "\nD1/2/2013\n^\n!Type:Bank\n")
	assert.Empty(t, blocks)

	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, 2, formatErr.Line)
	assert.Equal(t, "D1/2/2013", formatErr.Text)
}

func TestScannerUnknownHeaderWithoutSeparator(t *testing.T) {
	input := "!Type:Foo\nabc\n\ndef\n!Type:Bank\nD1/2/2013\n^\n"

	blocks, err := scanAll(t, input)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, Kind(""), blocks[0].Kind)
	assert.Equal(t, []string{"abc", "", "def"}, blocks[0].Lines)
	assert.Equal(t, [][]string{{"abc", "", "def"}}, blocks[0].Records())
	assert.Equal(t, KindBank, blocks[1].Kind)
}

func TestScannerLastLineWithoutNewline(t *testing.T) {
	blocks, err := scanAll(t, "!Type:Cash\nPCoffee\nT-3.50")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, [][]string{{"PCoffee", "T-3.50"}}, blocks[0].Records())
}

func TestScannerEmptyInput(t *testing.T) {
	blocks, err := scanAll(t, "")
	assert.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestBlockRecordsDropsBlankRecords(t *testing.T) {
	b := Block{Lines: []string{"", "^", "PA", "  ^  ", " ", "^", "PB"}}
	assert.Equal(t, [][]string{{"PA"}, {"PB"}}, b.Records())
}
