package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/lox/qif-interchange/internal/qif"
)

// CommonConfig contains configuration common to all commands
type CommonConfig struct {
	// DataDir is the path to the data directory
	DataDir string `help:"Path to data directory" default:"./data" env:"DATA_DIR"`
	// LogLevel is the logging level to use
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"warn" enum:"debug,info,warn,error"`
}

// ReadConfig contains the flags that control how QIF files are read
type ReadConfig struct {
	// DateFormat switches to custom date mode with the given pattern
	DateFormat string `help:"Date pattern such as M/d/yyyy (tokens d dd M MM yy yyyy)" env:"QIF_DATE_FORMAT"`
	// Culture overrides the host locale, for example en-US
	Culture string `help:"Locale used to read dates and amounts instead of the host locale" env:"QIF_CULTURE"`
	// Encoding is the character encoding of input files
	Encoding string `help:"Character encoding of input files" default:"utf-8" enum:"utf-8,windows-1252,iso-8859-1"`
}

// Configuration builds the reader configuration the flags describe
func (c ReadConfig) Configuration() qif.Configuration {
	cfg := qif.Configuration{CustomReadCultureInfo: c.Culture}
	if c.DateFormat != "" {
		cfg.ReadDateFormatMode = qif.Custom
		cfg.CustomReadDateFormat = c.DateFormat
	}
	return cfg
}

type decodedFile struct {
	io.Reader
	io.Closer
}

// Open opens path for reading, decoding it to UTF-8 when a legacy encoding is
// configured
func (c ReadConfig) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(c.Encoding) {
	case "", "utf-8", "utf8":
		return f, nil
	case "windows-1252", "cp1252":
		return decodedFile{charmap.Windows1252.NewDecoder().Reader(f), f}, nil
	case "iso-8859-1", "latin1":
		return decodedFile{charmap.ISO8859_1.NewDecoder().Reader(f), f}, nil
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported encoding: %s", c.Encoding)
	}
}
