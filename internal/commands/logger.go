package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger creates a stderr logger at the given level
func NewLogger(level string) (*log.Logger, error) {
	logger := log.New(os.Stderr)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(lvl)

	return logger, nil
}
