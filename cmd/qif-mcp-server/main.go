package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/lox/qif-interchange/internal/commands"
	"github.com/lox/qif-interchange/internal/db"
	"github.com/lox/qif-interchange/internal/mcp"
)

type CLI struct {
	commands.CommonConfig
}

func (c *CLI) Run() error {
	logger, err := commands.NewLogger(c.LogLevel)
	if err != nil {
		return err
	}

	database, err := db.New(c.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	logger.Info("Serving QIF ledger over stdio", "data_dir", c.DataDir)
	return mcp.New(database, logger).Run()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("qif-mcp-server"),
		kong.Description("MCP server exposing a QIF ledger"),
		kong.UsageOnError(),
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
