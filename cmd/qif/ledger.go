package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/qif-interchange/internal/commands"
	"github.com/lox/qif-interchange/internal/db"
	"github.com/lox/qif-interchange/internal/qif"
)

type LoadCmd struct {
	commands.ReadConfig

	Files       []string `arg:"" help:"QIF files to import" type:"existingfile"`
	Concurrency int      `help:"Number of files to read concurrently" default:"4"`
	NoProgress  bool     `help:"Disable progress bar" default:"false"`
}

func (c *LoadCmd) Run(common *commands.CommonConfig) error {
	logger, err := commands.NewLogger(common.LogLevel)
	if err != nil {
		return err
	}

	database, err := db.New(common.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	progress := commands.NewProgress(len(c.Files), "Importing QIF files", !c.NoProgress)
	defer progress.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Concurrency, 1))

	for _, path := range c.Files {
		g.Go(func() error {
			doc, err := readDocument(c.ReadConfig, path, logger)
			if err != nil {
				return err
			}

			summary, err := database.StoreDocument(ctx, path, doc)
			if err != nil {
				return fmt.Errorf("failed to store %s: %w", path, err)
			}
			logger.Info("Imported QIF file", "file", path, "stored", summary.Stored,
				"skipped", summary.Skipped, "ignored", summary.Ignored)

			return progress.Add(1)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	count, err := database.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("Ledger updated", "files", len(c.Files), "transactions", count)
	return nil
}

type ListCmd struct {
	Kind     string `help:"Only list one register kind" enum:",Bank,Cash,CCard,Oth A,Oth L" default:""`
	Category string `help:"Only list transactions in this category"`
	Days     int    `help:"Number of days to look back (0 = all)" default:"0"`
	Limit    int    `help:"Maximum number of transactions (0 = no limit)" default:"0"`
}

func (c *ListCmd) options() db.ListOptions {
	opts := db.ListOptions{
		Kind:     qif.Kind(c.Kind),
		Category: c.Category,
		Limit:    c.Limit,
	}
	if c.Days > 0 {
		opts.Since = time.Now().UTC().AddDate(0, 0, -c.Days).Truncate(24 * time.Hour)
	}
	return opts
}

func (c *ListCmd) Run(common *commands.CommonConfig) error {
	logger, err := commands.NewLogger(common.LogLevel)
	if err != nil {
		return err
	}

	database, err := db.New(common.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	entries, err := database.ListTransactions(context.Background(), c.options())
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transactions: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

type ExportCmd struct {
	ListCmd

	Output string `arg:"" help:"QIF file to write, - for stdout"`
}

func (c *ExportCmd) Run(common *commands.CommonConfig) error {
	logger, err := commands.NewLogger(common.LogLevel)
	if err != nil {
		return err
	}

	database, err := db.New(common.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	doc, err := database.Document(context.Background(), c.options())
	if err != nil {
		return err
	}

	if err := writeDocument(doc, c.Output, logger); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Output, err)
	}
	if c.Output != "-" {
		fmt.Fprintf(os.Stderr, "Exported %d transactions to %s\n", countTransactions(doc), c.Output)
	}
	return nil
}

func countTransactions(doc *qif.Document) int {
	var n int
	for _, kind := range qif.BasicKinds {
		n += len(doc.Transactions(kind))
	}
	return n
}
