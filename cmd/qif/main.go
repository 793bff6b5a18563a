package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/qif-interchange/internal/commands"
	"github.com/lox/qif-interchange/internal/qif"
)

type CLI struct {
	commands.CommonConfig

	Check   CheckCmd   `cmd:"" help:"Read QIF files and report how many records of each kind they hold"`
	Convert ConvertCmd `cmd:"" help:"Read a QIF file and write it back with canonical dates and amounts"`
	Load    LoadCmd    `cmd:"" help:"Import QIF files into the ledger"`
	List    ListCmd    `cmd:"" help:"Print stored transactions as JSON"`
	Export  ExportCmd  `cmd:"" help:"Write stored transactions to a QIF file"`
}

// readDocument imports a single file with the configured encoding and date
// policy
func readDocument(read commands.ReadConfig, path string, logger *log.Logger) (*qif.Document, error) {
	f, err := read.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := qif.NewCodec(read.Configuration(), logger).Import(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// writeDocument exports doc to path, or to stdout when path is "-"
func writeDocument(doc *qif.Document, path string, logger *log.Logger) error {
	codec := qif.NewCodec(qif.RoundTripConfiguration(), logger)
	if path == "-" {
		return codec.Export(doc, os.Stdout)
	}
	return codec.ExportFile(doc, path)
}

type CheckCmd struct {
	commands.ReadConfig

	Files []string `arg:"" help:"QIF files to check" type:"existingfile"`
}

func (c *CheckCmd) Run(common *commands.CommonConfig) error {
	logger, err := commands.NewLogger(common.LogLevel)
	if err != nil {
		return err
	}

	var failed int
	for _, path := range c.Files {
		doc, err := readDocument(c.ReadConfig, path, logger)
		if err != nil {
			logger.Error("Failed to read QIF file", "error", err)
			failed++
			continue
		}
		printCounts(os.Stdout, path, doc)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be read", failed, len(c.Files))
	}
	return nil
}

func printCounts(w io.Writer, path string, doc *qif.Document) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", path)
	for _, c := range doc.Counts() {
		if c.Count == 0 {
			continue
		}
		name := string(c.Kind)
		if name == "" {
			name = "(unrecognized)"
		}
		fmt.Fprintf(tw, "  %s\t%d\n", name, c.Count)
	}
	tw.Flush()
}

type ConvertCmd struct {
	commands.ReadConfig

	Input  string `arg:"" help:"QIF file to read" type:"existingfile"`
	Output string `arg:"" help:"QIF file to write, - for stdout"`
}

func (c *ConvertCmd) Run(common *commands.CommonConfig) error {
	logger, err := commands.NewLogger(common.LogLevel)
	if err != nil {
		return err
	}

	doc, err := readDocument(c.ReadConfig, c.Input, logger)
	if err != nil {
		return err
	}

	if err := writeDocument(doc, c.Output, logger); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Output, err)
	}
	logger.Info("Converted QIF file", "input", c.Input, "output", c.Output)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("qif"),
		kong.Description("Read, convert and store Quicken Interchange Format files"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.CommonConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
