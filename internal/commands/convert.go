package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-ledger/internal/config"
	"github.com/insightdelivered/statement-ledger/internal/extractor"
	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/parser"
	"github.com/insightdelivered/statement-ledger/internal/writer"
)

type convertOptions struct {
	output   string
	header   string
	format   string
	noSample bool
}

func newConvertCommand(load configLoader) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert <statement> [statement ...]",
		Short: "Convert PDF or text statements to CSV or XLSX",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "" && len(args) > 1 {
				return errors.New("--output can only be used with a single input file")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			return runConvert(cmd, cfg, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path (defaults to the input name with the format's extension)")
	cmd.Flags().StringVar(&opts.header, "header", "", "CSV header style: upper or title (defaults to the configured style)")
	cmd.Flags().StringVar(&opts.format, "format", "csv", "output format: csv or xlsx")
	cmd.Flags().BoolVar(&opts.noSample, "no-sample", false, "write an empty ledger instead of sample data when nothing is recognized")

	return cmd
}

type ledgerWriter interface {
	Write(io.Writer, []models.Transaction) error
}

func runConvert(cmd *cobra.Command, cfg *config.Config, opts convertOptions, inputs []string) error {
	headerName := cfg.Parser.Header
	if opts.header != "" {
		headerName = opts.header
	}
	header, err := writer.ParseHeaderStyle(headerName)
	if err != nil {
		return err
	}

	var w ledgerWriter
	switch strings.ToLower(opts.format) {
	case "csv":
		w = &writer.CSVWriter{Header: header}
	case "xlsx":
		w = &writer.XLSXWriter{Header: header}
	default:
		return fmt.Errorf("unknown format %q: expected csv or xlsx", opts.format)
	}

	if opts.noSample {
		cfg.Parser.SampleFallback = false
	}
	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())
	p, err := newParser(cfg.Parser, logger)
	if err != nil {
		return err
	}
	pdfEx := newPDFExtractor(cfg.Extractor, logger)

	out := cmd.OutOrStdout()
	for _, in := range inputs {
		outPath := opts.output
		if outPath == "" {
			outPath = strings.TrimSuffix(in, filepath.Ext(in)) + "." + strings.ToLower(opts.format)
		}
		if err := convertFile(cmd, p, pdfEx, cfg.Extractor, w, in, outPath); err != nil {
			return fmt.Errorf("processing %s: %w", in, err)
		}
	}
	fmt.Fprintln(out, "Done.")
	return nil
}

func convertFile(cmd *cobra.Command, p *parser.Parser, pdfEx extractor.Extractor, cfg config.ExtractorConfig, w ledgerWriter, inPath, outPath string) error {
	out := cmd.OutOrStdout()

	var ex extractor.Extractor
	switch strings.ToLower(filepath.Ext(inPath)) {
	case ".pdf":
		ex = pdfEx
	case ".txt":
		ex = extractor.TextExtractor{}
	default:
		return fmt.Errorf("expected a .pdf or .txt file, got %q", filepath.Ext(inPath))
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintf(out, "Processing: %s\n", inPath)
	res, err := extractor.ExtractWithTimeout(cmd.Context(), ex, data, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}
	fmt.Fprintf(out, "  Extracted text from %d page(s) using %s\n", res.PageCount, res.Method)

	ledger := p.ParsePages(res.Pages)
	printSummary(out, ledger)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := w.Write(f, ledger.Transactions); err != nil {
		f.Close()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	fmt.Fprintf(out, "  Output: %s\n", outPath)
	return nil
}

func printSummary(out io.Writer, ledger *models.Ledger) {
	switch {
	case ledger.UsedSampleData:
		color.New(color.BgYellow, color.FgBlack).Fprintf(out, " SAMPLE ")
		fmt.Fprintf(out, " no transactions recognized (%s); wrote %d sample rows\n",
			ledger.FallbackReason, len(ledger.Transactions))
	case ledger.FallbackReason != models.FallbackNone:
		color.New(color.BgRed, color.FgWhite).Fprintf(out, " EMPTY ")
		fmt.Fprintf(out, " no transactions recognized (%s)\n", ledger.FallbackReason)
	default:
		color.New(color.BgGreen, color.FgBlack).Fprintf(out, " %d ", len(ledger.Transactions))
		fmt.Fprintf(out, " transaction(s) found, %d candidate(s) discarded\n", ledger.Discarded)
	}
}
