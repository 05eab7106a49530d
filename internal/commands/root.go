// Package commands implements the statement-ledger CLI.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-ledger/internal/buildinfo"
	"github.com/insightdelivered/statement-ledger/internal/config"
	"github.com/insightdelivered/statement-ledger/internal/extractor"
	"github.com/insightdelivered/statement-ledger/internal/parser"
)

// dotenvFile is read from the working directory when present.
const dotenvFile = ".env"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "statement-ledger",
		Short:   "Convert bank statement text and PDFs into CSV ledgers",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath, dotenvFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newConvertCommand(load))
	rootCmd.AddCommand(newServeCommand(load))
	rootCmd.AddCommand(newHistoryCommand(load))

	return rootCmd
}

type configLoader func() (*config.Config, error)

func newParser(cfg config.ParserConfig, logger *slog.Logger) (*parser.Parser, error) {
	bp, err := parser.ParseBalancePolicy(cfg.BalancePolicy)
	if err != nil {
		return nil, err
	}
	return parser.New(
		parser.WithLookahead(cfg.Lookahead),
		parser.WithMaxTransactions(cfg.MaxTransactions),
		parser.WithMinTextLength(cfg.MinTextLength),
		parser.WithSampleFallback(cfg.SampleFallback),
		parser.WithBalancePolicy(bp),
		parser.WithLogger(logger),
	), nil
}

func newPDFExtractor(cfg config.ExtractorConfig, logger *slog.Logger) *extractor.PDFExtractor {
	ex := extractor.NewPDFExtractor(logger)
	ex.Pdftotext = cfg.Pdftotext
	return ex
}
