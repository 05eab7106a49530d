// Package parser turns plain statement text into an ordered ledger of
// transactions using positional and lexical heuristics.
package parser

import (
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

// Defaults used by New.
const (
	DefaultLookahead       = 2
	DefaultMaxTransactions = 50
	DefaultMinTextLength   = 100
)

// Parser converts extracted statement text into a ledger. A Parser holds only
// read-only settings and may be shared between goroutines.
type Parser struct {
	lookahead       int
	maxTransactions int
	minTextLength   int
	sampleFallback  bool
	balancePolicy   BalancePolicy
	logger          *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLookahead sets how many lines after a dated line are searched for
// amounts and description text.
func WithLookahead(n int) Option {
	return func(p *Parser) {
		if n >= 0 {
			p.lookahead = n
		}
	}
}

// WithMaxTransactions caps the ledger size.
func WithMaxTransactions(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxTransactions = n
		}
	}
}

// WithMinTextLength sets the trimmed text length below which a document is
// treated as having no transaction section.
func WithMinTextLength(n int) Option {
	return func(p *Parser) {
		if n >= 0 {
			p.minTextLength = n
		}
	}
}

// WithSampleFallback controls whether an unrecognized document yields the
// sample ledger (true) or an empty one (false).
func WithSampleFallback(enabled bool) Option {
	return func(p *Parser) { p.sampleFallback = enabled }
}

// WithBalancePolicy sets how the balance is picked from a window's amounts.
func WithBalancePolicy(bp BalancePolicy) Option {
	return func(p *Parser) { p.balancePolicy = bp }
}

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a Parser with default settings adjusted by opts.
func New(opts ...Option) *Parser {
	p := &Parser{
		lookahead:       DefaultLookahead,
		maxTransactions: DefaultMaxTransactions,
		minTextLength:   DefaultMinTextLength,
		sampleFallback:  true,
		balancePolicy:   BalanceLast,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParsePages parses text extracted page by page.
func (p *Parser) ParsePages(pages []string) *models.Ledger {
	return p.Parse(strings.Join(pages, "\n"))
}

// Parse runs the full pipeline over text. It never fails: when no
// transaction is recognized the ledger is replaced by the sample ledger (or
// left empty when sample fallback is disabled) and FallbackReason says why.
func (p *Parser) Parse(text string) *models.Ledger {
	ledger := &models.Ledger{
		TextLength:   utf8.RuneCountInString(text),
		SectionStart: -1,
	}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < p.minTextLength {
		return p.fallback(ledger, models.FallbackInsufficientText)
	}

	lines := SplitLines(text)
	ledger.LineCount = len(lines)

	start, ok := LocateSection(lines)
	if !ok {
		return p.fallback(ledger, models.FallbackSectionNotFound)
	}
	ledger.SectionStart = start

	txns, discarded := p.scan(lines, start)
	ledger.Discarded = discarded
	if len(txns) == 0 {
		return p.fallback(ledger, models.FallbackNoTransactions)
	}

	ledger.Transactions = txns
	p.logger.Debug("statement parsed",
		slog.Int("lines", ledger.LineCount),
		slog.Int("section_start", start),
		slog.Int("transactions", len(txns)),
		slog.Int("discarded", discarded),
	)
	return ledger
}

func (p *Parser) fallback(ledger *models.Ledger, reason models.FallbackReason) *models.Ledger {
	ledger.FallbackReason = reason
	if p.sampleFallback {
		ledger.Transactions = SampleLedger()
		ledger.UsedSampleData = true
	} else {
		ledger.Transactions = []models.Transaction{}
	}
	p.logger.Debug("no transactions recognized",
		slog.String("reason", string(reason)),
		slog.Bool("sample", ledger.UsedSampleData),
	)
	return ledger
}
