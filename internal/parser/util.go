package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date patterns tried against each candidate line, in priority order.
var datePatterns = []*regexp.Regexp{
	// MM/DD/YYYY or M/D/YY
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
	// MM-DD-YYYY or M-D-YY
	regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{2,4}\b`),
	// Mon D, YYYY (e.g., Aug 19, 2025)
	regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}\b`),
	// D Mon YYYY (e.g., 19 Aug 2025)
	regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{4}\b`),
}

// leadingMonthDate matches a "Mon D, YYYY" date at the very start of a line.
var leadingMonthDate = regexp.MustCompile(`(?i)^(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}\b`)

// amountPattern matches currency-like tokens: optional sign and dollar sign,
// digit groups separated by commas, and exactly two decimals.
var amountPattern = regexp.MustCompile(`-?\$?\d+(?:,\d+)*\.\d{2}\b`)

// twoDecimalPattern matches any numeric token with two decimals.
var twoDecimalPattern = regexp.MustCompile(`\d\.\d{2}\b`)

var (
	septAbbrev           = regexp.MustCompile(`(?i)\bsept\b`)
	transactionIDPattern = regexp.MustCompile(`(?i)transaction\s+id:\s*\S+`)
	shortIDPattern       = regexp.MustCompile(`(?i)\bid:\s*\S+`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
	edgeNonWord          = regexp.MustCompile(`^\W+|\W+$`)
)

const currencySymbols = "$£€"

// Amount bounds, exclusive on both ends.
var (
	minAmount = decimal.RequireFromString("0.01")
	maxAmount = decimal.NewFromInt(100000)
)

// dateLayouts are the layouts a matched date token is parsed with before
// being re-rendered as "Jan 2, 2006".
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"1-2-2006",
	"01-02-06",
	"1-2-06",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
}

const displayDateLayout = "Jan 2, 2006"

// parseAmount converts a token like "$3,449.55" or "-12.00" to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}

// inAmountRange reports whether 0.01 < |d| < 100000.
func inAmountRange(d decimal.Decimal) bool {
	abs := d.Abs()
	return abs.GreaterThan(minAmount) && abs.LessThan(maxAmount)
}

// formatDate renders a matched date token as "Mon D, YYYY", or returns it
// unchanged when no known layout accepts it.
func formatDate(token string) string {
	cleaned := whitespaceRun.ReplaceAllString(strings.TrimSpace(token), " ")
	cleaned = strings.Replace(cleaned, ".", "", 1)
	cleaned = septAbbrev.ReplaceAllString(cleaned, "Sep")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format(displayDateLayout)
		}
	}
	return token
}

// normalizeSpace collapses whitespace runs and trims.
func normalizeSpace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func containsCurrency(line string) bool {
	return strings.ContainsAny(line, currencySymbols)
}
