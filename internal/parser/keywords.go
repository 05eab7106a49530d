package parser

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// phraseSet matches a fixed list of lower-case phrases against text in a
// single pass. Safe for concurrent use.
type phraseSet struct {
	phrases []string
	matcher *ahocorasick.Matcher
}

func newPhraseSet(phrases ...string) *phraseSet {
	return &phraseSet{
		phrases: phrases,
		matcher: ahocorasick.NewStringMatcher(phrases),
	}
}

// find returns the earliest-listed phrase contained in s, ignoring case.
func (ps *phraseSet) find(s string) (string, bool) {
	hits := ps.matcher.MatchThreadSafe([]byte(strings.ToLower(s)))
	if len(hits) == 0 {
		return "", false
	}
	first := hits[0]
	for _, h := range hits[1:] {
		if h < first {
			first = h
		}
	}
	return ps.phrases[first], true
}

// sectionBlacklist rejects account-summary lines when guessing where the
// transaction table starts.
var sectionBlacklist = newPhraseSet(
	"account",
	"balance",
	"interest rate",
	"member since",
	"statement period",
	"participating banks",
	"breakdown",
)

// descriptionBlacklist discards candidates whose cleaned description is
// account-summary boilerplate rather than a transaction.
var descriptionBlacklist = newPhraseSet(
	"account",
	"balance",
	"interest rate",
	"member since",
	"statement period",
	"participating banks",
	"breakdown",
	"moved balances",
	"current balance",
	"beginning balance",
	"annual percentage",
	"year-to-date",
	"current interest",
	"monthly interest",
	"primary account",
	"checking account",
)

var headerWords = []string{"date", "description", "amount"}

// isHeaderLine reports whether a line names the date, description and amount
// columns of a transaction table.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range headerWords {
		if !strings.Contains(lower, w) {
			return false
		}
	}
	return true
}
