package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxDescriptionLen = 100
	minDescriptionLen = 3
)

// typePhrases holds one case-insensitive matcher per classifier output.
var typePhrases = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(classificationRules)+1)
	for _, r := range classificationRules {
		m[r.Type] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(r.Type))
	}
	m[TypeDefault] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(TypeDefault))
	return m
}()

// cleanDescription strips the date, amounts, type phrase and transaction-id
// noise from window text. It returns the blacklisted phrase and false when the
// result reads as account-summary boilerplate.
func cleanDescription(window, dateToken, txnType string) (desc, rejectedBy string, ok bool) {
	s := window
	if dateToken != "" {
		s = strings.Replace(s, dateToken, "", 1)
	}
	s = amountPattern.ReplaceAllString(s, "")
	s = normalizeSpace(s)

	if re, found := typePhrases[txnType]; found {
		s = re.ReplaceAllString(s, "")
	}

	s = transactionIDPattern.ReplaceAllString(s, "")
	s = shortIDPattern.ReplaceAllString(s, "")
	s = edgeNonWord.ReplaceAllString(s, "")
	s = normalizeSpace(s)

	if utf8.RuneCountInString(s) < minDescriptionLen {
		s = txnType + " Transaction"
	} else {
		s = capitalize(strings.ToLower(s))
		s = truncateRunes(s, maxDescriptionLen)
	}

	if phrase, hit := descriptionBlacklist.find(s); hit {
		return s, phrase, false
	}
	return s, "", true
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
