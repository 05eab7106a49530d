package extractor

import (
	"strings"
	"unicode"
)

// commonWords appear in virtually every bank statement. Text containing none
// of them is treated as undecoded glyph garbage.
var commonWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction", "deposit",
	"withdrawal", "paid", "opening", "closing", "transfer", "direct",
	"number", "page", "period",
}

const (
	minReadableLen   = 50
	minReadableRatio = 0.6
)

// IsReadable reports whether pages hold more than 50 characters, more than
// 60% plain ASCII, and at least one common statement word.
func IsReadable(pages []string) bool {
	if textLen(pages) <= minReadableLen {
		return false
	}
	if asciiRatio(pages) <= minReadableRatio {
		return false
	}
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, w := range commonWords {
		if strings.Contains(combined, w) {
			return true
		}
	}
	return false
}

// asciiRatio uses a strict ASCII test; unicode.IsLetter accepts the accented
// glyphs that identity-encoded fonts decode into.
func asciiRatio(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsPrint(r) || unicode.IsSpace(r)) || strings.ContainsRune("£€", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

func textLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
