package parser

import "strings"

// textReplacer normalizes common PDF extraction artifacts before splitting.
var textReplacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u00a0", " ",
	"\u200b", "",
	"\ufeff", "",
)

// SplitLines splits raw text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	raw := strings.Split(textReplacer.Replace(text), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
