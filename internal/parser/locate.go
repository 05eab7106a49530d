package parser

// LocateSection finds where the transaction table begins.
//
// A header line naming the date, description and amount columns wins; the
// table starts on the line after it. Otherwise the first line that opens with
// a "Mon D, YYYY" date, carries a currency symbol and a two-decimal number,
// and is not account-summary text starts the table. ok is false when neither
// rule fires on any line.
func LocateSection(lines []string) (start int, ok bool) {
	for i, line := range lines {
		if isHeaderLine(line) {
			return i + 1, true
		}
	}

	for i, line := range lines {
		if looksLikeFirstTransaction(line) {
			return i, true
		}
	}

	return -1, false
}

func looksLikeFirstTransaction(line string) bool {
	if !leadingMonthDate.MatchString(line) {
		return false
	}
	if !containsCurrency(line) || !twoDecimalPattern.MatchString(line) {
		return false
	}
	_, blacklisted := sectionBlacklist.find(line)
	return !blacklisted
}
