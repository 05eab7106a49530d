package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

// BalancePolicy chooses the balance when a window holds several amounts.
type BalancePolicy int

const (
	// BalanceLast takes the first amount as the transaction amount and the
	// last one as the running balance; amounts in between are ignored.
	BalanceLast BalancePolicy = iota
	// BalanceSecond takes the amount right after the transaction amount.
	BalanceSecond
)

// ParseBalancePolicy maps "last" or "second" to a BalancePolicy.
func ParseBalancePolicy(s string) (BalancePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last":
		return BalanceLast, nil
	case "second":
		return BalanceSecond, nil
	}
	return BalanceLast, fmt.Errorf("unknown balance policy %q", s)
}

func (bp BalancePolicy) String() string {
	if bp == BalanceSecond {
		return "second"
	}
	return "last"
}

func (bp BalancePolicy) pick(amounts []decimal.Decimal) (amount, balance decimal.Decimal) {
	amount = amounts[0]
	switch {
	case len(amounts) == 1:
		balance = amount
	case bp == BalanceSecond:
		balance = amounts[1]
	default:
		balance = amounts[len(amounts)-1]
	}
	return amount, balance
}

// FindDate returns the first date token in line, trying each date pattern in
// priority order, and its byte offset. ok is false when no pattern matches.
func FindDate(line string) (token string, pos int, ok bool) {
	for _, re := range datePatterns {
		if loc := re.FindStringIndex(line); loc != nil {
			return line[loc[0]:loc[1]], loc[0], true
		}
	}
	return "", -1, false
}

// ExtractAmounts returns every amount token in text whose absolute value lies
// strictly between 0.01 and 100000, in order of appearance.
func ExtractAmounts(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, tok := range amountPattern.FindAllString(text, -1) {
		d, err := parseAmount(tok)
		if err != nil || !inAmountRange(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// window joins line i with up to n following lines.
func window(lines []string, i, n int) string {
	end := i + 1 + n
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[i:end], " ")
}

// scan walks lines from start and builds a transaction for every dated line
// whose window yields an amount and a description that survives the
// blacklist. Candidates past the cap are counted but dropped.
func (p *Parser) scan(lines []string, start int) (txns []models.Transaction, discarded int) {
	for i := start; i < len(lines); i++ {
		line := lines[i]
		if isHeaderLine(line) {
			continue
		}

		dateToken, _, ok := FindDate(line)
		if !ok {
			continue
		}

		text := window(lines, i, p.lookahead)
		amounts := ExtractAmounts(text)
		if len(amounts) == 0 {
			continue
		}

		txnType := Classify(text)
		desc, phrase, ok := cleanDescription(text, dateToken, txnType)
		if !ok {
			p.logger.Debug("candidate rejected",
				slog.Int("line", i+1),
				slog.String("phrase", phrase),
			)
			discarded++
			continue
		}

		if len(txns) >= p.maxTransactions {
			discarded++
			continue
		}

		amount, balance := p.balancePolicy.pick(amounts)
		txns = append(txns, models.Transaction{
			Date:        formatDate(dateToken),
			Type:        txnType,
			Description: desc,
			Amount:      amount.StringFixed(2),
			Balance:     balance.StringFixed(2),
		})
	}
	return txns, discarded
}
