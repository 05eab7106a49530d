package parser

import "strings"

// Transaction types produced by the classifier.
const (
	TypeDirectPayment       = "Direct Payment"
	TypeDirectDeposit       = "Direct Deposit"
	TypeInterestEarned      = "Interest Earned"
	TypeTransferToSavings   = "Transfer to Savings"
	TypeTransferFromSavings = "Transfer from Savings"
	TypeDeposit             = "Deposit"
	TypeWithdrawal          = "Withdrawal"
	TypeTransfer            = "Transfer"
	TypePayment             = "Payment"
	TypeFee                 = "Fee"
	TypeInterest            = "Interest"
	TypeCheck               = "Check"
	TypeATM                 = "ATM"
	TypeDefault             = "Transaction"
)

// Rule maps window text to a transaction type. A rule fires when the text
// contains every word in All and, if Any is non-empty, at least one of Any.
type Rule struct {
	All  []string
	Any  []string
	Type string
}

func (r Rule) matches(lower string) bool {
	for _, w := range r.All {
		if !strings.Contains(lower, w) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, w := range r.Any {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// classificationRules is evaluated top to bottom; the first match wins.
// Multi-word phrases must stay above the single words they contain.
var classificationRules = []Rule{
	{Any: []string{"direct payment"}, Type: TypeDirectPayment},
	{Any: []string{"direct deposit"}, Type: TypeDirectDeposit},
	{Any: []string{"interest earned"}, Type: TypeInterestEarned},
	{All: []string{"withdrawal", "savings"}, Type: TypeTransferToSavings},
	{All: []string{"deposit", "savings"}, Type: TypeTransferFromSavings},
	{Any: []string{"deposit", "credit"}, Type: TypeDeposit},
	{Any: []string{"withdrawal", "debit"}, Type: TypeWithdrawal},
	{Any: []string{"transfer"}, Type: TypeTransfer},
	{Any: []string{"payment", "pay"}, Type: TypePayment},
	{Any: []string{"fee", "charge"}, Type: TypeFee},
	{Any: []string{"interest"}, Type: TypeInterest},
	{Any: []string{"check"}, Type: TypeCheck},
	{Any: []string{"atm"}, Type: TypeATM},
}

// Rules returns a copy of the classification table in priority order.
func Rules() []Rule {
	out := make([]Rule, len(classificationRules))
	copy(out, classificationRules)
	return out
}

// Classify returns the transaction type for a window of statement text.
func Classify(text string) string {
	lower := strings.ToLower(text)
	for _, r := range classificationRules {
		if r.matches(lower) {
			return r.Type
		}
	}
	return TypeDefault
}
