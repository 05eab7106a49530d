package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is a single ledger row recovered from statement text.
// All fields are display strings; the record is built once and never updated.
// Field order matches the CSV column order.
type Transaction struct {
	Date        string `json:"date" csv:"date"`
	Type        string `json:"type" csv:"type"`
	Description string `json:"description" csv:"description"`
	Amount      string `json:"amount" csv:"amount"`
	Balance     string `json:"balance" csv:"balance"`
}

// FallbackReason explains why a ledger holds sample data (or nothing).
type FallbackReason string

const (
	FallbackNone             FallbackReason = ""
	FallbackInsufficientText FallbackReason = "insufficient_text"
	FallbackSectionNotFound  FallbackReason = "section_not_found"
	FallbackNoTransactions   FallbackReason = "no_transactions"
)

// Ledger is the parser output for one document.
type Ledger struct {
	Transactions   []Transaction  `json:"transactions"`
	UsedSampleData bool           `json:"usedSampleData"`
	FallbackReason FallbackReason `json:"fallbackReason,omitempty"`

	// Diagnostics
	TextLength   int `json:"textLength"`
	LineCount    int `json:"lineCount"`
	SectionStart int `json:"sectionStart"` // -1 when no section was located
	Discarded    int `json:"discarded"`    // candidates dropped by the blacklist or the cap
}

// Conversion is a stored conversion result, keyed by user.
type Conversion struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"userId"`
	Filename         string    `json:"filename"`
	TransactionCount int       `json:"transactionCount"`
	UsedSampleData   bool      `json:"usedSampleData"`
	ByteSize         int       `json:"byteSize"`
	CSV              string    `json:"csv,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}
