package writer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

// HeaderStyle selects the casing of the CSV header row.
type HeaderStyle int

const (
	// HeaderUpper emits DATE,TYPE,DESCRIPTION,AMOUNT,BALANCE.
	HeaderUpper HeaderStyle = iota
	// HeaderTitle emits Date,Type,Description,Amount,Balance.
	HeaderTitle
)

var columns = []string{"Date", "Type", "Description", "Amount", "Balance"}

// ParseHeaderStyle maps "upper" or "title" to a HeaderStyle.
func ParseHeaderStyle(s string) (HeaderStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upper":
		return HeaderUpper, nil
	case "title":
		return HeaderTitle, nil
	default:
		return HeaderUpper, fmt.Errorf("unknown header style %q", s)
	}
}

func (h HeaderStyle) String() string {
	if h == HeaderTitle {
		return "title"
	}
	return "upper"
}

// Row returns the header cells for this style.
func (h HeaderStyle) Row() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		if h == HeaderUpper {
			c = strings.ToUpper(c)
		}
		out[i] = c
	}
	return out
}

// CSVWriter writes a ledger as CSV. The header row is bare; every data field
// is wrapped in double quotes with embedded quotes doubled. Rows are joined
// with "\n" and the output has no trailing newline.
type CSVWriter struct {
	Header HeaderStyle
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, txns []models.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	if err := w.Write(f, txns); err != nil {
		return err
	}
	return f.Close()
}

// Write writes transactions in CSV format to out.
func (w *CSVWriter) Write(out io.Writer, txns []models.Transaction) error {
	if _, err := io.WriteString(out, w.String(txns)); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// String renders transactions as CSV text.
func (w *CSVWriter) String(txns []models.Transaction) string {
	var b strings.Builder
	b.WriteString(strings.Join(w.Header.Row(), ","))
	for _, txn := range txns {
		b.WriteByte('\n')
		writeRow(&b, txn.Date, txn.Type, txn.Description, txn.Amount, txn.Balance)
	}
	return b.String()
}

func writeRow(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}
