package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

// ReadCSV decodes CSV produced by CSVWriter back into transactions. The header
// row must name the five ledger columns in order, in either casing.
func ReadCSV(in io.Reader) ([]models.Transaction, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(columns)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV input")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, c := range columns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), c) {
			return nil, fmt.Errorf("unexpected CSV column %d: got %q, want %q", i+1, header[i], c)
		}
	}

	var txns []models.Transaction
	if err := gocsv.UnmarshalCSVWithoutHeaders(r, &txns); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []models.Transaction{}, nil
		}
		return nil, fmt.Errorf("failed to decode CSV rows: %w", err)
	}
	return txns, nil
}
