package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

var testTxns = []models.Transaction{
	{Date: "Aug 19, 2025", Type: "Direct Deposit", Description: "Payroll ach", Amount: "3449.55", Balance: "3449.55"},
	{Date: "Aug 20, 2025", Type: "Payment", Description: `Joe's "best" pizza, inc`, Amount: "-18.40", Balance: "3431.15"},
}

func TestCSVWriter_String(t *testing.T) {
	w := &CSVWriter{}
	got := w.String(testTxns)

	want := "DATE,TYPE,DESCRIPTION,AMOUNT,BALANCE\n" +
		`"Aug 19, 2025","Direct Deposit","Payroll ach","3449.55","3449.55"` + "\n" +
		`"Aug 20, 2025","Payment","Joe's ""best"" pizza, inc","-18.40","3431.15"`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("output should not end with a newline")
	}
}

func TestCSVWriter_TitleHeader(t *testing.T) {
	w := &CSVWriter{Header: HeaderTitle}
	got := w.String(nil)
	if got != "Date,Type,Description,Amount,Balance" {
		t.Errorf("got %q", got)
	}
}

func TestParseHeaderStyle(t *testing.T) {
	tests := []struct {
		input   string
		want    HeaderStyle
		wantErr bool
	}{
		{"", HeaderUpper, false},
		{"upper", HeaderUpper, false},
		{"Title", HeaderTitle, false},
		{"lower", HeaderUpper, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHeaderStyle(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, style := range []HeaderStyle{HeaderUpper, HeaderTitle} {
		t.Run(style.String(), func(t *testing.T) {
			w := &CSVWriter{Header: style}
			got, err := ReadCSV(strings.NewReader(w.String(testTxns)))
			if err != nil {
				t.Fatalf("ReadCSV: %v", err)
			}
			if len(got) != len(testTxns) {
				t.Fatalf("got %d rows, want %d", len(got), len(testTxns))
			}
			for i := range testTxns {
				if got[i] != testTxns[i] {
					t.Errorf("row %d: got %+v, want %+v", i, got[i], testTxns[i])
				}
			}
		})
	}
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	got, err := ReadCSV(strings.NewReader((&CSVWriter{}).String(nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rows, want 0", len(got))
	}
}

func TestReadCSV_BadHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Date,Description,Type,Amount,Balance\n\"a\",\"b\",\"c\",\"d\",\"e\""))
	if err == nil {
		t.Fatal("expected error for reordered columns")
	}
}

func TestCSVWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := &CSVWriter{}
	if err := w.WriteToFile(path, testTxns); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != w.String(testTxns) {
		t.Error("file contents differ from String()")
	}
}

func TestXLSXWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := &XLSXWriter{Header: HeaderTitle}
	if err := w.Write(&buf, testTxns); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "Date" || rows[0][4] != "Balance" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[2][2] != testTxns[1].Description {
		t.Errorf("description = %q", rows[2][2])
	}
	if rows[1][3] != "3449.55" {
		t.Errorf("amount = %q, want 3449.55", rows[1][3])
	}
}
