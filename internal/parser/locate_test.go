package parser

import "testing"

func TestLocateSection(t *testing.T) {
	tests := []struct {
		name      string
		lines     []string
		wantStart int
		wantOK    bool
	}{
		{
			name:      "header line",
			lines:     []string{"First Community Bank", "Date Description Amount Balance", "Aug 1, 2025 Deposit $10.00"},
			wantStart: 2,
			wantOK:    true,
		},
		{
			name:      "header wins over an earlier dated line",
			lines:     []string{"Aug 2, 2025 Grocery store $45.10", "DATE  DESCRIPTION  AMOUNT"},
			wantStart: 2,
			wantOK:    true,
		},
		{
			name:      "first plausible dated line",
			lines:     []string{"Account summary", "Aug 1, 2025 Opening balance $100.00", "Aug 2, 2025 Grocery store $45.10"},
			wantStart: 2,
			wantOK:    true,
		},
		{
			name:      "dated line without currency symbol",
			lines:     []string{"Aug 2, 2025 Grocery store 45.10"},
			wantStart: -1,
			wantOK:    false,
		},
		{
			name:      "date not at line start",
			lines:     []string{"Posted Aug 2, 2025 Grocery store $45.10"},
			wantStart: -1,
			wantOK:    false,
		},
		{
			name:      "slash dates need a header",
			lines:     []string{"08/02/2025 Grocery store $45.10"},
			wantStart: -1,
			wantOK:    false,
		},
		{
			name:      "statement period boilerplate",
			lines:     []string{"Aug 1, 2025 statement period ends $0.00 due"},
			wantStart: -1,
			wantOK:    false,
		},
		{
			name:      "empty",
			lines:     nil,
			wantStart: -1,
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, ok := LocateSection(tt.lines)
			if ok != tt.wantOK || start != tt.wantStart {
				t.Errorf("LocateSection() = (%d, %v), want (%d, %v)", start, ok, tt.wantStart, tt.wantOK)
			}
		})
	}
}
