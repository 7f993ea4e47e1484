package match

import (
	"slices"
	"testing"
)

func TestNormalizeIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"customerName", "customername"},
		{"CustomerName", "customername"},
		{"customer_name", "customername"},
		{"customer-name", "customername"},
		{"Customer Name", "customername"},
		{"loan.amount", "loanamount"},
		{"DAYS_PAST_DUE", "dayspastdue"},
		{"SSNLast4", "ssnlast4"},
		{"", ""},
		{"A", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := NormalizeIdent(tt.input); result != tt.expected {
				t.Errorf("NormalizeIdent(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeIdentWithSuffixStrip(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"customerId", "customer"},
		{"Account IDs", "account"},
		{"CreatedAt", "created"},
		{"callTimestamp", "call"},
		{"startUTC", "start"},
		{"ID", "id"},
		{"customerName", "customername"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := NormalizeIdentWithSuffixStrip(tt.input); result != tt.expected {
				t.Errorf("NormalizeIdentWithSuffixStrip(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTokenizeCamelCase(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"borrowerName", []string{"borrower", "Name"}},
		{"Days Past Due", []string{"Days", "Past", "Due"}},
		{"SSNLast4", []string{"SSN", "Last4"}},
		{"agent__id", []string{"agent", "id"}},
		{"ALLCAPS", []string{"ALLCAPS"}},
		{"", nil},
		{"AbC", []string{"Ab", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := tokenizeCamelCase(tt.input); !slices.Equal(result, tt.expected) {
				t.Errorf("tokenizeCamelCase(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTokenizeIdent(t *testing.T) {
	if got := TokenizeIdent("Promise To Pay"); !slices.Equal(got, []string{"promise", "to", "pay"}) {
		t.Errorf("TokenizeIdent = %v", got)
	}
}
