package match

import (
	"math"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected int
	}{
		{"", "", 0},
		{"a", "a", 0},
		{"", "abc", 3},
		{"abc", "", 3},

		{"a", "b", 1},  // substitution
		{"a", "ab", 1}, // insertion
		{"ab", "a", 1}, // deletion

		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},

		// counted in runes, not bytes
		{"café", "cafe", 1},
		{"número", "numero", 1},

		// field names after normalization
		{"borrowername", "customername", 5},
		{"customerage", "customername", 2},
		{"dueamount", "amount", 3},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			result := Levenshtein(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, result, tt.expected)
			}

			if reverse := Levenshtein(tt.b, tt.a); reverse != result {
				t.Errorf("Levenshtein not symmetric for (%q, %q): %d vs %d", tt.a, tt.b, result, reverse)
			}
		})
	}
}

func TestLevenshteinNormalized(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected float64
	}{
		{"", "", 1.0},
		{"hello", "hello", 1.0},
		{"abc", "xyz", 0.0},
		{"kitten", "sitting", 1.0 - 3.0/7.0},
		{"café", "cafe", 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			result := LevenshteinNormalized(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("LevenshteinNormalized(%q, %q) = %f, want %f", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestTokenSimilarity(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected float64
	}{
		{"", "", 1.0},
		{"a", "", 0.0},
		{"Customer Name", "customerName", 1.0},
		{"customer_name", "Name Customer", 1.0},
		{"borrowerName", "customerName", 1.0 / 3.0},
		{"Days Past Due", "daysOverdue", 1.0 / 4.0},
		{"agentName", "callDate", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			result := TokenSimilarity(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("TokenSimilarity(%q, %q) = %f, want %f", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		minScore float64
		maxScore float64
	}{
		{"customerId", "customer", 1.0, 1.0},
		{"Customer Name", "customer_name", 1.0, 1.0},
		{"borrowerName", "customerName", 0.58, 0.59},
		{"", "customerName", 0.0, 0.0},
		{"notes", "customerName", 0.0, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			result := NameSimilarity(tt.a, tt.b)
			if result < tt.minScore-0.0001 || result > tt.maxScore+0.0001 {
				t.Errorf("NameSimilarity(%q, %q) = %f, want in [%f, %f]", tt.a, tt.b, result, tt.minScore, tt.maxScore)
			}
		})
	}
}

func BenchmarkNameSimilarity(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NameSimilarity("Borrower Full Name", "customer_full_name")
	}
}
