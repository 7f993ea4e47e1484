package match

// Levenshtein computes the edit distance between two strings, counted in runes.
//
// Time complexity: O(len(a) * len(b))
// Space complexity: O(min(len(a), len(b))).
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}

	ra, rb := []rune(a), []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}

	if len(rb) == 0 {
		return len(ra)
	}

	// keep ra the shorter one
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)

	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		curr[0] = j

		for i := 1; i <= len(ra); i++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}

			curr[i] = min(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)
		}

		prev, curr = curr, prev
	}

	return prev[len(ra)]
}

// LevenshteinNormalized computes 1 - distance/max(len(a), len(b)).
// Identical strings (including two empty ones) score 1.0.
func LevenshteinNormalized(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 && lb == 0 {
		return 1.0
	}

	return 1.0 - float64(Levenshtein(a, b))/float64(max(la, lb))
}

// NormalizedLevenshteinScore is LevenshteinNormalized over normalized identifiers.
func NormalizedLevenshteinScore(a, b string) float64 {
	return LevenshteinNormalized(NormalizeIdent(a), NormalizeIdent(b))
}

// NormalizedLevenshteinScoreWithSuffixStrip also strips common suffixes such as "id".
func NormalizedLevenshteinScoreWithSuffixStrip(a, b string) float64 {
	return LevenshteinNormalized(NormalizeIdentWithSuffixStrip(a), NormalizeIdentWithSuffixStrip(b))
}

// TokenSimilarity is the Jaccard similarity of the lowercase token sets of a
// and b: "Customer Name" and "customerName" score 1.0, "borrowerName" and
// "customerName" score 1/3.
func TokenSimilarity(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}

	shared := 0
	for tok := range ta {
		if tb[tok] {
			shared++
		}
	}

	return float64(shared) / float64(len(ta)+len(tb)-shared)
}

func tokenSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range TokenizeIdent(s) {
		out[tok] = true
	}

	return out
}

// NameSimilarity is the best of the normalized edit distance (with and
// without suffix stripping) and token similarity for two names.
func NameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	return max(
		NormalizedLevenshteinScore(a, b),
		NormalizedLevenshteinScoreWithSuffixStrip(a, b),
		TokenSimilarity(a, b),
	)
}
