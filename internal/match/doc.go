// Package match scores how likely two schema fields are the same field
// across schema versions.
//
// Key functions:
//   - NormalizeIdent: normalizes field names and display names for fuzzy matching
//   - Levenshtein: computes edit distance between strings
//   - TokenSimilarity: Jaccard similarity of identifier tokens
//   - ScoreTypeCompatibility: scores how safely a value of one field type fits another
//   - RankCandidates: ranks potential field mappings
package match
