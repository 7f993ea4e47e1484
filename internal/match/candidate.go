package match

import (
	"sort"

	"schema-engine/internal/schema"
)

// Candidate represents a potential mapping from an old-version field to a
// new-version field.
type Candidate struct {
	SourceField *schema.FieldDefinition
	TargetField *schema.FieldDefinition

	NameScore  float64 // best name/display-name similarity (0-1)
	TypeCompat TypeCompatibilityResult

	// CombinedScore ranks candidates, higher is better.
	CombinedScore float64
}

// CandidateList is a list of candidates with ranking functionality.
type CandidateList []Candidate

// FieldNameSimilarity compares two fields by name and display name in every
// pairing and returns the best score.
func FieldNameSimilarity(a, b *schema.FieldDefinition) float64 {
	an, al := a.Name, a.Label()
	bn, bl := b.Name, b.Label()

	return max(
		NameSimilarity(an, bn),
		NameSimilarity(al, bl),
		NameSimilarity(an, bl),
		NameSimilarity(al, bn),
	)
}

// Score builds the candidate for mapping source onto target.
func Score(source, target *schema.FieldDefinition) Candidate {
	nameScore := FieldNameSimilarity(source, target)
	compat := ScoreTypeCompatibility(source.Type, target.Type)

	return Candidate{
		SourceField:   source,
		TargetField:   target,
		NameScore:     nameScore,
		TypeCompat:    compat,
		CombinedScore: calculateCombinedScore(nameScore, compat.Compatibility),
	}
}

// RankCandidates ranks source fields as matches for targetField.
// Returns candidates sorted by combined score (descending).
func RankCandidates(targetField *schema.FieldDefinition, sourceFields []schema.FieldDefinition) CandidateList {
	candidates := make(CandidateList, 0, len(sourceFields))
	for i := range sourceFields {
		candidates = append(candidates, Score(&sourceFields[i], targetField))
	}

	sort.Sort(candidates)

	return candidates
}

// RankTargets ranks target fields as matches for sourceField, the reverse of
// RankCandidates.
func RankTargets(sourceField *schema.FieldDefinition, targetFields []schema.FieldDefinition) CandidateList {
	candidates := make(CandidateList, 0, len(targetFields))
	for i := range targetFields {
		candidates = append(candidates, Score(sourceField, &targetFields[i]))
	}

	sort.Sort(byTarget{candidates})

	return candidates
}

// calculateCombinedScore weighs name similarity at 60% and type compatibility at 40%.
func calculateCombinedScore(nameScore float64, typeCompat TypeCompatibility) float64 {
	const (
		nameWeight = 0.6
		typeWeight = 0.4
	)

	return nameScore*nameWeight + typeCompat.Score()*typeWeight
}

// Len implements sort.Interface.
func (c CandidateList) Len() int { return len(c) }

// Swap implements sort.Interface.
func (c CandidateList) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

// Less sorts by combined score descending, then by source field id.
func (c CandidateList) Less(i, j int) bool {
	if c[i].CombinedScore != c[j].CombinedScore {
		return c[i].CombinedScore > c[j].CombinedScore
	}

	return c[i].SourceField.ID < c[j].SourceField.ID
}

type byTarget struct{ CandidateList }

func (b byTarget) Less(i, j int) bool {
	c := b.CandidateList
	if c[i].CombinedScore != c[j].CombinedScore {
		return c[i].CombinedScore > c[j].CombinedScore
	}

	return c[i].TargetField.ID < c[j].TargetField.ID
}

// Top returns the top n candidates.
func (c CandidateList) Top(n int) CandidateList {
	if n >= len(c) {
		return c
	}

	return c[:n]
}

// Best returns the best candidate, or nil if no candidates.
func (c CandidateList) Best() *Candidate {
	if len(c) == 0 {
		return nil
	}

	return &c[0]
}

// IsAmbiguous returns true if the top two candidates are within the threshold.
func (c CandidateList) IsAmbiguous(threshold float64) bool {
	if len(c) < 2 {
		return false
	}

	return c[0].CombinedScore-c[1].CombinedScore < threshold
}

// WithNameScore returns candidates whose name score is at or above the
// threshold. Type compatibility alone never keeps a candidate.
func (c CandidateList) WithNameScore(threshold float64) CandidateList {
	var result CandidateList

	for _, cand := range c {
		if cand.NameScore >= threshold {
			result = append(result, cand)
		}
	}

	return result
}

// HighConfidence returns the best candidate if it's significantly better than alternatives.
// Returns nil if no clear winner exists.
func (c CandidateList) HighConfidence(minScore, minGap float64) *Candidate {
	if len(c) == 0 {
		return nil
	}

	best := &c[0]

	if best.CombinedScore < minScore {
		return nil
	}

	if best.TypeCompat.Compatibility < TypeNeedsTransform {
		return nil
	}

	if len(c) > 1 && c[0].CombinedScore-c[1].CombinedScore < minGap {
		return nil
	}

	return best
}

// Confidence thresholds for auto-accepting matches.
const (
	// DefaultMinScore is the minimum combined score for auto-acceptance.
	DefaultMinScore = 0.7
	// DefaultMinGap is the minimum score gap between top candidates.
	DefaultMinGap = 0.15
	// DefaultManualFloor is the name score below which a field is
	// considered to have no counterpart at all.
	DefaultManualFloor = 0.45
)
