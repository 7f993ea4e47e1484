package migration

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"

	"schema-engine/internal/diagnostic"
	"schema-engine/internal/match"
	"schema-engine/internal/schema"
)

var (
	// ErrUnknownField is returned when a mapping names a field neither schema has.
	ErrUnknownField = errors.New("unknown field")
	// ErrMappingConflict is returned when a target field is already mapped.
	ErrMappingConflict = errors.New("mapping conflict")
)

// Suggestion is a candidate new field for an unresolved old field.
type Suggestion struct {
	NewFieldID   string  `json:"newFieldId" yaml:"newFieldId"`
	NewFieldName string  `json:"newFieldName" yaml:"newFieldName"`
	Score        float64 `json:"score" yaml:"score"`
}

// Unresolved is an old field the matcher could neither map nor rule out.
type Unresolved struct {
	OldFieldID   string       `json:"oldFieldId" yaml:"oldFieldId"`
	OldFieldName string       `json:"oldFieldName" yaml:"oldFieldName"`
	Reason       string       `json:"reason" yaml:"reason"`
	Candidates   []Suggestion `json:"candidates" yaml:"candidates"`
}

// Config is the field correspondence between two schema versions.
type Config struct {
	FromSchemaID string `json:"fromSchemaId" yaml:"fromSchemaId"`
	FromVersion  string `json:"fromVersion" yaml:"fromVersion"`
	ToSchemaID   string `json:"toSchemaId" yaml:"toSchemaId"`
	ToVersion    string `json:"toVersion" yaml:"toVersion"`

	Mappings       []schema.FieldMapping `json:"mappings" yaml:"mappings"`
	AddedFields    []string              `json:"addedFields" yaml:"addedFields"`
	RemovedFields  []string              `json:"removedFields" yaml:"removedFields"`
	ModifiedFields []string              `json:"modifiedFields" yaml:"modifiedFields"`
	Unresolved     []Unresolved          `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`

	// AffectedCallCount is the number of records needing migration, when known.
	AffectedCallCount int `json:"affectedCallCount" yaml:"affectedCallCount"`

	// SourceFieldNames and TargetFieldNames map field ids to record keys.
	SourceFieldNames map[string]string `json:"sourceFieldNames" yaml:"sourceFieldNames"`
	TargetFieldNames map[string]string `json:"targetFieldNames" yaml:"targetFieldNames"`

	Diagnostics diagnostic.Diagnostics `json:"diagnostics" yaml:"-"`
}

// Options tunes fuzzy matching.
type Options struct {
	// MinScore is the combined score a fuzzy mapping needs to be accepted.
	MinScore float64
	// MinGap is the lead the best candidate needs over the runner-up.
	MinGap float64
	// ManualFloor is the name score below which an old field is considered removed.
	ManualFloor float64
	// MaxCandidates limits suggestions per unresolved field.
	MaxCandidates int
}

// DefaultOptions returns the matcher defaults.
func DefaultOptions() Options {
	return Options{
		MinScore:      match.DefaultMinScore,
		MinGap:        match.DefaultMinGap,
		ManualFloor:   match.DefaultManualFloor,
		MaxCandidates: 3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()

	if o.MinScore <= 0 {
		o.MinScore = d.MinScore
	}

	if o.MinGap <= 0 {
		o.MinGap = d.MinGap
	}

	if o.ManualFloor <= 0 {
		o.ManualFloor = d.ManualFloor
	}

	if o.MaxCandidates <= 0 {
		o.MaxCandidates = d.MaxCandidates
	}

	return o
}

// Scope returns "from -> to" for diagnostics and logs.
func (c *Config) Scope() string {
	return fmt.Sprintf("%s@%s -> %s@%s", c.FromSchemaID, c.FromVersion, c.ToSchemaID, c.ToVersion)
}

// Blocked reports whether some old fields still need a decision.
func (c *Config) Blocked() bool {
	return len(c.Unresolved) > 0
}

// BuildConfig diffs from and to: fields sharing an id map exactly, renamed
// fields map fuzzily when the match is unambiguous, and the rest are added,
// removed or left unresolved for a human decision.
func BuildConfig(from, to *schema.SchemaDefinition, opts Options) (*Config, error) {
	if from == nil || to == nil {
		return nil, errors.New("both schema versions are required")
	}

	opts = opts.withDefaults()

	cfg := &Config{
		FromSchemaID:     from.ID,
		FromVersion:      from.Version,
		ToSchemaID:       to.ID,
		ToVersion:        to.Version,
		Mappings:         []schema.FieldMapping{},
		AddedFields:      []string{},
		RemovedFields:    []string{},
		ModifiedFields:   []string{},
		SourceFieldNames: from.NameByID(),
		TargetFieldNames: to.NameByID(),
	}

	scope := cfg.Scope()

	if from.ID != to.ID {
		cfg.Diagnostics.AddWarning(diagnostic.CodeSchemaIdentityMismatch,
			fmt.Sprintf("migrating between different schemas %q and %q", from.ID, to.ID), scope, "")
	}

	var removed, added []schema.FieldDefinition

	for i := range from.Fields {
		old := &from.Fields[i]

		cur := to.FieldByID(old.ID)
		if cur == nil {
			removed = append(removed, *old)
			continue
		}

		cfg.Mappings = append(cfg.Mappings, schema.FieldMapping{
			OldFieldID: old.ID,
			NewFieldID: cur.ID,
			Confidence: schema.ConfidenceExact,
		})

		if fieldChanged(old, cur) {
			cfg.ModifiedFields = append(cfg.ModifiedFields, cur.ID)
			cfg.Diagnostics.AddInfo(diagnostic.CodeModifiedField,
				fmt.Sprintf("field %q changed definition", cur.ID), scope, cur.ID)
		}
	}

	for i := range to.Fields {
		if from.FieldByID(to.Fields[i].ID) == nil {
			added = append(added, to.Fields[i])
		}
	}

	claimedOld := map[string]bool{}
	matchedNew := map[string]bool{}

	for i := range added {
		target := &added[i]

		best := match.RankCandidates(target, unclaimed(removed, claimedOld)).HighConfidence(opts.MinScore, opts.MinGap)
		if best == nil {
			continue
		}

		// the old field must prefer this target just as clearly
		back := match.RankTargets(best.SourceField, unclaimed(added, matchedNew)).HighConfidence(opts.MinScore, opts.MinGap)
		if back == nil || back.TargetField.ID != target.ID {
			continue
		}

		cfg.Mappings = append(cfg.Mappings, schema.FieldMapping{
			OldFieldID:      best.SourceField.ID,
			NewFieldID:      target.ID,
			Confidence:      schema.ConfidenceFuzzy,
			SimilarityScore: roundScore(best.CombinedScore),
		})
		cfg.Diagnostics.AddInfo(diagnostic.CodeFuzzyMapping,
			fmt.Sprintf("%q -> %q (score %.2f, %s)", best.SourceField.Name, target.Name,
				best.CombinedScore, best.TypeCompat.Compatibility), scope, target.ID)

		claimedOld[best.SourceField.ID] = true
		matchedNew[target.ID] = true
	}

	remaining := unclaimed(added, matchedNew)

	for i := range removed {
		old := &removed[i]
		if claimedOld[old.ID] {
			continue
		}

		candidates := match.RankTargets(old, remaining).WithNameScore(opts.ManualFloor)
		if len(candidates) == 0 {
			cfg.RemovedFields = append(cfg.RemovedFields, old.ID)
			cfg.Diagnostics.AddInfo(diagnostic.CodeRemovedField,
				fmt.Sprintf("field %q has no counterpart and will be dropped", old.ID), scope, old.ID)

			continue
		}

		u := Unresolved{
			OldFieldID:   old.ID,
			OldFieldName: old.Name,
			Reason:       unresolvedReason(candidates, opts),
		}

		var suggestions []string

		for _, c := range candidates.Top(opts.MaxCandidates) {
			u.Candidates = append(u.Candidates, Suggestion{
				NewFieldID:   c.TargetField.ID,
				NewFieldName: c.TargetField.Name,
				Score:        roundScore(c.CombinedScore),
			})
			suggestions = append(suggestions, c.TargetField.ID)
		}

		cfg.Unresolved = append(cfg.Unresolved, u)

		code := diagnostic.CodeUnresolvedMapping
		if candidates.IsAmbiguous(opts.MinGap) {
			code = diagnostic.CodeAmbiguousMapping
		}

		cfg.Diagnostics.AddWarningWithSuggestions(code,
			fmt.Sprintf("field %q needs a manual mapping: %s", old.ID, u.Reason), scope, old.ID, suggestions)
	}

	for i := range added {
		if !matchedNew[added[i].ID] {
			cfg.AddedFields = append(cfg.AddedFields, added[i].ID)
		}
	}

	return cfg, nil
}

func unresolvedReason(candidates match.CandidateList, opts Options) string {
	best := candidates.Best()

	switch {
	case candidates.IsAmbiguous(opts.MinGap):
		return fmt.Sprintf("ambiguous: %q (%.2f) and %q (%.2f) are too close",
			best.TargetField.Name, best.CombinedScore,
			candidates[1].TargetField.Name, candidates[1].CombinedScore)
	case best.CombinedScore < opts.MinScore:
		return fmt.Sprintf("best match %q (%.2f) below threshold %.2f",
			best.TargetField.Name, best.CombinedScore, opts.MinScore)
	default:
		return fmt.Sprintf("best match %q prefers another field", best.TargetField.Name)
	}
}

func unclaimed(fields []schema.FieldDefinition, claimed map[string]bool) []schema.FieldDefinition {
	out := make([]schema.FieldDefinition, 0, len(fields))
	for i := range fields {
		if !claimed[fields[i].ID] {
			out = append(out, fields[i])
		}
	}

	return out
}

// fieldChanged compares everything but identity.
func fieldChanged(a, b *schema.FieldDefinition) bool {
	return a.Name != b.Name ||
		a.DisplayName != b.DisplayName ||
		a.Type != b.Type ||
		a.Required != b.Required ||
		a.Behavior() != b.Behavior() ||
		!slices.Equal(a.SelectOptions, b.SelectOptions) ||
		!reflect.DeepEqual(a.DependsOn, b.DependsOn)
}

func roundScore(f float64) float64 {
	return math.Round(f*1000) / 1000
}

// MappingFor returns the mapping for an old field id, if any.
func (c *Config) MappingFor(oldID string) (schema.FieldMapping, bool) {
	for _, m := range c.Mappings {
		if m.OldFieldID == oldID {
			return m, true
		}
	}

	return schema.FieldMapping{}, false
}

func (c *Config) targetMapped(newID string) bool {
	for _, m := range c.Mappings {
		if m.NewFieldID == newID {
			return true
		}
	}

	return false
}

// Resolve maps an unresolved or removed old field onto an added new field
// with manual confidence.
func (c *Config) Resolve(oldID, newID string) error {
	if _, ok := c.SourceFieldNames[oldID]; !ok {
		return fmt.Errorf("%w: old field %q", ErrUnknownField, oldID)
	}

	if _, ok := c.TargetFieldNames[newID]; !ok {
		return fmt.Errorf("%w: new field %q", ErrUnknownField, newID)
	}

	if m, ok := c.MappingFor(oldID); ok {
		if m.NewFieldID == newID {
			return nil
		}

		return fmt.Errorf("%w: %q is already mapped to %q", ErrMappingConflict, oldID, m.NewFieldID)
	}

	if c.targetMapped(newID) {
		return fmt.Errorf("%w: %q already receives another field", ErrMappingConflict, newID)
	}

	c.Unresolved = slices.DeleteFunc(c.Unresolved, func(u Unresolved) bool { return u.OldFieldID == oldID })
	c.RemovedFields = slices.DeleteFunc(c.RemovedFields, func(id string) bool { return id == oldID })
	c.AddedFields = slices.DeleteFunc(c.AddedFields, func(id string) bool { return id == newID })

	c.Mappings = append(c.Mappings, schema.FieldMapping{
		OldFieldID: oldID,
		NewFieldID: newID,
		Confidence: schema.ConfidenceManual,
	})

	return nil
}

// Drop marks an old field as removed. A fuzzy or manual mapping of the field
// is discarded and its target goes back to the added fields. Exact mappings
// cannot be dropped.
func (c *Config) Drop(oldID string) error {
	if _, ok := c.SourceFieldNames[oldID]; !ok {
		return fmt.Errorf("%w: old field %q", ErrUnknownField, oldID)
	}

	if m, ok := c.MappingFor(oldID); ok {
		if m.Confidence == schema.ConfidenceExact {
			return fmt.Errorf("%w: %q still exists in the new schema", ErrMappingConflict, oldID)
		}

		c.Mappings = slices.DeleteFunc(c.Mappings, func(fm schema.FieldMapping) bool { return fm.OldFieldID == oldID })
		c.AddedFields = append(c.AddedFields, m.NewFieldID)
	}

	c.Unresolved = slices.DeleteFunc(c.Unresolved, func(u Unresolved) bool { return u.OldFieldID == oldID })

	if !slices.Contains(c.RemovedFields, oldID) {
		c.RemovedFields = append(c.RemovedFields, oldID)
	}

	return nil
}
