package schema

import (
	"time"

	"schema-engine/internal/common"
)

// FieldType is the value type of a field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldBoolean FieldType = "boolean"
	FieldSelect  FieldType = "select"
)

// IsValid returns true if the type is a recognized value.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldString, FieldNumber, FieldDate, FieldBoolean, FieldSelect:
		return true
	default:
		return false
	}
}

// SemanticRole describes what a field means to collaborators (prompts, charts).
type SemanticRole string

const (
	RoleParticipant1   SemanticRole = "participant_1"
	RoleParticipant2   SemanticRole = "participant_2"
	RoleClassification SemanticRole = "classification"
	RoleMetric         SemanticRole = "metric"
	RoleDimension      SemanticRole = "dimension"
	RoleIdentifier     SemanticRole = "identifier"
	RoleTimestamp      SemanticRole = "timestamp"
	RoleFreeform       SemanticRole = "freeform"
)

// IsValid returns true if the role is a recognized value. The empty role is allowed.
func (r SemanticRole) IsValid() bool {
	switch r {
	case "", RoleParticipant1, RoleParticipant2, RoleClassification, RoleMetric,
		RoleDimension, RoleIdentifier, RoleTimestamp, RoleFreeform:
		return true
	default:
		return false
	}
}

// Operator is a dependency comparison operator.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
	OpIsEmpty     Operator = "isEmpty"
	OpIsNotEmpty  Operator = "isNotEmpty"
)

// IsKnown returns true if the operator is a recognized value.
func (o Operator) IsKnown() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan, OpIsEmpty, OpIsNotEmpty:
		return true
	default:
		return false
	}
}

// UsesValue returns false for operators that ignore the comparison operand.
func (o Operator) UsesValue() bool {
	return o != OpIsEmpty && o != OpIsNotEmpty
}

// DependsOnBehavior selects what a dependency controls.
type DependsOnBehavior string

const (
	// BehaviorShow hides the field (and skips its validation) unless the condition holds.
	BehaviorShow DependsOnBehavior = "show"
	// BehaviorRequire keeps the field visible and makes it mandatory when the condition holds.
	BehaviorRequire DependsOnBehavior = "require"
)

// IsValid returns true if the behavior is recognized. Empty means show.
func (b DependsOnBehavior) IsValid() bool {
	return b == "" || b == BehaviorShow || b == BehaviorRequire
}

// RelationshipType distinguishes declared from computed relationships.
type RelationshipType string

const (
	RelationshipSimple  RelationshipType = "simple"
	RelationshipComplex RelationshipType = "complex"
)

// IsValid returns true if the relationship type is recognized.
func (t RelationshipType) IsValid() bool {
	return t == RelationshipSimple || t == RelationshipComplex
}

// OutputType is the type a complex relationship's formula result is coerced to.
type OutputType string

const (
	OutputNumber  OutputType = "number"
	OutputString  OutputType = "string"
	OutputBoolean OutputType = "boolean"
)

// IsValid returns true if the output type is recognized.
func (t OutputType) IsValid() bool {
	return t == OutputNumber || t == OutputString || t == OutputBoolean
}

// Confidence states how a cross-version field mapping was established.
type Confidence string

const (
	ConfidenceExact  Confidence = "exact"
	ConfidenceFuzzy  Confidence = "fuzzy"
	ConfidenceManual Confidence = "manual"
)

// Values is a flat record keyed by field name.
type Values = map[string]any

// SchemaDefinition is the versioned contract for one record shape.
type SchemaDefinition struct {
	// ID is stable across versions.
	ID string `yaml:"id" json:"id"`
	// Version is a semantic version string.
	Version   string    `yaml:"version" json:"version"`
	CreatedAt time.Time `yaml:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time `yaml:"updatedAt,omitempty" json:"updatedAt,omitempty"`

	// BusinessContext is documentation only.
	BusinessContext string `yaml:"businessContext,omitempty" json:"businessContext,omitempty"`

	Fields        []FieldDefinition        `yaml:"fields" json:"fields"`
	Relationships []RelationshipDefinition `yaml:"relationships,omitempty" json:"relationships,omitempty"`

	// Collaborator metadata, not interpreted by the engine.
	TopicTaxonomy     []string          `yaml:"topicTaxonomy,omitempty" json:"topicTaxonomy,omitempty"`
	InsightCategories []InsightCategory `yaml:"insightCategories,omitempty" json:"insightCategories,omitempty"`
	TemplateID        string            `yaml:"templateId,omitempty" json:"templateId,omitempty"`
	TemplateVersion   string            `yaml:"templateVersion,omitempty" json:"templateVersion,omitempty"`
}

// InsightCategory configures an analytics grouping consumed by collaborators.
type InsightCategory struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`
}

// FieldDefinition is one addressable slot in a record.
type FieldDefinition struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	DisplayName  string       `yaml:"displayName,omitempty" json:"displayName,omitempty"`
	Description  string       `yaml:"description,omitempty" json:"description,omitempty"`
	Type         FieldType    `yaml:"type" json:"type"`
	SemanticRole SemanticRole `yaml:"semanticRole,omitempty" json:"semanticRole,omitempty"`
	Required     bool         `yaml:"required,omitempty" json:"required,omitempty"`

	// SelectOptions is the closed value set for select fields.
	SelectOptions []string `yaml:"selectOptions,omitempty" json:"selectOptions,omitempty"`

	DependsOn         *FieldDependency  `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	DependsOnBehavior DependsOnBehavior `yaml:"dependsOnBehavior,omitempty" json:"dependsOnBehavior,omitempty"`

	// DefaultValue is applied to records migrated into a schema that adds this field.
	DefaultValue any `yaml:"defaultValue,omitempty" json:"defaultValue,omitempty"`
}

// Behavior returns the effective dependency behavior (empty means show).
func (f *FieldDefinition) Behavior() DependsOnBehavior {
	if f.DependsOnBehavior == "" {
		return BehaviorShow
	}

	return f.DependsOnBehavior
}

// Label returns the display name, falling back to the name.
func (f *FieldDefinition) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}

	return f.Name
}

// FieldDependency is a single-hop condition on another field's value.
type FieldDependency struct {
	FieldID  string   `yaml:"fieldId" json:"fieldId"`
	Operator Operator `yaml:"operator" json:"operator"`
	// Value is ignored for isEmpty/isNotEmpty.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`
}

// RelationshipDefinition is a declared relationship between fields.
type RelationshipDefinition struct {
	ID             string           `yaml:"id" json:"id"`
	Type           RelationshipType `yaml:"type" json:"type"`
	Description    string           `yaml:"description,omitempty" json:"description,omitempty"`
	InvolvedFields []string         `yaml:"involvedFields" json:"involvedFields"`

	// Formula and OutputType apply to complex relationships only.
	Formula    string     `yaml:"formula,omitempty" json:"formula,omitempty"`
	OutputType OutputType `yaml:"outputType,omitempty" json:"outputType,omitempty"`

	DisplayInTable  bool `yaml:"displayInTable,omitempty" json:"displayInTable,omitempty"`
	EnableAnalytics bool `yaml:"enableAnalytics,omitempty" json:"enableAnalytics,omitempty"`
	UseInPrompt     bool `yaml:"useInPrompt,omitempty" json:"useInPrompt,omitempty"`
}

// FieldMapping is a cross-version correspondence between field ids.
type FieldMapping struct {
	OldFieldID string     `yaml:"oldFieldId" json:"oldFieldId"`
	NewFieldID string     `yaml:"newFieldId" json:"newFieldId"`
	Confidence Confidence `yaml:"confidence" json:"confidence"`
	// SimilarityScore is set for fuzzy mappings (0-1).
	SimilarityScore float64 `yaml:"similarityScore,omitempty" json:"similarityScore,omitempty"`
}

// Ref returns "id@version", used as a diagnostic scope.
func (s *SchemaDefinition) Ref() string {
	if s == nil {
		return ""
	}

	return s.ID + "@" + s.Version
}

// FieldByID returns the field with the given id, or nil.
func (s *SchemaDefinition) FieldByID(id string) *FieldDefinition {
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return &s.Fields[i]
		}
	}

	return nil
}

// FieldByName returns the field with the given record key, or nil.
func (s *SchemaDefinition) FieldByName(name string) *FieldDefinition {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}

	return nil
}

// FieldIDs returns field ids in schema order.
func (s *SchemaDefinition) FieldIDs() []string {
	ids := make([]string, len(s.Fields))
	for i := range s.Fields {
		ids[i] = s.Fields[i].ID
	}

	return ids
}

// RelationshipByID returns the relationship with the given id, or nil.
func (s *SchemaDefinition) RelationshipByID(id string) *RelationshipDefinition {
	for i := range s.Relationships {
		if s.Relationships[i].ID == id {
			return &s.Relationships[i]
		}
	}

	return nil
}

// Clone returns a deep copy so results never alias caller-owned schemas.
func (s *SchemaDefinition) Clone() *SchemaDefinition {
	if s == nil {
		return nil
	}

	out := *s
	if s.Fields != nil {
		out.Fields = make([]FieldDefinition, len(s.Fields))
	}

	for i, f := range s.Fields {
		if f.SelectOptions != nil {
			f.SelectOptions = append([]string{}, f.SelectOptions...)
		}

		f.DefaultValue = common.CloneValue(f.DefaultValue)

		if f.DependsOn != nil {
			dep := *f.DependsOn
			dep.Value = common.CloneValue(dep.Value)
			f.DependsOn = &dep
		}

		out.Fields[i] = f
	}

	if s.Relationships != nil {
		out.Relationships = make([]RelationshipDefinition, len(s.Relationships))
	}

	for i, r := range s.Relationships {
		if r.InvolvedFields != nil {
			r.InvolvedFields = append([]string{}, r.InvolvedFields...)
		}

		out.Relationships[i] = r
	}

	if s.TopicTaxonomy != nil {
		out.TopicTaxonomy = append([]string{}, s.TopicTaxonomy...)
	}

	if s.InsightCategories != nil {
		out.InsightCategories = append([]InsightCategory{}, s.InsightCategories...)
	}

	return &out
}

// NameByID maps field ids to record keys.
func (s *SchemaDefinition) NameByID() map[string]string {
	m := make(map[string]string, len(s.Fields))
	for i := range s.Fields {
		m[s.Fields[i].ID] = s.Fields[i].Name
	}

	return m
}
