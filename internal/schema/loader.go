package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultVersion is assigned to schemas authored without a version.
const DefaultVersion = "1.0.0"

// LoadFile loads and parses a YAML or JSON schema file from the given path.
func LoadFile(path string) (*SchemaDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML (or JSON, which is valid YAML) into a SchemaDefinition.
func Parse(data []byte) (*SchemaDefinition, error) {
	var def SchemaDefinition

	err := yaml.Unmarshal(data, &def)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	ApplyDefaults(&def)

	return &def, nil
}

// ApplyDefaults fills in default values for optional fields.
func ApplyDefaults(def *SchemaDefinition) {
	if def.Version == "" {
		def.Version = DefaultVersion
	}

	for i := range def.Fields {
		f := &def.Fields[i]
		if f.Name == "" {
			f.Name = f.ID
		}

		if f.DisplayName == "" {
			f.DisplayName = f.Name
		}

		if f.DependsOn != nil && f.DependsOnBehavior == "" {
			f.DependsOnBehavior = BehaviorShow
		}
	}

	for i := range def.Relationships {
		r := &def.Relationships[i]
		if r.Type == RelationshipComplex && r.OutputType == "" {
			r.OutputType = OutputNumber
		}
	}
}

// Marshal serializes a SchemaDefinition to YAML.
func Marshal(def *SchemaDefinition) ([]byte, error) {
	return yaml.Marshal(def)
}

// WriteFile writes a SchemaDefinition to the given path.
func WriteFile(def *SchemaDefinition, path string) error {
	data, err := Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write schema file %s: %w", path, err)
	}

	return nil
}

// ParseRecords parses a YAML or JSON list of flat records.
func ParseRecords(data []byte) ([]Values, error) {
	var records []Values

	err := yaml.Unmarshal(data, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}

	return records, nil
}

// LoadRecordsFile loads a YAML or JSON list of flat records from path.
func LoadRecordsFile(path string) ([]Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file %s: %w", path, err)
	}

	return ParseRecords(data)
}
