package migration

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"schema-engine/internal/common"
	"schema-engine/internal/diagnostic"
	"schema-engine/internal/schema"
)

// ErrOverrideMismatch is returned when an override file targets other schema versions.
var ErrOverrideMismatch = errors.New("override file does not match migration")

// OverrideFile is a reviewable set of mapping decisions:
//
//	version: "1"
//	from: loans@1.0.0
//	to: loans@2.0.0
//	mappings:
//	  f_borrower: f_customer
//	drop:
//	  - f_legacy
type OverrideFile struct {
	Version string `yaml:"version"`
	From    string `yaml:"from,omitempty"`
	To      string `yaml:"to,omitempty"`
	// Mappings maps old field ids to new field ids.
	Mappings map[string]string `yaml:"mappings,omitempty"`
	// Drop lists old field ids whose values are discarded.
	Drop []string `yaml:"drop,omitempty"`
	// Suggestions lists candidates for still unresolved fields. Ignored on apply.
	Suggestions map[string][]string `yaml:"suggestions,omitempty"`
}

// ParseOverrides parses an override file.
func ParseOverrides(data []byte) (*OverrideFile, error) {
	var of OverrideFile

	if err := yaml.Unmarshal(data, &of); err != nil {
		return nil, fmt.Errorf("failed to parse override YAML: %w", err)
	}

	if of.Version == "" {
		of.Version = "1"
	}

	if of.Mappings == nil {
		of.Mappings = map[string]string{}
	}

	return &of, nil
}

// LoadOverridesFile reads and parses an override file.
func LoadOverridesFile(path string) (*OverrideFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read override file %s: %w", path, err)
	}

	return ParseOverrides(data)
}

// ApplyOverrides applies every decision in of to cfg. Fuzzy mappings that
// disagree with an override are replaced. All problems are collected.
func ApplyOverrides(cfg *Config, of *OverrideFile) error {
	from := ref(cfg.FromSchemaID, cfg.FromVersion)
	to := ref(cfg.ToSchemaID, cfg.ToVersion)

	if (of.From != "" && of.From != from) || (of.To != "" && of.To != to) {
		return fmt.Errorf("%w: file is %s -> %s, migration is %s -> %s", ErrOverrideMismatch, of.From, of.To, from, to)
	}

	var errs []error

	scope := cfg.Scope()

	for _, oldID := range common.SortedKeys(of.Mappings) {
		newID := of.Mappings[oldID]

		if m, ok := cfg.MappingFor(oldID); ok && m.NewFieldID != newID && m.Confidence != schema.ConfidenceExact {
			if err := cfg.Drop(oldID); err != nil {
				errs = append(errs, err)
				continue
			}
		}

		if err := cfg.Resolve(oldID, newID); err != nil {
			code := diagnostic.CodeOverrideConflict
			if errors.Is(err, ErrUnknownField) {
				code = diagnostic.CodeOverrideUnknownField
			}

			cfg.Diagnostics.AddError(code, err.Error(), scope, oldID)
			errs = append(errs, err)
		}
	}

	for _, oldID := range of.Drop {
		if err := cfg.Drop(oldID); err != nil {
			cfg.Diagnostics.AddError(diagnostic.CodeOverrideUnknownField, err.Error(), scope, oldID)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ExportOverrides renders cfg's non-exact decisions as an override file for review.
func ExportOverrides(cfg *Config) *OverrideFile {
	of := &OverrideFile{
		Version:  "1",
		From:     ref(cfg.FromSchemaID, cfg.FromVersion),
		To:       ref(cfg.ToSchemaID, cfg.ToVersion),
		Mappings: map[string]string{},
		Drop:     append([]string(nil), cfg.RemovedFields...),
	}

	for _, m := range cfg.Mappings {
		if m.Confidence != schema.ConfidenceExact {
			of.Mappings[m.OldFieldID] = m.NewFieldID
		}
	}

	if len(cfg.Unresolved) > 0 {
		of.Suggestions = map[string][]string{}

		for _, u := range cfg.Unresolved {
			ids := make([]string, 0, len(u.Candidates))
			for _, c := range u.Candidates {
				ids = append(ids, c.NewFieldID)
			}

			of.Suggestions[u.OldFieldID] = ids
		}
	}

	return of
}

// MarshalOverrides serializes an override file to YAML.
func MarshalOverrides(of *OverrideFile) ([]byte, error) {
	return yaml.Marshal(of)
}

// WriteOverridesFile writes an override file to path.
func WriteOverridesFile(of *OverrideFile, path string) error {
	data, err := MarshalOverrides(of)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write override file %s: %w", path, err)
	}

	return nil
}

func ref(id, version string) string {
	return id + "@" + version
}
