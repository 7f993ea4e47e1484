package migration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"schema-engine/internal/schema"
)

// DecodeRecords parses a YAML or JSON list of records. An element with a
// "values" mapping is a stamped record; any other mapping is an unstamped
// record whose keys are field names.
func DecodeRecords(data []byte) ([]Record, error) {
	var raw []map[string]any

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}

	out := make([]Record, 0, len(raw))

	for i, m := range raw {
		values, stamped := m["values"].(map[string]any)
		if !stamped {
			out = append(out, Record{Values: schema.Values(m)})
			continue
		}

		rec := Record{Values: values}

		for key, dst := range map[string]*string{"id": &rec.ID, "schemaId": &rec.SchemaID, "schemaVersion": &rec.SchemaVersion} {
			v, ok := m[key]
			if !ok || v == nil {
				continue
			}

			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("record %d: %s must be a string", i, key)
			}

			*dst = s
		}

		out = append(out, rec)
	}

	return out, nil
}

// LoadRecordsFile reads records from a YAML or JSON file.
func LoadRecordsFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file %s: %w", path, err)
	}

	return DecodeRecords(data)
}
