package migration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"schema-engine/internal/common"
	"schema-engine/internal/schema"
)

var (
	// ErrUnresolvedMappings is returned for records holding values under
	// fields that still need a manual mapping.
	ErrUnresolvedMappings = errors.New("record has values for unresolved fields")
	// ErrSourceMismatch is returned when a record is stamped with a schema
	// version the config does not migrate from.
	ErrSourceMismatch = errors.New("record schema does not match migration source")
)

// Record is a record together with the schema identity it conforms to.
// Values are keyed by field name.
type Record struct {
	ID            string        `json:"id,omitempty" yaml:"id,omitempty"`
	SchemaID      string        `json:"schemaId,omitempty" yaml:"schemaId,omitempty"`
	SchemaVersion string        `json:"schemaVersion,omitempty" yaml:"schemaVersion,omitempty"`
	Values        schema.Values `json:"values" yaml:"values"`
}

// NeedsMigration reports whether record lacks the target's schema id and version.
func NeedsMigration(record Record, target *schema.SchemaDefinition) bool {
	if record.SchemaID == "" || record.SchemaVersion == "" {
		return true
	}

	return record.SchemaID != target.ID || record.SchemaVersion != target.Version
}

// MigrateRecord rewrites record for target according to cfg. A record that
// already carries the target identity is returned unchanged. The input
// record is never modified.
func MigrateRecord(record Record, cfg *Config, target *schema.SchemaDefinition) (Record, error) {
	if !NeedsMigration(record, target) {
		return record, nil
	}

	// unstamped records are assumed to follow the source schema
	if record.SchemaID != "" && record.SchemaVersion != "" &&
		(record.SchemaID != cfg.FromSchemaID || record.SchemaVersion != cfg.FromVersion) {
		return Record{}, fmt.Errorf("%w: record is %s@%s, config migrates %s@%s", ErrSourceMismatch,
			record.SchemaID, record.SchemaVersion, cfg.FromSchemaID, cfg.FromVersion)
	}

	var blocked []string

	for _, u := range cfg.Unresolved {
		if v, ok := record.Values[sourceKey(cfg, u.OldFieldID)]; ok && !common.IsEmptyValue(v) {
			blocked = append(blocked, u.OldFieldID)
		}
	}

	if len(blocked) > 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrUnresolvedMappings, strings.Join(blocked, ", "))
	}

	out := make(schema.Values, len(cfg.Mappings))

	for _, m := range cfg.Mappings {
		v, ok := record.Values[sourceKey(cfg, m.OldFieldID)]
		if !ok {
			continue
		}

		out[targetKey(cfg, target, m.NewFieldID)] = common.CloneValue(v)
	}

	for _, id := range cfg.AddedFields {
		f := target.FieldByID(id)
		if f == nil || f.DefaultValue == nil {
			continue
		}

		if _, set := out[f.Name]; !set {
			out[f.Name] = common.CloneValue(f.DefaultValue)
		}
	}

	return Record{
		ID:            record.ID,
		SchemaID:      target.ID,
		SchemaVersion: target.Version,
		Values:        out,
	}, nil
}

func sourceKey(cfg *Config, oldID string) string {
	if name := cfg.SourceFieldNames[oldID]; name != "" {
		return name
	}

	return oldID
}

func targetKey(cfg *Config, target *schema.SchemaDefinition, newID string) string {
	if f := target.FieldByID(newID); f != nil && f.Name != "" {
		return f.Name
	}

	if name := cfg.TargetFieldNames[newID]; name != "" {
		return name
	}

	return newID
}

// CountAffected returns how many records need migrating to target.
func CountAffected(records []Record, target *schema.SchemaDefinition) int {
	n := 0

	for _, r := range records {
		if NeedsMigration(r, target) {
			n++
		}
	}

	return n
}

// Failure describes one record that could not be migrated.
type Failure struct {
	Index    int    `json:"index"`
	RecordID string `json:"recordId,omitempty"`
	Reason   string `json:"reason"`
}

// Report is the outcome of a batch migration.
type Report struct {
	RunID             string    `json:"runId"`
	SchemaID          string    `json:"schemaId"`
	SchemaVersion     string    `json:"schemaVersion"`
	MigratedCount     int       `json:"migratedCount"`
	SkippedCount      int       `json:"skippedCount"`
	TotalCount        int       `json:"totalCount"`
	AffectedCallCount int       `json:"affectedCallCount"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
	// Records holds migrated and already current records in input order.
	Records  []Record  `json:"records"`
	Failures []Failure `json:"failures,omitempty"`
}

// Summary is the aggregate part of a report.
type Summary struct {
	MigratedCount int    `json:"migratedCount"`
	TotalCount    int    `json:"totalCount"`
	SchemaID      string `json:"schemaId"`
	SchemaVersion string `json:"schemaVersion"`
}

// Summary returns the batch summary.
func (r *Report) Summary() Summary {
	return Summary{
		MigratedCount: r.MigratedCount,
		TotalCount:    r.TotalCount,
		SchemaID:      r.SchemaID,
		SchemaVersion: r.SchemaVersion,
	}
}

// BatchOptions configures MigrateAll.
type BatchOptions struct {
	Logger zerolog.Logger
	// Now is used for report timestamps; defaults to time.Now.
	Now func() time.Time
}

// MigrateAll migrates every record. A failing record is reported in
// Failures and never stops the batch.
func MigrateAll(records []Record, cfg *Config, target *schema.SchemaDefinition, opts BatchOptions) Report {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	report := Report{
		RunID:         uuid.NewString(),
		SchemaID:      target.ID,
		SchemaVersion: target.Version,
		TotalCount:    len(records),
		StartedAt:     now(),
		Records:       make([]Record, 0, len(records)),
	}

	logger := opts.Logger.With().Str("run", report.RunID).Str("migration", cfg.Scope()).Logger()

	for i, rec := range records {
		if !NeedsMigration(rec, target) {
			report.SkippedCount++
			report.Records = append(report.Records, rec)

			continue
		}

		report.AffectedCallCount++

		migrated, err := migrateIsolated(rec, cfg, target)
		if err != nil {
			logger.Warn().Err(err).Int("index", i).Str("record", rec.ID).Msg("record not migrated")
			report.Failures = append(report.Failures, Failure{Index: i, RecordID: rec.ID, Reason: err.Error()})

			continue
		}

		report.MigratedCount++
		report.Records = append(report.Records, migrated)
	}

	report.FinishedAt = now()

	logger.Info().
		Int("migrated", report.MigratedCount).
		Int("skipped", report.SkippedCount).
		Int("failed", len(report.Failures)).
		Int("total", report.TotalCount).
		Msg("migration finished")

	return report
}

func migrateIsolated(rec Record, cfg *Config, target *schema.SchemaDefinition) (out Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("migration panicked: %v", r)
		}
	}()

	return MigrateRecord(rec, cfg, target)
}
