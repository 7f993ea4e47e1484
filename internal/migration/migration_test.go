package migration

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema-engine/internal/diagnostic"
	"schema-engine/internal/schema"
)

func loansV1() *schema.SchemaDefinition {
	return &schema.SchemaDefinition{
		ID:      "loans",
		Version: "1.0.0",
		Fields: []schema.FieldDefinition{
			{ID: "f_agent", Name: "agentName", Type: schema.FieldString},
			{ID: "f_borrower", Name: "borrowerName", Type: schema.FieldString},
			{ID: "f_legacy", Name: "legacyFlag", Type: schema.FieldBoolean},
			{ID: "f_amount", Name: "amount", Type: schema.FieldNumber},
		},
	}
}

func loansV2() *schema.SchemaDefinition {
	return &schema.SchemaDefinition{
		ID:      "loans",
		Version: "2.0.0",
		Fields: []schema.FieldDefinition{
			{ID: "f_agent", Name: "agentName", DisplayName: "Agent", Type: schema.FieldString},
			{ID: "f_customer", Name: "customerName", Type: schema.FieldString},
			{ID: "f_amount", Name: "amount", Type: schema.FieldNumber},
			{
				ID: "f_region", Name: "region", Type: schema.FieldSelect,
				SelectOptions: []string{"north", "south"}, DefaultValue: "north",
			},
		},
	}
}

func mappingsByOld(cfg *Config) map[string]schema.FieldMapping {
	out := map[string]schema.FieldMapping{}
	for _, m := range cfg.Mappings {
		out[m.OldFieldID] = m
	}

	return out
}

func TestBuildConfig_FuzzyRename(t *testing.T) {
	cfg, err := BuildConfig(loansV1(), loansV2(), Options{})
	require.NoError(t, err)

	byOld := mappingsByOld(cfg)
	require.Len(t, cfg.Mappings, 3, spew.Sdump(cfg.Mappings))

	assert.Equal(t, schema.ConfidenceExact, byOld["f_agent"].Confidence)
	assert.Equal(t, schema.ConfidenceExact, byOld["f_amount"].Confidence)

	fuzzy := byOld["f_borrower"]
	assert.Equal(t, "f_customer", fuzzy.NewFieldID)
	assert.Equal(t, schema.ConfidenceFuzzy, fuzzy.Confidence)
	assert.Greater(t, fuzzy.SimilarityScore, 0.7)
	assert.LessOrEqual(t, fuzzy.SimilarityScore, 1.0)

	assert.Equal(t, []string{"f_region"}, cfg.AddedFields)
	assert.Equal(t, []string{"f_legacy"}, cfg.RemovedFields)
	assert.Equal(t, []string{"f_agent"}, cfg.ModifiedFields)
	assert.Empty(t, cfg.Unresolved)
	assert.False(t, cfg.Blocked())
	assert.True(t, cfg.Diagnostics.HasCode(diagnostic.CodeFuzzyMapping))
	assert.Equal(t, "loans@1.0.0 -> loans@2.0.0", cfg.Scope())
}

func TestMigrateRecord_CarriesRenamedValue(t *testing.T) {
	v2 := loansV2()
	cfg, err := BuildConfig(loansV1(), v2, Options{})
	require.NoError(t, err)

	in := Record{ID: "call-1", Values: schema.Values{
		"agentName": "Ana", "borrowerName": "Jenny Smith", "legacyFlag": true, "amount": 1500,
	}}

	out, err := MigrateRecord(in, cfg, v2)
	require.NoError(t, err)

	assert.Equal(t, Record{
		ID:            "call-1",
		SchemaID:      "loans",
		SchemaVersion: "2.0.0",
		Values: schema.Values{
			"agentName":    "Ana",
			"customerName": "Jenny Smith",
			"amount":       1500,
			"region":       "north",
		},
	}, out)

	// input untouched
	assert.Equal(t, "Jenny Smith", in.Values["borrowerName"])
	assert.Empty(t, in.SchemaID)
}

func TestMigrateRecord_Idempotent(t *testing.T) {
	v2 := loansV2()
	cfg, err := BuildConfig(loansV1(), v2, Options{})
	require.NoError(t, err)

	once, err := MigrateRecord(Record{Values: schema.Values{"borrowerName": "X"}}, cfg, v2)
	require.NoError(t, err)

	twice, err := MigrateRecord(once, cfg, v2)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.False(t, NeedsMigration(twice, v2))
}

func TestMigrateRecord_SourceMismatch(t *testing.T) {
	v2 := loansV2()
	cfg, err := BuildConfig(loansV1(), v2, Options{})
	require.NoError(t, err)

	_, err = MigrateRecord(Record{SchemaID: "loans", SchemaVersion: "0.9.0"}, cfg, v2)
	assert.ErrorIs(t, err, ErrSourceMismatch)
}

func TestNeedsMigration(t *testing.T) {
	v2 := loansV2()

	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"unstamped", Record{}, true},
		{"missing version", Record{SchemaID: "loans"}, true},
		{"old version", Record{SchemaID: "loans", SchemaVersion: "1.0.0"}, true},
		{"other schema", Record{SchemaID: "calls", SchemaVersion: "2.0.0"}, true},
		{"current", Record{SchemaID: "loans", SchemaVersion: "2.0.0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsMigration(tt.rec, v2))
		})
	}
}

func phoneSchemas() (*schema.SchemaDefinition, *schema.SchemaDefinition) {
	from := &schema.SchemaDefinition{ID: "contacts", Version: "1", Fields: []schema.FieldDefinition{
		{ID: "f_name", Name: "name", Type: schema.FieldString},
		{ID: "f_phone", Name: "phone", Type: schema.FieldString},
	}}
	to := &schema.SchemaDefinition{ID: "contacts", Version: "2", Fields: []schema.FieldDefinition{
		{ID: "f_name", Name: "name", Type: schema.FieldString},
		{ID: "f_ph_home", Name: "phoneHome", Type: schema.FieldString},
		{ID: "f_ph_work", Name: "phoneWork", Type: schema.FieldString},
	}}

	return from, to
}

func TestBuildConfig_AmbiguousIsUnresolved(t *testing.T) {
	from, to := phoneSchemas()

	cfg, err := BuildConfig(from, to, Options{})
	require.NoError(t, err)

	require.Len(t, cfg.Unresolved, 1)
	u := cfg.Unresolved[0]
	assert.Equal(t, "f_phone", u.OldFieldID)
	assert.Contains(t, u.Reason, "ambiguous")
	require.Len(t, u.Candidates, 2)
	assert.Equal(t, "f_ph_home", u.Candidates[0].NewFieldID)
	assert.Equal(t, "f_ph_work", u.Candidates[1].NewFieldID)

	assert.True(t, cfg.Blocked())
	assert.True(t, cfg.Diagnostics.HasCode(diagnostic.CodeAmbiguousMapping))
	assert.Equal(t, []string{"f_ph_home", "f_ph_work"}, cfg.AddedFields)
	assert.Empty(t, cfg.RemovedFields)

	_, err = MigrateRecord(Record{Values: schema.Values{"name": "A", "phone": "555"}}, cfg, to)
	assert.ErrorIs(t, err, ErrUnresolvedMappings)

	// nothing to carry, nothing blocks
	out, err := MigrateRecord(Record{Values: schema.Values{"name": "B", "phone": ""}}, cfg, to)
	require.NoError(t, err)
	assert.Equal(t, schema.Values{"name": "B"}, out.Values)
}

func TestBuildConfig_UnrelatedFieldIsRemoved(t *testing.T) {
	from := &schema.SchemaDefinition{ID: "calls", Version: "1", Fields: []schema.FieldDefinition{
		{ID: "f_agent", Name: "agentName", Type: schema.FieldString},
		{ID: "f_notes", Name: "callNotes", Type: schema.FieldString},
	}}
	to := &schema.SchemaDefinition{ID: "calls", Version: "2", Fields: []schema.FieldDefinition{
		{ID: "f_agent", Name: "agentName", Type: schema.FieldString},
		{ID: "f_region", Name: "region", Type: schema.FieldString},
	}}

	cfg, err := BuildConfig(from, to, Options{})
	require.NoError(t, err)

	assert.Empty(t, cfg.Unresolved, spew.Sdump(cfg.Unresolved))
	assert.False(t, cfg.Blocked())
	assert.Equal(t, []string{"f_notes"}, cfg.RemovedFields)
	assert.Equal(t, []string{"f_region"}, cfg.AddedFields)
	require.Len(t, cfg.Mappings, 1)
	assert.Equal(t, "f_agent", cfg.Mappings[0].OldFieldID)

	report := MigrateAll([]Record{
		{ID: "c1", Values: schema.Values{"agentName": "Ana", "callNotes": "call back"}},
	}, cfg, to, BatchOptions{})

	assert.Equal(t, 1, report.MigratedCount)
	assert.Empty(t, report.Failures)
	require.Len(t, report.Records, 1)
	assert.Equal(t, schema.Values{"agentName": "Ana"}, report.Records[0].Values)
}

func TestConfig_ResolveAndDrop(t *testing.T) {
	from, to := phoneSchemas()
	cfg, err := BuildConfig(from, to, Options{})
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.Resolve("nope", "f_ph_work"), ErrUnknownField)
	assert.ErrorIs(t, cfg.Resolve("f_phone", "nope"), ErrUnknownField)
	assert.ErrorIs(t, cfg.Resolve("f_name", "f_ph_work"), ErrMappingConflict)

	require.NoError(t, cfg.Resolve("f_phone", "f_ph_work"))
	require.NoError(t, cfg.Resolve("f_phone", "f_ph_work"), "resolving twice is a no-op")
	assert.False(t, cfg.Blocked())
	assert.Equal(t, []string{"f_ph_home"}, cfg.AddedFields)
	assert.Equal(t, schema.ConfidenceManual, mappingsByOld(cfg)["f_phone"].Confidence)

	out, err := MigrateRecord(Record{Values: schema.Values{"phone": "555"}}, cfg, to)
	require.NoError(t, err)
	assert.Equal(t, schema.Values{"phoneWork": "555"}, out.Values)

	require.NoError(t, cfg.Drop("f_phone"))
	assert.Equal(t, []string{"f_phone"}, cfg.RemovedFields)
	assert.ElementsMatch(t, []string{"f_ph_home", "f_ph_work"}, cfg.AddedFields)
	assert.ErrorIs(t, cfg.Drop("f_name"), ErrMappingConflict)
}

func TestMigrateAll_IsolatesFailures(t *testing.T) {
	from, to := phoneSchemas()
	cfg, err := BuildConfig(from, to, Options{})
	require.NoError(t, err)

	var logs bytes.Buffer

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []Record{
		{ID: "r1", Values: schema.Values{"name": "A"}},
		{ID: "r2", Values: schema.Values{"name": "B", "phone": "555"}},
		{ID: "r3", SchemaID: "contacts", SchemaVersion: "2", Values: schema.Values{"name": "C"}},
		{ID: "r4", SchemaID: "contacts", SchemaVersion: "1", Values: schema.Values{"name": "D"}},
	}

	report := MigrateAll(records, cfg, to, BatchOptions{
		Logger: zerolog.New(&logs),
		Now:    func() time.Time { return clock },
	})

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.MigratedCount)
	assert.Equal(t, 1, report.SkippedCount)
	assert.Equal(t, 4, report.TotalCount)
	assert.Equal(t, 3, report.AffectedCallCount)
	assert.Equal(t, clock, report.StartedAt)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, Failure{Index: 1, RecordID: "r2", Reason: report.Failures[0].Reason}, report.Failures[0])
	assert.Contains(t, report.Failures[0].Reason, "f_phone")

	ids := make([]string, 0, len(report.Records))
	for _, r := range report.Records {
		ids = append(ids, r.ID)
		assert.Equal(t, "2", r.SchemaVersion)
	}

	assert.Equal(t, []string{"r1", "r3", "r4"}, ids)
	assert.Equal(t, Summary{MigratedCount: 2, TotalCount: 4, SchemaID: "contacts", SchemaVersion: "2"}, report.Summary())
	assert.Contains(t, logs.String(), "record not migrated")
	assert.Contains(t, logs.String(), "migration finished")
	assert.Equal(t, 3, CountAffected(records, to))
}

func TestOverrides_RoundTrip(t *testing.T) {
	from, to := phoneSchemas()
	cfg, err := BuildConfig(from, to, Options{})
	require.NoError(t, err)

	exported := ExportOverrides(cfg)
	assert.Equal(t, "contacts@1", exported.From)
	assert.Equal(t, []string{"f_ph_home", "f_ph_work"}, exported.Suggestions["f_phone"])

	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, WriteOverridesFile(exported, path))

	loaded, err := LoadOverridesFile(path)
	require.NoError(t, err)
	assert.Equal(t, exported.From, loaded.From)

	loaded.Mappings["f_phone"] = "f_ph_home"
	require.NoError(t, ApplyOverrides(cfg, loaded))
	assert.False(t, cfg.Blocked())
	assert.Equal(t, "f_ph_home", mappingsByOld(cfg)["f_phone"].NewFieldID)
}

func TestApplyOverrides_Errors(t *testing.T) {
	cfg, err := BuildConfig(loansV1(), loansV2(), Options{})
	require.NoError(t, err)

	of, err := ParseOverrides([]byte("from: loans@0.1.0\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, ApplyOverrides(cfg, of), ErrOverrideMismatch)

	of, err = ParseOverrides([]byte("mappings:\n  f_ghost: f_region\n  f_legacy: f_region\ndrop: [f_unknown]\n"))
	require.NoError(t, err)

	err = ApplyOverrides(cfg, of)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))
	assert.True(t, cfg.Diagnostics.HasCode(diagnostic.CodeOverrideUnknownField))

	// the valid part still applies
	m, ok := cfg.MappingFor("f_legacy")
	require.True(t, ok)
	assert.Equal(t, "f_region", m.NewFieldID)
}

func TestApplyOverrides_ReplacesFuzzyMapping(t *testing.T) {
	cfg, err := BuildConfig(loansV1(), loansV2(), Options{})
	require.NoError(t, err)

	of, err := ParseOverrides([]byte("mappings:\n  f_borrower: f_region\n"))
	require.NoError(t, err)
	require.NoError(t, ApplyOverrides(cfg, of))

	m, _ := cfg.MappingFor("f_borrower")
	assert.Equal(t, schema.ConfidenceManual, m.Confidence)
	assert.Equal(t, "f_region", m.NewFieldID)
	assert.Equal(t, []string{"f_customer"}, cfg.AddedFields)
}

func TestDecodeRecords(t *testing.T) {
	data := []byte(`
- agentName: Ana
  amount: 10
- id: r2
  schemaId: loans
  schemaVersion: 2.0.0
  values:
    agentName: Bo
`)

	recs, err := DecodeRecords(data)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, Record{Values: schema.Values{"agentName": "Ana", "amount": 10}}, recs[0])
	assert.Equal(t, Record{ID: "r2", SchemaID: "loans", SchemaVersion: "2.0.0", Values: schema.Values{"agentName": "Bo"}}, recs[1])

	_, err = DecodeRecords([]byte("- id: 5\n  values: {a: 1}\n"))
	assert.Error(t, err)
}
