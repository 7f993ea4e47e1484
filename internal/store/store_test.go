package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema-engine/internal/migration"
	"schema-engine/internal/schema"
)

func openTemp(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "schemas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func def(id, version string, fields ...string) *schema.SchemaDefinition {
	d := &schema.SchemaDefinition{ID: id, Version: version, BusinessContext: "calls"}
	for _, f := range fields {
		d.Fields = append(d.Fields, schema.FieldDefinition{ID: f, Name: f, Type: schema.FieldString})
	}

	return d
}

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.SaveSchema(ctx, def("loans", "1.0.0", "a")))
	require.NoError(t, s.SaveSchema(ctx, def("loans", "2.0.0", "a", "b")))
	require.NoError(t, s.SaveSchema(ctx, def("calls", "1.0.0")))

	got, err := s.GetSchema(ctx, "loans", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "calls", got.BusinessContext)
	assert.Len(t, got.Fields, 1)

	latest, err := s.LatestSchema(ctx, "loans")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", latest.Version)

	_, err = s.GetSchema(ctx, "loans", "9.9.9")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LatestSchema(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.SaveSchema(ctx, &schema.SchemaDefinition{ID: "x"}))
}

func TestStore_SaveReplacesSameVersion(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.SaveSchema(ctx, def("loans", "1.0.0", "a")))
	require.NoError(t, s.SaveSchema(ctx, def("loans", "1.0.0", "a", "b", "c")))

	list, err := s.ListSchemas(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].FieldCount)
	assert.False(t, list[0].SavedAt.IsZero())
}

func TestStore_LatestFollowsLastSave(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.SaveSchema(ctx, def("loans", "1.0.0", "a")))
	require.NoError(t, s.SaveSchema(ctx, def("loans", "2.0.0", "a")))

	latest, err := s.LatestSchema(ctx, "loans")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", latest.Version)

	require.NoError(t, s.SaveSchema(ctx, def("loans", "1.0.0", "a", "b")))

	latest, err = s.LatestSchema(ctx, "loans")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", latest.Version)
	assert.Len(t, latest.Fields, 2)
}

func TestStore_ListSchemas(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	empty, err := s.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.SaveSchema(ctx, def("loans", "1.0.0")))
	require.NoError(t, s.SaveSchema(ctx, def("calls", "1.0.0")))
	require.NoError(t, s.SaveSchema(ctx, def("loans", "1.1.0")))

	list, err := s.ListSchemas(ctx)
	require.NoError(t, err)

	var refs []string
	for _, l := range list {
		refs = append(refs, l.ID+"@"+l.Version)
	}

	assert.Equal(t, []string{"calls@1.0.0", "loans@1.1.0", "loans@1.0.0"}, refs)
}

func TestStore_Active(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, err := s.Active(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.SetActive(ctx, "loans"), ErrNotFound)

	require.NoError(t, s.SaveSchema(ctx, def("loans", "1.0.0")))
	require.NoError(t, s.SaveSchema(ctx, def("calls", "1.0.0")))
	require.NoError(t, s.SetActive(ctx, "loans"))
	require.NoError(t, s.SetActive(ctx, "calls"))

	id, err := s.ActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "calls", id)

	require.NoError(t, s.SaveSchema(ctx, def("calls", "2.0.0")))

	active, err := s.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "calls@2.0.0", active.Ref())
}

func TestStore_MigrationRuns(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	cfg := &migration.Config{FromSchemaID: "loans", FromVersion: "1.0.0", ToSchemaID: "loans", ToVersion: "2.0.0"}
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := &migration.Report{
		SchemaID: "loans", SchemaVersion: "2.0.0",
		MigratedCount: 3, SkippedCount: 1, TotalCount: 5,
		Failures:  []migration.Failure{{Index: 4, Reason: "boom"}},
		StartedAt: start, FinishedAt: start.Add(time.Second),
	}
	require.NoError(t, s.RecordMigrationRun(ctx, cfg, first))
	assert.NotEmpty(t, first.RunID)

	second := &migration.Report{
		RunID: "run-2", SchemaID: "loans", SchemaVersion: "2.0.0",
		StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour),
	}
	require.NoError(t, s.RecordMigrationRun(ctx, cfg, second))

	runs, err := s.MigrationRuns(ctx, "loans")
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].RunID)

	got := runs[1]
	assert.True(t, got.StartedAt.Equal(start), "started at %v", got.StartedAt)
	assert.True(t, got.FinishedAt.Equal(start.Add(time.Second)), "finished at %v", got.FinishedAt)

	got.StartedAt, got.FinishedAt = time.Time{}, time.Time{}
	assert.Equal(t, RunSummary{
		RunID:         first.RunID,
		FromSchema:    "loans@1.0.0",
		SchemaID:      "loans",
		SchemaVersion: "2.0.0",
		Migrated:      3,
		Skipped:       1,
		Failed:        1,
		Total:         5,
	}, got)

	assert.Error(t, s.RecordMigrationRun(ctx, cfg, second), "run ids are unique")
}
