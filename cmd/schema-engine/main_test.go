package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema-engine/internal/migration"
)

const loansV1 = `
id: loans
version: 1.0.0
fields:
  - {id: f_amount, name: amount, type: number, required: true}
  - {id: f_borrower, name: borrowerName, displayName: Customer Name, type: string}
`

const loansV2 = `
id: loans
version: 2.0.0
fields:
  - {id: f_amount, name: amount, type: number, required: true}
  - {id: f_customer, name: customerName, type: string}
  - id: f_note
    name: approvalNote
    type: string
    dependsOn: {fieldId: f_amount, operator: greaterThan, value: 1000}
    dependsOnBehavior: require
relationships:
  - {id: fee, type: complex, involvedFields: [f_amount], formula: amount * rate}
`

const cyclic = `
id: broken
fields:
  - {id: a, type: string, dependsOn: {fieldId: b, operator: isEmpty}}
  - {id: b, type: string, dependsOn: {fieldId: a, operator: isEmpty}}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// run executes the CLI against a fresh store in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(envDB, filepath.Join(dir, "store.db"))

	var out, logs bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "check", writeFile(t, dir, "v2.yaml", loansV2))
	require.NoError(t, err, out)
	assert.Contains(t, out, "loans@2.0.0 ok: 3 fields, 1 relationships")
	assert.Contains(t, out, "dependency order: [f_amount f_customer f_note]")

	out, err = run(t, dir, "check", writeFile(t, dir, "broken.yaml", cyclic))
	require.Error(t, err)
	assert.Contains(t, out, "error:")

	_, err = run(t, dir, "check", filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "does not exist")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "v2.yaml", loansV2)

	good := writeFile(t, dir, "good.yaml", "- {amount: 10}\n- {amount: 5000, approvalNote: ok}\n")
	out, err := run(t, dir, "validate", schemaPath, good)
	require.NoError(t, err, out)

	var results []recordResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Len(t, results, 2)

	bad := writeFile(t, dir, "bad.yaml", "- {amount: 10}\n- {amount: 5000}\n")
	out, err = run(t, dir, "validate", "-q", schemaPath, bad)
	require.EqualError(t, err, "1 of 2 records invalid")
	assert.Contains(t, out, `"fieldId": "f_note"`)
	assert.NotContains(t, out, `"index": 0`)
}

func TestEvaluate(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "v2.yaml", loansV2)
	records := writeFile(t, dir, "records.yaml", "- {amount: 200}\n")

	out, err := run(t, dir, "evaluate", "--const", "rate=0.5", "--apply", schemaPath, records)
	require.NoError(t, err, out)

	var evals []evaluation
	require.NoError(t, json.Unmarshal([]byte(out), &evals))
	require.Len(t, evals, 1)
	assert.True(t, evals[0].Results["fee"].Success)
	assert.InDelta(t, 100.0, evals[0].Results["fee"].Result, 1e-9)
	assert.InDelta(t, 100.0, evals[0].Values["fee"], 1e-9)

	out, err = run(t, dir, "evaluate", schemaPath, records)
	require.NoError(t, err, out)

	evals = nil
	require.NoError(t, json.Unmarshal([]byte(out), &evals))
	assert.False(t, evals[0].Results["fee"].Success, "rate is undefined without --const")
	assert.NotEmpty(t, evals[0].Results["fee"].Error)
}

func TestParseConstants(t *testing.T) {
	assert.Nil(t, parseConstants(nil))
	assert.Equal(t, map[string]any{"rate": 0.5, "flag": true, "name": "x"},
		parseConstants(map[string]string{"rate": "0.5", "flag": "true", "name": "x"}))
}

func TestSources(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "v2.yaml", loansV2)

	out, err := run(t, dir, "sources", schemaPath, "f_amount")
	require.NoError(t, err)
	assert.Contains(t, out, "f_customer\tcustomerName\tstring")
	assert.NotContains(t, out, "f_note")

	_, err = run(t, dir, "sources", schemaPath, "nope")
	assert.Error(t, err)
}

func TestPlanAndMigrate(t *testing.T) {
	dir := t.TempDir()
	v1 := writeFile(t, dir, "v1.yaml", loansV1)
	v2 := writeFile(t, dir, "v2.yaml", loansV2)
	records := writeFile(t, dir, "records.yaml", "- {amount: 10, borrowerName: Ada}\n- {amount: 20}\n")
	overrides := filepath.Join(dir, "overrides.yaml")

	out, err := run(t, dir, "plan", "--json", "--records", records, "--write-overrides", overrides, v1, v2)
	require.NoError(t, err, out)

	var cfg migration.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 2, cfg.AffectedCallCount)

	m, ok := cfg.MappingFor("f_borrower")
	require.True(t, ok)
	assert.Equal(t, "f_customer", m.NewFieldID)

	of, err := migration.LoadOverridesFile(overrides)
	require.NoError(t, err)
	assert.Equal(t, "f_customer", of.Mappings["f_borrower"])

	reportPath := filepath.Join(dir, "report.json")
	out, err = run(t, dir, "migrate", "--overrides", overrides, "--record", "-o", reportPath, v1, v2, records)
	require.NoError(t, err, out)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var report migration.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 2, report.MigratedCount)
	assert.Equal(t, "Ada", report.Records[0].Values["customerName"])

	out, err = run(t, dir, "store", "runs", "loans")
	require.NoError(t, err, out)
	assert.Contains(t, out, report.RunID)
}

func TestStoreCommands(t *testing.T) {
	dir := t.TempDir()
	v1 := writeFile(t, dir, "v1.yaml", loansV1)
	v2 := writeFile(t, dir, "v2.yaml", loansV2)

	out, err := run(t, dir, "store", "put", v1)
	require.NoError(t, err, out)
	assert.Contains(t, out, "saved loans@1.0.0")

	out, err = run(t, dir, "store", "put", "--activate", v2)
	require.NoError(t, err, out)

	_, err = run(t, dir, "store", "put", writeFile(t, dir, "broken.yaml", cyclic))
	require.Error(t, err)

	out, err = run(t, dir, "store", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "loans*")
	assert.Contains(t, out, "2.0.0")
	assert.Contains(t, out, "1.0.0")

	out, err = run(t, dir, "store", "get", "--json", "loans@1.0.0")
	require.NoError(t, err, out)
	assert.Contains(t, out, "f_borrower")

	// stored schemas resolve by id for every command
	out, err = run(t, dir, "check", "loans")
	require.NoError(t, err, out)
	assert.Contains(t, out, "loans@2.0.0 ok")

	_, err = run(t, dir, "store", "activate", "missing")
	require.Error(t, err)

	out, err = run(t, dir, "store", "activate", "loans")
	require.NoError(t, err)
	assert.Contains(t, out, "active loans@2.0.0")
}
