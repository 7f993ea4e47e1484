package diagnostic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnostics_ErrorAndMerge(t *testing.T) {
	var d Diagnostics
	assert.True(t, d.IsValid())
	assert.NoError(t, d.Error())

	d.AddWarning(CodeDanglingDependency, "unused", "loans@1.0.0", "f_a")

	other := Diagnostics{}
	other.AddError(CodeDuplicateFieldID, "duplicate field id", "loans@1.0.0", "f_a")
	other.AddInfo("note", "fyi", "", "")

	d.Merge(other)

	assert.True(t, d.HasErrors())
	assert.True(t, d.HasCode(CodeDanglingDependency))
	assert.True(t, d.HasCode("note"))
	assert.False(t, d.HasCode("missing"))
	require.Error(t, d.Error())
	assert.Contains(t, d.Error().Error(), "duplicate field id")
	assert.Contains(t, d.Error().Error(), "f_a")
}

func TestSeverity_JSON(t *testing.T) {
	var d Diagnostics
	d.AddWarningWithSuggestions("ambiguous", "pick one", "", "f_phone", []string{"f_mobile", "f_home"})

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"warning"`)

	var back Diagnostics
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)

	var s Severity
	assert.Error(t, s.UnmarshalText([]byte("fatal")))
}
