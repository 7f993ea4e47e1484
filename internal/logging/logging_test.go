package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(Options{Writer: &buf, Level: "WARN"})
	require.NoError(t, err)

	l.Info().Msg("hidden")
	l.Warn().Str("schema", "loans@1.0.0").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"schema":"loans@1.0.0"`)
	assert.Contains(t, out, `"time":`)
	assert.NoError(t, l.Close())
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")

	l, err := New(Options{Path: path, Pretty: true})
	require.NoError(t, err)

	l.Info().Msg("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}
