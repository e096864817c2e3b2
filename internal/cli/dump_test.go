package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpModule(t *testing.T) {
	dir := t.TempDir()
	imgPath := assembleImage(t, dir, mixinCUE)

	buf := &bytes.Buffer{}
	cmd := NewDumpCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{imgPath})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "module mixlib 1.0")
	assert.Contains(t, output, "import core")
	assert.Contains(t, output, "type mixlib/Mixins.Tracking public base core/Object")
	assert.Contains(t, output, "ldfld core/Int32 mixlib/Mixins.Tracking::count")
}

func TestDumpSingleType(t *testing.T) {
	dir := t.TempDir()
	imgPath := assembleImage(t, dir, castCUE)

	buf := &bytes.Buffer{}
	cmd := NewDumpCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{imgPath, "--type", "App.Dog"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "type app/App.Dog")
	assert.NotContains(t, output, "App.Caster")
}

func TestDumpJSON(t *testing.T) {
	dir := t.TempDir()
	imgPath := assembleImage(t, dir, mixinCUE)

	buf := &bytes.Buffer{}
	cmd := NewDumpCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{imgPath})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "mixlib", data["module"])
	assert.Contains(t, data["dump"], "module mixlib 1.0")
}

func TestDumpUnknownType(t *testing.T) {
	dir := t.TempDir()
	imgPath := assembleImage(t, dir, mixinCUE)

	buf := &bytes.Buffer{}
	cmd := NewDumpCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{imgPath, "--type", "Mixins.Ghost"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDumpMissingImage(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDumpCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.weldmod")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeImageRead)
}
