package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const castCUE = `
module: {
	name:    "app"
	version: "1.0"
	imports: ["core"]
	types: [{
		namespace: "App"
		name:      "Animal"
		flags:     ["public"]
		base:      "core/Object"
	}, {
		namespace: "App"
		name:      "Dog"
		flags:     ["public"]
		base:      "app/App.Animal"
	}, {
		namespace: "App"
		name:      "Caster"
		flags:     ["public"]
		base:      "core/Object"
		methods: [{
			name:    "Upcast"
			flags:   ["public"]
			returns: "app/App.Animal"
			params: [{name: "d", type: "app/App.Dog"}]
			body: {
				maxstack: 1
				instructions: ["ldarg d", "castclass app/App.Animal", "ret"]
			}
		}, {
			name:    "Downcast"
			flags:   ["public"]
			returns: "app/App.Dog"
			params: [{name: "a", type: "app/App.Animal"}]
			body: {
				maxstack: 1
				instructions: ["ldarg a", "castclass app/App.Dog", "ret"]
			}
		}]
	}]
}
`

func TestOptimizeRemovesRedundantCasts(t *testing.T) {
	dir := t.TempDir()
	imgPath := assembleImage(t, dir, castCUE)

	buf := &bytes.Buffer{}
	cmd := NewOptimizeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{imgPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "removed 1 cast(s)")

	m := readImage(t, imgPath)
	caster := m.FindType("App", "Caster")
	require.NotNil(t, caster)

	// The provable upcast is gone; the downcast stays.
	assert.Len(t, caster.FindMethod("Upcast").Body.Instructions, 2)
	assert.Len(t, caster.FindMethod("Downcast").Body.Instructions, 3)
}

func TestOptimizeTypeFilter(t *testing.T) {
	dir := t.TempDir()
	imgPath := assembleImage(t, dir, castCUE)

	buf := &bytes.Buffer{}
	cmd := NewOptimizeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{imgPath, "--type", "App.Animal"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "removed 0 cast(s)")

	// Caster was outside the filter, so its upcast survives.
	m := readImage(t, imgPath)
	assert.Len(t, m.FindType("App", "Caster").FindMethod("Upcast").Body.Instructions, 3)
}

func TestOptimizeMethodFilterRequiresType(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewOptimizeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"whatever.weldmod", "--method", "Upcast"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "--method requires --type")
}

func TestOptimizeUnknownType(t *testing.T) {
	dir := t.TempDir()
	imgPath := assembleImage(t, dir, castCUE)

	buf := &bytes.Buffer{}
	cmd := NewOptimizeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{imgPath, "--type", "App.Ghost"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "App.Ghost")
}
