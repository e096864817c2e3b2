package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeweld/weld/internal/ir"
)

// writeMergePlan writes a single-merge plan wiring the fixture images.
func writeMergePlan(t *testing.T, dir, dest, output string) string {
	t.Helper()
	plan := fmt.Sprintf(`
destination: %q
search: [%q]
output: %q
weaves:
  - merge:
      source: mixlib/Mixins.Tracking
      into: App.Widget
`, dest, dir, output)
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(plan), 0644))
	return path
}

func TestMergeExecutesPlan(t *testing.T) {
	dir := t.TempDir()
	assembleImage(t, dir, mixinCUE)
	appPath := assembleImage(t, dir, appCUE)
	wovenPath := filepath.Join(dir, "woven.weldmod")
	planPath := writeMergePlan(t, dir, appPath, wovenPath)

	buf := &bytes.Buffer{}
	cmd := NewMergeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--plan", planPath})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Wove 1 directive(s) into app")

	woven := readImage(t, wovenPath)
	widget := woven.FindType("App", "Widget")
	require.NotNil(t, widget)

	// The mixin's members arrived, re-typed against the destination.
	require.NotNil(t, widget.FindField("count"))
	touch := widget.FindMethod("Touch")
	require.NotNil(t, touch)
	assert.Equal(t, "ldfld core/Int32 app/App.Widget::count", ir.FormatInstruction(touch.Body.Instructions[2]))

	// No reference into the source module survives the weave.
	assert.Equal(t, []string{"core"}, woven.Refs.Imports())
	require.NoError(t, ir.WalkModuleRefs(woven, func(r *ir.TypeRef) {
		assert.NotEqual(t, "mixlib", r.Module)
	}))

	// The original destination image is untouched.
	original := readImage(t, appPath)
	assert.Nil(t, original.FindType("App", "Widget").FindField("count"))
}

func TestMergeOverwritesDestinationWithoutOutput(t *testing.T) {
	dir := t.TempDir()
	assembleImage(t, dir, mixinCUE)
	appPath := assembleImage(t, dir, appCUE)

	plan := fmt.Sprintf(`
destination: %q
search: [%q]
weaves:
  - merge:
      source: mixlib/Mixins.Tracking
      into: App.Widget
`, appPath, dir)
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(plan), 0644))

	buf := &bytes.Buffer{}
	cmd := NewMergeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--plan", planPath})

	require.NoError(t, cmd.Execute())

	woven := readImage(t, appPath)
	assert.NotNil(t, woven.FindType("App", "Widget").FindField("count"))
}

func TestMergeAddTypeDirective(t *testing.T) {
	dir := t.TempDir()
	assembleImage(t, dir, mixinCUE)
	appPath := assembleImage(t, dir, appCUE)
	wovenPath := filepath.Join(dir, "woven.weldmod")

	plan := fmt.Sprintf(`
destination: %q
search: [%q]
output: %q
weaves:
  - add_type:
      source: mixlib/Mixins.Tracking
`, appPath, dir, wovenPath)
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(plan), 0644))

	buf := &bytes.Buffer{}
	cmd := NewMergeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--plan", planPath})

	require.NoError(t, cmd.Execute())

	woven := readImage(t, wovenPath)
	tracking := woven.FindType("Mixins", "Tracking")
	require.NotNil(t, tracking)
	touch := tracking.FindMethod("Touch")
	require.NotNil(t, touch)
	assert.Equal(t, "ldfld core/Int32 app/Mixins.Tracking::count", ir.FormatInstruction(touch.Body.Instructions[2]))
}

func TestMergeFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	assembleImage(t, dir, mixinCUE)
	appPath := assembleImage(t, dir, appCUE)
	wovenPath := filepath.Join(dir, "woven.weldmod")

	plan := fmt.Sprintf(`
destination: %q
search: [%q]
output: %q
weaves:
  - merge:
      source: mixlib/Mixins.Tracking
      into: App.Missing
`, appPath, dir, wovenPath)
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(plan), 0644))

	buf := &bytes.Buffer{}
	cmd := NewMergeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--plan", planPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeWeaveFailed)
	assert.Contains(t, buf.String(), "App.Missing")

	_, statErr := os.Stat(wovenPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergeRejectsBadPlan(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte("destination: x\nweave: []\n"), 0644))

	buf := &bytes.Buffer{}
	cmd := NewMergeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--plan", planPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodePlanInvalid)
}

func TestMergeMissingDestinationImage(t *testing.T) {
	dir := t.TempDir()
	planPath := writeMergePlan(t, dir, filepath.Join(dir, "nope.weldmod"), filepath.Join(dir, "out.weldmod"))

	buf := &bytes.Buffer{}
	cmd := NewMergeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--plan", planPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeImageRead)
}
