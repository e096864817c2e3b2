package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/typeweld/weld/internal/assembler"
	"github.com/typeweld/weld/internal/ir"
	"github.com/typeweld/weld/internal/store"
)

const mixinCUE = `
module: {
	name:    "mixlib"
	version: "1.0"
	imports: ["core"]
	types: [{
		namespace: "Mixins"
		name:      "Tracking"
		flags:     ["public"]
		base:      "core/Object"
		fields: [{name: "count", type: "core/Int32", flags: ["public"]}]
		methods: [{
			name:  "Touch"
			flags: ["public"]
			body: {
				maxstack: 3
				instructions: [
					"ldthis",
					"ldthis",
					"ldfld core/Int32 mixlib/Mixins.Tracking::count",
					"ldc 1",
					"add",
					"stfld core/Int32 mixlib/Mixins.Tracking::count",
					"ret",
				]
			}
		}]
	}]
}
`

const appCUE = `
module: {
	name:    "app"
	version: "1.0"
	imports: ["core"]
	types: [{
		namespace: "App"
		name:      "Widget"
		flags:     ["public"]
		base:      "core/Object"
		fields: [{name: "label", type: "core/String", flags: ["public"]}]
	}]
}
`

// assembleImage compiles a CUE module definition and writes it as an
// image under dir. Returns the image path.
func assembleImage(t *testing.T, dir, src string) string {
	t.Helper()
	m, err := assembler.AssembleSource("fixture.cue", src)
	require.NoError(t, err)

	path := filepath.Join(dir, m.Name+store.ImageExt)
	s, err := store.OpenWritable(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.WriteModule(context.Background(), m))
	return path
}

// readImage loads the module stored at path.
func readImage(t *testing.T, path string) *ir.Module {
	t.Helper()
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()
	m, err := s.ReadModule(context.Background())
	require.NoError(t, err)
	return m
}
