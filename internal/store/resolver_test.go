package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeweld/weld/internal/ir"
)

// writeImage stores a minimal module under the given path.
func writeImage(t *testing.T, path, name, version string) {
	t.Helper()
	m := ir.NewModule(name, version)
	helper := &ir.TypeDef{Namespace: "Ext", Name: "Helper", Flags: ir.TypePublic, Base: ir.CoreRef("Object")}
	m.AddTypeDef(helper)
	require.NoError(t, m.Refs.Import(ir.CoreModuleName))
	require.NoError(t, m.Link())

	s, err := OpenWritable(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.WriteModule(context.Background(), m))
}

func TestDirResolverLoadsImages(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "extlib"+ImageExt), "extlib", "1.0")

	r := NewDirResolver(dir)
	m, err := r.Resolve("extlib")
	require.NoError(t, err)
	assert.Equal(t, "extlib", m.Name)
	assert.NotNil(t, m.FindType("Ext", "Helper"))
}

func TestDirResolverCachesByIdentity(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "extlib"+ImageExt), "extlib", "1.0")

	r := NewDirResolver(dir)
	first, err := r.Resolve("extlib")
	require.NoError(t, err)
	second, err := r.Resolve("extlib")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestDirResolverSearchesPathsInOrder(t *testing.T) {
	front := t.TempDir()
	back := t.TempDir()
	writeImage(t, filepath.Join(front, "extlib"+ImageExt), "extlib", "1.0")
	writeImage(t, filepath.Join(back, "extlib"+ImageExt), "extlib", "2.0")

	r := NewDirResolver(front, back)
	m, err := r.Resolve("extlib")
	require.NoError(t, err)
	assert.Equal(t, "1.0", m.Version)
}

func TestDirResolverUnknownModule(t *testing.T) {
	r := NewDirResolver(t.TempDir())
	_, err := r.Resolve("extlib")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extlib"+ImageExt)
}

func TestDirResolverRejectsMismatchedImage(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "extlib"+ImageExt), "other", "1.0")

	r := NewDirResolver(dir)
	_, err := r.Resolve("extlib")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `holds module "other"`)
}

func TestDirResolverServesReferenceImports(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "extlib"+ImageExt), "extlib", "1.0")

	app := ir.NewModule("app", "1.0")
	app.Refs.SetResolver(NewDirResolver(dir))

	require.NoError(t, app.Refs.Import("extlib"))
	world, ok := app.Refs.World("extlib")
	require.True(t, ok)
	assert.Equal(t, "extlib", world.Name)
}
