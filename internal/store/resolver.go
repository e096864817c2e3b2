package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/typeweld/weld/internal/ir"
)

// DirResolver resolves module names against image files on disk. A
// module named "extlib" resolves to the first "extlib.weldmod" found
// across the search paths, in path order.
//
// Loaded modules are cached for the resolver's lifetime: reference
// binding relies on pointer identity, so resolving the same name twice
// must yield the same graph.
type DirResolver struct {
	paths []string
	cache map[string]*ir.Module
}

// NewDirResolver creates a resolver searching the given directories.
func NewDirResolver(paths ...string) *DirResolver {
	return &DirResolver{
		paths: append([]string(nil), paths...),
		cache: make(map[string]*ir.Module),
	}
}

// Resolve implements ir.Resolver.
func (r *DirResolver) Resolve(name string) (*ir.Module, error) {
	if m, ok := r.cache[name]; ok {
		return m, nil
	}

	path, err := r.locate(name)
	if err != nil {
		return nil, err
	}

	m, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	if m.Name != name {
		return nil, fmt.Errorf("resolve %q: image %s holds module %q", name, path, m.Name)
	}

	// Resolved dependencies resolve their own imports through the same
	// search paths.
	m.Refs.SetResolver(r)

	r.cache[name] = m
	return m, nil
}

func (r *DirResolver) locate(name string) (string, error) {
	for _, dir := range r.paths {
		path := filepath.Join(dir, name+ImageExt)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("resolve %q: no %s%s in search paths %v", name, name, ImageExt, r.paths)
}

// loadImage opens an image read-only for the duration of one load.
// Resolution happens deep inside reference rewriting where no caller
// context is available, hence Background.
func loadImage(path string) (*ir.Module, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.ReadModule(context.Background())
}
