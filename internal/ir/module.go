package ir

import (
	"fmt"
	"sync"
)

// CoreModuleName is the well-known module providing primitive types.
// Every reference table can import it without a resolver.
const CoreModuleName = "core"

// Resolver locates an external module by name. Implemented by the
// store's directory resolver (production) and by map-backed fakes in
// tests and the harness.
type Resolver interface {
	Resolve(name string) (*Module, error)
}

// Module is a parsed compiled program unit: it owns a collection of
// type definitions and the reference table used to validate and
// translate references. Modules are identity-scoped - two modules never
// share mutable type nodes, so mutating one module can never corrupt
// another.
type Module struct {
	Name    string
	Version string
	Types   []*TypeDef

	Refs *RefTable
}

// NewModule creates an empty module with an initialized reference table.
func NewModule(name, version string) *Module {
	m := &Module{Name: name, Version: version}
	m.Refs = newRefTable(m)
	return m
}

// AddTypeDef appends a top-level type and wires its ownership backref.
func (m *Module) AddTypeDef(t *TypeDef) {
	t.Module = m
	m.Types = append(m.Types, t)
}

// RefTable validates and translates references against one module. It
// records the module names the owner imports; a reference into a module
// the table does not know must be resolved through the configured
// Resolver before it is valid for lookups.
type RefTable struct {
	owner    *Module
	imports  []string
	resolved map[string]*Module
	resolver Resolver
}

func newRefTable(owner *Module) *RefTable {
	return &RefTable{owner: owner, resolved: make(map[string]*Module)}
}

// SetResolver configures the resolver used for modules not yet known to
// the table. Passing nil disables resolution; Import of an unknown
// module then fails.
func (rt *RefTable) SetResolver(r Resolver) { rt.resolver = r }

// Imports returns the imported module names in first-import order.
func (rt *RefTable) Imports() []string {
	out := make([]string, len(rt.imports))
	copy(out, rt.imports)
	return out
}

// Knows reports whether name is the owner module or already imported.
func (rt *RefTable) Knows(name string) bool {
	if name == rt.owner.Name {
		return true
	}
	for _, imp := range rt.imports {
		if imp == name {
			return true
		}
	}
	return false
}

// Declare records an import without resolving it. Used when parsing a
// module whose import list is trusted (the declaration came from the
// module definition itself, not from a merged-in reference).
func (rt *RefTable) Declare(name string) {
	if name == rt.owner.Name || rt.Knows(name) {
		return
	}
	rt.imports = append(rt.imports, name)
}

// Import makes name a valid reference target for the owner module.
// The owner itself and already-imported modules are no-ops. The core
// module resolves without a resolver. Anything else goes through the
// configured Resolver; a resolution failure means the owner cannot
// construct a valid reference into name, and the caller must treat the
// reference as unresolvable.
func (rt *RefTable) Import(name string) error {
	if name == "" {
		return fmt.Errorf("reference names no module")
	}
	if rt.Knows(name) {
		return nil
	}
	if name == CoreModuleName {
		rt.imports = append(rt.imports, name)
		rt.resolved[name] = Core()
		return nil
	}
	if rt.resolver == nil {
		return fmt.Errorf("module %q is not imported and no resolver is configured", name)
	}
	mod, err := rt.resolver.Resolve(name)
	if err != nil {
		return fmt.Errorf("resolve module %q: %w", name, err)
	}
	rt.imports = append(rt.imports, name)
	rt.resolved[name] = mod
	return nil
}

// World returns the module that name denotes within the owner's
// reference space: the owner itself, the core module, or a previously
// resolved import. Declared-but-unresolved imports return false; they
// are valid reference targets but their definitions are not loaded.
func (rt *RefTable) World(name string) (*Module, bool) {
	if name == rt.owner.Name {
		return rt.owner, true
	}
	if name == CoreModuleName && rt.Knows(name) {
		if m, ok := rt.resolved[name]; ok {
			return m, true
		}
		return Core(), true
	}
	m, ok := rt.resolved[name]
	return m, ok
}

var (
	coreOnce sync.Once
	coreMod  *Module
)

// Core returns the built-in core module holding the primitive types
// Void, Object, Int32, Bool, and String. The returned module is shared
// process-wide and must be treated as read-only; it is never a merge
// source or destination.
func Core() *Module {
	coreOnce.Do(func() {
		coreMod = NewModule(CoreModuleName, "1")
		object := &TypeDef{Name: "Object", Flags: TypePublic}
		coreMod.AddTypeDef(object)
		for _, name := range []string{"Void", "Int32", "Bool", "String"} {
			t := &TypeDef{Name: name, Flags: TypePublic | TypeSealed}
			if name != "Void" {
				t.Base = RefTo(object)
			}
			coreMod.AddTypeDef(t)
		}
	})
	return coreMod
}

// CoreRef builds a reference to a core primitive type by name.
func CoreRef(name string) *TypeRef {
	return &TypeRef{Module: CoreModuleName, Name: name}
}
