package ir

// FindType locates a top-level or nested type by namespace and name.
// Nested types are searched depth-first after top-level types.
func (m *Module) FindType(namespace, name string) *TypeDef {
	var walk func(types []*TypeDef) *TypeDef
	walk = func(types []*TypeDef) *TypeDef {
		for _, t := range types {
			if t.Namespace == namespace && t.Name == name {
				return t
			}
		}
		for _, t := range types {
			if found := walk(t.Nested); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(m.Types)
}

// FindField locates a field by name in declaration order.
func (t *TypeDef) FindField(name string) *FieldDef {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FindProperty locates a property by name in declaration order.
func (t *TypeDef) FindProperty(name string) *PropertyDef {
	for _, p := range t.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// FindMethod returns the first method with the given name in
// declaration order, or nil.
func (t *TypeDef) FindMethod(name string) *MethodDef {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindMethods returns every method with the given name in declaration
// order. Overload sets and unresolved duplicates both surface here.
func (t *TypeDef) FindMethods(name string) []*MethodDef {
	var out []*MethodDef
	for _, m := range t.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// ResolveTypeRef resolves a reference to its definition within the
// module's world: a bound ref resolves to its binding; otherwise the
// named module must be the owner, core, or a resolved import.
func (m *Module) ResolveTypeRef(r *TypeRef) *TypeDef {
	if r == nil {
		return nil
	}
	if r.def != nil {
		return r.def
	}
	world, ok := m.Refs.World(r.Module)
	if !ok {
		return nil
	}
	return world.FindType(r.Namespace, r.Name)
}

// AssignableTo reports whether a value of static type src may stand
// where dst is expected, resolved conservatively within m's world:
// identity, the base-class chain, or a directly declared interface
// implementation anywhere along that chain. Anything unresolvable is
// not assignable.
func (m *Module) AssignableTo(src, dst *TypeRef) bool {
	if src == nil || dst == nil {
		return false
	}
	if src.Equal(dst) {
		return true
	}
	seen := map[*TypeDef]bool{}
	cur := m.ResolveTypeRef(src)
	for cur != nil && !seen[cur] {
		seen[cur] = true
		if dst.DenotesDef(cur) {
			return true
		}
		for _, impl := range cur.Interfaces {
			if impl.Iface.Equal(dst) {
				return true
			}
		}
		if cur.Base == nil {
			return false
		}
		if dst.Equal(cur.Base) {
			return true
		}
		cur = m.ResolveTypeRef(cur.Base)
	}
	return false
}
