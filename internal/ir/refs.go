package ir

// TypeRef names a type by (module, namespace, name). A ref may carry a
// resolved definition (definition-kind) or be naming-only
// (reference-kind); def is deliberately unexported so binding flows
// through Bind and resolution through the owning module's world.
//
// Refs are value-ish: every slot owns its ref struct. Two slots must
// never share one *TypeRef, otherwise rewriting one slot would silently
// rewrite the other.
type TypeRef struct {
	Module    string `json:"module"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`

	def *TypeDef
}

// NewTypeRef builds a naming-only reference.
func NewTypeRef(module, namespace, name string) *TypeRef {
	return &TypeRef{Module: module, Namespace: namespace, Name: name}
}

// RefTo builds a definition-kind reference to t. t must be attached to
// a module.
func RefTo(t *TypeDef) *TypeRef {
	r := &TypeRef{Namespace: t.Namespace, Name: t.Name, def: t}
	if t.Module != nil {
		r.Module = t.Module.Name
	}
	return r
}

// Bind resolves the reference to a definition and rewrites the naming
// fields to the definition's canonical identity.
func (r *TypeRef) Bind(t *TypeDef) {
	r.def = t
	r.Namespace = t.Namespace
	r.Name = t.Name
	if t.Module != nil {
		r.Module = t.Module.Name
	}
}

// Def returns the bound definition, or nil for a reference-kind ref.
func (r *TypeRef) Def() *TypeDef { return r.def }

// FullName returns "Namespace.Name" or just Name.
func (r *TypeRef) FullName() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "." + r.Name
}

// Equal reports naming equality. Binding state does not participate:
// a bound and an unbound ref to the same type are equal.
func (r *TypeRef) Equal(o *TypeRef) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Module == o.Module && r.Namespace == o.Namespace && r.Name == o.Name
}

// DenotesDef reports whether the reference names t, either through an
// explicit binding or by (module, namespace, name) identity.
func (r *TypeRef) DenotesDef(t *TypeDef) bool {
	if r == nil || t == nil {
		return false
	}
	if r.def == t {
		return true
	}
	if t.Module == nil {
		return false
	}
	return r.Module == t.Module.Name && r.Namespace == t.Namespace && r.Name == t.Name
}

// IsVoid reports whether the ref denotes the core void type.
func (r *TypeRef) IsVoid() bool {
	return r != nil && r.Module == CoreModuleName && r.Namespace == "" && r.Name == "Void"
}

// Clone returns an independent copy. The binding is carried over; the
// clone may be re-bound without affecting the source.
func (r *TypeRef) Clone() *TypeRef {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// FieldRef names a field by declaring type, name, and field type.
type FieldRef struct {
	Declaring *TypeRef `json:"declaring"`
	Name      string   `json:"name"`
	Type      *TypeRef `json:"type"`

	def *FieldDef
}

// Bind resolves the reference to a field definition. A short-form ref
// (field type not yet known) takes its type from the definition.
func (r *FieldRef) Bind(f *FieldDef) {
	r.def = f
	r.Name = f.Name
	if f.Declaring != nil {
		r.Declaring.Bind(f.Declaring)
	}
	if r.Type == nil && f.Type != nil {
		r.Type = f.Type.Clone()
	}
}

// Def returns the bound definition, or nil.
func (r *FieldRef) Def() *FieldDef { return r.def }

// ClearBinding drops the definition binding, keeping the naming fields.
// Used when a rewrite invalidates a stale binding and no replacement
// definition exists yet; the ref degrades to reference-kind.
func (r *FieldRef) ClearBinding() { r.def = nil }

// Clone returns an independent deep copy.
func (r *FieldRef) Clone() *FieldRef {
	if r == nil {
		return nil
	}
	return &FieldRef{
		Declaring: r.Declaring.Clone(),
		Name:      r.Name,
		Type:      r.Type.Clone(),
		def:       r.def,
	}
}

// MethodRef names a method by declaring type, name, signature shape,
// and return type. HasThis distinguishes instance from static targets;
// GenericArity is the declared generic parameter count.
type MethodRef struct {
	Declaring    *TypeRef   `json:"declaring"`
	Name         string     `json:"name"`
	HasThis      bool       `json:"hasthis,omitempty"`
	GenericArity int        `json:"arity,omitempty"`
	Return       *TypeRef   `json:"return"`
	Params       []*TypeRef `json:"params,omitempty"`

	def *MethodDef
}

// Bind resolves the reference to a method definition.
func (r *MethodRef) Bind(m *MethodDef) {
	r.def = m
	r.Name = m.Name
	if m.Declaring != nil {
		r.Declaring.Bind(m.Declaring)
	}
}

// Def returns the bound definition, or nil.
func (r *MethodRef) Def() *MethodDef { return r.def }

// ClearBinding drops the definition binding, keeping the naming fields.
func (r *MethodRef) ClearBinding() { r.def = nil }

// Clone returns an independent deep copy.
func (r *MethodRef) Clone() *MethodRef {
	if r == nil {
		return nil
	}
	c := &MethodRef{
		Declaring:    r.Declaring.Clone(),
		Name:         r.Name,
		HasThis:      r.HasThis,
		GenericArity: r.GenericArity,
		Return:       r.Return.Clone(),
		def:          r.def,
	}
	if r.Params != nil {
		c.Params = make([]*TypeRef, len(r.Params))
		for i, p := range r.Params {
			c.Params[i] = p.Clone()
		}
	}
	return c
}

// RefToMethod builds a definition-kind reference to m. m must be
// attached to a declaring type.
func RefToMethod(m *MethodDef) *MethodRef {
	r := &MethodRef{
		Name:         m.Name,
		HasThis:      m.HasThis(),
		GenericArity: len(m.GenericParams),
		Return:       m.Return.Clone(),
		def:          m,
	}
	if m.Declaring != nil {
		r.Declaring = RefTo(m.Declaring)
	}
	r.Params = make([]*TypeRef, len(m.Params))
	for i, p := range m.Params {
		r.Params[i] = p.Type.Clone()
	}
	return r
}

// CallSite is a standalone signature used by indirect calls: parameter
// types and a return type with no declaring type or name.
type CallSite struct {
	Return *TypeRef   `json:"return"`
	Params []*TypeRef `json:"params,omitempty"`
}

// Clone returns an independent deep copy.
func (c *CallSite) Clone() *CallSite {
	if c == nil {
		return nil
	}
	n := &CallSite{Return: c.Return.Clone()}
	if c.Params != nil {
		n.Params = make([]*TypeRef, len(c.Params))
		for i, p := range c.Params {
			n.Params[i] = p.Clone()
		}
	}
	return n
}
