package ir

import "fmt"

// Link binds every reference in the module that resolves within the
// module's world: type references bind to their definitions, field and
// method references bind to the member they name on the resolved
// declaring type. References into modules the world does not cover stay
// unbound; they remain valid naming references.
//
// Link is idempotent. It runs after assembling or loading a module,
// recreating the identity bindings a compiled module carries natively.
func (m *Module) Link() error {
	for _, t := range m.Types {
		if err := m.linkType(t); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) linkType(t *TypeDef) error {
	m.linkTypeRef(t.Base)
	for _, impl := range t.Interfaces {
		m.linkTypeRef(impl.Iface)
	}
	for _, a := range t.Attributes {
		m.linkAttribute(a)
	}
	for _, f := range t.Fields {
		m.linkTypeRef(f.Type)
		for _, a := range f.Attributes {
			m.linkAttribute(a)
		}
	}
	for _, p := range t.Properties {
		m.linkTypeRef(p.Type)
		m.linkMethodRef(p.Getter)
		m.linkMethodRef(p.Setter)
		for _, a := range p.Attributes {
			m.linkAttribute(a)
		}
	}
	for _, md := range t.Methods {
		if err := m.linkMethod(md); err != nil {
			return err
		}
	}
	for _, n := range t.Nested {
		if err := m.linkType(n); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) linkTypeRef(r *TypeRef) {
	if r == nil {
		return
	}
	if d := m.ResolveTypeRef(r); d != nil {
		r.Bind(d)
	}
}

func (m *Module) linkFieldRef(r *FieldRef) {
	if r == nil {
		return
	}
	m.linkTypeRef(r.Type)
	m.linkTypeRef(r.Declaring)
	d := m.ResolveTypeRef(r.Declaring)
	if d == nil {
		return
	}
	if f := d.FindField(r.Name); f != nil {
		r.Bind(f)
	}
}

func (m *Module) linkMethodRef(r *MethodRef) {
	if r == nil {
		return
	}
	m.linkTypeRef(r.Declaring)
	m.linkTypeRef(r.Return)
	for _, p := range r.Params {
		m.linkTypeRef(p)
	}
	d := m.ResolveTypeRef(r.Declaring)
	if d == nil {
		return
	}
	key := r.SignatureKey()
	for _, cand := range d.FindMethods(r.Name) {
		if cand.SignatureKey() == key {
			r.Bind(cand)
			return
		}
	}
}

func (m *Module) linkAttribute(a *AttributeDef) {
	m.linkTypeRef(a.Type)
	m.linkMethodRef(a.Ctor)
}

func (m *Module) linkMethod(md *MethodDef) error {
	m.linkTypeRef(md.Return)
	for _, p := range md.Params {
		m.linkTypeRef(p.Type)
	}
	for _, o := range md.Overrides {
		m.linkMethodRef(o)
	}
	for _, a := range md.Attributes {
		m.linkAttribute(a)
	}
	if md.Body == nil {
		return nil
	}
	for _, l := range md.Body.Locals {
		m.linkTypeRef(l.Type)
	}
	for i, ins := range md.Body.Instructions {
		switch op := ins.Operand.(type) {
		case nil, ConstOperand:
		case ParamOperand:
			m.linkTypeRef(op.Param.Type)
		case LocalOperand:
			m.linkTypeRef(op.Local.Type)
		case TypeOperand:
			m.linkTypeRef(op.Type)
		case FieldOperand:
			m.linkFieldRef(op.Field)
		case MethodOperand:
			m.linkMethodRef(op.Method)
		case CallSiteOperand:
			m.linkTypeRef(op.Site.Return)
			for _, p := range op.Site.Params {
				m.linkTypeRef(p)
			}
		default:
			return fmt.Errorf("link method %q instruction %d: unknown operand variant %T", md.Name, i, ins.Operand)
		}
	}
	return nil
}
