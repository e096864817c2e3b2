package ir

import "fmt"

// Reference walkers. These visit every type-valued reference reachable
// from a node: member type slots, signatures, attribute and interface
// refs, local types, and instruction operands. The weaver's import pass,
// the verify command, and the harness closure assertion are all built
// on them.
//
// Operand dispatch is exhaustive over the sealed variant set; an
// unknown variant is a hard error, never skipped.

// WalkModuleRefs visits every type reference in the module.
func WalkModuleRefs(m *Module, fn func(*TypeRef)) error {
	for _, t := range m.Types {
		if err := WalkTypeRefs(t, fn); err != nil {
			return err
		}
	}
	return nil
}

// WalkTypeRefs visits every type reference reachable from t, including
// nested types.
func WalkTypeRefs(t *TypeDef, fn func(*TypeRef)) error {
	visit(t.Base, fn)
	for _, impl := range t.Interfaces {
		visit(impl.Iface, fn)
	}
	for _, a := range t.Attributes {
		WalkAttributeRefs(a, fn)
	}
	for _, f := range t.Fields {
		WalkFieldRefs(f, fn)
	}
	for _, p := range t.Properties {
		WalkPropertyRefs(p, fn)
	}
	for _, m := range t.Methods {
		if err := WalkMethodRefs(m, fn); err != nil {
			return err
		}
	}
	for _, nested := range t.Nested {
		if err := WalkTypeRefs(nested, fn); err != nil {
			return err
		}
	}
	return nil
}

// WalkFieldRefs visits the field's type and attribute refs.
func WalkFieldRefs(f *FieldDef, fn func(*TypeRef)) {
	visit(f.Type, fn)
	for _, a := range f.Attributes {
		WalkAttributeRefs(a, fn)
	}
}

// WalkPropertyRefs visits the property's type, accessor signatures, and
// attribute refs.
func WalkPropertyRefs(p *PropertyDef, fn func(*TypeRef)) {
	visit(p.Type, fn)
	walkMethodRefSlots(p.Getter, fn)
	walkMethodRefSlots(p.Setter, fn)
	for _, a := range p.Attributes {
		WalkAttributeRefs(a, fn)
	}
}

// WalkAttributeRefs visits the attribute's type and constructor refs.
func WalkAttributeRefs(a *AttributeDef, fn func(*TypeRef)) {
	visit(a.Type, fn)
	walkMethodRefSlots(a.Ctor, fn)
}

// WalkMethodRefs visits every type reference reachable from the method:
// return, parameters, overrides, attributes, locals, and all instruction
// operands.
func WalkMethodRefs(m *MethodDef, fn func(*TypeRef)) error {
	visit(m.Return, fn)
	for _, p := range m.Params {
		visit(p.Type, fn)
	}
	for _, o := range m.Overrides {
		walkMethodRefSlots(o, fn)
	}
	for _, a := range m.Attributes {
		WalkAttributeRefs(a, fn)
	}
	if m.Body == nil {
		return nil
	}
	for _, l := range m.Body.Locals {
		visit(l.Type, fn)
	}
	for i, ins := range m.Body.Instructions {
		switch op := ins.Operand.(type) {
		case nil, ConstOperand:
		case ParamOperand:
			visit(op.Param.Type, fn)
		case LocalOperand:
			visit(op.Local.Type, fn)
		case TypeOperand:
			visit(op.Type, fn)
		case FieldOperand:
			visit(op.Field.Type, fn)
			visit(op.Field.Declaring, fn)
		case MethodOperand:
			walkMethodRefSlots(op.Method, fn)
		case CallSiteOperand:
			visit(op.Site.Return, fn)
			for _, p := range op.Site.Params {
				visit(p, fn)
			}
		default:
			return fmt.Errorf("method %q instruction %d: unknown operand variant %T", m.Name, i, ins.Operand)
		}
	}
	return nil
}

func walkMethodRefSlots(r *MethodRef, fn func(*TypeRef)) {
	if r == nil {
		return
	}
	visit(r.Declaring, fn)
	visit(r.Return, fn)
	for _, p := range r.Params {
		visit(p, fn)
	}
}

func visit(r *TypeRef, fn func(*TypeRef)) {
	if r != nil {
		fn(r)
	}
}
