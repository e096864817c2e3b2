package weaver

import (
	"fmt"

	"github.com/typeweld/weld/internal/ir"
)

// The cloner produces detached deep copies of type members. Cloning
// never resolves or rewrites anything: a fresh clone still denotes the
// same type identities as its source, and stays that way until the
// flush pipeline rewrites it.
//
// INVARIANT: a clone never aliases mutable state with its source.
// Constants are immutable leaves and may be shared by value; every
// ref, param, local, and instruction is a fresh node.

// CloneField deep-copies a field definition. The clone is detached:
// its Declaring backref is nil until commit attaches it.
func CloneField(f *ir.FieldDef) (*ir.FieldDef, error) {
	if f == nil {
		return nil, NewInvalidArgument("clone: nil field")
	}
	c := &ir.FieldDef{
		Name:  f.Name,
		Flags: f.Flags,
		Type:  f.Type.Clone(),
	}
	if f.Const != nil {
		v := *f.Const
		c.Const = &v
	}
	var err error
	if c.Attributes, err = cloneAttributes(f.Attributes); err != nil {
		return nil, err
	}
	return c, nil
}

// CloneProperty deep-copies a property definition, including its
// accessor references. Accessor references are references, not
// ownership: the clone points at the same accessor identities as the
// source until the flush pipeline re-binds them.
func CloneProperty(p *ir.PropertyDef) (*ir.PropertyDef, error) {
	if p == nil {
		return nil, NewInvalidArgument("clone: nil property")
	}
	c := &ir.PropertyDef{
		Name:   p.Name,
		Type:   p.Type.Clone(),
		Getter: p.Getter.Clone(),
		Setter: p.Setter.Clone(),
	}
	var err error
	if c.Attributes, err = cloneAttributes(p.Attributes); err != nil {
		return nil, err
	}
	return c, nil
}

// CloneAttribute deep-copies a custom attribute. Constant arguments are
// immutable and copied by value.
func CloneAttribute(a *ir.AttributeDef) (*ir.AttributeDef, error) {
	if a == nil {
		return nil, NewInvalidArgument("clone: nil attribute")
	}
	c := &ir.AttributeDef{
		Type: a.Type.Clone(),
		Ctor: a.Ctor.Clone(),
	}
	if a.Args != nil {
		c.Args = make([]ir.Constant, len(a.Args))
		copy(c.Args, a.Args)
	}
	return c, nil
}

// CloneInterfaceImpl deep-copies an interface implementation record.
func CloneInterfaceImpl(i *ir.InterfaceImpl) (*ir.InterfaceImpl, error) {
	if i == nil {
		return nil, NewInvalidArgument("clone: nil interface implementation")
	}
	return &ir.InterfaceImpl{Iface: i.Iface.Clone()}, nil
}

// CloneMethod deep-copies a method definition: parameters, generic
// parameters, overrides, attributes, and the body with its locals and
// instructions. Instruction operands that reference the method's own
// parameters or locals are remapped to the cloned ones by identity.
// Malformed bodies are not rejected here; the splicer validates special
// methods at merge time.
func CloneMethod(m *ir.MethodDef) (*ir.MethodDef, error) {
	if m == nil {
		return nil, NewInvalidArgument("clone: nil method")
	}
	c := &ir.MethodDef{
		Name:      m.Name,
		Flags:     m.Flags,
		ImplFlags: m.ImplFlags,
		Return:    m.Return.Clone(),
	}

	paramMap := make(map[*ir.ParamDef]*ir.ParamDef, len(m.Params))
	if m.Params != nil {
		c.Params = make([]*ir.ParamDef, len(m.Params))
		for i, p := range m.Params {
			np := &ir.ParamDef{Name: p.Name, Type: p.Type.Clone()}
			c.Params[i] = np
			paramMap[p] = np
		}
	}
	if m.GenericParams != nil {
		c.GenericParams = make([]*ir.GenericParam, len(m.GenericParams))
		for i, g := range m.GenericParams {
			c.GenericParams[i] = &ir.GenericParam{Name: g.Name}
		}
	}
	if m.Overrides != nil {
		c.Overrides = make([]*ir.MethodRef, len(m.Overrides))
		for i, o := range m.Overrides {
			c.Overrides[i] = o.Clone()
		}
	}
	var err error
	if c.Attributes, err = cloneAttributes(m.Attributes); err != nil {
		return nil, err
	}
	if c.Body, err = cloneBody(m.Body, paramMap); err != nil {
		return nil, fmt.Errorf("clone method %q: %w", m.Name, err)
	}
	return c, nil
}

func cloneAttributes(attrs []*ir.AttributeDef) ([]*ir.AttributeDef, error) {
	if attrs == nil {
		return nil, nil
	}
	out := make([]*ir.AttributeDef, len(attrs))
	for i, a := range attrs {
		c, err := CloneAttribute(a)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func cloneBody(b *ir.MethodBody, paramMap map[*ir.ParamDef]*ir.ParamDef) (*ir.MethodBody, error) {
	if b == nil {
		return nil, nil
	}
	c := &ir.MethodBody{
		MaxStack:   b.MaxStack,
		InitLocals: b.InitLocals,
	}
	localMap := make(map[*ir.LocalDef]*ir.LocalDef, len(b.Locals))
	if b.Locals != nil {
		c.Locals = make([]*ir.LocalDef, len(b.Locals))
		for i, l := range b.Locals {
			nl := &ir.LocalDef{Name: l.Name, Type: l.Type.Clone()}
			c.Locals[i] = nl
			localMap[l] = nl
		}
	}
	if b.Instructions != nil {
		c.Instructions = make([]*ir.Instruction, len(b.Instructions))
		for i, ins := range b.Instructions {
			ni, err := cloneInstruction(ins, paramMap, localMap)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			c.Instructions[i] = ni
		}
	}
	return c, nil
}

// cloneInstruction copies one instruction. Labels are body-scoped and
// copied verbatim. The operand dispatch is exhaustive over the sealed
// variant set; an unknown variant is a hard error.
func cloneInstruction(ins *ir.Instruction, paramMap map[*ir.ParamDef]*ir.ParamDef, localMap map[*ir.LocalDef]*ir.LocalDef) (*ir.Instruction, error) {
	c := &ir.Instruction{Label: ins.Label, Op: ins.Op}
	switch op := ins.Operand.(type) {
	case nil:
	case ir.ParamOperand:
		np, ok := paramMap[op.Param]
		if !ok {
			// Operand references a parameter outside the method being
			// cloned; copy it fresh so nothing mutable is shared.
			np = &ir.ParamDef{Name: op.Param.Name, Type: op.Param.Type.Clone()}
		}
		c.Operand = ir.ParamOperand{Param: np}
	case ir.LocalOperand:
		nl, ok := localMap[op.Local]
		if !ok {
			nl = &ir.LocalDef{Name: op.Local.Name, Type: op.Local.Type.Clone()}
		}
		c.Operand = ir.LocalOperand{Local: nl}
	case ir.TypeOperand:
		c.Operand = ir.TypeOperand{Type: op.Type.Clone()}
	case ir.FieldOperand:
		c.Operand = ir.FieldOperand{Field: op.Field.Clone()}
	case ir.MethodOperand:
		c.Operand = ir.MethodOperand{Method: op.Method.Clone()}
	case ir.CallSiteOperand:
		c.Operand = ir.CallSiteOperand{Site: op.Site.Clone()}
	case ir.ConstOperand:
		c.Operand = ir.ConstOperand{Const: op.Const}
	default:
		return nil, fmt.Errorf("unknown operand variant %T", ins.Operand)
	}
	return c, nil
}
