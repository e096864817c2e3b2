package weaver

import (
	"fmt"

	"github.com/typeweld/weld/internal/ir"
)

// The rewriter runs at flush, once per record in registration order:
//
//  1. type substitution on every type-valued slot in the record's clones
//  2. accessor re-binding for cloned properties
//  3. instruction operand rewrite, exhaustive over the operand variants
//  4. reference import into the destination module's table
//
// Step ordering is required: step 2 depends on step 1's slot updates,
// and step 3 applies the step-1 policy at per-operand granularity.

// stagedView is the member lookup surface over one destination type at
// a point mid-flush: the type's committed members plus everything staged
// by records up to and including the current one.
//
// Method lookup follows post-commit append order (committed first, then
// staged in registration order). Field lookup follows post-commit
// layout order: fields prepend per record, so later records shadow
// earlier ones, which shadow committed fields.
type stagedView struct {
	records []*MergeRecord
}

func (v stagedView) findMethod(dest *ir.TypeDef, key string) *ir.MethodDef {
	for _, m := range dest.Methods {
		if m.SignatureKey() == key {
			return m
		}
	}
	for _, rec := range v.records {
		if rec.Dest != dest {
			continue
		}
		for _, m := range rec.Methods {
			if m.SignatureKey() == key {
				return m
			}
		}
	}
	return nil
}

func (v stagedView) findField(dest *ir.TypeDef, name string) *ir.FieldDef {
	for i := len(v.records) - 1; i >= 0; i-- {
		rec := v.records[i]
		if rec.Dest != dest {
			continue
		}
		for _, f := range rec.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	for _, f := range dest.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// substitution rewrites one record's clones from source-type space to
// destination-type space.
type substitution struct {
	src  *ir.TypeDef
	dest *ir.TypeDef
	view stagedView
}

// typeRef applies the core substitution: any reference denoting src is
// re-bound to dest. Definition-kind and naming-only references both
// qualify; everything else is left alone.
func (s *substitution) typeRef(r *ir.TypeRef) {
	if r != nil && r.DenotesDef(s.src) {
		r.Bind(s.dest)
	}
}

// fieldRef substitutes the embedded types, then attempts early binding:
// a reference now declared on dest binds to the matching field in the
// staged view when one exists. A stale binding into src with no staged
// counterpart is cleared.
func (s *substitution) fieldRef(r *ir.FieldRef) {
	if r == nil {
		return
	}
	s.typeRef(r.Type)
	s.typeRef(r.Declaring)
	if r.Declaring == nil || !r.Declaring.DenotesDef(s.dest) {
		return
	}
	if f := s.view.findField(s.dest, r.Name); f != nil {
		r.Bind(f)
		return
	}
	if d := r.Def(); d != nil && d.Declaring == s.src {
		r.ClearBinding()
	}
}

// methodRef substitutes the declaring, return, and parameter types,
// then attempts early binding by exact signature against the staged
// view of dest.
func (s *substitution) methodRef(r *ir.MethodRef) {
	if r == nil {
		return
	}
	s.typeRef(r.Declaring)
	s.typeRef(r.Return)
	for _, p := range r.Params {
		s.typeRef(p)
	}
	if r.Declaring == nil || !r.Declaring.DenotesDef(s.dest) {
		return
	}
	if m := s.view.findMethod(s.dest, r.SignatureKey()); m != nil {
		r.Bind(m)
		return
	}
	if d := r.Def(); d != nil && d.Declaring == s.src {
		r.ClearBinding()
	}
}

func (s *substitution) attribute(a *ir.AttributeDef) {
	s.typeRef(a.Type)
	s.methodRef(a.Ctor)
}

// methodSlots runs step-1 substitution over a method clone's type-valued
// slots. Instruction operands are step 3's job.
func (s *substitution) methodSlots(m *ir.MethodDef) {
	s.typeRef(m.Return)
	for _, p := range m.Params {
		s.typeRef(p.Type)
	}
	for _, o := range m.Overrides {
		s.methodRef(o)
	}
	for _, a := range m.Attributes {
		s.attribute(a)
	}
	if m.Body != nil {
		for _, l := range m.Body.Locals {
			s.typeRef(l.Type)
		}
	}
}

// rebindAccessor re-declares a property accessor reference against dest
// and binds it to the matching staged method. Structurally identical
// accessors across merged properties converge on one physical method
// through the signature lookup.
func (s *substitution) rebindAccessor(r *ir.MethodRef) {
	if r == nil {
		return
	}
	s.typeRef(r.Return)
	for _, p := range r.Params {
		s.typeRef(p)
	}
	if r.Declaring == nil {
		r.Declaring = ir.RefTo(s.dest)
	} else {
		r.Declaring.Bind(s.dest)
	}
	if m := s.view.findMethod(s.dest, r.SignatureKey()); m != nil {
		r.Bind(m)
		return
	}
	if d := r.Def(); d != nil && d.Declaring == s.src {
		r.ClearBinding()
	}
}

// rewriteBody runs step-3 operand rewrite over one body. Dispatch is
// exhaustive over the sealed operand set; an unknown variant is a hard
// error.
func (s *substitution) rewriteBody(m *ir.MethodDef) error {
	if m.Body == nil {
		return nil
	}
	for i, ins := range m.Body.Instructions {
		switch op := ins.Operand.(type) {
		case nil, ir.ConstOperand:
		case ir.ParamOperand:
			s.typeRef(op.Param.Type)
		case ir.LocalOperand:
			s.typeRef(op.Local.Type)
		case ir.TypeOperand:
			s.typeRef(op.Type)
		case ir.FieldOperand:
			s.fieldRef(op.Field)
		case ir.MethodOperand:
			s.methodRef(op.Method)
		case ir.CallSiteOperand:
			s.typeRef(op.Site.Return)
			for _, p := range op.Site.Params {
				s.typeRef(p)
			}
		default:
			return NewInvalidArgument(fmt.Sprintf(
				"rewrite method %q instruction %d: unknown operand variant %T", m.Name, i, ins.Operand))
		}
	}
	return nil
}

// rewriteRecord runs steps 1-3 over every clone in the record,
// including splice-plan methods.
func (s *substitution) rewriteRecord(rec *MergeRecord) error {
	for _, a := range rec.Attrs {
		s.attribute(a)
	}
	for _, impl := range rec.Ifaces {
		s.typeRef(impl.Iface)
	}
	for _, f := range rec.Fields {
		s.typeRef(f.Type)
		for _, a := range f.Attributes {
			s.attribute(a)
		}
	}
	for _, p := range rec.Props {
		s.typeRef(p.Type)
		for _, a := range p.Attributes {
			s.attribute(a)
		}
	}
	for _, m := range rec.Methods {
		s.methodSlots(m)
	}
	for _, plan := range rec.Splices {
		s.methodSlots(plan.Method)
	}

	for _, p := range rec.Props {
		s.rebindAccessor(p.Getter)
		s.rebindAccessor(p.Setter)
	}

	for _, m := range rec.Methods {
		if err := s.rewriteBody(m); err != nil {
			return err
		}
	}
	for _, plan := range rec.Splices {
		if err := s.rewriteBody(plan.Method); err != nil {
			return err
		}
	}
	return nil
}

// importRecord interns every module named by the record's clones into
// the destination module's reference table (step 4). Modules are
// imported in first-encounter order so the import list, and with it the
// module fingerprint, stays deterministic.
func importRecord(module *ir.Module, rec *MergeRecord) error {
	var order []string
	seen := map[string]bool{}
	collect := func(r *ir.TypeRef) {
		if !seen[r.Module] {
			seen[r.Module] = true
			order = append(order, r.Module)
		}
	}

	for _, a := range rec.Attrs {
		ir.WalkAttributeRefs(a, collect)
	}
	for _, impl := range rec.Ifaces {
		collect(impl.Iface)
	}
	for _, f := range rec.Fields {
		ir.WalkFieldRefs(f, collect)
	}
	for _, p := range rec.Props {
		ir.WalkPropertyRefs(p, collect)
	}
	for _, m := range rec.Methods {
		if err := ir.WalkMethodRefs(m, collect); err != nil {
			return NewInvalidArgument(err.Error())
		}
	}
	for _, plan := range rec.Splices {
		if err := ir.WalkMethodRefs(plan.Method, collect); err != nil {
			return NewInvalidArgument(err.Error())
		}
	}

	for _, name := range order {
		if err := module.Refs.Import(name); err != nil {
			return NewUnresolvedImport(name, err)
		}
	}
	return nil
}
