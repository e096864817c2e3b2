package weaver

import (
	"log/slog"
	"slices"

	"github.com/typeweld/weld/internal/ir"
)

// Flush rewrites, validates, and commits everything staged in the
// session, then consumes it.
//
// Records are processed in registration order: reference rewrite and
// import first, then splice planning, then duplicate planning. Every
// fallible step runs before the first destination mutation, so a failed
// flush leaves the module exactly as it was.
//
// CRITICAL: a failed flush still consumes the session. Staged clones
// may be partially rewritten; re-flushing them would commit
// inconsistent state.
func (s *Session) Flush() error {
	if s.flushed {
		return NewInvalidArgument("session already flushed")
	}
	s.flushed = true

	slog.Debug("flush started",
		"token", s.token,
		"module", s.module.Name,
		"records", len(s.records),
		"types", len(s.staged))

	if err := s.rewriteAll(); err != nil {
		slog.Error("flush failed", "token", s.token, "module", s.module.Name, "error", err)
		return err
	}
	installs, applies, err := s.planSplices()
	if err != nil {
		slog.Error("flush failed", "token", s.token, "module", s.module.Name, "error", err)
		return err
	}
	swaps, err := s.planDuplicates(installs)
	if err != nil {
		slog.Error("flush failed", "token", s.token, "module", s.module.Name, "error", err)
		return err
	}

	records, types := len(s.records), len(s.staged)
	s.commit(installs, applies, swaps)

	slog.Info("flush committed",
		"token", s.token,
		"module", s.module.Name,
		"records", records,
		"types", types,
		"swaps", len(swaps))
	return nil
}

// rewriteAll runs substitution, early binding, and reference import
// over every record, in registration order. Each record's staged view
// covers records up to and including itself, so a clone can bind to a
// member staged by an earlier merge but never to one staged later.
func (s *Session) rewriteAll() error {
	for i, rec := range s.records {
		sub := &substitution{src: rec.Src, dest: rec.Dest, view: stagedView{records: s.records[:i+1]}}
		if err := sub.rewriteRecord(rec); err != nil {
			return err
		}
		if err := importRecord(s.module, rec); err != nil {
			return err
		}
	}
	for _, t := range s.staged {
		if t.Base == nil {
			continue
		}
		if err := s.module.Refs.Import(t.Base.Module); err != nil {
			return NewUnresolvedImport(t.Base.Module, err)
		}
	}
	return nil
}

// spliceKey identifies one special method slot mid-flush. Keyed by name
// only: destination counterparts are matched by name, the first in
// declaration order.
type spliceKey struct {
	dest *ir.TypeDef
	name string
}

// spliceState accumulates splices for one slot. target is the method
// whose body the commit replaces; body is the working copy being
// spliced into. In install mode the two alias the installed clone, so
// no separate apply is needed.
type spliceState struct {
	target *ir.MethodDef
	body   *ir.MethodBody
}

// planSplices folds every splice plan into per-slot working bodies.
// The first plan against a slot either stages a copy of the existing
// counterpart's body or installs the plan's own method; every further
// plan splices its payload into the working body.
//
// Returns the per-record installed methods and the existing-counterpart
// states whose bodies the commit must swap in.
func (s *Session) planSplices() (map[*MergeRecord][]*ir.MethodDef, []*spliceState, error) {
	installs := map[*MergeRecord][]*ir.MethodDef{}
	states := map[spliceKey]*spliceState{}
	var applies []*spliceState

	for _, rec := range s.records {
		for _, plan := range rec.Splices {
			key := spliceKey{dest: rec.Dest, name: plan.Name}
			if st, ok := states[key]; ok {
				if err := plan.spliceInto(rec.Dest.FullName(), st.body); err != nil {
					return nil, nil, err
				}
				continue
			}

			existing := rec.Dest.FindMethod(plan.Name)
			if existing == nil {
				m := plan.installMethod()
				installs[rec] = append(installs[rec], m)
				states[key] = &spliceState{target: m, body: m.Body}
				continue
			}
			if existing.Body == nil || len(existing.Body.Instructions) == 0 {
				return nil, nil, NewStructuralViolation(rec.Dest.FullName(), plan.Name, "destination special method has no body")
			}
			st := &spliceState{
				target: existing,
				body: &ir.MethodBody{
					MaxStack:     existing.Body.MaxStack,
					InitLocals:   existing.Body.InitLocals,
					Locals:       slices.Clone(existing.Body.Locals),
					Instructions: slices.Clone(existing.Body.Instructions),
				},
			}
			states[key] = st
			applies = append(applies, st)
			if err := plan.spliceInto(rec.Dest.FullName(), st.body); err != nil {
				return nil, nil, err
			}
		}
	}
	return installs, applies, nil
}

// commit applies every staged mutation. Infallible: all validation
// already happened.
//
// Per record, in registration order: attributes and interface
// implementations append, fields prepend as a block, properties and
// methods append, then that record's installed special methods. After
// membership is final, splice bodies swap in and duplicate pairs swap.
func (s *Session) commit(installs map[*MergeRecord][]*ir.MethodDef, applies []*spliceState, swaps []swapPair) {
	for _, t := range s.staged {
		if t.Parent != nil {
			t.Parent.Nested = append(t.Parent.Nested, t)
			continue
		}
		s.module.AddTypeDef(t)
	}

	for _, rec := range s.records {
		dest := rec.Dest
		dest.Attributes = append(dest.Attributes, rec.Attrs...)
		dest.Interfaces = append(dest.Interfaces, rec.Ifaces...)

		if len(rec.Fields) > 0 {
			merged := make([]*ir.FieldDef, 0, len(rec.Fields)+len(dest.Fields))
			merged = append(merged, rec.Fields...)
			merged = append(merged, dest.Fields...)
			for _, f := range rec.Fields {
				f.Declaring = dest
			}
			dest.Fields = merged
		}
		for _, p := range rec.Props {
			p.Declaring = dest
			dest.Properties = append(dest.Properties, p)
		}
		for _, m := range rec.Methods {
			m.Declaring = dest
			dest.Methods = append(dest.Methods, m)
		}
		for _, m := range installs[rec] {
			m.Declaring = dest
			dest.Methods = append(dest.Methods, m)
		}
	}

	for _, st := range applies {
		st.target.Body = st.body
	}
	for _, p := range swaps {
		applySwap(p)
	}

	s.records = nil
	s.staged = nil
}
