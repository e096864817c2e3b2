package weaver

import (
	"fmt"
	"log/slog"

	"github.com/typeweld/weld/internal/ir"
)

// Optimize removes locally provable redundant casts from m's body and
// returns how many it removed.
//
// A castclass/isinst is redundant when the static type of its input is
// already assignable to the cast target. The input's producer is found
// by a backward scan within the cast's own straight-line run,
// maintaining the running stack balance. The scan is conservative and
// aborts (cast retained) at any run terminator, any labeled instruction
// (a potential join point, where the incoming stack depends on the
// path), any instruction with unknown stack effect, and any producer
// with unknown static type.
//
// Redundant casts are collected across the whole body first and removed
// in one pass.
func Optimize(m *ir.MethodDef) (int, error) {
	if m == nil {
		return 0, NewInvalidArgument("optimize: nil method")
	}
	if m.Declaring == nil || m.Declaring.Module == nil {
		return 0, NewInvalidArgument(fmt.Sprintf("optimize: method %q is not attached to a module", m.Name))
	}
	if m.Body == nil || len(m.Body.Instructions) == 0 {
		return 0, nil
	}

	module := m.Declaring.Module
	code := m.Body.Instructions
	redundant := make(map[int]bool)

	for i, ins := range code {
		if ins.Op != ir.OpCastclass && ins.Op != ir.OpIsinst {
			continue
		}
		if ins.Label > 0 {
			// The cast itself is a join target; the incoming stack is
			// path-dependent.
			continue
		}
		target, ok := ins.Operand.(ir.TypeOperand)
		if !ok || target.Type == nil {
			continue
		}
		produced := producerType(m, code, i)
		if produced == nil {
			continue
		}
		if module.AssignableTo(produced, target.Type) {
			redundant[i] = true
		}
	}

	if len(redundant) == 0 {
		return 0, nil
	}
	kept := make([]*ir.Instruction, 0, len(code)-len(redundant))
	for i, ins := range code {
		if !redundant[i] {
			kept = append(kept, ins)
		}
	}
	m.Body.Instructions = kept

	slog.Debug("redundant casts removed",
		"type", m.Declaring.FullName(),
		"method", m.Name,
		"removed", len(redundant))
	return len(redundant), nil
}

// producerType walks backward from the cast at code[castIdx] tracking
// how deep the cast's input sits, and returns the static type pushed by
// the instruction that produced it. Returns nil when the producer
// cannot be pinned down within the cast's own run.
func producerType(m *ir.MethodDef, code []*ir.Instruction, castIdx int) *ir.TypeRef {
	depth := 1
	for j := castIdx - 1; j >= 0; j-- {
		ins := code[j]
		if ins.Label > 0 {
			return nil
		}
		if ins.Op.EndsRun() {
			return nil
		}
		pops, pushes, ok := ins.StackEffect()
		if !ok {
			return nil
		}
		if pushes >= depth {
			t, ok := ins.PushedType(m)
			if !ok {
				return nil
			}
			return t
		}
		depth = depth - pushes + pops
	}
	return nil
}
