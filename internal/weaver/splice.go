package weaver

import (
	"fmt"

	"github.com/typeweld/weld/internal/ir"
)

// The splicer merges the three special method bodies structurally.
// Naive concatenation of two initializer bodies would invoke the shared
// base initializer twice; trimming the clone's chained call guarantees
// exactly-once execution of the inheritance chain.
//
// Trimming runs at merge registration and fails fast on a malformed
// special method. The splice into the destination body is deferred to
// flush commit, so a failed flush never leaves the destination
// half-mutated.

// SpliceKind identifies which special method a plan belongs to.
type SpliceKind uint8

const (
	// SpliceInit merges instance initializers.
	SpliceInit SpliceKind = iota

	// SpliceClinit merges static initializers.
	SpliceClinit

	// SpliceFini merges finalizers.
	SpliceFini
)

// SplicePlan is the trimmed, validated clone of one special method,
// staged for splicing at flush commit.
//
// Method holds the full, untrimmed clone; payloadStart/payloadEnd
// delimit the instructions that survive trimming. Keeping the full
// clone lets install mode (destination has no counterpart) follow its
// own per-kind rule:
//   - init: payload plus the clone's trailing ret
//   - clinit: the full clone (only the trailing ret was trimmed)
//   - fini: the full clone, leave and trailing cleanup intact
type SplicePlan struct {
	Kind   SpliceKind
	Name   string
	Method *ir.MethodDef

	payloadStart int
	payloadEnd   int
}

// Payload returns the staged instructions that splice into an existing
// destination body.
func (p *SplicePlan) Payload() []*ir.Instruction {
	return p.Method.Body.Instructions[p.payloadStart:p.payloadEnd]
}

// TrimSpecial validates and trims a cloned special method, producing
// its splice plan. clone must be a fresh clone owned by the caller.
// typeName is the destination type, for error context only.
func TrimSpecial(typeName string, clone *ir.MethodDef) (*SplicePlan, error) {
	if clone == nil || !ir.IsSpecialName(clone.Name) {
		return nil, NewInvalidArgument("splice: not a special method")
	}
	if clone.Body == nil || len(clone.Body.Instructions) == 0 {
		return nil, NewStructuralViolation(typeName, clone.Name, "special method has no body")
	}
	code := clone.Body.Instructions
	plan := &SplicePlan{Name: clone.Name, Method: clone}

	switch clone.Name {
	case ir.InitName:
		plan.Kind = SpliceInit
		// The first call-shaped instruction is the chained base
		// initializer call; once merged it must not execute a second
		// time.
		callIdx := -1
		for i, ins := range code {
			if ins.Op == ir.OpCall || ins.Op == ir.OpCallvirt {
				callIdx = i
				break
			}
		}
		if callIdx < 0 {
			return nil, NewStructuralViolation(typeName, clone.Name, "initializer has no chained base call")
		}
		if code[len(code)-1].Op != ir.OpRet {
			return nil, NewStructuralViolation(typeName, clone.Name, "initializer has no trailing ret")
		}
		plan.payloadStart = callIdx + 1
		plan.payloadEnd = len(code) - 1

	case ir.ClinitName:
		plan.Kind = SpliceClinit
		if code[len(code)-1].Op != ir.OpRet {
			return nil, NewStructuralViolation(typeName, clone.Name, "static initializer has no trailing ret")
		}
		plan.payloadStart = 0
		plan.payloadEnd = len(code) - 1

	case ir.FiniName:
		plan.Kind = SpliceFini
		// User cleanup ends at the leave out of the protected region;
		// the inherited-cleanup tail after it must not be duplicated.
		leaveIdx := -1
		for i, ins := range code {
			if ins.Op == ir.OpLeave {
				leaveIdx = i
				break
			}
		}
		if leaveIdx < 0 {
			return nil, NewStructuralViolation(typeName, clone.Name, "finalizer has no leave")
		}
		plan.payloadStart = 0
		plan.payloadEnd = leaveIdx
	}
	return plan, nil
}

// installMethod builds the method a plan installs when the destination
// has no counterpart.
func (p *SplicePlan) installMethod() *ir.MethodDef {
	m := p.Method
	if p.Kind == SpliceInit {
		// Trimmed clone with only the trailing ret preserved: the
		// chained base call belongs to the source type's base, not the
		// destination's.
		code := m.Body.Instructions
		trimmed := make([]*ir.Instruction, 0, p.payloadEnd-p.payloadStart+1)
		trimmed = append(trimmed, code[p.payloadStart:p.payloadEnd]...)
		trimmed = append(trimmed, code[len(code)-1])
		m.Body.Instructions = trimmed
	}
	return m
}

// spliceInto merges the plan's payload into dest, an already-staged
// body copy. Payload labels are renumbered past dest's highest label;
// locals merge, MaxStack takes the max, InitLocals ORs. init/clinit
// payloads land immediately before dest's trailing ret, fini payloads
// at the beginning.
//
// destName/typeName provide error context. Returns
// StructuralAssumptionViolated when dest lacks its required trailing
// ret (init/clinit only).
func (p *SplicePlan) spliceInto(typeName string, dest *ir.MethodBody) error {
	if dest == nil || len(dest.Instructions) == 0 {
		return NewStructuralViolation(typeName, p.Name, "destination special method has no body")
	}
	payload := p.Payload()
	renumberLabels(payload, maxLabel(dest.Instructions))

	switch p.Kind {
	case SpliceInit, SpliceClinit:
		last := len(dest.Instructions) - 1
		if dest.Instructions[last].Op != ir.OpRet {
			return NewStructuralViolation(typeName, p.Name, "destination has no trailing ret")
		}
		merged := make([]*ir.Instruction, 0, len(dest.Instructions)+len(payload))
		merged = append(merged, dest.Instructions[:last]...)
		merged = append(merged, payload...)
		merged = append(merged, dest.Instructions[last])
		dest.Instructions = merged
	case SpliceFini:
		merged := make([]*ir.Instruction, 0, len(dest.Instructions)+len(payload))
		merged = append(merged, payload...)
		merged = append(merged, dest.Instructions...)
		dest.Instructions = merged
	}

	mergeLocals(dest, p.Method.Body.Locals)
	if p.Method.Body.MaxStack > dest.MaxStack {
		dest.MaxStack = p.Method.Body.MaxStack
	}
	dest.InitLocals = dest.InitLocals || p.Method.Body.InitLocals
	return nil
}

// mergeLocals appends incoming locals to dest, renaming on collision.
// Operands reference locals by pointer, so renaming the definition is
// safe; names only matter for the text form, which requires uniqueness
// within one body.
func mergeLocals(dest *ir.MethodBody, incoming []*ir.LocalDef) {
	taken := make(map[string]bool, len(dest.Locals)+len(incoming))
	for _, l := range dest.Locals {
		taken[l.Name] = true
	}
	for _, l := range incoming {
		if taken[l.Name] {
			base := l.Name
			for n := 2; ; n++ {
				renamed := fmt.Sprintf("%s$%d", base, n)
				if !taken[renamed] {
					l.Name = renamed
					break
				}
			}
		}
		taken[l.Name] = true
		dest.Locals = append(dest.Locals, l)
	}
}

// maxLabel returns the highest label used by code, scanning both label
// slots and branch operands.
func maxLabel(code []*ir.Instruction) int {
	max := 0
	for _, ins := range code {
		if ins.Label > max {
			max = ins.Label
		}
		if target, ok := ins.BranchTarget(); ok && target > max {
			max = target
		}
	}
	return max
}

// renumberLabels shifts every label and branch target in code by
// offset. Labels are body-scoped; shifting keeps the payload's internal
// branches intact while avoiding collision with the host body.
func renumberLabels(code []*ir.Instruction, offset int) {
	if offset == 0 {
		return
	}
	for _, ins := range code {
		if ins.Label > 0 {
			ins.Label += offset
		}
		if target, ok := ins.BranchTarget(); ok {
			ins.Operand = ir.ConstOperand{Const: ir.LabelConst(target + offset)}
		}
	}
}
