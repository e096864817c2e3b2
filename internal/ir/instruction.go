package ir

import "fmt"

// ConstKind identifies the payload of a Constant.
// NO float kind - floats are forbidden in the object model (they break
// canonical serialization and content addressing).
type ConstKind uint8

const (
	// ConstInt is an int64 payload.
	ConstInt ConstKind = iota

	// ConstString is a string payload.
	ConstString

	// ConstBool is a bool payload.
	ConstBool

	// ConstLabel is a branch target: the label of another instruction
	// in the same body.
	ConstLabel
)

// Constant is an immutable inline value. Constants are leaf values and
// may be shared between a member and its clone.
type Constant struct {
	Kind ConstKind `json:"kind"`
	Int  int64     `json:"int,omitempty"`
	Str  string    `json:"str,omitempty"`
	Bool bool      `json:"bool,omitempty"`
}

// IntConst builds an integer constant.
func IntConst(v int64) Constant { return Constant{Kind: ConstInt, Int: v} }

// StringConst builds a string constant.
func StringConst(v string) Constant { return Constant{Kind: ConstString, Str: v} }

// BoolConst builds a boolean constant.
func BoolConst(v bool) Constant { return Constant{Kind: ConstBool, Bool: v} }

// LabelConst builds a branch-target constant.
func LabelConst(label int) Constant { return Constant{Kind: ConstLabel, Int: int64(label)} }

// Opcode identifies one operation in a method body.
type Opcode uint8

const (
	OpNop Opcode = iota
	OpLdc
	OpLdnull
	OpLdthis
	OpLdarg
	OpStarg
	OpLdloc
	OpStloc
	OpLdfld
	OpStfld
	OpLdsfld
	OpStsfld
	OpNewobj
	OpCall
	OpCallvirt
	OpCalli
	OpRet
	OpBr
	OpBrtrue
	OpBrfalse
	OpLeave
	OpEndfinally
	OpCastclass
	OpIsinst
	OpPop
	OpDup
	OpAdd
	OpSub
	OpMul
)

// opcodeNames is the single source of truth for textual opcode names;
// String and OpcodeFromString both derive from it.
var opcodeNames = map[Opcode]string{
	OpNop:        "nop",
	OpLdc:        "ldc",
	OpLdnull:     "ldnull",
	OpLdthis:     "ldthis",
	OpLdarg:      "ldarg",
	OpStarg:      "starg",
	OpLdloc:      "ldloc",
	OpStloc:      "stloc",
	OpLdfld:      "ldfld",
	OpStfld:      "stfld",
	OpLdsfld:     "ldsfld",
	OpStsfld:     "stsfld",
	OpNewobj:     "newobj",
	OpCall:       "call",
	OpCallvirt:   "callvirt",
	OpCalli:      "calli",
	OpRet:        "ret",
	OpBr:         "br",
	OpBrtrue:     "brtrue",
	OpBrfalse:    "brfalse",
	OpLeave:      "leave",
	OpEndfinally: "endfinally",
	OpCastclass:  "castclass",
	OpIsinst:     "isinst",
	OpPop:        "pop",
	OpDup:        "dup",
	OpAdd:        "add",
	OpSub:        "sub",
	OpMul:        "mul",
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

// String returns the textual name of the opcode.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", uint8(op))
}

// OpcodeFromString parses a textual opcode name.
func OpcodeFromString(s string) (Opcode, bool) {
	op, ok := opcodesByName[s]
	return op, ok
}

// EndsRun reports whether the opcode terminates a straight-line run:
// control does not fall through to the next instruction unconditionally
// (or at all).
func (op Opcode) EndsRun() bool {
	switch op {
	case OpRet, OpBr, OpBrtrue, OpBrfalse, OpLeave, OpEndfinally:
		return true
	}
	return false
}

// IsCall reports whether the opcode invokes a method reference operand.
func (op Opcode) IsCall() bool {
	return op == OpCall || op == OpCallvirt || op == OpNewobj
}

// Instruction is one operation plus an optional operand. A Label of 0
// means unlabeled; branch instructions carry the target label as a
// ConstOperand of kind ConstLabel. Labels are body-scoped.
type Instruction struct {
	Label   int     `json:"label,omitempty"`
	Op      Opcode  `json:"op"`
	Operand Operand `json:"-"`
}

// Operand is the sealed closed variant set of instruction operands.
// Exactly ParamOperand, LocalOperand, TypeOperand, FieldOperand,
// MethodOperand, CallSiteOperand, and ConstOperand implement it; nil
// means no operand. Every pass that treats operands differently by kind
// must switch over all seven variants and treat an unknown variant as a
// hard error, so that adding a kind is a compile-surface change.
type Operand interface {
	operand() // sealed
}

// ParamOperand references a parameter of the containing method by
// pointer identity.
type ParamOperand struct{ Param *ParamDef }

func (ParamOperand) operand() {}

// LocalOperand references a local of the containing body by pointer
// identity.
type LocalOperand struct{ Local *LocalDef }

func (LocalOperand) operand() {}

// TypeOperand carries a type reference (castclass, isinst).
type TypeOperand struct{ Type *TypeRef }

func (TypeOperand) operand() {}

// FieldOperand carries a field reference (ldfld, stfld, ldsfld, stsfld).
type FieldOperand struct{ Field *FieldRef }

func (FieldOperand) operand() {}

// MethodOperand carries a method reference (call, callvirt, newobj).
type MethodOperand struct{ Method *MethodRef }

func (MethodOperand) operand() {}

// CallSiteOperand carries a standalone signature (calli).
type CallSiteOperand struct{ Site *CallSite }

func (CallSiteOperand) operand() {}

// ConstOperand carries an inline constant (ldc, branch targets).
type ConstOperand struct{ Const Constant }

func (ConstOperand) operand() {}

// BranchTarget returns the target label of a branch/leave instruction.
func (ins *Instruction) BranchTarget() (int, bool) {
	switch ins.Op {
	case OpBr, OpBrtrue, OpBrfalse, OpLeave:
		if c, ok := ins.Operand.(ConstOperand); ok && c.Const.Kind == ConstLabel {
			return int(c.Const.Int), true
		}
	}
	return 0, false
}

// StackEffect returns how many values the instruction pops and pushes.
// For call-shaped opcodes the effect depends on the operand signature.
// ok is false when the operand shape does not permit a static answer.
func (ins *Instruction) StackEffect() (pops, pushes int, ok bool) {
	switch ins.Op {
	case OpNop:
		return 0, 0, true
	case OpLdc, OpLdnull, OpLdthis, OpLdarg, OpLdloc, OpLdsfld:
		return 0, 1, true
	case OpStarg, OpStloc, OpStsfld, OpPop:
		return 1, 0, true
	case OpLdfld, OpCastclass, OpIsinst:
		return 1, 1, true
	case OpStfld:
		return 2, 0, true
	case OpDup:
		return 1, 2, true
	case OpAdd, OpSub, OpMul:
		return 2, 1, true
	case OpNewobj:
		m, okOp := ins.Operand.(MethodOperand)
		if !okOp || m.Method == nil {
			return 0, 0, false
		}
		return len(m.Method.Params), 1, true
	case OpCall, OpCallvirt:
		m, okOp := ins.Operand.(MethodOperand)
		if !okOp || m.Method == nil {
			return 0, 0, false
		}
		pops = len(m.Method.Params)
		if m.Method.HasThis {
			pops++
		}
		if m.Method.Return != nil && !m.Method.Return.IsVoid() {
			pushes = 1
		}
		return pops, pushes, true
	case OpCalli:
		s, okOp := ins.Operand.(CallSiteOperand)
		if !okOp || s.Site == nil {
			return 0, 0, false
		}
		pops = len(s.Site.Params) + 1
		if s.Site.Return != nil && !s.Site.Return.IsVoid() {
			pushes = 1
		}
		return pops, pushes, true
	case OpRet:
		// Run terminator; a precise pop count needs the method return
		// type, which callers that care already treat as a boundary.
		return 0, 0, true
	case OpBr, OpLeave, OpEndfinally:
		return 0, 0, true
	case OpBrtrue, OpBrfalse:
		return 1, 0, true
	}
	return 0, 0, false
}

// PushedType returns the static type of the value the instruction
// pushes, when it pushes exactly one value of statically known type.
// m is the containing method (needed for ldthis).
func (ins *Instruction) PushedType(m *MethodDef) (*TypeRef, bool) {
	switch ins.Op {
	case OpLdc:
		c, ok := ins.Operand.(ConstOperand)
		if !ok {
			return nil, false
		}
		switch c.Const.Kind {
		case ConstInt:
			return CoreRef("Int32"), true
		case ConstString:
			return CoreRef("String"), true
		case ConstBool:
			return CoreRef("Bool"), true
		}
		return nil, false
	case OpLdthis:
		if m == nil || m.Declaring == nil {
			return nil, false
		}
		return RefTo(m.Declaring), true
	case OpLdarg:
		p, ok := ins.Operand.(ParamOperand)
		if !ok || p.Param == nil {
			return nil, false
		}
		return p.Param.Type, true
	case OpLdloc:
		l, ok := ins.Operand.(LocalOperand)
		if !ok || l.Local == nil {
			return nil, false
		}
		return l.Local.Type, true
	case OpLdfld, OpLdsfld:
		f, ok := ins.Operand.(FieldOperand)
		if !ok || f.Field == nil {
			return nil, false
		}
		return f.Field.Type, true
	case OpNewobj:
		mo, ok := ins.Operand.(MethodOperand)
		if !ok || mo.Method == nil {
			return nil, false
		}
		return mo.Method.Declaring, true
	case OpCall, OpCallvirt:
		mo, ok := ins.Operand.(MethodOperand)
		if !ok || mo.Method == nil || mo.Method.Return == nil || mo.Method.Return.IsVoid() {
			return nil, false
		}
		return mo.Method.Return, true
	case OpCalli:
		s, ok := ins.Operand.(CallSiteOperand)
		if !ok || s.Site == nil || s.Site.Return == nil || s.Site.Return.IsVoid() {
			return nil, false
		}
		return s.Site.Return, true
	case OpCastclass, OpIsinst:
		t, ok := ins.Operand.(TypeOperand)
		if !ok || t.Type == nil {
			return nil, false
		}
		return t.Type, true
	case OpAdd, OpSub, OpMul:
		return CoreRef("Int32"), true
	}
	// ldnull and dup push values whose static type is not locally known.
	return nil, false
}
