package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Text forms. These are the single human-readable grammar for
// references, constants, and instructions, shared by the assembler
// (source syntax), the store (persisted bodies), and the dumper:
//
//	type ref:   module/Name  or  module/Namespace.Name
//	field ref:  <type> <declaring>::<name>
//	method ref: [instance ]<return> <declaring>::<name>[`N](<p1>,<p2>)
//	call site:  <return>(<p1>,<p2>)
//	constant:   42  "text"  true  false  L3
//	line:       [Ln:] <opcode> [<operand>]
//
// ldarg/starg operands are parameter names; ldloc/stloc operands are
// local names. Both resolve against the containing method, so parameter
// and local names must be unique within one method.

// FormatTypeRef renders module/Namespace.Name.
func FormatTypeRef(r *TypeRef) string {
	if r == nil {
		return "<nil>"
	}
	return r.Module + "/" + r.FullName()
}

// ParseTypeRef parses module/Namespace.Name. The namespace may be
// empty; the last dot separates namespace from name.
func ParseTypeRef(s string) (*TypeRef, error) {
	s = strings.TrimSpace(s)
	module, rest, ok := strings.Cut(s, "/")
	if !ok || module == "" || rest == "" {
		return nil, fmt.Errorf("parse type ref %q: want module/name", s)
	}
	namespace := ""
	name := rest
	if i := strings.LastIndex(rest, "."); i >= 0 {
		namespace, name = rest[:i], rest[i+1:]
		if namespace == "" || name == "" {
			return nil, fmt.Errorf("parse type ref %q: empty namespace or name", s)
		}
	}
	return &TypeRef{Module: module, Namespace: namespace, Name: name}, nil
}

// FormatFieldRef renders "<type> <declaring>::<name>". A ref whose
// field type has not been resolved yet renders in the short form
// "<declaring>::<name>".
func FormatFieldRef(r *FieldRef) string {
	if r == nil {
		return "<nil>"
	}
	if r.Type == nil {
		return FormatTypeRef(r.Declaring) + "::" + r.Name
	}
	return FormatTypeRef(r.Type) + " " + FormatTypeRef(r.Declaring) + "::" + r.Name
}

// ParseFieldRef parses "<type> <declaring>::<name>", or the short form
// "<declaring>::<name>" with the field type left nil. Short-form refs
// must be completed by binding against a resolvable definition before
// anything inspects the field type.
func ParseFieldRef(s string) (*FieldRef, error) {
	s = strings.TrimSpace(s)
	var typ *TypeRef
	rest := s
	if typText, after, ok := strings.Cut(s, " "); ok {
		parsed, err := ParseTypeRef(typText)
		if err != nil {
			return nil, fmt.Errorf("parse field ref %q: %w", s, err)
		}
		typ = parsed
		rest = strings.TrimSpace(after)
	}
	declText, name, ok := strings.Cut(rest, "::")
	if !ok || name == "" {
		return nil, fmt.Errorf("parse field ref %q: missing ::name", s)
	}
	decl, err := ParseTypeRef(declText)
	if err != nil {
		return nil, fmt.Errorf("parse field ref %q: %w", s, err)
	}
	return &FieldRef{Declaring: decl, Name: name, Type: typ}, nil
}

// FormatMethodRef renders
// "[instance ]<return> <declaring>::<name>[`N](<p1>,<p2>)".
func FormatMethodRef(r *MethodRef) string {
	if r == nil {
		return "<nil>"
	}
	var sb strings.Builder
	if r.HasThis {
		sb.WriteString("instance ")
	}
	sb.WriteString(FormatTypeRef(r.Return))
	sb.WriteByte(' ')
	sb.WriteString(FormatTypeRef(r.Declaring))
	sb.WriteString("::")
	sb.WriteString(r.Name)
	if r.GenericArity > 0 {
		fmt.Fprintf(&sb, "`%d", r.GenericArity)
	}
	sb.WriteByte('(')
	for i, p := range r.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(FormatTypeRef(p))
	}
	sb.WriteByte(')')
	return sb.String()
}

// ParseMethodRef parses the method ref form produced by FormatMethodRef.
func ParseMethodRef(s string) (*MethodRef, error) {
	orig := s
	s = strings.TrimSpace(s)
	hasThis := false
	if rest, ok := strings.CutPrefix(s, "instance "); ok {
		hasThis = true
		s = strings.TrimSpace(rest)
	}
	retText, rest, ok := strings.Cut(s, " ")
	if !ok {
		return nil, fmt.Errorf("parse method ref %q: want <return> <declaring>::<name>(...)", orig)
	}
	ret, err := ParseTypeRef(retText)
	if err != nil {
		return nil, fmt.Errorf("parse method ref %q: %w", orig, err)
	}
	rest = strings.TrimSpace(rest)
	declText, sig, ok := strings.Cut(rest, "::")
	if !ok {
		return nil, fmt.Errorf("parse method ref %q: missing ::", orig)
	}
	decl, err := ParseTypeRef(declText)
	if err != nil {
		return nil, fmt.Errorf("parse method ref %q: %w", orig, err)
	}
	open := strings.Index(sig, "(")
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return nil, fmt.Errorf("parse method ref %q: missing parameter list", orig)
	}
	name := sig[:open]
	arity := 0
	if tick := strings.LastIndex(name, "`"); tick >= 0 {
		n, err := strconv.Atoi(name[tick+1:])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("parse method ref %q: bad generic arity %q", orig, name[tick+1:])
		}
		arity = n
		name = name[:tick]
	}
	if name == "" {
		return nil, fmt.Errorf("parse method ref %q: empty method name", orig)
	}
	params, err := parseParamTypes(sig[open+1 : len(sig)-1])
	if err != nil {
		return nil, fmt.Errorf("parse method ref %q: %w", orig, err)
	}
	return &MethodRef{
		Declaring:    decl,
		Name:         name,
		HasThis:      hasThis,
		GenericArity: arity,
		Return:       ret,
		Params:       params,
	}, nil
}

// FormatCallSite renders "<return>(<p1>,<p2>)".
func FormatCallSite(c *CallSite) string {
	if c == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString(FormatTypeRef(c.Return))
	sb.WriteByte('(')
	for i, p := range c.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(FormatTypeRef(p))
	}
	sb.WriteByte(')')
	return sb.String()
}

// ParseCallSite parses "<return>(<p1>,<p2>)".
func ParseCallSite(s string) (*CallSite, error) {
	orig := s
	s = strings.TrimSpace(s)
	open := strings.Index(s, "(")
	if open < 0 || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("parse call site %q: want <return>(<params>)", orig)
	}
	ret, err := ParseTypeRef(s[:open])
	if err != nil {
		return nil, fmt.Errorf("parse call site %q: %w", orig, err)
	}
	params, err := parseParamTypes(s[open+1 : len(s)-1])
	if err != nil {
		return nil, fmt.Errorf("parse call site %q: %w", orig, err)
	}
	return &CallSite{Return: ret, Params: params}, nil
}

func parseParamTypes(s string) ([]*TypeRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]*TypeRef, len(parts))
	for i, p := range parts {
		r, err := ParseTypeRef(p)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// FormatConstant renders a constant in its literal form. Strings use Go
// quoting; labels render as Ln.
func FormatConstant(c Constant) string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	case ConstLabel:
		return fmt.Sprintf("L%d", c.Int)
	}
	return fmt.Sprintf("const(kind=%d)", c.Kind)
}

// ParseConstant parses an int, quoted string, bool, or Ln label.
func ParseConstant(s string) (Constant, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "true":
		return BoolConst(true), nil
	case s == "false":
		return BoolConst(false), nil
	case strings.HasPrefix(s, `"`):
		str, err := strconv.Unquote(s)
		if err != nil {
			return Constant{}, fmt.Errorf("parse constant %q: %w", s, err)
		}
		return StringConst(str), nil
	case len(s) > 1 && s[0] == 'L':
		if label, err := strconv.Atoi(s[1:]); err == nil {
			if label <= 0 {
				return Constant{}, fmt.Errorf("parse constant %q: labels start at L1", s)
			}
			return LabelConst(label), nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Constant{}, fmt.Errorf("parse constant %q: not an int, string, bool, or label", s)
	}
	return IntConst(n), nil
}

// FormatInstruction renders "[Ln:] <opcode> [<operand>]".
func FormatInstruction(ins *Instruction) string {
	var sb strings.Builder
	if ins.Label > 0 {
		fmt.Fprintf(&sb, "L%d: ", ins.Label)
	}
	sb.WriteString(ins.Op.String())
	if text := formatOperand(ins.Operand); text != "" {
		sb.WriteByte(' ')
		sb.WriteString(text)
	}
	return sb.String()
}

func formatOperand(op Operand) string {
	switch o := op.(type) {
	case nil:
		return ""
	case ParamOperand:
		return o.Param.Name
	case LocalOperand:
		return o.Local.Name
	case TypeOperand:
		return FormatTypeRef(o.Type)
	case FieldOperand:
		return FormatFieldRef(o.Field)
	case MethodOperand:
		return FormatMethodRef(o.Method)
	case CallSiteOperand:
		return FormatCallSite(o.Site)
	case ConstOperand:
		return FormatConstant(o.Const)
	}
	return fmt.Sprintf("operand(%T)", op)
}

// ParseInstruction parses one instruction line. The containing method m
// supplies the parameters and locals that ldarg/starg and ldloc/stloc
// operands resolve against; it may be nil only for lines that use
// neither.
func ParseInstruction(line string, m *MethodDef) (*Instruction, error) {
	orig := line
	line = strings.TrimSpace(line)
	ins := &Instruction{}

	// Optional "Ln:" label prefix.
	if head, rest, ok := strings.Cut(line, " "); ok || strings.HasSuffix(line, ":") {
		if !ok {
			head, rest = line, ""
		}
		if strings.HasSuffix(head, ":") {
			label, err := parseLabel(strings.TrimSuffix(head, ":"))
			if err != nil {
				return nil, fmt.Errorf("parse instruction %q: %w", orig, err)
			}
			ins.Label = label
			line = strings.TrimSpace(rest)
		}
	}

	opText, operandText, _ := strings.Cut(line, " ")
	op, ok := OpcodeFromString(opText)
	if !ok {
		return nil, fmt.Errorf("parse instruction %q: unknown opcode %q", orig, opText)
	}
	ins.Op = op
	operandText = strings.TrimSpace(operandText)

	operand, err := parseOperand(op, operandText, m)
	if err != nil {
		return nil, fmt.Errorf("parse instruction %q: %w", orig, err)
	}
	ins.Operand = operand
	return ins, nil
}

func parseLabel(s string) (int, error) {
	if len(s) < 2 || s[0] != 'L' {
		return 0, fmt.Errorf("bad label %q: want Ln", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad label %q: want positive Ln", s)
	}
	return n, nil
}

func parseOperand(op Opcode, text string, m *MethodDef) (Operand, error) {
	wantNone := func() (Operand, error) {
		if text != "" {
			return nil, fmt.Errorf("opcode %s takes no operand, got %q", op, text)
		}
		return nil, nil
	}
	switch op {
	case OpNop, OpLdnull, OpLdthis, OpRet, OpEndfinally, OpPop, OpDup, OpAdd, OpSub, OpMul:
		return wantNone()
	case OpLdc:
		c, err := ParseConstant(text)
		if err != nil {
			return nil, err
		}
		if c.Kind == ConstLabel {
			return nil, fmt.Errorf("ldc cannot load a label")
		}
		return ConstOperand{Const: c}, nil
	case OpLdarg, OpStarg:
		if m == nil {
			return nil, fmt.Errorf("opcode %s needs a containing method", op)
		}
		for _, p := range m.Params {
			if p.Name == text {
				return ParamOperand{Param: p}, nil
			}
		}
		return nil, fmt.Errorf("unknown parameter %q", text)
	case OpLdloc, OpStloc:
		if m == nil || m.Body == nil {
			return nil, fmt.Errorf("opcode %s needs a containing body", op)
		}
		for _, l := range m.Body.Locals {
			if l.Name == text {
				return LocalOperand{Local: l}, nil
			}
		}
		return nil, fmt.Errorf("unknown local %q", text)
	case OpLdfld, OpStfld, OpLdsfld, OpStsfld:
		f, err := ParseFieldRef(text)
		if err != nil {
			return nil, err
		}
		return FieldOperand{Field: f}, nil
	case OpNewobj, OpCall, OpCallvirt:
		r, err := ParseMethodRef(text)
		if err != nil {
			return nil, err
		}
		return MethodOperand{Method: r}, nil
	case OpCalli:
		c, err := ParseCallSite(text)
		if err != nil {
			return nil, err
		}
		return CallSiteOperand{Site: c}, nil
	case OpBr, OpBrtrue, OpBrfalse, OpLeave:
		label, err := parseLabel(text)
		if err != nil {
			return nil, err
		}
		return ConstOperand{Const: LabelConst(label)}, nil
	case OpCastclass, OpIsinst:
		r, err := ParseTypeRef(text)
		if err != nil {
			return nil, err
		}
		return TypeOperand{Type: r}, nil
	}
	return nil, fmt.Errorf("opcode %s has no operand grammar", op)
}
