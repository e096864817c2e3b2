package ir

import (
	"fmt"
	"strings"
)

// Dump renders the module as canonical text disassembly. The output is
// deterministic for a given module graph (declaration order throughout)
// and is the input to Module.Fingerprint, so any change to this format
// changes every stored fingerprint.
func Dump(m *Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s %s\n", m.Name, m.Version)
	for _, imp := range m.Refs.Imports() {
		fmt.Fprintf(&sb, "import %s\n", imp)
	}
	for _, t := range m.Types {
		sb.WriteByte('\n')
		dumpType(&sb, t, 0)
	}
	return sb.String()
}

// DumpType renders a single type block, used by the dump command's
// --type filter.
func DumpType(t *TypeDef) string {
	var sb strings.Builder
	dumpType(&sb, t, 0)
	return sb.String()
}

func dumpType(sb *strings.Builder, t *TypeDef, depth int) {
	ind := strings.Repeat("  ", depth)
	sb.WriteString(ind)
	sb.WriteString("type ")
	if t.Module != nil {
		sb.WriteString(t.Module.Name)
		sb.WriteByte('/')
	}
	sb.WriteString(t.FullName())
	for _, name := range t.Flags.Names() {
		sb.WriteByte(' ')
		sb.WriteString(name)
	}
	if t.Base != nil {
		sb.WriteString(" base ")
		sb.WriteString(FormatTypeRef(t.Base))
	}
	sb.WriteByte('\n')

	memberInd := ind + "  "
	for _, impl := range t.Interfaces {
		fmt.Fprintf(sb, "%simplements %s\n", memberInd, FormatTypeRef(impl.Iface))
	}
	for _, attr := range t.Attributes {
		dumpAttribute(sb, memberInd, attr)
	}
	for _, f := range t.Fields {
		dumpField(sb, memberInd, f)
	}
	for _, p := range t.Properties {
		dumpProperty(sb, memberInd, p)
	}
	for _, m := range t.Methods {
		dumpMethod(sb, memberInd, m)
	}
	for _, nested := range t.Nested {
		dumpType(sb, nested, depth+1)
	}
}

func dumpAttribute(sb *strings.Builder, ind string, attr *AttributeDef) {
	sb.WriteString(ind)
	sb.WriteString("attribute ")
	sb.WriteString(FormatTypeRef(attr.Type))
	sb.WriteByte('(')
	for i, arg := range attr.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatConstant(arg))
	}
	sb.WriteString(")\n")
}

func dumpField(sb *strings.Builder, ind string, f *FieldDef) {
	sb.WriteString(ind)
	fmt.Fprintf(sb, "field %s %s", f.Name, FormatTypeRef(f.Type))
	for _, name := range f.Flags.Names() {
		sb.WriteByte(' ')
		sb.WriteString(name)
	}
	if f.Const != nil {
		fmt.Fprintf(sb, " = %s", FormatConstant(*f.Const))
	}
	sb.WriteByte('\n')
	for _, attr := range f.Attributes {
		dumpAttribute(sb, ind+"  ", attr)
	}
}

func dumpProperty(sb *strings.Builder, ind string, p *PropertyDef) {
	sb.WriteString(ind)
	fmt.Fprintf(sb, "property %s %s\n", p.Name, FormatTypeRef(p.Type))
	if p.Getter != nil {
		fmt.Fprintf(sb, "%s  get %s\n", ind, FormatMethodRef(p.Getter))
	}
	if p.Setter != nil {
		fmt.Fprintf(sb, "%s  set %s\n", ind, FormatMethodRef(p.Setter))
	}
	for _, attr := range p.Attributes {
		dumpAttribute(sb, ind+"  ", attr)
	}
}

func dumpMethod(sb *strings.Builder, ind string, m *MethodDef) {
	sb.WriteString(ind)
	sb.WriteString("method ")
	sb.WriteString(m.Name)
	if n := len(m.GenericParams); n > 0 {
		fmt.Fprintf(sb, "`%d", n)
	}
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s %s", p.Name, FormatTypeRef(p.Type))
	}
	sb.WriteByte(')')
	fmt.Fprintf(sb, " returns %s", FormatTypeRef(m.Return))
	for _, name := range m.Flags.Names() {
		sb.WriteByte(' ')
		sb.WriteString(name)
	}
	for _, name := range m.ImplFlags.Names() {
		sb.WriteByte(' ')
		sb.WriteString(name)
	}
	sb.WriteByte('\n')

	bodyInd := ind + "  "
	for _, attr := range m.Attributes {
		dumpAttribute(sb, bodyInd, attr)
	}
	for _, ov := range m.Overrides {
		fmt.Fprintf(sb, "%soverrides %s\n", bodyInd, FormatMethodRef(ov))
	}
	if m.Body == nil {
		return
	}
	fmt.Fprintf(sb, "%smaxstack %d\n", bodyInd, m.Body.MaxStack)
	if m.Body.InitLocals {
		fmt.Fprintf(sb, "%sinitlocals\n", bodyInd)
	}
	for _, l := range m.Body.Locals {
		fmt.Fprintf(sb, "%slocal %s %s\n", bodyInd, l.Name, FormatTypeRef(l.Type))
	}
	fmt.Fprintf(sb, "%scode\n", bodyInd)
	for _, ins := range m.Body.Instructions {
		fmt.Fprintf(sb, "%s  %s\n", bodyInd, FormatInstruction(ins))
	}
}
