package assembler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/typeweld/weld/internal/ir"
)

// assembler carries the module being built through the recursive type
// parse.
type assembler struct {
	module *ir.Module
}

func (a *assembler) parseType(v cue.Value, path string) (*ir.TypeDef, error) {
	name, err := requiredString(v, path, "name")
	if err != nil {
		return nil, err
	}
	path = path + "." + name

	td := &ir.TypeDef{Name: name, Module: a.module}
	if td.Namespace, err = optionalString(v, "namespace"); err != nil {
		return nil, err
	}

	flags, err := stringList(v.LookupPath(cue.ParsePath("flags")))
	if err != nil {
		return nil, err
	}
	for _, fn := range flags {
		f, ok := ir.TypeFlagFromName(fn)
		if !ok {
			return nil, &AssembleError{Path: path + ".flags", Message: fmt.Sprintf("unknown type flag %q", fn), Pos: v.Pos()}
		}
		td.Flags |= f
	}

	if baseVal := v.LookupPath(cue.ParsePath("base")); baseVal.Exists() {
		if td.Base, err = parseRef(baseVal, path+".base"); err != nil {
			return nil, err
		}
	}

	ifaces, err := stringList(v.LookupPath(cue.ParsePath("interfaces")))
	if err != nil {
		return nil, err
	}
	for _, s := range ifaces {
		ref, err := ir.ParseTypeRef(s)
		if err != nil {
			return nil, &AssembleError{Path: path + ".interfaces", Message: err.Error(), Pos: v.Pos()}
		}
		td.Interfaces = append(td.Interfaces, &ir.InterfaceImpl{Iface: ref})
	}

	if td.Attributes, err = parseAttributes(v, path); err != nil {
		return nil, err
	}

	if fieldsVal := v.LookupPath(cue.ParsePath("fields")); fieldsVal.Exists() {
		iter, err := fieldsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			fd, err := parseField(iter.Value(), path+".fields")
			if err != nil {
				return nil, err
			}
			fd.Declaring = td
			td.Fields = append(td.Fields, fd)
		}
	}

	if methodsVal := v.LookupPath(cue.ParsePath("methods")); methodsVal.Exists() {
		iter, err := methodsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			md, err := parseMethod(iter.Value(), path+".methods")
			if err != nil {
				return nil, err
			}
			md.Declaring = td
			td.Methods = append(td.Methods, md)
		}
	}

	// Properties resolve their accessors against the methods above, so
	// they parse last among the members.
	if propsVal := v.LookupPath(cue.ParsePath("properties")); propsVal.Exists() {
		iter, err := propsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			pd, err := parseProperty(iter.Value(), td, path+".properties")
			if err != nil {
				return nil, err
			}
			pd.Declaring = td
			td.Properties = append(td.Properties, pd)
		}
	}

	if nestedVal := v.LookupPath(cue.ParsePath("nested")); nestedVal.Exists() {
		iter, err := nestedVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			child, err := a.parseType(iter.Value(), path+".nested")
			if err != nil {
				return nil, err
			}
			child.Parent = td
			td.Nested = append(td.Nested, child)
		}
	}

	return td, nil
}

func parseField(v cue.Value, path string) (*ir.FieldDef, error) {
	name, err := requiredString(v, path, "name")
	if err != nil {
		return nil, err
	}
	path = path + "." + name

	fd := &ir.FieldDef{Name: name}

	flags, err := stringList(v.LookupPath(cue.ParsePath("flags")))
	if err != nil {
		return nil, err
	}
	for _, fn := range flags {
		f, ok := ir.FieldFlagFromName(fn)
		if !ok {
			return nil, &AssembleError{Path: path + ".flags", Message: fmt.Sprintf("unknown field flag %q", fn), Pos: v.Pos()}
		}
		fd.Flags |= f
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return nil, &AssembleError{Path: path + ".type", Message: "field type is required", Pos: v.Pos()}
	}
	if fd.Type, err = parseRef(typeVal, path+".type"); err != nil {
		return nil, err
	}

	if constVal := v.LookupPath(cue.ParsePath("const")); constVal.Exists() {
		c, err := cueConstant(constVal, path+".const")
		if err != nil {
			return nil, err
		}
		fd.Const = &c
	}

	if fd.Attributes, err = parseAttributes(v, path); err != nil {
		return nil, err
	}
	return fd, nil
}

func parseMethod(v cue.Value, path string) (*ir.MethodDef, error) {
	name, err := requiredString(v, path, "name")
	if err != nil {
		return nil, err
	}
	path = path + "." + name

	md := &ir.MethodDef{Name: name}

	flags, err := stringList(v.LookupPath(cue.ParsePath("flags")))
	if err != nil {
		return nil, err
	}
	for _, fn := range flags {
		f, ok := ir.MethodFlagFromName(fn)
		if !ok {
			return nil, &AssembleError{Path: path + ".flags", Message: fmt.Sprintf("unknown method flag %q", fn), Pos: v.Pos()}
		}
		md.Flags |= f
	}

	implFlags, err := stringList(v.LookupPath(cue.ParsePath("implflags")))
	if err != nil {
		return nil, err
	}
	for _, fn := range implFlags {
		f, ok := ir.ImplFlagFromName(fn)
		if !ok {
			return nil, &AssembleError{Path: path + ".implflags", Message: fmt.Sprintf("unknown implementation flag %q", fn), Pos: v.Pos()}
		}
		md.ImplFlags |= f
	}

	if retVal := v.LookupPath(cue.ParsePath("returns")); retVal.Exists() {
		if md.Return, err = parseRef(retVal, path+".returns"); err != nil {
			return nil, err
		}
	} else {
		md.Return = ir.CoreRef("Void")
	}

	if paramsVal := v.LookupPath(cue.ParsePath("params")); paramsVal.Exists() {
		iter, err := paramsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			p, err := parseSlot(iter.Value(), path+".params")
			if err != nil {
				return nil, err
			}
			md.Params = append(md.Params, &ir.ParamDef{Name: p.name, Type: p.typ})
		}
	}

	generics, err := stringList(v.LookupPath(cue.ParsePath("generics")))
	if err != nil {
		return nil, err
	}
	for _, g := range generics {
		md.GenericParams = append(md.GenericParams, &ir.GenericParam{Name: g})
	}

	if md.Attributes, err = parseAttributes(v, path); err != nil {
		return nil, err
	}

	if bodyVal := v.LookupPath(cue.ParsePath("body")); bodyVal.Exists() {
		if err := parseBody(bodyVal, md, path+".body"); err != nil {
			return nil, err
		}
	}
	return md, nil
}

func parseBody(v cue.Value, md *ir.MethodDef, path string) error {
	maxStack, err := optionalInt(v, "maxstack")
	if err != nil {
		return err
	}
	initLocals, err := optionalBool(v, "initlocals")
	if err != nil {
		return err
	}
	md.Body = &ir.MethodBody{MaxStack: maxStack, InitLocals: initLocals}

	// Locals must be attached before instruction parsing: ldloc/stloc
	// operands resolve by local name.
	if localsVal := v.LookupPath(cue.ParsePath("locals")); localsVal.Exists() {
		iter, err := localsVal.List()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			l, err := parseSlot(iter.Value(), path+".locals")
			if err != nil {
				return err
			}
			md.Body.Locals = append(md.Body.Locals, &ir.LocalDef{Name: l.name, Type: l.typ})
		}
	}

	insVal := v.LookupPath(cue.ParsePath("instructions"))
	if !insVal.Exists() {
		return nil
	}
	iter, err := insVal.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		line, err := iter.Value().String()
		if err != nil {
			return formatCUEError(err)
		}
		ins, err := ir.ParseInstruction(line, md)
		if err != nil {
			return &AssembleError{Path: path, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		md.Body.Instructions = append(md.Body.Instructions, ins)
	}
	return nil
}

func parseProperty(v cue.Value, td *ir.TypeDef, path string) (*ir.PropertyDef, error) {
	name, err := requiredString(v, path, "name")
	if err != nil {
		return nil, err
	}
	path = path + "." + name

	pd := &ir.PropertyDef{Name: name}
	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return nil, &AssembleError{Path: path + ".type", Message: "property type is required", Pos: v.Pos()}
	}
	if pd.Type, err = parseRef(typeVal, path+".type"); err != nil {
		return nil, err
	}

	if pd.Getter, err = accessorRef(v, td, "getter", path); err != nil {
		return nil, err
	}
	if pd.Setter, err = accessorRef(v, td, "setter", path); err != nil {
		return nil, err
	}

	if pd.Attributes, err = parseAttributes(v, path); err != nil {
		return nil, err
	}
	return pd, nil
}

// accessorRef resolves a property accessor named by its method name on
// the declaring type.
func accessorRef(v cue.Value, td *ir.TypeDef, field, path string) (*ir.MethodRef, error) {
	name, err := optionalString(v, field)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}
	md := td.FindMethod(name)
	if md == nil {
		return nil, &AssembleError{
			Path:    path + "." + field,
			Message: fmt.Sprintf("accessor %q is not a method of %s", name, td.FullName()),
			Pos:     v.Pos(),
		}
	}
	return ir.RefToMethod(md), nil
}

func parseAttributes(v cue.Value, path string) ([]*ir.AttributeDef, error) {
	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return nil, nil
	}
	iter, err := attrsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []*ir.AttributeDef
	for iter.Next() {
		av := iter.Value()
		typeVal := av.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &AssembleError{Path: path + ".attributes", Message: "attribute type is required", Pos: av.Pos()}
		}
		tr, err := parseRef(typeVal, path+".attributes")
		if err != nil {
			return nil, err
		}
		attr := &ir.AttributeDef{Type: tr}
		if argsVal := av.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
			argIter, err := argsVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for argIter.Next() {
				c, err := cueConstant(argIter.Value(), path+".attributes.args")
				if err != nil {
					return nil, err
				}
				attr.Args = append(attr.Args, c)
			}
		}
		attr.Ctor = attrCtor(tr, attr.Args)
		out = append(out, attr)
	}
	return out, nil
}

// attrCtor synthesizes the initializer reference an attribute
// application names: instance, void return, one parameter per constant
// argument.
func attrCtor(t *ir.TypeRef, args []ir.Constant) *ir.MethodRef {
	ref := &ir.MethodRef{
		Declaring: t.Clone(),
		Name:      ir.InitName,
		HasThis:   true,
		Return:    ir.CoreRef("Void"),
	}
	for _, c := range args {
		ref.Params = append(ref.Params, constParamType(c))
	}
	return ref
}

func constParamType(c ir.Constant) *ir.TypeRef {
	switch c.Kind {
	case ir.ConstString:
		return ir.CoreRef("String")
	case ir.ConstBool:
		return ir.CoreRef("Bool")
	}
	return ir.CoreRef("Int32")
}

type slot struct {
	name string
	typ  *ir.TypeRef
}

// parseSlot reads a {name, type} pair (parameter or local).
func parseSlot(v cue.Value, path string) (slot, error) {
	name, err := requiredString(v, path, "name")
	if err != nil {
		return slot{}, err
	}
	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return slot{}, &AssembleError{Path: path + "." + name, Message: "type is required", Pos: v.Pos()}
	}
	typ, err := parseRef(typeVal, path+"."+name)
	if err != nil {
		return slot{}, err
	}
	return slot{name: name, typ: typ}, nil
}

func parseRef(v cue.Value, path string) (*ir.TypeRef, error) {
	s, err := v.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	r, err := ir.ParseTypeRef(s)
	if err != nil {
		return nil, &AssembleError{Path: path, Message: err.Error(), Pos: v.Pos()}
	}
	return r, nil
}

// cueConstant converts a concrete CUE scalar into an ir constant.
// Floats are not representable in the instruction set.
func cueConstant(v cue.Value, path string) (ir.Constant, error) {
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return ir.Constant{}, formatCUEError(err)
		}
		return ir.IntConst(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return ir.Constant{}, formatCUEError(err)
		}
		return ir.StringConst(s), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return ir.Constant{}, formatCUEError(err)
		}
		return ir.BoolConst(b), nil
	case cue.FloatKind, cue.NumberKind:
		return ir.Constant{}, &AssembleError{Path: path, Message: "float constants are not supported - use int", Pos: v.Pos()}
	}
	return ir.Constant{}, &AssembleError{Path: path, Message: fmt.Sprintf("unsupported constant kind %v", v.Kind()), Pos: v.Pos()}
}
