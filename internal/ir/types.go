package ir

// TypeFlags is a bitmask of type-level modifiers.
type TypeFlags uint32

const (
	// TypePublic marks a type visible outside its module.
	TypePublic TypeFlags = 1 << iota

	// TypeAbstract marks a type that cannot be instantiated directly.
	TypeAbstract

	// TypeSealed marks a type that cannot be derived from.
	TypeSealed

	// TypeInterface marks an interface definition.
	TypeInterface
)

// Has reports whether all bits of flag are set.
func (f TypeFlags) Has(flag TypeFlags) bool { return f&flag == flag }

// typeFlagNames lists flags in canonical render order.
var typeFlagNames = []struct {
	flag TypeFlags
	name string
}{
	{TypePublic, "public"},
	{TypeAbstract, "abstract"},
	{TypeSealed, "sealed"},
	{TypeInterface, "interface"},
}

// Names returns the set flag names in canonical order.
func (f TypeFlags) Names() []string {
	var out []string
	for _, e := range typeFlagNames {
		if f.Has(e.flag) {
			out = append(out, e.name)
		}
	}
	return out
}

// TypeFlagFromName parses a single textual type flag.
func TypeFlagFromName(name string) (TypeFlags, bool) {
	for _, e := range typeFlagNames {
		if e.name == name {
			return e.flag, true
		}
	}
	return 0, false
}

// FieldFlags is a bitmask of field-level modifiers.
type FieldFlags uint32

const (
	// FieldPublic marks a field visible outside its declaring type.
	FieldPublic FieldFlags = 1 << iota

	// FieldStatic marks a per-type (rather than per-instance) field.
	FieldStatic

	// FieldLiteral marks a compile-time constant field; Const must be set.
	FieldLiteral
)

// Has reports whether all bits of flag are set.
func (f FieldFlags) Has(flag FieldFlags) bool { return f&flag == flag }

var fieldFlagNames = []struct {
	flag FieldFlags
	name string
}{
	{FieldPublic, "public"},
	{FieldStatic, "static"},
	{FieldLiteral, "literal"},
}

// Names returns the set flag names in canonical order.
func (f FieldFlags) Names() []string {
	var out []string
	for _, e := range fieldFlagNames {
		if f.Has(e.flag) {
			out = append(out, e.name)
		}
	}
	return out
}

// FieldFlagFromName parses a single textual field flag.
func FieldFlagFromName(name string) (FieldFlags, bool) {
	for _, e := range fieldFlagNames {
		if e.name == name {
			return e.flag, true
		}
	}
	return 0, false
}

// MethodFlags is a bitmask of method-level modifiers.
type MethodFlags uint32

const (
	// MethodPublic marks a method visible outside its declaring type.
	MethodPublic MethodFlags = 1 << iota

	// MethodStatic marks a method with no receiver. A method without
	// MethodStatic is an instance method (its references carry HasThis).
	MethodStatic

	// MethodVirtual marks a method dispatched through the base chain.
	MethodVirtual

	// MethodFinal marks a virtual method that cannot be overridden further.
	MethodFinal
)

// Has reports whether all bits of flag are set.
func (f MethodFlags) Has(flag MethodFlags) bool { return f&flag == flag }

var methodFlagNames = []struct {
	flag MethodFlags
	name string
}{
	{MethodPublic, "public"},
	{MethodStatic, "static"},
	{MethodVirtual, "virtual"},
	{MethodFinal, "final"},
}

// Names returns the set flag names in canonical order.
func (f MethodFlags) Names() []string {
	var out []string
	for _, e := range methodFlagNames {
		if f.Has(e.flag) {
			out = append(out, e.name)
		}
	}
	return out
}

// MethodFlagFromName parses a single textual method flag.
func MethodFlagFromName(name string) (MethodFlags, bool) {
	for _, e := range methodFlagNames {
		if e.name == name {
			return e.flag, true
		}
	}
	return 0, false
}

// MethodImplFlags is a bitmask of implementation-level modifiers.
// These travel with a method's executable content: when two duplicate
// methods swap bodies, their implementation flags swap too.
type MethodImplFlags uint32

const (
	// ImplSynchronized marks a body that runs under the declaring
	// object's monitor.
	ImplSynchronized MethodImplFlags = 1 << iota

	// ImplNoInline marks a body the downstream compiler must not inline.
	ImplNoInline
)

// Has reports whether all bits of flag are set.
func (f MethodImplFlags) Has(flag MethodImplFlags) bool { return f&flag == flag }

var implFlagNames = []struct {
	flag MethodImplFlags
	name string
}{
	{ImplSynchronized, "synchronized"},
	{ImplNoInline, "noinline"},
}

// Names returns the set flag names in canonical order.
func (f MethodImplFlags) Names() []string {
	var out []string
	for _, e := range implFlagNames {
		if f.Has(e.flag) {
			out = append(out, e.name)
		}
	}
	return out
}

// ImplFlagFromName parses a single textual implementation flag.
func ImplFlagFromName(name string) (MethodImplFlags, bool) {
	for _, e := range implFlagNames {
		if e.name == name {
			return e.flag, true
		}
	}
	return 0, false
}

// Special method names. Bodies with these names are merged structurally
// (spliced into an existing counterpart) rather than copied verbatim.
const (
	// InitName is the instance initializer (constructor).
	InitName = "<init>"

	// ClinitName is the static (one-time, per-type) initializer.
	ClinitName = "<clinit>"

	// FiniName is the finalizer.
	FiniName = "<fini>"
)

// IsSpecialName reports whether name is one of the three structurally
// merged method names.
func IsSpecialName(name string) bool {
	return name == InitName || name == ClinitName || name == FiniName
}

// TypeDef is a type definition owned by exactly one Module.
//
// Member collections are owned: mutating a TypeDef's fields, properties,
// or methods never affects any other TypeDef. The Module and Parent
// backrefs are maintained by whoever attaches the type (assembler, store
// reader, or a weave commit) and are not serialized.
type TypeDef struct {
	Namespace  string           `json:"namespace,omitempty"`
	Name       string           `json:"name"`
	Flags      TypeFlags        `json:"flags,omitempty"`
	Base       *TypeRef         `json:"base,omitempty"`
	Fields     []*FieldDef      `json:"fields,omitempty"`
	Properties []*PropertyDef   `json:"properties,omitempty"`
	Methods    []*MethodDef     `json:"methods,omitempty"`
	Nested     []*TypeDef       `json:"nested,omitempty"`
	Interfaces []*InterfaceImpl `json:"interfaces,omitempty"`
	Attributes []*AttributeDef  `json:"attributes,omitempty"`

	// Module is the owning module. Nil only while detached (mid-build).
	Module *Module `json:"-"`

	// Parent is the declaring type when this definition is nested.
	Parent *TypeDef `json:"-"`
}

// FullName returns "Namespace.Name", or just Name when the namespace
// is empty. Nested types use their own namespace/name; the declaring
// chain is reachable through Parent.
func (t *TypeDef) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// FieldDef is a field owned by exactly one TypeDef.
type FieldDef struct {
	Name       string          `json:"name"`
	Flags      FieldFlags      `json:"flags,omitempty"`
	Type       *TypeRef        `json:"type"`
	Const      *Constant       `json:"const,omitempty"`
	Attributes []*AttributeDef `json:"attributes,omitempty"`

	Declaring *TypeDef `json:"-"`
}

// PropertyDef is a property owned by exactly one TypeDef.
//
// Getter and Setter are references, not ownership: the accessor methods
// themselves live in the declaring type's method collection. Distinct
// properties may legally share one physical accessor.
type PropertyDef struct {
	Name       string          `json:"name"`
	Type       *TypeRef        `json:"type"`
	Getter     *MethodRef      `json:"getter,omitempty"`
	Setter     *MethodRef      `json:"setter,omitempty"`
	Attributes []*AttributeDef `json:"attributes,omitempty"`

	Declaring *TypeDef `json:"-"`
}

// MethodDef is a method owned by exactly one TypeDef.
type MethodDef struct {
	Name          string          `json:"name"`
	Flags         MethodFlags     `json:"flags,omitempty"`
	ImplFlags     MethodImplFlags `json:"implflags,omitempty"`
	Return        *TypeRef        `json:"return"`
	Params        []*ParamDef     `json:"params,omitempty"`
	GenericParams []*GenericParam `json:"generics,omitempty"`
	Overrides     []*MethodRef    `json:"overrides,omitempty"`
	Attributes    []*AttributeDef `json:"attributes,omitempty"`

	// Body is nil for abstract methods.
	Body *MethodBody `json:"body,omitempty"`

	Declaring *TypeDef `json:"-"`
}

// HasThis reports whether the method takes an implicit receiver.
func (m *MethodDef) HasThis() bool { return !m.Flags.Has(MethodStatic) }

// ParamDef is a parameter owned by exactly one MethodDef. Instruction
// operands reference parameters by pointer identity, so a cloned method
// gets cloned parameters and remapped operands.
type ParamDef struct {
	Name string   `json:"name"`
	Type *TypeRef `json:"type"`
}

// LocalDef is a body-scoped local variable. Like parameters, operands
// reference locals by pointer identity.
type LocalDef struct {
	Name string   `json:"name"`
	Type *TypeRef `json:"type"`
}

// GenericParam is a generic parameter declaration on a method.
type GenericParam struct {
	Name string `json:"name"`
}

// AttributeDef is a custom attribute applied to a type or member.
// Ctor references the attribute type's initializer; Args are the
// constant arguments passed to it.
type AttributeDef struct {
	Type *TypeRef   `json:"type"`
	Ctor *MethodRef `json:"ctor,omitempty"`
	Args []Constant `json:"args,omitempty"`
}

// InterfaceImpl records that the declaring type implements an interface.
type InterfaceImpl struct {
	Iface *TypeRef `json:"iface"`
}

// MethodBody is the executable content of a method: an ordered
// instruction stream plus its local variables and two scalar settings.
type MethodBody struct {
	MaxStack     int            `json:"maxstack"`
	InitLocals   bool           `json:"initlocals,omitempty"`
	Locals       []*LocalDef    `json:"locals,omitempty"`
	Instructions []*Instruction `json:"-"`
}
