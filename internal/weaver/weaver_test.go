package weaver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/typeweld/weld/internal/ir"
	"github.com/typeweld/weld/internal/testutil"
)

// newMixinModule builds the canonical merge source: module "mixlib"
// with one type carrying a field, a counter method, a getter, and a
// property, every reference pointing back at the mixin type itself.
func newMixinModule(t *testing.T) (*ir.Module, *ir.TypeDef) {
	t.Helper()
	m := ir.NewModule("mixlib", "1.0")

	tracking := &ir.TypeDef{Namespace: "Mixins", Name: "Tracking", Flags: ir.TypePublic, Base: ir.CoreRef("Object")}
	m.AddTypeDef(tracking)

	count := &ir.FieldDef{Name: "count", Flags: ir.FieldPublic, Type: ir.CoreRef("Int32"), Declaring: tracking}
	tracking.Fields = append(tracking.Fields, count)

	touch := testutil.NewMethod("Touch", ir.MethodPublic, ir.CoreRef("Void"))
	testutil.SetBody(t, touch, 3, nil,
		"ldthis",
		"ldthis",
		"ldfld core/Int32 mixlib/Mixins.Tracking::count",
		"ldc 1",
		"add",
		"stfld core/Int32 mixlib/Mixins.Tracking::count",
		"ret",
	)
	touch.Declaring = tracking
	tracking.Methods = append(tracking.Methods, touch)

	getCount := testutil.NewMethod("get_Count", ir.MethodPublic, ir.CoreRef("Int32"))
	testutil.SetBody(t, getCount, 1, nil,
		"ldthis",
		"ldfld core/Int32 mixlib/Mixins.Tracking::count",
		"ret",
	)
	getCount.Declaring = tracking
	tracking.Methods = append(tracking.Methods, getCount)

	counter := &ir.PropertyDef{
		Name: "Count",
		Type: ir.CoreRef("Int32"),
		Getter: &ir.MethodRef{
			Declaring: ir.RefTo(tracking),
			Name:      "get_Count",
			HasThis:   true,
			Return:    ir.CoreRef("Int32"),
		},
		Declaring: tracking,
	}
	tracking.Properties = append(tracking.Properties, counter)

	require.NoError(t, m.Refs.Import(ir.CoreModuleName))
	require.NoError(t, m.Link())
	return m, tracking
}

// newTargetModule builds the canonical merge destination: module "app"
// with one type that already has a field and a chained instance
// initializer.
func newTargetModule(t *testing.T) (*ir.Module, *ir.TypeDef) {
	t.Helper()
	m := ir.NewModule("app", "1.0")

	widget := &ir.TypeDef{Namespace: "App", Name: "Widget", Flags: ir.TypePublic, Base: ir.CoreRef("Object")}
	m.AddTypeDef(widget)

	label := &ir.FieldDef{Name: "label", Flags: ir.FieldPublic, Type: ir.CoreRef("String"), Declaring: widget}
	widget.Fields = append(widget.Fields, label)

	init := testutil.NewMethod(ir.InitName, ir.MethodPublic, ir.CoreRef("Void"))
	testutil.SetBody(t, init, 1, nil,
		"ldthis",
		"call instance core/Void core/Object::<init>()",
		"ret",
	)
	init.Declaring = widget
	widget.Methods = append(widget.Methods, init)

	require.NoError(t, m.Refs.Import(ir.CoreModuleName))
	require.NoError(t, m.Link())
	return m, widget
}

// bodyLines renders a body's instructions in text form for comparison.
func bodyLines(t *testing.T, m *ir.MethodDef) []string {
	t.Helper()
	require.NotNil(t, m.Body, "method %s has no body", m.Name)
	out := make([]string, len(m.Body.Instructions))
	for i, ins := range m.Body.Instructions {
		out[i] = ir.FormatInstruction(ins)
	}
	return out
}

// refModules collects the distinct module names referenced anywhere in
// the type.
func refModules(t *testing.T, td *ir.TypeDef) map[string]bool {
	t.Helper()
	seen := map[string]bool{}
	require.NoError(t, ir.WalkTypeRefs(td, func(r *ir.TypeRef) {
		seen[r.Module] = true
	}))
	return seen
}
