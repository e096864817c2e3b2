package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeweld/weld/internal/ir"
	"github.com/typeweld/weld/internal/testutil"
)

// newSampleModule builds a module touching every stored construct:
// imports, constants, properties, attributes, nested types, labeled
// branches, a bodiless method, and a reference into a module the image
// does not contain.
func newSampleModule(t *testing.T) *ir.Module {
	t.Helper()
	m := ir.NewModule("applib", "2.1")

	marker := &ir.TypeDef{Namespace: "App", Name: "Marker", Flags: ir.TypePublic, Base: ir.CoreRef("Object")}
	m.AddTypeDef(marker)

	markerInit := testutil.NewMethod(ir.InitName, ir.MethodPublic, ir.CoreRef("Void"),
		testutil.Param("flag", ir.CoreRef("Int32")))
	testutil.SetBody(t, markerInit, 1, nil,
		"ldthis",
		"call instance core/Void core/Object::<init>()",
		"ret",
	)
	markerInit.Declaring = marker
	marker.Methods = append(marker.Methods, markerInit)

	widget := &ir.TypeDef{Namespace: "App", Name: "Widget", Flags: ir.TypePublic, Base: ir.CoreRef("Object")}
	widget.Attributes = append(widget.Attributes, &ir.AttributeDef{
		Type: ir.RefTo(marker),
		Ctor: &ir.MethodRef{
			Declaring: ir.RefTo(marker),
			Name:      ir.InitName,
			HasThis:   true,
			Return:    ir.CoreRef("Void"),
			Params:    []*ir.TypeRef{ir.CoreRef("Int32")},
		},
		Args: []ir.Constant{ir.IntConst(7)},
	})
	m.AddTypeDef(widget)

	label := &ir.FieldDef{Name: "label", Flags: ir.FieldPublic, Type: ir.CoreRef("String"), Declaring: widget}
	maxSize := &ir.FieldDef{
		Name:      "MaxSize",
		Flags:     ir.FieldPublic | ir.FieldStatic | ir.FieldLiteral,
		Type:      ir.CoreRef("Int32"),
		Const:     constPtr(ir.IntConst(64)),
		Declaring: widget,
	}
	widget.Fields = append(widget.Fields, label, maxSize)

	getLabel := testutil.NewMethod("get_Label", ir.MethodPublic, ir.CoreRef("String"))
	testutil.SetBody(t, getLabel, 1, nil,
		"ldthis",
		"ldfld core/String applib/App.Widget::label",
		"ret",
	)
	getLabel.Declaring = widget
	widget.Methods = append(widget.Methods, getLabel)

	grow := testutil.NewMethod("Grow", ir.MethodPublic, ir.CoreRef("Int32"),
		testutil.Param("n", ir.CoreRef("Int32")))
	testutil.SetBody(t, grow, 2, []*ir.LocalDef{testutil.Local("tmp", ir.CoreRef("Int32"))},
		"ldarg n",
		"stloc tmp",
		"ldarg n",
		"brtrue L1",
		"ldc 64",
		"stloc tmp",
		"L1: ldloc tmp",
		"ret",
	)
	grow.Body.InitLocals = true
	grow.Declaring = widget
	widget.Methods = append(widget.Methods, grow)

	describe := testutil.NewMethod("Describe", ir.MethodPublic|ir.MethodVirtual, ir.CoreRef("String"))
	describe.Declaring = widget
	widget.Methods = append(widget.Methods, describe)

	callout := testutil.NewMethod("Callout", ir.MethodPublic, ir.CoreRef("Void"))
	testutil.SetBody(t, callout, 1, nil,
		"call core/Void extlib/Ext.Helper::Assist()",
		"ret",
	)
	callout.Declaring = widget
	widget.Methods = append(widget.Methods, callout)

	widget.Properties = append(widget.Properties, &ir.PropertyDef{
		Name: "Label",
		Type: ir.CoreRef("String"),
		Getter: &ir.MethodRef{
			Declaring: ir.RefTo(widget),
			Name:      "get_Label",
			HasThis:   true,
			Return:    ir.CoreRef("String"),
		},
		Declaring: widget,
	})

	cursor := &ir.TypeDef{Namespace: "App", Name: "Cursor", Flags: ir.TypePublic, Base: ir.CoreRef("Object"), Module: m, Parent: widget}
	pos := &ir.FieldDef{Name: "pos", Flags: ir.FieldPublic, Type: ir.CoreRef("Int32"), Declaring: cursor}
	cursor.Fields = append(cursor.Fields, pos)
	advance := testutil.NewMethod("Advance", ir.MethodPublic, ir.CoreRef("Void"))
	testutil.SetBody(t, advance, 3, nil,
		"ldthis",
		"ldthis",
		"ldfld core/Int32 applib/App.Cursor::pos",
		"ldc 1",
		"add",
		"stfld core/Int32 applib/App.Cursor::pos",
		"ret",
	)
	advance.Declaring = cursor
	cursor.Methods = append(cursor.Methods, advance)
	widget.Nested = append(widget.Nested, cursor)

	require.NoError(t, m.Refs.Import(ir.CoreModuleName))
	m.Refs.Declare("extlib")
	require.NoError(t, m.Link())
	return m
}

func constPtr(c ir.Constant) *ir.Constant { return &c }

func formatLines(t *testing.T, md *ir.MethodDef) []string {
	t.Helper()
	require.NotNil(t, md.Body)
	lines := make([]string, len(md.Body.Instructions))
	for i, ins := range md.Body.Instructions {
		lines[i] = ir.FormatInstruction(ins)
	}
	return lines
}

func TestWriteReadRoundtrip(t *testing.T) {
	ctx := context.Background()
	m := newSampleModule(t)

	s, err := OpenWritable(imagePath(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteModule(ctx, m))

	got, err := s.ReadModule(ctx)
	require.NoError(t, err)

	assert.Equal(t, "applib", got.Name)
	assert.Equal(t, "2.1", got.Version)
	assert.Equal(t, []string{"core", "extlib"}, got.Refs.Imports())
	require.Len(t, got.Types, 2)
	assert.Equal(t, "Marker", got.Types[0].Name)

	widget := got.FindType("App", "Widget")
	require.NotNil(t, widget)
	assert.Same(t, got, widget.Module)
	assert.Same(t, ir.Core().FindType("", "Object"), got.ResolveTypeRef(widget.Base))

	// Fields keep order, flags, and constants.
	require.Len(t, widget.Fields, 2)
	assert.Equal(t, "label", widget.Fields[0].Name)
	maxSize := widget.Fields[1]
	assert.True(t, maxSize.Flags.Has(ir.FieldStatic))
	assert.True(t, maxSize.Flags.Has(ir.FieldLiteral))
	require.NotNil(t, maxSize.Const)
	assert.Equal(t, ir.IntConst(64), *maxSize.Const)
	assert.Same(t, widget, maxSize.Declaring)

	// Bodies come back line for line, with operands rebound to the
	// loaded graph.
	getLabel := widget.FindMethod("get_Label")
	require.NotNil(t, getLabel)
	assert.Equal(t, []string{
		"ldthis",
		"ldfld core/String applib/App.Widget::label",
		"ret",
	}, formatLines(t, getLabel))
	fieldOp, ok := getLabel.Body.Instructions[1].Operand.(ir.FieldOperand)
	require.True(t, ok)
	assert.Same(t, widget.FindField("label"), fieldOp.Field.Def())

	grow := widget.FindMethod("Grow")
	require.NotNil(t, grow)
	assert.Equal(t, 2, grow.Body.MaxStack)
	assert.True(t, grow.Body.InitLocals)
	assert.Equal(t, []string{
		"ldarg n",
		"stloc tmp",
		"ldarg n",
		"brtrue L1",
		"ldc 64",
		"stloc tmp",
		"L1: ldloc tmp",
		"ret",
	}, formatLines(t, grow))
	paramOp, ok := grow.Body.Instructions[0].Operand.(ir.ParamOperand)
	require.True(t, ok)
	assert.Same(t, grow.Params[0], paramOp.Param)
	localOp, ok := grow.Body.Instructions[1].Operand.(ir.LocalOperand)
	require.True(t, ok)
	assert.Same(t, grow.Body.Locals[0], localOp.Local)

	// Bodiless methods stay bodiless.
	describe := widget.FindMethod("Describe")
	require.NotNil(t, describe)
	assert.Nil(t, describe.Body)

	// References into modules outside the image stay naming-only.
	callout := widget.FindMethod("Callout")
	require.NotNil(t, callout)
	callOp, ok := callout.Body.Instructions[0].Operand.(ir.MethodOperand)
	require.True(t, ok)
	assert.Nil(t, callOp.Method.Def())
	assert.Equal(t, "call core/Void extlib/Ext.Helper::Assist()", ir.FormatInstruction(callout.Body.Instructions[0]))

	// Property accessors rebind to the loaded methods.
	require.Len(t, widget.Properties, 1)
	assert.Same(t, getLabel, widget.Properties[0].Getter.Def())
	assert.Same(t, widget, widget.Properties[0].Declaring)

	// Attributes rebind their constructor references.
	marker := got.FindType("App", "Marker")
	require.NotNil(t, marker)
	require.Len(t, widget.Attributes, 1)
	attr := widget.Attributes[0]
	assert.Same(t, marker, got.ResolveTypeRef(attr.Type))
	assert.Same(t, marker.FindMethod(ir.InitName), attr.Ctor.Def())
	assert.Equal(t, []ir.Constant{ir.IntConst(7)}, attr.Args)

	// Nested types keep their ownership chain.
	require.Len(t, widget.Nested, 1)
	cursor := widget.Nested[0]
	assert.Same(t, widget, cursor.Parent)
	assert.Same(t, got, cursor.Module)
	assert.Same(t, cursor, got.FindType("App", "Cursor"))
	advance := cursor.FindMethod("Advance")
	require.NotNil(t, advance)
	nestedOp, ok := advance.Body.Instructions[2].Operand.(ir.FieldOperand)
	require.True(t, ok)
	assert.Same(t, cursor.FindField("pos"), nestedOp.Field.Def())
}

func TestRoundtripPreservesFingerprint(t *testing.T) {
	ctx := context.Background()
	m := newSampleModule(t)

	s, err := OpenWritable(imagePath(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteModule(ctx, m))

	stored, err := s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.Fingerprint(), stored)

	got, err := s.ReadModule(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.Fingerprint(), got.Fingerprint())
}

func TestWriteReplacesPreviousContents(t *testing.T) {
	ctx := context.Background()

	s, err := OpenWritable(imagePath(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteModule(ctx, newSampleModule(t)))

	next := ir.NewModule("other", "0.1")
	tiny := &ir.TypeDef{Namespace: "Tiny", Name: "Unit", Flags: ir.TypePublic, Base: ir.CoreRef("Object")}
	next.AddTypeDef(tiny)
	require.NoError(t, next.Refs.Import(ir.CoreModuleName))
	require.NoError(t, next.Link())

	require.NoError(t, s.WriteModule(ctx, next))

	got, err := s.ReadModule(ctx)
	require.NoError(t, err)
	assert.Equal(t, "other", got.Name)
	assert.Equal(t, []string{"core"}, got.Refs.Imports())
	require.Len(t, got.Types, 1)
	assert.Equal(t, "Unit", got.Types[0].Name)
}

func TestWriteModuleValidation(t *testing.T) {
	ctx := context.Background()

	s, err := OpenWritable(imagePath(t))
	require.NoError(t, err)
	defer s.Close()

	require.Error(t, s.WriteModule(ctx, nil))
	require.Error(t, s.WriteModule(ctx, ir.NewModule("", "1.0")))
}

func TestVerifyAcceptsCleanImage(t *testing.T) {
	ctx := context.Background()
	m := newSampleModule(t)

	s, err := OpenWritable(imagePath(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteModule(ctx, m))

	got, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, "applib", got.Name)
}

func TestVerifyDetectsTamperedFingerprint(t *testing.T) {
	ctx := context.Background()

	s, err := OpenWritable(imagePath(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteModule(ctx, newSampleModule(t)))
	_, err = s.db.ExecContext(ctx, "UPDATE module SET fingerprint = 'bogus'")
	require.NoError(t, err)

	_, err = s.Verify(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fingerprint mismatch")
}

func TestVerifyFlagsEscapedReference(t *testing.T) {
	ctx := context.Background()

	// A module whose body references extlib without importing it.
	m := ir.NewModule("applib", "1.0")
	leaky := &ir.TypeDef{Namespace: "App", Name: "Leaky", Flags: ir.TypePublic, Base: ir.CoreRef("Object")}
	m.AddTypeDef(leaky)
	sneak := testutil.NewMethod("Sneak", ir.MethodPublic, ir.CoreRef("Void"))
	testutil.SetBody(t, sneak, 1, nil,
		"call core/Void extlib/Ext.Helper::Assist()",
		"ret",
	)
	sneak.Declaring = leaky
	leaky.Methods = append(leaky.Methods, sneak)
	require.NoError(t, m.Refs.Import(ir.CoreModuleName))
	require.NoError(t, m.Link())

	s, err := OpenWritable(imagePath(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteModule(ctx, m))

	_, err = s.Verify(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escape")
	assert.Contains(t, err.Error(), "extlib/Ext.Helper")
}
