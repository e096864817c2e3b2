package weaver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeweld/weld/internal/ir"
	"github.com/typeweld/weld/internal/testutil"
)

func TestCloneMethodFidelity(t *testing.T) {
	_, tracking := newMixinModule(t)
	touch := tracking.FindMethod("Touch")
	require.NotNil(t, touch)

	clone, err := CloneMethod(touch)
	require.NoError(t, err)

	assert.NotSame(t, touch, clone)
	assert.Equal(t, touch.Name, clone.Name)
	assert.Equal(t, touch.Flags, clone.Flags)
	assert.Equal(t, touch.Body.MaxStack, clone.Body.MaxStack)
	assert.Equal(t, bodyLines(t, touch), bodyLines(t, clone))
	assert.Nil(t, clone.Declaring, "clones are detached")
}

func TestCloneMethodRemapsParamsAndLocals(t *testing.T) {
	_, tracking := newMixinModule(t)

	m := testutil.NewMethod("Scale", ir.MethodPublic, ir.CoreRef("Int32"), testutil.Param("factor", ir.CoreRef("Int32")))
	locals := []*ir.LocalDef{testutil.Local("acc", ir.CoreRef("Int32"))}
	testutil.SetBody(t, m, 2, locals,
		"ldarg factor",
		"stloc acc",
		"L1: ldloc acc",
		"ldc 1",
		"sub",
		"brtrue L1",
		"ldloc acc",
		"ret",
	)
	m.Declaring = tracking
	tracking.Methods = append(tracking.Methods, m)

	clone, err := CloneMethod(m)
	require.NoError(t, err)

	require.Len(t, clone.Params, 1)
	assert.NotSame(t, m.Params[0], clone.Params[0])
	require.Len(t, clone.Body.Locals, 1)
	assert.NotSame(t, m.Body.Locals[0], clone.Body.Locals[0])

	argOp, ok := clone.Body.Instructions[0].Operand.(ir.ParamOperand)
	require.True(t, ok)
	assert.Same(t, clone.Params[0], argOp.Param, "operand remaps to the cloned parameter")

	locOp, ok := clone.Body.Instructions[1].Operand.(ir.LocalOperand)
	require.True(t, ok)
	assert.Same(t, clone.Body.Locals[0], locOp.Local, "operand remaps to the cloned local")

	assert.Equal(t, bodyLines(t, m), bodyLines(t, clone))
}

func TestCloneMethodIndependence(t *testing.T) {
	_, tracking := newMixinModule(t)
	touch := tracking.FindMethod("Touch")
	require.NotNil(t, touch)
	before := bodyLines(t, touch)

	clone, err := CloneMethod(touch)
	require.NoError(t, err)

	fldOp, ok := clone.Body.Instructions[2].Operand.(ir.FieldOperand)
	require.True(t, ok)
	fldOp.Field.Name = "hacked"
	fldOp.Field.Declaring.Module = "nowhere"
	clone.Name = "Renamed"
	clone.Body.Instructions = append(clone.Body.Instructions, &ir.Instruction{Op: ir.OpNop})

	assert.Equal(t, "Touch", touch.Name)
	assert.Equal(t, before, bodyLines(t, touch))
	assert.Len(t, touch.Body.Instructions, 7)
}

func TestCloneFieldConstIndependence(t *testing.T) {
	orig := &ir.FieldDef{
		Name:  "limit",
		Flags: ir.FieldPublic | ir.FieldStatic | ir.FieldLiteral,
		Type:  ir.CoreRef("Int32"),
	}
	c := ir.IntConst(42)
	orig.Const = &c

	clone, err := CloneField(orig)
	require.NoError(t, err)

	assert.Equal(t, orig.Flags, clone.Flags)
	assert.NotSame(t, orig.Type, clone.Type)
	assert.Nil(t, clone.Declaring)

	require.NotNil(t, clone.Const)
	clone.Const.Int = 7
	assert.Equal(t, int64(42), orig.Const.Int)
}

func TestClonePropertyKeepsAccessorIdentity(t *testing.T) {
	_, tracking := newMixinModule(t)
	prop := tracking.Properties[0]
	require.NotNil(t, prop.Getter.Def(), "fixture getter is linked")

	clone, err := CloneProperty(prop)
	require.NoError(t, err)

	require.NotNil(t, clone.Getter)
	assert.NotSame(t, prop.Getter, clone.Getter)
	// Accessor references are references, not ownership: the clone
	// still denotes the source accessor until flush re-binds it.
	assert.Same(t, prop.Getter.Def(), clone.Getter.Def())
	assert.Nil(t, clone.Setter)
}

func TestCloneAttributeCopiesArgs(t *testing.T) {
	attr := &ir.AttributeDef{
		Type: ir.NewTypeRef("annolib", "Anno", "Tagged"),
		Ctor: &ir.MethodRef{
			Declaring: ir.NewTypeRef("annolib", "Anno", "Tagged"),
			Name:      ir.InitName,
			HasThis:   true,
			Return:    ir.CoreRef("Void"),
			Params:    []*ir.TypeRef{ir.CoreRef("String")},
		},
		Args: []ir.Constant{ir.StringConst("v1")},
	}

	clone, err := CloneAttribute(attr)
	require.NoError(t, err)

	clone.Args[0] = ir.StringConst("v2")
	assert.Equal(t, "v1", attr.Args[0].Str)
	assert.NotSame(t, attr.Ctor, clone.Ctor)
}

func TestCloneNilInputs(t *testing.T) {
	_, err := CloneField(nil)
	assert.True(t, IsInvalidArgument(err))
	_, err = CloneProperty(nil)
	assert.True(t, IsInvalidArgument(err))
	_, err = CloneMethod(nil)
	assert.True(t, IsInvalidArgument(err))
	_, err = CloneAttribute(nil)
	assert.True(t, IsInvalidArgument(err))
	_, err = CloneInterfaceImpl(nil)
	assert.True(t, IsInvalidArgument(err))
}
