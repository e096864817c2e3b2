package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeweld/weld/internal/assembler"
	"github.com/typeweld/weld/internal/ir"
)

// assertionCUE is a self-contained module exercising every assertion:
// two fields in a known order, one chained base call, one newobj that
// must not count as a base call, and a pair of identical bodies.
const assertionCUE = `
module: {
	name: "fix"
	version: "1.0"
	imports: ["core"]
	types: [{
		namespace: "Fix"
		name:      "Thing"
		flags: ["public"]
		base: "core/Object"
		fields: [{
			name: "alpha"
			type: "core/Int32"
			flags: ["public"]
		}, {
			name: "beta"
			type: "core/String"
			flags: ["public"]
		}]
		methods: [{
			name: "<init>"
			flags: ["public"]
			body: {
				maxstack: 2
				instructions: [
					"ldthis",
					"call instance core/Void core/Object::<init>()",
					"ldthis",
					"ldc 0",
					"stfld core/Int32 fix/Fix.Thing::alpha",
					"ret",
				]
			}
		}, {
			name: "Spawn"
			flags: ["public"]
			returns: "core/Object"
			body: {
				maxstack: 1
				instructions: [
					"newobj instance core/Void core/Object::<init>()",
					"ret",
				]
			}
		}, {
			name: "DoubleInit"
			flags: ["public"]
			body: {
				maxstack: 1
				instructions: [
					"ldthis",
					"call instance core/Void core/Object::<init>()",
					"ldthis",
					"call instance core/Void core/Object::<init>()",
					"ret",
				]
			}
		}, {
			name: "Alpha"
			flags: ["public"]
			returns: "core/Int32"
			body: {
				maxstack: 1
				instructions: [
					"ldthis",
					"ldfld core/Int32 fix/Fix.Thing::alpha",
					"ret",
				]
			}
		}, {
			name: "Beta"
			flags: ["public"]
			returns: "core/String"
			body: {
				maxstack: 1
				instructions: [
					"ldthis",
					"ldfld core/String fix/Fix.Thing::beta",
					"ret",
				]
			}
		}, {
			name: "AlphaTwin"
			flags: ["public"]
			returns: "core/Int32"
			body: {
				maxstack: 1
				instructions: [
					"ldthis",
					"ldfld core/Int32 fix/Fix.Thing::alpha",
					"ret",
				]
			}
		}]
	}]
}
`

func assertionModule(t *testing.T) *ir.Module {
	t.Helper()
	m, err := assembler.AssembleSource("fix.cue", assertionCUE)
	require.NoError(t, err)
	return m
}

func TestAssertNoSourceRefs_Clean(t *testing.T) {
	m := assertionModule(t)

	err := assertNoSourceRefs(m, Assertion{Type: AssertNoSourceRefs, Module: "mixlib"})
	assert.NoError(t, err)
}

func TestAssertNoSourceRefs_Offender(t *testing.T) {
	m := assertionModule(t)

	// The module is riddled with core references, so banning core
	// must report them.
	err := assertNoSourceRefs(m, Assertion{Type: AssertNoSourceRefs, Module: "core"})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertNoSourceRefs, assertErr.Type)
	assert.Contains(t, assertErr.Expected, `no references into module "core"`)
	assert.Contains(t, assertErr.Actual, "reference(s), first ")
}

func TestAssertBaseCallCount_DefaultsToInitializer(t *testing.T) {
	m := assertionModule(t)

	err := assertBaseCallCount(m, Assertion{Type: AssertBaseCallCount, Target: "Fix.Thing", Count: 1})
	assert.NoError(t, err)
}

func TestAssertBaseCallCount_NewobjNotCounted(t *testing.T) {
	m := assertionModule(t)

	// Spawn constructs an object via newobj; that initializer reference
	// is not a chained base call.
	err := assertBaseCallCount(m, Assertion{Type: AssertBaseCallCount, Target: "Fix.Thing", Method: "Spawn", Count: 0})
	assert.NoError(t, err)
}

func TestAssertBaseCallCount_TooMany(t *testing.T) {
	m := assertionModule(t)

	err := assertBaseCallCount(m, Assertion{Type: AssertBaseCallCount, Target: "Fix.Thing", Method: "DoubleInit", Count: 1})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertBaseCallCount, assertErr.Type)
	assert.Contains(t, assertErr.Expected, "1 initializer call(s)")
	assert.Equal(t, "2 initializer call(s)", assertErr.Actual)
}

func TestAssertBaseCallCount_MethodNotFound(t *testing.T) {
	m := assertionModule(t)

	err := assertBaseCallCount(m, Assertion{Type: AssertBaseCallCount, Target: "Fix.Thing", Method: "Ghost", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `method "Ghost" not found on type "Fix.Thing"`)
}

func TestAssertMethodCount_Exact(t *testing.T) {
	m := assertionModule(t)

	err := assertMethodCount(m, Assertion{Type: AssertMethodCount, Target: "Fix.Thing", Count: 6})
	assert.NoError(t, err)
}

func TestAssertMethodCount_Mismatch(t *testing.T) {
	m := assertionModule(t)

	err := assertMethodCount(m, Assertion{Type: AssertMethodCount, Target: "Fix.Thing", Count: 2})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertMethodCount, assertErr.Type)
	assert.Contains(t, assertErr.Expected, "2 method(s) on Fix.Thing")
	assert.Contains(t, assertErr.Actual, "6 method(s)")
	assert.Contains(t, assertErr.Actual, "Spawn")
}

func TestAssertMethodCount_TypeNotFound(t *testing.T) {
	m := assertionModule(t)

	err := assertMethodCount(m, Assertion{Type: AssertMethodCount, Target: "Fix.Ghost", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `type "Fix.Ghost" not found in module "fix"`)
}

func TestAssertFieldOrder_Exact(t *testing.T) {
	m := assertionModule(t)

	err := assertFieldOrder(m, Assertion{Type: AssertFieldOrder, Target: "Fix.Thing", Fields: []string{"alpha", "beta"}})
	assert.NoError(t, err)
}

func TestAssertFieldOrder_WrongOrder(t *testing.T) {
	m := assertionModule(t)

	err := assertFieldOrder(m, Assertion{Type: AssertFieldOrder, Target: "Fix.Thing", Fields: []string{"beta", "alpha"}})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertFieldOrder, assertErr.Type)
	assert.Contains(t, assertErr.Actual, "order mismatch")
}

func TestAssertDistinctBodies_Distinct(t *testing.T) {
	m := assertionModule(t)

	err := assertDistinctBodies(m, Assertion{Type: AssertDistinctBodies, Target: "Fix.Thing", Methods: []string{"Alpha", "Beta"}})
	assert.NoError(t, err)
}

func TestAssertDistinctBodies_SharedBody(t *testing.T) {
	m := assertionModule(t)

	err := assertDistinctBodies(m, Assertion{Type: AssertDistinctBodies, Target: "Fix.Thing", Methods: []string{"Alpha", "AlphaTwin"}})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertDistinctBodies, assertErr.Type)
	assert.Contains(t, assertErr.Actual, "Alpha and AlphaTwin share fingerprint")
}

func TestAssertDistinctBodies_MethodNotFound(t *testing.T) {
	m := assertionModule(t)

	err := assertDistinctBodies(m, Assertion{Type: AssertDistinctBodies, Target: "Fix.Thing", Methods: []string{"Alpha", "Ghost"}})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, "method not found", assertErr.Actual)
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	result := NewResult()
	result.Module = assertionModule(t)

	errors := EvaluateAssertions(result, []Assertion{
		{Type: AssertMethodCount, Target: "Fix.Thing", Count: 6},
		{Type: AssertFieldOrder, Target: "Fix.Thing", Fields: []string{"alpha", "beta"}},
	})
	assert.Empty(t, errors)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	result := NewResult()
	result.Module = assertionModule(t)

	errors := EvaluateAssertions(result, []Assertion{
		{Type: AssertMethodCount, Target: "Fix.Thing", Count: 6},
		{Type: AssertMethodCount, Target: "Fix.Thing", Count: 1},
	})
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "Assertion failed: method_count")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	result := NewResult()
	result.Module = assertionModule(t)

	errors := EvaluateAssertions(result, []Assertion{
		{Type: "ref_leak"},
	})
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], `assertion[0]: unknown assertion type "ref_leak"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     "method_count",
		Expected: "3 method(s) on Fix.Thing",
		Actual:   "2 method(s): <init>, Spawn",
	}

	expected := "Assertion failed: method_count\n  Expected: 3 method(s) on Fix.Thing\n  Actual: 2 method(s): <init>, Spawn"
	assert.Equal(t, expected, err.Error())
}
