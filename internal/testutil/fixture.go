package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/typeweld/weld/internal/ir"
)

// MapResolver resolves modules from an in-memory map.
//
// Implements ir.Resolver. Used wherever a test needs cross-module
// references without touching the store.
type MapResolver map[string]*ir.Module

// Resolve returns the mapped module or an error for unknown names.
func (r MapResolver) Resolve(name string) (*ir.Module, error) {
	if m, ok := r[name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("module %q not found", name)
}

// NewMethod constructs a bodiless method definition.
func NewMethod(name string, flags ir.MethodFlags, ret *ir.TypeRef, params ...*ir.ParamDef) *ir.MethodDef {
	return &ir.MethodDef{Name: name, Flags: flags, Return: ret, Params: params}
}

// Param constructs a parameter definition.
func Param(name string, typ *ir.TypeRef) *ir.ParamDef {
	return &ir.ParamDef{Name: name, Type: typ}
}

// Local constructs a local variable definition.
func Local(name string, typ *ir.TypeRef) *ir.LocalDef {
	return &ir.LocalDef{Name: name, Type: typ}
}

// SetBody attaches a body to m and parses one instruction per line into
// it. Lines use the instruction text form; parameter and local operands
// resolve by name, so locals must be passed here, not attached later.
// Fails the test on any parse error.
func SetBody(t testing.TB, m *ir.MethodDef, maxStack int, locals []*ir.LocalDef, lines ...string) {
	t.Helper()
	m.Body = &ir.MethodBody{MaxStack: maxStack, Locals: locals}
	for _, line := range lines {
		ins, err := ir.ParseInstruction(line, m)
		require.NoError(t, err, "instruction %q", line)
		m.Body.Instructions = append(m.Body.Instructions, ins)
	}
}
