package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/typeweld/weld/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes expected and actual context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// assertNoSourceRefs checks that no reference anywhere in the module
// names the given module. After a weave, nothing in the destination may
// point back into the source it was cloned from.
func assertNoSourceRefs(m *ir.Module, assertion Assertion) error {
	var offenders []string
	err := ir.WalkModuleRefs(m, func(r *ir.TypeRef) {
		if r.Module == assertion.Module {
			offenders = append(offenders, ir.FormatTypeRef(r))
		}
	})
	if err != nil {
		return err
	}
	if len(offenders) > 0 {
		return &AssertionError{
			Type:     AssertNoSourceRefs,
			Expected: fmt.Sprintf("no references into module %q", assertion.Module),
			Actual:   fmt.Sprintf("%d reference(s), first %s", len(offenders), offenders[0]),
		}
	}
	return nil
}

// assertBaseCallCount counts the chained initializer calls in a method
// body. After splicing, the shared base initializer must run exactly
// once, no matter how many initializers were merged in.
func assertBaseCallCount(m *ir.Module, assertion Assertion) error {
	method, err := findTargetMethod(m, assertion.Target, assertion.Method, ir.InitName)
	if err != nil {
		return err
	}

	count := 0
	if method.Body != nil {
		for _, ins := range method.Body.Instructions {
			// newobj also carries initializer references, but those
			// construct other objects; only call-shaped dispatch chains
			// the inheritance hierarchy.
			if ins.Op != ir.OpCall && ins.Op != ir.OpCallvirt {
				continue
			}
			if mo, ok := ins.Operand.(ir.MethodOperand); ok && mo.Method != nil && mo.Method.Name == ir.InitName {
				count++
			}
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertBaseCallCount,
			Expected: fmt.Sprintf("%d initializer call(s) in %s::%s", assertion.Count, assertion.Target, method.Name),
			Actual:   fmt.Sprintf("%d initializer call(s)", count),
		}
	}
	return nil
}

// assertMethodCount checks the exact number of methods on a type.
func assertMethodCount(m *ir.Module, assertion Assertion) error {
	t, err := findTarget(m, assertion.Target)
	if err != nil {
		return err
	}
	if len(t.Methods) != assertion.Count {
		names := make([]string, len(t.Methods))
		for i, md := range t.Methods {
			names[i] = md.Name
		}
		return &AssertionError{
			Type:     AssertMethodCount,
			Expected: fmt.Sprintf("%d method(s) on %s", assertion.Count, assertion.Target),
			Actual:   fmt.Sprintf("%d method(s): %s", len(t.Methods), strings.Join(names, ", ")),
		}
	}
	return nil
}

// assertFieldOrder checks the exact field declaration order on a type.
// Merged fields land in front of the destination's own fields, so the
// order pins both the clone order and the attachment point.
func assertFieldOrder(m *ir.Module, assertion Assertion) error {
	t, err := findTarget(m, assertion.Target)
	if err != nil {
		return err
	}
	got := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		got[i] = f.Name
	}
	if diff := cmp.Diff(assertion.Fields, got); diff != "" {
		return &AssertionError{
			Type:     AssertFieldOrder,
			Expected: fmt.Sprintf("fields on %s in order %v", assertion.Target, assertion.Fields),
			Actual:   fmt.Sprintf("order mismatch (-want +got):\n%s", diff),
		}
	}
	return nil
}

// assertDistinctBodies checks that the listed methods carry pairwise
// distinct body fingerprints. This keeps content-swapped duplicates
// observable: the surviving methods must not share code.
func assertDistinctBodies(m *ir.Module, assertion Assertion) error {
	t, err := findTarget(m, assertion.Target)
	if err != nil {
		return err
	}

	seen := make(map[string]string, len(assertion.Methods)) // fingerprint -> method name
	for _, name := range assertion.Methods {
		method := t.FindMethod(name)
		if method == nil {
			return &AssertionError{
				Type:     AssertDistinctBodies,
				Expected: fmt.Sprintf("method %q on %s", name, assertion.Target),
				Actual:   "method not found",
			}
		}
		fp := ir.BodyFingerprint(method)
		if prev, dup := seen[fp]; dup {
			return &AssertionError{
				Type:     AssertDistinctBodies,
				Expected: fmt.Sprintf("distinct bodies for %v on %s", assertion.Methods, assertion.Target),
				Actual:   fmt.Sprintf("%s and %s share fingerprint %s", prev, name, fp),
			}
		}
		seen[fp] = name
	}
	return nil
}

// findTarget resolves an assertion's "Namespace.Name" target type.
func findTarget(m *ir.Module, target string) (*ir.TypeDef, error) {
	ns, name := splitTypeName(target)
	t := m.FindType(ns, name)
	if t == nil {
		return nil, fmt.Errorf("type %q not found in module %q", target, m.Name)
	}
	return t, nil
}

// findTargetMethod resolves a method on a target type, defaulting the
// method name when the assertion leaves it empty.
func findTargetMethod(m *ir.Module, target, method, fallback string) (*ir.MethodDef, error) {
	t, err := findTarget(m, target)
	if err != nil {
		return nil, err
	}
	name := method
	if name == "" {
		name = fallback
	}
	md := t.FindMethod(name)
	if md == nil {
		return nil, fmt.Errorf("method %q not found on type %q", name, target)
	}
	return md, nil
}

// EvaluateAssertions evaluates all assertions against the result's
// module. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertNoSourceRefs:
			err = assertNoSourceRefs(result.Module, assertion)
		case AssertBaseCallCount:
			err = assertBaseCallCount(result.Module, assertion)
		case AssertMethodCount:
			err = assertMethodCount(result.Module, assertion)
		case AssertFieldOrder:
			err = assertFieldOrder(result.Module, assertion)
		case AssertDistinctBodies:
			err = assertDistinctBodies(result.Module, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
