package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/typeweld/weld/internal/assembler"
	"github.com/typeweld/weld/internal/ir"
	"github.com/typeweld/weld/internal/testutil"
	"github.com/typeweld/weld/internal/weaver"
)

// Run executes a weave scenario and returns the result.
//
// Each scenario assembles its modules from scratch, so runs are isolated
// and deterministic. Execution flow:
//  1. Assemble every module from its inline CUE definition
//  2. Wire the destination's reference resolution to the assembled set
//  3. Apply the weave directives in a single session and flush
//  4. Optionally run cast elimination over the woven module
//  5. Evaluate assertions against the result
//
// A scenario with ExpectError inverts step 3: the weave must fail with a
// matching error, and the abandoned session leaves the destination
// untouched for the assertions.
func Run(scenario *Scenario) (*Result, error) {
	modules, err := assembleModules(scenario)
	if err != nil {
		return nil, err
	}
	dest := modules[scenario.Destination]

	// Source modules resolve by name during reference rewriting.
	dest.Refs.SetResolver(testutil.MapResolver(modules))

	result := NewResult()
	weaveErr := runWeaves(scenario, dest, modules)
	if scenario.ExpectError != "" {
		switch {
		case weaveErr == nil:
			result.AddError(fmt.Sprintf("expected weave error containing %q, weave succeeded", scenario.ExpectError))
		case !strings.Contains(weaveErr.Error(), scenario.ExpectError):
			result.AddError(fmt.Sprintf("expected weave error containing %q, got: %v", scenario.ExpectError, weaveErr))
		}
	} else if weaveErr != nil {
		return nil, weaveErr
	}

	if scenario.Optimize {
		removed, err := optimizeModule(dest)
		if err != nil {
			return nil, err
		}
		result.CastsRemoved = removed
	}

	result.Module = dest
	result.Dump = ir.Dump(dest)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// assembleModules compiles every inline CUE definition. Names are
// processed in sorted order so error reporting is deterministic.
func assembleModules(scenario *Scenario) (map[string]*ir.Module, error) {
	names := make([]string, 0, len(scenario.Modules))
	for name := range scenario.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	modules := make(map[string]*ir.Module, len(names))
	for _, name := range names {
		m, err := assembler.AssembleSource(name+".cue", scenario.Modules[name])
		if err != nil {
			return nil, fmt.Errorf("assemble module %q: %w", name, err)
		}
		// Resolution is by map key, so key and definition must agree.
		if m.Name != name {
			return nil, fmt.Errorf("module key %q holds definition for module %q", name, m.Name)
		}
		modules[name] = m
	}
	return modules, nil
}

// runWeaves applies all directives in one session. Directives stage
// against the session; nothing touches dest until the final flush.
func runWeaves(scenario *Scenario, dest *ir.Module, modules map[string]*ir.Module) error {
	session, err := weaver.Begin(dest,
		weaver.WithTokenSource(testutil.NewFixedTokenSource(scenario.WeaveToken)))
	if err != nil {
		return err
	}
	for i, directive := range scenario.Weaves {
		if err := applyDirective(session, directive, modules); err != nil {
			return fmt.Errorf("weave %d: %w", i, err)
		}
	}
	return session.Flush()
}

// applyDirective stages one directive against the session.
func applyDirective(session *weaver.Session, d WeaveDirective, modules map[string]*ir.Module) error {
	switch {
	case d.Merge != nil:
		src, err := lookupSource(modules, d.Merge.Source)
		if err != nil {
			return err
		}
		ns, name := splitTypeName(d.Merge.Into)
		dst := session.FindType(ns, name)
		if dst == nil {
			return fmt.Errorf("destination type %q not found", d.Merge.Into)
		}
		return session.Merge(dst, src)
	case d.AddType != nil:
		src, err := lookupSource(modules, d.AddType.Source)
		if err != nil {
			return err
		}
		_, err = session.AddType(src)
		return err
	default:
		return fmt.Errorf("empty weave directive")
	}
}

// lookupSource finds a source type by its "module/Namespace.Name"
// reference among the scenario's assembled modules.
func lookupSource(modules map[string]*ir.Module, ref string) (*ir.TypeDef, error) {
	r, err := ir.ParseTypeRef(ref)
	if err != nil {
		return nil, err
	}
	m, ok := modules[r.Module]
	if !ok {
		return nil, fmt.Errorf("source %q: module %q not in scenario", ref, r.Module)
	}
	t := m.FindType(r.Namespace, r.Name)
	if t == nil {
		return nil, fmt.Errorf("source %q: no such type in module %q", ref, r.Module)
	}
	return t, nil
}

// splitTypeName splits "Namespace.Name" at the last dot.
func splitTypeName(s string) (namespace, name string) {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

// optimizeModule runs cast elimination over every method of m and
// returns the total removal count.
func optimizeModule(m *ir.Module) (int, error) {
	total := 0
	for _, t := range m.Types {
		for _, md := range allMethods(t) {
			removed, err := weaver.Optimize(md)
			if err != nil {
				return total, fmt.Errorf("optimize %s::%s: %w", md.Declaring.FullName(), md.Name, err)
			}
			total += removed
		}
	}
	return total, nil
}

// allMethods collects t's methods including those of nested types.
func allMethods(t *ir.TypeDef) []*ir.MethodDef {
	out := append([]*ir.MethodDef(nil), t.Methods...)
	for _, nested := range t.Nested {
		out = append(out, allMethods(nested)...)
	}
	return out
}
