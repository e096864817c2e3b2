package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a weave conformance scenario.
// Scenarios assemble a set of modules from inline CUE definitions, apply
// an ordered sequence of weave directives to one of them, and assert on
// the woven result.
type Scenario struct {
	// Name uniquely identifies this scenario.
	// Golden files are stored under testdata/golden/{name}.golden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Modules maps module names to inline CUE module definitions.
	// Every module is assembled before the weave runs; non-destination
	// modules serve as weave sources and resolve references by name.
	Modules map[string]string `yaml:"modules"`

	// Destination names the module the weaves apply to.
	// Must be a key of Modules.
	Destination string `yaml:"destination"`

	// Weaves contains the ordered weave directives.
	// All directives run in one session; a failing directive abandons
	// the whole weave and leaves the destination untouched.
	Weaves []WeaveDirective `yaml:"weaves"`

	// Optimize runs cast elimination over every method of the woven
	// destination after the flush.
	Optimize bool `yaml:"optimize,omitempty"`

	// Assertions validate the woven destination.
	// Supported types: no_source_refs, base_call_count, method_count,
	// field_order, distinct_bodies.
	Assertions []Assertion `yaml:"assertions"`

	// ExpectError marks a scenario that must fail: the weave has to
	// return an error containing this substring. Assertions then run
	// against the untouched destination.
	ExpectError string `yaml:"expect_error,omitempty"`

	// WeaveToken is an optional fixed weave token for deterministic log
	// output. If empty, defaults to "test-weave-default".
	WeaveToken string `yaml:"weave_token,omitempty"`
}

// WeaveDirective is one step of a weave.
// Exactly one of Merge or AddType must be set.
type WeaveDirective struct {
	Merge   *MergeDirective   `yaml:"merge,omitempty"`
	AddType *AddTypeDirective `yaml:"add_type,omitempty"`
}

// MergeDirective merges the members of a source type into an existing
// destination type.
type MergeDirective struct {
	// Source is the source type reference, "module/Namespace.Name".
	Source string `yaml:"source"`

	// Into is the destination type, "Namespace.Name", looked up on the
	// destination module including types added earlier in the weave.
	Into string `yaml:"into"`
}

// AddTypeDirective clones a whole type into the destination module.
type AddTypeDirective struct {
	// Source is the source type reference, "module/Namespace.Name".
	Source string `yaml:"source"`
}

// Assertion validates one property of the woven destination.
type Assertion struct {
	// Type specifies the assertion type:
	// - "no_source_refs": no reference in the module names Module
	// - "base_call_count": Target's Method contains exactly Count chained initializer calls
	// - "method_count": Target carries exactly Count methods
	// - "field_order": Target's fields appear exactly in Fields order
	// - "distinct_bodies": Methods on Target have pairwise distinct body fingerprints
	Type string `yaml:"type"`

	// Module is the banned module name (no_source_refs).
	Module string `yaml:"module,omitempty"`

	// Target is the type under test, "Namespace.Name" (all assertion
	// types except no_source_refs).
	Target string `yaml:"target,omitempty"`

	// Method is the method under test (base_call_count).
	// Defaults to the instance initializer.
	Method string `yaml:"method,omitempty"`

	// Count is the expected count (base_call_count, method_count).
	Count int `yaml:"count,omitempty"`

	// Fields is the expected field order (field_order).
	Fields []string `yaml:"fields,omitempty"`

	// Methods lists the methods whose bodies must differ (distinct_bodies).
	Methods []string `yaml:"methods,omitempty"`
}

// Assertion type constants.
const (
	AssertNoSourceRefs   = "no_source_refs"
	AssertBaseCallCount  = "base_call_count"
	AssertMethodCount    = "method_count"
	AssertFieldOrder     = "field_order"
	AssertDistinctBodies = "distinct_bodies"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "weave:" vs "weaves:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Modules) == 0 {
		return fmt.Errorf("modules map is required and must be non-empty")
	}

	if s.Destination == "" {
		return fmt.Errorf("destination is required")
	}
	if _, ok := s.Modules[s.Destination]; !ok {
		return fmt.Errorf("destination %q is not a key of modules", s.Destination)
	}

	if len(s.Weaves) == 0 {
		return fmt.Errorf("weaves list is required and must be non-empty")
	}

	// An expected-failure scenario is allowed to rely on the failure
	// alone; everything else must assert something.
	if len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, directive := range s.Weaves {
		if err := validateDirective(i, &directive); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateDirective validates a single weave directive.
func validateDirective(index int, d *WeaveDirective) error {
	switch {
	case d.Merge != nil && d.AddType != nil:
		return fmt.Errorf("weaves[%d]: merge and add_type are mutually exclusive", index)
	case d.Merge != nil:
		if d.Merge.Source == "" {
			return fmt.Errorf("weaves[%d]: merge.source is required", index)
		}
		if d.Merge.Into == "" {
			return fmt.Errorf("weaves[%d]: merge.into is required", index)
		}
	case d.AddType != nil:
		if d.AddType.Source == "" {
			return fmt.Errorf("weaves[%d]: add_type.source is required", index)
		}
	default:
		return fmt.Errorf("weaves[%d]: directive must be merge or add_type", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertNoSourceRefs:
		if a.Module == "" {
			return fmt.Errorf("assertions[%d]: module is required for no_source_refs", index)
		}
	case AssertBaseCallCount:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for base_call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for base_call_count", index)
		}
	case AssertMethodCount:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for method_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for method_count", index)
		}
	case AssertFieldOrder:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for field_order", index)
		}
		if len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: fields list is required for field_order", index)
		}
	case AssertDistinctBodies:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for distinct_bodies", index)
		}
		if len(a.Methods) < 2 {
			return fmt.Errorf("assertions[%d]: distinct_bodies needs at least two methods", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
