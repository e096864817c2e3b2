package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan defines a weave plan: which types to pull into a destination
// module, in what order, and where to write the result.
type Plan struct {
	// Destination is the image holding the module being woven into.
	Destination string `yaml:"destination"`

	// Search lists directories scanned for dependency images when a
	// merged body references another module.
	Search []string `yaml:"search,omitempty"`

	// Output is the image path for the woven module. Defaults to
	// Destination, overwriting it in place.
	Output string `yaml:"output,omitempty"`

	// Optimize runs redundant-cast elimination over every method body
	// of the woven module before writing.
	Optimize bool `yaml:"optimize,omitempty"`

	// Weaves are applied in order within a single session; the whole
	// plan commits atomically or not at all.
	Weaves []WeaveStep `yaml:"weaves"`
}

// WeaveStep is one directive in a plan. Exactly one of its fields is
// set.
type WeaveStep struct {
	// Merge pulls the members of a source type into an existing
	// destination type.
	Merge *MergeStep `yaml:"merge,omitempty"`

	// AddType clones a whole source type into the destination module.
	AddType *AddTypeStep `yaml:"add_type,omitempty"`
}

// MergeStep names a source type and the destination type receiving its
// members.
type MergeStep struct {
	// Source is a full type reference, "module/Namespace.Name".
	Source string `yaml:"source"`

	// Into is the destination type, "Namespace.Name" within the
	// destination module.
	Into string `yaml:"into"`
}

// AddTypeStep names a source type cloned in as a new type.
type AddTypeStep struct {
	// Source is a full type reference, "module/Namespace.Name".
	Source string `yaml:"source"`
}

// LoadPlan reads and parses a weave plan YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	// Strict field validation catches typos like "weave:" vs "weaves:".
	var plan Plan
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&plan); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validatePlan(&plan); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	return &plan, nil
}

// validatePlan checks that required fields are present and valid.
func validatePlan(p *Plan) error {
	if p.Destination == "" {
		return fmt.Errorf("destination is required")
	}

	if len(p.Weaves) == 0 {
		return fmt.Errorf("weaves list is required and must be non-empty")
	}

	for i, step := range p.Weaves {
		switch {
		case step.Merge != nil && step.AddType != nil:
			return fmt.Errorf("weave %d: merge and add_type are mutually exclusive", i)
		case step.Merge != nil:
			if step.Merge.Source == "" {
				return fmt.Errorf("weave %d: merge.source is required", i)
			}
			if step.Merge.Into == "" {
				return fmt.Errorf("weave %d: merge.into is required", i)
			}
		case step.AddType != nil:
			if step.AddType.Source == "" {
				return fmt.Errorf("weave %d: add_type.source is required", i)
			}
		default:
			return fmt.Errorf("weave %d: directive must be merge or add_type", i)
		}
	}

	return nil
}
