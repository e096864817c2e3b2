// Package harness provides conformance testing for module weaves.
//
// The harness assembles modules from inline CUE definitions, applies a
// scenario's weave directives in a single session, and validates the
// woven destination through assertions and golden disassembly
// comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	modules:
//	  mixlib: |
//	    module: { name: "mixlib", version: "1.0", imports: ["core"], types: [...] }
//	  app: |
//	    module: { name: "app", version: "1.0", imports: ["core"], types: [...] }
//	destination: app
//	weaves:
//	  - merge:
//	      source: "mixlib/Mixins.Tracking"
//	      into: "App.Widget"
//	  - add_type:
//	      source: "mixlib/Mixins.Audit"
//	optimize: true
//	assertions:
//	  - type: no_source_refs
//	    module: mixlib
//	  - type: method_count
//	    target: App.Widget
//	    count: 3
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - no_source_refs: No reference in the woven module names the given module
//   - base_call_count: A method contains exactly N chained initializer calls
//   - method_count: A type carries exactly N methods
//   - field_order: A type's fields appear in exactly the given order
//   - distinct_bodies: The listed methods carry pairwise distinct body fingerprints
//
// # Deterministic Testing
//
// Scenarios assemble their modules from scratch on every run and weave
// with a fixed token source (testutil.FixedTokenSource), so the woven
// disassembly is byte-identical across runs and safe for golden file
// comparison.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/merge_tracking.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
//
// Compare the woven disassembly against a golden file:
//
//	if err := harness.RunWithGolden(t, scenario); err != nil {
//	    t.Fatal(err)
//	}
package harness
