package harness

import "github.com/typeweld/weld/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success: the weave behaved as the
	// scenario demands and every assertion held.
	Pass bool `json:"pass"`

	// Module is the woven destination module. For expected-failure
	// scenarios it is the untouched original.
	Module *ir.Module `json:"-"`

	// Dump is the destination's canonical disassembly, the payload for
	// golden comparison.
	Dump string `json:"dump"`

	// CastsRemoved counts casts eliminated by the optimize step.
	CastsRemoved int `json:"casts_removed,omitempty"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
