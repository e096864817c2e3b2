// Package assembler compiles module definition files written in CUE
// into ir.Module graphs.
//
// A definition is a single "module" struct: name, version, declared
// imports, and a list of types whose members use the ir text forms for
// references and instructions. Assembly is purely syntactic - every
// reference stays a naming reference until the final link pass, which
// binds whatever resolves inside the module's own world. References
// into declared-but-unloaded imports stay unbound and are resolved
// later by whoever supplies a resolver.
//
// Uses the CUE SDK's Go API directly (not CLI subprocess).
package assembler
