package weaver

import (
	"slices"

	"github.com/typeweld/weld/internal/ir"
)

// Duplicate resolution. When a merge leaves a destination type with
// exactly two methods sharing one full signature, their contents swap:
// body, parameters, generic parameters, attributes, and implementation
// flags trade places while the two definitions keep their identities.
// Call sites inside the two moved bodies are retargeted so each keeps
// invoking the implementation it invoked before the swap.
//
// Three or more sharers is ambiguous: there is no principled pairing,
// so the flush fails before any mutation.

// swapPair is one planned content swap between two same-signature
// methods on a destination type.
type swapPair struct {
	a *ir.MethodDef
	b *ir.MethodDef
}

// planDuplicates groups each touched destination type's post-commit
// method list by full signature. Pairs become swaps; larger groups
// abort the flush.
//
// The post-commit list is reconstructed without mutating anything:
// existing methods first, then per record its ordinary clones followed
// by its installed special methods, in registration order.
func (s *Session) planDuplicates(installs map[*MergeRecord][]*ir.MethodDef) ([]swapPair, error) {
	var dests []*ir.TypeDef
	seen := map[*ir.TypeDef]bool{}
	for _, rec := range s.records {
		if !seen[rec.Dest] {
			seen[rec.Dest] = true
			dests = append(dests, rec.Dest)
		}
	}

	var swaps []swapPair
	for _, dest := range dests {
		final := slices.Clone(dest.Methods)
		for _, rec := range s.records {
			if rec.Dest != dest {
				continue
			}
			final = append(final, rec.Methods...)
			final = append(final, installs[rec]...)
		}

		groups := map[string][]*ir.MethodDef{}
		var order []string
		for _, m := range final {
			key := m.SignatureKey()
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], m)
		}
		for _, key := range order {
			group := groups[key]
			switch {
			case len(group) >= 3:
				return nil, NewAmbiguousDuplicate(dest.FullName(), group[0].SignatureString(), len(group))
			case len(group) == 2:
				swaps = append(swaps, swapPair{a: group[0], b: group[1]})
			}
		}
	}
	return swaps, nil
}

// applySwap trades the pair's contents. Parameters move with the body
// so parameter operands inside the moved instructions stay bound to
// their own definitions.
func applySwap(p swapPair) {
	a, b := p.a, p.b
	a.Body, b.Body = b.Body, a.Body
	a.Params, b.Params = b.Params, a.Params
	a.GenericParams, b.GenericParams = b.GenericParams, a.GenericParams
	a.Attributes, b.Attributes = b.Attributes, a.Attributes
	a.ImplFlags, b.ImplFlags = b.ImplFlags, a.ImplFlags
	retargetCalls(a.Body, a, b)
	retargetCalls(b.Body, a, b)
}

// retargetCalls rebinds method operands inside one moved body: a
// reference bound to either half of the pair flips to the other half,
// where the implementation it named now lives.
func retargetCalls(body *ir.MethodBody, a, b *ir.MethodDef) {
	if body == nil {
		return
	}
	for _, ins := range body.Instructions {
		op, ok := ins.Operand.(ir.MethodOperand)
		if !ok || op.Method == nil {
			continue
		}
		switch op.Method.Def() {
		case a:
			op.Method.Bind(b)
		case b:
			op.Method.Bind(a)
		}
	}
}
