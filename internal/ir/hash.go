package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash domains. Domain separation prevents a signature key from ever
// colliding with a module fingerprint even for identical input bytes.
const (
	domainSignature   = "weld/signature/v1"
	domainFingerprint = "weld/module/v1"
)

// hashWithDomain computes SHA-256 over domain || 0x00 || data.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// signatureDoc builds the canonical value hashed into a signature key.
// Identity covers name, instance-ness, generic arity, parameter types,
// and return type. It deliberately excludes parameter NAMES, flags, and
// the declaring type: two methods match when a call site could not tell
// them apart.
func signatureDoc(name string, hasThis bool, genericArity int, params []*TypeRef, ret *TypeRef) map[string]any {
	paramDocs := make([]any, len(params))
	for i, p := range params {
		paramDocs[i] = FormatTypeRef(p)
	}
	return map[string]any{
		"arity":   genericArity,
		"hasthis": hasThis,
		"name":    name,
		"params":  paramDocs,
		"return":  FormatTypeRef(ret),
	}
}

// SignatureKey returns the content-addressed identity of a method
// definition. Two definitions with equal keys are duplicates from the
// caller's point of view.
func (m *MethodDef) SignatureKey() string {
	paramTypes := make([]*TypeRef, len(m.Params))
	for i, p := range m.Params {
		paramTypes[i] = p.Type
	}
	doc := signatureDoc(m.Name, m.HasThis(), len(m.GenericParams), paramTypes, m.Return)
	data, err := MarshalCanonical(doc)
	if err != nil {
		// The doc contains only strings, ints, and bools.
		panic(fmt.Sprintf("signature doc not canonicalizable: %v", err))
	}
	return hashWithDomain(domainSignature, data)
}

// SignatureKey returns the identity a call site addresses. A reference
// and a definition with equal keys resolve to each other.
func (r *MethodRef) SignatureKey() string {
	doc := signatureDoc(r.Name, r.HasThis, r.GenericArity, r.Params, r.Return)
	data, err := MarshalCanonical(doc)
	if err != nil {
		panic(fmt.Sprintf("signature doc not canonicalizable: %v", err))
	}
	return hashWithDomain(domainSignature, data)
}

// SignatureString renders a human-readable signature for diagnostics
// and error details. Not an identity: use SignatureKey for comparison.
func (m *MethodDef) SignatureString() string {
	var sb strings.Builder
	if m.HasThis() {
		sb.WriteString("instance ")
	}
	sb.WriteString(FormatTypeRef(m.Return))
	sb.WriteByte(' ')
	sb.WriteString(m.Name)
	if n := len(m.GenericParams); n > 0 {
		fmt.Fprintf(&sb, "`%d", n)
	}
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatTypeRef(p.Type))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Fingerprint computes the content hash of the whole module from its
// canonical disassembly. Stored images carry it so a reader can detect
// corruption or drift.
func (m *Module) Fingerprint() string {
	return hashWithDomain(domainFingerprint, []byte(Dump(m)))
}
