package ir

import (
	"encoding/hex"
	"fmt"

	"github.com/minio/highwayhash"
)

// bodyHashKey seeds the HighwayHash body fingerprint. Fixed so that
// fingerprints are stable across processes; the value itself carries no
// secret.
var bodyHashKey = []byte("weld.body.fingerprint.v1........")

// BodyFingerprint hashes a method body's observable content: the
// formatted instruction stream plus local slot types. Bodies with equal
// fingerprints execute identically; the hash is keyed HighwayHash-64,
// cheap enough to run over every method when comparing merge results.
//
// A method without a body (abstract, interface) fingerprints to the
// empty string.
func BodyFingerprint(m *MethodDef) string {
	if m.Body == nil {
		return ""
	}
	h, err := highwayhash.New64(bodyHashKey)
	if err != nil {
		panic(fmt.Sprintf("body hash key invalid: %v", err))
	}
	fmt.Fprintf(h, "maxstack %d\n", m.Body.MaxStack)
	fmt.Fprintf(h, "initlocals %t\n", m.Body.InitLocals)
	for _, l := range m.Body.Locals {
		fmt.Fprintf(h, "local %s %s\n", l.Name, FormatTypeRef(l.Type))
	}
	for _, ins := range m.Body.Instructions {
		h.Write([]byte(FormatInstruction(ins)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
