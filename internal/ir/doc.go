// Package ir provides the object model for parsed compiled modules.
//
// This package contains the module/type/member graph, the instruction
// stream representation, and the reference machinery that every other
// internal package builds on. ir imports nothing internal; assembler,
// weaver, store, cli, and harness all import ir. This keeps the object
// model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - constants are int64, string, bool, or label
//   - Instruction operands form a sealed, closed variant set; every pass
//     that dispatches on operand kind must handle all variants exhaustively
//   - Identity-scoped ownership: two Modules never share mutable type nodes
//   - Names are NFC-normalized at the signature/hashing boundary, never
//     silently rewritten in place
package ir
