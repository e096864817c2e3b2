// Package store provides SQLite-backed module images.
//
// An image is a single-module database with three tables:
//   - module: identity row (name, version, format version, fingerprint)
//   - imports: the module's reference-table imports in first-import order
//   - types: one JSON document per top-level type, in declaration order
//
// Instruction streams are not stored as JSON. Each method body travels
// inside its type document as a list of canonical instruction lines and
// is re-parsed on load, so the text format in internal/ir is the wire
// format for code.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Read-only opens skip the journal pragmas; those require write access.
//
// The stored fingerprint is computed over the canonical dump of the
// module via internal/ir using RFC 8785 canonical JSON and HighwayHash
// with domain separation, and is refreshed on every write.
package store
