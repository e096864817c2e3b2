package ir

// FormatVersion identifies the object-model revision a stored module
// image was written with. Bump on any change to the dump grammar, the
// opcode set, or the canonical hashing inputs; readers refuse images
// written with a different format version.
const FormatVersion = 1
