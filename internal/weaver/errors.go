package weaver

import (
	"errors"
	"fmt"
)

// WeaveError represents an error detected while staging or flushing a
// weave.
//
// Weave errors include:
//   - Invalid argument: nil/missing required substructure, misused session
//   - Structural assumption violated: expected split-point instruction
//     absent in a special method
//   - Unresolved import: destination module cannot construct a valid
//     reference
//   - Ambiguous duplicate: three or more mutually duplicate signatures
//
// All are fatal to the enclosing Merge/Flush call; none are retried.
type WeaveError struct {
	// Code identifies the error category.
	Code WeaveErrorCode

	// Message is a human-readable description.
	Message string

	// Module identifies the affected module, when known.
	Module string

	// Type identifies the affected type, when known.
	Type string

	// Member identifies the affected member, when known.
	Member string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, when wrapping.
	Err error
}

// WeaveErrorCode categorizes weave errors.
type WeaveErrorCode string

const (
	// ErrCodeInvalidArgument indicates a nil or structurally unusable input.
	ErrCodeInvalidArgument WeaveErrorCode = "INVALID_ARGUMENT"

	// ErrCodeStructuralViolation indicates a special method without its
	// required split-point instruction.
	ErrCodeStructuralViolation WeaveErrorCode = "STRUCTURAL_ASSUMPTION_VIOLATED"

	// ErrCodeUnresolvedImport indicates the destination module cannot
	// construct a valid reference to another module.
	ErrCodeUnresolvedImport WeaveErrorCode = "UNRESOLVED_IMPORT"

	// ErrCodeAmbiguousDuplicate indicates three or more methods share one
	// full signature on a destination type.
	ErrCodeAmbiguousDuplicate WeaveErrorCode = "AMBIGUOUS_DUPLICATE"
)

// Error implements the error interface.
func (e *WeaveError) Error() string {
	switch {
	case e.Type != "" && e.Member != "":
		return fmt.Sprintf("%s: %s (type=%s, member=%s)", e.Code, e.Message, e.Type, e.Member)
	case e.Type != "":
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.Type)
	case e.Module != "":
		return fmt.Sprintf("%s: %s (module=%s)", e.Code, e.Message, e.Module)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *WeaveError) Unwrap() error { return e.Err }

// IsInvalidArgument returns true if the error is an invalid-argument
// error. Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool { return hasCode(err, ErrCodeInvalidArgument) }

// IsStructuralViolation returns true if the error is a
// structural-assumption violation. Uses errors.As to handle wrapped errors.
func IsStructuralViolation(err error) bool { return hasCode(err, ErrCodeStructuralViolation) }

// IsUnresolvedImport returns true if the error is an unresolved-import
// error. Uses errors.As to handle wrapped errors.
func IsUnresolvedImport(err error) bool { return hasCode(err, ErrCodeUnresolvedImport) }

// IsAmbiguousDuplicate returns true if the error is an
// ambiguous-duplicate error. Uses errors.As to handle wrapped errors.
func IsAmbiguousDuplicate(err error) bool { return hasCode(err, ErrCodeAmbiguousDuplicate) }

func hasCode(err error, code WeaveErrorCode) bool {
	var we *WeaveError
	if errors.As(err, &we) {
		return we.Code == code
	}
	return false
}

// NewInvalidArgument creates a WeaveError for a nil or unusable input.
func NewInvalidArgument(message string) *WeaveError {
	return &WeaveError{Code: ErrCodeInvalidArgument, Message: message}
}

// NewStructuralViolation creates a WeaveError for a special method
// missing its required split-point instruction.
func NewStructuralViolation(typeName, member, message string) *WeaveError {
	return &WeaveError{
		Code:    ErrCodeStructuralViolation,
		Message: message,
		Type:    typeName,
		Member:  member,
	}
}

// NewUnresolvedImport creates a WeaveError for a reference the
// destination module cannot import.
func NewUnresolvedImport(module string, err error) *WeaveError {
	return &WeaveError{
		Code:    ErrCodeUnresolvedImport,
		Message: fmt.Sprintf("cannot construct a valid reference into module %q", module),
		Module:  module,
		Err:     err,
	}
}

// NewAmbiguousDuplicate creates a WeaveError for a signature shared by
// three or more methods on one destination type.
func NewAmbiguousDuplicate(typeName, signature string, count int) *WeaveError {
	return &WeaveError{
		Code:    ErrCodeAmbiguousDuplicate,
		Message: fmt.Sprintf("%d methods share one signature, cannot resolve a pair", count),
		Type:    typeName,
		Member:  signature,
		Details: map[string]string{"count": fmt.Sprintf("%d", count)},
	}
}
