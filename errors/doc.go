// Package errors provides structured error types for slotbridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: declaration path, Go type and slot names, and
// cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDefinition, errors.KindArgumentCount).
//		Path("Counter", "__setitem__").
//		Slot("mp_ass_subscript").
//		Detail("expected at most %d non-context arguments", 2).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidGeneric(path, "type")
//	err := errors.FieldName(path, "positional fields require an explicit name")
//
// DefinitionErrors aggregates failures of independent declarations so that one
// bad declaration never hides or aborts its siblings.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
