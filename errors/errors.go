package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDefinition Phase = "definition" // declaration validation and generation
	PhaseExtract    Phase = "extract"    // foreign object to Go value
	PhaseBoundary   Phase = "boundary"   // fault caught at the trampoline edge
	PhaseRuntime    Phase = "runtime"    // foreign runtime operations
	PhaseLoad       Phase = "load"       // declaration file loading
	PhaseHost       Phase = "host"       // host module export
	PhaseParse      Phase = "parse"      // type expression parsing
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidGeneric Kind = "invalid_generic"
	KindModuleContext  Kind = "module_context"
	KindArgumentCount  Kind = "argument_count"
	KindFieldName      Kind = "field_name"
	KindReturnType     Kind = "return_type"
	KindTypeMismatch   Kind = "type_mismatch"
	KindInvalidData    Kind = "invalid_data"
	KindUnsupported    Kind = "unsupported"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindRegistration   Kind = "registration"
	KindBorrowConflict Kind = "borrow_conflict"
	KindPanic          Kind = "panic"
	KindVersion        Kind = "version"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Slot   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.Slot != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Slot != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", slot ")
			b.WriteString(e.Slot)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("slot ")
			b.WriteString(e.Slot)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Slot != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the declaration path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Slot sets the slot or fragment name
func (b *Builder) Slot(s string) *Builder {
	b.err.Slot = s
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Definition-phase constructors

// InvalidGeneric reports a type or const parameter on a foreign-callable function.
func InvalidGeneric(path []string, what string) *Error {
	return &Error{
		Phase:  PhaseDefinition,
		Kind:   KindInvalidGeneric,
		Path:   path,
		Detail: fmt.Sprintf("foreign-callable functions cannot have generic %s parameters", what),
	}
}

// ModuleContext reports a pass-module option on a method.
func ModuleContext(path []string) *Error {
	return &Error{
		Phase:  PhaseDefinition,
		Kind:   KindModuleContext,
		Path:   path,
		Detail: "pass_module cannot be used on methods",
	}
}

// ArgumentCount reports a native signature whose arity does not fit its protocol.
func ArgumentCount(path []string, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseDefinition,
		Kind:   KindArgumentCount,
		Path:   path,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// FieldName reports a field accessor that has no usable external name.
func FieldName(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseDefinition,
		Kind:   KindFieldName,
		Path:   path,
		Detail: detail,
	}
}

// ReturnType reports a native result type the slot cannot encode.
func ReturnType(path []string, goType, slot, detail string) *Error {
	return &Error{
		Phase:  PhaseDefinition,
		Kind:   KindReturnType,
		Path:   path,
		GoType: goType,
		Slot:   slot,
		Detail: detail,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, slot string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		Slot:   slot,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, class, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s.%s", class, name),
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// DeclError is a definition failure of a single declaration.
type DeclError struct {
	Err    error
	Class  string
	Member string
}

// DefinitionErrors collects per-declaration failures from one class assembly
// or declaration file. Sibling declarations are still processed.
type DefinitionErrors struct {
	Errors []DeclError
}

// Add records a failure for class.member.
func (d *DefinitionErrors) Add(class, member string, err error) {
	d.Errors = append(d.Errors, DeclError{Class: class, Member: member, Err: err})
}

// Len returns the number of recorded failures.
func (d *DefinitionErrors) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Errors)
}

// ErrOrNil returns d when it holds failures, nil otherwise.
func (d *DefinitionErrors) ErrOrNil() error {
	if d.Len() == 0 {
		return nil
	}
	return d
}

func (d *DefinitionErrors) Error() string {
	if len(d.Errors) == 0 {
		return "[definition] no declarations failed"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d declaration(s) failed:\n", len(d.Errors)))

	// Group by class for cleaner output
	byClass := make(map[string][]DeclError)
	var order []string
	for _, e := range d.Errors {
		if _, exists := byClass[e.Class]; !exists {
			order = append(order, e.Class)
		}
		byClass[e.Class] = append(byClass[e.Class], e)
	}

	for _, class := range order {
		b.WriteString("\n  ")
		b.WriteString(class)
		b.WriteString(":\n")
		for _, e := range byClass[class] {
			b.WriteString("    - ")
			b.WriteString(e.Member)
			b.WriteString(": ")
			b.WriteString(e.Err.Error())
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (d *DefinitionErrors) Unwrap() []error {
	errs := make([]error, len(d.Errors))
	for i, e := range d.Errors {
		errs[i] = e.Err
	}
	return errs
}

// Is reports whether target matches this error type
func (d *DefinitionErrors) Is(target error) bool {
	_, ok := target.(*DefinitionErrors)
	return ok
}
