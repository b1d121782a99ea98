package foreign

import (
	"errors"
	"fmt"
)

// ExcType is a foreign exception class.
type ExcType struct {
	Base *ExcType
	Name string
}

// Built-in exception classes.
var (
	BaseException       = &ExcType{Name: "BaseException"}
	StandardException   = &ExcType{Name: "Exception", Base: BaseException}
	TypeError           = &ExcType{Name: "TypeError", Base: StandardException}
	ValueError          = &ExcType{Name: "ValueError", Base: StandardException}
	AttributeError      = &ExcType{Name: "AttributeError", Base: StandardException}
	LookupError         = &ExcType{Name: "LookupError", Base: StandardException}
	KeyError            = &ExcType{Name: "KeyError", Base: LookupError}
	IndexError          = &ExcType{Name: "IndexError", Base: LookupError}
	ArithmeticError     = &ExcType{Name: "ArithmeticError", Base: StandardException}
	OverflowError       = &ExcType{Name: "OverflowError", Base: ArithmeticError}
	ZeroDivisionError   = &ExcType{Name: "ZeroDivisionError", Base: ArithmeticError}
	RuntimeError        = &ExcType{Name: "RuntimeError", Base: StandardException}
	NotImplementedError = &ExcType{Name: "NotImplementedError", Base: RuntimeError}
	StopIteration       = &ExcType{Name: "StopIteration", Base: StandardException}
	StopAsyncIteration  = &ExcType{Name: "StopAsyncIteration", Base: StandardException}
	SystemError         = &ExcType{Name: "SystemError", Base: StandardException}
	// PanicException reports a native fault caught at a trampoline boundary.
	// It derives from BaseException so generic handlers do not swallow it.
	PanicException = &ExcType{Name: "PanicException", Base: BaseException}
)

// IsSubclass reports whether t is base or derives from it.
func (t *ExcType) IsSubclass(base *ExcType) bool {
	for c := t; c != nil; c = c.Base {
		if c == base {
			return true
		}
	}
	return false
}

// New creates an exception of type t.
func (t *ExcType) New(msg string) *Exception {
	return &Exception{Type: t, Msg: msg}
}

// Newf creates an exception of type t with a formatted message.
func (t *ExcType) Newf(format string, args ...any) *Exception {
	return &Exception{Type: t, Msg: fmt.Sprintf(format, args...)}
}

// Exception is a raised foreign exception.
type Exception struct {
	Type  *ExcType
	Value any
	Cause error
	Msg   string
}

func (e *Exception) Error() string {
	if e.Msg == "" {
		return e.Type.Name
	}
	return e.Type.Name + ": " + e.Msg
}

func (e *Exception) Unwrap() error {
	return e.Cause
}

// Matches reports whether e is an instance of t.
func (e *Exception) Matches(t *ExcType) bool {
	return e != nil && e.Type.IsSubclass(t)
}

// WithValue attaches a payload, such as the value carried by StopIteration.
func (e *Exception) WithValue(v any) *Exception {
	e.Value = v
	return e
}

// WithCause attaches the underlying Go error.
func (e *Exception) WithCause(err error) *Exception {
	e.Cause = err
	return e
}

// ToException converts a native error into the exception raised for it.
// Errors that are not exceptions become RuntimeError.
func ToException(err error) *Exception {
	if err == nil {
		return nil
	}
	var exc *Exception
	if errors.As(err, &exc) {
		return exc
	}
	return &Exception{Type: RuntimeError, Msg: err.Error(), Cause: err}
}

// IsException reports whether err is an exception of type t.
func IsException(err error, t *ExcType) bool {
	var exc *Exception
	return errors.As(err, &exc) && exc.Matches(t)
}
