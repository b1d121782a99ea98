package trampoline

import (
	"go.uber.org/zap"

	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/foreign"
)

// RunGuarded runs fn and converts a panic into a PanicException. Every
// generated entry point runs its body through RunGuarded so a native fault
// never unwinds into the foreign caller.
func RunGuarded[T any](path []string, fn func() (T, error)) (result T, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		Logger().Error("native panic at slot boundary",
			zap.Strings("path", path),
			zap.Any("panic", r),
			zap.Stack("stack"))

		cause := errors.New(errors.PhaseBoundary, errors.KindPanic).
			Path(path...).
			Value(r).
			Detail("%v", r).
			Build()
		if e, ok := r.(error); ok {
			cause.Cause = e
		}
		var zero T
		result = zero
		err = foreign.PanicException.Newf("%v", r).WithCause(cause)
	}()
	return fn()
}
