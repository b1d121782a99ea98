package trampoline

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/foreign"
	"github.com/wippyai/slotbridge/slots"
)

// GenerateMethod generates the callable descriptor of an ordinary method.
// Arguments are positional and must match the native's value parameters.
func GenerateMethod(n *Native) (*foreign.MethodDef, error) {
	p, err := PlanFor(&n.Method)
	if err != nil {
		return nil, err
	}
	if p.Category != slots.CategoryOrdinary {
		return nil, wrongCategory(n, p, "an ordinary method")
	}
	b, err := newBinding(n, p)
	if err != nil {
		return nil, err
	}

	name := n.Method.Name
	want := len(n.Method.ValueParams())
	fn := func(ctx context.Context, self abi.Ref, args []abi.Ref) abi.Ref {
		rt := foreign.RuntimeFrom(ctx)
		if rt == nil {
			Logger().Error("method invoked without a foreign runtime", zap.Strings("path", b.path))
			return abi.Null
		}
		tok, release := rt.Acquire(ctx)
		defer release()

		if len(args) != want {
			tok.SetError(foreign.TypeError.Newf("%s() takes %d positional arguments but %d were given",
				name, want, len(args)))
			return abi.Null
		}
		raw := make([]uint64, len(args))
		for i, a := range args {
			raw[i] = abi.EncodeRef(a)
		}
		w, err := RunGuarded(b.path, func() (uint64, error) {
			return b.call(tok, self, raw)
		})
		if err != nil {
			tok.SetError(err)
			return abi.Null
		}
		return abi.DecodeRef(w)
	}

	Logger().Debug("method generated",
		zap.Strings("path", b.path),
		zap.Stringer("kind", n.Method.Kind))

	return &foreign.MethodDef{Name: name, Kind: n.Method.Kind, Func: fn}, nil
}
