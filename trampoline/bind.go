package trampoline

import (
	"context"
	"math"
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/foreign"
	"github.com/wippyai/slotbridge/slots"
)

type argBinding struct {
	typ  reflect.Type
	raw  int
	kind abi.Kind
	mode ExtractMode
	ctx  ctxKind
}

// binding is the generated body shared by slots, fragments, accessors and
// ordinary methods. It holds only immutable generation output.
type binding struct {
	native *Native
	plan   *Plan
	path   []string
	args   []argBinding
}

func newBinding(n *Native, p *Plan) (*binding, error) {
	b := &binding{native: n, plan: p, path: n.Method.Path()}
	raw := 0
	for i, a := range p.Args {
		prm := n.params[i]
		ab := argBinding{typ: prm.typ, kind: a.Kind, mode: a.Extract, ctx: prm.ctx, raw: -1}
		if a.Extract != ExtractContext {
			ab.raw = raw
			raw++
		}
		if a.Extract == ExtractCompareOp && !isIntKind(prm.typ.Kind()) {
			return nil, errors.TypeMismatch(errors.PhaseDefinition, b.path, prm.typ.String(), p.FnType)
		}
		b.args = append(b.args, ab)
	}
	return b, nil
}

// notImplemented is the fallback result of a cooperative slot.
func notImplemented(tok foreign.Token) uint64 {
	return abi.EncodeRef(tok.NewRef(tok.NotImplemented()))
}

// call runs the body against the receiver self and the raw argument words.
// A failure is returned as an error; the caller decides how to report it.
func (b *binding) call(tok foreign.Token, self abi.Ref, raw []uint64) (uint64, error) {
	if b.plan.Hook == slots.HookGenericGetAttr && len(raw) > 0 {
		r, err := tok.GenericGetAttr(self, abi.DecodeRef(raw[0]))
		if err == nil {
			return abi.EncodeRef(r), nil
		}
		// Only a missing attribute reaches the native. Failures raised by
		// property getters, native faults included, propagate unchanged.
		if !foreign.IsException(err, foreign.AttributeError) {
			return 0, err
		}
		Logger().Debug("generic attribute lookup failed, calling native",
			zap.Strings("path", b.path), zap.Error(err))
		tok.ClearError()
	}

	// Operator codes are checked against the raw words before anything
	// else, so an invalid code fails the same way for every operand.
	for i, k := range b.plan.Kinds {
		if k == abi.KindCompareCode && i < len(raw) {
			if _, ok := abi.CompareOpFromRaw(abi.DecodeInt(raw[i])); !ok {
				return 0, foreign.ValueError.New("invalid comparison operator")
			}
		}
	}

	in := make([]reflect.Value, 0, len(b.args)+1)
	var releases []func()
	defer func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}()

	switch b.plan.Receiver {
	case slots.ReceiverShared, slots.ReceiverExclusive:
		exclusive := b.plan.Receiver == slots.ReceiverExclusive
		v, release, err := tok.Borrow(self, b.native.class.GoType, exclusive)
		if err != nil {
			if b.plan.ErrorMode == slots.ErrorFallback {
				return notImplemented(tok), nil
			}
			return 0, err
		}
		releases = append(releases, release)
		if exclusive {
			v = v.Addr()
		}
		in = append(in, v)
	case slots.ReceiverClass:
		obj, _ := tok.Value(self)
		cls, ok := obj.(*foreign.Type)
		if !ok {
			return 0, foreign.TypeError.Newf("descriptor requires a type, got '%s'", tok.TypeName(self))
		}
		in = append(in, reflect.ValueOf(cls))
	}

	for _, a := range b.args {
		if a.mode == ExtractContext {
			if a.ctx == ctxToken {
				in = append(in, reflect.ValueOf(tok))
			} else {
				in = append(in, reflect.ValueOf(tok.Context()))
			}
			continue
		}

		var w uint64
		if a.raw < len(raw) {
			w = raw[a.raw]
		}
		v, release, err := b.extract(tok, w, a)
		if err != nil {
			if a.kind == abi.KindObjectOrFallback {
				Logger().Debug("operand not applicable",
					zap.Strings("path", b.path), zap.Error(err))
				return notImplemented(tok), nil
			}
			return 0, err
		}
		if release != nil {
			releases = append(releases, release)
		}
		in = append(in, v)
	}

	outs := b.native.fn.Call(in)
	if b.native.Method.Fallible {
		if errV := outs[len(outs)-1]; !errV.IsNil() {
			return 0, errV.Interface().(error)
		}
	}
	return b.convert(tok, self, outs)
}

func (b *binding) extract(tok foreign.Token, w uint64, a argBinding) (reflect.Value, func(), error) {
	switch a.kind {
	case abi.KindCompareCode:
		op, ok := abi.CompareOpFromRaw(abi.DecodeInt(w))
		if !ok {
			return reflect.Value{}, nil, foreign.ValueError.New("invalid comparison operator")
		}
		return reflect.ValueOf(op).Convert(a.typ), nil, nil
	case abi.KindInt, abi.KindHashInt, abi.KindSizeInt:
		return reflect.ValueOf(abi.Decode(a.kind, w)).Convert(a.typ), nil, nil
	}

	r := abi.DecodeRef(w)
	if a.mode == ExtractRef {
		return reflect.ValueOf(r).Convert(a.typ), nil, nil
	}
	if a.mode == ExtractExclusive && a.typ.Kind() == reflect.Pointer {
		if _, ok := tok.Runtime().TypeFor(a.typ.Elem()); ok {
			v, release, err := tok.Borrow(r, a.typ.Elem(), true)
			if err != nil {
				return reflect.Value{}, nil, err
			}
			return v.Addr(), release, nil
		}
	}
	v, err := tok.Extract(r, a.typ)
	return v, nil, err
}

// convert encodes the native result as the word the slot returns.
func (b *binding) convert(tok foreign.Token, self abi.Ref, outs []reflect.Value) (uint64, error) {
	p := b.plan
	if p.Return == slots.ReturnReceiver {
		tok.IncRef(self)
		return abi.EncodeRef(self), nil
	}

	var res reflect.Value
	if b.native.results == 1 {
		res = outs[0]
	}

	switch p.Output {
	case slots.OutputHash:
		return abi.EncodeHash(wordOf(res)), nil
	case slots.OutputIterNext:
		out, ok := res.Interface().(foreign.IterNextOutput)
		if !ok {
			return 0, foreign.SystemError.Newf("%s returned %s", b.plan.Method, res.Type())
		}
		if out.Done {
			return 0, foreign.StopIteration.New("").WithValue(out.Value)
		}
		return b.object(tok, reflect.ValueOf(out.Value))
	case slots.OutputIterANext:
		out, ok := res.Interface().(foreign.IterANextOutput)
		if !ok {
			return 0, foreign.SystemError.Newf("%s returned %s", b.plan.Method, res.Type())
		}
		if out.Done {
			return 0, foreign.StopAsyncIteration.New("").WithValue(out.Value)
		}
		return b.object(tok, reflect.ValueOf(out.Value))
	}

	switch p.Ret {
	case abi.KindSizeInt:
		if isUint(res) && res.Uint() > math.MaxInt64 {
			return 0, foreign.OverflowError.New("cannot fit 'int' into an index-sized integer")
		}
		n := wordOf(res)
		if n < 0 {
			return 0, foreign.ValueError.New("__len__() should return >= 0")
		}
		return abi.EncodeSize(n), nil
	case abi.KindInt:
		if res.IsValid() && res.Kind() == reflect.Bool && res.Bool() {
			return abi.EncodeInt(1), nil
		}
		return abi.EncodeInt(0), nil
	case abi.KindUnit:
		return 0, nil
	}
	return b.object(tok, res)
}

func (b *binding) object(tok foreign.Token, v reflect.Value) (uint64, error) {
	if !v.IsValid() {
		return abi.EncodeRef(tok.NewRef(tok.None())), nil
	}
	r, err := tok.ToObjectValue(v)
	if err != nil {
		return 0, err
	}
	return abi.EncodeRef(r), nil
}

func isUint(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func wordOf(v reflect.Value) int64 {
	if isUint(v) {
		return int64(v.Uint())
	}
	return v.Int()
}

// SlotBody is the typed body of a raw slot: the held token, the receiver and
// the raw argument words in, the raw result word out.
type SlotBody func(tok foreign.Token, self abi.Ref, args []uint64) (uint64, error)

// GuardedSlot wraps body as a raw slot function. The body runs while the
// exclusivity token is held and inside RunGuarded. A failure sets the error
// indicator and writes the failure word of fnType's result.
func GuardedSlot(path []string, fnType abi.FnPointer, body SlotBody) abi.SlotFunc {
	failure := fnType.Result.ErrorValue()
	return func(ctx context.Context, stack []uint64) {
		rt := foreign.RuntimeFrom(ctx)
		if rt == nil {
			Logger().Error("slot invoked without a foreign runtime", zap.Strings("path", path))
			stack[0] = failure
			return
		}
		tok, release := rt.Acquire(ctx)
		defer release()

		self := abi.DecodeRef(stack[0])
		w, err := RunGuarded(path, func() (uint64, error) {
			return body(tok, self, stack[1:])
		})
		if err != nil {
			tok.SetError(err)
			w = failure
		}
		stack[0] = w
	}
}
