package trampoline

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/slotbridge/abi"
	slerrors "github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/foreign"
	"github.com/wippyai/slotbridge/slots"
)

type counter struct {
	Label string
	N     int64
}

type pair struct {
	A    int64
	B    string
	note string
}

func setup(t *testing.T) (*foreign.Runtime, *foreign.Type) {
	t.Helper()
	rt := foreign.NewRuntime()
	t.Cleanup(func() { _ = rt.Close() })
	return rt, rt.NewType("Counter", reflect.TypeOf(counter{}))
}

func run(rt *foreign.Runtime, fn func(tok foreign.Token)) {
	_ = rt.With(context.Background(), func(tok foreign.Token) error {
		fn(tok)
		return nil
	})
}

func describe(t *testing.T, typ *foreign.Type, name string, fn any, opts ...Option) *Native {
	t.Helper()
	n, err := Describe(typ, name, fn, opts...)
	if err != nil {
		t.Fatalf("Describe(%s): %v", name, err)
	}
	return n
}

func installSlot(t *testing.T, typ *foreign.Type, name string, fn any) *Trampoline {
	t.Helper()
	tr, err := GenerateSlot(describe(t, typ, name, fn))
	if err != nil {
		t.Fatalf("GenerateSlot(%s): %v", name, err)
	}
	typ.SetSlot(tr.Slot, tr.FnType, tr.Func)
	return tr
}

func newCounter(t *testing.T, tok foreign.Token, c *counter) abi.Ref {
	t.Helper()
	r, err := tok.ToObject(c)
	if err != nil {
		t.Fatalf("ToObject: %v", err)
	}
	return r
}

func isDefinitionError(err error, kind slerrors.Kind) bool {
	return errors.Is(err, &slerrors.Error{Phase: slerrors.PhaseDefinition, Kind: kind})
}

func TestRunGuarded(t *testing.T) {
	path := []string{"Counter", "__len__"}

	t.Run("passes results through", func(t *testing.T) {
		got, err := RunGuarded(path, func() (int, error) { return 7, nil })
		if err != nil || got != 7 {
			t.Fatalf("got %d, %v", got, err)
		}
	})

	t.Run("converts a panic", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		SetLogger(zap.New(core))
		defer SetLogger(zap.NewNop())

		got, err := RunGuarded(path, func() (int, error) { panic("boom") })
		if got != 0 {
			t.Errorf("result = %d, want zero value", got)
		}
		if !foreign.IsException(err, foreign.PanicException) {
			t.Fatalf("err = %v, want PanicException", err)
		}
		if !errors.Is(err, &slerrors.Error{Phase: slerrors.PhaseBoundary, Kind: slerrors.KindPanic}) {
			t.Errorf("err = %v, want boundary panic cause", err)
		}
		if foreign.IsException(err, foreign.StandardException) {
			t.Error("PanicException must not derive from Exception")
		}
		if logs.FilterMessage("native panic at slot boundary").Len() != 1 {
			t.Errorf("expected one boundary log entry, got %v", logs.All())
		}
	})

	t.Run("keeps a panicking error", func(t *testing.T) {
		_, err := RunGuarded(path, func() (int, error) { panic(io.EOF) })
		if !errors.Is(err, io.EOF) {
			t.Errorf("err = %v, want io.EOF in chain", err)
		}
	})
}

func TestSlotBoundary(t *testing.T) {
	rt, typ := setup(t)
	installSlot(t, typ, "__len__", func(c counter) int64 {
		if c.N == -1 {
			panic("native fault")
		}
		return c.N
	})

	run(rt, func(tok foreign.Token) {
		obj := newCounter(t, tok, &counter{N: -1})
		before := tok.RefCount(obj)

		_, err := tok.Len(obj)
		if !foreign.IsException(err, foreign.PanicException) {
			t.Fatalf("Len err = %v, want PanicException", err)
		}
		if tok.Occurred() != nil {
			t.Error("error indicator should be consumed by the caller")
		}
		if tok.RefCount(obj) != before {
			t.Errorf("refcount = %d, want %d", tok.RefCount(obj), before)
		}
		_, release, err := tok.Borrow(obj, typ.GoType, true)
		if err != nil {
			t.Fatalf("receiver still borrowed after panic: %v", err)
		}
		release()

		neg := newCounter(t, tok, &counter{N: -5})
		if _, err := tok.Len(neg); !foreign.IsException(err, foreign.ValueError) {
			t.Errorf("negative length err = %v, want ValueError", err)
		}

		ok := newCounter(t, tok, &counter{N: 3})
		if n, err := tok.Len(ok); err != nil || n != 3 {
			t.Errorf("Len = %d, %v", n, err)
		}
	})
}

func TestSlotWithoutRuntime(t *testing.T) {
	_, typ := setup(t)
	tr := installSlot(t, typ, "__hash__", func(c counter) int64 { return c.N })

	stack := []uint64{1}
	tr.Func(context.Background(), stack)
	if int64(stack[0]) != -1 {
		t.Errorf("result = %d, want the failure word", int64(stack[0]))
	}
}

func TestFallbackSentinel(t *testing.T) {
	rt, typ := setup(t)
	installSlot(t, typ, "__truediv__", func(c counter, d int64) float64 {
		return float64(c.N) / float64(d)
	})

	run(rt, func(tok foreign.Token) {
		obj := newCounter(t, tok, &counter{N: 8})
		two := tok.NewInt(2)

		r, err := tok.BinaryOp(abi.SlotTrueDivide, obj, two)
		if err != nil {
			t.Fatalf("BinaryOp: %v", err)
		}
		if f, _ := tok.AsFloat(r); f != 4 {
			t.Errorf("8 / 2 = %v", f)
		}

		s := tok.NewStr("x")
		w, err := tok.CallSlotRaw(abi.SlotTrueDivide, obj, abi.EncodeRef(s))
		if err != nil {
			t.Fatalf("operand mismatch raised %v", err)
		}
		if abi.DecodeRef(w) != tok.NotImplemented() {
			t.Errorf("result = %v, want NotImplemented", abi.DecodeRef(w))
		}

		// Reached as the right operand, the receiver is not a Counter.
		_, err = tok.BinaryOp(abi.SlotTrueDivide, two, obj)
		if !foreign.IsException(err, foreign.TypeError) ||
			!strings.Contains(err.Error(), "unsupported operand type(s) for /") {
			t.Errorf("err = %v, want unsupported operand TypeError", err)
		}
	})
}

func TestInPlaceReturnsReceiver(t *testing.T) {
	rt, typ := setup(t)
	installSlot(t, typ, "__iadd__", func(c *counter, n int64) error {
		if n < 0 {
			return errors.New("negative increment")
		}
		c.N += n
		return nil
	})

	run(rt, func(tok foreign.Token) {
		c := &counter{N: 1}
		obj := newCounter(t, tok, c)
		before := tok.RefCount(obj)

		r, err := tok.InPlaceOp(abi.SlotInPlaceAdd, obj, tok.NewInt(5))
		if err != nil {
			t.Fatalf("InPlaceOp: %v", err)
		}
		if r != obj {
			t.Errorf("result %v is not the receiver %v", r, obj)
		}
		if got := tok.RefCount(obj); got != before+1 {
			t.Errorf("refcount = %d, want %d", got, before+1)
		}
		if c.N != 6 {
			t.Errorf("N = %d, want 6", c.N)
		}
		tok.DecRef(r)

		_, err = tok.InPlaceOp(abi.SlotInPlaceAdd, obj, tok.NewInt(-1))
		if !foreign.IsException(err, foreign.RuntimeError) || !strings.Contains(err.Error(), "negative increment") {
			t.Errorf("err = %v, want RuntimeError", err)
		}
		if got := tok.RefCount(obj); got != before {
			t.Errorf("refcount after failure = %d, want %d", got, before)
		}

		_, err = tok.InPlaceOp(abi.SlotInPlaceAdd, obj, tok.NewStr("x"))
		if !foreign.IsException(err, foreign.TypeError) {
			t.Errorf("err = %v, want TypeError after both sides decline", err)
		}
		if got := tok.RefCount(obj); got != before {
			t.Errorf("refcount after fallback = %d, want %d", got, before)
		}
	})
}

func TestConcurrentCallers(t *testing.T) {
	rt, typ := setup(t)
	installSlot(t, typ, "__iadd__", func(c *counter, n int64) { c.N += n })

	c := &counter{}
	var obj abi.Ref
	run(rt, func(tok foreign.Token) { obj = newCounter(t, tok, c) })

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			return rt.With(context.Background(), func(tok foreign.Token) error {
				one := tok.NewInt(1)
				defer tok.DecRef(one)
				r, err := tok.InPlaceOp(abi.SlotInPlaceAdd, obj, one)
				if err != nil {
					return err
				}
				tok.DecRef(r)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent calls: %v", err)
	}
	if c.N != 16 {
		t.Errorf("N = %d, want 16", c.N)
	}
}

func TestRichCompare(t *testing.T) {
	rt, typ := setup(t)
	installSlot(t, typ, "__richcmp__", func(c counter, other int64, op abi.CompareOp) bool {
		switch {
		case c.N < other:
			return op.Matches(-1)
		case c.N > other:
			return op.Matches(1)
		}
		return op.Matches(0)
	})

	run(rt, func(tok foreign.Token) {
		obj := newCounter(t, tok, &counter{N: 2})
		three := tok.NewInt(3)

		r, err := tok.RichCompare(obj, three, abi.CompareLT)
		if err != nil || r != tok.Bool(true) {
			t.Fatalf("2 < 3 = %v, %v", r, err)
		}
		tok.DecRef(r)

		// Reflected: 3 > Counter(2) asks Counter for 2 < 3.
		r, err = tok.RichCompare(three, obj, abi.CompareGT)
		if err != nil || r != tok.Bool(true) {
			t.Fatalf("3 > 2 = %v, %v", r, err)
		}
		tok.DecRef(r)

		for _, operand := range []abi.Ref{three, tok.NewStr("x")} {
			_, err := tok.CallSlotRaw(abi.SlotRichCompare, obj, abi.EncodeRef(operand), abi.EncodeInt(42))
			if !foreign.IsException(err, foreign.ValueError) || !strings.Contains(err.Error(), "invalid comparison operator") {
				t.Errorf("op 42 against %s: err = %v", tok.TypeName(operand), err)
			}
		}
	})
}

func TestGetAttrHook(t *testing.T) {
	rt, typ := setup(t)
	get, err := FieldGetter(typ, slots.Field{Ident: "N"})
	if err != nil {
		t.Fatalf("FieldGetter: %v", err)
	}
	typ.SetGetSet(&foreign.GetSet{Name: get.Name, Get: get.Func})

	boom, err := MethodGetter(describe(t, typ, "boom", func(c counter) int64 { panic("getter fault") }))
	if err != nil {
		t.Fatalf("MethodGetter: %v", err)
	}
	typ.SetGetSet(&foreign.GetSet{Name: "boom", Get: boom.Func})
	bad, err := MethodGetter(describe(t, typ, "bad", func(c counter) (int64, error) {
		return 0, foreign.ValueError.New("bad value")
	}))
	if err != nil {
		t.Fatalf("MethodGetter: %v", err)
	}
	typ.SetGetSet(&foreign.GetSet{Name: "bad", Get: bad.Func})

	calls := 0
	installSlot(t, typ, "__getattr__", func(c counter, name string) (string, error) {
		calls++
		if name == "forbidden" {
			return "", foreign.AttributeError.Newf("no %s", name)
		}
		return "dynamic " + name, nil
	})

	run(rt, func(tok foreign.Token) {
		obj := newCounter(t, tok, &counter{N: 4})

		r, err := tok.GetAttr(obj, "N")
		if err != nil {
			t.Fatalf("GetAttr(N): %v", err)
		}
		if n, _ := tok.AsInt(r); n != 4 {
			t.Errorf("N = %d", n)
		}
		if calls != 0 {
			t.Fatalf("native hook called %d times for a registered attribute", calls)
		}

		r, err = tok.GetAttr(obj, "missing")
		if err != nil {
			t.Fatalf("GetAttr(missing): %v", err)
		}
		if s, _ := tok.AsStr(r); s != "dynamic missing" {
			t.Errorf("missing = %q", s)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
		if tok.Occurred() != nil {
			t.Errorf("error indicator left set: %v", tok.Occurred())
		}

		_, err = tok.GetAttr(obj, "forbidden")
		if !foreign.IsException(err, foreign.AttributeError) || !strings.Contains(err.Error(), "no forbidden") {
			t.Errorf("err = %v, want the native AttributeError", err)
		}

		calls = 0
		_, err = tok.GetAttr(obj, "boom")
		if !foreign.IsException(err, foreign.PanicException) {
			t.Errorf("GetAttr(boom) err = %v, want PanicException", err)
		}
		_, err = tok.GetAttr(obj, "bad")
		if !foreign.IsException(err, foreign.ValueError) || !strings.Contains(err.Error(), "bad value") {
			t.Errorf("GetAttr(bad) err = %v, want the getter's ValueError", err)
		}
		if calls != 0 {
			t.Errorf("native hook called %d times for failing getters", calls)
		}
		tok.ClearError()
	})
}

func TestFieldAccessors(t *testing.T) {
	rt := foreign.NewRuntime()
	defer rt.Close()
	typ := rt.NewType("Pair", reflect.TypeOf(pair{}))

	field := slots.Field{Index: 1, Name: "second"}
	get, err := FieldGetter(typ, field)
	if err != nil {
		t.Fatalf("FieldGetter: %v", err)
	}
	set, err := FieldSetter(typ, field)
	if err != nil {
		t.Fatalf("FieldSetter: %v", err)
	}
	typ.SetGetSet(&foreign.GetSet{Name: "second", Get: get.Func, Set: set.Func})

	run(rt, func(tok foreign.Token) {
		p := &pair{A: 1, B: "x"}
		obj, _ := tok.ToObject(p)

		r, err := tok.GetAttr(obj, "second")
		if err != nil {
			t.Fatalf("GetAttr: %v", err)
		}
		if s, _ := tok.AsStr(r); s != "x" {
			t.Errorf("second = %q, want x", s)
		}

		if err := tok.SetAttr(obj, "second", tok.NewStr("y")); err != nil {
			t.Fatalf("SetAttr: %v", err)
		}
		if p.B != "y" {
			t.Errorf("B = %q, want y", p.B)
		}
		r, _ = tok.GetAttr(obj, "second")
		if s, _ := tok.AsStr(r); s != "y" {
			t.Errorf("second = %q after set", s)
		}

		err = tok.DelAttr(obj, "second")
		if !foreign.IsException(err, foreign.AttributeError) || !strings.Contains(err.Error(), "can't delete attribute") {
			t.Errorf("DelAttr err = %v", err)
		}

		err = tok.SetAttr(obj, "second", tok.NewInt(3))
		if !foreign.IsException(err, foreign.TypeError) {
			t.Errorf("SetAttr(int) err = %v, want TypeError", err)
		}
	})

	tests := []struct {
		name  string
		field slots.Field
	}{
		{"positional without name", slots.Field{Index: 0}},
		{"unknown identifier", slots.Field{Ident: "C"}},
		{"index out of range", slots.Field{Index: 7, Name: "x"}},
		{"unexported", slots.Field{Ident: "note"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FieldGetter(typ, tt.field)
			if !isDefinitionError(err, slerrors.KindFieldName) {
				t.Errorf("err = %v, want field_name", err)
			}
		})
	}
}

func TestMethodAccessors(t *testing.T) {
	rt, typ := setup(t)

	set, err := MethodSetter(describe(t, typ, "value", func(c *counter, _ foreign.Token, v int64) {
		c.N = v
	}))
	if err != nil {
		t.Fatalf("MethodSetter: %v", err)
	}
	get, err := MethodGetter(describe(t, typ, "value", func(c counter) int64 { return c.N }))
	if err != nil {
		t.Fatalf("MethodGetter: %v", err)
	}
	typ.SetGetSet(&foreign.GetSet{Name: "value", Get: get.Func, Set: set.Func})

	run(rt, func(tok foreign.Token) {
		obj := newCounter(t, tok, &counter{})
		for _, want := range []int64{42, -7, 0} {
			if err := tok.SetAttr(obj, "value", tok.NewInt(want)); err != nil {
				t.Fatalf("SetAttr(%d): %v", want, err)
			}
			r, err := tok.GetAttr(obj, "value")
			if err != nil {
				t.Fatalf("GetAttr: %v", err)
			}
			if got, _ := tok.AsInt(r); got != want {
				t.Errorf("round trip = %d, want %d", got, want)
			}
			tok.DecRef(r)
		}

		if err := tok.DelAttr(obj, "value"); !foreign.IsException(err, foreign.AttributeError) {
			t.Errorf("DelAttr err = %v", err)
		}
	})

	tests := []struct {
		name   string
		setter bool
		fn     any
		detail string
	}{
		{"setter without value", true, func(c *counter) {}, "expected to have one argument"},
		{"setter with two values", true, func(c *counter, a, b int64) {}, "at most two arguments"},
		{"getter with a value", false, func(c counter, a int64) int64 { return a }, "can only have one argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := describe(t, typ, "value", tt.fn)
			var err error
			if tt.setter {
				_, err = MethodSetter(n)
			} else {
				_, err = MethodGetter(n)
			}
			if !isDefinitionError(err, slerrors.KindArgumentCount) || !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("err = %v, want argument count %q", err, tt.detail)
			}
		})
	}
}

func TestIterNext(t *testing.T) {
	rt, typ := setup(t)
	installSlot(t, typ, "__next__", func(c *counter) foreign.IterNextOutput {
		if c.N == 0 {
			return foreign.Return("done")
		}
		c.N--
		return foreign.Yield(nil)
	})

	run(rt, func(tok foreign.Token) {
		obj := newCounter(t, tok, &counter{N: 2})

		for i := 0; i < 2; i++ {
			r, ok, err := tok.Next(obj)
			if err != nil || !ok {
				t.Fatalf("step %d: ok=%v err=%v", i, ok, err)
			}
			if !tok.IsNone(r) {
				t.Errorf("step %d yielded %s, want None", i, tok.TypeName(r))
			}
		}
		if _, ok, err := tok.Next(obj); ok || err != nil {
			t.Fatalf("exhausted iterator: ok=%v err=%v", ok, err)
		}

		_, err := tok.CallSlotRaw(abi.SlotIterNext, obj)
		var exc *foreign.Exception
		if !errors.As(err, &exc) || !exc.Matches(foreign.StopIteration) {
			t.Fatalf("err = %v, want StopIteration", err)
		}
		if exc.Value != "done" {
			t.Errorf("StopIteration value = %v", exc.Value)
		}
	})
}

func TestHash(t *testing.T) {
	rt, typ := setup(t)
	installSlot(t, typ, "__hash__", func(c counter) int64 { return c.N })

	run(rt, func(tok foreign.Token) {
		for _, tt := range []struct{ n, want int64 }{{5, 5}, {-1, -2}, {-3, -3}} {
			obj := newCounter(t, tok, &counter{N: tt.n})
			got, err := tok.Hash(obj)
			if err != nil || got != tt.want {
				t.Errorf("hash(%d) = %d, %v; want %d", tt.n, got, err, tt.want)
			}
		}
	})
}

func TestDefinitionErrors(t *testing.T) {
	_, typ := setup(t)

	tests := []struct {
		name string
		gen  func() error
		kind slerrors.Kind
	}{
		{
			name: "too many arguments",
			gen: func() error {
				_, err := GenerateSlot(describe(t, typ, "__len__", func(c counter, extra int64) int64 { return 0 }))
				return err
			},
			kind: slerrors.KindArgumentCount,
		},
		{
			name: "hash returning a string",
			gen: func() error {
				_, err := GenerateSlot(describe(t, typ, "__hash__", func(c counter) string { return "" }))
				return err
			},
			kind: slerrors.KindReturnType,
		},
		{
			name: "bool returning an int",
			gen: func() error {
				_, err := GenerateSlot(describe(t, typ, "__bool__", func(c counter) int64 { return 0 }))
				return err
			},
			kind: slerrors.KindReturnType,
		},
		{
			name: "generic type parameter",
			gen: func() error {
				_, err := GenerateSlot(describe(t, typ, "__repr__", func(c counter) string { return "" },
					WithTypeParams(slots.TypeParam{Name: "T", Kind: slots.TypeParamType})))
				return err
			},
			kind: slerrors.KindInvalidGeneric,
		},
		{
			name: "pass module",
			gen: func() error {
				_, err := GenerateSlot(describe(t, typ, "__repr__", func(c counter) string { return "" }, WithPassModule()))
				return err
			},
			kind: slerrors.KindModuleContext,
		},
		{
			name: "wrong receiver",
			gen: func() error {
				_, err := Describe(typ, "__len__", func(p pair) int64 { return 0 })
				return err
			},
			kind: slerrors.KindInvalidInput,
		},
		{
			name: "fragment through the slot generator",
			gen: func() error {
				_, err := GenerateSlot(describe(t, typ, "__add__", func(c counter, n int64) int64 { return n }))
				return err
			},
			kind: slerrors.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gen()
			if !isDefinitionError(err, tt.kind) {
				t.Errorf("err = %v, want %s", err, tt.kind)
			}
		})
	}

	t.Run("arity message", func(t *testing.T) {
		_, err := GenerateSlot(describe(t, typ, "__len__", func(c counter, _ foreign.Token, a, b int64) int64 { return 0 }))
		if err == nil || !strings.Contains(err.Error(), "expected at most 0 non-context arguments") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("fewer arguments are allowed", func(t *testing.T) {
		if _, err := GenerateSlot(describe(t, typ, "__richcmp__", func(c counter, other int64) bool { return false })); err != nil {
			t.Errorf("GenerateSlot: %v", err)
		}
	})
}

func TestFragments(t *testing.T) {
	rt, typ := setup(t)

	add, err := GenerateFragment(describe(t, typ, "__add__", func(c counter, n int64) int64 { return c.N + n }))
	if err != nil {
		t.Fatalf("GenerateFragment: %v", err)
	}
	if add.Name() != "AddSlotFragment" || add.Role != slots.RoleForward || add.Slot != abi.SlotAdd {
		t.Errorf("fragment = %s %v %s", add.Name(), add.Role, add.Slot)
	}
	setitem, err := GenerateFragment(describe(t, typ, "__setitem__", func(c *counter, key string, v int64) {
		c.Label, c.N = key, v
	}))
	if err != nil {
		t.Fatalf("GenerateFragment: %v", err)
	}

	run(rt, func(tok foreign.Token) {
		c := &counter{N: 1}
		obj := newCounter(t, tok, c)

		w, err := add.Invoke(tok, obj, []uint64{abi.EncodeRef(tok.NewInt(2))})
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if n, _ := tok.AsInt(abi.DecodeRef(w)); n != 3 {
			t.Errorf("1 + 2 = %d", n)
		}

		w, err = add.Invoke(tok, tok.NewInt(2), []uint64{abi.EncodeRef(obj)})
		if err != nil || abi.DecodeRef(w) != tok.NotImplemented() {
			t.Errorf("foreign receiver: %v, %v; want NotImplemented", abi.DecodeRef(w), err)
		}

		w, err = setitem.Invoke(tok, obj, []uint64{abi.EncodeRef(tok.NewStr("k")), abi.EncodeRef(tok.NewInt(9))})
		if err != nil || w != 0 {
			t.Fatalf("setitem: %d, %v", w, err)
		}
		if c.Label != "k" || c.N != 9 {
			t.Errorf("counter = %+v", *c)
		}

		_, err = setitem.Invoke(tok, obj, []uint64{abi.EncodeRef(tok.NewInt(1)), abi.EncodeRef(tok.NewInt(9))})
		if !foreign.IsException(err, foreign.TypeError) {
			t.Errorf("bad key err = %v, want TypeError", err)
		}
	})
}

func TestGenerateMethod(t *testing.T) {
	rt, typ := setup(t)

	install := func(name string, fn any, opts ...Option) {
		t.Helper()
		def, err := GenerateMethod(describe(t, typ, name, fn, opts...))
		if err != nil {
			t.Fatalf("GenerateMethod(%s): %v", name, err)
		}
		typ.AddMethod(def)
	}
	install("scale", func(c counter, k int64) int64 { return c.N * k })
	install("double", func(x int64) int64 { return 2 * x }, WithKind(abi.MethodStatic))
	install("describe", func(cls *foreign.Type) string { return cls.Name }, WithKind(abi.MethodClass))
	install("__new__", func(n int64) *counter { return &counter{N: n} }, WithKind(abi.MethodNew))

	run(rt, func(tok foreign.Token) {
		obj := newCounter(t, tok, &counter{N: 2})

		r, err := tok.CallMethod(obj, "scale", tok.NewInt(3))
		if err != nil {
			t.Fatalf("scale: %v", err)
		}
		if n, _ := tok.AsInt(r); n != 6 {
			t.Errorf("scale = %d", n)
		}

		_, err = tok.CallMethod(obj, "scale")
		if !foreign.IsException(err, foreign.TypeError) || !strings.Contains(err.Error(), "takes 1 positional arguments but 0 were given") {
			t.Errorf("arity err = %v", err)
		}

		r, err = tok.CallMethod(typ.Ref(), "double", tok.NewInt(4))
		if n, _ := tok.AsInt(r); err != nil || n != 8 {
			t.Errorf("double = %d, %v", n, err)
		}

		r, err = tok.CallMethod(typ.Ref(), "describe")
		if s, _ := tok.AsStr(r); err != nil || s != "Counter" {
			t.Errorf("describe = %q, %v", s, err)
		}

		r, err = tok.Call(typ.Ref(), tok.NewInt(9))
		if err != nil {
			t.Fatalf("construct: %v", err)
		}
		inst, ok := tok.AsInstance(r)
		if !ok || inst.Value.Interface().(counter).N != 9 {
			t.Errorf("constructed %v", inst)
		}
	})

	if _, err := GenerateMethod(describe(t, typ, "__len__", func(c counter) int64 { return 0 })); !isDefinitionError(err, slerrors.KindInvalidInput) {
		t.Errorf("protocol method through GenerateMethod: %v", err)
	}
}
