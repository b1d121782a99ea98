package wasmabi

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/class"
	slerrors "github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/foreign"
	"github.com/wippyai/slotbridge/slots"
)

type Counter struct {
	N int64
}

func buildCounter(t *testing.T) (*foreign.Runtime, *foreign.Type) {
	t.Helper()
	rt := foreign.NewRuntime()
	t.Cleanup(func() { _ = rt.Close() })

	var typ *foreign.Type
	err := rt.With(context.Background(), func(tok foreign.Token) error {
		var err error
		typ, err = class.New[Counter]("Counter").
			Method("__len__", func(c Counter) int64 {
				if c.N < 0 {
					panic("negative counter")
				}
				return c.N
			}).
			Method("__hash__", func(c Counter) int64 { return c.N }).
			Method("__add__", func(c Counter, o Counter) Counter { return Counter{c.N + o.N} }).
			Field(slots.Field{Ident: "N", Get: true, Set: true}).
			Build(tok)
		return err
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return rt, typ
}

func newObject(t *testing.T, rt *foreign.Runtime, v any) abi.Ref {
	t.Helper()
	var r abi.Ref
	err := rt.With(context.Background(), func(tok foreign.Token) error {
		var err error
		r, err = tok.ToObject(v)
		return err
	})
	if err != nil {
		t.Fatalf("ToObject: %v", err)
	}
	return r
}

func TestFunctions(t *testing.T) {
	_, typ := buildCounter(t)

	var names []string
	for _, f := range Functions(typ) {
		names = append(names, f.Name+":"+f.FnType.Name)
	}
	want := []string{
		"get_N:getter",
		"mp_length:lenfunc",
		"nb_add:binaryfunc",
		"set_N:setter",
		"tp_hash:hashfunc",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("Functions mismatch (-want +got):\n%s", diff)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	rt, typ := buildCounter(t)

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	mod, err := Export(ctx, r, rt, typ)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	// Host modules forbid ExportedFunction, so calls go through the
	// exported definitions the way an importing guest would reach them.
	defs := mod.ExportedFunctionDefinitions()
	call := func(name string, params ...uint64) uint64 {
		t.Helper()
		def, ok := defs[name]
		if !ok {
			t.Fatalf("%s not exported", name)
		}
		if len(params) != len(def.ParamTypes()) {
			t.Fatalf("%s takes %d params, got %d", name, len(def.ParamTypes()), len(params))
		}
		fn, ok := def.GoFunction().(api.GoModuleFunc)
		if !ok {
			t.Fatalf("%s is %T, want api.GoModuleFunc", name, def.GoFunction())
		}
		stack := make([]uint64, max(len(params), len(def.ResultTypes()), 1))
		copy(stack, params)
		fn.Call(ctx, mod, stack)
		return stack[0]
	}

	three := newObject(t, rt, &Counter{N: 3})
	minusOne := newObject(t, rt, &Counter{N: -1})

	if n := int64(call("mp_length", abi.EncodeRef(three))); n != 3 {
		t.Errorf("mp_length = %d", n)
	}
	if h := int64(call("tp_hash", abi.EncodeRef(minusOne))); h != -2 {
		t.Errorf("tp_hash(-1) = %d, want -2", h)
	}

	sum := abi.DecodeRef(call("nb_add", abi.EncodeRef(three), abi.EncodeRef(three)))
	got := newObject(t, rt, int64(10))
	if code := api.DecodeI32(call("set_N", abi.EncodeRef(three), abi.EncodeRef(got))); code != 0 {
		t.Errorf("set_N = %d", code)
	}
	if n := int64(call("mp_length", abi.EncodeRef(three))); n != 10 {
		t.Errorf("mp_length after set_N = %d", n)
	}
	nRef := abi.DecodeRef(call("get_N", abi.EncodeRef(three)))

	if n := int64(call("mp_length", abi.EncodeRef(minusOne))); n != -1 {
		t.Errorf("faulting mp_length = %d, want -1", n)
	}

	_ = rt.With(ctx, func(tok foreign.Token) error {
		if exc := tok.Fetch(); !exc.Matches(foreign.PanicException) {
			t.Errorf("error indicator = %v, want PanicException", exc)
		}
		inst, ok := tok.AsInstance(sum)
		if !ok || inst.Value.Interface().(Counter).N != 6 {
			t.Errorf("nb_add result = %v", inst)
		}
		if n, _ := tok.AsInt(nRef); n != 10 {
			t.Errorf("get_N = %d", n)
		}
		return nil
	})
}

func TestExportErrors(t *testing.T) {
	ctx := context.Background()
	rt, typ := buildCounter(t)

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	if _, err := Export(ctx, r, rt, typ); err != nil {
		t.Fatalf("Export: %v", err)
	}
	_, err := Export(ctx, r, rt, typ)
	if !errors.Is(err, &slerrors.Error{Phase: slerrors.PhaseHost, Kind: slerrors.KindRegistration}) {
		t.Errorf("duplicate module err = %v", err)
	}

	empty := rt.NewType("Empty", reflect.TypeOf(struct{ Unused bool }{}))
	_, err = ExportAs(ctx, r, rt, empty, "empty")
	if !errors.Is(err, &slerrors.Error{Phase: slerrors.PhaseHost, Kind: slerrors.KindInvalidInput}) {
		t.Errorf("empty type err = %v", err)
	}
}
