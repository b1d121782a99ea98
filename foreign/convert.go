package foreign

import (
	"errors"
	"math"
	"reflect"
	"unsafe"

	"github.com/wippyai/slotbridge/abi"
	slerrors "github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/resource"
)

var (
	refType   = reflect.TypeOf(abi.Ref(0))
	anyType   = reflect.TypeOf((*any)(nil)).Elem()
	tokenType = reflect.TypeOf(Token{})
)

// TokenType is the reflected type of Token.
func TokenType() reflect.Type { return tokenType }

// NewInt creates an int object.
func (t Token) NewInt(n int64) abi.Ref { return t.newObject(t.rt.intType, n) }

// NewFloat creates a float object.
func (t Token) NewFloat(f float64) abi.Ref { return t.newObject(t.rt.floatType, f) }

// NewStr creates a str object.
func (t Token) NewStr(s string) abi.Ref { return t.newObject(t.rt.strType, s) }

// NewTuple creates a tuple holding new references to items.
func (t Token) NewTuple(items ...abi.Ref) abi.Ref {
	owned := make([]abi.Ref, len(items))
	for i, r := range items {
		owned[i] = t.NewRef(r)
	}
	return t.newObject(t.rt.tupleType, &Tuple{Items: owned, heap: t.rt.heap})
}

// NewInstance creates an instance of typ sharing the struct at ptr.
func (t Token) NewInstance(typ *Type, ptr reflect.Value) abi.Ref {
	inst := &Instance{Type: typ, Value: ptr.Elem(), rt: t.rt}
	r := t.newObject(typ, inst)
	t.rt.trackInstance(ptr.UnsafePointer(), r)
	return r
}

// AsInt returns the value of an int or bool object.
func (t Token) AsInt(r abi.Ref) (int64, bool) {
	v, _ := t.Value(r)
	return intValue(v)
}

// AsFloat returns the value of a float, int or bool object.
func (t Token) AsFloat(r abi.Ref) (float64, bool) {
	v, _ := t.Value(r)
	return floatValue(v)
}

// AsStr returns the value of a str object.
func (t Token) AsStr(r abi.Ref) (string, bool) {
	v, _ := t.Value(r)
	s, ok := v.(string)
	return s, ok
}

// AsTuple returns the items of a tuple object (borrowed).
func (t Token) AsTuple(r abi.Ref) ([]abi.Ref, bool) {
	v, _ := t.Value(r)
	tup, ok := v.(*Tuple)
	if !ok {
		return nil, false
	}
	return tup.Items, true
}

// AsInstance returns the instance stored for r.
func (t Token) AsInstance(r abi.Ref) (*Instance, bool) {
	v, _ := t.Value(r)
	inst, ok := v.(*Instance)
	return inst, ok
}

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func floatValue(v any) (float64, bool) {
	if f, ok := v.(float64); ok {
		return f, true
	}
	n, ok := intValue(v)
	return float64(n), ok
}

// ToObject converts a Go value into a new object reference. An abi.Ref is
// treated as borrowed and gains a reference. Pointers to registered struct
// types share the pointed-to value; struct values are copied.
func (t Token) ToObject(v any) (abi.Ref, error) {
	return t.toObject(reflect.ValueOf(v))
}

// ToObjectValue is ToObject for a reflected value.
func (t Token) ToObjectValue(v reflect.Value) (abi.Ref, error) {
	return t.toObject(v)
}

func (t Token) toObject(v reflect.Value) (abi.Ref, error) {
	if !v.IsValid() {
		return t.NewRef(t.rt.none), nil
	}
	if v.Type() == refType {
		r := abi.Ref(v.Uint())
		if _, ok := t.Value(r); !ok {
			return abi.Null, SystemError.New("invalid object reference")
		}
		return t.NewRef(r), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		return t.NewRef(t.Bool(v.Bool())), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return t.NewInt(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return abi.Null, OverflowError.New("int too large to convert")
		}
		return t.NewInt(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return t.NewFloat(v.Float()), nil
	case reflect.String:
		return t.NewStr(v.String()), nil
	case reflect.Interface:
		if v.IsNil() {
			return t.NewRef(t.rt.none), nil
		}
		return t.toObject(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			return t.NewRef(t.rt.none), nil
		}
		if typ, ok := t.rt.TypeFor(v.Type().Elem()); ok {
			if r, ok := t.rt.instanceAt(v.UnsafePointer()); ok {
				return t.NewRef(r), nil
			}
			return t.NewInstance(typ, v), nil
		}
		if v.Type() == reflect.TypeOf((*Type)(nil)) {
			return t.NewRef(v.Interface().(*Type).ref), nil
		}
		return t.toObject(v.Elem())
	case reflect.Struct:
		if typ, ok := t.rt.TypeFor(v.Type()); ok {
			ptr := reflect.New(v.Type())
			ptr.Elem().Set(v)
			return t.NewInstance(typ, ptr), nil
		}
	case reflect.Slice, reflect.Array:
		items := make([]abi.Ref, v.Len())
		for i := range items {
			r, err := t.toObject(v.Index(i))
			if err != nil {
				for _, done := range items[:i] {
					t.DecRef(done)
				}
				return abi.Null, err
			}
			items[i] = r
		}
		return t.newObject(t.rt.tupleType, &Tuple{Items: items, heap: t.rt.heap}), nil
	}

	return abi.Null, TypeError.Newf("cannot convert Go value of type %s to an object", v.Type())
}

// Extract converts a borrowed object reference into a Go value of type typ.
// Instances of user types are copied under a shared borrow.
func (t Token) Extract(r abi.Ref, typ reflect.Type) (reflect.Value, error) {
	if r == abi.Null {
		return reflect.Value{}, SystemError.New("NULL object passed to extraction")
	}
	obj, ok := t.Value(r)
	if !ok {
		return reflect.Value{}, SystemError.New("invalid object reference")
	}

	switch typ {
	case refType:
		return reflect.ValueOf(r), nil
	case anyType:
		out := reflect.New(anyType).Elem()
		if gv := t.goValue(obj); gv != nil {
			out.Set(reflect.ValueOf(gv))
		}
		return out, nil
	}

	out := reflect.New(typ).Elem()
	switch typ.Kind() {
	case reflect.Bool:
		if b, ok := obj.(bool); ok {
			out.SetBool(b)
			return out, nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := intValue(obj); ok {
			if out.OverflowInt(n) {
				return reflect.Value{}, OverflowError.Newf("int too large to convert to %s", typ)
			}
			out.SetInt(n)
			return out, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n, ok := intValue(obj); ok {
			if n < 0 {
				return reflect.Value{}, OverflowError.New("can't convert negative int to unsigned")
			}
			if out.OverflowUint(uint64(n)) {
				return reflect.Value{}, OverflowError.Newf("int too large to convert to %s", typ)
			}
			out.SetUint(uint64(n))
			return out, nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := floatValue(obj); ok {
			out.SetFloat(f)
			return out, nil
		}
	case reflect.String:
		if s, ok := obj.(string); ok {
			out.SetString(s)
			return out, nil
		}
	case reflect.Struct:
		if inst, ok := obj.(*Instance); ok && inst.Value.Type() == typ {
			v, release, err := t.Borrow(r, typ, false)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Set(v)
			release()
			return out, nil
		}
	case reflect.Pointer:
		if _, ok := t.rt.TypeFor(typ.Elem()); ok {
			return reflect.Value{}, SystemError.Newf("%s must be borrowed, not extracted", typ)
		}
		elem, err := t.Extract(r, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	case reflect.Slice:
		if tup, ok := obj.(*Tuple); ok {
			out = reflect.MakeSlice(typ, len(tup.Items), len(tup.Items))
			for i, item := range tup.Items {
				ev, err := t.Extract(item, typ.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}
	case reflect.Interface:
		if gv := t.goValue(obj); gv != nil && reflect.TypeOf(gv).Implements(typ) {
			out.Set(reflect.ValueOf(gv))
			return out, nil
		}
	}

	return reflect.Value{}, TypeError.Newf("'%s' object cannot be converted to '%s'",
		t.TypeName(r), t.foreignName(typ))
}

// Borrow borrows the struct value of an instance of the user type backed by
// typ. The returned value is addressable. Conflicting borrows fail with
// RuntimeError and leave the instance untouched.
func (t Token) Borrow(r abi.Ref, typ reflect.Type, exclusive bool) (reflect.Value, func(), error) {
	obj, _ := t.Value(r)
	inst, ok := obj.(*Instance)
	if !ok || inst.Value.Type() != typ {
		return reflect.Value{}, nil, TypeError.Newf("'%s' object cannot be converted to '%s'",
			t.TypeName(r), t.foreignName(typ))
	}

	mode := resource.BorrowShared
	if exclusive {
		mode = resource.BorrowExclusive
	}
	h := resource.Handle(r)
	if err := t.rt.heap.Borrow(h, mode); err != nil {
		return reflect.Value{}, nil, borrowError(err)
	}
	return inst.Value, func() { _ = t.rt.heap.Release(h, mode) }, nil
}

func borrowError(err error) error {
	switch {
	case errors.Is(err, resource.ErrAlreadyMutablyBorrowed):
		return RuntimeError.New("Already mutably borrowed").WithCause(conflict(err))
	case errors.Is(err, resource.ErrAlreadyBorrowed):
		return RuntimeError.New("Already borrowed").WithCause(conflict(err))
	}
	return SystemError.New(err.Error()).
		WithCause(slerrors.Wrap(slerrors.PhaseRuntime, slerrors.KindInvalidData, err, "borrow"))
}

func conflict(err error) error {
	return slerrors.Wrap(slerrors.PhaseExtract, slerrors.KindBorrowConflict, err, "borrow")
}

// goValue maps a stored object to the Go value handed to an `any` parameter.
func (t Token) goValue(obj any) any {
	switch v := obj.(type) {
	case noneObj:
		return nil
	case *Instance:
		return v.Value.Interface()
	case *Tuple:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			o, _ := t.Value(item)
			out[i] = t.goValue(o)
		}
		return out
	}
	return obj
}

func (t Token) foreignName(typ reflect.Type) string {
	switch typ.Kind() {
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.String:
		return "str"
	case reflect.Slice, reflect.Array:
		return "tuple"
	}
	if ut, ok := t.rt.TypeFor(typ); ok {
		return ut.Name
	}
	return typ.String()
}

func (rt *Runtime) trackInstance(p unsafe.Pointer, r abi.Ref) {
	rt.instances[p] = r
}

func (rt *Runtime) instanceAt(p unsafe.Pointer) (abi.Ref, bool) {
	r, ok := rt.instances[p]
	return r, ok
}
