package foreign

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wippyai/slotbridge/abi"
	slerrors "github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/resource"
)

type box struct {
	N int64
}

func newBoxType(rt *Runtime) *Type {
	return rt.NewType("Box", reflect.TypeOf(box{}))
}

func TestAcquire_Reentrant(t *testing.T) {
	rt := NewRuntime()
	tok, release := rt.Acquire(context.Background())
	defer release()

	done := make(chan struct{})
	go func() {
		inner, innerRelease := rt.Acquire(tok.Context())
		innerRelease()
		if inner.Runtime() != rt {
			t.Error("inner token bound to wrong runtime")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("re-entrant Acquire blocked")
	}

	if RuntimeFrom(tok.Context()) != rt {
		t.Error("token context should carry the runtime")
	}
}

func TestAcquire_StaleContextBlocks(t *testing.T) {
	rt := NewRuntime()
	var saved context.Context
	if err := rt.With(context.Background(), func(tok Token) error {
		saved = tok.Context()
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = rt.With(context.Background(), func(Token) error {
			close(holding)
			<-done
			return nil
		})
	}()
	<-holding

	acquired := make(chan struct{})
	go func() {
		_, release := rt.Acquire(saved)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("context of a released token re-entered while another caller holds it")
	case <-time.After(50 * time.Millisecond):
	}

	close(done)
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("Acquire with a stale context never obtained the token")
	}
}

func TestAcquire_Exclusive(t *testing.T) {
	rt := NewRuntime()
	var inside, maxInside int32
	var total int64

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 50; j++ {
				err := rt.With(ctx, func(tok Token) error {
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxInside)
						if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
							break
						}
					}
					total++
					r := tok.NewInt(total)
					tok.DecRef(r)
					atomic.AddInt32(&inside, -1)
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if maxInside != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside)
	}
	if total != 400 {
		t.Errorf("total = %d, want 400", total)
	}
}

func TestConversions(t *testing.T) {
	rt := NewRuntime()
	tok, release := rt.Acquire(context.Background())
	defer release()

	tests := []struct {
		name string
		in   any
		typ  reflect.Type
		want any
	}{
		{"int", int64(42), reflect.TypeOf(int64(0)), int64(42)},
		{"int32", int32(-7), reflect.TypeOf(int32(0)), int32(-7)},
		{"uint8", uint8(200), reflect.TypeOf(uint8(0)), uint8(200)},
		{"float", 2.5, reflect.TypeOf(float64(0)), 2.5},
		{"int as float", int64(3), reflect.TypeOf(float64(0)), 3.0},
		{"string", "hi", reflect.TypeOf(""), "hi"},
		{"bool", true, reflect.TypeOf(false), true},
		{"slice", []int64{1, 2}, reflect.TypeOf([]int64{}), []int64{1, 2}},
		{"struct", box{N: 9}, reflect.TypeOf(box{}), box{N: 9}},
	}

	newBoxType(rt)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tok.ToObject(tt.in)
			if err != nil {
				t.Fatalf("ToObject: %v", err)
			}
			defer tok.DecRef(r)
			v, err := tok.Extract(r, tt.typ)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !reflect.DeepEqual(v.Interface(), tt.want) {
				t.Errorf("got %#v, want %#v", v.Interface(), tt.want)
			}
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	rt := NewRuntime()
	tok, release := rt.Acquire(context.Background())
	defer release()

	s := tok.NewStr("x")
	_, err := tok.Extract(s, reflect.TypeOf(int64(0)))
	if !IsException(err, TypeError) {
		t.Fatalf("err = %v, want TypeError", err)
	}
	if err.Error() != "TypeError: 'str' object cannot be converted to 'int'" {
		t.Errorf("message = %q", err.Error())
	}

	big := tok.NewInt(300)
	if _, err := tok.Extract(big, reflect.TypeOf(int8(0))); !IsException(err, OverflowError) {
		t.Errorf("err = %v, want OverflowError", err)
	}
	neg := tok.NewInt(-1)
	if _, err := tok.Extract(neg, reflect.TypeOf(uint(0))); !IsException(err, OverflowError) {
		t.Errorf("err = %v, want OverflowError", err)
	}
	if _, err := tok.Extract(abi.Null, reflect.TypeOf(int64(0))); !IsException(err, SystemError) {
		t.Errorf("err = %v, want SystemError", err)
	}
}

func TestBorrowConflict(t *testing.T) {
	rt := NewRuntime()
	typ := newBoxType(rt)
	tok, release := rt.Acquire(context.Background())
	defer release()

	r := tok.NewInstance(typ, reflect.ValueOf(&box{N: 1}))

	v, rel, err := tok.Borrow(r, typ.GoType, true)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = tok.Borrow(r, typ.GoType, false)
	if !IsException(err, RuntimeError) || err.Error() != "RuntimeError: Already mutably borrowed" {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, &slerrors.Error{Phase: slerrors.PhaseExtract, Kind: slerrors.KindBorrowConflict}) {
		t.Errorf("err = %v, want a borrow conflict cause", err)
	}
	if !errors.Is(err, resource.ErrAlreadyMutablyBorrowed) {
		t.Errorf("err = %v, want the heap error in the chain", err)
	}

	// The receiver is intact and usable after the failed borrow.
	v.Addr().Interface().(*box).N = 5
	rel()
	got, err := tok.Extract(r, typ.GoType)
	if err != nil {
		t.Fatal(err)
	}
	if got.Interface().(box).N != 5 {
		t.Errorf("N = %d, want 5", got.Interface().(box).N)
	}

	_, rel, _ = tok.Borrow(r, typ.GoType, false)
	_, _, err = tok.Borrow(r, typ.GoType, true)
	if err == nil || err.Error() != "RuntimeError: Already borrowed" {
		t.Fatalf("err = %v", err)
	}
	rel()
}

func TestToObject_SharesInstancePointer(t *testing.T) {
	rt := NewRuntime()
	typ := newBoxType(rt)
	tok, release := rt.Acquire(context.Background())
	defer release()

	p := &box{N: 3}
	r1 := tok.NewInstance(typ, reflect.ValueOf(p))
	r2, err := tok.ToObject(p)
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Fatalf("ToObject(*T) should return the existing instance, got %d and %d", r1, r2)
	}
	if tok.RefCount(r1) != 2 {
		t.Errorf("refcount = %d, want 2", tok.RefCount(r1))
	}
}

func TestTupleRefCounts(t *testing.T) {
	rt := NewRuntime()
	tok, release := rt.Acquire(context.Background())
	defer release()

	item := tok.NewInt(7)
	tup := tok.NewTuple(item, item)
	if tok.RefCount(item) != 3 {
		t.Fatalf("item refcount = %d, want 3", tok.RefCount(item))
	}
	tok.DecRef(tup)
	if tok.RefCount(item) != 1 {
		t.Errorf("item refcount after tuple free = %d, want 1", tok.RefCount(item))
	}
}

func TestExceptionHierarchy(t *testing.T) {
	if !KeyError.IsSubclass(LookupError) || !KeyError.IsSubclass(BaseException) {
		t.Error("KeyError should derive from LookupError and BaseException")
	}
	if PanicException.IsSubclass(StandardException) {
		t.Error("PanicException must not derive from Exception")
	}
	if StandardException.Name != "Exception" || !ValueError.IsSubclass(StandardException) {
		t.Errorf("StandardException = %+v, want the Exception class", StandardException)
	}
	if got := ValueError.New("bad").Error(); got != "ValueError: bad" {
		t.Errorf("Error() = %q", got)
	}

	cause := errors.New("disk full")
	exc := ToException(cause)
	if !exc.Matches(RuntimeError) || !errors.Is(exc, cause) {
		t.Errorf("ToException(%v) = %v", cause, exc)
	}
	stop := StopIteration.New("").WithValue(int64(3))
	if ToException(stop) != stop {
		t.Error("ToException should pass exceptions through")
	}
}

func TestRuntimeClose(t *testing.T) {
	rt := NewRuntime()
	typ := newBoxType(rt)
	tok, release := rt.Acquire(context.Background())
	inst := tok.NewInstance(typ, reflect.ValueOf(&box{}))
	if err := tok.GenericSetAttr(inst, tok.NewStr("tag"), tok.NewTuple(tok.NewInt(1))); err != nil {
		t.Fatal(err)
	}
	release()

	done := make(chan error, 1)
	go func() { done <- rt.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close deadlocked")
	}
}
