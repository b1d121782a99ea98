package foreign

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/resource"
)

// Runtime is an in-process foreign object runtime. All object access goes
// through a Token, which proves the caller holds the runtime's global
// exclusivity token.
type Runtime struct {
	heap      *resource.Table
	types     map[reflect.Type]*Type
	byName    map[string]*Type
	instances map[unsafe.Pointer]abi.Ref
	byID      []*Type
	errInd    *Exception
	typesMu   sync.RWMutex
	gil       sync.Mutex
	none      abi.Ref
	notImpl   abi.Ref
	trueRef   abi.Ref
	falseRef  abi.Ref

	typeType     *Type
	intType      *Type
	floatType    *Type
	strType      *Type
	boolType     *Type
	noneType     *Type
	notImplType  *Type
	tupleType    *Type
	methodType   *Type
	iteratorType *Type
}

type runtimeKey struct{}

type heldKey struct{}

// hold marks one acquisition of the token. Contexts derived from a Token
// re-enter only while the acquisition that produced them is live.
type hold struct {
	rt   *Runtime
	live atomic.Bool
}

// WithRuntime binds rt to ctx so raw slot functions invoked with ctx run
// against it.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeFrom returns the runtime bound to ctx, or nil.
func RuntimeFrom(ctx context.Context) *Runtime {
	rt, _ := ctx.Value(runtimeKey{}).(*Runtime)
	return rt
}

// NewRuntime creates a runtime with the built-in types and singletons.
func NewRuntime() *Runtime {
	rt := &Runtime{
		heap:      resource.NewTable(),
		types:     make(map[reflect.Type]*Type),
		byName:    make(map[string]*Type),
		instances: make(map[unsafe.Pointer]abi.Ref),
	}

	rt.typeType = rt.registerBuiltin("type", reflect.TypeOf((*Type)(nil)))
	rt.intType = rt.registerBuiltin("int", reflect.TypeOf(int64(0)))
	rt.floatType = rt.registerBuiltin("float", reflect.TypeOf(float64(0)))
	rt.strType = rt.registerBuiltin("str", reflect.TypeOf(""))
	rt.boolType = rt.registerBuiltin("bool", reflect.TypeOf(false))
	rt.noneType = rt.registerBuiltin("NoneType", reflect.TypeOf(noneObj{}))
	rt.notImplType = rt.registerBuiltin("NotImplementedType", reflect.TypeOf(notImplementedObj{}))
	rt.tupleType = rt.registerBuiltin("tuple", reflect.TypeOf((*Tuple)(nil)))
	rt.methodType = rt.registerBuiltin("method", reflect.TypeOf((*BoundMethod)(nil)))
	rt.iteratorType = rt.registerBuiltin("iterator", reflect.TypeOf((*seqIter)(nil)))

	rt.none = rt.pinned(rt.noneType, noneObj{})
	rt.notImpl = rt.pinned(rt.notImplType, notImplementedObj{})
	rt.trueRef = rt.pinned(rt.boolType, true)
	rt.falseRef = rt.pinned(rt.boolType, false)

	return rt
}

func (rt *Runtime) registerBuiltin(name string, goType reflect.Type) *Type {
	t := newType(name, goType, true)
	rt.addType(t)
	return t
}

func (rt *Runtime) addType(t *Type) {
	rt.typesMu.Lock()
	t.id = uint32(len(rt.byID))
	rt.byID = append(rt.byID, t)
	if !t.builtin {
		rt.types[t.GoType] = t
	}
	rt.byName[t.Name] = t
	rt.typesMu.Unlock()

	// Type objects are instances of "type", which is registered first.
	typeID := t.id
	if rt.typeType != nil {
		typeID = rt.typeType.id
	}
	t.ref = abi.Ref(rt.heap.Insert(typeID, t))
	rt.heap.Pin(resource.Handle(t.ref))
}

func (rt *Runtime) pinned(t *Type, v any) abi.Ref {
	h := rt.heap.Insert(t.id, v)
	rt.heap.Pin(h)
	return abi.Ref(h)
}

// NewType registers a user type backed by the struct type goType.
func (rt *Runtime) NewType(name string, goType reflect.Type) *Type {
	t := newType(name, goType, false)
	rt.addType(t)
	Logger().Debug("type registered", zap.String("type", name), zap.Stringer("go_type", goType))
	return t
}

// TypeFor returns the user type registered for the struct type goType.
func (rt *Runtime) TypeFor(goType reflect.Type) (*Type, bool) {
	rt.typesMu.RLock()
	defer rt.typesMu.RUnlock()
	t, ok := rt.types[goType]
	return t, ok
}

// LookupType returns the type registered under name.
func (rt *Runtime) LookupType(name string) (*Type, bool) {
	rt.typesMu.RLock()
	defer rt.typesMu.RUnlock()
	t, ok := rt.byName[name]
	return t, ok
}

func (rt *Runtime) typeByID(id uint32) *Type {
	rt.typesMu.RLock()
	defer rt.typesMu.RUnlock()
	if int(id) < len(rt.byID) {
		return rt.byID[id]
	}
	return nil
}

// Heap returns the object table.
func (rt *Runtime) Heap() *resource.Table {
	return rt.heap
}

// Acquire obtains the exclusivity token. If ctx was derived from a Token of
// this runtime whose acquisition is still held, the call is re-entrant and
// returns at once; otherwise it blocks until the token is free. The returned
// release function must be called exactly once.
func (rt *Runtime) Acquire(ctx context.Context) (Token, func()) {
	if h, _ := ctx.Value(heldKey{}).(*hold); h != nil && h.rt == rt && h.live.Load() {
		return Token{rt: rt, ctx: ctx}, func() {}
	}
	rt.gil.Lock()
	h := &hold{rt: rt}
	h.live.Store(true)
	ctx = context.WithValue(WithRuntime(ctx, rt), heldKey{}, h)
	return Token{rt: rt, ctx: ctx}, func() {
		h.live.Store(false)
		rt.gil.Unlock()
	}
}

// With runs fn while holding the exclusivity token.
func (rt *Runtime) With(ctx context.Context, fn func(Token) error) error {
	tok, release := rt.Acquire(ctx)
	defer release()
	return fn(tok)
}

// Close frees every object. The runtime must not be used afterwards.
func (rt *Runtime) Close() error {
	rt.gil.Lock()
	defer rt.gil.Unlock()
	return rt.heap.Close()
}
