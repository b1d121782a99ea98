package foreign

import (
	"reflect"
	"sort"
	"sync"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/resource"
)

// SlotEntry is a slot function installed in a type together with its shape.
type SlotEntry struct {
	Func   abi.SlotFunc
	FnType abi.FnPointer
}

// GetSet is a data descriptor backed by getter and setter slot functions.
// Either function may be nil.
type GetSet struct {
	Get  abi.SlotFunc
	Set  abi.SlotFunc
	Name string
}

// MethodDef is an ordinary callable attached to a type.
type MethodDef struct {
	Func abi.MethodFunc
	Name string
	Kind abi.MethodKind
}

// Type is a foreign type object.
type Type struct {
	GoType  reflect.Type
	slots   map[abi.SlotID]SlotEntry
	getsets map[string]*GetSet
	methods map[string]*MethodDef
	attrs   map[string]abi.Ref
	call    *MethodDef
	newFn   *MethodDef
	Name    string
	mu      sync.RWMutex
	ref     abi.Ref
	id      uint32
	builtin bool
}

// Ref returns the type object reference.
func (t *Type) Ref() abi.Ref { return t.ref }

// ID returns the heap type ID of instances of t.
func (t *Type) ID() uint32 { return t.id }

// SetSlot installs fn as slot id.
func (t *Type) SetSlot(id abi.SlotID, fnType abi.FnPointer, fn abi.SlotFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[id] = SlotEntry{Func: fn, FnType: fnType}
}

// Slot returns the function installed in slot id.
func (t *Type) Slot(id abi.SlotID) (SlotEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.slots[id]
	return e, ok
}

// Slots returns the installed slot IDs in sorted order.
func (t *Type) Slots() []abi.SlotID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]abi.SlotID, 0, len(t.slots))
	for id := range t.slots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SetGetSet installs a data descriptor.
func (t *Type) SetGetSet(gs *GetSet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.getsets[gs.Name] = gs
}

// GetSet returns the data descriptor registered under name.
func (t *Type) GetSet(name string) (*GetSet, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	gs, ok := t.getsets[name]
	return gs, ok
}

// GetSets returns the descriptor names in sorted order.
func (t *Type) GetSets() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.getsets))
	for n := range t.getsets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AddMethod installs an ordinary callable. Constructor and call kinds are
// bound to type construction and instance calls instead of attributes.
func (t *Type) AddMethod(m *MethodDef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch m.Kind {
	case abi.MethodNew:
		t.newFn = m
	case abi.MethodCall:
		t.call = m
	default:
		t.methods[m.Name] = m
	}
}

// Method returns the callable registered under name.
func (t *Type) Method(name string) (*MethodDef, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.methods[name]
	return m, ok
}

// Methods returns the method names in sorted order.
func (t *Type) Methods() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.methods))
	for n := range t.methods {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Attr returns a class attribute.
func (t *Type) Attr(name string) (abi.Ref, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.attrs[name]
	return r, ok
}

func (t *Type) setAttr(name string, r abi.Ref) (old abi.Ref) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old = t.attrs[name]
	t.attrs[name] = r
	return old
}

func newType(name string, goType reflect.Type, builtin bool) *Type {
	return &Type{
		Name:    name,
		GoType:  goType,
		builtin: builtin,
		slots:   make(map[abi.SlotID]SlotEntry),
		getsets: make(map[string]*GetSet),
		methods: make(map[string]*MethodDef),
		attrs:   make(map[string]abi.Ref),
	}
}

// Instance is an object of a user type. Value is an addressable struct value.
type Instance struct {
	Value reflect.Value
	Type  *Type
	dict  map[string]abi.Ref
	rt    *Runtime
}

// Drop releases the references held by the instance dict.
func (i *Instance) Drop() {
	for _, r := range i.dict {
		i.rt.heap.DecRef(resource.Handle(r))
	}
	i.dict = nil
	delete(i.rt.instances, i.Value.Addr().UnsafePointer())
}

// BoundMethod is a callable bound to a receiver.
type BoundMethod struct {
	Def  *MethodDef
	heap *resource.Table
	Self abi.Ref
}

// Drop releases the receiver reference.
func (m *BoundMethod) Drop() {
	if m.Self != abi.Null {
		m.heap.DecRef(resource.Handle(m.Self))
	}
}

// Tuple is an immutable sequence of object references.
type Tuple struct {
	heap  *resource.Table
	Items []abi.Ref
}

// Drop releases the item references.
func (t *Tuple) Drop() {
	for _, r := range t.Items {
		t.heap.DecRef(resource.Handle(r))
	}
	t.Items = nil
}

// seqIter iterates a tuple or a string.
type seqIter struct {
	heap *resource.Table
	seq  abi.Ref
	pos  int
}

func (it *seqIter) Drop() {
	it.heap.DecRef(resource.Handle(it.seq))
}

type noneObj struct{}

type notImplementedObj struct{}
