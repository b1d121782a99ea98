package foreign

import (
	"context"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/resource"
)

// Token proves that its holder owns the runtime's exclusivity token. Native
// functions may declare a Token parameter to receive it.
type Token struct {
	rt  *Runtime
	ctx context.Context
}

// Runtime returns the runtime the token belongs to.
func (t Token) Runtime() *Runtime { return t.rt }

// Context returns a context carrying the held token. Slot functions invoked
// with it re-enter without blocking.
func (t Token) Context() context.Context { return t.ctx }

// None returns the None singleton (borrowed).
func (t Token) None() abi.Ref { return t.rt.none }

// NotImplemented returns the NotImplemented singleton (borrowed).
func (t Token) NotImplemented() abi.Ref { return t.rt.notImpl }

// Bool returns the True or False singleton (borrowed).
func (t Token) Bool(b bool) abi.Ref {
	if b {
		return t.rt.trueRef
	}
	return t.rt.falseRef
}

// IsNone reports whether r is None.
func (t Token) IsNone(r abi.Ref) bool { return r == t.rt.none }

// IsNotImplemented reports whether r is NotImplemented.
func (t Token) IsNotImplemented(r abi.Ref) bool { return r == t.rt.notImpl }

// IncRef adds an owning reference to r. Null is ignored.
func (t Token) IncRef(r abi.Ref) {
	if r != abi.Null {
		t.rt.heap.IncRef(resource.Handle(r))
	}
}

// DecRef drops an owning reference to r. Null is ignored.
func (t Token) DecRef(r abi.Ref) {
	if r != abi.Null {
		t.rt.heap.DecRef(resource.Handle(r))
	}
}

// NewRef returns r with one more owning reference.
func (t Token) NewRef(r abi.Ref) abi.Ref {
	t.IncRef(r)
	return r
}

// RefCount returns the owning reference count of r.
func (t Token) RefCount(r abi.Ref) uint32 {
	return t.rt.heap.RefCount(resource.Handle(r))
}

// Value returns the Go value stored for r.
func (t Token) Value(r abi.Ref) (any, bool) {
	return t.rt.heap.Get(resource.Handle(r))
}

// TypeOf returns the type of r, or nil for an invalid reference.
func (t Token) TypeOf(r abi.Ref) *Type {
	id, ok := t.rt.heap.TypeID(resource.Handle(r))
	if !ok {
		return nil
	}
	return t.rt.typeByID(id)
}

// TypeName returns the type name of r.
func (t Token) TypeName(r abi.Ref) string {
	if typ := t.TypeOf(r); typ != nil {
		return typ.Name
	}
	return "NULL"
}

func (t Token) newObject(typ *Type, v any) abi.Ref {
	return abi.Ref(t.rt.heap.Insert(typ.id, v))
}

// SetError sets the error indicator to the exception for err.
func (t Token) SetError(err error) {
	t.rt.errInd = ToException(err)
}

// Occurred returns the pending exception without clearing it.
func (t Token) Occurred() *Exception {
	return t.rt.errInd
}

// Fetch returns and clears the pending exception.
func (t Token) Fetch() *Exception {
	e := t.rt.errInd
	t.rt.errInd = nil
	return e
}

// ClearError clears the error indicator.
func (t Token) ClearError() {
	t.rt.errInd = nil
}

// fetchFailure returns the pending exception after a slot signalled failure.
func (t Token) fetchFailure() error {
	if e := t.Fetch(); e != nil {
		return e
	}
	return SystemError.New("error return without exception set")
}
