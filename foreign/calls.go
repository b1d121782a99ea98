package foreign

import (
	"github.com/wippyai/slotbridge/abi"
)

// callSlot invokes a raw slot function and returns the raw result word.
func (t Token) callSlot(e SlotEntry, self abi.Ref, args ...abi.Ref) uint64 {
	stack := make([]uint64, e.FnType.StackSize())
	stack[0] = abi.EncodeRef(self)
	for i, a := range args {
		if i+1 >= len(stack) {
			break
		}
		stack[i+1] = abi.EncodeRef(a)
	}
	e.Func(t.ctx, stack)
	return stack[0]
}

// callObject invokes an object-returning slot. A null result means failure.
func (t Token) callObject(e SlotEntry, self abi.Ref, args ...abi.Ref) (abi.Ref, error) {
	r := abi.DecodeRef(t.callSlot(e, self, args...))
	if r == abi.Null {
		return abi.Null, t.fetchFailure()
	}
	return r, nil
}

// callInt invokes an integer-returning slot. -1 means failure.
func (t Token) callInt(e SlotEntry, self abi.Ref, args ...abi.Ref) (int64, error) {
	v := abi.Decode(e.FnType.Result, t.callSlot(e, self, args...))
	if v == -1 {
		return -1, t.fetchFailure()
	}
	return v, nil
}

// callRichCompare passes the operator code as a raw int word.
func (t Token) callRichCompare(e SlotEntry, self, other abi.Ref, op abi.CompareOp) (abi.Ref, error) {
	stack := []uint64{abi.EncodeRef(self), abi.EncodeRef(other), abi.EncodeInt(int32(op))}
	e.Func(t.ctx, stack)
	r := abi.DecodeRef(stack[0])
	if r == abi.Null {
		return abi.Null, t.fetchFailure()
	}
	return r, nil
}

// CallSlotRaw invokes slot id of the receiver's type with raw argument words.
// It returns the raw result word and the exception raised, if any.
func (t Token) CallSlotRaw(id abi.SlotID, self abi.Ref, args ...uint64) (uint64, error) {
	typ := t.TypeOf(self)
	if typ == nil {
		return 0, SystemError.New("invalid object reference")
	}
	e, ok := typ.Slot(id)
	if !ok {
		return 0, TypeError.Newf("'%s' object has no slot %s", typ.Name, id)
	}
	stack := make([]uint64, e.FnType.StackSize())
	stack[0] = abi.EncodeRef(self)
	copy(stack[1:], args)
	e.Func(t.ctx, stack)
	w := stack[0]
	if w == e.FnType.Result.ErrorValue() && e.FnType.Result != abi.KindUnit {
		return w, t.fetchFailure()
	}
	return w, nil
}
