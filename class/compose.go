package class

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/foreign"
	"github.com/wippyai/slotbridge/slots"
	"github.com/wippyai/slotbridge/trampoline"
)

// installComposed installs the slot function that owns id and dispatches to
// its fragments.
func (a *assembly) installComposed(id abi.SlotID, frags []*trampoline.Fragment) {
	fnType, ok := slots.OwnerFnType(id)
	if !ok {
		return
	}
	slices.SortStableFunc(frags, func(x, y *trampoline.Fragment) int {
		return int(x.Role) - int(y.Role)
	})

	path := []string{a.typ.Name, string(id)}
	var body trampoline.SlotBody
	switch id {
	case abi.SlotSetAttro, abi.SlotAssSubscript, abi.SlotDescrSet:
		body = composeSet(id, frags)
	default:
		body = composeBinary(path, frags)
	}
	a.typ.SetSlot(id, fnType, trampoline.GuardedSlot(path, fnType, body))

	names := make([]string, len(frags))
	for i, f := range frags {
		names[i] = f.Name()
	}
	Logger().Debug("fragments composed",
		zap.String("class", a.typ.Name),
		zap.String("slot", string(id)),
		zap.Strings("fragments", names))
}

// composeBinary tries forward fragments with (left, right) and reflected
// fragments with (right, left). Trailing words, the power modulus, are
// passed through.
func composeBinary(path []string, frags []*trampoline.Fragment) trampoline.SlotBody {
	return func(tok foreign.Token, self abi.Ref, args []uint64) (uint64, error) {
		left := abi.EncodeRef(self)
		right, rest := args[0], args[1:]
		for _, f := range frags {
			recv, operand := self, right
			if f.Role == slots.RoleReflected {
				recv, operand = abi.DecodeRef(right), left
			}
			w, err := f.Invoke(tok, recv, append([]uint64{operand}, rest...))
			if err != nil {
				return 0, err
			}
			r := abi.DecodeRef(w)
			if !tok.IsNotImplemented(r) {
				return w, nil
			}
			// Not applicable: drop the marker and try the next fragment.
			tok.DecRef(r)
			Logger().Debug("fragment not applicable",
				zap.Strings("path", path),
				zap.String("fragment", f.Name()))
		}
		return abi.EncodeRef(tok.NewRef(tok.NotImplemented())), nil
	}
}

// composeSet dispatches on the value word: present selects the set fragment,
// null the delete fragment.
func composeSet(id abi.SlotID, frags []*trampoline.Fragment) trampoline.SlotBody {
	var set, del *trampoline.Fragment
	for _, f := range frags {
		switch f.Role {
		case slots.RoleSet:
			set = f
		case slots.RoleDelete:
			del = f
		}
	}
	return func(tok foreign.Token, self abi.Ref, args []uint64) (uint64, error) {
		key, value := args[0], args[1]
		if abi.DecodeRef(value) == abi.Null {
			if del != nil {
				return del.Invoke(tok, self, []uint64{key})
			}
			return missingFragment(tok, id, self, key, value)
		}
		if set != nil {
			return set.Invoke(tok, self, []uint64{key, value})
		}
		return missingFragment(tok, id, self, key, value)
	}
}

// missingFragment is the behavior of a set-style slot whose class declares
// only one of the two fragments.
func missingFragment(tok foreign.Token, id abi.SlotID, self abi.Ref, key, value uint64) (uint64, error) {
	deleting := abi.DecodeRef(value) == abi.Null
	switch id {
	case abi.SlotSetAttro:
		if err := tok.GenericSetAttr(self, abi.DecodeRef(key), abi.DecodeRef(value)); err != nil {
			return 0, err
		}
		return 0, nil
	case abi.SlotAssSubscript:
		if deleting {
			return 0, foreign.NotImplementedError.New("can't delete item")
		}
		return 0, foreign.NotImplementedError.New("can't set item")
	}
	if deleting {
		return 0, foreign.NotImplementedError.New("can't delete descriptor")
	}
	return 0, foreign.NotImplementedError.New("can't set descriptor")
}
