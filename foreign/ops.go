package foreign

import (
	"cmp"
	"math"
	"strings"

	"github.com/wippyai/slotbridge/abi"
)

type binaryOp struct {
	symbol  string
	inplace abi.SlotID
}

var binaryOps = map[abi.SlotID]binaryOp{
	abi.SlotAdd:         {"+", abi.SlotInPlaceAdd},
	abi.SlotSubtract:    {"-", abi.SlotInPlaceSub},
	abi.SlotMultiply:    {"*", abi.SlotInPlaceMul},
	abi.SlotMatMul:      {"@", abi.SlotInPlaceMatMul},
	abi.SlotTrueDivide:  {"/", abi.SlotInPlaceTrueDiv},
	abi.SlotFloorDivide: {"//", abi.SlotInPlaceFlrDiv},
	abi.SlotRemainder:   {"%", abi.SlotInPlaceRem},
	abi.SlotDivmod:      {"divmod()", ""},
	abi.SlotPower:       {"** or pow()", abi.SlotInPlacePow},
	abi.SlotLShift:      {"<<", abi.SlotInPlaceLShift},
	abi.SlotRShift:      {">>", abi.SlotInPlaceRShift},
	abi.SlotAnd:         {"&", abi.SlotInPlaceAnd},
	abi.SlotXor:         {"^", abi.SlotInPlaceXor},
	abi.SlotOr:          {"|", abi.SlotInPlaceOr},
}

var inplaceOps = func() map[abi.SlotID]abi.SlotID {
	m := make(map[abi.SlotID]abi.SlotID, len(binaryOps))
	for slot, op := range binaryOps {
		if op.inplace != "" {
			m[op.inplace] = slot
		}
	}
	return m
}()

// BinarySlotFor returns the binary slot an in-place slot falls back to.
func BinarySlotFor(inplace abi.SlotID) (abi.SlotID, bool) {
	s, ok := inplaceOps[inplace]
	return s, ok
}

// BinaryOp applies a binary numeric slot with operator negotiation: the left
// operand's slot is tried first, then the right operand's slot when its type
// differs. TypeError is raised only when both decline.
func (t Token) BinaryOp(slot abi.SlotID, a, b abi.Ref) (abi.Ref, error) {
	if slot == abi.SlotPower {
		return t.TernaryOp(a, b, t.rt.none)
	}
	op, ok := binaryOps[slot]
	if !ok {
		return abi.Null, SystemError.Newf("%s is not a binary slot", slot)
	}
	return t.negotiate(slot, op.symbol, a, b)
}

// TernaryOp applies nb_power with operator negotiation.
func (t Token) TernaryOp(a, b, c abi.Ref) (abi.Ref, error) {
	if c == abi.Null {
		c = t.rt.none
	}
	return t.negotiate(abi.SlotPower, binaryOps[abi.SlotPower].symbol, a, b, c)
}

func (t Token) negotiate(slot abi.SlotID, symbol string, a, b abi.Ref, extra ...abi.Ref) (abi.Ref, error) {
	va, _ := t.Value(a)
	vb, _ := t.Value(b)
	if len(extra) == 0 || t.IsNone(extra[0]) {
		if res, ok, err := builtinBinary(slot, va, vb); ok {
			if err != nil {
				return abi.Null, err
			}
			return t.ToObject(res)
		}
	}

	ta, tb := t.TypeOf(a), t.TypeOf(b)
	if ta == nil || tb == nil {
		return abi.Null, SystemError.New("invalid object reference")
	}
	args := append([]abi.Ref{b}, extra...)
	if r, done, err := t.tryObjectSlot(ta, slot, a, args...); done {
		return r, err
	}
	if tb != ta {
		if r, done, err := t.tryObjectSlot(tb, slot, a, args...); done {
			return r, err
		}
	}
	return abi.Null, TypeError.Newf("unsupported operand type(s) for %s: '%s' and '%s'", symbol, ta.Name, tb.Name)
}

// tryObjectSlot calls slot on typ. done is false when the slot is missing or
// returned NotImplemented.
func (t Token) tryObjectSlot(typ *Type, slot abi.SlotID, self abi.Ref, args ...abi.Ref) (abi.Ref, bool, error) {
	e, ok := typ.Slot(slot)
	if !ok {
		return abi.Null, false, nil
	}
	r, err := t.callObject(e, self, args...)
	if err != nil {
		return abi.Null, true, err
	}
	if r == t.rt.notImpl {
		t.DecRef(r)
		return abi.Null, false, nil
	}
	return r, true, nil
}

// InPlaceOp applies an in-place slot, falling back to the binary operation
// when the slot is missing or returns NotImplemented.
func (t Token) InPlaceOp(slot abi.SlotID, a, b abi.Ref) (abi.Ref, error) {
	binary, ok := inplaceOps[slot]
	if !ok {
		return abi.Null, SystemError.Newf("%s is not an in-place slot", slot)
	}
	ta := t.TypeOf(a)
	if ta == nil {
		return abi.Null, SystemError.New("invalid object reference")
	}
	args := []abi.Ref{b}
	if slot == abi.SlotInPlacePow {
		args = append(args, t.rt.none)
	}
	if r, done, err := t.tryObjectSlot(ta, slot, a, args...); done {
		return r, err
	}
	return t.BinaryOp(binary, a, b)
}

// RichCompare compares a and b. The reflected operator is tried on b when a
// declines; EQ and NE fall back to identity.
func (t Token) RichCompare(a, b abi.Ref, op abi.CompareOp) (abi.Ref, error) {
	va, _ := t.Value(a)
	vb, _ := t.Value(b)
	if c, ok := builtinCompare(va, vb); ok {
		return t.NewRef(t.Bool(op.Matches(c))), nil
	}

	ta, tb := t.TypeOf(a), t.TypeOf(b)
	if ta == nil || tb == nil {
		return abi.Null, SystemError.New("invalid object reference")
	}
	if r, done, err := t.tryCompare(ta, a, b, op); done {
		return r, err
	}
	if tb != ta {
		if r, done, err := t.tryCompare(tb, b, a, op.Swapped()); done {
			return r, err
		}
	}

	switch op {
	case abi.CompareEQ:
		return t.NewRef(t.Bool(a == b)), nil
	case abi.CompareNE:
		return t.NewRef(t.Bool(a != b)), nil
	}
	return abi.Null, TypeError.Newf("'%s' not supported between instances of '%s' and '%s'", op, ta.Name, tb.Name)
}

func (t Token) tryCompare(typ *Type, self, other abi.Ref, op abi.CompareOp) (abi.Ref, bool, error) {
	e, ok := typ.Slot(abi.SlotRichCompare)
	if !ok {
		return abi.Null, false, nil
	}
	r, err := t.callRichCompare(e, self, other, op)
	if err != nil {
		return abi.Null, true, err
	}
	if r == t.rt.notImpl {
		t.DecRef(r)
		return abi.Null, false, nil
	}
	return r, true, nil
}

var unarySymbols = map[abi.SlotID]string{
	abi.SlotPositive: "unary +",
	abi.SlotNegative: "unary -",
	abi.SlotInvert:   "unary ~",
	abi.SlotAbsolute: "abs()",
	abi.SlotIndex:    "operator.index()",
	abi.SlotInt:      "int()",
	abi.SlotFloat:    "float()",
	abi.SlotAwait:    "await",
	abi.SlotAIter:    "aiter()",
}

// UnaryOp applies a unary slot.
func (t Token) UnaryOp(slot abi.SlotID, o abi.Ref) (abi.Ref, error) {
	symbol, ok := unarySymbols[slot]
	if !ok {
		return abi.Null, SystemError.Newf("%s is not a unary slot", slot)
	}
	v, _ := t.Value(o)
	if res, ok := builtinUnary(slot, v); ok {
		return t.ToObject(res)
	}
	typ := t.TypeOf(o)
	if typ == nil {
		return abi.Null, SystemError.New("invalid object reference")
	}
	if e, ok := typ.Slot(slot); ok {
		return t.callObject(e, o)
	}
	return abi.Null, TypeError.Newf("bad operand type for %s: '%s'", symbol, typ.Name)
}

func builtinBinary(slot abi.SlotID, a, b any) (any, bool, error) {
	if sa, ok := a.(string); ok {
		switch slot {
		case abi.SlotAdd:
			if sb, ok := b.(string); ok {
				return sa + sb, true, nil
			}
		case abi.SlotMultiply:
			if n, ok := intValue(b); ok {
				if n < 0 {
					n = 0
				}
				return strings.Repeat(sa, int(n)), true, nil
			}
		}
		return nil, false, nil
	}

	ia, aInt := intValue(a)
	ib, bInt := intValue(b)
	if aInt && bInt {
		return intBinary(slot, ia, ib)
	}
	fa, aNum := floatValue(a)
	fb, bNum := floatValue(b)
	if aNum && bNum {
		return floatBinary(slot, fa, fb)
	}
	return nil, false, nil
}

func intBinary(slot abi.SlotID, a, b int64) (any, bool, error) {
	switch slot {
	case abi.SlotAdd:
		return a + b, true, nil
	case abi.SlotSubtract:
		return a - b, true, nil
	case abi.SlotMultiply:
		return a * b, true, nil
	case abi.SlotTrueDivide:
		if b == 0 {
			return nil, true, ZeroDivisionError.New("division by zero")
		}
		return float64(a) / float64(b), true, nil
	case abi.SlotFloorDivide, abi.SlotRemainder:
		if b == 0 {
			return nil, true, ZeroDivisionError.New("integer division or modulo by zero")
		}
		q, r := a/b, a%b
		if r != 0 && (r < 0) != (b < 0) {
			q--
			r += b
		}
		if slot == abi.SlotFloorDivide {
			return q, true, nil
		}
		return r, true, nil
	case abi.SlotPower:
		if b < 0 {
			return math.Pow(float64(a), float64(b)), true, nil
		}
		out := int64(1)
		for i := int64(0); i < b; i++ {
			out *= a
		}
		return out, true, nil
	case abi.SlotLShift:
		if b < 0 {
			return nil, true, ValueError.New("negative shift count")
		}
		return a << uint64(b), true, nil
	case abi.SlotRShift:
		if b < 0 {
			return nil, true, ValueError.New("negative shift count")
		}
		return a >> uint64(b), true, nil
	case abi.SlotAnd:
		return a & b, true, nil
	case abi.SlotXor:
		return a ^ b, true, nil
	case abi.SlotOr:
		return a | b, true, nil
	}
	return nil, false, nil
}

func floatBinary(slot abi.SlotID, a, b float64) (any, bool, error) {
	switch slot {
	case abi.SlotAdd:
		return a + b, true, nil
	case abi.SlotSubtract:
		return a - b, true, nil
	case abi.SlotMultiply:
		return a * b, true, nil
	case abi.SlotTrueDivide:
		if b == 0 {
			return nil, true, ZeroDivisionError.New("float division by zero")
		}
		return a / b, true, nil
	case abi.SlotFloorDivide:
		if b == 0 {
			return nil, true, ZeroDivisionError.New("float floor division by zero")
		}
		return math.Floor(a / b), true, nil
	case abi.SlotRemainder:
		if b == 0 {
			return nil, true, ZeroDivisionError.New("float modulo")
		}
		return a - math.Floor(a/b)*b, true, nil
	case abi.SlotPower:
		return math.Pow(a, b), true, nil
	}
	return nil, false, nil
}

func builtinUnary(slot abi.SlotID, v any) (any, bool) {
	if n, ok := intValue(v); ok {
		switch slot {
		case abi.SlotPositive, abi.SlotIndex, abi.SlotInt:
			return n, true
		case abi.SlotNegative:
			return -n, true
		case abi.SlotInvert:
			return ^n, true
		case abi.SlotAbsolute:
			if n < 0 {
				return -n, true
			}
			return n, true
		case abi.SlotFloat:
			return float64(n), true
		}
		return nil, false
	}
	if f, ok := v.(float64); ok {
		switch slot {
		case abi.SlotPositive, abi.SlotFloat:
			return f, true
		case abi.SlotNegative:
			return -f, true
		case abi.SlotAbsolute:
			return math.Abs(f), true
		case abi.SlotInt:
			return int64(f), true
		}
	}
	return nil, false
}

// builtinCompare orders two numbers or two strings.
func builtinCompare(a, b any) (int, bool) {
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return cmp.Compare(sa, sb), true
	}
	if ia, ok := intValue(a); ok {
		if ib, ok := intValue(b); ok {
			return cmp.Compare(ia, ib), true
		}
	}
	fa, ok := floatValue(a)
	if !ok {
		return 0, false
	}
	fb, ok := floatValue(b)
	if !ok {
		return 0, false
	}
	return cmp.Compare(fa, fb), true
}
