package abi

// CompareOp is a rich-comparison operator.
type CompareOp int32

const (
	CompareLT CompareOp = iota
	CompareLE
	CompareEQ
	CompareNE
	CompareGT
	CompareGE
)

var compareSymbols = [...]string{"<", "<=", "==", "!=", ">", ">="}

// CompareOpFromRaw decodes a raw operator code. Codes outside LT..GE fail.
func CompareOpFromRaw(raw int32) (CompareOp, bool) {
	if raw < int32(CompareLT) || raw > int32(CompareGE) {
		return 0, false
	}
	return CompareOp(raw), true
}

// Swapped returns the operator to use with the operands reversed.
func (op CompareOp) Swapped() CompareOp {
	switch op {
	case CompareLT:
		return CompareGT
	case CompareLE:
		return CompareGE
	case CompareGT:
		return CompareLT
	case CompareGE:
		return CompareLE
	}
	return op
}

// Matches reports whether a three-way comparison result satisfies op.
func (op CompareOp) Matches(cmp int) bool {
	switch op {
	case CompareLT:
		return cmp < 0
	case CompareLE:
		return cmp <= 0
	case CompareEQ:
		return cmp == 0
	case CompareNE:
		return cmp != 0
	case CompareGT:
		return cmp > 0
	case CompareGE:
		return cmp >= 0
	}
	return false
}

func (op CompareOp) String() string {
	if op >= CompareLT && op <= CompareGE {
		return compareSymbols[op]
	}
	return "?"
}
