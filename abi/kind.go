package abi

import (
	"github.com/tetratelabs/wazero/api"
)

// Kind is a value kind that can cross the foreign boundary.
type Kind uint8

const (
	// KindObject is a borrowed object reference. Null is a failure.
	KindObject Kind = iota
	// KindObjectOrFallback is an object reference whose extraction failure
	// yields the NotImplemented marker instead of an error.
	KindObjectOrFallback
	// KindNonNullObject is an object reference the caller guarantees non-null.
	KindNonNullObject
	// KindCompareCode is a raw rich-comparison operator code.
	KindCompareCode
	// KindInt is a C int status or boolean result.
	KindInt
	// KindHashInt is a hash-width integer.
	KindHashInt
	// KindSizeInt is a size-width integer.
	KindSizeInt
	// KindUnit carries no value.
	KindUnit
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindObject,
	KindObjectOrFallback,
	KindNonNullObject,
	KindCompareCode,
	KindInt,
	KindHashInt,
	KindSizeInt,
	KindUnit,
}

var kindNames = [...]string{
	KindObject:           "object",
	KindObjectOrFallback: "object-or-fallback",
	KindNonNullObject:    "non-null-object",
	KindCompareCode:      "compare-op",
	KindInt:              "int",
	KindHashInt:          "hash",
	KindSizeInt:          "ssize",
	KindUnit:             "unit",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsObject reports whether k carries an object reference.
func (k Kind) IsObject() bool {
	switch k {
	case KindObject, KindObjectOrFallback, KindNonNullObject:
		return true
	}
	return false
}

// ValueType returns the wazero value type k is encoded as. Unit has none.
func (k Kind) ValueType() (api.ValueType, bool) {
	switch k {
	case KindObject, KindObjectOrFallback, KindNonNullObject, KindCompareCode, KindInt:
		return api.ValueTypeI32, true
	case KindHashInt, KindSizeInt:
		return api.ValueTypeI64, true
	}
	return 0, false
}

// ErrorValue returns the raw word a slot returning k writes on failure.
func (k Kind) ErrorValue() uint64 {
	switch k {
	case KindCompareCode, KindInt:
		return api.EncodeI32(-1)
	case KindHashInt, KindSizeInt:
		return api.EncodeI64(-1)
	}
	return 0
}

// ParseKind resolves a kind by its String name.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}
