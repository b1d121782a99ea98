package abi

import (
	"github.com/tetratelabs/wazero/api"
)

// Ref is a raw foreign object reference.
type Ref uint32

// Null is the null object reference.
const Null Ref = 0

// IsNull reports whether r is the null reference.
func (r Ref) IsNull() bool { return r == Null }

// EncodeRef packs r into a stack word.
func EncodeRef(r Ref) uint64 {
	return api.EncodeU32(uint32(r))
}

// DecodeRef unpacks a stack word into a reference.
func DecodeRef(w uint64) Ref {
	return Ref(api.DecodeU32(w))
}

// EncodeInt packs a C int.
func EncodeInt(v int32) uint64 {
	return api.EncodeI32(v)
}

// DecodeInt unpacks a C int.
func DecodeInt(w uint64) int32 {
	return api.DecodeI32(w)
}

// EncodeHash packs a hash value, normalizing it first.
func EncodeHash(h int64) uint64 {
	return api.EncodeI64(NormalizeHash(h))
}

// DecodeHash unpacks a hash value.
func DecodeHash(w uint64) int64 {
	return int64(w)
}

// EncodeSize packs a size value.
func EncodeSize(n int64) uint64 {
	return api.EncodeI64(n)
}

// DecodeSize unpacks a size value.
func DecodeSize(w uint64) int64 {
	return int64(w)
}

// NormalizeHash maps a native hash into the foreign hash domain, where -1 is
// reserved for failure.
func NormalizeHash(h int64) int64 {
	if h == -1 {
		return -2
	}
	return h
}

// Encode packs a Go integer as the word kind k uses.
func Encode(k Kind, v int64) uint64 {
	switch k {
	case KindHashInt:
		return EncodeHash(v)
	case KindSizeInt:
		return EncodeSize(v)
	case KindUnit:
		return 0
	}
	return api.EncodeI32(int32(v))
}

// Decode unpacks a word of kind k into a Go integer.
func Decode(k Kind, w uint64) int64 {
	switch k {
	case KindHashInt, KindSizeInt:
		return int64(w)
	case KindUnit:
		return 0
	case KindObject, KindObjectOrFallback, KindNonNullObject:
		return int64(DecodeRef(w))
	}
	return int64(api.DecodeI32(w))
}
