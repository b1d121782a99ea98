package slots

import (
	"github.com/wippyai/slotbridge/abi"
)

// CatalogVersion is the version of the protocol method catalog. Declaration
// files name the catalog version they were written against.
const CatalogVersion = "v1.0.0"

// ErrorMode decides what an argument extraction failure produces.
type ErrorMode uint8

const (
	// ErrorPropagate raises the extraction failure.
	ErrorPropagate ErrorMode = iota
	// ErrorFallback returns NotImplemented so the runtime can try the other
	// operand.
	ErrorFallback
)

func (m ErrorMode) String() string {
	if m == ErrorFallback {
		return "fallback"
	}
	return "propagate"
}

// ReturnMode decides how a successful native result is returned.
type ReturnMode uint8

const (
	// ReturnDirect converts the native result.
	ReturnDirect ReturnMode = iota
	// ReturnReceiver discards the native result and returns the receiver
	// with one more reference.
	ReturnReceiver
)

func (m ReturnMode) String() string {
	if m == ReturnReceiver {
		return "receiver"
	}
	return "direct"
}

// Output is the wrapper a direct result passes through before encoding.
type Output uint8

const (
	OutputPlain Output = iota
	OutputHash
	OutputIterNext
	OutputIterANext
)

var outputNames = [...]string{"plain", "hash", "iter-next", "iter-anext"}

func (o Output) String() string {
	if int(o) < len(outputNames) {
		return outputNames[o]
	}
	return "unknown"
}

// Hook runs before the native body.
type Hook uint8

const (
	HookNone Hook = iota
	// HookGenericGetAttr answers from the generic attribute lookup and only
	// reaches the native body when that lookup fails.
	HookGenericGetAttr
)

func (h Hook) String() string {
	if h == HookGenericGetAttr {
		return "generic-getattr"
	}
	return "none"
}

// SlotDef describes a protocol method that owns a whole slot.
type SlotDef struct {
	Method    string
	Slot      abi.SlotID
	FnType    abi.FnPointer
	Args      []abi.Kind
	Ret       abi.Kind
	Hook      Hook
	ErrorMode ErrorMode
	Return    ReturnMode
	Output    Output
}

// FragmentRole is the position of a fragment in its owning slot.
type FragmentRole uint8

const (
	// RoleForward is tried first with the operands in order.
	RoleForward FragmentRole = iota
	// RoleReflected is tried second with the operands swapped.
	RoleReflected
	// RoleSet handles a non-null value.
	RoleSet
	// RoleDelete handles a null value.
	RoleDelete
)

var roleNames = [...]string{"forward", "reflected", "set", "delete"}

func (r FragmentRole) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "unknown"
}

// FragmentDef describes a protocol method that fills part of a shared slot.
type FragmentDef struct {
	Method    string
	Trait     string
	Slot      abi.SlotID
	Args      []abi.Kind
	Ret       abi.Kind
	Role      FragmentRole
	ErrorMode ErrorMode
}
