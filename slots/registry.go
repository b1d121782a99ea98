package slots

import (
	"sort"
	"strings"

	"github.com/wippyai/slotbridge/abi"
)

var (
	objectArg   = []abi.Kind{abi.KindObject}
	fallbackArg = []abi.Kind{abi.KindObjectOrFallback}
	fallback2   = []abi.Kind{abi.KindObjectOrFallback, abi.KindObjectOrFallback}
)

func slot(method string, id abi.SlotID, fn abi.FnPointer) SlotDef {
	return SlotDef{Method: method, Slot: id, FnType: fn, Ret: fn.Result}
}

func inplace(method string, id abi.SlotID) SlotDef {
	d := slot(method, id, abi.FnBinary)
	d.Args = fallbackArg
	d.ErrorMode = ErrorFallback
	d.Return = ReturnReceiver
	return d
}

func division(method string, id abi.SlotID) SlotDef {
	d := slot(method, id, abi.FnBinary)
	d.Args = fallbackArg
	d.ErrorMode = ErrorFallback
	return d
}

var slotDefs = func() map[string]*SlotDef {
	defs := []SlotDef{
		func() SlotDef {
			d := slot("__getattr__", abi.SlotGetAttro, abi.FnGetAttro)
			d.Args = objectArg
			d.Hook = HookGenericGetAttr
			return d
		}(),
		slot("__str__", abi.SlotStr, abi.FnRepr),
		slot("__repr__", abi.SlotRepr, abi.FnRepr),
		func() SlotDef {
			d := slot("__hash__", abi.SlotHash, abi.FnHash)
			d.Output = OutputHash
			return d
		}(),
		func() SlotDef {
			d := slot("__richcmp__", abi.SlotRichCompare, abi.FnRichCmp)
			d.Args = []abi.Kind{abi.KindObjectOrFallback, abi.KindCompareCode}
			d.ErrorMode = ErrorFallback
			return d
		}(),
		func() SlotDef {
			d := slot("__get__", abi.SlotDescrGet, abi.FnDescrGet)
			d.Args = []abi.Kind{abi.KindObject, abi.KindObject}
			return d
		}(),
		slot("__iter__", abi.SlotIter, abi.FnGetIter),
		func() SlotDef {
			d := slot("__next__", abi.SlotIterNext, abi.FnIterNext)
			d.Output = OutputIterNext
			return d
		}(),
		slot("__await__", abi.SlotAwait, abi.FnUnary),
		slot("__aiter__", abi.SlotAIter, abi.FnUnary),
		func() SlotDef {
			d := slot("__anext__", abi.SlotANext, abi.FnUnary)
			d.Output = OutputIterANext
			return d
		}(),
		slot("__len__", abi.SlotLength, abi.FnLen),
		func() SlotDef {
			d := slot("__contains__", abi.SlotContains, abi.FnObjObjProc)
			d.Args = objectArg
			return d
		}(),
		func() SlotDef {
			d := slot("__getitem__", abi.SlotSubscript, abi.FnBinary)
			d.Args = objectArg
			return d
		}(),
		slot("__pos__", abi.SlotPositive, abi.FnUnary),
		slot("__neg__", abi.SlotNegative, abi.FnUnary),
		slot("__abs__", abi.SlotAbsolute, abi.FnUnary),
		slot("__invert__", abi.SlotInvert, abi.FnUnary),
		slot("__index__", abi.SlotIndex, abi.FnUnary),
		slot("__int__", abi.SlotInt, abi.FnUnary),
		slot("__float__", abi.SlotFloat, abi.FnUnary),
		slot("__bool__", abi.SlotBool, abi.FnInquiry),
		division("__truediv__", abi.SlotTrueDivide),
		division("__floordiv__", abi.SlotFloorDivide),
		inplace("__iadd__", abi.SlotInPlaceAdd),
		inplace("__isub__", abi.SlotInPlaceSub),
		inplace("__imul__", abi.SlotInPlaceMul),
		inplace("__imatmul__", abi.SlotInPlaceMatMul),
		inplace("__itruediv__", abi.SlotInPlaceTrueDiv),
		inplace("__ifloordiv__", abi.SlotInPlaceFlrDiv),
		inplace("__imod__", abi.SlotInPlaceRem),
		func() SlotDef {
			d := slot("__ipow__", abi.SlotInPlacePow, abi.FnTernary)
			d.Args = fallback2
			d.ErrorMode = ErrorFallback
			d.Return = ReturnReceiver
			return d
		}(),
		inplace("__ilshift__", abi.SlotInPlaceLShift),
		inplace("__irshift__", abi.SlotInPlaceRShift),
		inplace("__iand__", abi.SlotInPlaceAnd),
		inplace("__ixor__", abi.SlotInPlaceXor),
		inplace("__ior__", abi.SlotInPlaceOr),
	}

	m := make(map[string]*SlotDef, len(defs))
	for i := range defs {
		m[defs[i].Method] = &defs[i]
	}
	return m
}()

// traitName derives the fragment trait name, "__radd__" -> "RaddSlotFragment".
func traitName(method string) string {
	base := strings.Trim(method, "_")
	return strings.ToUpper(base[:1]) + base[1:] + "SlotFragment"
}

func fragment(method string, id abi.SlotID, role FragmentRole, args []abi.Kind) FragmentDef {
	return FragmentDef{
		Method: method,
		Trait:  traitName(method),
		Slot:   id,
		Role:   role,
		Args:   args,
		Ret:    abi.KindUnit,
	}
}

func binaryFragments(forward, reflected string, id abi.SlotID, args []abi.Kind) []FragmentDef {
	out := []FragmentDef{
		fragment(forward, id, RoleForward, args),
		fragment(reflected, id, RoleReflected, args),
	}
	for i := range out {
		out[i].ErrorMode = ErrorFallback
		out[i].Ret = abi.KindObject
	}
	return out
}

var setArgs = []abi.Kind{abi.KindObject, abi.KindNonNullObject}

var fragmentDefs = func() map[string]*FragmentDef {
	defs := []FragmentDef{
		fragment("__setattr__", abi.SlotSetAttro, RoleSet, setArgs),
		fragment("__delattr__", abi.SlotSetAttro, RoleDelete, objectArg),
		fragment("__set__", abi.SlotDescrSet, RoleSet, setArgs),
		fragment("__delete__", abi.SlotDescrSet, RoleDelete, objectArg),
		fragment("__setitem__", abi.SlotAssSubscript, RoleSet, setArgs),
		fragment("__delitem__", abi.SlotAssSubscript, RoleDelete, objectArg),
	}
	defs = append(defs, binaryFragments("__add__", "__radd__", abi.SlotAdd, fallbackArg)...)
	defs = append(defs, binaryFragments("__sub__", "__rsub__", abi.SlotSubtract, fallbackArg)...)
	defs = append(defs, binaryFragments("__mul__", "__rmul__", abi.SlotMultiply, fallbackArg)...)
	defs = append(defs, binaryFragments("__matmul__", "__rmatmul__", abi.SlotMatMul, fallbackArg)...)
	defs = append(defs, binaryFragments("__divmod__", "__rdivmod__", abi.SlotDivmod, fallbackArg)...)
	defs = append(defs, binaryFragments("__mod__", "__rmod__", abi.SlotRemainder, fallbackArg)...)
	defs = append(defs, binaryFragments("__lshift__", "__rlshift__", abi.SlotLShift, fallbackArg)...)
	defs = append(defs, binaryFragments("__rshift__", "__rrshift__", abi.SlotRShift, fallbackArg)...)
	defs = append(defs, binaryFragments("__and__", "__rand__", abi.SlotAnd, fallbackArg)...)
	defs = append(defs, binaryFragments("__xor__", "__rxor__", abi.SlotXor, fallbackArg)...)
	defs = append(defs, binaryFragments("__or__", "__ror__", abi.SlotOr, fallbackArg)...)
	defs = append(defs, binaryFragments("__pow__", "__rpow__", abi.SlotPower, fallback2)...)

	m := make(map[string]*FragmentDef, len(defs))
	for i := range defs {
		m[defs[i].Method] = &defs[i]
	}
	return m
}()

// fragmentOwners is the shape of every slot that fragments fill.
var fragmentOwners = map[abi.SlotID]abi.FnPointer{
	abi.SlotSetAttro:     abi.FnSetAttro,
	abi.SlotDescrSet:     abi.FnDescrSet,
	abi.SlotAssSubscript: abi.FnObjObjArg,
	abi.SlotAdd:          abi.FnBinary,
	abi.SlotSubtract:     abi.FnBinary,
	abi.SlotMultiply:     abi.FnBinary,
	abi.SlotMatMul:       abi.FnBinary,
	abi.SlotDivmod:       abi.FnBinary,
	abi.SlotRemainder:    abi.FnBinary,
	abi.SlotLShift:       abi.FnBinary,
	abi.SlotRShift:       abi.FnBinary,
	abi.SlotAnd:          abi.FnBinary,
	abi.SlotXor:          abi.FnBinary,
	abi.SlotOr:           abi.FnBinary,
	abi.SlotPower:        abi.FnTernary,
}

// LookupSlot returns the single-owner slot definition for a method name.
func LookupSlot(method string) (*SlotDef, bool) {
	d, ok := slotDefs[method]
	return d, ok
}

// LookupFragment returns the fragment definition for a method name.
func LookupFragment(method string) (*FragmentDef, bool) {
	d, ok := fragmentDefs[method]
	return d, ok
}

// OwnerFnType returns the shape of a slot filled by fragments.
func OwnerFnType(id abi.SlotID) (abi.FnPointer, bool) {
	fp, ok := fragmentOwners[id]
	return fp, ok
}

// FragmentsFor returns the fragments that fill slot id, ordered by role.
func FragmentsFor(id abi.SlotID) []*FragmentDef {
	var out []*FragmentDef
	for _, d := range fragmentDefs {
		if d.Slot == id {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}

// Entry is one row of the catalog listing.
type Entry struct {
	Method    string
	Category  Category
	Slot      abi.SlotID
	FnType    string
	Trait     string
	Args      []abi.Kind
	Ret       abi.Kind
	ErrorMode ErrorMode
	Return    ReturnMode
}

// Catalog lists every protocol method name, sorted by slot then method.
func Catalog() []Entry {
	out := make([]Entry, 0, len(slotDefs)+len(fragmentDefs))
	for _, d := range slotDefs {
		out = append(out, Entry{
			Method:    d.Method,
			Category:  CategorySlot,
			Slot:      d.Slot,
			FnType:    d.FnType.Name,
			Args:      d.Args,
			Ret:       d.Ret,
			ErrorMode: d.ErrorMode,
			Return:    d.Return,
		})
	}
	for _, d := range fragmentDefs {
		fp := fragmentOwners[d.Slot]
		out = append(out, Entry{
			Method:    d.Method,
			Category:  CategoryFragment,
			Slot:      d.Slot,
			FnType:    fp.Name,
			Trait:     d.Trait,
			Args:      d.Args,
			Ret:       d.Ret,
			ErrorMode: d.ErrorMode,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].Method < out[j].Method
	})
	return out
}
