package abi

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// SlotFunc is a raw slot entry point. stack[0] holds the receiver on entry
// and the result on return; stack[1:] holds the arguments.
type SlotFunc func(ctx context.Context, stack []uint64)

// MethodKind is the binding of an ordinary callable.
type MethodKind uint8

const (
	MethodInstance MethodKind = iota
	MethodClass
	MethodStatic
	MethodClassAttr
	MethodNew
	MethodCall
)

var methodKindNames = [...]string{"instance", "class", "static", "classattr", "new", "call"}

func (k MethodKind) String() string {
	if int(k) < len(methodKindNames) {
		return methodKindNames[k]
	}
	return "unknown"
}

// ParseMethodKind resolves a method kind by its String name.
func ParseMethodKind(name string) (MethodKind, bool) {
	for i, n := range methodKindNames {
		if n == name {
			return MethodKind(i), true
		}
	}
	return 0, false
}

// HasReceiver reports whether callables of kind k are bound to an instance.
func (k MethodKind) HasReceiver() bool {
	return k == MethodInstance || k == MethodCall
}

// MethodFunc is a raw ordinary callable. It returns a new reference, or null
// with the error indicator set.
type MethodFunc func(ctx context.Context, self Ref, args []Ref) Ref

// SlotID names a dispatch table entry of a foreign type.
type SlotID string

const (
	SlotGetAttro       SlotID = "tp_getattro"
	SlotSetAttro       SlotID = "tp_setattro"
	SlotStr            SlotID = "tp_str"
	SlotRepr           SlotID = "tp_repr"
	SlotHash           SlotID = "tp_hash"
	SlotRichCompare    SlotID = "tp_richcompare"
	SlotDescrGet       SlotID = "tp_descr_get"
	SlotDescrSet       SlotID = "tp_descr_set"
	SlotIter           SlotID = "tp_iter"
	SlotIterNext       SlotID = "tp_iternext"
	SlotAwait          SlotID = "am_await"
	SlotAIter          SlotID = "am_aiter"
	SlotANext          SlotID = "am_anext"
	SlotLength         SlotID = "mp_length"
	SlotSubscript      SlotID = "mp_subscript"
	SlotAssSubscript   SlotID = "mp_ass_subscript"
	SlotContains       SlotID = "sq_contains"
	SlotPositive       SlotID = "nb_positive"
	SlotNegative       SlotID = "nb_negative"
	SlotAbsolute       SlotID = "nb_absolute"
	SlotInvert         SlotID = "nb_invert"
	SlotIndex          SlotID = "nb_index"
	SlotInt            SlotID = "nb_int"
	SlotFloat          SlotID = "nb_float"
	SlotBool           SlotID = "nb_bool"
	SlotAdd            SlotID = "nb_add"
	SlotSubtract       SlotID = "nb_subtract"
	SlotMultiply       SlotID = "nb_multiply"
	SlotMatMul         SlotID = "nb_matrix_multiply"
	SlotTrueDivide     SlotID = "nb_true_divide"
	SlotFloorDivide    SlotID = "nb_floor_divide"
	SlotRemainder      SlotID = "nb_remainder"
	SlotDivmod         SlotID = "nb_divmod"
	SlotPower          SlotID = "nb_power"
	SlotLShift         SlotID = "nb_lshift"
	SlotRShift         SlotID = "nb_rshift"
	SlotAnd            SlotID = "nb_and"
	SlotXor            SlotID = "nb_xor"
	SlotOr             SlotID = "nb_or"
	SlotInPlaceAdd     SlotID = "nb_inplace_add"
	SlotInPlaceSub     SlotID = "nb_inplace_subtract"
	SlotInPlaceMul     SlotID = "nb_inplace_multiply"
	SlotInPlaceMatMul  SlotID = "nb_inplace_matrix_multiply"
	SlotInPlaceTrueDiv SlotID = "nb_inplace_true_divide"
	SlotInPlaceFlrDiv  SlotID = "nb_inplace_floor_divide"
	SlotInPlaceRem     SlotID = "nb_inplace_remainder"
	SlotInPlacePow     SlotID = "nb_inplace_power"
	SlotInPlaceLShift  SlotID = "nb_inplace_lshift"
	SlotInPlaceRShift  SlotID = "nb_inplace_rshift"
	SlotInPlaceAnd     SlotID = "nb_inplace_and"
	SlotInPlaceXor     SlotID = "nb_inplace_xor"
	SlotInPlaceOr      SlotID = "nb_inplace_or"
)

// FnPointer describes the shape of a slot function-pointer type: the kinds of
// the parameters after the receiver and the result kind.
type FnPointer struct {
	Name   string
	Params []Kind
	Result Kind
}

// Function-pointer shapes.
var (
	FnUnary      = FnPointer{Name: "unaryfunc", Result: KindObject}
	FnRepr       = FnPointer{Name: "reprfunc", Result: KindObject}
	FnGetIter    = FnPointer{Name: "getiterfunc", Result: KindObject}
	FnIterNext   = FnPointer{Name: "iternextfunc", Result: KindObject}
	FnBinary     = FnPointer{Name: "binaryfunc", Params: []Kind{KindObject}, Result: KindObject}
	FnGetAttro   = FnPointer{Name: "getattrofunc", Params: []Kind{KindObject}, Result: KindObject}
	FnTernary    = FnPointer{Name: "ternaryfunc", Params: []Kind{KindObject, KindObject}, Result: KindObject}
	FnHash       = FnPointer{Name: "hashfunc", Result: KindHashInt}
	FnRichCmp    = FnPointer{Name: "richcmpfunc", Params: []Kind{KindObject, KindCompareCode}, Result: KindObject}
	FnDescrGet   = FnPointer{Name: "descrgetfunc", Params: []Kind{KindObject, KindObject}, Result: KindObject}
	FnDescrSet   = FnPointer{Name: "descrsetfunc", Params: []Kind{KindObject, KindObject}, Result: KindInt}
	FnLen        = FnPointer{Name: "lenfunc", Result: KindSizeInt}
	FnObjObjProc = FnPointer{Name: "objobjproc", Params: []Kind{KindObject}, Result: KindInt}
	FnObjObjArg  = FnPointer{Name: "objobjargproc", Params: []Kind{KindObject, KindObject}, Result: KindInt}
	FnInquiry    = FnPointer{Name: "inquiry", Result: KindInt}
	FnSetAttro   = FnPointer{Name: "setattrofunc", Params: []Kind{KindObject, KindObject}, Result: KindInt}
	FnGetter     = FnPointer{Name: "getter", Result: KindObject}
	FnSetter     = FnPointer{Name: "setter", Params: []Kind{KindObject}, Result: KindInt}
)

var fnPointers = map[string]FnPointer{}

func init() {
	for _, fp := range []FnPointer{
		FnUnary, FnRepr, FnGetIter, FnIterNext, FnBinary, FnGetAttro, FnTernary,
		FnHash, FnRichCmp, FnDescrGet, FnDescrSet, FnLen, FnObjObjProc,
		FnObjObjArg, FnInquiry, FnSetAttro, FnGetter, FnSetter,
	} {
		fnPointers[fp.Name] = fp
	}
}

// LookupFnPointer returns the shape registered under name.
func LookupFnPointer(name string) (FnPointer, bool) {
	fp, ok := fnPointers[name]
	return fp, ok
}

// ParamTypes returns the wazero parameter types including the receiver.
func (fp FnPointer) ParamTypes() []api.ValueType {
	out := make([]api.ValueType, 0, len(fp.Params)+1)
	out = append(out, api.ValueTypeI32)
	for _, k := range fp.Params {
		if vt, ok := k.ValueType(); ok {
			out = append(out, vt)
		}
	}
	return out
}

// ResultTypes returns the wazero result types.
func (fp FnPointer) ResultTypes() []api.ValueType {
	if vt, ok := fp.Result.ValueType(); ok {
		return []api.ValueType{vt}
	}
	return nil
}

// StackSize returns the number of stack words a call needs.
func (fp FnPointer) StackSize() int {
	return len(fp.Params) + 1
}
