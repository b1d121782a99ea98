package foreign

import (
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/slotbridge/abi"
)

// Repr returns the representation of o.
func (t Token) Repr(o abi.Ref) (string, error) {
	typ := t.TypeOf(o)
	if typ == nil {
		return "", SystemError.New("invalid object reference")
	}
	if e, ok := typ.Slot(abi.SlotRepr); ok {
		return t.stringResult(e, o, "__repr__")
	}
	v, _ := t.Value(o)
	return t.builtinRepr(typ, v), nil
}

// Str returns the string form of o, falling back to Repr.
func (t Token) Str(o abi.Ref) (string, error) {
	typ := t.TypeOf(o)
	if typ == nil {
		return "", SystemError.New("invalid object reference")
	}
	if e, ok := typ.Slot(abi.SlotStr); ok {
		return t.stringResult(e, o, "__str__")
	}
	if s, ok := t.AsStr(o); ok {
		return s, nil
	}
	return t.Repr(o)
}

func (t Token) stringResult(e SlotEntry, o abi.Ref, method string) (string, error) {
	r, err := t.callObject(e, o)
	if err != nil {
		return "", err
	}
	defer t.DecRef(r)
	s, ok := t.AsStr(r)
	if !ok {
		return "", TypeError.Newf("%s returned non-string (type %s)", method, t.TypeName(r))
	}
	return s, nil
}

func (t Token) builtinRepr(typ *Type, v any) string {
	switch x := v.(type) {
	case noneObj:
		return "None"
	case notImplementedObj:
		return "NotImplemented"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	case string:
		return "'" + strings.ReplaceAll(x, "'", "\\'") + "'"
	case *Tuple:
		parts := make([]string, len(x.Items))
		for i, item := range x.Items {
			parts[i], _ = t.Repr(item)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *Type:
		return "<class '" + x.Name + "'>"
	case *BoundMethod:
		return "<bound method " + x.Def.Name + ">"
	}
	return "<" + typ.Name + " object>"
}

// Hash returns the hash of o. The result is never -1.
func (t Token) Hash(o abi.Ref) (int64, error) {
	typ := t.TypeOf(o)
	if typ == nil {
		return -1, SystemError.New("invalid object reference")
	}
	if e, ok := typ.Slot(abi.SlotHash); ok {
		return t.callInt(e, o)
	}
	v, _ := t.Value(o)
	switch x := v.(type) {
	case int64:
		return abi.NormalizeHash(x), nil
	case bool:
		n, _ := intValue(x)
		return n, nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < math.MaxInt64 {
			return abi.NormalizeHash(int64(x)), nil
		}
		return abi.NormalizeHash(int64(math.Float64bits(x))), nil
	case string:
		h := fnv.New64a()
		_, _ = h.Write([]byte(x))
		return abi.NormalizeHash(int64(h.Sum64())), nil
	case *Tuple:
		acc := int64(0x345678)
		for _, item := range x.Items {
			ih, err := t.Hash(item)
			if err != nil {
				return -1, err
			}
			acc = (acc ^ ih) * 1000003
		}
		return abi.NormalizeHash(acc), nil
	}
	return abi.NormalizeHash(int64(o)), nil
}

// Len returns the length of o.
func (t Token) Len(o abi.Ref) (int64, error) {
	typ := t.TypeOf(o)
	if typ == nil {
		return -1, SystemError.New("invalid object reference")
	}
	if e, ok := typ.Slot(abi.SlotLength); ok {
		return t.callInt(e, o)
	}
	v, _ := t.Value(o)
	switch x := v.(type) {
	case string:
		return int64(utf8.RuneCountInString(x)), nil
	case *Tuple:
		return int64(len(x.Items)), nil
	}
	return -1, TypeError.Newf("object of type '%s' has no len()", typ.Name)
}

// Contains reports whether item is in o.
func (t Token) Contains(o, item abi.Ref) (bool, error) {
	typ := t.TypeOf(o)
	if typ == nil {
		return false, SystemError.New("invalid object reference")
	}
	if e, ok := typ.Slot(abi.SlotContains); ok {
		n, err := t.callInt(e, o, item)
		return n == 1, err
	}
	v, _ := t.Value(o)
	switch x := v.(type) {
	case string:
		s, ok := t.AsStr(item)
		if !ok {
			return false, TypeError.Newf("'in <string>' requires string as left operand, not %s", t.TypeName(item))
		}
		return strings.Contains(x, s), nil
	case *Tuple:
		for _, elem := range x.Items {
			eq, err := t.equal(elem, item)
			if err != nil || eq {
				return eq, err
			}
		}
		return false, nil
	}
	return false, TypeError.Newf("argument of type '%s' is not iterable", typ.Name)
}

func (t Token) equal(a, b abi.Ref) (bool, error) {
	if a == b {
		return true, nil
	}
	r, err := t.RichCompare(a, b, abi.CompareEQ)
	if err != nil {
		return false, err
	}
	defer t.DecRef(r)
	return t.Truthy(r)
}

// GetItem returns o[key].
func (t Token) GetItem(o, key abi.Ref) (abi.Ref, error) {
	typ := t.TypeOf(o)
	if typ == nil {
		return abi.Null, SystemError.New("invalid object reference")
	}
	if e, ok := typ.Slot(abi.SlotSubscript); ok {
		return t.callObject(e, o, key)
	}
	v, _ := t.Value(o)
	switch x := v.(type) {
	case *Tuple:
		i, err := t.index(key, len(x.Items), "tuple")
		if err != nil {
			return abi.Null, err
		}
		return t.NewRef(x.Items[i]), nil
	case string:
		runes := []rune(x)
		i, err := t.index(key, len(runes), "string")
		if err != nil {
			return abi.Null, err
		}
		return t.NewStr(string(runes[i])), nil
	}
	return abi.Null, TypeError.Newf("'%s' object is not subscriptable", typ.Name)
}

func (t Token) index(key abi.Ref, n int, what string) (int, error) {
	i, ok := t.AsInt(key)
	if !ok {
		return 0, TypeError.Newf("%s indices must be integers, not '%s'", what, t.TypeName(key))
	}
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, IndexError.Newf("%s index out of range", what)
	}
	return int(i), nil
}

// SetItem performs o[key] = value.
func (t Token) SetItem(o, key, value abi.Ref) error {
	if value == abi.Null {
		return SystemError.New("NULL value passed to SetItem")
	}
	return t.assSubscript(o, key, value, "assignment")
}

// DelItem performs del o[key].
func (t Token) DelItem(o, key abi.Ref) error {
	return t.assSubscript(o, key, abi.Null, "deletion")
}

func (t Token) assSubscript(o, key, value abi.Ref, what string) error {
	typ := t.TypeOf(o)
	if typ == nil {
		return SystemError.New("invalid object reference")
	}
	e, ok := typ.Slot(abi.SlotAssSubscript)
	if !ok {
		return TypeError.Newf("'%s' object does not support item %s", typ.Name, what)
	}
	_, err := t.callInt(e, o, key, value)
	return err
}

// Iter returns an iterator over o.
func (t Token) Iter(o abi.Ref) (abi.Ref, error) {
	typ := t.TypeOf(o)
	if typ == nil {
		return abi.Null, SystemError.New("invalid object reference")
	}
	if e, ok := typ.Slot(abi.SlotIter); ok {
		return t.callObject(e, o)
	}
	v, _ := t.Value(o)
	switch v.(type) {
	case *Tuple, string:
		return t.newObject(t.rt.iteratorType, &seqIter{seq: t.NewRef(o), heap: t.rt.heap}), nil
	}
	return abi.Null, TypeError.Newf("'%s' object is not iterable", typ.Name)
}

// Next advances an iterator. ok is false once the iterator is exhausted.
func (t Token) Next(it abi.Ref) (r abi.Ref, ok bool, err error) {
	typ := t.TypeOf(it)
	if typ == nil {
		return abi.Null, false, SystemError.New("invalid object reference")
	}
	v, _ := t.Value(it)
	if si, isSeq := v.(*seqIter); isSeq {
		return t.seqNext(si)
	}
	e, has := typ.Slot(abi.SlotIterNext)
	if !has {
		return abi.Null, false, TypeError.Newf("'%s' object is not an iterator", typ.Name)
	}
	r = abi.DecodeRef(t.callSlot(e, it))
	if r != abi.Null {
		return r, true, nil
	}
	exc := t.Fetch()
	if exc == nil || exc.Matches(StopIteration) {
		return abi.Null, false, nil
	}
	return abi.Null, false, exc
}

func (t Token) seqNext(si *seqIter) (abi.Ref, bool, error) {
	v, _ := t.Value(si.seq)
	switch x := v.(type) {
	case *Tuple:
		if si.pos >= len(x.Items) {
			return abi.Null, false, nil
		}
		si.pos++
		return t.NewRef(x.Items[si.pos-1]), true, nil
	case string:
		if si.pos >= len(x) {
			return abi.Null, false, nil
		}
		r, size := utf8.DecodeRuneInString(x[si.pos:])
		si.pos += size
		return t.NewStr(string(r)), true, nil
	}
	return abi.Null, false, nil
}

// ANext returns the awaitable produced by the async iterator o.
func (t Token) ANext(o abi.Ref) (abi.Ref, error) {
	typ := t.TypeOf(o)
	if typ == nil {
		return abi.Null, SystemError.New("invalid object reference")
	}
	e, ok := typ.Slot(abi.SlotANext)
	if !ok {
		return abi.Null, TypeError.Newf("'async for' requires an iterator with __anext__ method, got %s", typ.Name)
	}
	return t.callObject(e, o)
}

// Truthy reports the truth value of o.
func (t Token) Truthy(o abi.Ref) (bool, error) {
	typ := t.TypeOf(o)
	if typ == nil {
		return false, SystemError.New("invalid object reference")
	}
	if e, ok := typ.Slot(abi.SlotBool); ok {
		n, err := t.callInt(e, o)
		return n == 1, err
	}
	if e, ok := typ.Slot(abi.SlotLength); ok {
		n, err := t.callInt(e, o)
		return n > 0, err
	}
	v, _ := t.Value(o)
	switch x := v.(type) {
	case noneObj:
		return false, nil
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		return x != "", nil
	case *Tuple:
		return len(x.Items) > 0, nil
	}
	return true, nil
}

// Call invokes a callable object with positional arguments.
func (t Token) Call(callable abi.Ref, args ...abi.Ref) (abi.Ref, error) {
	v, _ := t.Value(callable)
	switch x := v.(type) {
	case *BoundMethod:
		self := x.Self
		if self == abi.Null && x.Def.Kind.HasReceiver() {
			if len(args) == 0 {
				return abi.Null, TypeError.Newf("unbound method %s() needs an argument", x.Def.Name)
			}
			self, args = args[0], args[1:]
		}
		return t.invoke(x.Def, self, args)
	case *Type:
		if x.newFn == nil {
			return abi.Null, TypeError.Newf("cannot create '%s' instances", x.Name)
		}
		return t.invoke(x.newFn, x.ref, args)
	case *Instance:
		if x.Type.call != nil {
			return t.invoke(x.Type.call, callable, args)
		}
	}
	return abi.Null, TypeError.Newf("'%s' object is not callable", t.TypeName(callable))
}

func (t Token) invoke(def *MethodDef, self abi.Ref, args []abi.Ref) (abi.Ref, error) {
	r := def.Func(t.ctx, self, args)
	if r == abi.Null {
		return abi.Null, t.fetchFailure()
	}
	return r, nil
}

// CallMethod looks up name on obj and calls it.
func (t Token) CallMethod(obj abi.Ref, name string, args ...abi.Ref) (abi.Ref, error) {
	m, err := t.GetAttr(obj, name)
	if err != nil {
		return abi.Null, err
	}
	defer t.DecRef(m)
	return t.Call(m, args...)
}

// DescrGet invokes the descriptor get protocol. A null obj is passed as None.
func (t Token) DescrGet(descr, obj, owner abi.Ref) (abi.Ref, error) {
	typ := t.TypeOf(descr)
	if typ == nil {
		return abi.Null, SystemError.New("invalid object reference")
	}
	e, ok := typ.Slot(abi.SlotDescrGet)
	if !ok {
		return t.NewRef(descr), nil
	}
	if obj == abi.Null {
		obj = t.rt.none
	}
	if owner == abi.Null {
		owner = t.rt.none
	}
	return t.callObject(e, descr, obj, owner)
}

// DescrSet invokes the descriptor set protocol. A null value deletes.
func (t Token) DescrSet(descr, obj, value abi.Ref) error {
	typ := t.TypeOf(descr)
	if typ == nil {
		return SystemError.New("invalid object reference")
	}
	e, ok := typ.Slot(abi.SlotDescrSet)
	if !ok {
		return AttributeError.Newf("'%s' object is not a data descriptor", typ.Name)
	}
	_, err := t.callInt(e, descr, obj, value)
	return err
}
