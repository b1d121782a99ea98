package foreign

import (
	"github.com/wippyai/slotbridge/abi"
)

// GenericGetAttr performs the default attribute lookup: data descriptors,
// then the instance dict, then methods, then class attributes. Failure is an
// AttributeError and has no other effect.
func (t Token) GenericGetAttr(obj, name abi.Ref) (abi.Ref, error) {
	s, ok := t.AsStr(name)
	if !ok {
		return abi.Null, TypeError.Newf("attribute name must be string, not '%s'", t.TypeName(name))
	}
	return t.genericGetAttr(obj, s)
}

func (t Token) genericGetAttr(obj abi.Ref, name string) (abi.Ref, error) {
	typ := t.TypeOf(obj)
	if typ == nil {
		return abi.Null, SystemError.New("invalid object reference")
	}
	v, _ := t.Value(obj)

	if cls, ok := v.(*Type); ok {
		return t.typeGetAttr(cls, name)
	}
	if gs, ok := typ.GetSet(name); ok && gs.Get != nil {
		return t.callObject(SlotEntry{Func: gs.Get, FnType: abi.FnGetter}, obj)
	}
	if inst, ok := v.(*Instance); ok {
		if r, ok := inst.dict[name]; ok {
			return t.NewRef(r), nil
		}
	}
	if m, ok := typ.Method(name); ok {
		return t.bind(m, obj, typ), nil
	}
	if r, ok := typ.Attr(name); ok {
		return t.NewRef(r), nil
	}
	return abi.Null, AttributeError.Newf("'%s' object has no attribute '%s'", typ.Name, name)
}

func (t Token) typeGetAttr(cls *Type, name string) (abi.Ref, error) {
	if m, ok := cls.Method(name); ok {
		return t.bind(m, abi.Null, cls), nil
	}
	if r, ok := cls.Attr(name); ok {
		return t.NewRef(r), nil
	}
	if name == "__name__" {
		return t.NewStr(cls.Name), nil
	}
	return abi.Null, AttributeError.Newf("type object '%s' has no attribute '%s'", cls.Name, name)
}

// bind creates a bound method. Instance methods looked up on the class stay
// unbound and take their receiver from the first call argument.
func (t Token) bind(m *MethodDef, obj abi.Ref, typ *Type) abi.Ref {
	self := abi.Null
	switch m.Kind {
	case abi.MethodInstance, abi.MethodCall:
		self = obj
	case abi.MethodClass:
		self = typ.ref
	}
	return t.newObject(t.rt.methodType, &BoundMethod{Def: m, Self: t.NewRef(self), heap: t.rt.heap})
}

// GenericSetAttr performs the default attribute assignment. A null value
// deletes the attribute.
func (t Token) GenericSetAttr(obj, name, value abi.Ref) error {
	s, ok := t.AsStr(name)
	if !ok {
		return TypeError.Newf("attribute name must be string, not '%s'", t.TypeName(name))
	}
	return t.genericSetAttr(obj, s, value)
}

func (t Token) genericSetAttr(obj abi.Ref, name string, value abi.Ref) error {
	typ := t.TypeOf(obj)
	if typ == nil {
		return SystemError.New("invalid object reference")
	}

	if gs, ok := typ.GetSet(name); ok {
		if gs.Set == nil {
			return AttributeError.Newf("attribute '%s' of '%s' objects is not writable", name, typ.Name)
		}
		_, err := t.callInt(SlotEntry{Func: gs.Set, FnType: abi.FnSetter}, obj, value)
		return err
	}

	v, _ := t.Value(obj)
	inst, ok := v.(*Instance)
	if !ok {
		return AttributeError.Newf("'%s' object has no attribute '%s'", typ.Name, name)
	}

	if value == abi.Null {
		old, ok := inst.dict[name]
		if !ok {
			return AttributeError.Newf("'%s' object has no attribute '%s'", typ.Name, name)
		}
		delete(inst.dict, name)
		t.DecRef(old)
		return nil
	}

	if inst.dict == nil {
		inst.dict = make(map[string]abi.Ref)
	}
	old := inst.dict[name]
	inst.dict[name] = t.NewRef(value)
	t.DecRef(old)
	return nil
}

// GetAttr reads an attribute through the type's getattro slot, or the
// generic lookup when the slot is not installed.
func (t Token) GetAttr(obj abi.Ref, name string) (abi.Ref, error) {
	typ := t.TypeOf(obj)
	if typ == nil {
		return abi.Null, SystemError.New("invalid object reference")
	}
	e, ok := typ.Slot(abi.SlotGetAttro)
	if !ok {
		return t.genericGetAttr(obj, name)
	}
	n := t.NewStr(name)
	defer t.DecRef(n)
	return t.callObject(e, obj, n)
}

// SetAttr assigns an attribute through the setattro slot or generically.
func (t Token) SetAttr(obj abi.Ref, name string, value abi.Ref) error {
	if value == abi.Null {
		return SystemError.New("NULL value passed to SetAttr")
	}
	return t.setAttr(obj, name, value)
}

// DelAttr deletes an attribute through the setattro slot or generically.
func (t Token) DelAttr(obj abi.Ref, name string) error {
	return t.setAttr(obj, name, abi.Null)
}

func (t Token) setAttr(obj abi.Ref, name string, value abi.Ref) error {
	typ := t.TypeOf(obj)
	if typ == nil {
		return SystemError.New("invalid object reference")
	}
	e, ok := typ.Slot(abi.SlotSetAttro)
	if !ok {
		return t.genericSetAttr(obj, name, value)
	}
	n := t.NewStr(name)
	defer t.DecRef(n)
	_, err := t.callInt(e, obj, n, value)
	return err
}

// SetClassAttr stores a class attribute on typ, taking a new reference.
func (t Token) SetClassAttr(typ *Type, name string, value abi.Ref) {
	old := typ.setAttr(name, t.NewRef(value))
	t.DecRef(old)
}
