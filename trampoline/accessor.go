package trampoline

import (
	"fmt"
	"reflect"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/foreign"
	"github.com/wippyai/slotbridge/slots"
)

// AccessorKind tells getters from setters.
type AccessorKind uint8

const (
	AccessorGetter AccessorKind = iota
	AccessorSetter
)

func (k AccessorKind) String() string {
	if k == AccessorSetter {
		return "setter"
	}
	return "getter"
}

// Accessor is a generated property getter or setter.
type Accessor struct {
	Func abi.SlotFunc
	Name string
	Kind AccessorKind
}

func resolveField(cls *foreign.Type, f *slots.Field) (reflect.StructField, string, error) {
	if f.Class == "" {
		f.Class = cls.Name
	}
	name, err := f.ExternalName()
	if err != nil {
		return reflect.StructField{}, "", err
	}
	path := []string{cls.Name, name}

	var sf reflect.StructField
	if f.Ident != "" {
		var ok bool
		sf, ok = cls.GoType.FieldByName(f.Ident)
		if !ok {
			return sf, "", errors.FieldName(path, fmt.Sprintf("%s has no field %s", cls.GoType, f.Ident))
		}
	} else {
		if f.Index < 0 || f.Index >= cls.GoType.NumField() {
			return sf, "", errors.FieldName(path, fmt.Sprintf("%s has no field at index %d", cls.GoType, f.Index))
		}
		sf = cls.GoType.Field(f.Index)
	}
	if !sf.IsExported() {
		return sf, "", errors.FieldName(path, fmt.Sprintf("field %s is not exported", sf.Name))
	}
	return sf, name, nil
}

// FieldGetter generates a getter reading a struct field under a shared
// borrow of the receiver.
func FieldGetter(cls *foreign.Type, f slots.Field) (*Accessor, error) {
	sf, name, err := resolveField(cls, &f)
	if err != nil {
		return nil, err
	}
	path := []string{cls.Name, name}

	body := func(tok foreign.Token, self abi.Ref, _ []uint64) (uint64, error) {
		v, release, err := tok.Borrow(self, cls.GoType, false)
		if err != nil {
			return 0, err
		}
		defer release()
		r, err := tok.ToObjectValue(v.FieldByIndex(sf.Index))
		if err != nil {
			return 0, err
		}
		return abi.EncodeRef(r), nil
	}
	return &Accessor{Name: name, Kind: AccessorGetter, Func: GuardedSlot(path, abi.FnGetter, body)}, nil
}

// FieldSetter generates a setter writing a struct field under an exclusive
// borrow of the receiver. Reference fields keep an owning reference.
func FieldSetter(cls *foreign.Type, f slots.Field) (*Accessor, error) {
	sf, name, err := resolveField(cls, &f)
	if err != nil {
		return nil, err
	}
	path := []string{cls.Name, name}

	body := func(tok foreign.Token, self abi.Ref, raw []uint64) (uint64, error) {
		value := abi.DecodeRef(raw[0])
		if value == abi.Null {
			return 0, foreign.AttributeError.New("can't delete attribute")
		}
		// Extract before borrowing so a value that is the receiver itself
		// does not conflict with the exclusive borrow.
		ev, err := tok.Extract(value, sf.Type)
		if err != nil {
			return 0, err
		}
		v, release, err := tok.Borrow(self, cls.GoType, true)
		if err != nil {
			return 0, err
		}
		defer release()

		field := v.FieldByIndex(sf.Index)
		if sf.Type == refType {
			old := abi.Ref(field.Uint())
			tok.IncRef(value)
			field.Set(ev)
			tok.DecRef(old)
			return abi.EncodeInt(0), nil
		}
		field.Set(ev)
		return abi.EncodeInt(0), nil
	}
	return &Accessor{Name: name, Kind: AccessorSetter, Func: GuardedSlot(path, abi.FnSetter, body)}, nil
}

func accessorPlan(n *Native, fnType string, ret abi.Kind) (*Plan, error) {
	m := &n.Method
	if err := slots.Validate(m); err != nil {
		return nil, err
	}
	if m.Receiver != slots.ReceiverShared && m.Receiver != slots.ReceiverExclusive {
		return nil, errors.New(errors.PhaseDefinition, errors.KindInvalidInput).
			Path(m.Path()...).
			Detail("%s needs an instance receiver", fnType).
			Build()
	}
	p := newPlan(m)
	p.FnType, p.Ret = fnType, ret
	if err := p.bindArgs(m, nil); err != nil {
		return nil, err
	}
	if len(p.Results) > 1 {
		return nil, errors.ReturnType(m.Path(), fmt.Sprint(p.Results), fnType,
			"at most one result besides error is allowed")
	}
	return p, nil
}

// MethodGetter generates a getter backed by a native method that takes no
// value arguments.
func MethodGetter(n *Native) (*Accessor, error) {
	if len(n.Method.ValueParams()) > 0 {
		return nil, errors.ArgumentCount(n.Method.Path(), "getter function can only have one argument (of type Token)")
	}
	p, err := accessorPlan(n, abi.FnGetter.Name, abi.KindObject)
	if err != nil {
		return nil, err
	}
	b, err := newBinding(n, p)
	if err != nil {
		return nil, err
	}
	return &Accessor{Name: n.Method.Name, Kind: AccessorGetter, Func: GuardedSlot(b.path, abi.FnGetter, b.call)}, nil
}

// MethodSetter generates a setter backed by a native method that takes
// exactly one value argument. Deleting the attribute is rejected.
func MethodSetter(n *Native) (*Accessor, error) {
	switch len(n.Method.ValueParams()) {
	case 0:
		return nil, errors.ArgumentCount(n.Method.Path(), "setter function expected to have one argument")
	case 1:
	default:
		return nil, errors.ArgumentCount(n.Method.Path(), "setter function can have at most two arguments ([Token], and value)")
	}
	p, err := accessorPlan(n, abi.FnSetter.Name, abi.KindUnit)
	if err != nil {
		return nil, err
	}
	b, err := newBinding(n, p)
	if err != nil {
		return nil, err
	}

	body := func(tok foreign.Token, self abi.Ref, raw []uint64) (uint64, error) {
		if abi.DecodeRef(raw[0]) == abi.Null {
			return 0, foreign.AttributeError.New("can't delete attribute")
		}
		return b.call(tok, self, raw)
	}
	return &Accessor{Name: n.Method.Name, Kind: AccessorSetter, Func: GuardedSlot(b.path, abi.FnSetter, body)}, nil
}
