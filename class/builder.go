package class

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/foreign"
	"github.com/wippyai/slotbridge/slots"
	"github.com/wippyai/slotbridge/trampoline"
)

type declKind uint8

const (
	declMethod declKind = iota
	declGetter
	declSetter
	declField
	declClassAttr
)

type declaration struct {
	kind  declKind
	name  string
	fn    any
	opts  []trampoline.Option
	field slots.Field
}

// Builder collects the declarations of one class backed by the Go struct T.
type Builder[T any] struct {
	name  string
	decls []declaration
}

// New starts a class named name.
func New[T any](name string) *Builder[T] {
	return &Builder[T]{name: name}
}

// Name returns the class name.
func (b *Builder[T]) Name() string { return b.name }

// Method declares a method. Protocol names become slots or fragments,
// anything else an ordinary callable.
func (b *Builder[T]) Method(name string, fn any, opts ...trampoline.Option) *Builder[T] {
	b.decls = append(b.decls, declaration{kind: declMethod, name: name, fn: fn, opts: opts})
	return b
}

// Getter declares a method-backed property getter.
func (b *Builder[T]) Getter(name string, fn any, opts ...trampoline.Option) *Builder[T] {
	b.decls = append(b.decls, declaration{kind: declGetter, name: name, fn: fn, opts: opts})
	return b
}

// Setter declares a method-backed property setter.
func (b *Builder[T]) Setter(name string, fn any, opts ...trampoline.Option) *Builder[T] {
	b.decls = append(b.decls, declaration{kind: declSetter, name: name, fn: fn, opts: opts})
	return b
}

// Field declares a field-backed data descriptor. Get and Set on f select
// the accessors generated.
func (b *Builder[T]) Field(f slots.Field) *Builder[T] {
	name, _ := f.ExternalName()
	if name == "" {
		name = fmt.Sprintf("#%d", f.Index)
	}
	b.decls = append(b.decls, declaration{kind: declField, name: name, field: f})
	return b
}

// ClassAttr declares a class attribute computed once at build time by fn,
// which takes no receiver.
func (b *Builder[T]) ClassAttr(name string, fn any, opts ...trampoline.Option) *Builder[T] {
	opts = append(opts, trampoline.WithKind(abi.MethodClassAttr))
	b.decls = append(b.decls, declaration{kind: declClassAttr, name: name, fn: fn, opts: opts})
	return b
}

// assembly is the state of one Build call.
type assembly struct {
	tok       foreign.Token
	typ       *foreign.Type
	errs      errors.DefinitionErrors
	fragments map[abi.SlotID][]*trampoline.Fragment
	getsets   map[string]*foreign.GetSet
	getOrder  []string
	seen      map[string]bool
}

// Build registers the class with the token's runtime and installs every
// declaration. The returned type is usable even when err is non-nil; err is
// an *errors.DefinitionErrors naming each declaration that failed.
func (b *Builder[T]) Build(tok foreign.Token) (*foreign.Type, error) {
	goType := reflect.TypeOf((*T)(nil)).Elem()
	if goType.Kind() != reflect.Struct {
		return nil, errors.New(errors.PhaseDefinition, errors.KindInvalidInput).
			Path(b.name).
			GoType(goType.String()).
			Detail("a class must be backed by a struct").
			Build()
	}

	a := &assembly{
		tok:       tok,
		typ:       tok.Runtime().NewType(b.name, goType),
		fragments: make(map[abi.SlotID][]*trampoline.Fragment),
		getsets:   make(map[string]*foreign.GetSet),
		seen:      make(map[string]bool),
	}
	for _, d := range b.decls {
		if err := a.install(d); err != nil {
			Logger().Debug("declaration failed",
				zap.String("class", b.name),
				zap.String("member", d.name),
				zap.Error(err))
			a.errs.Add(b.name, d.name, err)
		}
	}
	for id, frags := range a.fragments {
		a.installComposed(id, frags)
	}
	for _, name := range a.getOrder {
		a.typ.SetGetSet(a.getsets[name])
	}

	Logger().Debug("class built",
		zap.String("class", b.name),
		zap.Int("declarations", len(b.decls)),
		zap.Int("failed", a.errs.Len()))
	return a.typ, a.errs.ErrOrNil()
}

func (a *assembly) install(d declaration) error {
	switch d.kind {
	case declField:
		return a.installField(d.field)
	case declClassAttr:
		return a.installClassAttr(d)
	}

	n, err := trampoline.Describe(a.typ, d.name, d.fn, d.opts...)
	if err != nil {
		return err
	}
	switch d.kind {
	case declGetter:
		acc, err := trampoline.MethodGetter(n)
		if err != nil {
			return err
		}
		return a.addAccessor(acc)
	case declSetter:
		acc, err := trampoline.MethodSetter(n)
		if err != nil {
			return err
		}
		return a.addAccessor(acc)
	}
	return a.installMethod(n)
}

func (a *assembly) claim(kind, name string) error {
	key := kind + ":" + name
	if a.seen[key] {
		return errors.Registration(errors.PhaseDefinition, a.typ.Name, name,
			fmt.Errorf("duplicate %s", kind))
	}
	a.seen[key] = true
	return nil
}

func (a *assembly) installMethod(n *trampoline.Native) error {
	if n.Method.Kind == abi.MethodNew || n.Method.Kind == abi.MethodCall {
		if err := a.claim("method", n.Method.Kind.String()); err != nil {
			return err
		}
	} else if err := a.claim("method", n.Method.Name); err != nil {
		return err
	}

	cls, err := slots.Classify(&n.Method)
	if err != nil {
		return err
	}
	switch cls.Category {
	case slots.CategorySlot:
		tr, err := trampoline.GenerateSlot(n)
		if err != nil {
			return err
		}
		a.typ.SetSlot(tr.Slot, tr.FnType, tr.Func)
	case slots.CategoryFragment:
		f, err := trampoline.GenerateFragment(n)
		if err != nil {
			return err
		}
		a.fragments[f.Slot] = append(a.fragments[f.Slot], f)
	default:
		def, err := trampoline.GenerateMethod(n)
		if err != nil {
			return err
		}
		a.typ.AddMethod(def)
	}
	return nil
}

func (a *assembly) installField(f slots.Field) error {
	if !f.Get && !f.Set {
		name, _ := f.ExternalName()
		return errors.New(errors.PhaseDefinition, errors.KindInvalidInput).
			Path(a.typ.Name, name).
			Detail("field declares neither a getter nor a setter").
			Build()
	}
	if f.Get {
		acc, err := trampoline.FieldGetter(a.typ, f)
		if err != nil {
			return err
		}
		if err := a.addAccessor(acc); err != nil {
			return err
		}
	}
	if f.Set {
		acc, err := trampoline.FieldSetter(a.typ, f)
		if err != nil {
			return err
		}
		return a.addAccessor(acc)
	}
	return nil
}

// addAccessor merges getters and setters of the same name into one getset.
func (a *assembly) addAccessor(acc *trampoline.Accessor) error {
	if err := a.claim(acc.Kind.String(), acc.Name); err != nil {
		return err
	}
	gs, ok := a.getsets[acc.Name]
	if !ok {
		gs = &foreign.GetSet{Name: acc.Name}
		a.getsets[acc.Name] = gs
		a.getOrder = append(a.getOrder, acc.Name)
	}
	if acc.Kind == trampoline.AccessorSetter {
		gs.Set = acc.Func
	} else {
		gs.Get = acc.Func
	}
	return nil
}

func (a *assembly) installClassAttr(d declaration) error {
	if err := a.claim("classattr", d.name); err != nil {
		return err
	}
	n, err := trampoline.Describe(a.typ, d.name, d.fn, d.opts...)
	if err != nil {
		return err
	}
	def, err := trampoline.GenerateMethod(n)
	if err != nil {
		return err
	}
	r := def.Func(a.tok.Context(), abi.Null, nil)
	if r == abi.Null {
		if exc := a.tok.Fetch(); exc != nil {
			return exc
		}
		return errors.New(errors.PhaseDefinition, errors.KindInvalidData).
			Path(a.typ.Name, d.name).
			Detail("class attribute produced no value").
			Build()
	}
	a.tok.SetClassAttr(a.typ, d.name, r)
	a.tok.DecRef(r)
	return nil
}
