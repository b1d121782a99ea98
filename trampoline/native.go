package trampoline

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strconv"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/foreign"
	"github.com/wippyai/slotbridge/slots"
)

var (
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	refType      = reflect.TypeOf(abi.Ref(0))
	classObjType = reflect.TypeOf((*foreign.Type)(nil))
)

type ctxKind uint8

const (
	ctxNone ctxKind = iota
	ctxToken
	ctxContext
)

type options struct {
	name       string
	typeParams []slots.TypeParam
	kind       abi.MethodKind
	passModule bool
}

// Option configures Describe.
type Option func(*options)

// WithName sets the Go name reported in plans and logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithKind sets the method binding. The default is an instance method.
func WithKind(kind abi.MethodKind) Option {
	return func(o *options) { o.kind = kind }
}

// WithPassModule requests the module object as an implicit argument.
// Methods cannot receive it and fail classification.
func WithPassModule() Option {
	return func(o *options) { o.passModule = true }
}

// WithTypeParams declares the type parameters of the native function. Go
// functions are instantiated before they can be passed here, so these come
// from the declaration rather than the reflected signature.
func WithTypeParams(params ...slots.TypeParam) Option {
	return func(o *options) { o.typeParams = append(o.typeParams, params...) }
}

type param struct {
	typ reflect.Type
	ctx ctxKind
}

// Native is a native function bound to a foreign class, ready for
// generation.
type Native struct {
	Method  slots.Method
	class   *foreign.Type
	fn      reflect.Value
	params  []param
	results int
}

// Class returns the class the native is declared on.
func (n *Native) Class() *foreign.Type { return n.class }

// Describe reflects fn into a native description. Instance and call methods
// take the receiver first, as T for a shared borrow or *T for an exclusive
// one. Class methods take *foreign.Type first. Token and context.Context
// parameters may appear anywhere and receive the held exclusivity token.
// Results are none, one value, an error, or a value and an error.
func Describe(cls *foreign.Type, name string, fn any, opts ...Option) (*Native, error) {
	o := options{kind: abi.MethodInstance}
	for _, opt := range opts {
		opt(&o)
	}
	path := []string{cls.Name, name}

	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, errors.New(errors.PhaseDefinition, errors.KindInvalidInput).
			Path(path...).
			Detail("native must be a function, got %T", fn).
			Build()
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, errors.New(errors.PhaseDefinition, errors.KindUnsupported).
			Path(path...).
			GoType(ft.String()).
			Detail("variadic natives are not supported").
			Build()
	}

	n := &Native{class: cls, fn: fv}
	m := slots.Method{
		Class:      cls.Name,
		Name:       name,
		GoName:     o.name,
		Kind:       o.kind,
		TypeParams: o.typeParams,
		PassModule: o.passModule,
	}
	if m.GoName == "" {
		if f := runtime.FuncForPC(fv.Pointer()); f != nil {
			m.GoName = f.Name()
		}
	}

	start := 0
	switch {
	case o.kind.HasReceiver():
		if ft.NumIn() == 0 {
			return nil, receiverError(path, ft, "a receiver of type "+cls.GoType.String())
		}
		switch ft.In(0) {
		case cls.GoType:
			m.Receiver = slots.ReceiverShared
		case reflect.PointerTo(cls.GoType):
			m.Receiver = slots.ReceiverExclusive
		default:
			return nil, receiverError(path, ft, "a receiver of type "+cls.GoType.String())
		}
		start = 1
	case o.kind == abi.MethodClass:
		if ft.NumIn() == 0 || ft.In(0) != classObjType {
			return nil, receiverError(path, ft, "the class as *foreign.Type")
		}
		m.Receiver = slots.ReceiverClass
		start = 1
	}

	for i := start; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		p := param{typ: pt}
		pname := "arg" + strconv.Itoa(i-start)
		switch pt {
		case foreign.TokenType():
			p.ctx, pname = ctxToken, "tok"
		case contextType:
			p.ctx, pname = ctxContext, "ctx"
		}
		n.params = append(n.params, p)
		m.Params = append(m.Params, slots.Param{
			Name:    pname,
			Type:    typeExpr(pt, cls.GoType),
			Context: p.ctx != ctxNone,
		})
	}

	out := ft.NumOut()
	if out > 0 && ft.Out(out-1) == errorType {
		m.Fallible = true
		out--
	}
	for i := 0; i < out; i++ {
		m.Results = append(m.Results, resultExpr(ft.Out(i), cls.GoType))
	}
	n.results = out
	n.Method = m
	return n, nil
}

func receiverError(path []string, ft reflect.Type, want string) error {
	return errors.New(errors.PhaseDefinition, errors.KindInvalidInput).
		Path(path...).
		GoType(ft.String()).
		Detail("expected %s as the first parameter", want).
		Build()
}

// typeExpr renders t as a Go type expression in which Self names class.
func typeExpr(t, class reflect.Type) string {
	switch t {
	case class:
		return "Self"
	case reflect.PointerTo(class):
		return "*Self"
	}
	if t.Name() != "" {
		return t.String()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + typeExpr(t.Elem(), class)
	case reflect.Slice:
		return "[]" + typeExpr(t.Elem(), class)
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), typeExpr(t.Elem(), class))
	case reflect.Map:
		return "map[" + typeExpr(t.Key(), class) + "]" + typeExpr(t.Elem(), class)
	}
	return t.String()
}

// resultExpr is typeExpr with named integer and bool types reduced to their
// kind, since result validation only cares about the representation.
func resultExpr(t, class reflect.Type) string {
	if t != refType && t.PkgPath() != "" && (isIntKind(t.Kind()) || t.Kind() == reflect.Bool) {
		return t.Kind().String()
	}
	return typeExpr(t, class)
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
