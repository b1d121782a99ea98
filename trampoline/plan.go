package trampoline

import (
	"bytes"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/slots"
)

// ExtractMode is how one native parameter is produced from its raw word.
type ExtractMode uint8

const (
	// ExtractValue converts the object into an owned Go value.
	ExtractValue ExtractMode = iota
	// ExtractRef passes the borrowed reference through unchanged.
	ExtractRef
	// ExtractShared copies a class instance under a shared borrow.
	ExtractShared
	// ExtractExclusive hands out a pointer under an exclusive borrow.
	ExtractExclusive
	// ExtractCompareOp decodes a comparison operator code.
	ExtractCompareOp
	// ExtractContext passes the held exclusivity token.
	ExtractContext
)

var extractNames = [...]string{"value", "ref", "borrow", "borrow-mut", "compare-op", "context"}

func (m ExtractMode) String() string {
	if int(m) < len(extractNames) {
		return extractNames[m]
	}
	return "unknown"
}

// ArgPlan is the extraction of one native parameter.
type ArgPlan struct {
	Name    string
	Type    string
	Kind    abi.Kind
	Extract ExtractMode
}

// Plan is the generation plan of one native method: how its arguments are
// extracted and how its result is returned. Types are shown after Self has
// been replaced by the class name.
type Plan struct {
	Class     string
	Method    string
	GoName    string
	Slot      abi.SlotID
	FnType    string
	Trait     string
	Args      []ArgPlan
	Kinds     []abi.Kind
	Results   []string
	Category  slots.Category
	Kind      abi.MethodKind
	Receiver  slots.Receiver
	Hook      slots.Hook
	ErrorMode slots.ErrorMode
	Return    slots.ReturnMode
	Output    slots.Output
	Role      slots.FragmentRole
	Ret       abi.Kind
	Fallible  bool
}

// PlanFor classifies m and plans its generation. It fails with a definition
// error when the signature cannot fit the protocol the name selects.
func PlanFor(m *slots.Method) (*Plan, error) {
	cls, err := slots.Classify(m)
	if err != nil {
		return nil, err
	}

	p := newPlan(m)
	p.Category = cls.Category
	var kinds []abi.Kind
	switch cls.Category {
	case slots.CategorySlot:
		d := cls.Slot
		p.Slot, p.FnType, p.Ret = d.Slot, d.FnType.Name, d.Ret
		p.Hook, p.ErrorMode, p.Return, p.Output = d.Hook, d.ErrorMode, d.Return, d.Output
		kinds = d.Args
	case slots.CategoryFragment:
		d := cls.Fragment
		owner, _ := slots.OwnerFnType(d.Slot)
		p.Slot, p.FnType, p.Trait, p.Ret = d.Slot, owner.Name, d.Trait, d.Ret
		p.ErrorMode, p.Role = d.ErrorMode, d.Role
		kinds = d.Args
	}

	if cls.Category != slots.CategoryOrdinary {
		if m.Receiver != slots.ReceiverShared && m.Receiver != slots.ReceiverExclusive {
			return nil, errors.New(errors.PhaseDefinition, errors.KindInvalidInput).
				Path(m.Path()...).
				Slot(string(p.Slot)).
				Detail("protocol methods need an instance receiver").
				Build()
		}
		if n := len(m.ValueParams()); n > len(kinds) {
			return nil, errors.ArgumentCount(m.Path(), "expected at most %d non-context arguments", len(kinds))
		}
	}

	p.Kinds = kinds
	if err := p.bindArgs(m, kinds); err != nil {
		return nil, err
	}
	if err := p.checkResults(m); err != nil {
		return nil, err
	}

	Logger().Debug("plan",
		zap.Strings("path", m.Path()),
		zap.Stringer("category", p.Category),
		zap.String("slot", string(p.Slot)))
	return p, nil
}

func newPlan(m *slots.Method) *Plan {
	return &Plan{
		Class:    m.Class,
		Method:   m.Name,
		GoName:   m.GoName,
		Kind:     m.Kind,
		Receiver: m.Receiver,
		Fallible: m.Fallible,
		Ret:      abi.KindObject,
	}
}

// bindArgs pairs value parameters with kinds in order. Without kinds every
// value parameter is an object.
func (p *Plan) bindArgs(m *slots.Method, kinds []abi.Kind) error {
	vi := 0
	for _, prm := range m.Params {
		typ, err := RewriteSelf(prm.Type, m.Class)
		if err != nil {
			return errors.New(errors.PhaseDefinition, errors.KindInvalidData).
				Path(m.Path()...).
				Cause(err).
				Detail("parameter %s", prm.Name).
				Build()
		}
		a := ArgPlan{Name: prm.Name, Type: typ, Kind: abi.KindUnit}
		if prm.Context {
			a.Extract = ExtractContext
			p.Args = append(p.Args, a)
			continue
		}

		a.Kind = abi.KindObject
		if kinds != nil {
			a.Kind = kinds[vi]
		}
		vi++

		switch {
		case a.Kind == abi.KindCompareCode:
			if typ != "abi.CompareOp" && !integerTypes[typ] {
				return errors.TypeMismatch(errors.PhaseDefinition, m.Path(), typ, string(p.Slot))
			}
			a.Extract = ExtractCompareOp
		case typ == "abi.Ref":
			a.Extract = ExtractRef
		case typ == "*"+m.Class, isDeclaredPointer(typ):
			a.Extract = ExtractExclusive
		case typ == m.Class:
			a.Extract = ExtractShared
		}
		p.Args = append(p.Args, a)
	}

	p.Results = make([]string, 0, len(m.Results))
	for _, r := range m.Results {
		typ, err := RewriteSelf(r, m.Class)
		if err != nil {
			return errors.New(errors.PhaseDefinition, errors.KindInvalidData).
				Path(m.Path()...).
				Cause(err).
				Detail("result type").
				Build()
		}
		p.Results = append(p.Results, typ)
	}
	return nil
}

var integerTypes = map[string]bool{
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
}

// checkResults validates the native result against what the slot returns.
func (p *Plan) checkResults(m *slots.Method) error {
	if len(p.Results) > 1 {
		return errors.ReturnType(m.Path(), strings.Join(p.Results, ", "), string(p.Slot),
			"at most one result besides error is allowed")
	}
	if p.Category == slots.CategoryOrdinary || p.Return == slots.ReturnReceiver {
		return nil
	}

	res := ""
	if len(p.Results) == 1 {
		res = p.Results[0]
	}
	fail := func(detail string) error {
		return errors.ReturnType(m.Path(), res, string(p.Slot), detail)
	}

	switch {
	case p.Output == slots.OutputHash:
		if !integerTypes[res] {
			return fail("hash must return an integer")
		}
	case p.Output == slots.OutputIterNext:
		if res != "foreign.IterNextOutput" {
			return fail("must return foreign.IterNextOutput")
		}
	case p.Output == slots.OutputIterANext:
		if res != "foreign.IterANextOutput" {
			return fail("must return foreign.IterANextOutput")
		}
	case p.Ret == abi.KindSizeInt:
		if !integerTypes[res] {
			return fail("length must be an integer")
		}
	case p.Ret == abi.KindInt:
		if res != "bool" {
			return fail("must return bool")
		}
	case p.Ret == abi.KindUnit:
		if res != "" {
			return fail("must not return a value")
		}
	}
	return nil
}

// isDeclaredPointer reports whether typ is a pointer to a declared type.
// Instances of other classes arrive this way and are borrowed exclusively.
func isDeclaredPointer(typ string) bool {
	name, ok := strings.CutPrefix(typ, "*")
	if !ok {
		return false
	}
	if pkg, sel, qualified := strings.Cut(name, "."); qualified {
		return token.IsIdentifier(pkg) && token.IsIdentifier(sel)
	}
	return token.IsIdentifier(name) && types.Universe.Lookup(name) == nil
}

// RewriteSelf replaces every Self identifier in the type expression expr
// with class. Qualified names such as pkg.Self are left alone.
func RewriteSelf(expr, class string) (string, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return "", errors.ParseFailed("type expression "+strconv.Quote(expr), err)
	}

	out := astutil.Apply(node, func(c *astutil.Cursor) bool {
		id, ok := c.Node().(*ast.Ident)
		if !ok || id.Name != "Self" {
			return true
		}
		switch parent := c.Parent().(type) {
		case *ast.SelectorExpr:
			if parent.Sel == id {
				return true
			}
		case *ast.Field:
			if c.Name() == "Names" {
				return true
			}
		}
		c.Replace(ast.NewIdent(class))
		return true
	}, nil)

	var buf bytes.Buffer
	if err := format.Node(&buf, token.NewFileSet(), out); err != nil {
		return "", errors.ParseFailed("type expression "+strconv.Quote(expr), err)
	}
	return buf.String(), nil
}
