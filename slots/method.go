package slots

import (
	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/errors"
)

// TypeParamKind is the kind of a declared type parameter.
type TypeParamKind uint8

const (
	TypeParamLifetime TypeParamKind = iota
	TypeParamType
	TypeParamConst
)

var typeParamNames = [...]string{"lifetime", "type", "const"}

func (k TypeParamKind) String() string {
	if int(k) < len(typeParamNames) {
		return typeParamNames[k]
	}
	return "unknown"
}

// ParseTypeParamKind resolves a type parameter kind by its String name.
func ParseTypeParamKind(name string) (TypeParamKind, bool) {
	for i, n := range typeParamNames {
		if n == name {
			return TypeParamKind(i), true
		}
	}
	return 0, false
}

// TypeParam is a type parameter declared on a native function.
type TypeParam struct {
	Name string
	Kind TypeParamKind
}

// Receiver is how a native function takes its receiver.
type Receiver uint8

const (
	ReceiverNone Receiver = iota
	ReceiverShared
	ReceiverExclusive
	// ReceiverClass takes the class object instead of an instance.
	ReceiverClass
)

var receiverNames = [...]string{"none", "shared", "exclusive", "class"}

func (r Receiver) String() string {
	if int(r) < len(receiverNames) {
		return receiverNames[r]
	}
	return "unknown"
}

// ParseReceiver resolves a receiver mode by its String name.
func ParseReceiver(name string) (Receiver, bool) {
	for i, n := range receiverNames {
		if n == name {
			return Receiver(i), true
		}
	}
	return 0, false
}

// Param is a native parameter after the receiver. Type is a Go type
// expression in which Self names the receiver's class.
type Param struct {
	Name    string
	Type    string
	Context bool
}

// Method describes a native function declared on a class.
type Method struct {
	Class      string
	Name       string
	GoName     string
	TypeParams []TypeParam
	Params     []Param
	// Results lists the result types other than a trailing error.
	Results    []string
	Kind       abi.MethodKind
	Receiver   Receiver
	Fallible   bool
	PassModule bool
}

// Path returns the declaration path used in definition errors.
func (m *Method) Path() []string {
	return []string{m.Class, m.Name}
}

// ValueParams returns the parameters that are not context tokens.
func (m *Method) ValueParams() []Param {
	out := make([]Param, 0, len(m.Params))
	for _, p := range m.Params {
		if !p.Context {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects declarations no foreign-callable function can have.
func Validate(m *Method) error {
	for _, tp := range m.TypeParams {
		switch tp.Kind {
		case TypeParamType, TypeParamConst:
			return errors.InvalidGeneric(m.Path(), tp.Kind.String())
		}
	}
	if m.PassModule {
		return errors.ModuleContext(m.Path())
	}
	return nil
}

// Category is the dispatch strategy of a method.
type Category uint8

const (
	CategoryOrdinary Category = iota
	CategorySlot
	CategoryFragment
)

var categoryNames = [...]string{"ordinary", "slot", "fragment"}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// Classification is the result of classifying a method. Exactly one of Slot
// and Fragment is set for the protocol categories.
type Classification struct {
	Slot     *SlotDef
	Fragment *FragmentDef
	Category Category
}

// Classify validates m and resolves its dispatch strategy. Only instance
// methods can implement protocols; names outside both tables are ordinary.
func Classify(m *Method) (Classification, error) {
	if err := Validate(m); err != nil {
		return Classification{}, err
	}
	if m.Kind != abi.MethodInstance {
		return Classification{Category: CategoryOrdinary}, nil
	}
	if d, ok := LookupSlot(m.Name); ok {
		return Classification{Category: CategorySlot, Slot: d}, nil
	}
	if d, ok := LookupFragment(m.Name); ok {
		return Classification{Category: CategoryFragment, Fragment: d}, nil
	}
	return Classification{Category: CategoryOrdinary}, nil
}
