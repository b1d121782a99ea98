package trampoline

import (
	"go.uber.org/zap"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/foreign"
	"github.com/wippyai/slotbridge/slots"
)

// Trampoline is the generated entry point of a single-owner slot.
type Trampoline struct {
	Func   abi.SlotFunc
	Plan   *Plan
	Method string
	Slot   abi.SlotID
	FnType abi.FnPointer
}

// SlotFragment is one cooperating implementation of a shared slot. Invoke
// runs it against the receiver slf with raw argument words. The caller holds
// the exclusivity token and composes fragments; a NotImplemented result
// means "try the next one".
type SlotFragment interface {
	Name() string
	Invoke(tok foreign.Token, slf abi.Ref, args []uint64) (uint64, error)
}

// Fragment is a generated SlotFragment.
type Fragment struct {
	b      *binding
	Plan   *Plan
	Method string
	Trait  string
	Slot   abi.SlotID
	Role   slots.FragmentRole
}

// Name returns the fragment trait name.
func (f *Fragment) Name() string { return f.Trait }

// Invoke implements SlotFragment.
func (f *Fragment) Invoke(tok foreign.Token, slf abi.Ref, args []uint64) (uint64, error) {
	return RunGuarded(f.b.path, func() (uint64, error) {
		return f.b.call(tok, slf, args)
	})
}

var _ SlotFragment = (*Fragment)(nil)

// GenerateSlot generates the trampoline of a single-owner slot method.
func GenerateSlot(n *Native) (*Trampoline, error) {
	p, err := PlanFor(&n.Method)
	if err != nil {
		return nil, err
	}
	def, ok := slots.LookupSlot(n.Method.Name)
	if !ok || p.Category != slots.CategorySlot {
		return nil, wrongCategory(n, p, "a single-owner slot")
	}
	b, err := newBinding(n, p)
	if err != nil {
		return nil, err
	}

	Logger().Debug("slot trampoline generated",
		zap.Strings("path", b.path),
		zap.String("slot", string(def.Slot)),
		zap.String("fn_type", def.FnType.Name))

	return &Trampoline{
		Method: def.Method,
		Slot:   def.Slot,
		FnType: def.FnType,
		Plan:   p,
		Func:   GuardedSlot(b.path, def.FnType, b.call),
	}, nil
}

// GenerateFragment generates one fragment of a shared slot.
func GenerateFragment(n *Native) (*Fragment, error) {
	p, err := PlanFor(&n.Method)
	if err != nil {
		return nil, err
	}
	def, ok := slots.LookupFragment(n.Method.Name)
	if !ok || p.Category != slots.CategoryFragment {
		return nil, wrongCategory(n, p, "a slot fragment")
	}
	b, err := newBinding(n, p)
	if err != nil {
		return nil, err
	}

	Logger().Debug("slot fragment generated",
		zap.Strings("path", b.path),
		zap.String("trait", def.Trait),
		zap.Stringer("role", def.Role))

	return &Fragment{
		b:      b,
		Plan:   p,
		Method: def.Method,
		Trait:  def.Trait,
		Slot:   def.Slot,
		Role:   def.Role,
	}, nil
}

func wrongCategory(n *Native, p *Plan, want string) error {
	return errors.New(errors.PhaseDefinition, errors.KindInvalidInput).
		Path(n.Method.Path()...).
		Detail("%s is classified as %s, not %s", n.Method.Name, p.Category, want).
		Build()
}
