package trampoline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/slotbridge/abi"
	slerrors "github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/slots"
)

func TestRewriteSelf(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"Self", "Counter"},
		{"*Self", "*Counter"},
		{"[]*Self", "[]*Counter"},
		{"map[string]Self", "map[string]Counter"},
		{"func(Self) error", "func(Counter) error"},
		{"pkg.Self", "pkg.Self"},
		{"int64", "int64"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := RewriteSelf(tt.expr, "Counter")
			if err != nil {
				t.Fatalf("RewriteSelf: %v", err)
			}
			if got != tt.want {
				t.Errorf("RewriteSelf(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}

	_, err := RewriteSelf("[", "Counter")
	if !errors.Is(err, &slerrors.Error{Phase: slerrors.PhaseParse, Kind: slerrors.KindInvalidData}) {
		t.Errorf("err = %v, want parse failure", err)
	}
}

func TestPlanFor(t *testing.T) {
	t.Run("in-place operator", func(t *testing.T) {
		p, err := PlanFor(&slots.Method{
			Class:    "Counter",
			Name:     "__iadd__",
			Receiver: slots.ReceiverExclusive,
			Params:   []slots.Param{{Name: "other", Type: "*Self"}},
		})
		if err != nil {
			t.Fatalf("PlanFor: %v", err)
		}
		want := []ArgPlan{{Name: "other", Type: "*Counter", Kind: abi.KindObjectOrFallback, Extract: ExtractExclusive}}
		if diff := cmp.Diff(want, p.Args); diff != "" {
			t.Errorf("Args mismatch (-want +got):\n%s", diff)
		}
		if p.Return != slots.ReturnReceiver || p.ErrorMode != slots.ErrorFallback || p.Slot != abi.SlotInPlaceAdd {
			t.Errorf("plan = %+v", p)
		}
	})

	t.Run("pointer to another class", func(t *testing.T) {
		p, err := PlanFor(&slots.Method{
			Class:    "Counter",
			Name:     "absorb",
			Receiver: slots.ReceiverExclusive,
			Params: []slots.Param{
				{Name: "other", Type: "*Other"},
				{Name: "peer", Type: "*pkg.Other"},
				{Name: "n", Type: "*int64"},
			},
		})
		if err != nil {
			t.Fatalf("PlanFor: %v", err)
		}
		want := []ArgPlan{
			{Name: "other", Type: "*Other", Kind: abi.KindObject, Extract: ExtractExclusive},
			{Name: "peer", Type: "*pkg.Other", Kind: abi.KindObject, Extract: ExtractExclusive},
			{Name: "n", Type: "*int64", Kind: abi.KindObject, Extract: ExtractValue},
		}
		if diff := cmp.Diff(want, p.Args); diff != "" {
			t.Errorf("Args mismatch (-want +got):\n%s", diff)
		}
		if got := p.Args[0].Extract.String(); got != "borrow-mut" {
			t.Errorf("extract mode = %q, want borrow-mut", got)
		}
	})

	t.Run("rich comparison", func(t *testing.T) {
		p, err := PlanFor(&slots.Method{
			Class:    "Counter",
			Name:     "__richcmp__",
			Receiver: slots.ReceiverShared,
			Params: []slots.Param{
				{Name: "other", Type: "Self"},
				{Name: "tok", Type: "foreign.Token", Context: true},
				{Name: "op", Type: "abi.CompareOp"},
			},
			Results: []string{"bool"},
		})
		if err != nil {
			t.Fatalf("PlanFor: %v", err)
		}
		want := []ArgPlan{
			{Name: "other", Type: "Counter", Kind: abi.KindObjectOrFallback, Extract: ExtractShared},
			{Name: "tok", Type: "foreign.Token", Kind: abi.KindUnit, Extract: ExtractContext},
			{Name: "op", Type: "abi.CompareOp", Kind: abi.KindCompareCode, Extract: ExtractCompareOp},
		}
		if diff := cmp.Diff(want, p.Args); diff != "" {
			t.Errorf("Args mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fragment", func(t *testing.T) {
		p, err := PlanFor(&slots.Method{
			Class:    "Counter",
			Name:     "__rsub__",
			Receiver: slots.ReceiverShared,
			Params:   []slots.Param{{Name: "other", Type: "abi.Ref"}},
			Results:  []string{"Self"},
		})
		if err != nil {
			t.Fatalf("PlanFor: %v", err)
		}
		if p.Category != slots.CategoryFragment || p.Trait != "RsubSlotFragment" || p.Role != slots.RoleReflected {
			t.Errorf("plan = %+v", p)
		}
		if p.Args[0].Extract != ExtractRef || p.FnType != "binaryfunc" {
			t.Errorf("args = %+v, fn type %s", p.Args, p.FnType)
		}
		if diff := cmp.Diff([]string{"Counter"}, p.Results); diff != "" {
			t.Errorf("Results mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("compare code needs an integer type", func(t *testing.T) {
		_, err := PlanFor(&slots.Method{
			Class:    "Counter",
			Name:     "__richcmp__",
			Receiver: slots.ReceiverShared,
			Params:   []slots.Param{{Name: "other", Type: "Self"}, {Name: "op", Type: "string"}},
			Results:  []string{"bool"},
		})
		if !isDefinitionError(err, slerrors.KindTypeMismatch) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("protocol without receiver", func(t *testing.T) {
		_, err := PlanFor(&slots.Method{Class: "Counter", Name: "__len__", Results: []string{"int"}})
		if !isDefinitionError(err, slerrors.KindInvalidInput) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("set fragment must not return a value", func(t *testing.T) {
		_, err := PlanFor(&slots.Method{
			Class:    "Counter",
			Name:     "__delitem__",
			Receiver: slots.ReceiverExclusive,
			Params:   []slots.Param{{Name: "key", Type: "string"}},
			Results:  []string{"int"},
		})
		if !isDefinitionError(err, slerrors.KindReturnType) {
			t.Errorf("err = %v", err)
		}
	})
}
