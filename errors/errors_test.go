package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDefinition,
				Kind:   KindReturnType,
				Path:   []string{"Counter", "__hash__"},
				GoType: "string",
				Slot:   "tp_hash",
				Detail: "hash must return an integer",
			},
			contains: []string{"[definition]", "return_type", "Counter.__hash__", "string", "tp_hash", "hash must return"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseExtract,
				Kind:  KindTypeMismatch,
			},
			contains: []string{"[extract]", "type_mismatch"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseBoundary,
				Kind:   KindPanic,
				Detail: "native fault",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[boundary]", "panic", "native fault", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDefinition,
		Kind:  KindArgumentCount,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseDefinition, Kind: KindArgumentCount}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseExtract, Kind: KindArgumentCount}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDefinition, Kind: KindFieldName}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseDefinition, Kind: KindArgumentCount}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDefinition, KindArgumentCount).
		Path("Counter", "__setitem__").
		GoType("func(*Counter, int64, int64, int64)").
		Slot("mp_ass_subscript").
		Value(3).
		Cause(cause).
		Detail("expected at most %d non-context arguments", 2).
		Build()

	if err.Phase != PhaseDefinition {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDefinition)
	}
	if err.Kind != KindArgumentCount {
		t.Errorf("Kind = %v, want %v", err.Kind, KindArgumentCount)
	}
	if len(err.Path) != 2 || err.Path[0] != "Counter" || err.Path[1] != "__setitem__" {
		t.Errorf("Path = %v, want [Counter __setitem__]", err.Path)
	}
	if err.Slot != "mp_ass_subscript" {
		t.Errorf("Slot = %v, want mp_ass_subscript", err.Slot)
	}
	if err.Value != 3 {
		t.Errorf("Value = %v, want 3", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected at most 2 non-context arguments" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	path := []string{"Counter", "__add__"}

	t.Run("InvalidGeneric", func(t *testing.T) {
		err := InvalidGeneric(path, "type")
		if err.Kind != KindInvalidGeneric || err.Phase != PhaseDefinition {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "generic type parameters") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("ModuleContext", func(t *testing.T) {
		err := ModuleContext(path)
		if err.Kind != KindModuleContext {
			t.Errorf("Kind = %v", err.Kind)
		}
	})

	t.Run("ArgumentCount", func(t *testing.T) {
		err := ArgumentCount(path, "expected at most %d non-context arguments", 1)
		if err.Detail != "expected at most 1 non-context arguments" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("FieldName", func(t *testing.T) {
		err := FieldName([]string{"Pair", "0"}, "no name")
		if err.Kind != KindFieldName {
			t.Errorf("Kind = %v", err.Kind)
		}
	})

	t.Run("ReturnType", func(t *testing.T) {
		err := ReturnType(path, "string", "tp_hash", "bad")
		if err.GoType != "string" || err.Slot != "tp_hash" {
			t.Errorf("GoType=%v Slot=%v", err.GoType, err.Slot)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("handle 9 not found")
		err := Wrap(PhaseRuntime, KindInvalidData, cause, "borrow")
		if !errors.Is(err, cause) || !strings.Contains(err.Error(), "handle 9 not found") {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("Registration", func(t *testing.T) {
		cause := errors.New("boom")
		err := Registration(PhaseHost, "Counter", "tp_repr", cause)
		if !errors.Is(err, cause) {
			t.Error("Registration should wrap cause")
		}
	})
}

func TestDefinitionErrors(t *testing.T) {
	t.Run("grouped by class", func(t *testing.T) {
		var d DefinitionErrors
		d.Add("Counter", "__add__", InvalidGeneric([]string{"Counter", "__add__"}, "type"))
		d.Add("Vector", "x", FieldName([]string{"Vector", "0"}, "no name"))
		d.Add("Counter", "value", ModuleContext([]string{"Counter", "value"}))

		msg := d.Error()
		if !strings.Contains(msg, "3 declaration(s) failed") {
			t.Errorf("missing count: %s", msg)
		}
		if strings.Count(msg, "Counter:") != 1 {
			t.Errorf("Counter should be listed once: %s", msg)
		}
		if !strings.Contains(msg, "Vector:") {
			t.Errorf("missing Vector group: %s", msg)
		}
	})

	t.Run("empty", func(t *testing.T) {
		var d *DefinitionErrors
		if d.Len() != 0 {
			t.Error("nil DefinitionErrors should have zero length")
		}
		if (&DefinitionErrors{}).ErrOrNil() != nil {
			t.Error("empty DefinitionErrors should be nil error")
		}
	})

	t.Run("errors.Is reaches members", func(t *testing.T) {
		var d DefinitionErrors
		d.Add("Counter", "__add__", ModuleContext(nil))
		err := d.ErrOrNil()
		if !errors.Is(err, &Error{Phase: PhaseDefinition, Kind: KindModuleContext}) {
			t.Error("errors.Is should find the member error")
		}
		if !errors.Is(err, &DefinitionErrors{}) {
			t.Error("errors.Is should match DefinitionErrors")
		}
	})
}
