package decl

import (
	"fmt"

	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/slots"
	"github.com/wippyai/slotbridge/trampoline"
)

// Report is the generation plan of a declaration file.
type Report struct {
	Path    string        `yaml:"path,omitempty"`
	Catalog string        `yaml:"catalog"`
	Classes []ClassReport `yaml:"classes"`
}

// ClassReport is the plan of one class.
type ClassReport struct {
	Name    string       `yaml:"name"`
	Fields  []FieldPlan  `yaml:"fields,omitempty"`
	Methods []MethodPlan `yaml:"methods,omitempty"`
}

// FieldPlan is one data descriptor.
type FieldPlan struct {
	Name   string `yaml:"name"`
	Target string `yaml:"target"`
	Get    bool   `yaml:"get"`
	Set    bool   `yaml:"set"`
}

// MethodPlan is one planned method.
type MethodPlan struct {
	Name      string    `yaml:"name"`
	Category  string    `yaml:"category"`
	Kind      string    `yaml:"kind"`
	Slot      string    `yaml:"slot,omitempty"`
	FnType    string    `yaml:"fn_type,omitempty"`
	Fragment  string    `yaml:"fragment,omitempty"`
	Role      string    `yaml:"role,omitempty"`
	Receiver  string    `yaml:"receiver"`
	Args      []ArgPlan `yaml:"args,omitempty"`
	Results   []string  `yaml:"results,omitempty"`
	ErrorMode string    `yaml:"error_mode,omitempty"`
	Return    string    `yaml:"return,omitempty"`
	Fallible  bool      `yaml:"fallible,omitempty"`

	Plan *trampoline.Plan `yaml:"-"`
}

// ArgPlan is the extraction of one parameter.
type ArgPlan struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Kind    string `yaml:"kind"`
	Extract string `yaml:"extract"`
}

// Plan plans every declaration of f. Declarations that fail are left out of
// the report and returned together as an *errors.DefinitionErrors.
func Plan(f *File) (*Report, error) {
	r := &Report{Path: f.Path, Catalog: f.Catalog}
	var errs errors.DefinitionErrors

	for _, c := range f.Classes {
		cr := ClassReport{Name: c.Name}

		for _, fd := range c.Fields {
			sf := fd.SlotField(c.Name)
			name, err := sf.ExternalName()
			if err != nil {
				errs.Add(c.Name, fieldTarget(fd), err)
				continue
			}
			cr.Fields = append(cr.Fields, FieldPlan{Name: name, Target: fieldTarget(fd), Get: fd.Get, Set: fd.Set})
		}

		seen := make(map[string]bool)
		for _, m := range c.Methods {
			if seen[m.Name] {
				errs.Add(c.Name, m.Name, errors.Registration(errors.PhaseDefinition, c.Name, m.Name,
					fmt.Errorf("duplicate method")))
				continue
			}
			seen[m.Name] = true

			sm := m.SlotMethod(c.Name)
			p, err := trampoline.PlanFor(&sm)
			if err != nil {
				errs.Add(c.Name, m.Name, err)
				continue
			}
			cr.Methods = append(cr.Methods, methodPlan(p))
		}
		r.Classes = append(r.Classes, cr)
	}
	return r, errs.ErrOrNil()
}

func fieldTarget(fd Field) string {
	if fd.Index != nil {
		return fmt.Sprintf("#%d", *fd.Index)
	}
	return fd.Ident
}

func methodPlan(p *trampoline.Plan) MethodPlan {
	mp := MethodPlan{
		Name:     p.Method,
		Category: p.Category.String(),
		Kind:     p.Kind.String(),
		Receiver: p.Receiver.String(),
		Results:  p.Results,
		Fallible: p.Fallible,
		Plan:     p,
	}
	for _, a := range p.Args {
		mp.Args = append(mp.Args, ArgPlan{
			Name:    a.Name,
			Type:    a.Type,
			Kind:    a.Kind.String(),
			Extract: a.Extract.String(),
		})
	}

	switch p.Category {
	case slots.CategorySlot:
		mp.Slot, mp.FnType = string(p.Slot), p.FnType
		mp.ErrorMode, mp.Return = p.ErrorMode.String(), p.Return.String()
	case slots.CategoryFragment:
		mp.Slot, mp.FnType = string(p.Slot), p.FnType
		mp.Fragment, mp.Role = p.Trait, p.Role.String()
		mp.ErrorMode = p.ErrorMode.String()
	}
	return mp
}
