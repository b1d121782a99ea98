package decl

import (
	"fmt"
	"os"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/slots"
)

// File is the top-level declaration file.
type File struct {
	// Catalog is the protocol catalog version the file targets, for example
	// "v1" or "v1.0.0". Defaults to the catalog of this build.
	Catalog string  `yaml:"catalog,omitempty"`
	Classes []Class `yaml:"classes"`

	// Path is where the file was loaded from. It is not part of the YAML.
	Path string `yaml:"-"`
}

// Class declares one foreign class.
type Class struct {
	Name    string   `yaml:"name"`
	Doc     string   `yaml:"doc,omitempty"`
	Fields  []Field  `yaml:"fields,omitempty"`
	Methods []Method `yaml:"methods,omitempty"`
}

// Field declares a data descriptor over a struct field. Exactly one of
// Ident and Index addresses the field.
type Field struct {
	Ident string `yaml:"ident,omitempty"`
	Index *int   `yaml:"index,omitempty"`
	// Name is the attribute name. Positional fields require it.
	Name string `yaml:"name,omitempty"`
	Type string `yaml:"type,omitempty"`
	// Get and Set select the generated accessors. With neither set the
	// field is read-only.
	Get bool `yaml:"get,omitempty"`
	Set bool `yaml:"set,omitempty"`
}

// Method declares a native method by its signature.
type Method struct {
	Name   string `yaml:"name"`
	GoName string `yaml:"go_name,omitempty"`
	// Kind is instance, class, static, classattr, new or call.
	Kind string `yaml:"kind,omitempty"`
	// Receiver is none, shared, exclusive or class. Instance and call
	// methods default to shared, class methods to class.
	Receiver   string      `yaml:"receiver,omitempty"`
	TypeParams []TypeParam `yaml:"type_params,omitempty"`
	Params     []Param     `yaml:"params,omitempty"`
	// Results lists result types other than a trailing error.
	Results    []string `yaml:"results,omitempty"`
	Fallible   bool     `yaml:"fallible,omitempty"`
	PassModule bool     `yaml:"pass_module,omitempty"`
}

// TypeParam declares a type parameter of a native method.
type TypeParam struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// Param declares one parameter after the receiver.
type Param struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Context bool   `yaml:"context,omitempty"`
}

// Load reads and parses a declaration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindNotFound, err, "read "+path)
	}
	return Parse(data, path)
}

// Parse parses declaration file content. The path is used only in error
// messages.
func Parse(data []byte, path string) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "parse "+path)
	}
	f.Path = path
	f.setDefaults()
	if err := f.validate(path); err != nil {
		return nil, err
	}
	return &f, nil
}

func invalid(path, format string, args ...any) error {
	return errors.InvalidData(errors.PhaseLoad, []string{path}, fmt.Sprintf(format, args...))
}

// CheckCatalog reports whether a file written for catalog version v can be
// processed by this build.
func CheckCatalog(v string) error {
	if !semver.IsValid(v) {
		return errors.New(errors.PhaseLoad, errors.KindVersion).
			Value(v).
			Detail("catalog %q is not a semantic version", v).
			Build()
	}
	if semver.Major(v) != semver.Major(slots.CatalogVersion) {
		return errors.New(errors.PhaseLoad, errors.KindVersion).
			Value(v).
			Detail("catalog %s is incompatible with %s", v, slots.CatalogVersion).
			Build()
	}
	if semver.Compare(v, slots.CatalogVersion) > 0 {
		return errors.New(errors.PhaseLoad, errors.KindVersion).
			Value(v).
			Detail("catalog %s is newer than %s", v, slots.CatalogVersion).
			Build()
	}
	return nil
}

// validate checks the file for errors that make it unusable as a whole.
// Signature problems of single methods are definition errors reported by
// Plan instead.
func (f *File) validate(path string) error {
	if err := CheckCatalog(f.Catalog); err != nil {
		return err
	}
	if len(f.Classes) == 0 {
		return invalid(path, "no classes declared")
	}

	seen := make(map[string]bool)
	for i, c := range f.Classes {
		if c.Name == "" {
			return invalid(path, "classes[%d]: name is required", i)
		}
		if seen[c.Name] {
			return invalid(path, "classes[%d]: duplicate class %s", i, c.Name)
		}
		seen[c.Name] = true

		for j, fd := range c.Fields {
			if (fd.Ident == "") == (fd.Index == nil) {
				return invalid(path, "%s.fields[%d]: exactly one of ident and index is required", c.Name, j)
			}
			if fd.Index != nil && *fd.Index < 0 {
				return invalid(path, "%s.fields[%d]: index must not be negative", c.Name, j)
			}
		}

		for j, m := range c.Methods {
			if m.Name == "" {
				return invalid(path, "%s.methods[%d]: name is required", c.Name, j)
			}
			if _, ok := abi.ParseMethodKind(m.Kind); !ok {
				return invalid(path, "%s.%s: unknown kind %q", c.Name, m.Name, m.Kind)
			}
			if _, ok := slots.ParseReceiver(m.Receiver); !ok {
				return invalid(path, "%s.%s: unknown receiver %q", c.Name, m.Name, m.Receiver)
			}
			for _, tp := range m.TypeParams {
				if _, ok := slots.ParseTypeParamKind(tp.Kind); !ok {
					return invalid(path, "%s.%s: unknown type parameter kind %q", c.Name, m.Name, tp.Kind)
				}
			}
			for k, p := range m.Params {
				if p.Type == "" {
					return invalid(path, "%s.%s: params[%d]: type is required", c.Name, m.Name, k)
				}
			}
		}
	}
	return nil
}

// setDefaults fills in omitted fields.
func (f *File) setDefaults() {
	if f.Catalog == "" {
		f.Catalog = slots.CatalogVersion
	}
	for i := range f.Classes {
		c := &f.Classes[i]
		for j := range c.Fields {
			if !c.Fields[j].Get && !c.Fields[j].Set {
				c.Fields[j].Get = true
			}
		}
		for j := range c.Methods {
			m := &c.Methods[j]
			if m.Kind == "" {
				m.Kind = abi.MethodInstance.String()
			}
			if m.Receiver == "" {
				m.Receiver = defaultReceiver(m.Kind)
			}
			for k := range m.Params {
				if m.Params[k].Name == "" {
					m.Params[k].Name = fmt.Sprintf("arg%d", k)
				}
			}
		}
	}
}

func defaultReceiver(kind string) string {
	k, _ := abi.ParseMethodKind(kind)
	switch {
	case k.HasReceiver():
		return slots.ReceiverShared.String()
	case k == abi.MethodClass:
		return slots.ReceiverClass.String()
	}
	return slots.ReceiverNone.String()
}

// SlotMethod converts the declaration into the native description the
// classifier works on.
func (m Method) SlotMethod(class string) slots.Method {
	kind, _ := abi.ParseMethodKind(m.Kind)
	recv, _ := slots.ParseReceiver(m.Receiver)
	out := slots.Method{
		Class:      class,
		Name:       m.Name,
		GoName:     m.GoName,
		Kind:       kind,
		Receiver:   recv,
		Results:    m.Results,
		Fallible:   m.Fallible,
		PassModule: m.PassModule,
	}
	for _, tp := range m.TypeParams {
		k, _ := slots.ParseTypeParamKind(tp.Kind)
		out.TypeParams = append(out.TypeParams, slots.TypeParam{Name: tp.Name, Kind: k})
	}
	for _, p := range m.Params {
		out.Params = append(out.Params, slots.Param{Name: p.Name, Type: p.Type, Context: p.Context})
	}
	return out
}

// SlotField converts the declaration into a field description.
func (fd Field) SlotField(class string) slots.Field {
	out := slots.Field{
		Class: class,
		Ident: fd.Ident,
		Name:  fd.Name,
		Type:  fd.Type,
		Get:   fd.Get,
		Set:   fd.Set,
	}
	if fd.Index != nil {
		out.Index = *fd.Index
	}
	return out
}
