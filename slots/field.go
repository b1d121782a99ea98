package slots

import (
	"strconv"

	"github.com/wippyai/slotbridge/errors"
)

// Field describes a data descriptor backed by a struct field. The field is
// addressed by Ident when set, otherwise by its positional Index.
type Field struct {
	Class string
	Ident string
	Name  string
	Type  string
	Index int
	Get   bool
	Set   bool
}

// ExternalName returns the attribute name the field is exposed under.
// Positional fields have no identifier to fall back on and need an explicit
// name.
func (f *Field) ExternalName() (string, error) {
	switch {
	case f.Name != "":
		return f.Name, nil
	case f.Ident != "":
		return f.Ident, nil
	}
	return "", errors.FieldName([]string{f.Class, strconv.Itoa(f.Index)},
		"positional fields require an explicit name")
}
