// Package class assembles foreign types from typed Go declarations.
//
// A Builder collects methods, accessors, fields and class attributes, then
// Build generates each one independently and installs the results into a
// new foreign.Type:
//
//	typ, err := class.New[Vec]("Vec").
//		Method("__add__", func(v Vec, o Vec) Vec { ... }).
//		Method("__radd__", func(v Vec, o int64) Vec { ... }).
//		Field(slots.Field{Ident: "X", Get: true, Set: true}).
//		Build(tok)
//
// Single-owner slots are installed directly. Fragments that share a slot are
// composed into one slot function that tries them in a fixed order and moves
// on only when a fragment returns NotImplemented. A declaration that fails to
// generate is reported in an errors.DefinitionErrors; its siblings are still
// installed.
package class
