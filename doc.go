// Package slotbridge generates the glue that lets a foreign object runtime
// call typed Go functions through its fixed slot calling convention.
//
// A foreign runtime describes every type by a table of slots: raw entry
// points with a fixed shape that take object references and raw words and
// report failure through an error indicator. slotbridge takes Go methods,
// accessors and fields, picks the slot each one belongs to from a closed
// catalog of protocol method names, and generates trampolines that extract
// arguments, call the native code and encode the result in the shape the
// slot demands.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	slotbridge/          Root package, documentation only
//	├── abi/             Raw calling convention: kinds, slot ids, fn shapes
//	├── errors/          Structured error types for debugging
//	├── resource/        Reference-counted object heap
//	├── foreign/         The foreign object runtime trampolines run against
//	├── slots/           Protocol method catalog and classifier
//	├── trampoline/      Plans and generates slot, fragment and method trampolines
//	├── class/           Assembles foreign types, composing slot fragments
//	├── wasmabi/         Exports a type's slot table as a wazero host module
//	├── decl/            YAML class declarations and generation reports
//	└── cmd/slotgen/     CLI: plan reports, catalog listing, interactive browser
//
// # Quick Start
//
// Build a type from Go declarations and call it through its slots:
//
//	rt := foreign.NewRuntime()
//	defer rt.Close()
//
//	err := rt.With(ctx, func(tok foreign.Token) error {
//	    typ, err := class.New[Vec]("Vec").
//	        Method("__add__", func(v *Vec, o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }).
//	        Method("norm", (*Vec).Norm).
//	        Build(tok)
//	    ...
//	})
//
// # Error Conventions
//
// Generation problems are definition errors: a declaration whose signature
// cannot fit the slot its name selects is reported against that declaration
// and its siblings are still installed. At run time no Go error or panic
// crosses a slot boundary. Trampolines convert both into a raised exception
// and return the failure value of the slot's result kind.
package slotbridge
