// Package abi defines the raw calling convention between the foreign object
// runtime and generated trampolines.
//
// Every value that crosses the boundary is one of a closed set of Kinds. A
// Kind maps to exactly one wazero value type and has a fixed failure value:
//
//	Object, ObjectOrFallback, NonNullObject  i32 handle, failure is null (0)
//	CompareCode, Int                         i32, failure is -1
//	HashInt, SizeInt                         i64, failure is -1
//	Unit                                     no value
//
// A slot entry point is a SlotFunc. It reads the raw receiver from stack[0]
// and its arguments from stack[1:], and writes the raw result to stack[0],
// the same way wazero's api.GoModuleFunc uses its stack:
//
//	fn := trampoline.Func
//	stack := []uint64{abi.EncodeRef(self), abi.EncodeRef(other)}
//	fn(ctx, stack)
//	result := abi.DecodeRef(stack[0])
//
// FnPointer describes the shape (parameter and result kinds) of each slot
// function-pointer type. Slot identifiers name the dispatch table entry a
// trampoline is installed into.
package abi
