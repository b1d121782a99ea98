// Package trampoline generates the raw entry points that let a foreign
// runtime call typed Go functions.
//
// A native function is first described with Describe, which reflects its
// signature into a slots.Method. PlanFor classifies the method and checks
// that the signature fits the protocol its name selects. The generators then
// produce:
//
//   - GenerateSlot: a Trampoline owning one slot of the class
//   - GenerateFragment: a Fragment that cooperates with others in one slot
//   - FieldGetter, FieldSetter, MethodGetter, MethodSetter: property accessors
//   - GenerateMethod: a foreign.MethodDef for names that are not protocols
//
// Every generated entry point acquires the runtime's exclusivity token and
// runs the native body through RunGuarded, so a panic surfaces as a
// PanicException instead of crossing the raw calling convention.
package trampoline
