// Package foreign implements the foreign object runtime that generated
// trampolines are installed into and called from.
//
// The runtime keeps every object in a reference-counted heap (see package
// resource) and guards all object access with a single global exclusivity
// token, the runtime's equivalent of an interpreter lock:
//
//	rt := foreign.NewRuntime()
//	tok, release := rt.Acquire(ctx)
//	defer release()
//
//	n := tok.NewInt(41)
//	one := tok.NewInt(1)
//	sum, err := tok.BinaryOp(abi.SlotAdd, n, one)
//
// Acquire is re-entrant: a context obtained from Token.Context already holds
// the token, so slot functions invoked from native code do not deadlock.
//
// # Errors
//
// Failed operations return a *Exception. Raw slot functions report failure
// through their failure value (null or -1) and the runtime's error indicator,
// which Token.SetError, Token.Occurred and Token.Fetch manipulate.
//
// # Operators
//
// BinaryOp, TernaryOp, InPlaceOp and RichCompare implement operator
// negotiation: the left operand's slot is tried first and the right operand's
// slot next whenever the first returns NotImplemented. Only when every
// candidate declines is a TypeError raised.
package foreign
