// Package wasmabi exports the slot table of a foreign type as a wazero host
// module, so WebAssembly guests can call slots through the raw calling
// convention: object references are i32 handles, hashes and lengths i64,
// and failure is signalled by the failure word of the result kind with the
// runtime's error indicator set.
//
// Each installed slot is exported under its slot identifier (for example
// "mp_length" or "nb_add"). Property getters and setters are exported as
// "get_<name>" and "set_<name>".
package wasmabi
