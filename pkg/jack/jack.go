package jack

// ----------------------------------------------------------------------------
// General information

// This package implements the Jack compiler front end: a Tokenizer (jack
// lexical analysis), a ScopeTable (class/subroutine scoped symbol resolution),
// a Writer (VM instruction serialization) and a Compiler that fuses parsing and
// code generation into a single recursive-descent pass with no intermediate
// AST — every compileX method both recognizes its grammar production and
// emits the VM operations it lowers to.
//
// A Jack program is a set of classes, one per source file, each compiled
// independently into its own VM module (mirroring the one file per class
// convention of the teacher stack's Hack/VM layers). The optional TypeChecker
// runs a second, read-only pass over the same grammar to catch undeclared
// variables and call-arity mismatches before code generation runs.

// Signature describes a subroutine's calling convention as far as the type
// checker needs to know: how many arguments it expects (excluding the implicit
// 'this' for methods) and whether it is a constructor/function/method. It is
// shared between the cross-class registry built by ScanSignatures and the
// standard library ABI in stdlib.json.
type Signature struct {
	Kind   string `json:"kind"`   // "constructor", "function", or "method"
	Params int    `json:"params"` // declared parameter count, excluding the implicit 'this' receiver
}
