package vm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level struct such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as file or modules or also classes.

// A VM Program is just a set of multiple modules/files, in the VM spec each Jack class is
// translated to its own .vm file (just like Java .class file) that can be handled as its
// own translation unit during the compilation or lowering phases. Order is preserved so
// that lowering (and the resulting .asm text) is deterministic run to run.
type Program []NamedModule

// NamedModule pairs a translation unit with the name it is known by (its source
// filename without extension, e.g. "Main" for "Main.vm"), since that name feeds
// both static-variable namespacing and the Sys.vm/bootstrap detection.
type NamedModule struct {
	Name   string
	Module Module
}

// A VM Module is just a linear list of VM operations/instructions
type Module []Operation

// Used to put together all operation in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operation on the stack.
// We could either push a new value taken from the specified segment location on the stack's
// top or take the stack's top and saves its value at the specified segment location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constant

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables
	Argument SegmentType = "argument" // Real segment used to store function's argument

	This    SegmentType = "this"    // Virtual segment used to point to a specific memory location
	That    SegmentType = "that"    // Virtual segment used to point to a specific memory location
	Pointer SegmentType = "pointer" // Real segment w/ 2 location used to set the 'this' and 'that' pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of a Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operation available.
// In particular each operation acts directly on the top of the stack, of course we have both unary
// and binary operation, the specific management of each op will be handled in the codegen phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Branching Ops

// LabelDecl declares a named jump target, scoped to the enclosing function the way
// spec.md §4.2 requires (two VM functions may each declare a "LOOP" label without
// colliding, since the lowering phase namespaces them by function name).
type LabelDecl struct {
	Name string // The symbol chosen by the user for the label
}

// GotoOp transfers control to a previously declared label, either unconditionally
// or only if the value popped off the stack is non-zero.
type GotoOp struct {
	Jump  JumpType // Whether the jump is conditional on the stack's top value
	Label string   // The target label's name
}

type JumpType string // Enum to manage the two jump flavors available for a GotoOp

const (
	Unconditional JumpType = "goto"    // Always transfers control to 'Label'
	Conditional   JumpType = "if-goto" // Transfers control to 'Label' iff popped value != 0
)

// ----------------------------------------------------------------------------
// Function Ops

// FuncDecl declares a function entry point together with how many local variables
// it needs zero-initialized on entry.
type FuncDecl struct {
	Name   string // Fully qualified function name (e.g. "Math.multiply")
	NLocal uint8  // Number of local variables to zero-initialize on entry
}

// FuncCallOp invokes a previously declared (or OS-provided) function, pushing a
// return address and the caller's frame before transferring control.
type FuncCallOp struct {
	Name  string // Fully qualified function name being invoked
	NArgs uint8  // Number of arguments already pushed by the caller
}

// ReturnOp restores the caller's frame and transfers control back to the return
// address saved by the matching FuncCallOp.
type ReturnOp struct{}
