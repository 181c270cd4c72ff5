package vm

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nandtools/n2t/pkg/asm"
)

// segmentBase maps the four "pointer style" segments to the built-in Hack label
// that holds their current base address.
var segmentBase = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

// ----------------------------------------------------------------------------
// Vm Lowerer

// Lowerer takes a full 'vm.Program' (one Module per translation unit/class) and
// produces the equivalent 'asm.Program'. Labels declared inside a function are
// namespaced by the enclosing function's name, and static variables are
// namespaced by the enclosing module's name, exactly as spec.md §4.2 requires so
// that modules compiled independently never collide when linked together.
type Lowerer struct {
	program   Program
	bootstrap bool

	cmpCounter  int // monotonic counter, guarantees unique eq/gt/lt labels program-wide
	callCounter int // monotonic counter, guarantees unique call return-address labels
}

// NewLowerer initializes a brand new Lowerer. 'bootstrap' controls whether the
// Sys.init bootstrap sequence is emitted ahead of every module (see spec.md §9 and
// the VM Translator's --bootstrap flag).
func NewLowerer(p Program, bootstrap bool) Lowerer {
	return Lowerer{program: p, bootstrap: bootstrap}
}

// Lower runs the full lowering pass over every module in the program, in order,
// and returns the resulting asm.Program ready for textual codegen.
func (l *Lowerer) Lower() (asm.Program, error) {
	if len(l.program) == 0 {
		return nil, errors.New("the given 'program' is empty")
	}

	out := asm.Program{}
	if l.bootstrap {
		out = append(out, l.lowerBootstrap()...)
	}

	for _, named := range l.program {
		lowered, err := l.lowerModule(named)
		if err != nil {
			return nil, errors.Wrapf(err, "module %q", named.Name)
		}
		out = append(out, lowered...)
	}

	if !l.bootstrap {
		out = append(out, l.lowerEndCap()...)
	}

	return out, nil
}

// lowerModule lowers every operation of a single named module, tracking which
// function is currently open so label/goto namespacing resolves correctly.
func (l *Lowerer) lowerModule(named NamedModule) ([]asm.Instruction, error) {
	out := []asm.Instruction{}
	currentFunc := named.Name

	for index, op := range named.Module {
		var lowered []asm.Instruction
		var err error

		switch concrete := op.(type) {
		case MemoryOp:
			lowered, err = l.lowerMemoryOp(concrete, named.Name)
		case ArithmeticOp:
			lowered, err = l.lowerArithmeticOp(concrete)
		case LabelDecl:
			lowered = l.lowerLabelDecl(concrete, currentFunc)
		case GotoOp:
			lowered = l.lowerGotoOp(concrete, currentFunc)
		case FuncDecl:
			currentFunc = concrete.Name
			lowered = l.lowerFuncDecl(concrete)
		case FuncCallOp:
			lowered = l.lowerFuncCallOp(concrete, currentFunc)
		case ReturnOp:
			lowered = l.lowerReturnOp()
		default:
			err = fmt.Errorf("unrecognized operation %T", op)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "operation %d", index)
		}
		out = append(out, lowered...)
	}

	return out, nil
}

// ----------------------------------------------------------------------------
// Shared instruction fragments

// pushD appends the instructions that push the Hack computer's D register on
// top of the VM stack, advancing SP by one.
func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// popToD appends the instructions that pop the VM stack's top value into D,
// decrementing SP by one. A is left pointing at the slot just popped.
func popToD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// ----------------------------------------------------------------------------
// Memory Ops

func (l *Lowerer) lowerMemoryOp(op MemoryOp, module string) ([]asm.Instruction, error) {
	if op.Operation == Push {
		return l.lowerPush(op, module)
	}
	if op.Operation == Pop {
		return l.lowerPop(op, module)
	}
	return nil, fmt.Errorf("unrecognized OperationType %q", op.Operation)
}

func (l *Lowerer) lowerPush(op MemoryOp, module string) ([]asm.Instruction, error) {
	switch op.Segment {
	case Constant:
		return append([]asm.Instruction{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}, pushD()...), nil

	case Local, Argument, This, That:
		base := segmentBase[op.Segment]
		return append([]asm.Instruction{
			asm.AInstruction{Location: base},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "A", Comp: "D+A"},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil

	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
		return append([]asm.Instruction{
			asm.AInstruction{Location: fmt.Sprint(5 + op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil

	case Pointer:
		target, err := pointerTarget(op.Offset)
		if err != nil {
			return nil, err
		}
		return append([]asm.Instruction{
			asm.AInstruction{Location: target},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil

	case Static:
		return append([]asm.Instruction{
			asm.AInstruction{Location: staticName(module, op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil
	}

	return nil, fmt.Errorf("unrecognized SegmentType %q", op.Segment)
}

func (l *Lowerer) lowerPop(op MemoryOp, module string) ([]asm.Instruction, error) {
	switch op.Segment {
	case Local, Argument, This, That:
		base := segmentBase[op.Segment]
		out := []asm.Instruction{
			asm.AInstruction{Location: base},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "D+A"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}
		out = append(out, popToD()...)
		out = append(out,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
		return out, nil

	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
		out := popToD()
		out = append(out,
			asm.AInstruction{Location: fmt.Sprint(5 + op.Offset)},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
		return out, nil

	case Pointer:
		target, err := pointerTarget(op.Offset)
		if err != nil {
			return nil, err
		}
		out := popToD()
		out = append(out,
			asm.AInstruction{Location: target},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
		return out, nil

	case Static:
		out := popToD()
		out = append(out,
			asm.AInstruction{Location: staticName(module, op.Offset)},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
		return out, nil
	}

	return nil, fmt.Errorf("unrecognized SegmentType %q", op.Segment)
}

func pointerTarget(offset uint16) (string, error) {
	switch offset {
	case 0:
		return "THIS", nil
	case 1:
		return "THAT", nil
	default:
		return "", fmt.Errorf("invalid 'pointer' offset, got %d", offset)
	}
}

func staticName(module string, offset uint16) string {
	return fmt.Sprintf("%s.%d", module, offset)
}

// ----------------------------------------------------------------------------
// Arithmetic Ops

var binaryArithComp = map[ArithOpType]string{
	Add: "D+M",
	Sub: "M-D",
	And: "D&M",
	Or:  "D|M",
}

var unaryArithComp = map[ArithOpType]string{
	Neg: "-M",
	Not: "!M",
}

var comparisonJump = map[ArithOpType]string{
	Eq: "JEQ",
	Gt: "JGT",
	Lt: "JLT",
}

func (l *Lowerer) lowerArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	if comp, ok := binaryArithComp[op.Operation]; ok {
		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.CInstruction{Dest: "A", Comp: "A-1"},
			asm.CInstruction{Dest: "M", Comp: comp},
		}, nil
	}

	if comp, ok := unaryArithComp[op.Operation]; ok {
		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: comp},
		}, nil
	}

	if jump, ok := comparisonJump[op.Operation]; ok {
		trueLabel := fmt.Sprintf("CMP_TRUE.%d", l.cmpCounter)
		endLabel := fmt.Sprintf("CMP_END.%d", l.cmpCounter)
		l.cmpCounter++

		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.CInstruction{Dest: "A", Comp: "A-1"},
			asm.CInstruction{Dest: "D", Comp: "M-D"},
			asm.AInstruction{Location: trueLabel},
			asm.CInstruction{Comp: "D", Jump: jump},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "0"},
			asm.AInstruction{Location: endLabel},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
			asm.LabelDecl{Name: trueLabel},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "-1"},
			asm.LabelDecl{Name: endLabel},
		}, nil
	}

	return nil, fmt.Errorf("unrecognized ArithOpType %q", op.Operation)
}

// ----------------------------------------------------------------------------
// Branching Ops

// qualifiedLabel namespaces a user-written label by its enclosing function, the
// way the original nand2tetris VM spec mandates ("Foo.bar$LOOP"), so that two
// functions can each declare a label with the same name without colliding.
func qualifiedLabel(function, name string) string {
	return fmt.Sprintf("%s$%s", function, name)
}

func (l *Lowerer) lowerLabelDecl(op LabelDecl, currentFunc string) []asm.Instruction {
	return []asm.Instruction{asm.LabelDecl{Name: qualifiedLabel(currentFunc, op.Name)}}
}

func (l *Lowerer) lowerGotoOp(op GotoOp, currentFunc string) []asm.Instruction {
	target := qualifiedLabel(currentFunc, op.Label)

	if op.Jump == Unconditional {
		return []asm.Instruction{
			asm.AInstruction{Location: target},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}
	}

	out := popToD()
	out = append(out,
		asm.AInstruction{Location: target},
		asm.CInstruction{Comp: "D", Jump: "JNE"},
	)
	return out
}

// ----------------------------------------------------------------------------
// Function Ops

func (l *Lowerer) lowerFuncDecl(op FuncDecl) []asm.Instruction {
	out := []asm.Instruction{asm.LabelDecl{Name: op.Name}}

	for i := uint8(0); i < op.NLocal; i++ {
		out = append(out, asm.AInstruction{Location: "0"}, asm.CInstruction{Dest: "D", Comp: "A"})
		out = append(out, pushD()...)
	}

	return out
}

func (l *Lowerer) lowerFuncCallOp(op FuncCallOp, currentFunc string) []asm.Instruction {
	l.callCounter++
	returnLabel := fmt.Sprintf("%s$ret.%d", currentFunc, l.callCounter)

	out := []asm.Instruction{asm.AInstruction{Location: returnLabel}, asm.CInstruction{Dest: "D", Comp: "A"}}
	out = append(out, pushD()...)

	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		out = append(out, asm.AInstruction{Location: reg}, asm.CInstruction{Dest: "D", Comp: "M"})
		out = append(out, pushD()...)
	}

	// ARG = SP - 5 - nArgs
	out = append(out,
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: fmt.Sprint(op.NArgs)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)
	// LCL = SP
	out = append(out,
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)
	// goto f; (return-address label)
	out = append(out,
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: returnLabel},
	)

	return out
}

func (l *Lowerer) lowerReturnOp() []asm.Instruction {
	out := []asm.Instruction{
		// FRAME (R13) = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// RET (R14) = *(FRAME-5)
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	// *ARG = pop()
	out = append(out, popToD()...)
	out = append(out,
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)
	// SP = ARG + 1
	out = append(out,
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)

	// THAT/THIS/ARG/LCL = *(FRAME-1..4), restored back to front
	for _, reg := range []string{"THAT", "THIS", "ARG", "LCL"} {
		out = append(out,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: reg},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
	}

	// goto RET
	out = append(out,
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)

	return out
}

// ----------------------------------------------------------------------------
// Bootstrap / end-cap

// lowerBootstrap emits "SP=256; call Sys.init 0", the standard nand2tetris VM
// bootstrap, ahead of every other module.
func (l *Lowerer) lowerBootstrap() []asm.Instruction {
	out := []asm.Instruction{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
	out = append(out, l.lowerFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0}, "Bootstrap")...)
	return out
}

// lowerEndCap emits an infinite loop so a non-bootstrapped (single file, no
// Sys.init) program halts cleanly instead of falling through into whatever
// comes after it in ROM.
func (l *Lowerer) lowerEndCap() []asm.Instruction {
	return []asm.Instruction{
		asm.LabelDecl{Name: "END_PROGRAM"},
		asm.AInstruction{Location: "END_PROGRAM"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}
}
