package jack_test

import (
	"testing"

	"github.com/nandtools/n2t/pkg/jack"
	"github.com/nandtools/n2t/pkg/vm"
)

func TestCompileSimpleFunction(t *testing.T) {
	src := `
		class Math2 {
			function int double(int x) {
				return x + x;
			}
		}
	`

	module, err := jack.CompileClass([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	decl, ok := module[0].(vm.FuncDecl)
	if !ok || decl.Name != "Math2.double" || decl.NLocal != 0 {
		t.Fatalf("expected 'function Math2.double 0', got %#v", module[0])
	}

	foundAdd, foundReturn := false, false
	for _, op := range module {
		if a, ok := op.(vm.ArithmeticOp); ok && a.Operation == vm.Add {
			foundAdd = true
		}
		if _, ok := op.(vm.ReturnOp); ok {
			foundReturn = true
		}
	}
	if !foundAdd || !foundReturn {
		t.Fatalf("expected an add and a return, got %#v", module)
	}
}

func TestCompileConstructorAllocatesFields(t *testing.T) {
	src := `
		class Point {
			field int x, y;
			constructor Point new(int ax, int ay) {
				let x = ax;
				let y = ay;
				return this;
			}
		}
	`

	module, err := jack.CompileClass([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var pushedFieldCount, calledAlloc, poppedPointer bool
	for _, op := range module {
		if push, ok := op.(vm.MemoryOp); ok && push.Operation == vm.Push && push.Segment == vm.Constant && push.Offset == 2 {
			pushedFieldCount = true
		}
		if call, ok := op.(vm.FuncCallOp); ok && call.Name == "Memory.alloc" && call.NArgs == 1 {
			calledAlloc = true
		}
		if pop, ok := op.(vm.MemoryOp); ok && pop.Operation == vm.Pop && pop.Segment == vm.Pointer && pop.Offset == 0 {
			poppedPointer = true
		}
	}
	if !pushedFieldCount || !calledAlloc || !poppedPointer {
		t.Fatalf("expected constructor prelude pushing field count, calling Memory.alloc, popping pointer 0; got %#v", module)
	}
}

func TestCompileMethodPushesArgument0IntoPointer0(t *testing.T) {
	src := `
		class Point {
			field int x;
			method int getX() {
				return x;
			}
		}
	`

	module, err := jack.CompileClass([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	foundPushArg0, foundPopPointer0 := false, false
	for _, op := range module {
		if push, ok := op.(vm.MemoryOp); ok && push.Operation == vm.Push && push.Segment == vm.Argument && push.Offset == 0 {
			foundPushArg0 = true
		}
		if pop, ok := op.(vm.MemoryOp); ok && pop.Operation == vm.Pop && pop.Segment == vm.Pointer && pop.Offset == 0 {
			foundPopPointer0 = true
		}
	}
	if !foundPushArg0 || !foundPopPointer0 {
		t.Fatalf("expected method prelude 'push argument 0' / 'pop pointer 0', got %#v", module)
	}
}

func TestCompileIfElseLabelsAreUniquePerClass(t *testing.T) {
	src := `
		class Branchy {
			function void run(boolean flag) {
				if (flag) {
					return;
				} else {
					return;
				}
				if (flag) {
					return;
				}
				return;
			}
		}
	`

	module, err := jack.CompileClass([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	seen := map[string]int{}
	for _, op := range module {
		if decl, ok := op.(vm.LabelDecl); ok {
			seen[decl.Name]++
		}
	}
	for name, count := range seen {
		if count > 1 {
			t.Fatalf("label %q declared %d times, labels must be unique within a class", name, count)
		}
	}
	if len(seen) != 3 { // if/else pair contributes 2 labels, the bare if contributes 1
		t.Fatalf("expected 3 distinct labels, got %d: %v", len(seen), seen)
	}
}

func TestCompileWhileLoop(t *testing.T) {
	src := `
		class Loop {
			function void run() {
				var int i;
				let i = 0;
				while (i < 10) {
					let i = i + 1;
				}
				return;
			}
		}
	`

	module, err := jack.CompileClass([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	foundGoto, foundIf := false, false
	for _, op := range module {
		if g, ok := op.(vm.GotoOp); ok {
			if g.Jump == vm.Unconditional {
				foundGoto = true
			}
			if g.Jump == vm.Conditional {
				foundIf = true
			}
		}
	}
	if !foundGoto || !foundIf {
		t.Fatalf("expected both an unconditional and a conditional jump, got %#v", module)
	}
}

func TestCompileStringConstantCallsStringNewAndAppendChar(t *testing.T) {
	src := `
		class Greeter {
			function void run() {
				do Output.printString("hi");
				return;
			}
		}
	`

	module, err := jack.CompileClass([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	calledNew, appendCalls := false, 0
	for _, op := range module {
		if call, ok := op.(vm.FuncCallOp); ok {
			switch call.Name {
			case "String.new":
				calledNew = true
			case "String.appendChar":
				appendCalls++
			}
		}
	}
	if !calledNew || appendCalls != 2 {
		t.Fatalf("expected one String.new and 2 String.appendChar calls, got new=%v appendCalls=%d", calledNew, appendCalls)
	}
}

func TestCompileMultiplyAndDivideCallMathFunctions(t *testing.T) {
	src := `
		class Ops {
			function int run(int a, int b) {
				return a * b / a;
			}
		}
	`

	module, err := jack.CompileClass([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	calledMultiply, calledDivide := false, false
	for _, op := range module {
		if call, ok := op.(vm.FuncCallOp); ok {
			if call.Name == "Math.multiply" && call.NArgs == 2 {
				calledMultiply = true
			}
			if call.Name == "Math.divide" && call.NArgs == 2 {
				calledDivide = true
			}
		}
	}
	if !calledMultiply || !calledDivide {
		t.Fatalf("expected calls to Math.multiply and Math.divide, got %#v", module)
	}
}

func TestCompileArrayAssignmentSequestersTemp0(t *testing.T) {
	src := `
		class ArrOps {
			function void run(Array a, int i, int v) {
				let a[i] = v;
				return;
			}
		}
	`

	module, err := jack.CompileClass([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var ops []string
	for _, op := range module {
		switch v := op.(type) {
		case vm.MemoryOp:
			ops = append(ops, string(v.Operation)+" "+string(v.Segment))
		}
	}

	foundTempPop, foundThatPop := false, false
	for _, op := range module {
		if pop, ok := op.(vm.MemoryOp); ok && pop.Operation == vm.Pop && pop.Segment == vm.Temp && pop.Offset == 0 {
			foundTempPop = true
		}
		if pop, ok := op.(vm.MemoryOp); ok && pop.Operation == vm.Pop && pop.Segment == vm.That && pop.Offset == 0 {
			foundThatPop = true
		}
	}
	if !foundTempPop || !foundThatPop {
		t.Fatalf("expected array assignment to sequester through temp 0 then pop that 0, ops=%v full=%#v", ops, module)
	}
}

func TestCompileMethodCallOnVariableDispatchesToDeclaredType(t *testing.T) {
	src := `
		class Holder {
			field Point p;
			method void run() {
				do p.draw();
				return;
			}
		}
	`

	module, err := jack.CompileClass([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	for _, op := range module {
		if call, ok := op.(vm.FuncCallOp); ok && call.Name == "Point.draw" {
			if call.NArgs != 1 {
				t.Errorf("expected implicit receiver argument, got NArgs=%d", call.NArgs)
			}
			return
		}
	}
	t.Fatalf("expected a call to Point.draw, got %#v", module)
}

func TestCompileClassFunctionCallDoesNotPushReceiver(t *testing.T) {
	src := `
		class Caller {
			function void run() {
				do Sys.halt();
				return;
			}
		}
	`

	module, err := jack.CompileClass([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	for _, op := range module {
		if call, ok := op.(vm.FuncCallOp); ok && call.Name == "Sys.halt" {
			if call.NArgs != 0 {
				t.Errorf("expected a static function call to push no implicit receiver, got NArgs=%d", call.NArgs)
			}
			return
		}
	}
	t.Fatalf("expected a call to Sys.halt, got %#v", module)
}

func TestCompileUndeclaredVariableFails(t *testing.T) {
	src := `
		class Bad {
			function void run() {
				let z = 1;
				return;
			}
		}
	`

	if _, err := jack.CompileClass([]byte(src)); err == nil {
		t.Fatal("expected an error assigning to an undeclared variable")
	}
}
