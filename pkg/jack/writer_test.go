package jack_test

import (
	"testing"

	"github.com/nandtools/n2t/pkg/jack"
	"github.com/nandtools/n2t/pkg/vm"
)

func TestWriterAppendsOperationsInOrder(t *testing.T) {
	w := jack.NewWriter()

	w.WritePush(vm.Constant, 7)
	w.WriteCall("Foo.bar", 1)
	w.WriteReturn()

	module := w.Module()
	if len(module) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(module))
	}

	push, ok := module[0].(vm.MemoryOp)
	if !ok || push.Operation != vm.Push || push.Segment != vm.Constant || push.Offset != 7 {
		t.Errorf("expected 'push constant 7', got %#v", module[0])
	}

	call, ok := module[1].(vm.FuncCallOp)
	if !ok || call.Name != "Foo.bar" || call.NArgs != 1 {
		t.Errorf("expected 'call Foo.bar 1', got %#v", module[1])
	}

	if _, ok := module[2].(vm.ReturnOp); !ok {
		t.Errorf("expected a ReturnOp, got %#v", module[2])
	}
}

func TestWriterLabelGotoIf(t *testing.T) {
	w := jack.NewWriter()

	w.WriteLabel("LOOP")
	w.WriteGoto("LOOP")
	w.WriteIf("END")

	module := w.Module()

	if decl, ok := module[0].(vm.LabelDecl); !ok || decl.Name != "LOOP" {
		t.Errorf("expected label 'LOOP', got %#v", module[0])
	}
	if g, ok := module[1].(vm.GotoOp); !ok || g.Jump != vm.Unconditional || g.Label != "LOOP" {
		t.Errorf("expected unconditional goto 'LOOP', got %#v", module[1])
	}
	if g, ok := module[2].(vm.GotoOp); !ok || g.Jump != vm.Conditional || g.Label != "END" {
		t.Errorf("expected conditional if-goto 'END', got %#v", module[2])
	}
}
