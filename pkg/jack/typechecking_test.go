package jack_test

import (
	"testing"

	"github.com/nandtools/n2t/pkg/jack"
)

func TestScanSignaturesRecordsKindAndArity(t *testing.T) {
	src := `
		class Point {
			field int x, y;
			constructor Point new(int ax, int ay) { let x = ax; let y = ay; return this; }
			method int getX() { return x; }
			function void staticHelper(int a, int b, int c) { return; }
		}
	`

	className, sigs, err := jack.ScanSignatures([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if className != "Point" {
		t.Fatalf("expected class name 'Point', got %q", className)
	}

	tests := map[string]jack.Signature{
		"new":          {Kind: "constructor", Params: 2},
		"getX":         {Kind: "method", Params: 0},
		"staticHelper": {Kind: "function", Params: 3},
	}
	for name, want := range tests {
		got, ok := sigs[name]
		if !ok {
			t.Fatalf("expected a signature for %q", name)
		}
		if got != want {
			t.Errorf("%s: got %+v, want %+v", name, got, want)
		}
	}
}

func TestTypeCheckerCatchesUndeclaredVariable(t *testing.T) {
	src := `
		class Bad {
			function void run() {
				let z = 1;
				return;
			}
		}
	`

	tc, err := jack.NewTypeChecker([]byte(src), nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := tc.Check(); err == nil {
		t.Fatal("expected an error for the undeclared variable assignment")
	}
}

func TestTypeCheckerAcceptsWellFormedClass(t *testing.T) {
	src := `
		class Counter {
			field int count;
			constructor Counter new() { let count = 0; return this; }
			method void increment() { let count = count + 1; return; }
		}
	`

	tc, err := jack.NewTypeChecker([]byte(src), nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := tc.Check(); err != nil {
		t.Fatalf("unexpected error checking a well-formed class: %s", err)
	}
}

func TestTypeCheckerCatchesArityMismatchAgainstRegistry(t *testing.T) {
	src := `
		class Caller {
			function void run() {
				do Math.abs(1, 2);
				return;
			}
		}
	`

	registry := jack.Registry{"Math": {"abs": {Kind: "function", Params: 1}}}

	tc, err := jack.NewTypeChecker([]byte(src), registry)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := tc.Check(); err == nil {
		t.Fatal("expected an arity mismatch error calling Math.abs with 2 arguments")
	}
}

func TestTypeCheckerAcceptsStdlibCallArity(t *testing.T) {
	src := `
		class Caller {
			function void run() {
				do Math.abs(5);
				return;
			}
		}
	`

	tc, err := jack.NewTypeChecker([]byte(src), jack.StandardLibraryABI)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := tc.Check(); err != nil {
		t.Fatalf("unexpected error checking a valid Math.abs call: %s", err)
	}
}

func TestTypeCheckerAcceptsMethodCallIncludingImplicitReceiver(t *testing.T) {
	src := `
		class Caller {
			function void run() {
				var String s;
				let s = String.new(3);
				do s.appendChar(65);
				return;
			}
		}
	`

	tc, err := jack.NewTypeChecker([]byte(src), jack.StandardLibraryABI)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := tc.Check(); err != nil {
		t.Fatalf("unexpected error checking a valid method call: %s", err)
	}
}
