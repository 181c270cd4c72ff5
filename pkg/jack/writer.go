package jack

import "github.com/nandtools/n2t/pkg/vm"

// kindSegment maps a resolved variable's Kind to the VM segment the compiler
// pushes/pops it through (§3.5's kind→segment mapping).
var kindSegment = map[VarKind]vm.SegmentType{
	Static: vm.Static,
	Field:  vm.This,
	Arg:    vm.Argument,
	Var:    vm.Local,
}

// Writer is the thin VM serializer §4.5 describes: one vm.Operation appended per
// call, with no validation of its own — the compiler is the only caller and is
// responsible for only ever asking for well-formed operations.
type Writer struct {
	module vm.Module
}

// NewWriter returns a Writer with an empty module.
func NewWriter() *Writer { return &Writer{module: vm.Module{}} }

// Module returns the operations written so far.
func (w *Writer) Module() vm.Module { return w.module }

func (w *Writer) WritePush(segment vm.SegmentType, index uint16) {
	w.module = append(w.module, vm.MemoryOp{Operation: vm.Push, Segment: segment, Offset: index})
}

func (w *Writer) WritePop(segment vm.SegmentType, index uint16) {
	w.module = append(w.module, vm.MemoryOp{Operation: vm.Pop, Segment: segment, Offset: index})
}

func (w *Writer) WriteArithmetic(op vm.ArithOpType) {
	w.module = append(w.module, vm.ArithmeticOp{Operation: op})
}

func (w *Writer) WriteLabel(name string) { w.module = append(w.module, vm.LabelDecl{Name: name}) }

func (w *Writer) WriteGoto(name string) {
	w.module = append(w.module, vm.GotoOp{Jump: vm.Unconditional, Label: name})
}

func (w *Writer) WriteIf(name string) {
	w.module = append(w.module, vm.GotoOp{Jump: vm.Conditional, Label: name})
}

func (w *Writer) WriteCall(name string, nArgs uint8) {
	w.module = append(w.module, vm.FuncCallOp{Name: name, NArgs: nArgs})
}

func (w *Writer) WriteFunction(name string, nLocal uint8) {
	w.module = append(w.module, vm.FuncDecl{Name: name, NLocal: nLocal})
}

func (w *Writer) WriteReturn() { w.module = append(w.module, vm.ReturnOp{}) }
