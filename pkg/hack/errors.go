package hack

import "fmt"

// ParseError is the structured failure every front-end reports in place of an
// ad-hoc string: which pipeline stage produced it, which input file it came
// from, and (when the stage tracks source position — none of the three
// front-ends currently sets it) which line. Failures at a pass boundary
// (parsing, lowering, codegen, compile, typecheck) are wrapped with
// github.com/pkg/errors at the call site, so errors.Cause unwraps back to it;
// file read/stat/create failures are reported as a bare ParseError.
type ParseError struct {
	Stage   string // "parsing", "lowering", "codegen", "compile", "typecheck", ...
	File    string // input path the error originated from, "" if not file-scoped
	Line    int    // 1-based source line, 0 if unknown or not applicable
	Message string
}

func (e ParseError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s: %s:%d: %s", e.Stage, e.File, e.Line, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.File, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
}
