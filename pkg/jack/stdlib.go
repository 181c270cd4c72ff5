package jack

import (
	_ "embed"
	"encoding/json"
)

//go:embed stdlib.json
var stdlibSource []byte

// StandardLibraryABI holds the Jack OS's class signatures (Math, String,
// Array, Output, Screen, Keyboard, Memory, Sys), keyed by class name then
// subroutine name. The Jack OS itself is never compiled by this package (no
// .jack source for it ships here) — this ABI exists only so --stdlib call
// sites and --typecheck arity checks can resolve a call into it without the
// caller having to supply its own copy of the library sources.
var StandardLibraryABI Registry

func init() {
	if err := json.Unmarshal(stdlibSource, &StandardLibraryABI); err != nil {
		panic("jack: malformed embedded stdlib.json: " + err.Error())
	}
}
