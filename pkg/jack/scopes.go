package jack

// VarKind is one of the four kinds a Jack variable can be declared with; it
// determines both which scope a Variable lives in and which VM segment it
// lowers to.
type VarKind string

const (
	Static VarKind = "static"
	Field  VarKind = "field"
	Arg    VarKind = "arg"
	Var    VarKind = "var"
)

// Segment maps a VarKind to the VM memory segment spelling it lowers to (§3.5:
// static→static, field→this, arg→argument, var→local).
func (k VarKind) Segment() string {
	switch k {
	case Static:
		return "static"
	case Field:
		return "this"
	case Arg:
		return "argument"
	case Var:
		return "local"
	default:
		return ""
	}
}

// Variable is a single entry bound by a ScopeTable: a name resolves to a type, a
// kind, and a dense zero-based index among entries of the same kind in the same
// scope.
type Variable struct {
	Name  string
	Type  string // "int", "char", "boolean", or a class name
	Kind  VarKind
	Index uint16
}

// ScopeTable tracks the two independently-reset scopes a Jack program has: class
// scope (static and field variables, alive for the whole class) and subroutine
// scope (arg and var variables, reset at the start of every subroutine). Lookup
// always checks subroutine scope before class scope, so a parameter or local
// shadows a field or static variable of the same name.
type ScopeTable struct {
	class      map[string]Variable
	subroutine map[string]Variable
	counts     map[VarKind]int
}

// NewScopeTable returns an empty ScopeTable ready to have a class's variables
// defined into it.
func NewScopeTable() *ScopeTable {
	return &ScopeTable{
		class:      map[string]Variable{},
		subroutine: map[string]Variable{},
		counts:     map[VarKind]int{},
	}
}

// ResetClassScope clears every static and field entry and their index counters,
// ready for a new class.
func (st *ScopeTable) ResetClassScope() {
	st.class = map[string]Variable{}
	st.counts[Static], st.counts[Field] = 0, 0
}

// ResetSubroutineScope clears every arg and var entry and their index counters,
// ready for a new subroutine.
func (st *ScopeTable) ResetSubroutineScope() {
	st.subroutine = map[string]Variable{}
	st.counts[Arg], st.counts[Var] = 0, 0
}

// Define binds 'name' in the scope appropriate to 'kind', assigning it the next
// dense index for that (scope, kind) pair. Redefining an already-bound name
// shadows the previous binding rather than erroring, matching the reference
// compiler's acceptance of variable shadowing.
func (st *ScopeTable) Define(name, typ string, kind VarKind) Variable {
	v := Variable{Name: name, Type: typ, Kind: kind, Index: uint16(st.counts[kind])}
	st.counts[kind]++

	switch kind {
	case Static, Field:
		st.class[name] = v
	case Arg, Var:
		st.subroutine[name] = v
	}

	return v
}

// Contains reports whether 'name' is bound in either scope, without caring which.
func (st *ScopeTable) Contains(name string) bool {
	if _, ok := st.subroutine[name]; ok {
		return true
	}
	_, ok := st.class[name]
	return ok
}

// Resolve looks 'name' up, subroutine scope first.
func (st *ScopeTable) Resolve(name string) (Variable, bool) {
	if v, ok := st.subroutine[name]; ok {
		return v, true
	}
	v, ok := st.class[name]
	return v, ok
}

// Count returns how many variables of 'kind' have been defined in the scope it
// belongs to (used to emit the field count for a constructor's Memory.alloc call
// and the local count for a function declaration).
func (st *ScopeTable) Count(kind VarKind) int { return st.counts[kind] }
