package jack

import "github.com/pkg/errors"

// Registry maps a class name to its subroutines' signatures, built once per
// compilation run by scanning every input class's header (ScanSignatures) and
// optionally merged with StandardLibraryABI when the stdlib option is set.
type Registry map[string]map[string]Signature

// ScanSignatures does a single header-only pass over a class's source: it
// records each subroutine's kind and declared parameter count without
// compiling its body, which it skips over by tracking brace depth. This is
// enough information for another class's TypeChecker pass to validate a call
// against it without re-parsing the whole file.
func ScanSignatures(source []byte) (string, map[string]Signature, error) {
	tokens, err := NewTokenizer(source)
	if err != nil {
		return "", nil, errors.Wrap(err, "tokenizing source")
	}
	if !tokens.HasMoreTokens() {
		return "", nil, errors.New("empty source, expected a class declaration")
	}
	tokens.Next() // 'class'

	className := tokens.Next().Value // className
	tokens.Next()                    // '{'

	sigs := map[string]Signature{}

	for tokens.HasMoreTokens() {
		tok := tokens.Current()

		switch {
		case tok.Kind == Keyword && classVarDecKeywords[tok.Value]:
			for tokens.Current().Value != ";" {
				tokens.Next()
			}
			tokens.Next() // ';'

		case tok.Kind == Keyword && subroutineDecKeywords[tok.Value]:
			kind := tok.Value
			tokens.Next() // constructor|function|method
			tokens.Next() // return type
			name := tokens.Current().Value
			tokens.Next() // subroutineName
			tokens.Next() // '('

			params := 0
			if tokens.Current().Value != ")" {
				params = 1
				for tokens.Current().Value != ")" {
					if tokens.Current().Value == "," {
						params++
					}
					tokens.Next()
				}
			}
			tokens.Next() // ')'
			tokens.Next() // '{'

			depth := 1
			for depth > 0 {
				switch tokens.Current().Value {
				case "{":
					depth++
				case "}":
					depth--
				}
				tokens.Next()
			}

			sigs[name] = Signature{Kind: kind, Params: params}

		default: // '}' closing the class, or anything unexpected
			tokens.Next()
		}
	}

	return className, sigs, nil
}

// TypeChecker mirrors Compiler's grammar walk but validates instead of
// emitting: every variable reference must resolve in scope, and every
// subroutine call's argument count must match the callee's declared arity.
type TypeChecker struct {
	tokens    *Tokenizer
	class     *ScopeTable
	className string
	registry  Registry
	local     map[string]Signature // this class's own subroutines, scanned up front
}

// NewTypeChecker returns a TypeChecker for 'source', resolving cross-class
// calls against 'registry' (which should include every other class compiled in
// the same run, and the standard library ABI if --stdlib is set).
func NewTypeChecker(source []byte, registry Registry) (*TypeChecker, error) {
	className, local, err := ScanSignatures(source)
	if err != nil {
		return nil, err
	}

	tokens, err := NewTokenizer(source)
	if err != nil {
		return nil, errors.Wrap(err, "tokenizing source")
	}
	tokens.Next()

	return &TypeChecker{
		tokens:    tokens,
		class:     NewScopeTable(),
		className: className,
		registry:  registry,
		local:     local,
	}, nil
}

// Check walks the whole class declaration, returning the first problem found.
func (tc *TypeChecker) Check() error {
	return tc.checkClass()
}

func (tc *TypeChecker) cur() Token  { return tc.tokens.Current() }
func (tc *TypeChecker) adv() Token  { return tc.tokens.Next() }
func (tc *TypeChecker) back() Token { return tc.tokens.Previous() }

func (tc *TypeChecker) checkClass() error {
	tc.adv() // 'class'
	tc.adv() // className
	tc.adv() // '{'

	for tc.cur().Kind == Keyword && classVarDecKeywords[tc.cur().Value] {
		tc.checkClassVarDec()
	}

	for tc.cur().Kind == Keyword && subroutineDecKeywords[tc.cur().Value] {
		if err := tc.checkSubroutineDec(); err != nil {
			return err
		}
	}

	return nil
}

func (tc *TypeChecker) checkClassVarDec() {
	kind := VarKind(tc.cur().Value)
	tc.adv() // static|field
	typ := tc.cur().Value
	tc.adv() // type
	name := tc.cur().Value
	tc.adv() // varName
	tc.class.Define(name, typ, kind)

	for tc.cur().Kind == Symbol && tc.cur().Value == "," {
		tc.adv() // ','
		name = tc.cur().Value
		tc.adv() // varName
		tc.class.Define(name, typ, kind)
	}
	tc.adv() // ';'
}

func (tc *TypeChecker) checkSubroutineDec() error {
	tc.class.ResetSubroutineScope()

	kind := tc.cur().Value
	tc.adv() // constructor|function|method
	if kind == "method" {
		tc.class.Define("this", tc.className, Arg)
	}
	tc.adv() // return type
	tc.adv() // subroutineName
	tc.adv() // '('
	tc.checkParameterList()
	tc.adv() // ')'

	tc.adv() // '{'
	for tc.cur().Kind == Keyword && tc.cur().Value == "var" {
		tc.checkVarDec()
	}
	if err := tc.checkStatements(); err != nil {
		return err
	}
	tc.adv() // '}'
	return nil
}

func (tc *TypeChecker) checkParameterList() {
	if tc.cur().Kind == Symbol && tc.cur().Value == ")" {
		return
	}
	typ := tc.cur().Value
	tc.adv() // type
	name := tc.cur().Value
	tc.adv() // varName
	tc.class.Define(name, typ, Arg)

	for tc.cur().Kind == Symbol && tc.cur().Value == "," {
		tc.adv() // ','
		typ = tc.cur().Value
		tc.adv() // type
		name = tc.cur().Value
		tc.adv() // varName
		tc.class.Define(name, typ, Arg)
	}
}

func (tc *TypeChecker) checkVarDec() {
	tc.adv() // 'var'
	typ := tc.cur().Value
	tc.adv() // type
	name := tc.cur().Value
	tc.adv() // varName
	tc.class.Define(name, typ, Var)

	for tc.cur().Kind == Symbol && tc.cur().Value == "," {
		tc.adv() // ','
		name = tc.cur().Value
		tc.adv() // varName
		tc.class.Define(name, typ, Var)
	}
	tc.adv() // ';'
}

func (tc *TypeChecker) checkStatements() error {
	for tc.cur().Kind == Keyword && statementKeywords[tc.cur().Value] {
		var err error
		switch tc.cur().Value {
		case "let":
			err = tc.checkLet()
		case "if":
			err = tc.checkIf()
		case "while":
			err = tc.checkWhile()
		case "do":
			err = tc.checkDo()
		case "return":
			err = tc.checkReturn()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (tc *TypeChecker) checkLet() error {
	tc.adv() // 'let'

	name := tc.cur().Value
	if !tc.class.Contains(name) {
		return errors.Errorf("%s: assignment to undeclared variable %q", tc.className, name)
	}
	tc.adv() // varName

	if tc.cur().Kind == Symbol && tc.cur().Value == "[" {
		tc.adv() // '['
		if err := tc.checkExpression(); err != nil {
			return err
		}
		tc.adv() // ']'
	}

	tc.adv() // '='
	if err := tc.checkExpression(); err != nil {
		return err
	}
	tc.adv() // ';'
	return nil
}

func (tc *TypeChecker) checkIf() error {
	tc.adv() // 'if'
	tc.adv() // '('
	if err := tc.checkExpression(); err != nil {
		return err
	}
	tc.adv() // ')'
	tc.adv() // '{'
	if err := tc.checkStatements(); err != nil {
		return err
	}
	tc.adv() // '}'

	if tc.cur().Kind == Keyword && tc.cur().Value == "else" {
		tc.adv() // 'else'
		tc.adv() // '{'
		if err := tc.checkStatements(); err != nil {
			return err
		}
		tc.adv() // '}'
	}
	return nil
}

func (tc *TypeChecker) checkWhile() error {
	tc.adv() // 'while'
	tc.adv() // '('
	if err := tc.checkExpression(); err != nil {
		return err
	}
	tc.adv() // ')'
	tc.adv() // '{'
	if err := tc.checkStatements(); err != nil {
		return err
	}
	tc.adv() // '}'
	return nil
}

func (tc *TypeChecker) checkDo() error {
	tc.adv() // 'do'
	if err := tc.checkExpression(); err != nil {
		return err
	}
	tc.adv() // ';'
	return nil
}

func (tc *TypeChecker) checkReturn() error {
	tc.adv() // 'return'

	if !(tc.cur().Kind == Symbol && tc.cur().Value == ";") {
		if err := tc.checkExpression(); err != nil {
			return err
		}
	}
	tc.adv() // ';'
	return nil
}

func (tc *TypeChecker) checkExpression() error {
	if err := tc.checkTerm(); err != nil {
		return err
	}
	for tc.cur().Kind == Symbol {
		_, isBinary := binaryOps[tc.cur().Value]
		isMulDiv := tc.cur().Value == "*" || tc.cur().Value == "/"
		if !isBinary && !isMulDiv {
			break
		}
		tc.adv() // operator
		if err := tc.checkTerm(); err != nil {
			return err
		}
	}
	return nil
}

func (tc *TypeChecker) checkTerm() error {
	switch {
	case tc.cur().Kind == Symbol && tc.cur().Value == "(":
		tc.adv() // '('
		if err := tc.checkExpression(); err != nil {
			return err
		}
		tc.adv() // ')'
		return nil

	case tc.cur().Kind == Symbol && (tc.cur().Value == "-" || tc.cur().Value == "~"):
		tc.adv() // operator
		return tc.checkTerm()

	case tc.cur().Kind == IntConst, tc.cur().Kind == StringConst:
		tc.adv()
		return nil

	case tc.cur().Kind == Keyword && keywordConsts[tc.cur().Value]:
		tc.adv()
		return nil

	case tc.isArrayAccessLookahead():
		name := tc.cur().Value
		if !tc.class.Contains(name) {
			return errors.Errorf("%s: array access on undeclared variable %q", tc.className, name)
		}
		tc.adv() // varName
		tc.adv() // '['
		if err := tc.checkExpression(); err != nil {
			return err
		}
		tc.adv() // ']'
		return nil

	case tc.isCallLookahead():
		return tc.checkCall()

	default:
		name := tc.cur().Value
		if !tc.class.Contains(name) {
			return errors.Errorf("%s: reference to undeclared variable %q", tc.className, name)
		}
		tc.adv()
		return nil
	}
}

func (tc *TypeChecker) isArrayAccessLookahead() bool {
	if tc.cur().Kind != Identifier {
		return false
	}
	tc.adv()
	isBracket := tc.cur().Kind == Symbol && tc.cur().Value == "["
	tc.back()
	return isBracket
}

// isCallLookahead reports whether the current identifier begins any of the
// three call shapes: bare subroutineName(...), varName.subroutineName(...), or
// ClassName.subroutineName(...).
func (tc *TypeChecker) isCallLookahead() bool {
	if tc.cur().Kind != Identifier {
		return false
	}
	tc.adv()
	isCallOrDot := tc.cur().Kind == Symbol && (tc.cur().Value == "(" || tc.cur().Value == ".")
	tc.back()
	return isCallOrDot
}

func (tc *TypeChecker) checkCall() error {
	name := tc.cur().Value
	tc.adv() // identifier

	if tc.cur().Kind == Symbol && tc.cur().Value == "(" {
		tc.adv() // '('
		n, err := tc.checkExpressionList()
		if err != nil {
			return err
		}
		tc.adv() // ')'
		return tc.checkArity(tc.className, name, n)
	}

	tc.adv() // '.'
	fname := tc.cur().Value
	tc.adv() // subroutineName
	tc.adv() // '('
	n, err := tc.checkExpressionList()
	if err != nil {
		return err
	}
	tc.adv() // ')'

	cname := name
	if v, ok := tc.class.Resolve(name); ok {
		cname = v.Type
	}
	return tc.checkArity(cname, fname, n)
}

// checkArity validates a call's argument count against whichever registry
// (this class's own scan, the cross-class registry, or the stdlib ABI) knows
// about 'cname.fname'. An unknown callee is not itself an error: a class
// outside this compilation run (or one the caller chose not to register) is
// simply not checked, consistent with the compiler's own trust-the-call-site
// policy of never validating that a call target actually exists.
func (tc *TypeChecker) checkArity(cname, fname string, argCount int) error {
	var sig Signature
	var ok bool

	if cname == tc.className {
		sig, ok = tc.local[fname]
	}
	if !ok && tc.registry != nil {
		if subs, found := tc.registry[cname]; found {
			sig, ok = subs[fname]
		}
	}
	if !ok {
		return nil
	}

	// sig.Params never counts the implicit receiver a method call dispatches
	// on: that receiver is pushed by the compiler itself, never written as a
	// syntactic argument, so argCount (parsed straight from the expression
	// list) compares directly against it regardless of call kind.
	if argCount != sig.Params {
		return errors.Errorf("%s: call to %s.%s expects %d argument(s), got %d",
			tc.className, cname, fname, sig.Params, argCount)
	}
	return nil
}

func (tc *TypeChecker) checkExpressionList() (int, error) {
	if tc.cur().Kind == Symbol && tc.cur().Value == ")" {
		return 0, nil
	}
	if err := tc.checkExpression(); err != nil {
		return 0, err
	}
	n := 1
	for tc.cur().Kind == Symbol && tc.cur().Value == "," {
		tc.adv() // ','
		if err := tc.checkExpression(); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}
