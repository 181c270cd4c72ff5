package jack

import (
	"github.com/nandtools/n2t/pkg/vm"
	"github.com/pkg/errors"
)

// binaryOps maps each arithmetic/logic symbol to the operation it lowers to: most
// are a single ArithmeticOp, '*' and '/' instead compile to a call into the Math
// class since the Hack VM has no multiply/divide instruction.
var binaryOps = map[string]vm.ArithOpType{
	"+": vm.Add, "-": vm.Sub, "&": vm.And, "|": vm.Or, "<": vm.Lt, ">": vm.Gt, "=": vm.Eq,
}

var unaryOps = map[string]vm.ArithOpType{"-": vm.Neg, "~": vm.Not}

var classVarDecKeywords = map[string]bool{"static": true, "field": true}
var subroutineDecKeywords = map[string]bool{"constructor": true, "function": true, "method": true}
var statementKeywords = map[string]bool{"let": true, "if": true, "while": true, "do": true, "return": true}
var keywordConsts = map[string]bool{"true": true, "false": true, "null": true, "this": true}

// Compiler is the fused recursive-descent parser and VM code emitter §4.4
// describes: there is no intermediate AST, every compileX method both recognizes
// its grammar production and writes the VM operations it lowers to in the same
// pass, using 1-2 tokens of lookahead (via the Tokenizer's Previous) to
// disambiguate call sites and assignment targets.
type Compiler struct {
	tokens    *Tokenizer
	writer    *Writer
	class     *ScopeTable
	className string
	labels    int
}

// NewCompiler lexes 'source' and returns a Compiler positioned on the first token,
// ready to compile a single class declaration.
func NewCompiler(source []byte) (*Compiler, error) {
	tokens, err := NewTokenizer(source)
	if err != nil {
		return nil, errors.Wrap(err, "tokenizing source")
	}
	if !tokens.HasMoreTokens() {
		return nil, errors.New("empty source, expected a class declaration")
	}

	tokens.Next()
	return &Compiler{tokens: tokens, writer: NewWriter(), class: NewScopeTable()}, nil
}

// CompileClass tokenizes and compiles a single Jack class file, returning the VM
// module it lowers to.
func CompileClass(source []byte) (vm.Module, error) {
	c, err := NewCompiler(source)
	if err != nil {
		return nil, err
	}
	return c.Compile()
}

// Compile runs the compiler over the whole class declaration and returns the
// resulting VM module.
func (c *Compiler) Compile() (vm.Module, error) {
	if err := c.compileClass(); err != nil {
		return nil, err
	}
	return c.writer.Module(), nil
}

func (c *Compiler) cur() Token  { return c.tokens.Current() }
func (c *Compiler) adv() Token  { return c.tokens.Next() }
func (c *Compiler) back() Token { return c.tokens.Previous() }

func (c *Compiler) nextLabel() string {
	label := "L" + itoa(c.labels)
	c.labels++
	return label
}

// itoa avoids pulling in strconv for a single base-10 conversion of a small
// monotonically increasing counter.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// class 'className' '{' classVarDec* subroutineDec* '}'
func (c *Compiler) compileClass() error {
	c.adv() // 'class'

	c.className = c.cur().Value
	c.adv() // className
	c.adv() // '{'

	for c.cur().Kind == Keyword && classVarDecKeywords[c.cur().Value] {
		c.compileClassVarDec()
	}

	for c.cur().Kind == Keyword && subroutineDecKeywords[c.cur().Value] {
		if err := c.compileSubroutineDec(); err != nil {
			return err
		}
	}

	c.adv() // '}'
	return nil
}

// ('static'|'field') type varName (',' varName)* ';'
func (c *Compiler) compileClassVarDec() {
	kind := VarKind(c.cur().Value)
	c.adv() // 'static'|'field'

	typ := c.cur().Value
	c.adv() // type

	name := c.cur().Value
	c.adv() // varName
	c.class.Define(name, typ, kind)

	for c.cur().Kind == Symbol && c.cur().Value == "," {
		c.adv() // ','
		name = c.cur().Value
		c.adv() // varName
		c.class.Define(name, typ, kind)
	}

	c.adv() // ';'
}

// ('constructor'|'function'|'method') type subroutineName
// '(' parameterList ')' subroutineBody
func (c *Compiler) compileSubroutineDec() error {
	c.class.ResetSubroutineScope()

	kind := c.cur().Value
	c.adv() // constructor|function|method

	if kind == "method" {
		c.class.Define("this", c.className, Arg)
	}

	c.adv() // return type

	name := c.cur().Value
	c.adv() // subroutineName
	c.adv() // '('
	c.compileParameterList()
	c.adv() // ')'
	return c.compileSubroutineBody(kind, name)
}

// ((type varName) (',' type varName)*)?
func (c *Compiler) compileParameterList() {
	if c.cur().Kind == Symbol && c.cur().Value == ")" {
		return
	}

	typ := c.cur().Value
	c.adv() // type
	name := c.cur().Value
	c.adv() // varName
	c.class.Define(name, typ, Arg)

	for c.cur().Kind == Symbol && c.cur().Value == "," {
		c.adv() // ','
		typ = c.cur().Value
		c.adv() // type
		name = c.cur().Value
		c.adv() // varName
		c.class.Define(name, typ, Arg)
	}
}

// '{' varDec* statements '}'
func (c *Compiler) compileSubroutineBody(kind, name string) error {
	c.adv() // '{'

	for c.cur().Kind == Keyword && c.cur().Value == "var" {
		c.compileVarDec()
	}

	nLocal := c.class.Count(Var)
	c.writer.WriteFunction(c.className+"."+name, uint8(nLocal))

	switch kind {
	case "constructor":
		c.writer.WritePush(vm.Constant, uint16(c.class.Count(Field)))
		c.writer.WriteCall("Memory.alloc", 1)
		c.writer.WritePop(vm.Pointer, 0)
	case "method":
		c.writer.WritePush(vm.Argument, 0)
		c.writer.WritePop(vm.Pointer, 0)
	}

	if err := c.compileStatements(); err != nil {
		return err
	}

	c.adv() // '}'
	return nil
}

// 'var' type varName (',' varName)* ';'
func (c *Compiler) compileVarDec() {
	c.adv() // 'var'

	typ := c.cur().Value
	c.adv() // type

	name := c.cur().Value
	c.adv() // varName
	c.class.Define(name, typ, Var)

	for c.cur().Kind == Symbol && c.cur().Value == "," {
		c.adv() // ','
		name = c.cur().Value
		c.adv() // varName
		c.class.Define(name, typ, Var)
	}

	c.adv() // ';'
}

func (c *Compiler) compileStatements() error {
	for c.cur().Kind == Keyword && statementKeywords[c.cur().Value] {
		var err error
		switch c.cur().Value {
		case "let":
			err = c.compileLet()
		case "if":
			err = c.compileIf()
		case "while":
			err = c.compileWhile()
		case "do":
			err = c.compileDo()
		case "return":
			err = c.compileReturn()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// 'let' (assignment|arrayAssignment) ';'
func (c *Compiler) compileLet() error {
	c.adv() // 'let'

	var err error
	if c.isArrayAccess() {
		err = c.compileArrayAssignment()
	} else {
		err = c.compileAssignment()
	}
	if err != nil {
		return err
	}

	c.adv() // ';'
	return nil
}

// varName '=' expression
func (c *Compiler) compileAssignment() error {
	name := c.cur().Value
	c.adv() // varName

	v, ok := c.class.Resolve(name)
	if !ok {
		return errors.Errorf("assignment to undeclared variable %q", name)
	}

	c.adv() // '='
	if err := c.compileExpression(); err != nil {
		return err
	}

	c.writer.WritePop(kindSegment[v.Kind], v.Index)
	return nil
}

// varName '[' expression1 ']' '=' expression2
func (c *Compiler) compileArrayAssignment() error {
	name := c.cur().Value
	c.adv() // varName

	v, ok := c.class.Resolve(name)
	if !ok {
		return errors.Errorf("assignment to undeclared array %q", name)
	}
	c.writer.WritePush(kindSegment[v.Kind], v.Index)

	c.adv() // '['
	if err := c.compileExpression(); err != nil {
		return err
	}
	c.adv() // ']'
	c.writer.WriteArithmetic(vm.Add)

	c.adv() // '='
	if err := c.compileExpression(); err != nil {
		return err
	}

	c.writer.WritePop(vm.Temp, 0)
	c.writer.WritePop(vm.Pointer, 1)
	c.writer.WritePush(vm.Temp, 0)
	c.writer.WritePop(vm.That, 0)
	return nil
}

// 'if' '(' expression ')' '{' statements '}' ('else' '{' statements '}')?
func (c *Compiler) compileIf() error {
	elseLabel := c.nextLabel()

	c.adv() // 'if'
	c.adv() // '('
	if err := c.compileExpression(); err != nil {
		return err
	}
	c.adv() // ')'

	c.writer.WriteArithmetic(vm.Not)
	c.writer.WriteIf(elseLabel)

	c.adv() // '{'
	if err := c.compileStatements(); err != nil {
		return err
	}
	c.adv() // '}'

	if c.cur().Kind == Keyword && c.cur().Value == "else" {
		endLabel := c.nextLabel()
		c.writer.WriteGoto(endLabel)
		c.writer.WriteLabel(elseLabel)

		c.adv() // 'else'
		c.adv() // '{'
		if err := c.compileStatements(); err != nil {
			return err
		}
		c.adv() // '}'

		c.writer.WriteLabel(endLabel)
	} else {
		c.writer.WriteLabel(elseLabel)
	}
	return nil
}

// 'while' '(' expression ')' '{' statements '}'
func (c *Compiler) compileWhile() error {
	topLabel := c.nextLabel()
	endLabel := c.nextLabel()

	c.adv() // 'while'
	c.adv() // '('

	c.writer.WriteLabel(topLabel)
	if err := c.compileExpression(); err != nil {
		return err
	}
	c.adv() // ')'

	c.writer.WriteArithmetic(vm.Not)
	c.writer.WriteIf(endLabel)

	c.adv() // '{'
	if err := c.compileStatements(); err != nil {
		return err
	}

	c.writer.WriteGoto(topLabel)
	c.writer.WriteLabel(endLabel)

	c.adv() // '}'
	return nil
}

// 'do' subroutineCall ';'
func (c *Compiler) compileDo() error {
	c.adv() // 'do'
	if err := c.compileExpression(); err != nil {
		return err
	}
	c.writer.WritePop(vm.Temp, 0) // discard the call's unused return value
	c.adv()                      // ';'
	return nil
}

// 'return' expression? ';'
func (c *Compiler) compileReturn() error {
	c.adv() // 'return'

	if !(c.cur().Kind == Symbol && c.cur().Value == ";") {
		if err := c.compileExpression(); err != nil {
			return err
		}
	} else {
		c.writer.WritePush(vm.Constant, 0)
	}

	c.writer.WriteReturn()
	c.adv() // ';'
	return nil
}

// term (op term)*, compiled strictly left-to-right with no operator precedence.
func (c *Compiler) compileExpression() error {
	if err := c.compileTerm(); err != nil {
		return err
	}

	for c.cur().Kind == Symbol {
		op, ok := binaryOps[c.cur().Value]
		isMulDiv := c.cur().Value == "*" || c.cur().Value == "/"
		if !ok && !isMulDiv {
			break
		}
		symbol := c.cur().Value
		c.adv() // operator
		if err := c.compileTerm(); err != nil {
			return err
		}

		switch symbol {
		case "*":
			c.writer.WriteCall("Math.multiply", 2)
		case "/":
			c.writer.WriteCall("Math.divide", 2)
		default:
			c.writer.WriteArithmetic(op)
		}
	}
	return nil
}

func (c *Compiler) compileTerm() error {
	switch {
	case c.isParenExpr():
		return c.compileParenExpr()
	case c.isUnaryExpr():
		return c.compileUnaryExpr()
	case c.cur().Kind == IntConst:
		c.compileIntConst()
		return nil
	case c.cur().Kind == StringConst:
		c.compileStringConst()
		return nil
	case c.isKeywordConst():
		c.compileKeywordConst()
		return nil
	case c.isArrayAccess():
		return c.compileArrayAccess()
	case c.isThisMethodCall():
		return c.compileThisMethodCall()
	case c.isMethodCall():
		return c.compileMethodCall()
	case c.isClassFunctionCall():
		return c.compileClassFunctionCall()
	default:
		return c.compileVarName()
	}
}

func (c *Compiler) isParenExpr() bool { return c.cur().Kind == Symbol && c.cur().Value == "(" }

// '(' expression ')'
func (c *Compiler) compileParenExpr() error {
	c.adv() // '('
	if err := c.compileExpression(); err != nil {
		return err
	}
	c.adv() // ')'
	return nil
}

func (c *Compiler) isUnaryExpr() bool {
	return c.cur().Kind == Symbol && (c.cur().Value == "-" || c.cur().Value == "~")
}

// op term
func (c *Compiler) compileUnaryExpr() error {
	op := unaryOps[c.cur().Value]
	c.adv() // operator
	if err := c.compileTerm(); err != nil {
		return err
	}
	c.writer.WriteArithmetic(op)
	return nil
}

func (c *Compiler) compileIntConst() {
	c.writer.WritePush(vm.Constant, uint16(atoi(c.cur().Value)))
	c.adv()
}

// atoi parses the tokenizer's already-validated decimal digit run; it never sees
// non-digit input since IntConst tokens are only ever produced from [0-9]+.
func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

func (c *Compiler) compileStringConst() {
	s := c.cur().Value
	c.writer.WritePush(vm.Constant, uint16(len(s)))
	c.writer.WriteCall("String.new", 1)

	for i := 0; i < len(s); i++ {
		c.writer.WritePush(vm.Constant, uint16(s[i]))
		c.writer.WriteCall("String.appendChar", 2)
	}

	c.adv()
}

func (c *Compiler) isKeywordConst() bool {
	return c.cur().Kind == Keyword && keywordConsts[c.cur().Value]
}

func (c *Compiler) compileKeywordConst() {
	switch c.cur().Value {
	case "true":
		c.writer.WritePush(vm.Constant, 1)
		c.writer.WriteArithmetic(vm.Neg)
	case "this":
		c.writer.WritePush(vm.Pointer, 0)
	default: // false, null
		c.writer.WritePush(vm.Constant, 0)
	}
	c.adv()
}

// isThisMethodCall peeks one token ahead without consuming: an identifier
// immediately followed by '(' is a bare subroutineName() call, dispatched as a
// method invocation on 'this'.
func (c *Compiler) isThisMethodCall() bool {
	if c.cur().Kind != Identifier {
		return false
	}
	c.adv()
	isCall := c.cur().Kind == Symbol && c.cur().Value == "("
	c.back()
	return isCall
}

// subroutineName '(' expressionList ')'
func (c *Compiler) compileThisMethodCall() error {
	c.writer.WritePush(vm.Pointer, 0)

	name := c.cur().Value
	c.adv() // subroutineName
	c.adv() // '('
	n, err := c.compileExpressionList()
	if err != nil {
		return err
	}
	c.adv() // ')'

	c.writer.WriteCall(c.className+"."+name, uint8(n+1))
	return nil
}

// isClassFunctionCall peeks ahead for '.' after an identifier that resolves to
// neither the subroutine nor the class scope, meaning it must name a class.
func (c *Compiler) isClassFunctionCall() bool {
	if c.cur().Kind != Identifier {
		return false
	}
	name := c.cur().Value
	c.adv()
	isDotted := c.cur().Kind == Symbol && c.cur().Value == "."
	c.back()
	return isDotted && !c.class.Contains(name)
}

// className '.' subroutineName '(' expressionList ')'
func (c *Compiler) compileClassFunctionCall() error {
	cname := c.cur().Value
	c.adv() // className
	c.adv() // '.'

	fname := c.cur().Value
	c.adv() // subroutineName
	c.adv() // '('
	n, err := c.compileExpressionList()
	if err != nil {
		return err
	}
	c.adv() // ')'

	c.writer.WriteCall(cname+"."+fname, uint8(n))
	return nil
}

// isMethodCall peeks ahead for '.' after an identifier that IS bound in scope,
// meaning it names a variable whose declared type is the receiver class.
func (c *Compiler) isMethodCall() bool {
	if c.cur().Kind != Identifier {
		return false
	}
	name := c.cur().Value
	c.adv()
	isDotted := c.cur().Kind == Symbol && c.cur().Value == "."
	c.back()
	return isDotted && c.class.Contains(name)
}

// varName '.' subroutineName '(' expressionList ')'
func (c *Compiler) compileMethodCall() error {
	name := c.cur().Value
	c.adv() // varName
	c.adv() // '.'

	v, ok := c.class.Resolve(name)
	if !ok {
		return errors.Errorf("method call receiver %q is not in scope", name)
	}
	c.writer.WritePush(kindSegment[v.Kind], v.Index)

	fname := c.cur().Value
	c.adv() // subroutineName
	c.adv() // '('
	n, err := c.compileExpressionList()
	if err != nil {
		return err
	}
	c.adv() // ')'

	c.writer.WriteCall(v.Type+"."+fname, uint8(n+1))
	return nil
}

func (c *Compiler) compileVarName() error {
	name := c.cur().Value
	v, ok := c.class.Resolve(name)
	if !ok {
		return errors.Errorf("reference to undeclared variable %q", name)
	}
	c.writer.WritePush(kindSegment[v.Kind], v.Index)
	c.adv()
	return nil
}

// isArrayAccess peeks one token ahead for '[' without consuming it.
func (c *Compiler) isArrayAccess() bool {
	c.adv()
	isBracket := c.cur().Kind == Symbol && c.cur().Value == "["
	c.back()
	return isBracket
}

// varName '[' expression ']'
func (c *Compiler) compileArrayAccess() error {
	name := c.cur().Value
	c.adv() // varName

	v, ok := c.class.Resolve(name)
	if !ok {
		return errors.Errorf("array access on undeclared variable %q", name)
	}
	c.writer.WritePush(kindSegment[v.Kind], v.Index)

	c.adv() // '['
	if err := c.compileExpression(); err != nil {
		return err
	}
	c.adv() // ']'

	c.writer.WriteArithmetic(vm.Add)
	c.writer.WritePop(vm.Pointer, 1)
	c.writer.WritePush(vm.That, 0)
	return nil
}

// (expression (',' expression)*)?
func (c *Compiler) compileExpressionList() (int, error) {
	if c.cur().Kind == Symbol && c.cur().Value == ")" {
		return 0, nil
	}

	if err := c.compileExpression(); err != nil {
		return 0, err
	}
	n := 1

	for c.cur().Kind == Symbol && c.cur().Value == "," {
		c.adv() // ','
		if err := c.compileExpression(); err != nil {
			return 0, err
		}
		n++
	}

	return n, nil
}
