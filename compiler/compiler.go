// Package compiler implements Nilan's single-pass compiler: a Pratt
// expression parser and code generator that drives the scanner directly
// and emits bytecode without ever building an intermediate AST. Lexical
// scope resolution (locals, upvalues, scope depth) happens inline as
// statements and expressions are parsed.
package compiler

import (
	"nilan/internal/config"
	"nilan/scanner"
	"nilan/token"
	"nilan/value"
)

// FunctionType distinguishes the implicit top-level script function from
// a nested, user-declared one; only the latter may contain a return
// statement, and only it gets a name.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeScript
)

type local struct {
	name       token.Token
	depth      int
	isCaptured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

// funcState is the compiler state for one function body being compiled,
// stacked via enclosing to mirror the nesting of fun declarations.
type funcState struct {
	enclosing *funcState

	function *value.FunctionObj
	fnType   FunctionType

	locals     [config.MaxLocals]local
	localCount int
	scopeDepth int

	upvalues     [config.MaxUpvalues]upvalueRef
	upvalueCount int
}

// Compiler holds everything needed for one compilation: the scanner
// producing tokens, the two-token lookahead buffer classic to Pratt
// parsing, sticky error-recovery state, and the heap that interns string
// constants into the same table the VM that will run this code reads.
type Compiler struct {
	sc   *scanner.Scanner
	heap *value.Heap

	fn *funcState

	prev token.Token
	cur  token.Token

	hadError  bool
	panicMode bool
	errs      []error
}

// Compile compiles source into the top-level script function. On failure
// it returns a nil function and the accumulated syntax errors; callers
// (typically the VM's Interpret) are responsible for reporting them.
func Compile(source string, heap *value.Heap) (*value.FunctionObj, []error) {
	c := &Compiler{sc: scanner.New(source), heap: heap}
	c.fn = newFuncState(nil, TypeScript, heap.NewFunction())

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	function := c.endFuncState()

	if c.hadError {
		return nil, c.errs
	}
	return function, nil
}

func newFuncState(enclosing *funcState, fnType FunctionType, fn *value.FunctionObj) *funcState {
	fs := &funcState{enclosing: enclosing, fnType: fnType, function: fn}
	// Slot 0 is reserved for the called closure itself.
	fs.locals[0] = local{depth: 0}
	fs.localCount = 1
	return fs
}

func (c *Compiler) endFuncState() *value.FunctionObj {
	c.emitReturn()
	fn := c.fn.function
	fn.UpvalueCount = c.fn.upvalueCount
	c.fn = c.fn.enclosing
	return fn
}

// --- token stream plumbing -------------------------------------------------

func (c *Compiler) advance() {
	c.prev = c.cur
	for {
		c.cur = c.sc.Next()
		if c.cur.Kind != token.ERROR {
			return
		}
		c.errorAtCurrent(c.cur.Lexeme)
	}
}

func (c *Compiler) check(kind token.Kind) bool {
	return c.cur.Kind == kind
}

func (c *Compiler) match(kind token.Kind) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(kind token.Kind, message string) {
	if c.cur.Kind == kind {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.cur, message) }
func (c *Compiler) error(message string)          { c.errorAt(c.prev, message) }

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	c.errs = append(c.errs, SyntaxError{
		Line:    tok.Line,
		Lexeme:  tok.Lexeme,
		AtEnd:   tok.Kind == token.EOF,
		Message: message,
	})
}

// developerError records a limit of the bytecode format being exceeded
// (the one-byte constant operand, hit by any function body with more than
// config.MaxConstants constants), as opposed to a malformed token sequence.
// Unlike errorAt, it isn't tied to panicMode/synchronize — there's no parse
// position to resynchronize from.
func (c *Compiler) developerError(message string) {
	c.hadError = true
	c.errs = append(c.errs, DeveloperError{Message: message})
}

// synchronize discards tokens after a syntax error until it finds a
// statement boundary, so one mistake doesn't cascade into a wall of
// spurious follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.cur.Kind != token.EOF {
		if c.prev.Kind == token.SEMICOLON {
			return
		}
		switch c.cur.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- bytecode emission ------------------------------------------------------

func (c *Compiler) chunk() *value.Chunk { return c.fn.function.Chunk }

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.prev.Line)
}

func (c *Compiler) emitOp(op Opcode) { c.emitByte(byte(op)) }

func (c *Compiler) emitBytes(op Opcode, operand byte) {
	c.emitByte(byte(op))
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() {
	c.emitOp(OP_NIL)
	c.emitOp(OP_RETURN)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx := c.chunk().AddConstant(v)
	if idx > config.MaxConstants-1 {
		c.developerError("too many constants in one chunk: the compiler produced more than config.MaxConstants constants")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitBytes(OP_CONSTANT, c.makeConstant(v))
}

// emitJump writes a jump opcode with a two-byte placeholder operand and
// returns the offset of that placeholder for patchJump to fill in later.
func (c *Compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > config.MaxJumpDistance {
		c.error("Too much code to jump over.")
		return
	}
	c.chunk().Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(OP_LOOP)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > config.MaxJumpDistance {
		c.error("Loop body too large.")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

// --- declarations and statements -------------------------------------------

func (c *Compiler) declaration() {
	switch {
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(TypeFunction)
	c.defineVariable(global)
}

// function compiles a nested function's parameter list and body, then
// emits a CLOSURE instruction (in the enclosing function's chunk) that
// builds it at run time along with the upvalue descriptors it needs.
func (c *Compiler) function(fnType FunctionType) {
	nameTok := c.prev
	fn := c.heap.NewFunction()
	fs := newFuncState(c.fn, fnType, fn)
	if fnType != TypeScript {
		fs.function.Name = c.heap.InternString(nameTok.Lexeme)
	}
	c.fn = fs

	c.beginScope()
	c.consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !c.check(token.RIGHT_PAREN) {
		for {
			fs.function.Arity++
			if fs.function.Arity > config.MaxParameters {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConstant := c.parseVariable("Expect parameter name.")
			c.defineVariable(paramConstant)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	c.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	c.block()

	compiled := c.endFuncState()
	idx := c.makeConstant(value.FromObj(compiled))
	c.emitBytes(OP_CLOSURE, idx)
	for i := 0; i < fs.upvalueCount; i++ {
		if fs.upvalues[i].isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(fs.upvalues[i].index)
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitOp(OP_NIL)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(OP_PRINT)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(OP_POP)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.statement()

	elseJump := c.emitJump(OP_JUMP)
	c.patchJump(thenJump)
	c.emitOp(OP_POP)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(OP_POP)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(OP_JUMP_IF_FALSE)
		c.emitOp(OP_POP)
	}

	if !c.match(token.RIGHT_PAREN) {
		bodyJump := c.emitJump(OP_JUMP)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(OP_POP)
		c.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(OP_POP)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.fn.fnType == TypeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(OP_RETURN)
}

// --- scope bookkeeping -------------------------------------------------------

func (c *Compiler) beginScope() { c.fn.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fn.scopeDepth--
	for c.fn.localCount > 0 && c.fn.locals[c.fn.localCount-1].depth > c.fn.scopeDepth {
		if c.fn.locals[c.fn.localCount-1].isCaptured {
			c.emitOp(OP_CLOSE_UPVALUE)
		} else {
			c.emitOp(OP_POP)
		}
		c.fn.localCount--
	}
}
