package compiler

import (
	"nilan/internal/config"
	"nilan/token"
	"nilan/value"
)

// parseVariable consumes a name token, declares it, and for a global
// returns the constant-pool index its name was interned at; for a local
// it returns 0, since locals are identified by stack slot rather than by
// name at run time.
func (c *Compiler) parseVariable(errMsg string) byte {
	c.consume(token.IDENTIFIER, errMsg)
	c.declareVariable()
	if c.fn.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.prev)
}

func (c *Compiler) identifierConstant(name token.Token) byte {
	return c.makeConstant(value.FromObj(c.heap.InternString(name.Lexeme)))
}

// declareVariable records a local in the current scope, rejecting a
// second declaration of the same name within the same scope. Globals are
// not tracked here at all — they're resolved dynamically by name.
func (c *Compiler) declareVariable() {
	if c.fn.scopeDepth == 0 {
		return
	}
	name := c.prev
	for i := c.fn.localCount - 1; i >= 0; i-- {
		l := c.fn.locals[i]
		if l.depth != -1 && l.depth < c.fn.scopeDepth {
			break
		}
		if l.name.Lexeme == name.Lexeme {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name token.Token) {
	if c.fn.localCount == config.MaxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.fn.locals[c.fn.localCount] = local{name: name, depth: -1}
	c.fn.localCount++
}

// markInitialized flips a just-declared local from "being declared" (depth
// -1, invisible to resolveLocal) to fully visible. Called after the local's
// initializer expression has been compiled, or immediately for parameters
// and function names, which have no separate initializer to wait for.
func (c *Compiler) markInitialized() {
	if c.fn.scopeDepth == 0 {
		return
	}
	c.fn.locals[c.fn.localCount-1].depth = c.fn.scopeDepth
}

// defineVariable finishes a variable declaration: locals need nothing
// further (the value is already sitting on the stack in its slot), while
// globals get an explicit instruction binding the popped value to a name.
func (c *Compiler) defineVariable(global byte) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(OP_DEFINE_GLOBAL, global)
}

// resolveLocal looks up name among fs's locals, innermost scope first.
func (c *Compiler) resolveLocal(fs *funcState, name token.Token) (int, bool) {
	for i := fs.localCount - 1; i >= 0; i-- {
		l := &fs.locals[i]
		if l.name.Lexeme == name.Lexeme {
			if l.depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue walks outward through enclosing function states looking
// for name as a local, threading an upvalue descriptor through every
// intervening function so each one captures from the function directly
// enclosing it. Returns false if name is never found, leaving it to
// resolve as a global instead.
func (c *Compiler) resolveUpvalue(fs *funcState, name token.Token) (int, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if localIdx, ok := c.resolveLocal(fs.enclosing, name); ok {
		fs.enclosing.locals[localIdx].isCaptured = true
		idx := c.addUpvalue(fs, byte(localIdx), true)
		return idx, true
	}
	if upvalIdx, ok := c.resolveUpvalue(fs.enclosing, name); ok {
		idx := c.addUpvalue(fs, byte(upvalIdx), false)
		return idx, true
	}
	return 0, false
}

func (c *Compiler) addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i := 0; i < fs.upvalueCount; i++ {
		uv := fs.upvalues[i]
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if fs.upvalueCount == config.MaxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	fs.upvalues[fs.upvalueCount] = upvalueRef{index: index, isLocal: isLocal}
	fs.upvalueCount++
	return fs.upvalueCount - 1
}
