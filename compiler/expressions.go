package compiler

import (
	"strconv"

	"nilan/internal/config"
	"nilan/token"
	"nilan/value"
)

// Precedence levels, lowest to highest, matching the grammar's precedence
// ladder exactly so parsePrecedence can climb it one rule at a time.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// rules is the static Pratt table: for every token kind that can start or
// continue an expression, which function parses it and at what binding
// power. Built once from method values rather than per-parser closures.
var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LEFT_PAREN:    {(*Compiler).grouping, (*Compiler).call, PrecCall},
		token.MINUS:         {(*Compiler).unary, (*Compiler).binary, PrecTerm},
		token.PLUS:          {nil, (*Compiler).binary, PrecTerm},
		token.SLASH:         {nil, (*Compiler).binary, PrecFactor},
		token.STAR:          {nil, (*Compiler).binary, PrecFactor},
		token.BANG:          {(*Compiler).unary, nil, PrecNone},
		token.BANG_EQUAL:    {nil, (*Compiler).binary, PrecEquality},
		token.EQUAL_EQUAL:   {nil, (*Compiler).binary, PrecEquality},
		token.GREATER:       {nil, (*Compiler).binary, PrecComparison},
		token.GREATER_EQUAL: {nil, (*Compiler).binary, PrecComparison},
		token.LESS:          {nil, (*Compiler).binary, PrecComparison},
		token.LESS_EQUAL:    {nil, (*Compiler).binary, PrecComparison},
		token.IDENTIFIER:    {(*Compiler).variable, nil, PrecNone},
		token.STRING:        {(*Compiler).stringLiteral, nil, PrecNone},
		token.NUMBER:        {(*Compiler).number, nil, PrecNone},
		token.AND:           {nil, (*Compiler).and_, PrecAnd},
		token.OR:            {nil, (*Compiler).or_, PrecOr},
		token.FALSE:         {(*Compiler).literal, nil, PrecNone},
		token.NIL:           {(*Compiler).literal, nil, PrecNone},
		token.TRUE:          {(*Compiler).literal, nil, PrecNone},
	}
}

func getRule(kind token.Kind) parseRule {
	if r, ok := rules[kind]; ok {
		return r
	}
	return parseRule{precedence: PrecNone}
}

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(precedence Precedence) {
	c.advance()
	prefixRule := getRule(c.prev.Kind).prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := precedence <= PrecAssignment
	prefixRule(c, canAssign)

	for precedence <= getRule(c.cur.Kind).precedence {
		c.advance()
		infixRule := getRule(c.prev.Kind).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	operator := c.prev.Kind
	c.parsePrecedence(PrecUnary)
	switch operator {
	case token.MINUS:
		c.emitOp(OP_NEGATE)
	case token.BANG:
		c.emitOp(OP_NOT)
	}
}

// binary parses the right operand at one precedence level above the
// operator's own, so `a - b - c` groups as `(a - b) - c`: left-associative.
func (c *Compiler) binary(canAssign bool) {
	operator := c.prev.Kind
	rule := getRule(operator)
	c.parsePrecedence(rule.precedence + 1)

	switch operator {
	case token.BANG_EQUAL:
		c.emitOp(OP_EQUAL)
		c.emitOp(OP_NOT)
	case token.EQUAL_EQUAL:
		c.emitOp(OP_EQUAL)
	case token.GREATER:
		c.emitOp(OP_GREATER)
	case token.GREATER_EQUAL:
		c.emitOp(OP_LESS)
		c.emitOp(OP_NOT)
	case token.LESS:
		c.emitOp(OP_LESS)
	case token.LESS_EQUAL:
		c.emitOp(OP_GREATER)
		c.emitOp(OP_NOT)
	case token.PLUS:
		c.emitOp(OP_ADD)
	case token.MINUS:
		c.emitOp(OP_SUBTRACT)
	case token.STAR:
		c.emitOp(OP_MULTIPLY)
	case token.SLASH:
		c.emitOp(OP_DIVIDE)
	}
}

func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(OP_JUMP_IF_FALSE)
	endJump := c.emitJump(OP_JUMP)
	c.patchJump(elseJump)
	c.emitOp(OP_POP)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitBytes(OP_CALL, argCount)
}

func (c *Compiler) argumentList() byte {
	var count int
	if !c.check(token.RIGHT_PAREN) {
		for {
			c.expression()
			if count == config.MaxParameters {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return byte(count)
}

func (c *Compiler) number(canAssign bool) {
	n, _ := strconv.ParseFloat(c.prev.Lexeme, 64)
	c.emitConstant(value.Number(n))
}

func (c *Compiler) stringLiteral(canAssign bool) {
	// Lexeme includes the surrounding quotes; strip them before interning.
	raw := c.prev.Lexeme
	s := raw[1 : len(raw)-1]
	c.emitConstant(value.FromObj(c.heap.InternString(s)))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.prev.Kind {
	case token.FALSE:
		c.emitOp(OP_FALSE)
	case token.NIL:
		c.emitOp(OP_NIL)
	case token.TRUE:
		c.emitOp(OP_TRUE)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.prev, canAssign)
}

func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp Opcode
	var arg byte

	if localIdx, ok := c.resolveLocal(c.fn, name); ok {
		getOp, setOp = OP_GET_LOCAL, OP_SET_LOCAL
		arg = byte(localIdx)
	} else if upvalIdx, ok := c.resolveUpvalue(c.fn, name); ok {
		getOp, setOp = OP_GET_UPVALUE, OP_SET_UPVALUE
		arg = byte(upvalIdx)
	} else {
		getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
		arg = c.identifierConstant(name)
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitBytes(setOp, arg)
	} else {
		c.emitBytes(getOp, arg)
	}
}
