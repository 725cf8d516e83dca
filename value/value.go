// Package value implements Nilan's tagged value representation, its heap
// object model, and the Chunk (compiled bytecode + constant pool) that
// functions own. Chunk lives here rather than in the compiler package
// because a FunctionObj embeds one directly, and Go has no forward
// declarations to break the value/chunk cycle the way clox's headers do.
package value

import (
	"fmt"
	"strconv"
)

// Kind tags the active field of a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is a uniform tagged value: nil, boolean, IEEE double, or a
// reference to a heap object. It is always passed and stored by value —
// the stack is an array of Value, never of *Value — except where a Value's
// address is captured as an open upvalue.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	obj     Obj
}

// Nil is the singular nil value.
var Nil = Value{kind: KindNil}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

// FromObj wraps a heap object reference.
func FromObj(o Obj) Value { return Value{kind: KindObj, obj: o} }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObj() bool    { return v.kind == KindObj }

func (v Value) AsBool() bool    { return v.boolean }
func (v Value) AsNumber() float64 { return v.number }
func (v Value) AsObj() Obj     { return v.obj }

// IsString reports whether v holds a StringObj.
func (v Value) IsString() bool {
	_, ok := v.obj.(*StringObj)
	return v.kind == KindObj && ok
}

// AsString returns the underlying Go string of a StringObj value. It
// panics if v does not hold a string, mirroring the unchecked AS_STRING
// macro pattern: callers must check IsString first.
func (v Value) AsString() string {
	return v.obj.(*StringObj).Chars
}

// IsFalsey reports whether v is one of the two falsy values: nil or false.
// Every other value, including 0 and the empty string, is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.boolean)
}

// Equal implements Nilan's equality: different kinds are never equal,
// numbers compare by IEEE ==, and objects compare by identity (which,
// thanks to string interning, also gives equal-content strings equality).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.boolean == b.boolean
	case KindNumber:
		return a.number == b.number
	case KindObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// String renders v the way OP_PRINT does.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case KindObj:
		if v.obj == nil {
			return "nil"
		}
		return v.obj.String()
	default:
		return fmt.Sprintf("<invalid value kind %d>", v.kind)
	}
}
