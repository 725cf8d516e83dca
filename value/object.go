package value

import "fmt"

// ObjType discriminates the concrete kind behind the Obj interface.
type ObjType uint8

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeNative
)

// Obj is implemented by every heap-allocated value. Every Obj is created
// through a Heap, which chains it into the intrusive all-objects list
// used for bulk teardown.
type Obj interface {
	Type() ObjType
	String() string

	next() Obj
	setNext(Obj)
}

// objHeader supplies the intrusive-list link shared by every Obj
// implementation.
type objHeader struct {
	nextObj Obj
}

func (h *objHeader) next() Obj       { return h.nextObj }
func (h *objHeader) setNext(o Obj)   { h.nextObj = o }

// StringObj is an interned, immutable string. Two StringObj values with
// equal Chars are always the same pointer (see Heap.InternString), so
// pointer identity is content equality.
type StringObj struct {
	objHeader
	Chars string
	Hash  uint32
}

func (s *StringObj) Type() ObjType  { return ObjTypeString }
func (s *StringObj) String() string { return s.Chars }

// hashFNV1a computes the 32-bit FNV-1a hash of s, matching the original
// implementation's constants (offset basis 2166136261, prime 16777619).
func hashFNV1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// FunctionObj is a compiled function: its arity, how many upvalues its
// closures must capture, and the chunk of bytecode implementing its body.
// Name is nil for the implicit top-level script function.
type FunctionObj struct {
	objHeader
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *StringObj
}

func (f *FunctionObj) Type() ObjType { return ObjTypeFunction }
func (f *FunctionObj) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// ClosureObj pairs a FunctionObj with the upvalues it captured at
// creation time. len(Upvalues) always equals Function.UpvalueCount.
type ClosureObj struct {
	objHeader
	Function *FunctionObj
	Upvalues []*UpvalueObj
}

func (c *ClosureObj) Type() ObjType  { return ObjTypeClosure }
func (c *ClosureObj) String() string { return c.Function.String() }

// UpvalueObj is either open — Location points into a live VM stack slot —
// or closed, in which case Location points at Closed, a value the upvalue
// itself owns. NextOpen links open upvalues into the VM's per-instance
// open-upvalues list, ordered by strictly decreasing StackSlot; both
// NextOpen and StackSlot are meaningless once the upvalue is closed. Go
// pointers can't be ordered the way clox orders raw stack addresses, so
// the VM tracks order via this explicit slot index instead.
type UpvalueObj struct {
	objHeader
	Location  *Value
	Closed    Value
	NextOpen  *UpvalueObj
	StackSlot int
}

func (u *UpvalueObj) Type() ObjType  { return ObjTypeUpvalue }
func (u *UpvalueObj) String() string { return "upvalue" }

// Close hoists the captured stack slot into the upvalue's own storage.
func (u *UpvalueObj) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// NativeFn is a foreign function's implementation: given its arguments, it
// returns a Value or an error describing why it could not produce one.
type NativeFn func(args []Value) (Value, error)

// NativeObj wraps a Go function so it can be called like any other Nilan
// callable.
type NativeObj struct {
	objHeader
	Name string
	Fn   NativeFn
}

func (n *NativeObj) Type() ObjType  { return ObjTypeNative }
func (n *NativeObj) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }
