package compiler

// Opcode is the first byte of every instruction the compiler emits and the
// VM's interpreter loop switches on. Operand widths are fixed per opcode,
// never self-describing, so the VM always knows exactly how many
// following bytes to read.
type Opcode byte

const (
	OP_CONSTANT Opcode = iota
	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_GET_GLOBAL
	OP_DEFINE_GLOBAL
	OP_SET_GLOBAL
	OP_GET_UPVALUE
	OP_SET_UPVALUE
	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE
	OP_PRINT
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP
	OP_CALL
	OP_CLOSURE
	OP_CLOSE_UPVALUE
	OP_RETURN
)

// Names gives the disassembler a name for each opcode without requiring it
// to depend on anything beyond this table.
var Names = map[Opcode]string{
	OP_CONSTANT:      "OP_CONSTANT",
	OP_NIL:           "OP_NIL",
	OP_TRUE:          "OP_TRUE",
	OP_FALSE:         "OP_FALSE",
	OP_POP:           "OP_POP",
	OP_GET_LOCAL:     "OP_GET_LOCAL",
	OP_SET_LOCAL:     "OP_SET_LOCAL",
	OP_GET_GLOBAL:    "OP_GET_GLOBAL",
	OP_DEFINE_GLOBAL: "OP_DEFINE_GLOBAL",
	OP_SET_GLOBAL:    "OP_SET_GLOBAL",
	OP_GET_UPVALUE:   "OP_GET_UPVALUE",
	OP_SET_UPVALUE:   "OP_SET_UPVALUE",
	OP_EQUAL:         "OP_EQUAL",
	OP_GREATER:       "OP_GREATER",
	OP_LESS:          "OP_LESS",
	OP_ADD:           "OP_ADD",
	OP_SUBTRACT:      "OP_SUBTRACT",
	OP_MULTIPLY:      "OP_MULTIPLY",
	OP_DIVIDE:        "OP_DIVIDE",
	OP_NOT:           "OP_NOT",
	OP_NEGATE:        "OP_NEGATE",
	OP_PRINT:         "OP_PRINT",
	OP_JUMP:          "OP_JUMP",
	OP_JUMP_IF_FALSE: "OP_JUMP_IF_FALSE",
	OP_LOOP:          "OP_LOOP",
	OP_CALL:          "OP_CALL",
	OP_CLOSURE:       "OP_CLOSURE",
	OP_CLOSE_UPVALUE: "OP_CLOSE_UPVALUE",
	OP_RETURN:        "OP_RETURN",
}

func (op Opcode) String() string {
	if n, ok := Names[op]; ok {
		return n
	}
	return "OP_UNKNOWN"
}
