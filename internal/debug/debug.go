// Package debug disassembles compiled chunks into human-readable text,
// the same listing format a trace flag prints one instruction at a time
// and the CLI's disassemble subcommand prints for a whole chunk.
package debug

import (
	"fmt"
	"io"

	"nilan/compiler"
	"nilan/value"
)

// DisassembleChunk prints every instruction in chunk, labeled name, to w.
func DisassembleChunk(w io.Writer, chunk *value.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = DisassembleInstruction(w, chunk, offset)
	}
}

// DisassembleInstruction prints the instruction at offset and returns the
// offset of the next one. Operand widths are fixed per opcode, so this
// never needs to guess how many bytes an instruction occupies.
func DisassembleInstruction(w io.Writer, chunk *value.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.Lines[offset])
	}

	op := compiler.Opcode(chunk.Code[offset])
	switch op {
	case compiler.OP_CONSTANT:
		return constantInstruction(w, op, chunk, offset)
	case compiler.OP_GET_LOCAL, compiler.OP_SET_LOCAL,
		compiler.OP_GET_UPVALUE, compiler.OP_SET_UPVALUE,
		compiler.OP_CALL:
		return byteInstruction(w, op, chunk, offset)
	case compiler.OP_GET_GLOBAL, compiler.OP_DEFINE_GLOBAL, compiler.OP_SET_GLOBAL:
		return constantInstruction(w, op, chunk, offset)
	case compiler.OP_JUMP, compiler.OP_JUMP_IF_FALSE:
		return jumpInstruction(w, op, 1, chunk, offset)
	case compiler.OP_LOOP:
		return jumpInstruction(w, op, -1, chunk, offset)
	case compiler.OP_CLOSURE:
		return closureInstruction(w, chunk, offset)
	default:
		return simpleInstruction(w, op, offset)
	}
}

func simpleInstruction(w io.Writer, op compiler.Opcode, offset int) int {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1
}

func byteInstruction(w io.Writer, op compiler.Opcode, chunk *value.Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func constantInstruction(w io.Writer, op compiler.Opcode, chunk *value.Chunk, offset int) int {
	idx := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, chunk.Constants[idx].String())
	return offset + 2
}

func jumpInstruction(w io.Writer, op compiler.Opcode, sign int, chunk *value.Chunk, offset int) int {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	target := offset + 3 + sign*jump
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, target)
	return offset + 3
}

func closureInstruction(w io.Writer, chunk *value.Chunk, offset int) int {
	idx := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", compiler.OP_CLOSURE, idx, chunk.Constants[idx].String())
	offset += 2

	if fn, ok := chunk.Constants[idx].AsObj().(*value.FunctionObj); ok {
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := chunk.Code[offset]
			index := chunk.Code[offset+1]
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			fmt.Fprintf(w, "%04d      |                     %s %d\n", offset, kind, index)
			offset += 2
		}
	}
	return offset
}
