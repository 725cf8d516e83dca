package vm

import (
	"fmt"

	"nilan/internal/debug"
)

// traceInstruction prints the stack contents followed by the instruction
// about to execute, without consuming it, so frame.ip is unaffected.
func (vm *VM) traceInstruction(frame *callFrame) {
	fmt.Fprint(vm.stderr, " ")
	for i := 0; i < vm.stackTop; i++ {
		fmt.Fprintf(vm.stderr, "[ %s ]", vm.stack[i].String())
	}
	fmt.Fprintln(vm.stderr)
	debug.DisassembleInstruction(vm.stderr, frame.closure.Function.Chunk, frame.ip)
}
