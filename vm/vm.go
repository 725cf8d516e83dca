// Package vm implements Nilan's stack-based bytecode interpreter: the
// value stack, call frames, globals table, and the upvalue machinery that
// backs closures. It compiles source with the compiler package and then
// walks the resulting chunk directly — there is no separate "load"
// step.
package vm

import (
	"fmt"
	"io"
	"os"
	"time"

	"nilan/compiler"
	"nilan/internal/config"
	"nilan/value"
)

// InterpretResult reports how a call to Interpret concluded, mirroring
// the embedding contract's three outcomes.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM is one independent interpreter instance. Nothing about it is global:
// two VMs can run concurrently in the same process with entirely separate
// heaps, globals, and stacks. Stdout (for `print`) and stderr (for
// diagnostics) are both configurable so embedders can capture output
// instead of inheriting the process's own.
type VM struct {
	heap *value.Heap

	stack    [config.MaxStackSlots]value.Value
	stackTop int

	frames []callFrame

	globals map[string]value.Value

	openUpvalues *value.UpvalueObj

	stdout io.Writer
	stderr io.Writer

	// startTime anchors the clock() native: it reports elapsed seconds
	// since this VM was created, not the time of day.
	startTime time.Time

	// Trace, when set, causes every instruction to be disassembled to
	// stderr before it executes. Off by default; the CLI's run command
	// exposes it behind a flag.
	Trace bool
}

// New returns a freshly initialized VM (clox's initVM) with clock()
// already defined.
func New() *VM {
	vm := &VM{
		heap:      value.NewHeap(),
		frames:    make([]callFrame, 0, config.MaxCallFrames),
		globals:   make(map[string]value.Value),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		startTime: time.Now(),
	}
	vm.defineNatives()
	return vm
}

// SetOutput redirects `print` output.
func (vm *VM) SetOutput(w io.Writer) { vm.stdout = w }

// SetErrorOutput redirects compile- and run-time diagnostics.
func (vm *VM) SetErrorOutput(w io.Writer) { vm.stderr = w }

// Interpret compiles and runs source against this VM's existing globals
// and heap, so top-level state persists across repeated calls — the
// behavior a REPL depends on.
func (vm *VM) Interpret(source string) InterpretResult {
	fn, errs := compiler.Compile(source, vm.heap)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(vm.stderr, e.Error())
		}
		return InterpretCompileError
	}

	closure := vm.heap.NewClosure(fn)
	vm.push(value.FromObj(closure))
	if err := vm.call(closure, 0); err != nil {
		return InterpretRuntimeError
	}

	if err := vm.run(); err != nil {
		return InterpretRuntimeError
	}
	return InterpretOK
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil
}

// run is the interpreter loop: clox's run(), one opcode at a time against
// the frame currently on top of the call stack.
func (vm *VM) run() error {
	frame := &vm.frames[len(vm.frames)-1]

	for {
		if vm.Trace {
			vm.traceInstruction(frame)
		}

		instruction := compiler.Opcode(vm.readByte(frame))
		switch instruction {
		case compiler.OP_CONSTANT:
			vm.push(vm.readConstant(frame))

		case compiler.OP_NIL:
			vm.push(value.Nil)
		case compiler.OP_TRUE:
			vm.push(value.Bool(true))
		case compiler.OP_FALSE:
			vm.push(value.Bool(false))

		case compiler.OP_POP:
			vm.pop()

		case compiler.OP_GET_LOCAL:
			slot := vm.readByte(frame)
			vm.push(vm.stack[frame.slotsBase+int(slot)])
		case compiler.OP_SET_LOCAL:
			slot := vm.readByte(frame)
			vm.stack[frame.slotsBase+int(slot)] = vm.peek(0)

		case compiler.OP_GET_GLOBAL:
			name := vm.readString(frame)
			v, ok := vm.globals[name.Chars]
			if !ok {
				return vm.runtimeError(frame, "Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case compiler.OP_DEFINE_GLOBAL:
			name := vm.readString(frame)
			vm.globals[name.Chars] = vm.peek(0)
			vm.pop()
		case compiler.OP_SET_GLOBAL:
			name := vm.readString(frame)
			if _, ok := vm.globals[name.Chars]; !ok {
				return vm.runtimeError(frame, "Undefined variable '%s'.", name.Chars)
			}
			vm.globals[name.Chars] = vm.peek(0)

		case compiler.OP_GET_UPVALUE:
			slot := vm.readByte(frame)
			vm.push(*frame.closure.Upvalues[slot].Location)
		case compiler.OP_SET_UPVALUE:
			slot := vm.readByte(frame)
			*frame.closure.Upvalues[slot].Location = vm.peek(0)

		case compiler.OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case compiler.OP_GREATER:
			if err := vm.binaryCompare(frame, func(a, b float64) bool { return a > b }); err != nil {
				return err
			}
		case compiler.OP_LESS:
			if err := vm.binaryCompare(frame, func(a, b float64) bool { return a < b }); err != nil {
				return err
			}

		case compiler.OP_ADD:
			if err := vm.add(frame); err != nil {
				return err
			}
		case compiler.OP_SUBTRACT:
			if err := vm.binaryArith(frame, func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}
		case compiler.OP_MULTIPLY:
			if err := vm.binaryArith(frame, func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}
		case compiler.OP_DIVIDE:
			if err := vm.binaryArith(frame, func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}

		case compiler.OP_NOT:
			vm.push(value.Bool(vm.pop().IsFalsey()))
		case compiler.OP_NEGATE:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError(frame, "Operand must be a number.")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case compiler.OP_PRINT:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case compiler.OP_JUMP:
			offset := vm.readShort(frame)
			frame.ip += int(offset)
		case compiler.OP_JUMP_IF_FALSE:
			offset := vm.readShort(frame)
			if vm.peek(0).IsFalsey() {
				frame.ip += int(offset)
			}
		case compiler.OP_LOOP:
			offset := vm.readShort(frame)
			frame.ip -= int(offset)

		case compiler.OP_CALL:
			argCount := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = &vm.frames[len(vm.frames)-1]

		case compiler.OP_CLOSURE:
			fnVal := vm.readConstant(frame)
			fn := fnVal.AsObj().(*value.FunctionObj)
			closure := vm.heap.NewClosure(fn)
			vm.push(value.FromObj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame)
				index := vm.readByte(frame)
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slotsBase + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case compiler.OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case compiler.OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(frame.slotsBase)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = frame.slotsBase
			vm.push(result)
			frame = &vm.frames[len(vm.frames)-1]

		default:
			return vm.internalError("unknown opcode %d: bytecode the compiler should never have emitted", instruction)
		}
	}
}

func (vm *VM) readByte(frame *callFrame) byte {
	b := frame.closure.Function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *callFrame) uint16 {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(frame *callFrame) value.Value {
	return frame.closure.Function.Chunk.Constants[vm.readByte(frame)]
}

func (vm *VM) readString(frame *callFrame) *value.StringObj {
	return vm.readConstant(frame).AsObj().(*value.StringObj)
}

func (vm *VM) binaryArith(frame *callFrame, op func(a, b float64) float64) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(frame, "Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(value.Number(op(a, b)))
	return nil
}

func (vm *VM) binaryCompare(frame *callFrame, op func(a, b float64) bool) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(frame, "Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(value.Bool(op(a, b)))
	return nil
}

func (vm *VM) add(frame *callFrame) error {
	switch {
	case vm.peek(0).IsString() && vm.peek(1).IsString():
		b := vm.pop().AsString()
		a := vm.pop().AsString()
		vm.push(value.FromObj(vm.heap.InternString(a + b)))
		return nil
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b := vm.pop().AsNumber()
		a := vm.pop().AsNumber()
		vm.push(value.Number(a + b))
		return nil
	default:
		return vm.runtimeError(frame, "Operands must be two numbers or two strings.")
	}
}

func (vm *VM) call(closure *value.ClosureObj, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeErrorNoFrame("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if len(vm.frames) == config.MaxCallFrames {
		return vm.runtimeErrorNoFrame("Stack overflow.")
	}
	vm.frames = append(vm.frames, callFrame{
		closure:   closure,
		slotsBase: vm.stackTop - argCount - 1,
	})
	return nil
}

func (vm *VM) callValue(callee value.Value, argCount int) error {
	if callee.IsObj() {
		switch obj := callee.AsObj().(type) {
		case *value.ClosureObj:
			return vm.call(obj, argCount)
		case *value.NativeObj:
			args := make([]value.Value, argCount)
			copy(args, vm.stack[vm.stackTop-argCount:vm.stackTop])
			result, err := obj.Fn(args)
			if err != nil {
				return vm.runtimeErrorNoFrame("%s", err.Error())
			}
			vm.stackTop -= argCount + 1
			vm.push(result)
			return nil
		}
	}
	return vm.runtimeErrorNoFrame("Can only call functions and classes.")
}

// captureUpvalue returns the open upvalue for the given absolute stack
// slot, reusing one already open for that slot so two closures that
// capture the same local share the same UpvalueObj.
func (vm *VM) captureUpvalue(slot int) *value.UpvalueObj {
	var prev *value.UpvalueObj
	upvalue := vm.openUpvalues
	for upvalue != nil && upvalue.StackSlot > slot {
		prev = upvalue
		upvalue = upvalue.NextOpen
	}
	if upvalue != nil && upvalue.StackSlot == slot {
		return upvalue
	}

	created := vm.heap.NewUpvalue(&vm.stack[slot])
	created.StackSlot = slot
	created.NextOpen = upvalue
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues hoists every open upvalue at or above fromSlot into its
// own storage, severing it from the stack slot it used to alias. Called
// when a scope holding captured locals ends, and when a function returns.
func (vm *VM) closeUpvalues(fromSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.StackSlot >= fromSlot {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
	}
}

// runtimeError reports a failure of the instruction just executed. frame.ip
// is left past that instruction, so the trace's ip-1 lookup names its line.
func (vm *VM) runtimeError(frame *callFrame, format string, args ...interface{}) error {
	return vm.reportRuntimeError(format, args...)
}

// runtimeErrorNoFrame is used from call-setup paths where there may be no
// meaningfully "current" instruction to rewind (e.g. an arity mismatch
// discovered before the callee has a frame at all).
func (vm *VM) runtimeErrorNoFrame(format string, args ...interface{}) error {
	return vm.reportRuntimeError(format, args...)
}

// internalError marks bytecode the compiler should never have produced —
// an invariant violated by the VM's own dispatch, not a runtime failure
// in an otherwise well-formed program. It still resets the stack so the
// VM is left usable for a REPL's next line.
func (vm *VM) internalError(format string, args ...interface{}) error {
	err := internalError{Message: fmt.Sprintf(format, args...)}
	fmt.Fprintln(vm.stderr, err.Error())
	vm.resetStack()
	return err
}

func (vm *VM) reportRuntimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	trace := make([]string, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := &vm.frames[i]
		fn := f.closure.Function
		line := 0
		if f.ip-1 >= 0 && f.ip-1 < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[f.ip-1]
		}
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}

	err := RuntimeError{Message: msg, Trace: trace}
	fmt.Fprintln(vm.stderr, err.Error())
	vm.resetStack()
	return err
}
