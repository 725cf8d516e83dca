package vm

import (
	"fmt"
	"time"

	"nilan/value"
)

// defineNatives installs the natives every embedding gets for free.
func (vm *VM) defineNatives() {
	vm.DefineNative("clock", vm.clockNative)
}

// clockNative returns the number of seconds elapsed since this VM was
// created, as a float. It measures elapsed real time (time.Since), not
// the CPU time the process has consumed.
func (vm *VM) clockNative(args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Nil, fmt.Errorf("clock() takes no arguments")
	}
	return value.Number(time.Since(vm.startTime).Seconds()), nil
}

// DefineNative exposes a Go function to running programs under name. The
// embedding contract guarantees clock() is always present; callers may
// register additional natives before the first Interpret call.
func (vm *VM) DefineNative(name string, fn value.NativeFn) {
	vm.globals[name] = value.FromObj(vm.heap.NewNative(name, fn))
}
