package vm

import "nilan/value"

// callFrame is one activation record: the closure being executed, its
// instruction pointer into that closure's chunk, and the base index into
// the VM's value stack where its parameters and locals begin (slot 0 of
// every frame holds the closure itself, matching the calling convention
// the compiler assumes when it numbers local slots).
type callFrame struct {
	closure   *value.ClosureObj
	ip        int
	slotsBase int
}
