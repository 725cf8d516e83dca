package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"nilan/compiler"
	"nilan/internal/debug"
	"nilan/value"
)

type disassembleCmd struct{}

func (*disassembleCmd) Name() string     { return "disassemble" }
func (*disassembleCmd) Synopsis() string { return "Compile a source file and print its bytecode" }
func (*disassembleCmd) Usage() string {
	return `disassemble <path>:
  Compile a Nilan source file without running it and print the
  disassembled bytecode for the script and every function it defines.
`
}

func (*disassembleCmd) SetFlags(f *flag.FlagSet) {}

func (*disassembleCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "💥 no source file given")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to read %s: %v\n", args[0], err)
		return exitIOError
	}

	fn, errs := compiler.Compile(string(data), value.NewHeap())
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return exitCompileError
	}

	dumpFunction(fn)
	return exitSuccess
}

func dumpFunction(fn *value.FunctionObj) {
	debug.DisassembleChunk(os.Stdout, fn.Chunk, fn.String())
	for _, c := range fn.Chunk.Constants {
		if nested, ok := c.AsObj().(*value.FunctionObj); ok {
			dumpFunction(nested)
		}
	}
}
