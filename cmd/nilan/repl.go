package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"nilan/vm"
)

type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive session. State (globals and heap) persists across
  lines typed into the same session.
`
}

func (*replCmd) SetFlags(f *flag.FlagSet) {}

func (*replCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.New("> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to start the line editor: %v\n", err)
		return exitIOError
	}
	defer rl.Close()

	machine := vm.New()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				return exitSuccess
			}
			fmt.Fprintf(os.Stderr, "💥 %v\n", err)
			return exitIOError
		}
		if line == "" {
			continue
		}
		// Every line is compiled and run independently, but globals and the
		// heap survive between them, so declarations made on one line are
		// visible on the next.
		machine.Interpret(line)
	}
}
