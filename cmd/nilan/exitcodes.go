package main

import "github.com/google/subcommands"

// Exit codes follow the sysexits.h convention the original implementation
// used: success, a data error (bad source), and a software error (a
// failure while running otherwise well-formed bytecode), plus I/O errors
// for anything subcommands.ExitStatus has no code of its own for.
const (
	exitSuccess      subcommands.ExitStatus = 0
	exitCompileError subcommands.ExitStatus = 65
	exitRuntimeError subcommands.ExitStatus = 70
	exitIOError      subcommands.ExitStatus = 74
)
