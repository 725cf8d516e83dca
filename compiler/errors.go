package compiler

import "fmt"

// SyntaxError is a compile-time diagnostic tied to a source location,
// reported the moment the parser notices the problem.
type SyntaxError struct {
	Line    int
	Lexeme  string
	AtEnd   bool
	Message string
}

func (e SyntaxError) Error() string {
	if e.AtEnd {
		return fmt.Sprintf("💥 [line %d] Error at end: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("💥 [line %d] Error at '%s': %s", e.Line, e.Lexeme, e.Message)
}

// DeveloperError marks a limit of the compiler's bytecode format being
// exceeded (the constant-pool cap), as opposed to a malformed token
// sequence. It carries no source location.
type DeveloperError struct {
	Message string
}

func (e DeveloperError) Error() string {
	return fmt.Sprintf("🤖 DeveloperError: %s", e.Message)
}
