package vm

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, source string) (string, string, InterpretResult) {
	t.Helper()
	var out, errOut bytes.Buffer
	machine := New()
	machine.SetOutput(&out)
	machine.SetErrorOutput(&errOut)
	result := machine.Interpret(source)
	return out.String(), errOut.String(), result
}

func TestInterpretArithmeticPrecedence(t *testing.T) {
	out, errOut, result := run(t, "print 1 + 2 * 3;")
	if result != InterpretOK {
		t.Fatalf("result = %v, stderr = %s", result, errOut)
	}
	if strings.TrimSpace(out) != "7" {
		t.Fatalf("output = %q, want 7", out)
	}
}

func TestInterpretStringConcatenation(t *testing.T) {
	out, _, result := run(t, `print "foo" + "bar";`)
	if result != InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if strings.TrimSpace(out) != "foobar" {
		t.Fatalf("output = %q, want foobar", out)
	}
}

func TestInterpretGlobalVariables(t *testing.T) {
	out, _, result := run(t, "var x = 10; x = x + 5; print x;")
	if result != InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if strings.TrimSpace(out) != "15" {
		t.Fatalf("output = %q, want 15", out)
	}
}

func TestInterpretLocalScopingShadowsOuter(t *testing.T) {
	out, _, result := run(t, `
		var x = "outer";
		{
			var x = "inner";
			print x;
		}
		print x;
	`)
	if result != InterpretOK {
		t.Fatalf("result = %v", result)
	}
	want := "inner\nouter\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestInterpretClosureCapturesAndMutatesUpvalue(t *testing.T) {
	out, errOut, result := run(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`)
	if result != InterpretOK {
		t.Fatalf("result = %v, stderr = %s", result, errOut)
	}
	want := "1\n2\n3\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestInterpretRecursiveFunction(t *testing.T) {
	out, errOut, result := run(t, `
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		print fib(10);
	`)
	if result != InterpretOK {
		t.Fatalf("result = %v, stderr = %s", result, errOut)
	}
	if strings.TrimSpace(out) != "55" {
		t.Fatalf("output = %q, want 55", out)
	}
}

func TestInterpretForLoopAccumulates(t *testing.T) {
	out, _, result := run(t, `
		var sum = 0;
		for (var i = 0; i < 5; i = i + 1) {
			sum = sum + i;
		}
		print sum;
	`)
	if result != InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if strings.TrimSpace(out) != "10" {
		t.Fatalf("output = %q, want 10", out)
	}
}

func TestInterpretLogicalOperatorsShortCircuit(t *testing.T) {
	out, _, result := run(t, `
		fun loud(x) { print x; return x; }
		print false and loud("never");
		print true or loud("never");
	`)
	if result != InterpretOK {
		t.Fatalf("result = %v", result)
	}
	want := "false\ntrue\n"
	if out != want {
		t.Fatalf("output = %q, want %q (loud() should never have run)", out, want)
	}
}

func TestInterpretTypeErrorOnArithmetic(t *testing.T) {
	_, errOut, result := run(t, `print 1 + "two";`)
	if result != InterpretRuntimeError {
		t.Fatalf("result = %v, want runtime error", result)
	}
	if !strings.Contains(errOut, "Operands must be two numbers or two strings.") {
		t.Fatalf("stderr = %q, missing expected message", errOut)
	}
}

func TestInterpretUndefinedVariableIsRuntimeError(t *testing.T) {
	_, errOut, result := run(t, "print missing;")
	if result != InterpretRuntimeError {
		t.Fatalf("result = %v, want runtime error", result)
	}
	if !strings.Contains(errOut, "Undefined variable 'missing'.") {
		t.Fatalf("stderr = %q, missing expected message", errOut)
	}
}

func TestInterpretWrongArgumentCountIsRuntimeError(t *testing.T) {
	_, errOut, result := run(t, `
		fun add(a, b) { return a + b; }
		add(1);
	`)
	if result != InterpretRuntimeError {
		t.Fatalf("result = %v, want runtime error", result)
	}
	if !strings.Contains(errOut, "Expected 2 arguments but got 1.") {
		t.Fatalf("stderr = %q, missing expected message", errOut)
	}
}

func TestInterpretDeepRecursionIsStackOverflow(t *testing.T) {
	_, errOut, result := run(t, `
		fun recurse() { return recurse(); }
		recurse();
	`)
	if result != InterpretRuntimeError {
		t.Fatalf("result = %v, want runtime error", result)
	}
	if !strings.Contains(errOut, "Stack overflow.") {
		t.Fatalf("stderr = %q, missing expected message", errOut)
	}
}

func TestInterpretSyntaxErrorReportsLineAndLexeme(t *testing.T) {
	_, errOut, result := run(t, "var x = ;")
	if result != InterpretCompileError {
		t.Fatalf("result = %v, want compile error", result)
	}
	if !strings.Contains(errOut, "[line 1]") {
		t.Fatalf("stderr = %q, missing line number", errOut)
	}
	if !strings.Contains(errOut, "Error at ';'") {
		t.Fatalf("stderr = %q, missing offending lexeme", errOut)
	}
}

func TestInterpretGlobalsPersistAcrossCalls(t *testing.T) {
	machine := New()
	var out bytes.Buffer
	machine.SetOutput(&out)

	if r := machine.Interpret("var x = 1;"); r != InterpretOK {
		t.Fatalf("first Interpret failed: %v", r)
	}
	if r := machine.Interpret("print x + 1;"); r != InterpretOK {
		t.Fatalf("second Interpret failed: %v", r)
	}
	if strings.TrimSpace(out.String()) != "2" {
		t.Fatalf("output = %q, want 2 (globals should persist across calls)", out.String())
	}
}

func TestInterpretFalsinessOnlyNilAndFalse(t *testing.T) {
	out, _, result := run(t, `
		print !nil;
		print !false;
		print !0;
		print !"";
	`)
	if result != InterpretOK {
		t.Fatalf("result = %v", result)
	}
	want := "true\ntrue\nfalse\nfalse\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestInterpretOrReturnsFirstTruthyOperand(t *testing.T) {
	out, _, result := run(t, `if (nil or 0) print "t"; else print "f";`)
	if result != InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if strings.TrimSpace(out) != "t" {
		t.Fatalf("output = %q, want t (0 is truthy, or should short-circuit on it)", out)
	}
}

func TestInterpretClosureReadsCapturedLocalAfterEnclosingReturns(t *testing.T) {
	out, _, result := run(t, `
		fun make() {
			var x = 10;
			fun get() { return x; }
			return get;
		}
		var g = make();
		print g();
		print g();
	`)
	if result != InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if out != "10\n10\n" {
		t.Fatalf("output = %q, want %q", out, "10\n10\n")
	}
}

func TestInterpretReadingLocalInItsOwnInitializerIsCompileError(t *testing.T) {
	_, errOut, result := run(t, "{ var a = a; }")
	if result != InterpretCompileError {
		t.Fatalf("result = %v, want compile error", result)
	}
	if !strings.Contains(errOut, "Can't read local variable in its own initializer") {
		t.Fatalf("stderr = %q, missing expected message", errOut)
	}
}

func TestInterpretGlobalSelfReferenceInInitializerReadsPriorValue(t *testing.T) {
	// At global scope this compiles: the name isn't declared as a local, so
	// the `a` on the right is a global read that runs before DEFINE_GLOBAL
	// rebinds the name, and here it sees the earlier definition. Globals
	// have no notion of "declared but not yet initialized". With no earlier
	// definition, the same read is an "Undefined variable" runtime error; it
	// does not yield nil.
	out, _, result := run(t, `
		var a = "outer";
		var a = a;
		print a;
	`)
	if result != InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if strings.TrimSpace(out) != "outer" {
		t.Fatalf("output = %q, want outer", out)
	}
}

func TestInterpretArityMismatchMessageMatchesExactCounts(t *testing.T) {
	_, errOut, result := run(t, `
		fun f() {}
		f(1);
	`)
	if result != InterpretRuntimeError {
		t.Fatalf("result = %v, want runtime error", result)
	}
	if !strings.Contains(errOut, "Expected 0 arguments but got 1.") {
		t.Fatalf("stderr = %q, missing expected message", errOut)
	}
}

func TestInterpretStackIsNeutralAfterSuccessfulProgram(t *testing.T) {
	machine := New()
	var out bytes.Buffer
	machine.SetOutput(&out)
	if r := machine.Interpret(`
		fun fib(n) { if (n < 2) return n; return fib(n-1) + fib(n-2); }
		var x = fib(6) + 1;
		print x;
	`); r != InterpretOK {
		t.Fatalf("Interpret failed: %v", r)
	}
	if machine.stackTop != 0 {
		t.Fatalf("stackTop = %d after a successful program, want 0", machine.stackTop)
	}
}

func TestInterpretClockNativeIsDefined(t *testing.T) {
	out, errOut, result := run(t, "print clock() > 0;")
	if result != InterpretOK {
		t.Fatalf("result = %v, stderr = %s", result, errOut)
	}
	if strings.TrimSpace(out) != "true" {
		t.Fatalf("output = %q, want true", out)
	}
}
