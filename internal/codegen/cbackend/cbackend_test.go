package cbackend_test

import (
	"strings"
	"testing"

	"github.com/tl-lang/tlc/internal/codegen/cbackend"
	"github.com/tl-lang/tlc/internal/diag"
	"github.com/tl-lang/tlc/internal/ir"
	"github.com/tl-lang/tlc/internal/lexer"
	"github.com/tl-lang/tlc/internal/parser"
)

func buildProgram(t *testing.T, src string) *ir.Program {
	t.Helper()
	sink := diag.NewSink(false)
	lx := lexer.New("t.tl", src, sink)
	p := parser.New("t.tl", lx, sink)
	prog := p.Parse()
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", sink.Diagnostics())
	}
	return ir.BuildProgram(prog)
}

func TestEmitFunctionSignatureAndBody(t *testing.T) {
	out := cbackend.Emit(buildProgram(t, `func add(int a, int b) -> int { return a + b; }`))
	if !strings.Contains(out, "int64_t add(int64_t a, int64_t b)") {
		t.Fatalf("expected a matching C signature, got:\n%s", out)
	}
	if !strings.Contains(out, "t1 = a + b;\n\treturn t1;") {
		t.Fatalf("expected the addition to survive into the return statement, got:\n%s", out)
	}
}

func TestEmitPrintUsesIntFormat(t *testing.T) {
	out := cbackend.Emit(buildProgram(t, `func f() -> void { print(42); }`))
	if !strings.Contains(out, `printf("%lld\n", 42);`) {
		t.Fatalf("expected an int printf call, got:\n%s", out)
	}
}

func TestEmitStringConcatCallsRuntimeHelper(t *testing.T) {
	out := cbackend.Emit(buildProgram(t, `func f() -> string { return "a" + "b"; }`))
	if !strings.Contains(out, "__tl_concat(") {
		t.Fatalf("expected a call to __tl_concat, got:\n%s", out)
	}
	if !strings.Contains(out, "static char *__tl_concat(") {
		t.Fatalf("expected the __tl_concat helper itself to be emitted, got:\n%s", out)
	}
}

func TestEmitArrayIndexEmitsBoundsCheck(t *testing.T) {
	out := cbackend.Emit(buildProgram(t, `
		func f() -> int {
			let xs: int[3] = {1, 2, 3};
			return xs[0];
		}
	`))
	if !strings.Contains(out, "__tl_bounds_check((long)(0), 3);") {
		t.Fatalf("expected a bounds check against size 3, got:\n%s", out)
	}
}

func TestEmitFFIDeclarationPrologue(t *testing.T) {
	out := cbackend.Emit(buildProgram(t, `
		extern from "libm.so" {
			double sqrt(double x);
		}
		func f() -> double { return sqrt(2.0); }
	`))
	if !strings.Contains(out, "__tl_lib_sqrt") {
		t.Fatalf("expected an FFI prologue for sqrt, got:\n%s", out)
	}
	if !strings.Contains(out, "sqrt(2") {
		t.Fatalf("expected a call to sqrt, got:\n%s", out)
	}
}

func TestEmitStringComparisonUsesStrcmp(t *testing.T) {
	out := cbackend.Emit(buildProgram(t, `
		func f(string a, string b) -> bool { return a == b; }
	`))
	if !strings.Contains(out, "strcmp(a, b) == 0") {
		t.Fatalf("expected string equality to lower to strcmp, got:\n%s", out)
	}
}
