package asmx64_test

import (
	"strings"
	"testing"

	"github.com/tl-lang/tlc/internal/codegen/asmx64"
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

func TestEmitWritesFunctionLabelAndEpilogue(t *testing.T) {
	out := asmx64.Emit(buildProgram(t, `func add(int a, int b) -> int { return a + b; }`))
	if !strings.Contains(out, "add:\n") {
		t.Fatalf("expected a function label 'add:', got:\n%s", out)
	}
	if !strings.Contains(out, "add_epilogue:") {
		t.Fatalf("expected an epilogue label, got:\n%s", out)
	}
	if !strings.Contains(out, "global main") {
		t.Fatalf("expected 'main' to be declared global, got:\n%s", out)
	}
}

func TestEmitStringConcatCallsAndDefinesRuntimeHelper(t *testing.T) {
	out := asmx64.Emit(buildProgram(t, `func f() -> string { return "a" + "b"; }`))
	if !strings.Contains(out, "call __tl_concat") {
		t.Fatalf("expected a call to __tl_concat, got:\n%s", out)
	}
	if !strings.Contains(out, "__tl_concat:\n") {
		t.Fatalf("expected __tl_concat's own label to be emitted so the call resolves, got:\n%s", out)
	}
	if !strings.Contains(out, "call malloc") {
		t.Fatalf("expected __tl_concat to allocate its result buffer with malloc, got:\n%s", out)
	}
}

func TestEmitArrayIndexEmitsBoundsCheckBranch(t *testing.T) {
	out := asmx64.Emit(buildProgram(t, `
		func f() -> int {
			let xs: int[3] = {1, 2, 3};
			return xs[0];
		}
	`))
	if !strings.Contains(out, "_bounds_fail:") {
		t.Fatalf("expected a bounds-fail label, got:\n%s", out)
	}
	if !strings.Contains(out, "_boundsok_") {
		t.Fatalf("expected a bounds-ok skip label, got:\n%s", out)
	}
}

func TestEmitStringEqualityUsesStrcmp(t *testing.T) {
	out := asmx64.Emit(buildProgram(t, `func f(string a, string b) -> bool { return a == b; }`))
	if !strings.Contains(out, "call strcmp") {
		t.Fatalf("expected string equality to call strcmp, got:\n%s", out)
	}
}

func TestEmitDeclaresStringLiteralInDataSection(t *testing.T) {
	out := asmx64.Emit(buildProgram(t, `func f() -> void { print("hello"); }`))
	if !strings.Contains(out, "section .data") {
		t.Fatalf("expected a .data section, got:\n%s", out)
	}
	if !strings.Contains(out, `"hello"`) {
		t.Fatalf("expected the string literal to be pooled in .data, got:\n%s", out)
	}
}
