package parser_test

import (
	"testing"

	"github.com/tl-lang/tlc/internal/ast"
	"github.com/tl-lang/tlc/internal/diag"
	"github.com/tl-lang/tlc/internal/lexer"
	"github.com/tl-lang/tlc/internal/parser"
)

func parseProgram(t *testing.T, src string) (*ast.Program, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink(false)
	lx := lexer.New("t.tl", src, sink)
	p := parser.New("t.tl", lx, sink)
	return p.Parse(), sink
}

func TestParseSimpleFunction(t *testing.T) {
	prog, sink := parseProgram(t, `
		func add(int a, int b) -> int {
			return a + b;
		}
	`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("expected 1 statement in body, got %d", len(fn.Body.Stmts))
	}
	ret, ok := fn.Body.Stmts[0].(*ast.Return)
	if !ok {
		t.Fatalf("expected a Return statement, got %T", fn.Body.Stmts[0])
	}
	bin, ok := ret.Value.(*ast.BinOp)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected a '+' BinOp return value, got %+v", ret.Value)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	prog, sink := parseProgram(t, `
		func f() -> int {
			return 1 + 2 * 3 == 7 && true;
		}
	`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	ret := prog.Functions[0].Body.Stmts[0].(*ast.Return)
	top, ok := ret.Value.(*ast.BinOp)
	if !ok || top.Op != "&&" {
		t.Fatalf("expected top-level '&&', got %+v", ret.Value)
	}
	eq, ok := top.Left.(*ast.BinOp)
	if !ok || eq.Op != "==" {
		t.Fatalf("expected '==' under '&&', got %+v", top.Left)
	}
	mulAdd, ok := eq.Left.(*ast.BinOp)
	if !ok || mulAdd.Op != "+" {
		t.Fatalf("expected '+' above '*', got %+v", eq.Left)
	}
	mul, ok := mulAdd.Right.(*ast.BinOp)
	if !ok || mul.Op != "*" {
		t.Fatalf("expected '*' to bind tighter than '+', got %+v", mulAdd.Right)
	}
}

func TestIfElseAndWhile(t *testing.T) {
	prog, sink := parseProgram(t, `
		func f(int n) -> void {
			while (n > 0) {
				if (n == 1) {
					break;
				} else {
					n = n - 1;
				}
			}
		}
	`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	body := prog.Functions[0].Body
	wh, ok := body.Stmts[0].(*ast.While)
	if !ok {
		t.Fatalf("expected While, got %T", body.Stmts[0])
	}
	inner := wh.Body.(*ast.Block)
	ifs, ok := inner.Stmts[0].(*ast.If)
	if !ok || ifs.Else == nil {
		t.Fatalf("expected If/Else, got %+v", inner.Stmts[0])
	}
}

func TestArrayDeclAndIndex(t *testing.T) {
	prog, sink := parseProgram(t, `
		func f() -> int {
			let xs: int[3] = {1, 2, 3};
			return xs[0];
		}
	`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	decl, ok := prog.Functions[0].Body.Stmts[0].(*ast.ArrayDecl)
	if !ok || decl.Size != 3 || len(decl.Init) != 3 {
		t.Fatalf("unexpected array decl: %+v", decl)
	}
	ret := prog.Functions[0].Body.Stmts[1].(*ast.Return)
	idx, ok := ret.Value.(*ast.Index)
	if !ok {
		t.Fatalf("expected Index, got %+v", ret.Value)
	}
	if _, ok := idx.Target.(*ast.VarRef); !ok {
		t.Fatalf("expected VarRef target, got %+v", idx.Target)
	}
}

func TestExternFFIBlock(t *testing.T) {
	prog, sink := parseProgram(t, `
		extern from "libm.so" {
			double sqrt(double x);
		}
	`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if len(prog.FFI) != 1 || prog.FFI[0].Name != "sqrt" || prog.FFI[0].Library != "libm.so" {
		t.Fatalf("unexpected FFI decl: %+v", prog.FFI)
	}
}

func TestSyntaxErrorRecoversForNextFunction(t *testing.T) {
	prog, sink := parseProgram(t, `
		func broken( {
		func ok() -> int { return 1; }
	`)
	if !sink.HasErrors() {
		t.Fatalf("expected a syntax error from the broken function")
	}
	found := false
	for _, fn := range prog.Functions {
		if fn.Name == "ok" {
			found = true
		}
	}
	if !found {
		t.Fatalf("parser did not recover to parse the following function: %+v", prog.Functions)
	}
}
