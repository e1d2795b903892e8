package ir_test

import (
	"testing"

	"github.com/tl-lang/tlc/internal/diag"
	"github.com/tl-lang/tlc/internal/ir"
	"github.com/tl-lang/tlc/internal/lexer"
	"github.com/tl-lang/tlc/internal/parser"
)

func buildFirstFunc(t *testing.T, src string) *ir.Function {
	t.Helper()
	sink := diag.NewSink(false)
	lx := lexer.New("t.tl", src, sink)
	p := parser.New("t.tl", lx, sink)
	prog := p.Parse()
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", sink.Diagnostics())
	}
	irProg := ir.BuildProgram(prog)
	if len(irProg.Functions) == 0 {
		t.Fatalf("no functions lowered")
	}
	return irProg.Functions[0]
}

func opsOf(fn *ir.Function) []ir.Op {
	out := make([]ir.Op, len(fn.Instrs))
	for i, instr := range fn.Instrs {
		out[i] = instr.Op
	}
	return out
}

func containsOp(fn *ir.Function, op ir.Op) bool {
	for _, instr := range fn.Instrs {
		if instr.Op == op {
			return true
		}
	}
	return false
}

func TestLowerArithmeticEmitsAddBeforeReturn(t *testing.T) {
	fn := buildFirstFunc(t, `func f(int a, int b) -> int { return a + b; }`)
	ops := opsOf(fn)
	if len(ops) < 2 || ops[len(ops)-2] != ir.Add || ops[len(ops)-1] != ir.Return {
		t.Fatalf("expected [..., Add, Return], got %v", ops)
	}
}

func TestShortCircuitAndEmitsConditionalJump(t *testing.T) {
	fn := buildFirstFunc(t, `func f(bool a, bool b) -> bool { return a && b; }`)
	if !containsOp(fn, ir.JumpIfFalse) {
		t.Fatalf("expected a JumpIfFalse for short-circuit '&&', got %v", opsOf(fn))
	}
	if !containsOp(fn, ir.OpLabelMark) {
		t.Fatalf("expected a label marking the short-circuit join point, got %v", opsOf(fn))
	}
}

func TestShortCircuitOrEmitsJumpIf(t *testing.T) {
	fn := buildFirstFunc(t, `func f(bool a, bool b) -> bool { return a || b; }`)
	if !containsOp(fn, ir.JumpIf) {
		t.Fatalf("expected a JumpIf for short-circuit '||', got %v", opsOf(fn))
	}
}

func TestStringConcatenationLowersToConcatOpcode(t *testing.T) {
	fn := buildFirstFunc(t, `func f() -> string { return "a" + "b"; }`)
	if !containsOp(fn, ir.Concat) {
		t.Fatalf("expected a Concat instruction, got %v", opsOf(fn))
	}
	if containsOp(fn, ir.Add) {
		t.Fatalf("string '+' must not lower to Add, got %v", opsOf(fn))
	}
}

func TestIndexingEmitsBoundsCheckBeforeArrayLoad(t *testing.T) {
	fn := buildFirstFunc(t, `
		func f() -> int {
			let xs: int[3] = {1, 2, 3};
			return xs[0];
		}
	`)
	boundsIdx, loadIdx := -1, -1
	for i, instr := range fn.Instrs {
		if instr.Op == ir.BoundsCheck && boundsIdx == -1 {
			boundsIdx = i
		}
		if instr.Op == ir.ArrayLoad {
			loadIdx = i
		}
	}
	if boundsIdx == -1 || loadIdx == -1 || boundsIdx >= loadIdx {
		t.Fatalf("expected BoundsCheck before ArrayLoad, got %v", opsOf(fn))
	}
}

func TestWhileBreakJumpsToLoopEndLabel(t *testing.T) {
	fn := buildFirstFunc(t, `
		func f(int n) -> void {
			while (n > 0) {
				break;
			}
		}
	`)
	var breakJumpLabel, endLabel string
	for _, instr := range fn.Instrs {
		if instr.Op == ir.JumpIfFalse && endLabel == "" {
			// the while loop's condition-false branch always targets the
			// loop's end label
			endLabel = instr.Label
		}
		if instr.Op == ir.Jump && breakJumpLabel == "" {
			// first unconditional Jump inside the loop body is the 'break'
			breakJumpLabel = instr.Label
		}
	}
	if breakJumpLabel == "" || endLabel == "" || breakJumpLabel != endLabel {
		t.Fatalf("expected break's Jump target (%q) to match the loop's end label (%q)", breakJumpLabel, endLabel)
	}
}

func TestWhileContinueJumpsToLoopStartLabel(t *testing.T) {
	fn := buildFirstFunc(t, `
		func f(int n) -> void {
			while (n > 0) {
				continue;
			}
		}
	`)
	startLabel := ""
	for _, instr := range fn.Instrs {
		if instr.Op == ir.OpLabelMark {
			startLabel = instr.Label
			break
		}
	}
	continueJumped := false
	for _, instr := range fn.Instrs[1:] {
		if instr.Op == ir.Jump && instr.Label == startLabel {
			continueJumped = true
		}
	}
	if startLabel == "" || !continueJumped {
		t.Fatalf("expected 'continue' to jump back to the loop's start label %q, got %v", startLabel, opsOf(fn))
	}
}

func TestImplicitVoidReturnInsertedWhenBodyFallsOff(t *testing.T) {
	fn := buildFirstFunc(t, `
		func f() -> void {
			let x: int = 1;
		}
	`)
	last := fn.Instrs[len(fn.Instrs)-1]
	if last.Op != ir.Return {
		t.Fatalf("expected an implicit trailing Return, got final instruction %v", last.Op)
	}
	if last.Src1 != (ir.Operand{}) {
		t.Fatalf("implicit void return must carry no value, got %v", last.Src1)
	}
}

func TestExplicitReturnSuppressesImplicitTrailingReturn(t *testing.T) {
	fn := buildFirstFunc(t, `
		func f() -> void {
			return;
		}
	`)
	count := 0
	for _, instr := range fn.Instrs {
		if instr.Op == ir.Return {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one Return instruction, got %d", count)
	}
}
