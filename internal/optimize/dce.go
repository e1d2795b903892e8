package optimize

import "github.com/tl-lang/tlc/internal/ir"

// eliminateDeadCode drops instructions whose destination temporary is
// never subsequently read and that have no side effect. Variables are
// deliberately never removed this way (they may be observed by inline
// assembly or simply kept live for debuggability); only temporaries,
// which are always compiler-introduced, are candidates.
func eliminateDeadCode(fn *ir.Function) bool {
	used := map[int]bool{}
	mark := func(o ir.Operand) {
		// The zero Operand doubles as the "absent operand" sentinel (a
		// bare `return;` leaves Src1 unset); its Kind is OpTemp with
		// Temp 0, which must not be confused with a genuine use of t0.
		if o == (ir.Operand{}) {
			return
		}
		if o.Kind == ir.OpTemp {
			used[o.Temp] = true
		}
	}
	for _, instr := range fn.Instrs {
		mark(instr.Src1)
		mark(instr.Src2)
		for _, a := range instr.Args {
			mark(a)
		}
	}

	out := fn.Instrs[:0]
	changed := false
	for _, instr := range fn.Instrs {
		if isDeadTempAssignment(instr, used) {
			changed = true
			continue
		}
		out = append(out, instr)
	}
	fn.Instrs = out
	return changed
}

// hasSideEffect reports whether an instruction must be kept regardless of
// whether its result is read (control flow, calls, I/O, stores).
func hasSideEffect(op ir.Op) bool {
	switch op {
	case ir.Call, ir.Print, ir.Return, ir.Jump, ir.JumpIf, ir.JumpIfFalse,
		ir.OpLabelMark, ir.ArrayStore, ir.BoundsCheck, ir.OpParam,
		ir.VarDecl, ir.ArrayDecl, ir.ArrayInit, ir.InlineAsm:
		return true
	default:
		return false
	}
}

func isDeadTempAssignment(instr ir.Instruction, used map[int]bool) bool {
	if hasSideEffect(instr.Op) {
		return false
	}
	if instr.Dst.Kind != ir.OpTemp {
		return false
	}
	return !used[instr.Dst.Temp]
}
