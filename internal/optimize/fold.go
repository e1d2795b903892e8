package optimize

import (
	"github.com/tl-lang/tlc/internal/ir"
)

// foldConstants rewrites instructions whose operands are all constants
// into a single Move of the computed constant, and propagates variables
// known (from a preceding unconditional Move of a constant) to currently
// hold a constant value, into their uses. Every label forgets all known
// values, since control may reach it from more than one place.
func foldConstants(fn *ir.Function) bool {
	changed := false
	known := map[string]ir.Operand{}

	resolve := func(o ir.Operand) ir.Operand {
		if o.Kind == ir.OpVar {
			if c, ok := known[o.Name]; ok {
				return c
			}
		}
		return o
	}

	for i := range fn.Instrs {
		instr := &fn.Instrs[i]
		instr.Src1 = resolve(instr.Src1)
		instr.Src2 = resolve(instr.Src2)
		for j := range instr.Args {
			instr.Args[j] = resolve(instr.Args[j])
		}

		switch instr.Op {
		case ir.OpLabelMark:
			known = map[string]ir.Operand{}
		case ir.Move:
			if instr.Src1.IsConst() && instr.Dst.Kind == ir.OpVar {
				known[instr.Dst.Name] = instr.Src1
			} else if instr.Dst.Kind == ir.OpVar {
				delete(known, instr.Dst.Name)
			}
		case ir.VarDecl, ir.ArrayDecl, ir.ArrayStore, ir.Call:
			if instr.Dst.Kind == ir.OpVar {
				delete(known, instr.Dst.Name)
			}
		}

		if folded, ok := tryFold(*instr); ok {
			if instr.Op != ir.Move || instr.Dst != folded.Dst || instr.Src1 != folded.Src1 || instr.Src2 != folded.Src2 {
				changed = true
			}
			*instr = folded
		}
	}
	return changed
}

// tryFold evaluates an arithmetic/comparison instruction whose operands
// are both constants, returning a Move of the result.
func tryFold(instr ir.Instruction) (ir.Instruction, bool) {
	if !instr.Src1.IsConst() {
		return instr, false
	}
	isBinary := instr.Op == ir.Add || instr.Op == ir.Sub || instr.Op == ir.Mul ||
		instr.Op == ir.Div || instr.Op == ir.Mod ||
		instr.Op == ir.CmpEq || instr.Op == ir.CmpNe || instr.Op == ir.CmpLt ||
		instr.Op == ir.CmpLe || instr.Op == ir.CmpGt || instr.Op == ir.CmpGe
	isUnary := instr.Op == ir.Neg || instr.Op == ir.Not

	if isUnary {
		result, ok := evalUnary(instr.Op, instr.Src1)
		if !ok {
			return instr, false
		}
		return ir.Instruction{Op: ir.Move, Dst: instr.Dst, Src1: result}, true
	}
	if isBinary {
		if !instr.Src2.IsConst() {
			return instr, false
		}
		result, ok := evalBinary(instr.Op, instr.Src1, instr.Src2)
		if !ok {
			return instr, false
		}
		return ir.Instruction{Op: ir.Move, Dst: instr.Dst, Src1: result}, true
	}
	return instr, false
}

func evalUnary(op ir.Op, a ir.Operand) (ir.Operand, bool) {
	switch op {
	case ir.Neg:
		switch a.Kind {
		case ir.OpIntConst:
			return ir.IntConst(-a.I), true
		case ir.OpFloatConst:
			return ir.FloatConst(-a.F, a.Type), true
		}
	case ir.Not:
		if a.Kind == ir.OpBoolConst {
			return ir.BoolConst(!a.B), true
		}
		if a.Kind == ir.OpIntConst {
			return ir.BoolConst(a.I == 0), true
		}
	}
	return ir.Operand{}, false
}

func asFloat(o ir.Operand) (float64, bool) {
	switch o.Kind {
	case ir.OpIntConst:
		return float64(o.I), true
	case ir.OpFloatConst:
		return o.F, true
	default:
		return 0, false
	}
}

func evalBinary(op ir.Op, a, b ir.Operand) (ir.Operand, bool) {
	// Pure integer arithmetic stays exact; any float operand promotes.
	if a.Kind == ir.OpIntConst && b.Kind == ir.OpIntConst {
		switch op {
		case ir.Add:
			return ir.IntConst(a.I + b.I), true
		case ir.Sub:
			return ir.IntConst(a.I - b.I), true
		case ir.Mul:
			return ir.IntConst(a.I * b.I), true
		case ir.Div:
			if b.I == 0 {
				return ir.Operand{}, false
			}
			return ir.IntConst(a.I / b.I), true
		case ir.Mod:
			if b.I == 0 {
				return ir.Operand{}, false
			}
			return ir.IntConst(a.I % b.I), true
		case ir.CmpEq:
			return ir.BoolConst(a.I == b.I), true
		case ir.CmpNe:
			return ir.BoolConst(a.I != b.I), true
		case ir.CmpLt:
			return ir.BoolConst(a.I < b.I), true
		case ir.CmpLe:
			return ir.BoolConst(a.I <= b.I), true
		case ir.CmpGt:
			return ir.BoolConst(a.I > b.I), true
		case ir.CmpGe:
			return ir.BoolConst(a.I >= b.I), true
		}
		return ir.Operand{}, false
	}

	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return ir.Operand{}, false
	}
	resultType := a.Type
	if resultType == nil || (b.Type != nil && b.Type.String() == "double") {
		resultType = b.Type
	}
	switch op {
	case ir.Add:
		return ir.FloatConst(af+bf, resultType), true
	case ir.Sub:
		return ir.FloatConst(af-bf, resultType), true
	case ir.Mul:
		return ir.FloatConst(af*bf, resultType), true
	case ir.Div:
		if bf == 0 {
			return ir.Operand{}, false
		}
		return ir.FloatConst(af/bf, resultType), true
	case ir.CmpEq:
		return ir.BoolConst(af == bf), true
	case ir.CmpNe:
		return ir.BoolConst(af != bf), true
	case ir.CmpLt:
		return ir.BoolConst(af < bf), true
	case ir.CmpLe:
		return ir.BoolConst(af <= bf), true
	case ir.CmpGt:
		return ir.BoolConst(af > bf), true
	case ir.CmpGe:
		return ir.BoolConst(af >= bf), true
	}
	return ir.Operand{}, false
}
