package optimize

import "github.com/tl-lang/tlc/internal/ir"

// propagateCopies rewrites uses of a variable that was most recently
// assigned directly from another variable (a "copy") to use that source
// variable instead, shortening chains the way `x = y; z = x;` collapses
// into `z = y;` once dead-code elimination removes the now-unused x.
func propagateCopies(fn *ir.Function) bool {
	changed := false
	copies := map[string]string{} // dst var -> src var it was last copied from

	resolve := func(o ir.Operand) ir.Operand {
		if o.Kind != ir.OpVar {
			return o
		}
		name := o.Name
		seen := map[string]bool{}
		for {
			src, ok := copies[name]
			if !ok || seen[src] {
				break
			}
			seen[src] = true
			name = src
		}
		if name != o.Name {
			return ir.Var(name, o.Type)
		}
		return o
	}

	for i := range fn.Instrs {
		instr := &fn.Instrs[i]
		newSrc1 := resolve(instr.Src1)
		if newSrc1 != instr.Src1 {
			instr.Src1 = newSrc1
			changed = true
		}
		newSrc2 := resolve(instr.Src2)
		if newSrc2 != instr.Src2 {
			instr.Src2 = newSrc2
			changed = true
		}
		for j, a := range instr.Args {
			if r := resolve(a); r != a {
				instr.Args[j] = r
				changed = true
			}
		}

		switch instr.Op {
		case ir.Move:
			if instr.Dst.Kind == ir.OpVar {
				if instr.Src1.Kind == ir.OpVar {
					copies[instr.Dst.Name] = instr.Src1.Name
				} else {
					delete(copies, instr.Dst.Name)
				}
			}
		case ir.VarDecl, ir.ArrayDecl, ir.ArrayStore, ir.Call:
			if instr.Dst.Kind == ir.OpVar {
				delete(copies, instr.Dst.Name)
			}
		}
	}
	return changed
}
