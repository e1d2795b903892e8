// Package optimize implements the IR-level optimization passes: constant
// folding, constant propagation, copy propagation and dead-code
// elimination. Passes run in a fixed order, repeated until none of them
// changes anything or a fixed-point cap is reached, since later passes
// routinely expose new opportunities for earlier ones (a copy-propagated
// variable may become foldable; folding may leave a temporary unread, for
// dead-code elimination to drop).
package optimize

import (
	"github.com/tl-lang/tlc/internal/ir"
)

// maxIterations bounds the fixed-point loop so a pathological or buggy
// interaction between passes cannot hang the compiler.
const maxIterations = 10

// Function runs every pass over fn's instruction stream in place, iterating
// until a fixed point or maxIterations, whichever comes first.
func Function(fn *ir.Function) {
	for i := 0; i < maxIterations; i++ {
		changed := false
		changed = foldConstants(fn) || changed
		changed = propagateCopies(fn) || changed
		changed = eliminateDeadCode(fn) || changed
		if !changed {
			return
		}
	}
}

// Program runs Function over every function in prog.
func Program(prog *ir.Program) {
	for _, fn := range prog.Functions {
		Function(fn)
	}
}
