package compile

import (
	"github.com/tl-lang/tlc/internal/codegen/asmx64"
	"github.com/tl-lang/tlc/internal/codegen/cbackend"
	"github.com/tl-lang/tlc/internal/ir"
)

func (p *Pipeline) emit(target Target, prog *ir.Program) string {
	switch target {
	case TargetAsmX64:
		return asmx64.Emit(prog)
	default:
		return cbackend.Emit(prog)
	}
}
