package ir

import (
	"fmt"

	"github.com/tl-lang/tlc/internal/ast"
	"github.com/tl-lang/tlc/internal/types"
)

// loopCtx records the jump targets 'break' and 'continue' resolve to
// inside the loop currently being lowered; the builder keeps a stack of
// these so nested loops rebind break/continue correctly.
type loopCtx struct {
	breakLabel    string
	continueLabel string
}

// builder lowers one function's AST body into a Function's instruction
// stream.
type builder struct {
	fn    *Function
	loops []loopCtx
}

func newTemp(f *Function, t *types.Type) Operand {
	op := Temp(f.nextTemp, t)
	f.nextTemp++
	return op
}

func newLabel(f *Function, prefix string) string {
	l := fmt.Sprintf("%s%d", prefix, f.nextLabel)
	f.nextLabel++
	return l
}

func (b *builder) emit(instr Instruction) {
	b.fn.Instrs = append(b.fn.Instrs, instr)
}

// varType returns the declared type of name: the latest VarDecl/ArrayDecl
// emitted so far in this function, else the matching parameter, else nil.
func (b *builder) varType(name string) *types.Type {
	for i := len(b.fn.Instrs) - 1; i >= 0; i-- {
		in := b.fn.Instrs[i]
		if (in.Op == VarDecl || in.Op == ArrayDecl) && in.Dst.Name == name {
			return in.Dst.Type
		}
	}
	for _, p := range b.fn.Params {
		if p.Name == name {
			return p.Type
		}
	}
	return nil
}

// BuildFunction lowers a single AST function (with a body) into ir.Function.
func BuildFunction(fn *ast.Function) *Function {
	out := &Function{Name: fn.Name, ReturnType: fn.ReturnType, nextTemp: 1}
	for _, p := range fn.Params {
		out.Params = append(out.Params, Param{Name: p.Name, Type: p.Type})
	}
	b := &builder{fn: out}
	b.lowerBlock(fn.Body)
	if fn.ReturnType.Kind == types.Void && !ast.StmtAlwaysReturns(fn.Body) {
		b.emit(Instruction{Op: Return})
	}
	return out
}

// BuildProgram lowers every non-declared function in prog plus its FFI
// declarations.
func BuildProgram(prog *ast.Program) *Program {
	out := &Program{}
	for _, fn := range prog.Functions {
		if fn.Declared {
			continue
		}
		out.Functions = append(out.Functions, BuildFunction(fn))
	}
	for _, ffi := range prog.FFI {
		params := make([]Param, len(ffi.Params))
		for i, p := range ffi.Params {
			params[i] = Param{Name: p.Name, Type: p.Type}
		}
		out.FFI = append(out.FFI, FFIDecl{
			Name: ffi.Name, Library: ffi.Library, Convention: ffi.Convention,
			Params: params, ReturnType: ffi.ReturnType,
		})
	}
	return out
}

func (b *builder) lowerBlock(blk *ast.Block) {
	for _, st := range blk.Stmts {
		b.lowerStmt(st)
	}
}

func (b *builder) lowerStmt(st ast.Stmt) {
	switch n := st.(type) {
	case *ast.Block:
		b.lowerBlock(n)
	case *ast.ExprStmt:
		b.lowerExpr(n.X)
	case *ast.VarDecl:
		b.lowerVarDecl(n)
	case *ast.ArrayDecl:
		b.lowerArrayDecl(n)
	case *ast.Assign:
		v := b.lowerExpr(n.Value)
		b.emit(Instruction{Op: Move, Dst: Var(n.Name, v.Type), Src1: v})
	case *ast.IndexAssign:
		b.lowerIndexAssign(n)
	case *ast.If:
		b.lowerIf(n)
	case *ast.While:
		b.lowerWhile(n)
	case *ast.Break:
		if len(b.loops) > 0 {
			b.emit(Instruction{Op: Jump, Label: b.loops[len(b.loops)-1].breakLabel})
		}
	case *ast.Continue:
		if len(b.loops) > 0 {
			b.emit(Instruction{Op: Jump, Label: b.loops[len(b.loops)-1].continueLabel})
		}
	case *ast.Return:
		if n.Value == nil {
			b.emit(Instruction{Op: Return})
			return
		}
		v := b.lowerExpr(n.Value)
		b.emit(Instruction{Op: Return, Src1: v})
	case *ast.Print:
		var args []Operand
		for _, a := range n.Args {
			args = append(args, b.lowerExpr(a))
		}
		b.emit(Instruction{Op: Print, Args: args})
	case *ast.InlineAsm:
		b.lowerInlineAsm(n)
	}
}

func (b *builder) lowerVarDecl(n *ast.VarDecl) {
	b.emit(Instruction{Op: VarDecl, Dst: Var(n.Name, n.Type)})
	if n.Init != nil {
		v := b.lowerExpr(n.Init)
		b.emit(Instruction{Op: Move, Dst: Var(n.Name, n.Type), Src1: v})
	}
}

func (b *builder) lowerArrayDecl(n *ast.ArrayDecl) {
	arrType := types.NewArray(n.Elem, n.Size)
	b.emit(Instruction{Op: ArrayDecl, Dst: Var(n.Name, arrType)})
	for i, e := range n.Init {
		v := b.lowerExpr(e)
		b.emit(Instruction{
			Op: ArrayInit, Dst: Var(n.Name, arrType),
			Src1: IntConst(int64(i)), Src2: v,
		})
	}
}

func (b *builder) lowerIndexAssign(n *ast.IndexAssign) {
	base := b.lowerExpr(n.Target)
	idx := b.lowerExpr(n.Index)
	val := b.lowerExpr(n.Value)
	b.emit(Instruction{Op: BoundsCheck, Dst: base, Src1: idx})
	b.emit(Instruction{Op: ArrayStore, Dst: base, Src1: idx, Src2: val})
}

func (b *builder) lowerIf(n *ast.If) {
	elseLabel := newLabel(b.fn, "Lelse")
	endLabel := newLabel(b.fn, "Lend")

	cond := b.lowerExpr(n.Cond)
	if n.Else != nil {
		b.emit(Instruction{Op: JumpIfFalse, Src1: cond, Label: elseLabel})
		b.lowerStmt(n.Then)
		if !ast.StmtAlwaysReturns(n.Then) {
			b.emit(Instruction{Op: Jump, Label: endLabel})
		}
		b.emit(Instruction{Op: OpLabelMark, Label: elseLabel})
		b.lowerStmt(n.Else)
		b.emit(Instruction{Op: OpLabelMark, Label: endLabel})
		return
	}
	b.emit(Instruction{Op: JumpIfFalse, Src1: cond, Label: endLabel})
	b.lowerStmt(n.Then)
	b.emit(Instruction{Op: OpLabelMark, Label: endLabel})
}

func (b *builder) lowerWhile(n *ast.While) {
	startLabel := newLabel(b.fn, "Lwhile")
	bodyLabel := newLabel(b.fn, "Lbody")
	endLabel := newLabel(b.fn, "Lendwhile")

	b.emit(Instruction{Op: OpLabelMark, Label: startLabel})
	cond := b.lowerExpr(n.Cond)
	b.emit(Instruction{Op: JumpIfFalse, Src1: cond, Label: endLabel})
	b.emit(Instruction{Op: OpLabelMark, Label: bodyLabel})

	b.loops = append(b.loops, loopCtx{breakLabel: endLabel, continueLabel: startLabel})
	b.lowerStmt(n.Body)
	b.loops = b.loops[:len(b.loops)-1]

	b.emit(Instruction{Op: Jump, Label: startLabel})
	b.emit(Instruction{Op: OpLabelMark, Label: endLabel})
}

func (b *builder) lowerInlineAsm(n *ast.InlineAsm) {
	instr := Instruction{Op: InlineAsm, AsmText: n.Code, Volatile: n.Volatile}
	for _, o := range n.Outputs {
		instr.AsmOut = append(instr.AsmOut, AsmBinding{Constraint: o.Constraint, Operand: Var(o.Name, o.Type)})
	}
	for _, in := range n.Inputs {
		instr.AsmIn = append(instr.AsmIn, AsmBinding{Constraint: in.Constraint, Operand: Var(in.Name, in.Type)})
	}
	for _, c := range n.Clobbers {
		instr.Args = append(instr.Args, StringConst(c))
	}
	b.emit(instr)
}

// lowerExpr lowers e, appending whatever instructions are needed to
// compute it and returning the operand holding the result. Literals and
// variable references need no instructions at all.
func (b *builder) lowerExpr(e ast.Expr) Operand {
	switch n := e.(type) {
	case *ast.Literal:
		return lowerLiteral(n)
	case *ast.VarRef:
		return Var(n.Name, b.varType(n.Name))
	case *ast.Group:
		return b.lowerExpr(n.Inner)
	case *ast.UnaryOp:
		return b.lowerUnary(n)
	case *ast.BinOp:
		return b.lowerBinOp(n)
	case *ast.Index:
		return b.lowerIndex(n)
	case *ast.Call:
		return b.lowerCall(n)
	default:
		return NullConst()
	}
}

func lowerLiteral(n *ast.Literal) Operand {
	switch n.Kind {
	case ast.LitInt:
		return IntConst(n.Int)
	case ast.LitFloat:
		return FloatConst(n.Float, types.TDouble)
	case ast.LitBool:
		return BoolConst(n.Bool)
	case ast.LitString:
		return StringConst(n.Str)
	default:
		return NullConst()
	}
}

func (b *builder) lowerUnary(n *ast.UnaryOp) Operand {
	v := b.lowerExpr(n.Operand)
	op := Neg
	if n.Op == "!" {
		op = Not
	}
	dst := newTemp(b.fn, v.Type)
	b.emit(Instruction{Op: op, Dst: dst, Src1: v})
	return dst
}

// lowerBinOp lowers a binary expression. String '+' is rewritten into a
// Concat instruction rather than Add, since the code generators emit a
// runtime helper call for it rather than an arithmetic instruction.
func (b *builder) lowerBinOp(n *ast.BinOp) Operand {
	if n.Op == "&&" || n.Op == "||" {
		return b.lowerShortCircuit(n)
	}
	l := b.lowerExpr(n.Left)
	r := b.lowerExpr(n.Right)

	if n.Op == "+" && (isStringOperand(l) || isStringOperand(r)) {
		dst := newTemp(b.fn, types.TString)
		b.emit(Instruction{Op: Concat, Dst: dst, Src1: l, Src2: r})
		return dst
	}

	op, resultType := binOpcode(n.Op, l, r)
	dst := newTemp(b.fn, resultType)
	b.emit(Instruction{Op: op, Dst: dst, Src1: l, Src2: r})
	return dst
}

func isStringOperand(o Operand) bool {
	return o.Kind == OpStringConst || (o.Type != nil && o.Type.Kind == types.String)
}

func binOpcode(lexeme string, l, r Operand) (Op, *types.Type) {
	switch lexeme {
	case "+":
		return Add, resultNumericType(l, r)
	case "-":
		return Sub, resultNumericType(l, r)
	case "*":
		return Mul, resultNumericType(l, r)
	case "/":
		return Div, resultNumericType(l, r)
	case "%":
		return Mod, resultNumericType(l, r)
	case "==":
		return CmpEq, types.TBool
	case "!=":
		return CmpNe, types.TBool
	case "<":
		return CmpLt, types.TBool
	case "<=":
		return CmpLe, types.TBool
	case ">":
		return CmpGt, types.TBool
	case ">=":
		return CmpGe, types.TBool
	default:
		return Nop, types.TVoid
	}
}

func resultNumericType(l, r Operand) *types.Type {
	lt, rt := operandType(l), operandType(r)
	return types.Promote(lt, rt)
}

func operandType(o Operand) *types.Type {
	if o.Type != nil {
		return o.Type
	}
	return types.TInt
}

// lowerShortCircuit lowers && and || with branching so the right operand
// is only evaluated when it can affect the result.
func (b *builder) lowerShortCircuit(n *ast.BinOp) Operand {
	result := newTemp(b.fn, types.TBool)
	l := b.lowerExpr(n.Left)
	b.emit(Instruction{Op: Move, Dst: result, Src1: l})

	shortLabel := newLabel(b.fn, "Lsc")
	if n.Op == "&&" {
		b.emit(Instruction{Op: JumpIfFalse, Src1: result, Label: shortLabel})
	} else {
		b.emit(Instruction{Op: JumpIf, Src1: result, Label: shortLabel})
	}
	r := b.lowerExpr(n.Right)
	b.emit(Instruction{Op: Move, Dst: result, Src1: r})
	b.emit(Instruction{Op: OpLabelMark, Label: shortLabel})
	return result
}

func (b *builder) lowerIndex(n *ast.Index) Operand {
	base := b.lowerExpr(n.Target)
	idx := b.lowerExpr(n.Index)
	b.emit(Instruction{Op: BoundsCheck, Dst: base, Src1: idx})
	dst := newTemp(b.fn, nil)
	b.emit(Instruction{Op: ArrayLoad, Dst: dst, Src1: base, Src2: idx})
	return dst
}

func (b *builder) lowerCall(n *ast.Call) Operand {
	var args []Operand
	for _, a := range n.Args {
		args = append(args, b.lowerExpr(a))
	}
	dst := newTemp(b.fn, nil)
	b.emit(Instruction{Op: Call, Dst: dst, Callee: n.Name, Args: args})
	return dst
}
