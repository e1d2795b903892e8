// Package ir defines TL's three-address intermediate representation: a
// flat list of instructions per function, operating on temporaries,
// variables and constants, with explicit labels and jumps standing in for
// structured control flow. Both the optimizer and the two code generators
// consume this representation rather than the AST directly.
package ir

import (
	"fmt"

	"github.com/tl-lang/tlc/internal/types"
)

// OperandKind tags which case of Operand is populated.
type OperandKind int

const (
	OpTemp OperandKind = iota
	OpVar
	OpIntConst
	OpFloatConst
	OpStringConst
	OpBoolConst
	OpNullConst
	OpLabel
)

// Operand is a tagged union over everything an instruction can reference:
// a compiler-generated temporary, a named variable, a constant of one of
// TL's literal kinds, or a jump target label.
type Operand struct {
	Kind OperandKind
	Temp int
	Name string
	I    int64
	F    float64
	S    string
	B    bool
	Type *types.Type
}

func Temp(n int, t *types.Type) Operand  { return Operand{Kind: OpTemp, Temp: n, Type: t} }
func Var(name string, t *types.Type) Operand { return Operand{Kind: OpVar, Name: name, Type: t} }
func IntConst(v int64) Operand           { return Operand{Kind: OpIntConst, I: v, Type: types.TInt} }
func FloatConst(v float64, t *types.Type) Operand {
	return Operand{Kind: OpFloatConst, F: v, Type: t}
}
func StringConst(v string) Operand { return Operand{Kind: OpStringConst, S: v, Type: types.TString} }
func BoolConst(v bool) Operand      { return Operand{Kind: OpBoolConst, B: v, Type: types.TBool} }
func NullConst() Operand            { return Operand{Kind: OpNullConst, Type: types.TNull} }
func Label(name string) Operand     { return Operand{Kind: OpLabel, Name: name} }

func (o Operand) String() string {
	switch o.Kind {
	case OpTemp:
		return fmt.Sprintf("t%d", o.Temp)
	case OpVar:
		return o.Name
	case OpIntConst:
		return fmt.Sprintf("%d", o.I)
	case OpFloatConst:
		return fmt.Sprintf("%g", o.F)
	case OpStringConst:
		return fmt.Sprintf("%q", o.S)
	case OpBoolConst:
		return fmt.Sprintf("%t", o.B)
	case OpNullConst:
		return "null"
	case OpLabel:
		return o.Name
	default:
		return "?"
	}
}

// IsConst reports whether o is one of the constant-operand kinds, used
// pervasively by the optimizer's constant-folding pass.
func (o Operand) IsConst() bool {
	switch o.Kind {
	case OpIntConst, OpFloatConst, OpStringConst, OpBoolConst, OpNullConst:
		return true
	default:
		return false
	}
}

// Op identifies an instruction's operation.
type Op int

const (
	Nop Op = iota
	OpLabelMark // defines a jump target at this point
	Move
	Add
	Sub
	Mul
	Div
	Mod
	CmpEq
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	And
	Or
	Neg
	Not
	Jump
	JumpIf
	JumpIfFalse
	Call
	Return
	OpParam
	Print
	ArrayLoad
	ArrayStore
	BoundsCheck
	ArrayDecl
	ArrayInit
	VarDecl
	Concat
	InlineAsm
)

var opNames = [...]string{
	Nop: "nop", OpLabelMark: "label", Move: "move",
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Mod: "mod",
	CmpEq: "cmpeq", CmpNe: "cmpne", CmpLt: "cmplt", CmpLe: "cmple", CmpGt: "cmpgt", CmpGe: "cmpge",
	And: "and", Or: "or", Neg: "neg", Not: "not",
	Jump: "jump", JumpIf: "jumpif", JumpIfFalse: "jumpiffalse",
	Call: "call", Return: "return", OpParam: "param", Print: "print",
	ArrayLoad: "arrayload", ArrayStore: "arraystore", BoundsCheck: "boundscheck",
	ArrayDecl: "arraydecl", ArrayInit: "arrayinit", VarDecl: "vardecl",
	Concat: "concat", InlineAsm: "asm",
}

func (o Op) String() string {
	if int(o) >= 0 && int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// Instruction is one three-address-code instruction. Not every field is
// meaningful for every Op; see the builder for which fields each opcode
// populates.
type Instruction struct {
	Op       Op
	Dst      Operand
	Src1     Operand
	Src2     Operand
	Label    string   // OpLabelMark, Jump, JumpIf, JumpIfFalse target
	Callee   string   // Call
	Args     []Operand // Call and Print arguments; InlineAsm clobbers as string constants
	IsFFI    bool
	AsmText  string
	AsmOut   []AsmBinding
	AsmIn    []AsmBinding
	Volatile bool
}

// AsmBinding ties an inline-asm operand name to the IR operand holding its
// value, surviving from the AST into codegen without re-resolving names.
type AsmBinding struct {
	Constraint string
	Operand    Operand
}

// Function is one TL function lowered to IR: a flat instruction stream
// plus the counters the builder used to generate fresh temporaries and
// labels.
type Function struct {
	Name       string
	Params     []Param
	ReturnType *types.Type
	Instrs     []Instruction

	nextTemp  int
	nextLabel int
}

type Param struct {
	Name string
	Type *types.Type
}

// Program is every lowered function plus the FFI declarations the code
// generators need to emit extern prologues for.
type Program struct {
	Functions []*Function
	FFI       []FFIDecl
}

type FFIDecl struct {
	Name       string
	Library    string
	Convention string
	Params     []Param
	ReturnType *types.Type
}
