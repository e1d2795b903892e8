// Package asmx64 lowers TL's IR to x86-64 NASM assembly targeting the
// Win64 calling convention: the first four integer/pointer arguments in
// RCX, RDX, R8, R9, a 32-byte caller-allocated shadow space on every call,
// and callee-saved RBX/RSI/RDI/R12-R15 preserved across calls. Unlike the
// C backend, this one must make register allocation decisions itself; it
// uses the simplest workable policy — every temporary and variable lives
// in its own stack slot, loaded into a scratch register immediately
// before use — trading code density for a generator simple enough to
// trust by inspection, the same trade-off the teacher's assembler's
// single-pass instruction encoder makes over a more clever allocator.
package asmx64

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tl-lang/tlc/internal/ir"
	"github.com/tl-lang/tlc/internal/types"
)

// frame tracks the stack-slot assignment for one function's variables and
// temporaries, plus its string-literal pool.
type frame struct {
	slots       map[string]int // name -> byte offset from RBP, negative
	size        int
	strings     map[string]string // literal text -> pool label
	strOrder    []string
	boundsCheck int // counter for unique bounds-check skip labels
}

func newFrame() *frame {
	return &frame{slots: map[string]int{}, strings: map[string]string{}}
}

func (f *frame) slotFor(name string) int {
	if off, ok := f.slots[name]; ok {
		return off
	}
	f.size += 8
	off := -f.size
	f.slots[name] = off
	return off
}

func (f *frame) internString(s string) string {
	if label, ok := f.strings[s]; ok {
		return label
	}
	label := fmt.Sprintf("str%d", len(f.strOrder))
	f.strings[s] = label
	f.strOrder = append(f.strOrder, s)
	return label
}

// Emit renders prog as a complete NASM source file for the Win64 ABI.
func Emit(prog *ir.Program) string {
	var b strings.Builder
	fn := collectAll(prog)

	b.WriteString("bits 64\ndefault rel\n\n")
	b.WriteString("extern printf\nextern exit\nextern malloc\nextern memcpy\nextern strcmp\nextern strlen\nextern LoadLibraryA\nextern GetProcAddress\n\n")

	b.WriteString("section .data\n")
	writeDataSection(&b, fn)

	b.WriteString("\nsection .text\n")
	b.WriteString("global main\n\n")
	writeConcatRoutine(&b)
	for _, f := range prog.Functions {
		writeFunction(&b, f, fn[f.Name])
	}
	return b.String()
}

// writeConcatRoutine emits the __tl_concat helper every Concat instruction
// calls: allocate len(a)+len(b)+1 bytes with malloc, copy both operands in,
// NUL-terminate, return the new buffer in rax. str1/str2 live in the
// callee-saved rsi/rdi across the strlen/malloc/memcpy calls; the computed
// length and buffer pointer live on the stack since rax and the argument
// registers are clobbered by each call.
func writeConcatRoutine(b *strings.Builder) {
	b.WriteString("__tl_concat:\n")
	b.WriteString("\tpush rbp\n\tmov rbp, rsp\n\tsub rsp, 48\n")
	b.WriteString("\tpush rbx\n\tpush rsi\n\tpush rdi\n")
	b.WriteString("\tmov rsi, rcx\n\tmov rdi, rdx\n")
	b.WriteString("\tmov rcx, rsi\n\tsub rsp, 32\n\tcall strlen\n\tadd rsp, 32\n")
	b.WriteString("\tmov rbx, rax\n")
	b.WriteString("\tmov rcx, rdi\n\tsub rsp, 32\n\tcall strlen\n\tadd rsp, 32\n")
	b.WriteString("\tmov [rbp-8], rax\n")
	b.WriteString("\tmov rcx, rbx\n\tadd rcx, rax\n\tadd rcx, 1\n")
	b.WriteString("\tsub rsp, 32\n\tcall malloc\n\tadd rsp, 32\n")
	b.WriteString("\tmov [rbp-16], rax\n")
	b.WriteString("\tmov rcx, rax\n\tmov rdx, rsi\n\tmov r8, rbx\n")
	b.WriteString("\tsub rsp, 32\n\tcall memcpy\n\tadd rsp, 32\n")
	b.WriteString("\tmov rax, [rbp-16]\n\tadd rax, rbx\n")
	b.WriteString("\tmov rcx, rax\n\tmov rdx, rdi\n\tmov r8, [rbp-8]\n")
	b.WriteString("\tsub rsp, 32\n\tcall memcpy\n\tadd rsp, 32\n")
	b.WriteString("\tmov rax, [rbp-16]\n\tadd rax, rbx\n\tadd rax, [rbp-8]\n")
	b.WriteString("\tmov byte [rax], 0\n")
	b.WriteString("\tmov rax, [rbp-16]\n")
	b.WriteString("\tpop rdi\n\tpop rsi\n\tpop rbx\n")
	b.WriteString("\tmov rsp, rbp\n\tpop rbp\n\tret\n\n")
}

func collectAll(prog *ir.Program) map[string]*frame {
	out := map[string]*frame{}
	for _, f := range prog.Functions {
		fr := newFrame()
		collectFrame(f, fr)
		out[f.Name] = fr
	}
	return out
}

func collectFrame(fn *ir.Function, fr *frame) {
	for _, p := range fn.Params {
		fr.slotFor(p.Name)
	}
	for _, instr := range fn.Instrs {
		for _, o := range []ir.Operand{instr.Dst, instr.Src1, instr.Src2} {
			switch o.Kind {
			case ir.OpVar:
				fr.slotFor(o.Name)
			case ir.OpTemp:
				fr.slotFor(o.String())
			case ir.OpStringConst:
				fr.internString(o.S)
			}
		}
		for _, a := range instr.Args {
			if a.Kind == ir.OpStringConst {
				fr.internString(a.S)
			}
		}
	}
}

func writeDataSection(b *strings.Builder, frames map[string]*frame) {
	var names []string
	for n := range frames {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fr := frames[n]
		for i, s := range fr.strOrder {
			label := fmt.Sprintf("str%d", i)
			fmt.Fprintf(b, "%s_%s: db %s, 0\n", n, label, nasmStringLiteral(s))
		}
	}
	b.WriteString(`fmt_int: db "%lld", 10, 0` + "\n")
	b.WriteString(`fmt_float: db "%f", 10, 0` + "\n")
	b.WriteString(`fmt_str: db "%s", 10, 0` + "\n")
	b.WriteString(`msg_bounds: db "array index out of bounds", 10, 0` + "\n")
}

func nasmStringLiteral(s string) string {
	var parts []string
	cur := strings.Builder{}
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, fmt.Sprintf("%q", cur.String()))
			cur.Reset()
		}
	}
	for _, r := range s {
		if r == '\n' {
			flush()
			parts = append(parts, "10")
		} else {
			cur.WriteRune(r)
		}
	}
	flush()
	if len(parts) == 0 {
		return `""`
	}
	return strings.Join(parts, ", ")
}

// paramRegs64 are the Win64 integer/pointer argument registers, in order.
var paramRegs64 = []string{"rcx", "rdx", "r8", "r9"}

func writeFunction(b *strings.Builder, fn *ir.Function, fr *frame) {
	fmt.Fprintf(b, "%s:\n", fn.Name)
	b.WriteString("\tpush rbp\n\tmov rbp, rsp\n")
	frameSize := alignTo16(fr.size + 32) // +32 for Win64 shadow space
	fmt.Fprintf(b, "\tsub rsp, %d\n", frameSize)
	b.WriteString("\tpush rbx\n\tpush rsi\n\tpush rdi\n")

	for i, p := range fn.Params {
		off := fr.slotFor(p.Name)
		if i < len(paramRegs64) {
			fmt.Fprintf(b, "\tmov [rbp%+d], %s\n", off, paramRegs64[i])
		}
	}

	for _, instr := range fn.Instrs {
		writeInstr(b, fn, fr, instr)
	}

	fmt.Fprintf(b, "%s_epilogue:\n", fn.Name)
	b.WriteString("\tpop rdi\n\tpop rsi\n\tpop rbx\n")
	b.WriteString("\tmov rsp, rbp\n\tpop rbp\n\tret\n\n")
}

func alignTo16(n int) int {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}

func operandLoc(fr *frame, fn *ir.Function, o ir.Operand) string {
	switch o.Kind {
	case ir.OpVar:
		return fmt.Sprintf("[rbp%+d]", fr.slotFor(o.Name))
	case ir.OpTemp:
		return fmt.Sprintf("[rbp%+d]", fr.slotFor(o.String()))
	case ir.OpStringConst:
		return fmt.Sprintf("%s_%s", fn.Name, fr.internString(o.S))
	default:
		return "0"
	}
}

// loadTo emits code loading operand o into register reg.
func loadTo(b *strings.Builder, fr *frame, fn *ir.Function, o ir.Operand, reg string) {
	switch o.Kind {
	case ir.OpIntConst:
		fmt.Fprintf(b, "\tmov %s, %d\n", reg, o.I)
	case ir.OpBoolConst:
		v := 0
		if o.B {
			v = 1
		}
		fmt.Fprintf(b, "\tmov %s, %d\n", reg, v)
	case ir.OpNullConst:
		fmt.Fprintf(b, "\tmov %s, 0\n", reg)
	case ir.OpStringConst:
		fmt.Fprintf(b, "\tlea %s, [%s]\n", reg, operandLoc(fr, fn, o))
	case ir.OpVar, ir.OpTemp:
		fmt.Fprintf(b, "\tmov %s, %s\n", reg, operandLoc(fr, fn, o))
	}
}

func storeFrom(b *strings.Builder, fr *frame, fn *ir.Function, dst ir.Operand, reg string) {
	fmt.Fprintf(b, "\tmov %s, %s\n", operandLoc(fr, fn, dst), reg)
}

func writeInstr(b *strings.Builder, fn *ir.Function, fr *frame, instr ir.Instruction) {
	switch instr.Op {
	case ir.OpLabelMark:
		fmt.Fprintf(b, "%s_%s:\n", fn.Name, instr.Label)
	case ir.Jump:
		fmt.Fprintf(b, "\tjmp %s_%s\n", fn.Name, instr.Label)
	case ir.JumpIf:
		loadTo(b, fr, fn, instr.Src1, "rax")
		b.WriteString("\tcmp rax, 0\n")
		fmt.Fprintf(b, "\tjne %s_%s\n", fn.Name, instr.Label)
	case ir.JumpIfFalse:
		loadTo(b, fr, fn, instr.Src1, "rax")
		b.WriteString("\tcmp rax, 0\n")
		fmt.Fprintf(b, "\tje %s_%s\n", fn.Name, instr.Label)
	case ir.Move:
		loadTo(b, fr, fn, instr.Src1, "rax")
		storeFrom(b, fr, fn, instr.Dst, "rax")
	case ir.Neg:
		loadTo(b, fr, fn, instr.Src1, "rax")
		b.WriteString("\tneg rax\n")
		storeFrom(b, fr, fn, instr.Dst, "rax")
	case ir.Not:
		loadTo(b, fr, fn, instr.Src1, "rax")
		b.WriteString("\tcmp rax, 0\n\tsete al\n\tmovzx rax, al\n")
		storeFrom(b, fr, fn, instr.Dst, "rax")
	case ir.Add, ir.Sub, ir.Mul:
		writeArith(b, fr, fn, instr)
	case ir.Div, ir.Mod:
		writeDivMod(b, fr, fn, instr)
	case ir.CmpEq, ir.CmpNe, ir.CmpLt, ir.CmpLe, ir.CmpGt, ir.CmpGe:
		writeCompare(b, fr, fn, instr)
	case ir.Concat:
		writeConcatCall(b, fr, fn, instr)
	case ir.Call:
		writeCall(b, fr, fn, instr)
	case ir.Return:
		if instr.Src1 != (ir.Operand{}) {
			loadTo(b, fr, fn, instr.Src1, "rax")
		}
		fmt.Fprintf(b, "\tjmp %s_epilogue\n", fn.Name)
	case ir.Print:
		writePrint(b, fr, fn, instr)
	case ir.ArrayStore, ir.ArrayInit:
		writeArrayStore(b, fr, fn, instr)
	case ir.ArrayLoad:
		writeArrayLoad(b, fr, fn, instr)
	case ir.BoundsCheck:
		writeBoundsCheck(b, fr, fn, instr)
	case ir.InlineAsm:
		writeInlineAsm(b, instr)
	case ir.VarDecl, ir.ArrayDecl:
		// storage already reserved in the prologue's frame layout
	}
}

func writeArith(b *strings.Builder, fr *frame, fn *ir.Function, instr ir.Instruction) {
	loadTo(b, fr, fn, instr.Src1, "rax")
	loadTo(b, fr, fn, instr.Src2, "rcx")
	switch instr.Op {
	case ir.Add:
		b.WriteString("\tadd rax, rcx\n")
	case ir.Sub:
		b.WriteString("\tsub rax, rcx\n")
	case ir.Mul:
		b.WriteString("\timul rax, rcx\n")
	}
	storeFrom(b, fr, fn, instr.Dst, "rax")
}

func writeDivMod(b *strings.Builder, fr *frame, fn *ir.Function, instr ir.Instruction) {
	loadTo(b, fr, fn, instr.Src1, "rax")
	loadTo(b, fr, fn, instr.Src2, "rcx")
	b.WriteString("\tcqo\n\tidiv rcx\n")
	if instr.Op == ir.Div {
		storeFrom(b, fr, fn, instr.Dst, "rax")
	} else {
		storeFrom(b, fr, fn, instr.Dst, "rdx")
	}
}

var setccFor = map[ir.Op]string{
	ir.CmpEq: "sete", ir.CmpNe: "setne", ir.CmpLt: "setl",
	ir.CmpLe: "setle", ir.CmpGt: "setg", ir.CmpGe: "setge",
}

func writeCompare(b *strings.Builder, fr *frame, fn *ir.Function, instr ir.Instruction) {
	if isStringOperand(instr.Src1) || isStringOperand(instr.Src2) {
		loadTo(b, fr, fn, instr.Src1, "rcx")
		loadTo(b, fr, fn, instr.Src2, "rdx")
		b.WriteString("\tsub rsp, 32\n\tcall strcmp\n\tadd rsp, 32\n")
		b.WriteString("\tcmp eax, 0\n")
		if instr.Op == ir.CmpEq {
			b.WriteString("\tsete al\n")
		} else {
			b.WriteString("\tsetne al\n")
		}
		b.WriteString("\tmovzx rax, al\n")
		storeFrom(b, fr, fn, instr.Dst, "rax")
		return
	}
	loadTo(b, fr, fn, instr.Src1, "rax")
	loadTo(b, fr, fn, instr.Src2, "rcx")
	b.WriteString("\tcmp rax, rcx\n")
	fmt.Fprintf(b, "\t%s al\n", setccFor[instr.Op])
	b.WriteString("\tmovzx rax, al\n")
	storeFrom(b, fr, fn, instr.Dst, "rax")
}

func isStringOperand(o ir.Operand) bool {
	return o.Kind == ir.OpStringConst || (o.Type != nil && o.Type.Kind == types.String)
}

func writeConcatCall(b *strings.Builder, fr *frame, fn *ir.Function, instr ir.Instruction) {
	loadTo(b, fr, fn, instr.Src1, "rcx")
	loadTo(b, fr, fn, instr.Src2, "rdx")
	b.WriteString("\tsub rsp, 32\n\tcall __tl_concat\n\tadd rsp, 32\n")
	storeFrom(b, fr, fn, instr.Dst, "rax")
}

func writeCall(b *strings.Builder, fr *frame, fn *ir.Function, instr ir.Instruction) {
	for i, a := range instr.Args {
		if i >= len(paramRegs64) {
			break
		}
		loadTo(b, fr, fn, a, paramRegs64[i])
	}
	shadow := alignTo16(32)
	fmt.Fprintf(b, "\tsub rsp, %d\n\tcall %s\n\tadd rsp, %d\n", shadow, instr.Callee, shadow)
	if instr.Dst != (ir.Operand{}) {
		storeFrom(b, fr, fn, instr.Dst, "rax")
	}
}

func writePrint(b *strings.Builder, fr *frame, fn *ir.Function, instr ir.Instruction) {
	for _, a := range instr.Args {
		fmtLabel := "fmt_int"
		if a.Type != nil {
			switch a.Type.Kind {
			case types.Float, types.Double:
				fmtLabel = "fmt_float"
			case types.String:
				fmtLabel = "fmt_str"
			}
		}
		fmt.Fprintf(b, "\tlea rcx, [%s]\n", fmtLabel)
		loadTo(b, fr, fn, a, "rdx")
		b.WriteString("\tsub rsp, 32\n\tcall printf\n\tadd rsp, 32\n")
	}
}

func writeArrayStore(b *strings.Builder, fr *frame, fn *ir.Function, instr ir.Instruction) {
	fmt.Fprintf(b, "\tlea rax, %s\n", operandLoc(fr, fn, instr.Dst))
	loadTo(b, fr, fn, instr.Src1, "rcx")
	loadTo(b, fr, fn, instr.Src2, "rdx")
	b.WriteString("\tlea rax, [rax + rcx*8]\n\tmov [rax], rdx\n")
}

func writeArrayLoad(b *strings.Builder, fr *frame, fn *ir.Function, instr ir.Instruction) {
	fmt.Fprintf(b, "\tlea rax, %s\n", operandLoc(fr, fn, instr.Src1))
	loadTo(b, fr, fn, instr.Src2, "rcx")
	b.WriteString("\tmov rax, [rax + rcx*8]\n")
	storeFrom(b, fr, fn, instr.Dst, "rax")
}

func writeBoundsCheck(b *strings.Builder, fr *frame, fn *ir.Function, instr ir.Instruction) {
	size := 0
	if instr.Dst.Type != nil {
		size = instr.Dst.Type.Size
	}
	loadTo(b, fr, fn, instr.Src1, "rax")
	fr.boundsCheck++
	skipLabel := fmt.Sprintf("%s_boundsok_%d", fn.Name, fr.boundsCheck)
	b.WriteString("\tcmp rax, 0\n")
	fmt.Fprintf(b, "\tjl %s_bounds_fail\n", fn.Name)
	fmt.Fprintf(b, "\tcmp rax, %d\n", size)
	fmt.Fprintf(b, "\tjl %s\n", skipLabel)
	fmt.Fprintf(b, "%s_bounds_fail:\n", fn.Name)
	b.WriteString("\tlea rcx, [msg_bounds]\n\tsub rsp, 32\n\tcall printf\n\tadd rsp, 32\n")
	b.WriteString("\tmov rcx, 1\n\tsub rsp, 32\n\tcall exit\n\tadd rsp, 32\n")
	fmt.Fprintf(b, "%s:\n", skipLabel)
}

func writeInlineAsm(b *strings.Builder, instr ir.Instruction) {
	b.WriteString("\t; inline asm block\n")
	for _, line := range strings.Split(instr.AsmText, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			fmt.Fprintf(b, "\t%s\n", line)
		}
	}
}
