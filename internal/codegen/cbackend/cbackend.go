// Package cbackend lowers TL's IR to portable C source: the compiler's
// most straightforward target, since C already has the stack-allocated
// locals, structured jumps and a libc runtime TL's IR assumes. A small
// runtime of __tl_* helper functions covers string concatenation (the IR's
// Concat instruction) and array bounds checks; ==/!= on string operands is
// emitted as an inline strcmp call.
package cbackend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tl-lang/tlc/internal/ir"
	"github.com/tl-lang/tlc/internal/types"
)

// Emit renders prog as a complete, compilable C source file.
func Emit(prog *ir.Program) string {
	var b strings.Builder
	writePreamble(&b)
	for _, ffi := range prog.FFI {
		writeFFIPrologue(&b, ffi)
	}
	for _, fn := range prog.Functions {
		writeFunctionSignature(&b, fn)
		b.WriteString(";\n")
	}
	b.WriteString("\n")
	for _, fn := range prog.Functions {
		writeFunction(&b, fn)
	}
	return b.String()
}

func writePreamble(b *strings.Builder) {
	b.WriteString(`#include <stdio.h>
#include <stdlib.h>
#include <string.h>
#include <stdint.h>
#include <stdbool.h>

#if defined(_WIN32)
#include <windows.h>
#define TL_LOADLIB(path) ((void*)LoadLibraryA(path))
#define TL_GETSYM(h, n) ((void*)GetProcAddress((HMODULE)(h), n))
#else
#include <dlfcn.h>
#define TL_LOADLIB(path) dlopen(path, RTLD_NOW)
#define TL_GETSYM(h, n) dlsym(h, n)
#endif

static char *__tl_concat(const char *a, const char *b) {
	size_t la = strlen(a), lb = strlen(b);
	char *out = (char *)malloc(la + lb + 1);
	memcpy(out, a, la);
	memcpy(out + la, b, lb);
	out[la + lb] = '\0';
	return out;
}

static void __tl_bounds_check(long idx, long size) {
	if (idx < 0 || idx >= size) {
		fprintf(stderr, "array index %ld out of bounds (size %ld)\n", idx, size);
		exit(1);
	}
}

`)
}

func writeFFIPrologue(b *strings.Builder, f ir.FFIDecl) {
	fmt.Fprintf(b, "/* extern %q from %q */\n", f.Name, f.Library)
	fmt.Fprintf(b, "static void *__tl_lib_%s;\n", f.Name)
	fmt.Fprintf(b, "static %s (*__tl_sym_%s)(%s);\n\n", cType(f.ReturnType), f.Name, cParamTypes(f.Params))
}

func cParamTypes(params []ir.Param) string {
	if len(params) == 0 {
		return "void"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = cType(p.Type)
	}
	return strings.Join(parts, ", ")
}

func cType(t *types.Type) string {
	if t == nil {
		return "long"
	}
	switch t.Kind {
	case types.Int:
		return "int64_t"
	case types.Bool:
		return "bool"
	case types.Float:
		return "float"
	case types.Double:
		return "double"
	case types.String:
		return "char *"
	case types.Array:
		return cType(t.Elem) + " *"
	case types.Void:
		return "void"
	default:
		return "void *"
	}
}

func writeFunctionSignature(b *strings.Builder, fn *ir.Function) {
	parts := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		parts[i] = fmt.Sprintf("%s %s", cType(p.Type), p.Name)
	}
	sig := strings.Join(parts, ", ")
	if sig == "" {
		sig = "void"
	}
	fmt.Fprintf(b, "%s %s(%s)", cType(fn.ReturnType), fn.Name, sig)
}

func writeFunction(b *strings.Builder, fn *ir.Function) {
	writeFunctionSignature(b, fn)
	b.WriteString(" {\n")

	declared := declareTemps(fn)
	var names []string
	for n := range declared {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(b, "\t%s %s;\n", declared[n], n)
	}

	for _, instr := range fn.Instrs {
		writeInstr(b, instr)
	}
	if fn.ReturnType.Kind == types.Void {
		b.WriteString("}\n\n")
	} else {
		b.WriteString("}\n\n")
	}
}

// declareTemps scans fn for temporaries and array/scalar VarDecls so the
// top of the emitted function can carry C's mandatory declarations; TL's
// IR otherwise treats a variable as coming into existence at its VarDecl
// instruction, which in C needs a distinct declaration statement.
func declareTemps(fn *ir.Function) map[string]string {
	out := map[string]string{}
	for _, instr := range fn.Instrs {
		if instr.Dst.Kind == ir.OpTemp {
			out[instr.Dst.String()] = cType(instr.Dst.Type)
		}
		if instr.Op == ir.VarDecl {
			out[instr.Dst.Name] = cType(instr.Dst.Type)
		}
		if instr.Op == ir.ArrayDecl {
			arr := instr.Dst.Type
			out[instr.Dst.Name] = fmt.Sprintf("%s[%d]", cType(arr.Elem), arr.Size)
		}
	}
	return out
}

func operandExpr(o ir.Operand) string {
	switch o.Kind {
	case ir.OpIntConst:
		return fmt.Sprintf("%d", o.I)
	case ir.OpFloatConst:
		return fmt.Sprintf("%g", o.F)
	case ir.OpBoolConst:
		if o.B {
			return "true"
		}
		return "false"
	case ir.OpStringConst:
		return fmt.Sprintf("%q", o.S)
	case ir.OpNullConst:
		return "NULL"
	case ir.OpVar:
		return o.Name
	case ir.OpTemp:
		return o.String()
	default:
		return "/* ? */"
	}
}

var binOpSym = map[ir.Op]string{
	ir.Add: "+", ir.Sub: "-", ir.Mul: "*", ir.Div: "/", ir.Mod: "%",
	ir.CmpEq: "==", ir.CmpNe: "!=", ir.CmpLt: "<", ir.CmpLe: "<=", ir.CmpGt: ">", ir.CmpGe: ">=",
}

func writeInstr(b *strings.Builder, instr ir.Instruction) {
	switch instr.Op {
	case ir.OpLabelMark:
		fmt.Fprintf(b, "%s:;\n", instr.Label)
	case ir.Jump:
		fmt.Fprintf(b, "\tgoto %s;\n", instr.Label)
	case ir.JumpIf:
		fmt.Fprintf(b, "\tif (%s) goto %s;\n", operandExpr(instr.Src1), instr.Label)
	case ir.JumpIfFalse:
		fmt.Fprintf(b, "\tif (!(%s)) goto %s;\n", operandExpr(instr.Src1), instr.Label)
	case ir.Move:
		fmt.Fprintf(b, "\t%s = %s;\n", operandExpr(instr.Dst), operandExpr(instr.Src1))
	case ir.Neg:
		fmt.Fprintf(b, "\t%s = -(%s);\n", operandExpr(instr.Dst), operandExpr(instr.Src1))
	case ir.Not:
		fmt.Fprintf(b, "\t%s = !(%s);\n", operandExpr(instr.Dst), operandExpr(instr.Src1))
	case ir.Add, ir.Sub, ir.Mul, ir.Div, ir.Mod,
		ir.CmpEq, ir.CmpNe, ir.CmpLt, ir.CmpLe, ir.CmpGt, ir.CmpGe:
		sym := binOpSym[instr.Op]
		if isStringCompare(instr) {
			if instr.Op == ir.CmpEq {
				fmt.Fprintf(b, "\t%s = strcmp(%s, %s) == 0;\n", operandExpr(instr.Dst), operandExpr(instr.Src1), operandExpr(instr.Src2))
			} else {
				fmt.Fprintf(b, "\t%s = strcmp(%s, %s) != 0;\n", operandExpr(instr.Dst), operandExpr(instr.Src1), operandExpr(instr.Src2))
			}
			return
		}
		fmt.Fprintf(b, "\t%s = %s %s %s;\n", operandExpr(instr.Dst), operandExpr(instr.Src1), sym, operandExpr(instr.Src2))
	case ir.Concat:
		fmt.Fprintf(b, "\t%s = __tl_concat(%s, %s);\n", operandExpr(instr.Dst), operandExpr(instr.Src1), operandExpr(instr.Src2))
	case ir.Call:
		writeCall(b, instr)
	case ir.Return:
		if instr.Src1 == (ir.Operand{}) {
			b.WriteString("\treturn;\n")
		} else {
			fmt.Fprintf(b, "\treturn %s;\n", operandExpr(instr.Src1))
		}
	case ir.Print:
		writePrint(b, instr)
	case ir.VarDecl, ir.ArrayDecl:
		// declaration only, handled by declareTemps
	case ir.ArrayInit:
		fmt.Fprintf(b, "\t%s[%s] = %s;\n", operandExpr(instr.Dst), operandExpr(instr.Src1), operandExpr(instr.Src2))
	case ir.ArrayStore:
		fmt.Fprintf(b, "\t%s[%s] = %s;\n", operandExpr(instr.Dst), operandExpr(instr.Src1), operandExpr(instr.Src2))
	case ir.ArrayLoad:
		fmt.Fprintf(b, "\t%s = %s[%s];\n", operandExpr(instr.Dst), operandExpr(instr.Src1), operandExpr(instr.Src2))
	case ir.BoundsCheck:
		arrSize := 0
		if instr.Dst.Type != nil {
			arrSize = instr.Dst.Type.Size
		}
		fmt.Fprintf(b, "\t__tl_bounds_check((long)(%s), %d);\n", operandExpr(instr.Src1), arrSize)
	case ir.InlineAsm:
		writeInlineAsm(b, instr)
	}
}

func isStringCompare(instr ir.Instruction) bool {
	if instr.Op != ir.CmpEq && instr.Op != ir.CmpNe {
		return false
	}
	return (instr.Src1.Type != nil && instr.Src1.Type.Kind == types.String) ||
		(instr.Src2.Type != nil && instr.Src2.Type.Kind == types.String)
}

func writeCall(b *strings.Builder, instr ir.Instruction) {
	args := make([]string, len(instr.Args))
	for i, a := range instr.Args {
		args[i] = operandExpr(a)
	}
	call := fmt.Sprintf("%s(%s)", instr.Callee, strings.Join(args, ", "))
	if instr.Dst == (ir.Operand{}) {
		fmt.Fprintf(b, "\t%s;\n", call)
		return
	}
	fmt.Fprintf(b, "\t%s = %s;\n", operandExpr(instr.Dst), call)
}

func writePrint(b *strings.Builder, instr ir.Instruction) {
	for _, a := range instr.Args {
		fmt.Fprintf(b, "\tprintf(%s, %s);\n", printfFormat(a), operandExpr(a))
	}
}

func printfFormat(o ir.Operand) string {
	t := o.Type
	if t == nil {
		return `"%ld\n"`
	}
	switch t.Kind {
	case types.Int:
		return `"%lld\n"`
	case types.Bool:
		return `"%d\n"`
	case types.Float, types.Double:
		return `"%f\n"`
	case types.String:
		return `"%s\n"`
	default:
		return `"%p\n"`
	}
}

func writeInlineAsm(b *strings.Builder, instr ir.Instruction) {
	b.WriteString("\t__asm__ ")
	if instr.Volatile {
		b.WriteString("volatile ")
	}
	fmt.Fprintf(b, "(%q", instr.AsmText)
	writeAsmOperandClause(b, instr.AsmOut)
	writeAsmOperandClause(b, instr.AsmIn)
	if len(instr.Args) > 0 {
		b.WriteString(" : ")
		for i, c := range instr.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%q", c.S)
		}
	}
	b.WriteString(");\n")
}

func writeAsmOperandClause(b *strings.Builder, ops []ir.AsmBinding) {
	b.WriteString(" : ")
	for i, o := range ops {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%q(%s)", o.Constraint, o.Operand.Name)
	}
}
