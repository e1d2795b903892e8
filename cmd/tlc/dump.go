package main

import (
	"fmt"
	"os"

	"github.com/go-faster/jx"
	"github.com/pkg/errors"

	"github.com/tl-lang/tlc/internal/ast"
	"github.com/tl-lang/tlc/internal/diag"
	"github.com/tl-lang/tlc/internal/ir"
	"github.com/tl-lang/tlc/internal/lexer"
	"github.com/tl-lang/tlc/internal/module"
	"github.com/tl-lang/tlc/internal/parser"
	"github.com/tl-lang/tlc/internal/sema"
	"github.com/tl-lang/tlc/internal/token"
)

func runDumpTokens(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %q", path)
	}
	sink := diag.NewSink(false)
	lx := lexer.New(path, string(src), sink)
	for {
		t := lx.Next()
		fmt.Println(t.String())
		if t.Kind == token.EOF {
			break
		}
	}
	sink.PrintAll(os.Stderr)
	return nil
}

func runDumpAST(path string, paths module.SearchPaths, suppressWarn bool, maxErrors int, asJSON bool) error {
	sink := diag.NewSink(suppressWarn)
	if maxErrors > 0 {
		sink.SetMaxErrors(maxErrors)
	}
	resolver := module.NewResolver(dirOfPath(path), paths, sink)
	prog, err := resolver.ResolveFile(path)
	if err != nil {
		return err
	}
	analyzer := sema.New(path, sink)
	analyzer.Check(prog)
	sink.PrintAll(os.Stderr)

	if asJSON {
		return dumpASTJSON(prog)
	}
	for _, fn := range prog.Functions {
		fmt.Printf("func %s(", fn.Name)
		for i, p := range fn.Params {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Printf("%s: %s", p.Name, p.Type)
		}
		fmt.Printf(") -> %s\n", fn.ReturnType)
	}
	return nil
}

func dirOfPath(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}

// dumpASTJSON streams a minimal structural summary of the program as JSON
// using a forward-only encoder, avoiding building an intermediate
// map[string]interface{} tree for what is meant to be a large-program
// debug aid.
func dumpASTJSON(prog *ast.Program) error {
	e := jx.GetEncoder()
	e.ObjStart()
	e.FieldStart("functions")
	e.ArrStart()
	for _, fn := range prog.Functions {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(fn.Name)
		e.FieldStart("params")
		e.ArrStart()
		for _, p := range fn.Params {
			e.ObjStart()
			e.FieldStart("name")
			e.Str(p.Name)
			e.FieldStart("type")
			e.Str(p.Type.String())
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("returns")
		e.Str(fn.ReturnType.String())
		e.FieldStart("declared")
		e.Bool(fn.Declared)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("ffi")
	e.ArrStart()
	for _, f := range prog.FFI {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(f.Name)
		e.FieldStart("library")
		e.Str(f.Library)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	_, err := os.Stdout.Write(e.Bytes())
	return err
}

func printIR(prog *ir.Program) {
	for _, fn := range prog.Functions {
		fmt.Printf("function %s:\n", fn.Name)
		for _, instr := range fn.Instrs {
			printInstr(instr)
		}
		fmt.Println()
	}
}

func printInstr(instr ir.Instruction) {
	switch instr.Op {
	case ir.OpLabelMark:
		fmt.Printf("%s:\n", instr.Label)
	case ir.Jump, ir.JumpIf, ir.JumpIfFalse:
		fmt.Printf("  %s %s %s\n", instr.Op, instr.Src1, instr.Label)
	case ir.Call:
		fmt.Printf("  %s = call %s(%v)\n", instr.Dst, instr.Callee, instr.Args)
	case ir.Return:
		fmt.Printf("  return %s\n", instr.Src1)
	default:
		fmt.Printf("  %s = %s %s, %s\n", instr.Dst, instr.Op, instr.Src1, instr.Src2)
	}
}
