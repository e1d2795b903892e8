// Package parser implements TL's recursive-descent, operator-precedence
// parser. It consumes tokens from a lexer.Lexer and builds an ast.Program,
// reporting syntax errors to a diag.Sink and recovering from them in
// panic mode so that a single file can surface more than one error per
// run, the same trade-off the teacher's assembler parser makes around its
// own error budget.
package parser

import (
	"strings"

	"github.com/tl-lang/tlc/internal/ast"
	"github.com/tl-lang/tlc/internal/diag"
	"github.com/tl-lang/tlc/internal/lexer"
	"github.com/tl-lang/tlc/internal/token"
	"github.com/tl-lang/tlc/internal/types"
)

// Parser turns a token stream into an ast.Program.
type Parser struct {
	file string
	lex  *lexer.Lexer
	sink *diag.Sink

	cur  token.Token
	prev token.Token
}

// New creates a Parser reading from lex, tagging diagnostics with file.
func New(file string, lex *lexer.Lexer, sink *diag.Sink) *Parser {
	p := &Parser{file: file, lex: lex, sink: sink}
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.prev = p.cur
	for {
		p.cur = p.lex.Next()
		if p.cur.Kind != token.Error {
			break
		}
		// lexer already reported the diagnostic; keep scanning for a
		// usable token so the parser doesn't cascade on it.
	}
}

func (p *Parser) check(k token.Kind) bool { return p.cur.Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) errf(format string, suggestion string) {
	p.sink.Add(p.file, diag.Parser, diag.Error, p.cur.Line, p.cur.Col, format, suggestion)
}

// expect consumes a token of kind k, or reports a syntax error and returns
// the current token without consuming it. It skips no tokens and does not
// suppress later errors; tokens are skipped only by synchronize and
// synchronizeToParamBoundary.
func (p *Parser) expect(k token.Kind, what string) token.Token {
	if p.check(k) {
		t := p.cur
		p.advance()
		return t
	}
	p.errf("expected "+what+", found "+p.cur.Kind.String(), "")
	return p.cur
}

// synchronize discards tokens until a likely statement boundary, the
// teacher's assembler calls this "abort to next label"; here the anchors
// are statement terminators and block/keyword starts.
func (p *Parser) synchronize() {
	for p.cur.Kind != token.EOF {
		if p.prev.Kind == token.Semi || p.prev.Kind == token.RBrace {
			return
		}
		switch p.cur.Kind {
		case token.Func, token.Let, token.If, token.While, token.Return,
			token.Print, token.Break, token.Continue, token.Extern, token.Include:
			return
		}
		p.advance()
	}
}

// Parse consumes the entire token stream and returns the resulting
// program. It never returns an error value: all problems are reported to
// the sink, and the caller checks sink.HasErrors() afterwards.
func (p *Parser) Parse() *ast.Program {
	prog := &ast.Program{}
	for p.cur.Kind != token.EOF {
		if p.sink.Abort() {
			break
		}
		switch p.cur.Kind {
		case token.Include:
			prog.Includes = append(prog.Includes, p.parseInclude())
		case token.Extern:
			if ffi := p.parseFFIBlock(); ffi != nil {
				prog.FFI = append(prog.FFI, ffi...)
			}
		case token.Func:
			if fn := p.parseFunction(); fn != nil {
				prog.Functions = append(prog.Functions, fn)
			}
		default:
			p.errf("expected top-level declaration, found "+p.cur.Kind.String(), "")
			p.advance()
			p.synchronize()
		}
	}
	return prog
}

func (p *Parser) parseInclude() *ast.Include {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	p.advance() // #include
	system := false
	var path string
	switch {
	case p.check(token.StringLit):
		path = p.cur.StrVal
		p.advance()
	case p.check(token.Lt):
		system = true
		p.advance()
		var b strings.Builder
		for !p.check(token.Gt) && !p.check(token.EOF) {
			b.WriteString(p.cur.Lexeme)
			p.advance()
		}
		p.expect(token.Gt, "'>'")
		path = b.String()
	default:
		p.errf("expected include path", "use \"file.tl\" or <file.tl>")
	}
	return &ast.Include{Pos: pos, Path: path, System: system}
}

// parseFFIBlock parses `extern ["convention"] from "lib" { decl; decl; ... }`;
// the convention defaults to "cdecl".
func (p *Parser) parseFFIBlock() []*ast.FFIFunction {
	p.advance() // extern
	convention := "cdecl"
	if p.check(token.StringLit) {
		convention = p.cur.StrVal
		p.advance()
	}
	p.expect(token.From, "'from'")
	lib := p.expect(token.StringLit, "library path string").StrVal
	p.expect(token.LBrace, "'{'")

	var out []*ast.FFIFunction
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		retType := p.parseTypeSpec()
		name := p.expect(token.Ident, "function name").Lexeme
		params := p.parseParamList()
		p.expect(token.Semi, "';'")
		out = append(out, &ast.FFIFunction{
			Pos: pos, Name: name, Library: lib, Convention: convention,
			Params: params, ReturnType: retType,
		})
	}
	p.expect(token.RBrace, "'}'")
	return out
}

func (p *Parser) parseFunction() *ast.Function {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	p.advance() // func
	name := p.expect(token.Ident, "function name").Lexeme
	params := p.parseParamList()

	retType := types.TVoid
	if p.match(token.Arrow) {
		retType = p.parseTypeSpec()
	}

	if p.match(token.Semi) {
		return &ast.Function{Pos: pos, Name: name, Params: params, ReturnType: retType, Declared: true}
	}
	if !p.check(token.LBrace) {
		p.errf("expected '{', found "+p.cur.Kind.String(), "")
		p.synchronize()
		return &ast.Function{Pos: pos, Name: name, Params: params, ReturnType: retType, Body: &ast.Block{Pos: pos}}
	}
	body := p.parseBlock()
	return &ast.Function{Pos: pos, Name: name, Params: params, ReturnType: retType, Body: body}
}

func (p *Parser) parseParamList() []ast.Param {
	p.expect(token.LParen, "'('")
	var params []ast.Param
	for !p.check(token.RParen) && !p.check(token.EOF) {
		if !isTypeStart(p.cur.Kind) {
			p.errf("expected parameter type, found "+p.cur.Kind.String(), "")
			p.synchronizeToParamBoundary()
			break
		}
		t := p.parseTypeSpec()
		n := p.expect(token.Ident, "parameter name").Lexeme
		params = append(params, ast.Param{Name: n, Type: t})
		if !p.match(token.Comma) {
			break
		}
	}
	if !p.match(token.RParen) {
		p.errf("expected ')'", "")
		p.synchronizeToParamBoundary()
		p.match(token.RParen)
	}
	return params
}

func isTypeStart(k token.Kind) bool {
	switch k {
	case token.KwInt, token.KwInt8, token.KwInt16, token.KwInt32, token.KwInt64,
		token.KwBool, token.KwFloat, token.KwDouble, token.KwString, token.KwVoid:
		return true
	default:
		return false
	}
}

// synchronizeToParamBoundary discards tokens until a ')' or a top-level
// declaration keyword, used when a parameter list is malformed badly
// enough that continuing to parse it token-by-token would just cascade.
func (p *Parser) synchronizeToParamBoundary() {
	for p.cur.Kind != token.EOF && p.cur.Kind != token.RParen {
		switch p.cur.Kind {
		case token.Func, token.Extern, token.Include:
			return
		}
		p.advance()
	}
}

// parseTypeSpec parses a base type keyword optionally followed by one or
// more "[N]" array suffixes.
func (p *Parser) parseTypeSpec() *types.Type {
	var base *types.Type
	switch p.cur.Kind {
	case token.KwInt:
		base = types.TInt
	case token.KwInt8:
		base = types.IntWithWidth(8)
	case token.KwInt16:
		base = types.IntWithWidth(16)
	case token.KwInt32:
		base = types.IntWithWidth(32)
	case token.KwInt64:
		base = types.IntWithWidth(64)
	case token.KwBool:
		base = types.TBool
	case token.KwFloat:
		base = types.TFloat
	case token.KwDouble:
		base = types.TDouble
	case token.KwString:
		base = types.TString
	case token.KwVoid:
		base = types.TVoid
	default:
		p.errf("expected type, found "+p.cur.Kind.String(), "")
		base = types.TVoid
		return base
	}
	p.advance()
	for p.check(token.LBracket) {
		p.advance()
		sizeTok := p.expect(token.IntLit, "array size")
		p.expect(token.RBracket, "']'")
		base = types.NewArray(base, int(sizeTok.IntVal))
	}
	return base
}

func (p *Parser) parseBlock() *ast.Block {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	p.expect(token.LBrace, "'{'")
	blk := &ast.Block{Pos: pos}
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.sink.Abort() {
			break
		}
		blk.Stmts = append(blk.Stmts, p.parseStmt())
	}
	p.expect(token.RBrace, "'}'")
	return blk
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur.Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.Let:
		return p.parseVarDecl()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Break:
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		p.advance()
		p.expect(token.Semi, "';'")
		return &ast.Break{Pos: pos}
	case token.Continue:
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		p.advance()
		p.expect(token.Semi, "';'")
		return &ast.Continue{Pos: pos}
	case token.Return:
		return p.parseReturn()
	case token.Print:
		return p.parsePrint()
	case token.Asm:
		return p.parseInlineAsm()
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	p.advance() // let
	name := p.expect(token.Ident, "variable name").Lexeme
	p.expect(token.Colon, "':'")
	t := p.parseTypeSpec()

	if t.Kind == types.Array {
		var init []ast.Expr
		if p.match(token.Assign) {
			p.expect(token.LBrace, "'{'")
			for !p.check(token.RBrace) && !p.check(token.EOF) {
				init = append(init, p.parseExpr())
				if !p.match(token.Comma) {
					break
				}
			}
			p.expect(token.RBrace, "'}'")
		}
		p.expect(token.Semi, "';'")
		return &ast.ArrayDecl{Pos: pos, Name: name, Elem: t.Elem, Size: t.Size, Init: init}
	}

	var init ast.Expr
	if p.match(token.Assign) {
		init = p.parseExpr()
	}
	p.expect(token.Semi, "';'")
	return &ast.VarDecl{Pos: pos, Name: name, Type: t, Init: init}
}

func (p *Parser) parseIf() ast.Stmt {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	p.advance() // if
	p.expect(token.LParen, "'('")
	cond := p.parseExpr()
	p.expect(token.RParen, "')'")
	then := p.parseStmt()
	var els ast.Stmt
	if p.match(token.Else) {
		els = p.parseStmt()
	}
	return &ast.If{Pos: pos, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() ast.Stmt {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	p.advance() // while
	p.expect(token.LParen, "'('")
	cond := p.parseExpr()
	p.expect(token.RParen, "')'")
	body := p.parseStmt()
	return &ast.While{Pos: pos, Cond: cond, Body: body}
}

func (p *Parser) parseReturn() ast.Stmt {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	p.advance() // return
	var val ast.Expr
	if !p.check(token.Semi) {
		val = p.parseExpr()
	}
	p.expect(token.Semi, "';'")
	return &ast.Return{Pos: pos, Value: val}
}

func (p *Parser) parsePrint() ast.Stmt {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	p.advance() // print
	p.expect(token.LParen, "'('")
	var args []ast.Expr
	for !p.check(token.RParen) && !p.check(token.EOF) {
		args = append(args, p.parseExpr())
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "')'")
	p.expect(token.Semi, "';'")
	return &ast.Print{Pos: pos, Args: args}
}

func (p *Parser) parseInlineAsm() ast.Stmt {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	p.advance() // asm
	volatile := p.match(token.Volatile)
	p.expect(token.LParen, "'('")
	code := p.expect(token.StringLit, "assembly template string").StrVal

	var outputs, inputs []ast.AsmOperand
	var clobbers []string
	if p.match(token.Colon) {
		outputs = p.parseAsmOperandList()
		if p.match(token.Colon) {
			inputs = p.parseAsmOperandList()
			if p.match(token.Colon) {
				for !p.check(token.RParen) && !p.check(token.EOF) {
					clobbers = append(clobbers, p.expect(token.StringLit, "clobber register name").StrVal)
					if !p.match(token.Comma) {
						break
					}
				}
			}
		}
	}
	p.expect(token.RParen, "')'")
	p.expect(token.Semi, "';'")
	return &ast.InlineAsm{Pos: pos, Volatile: volatile, Code: code, Outputs: outputs, Inputs: inputs, Clobbers: clobbers}
}

func (p *Parser) parseAsmOperandList() []ast.AsmOperand {
	var ops []ast.AsmOperand
	for !p.check(token.Colon) && !p.check(token.RParen) && !p.check(token.EOF) {
		constraint := p.expect(token.StringLit, "operand constraint string").StrVal
		p.expect(token.LParen, "'('")
		name := p.expect(token.Ident, "operand variable").Lexeme
		p.expect(token.RParen, "')'")
		ops = append(ops, ast.AsmOperand{Constraint: constraint, Name: name})
		if !p.match(token.Comma) {
			break
		}
	}
	return ops
}

// parseExprOrAssignStmt disambiguates `ident = expr;`, `ident[idx] = expr;`
// and a bare expression statement by parsing a full expression first and
// then checking for a following '='.
func (p *Parser) parseExprOrAssignStmt() ast.Stmt {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	e := p.parseExpr()
	if p.match(token.Assign) {
		val := p.parseExpr()
		p.expect(token.Semi, "';'")
		switch target := e.(type) {
		case *ast.VarRef:
			return &ast.Assign{Pos: pos, Name: target.Name, Value: val}
		case *ast.Index:
			return &ast.IndexAssign{Pos: pos, Target: target.Target, Index: target.Index, Value: val}
		default:
			p.errf("invalid assignment target", "")
			return &ast.ExprStmt{Pos: pos, X: e}
		}
	}
	p.expect(token.Semi, "';'")
	return &ast.ExprStmt{Pos: pos, X: e}
}

// ---- Expression parsing, lowest to highest precedence:
//   || -> && -> ==/!= -> relational -> +/- -> *//% -> unary -> postfix

func (p *Parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.check(token.OrOr) {
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		op := p.cur.Lexeme
		p.advance()
		right := p.parseAnd()
		left = &ast.BinOp{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	for p.check(token.AndAnd) {
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		op := p.cur.Lexeme
		p.advance()
		right := p.parseEquality()
		left = &ast.BinOp{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	for p.check(token.Eq) || p.check(token.Ne) {
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		op := p.cur.Lexeme
		p.advance()
		right := p.parseRelational()
		left = &ast.BinOp{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expr {
	left := p.parseAdditive()
	for p.check(token.Lt) || p.check(token.Le) || p.check(token.Gt) || p.check(token.Ge) {
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		op := p.cur.Lexeme
		p.advance()
		right := p.parseAdditive()
		left = &ast.BinOp{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.check(token.Plus) || p.check(token.Minus) {
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		op := p.cur.Lexeme
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinOp{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) {
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		op := p.cur.Lexeme
		p.advance()
		right := p.parseUnary()
		left = &ast.BinOp{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.check(token.Minus) || p.check(token.Bang) {
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		op := p.cur.Lexeme
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryOp{Pos: pos, Op: op, Operand: operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for p.check(token.LBracket) {
		pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
		p.advance()
		idx := p.parseExpr()
		p.expect(token.RBracket, "']'")
		e = &ast.Index{Pos: pos, Target: e, Index: idx}
	}
	return e
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := ast.Pos{Line: p.cur.Line, Col: p.cur.Col}
	switch p.cur.Kind {
	case token.IntLit:
		v := p.cur.IntVal
		p.advance()
		return &ast.Literal{Pos: pos, Kind: ast.LitInt, Int: v}
	case token.FloatLit:
		v := p.cur.FloatVal
		p.advance()
		return &ast.Literal{Pos: pos, Kind: ast.LitFloat, Float: v}
	case token.StringLit:
		v := p.cur.StrVal
		p.advance()
		return &ast.Literal{Pos: pos, Kind: ast.LitString, Str: v}
	case token.True, token.False:
		v := p.cur.BoolVal
		p.advance()
		return &ast.Literal{Pos: pos, Kind: ast.LitBool, Bool: v}
	case token.Null:
		p.advance()
		return &ast.Literal{Pos: pos, Kind: ast.LitNull}
	case token.Ident:
		name := p.cur.Lexeme
		p.advance()
		if p.check(token.LParen) {
			return p.finishCall(pos, name)
		}
		return &ast.VarRef{Pos: pos, Name: name}
	case token.LParen:
		p.advance()
		inner := p.parseExpr()
		p.expect(token.RParen, "')'")
		return &ast.Group{Pos: pos, Inner: inner}
	default:
		p.errf("expected expression, found "+p.cur.Kind.String(), "")
		p.advance()
		return &ast.Literal{Pos: pos, Kind: ast.LitNull}
	}
}

func (p *Parser) finishCall(pos ast.Pos, name string) ast.Expr {
	p.advance() // (
	var args []ast.Expr
	for !p.check(token.RParen) && !p.check(token.EOF) {
		args = append(args, p.parseExpr())
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return &ast.Call{Pos: pos, Name: name, Args: args}
}
