package ast_test

import (
	"testing"

	"github.com/tl-lang/tlc/internal/ast"
)

func TestStmtAlwaysReturnsOnBareReturn(t *testing.T) {
	if !ast.StmtAlwaysReturns(&ast.Return{}) {
		t.Fatalf("a bare return statement must always return")
	}
}

func TestStmtAlwaysReturnsOnEmptyBlockIsFalse(t *testing.T) {
	if ast.StmtAlwaysReturns(&ast.Block{}) {
		t.Fatalf("an empty block never returns")
	}
}

func TestStmtAlwaysReturnsDelegatesToBlockLastStatement(t *testing.T) {
	b := &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{}, &ast.Return{}}}
	if !ast.StmtAlwaysReturns(b) {
		t.Fatalf("a block ending in return must always return")
	}
	b2 := &ast.Block{Stmts: []ast.Stmt{&ast.Return{}, &ast.ExprStmt{}}}
	if ast.StmtAlwaysReturns(b2) {
		t.Fatalf("a block not ending in return must not always return")
	}
}

func TestStmtAlwaysReturnsRequiresBothIfBranches(t *testing.T) {
	ifNoElse := &ast.If{Then: &ast.Return{}}
	if ast.StmtAlwaysReturns(ifNoElse) {
		t.Fatalf("an if with no else must not always return, however its Then looks")
	}

	ifBothReturn := &ast.If{Then: &ast.Return{}, Else: &ast.Return{}}
	if !ast.StmtAlwaysReturns(ifBothReturn) {
		t.Fatalf("an if/else where both branches return must always return")
	}

	ifOneMissing := &ast.If{Then: &ast.Return{}, Else: &ast.ExprStmt{}}
	if ast.StmtAlwaysReturns(ifOneMissing) {
		t.Fatalf("an if/else where only one branch returns must not always return")
	}
}

func TestStmtAlwaysReturnsDefaultsFalseForLoopsAndOthers(t *testing.T) {
	for _, s := range []ast.Stmt{&ast.While{}, &ast.Break{}, &ast.Continue{}, &ast.ExprStmt{}, &ast.Print{}} {
		if ast.StmtAlwaysReturns(s) {
			t.Fatalf("%T must not be considered an always-returning statement", s)
		}
	}
}

func TestCloneExprProducesIndependentValue(t *testing.T) {
	orig := &ast.BinOp{
		Left:  &ast.Literal{Kind: ast.LitInt, Int: 1},
		Right: &ast.Literal{Kind: ast.LitInt, Int: 2},
	}
	cloned := ast.CloneExpr(orig).(*ast.BinOp)
	if cloned == orig {
		t.Fatalf("CloneExpr must allocate a new node")
	}
	clonedLit := cloned.Left.(*ast.Literal)
	clonedLit.Int = 99
	if orig.Left.(*ast.Literal).Int != 1 {
		t.Fatalf("mutating the clone must not affect the original")
	}
}

func TestCloneStmtProducesIndependentBlock(t *testing.T) {
	orig := &ast.Block{Stmts: []ast.Stmt{&ast.Return{}}}
	cloned := ast.CloneStmt(orig).(*ast.Block)
	cloned.Stmts = append(cloned.Stmts, &ast.Break{})
	if len(orig.Stmts) != 1 {
		t.Fatalf("mutating the clone's statement slice must not affect the original")
	}
}
