package lexer_test

import (
	"testing"

	"github.com/tl-lang/tlc/internal/diag"
	"github.com/tl-lang/tlc/internal/lexer"
	"github.com/tl-lang/tlc/internal/token"
)

func allTokens(src string) ([]token.Token, *diag.Sink) {
	sink := diag.NewSink(false)
	lx := lexer.New("t.tl", src, sink)
	var out []token.Token
	for {
		t := lx.Next()
		out = append(out, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return out, sink
}

func TestKeywordsAndIdents(t *testing.T) {
	toks, sink := allTokens("let func if else while x1 _foo")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	want := []token.Kind{token.Let, token.Func, token.If, token.Else, token.While, token.Ident, token.Ident, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	cases := []struct {
		src      string
		wantKind token.Kind
		wantInt  int64
		wantFlt  float64
	}{
		{"42", token.IntLit, 42, 0},
		{"3.14", token.FloatLit, 0, 3.14},
		{"1e3", token.FloatLit, 0, 1000},
		{"2.5e-2", token.FloatLit, 0, 0.025},
	}
	for _, c := range cases {
		toks, sink := allTokens(c.src)
		if sink.HasErrors() {
			t.Fatalf("%q: unexpected errors: %v", c.src, sink.Diagnostics())
		}
		if toks[0].Kind != c.wantKind {
			t.Fatalf("%q: got kind %v, want %v", c.src, toks[0].Kind, c.wantKind)
		}
		if c.wantKind == token.IntLit && toks[0].IntVal != c.wantInt {
			t.Errorf("%q: got int %d, want %d", c.src, toks[0].IntVal, c.wantInt)
		}
		if c.wantKind == token.FloatLit && toks[0].FloatVal != c.wantFlt {
			t.Errorf("%q: got float %v, want %v", c.src, toks[0].FloatVal, c.wantFlt)
		}
	}
}

func TestMalformedExponentIsError(t *testing.T) {
	_, sink := allTokens("1e")
	if !sink.HasErrors() {
		t.Fatalf("expected a lexer error for a malformed exponent")
	}
}

func TestStringEscapes(t *testing.T) {
	toks, sink := allTokens(`"hello\nworld\t\"q\""`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	want := "hello\nworld\t\"q\""
	if toks[0].StrVal != want {
		t.Errorf("got %q, want %q", toks[0].StrVal, want)
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	_, sink := allTokens(`"no closing quote`)
	if !sink.HasErrors() {
		t.Fatalf("expected an error for an unterminated string")
	}
}

func TestUnterminatedBlockCommentIsError(t *testing.T) {
	_, sink := allTokens("/* never closes")
	if !sink.HasErrors() {
		t.Fatalf("expected an error for an unterminated block comment")
	}
}

func TestLineComment(t *testing.T) {
	toks, sink := allTokens("let x // comment\n= 1;")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if toks[0].Kind != token.Let || toks[1].Kind != token.Ident || toks[2].Kind != token.Assign {
		t.Fatalf("comment was not skipped correctly: %v", toks[:3])
	}
}

func TestOperators(t *testing.T) {
	toks, sink := allTokens("-> && || == != <= >= -")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	want := []token.Kind{token.Arrow, token.AndAnd, token.OrOr, token.Eq, token.Ne, token.Le, token.Ge, token.Minus, token.EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestPeekRestoresPosition(t *testing.T) {
	sink := diag.NewSink(false)
	lx := lexer.New("t.tl", "abc def", sink)
	peeked := lx.Peek()
	next := lx.Next()
	if peeked.Lexeme != next.Lexeme {
		t.Fatalf("Peek() returned %q but Next() returned %q", peeked.Lexeme, next.Lexeme)
	}
}

func TestIncludeDirective(t *testing.T) {
	toks, sink := allTokens(`#include "foo.tl"`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if toks[0].Kind != token.Include {
		t.Fatalf("got %v, want Include", toks[0].Kind)
	}
}
