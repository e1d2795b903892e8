package token_test

import (
	"fmt"
	"testing"

	"github.com/tl-lang/tlc/internal/token"
)

func TestKindStringKnownAndOutOfRange(t *testing.T) {
	tests := []struct {
		k    token.Kind
		want string
	}{
		{token.Func, "func"},
		{token.Arrow, "->"},
		{token.Include, "#include"},
		{token.KwInt8, "int8"},
		{token.Kind(9999), "kind(9999)"},
		{token.Kind(-1), "kind(-1)"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}

func TestKeywordsMapsSizedIntegersToDistinctKinds(t *testing.T) {
	widths := []string{"int8", "int16", "int32", "int64"}
	seen := map[token.Kind]bool{}
	for _, w := range widths {
		k, ok := token.Keywords[w]
		if !ok {
			t.Fatalf("expected %q to be a registered keyword", w)
		}
		if seen[k] {
			t.Fatalf("expected %q to map to a distinct Kind from the other widths", w)
		}
		seen[k] = true
	}
}

func TestKeywordsDoesNotClaimPlainIdentifiers(t *testing.T) {
	for _, ident := range []string{"foo", "Main", "x1"} {
		if _, ok := token.Keywords[ident]; ok {
			t.Fatalf("expected %q to not be a keyword", ident)
		}
	}
}

func TestTokenStringIncludesPositionAndLexeme(t *testing.T) {
	tok := token.Token{Kind: token.Ident, Lexeme: "count", Line: 3, Col: 7}
	got := tok.String()
	want := fmt.Sprintf("3:7 %s %q", token.Ident, "count")
	if got != want {
		t.Fatalf("Token.String() = %q, want %q", got, want)
	}
}
