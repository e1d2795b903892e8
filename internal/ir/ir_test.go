package ir_test

import (
	"testing"

	"github.com/tl-lang/tlc/internal/ir"
	"github.com/tl-lang/tlc/internal/types"
)

func TestOperandStringForms(t *testing.T) {
	cases := []struct {
		op   ir.Operand
		want string
	}{
		{ir.Temp(3, types.TInt), "t3"},
		{ir.Var("count", types.TInt), "count"},
		{ir.IntConst(42), "42"},
		{ir.StringConst("hi"), `"hi"`},
		{ir.BoolConst(true), "true"},
		{ir.NullConst(), "null"},
	}
	for _, c := range cases {
		if got := c.op.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestIsConst(t *testing.T) {
	constOperands := []ir.Operand{
		ir.IntConst(1), ir.FloatConst(1.5, types.TDouble),
		ir.StringConst("x"), ir.BoolConst(false), ir.NullConst(),
	}
	for _, o := range constOperands {
		if !o.IsConst() {
			t.Errorf("%v.IsConst() = false, want true", o)
		}
	}
	nonConst := []ir.Operand{ir.Temp(0, types.TInt), ir.Var("x", types.TInt)}
	for _, o := range nonConst {
		if o.IsConst() {
			t.Errorf("%v.IsConst() = true, want false", o)
		}
	}
}

func TestZeroOperandIsDistinguishableSentinel(t *testing.T) {
	// The builder and both backends use (ir.Operand{}) as an "absent
	// operand" sentinel (e.g. a bare `return;` has no Src1). Its Kind is
	// OpTemp (the zero value of OperandKind) and its Temp is 0; the builder
	// numbers real temporaries from 1, so none of them equals the sentinel.
	var zero ir.Operand
	if zero.Kind != ir.OpTemp {
		t.Fatalf("zero value Kind = %v, want OpTemp", zero.Kind)
	}
	if zero != (ir.Operand{}) {
		t.Fatalf("zero value does not equal itself")
	}
}

func TestOpStringKnownAndUnknown(t *testing.T) {
	if ir.Add.String() != "add" {
		t.Errorf("Add.String() = %q, want %q", ir.Add.String(), "add")
	}
	unknown := ir.Op(9999)
	if unknown.String() == "" {
		t.Errorf("unknown op produced empty string")
	}
}
