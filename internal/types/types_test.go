package types_test

import (
	"testing"

	"github.com/tl-lang/tlc/internal/types"
)

func TestEqualIgnoresWidth(t *testing.T) {
	a := types.IntWithWidth(8)
	b := types.IntWithWidth(32)
	if !a.Equal(b) {
		t.Fatalf("expected int8 and int32 to be Equal (Width is documentation-only)")
	}
}

func TestEqualArrayComparesElemAndSize(t *testing.T) {
	a := types.NewArray(types.TInt, 3)
	b := types.NewArray(types.TInt, 3)
	c := types.NewArray(types.TInt, 4)
	d := types.NewArray(types.TDouble, 3)
	if !a.Equal(b) {
		t.Fatalf("expected equal-shaped arrays to be Equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected arrays of different size to be unequal")
	}
	if a.Equal(d) {
		t.Fatalf("expected arrays of different element type to be unequal")
	}
}

func TestIntWithWidth64OrZeroReturnsSharedTInt(t *testing.T) {
	if types.IntWithWidth(64) != types.TInt {
		t.Fatalf("expected IntWithWidth(64) to return the shared TInt value")
	}
	if types.IntWithWidth(0) != types.TInt {
		t.Fatalf("expected IntWithWidth(0) to return the shared TInt value")
	}
	if types.IntWithWidth(16) == types.TInt {
		t.Fatalf("expected IntWithWidth(16) to return a distinct Type value")
	}
}

func TestAssignabilityRanks(t *testing.T) {
	tests := []struct {
		name string
		dst  *types.Type
		src  *types.Type
		want types.AssignRank
	}{
		{"exact", types.TInt, types.TInt, types.RankExact},
		{"null-to-string", types.TString, types.TNull, types.RankNull},
		{"int-to-double", types.TDouble, types.TInt, types.RankNumeric},
		{"double-to-int", types.TInt, types.TDouble, types.RankNumeric},
		{"int-to-bool", types.TBool, types.TInt, types.RankIntBool},
		{"bool-to-int", types.TInt, types.TBool, types.RankIntBool},
		{"string-to-int", types.TInt, types.TString, types.RankIllegal},
		{"array-to-int", types.NewArray(types.TInt, 3), types.TInt, types.RankIllegal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := types.Assignability(tt.dst, tt.src); got != tt.want {
				t.Fatalf("Assignability(%v, %v) = %v, want %v", tt.dst, tt.src, got, tt.want)
			}
		})
	}
}

func TestPromoteFollowsDoubleFloatIntRank(t *testing.T) {
	if got := types.Promote(types.TInt, types.TInt); got != types.TInt {
		t.Fatalf("int+int should promote to int, got %v", got)
	}
	if got := types.Promote(types.TInt, types.TFloat); got != types.TFloat {
		t.Fatalf("int+float should promote to float, got %v", got)
	}
	if got := types.Promote(types.TFloat, types.TDouble); got != types.TDouble {
		t.Fatalf("float+double should promote to double, got %v", got)
	}
	if got := types.Promote(types.TDouble, types.TInt); got != types.TDouble {
		t.Fatalf("double+int should promote to double, got %v", got)
	}
}

func TestArrayStringFormat(t *testing.T) {
	arr := types.NewArray(types.TInt, 5)
	if got, want := arr.String(), "int[5]"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestNumeric(t *testing.T) {
	for _, ty := range []*types.Type{types.TInt, types.TFloat, types.TDouble} {
		if !ty.Numeric() {
			t.Fatalf("expected %v to be Numeric", ty)
		}
	}
	for _, ty := range []*types.Type{types.TBool, types.TString, types.TVoid, types.TNull} {
		if ty.Numeric() {
			t.Fatalf("expected %v to not be Numeric", ty)
		}
	}
}
