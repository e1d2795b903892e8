// Package types implements TL's closed set of data types and the
// conversion/promotion rules shared by the semantic analyzer, the IR
// builder and both code generators.
package types

import "fmt"

// Kind identifies one of TL's data types.
type Kind int

// The closed set of TL data types.
const (
	Int Kind = iota
	Bool
	Float
	Double
	String
	Array
	Void
	Null
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Float:
		return "float"
	case Double:
		return "double"
	case String:
		return "string"
	case Array:
		return "array"
	case Void:
		return "void"
	case Null:
		return "null"
	default:
		return "?"
	}
}

// Type describes a TL data type. Array types carry their element type and
// constant size; sized-integer keywords (int8/16/32/64) are recorded in
// Width for documentation purposes only — all integers are represented at
// 64 bits regardless of the keyword spelling used to declare them.
type Type struct {
	Kind  Kind
	Elem  *Type
	Size  int // array length, -1 for non-arrays
	Width int // bits named at the declaration site for Int, 0 if unspecified
}

var (
	TInt    = &Type{Kind: Int, Size: -1, Width: 64}
	TBool   = &Type{Kind: Bool, Size: -1}
	TFloat  = &Type{Kind: Float, Size: -1}
	TDouble = &Type{Kind: Double, Size: -1}
	TString = &Type{Kind: String, Size: -1}
	TVoid   = &Type{Kind: Void, Size: -1}
	TNull   = &Type{Kind: Null, Size: -1}
)

// IntWithWidth returns the Int type, recording the sized-integer keyword
// width the programmer wrote (8/16/32/64). It never changes representation.
func IntWithWidth(bits int) *Type {
	if bits == 64 || bits == 0 {
		return TInt
	}
	return &Type{Kind: Int, Size: -1, Width: bits}
}

// NewArray builds a fixed-size array type.
func NewArray(elem *Type, size int) *Type {
	return &Type{Kind: Array, Elem: elem, Size: size}
}

// Numeric reports whether t participates in arithmetic (Int, Float, Double).
func (t *Type) Numeric() bool {
	switch t.Kind {
	case Int, Float, Double:
		return true
	default:
		return false
	}
}

// Equal reports structural equality, ignoring Width (a documentation-only
// field).
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == Array {
		return t.Size == o.Size && t.Elem.Equal(o.Elem)
	}
	return true
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind == Array {
		return fmt.Sprintf("%s[%d]", t.Elem, t.Size)
	}
	return t.Kind.String()
}

// AssignRank classifies how a value of type src may be used where dst is
// expected. It is the single source of truth both for the semantic
// analyzer's assignment checks and for overload-resolution conversion-cost
// scoring.
type AssignRank int

const (
	// RankIllegal: no implicit conversion exists.
	RankIllegal AssignRank = iota
	// RankExact: identical types.
	RankExact
	// RankNull: Null assigned to any target.
	RankNull
	// RankNumeric: numeric-to-numeric widening/narrowing conversion.
	RankNumeric
	// RankIntBool: Int<->Bool conversion.
	RankIntBool
)

// Assignability reports how a value of type src may be assigned/passed to a
// slot of type dst.
func Assignability(dst, src *Type) AssignRank {
	if dst == nil || src == nil {
		return RankIllegal
	}
	if dst.Equal(src) {
		return RankExact
	}
	if src.Kind == Null {
		return RankNull
	}
	if dst.Numeric() && src.Numeric() {
		return RankNumeric
	}
	if (dst.Kind == Int && src.Kind == Bool) || (dst.Kind == Bool && src.Kind == Int) {
		return RankIntBool
	}
	return RankIllegal
}

// Promote computes the result type of a binary arithmetic operator applied
// to operands of type a and b, following Double ≻ Float ≻ Int.
func Promote(a, b *Type) *Type {
	if a.Kind == Double || b.Kind == Double {
		return TDouble
	}
	if a.Kind == Float || b.Kind == Float {
		return TFloat
	}
	return TInt
}
