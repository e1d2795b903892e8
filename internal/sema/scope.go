package sema

import (
	"github.com/dolthub/swiss"

	"github.com/tl-lang/tlc/internal/types"
)

// VarSymbol is a declared local or global variable.
type VarSymbol struct {
	Name  string
	Type  *types.Type
	Used  bool
	Line  int
	Col   int
}

// FuncSymbol is one overload of a function name: TL allows several
// functions to share a name provided their parameter-type tuples differ
// (spec overload resolution).
type FuncSymbol struct {
	Name       string
	Params     []*types.Type
	ReturnType *types.Type
	IsFFI      bool
	Line       int
	Col        int
}

// Scope is one lexical block's variable table, backed by a swiss-table
// hash map for fast lookup in hot loops over deeply nested blocks.
type Scope struct {
	parent *Scope
	vars   *swiss.Map[string, *VarSymbol]
}

// NewScope creates a child scope of parent (nil for the outermost
// function-body scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: swiss.NewMap[string, *VarSymbol](8)}
}

// Declare adds a new variable to this scope. It does not check for
// shadowing of an outer scope — TL permits shadowing — only for a
// duplicate within the same scope, which the caller checks separately via
// LookupLocal.
func (s *Scope) Declare(v *VarSymbol) {
	s.vars.Put(v.Name, v)
}

// LookupLocal finds a variable declared directly in this scope, ignoring
// parents.
func (s *Scope) LookupLocal(name string) (*VarSymbol, bool) {
	return s.vars.Get(name)
}

// Lookup finds a variable in this scope or any ancestor.
func (s *Scope) Lookup(name string) (*VarSymbol, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Names returns every variable name visible from this scope, nearest
// first; used to build "did you mean" candidate lists.
func (s *Scope) Names() []string {
	var out []string
	for sc := s; sc != nil; sc = sc.parent {
		sc.vars.Iter(func(k string, _ *VarSymbol) bool {
			out = append(out, k)
			return false
		})
	}
	return out
}
