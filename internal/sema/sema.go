// Package sema implements TL's semantic analyzer: symbol table
// population, overload resolution, and full expression/statement type
// checking. It runs in two passes over the merged program — first every
// function and FFI signature is registered (so forward references and
// mutual recursion type-check), then each function body is walked and
// checked against the registered signatures.
package sema

import (
	"sort"

	"github.com/xrash/smetrics"

	"github.com/tl-lang/tlc/internal/ast"
	"github.com/tl-lang/tlc/internal/diag"
	"github.com/tl-lang/tlc/internal/types"
)

// Analyzer holds the whole-program symbol table and diagnostic sink for
// one compilation.
type Analyzer struct {
	file string
	sink *diag.Sink

	globals *Scope
	// funcs maps a function name to every overload declared for it.
	funcs map[string][]*FuncSymbol

	curFunc    *FuncSymbol
	loopDepth  int
}

// New creates an Analyzer reporting to sink, tagging diagnostics with
// file.
func New(file string, sink *diag.Sink) *Analyzer {
	return &Analyzer{
		file:    file,
		sink:    sink,
		globals: NewScope(nil),
		funcs:   map[string][]*FuncSymbol{},
	}
}

func (a *Analyzer) errf(pos ast.Pos, format string, args ...interface{}) {
	a.sink.Errorf(a.file, diag.Semantic, pos.Line, pos.Col, format, args...)
}

func (a *Analyzer) warnf(pos ast.Pos, format string, args ...interface{}) {
	a.sink.Warnf(a.file, diag.Semantic, pos.Line, pos.Col, format, args...)
}

// Check runs both passes over prog. It never returns an error: all
// findings go to the sink, and the caller inspects sink.HasErrors().
func (a *Analyzer) Check(prog *ast.Program) {
	a.populateSignatures(prog)
	for _, fn := range prog.Functions {
		if fn.Declared {
			continue
		}
		a.checkFunction(fn)
	}
}

// ---- Pass A: signature population ----

func (a *Analyzer) populateSignatures(prog *ast.Program) {
	for _, ffi := range prog.FFI {
		a.addOverload(&FuncSymbol{
			Name: ffi.Name, Params: paramTypes(ffi.Params), ReturnType: ffi.ReturnType,
			IsFFI: true, Line: ffi.Line, Col: ffi.Col,
		})
	}
	for _, fn := range prog.Functions {
		a.addOverload(&FuncSymbol{
			Name: fn.Name, Params: paramTypes(fn.Params), ReturnType: fn.ReturnType,
			Line: fn.Line, Col: fn.Col,
		})
	}
}

func paramTypes(params []ast.Param) []*types.Type {
	out := make([]*types.Type, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

func (a *Analyzer) addOverload(f *FuncSymbol) {
	for _, existing := range a.funcs[f.Name] {
		if sameSignature(existing.Params, f.Params) {
			a.sink.Errorf(a.file, diag.Semantic, f.Line, f.Col,
				"redeclaration of %s with identical parameter types", f.Name)
			return
		}
	}
	a.funcs[f.Name] = append(a.funcs[f.Name], f)
}

func sameSignature(a, b []*types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// ---- Pass B: per-function checking ----

func (a *Analyzer) checkFunction(fn *ast.Function) {
	sym := a.exactOverload(fn.Name, paramTypes(fn.Params))
	a.curFunc = sym
	scope := NewScope(a.globals)
	for _, p := range fn.Params {
		scope.Declare(&VarSymbol{Name: p.Name, Type: p.Type, Line: fn.Line, Col: fn.Col, Used: true})
	}
	a.checkBlock(fn.Body, scope)

	if fn.ReturnType.Kind != types.Void && !ast.StmtAlwaysReturns(fn.Body) {
		a.errf(fn.Pos, "function %q does not return a value on all paths", fn.Name)
	}
	a.curFunc = nil
}

func (a *Analyzer) exactOverload(name string, params []*types.Type) *FuncSymbol {
	for _, f := range a.funcs[name] {
		if sameSignature(f.Params, params) {
			return f
		}
	}
	return nil
}

func (a *Analyzer) checkBlock(b *ast.Block, scope *Scope) {
	inner := NewScope(scope)
	reachable := true
	for _, st := range b.Stmts {
		if !reachable {
			a.warnf(st.Position(), "unreachable code")
		}
		a.checkStmt(st, inner)
		if ast.StmtAlwaysReturns(st) {
			reachable = false
		}
	}
	a.reportUnused(inner)
}

func (a *Analyzer) reportUnused(s *Scope) {
	names := s.Names()
	sort.Strings(names)
	for _, n := range names {
		v, ok := s.LookupLocal(n)
		if ok && !v.Used {
			a.warnf(ast.Pos{Line: v.Line, Col: v.Col}, "variable %q declared but never used", n)
		}
	}
}

func (a *Analyzer) checkStmt(st ast.Stmt, scope *Scope) {
	switch n := st.(type) {
	case *ast.ExprStmt:
		a.checkExpr(n.X, scope)
	case *ast.VarDecl:
		a.checkVarDecl(n, scope)
	case *ast.ArrayDecl:
		a.checkArrayDecl(n, scope)
	case *ast.Assign:
		a.checkAssign(n, scope)
	case *ast.IndexAssign:
		a.checkIndexAssign(n, scope)
	case *ast.If:
		a.checkCondExpr(n.Cond, scope)
		a.checkStmt(n.Then, scope)
		if n.Else != nil {
			a.checkStmt(n.Else, scope)
		}
	case *ast.While:
		a.checkCondExpr(n.Cond, scope)
		a.loopDepth++
		a.checkStmt(n.Body, scope)
		a.loopDepth--
	case *ast.Break:
		if a.loopDepth == 0 {
			a.errf(n.Pos, "'break' outside of a loop")
		}
	case *ast.Continue:
		if a.loopDepth == 0 {
			a.errf(n.Pos, "'continue' outside of a loop")
		}
	case *ast.Return:
		a.checkReturn(n, scope)
	case *ast.Print:
		for _, arg := range n.Args {
			a.checkExpr(arg, scope)
		}
	case *ast.Block:
		a.checkBlock(n, scope)
	case *ast.InlineAsm:
		a.checkInlineAsm(n, scope)
	}
}

func (a *Analyzer) checkCondExpr(e ast.Expr, scope *Scope) {
	t := a.checkExpr(e, scope)
	if t.Kind != types.Void && t.Kind != types.Bool && t.Kind != types.Int {
		a.errf(e.Position(), "condition must be bool or int, got %s", t)
	}
}

func (a *Analyzer) checkVarDecl(n *ast.VarDecl, scope *Scope) {
	if _, dup := scope.LookupLocal(n.Name); dup {
		a.errf(n.Pos, "redeclaration of variable %q in the same scope", n.Name)
	}
	if n.Init != nil {
		it := a.checkExpr(n.Init, scope)
		if rank := types.Assignability(n.Type, it); rank == types.RankIllegal {
			a.errf(n.Init.Position(), "cannot initialize %s variable %q with value of type %s", n.Type, n.Name, it)
		}
	}
	scope.Declare(&VarSymbol{Name: n.Name, Type: n.Type, Line: n.Line, Col: n.Col})
}

func (a *Analyzer) checkArrayDecl(n *ast.ArrayDecl, scope *Scope) {
	if _, dup := scope.LookupLocal(n.Name); dup {
		a.errf(n.Pos, "redeclaration of variable %q in the same scope", n.Name)
	}
	if n.Init != nil && len(n.Init) != n.Size {
		a.errf(n.Pos, "array initializer has %d elements, expected %d", len(n.Init), n.Size)
	}
	for _, e := range n.Init {
		it := a.checkExpr(e, scope)
		if rank := types.Assignability(n.Elem, it); rank == types.RankIllegal {
			a.errf(e.Position(), "cannot use value of type %s in %s array initializer", it, n.Elem)
		}
	}
	scope.Declare(&VarSymbol{Name: n.Name, Type: types.NewArray(n.Elem, n.Size), Line: n.Line, Col: n.Col})
}

func (a *Analyzer) checkAssign(n *ast.Assign, scope *Scope) {
	v, ok := scope.Lookup(n.Name)
	vt := a.checkExpr(n.Value, scope)
	if !ok {
		a.undeclaredVar(n.Pos, n.Name, scope)
		return
	}
	v.Used = true
	if rank := types.Assignability(v.Type, vt); rank == types.RankIllegal {
		a.errf(n.Pos, "cannot assign value of type %s to variable %q of type %s", vt, n.Name, v.Type)
	}
}

func (a *Analyzer) checkIndexAssign(n *ast.IndexAssign, scope *Scope) {
	tt := a.checkExpr(n.Target, scope)
	it := a.checkExpr(n.Index, scope)
	vt := a.checkExpr(n.Value, scope)
	if it.Kind != types.Int {
		a.errf(n.Index.Position(), "array index must be int, got %s", it)
	}
	if tt.Kind != types.Array {
		a.errf(n.Target.Position(), "indexed assignment target is not an array (got %s)", tt)
		return
	}
	if rank := types.Assignability(tt.Elem, vt); rank == types.RankIllegal {
		a.errf(n.Value.Position(), "cannot assign value of type %s to array element of type %s", vt, tt.Elem)
	}
}

func (a *Analyzer) checkReturn(n *ast.Return, scope *Scope) {
	want := types.TVoid
	if a.curFunc != nil {
		want = a.curFunc.ReturnType
	}
	if n.Value == nil {
		if want.Kind != types.Void {
			a.errf(n.Pos, "missing return value, function returns %s", want)
		}
		return
	}
	vt := a.checkExpr(n.Value, scope)
	if want.Kind == types.Void {
		a.errf(n.Pos, "void function must not return a value")
		return
	}
	if rank := types.Assignability(want, vt); rank == types.RankIllegal {
		a.errf(n.Value.Position(), "cannot return value of type %s from function returning %s", vt, want)
	}
}

func (a *Analyzer) checkInlineAsm(n *ast.InlineAsm, scope *Scope) {
	for _, out := range n.Outputs {
		if v, ok := scope.Lookup(out.Name); ok {
			v.Used = true
		} else {
			a.undeclaredVar(n.Pos, out.Name, scope)
		}
	}
	for _, in := range n.Inputs {
		if v, ok := scope.Lookup(in.Name); ok {
			v.Used = true
		} else {
			a.undeclaredVar(n.Pos, in.Name, scope)
		}
	}
}

// ---- Expression checking ----

func (a *Analyzer) checkExpr(e ast.Expr, scope *Scope) *types.Type {
	switch n := e.(type) {
	case *ast.Literal:
		return literalType(n)
	case *ast.VarRef:
		v, ok := scope.Lookup(n.Name)
		if !ok {
			a.undeclaredVar(n.Pos, n.Name, scope)
			return types.TVoid
		}
		v.Used = true
		return v.Type
	case *ast.Group:
		return a.checkExpr(n.Inner, scope)
	case *ast.UnaryOp:
		return a.checkUnary(n, scope)
	case *ast.BinOp:
		return a.checkBinOp(n, scope)
	case *ast.Index:
		return a.checkIndex(n, scope)
	case *ast.Call:
		return a.checkCall(n, scope)
	default:
		return types.TVoid
	}
}

func literalType(n *ast.Literal) *types.Type {
	switch n.Kind {
	case ast.LitInt:
		return types.TInt
	case ast.LitFloat:
		return types.TDouble
	case ast.LitBool:
		return types.TBool
	case ast.LitString:
		return types.TString
	default:
		return types.TNull
	}
}

func (a *Analyzer) checkUnary(n *ast.UnaryOp, scope *Scope) *types.Type {
	t := a.checkExpr(n.Operand, scope)
	switch n.Op {
	case "-":
		if !t.Numeric() {
			a.errf(n.Pos, "unary '-' requires a numeric operand, got %s", t)
			return types.TInt
		}
		return t
	case "!":
		if t.Kind != types.Bool && t.Kind != types.Int {
			a.errf(n.Pos, "unary '!' requires a bool or int operand, got %s", t)
		}
		return types.TBool
	default:
		return types.TVoid
	}
}

func (a *Analyzer) checkBinOp(n *ast.BinOp, scope *Scope) *types.Type {
	lt := a.checkExpr(n.Left, scope)
	rt := a.checkExpr(n.Right, scope)

	switch n.Op {
	case "&&", "||":
		return types.TBool
	case "==", "!=":
		if lt.Kind != rt.Kind && !(lt.Numeric() && rt.Numeric()) {
			a.errf(n.Pos, "cannot compare %s with %s", lt, rt)
		}
		return types.TBool
	case "<", "<=", ">", ">=":
		if !lt.Numeric() || !rt.Numeric() {
			a.errf(n.Pos, "relational operator requires numeric operands, got %s and %s", lt, rt)
		}
		return types.TBool
	case "+":
		if lt.Kind == types.String || rt.Kind == types.String {
			if lt.Kind != types.String || rt.Kind != types.String {
				a.errf(n.Pos, "string concatenation requires both operands to be string, got %s and %s", lt, rt)
			}
			return types.TString
		}
		if !lt.Numeric() || !rt.Numeric() {
			a.errf(n.Pos, "'+' requires numeric or string operands, got %s and %s", lt, rt)
			return types.TInt
		}
		return types.Promote(lt, rt)
	case "-", "*", "/", "%":
		if !lt.Numeric() || !rt.Numeric() {
			a.errf(n.Pos, "arithmetic operator requires numeric operands, got %s and %s", lt, rt)
			return types.TInt
		}
		return types.Promote(lt, rt)
	default:
		return types.TVoid
	}
}

func (a *Analyzer) checkIndex(n *ast.Index, scope *Scope) *types.Type {
	tt := a.checkExpr(n.Target, scope)
	it := a.checkExpr(n.Index, scope)
	if it.Kind != types.Int {
		a.errf(n.Index.Position(), "array index must be int, got %s", it)
	}
	if tt.Kind != types.Array {
		a.errf(n.Target.Position(), "cannot index non-array type %s", tt)
		return types.TVoid
	}
	return tt.Elem
}

func (a *Analyzer) checkCall(n *ast.Call, scope *Scope) *types.Type {
	overloads, ok := a.funcs[n.Name]
	if !ok {
		a.undeclaredFunc(n.Pos, n.Name)
		for _, arg := range n.Args {
			a.checkExpr(arg, scope)
		}
		return types.TVoid
	}
	argTypes := make([]*types.Type, len(n.Args))
	for i, arg := range n.Args {
		argTypes[i] = a.checkExpr(arg, scope)
	}
	best, ambiguous := resolveOverload(overloads, argTypes)
	if best == nil {
		if ambiguous {
			a.errf(n.Pos, "call to %q is ambiguous among %d overloads", n.Name, len(overloads))
		} else {
			a.errf(n.Pos, "no overload of %q matches argument types %s", n.Name, typesString(argTypes))
		}
		return types.TVoid
	}
	return best.ReturnType
}

func typesString(ts []*types.Type) string {
	s := "("
	for i, t := range ts {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s + ")"
}

// resolveOverload picks the overload with the lowest total conversion
// cost across parameters, erroring on ties. Candidates whose arity
// doesn't match or that contain an illegal conversion are excluded
// outright. Cost ranks, lowest first: Exact, IntBool, Numeric, Null.
func resolveOverload(overloads []*FuncSymbol, args []*types.Type) (best *FuncSymbol, ambiguous bool) {
	bestCost := -1
	var tied []*FuncSymbol
	for _, f := range overloads {
		if len(f.Params) != len(args) {
			continue
		}
		cost := 0
		ok := true
		for i, p := range f.Params {
			rank := types.Assignability(p, args[i])
			if rank == types.RankIllegal {
				ok = false
				break
			}
			cost += rankCost(rank)
		}
		if !ok {
			continue
		}
		switch {
		case bestCost == -1 || cost < bestCost:
			bestCost = cost
			tied = []*FuncSymbol{f}
		case cost == bestCost:
			tied = append(tied, f)
		}
	}
	if len(tied) == 1 {
		return tied[0], false
	}
	if len(tied) > 1 {
		return nil, true
	}
	return nil, false
}

func rankCost(r types.AssignRank) int {
	switch r {
	case types.RankExact:
		return 0
	case types.RankIntBool:
		return 1
	case types.RankNumeric:
		return 2
	case types.RankNull:
		return 3
	default:
		return 100
	}
}

// undeclaredVar reports an unknown identifier, suggesting the closest
// in-scope name by Levenshtein distance when one is close enough.
func (a *Analyzer) undeclaredVar(pos ast.Pos, name string, scope *Scope) {
	suggestion := closestName(name, scope.Names())
	if suggestion != "" {
		a.sink.Add(a.file, diag.Semantic, diag.Error, pos.Line, pos.Col,
			"undeclared variable "+name, "did you mean '"+suggestion+"'?")
		return
	}
	a.errf(pos, "undeclared variable %s", name)
}

func (a *Analyzer) undeclaredFunc(pos ast.Pos, name string) {
	var names []string
	for n := range a.funcs {
		names = append(names, n)
	}
	suggestion := closestName(name, names)
	if suggestion != "" {
		a.sink.Add(a.file, diag.Semantic, diag.Error, pos.Line, pos.Col,
			"call to undeclared function "+name, "did you mean '"+suggestion+"'?")
		return
	}
	a.errf(pos, "call to undeclared function %s", name)
}

// closestName returns the candidate within edit distance 2 of name that is
// closest to it, or "" if none qualifies.
func closestName(name string, candidates []string) string {
	best := ""
	bestDist := 3 // anything >= 3 is not worth suggesting
	seen := map[string]bool{}
	for _, c := range candidates {
		if c == name || seen[c] {
			continue
		}
		seen[c] = true
		d := smetrics.WagnerFischer(name, c, 1, 1, 1)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}
