package frontend

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"strconv"

	"golang.org/x/tools/go/types/typeutil"

	"github.com/mpyw/e2immu/internal/model"
)

// translator turns one function body into model statements.
type translator struct {
	b       *builder
	method  *model.MethodInfo
	fn      *ast.FuncDecl
	results []*types.Var // named results, in order
	// lambdas numbers the function literals of the top-level method.
	lambdas *int
	// bound is set once a local stands for the receiver under construction.
	bound bool
}

func newTranslator(b *builder, m *model.MethodInfo, fd *ast.FuncDecl) *translator {
	t := &translator{b: b, method: m, fn: fd, lambdas: new(int)}
	t.namedResults(fd.Type)
	return t
}

func (t *translator) info() *types.Info { return t.b.in.Info }

func (t *translator) namedResults(ft *ast.FuncType) {
	if ft.Results == nil {
		return
	}
	for _, f := range ft.Results.List {
		for _, name := range f.Names {
			if v, ok := t.info().Defs[name].(*types.Var); ok {
				t.results = append(t.results, v)
			}
		}
	}
}

// translate sets the body of a method or constructor.
func (t *translator) translate() {
	t.method.Body = t.body(t.fn.Body)
}

// body translates a function body, zeroing named results first.
func (t *translator) body(b *ast.BlockStmt) *model.Block {
	out := &model.Block{Position: b.Pos()}
	for _, r := range t.results {
		if v := t.variable(r); v != nil {
			out.Statements = append(out.Statements, &model.Assignment{Target: v, Value: t.zero(r.Type(), r.Name()), Position: r.Pos()})
		}
	}
	t.stmts(out, b.List)
	return out
}

// =============================================================================
// Variables
// =============================================================================

// variable returns the variable of obj, creating a local on first sight.
// Package-level variables and struct fields are not variables.
func (t *translator) variable(obj *types.Var) model.Variable {
	if v, ok := t.b.vars[obj]; ok {
		return v
	}
	if obj == nil || obj.IsField() || obj.Pkg() == nil || obj.Parent() == obj.Pkg().Scope() {
		return nil
	}
	v := model.LocalVariable{
		Name:   obj.Name(),
		ID:     strconv.Itoa(int(obj.Pos())),
		Method: t.method,
		Typ:    t.b.typeRef(obj.Type()),
	}
	t.b.vars[obj] = v
	return v
}

func (t *translator) identVar(id *ast.Ident) model.Variable {
	obj, ok := t.info().ObjectOf(id).(*types.Var)
	if !ok {
		return nil
	}
	return t.variable(obj)
}

func (t *translator) zero(tt types.Type, id string) model.Expression {
	switch u := tt.Underlying().(type) {
	case *types.Basic:
		switch {
		case u.Info()&types.IsBoolean != 0:
			return model.False
		case u.Info()&types.IsInteger != 0:
			return model.IntConstant{Value: 0}
		case u.Info()&types.IsString != 0:
			return model.StringConstant{}
		}
	case *types.Pointer, *types.Slice, *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return model.NullConstant{}
	}
	return model.Instance{Typ: t.b.typeRef(tt), ID: "zero:" + id}
}

// =============================================================================
// Statements
// =============================================================================

func (t *translator) block(b *ast.BlockStmt) *model.Block {
	out := &model.Block{Position: b.Pos()}
	t.stmts(out, b.List)
	return out
}

func (t *translator) stmts(out *model.Block, list []ast.Stmt) {
	for _, s := range list {
		t.stmt(out, s, "")
	}
}

func emit(out *model.Block, s model.Statement) { out.Statements = append(out.Statements, s) }

func (t *translator) stmt(out *model.Block, s ast.Stmt, label string) {
	switch s := s.(type) {
	case *ast.BlockStmt:
		emit(out, t.block(s))
	case *ast.ExprStmt:
		if call, ok := ast.Unparen(s.X).(*ast.CallExpr); ok && t.isBuiltin(call, "panic") && len(call.Args) == 1 {
			emit(out, &model.Throw{Value: t.expr(call.Args[0]), Position: s.Pos()})
			return
		}
		emit(out, &model.ExpressionStatement{Expr: t.expr(s.X), Position: s.Pos()})
	case *ast.AssignStmt:
		t.assign(out, s)
	case *ast.IncDecStmt:
		t.store(out, s.X, t.opaque(s, t.expr(s.X)), s.Pos())
	case *ast.DeclStmt:
		t.decl(out, s)
	case *ast.ReturnStmt:
		t.ret(out, s)
	case *ast.IfStmt:
		t.ifStmt(out, s)
	case *ast.ForStmt:
		t.forStmt(out, s, label)
	case *ast.RangeStmt:
		t.rangeStmt(out, s)
	case *ast.SwitchStmt:
		t.switchStmt(out, s)
	case *ast.TypeSwitchStmt:
		t.typeSwitch(out, s)
	case *ast.SelectStmt:
		t.selectStmt(out, s)
	case *ast.GoStmt:
		emit(out, &model.ExpressionStatement{Expr: t.expr(s.Call), Position: s.Pos()})
	case *ast.DeferStmt:
		emit(out, &model.ExpressionStatement{Expr: t.expr(s.Call), Position: s.Pos()})
	case *ast.SendStmt:
		ch := t.expr(s.Chan)
		if v, ok := ch.(model.VariableExpression); ok {
			emit(out, &model.ContentAssignment{Target: v.Variable, Value: t.expr(s.Value), Position: s.Pos()})
			return
		}
		emit(out, &model.ExpressionStatement{Expr: t.opaque(s, ch, t.expr(s.Value)), Position: s.Pos()})
	case *ast.LabeledStmt:
		t.stmt(out, s.Stmt, s.Label.Name)
	}
}

func (t *translator) isBuiltin(call *ast.CallExpr, name string) bool {
	id, ok := ast.Unparen(call.Fun).(*ast.Ident)
	if !ok || id.Name != name {
		return false
	}
	_, ok = t.info().Uses[id].(*types.Builtin)
	return ok
}

func (t *translator) assign(out *model.Block, s *ast.AssignStmt) {
	switch {
	case s.Tok != token.ASSIGN && s.Tok != token.DEFINE:
		// x += y and friends
		rhs := t.expr(s.Rhs[0])
		t.store(out, s.Lhs[0], t.opaque(s, t.expr(s.Lhs[0]), rhs), s.Pos())
	case len(s.Lhs) == len(s.Rhs):
		for i, lhs := range s.Lhs {
			if t.bind(out, lhs, s.Rhs[i]) {
				continue
			}
			t.store(out, lhs, t.expr(s.Rhs[i]), s.Pos())
		}
	default:
		// v, ok := m[k]; v, err := f()
		t.store(out, s.Lhs[0], t.expr(s.Rhs[0]), s.Pos())
		for i, lhs := range s.Lhs[1:] {
			t.store(out, lhs, t.instance(lhs, s.Pos(), i+1), s.Pos())
		}
	}
}

func (t *translator) instance(e ast.Expr, pos token.Pos, i int) model.Expression {
	return model.Instance{
		Typ: t.b.typeRef(t.info().TypeOf(e)),
		ID:  strconv.Itoa(int(pos)) + "." + strconv.Itoa(i),
	}
}

// store writes value into the place lhs denotes.
func (t *translator) store(out *model.Block, lhs ast.Expr, value model.Expression, pos token.Pos) {
	lhs = ast.Unparen(lhs)
	discard := func() {
		emit(out, &model.ExpressionStatement{Expr: value, Position: pos})
	}
	switch l := lhs.(type) {
	case *ast.Ident:
		v := t.identVar(l)
		if l.Name == "_" || v == nil {
			discard()
			return
		}
		emit(out, &model.Assignment{Target: v, Value: value, Position: pos})
	case *ast.SelectorExpr:
		ref, ok := t.expr(l).(model.VariableExpression)
		if !ok {
			t.storeContent(out, l.X, value, pos)
			return
		}
		fr, ok := ref.Variable.(model.FieldReference)
		switch {
		case !ok:
			emit(out, &model.Assignment{Target: ref.Variable, Value: value, Position: pos})
		case fr.IsThis():
			emit(out, &model.Assignment{Target: fr, Value: value, Position: pos})
		default:
			if owner, isField := model.IsFieldOfThis(fr.Scope); isField && owner.Type.IsValue() {
				// this.pt.x = v rewrites the struct value held by this.pt
				emit(out, &model.Assignment{Target: fr.Scope, Value: t.opaque(l, model.Ref(fr.Scope), value), Position: pos})
				return
			}
			emit(out, &model.ContentAssignment{Target: fr.Scope, Value: value, Position: pos})
		}
	case *ast.IndexExpr, *ast.StarExpr:
		var x ast.Expr
		if ie, ok := l.(*ast.IndexExpr); ok {
			x = ie.X
		} else {
			x = l.(*ast.StarExpr).X
		}
		t.storeContent(out, x, value, pos)
	default:
		discard()
	}
}

// storeContent writes value somewhere inside the content of base, e.g.
// t.items[i].n = v modifies the content of t.items.
func (t *translator) storeContent(out *model.Block, base ast.Expr, value model.Expression, pos token.Pos) {
	if root := t.contentRoot(base); root != nil {
		emit(out, &model.ContentAssignment{Target: root, Value: value, Position: pos})
		return
	}
	emit(out, &model.ExpressionStatement{Expr: value, Position: pos})
}

// contentRoot follows selectors, index and slice expressions and
// dereferences down to the first variable. It returns nil when the chain
// starts elsewhere, e.g. at a call result.
func (t *translator) contentRoot(e ast.Expr) model.Variable {
	for {
		e = ast.Unparen(e)
		switch x := e.(type) {
		case *ast.Ident:
			return t.identVar(x)
		case *ast.SelectorExpr:
			if ref, ok := t.expr(x).(model.VariableExpression); ok {
				return ref.Variable
			}
			e = x.X
		case *ast.IndexExpr:
			e = x.X
		case *ast.IndexListExpr:
			e = x.X
		case *ast.SliceExpr:
			e = x.X
		case *ast.StarExpr:
			e = x.X
		default:
			return nil
		}
	}
}

func (t *translator) decl(out *model.Block, s *ast.DeclStmt) {
	gd, ok := s.Decl.(*ast.GenDecl)
	if !ok || gd.Tok != token.VAR {
		return
	}
	for _, spec := range gd.Specs {
		vs := spec.(*ast.ValueSpec)
		for i, name := range vs.Names {
			switch {
			case len(vs.Values) == len(vs.Names):
				if !t.bind(out, name, vs.Values[i]) {
					t.store(out, name, t.expr(vs.Values[i]), name.Pos())
				}
			case len(vs.Values) == 1:
				value := t.instance(name, name.Pos(), i)
				if i == 0 {
					value = t.expr(vs.Values[0])
				}
				t.store(out, name, value, name.Pos())
			default:
				if t.bindZero(out, name) {
					continue
				}
				if obj, ok := t.info().Defs[name].(*types.Var); ok {
					t.store(out, name, t.zero(obj.Type(), name.Name), name.Pos())
				}
			}
		}
	}
}

func (t *translator) ret(out *model.Block, s *ast.ReturnStmt) {
	var value model.Expression
	switch {
	case !t.method.HasResult():
	case len(s.Results) == 0 && len(t.results) > 0:
		if v := t.variable(t.results[0]); v != nil {
			value = model.Ref(v)
		}
	case len(s.Results) > 0:
		if lit, ok := t.ownerLiteral(s.Results[0]); ok && t.method.Constructor && !t.bound {
			t.fieldInits(out, lit, s.Pos())
			value = model.Ref(model.This{TypeInfo: t.method.Owner})
		} else {
			value = t.expr(s.Results[0])
		}
	}
	emit(out, &model.Return{Value: value, Position: s.Pos()})
}

// =============================================================================
// Construction
// =============================================================================

// ownerLiteral matches &T{...}, T{...} and new(T) for the constructed type.
// The literal is nil for new(T).
func (t *translator) ownerLiteral(e ast.Expr) (*ast.CompositeLit, bool) {
	if t.method.Owner == nil {
		return nil, false
	}
	e = ast.Unparen(e)
	if u, ok := e.(*ast.UnaryExpr); ok && u.Op == token.AND {
		e = ast.Unparen(u.X)
	}
	switch e := e.(type) {
	case *ast.CompositeLit:
		if t.b.isUnitType(t.info().TypeOf(e), t.method.Owner) {
			return e, true
		}
	case *ast.CallExpr:
		if t.isBuiltin(e, "new") && len(e.Args) == 1 && t.b.isUnitType(t.info().TypeOf(e.Args[0]), t.method.Owner) {
			return nil, true
		}
	}
	return nil, false
}

// bind makes the first local of a constructor holding a fresh T stand for
// the receiver, and turns the literal into field assignments.
func (t *translator) bind(out *model.Block, lhs, rhs ast.Expr) bool {
	if !t.method.Constructor || t.method.IsLambda() || t.bound {
		return false
	}
	id, ok := ast.Unparen(lhs).(*ast.Ident)
	if !ok {
		return false
	}
	obj, ok := t.info().ObjectOf(id).(*types.Var)
	if !ok || t.variable(obj) == nil {
		return false
	}
	lit, ok := t.ownerLiteral(rhs)
	if !ok {
		return false
	}
	t.bindThis(obj)
	t.fieldInits(out, lit, rhs.Pos())
	return true
}

// bindZero handles var t T.
func (t *translator) bindZero(out *model.Block, name *ast.Ident) bool {
	if !t.method.Constructor || t.method.IsLambda() || t.bound {
		return false
	}
	obj, ok := t.info().Defs[name].(*types.Var)
	if !ok {
		return false
	}
	if _, isPtr := types.Unalias(obj.Type()).(*types.Pointer); isPtr || !t.b.isUnitType(obj.Type(), t.method.Owner) {
		return false
	}
	t.bindThis(obj)
	t.fieldInits(out, nil, name.Pos())
	return true
}

func (t *translator) bindThis(obj *types.Var) {
	t.bound = true
	t.b.vars[obj] = model.This{TypeInfo: t.method.Owner}
}

// fieldInits assigns every field of the receiver: the value given in the
// literal, or the zero value.
func (t *translator) fieldInits(out *model.Block, lit *ast.CompositeLit, pos token.Pos) {
	given := make(map[*model.FieldInfo]ast.Expr)
	if lit != nil {
		fields := t.method.Owner.Fields
		for i, elt := range lit.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				if id, ok := kv.Key.(*ast.Ident); ok {
					if fv, ok := t.info().ObjectOf(id).(*types.Var); ok && t.b.fields[fv] != nil {
						given[t.b.fields[fv]] = kv.Value
					}
				}
				continue
			}
			if i < len(fields) {
				given[fields[i]] = elt
			}
		}
	}
	for _, f := range t.method.Owner.Fields {
		var value model.Expression
		if e, ok := given[f]; ok {
			value = t.expr(e)
		} else {
			value = t.zeroOf(f)
		}
		emit(out, &model.Assignment{Target: model.FieldOfThis(f), Value: value, Position: pos})
	}
}

func (t *translator) zeroOf(f *model.FieldInfo) model.Expression {
	if fv := t.b.fieldVars[f]; fv != nil {
		return t.zero(fv.Type(), f.Name)
	}
	return model.Instance{Typ: f.Type, ID: "zero:" + f.Name}
}

// =============================================================================
// Control flow
// =============================================================================

func (t *translator) ifStmt(out *model.Block, s *ast.IfStmt) {
	if s.Init != nil {
		t.stmt(out, s.Init, "")
	}
	node := &model.If{Condition: t.expr(s.Cond), Then: t.block(s.Body), Position: s.Pos()}
	switch e := s.Else.(type) {
	case *ast.BlockStmt:
		node.Else = t.block(e)
	case *ast.IfStmt:
		node.Else = &model.Block{Position: e.Pos()}
		t.ifStmt(node.Else, e)
	}
	emit(out, node)
}

func (t *translator) forStmt(out *model.Block, s *ast.ForStmt, label string) {
	if s.Init != nil {
		t.stmt(out, s.Init, "")
	}
	body := t.block(s.Body)
	if s.Post != nil {
		t.stmt(body, s.Post, "")
	}
	var cond model.Expression
	switch {
	case s.Cond != nil:
		cond = t.expr(s.Cond)
	case breaks(s.Body, label):
		// for { ... break ... } may stop after any iteration
		cond = model.Opaque{Text: "for@" + strconv.Itoa(int(s.Pos()))}
	}
	emit(out, &model.Loop{Condition: cond, Body: body, Position: s.Pos()})
}

// breaks reports whether body leaves its loop through a break.
func breaks(body *ast.BlockStmt, label string) bool {
	found := false
	var walk func(n ast.Node, inner bool)
	walk = func(root ast.Node, inner bool) {
		ast.Inspect(root, func(n ast.Node) bool {
			if found || n == nil {
				return false
			}
			switch n := n.(type) {
			case *ast.FuncLit:
				return false
			case *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
				if n != root {
					walk(n, true)
					return false
				}
			case *ast.BranchStmt:
				if n.Tok == token.BREAK && ((n.Label == nil && !inner) || (n.Label != nil && n.Label.Name == label)) {
					found = true
				}
			}
			return true
		})
	}
	walk(body, false)
	return found
}

func (t *translator) rangeStmt(out *model.Block, s *ast.RangeStmt) {
	x := t.expr(s.X)
	body := &model.Block{Position: s.Body.Pos()}
	var key model.Expression = model.Instance{Typ: model.Basic("int"), ID: strconv.Itoa(int(s.Pos())) + ".key"}
	if s.Key != nil && !isBlank(s.Key) {
		key = t.instance(s.Key, s.Pos(), 0)
		t.store(body, s.Key, key, s.Pos())
		if id, ok := s.Key.(*ast.Ident); ok {
			if v := t.identVar(id); v != nil {
				key = model.Ref(v)
			}
		}
	}
	if s.Value != nil && !isBlank(s.Value) {
		elem := t.b.typeRef(t.info().TypeOf(s.Value))
		t.store(body, s.Value, model.Index{Collection: x, Key: key, Elem: elem}, s.Pos())
	}
	t.stmts(body, s.Body.List)
	cond := model.Opaque{Text: "range@" + strconv.Itoa(int(s.Pos())), Parts: []model.Expression{x}}
	emit(out, &model.Loop{Condition: cond, Body: body, Position: s.Pos()})
}

func isBlank(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == "_"
}

// arm is one branch of a switch or select.
type arm struct {
	cond model.Expression
	body *model.Block
}

// chain emits arms as an if/else-if chain ending in the default branch.
func chain(out *model.Block, arms []arm, def *model.Block, pos token.Pos) {
	if len(arms) == 0 {
		if def != nil {
			emit(out, def)
		}
		return
	}
	els := def
	for i := len(arms) - 1; i >= 0; i-- {
		node := &model.If{Condition: arms[i].cond, Then: arms[i].body, Else: els, Position: arms[i].body.Position}
		if i == 0 {
			node.Position = pos
			emit(out, node)
			return
		}
		els = &model.Block{Statements: []model.Statement{node}, Position: node.Position}
	}
}

func (t *translator) caseBody(cc *ast.CaseClause) *model.Block {
	b := &model.Block{Position: cc.Colon}
	t.stmts(b, cc.Body)
	return b
}

func (t *translator) switchStmt(out *model.Block, s *ast.SwitchStmt) {
	if s.Init != nil {
		t.stmt(out, s.Init, "")
	}
	var tag model.Expression
	if s.Tag != nil {
		tag = t.expr(s.Tag)
	}
	var arms []arm
	var def *model.Block
	for _, c := range s.Body.List {
		cc := c.(*ast.CaseClause)
		if cc.List == nil {
			def = t.caseBody(cc)
			continue
		}
		conds := make([]model.Expression, len(cc.List))
		for i, e := range cc.List {
			conds[i] = t.expr(e)
			if tag != nil {
				conds[i] = model.NewEquals(tag, conds[i])
			}
		}
		arms = append(arms, arm{cond: model.NewOr(conds...), body: t.caseBody(cc)})
	}
	chain(out, arms, def, s.Pos())
}

func (t *translator) typeSwitch(out *model.Block, s *ast.TypeSwitchStmt) {
	if s.Init != nil {
		t.stmt(out, s.Init, "")
	}
	var x ast.Expr
	switch a := s.Assign.(type) {
	case *ast.AssignStmt:
		x = a.Rhs[0].(*ast.TypeAssertExpr).X
	case *ast.ExprStmt:
		x = a.X.(*ast.TypeAssertExpr).X
	}
	subject := t.expr(x)
	var arms []arm
	var def *model.Block
	for _, c := range s.Body.List {
		cc := c.(*ast.CaseClause)
		body := &model.Block{Position: cc.Colon}
		if obj, ok := t.info().Implicits[cc].(*types.Var); ok {
			if v := t.variable(obj); v != nil {
				emit(body, &model.Assignment{Target: v, Value: subject, Position: cc.Colon})
			}
		}
		t.stmts(body, cc.Body)
		if cc.List == nil {
			def = body
			continue
		}
		arms = append(arms, arm{cond: t.opaque(cc, subject), body: body})
	}
	chain(out, arms, def, s.Pos())
}

func (t *translator) selectStmt(out *model.Block, s *ast.SelectStmt) {
	var arms []arm
	var def *model.Block
	for _, c := range s.Body.List {
		cc := c.(*ast.CommClause)
		body := &model.Block{Position: cc.Colon}
		if cc.Comm != nil {
			t.stmt(body, cc.Comm, "")
		}
		t.stmts(body, cc.Body)
		if cc.Comm == nil {
			def = body
			continue
		}
		arms = append(arms, arm{cond: model.Opaque{Text: "select@" + strconv.Itoa(int(cc.Pos()))}, body: body})
	}
	chain(out, arms, def, s.Pos())
}

// =============================================================================
// Expressions
// =============================================================================

func (t *translator) args(es []ast.Expr) []model.Expression {
	out := make([]model.Expression, 0, len(es))
	for _, e := range es {
		out = append(out, t.expr(e))
	}
	return out
}

// opaque keeps the variables of parts visible in an uninterpreted expression.
func (t *translator) opaque(n ast.Node, parts ...model.Expression) model.Expression {
	text := "@" + strconv.Itoa(int(n.Pos()))
	if e, ok := n.(ast.Expr); ok {
		text = types.ExprString(e) + text
	}
	return model.Opaque{Text: text, Parts: parts}
}

func (t *translator) expr(e ast.Expr) model.Expression {
	e = ast.Unparen(e)
	if tv, ok := t.info().Types[e]; ok && tv.Value != nil {
		return constantOf(tv.Value)
	}
	switch e := e.(type) {
	case *ast.Ident:
		switch obj := t.info().ObjectOf(e).(type) {
		case *types.Nil:
			return model.NullConstant{}
		case *types.Var:
			if v := t.variable(obj); v != nil {
				return model.Ref(v)
			}
		}
		return model.Opaque{Text: e.Name}
	case *ast.UnaryExpr:
		switch e.Op {
		case token.NOT:
			return model.Not(t.expr(e.X))
		case token.AND:
			return t.expr(e.X)
		}
		return t.opaque(e, t.expr(e.X))
	case *ast.StarExpr:
		return t.expr(e.X)
	case *ast.BinaryExpr:
		return t.binary(e)
	case *ast.CallExpr:
		return t.call(e)
	case *ast.SelectorExpr:
		return t.selector(e)
	case *ast.IndexExpr:
		if _, generic := t.info().Instances[indexedIdent(e.X)]; generic {
			return t.opaque(e)
		}
		return model.Index{Collection: t.expr(e.X), Key: t.expr(e.Index), Elem: t.b.typeRef(t.info().TypeOf(e))}
	case *ast.SliceExpr:
		parts := []model.Expression{t.expr(e.X)}
		for _, x := range []ast.Expr{e.Low, e.High, e.Max} {
			if x != nil {
				parts = append(parts, t.expr(x))
			}
		}
		return t.opaque(e, parts...)
	case *ast.TypeAssertExpr:
		return t.expr(e.X)
	case *ast.CompositeLit:
		return model.ConstructorCall{Typ: t.b.typeRef(t.info().TypeOf(e)), Args: t.elements(e), Pos: e.Pos()}
	case *ast.FuncLit:
		return model.Lambda{Method: t.lambda(e)}
	}
	return t.opaque(e)
}

func indexedIdent(e ast.Expr) *ast.Ident {
	switch e := ast.Unparen(e).(type) {
	case *ast.Ident:
		return e
	case *ast.SelectorExpr:
		return e.Sel
	}
	return nil
}

func constantOf(v constant.Value) model.Expression {
	switch v.Kind() {
	case constant.Bool:
		return model.BoolConstant{Value: constant.BoolVal(v)}
	case constant.String:
		return model.StringConstant{Value: constant.StringVal(v)}
	case constant.Int:
		if i, exact := constant.Int64Val(v); exact {
			return model.IntConstant{Value: i}
		}
	}
	return model.Opaque{Text: v.ExactString()}
}

func (t *translator) elements(lit *ast.CompositeLit) []model.Expression {
	out := make([]model.Expression, 0, len(lit.Elts))
	isStruct := structOf(t.info().TypeOf(lit)) != nil
	for _, elt := range lit.Elts {
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			if !isStruct {
				out = append(out, t.expr(kv.Key))
			}
			out = append(out, t.expr(kv.Value))
			continue
		}
		out = append(out, t.expr(elt))
	}
	return out
}

func (t *translator) binary(e *ast.BinaryExpr) model.Expression {
	l, r := t.expr(e.X), t.expr(e.Y)
	switch e.Op {
	case token.LAND:
		return model.NewAnd(l, r)
	case token.LOR:
		return model.NewOr(l, r)
	case token.EQL:
		return model.NewEquals(l, r)
	case token.NEQ:
		return model.Not(model.NewEquals(l, r))
	case token.LSS, token.LEQ, token.GTR, token.GEQ:
		return model.NewCompare(e.Op, l, r)
	}
	return t.opaque(e, l, r)
}

// selector resolves field paths, implicit embedded fields included.
func (t *translator) selector(e *ast.SelectorExpr) model.Expression {
	sel, ok := t.info().Selections[e]
	if !ok {
		// qualified identifier of another package
		return t.opaque(e)
	}
	if sel.Kind() != types.FieldVal {
		return t.opaque(e, t.expr(e.X))
	}
	return t.fieldPath(e, t.expr(e.X), sel.Recv(), sel.Index())
}

func (t *translator) fieldPath(n ast.Node, base model.Expression, typ types.Type, path []int) model.Expression {
	for _, i := range path {
		st := structOf(typ)
		if st == nil || i >= st.NumFields() {
			return t.opaque(n, base)
		}
		fv := st.Field(i)
		typ = fv.Type()
		f := t.b.fields[fv]
		ref, isVar := base.(model.VariableExpression)
		if f == nil || !isVar {
			base = t.opaque(n, base)
			continue
		}
		if _, this := ref.Variable.(model.This); this {
			base = model.Ref(model.FieldOfThis(f))
			continue
		}
		base = model.Ref(model.FieldReference{Field: f, Scope: ref.Variable})
	}
	return base
}

func structOf(t types.Type) *types.Struct {
	if p, ok := types.Unalias(t).(*types.Pointer); ok {
		t = p.Elem()
	}
	st, _ := t.Underlying().(*types.Struct)
	return st
}

func (t *translator) resultType(e *ast.CallExpr) model.TypeRef {
	tt := t.info().TypeOf(e)
	if tuple, ok := tt.(*types.Tuple); ok {
		if tuple.Len() == 0 {
			return model.TypeRef{}
		}
		tt = tuple.At(0).Type()
	}
	return t.b.typeRef(tt)
}

func (t *translator) call(e *ast.CallExpr) model.Expression {
	fun := ast.Unparen(e.Fun)
	tv := t.info().Types[fun]
	switch {
	case tv.IsType():
		// conversion
		if len(e.Args) == 1 {
			return t.expr(e.Args[0])
		}
		return t.opaque(e)
	case tv.IsBuiltin():
		return t.builtin(e, fun)
	}

	args := t.args(e.Args)
	fn, ok := typeutil.Callee(t.info(), e).(*types.Func)
	if !ok {
		// a function value
		return model.MethodCall{Name: types.ExprString(fun), Args: append([]model.Expression{t.expr(fun)}, args...), Pos: e.Pos()}
	}
	fn = fn.Origin()
	if m := t.b.constructors[fn]; m != nil {
		return model.ConstructorCall{Typ: t.resultType(e), Constructor: m, Args: args, Pos: e.Pos()}
	}
	recv := fn.Signature().Recv()
	sel, isSel := fun.(*ast.SelectorExpr)
	var selection *types.Selection
	if isSel {
		selection = t.info().Selections[sel]
	}
	if recv == nil || selection == nil || selection.Kind() != types.MethodVal {
		if pkg := fn.Pkg(); pkg != nil && (pkg.Path() == "slices" || pkg.Path() == "maps") && fn.Name() == "Clone" {
			return model.ConstructorCall{Typ: t.resultType(e), Pos: e.Pos()}
		}
		return model.MethodCall{Name: fn.FullName(), Args: args, Pos: e.Pos()}
	}

	object := t.expr(sel.X)
	if path := selection.Index(); len(path) > 1 {
		object = t.fieldPath(sel, object, selection.Recv(), path[:len(path)-1])
	}
	if m := t.b.methods[fn]; m != nil {
		return model.MethodCall{Object: object, Method: m, Name: fn.Name(), Args: args, Pos: e.Pos()}
	}
	if _, ptr := types.Unalias(recv.Type()).(*types.Pointer); !ptr && !types.IsInterface(recv.Type()) {
		// a value receiver works on a copy
		return model.MethodCall{Name: fn.FullName(), Args: append([]model.Expression{object}, args...), Pos: e.Pos()}
	}
	return model.MethodCall{Object: object, Name: fn.Name(), Args: args, Pos: e.Pos()}
}

func (t *translator) builtin(e *ast.CallExpr, fun ast.Expr) model.Expression {
	name := types.ExprString(fun)
	switch name {
	case "len":
		if len(e.Args) == 1 {
			return model.Length{Of: t.expr(e.Args[0])}
		}
	case "make", "new":
		return model.ConstructorCall{Typ: t.resultType(e), Pos: e.Pos()}
	case "append", "delete", "clear", "copy", "close":
		if len(e.Args) == 0 {
			break
		}
		return model.MethodCall{Object: t.expr(e.Args[0]), Name: name, Args: t.args(e.Args[1:]), Pos: e.Pos()}
	}
	return t.opaque(e, t.args(e.Args)...)
}

// lambda registers a function literal as a method of its own, nested in the
// method being translated.
func (t *translator) lambda(lit *ast.FuncLit) *model.MethodInfo {
	if m := t.b.lambdas[lit]; m != nil {
		return m
	}
	*t.lambdas++
	m := &model.MethodInfo{
		Name:      "func" + strconv.Itoa(*t.lambdas),
		Owner:     t.method.Owner,
		Enclosing: t.method,
		Pos:       lit.Pos(),
	}
	if sig, ok := t.info().TypeOf(lit).(*types.Signature); ok {
		t.b.signature(m, sig)
	}
	t.b.lambdas[lit] = m
	t.method.Lambdas = append(t.method.Lambdas, m)
	sub := &translator{b: t.b, method: m, lambdas: t.lambdas, bound: true}
	sub.namedResults(lit.Type)
	m.Body = sub.body(lit.Body)
	return m
}
