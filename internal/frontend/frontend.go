// Package frontend builds the entity model of one Go package.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│  Build(Input)                                                       │
//	│    │                                                                │
//	│    ├── declare   type specs → TypeInfo (struct and interface only)  │
//	│    ├── members   fields, interface methods, methods, constructors   │
//	│    ├── contracts //e2immu: directives → model.Contract              │
//	│    ├── bodies    go/ast statements → model statements (body.go)     │
//	│    └── calls     SSA call instructions → MethodInfo.Calls (calls.go)│
//	└─────────────────────────────────────────────────────────────────────┘
//
// # Entities
//
//   - Every package-level, non-generic struct or interface type is a type.
//   - Every method whose receiver is such a struct type is a method.
//   - A function named New<T> or new<T> (or plain New) whose first result is
//     T or *T and whose body builds a T is a constructor of T.
//   - Function literals inside those bodies are lambdas of the enclosing method.
//
// Other package-level functions are not analysed; calls to them are treated
// like calls into other packages.
//
// # Constructor normalisation
//
// Inside a constructor, the local variable first bound to a T literal (or to
// new(T), or declared as var t T) stands for the receiver under construction:
//
//	func NewT(n int) *T {        NewT:
//	    t := &T{n: n}              this.n = n
//	    t.list = nil               this.list = nil
//	    return t                   return this
//	}
//
// A constructor returning a literal directly gets the same treatment.
package frontend

import (
	"go/ast"
	"go/token"
	"go/types"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/ssa"

	"github.com/mpyw/e2immu/internal/directive"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
)

// Input is what the frontend reads from one analysis pass.
type Input struct {
	Fset      *token.FileSet
	Files     []*ast.File
	Pkg       *types.Package
	Info      *types.Info
	Inspector *inspector.Inspector // built from Files when nil
	// SrcFuncs are the SSA functions of the package, anonymous ones included.
	// Without them MethodInfo.Calls stays empty and no call cycle is found.
	SrcFuncs []*ssa.Function
	// Skip excludes files, e.g. generated ones.
	Skip func(*ast.File) bool
}

// builder holds the maps from go/types objects to entities.
type builder struct {
	in       Input
	pkgPath  string
	messages []message.Message

	types        map[*types.TypeName]*model.TypeInfo
	order        []*model.TypeInfo
	fields       map[*types.Var]*model.FieldInfo
	fieldVars    map[*model.FieldInfo]*types.Var
	methods      map[*types.Func]*model.MethodInfo
	constructors map[*types.Func]*model.MethodInfo
	lambdas      map[*ast.FuncLit]*model.MethodInfo
	vars         map[*types.Var]model.Variable
	decls        []funcDecl
	refs         map[types.Type]bool
}

// funcDecl is a method or constructor waiting for its body.
type funcDecl struct {
	decl   *ast.FuncDecl
	method *model.MethodInfo
}

// Build translates the package into a [model.Unit]. Directive problems are
// returned as diagnostics; they never stop the build.
func Build(in Input) (*model.Unit, []message.Message) {
	if in.Inspector == nil {
		in.Inspector = inspector.New(in.Files)
	}
	b := &builder{
		in:           in,
		pkgPath:      in.Pkg.Path(),
		types:        make(map[*types.TypeName]*model.TypeInfo),
		fields:       make(map[*types.Var]*model.FieldInfo),
		fieldVars:    make(map[*model.FieldInfo]*types.Var),
		methods:      make(map[*types.Func]*model.MethodInfo),
		constructors: make(map[*types.Func]*model.MethodInfo),
		lambdas:      make(map[*ast.FuncLit]*model.MethodInfo),
		vars:         make(map[*types.Var]model.Variable),
		refs:         make(map[types.Type]bool),
	}
	var specs []typeSpec
	var funcs []*ast.FuncDecl
	b.in.Inspector.WithStack([]ast.Node{(*ast.GenDecl)(nil), (*ast.FuncDecl)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return false
		}
		if f, ok := stack[0].(*ast.File); ok && in.Skip != nil && in.Skip(f) {
			return false
		}
		if len(stack) != 2 {
			return false
		}
		switch d := n.(type) {
		case *ast.GenDecl:
			if d.Tok == token.TYPE {
				for _, s := range d.Specs {
					ts := s.(*ast.TypeSpec)
					doc := ts.Doc
					if doc == nil && !d.Lparen.IsValid() {
						doc = d.Doc
					}
					specs = append(specs, typeSpec{spec: ts, doc: doc})
				}
			}
		case *ast.FuncDecl:
			funcs = append(funcs, d)
		}
		return false
	})

	for _, s := range specs {
		b.declare(s)
	}
	for _, s := range specs {
		b.members(s)
	}
	for _, fd := range funcs {
		b.function(fd)
	}
	b.applyContainers(specs)
	for _, d := range b.decls {
		if d.decl.Body != nil {
			newTranslator(b, d.method, d.decl).translate()
		}
	}
	b.linkCalls(in.SrcFuncs)
	return &model.Unit{PkgPath: b.pkgPath, Types: b.order}, b.messages
}

type typeSpec struct {
	spec *ast.TypeSpec
	doc  *ast.CommentGroup
}

func (b *builder) report(subject string, problems []directive.Problem) {
	for _, p := range problems {
		b.messages = append(b.messages, message.New(message.InvalidDirective, p.Pos, subject, "%s", p.Text))
	}
}

// =============================================================================
// Declarations
// =============================================================================

func (b *builder) declare(s typeSpec) {
	if s.spec.TypeParams != nil {
		return
	}
	obj, ok := b.in.Info.Defs[s.spec.Name].(*types.TypeName)
	if !ok || obj.IsAlias() {
		return
	}
	var iface bool
	switch obj.Type().Underlying().(type) {
	case *types.Struct:
	case *types.Interface:
		iface = true
	default:
		return
	}
	t := &model.TypeInfo{
		Name:      obj.Name(),
		PkgPath:   b.pkgPath,
		Pos:       s.spec.Name.Pos(),
		Interface: iface,
	}
	b.types[obj] = t
	b.order = append(b.order, t)
}

func (b *builder) typeOf(s typeSpec) *model.TypeInfo {
	obj, _ := b.in.Info.Defs[s.spec.Name].(*types.TypeName)
	return b.types[obj]
}

func (b *builder) members(s typeSpec) {
	t := b.typeOf(s)
	if t == nil {
		return
	}
	tc, problems := directive.ParseTypeContract(directive.ParseGroup(s.doc))
	b.report(t.FullyQualifiedName(), problems)
	t.Contract = tc.Contract

	switch st := s.spec.Type.(type) {
	case *ast.StructType:
		b.structFields(t, st)
	case *ast.InterfaceType:
		b.interfaceMethods(t, st)
	}
}

func (b *builder) structFields(t *model.TypeInfo, st *ast.StructType) {
	for _, field := range st.Fields.List {
		names := field.Names
		if len(names) == 0 {
			names = []*ast.Ident{embeddedName(field.Type)}
		}
		c, problems := directive.ParseFieldContract(directive.ParseGroup(field.Doc, field.Comment))
		for _, name := range names {
			if name == nil {
				continue
			}
			v, ok := b.in.Info.Defs[name].(*types.Var)
			if !ok {
				v = b.fieldByName(t, name.Name)
			}
			if v == nil {
				continue
			}
			f := &model.FieldInfo{
				Name:     v.Name(),
				Owner:    t,
				Type:     b.typeRef(v.Type()),
				Pos:      v.Pos(),
				Exported: v.Exported(),
				Contract: c,
			}
			if name == names[0] {
				b.report(f.FullyQualifiedName(), problems)
			}
			b.fields[v] = f
			b.fieldVars[f] = v
			t.Fields = append(t.Fields, f)
		}
	}
}

func (b *builder) fieldByName(t *model.TypeInfo, name string) *types.Var {
	obj, ok := b.in.Pkg.Scope().Lookup(t.Name).(*types.TypeName)
	if !ok {
		return nil
	}
	st, ok := obj.Type().Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	for f := range st.Fields() {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

func embeddedName(x ast.Expr) *ast.Ident {
	switch x := x.(type) {
	case *ast.Ident:
		return x
	case *ast.StarExpr:
		return embeddedName(x.X)
	case *ast.SelectorExpr:
		return x.Sel
	case *ast.IndexExpr:
		return embeddedName(x.X)
	case *ast.IndexListExpr:
		return embeddedName(x.X)
	}
	return nil
}

func (b *builder) interfaceMethods(t *model.TypeInfo, it *ast.InterfaceType) {
	for _, field := range it.Methods.List {
		for _, name := range field.Names {
			fn, ok := b.in.Info.Defs[name].(*types.Func)
			if !ok {
				continue
			}
			m := b.newMethod(fn, t, name.Pos())
			b.contracts(m, field.Doc, field.Comment)
			t.Methods = append(t.Methods, m)
		}
	}
}

// function registers a method of a unit struct type or a constructor.
func (b *builder) function(fd *ast.FuncDecl) {
	fn, ok := b.in.Info.Defs[fd.Name].(*types.Func)
	if !ok || fd.Type.TypeParams != nil {
		return
	}
	sig := fn.Signature()
	if recv := sig.Recv(); recv != nil {
		t, pointer := b.unitStruct(recv.Type())
		if t == nil {
			return
		}
		m := b.newMethod(fn, t, fd.Name.Pos())
		m.ValueReceiver = !pointer
		b.vars[recv] = model.This{TypeInfo: t}
		b.contracts(m, fd.Doc)
		t.Methods = append(t.Methods, m)
		b.decls = append(b.decls, funcDecl{decl: fd, method: m})
		return
	}
	t := b.constructorOf(fd, sig)
	if t == nil {
		return
	}
	m := b.newMethod(fn, t, fd.Name.Pos())
	m.Constructor = true
	b.constructors[fn] = m
	b.contracts(m, fd.Doc)
	t.Constructors = append(t.Constructors, m)
	b.decls = append(b.decls, funcDecl{decl: fd, method: m})
}

// unitStruct returns the unit struct type behind T or *T.
func (b *builder) unitStruct(t types.Type) (*model.TypeInfo, bool) {
	pointer := false
	if p, ok := types.Unalias(t).(*types.Pointer); ok {
		t, pointer = p.Elem(), true
	}
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return nil, false
	}
	info := b.types[named.Origin().Obj()]
	if info == nil || info.Interface {
		return nil, false
	}
	return info, pointer
}

func (b *builder) constructorOf(fd *ast.FuncDecl, sig *types.Signature) *model.TypeInfo {
	rest, ok := strings.CutPrefix(fd.Name.Name, "New")
	if !ok {
		rest, ok = strings.CutPrefix(fd.Name.Name, "new")
	}
	if !ok || sig.Results().Len() == 0 || fd.Body == nil {
		return nil
	}
	t, _ := b.unitStruct(sig.Results().At(0).Type())
	if t == nil || (rest != "" && !strings.EqualFold(rest, t.Name)) {
		return nil
	}
	if !b.buildsLiteral(fd.Body, t) {
		return nil
	}
	return t
}

// buildsLiteral reports whether body creates a value of t.
func (b *builder) buildsLiteral(body *ast.BlockStmt, t *model.TypeInfo) bool {
	found := false
	ast.Inspect(body, func(n ast.Node) bool {
		if found {
			return false
		}
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.CompositeLit:
			found = b.isUnitType(b.in.Info.TypeOf(n), t)
		case *ast.CallExpr:
			if id, ok := ast.Unparen(n.Fun).(*ast.Ident); ok && id.Name == "new" && len(n.Args) == 1 {
				found = b.isUnitType(b.in.Info.TypeOf(n.Args[0]), t)
			}
		}
		return !found
	})
	return found
}

func (b *builder) isUnitType(tt types.Type, t *model.TypeInfo) bool {
	if tt == nil {
		return false
	}
	u, _ := b.unitStruct(tt)
	return u == t
}

func (b *builder) newMethod(fn *types.Func, owner *model.TypeInfo, pos token.Pos) *model.MethodInfo {
	m := &model.MethodInfo{
		Name:     fn.Name(),
		Owner:    owner,
		Pos:      pos,
		Exported: fn.Exported(),
	}
	b.signature(m, fn.Signature())
	b.methods[fn] = m
	return m
}

// signature fills parameters and result. Only the first result is modelled;
// the usual trailing error carries no content of the receiver.
func (b *builder) signature(m *model.MethodInfo, sig *types.Signature) {
	for i := range sig.Params().Len() {
		v := sig.Params().At(i)
		name := v.Name()
		if name == "" || name == "_" {
			name = "_" + strconv.Itoa(i)
		}
		p := &model.ParameterInfo{Name: name, Index: i, Owner: m, Typ: b.typeRef(v.Type()), Pos: v.Pos()}
		m.Params = append(m.Params, p)
		b.vars[v] = p
	}
	if sig.Results().Len() > 0 {
		m.Result = b.typeRef(sig.Results().At(0).Type())
	}
}

func (b *builder) contracts(m *model.MethodInfo, groups ...*ast.CommentGroup) {
	names := make([]string, len(m.Params))
	for i, p := range m.Params {
		names[i] = p.Name
	}
	mc, problems := directive.ParseMethodContract(directive.ParseGroup(groups...), names)
	b.report(m.FullyQualifiedName(), problems)
	m.Contract = mc.Contract
	for _, p := range m.Params {
		if c, ok := mc.Parameters[p.Name]; ok {
			p.Contract = c
		}
	}
}

// applyContainers promises unmodified parameters on every method of a
// container type, unless a parameter says otherwise.
func (b *builder) applyContainers(specs []typeSpec) {
	for _, s := range specs {
		t := b.typeOf(s)
		if t == nil {
			continue
		}
		tc, _ := directive.ParseTypeContract(directive.ParseGroup(s.doc))
		if !tc.Container {
			continue
		}
		for _, m := range t.AllMethods() {
			for _, p := range m.Params {
				if _, ok := p.Contract.Get(lattice.ModifiedVariable); !ok && !p.Typ.IsValue() {
					p.Contract = p.Contract.With(lattice.ModifiedVariable, 0)
					if !p.Contract.Pos.IsValid() {
						p.Contract.Pos = t.Pos
					}
				}
			}
		}
	}
}

// sortedMethods returns callees in a stable order.
func sortedMethods(ms []*model.MethodInfo) []*model.MethodInfo {
	slices.SortFunc(ms, func(a, b *model.MethodInfo) int {
		return strings.Compare(a.FullyQualifiedName(), b.FullyQualifiedName())
	})
	return slices.Compact(ms)
}
