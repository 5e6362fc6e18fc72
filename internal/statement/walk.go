package statement

import (
	"maps"
	"slices"

	"github.com/mpyw/e2immu/internal/condition"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
)

// Oracle answers questions about the other methods of the unit, from their
// latest published analyses.
type Oracle interface {
	MethodProperty(m *model.MethodInfo, p lattice.Property) lattice.DV
	ParameterProperty(p *model.ParameterInfo, prop lattice.Property) lattice.DV
	// SameCycle reports whether two methods belong to one call cycle.
	SameCycle(a, b *model.MethodInfo) bool
	// ContentImmutable grades values of type t read inside m. Types of the
	// type cycle of m's owner count as mutable.
	ContentImmutable(m *model.MethodInfo, t model.TypeRef) lattice.DV
}

// Options tune a walk.
type Options struct {
	SkipTransformations bool
	ReportUnreachable   bool
}

// VariableSummary is what the whole body does to one variable.
type VariableSummary struct {
	Variable model.Variable
	Assigned bool
	// Values holds every value assigned, in statement order.
	Values []model.Expression
	Read   bool
	// Modified is the content modification seen directly on the variable,
	// before it is propagated along links.
	Modified       lattice.DV
	ContextNotNull lattice.DV
	Size           lattice.DV
	Linked         linking.LinkedVariables
}

// Summary is the result of one walk.
type Summary struct {
	Variables []*VariableSummary // sorted by fully qualified name
	// ReturnValue folds every return into one expression; nil without results.
	ReturnValue  model.Expression
	Precondition condition.Precondition
	Messages     []message.Message
	// CallsInCycle reports calls to methods of the caller's own call cycle.
	CallsInCycle bool
}

// Variable returns the summary of v, or nil.
func (s *Summary) Variable(v model.Variable) *VariableSummary {
	fqn := v.FullyQualifiedName()
	i, ok := slices.BinarySearchFunc(s.Variables, fqn, func(vs *VariableSummary, name string) int {
		switch n := vs.Variable.FullyQualifiedName(); {
		case n < name:
			return -1
		case n > name:
			return 1
		}
		return 0
	})
	if !ok {
		return nil
	}
	return s.Variables[i]
}

// Causes merges the delays of every variable summary.
func (s *Summary) Causes() lattice.Causes {
	var c lattice.Causes
	for _, vs := range s.Variables {
		c = c.Merge(vs.Modified.Causes()).
			Merge(vs.ContextNotNull.Causes()).
			Merge(vs.Size.Causes()).
			Merge(vs.Linked.Causes())
	}
	return c
}

type binding struct {
	variable model.Variable
	value    model.Expression
	linked   linking.LinkedVariables
}

// env maps fully qualified variable names to what the current path knows.
type env map[string]binding

type flow struct{ never, escapes bool }

type stepResult struct {
	next    *condition.Manager
	flow    flow
	restart bool
}

type returned struct{ state, value model.Expression }

type walker struct {
	tree   *Tree
	oracle Oracle
	opts   Options
	method *model.MethodInfo
	owner  string

	vars         map[string]*VariableSummary
	returns      []returned
	precondition condition.Precondition
	messages     []message.Message
	callsInCycle bool

	// cm is the condition manager of the statement being walked.
	cm *condition.Manager
}

// Walk evaluates the body once against the oracle's current view.
// Walking again with a better-informed oracle may only resolve delays; any
// other change of a statement's recorded state is an internal error.
func (t *Tree) Walk(oracle Oracle, opts Options) (*Summary, error) {
	w := &walker{
		tree:         t,
		oracle:       oracle,
		opts:         opts,
		method:       t.Method,
		owner:        t.Method.FullyQualifiedName(),
		vars:         make(map[string]*VariableSummary),
		precondition: condition.EmptyPrecondition(),
	}
	if t.Method.Owner != nil {
		w.touch(model.This{TypeInfo: t.Method.Owner})
	}
	for _, p := range t.Method.Params {
		w.touch(p)
	}
	if _, _, err := w.block(t.First, condition.Initial(), env{}, true); err != nil {
		return nil, err
	}
	return w.summary(), nil
}

func (w *walker) summary() *Summary {
	s := &Summary{
		Precondition: w.precondition,
		Messages:     w.messages,
		CallsInCycle: w.callsInCycle,
	}
	for _, k := range slices.Sorted(maps.Keys(w.vars)) {
		s.Variables = append(s.Variables, w.vars[k])
	}
	if w.method.HasResult() && len(w.returns) > 0 {
		acc := w.returns[len(w.returns)-1].value
		for i := len(w.returns) - 2; i >= 0; i-- {
			acc = model.NewConditional(w.returns[i].state, w.returns[i].value, acc)
		}
		s.ReturnValue = acc
	}
	return s
}

func (w *walker) touch(v model.Variable) *VariableSummary {
	fqn := v.FullyQualifiedName()
	vs, ok := w.vars[fqn]
	if !ok {
		vs = &VariableSummary{
			Variable:       v,
			Modified:       lattice.FALSE,
			ContextNotNull: lattice.Of(lattice.Nullable),
			Size:           lattice.Of(lattice.AnySize),
		}
		w.vars[fqn] = vs
	}
	return vs
}

func (w *walker) report(kind message.Kind, node *StatementAnalysis, format string, args ...any) {
	w.messages = append(w.messages, message.New(kind, node.Statement.Pos(), w.owner, format, args...))
}

// =============================================================================
// Blocks and statements
// =============================================================================

func (w *walker) block(first *StatementAnalysis, cm *condition.Manager, e env, top bool) (flow, *condition.Manager, error) {
	var f flow
	for node := w.tree.resolved(first); node != nil; {
		if f.never {
			if w.opts.ReportUnreachable {
				w.report(message.Unreachable, node, "")
			}
			break
		}
		r, err := w.statement(node, cm, e, top)
		if err != nil {
			return flow{}, nil, err
		}
		if r.restart {
			node = w.tree.resolved(node)
			continue
		}
		cm, f = r.next, r.flow
		if top && !w.precondition.IsEmpty() {
			cm = cm.WithPrecondition(w.precondition)
		}
		node = w.tree.resolved(node.Next)
	}
	return f, cm, nil
}

func (w *walker) statement(node *StatementAnalysis, cm *condition.Manager, e env, top bool) (stepResult, error) {
	node.conditionManager = cm
	outer := w.cm
	w.cm = cm
	defer func() { w.cm = outer }()
	if err := w.record(node, Initialiser, e); err != nil {
		return stepResult{}, err
	}
	r := stepResult{next: cm}
	level := Evaluation
	var err error
	switch s := node.Statement.(type) {
	case *model.ExpressionStatement:
		w.effects(s.Expr, e, top)
	case *model.Assignment:
		w.assign(node, s, e, top)
	case *model.ContentAssignment:
		w.contentAssign(s, e, top)
	case *model.Return:
		w.ret(node, s, cm, e, top)
		r.flow = flow{never: true}
	case *model.Throw:
		if s.Value != nil {
			w.effects(s.Value, e, top)
		}
		w.escape(node, cm)
		r.flow = flow{never: true, escapes: true}
	case *model.If:
		level = Merge
		r, err = w.ifStatement(node, s, cm, e, top)
	case *model.Loop:
		level = Merge
		r, err = w.loop(node, s, cm, e, top)
	case *model.Block:
		level = Merge
		r.flow, r.next, err = w.block(node.Blocks[0], cm, e, top)
	}
	if err != nil || r.restart {
		return r, err
	}
	node.methodLevelData = MethodLevelData{Precondition: w.precondition, LinkingDelays: linkDelays(e)}
	owner := w.owner + "@" + string(node.Index)
	if err := node.neverContinues.Set(owner, "never continues", r.flow.never); err != nil {
		return r, err
	}
	if err := node.escapes.Set(owner, "escapes", r.flow.escapes); err != nil {
		return r, err
	}
	return r, w.record(node, level, e)
}

// record writes the state of every bound variable at one level of node.
func (w *walker) record(node *StatementAnalysis, l Level, e env) error {
	for _, k := range slices.Sorted(maps.Keys(e)) {
		b := e[k]
		nn := lattice.Of(lattice.Nullable)
		if vs, ok := w.vars[k]; ok {
			nn = vs.ContextNotNull
		}
		vi := VariableInfo{Variable: b.variable, Value: b.value, Linked: b.linked, ContextNotNull: nn}
		if err := node.container(w.owner, b.variable).Set(l, vi); err != nil {
			return err
		}
	}
	return nil
}

func linkDelays(e env) lattice.Causes {
	var c lattice.Causes
	for _, b := range e {
		c = c.Merge(b.linked.Causes())
	}
	return c
}

func (w *walker) assign(node *StatementAnalysis, s *model.Assignment, e env, top bool) {
	w.effects(s.Value, e, top)
	value := w.evaluate(s.Value, e)
	links := w.linksOf(s.Value, e)
	target := s.Target
	fqn := target.FullyQualifiedName()
	if p, ok := model.IsParameter(target); ok {
		w.report(message.AssignmentToParameter, node, "%s", p.Name)
	}
	if _, ok := model.IsFieldOfThis(target); ok && w.method.ValueReceiver {
		// the receiver is a copy
		e[fqn] = binding{target, value, links}
		return
	}
	vs := w.touch(target)
	vs.Assigned = true
	vs.Values = append(vs.Values, value)
	vs.Linked = vs.Linked.Merge(links)
	e[fqn] = binding{target, value, links}
}

func (w *walker) contentAssign(s *model.ContentAssignment, e env, top bool) {
	w.effects(s.Value, e, top)
	target := s.Target
	w.touch(target).Read = true
	w.modify(target, lattice.TRUE)
	if fr, ok := target.(model.FieldReference); ok && !fr.IsThis() {
		w.dereference(fr.Scope, top)
	} else {
		w.dereference(target, top)
	}
	links := w.linksOf(s.Value, e).Weaken(lattice.Of(linking.Dependent))
	if links.Len() == 0 {
		return
	}
	vs := w.touch(target)
	vs.Linked = vs.Linked.Merge(links)
	if b, ok := e[target.FullyQualifiedName()]; ok {
		b.linked = b.linked.Merge(links)
		e[target.FullyQualifiedName()] = b
	}
}

func (w *walker) ret(node *StatementAnalysis, s *model.Return, cm *condition.Manager, e env, top bool) {
	if !w.method.HasResult() {
		return
	}
	rv := model.ReturnVariable{Method: w.method}
	var value model.Expression
	links := linking.LinkedVariables{}
	if s.Value == nil {
		value = model.Instance{Typ: w.method.Result, ID: string(node.Index) + ":return"}
	} else {
		w.effects(s.Value, e, top)
		value = w.evaluate(s.Value, e)
		links = w.linksOf(s.Value, e)
	}
	w.returns = append(w.returns, returned{state: cm.AbsoluteState(), value: value})
	vs := w.touch(rv)
	vs.Assigned = true
	vs.Values = append(vs.Values, value)
	vs.Linked = vs.Linked.Merge(links)
}

// escape turns the path condition of a panic into facts about the caller's
// arguments and into a precondition.
func (w *walker) escape(node *StatementAnalysis, cm *condition.Manager) {
	var individual []model.Variable
	if model.Same(cm.EscapeCondition(), cm.Condition()) {
		individual = cm.FindIndividualNullInCondition(true)
	}
	for _, v := range individual {
		if p, isParam := model.IsParameter(v); isParam {
			vs := w.touch(p)
			vs.ContextNotNull = lattice.ContextNotNull.Better(vs.ContextNotNull, lattice.Of(lattice.EffectivelyNotNull))
		}
	}
	var required []model.Expression
	for _, c := range model.Conjuncts(cm.PreconditionFromEscape()) {
		if v, notEmpty, ok := model.SizeClause(c); ok && notEmpty {
			if p, isParam := model.IsParameter(v); isParam {
				w.touch(p).Size = lattice.Of(lattice.NotEmpty)
				continue
			}
		}
		if model.MentionsFieldOrParameter(c) {
			required = append(required, c)
		}
	}
	if len(required) > 0 {
		w.precondition = w.precondition.Combine(condition.Precondition{
			Expression: model.NewAnd(required...),
			Causes:     []string{string(node.Index)},
		})
	}
}

func (w *walker) ifStatement(node *StatementAnalysis, s *model.If, cm *condition.Manager, e env, top bool) (stepResult, error) {
	cond := cm.Evaluate(w.evaluate(s.Condition, e))
	if !w.opts.SkipTransformations && (model.IsTrue(cond) || model.IsFalse(cond)) {
		w.tree.replace(node.Index, takenBranch(s, model.IsTrue(cond)))
		return stepResult{restart: true}, nil
	}
	w.effects(s.Condition, e, top)

	thenEnv := maps.Clone(e)
	thenFlow, _, err := w.block(node.Blocks[0], cm.NewAtStartOfNewBlockDoNotChangePrecondition(cond), thenEnv, false)
	if err != nil {
		return stepResult{}, err
	}
	elseEnv := maps.Clone(e)
	var elseFlow flow
	if s.Else != nil {
		elseFlow, _, err = w.block(node.Blocks[1], cm.NewAtStartOfNewBlockDoNotChangePrecondition(model.Not(cond)), elseEnv, false)
		if err != nil {
			return stepResult{}, err
		}
	}

	r := stepResult{next: cm}
	switch {
	case thenFlow.never && elseFlow.never:
		r.flow = flow{never: true, escapes: thenFlow.escapes && elseFlow.escapes}
	case thenFlow.never:
		maps.Copy(e, elseEnv)
		r.next = cm.NewForNextStatementDoNotChangePrecondition(model.Not(cond))
	case elseFlow.never:
		maps.Copy(e, thenEnv)
		r.next = cm.NewForNextStatementDoNotChangePrecondition(cond)
	default:
		w.mergeBranches(e, cond, thenEnv, elseEnv)
	}
	return r, nil
}

// takenBranch is the block replacing an if statement with a constant condition.
// A condition with calls stays as an expression statement for its effects.
func takenBranch(s *model.If, taken bool) *model.Block {
	b := &model.Block{Position: s.Position}
	if hasCall(s.Condition) {
		b.Statements = append(b.Statements, &model.ExpressionStatement{Expr: s.Condition, Position: s.Position})
	}
	branch := s.Then
	if !taken {
		branch = s.Else
	}
	if branch != nil {
		b.Statements = append(b.Statements, branch.Statements...)
	}
	return b
}

func (w *walker) loop(node *StatementAnalysis, s *model.Loop, cm *condition.Manager, e env, top bool) (stepResult, error) {
	// Variables the body assigns hold an unknown value at the top of each round.
	for _, v := range assignedIn(s.Body) {
		k := v.FullyQualifiedName()
		pre, ok := w.lookup(e, k, v)
		if !ok {
			continue
		}
		e[k] = binding{v, loopInstance(node, v), pre.linked}
	}
	cond := model.True
	if s.Condition != nil {
		w.effects(s.Condition, e, top)
		cond = cm.Evaluate(w.evaluate(s.Condition, e))
	}
	body := maps.Clone(e)
	bodyFlow, _, err := w.block(node.Blocks[0], cm.NewAtStartOfNewBlockDoNotChangePrecondition(cond), body, false)
	if err != nil {
		return stepResult{}, err
	}
	for _, k := range slices.Sorted(maps.Keys(body)) {
		b := body[k]
		pre, ok := w.lookup(e, k, b.variable)
		if !ok {
			continue
		}
		if model.Same(pre.value, b.value) && pre.linked.Equal(b.linked) {
			continue
		}
		value := pre.value
		if !model.Same(pre.value, b.value) {
			value = loopInstance(node, b.variable)
		}
		e[k] = binding{b.variable, value, pre.linked.Merge(b.linked)}
	}
	r := stepResult{next: cm}
	if s.Condition == nil {
		r.flow = flow{never: true, escapes: bodyFlow.escapes}
	}
	return r, nil
}

func loopInstance(node *StatementAnalysis, v model.Variable) model.Expression {
	return model.Instance{Typ: v.Type(), ID: string(node.Index) + ":" + v.SimpleName()}
}

// lookup returns what e knows about a variable that outlives the current block.
// Fields of the receiver and parameters start as references to themselves;
// locals only exist once bound.
func (w *walker) lookup(e env, k string, v model.Variable) (binding, bool) {
	if b, ok := e[k]; ok {
		return b, true
	}
	if _, ok := model.IsFieldOfThis(v); ok {
		return binding{v, model.Ref(v), linking.LinkedVariables{}}, true
	}
	if _, ok := model.IsParameter(v); ok {
		return binding{v, model.Ref(v), linking.LinkedVariables{}}, true
	}
	return binding{}, false
}

// mergeBranches joins the two paths of an if statement that both continue.
func (w *walker) mergeBranches(e env, cond model.Expression, a, b env) {
	keys := slices.Sorted(maps.Keys(a))
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := a[k].variable
		if v == nil {
			v = b[k].variable
		}
		ba, okA := w.lookup(a, k, v)
		bb, okB := w.lookup(b, k, v)
		if !okA || !okB {
			continue
		}
		value := ba.value
		if !model.Same(ba.value, bb.value) {
			value = model.NewConditional(cond, ba.value, bb.value)
		}
		e[k] = binding{v, value, ba.linked.Merge(bb.linked)}
	}
}

// assignedIn lists the variables assigned anywhere in b, sorted by name.
func assignedIn(b *model.Block) []model.Variable {
	seen := map[string]model.Variable{}
	var visit func(*model.Block)
	visit = func(b *model.Block) {
		if b == nil {
			return
		}
		for _, s := range b.Statements {
			if a, ok := s.(*model.Assignment); ok {
				seen[a.Target.FullyQualifiedName()] = a.Target
			}
			for _, sub := range model.SubBlocks(s) {
				visit(sub)
			}
		}
	}
	visit(b)
	out := make([]model.Variable, 0, len(seen))
	for _, k := range slices.Sorted(maps.Keys(seen)) {
		out = append(out, seen[k])
	}
	return out
}

// =============================================================================
// Expressions
// =============================================================================

// evaluate replaces bound variables by their current value.
func (w *walker) evaluate(x model.Expression, e env) model.Expression {
	return model.Translate(x, func(v model.Variable) model.Expression {
		if b, ok := e[v.FullyQualifiedName()]; ok && b.value != nil {
			return b.value
		}
		return nil
	})
}

// effects records reads, modifications and dereferences caused by evaluating x.
func (w *walker) effects(x model.Expression, e env, top bool) {
	switch x := x.(type) {
	case model.VariableExpression:
		w.touch(x.Variable).Read = true
		if fr, ok := x.Variable.(model.FieldReference); ok && !fr.IsThis() {
			w.touch(fr.Scope).Read = true
			w.dereference(fr.Scope, top)
		}
	case model.MethodCall:
		if x.Object != nil {
			w.effects(x.Object, e, top)
		}
		for _, a := range x.Args {
			w.effects(a, e, top)
		}
		w.call(x, e, top)
	case model.ConstructorCall:
		for _, a := range x.Args {
			w.effects(a, e, top)
		}
		if x.Constructor != nil {
			w.arguments(x.Constructor, x.Args, top)
		}
	case model.Negation:
		w.effects(x.Expr, e, top)
	case model.And:
		for _, p := range x.Parts {
			w.effects(p, e, top)
		}
	case model.Or:
		for _, p := range x.Parts {
			w.effects(p, e, top)
		}
	case model.Equals:
		w.effects(x.Lhs, e, top)
		w.effects(x.Rhs, e, top)
	case model.Compare:
		w.effects(x.Lhs, e, top)
		w.effects(x.Rhs, e, top)
	case model.Length:
		w.effects(x.Of, e, top)
	case model.Index:
		w.effects(x.Collection, e, top)
		w.effects(x.Key, e, top)
	case model.InlineConditional:
		w.effects(x.Condition, e, top)
		w.effects(x.IfTrue, e, top)
		w.effects(x.IfFalse, e, top)
	case model.Opaque:
		for _, p := range x.Parts {
			w.effects(p, e, top)
		}
	}
}

func (w *walker) call(x model.MethodCall, e env, top bool) {
	if x.Object != nil {
		if v := variableOf(x.Object); v != nil && v.Type().Kind != model.KindBasic {
			w.modify(v, w.calleeModifies(x))
			if isInterface(v.Type()) {
				w.dereference(v, top)
			}
		}
	}
	if x.Method != nil {
		w.arguments(x.Method, x.Args, top)
	}
}

// calleeModifies is whether a call modifies its receiver object. Calls into the
// caller's own cycle count as not modifying here; the cycle decides as a group.
func (w *walker) calleeModifies(x model.MethodCall) lattice.DV {
	switch {
	case x.Method != nil:
		if w.oracle.SameCycle(w.method, x.Method) {
			w.callsInCycle = true
			return lattice.FALSE
		}
		return w.oracle.MethodProperty(x.Method, lattice.ModifiedMethod)
	case x.Object != nil:
		return lattice.TRUE
	default:
		return lattice.FALSE
	}
}

// arguments pushes the callee's parameter modification and not-null
// requirements onto the variables passed as arguments.
func (w *walker) arguments(callee *model.MethodInfo, args []model.Expression, top bool) {
	if len(callee.Params) == 0 {
		return
	}
	inCycle := w.oracle.SameCycle(w.method, callee)
	if inCycle {
		w.callsInCycle = true
	}
	for i, a := range args {
		v := variableOf(a)
		if v == nil {
			continue
		}
		p := callee.Params[min(i, len(callee.Params)-1)]
		if p.Typ.IsValue() || inCycle {
			continue
		}
		w.modify(v, w.oracle.ParameterProperty(p, lattice.ModifiedVariable))
		if top && v.Type().Nullable() {
			nn := w.oracle.ParameterProperty(p, lattice.NotNull)
			if nn.IsDelayed() || nn.Value() >= lattice.EffectivelyNotNull {
				vs := w.touch(v)
				vs.ContextNotNull = lattice.ContextNotNull.Better(vs.ContextNotNull, lattice.MinOf(lattice.Nullable, lattice.EffectivelyNotNull, nn))
			}
		}
	}
}

// modify records a content modification of v; modifying p.f modifies p too.
func (w *walker) modify(v model.Variable, dv lattice.DV) {
	for {
		vs := w.touch(v)
		vs.Modified = lattice.Or(vs.Modified, dv)
		fr, ok := v.(model.FieldReference)
		if !ok || fr.Scope == nil {
			return
		}
		v = fr.Scope
	}
}

// dereference records that v must not be nil at an unconditionally reached statement.
func (w *walker) dereference(v model.Variable, top bool) {
	if !top || !v.Type().Nullable() {
		return
	}
	if _, isThis := v.(model.This); isThis {
		return
	}
	// an earlier guard already excluded nil
	if w.cm != nil && slices.ContainsFunc(w.cm.FindIndividualNullInState(false), func(g model.Variable) bool {
		return g.FullyQualifiedName() == v.FullyQualifiedName()
	}) {
		return
	}
	vs := w.touch(v)
	vs.ContextNotNull = lattice.ContextNotNull.Better(vs.ContextNotNull, lattice.Of(lattice.EffectivelyNotNull))
}

// linksOf computes the variables the value of x may share content with.
func (w *walker) linksOf(x model.Expression, e env) linking.LinkedVariables {
	dependent := lattice.Of(linking.Dependent)
	var l linking.LinkedVariables
	switch x := x.(type) {
	case model.VariableExpression:
		v := x.Variable
		if v.Type().Kind == model.KindBasic {
			return l
		}
		l = linking.Of(v, lattice.Of(linking.StaticallyAssigned))
		if b, ok := e[v.FullyQualifiedName()]; ok {
			l = l.Merge(b.linked)
		}
	case model.MethodCall:
		if x.Method != nil && (!x.Method.HasResult() || x.Method.Result.Kind == model.KindBasic) {
			return l
		}
		if x.Object != nil {
			if d := w.callDegree(x); d.IsDelayed() || d.Value() < linking.None {
				l = l.Merge(w.linksOf(x.Object, e).Weaken(d))
			}
		}
		for _, a := range x.Args {
			l = l.Merge(w.linksOf(a, e).Weaken(dependent))
		}
	case model.ConstructorCall:
		for _, a := range x.Args {
			l = l.Merge(w.linksOf(a, e).Weaken(dependent))
		}
	case model.InlineConditional:
		l = w.linksOf(x.IfTrue, e).Merge(w.linksOf(x.IfFalse, e))
	case model.Index:
		coll := w.linksOf(x.Collection, e)
		if coll.Len() == 0 {
			break
		}
		// an immutable element shares nothing with its collection
		imm := w.oracle.ContentImmutable(w.method, x.Elem)
		switch {
		case imm.IsDelayed():
			l = coll.Weaken(imm)
		case lattice.ImmutableLevel(imm.Value()) < 2 || lattice.IsEventual(imm.Value()):
			l = coll.Weaken(dependent)
		}
	case model.Opaque:
		for _, p := range x.Parts {
			l = l.Merge(w.linksOf(p, e).Weaken(dependent))
		}
	}
	return l
}

// callDegree is the link degree between a call's result and its receiver object,
// from the callee's independence.
func (w *walker) callDegree(x model.MethodCall) lattice.DV {
	if x.Method == nil || w.oracle.SameCycle(w.method, x.Method) {
		return lattice.Of(linking.Dependent)
	}
	ind := w.oracle.MethodProperty(x.Method, lattice.Independent)
	if ind.IsDelayed() {
		return ind
	}
	return lattice.Of(linking.Dependent + ind.Value())
}

func variableOf(x model.Expression) model.Variable {
	if ve, ok := x.(model.VariableExpression); ok {
		return ve.Variable
	}
	return nil
}

func isInterface(t model.TypeRef) bool {
	return t.Kind == model.KindInterface || (t.Kind == model.KindNamed && t.Info != nil && t.Info.Interface)
}

func hasCall(x model.Expression) bool {
	switch x := x.(type) {
	case model.MethodCall, model.ConstructorCall:
		return true
	case model.Negation:
		return hasCall(x.Expr)
	case model.And:
		return slices.ContainsFunc(x.Parts, hasCall)
	case model.Or:
		return slices.ContainsFunc(x.Parts, hasCall)
	case model.Equals:
		return hasCall(x.Lhs) || hasCall(x.Rhs)
	case model.Compare:
		return hasCall(x.Lhs) || hasCall(x.Rhs)
	case model.Length:
		return hasCall(x.Of)
	case model.Index:
		return hasCall(x.Collection) || hasCall(x.Key)
	case model.InlineConditional:
		return hasCall(x.Condition) || hasCall(x.IfTrue) || hasCall(x.IfFalse)
	case model.Opaque:
		return slices.ContainsFunc(x.Parts, hasCall)
	}
	return false
}
