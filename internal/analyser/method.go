package analyser

import (
	"log/slog"

	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/condition"
	"github.com/mpyw/e2immu/internal/eventual"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
	"github.com/mpyw/e2immu/internal/statement"
)

// =============================================================================
// Computing method analyser
// =============================================================================

// MethodAnalyser infers the properties of a method, constructor or function
// literal from its body.
type MethodAnalyser struct {
	ctx       *Context
	method    *model.MethodInfo
	builder   *analysis.MethodAnalysisBuilder
	tree      *statement.Tree
	companion Companion
	pipeline  *components.Components[int]

	summary  *statement.Summary
	walkDone bool
	facts    *analysis.MethodFacts
}

var _ Analyser = (*MethodAnalyser)(nil)

// NewMethodAnalyser creates the analyser of m and, when m contains function
// literals, their companion. The initial snapshot is published immediately.
func NewMethodAnalyser(ctx *Context, m *model.MethodInfo) (*MethodAnalyser, error) {
	a := &MethodAnalyser{
		ctx:     ctx,
		method:  m,
		builder: analysis.NewMethodAnalysisBuilder(m),
		tree:    statement.NewTree(m),
	}
	companion, err := ctx.NewCompanion(m)
	if err != nil {
		return nil, err
	}
	if companion != nil {
		a.companion = companion
		a.builder.SetLambdas(companion.Analyses)
	}
	a.pipeline = components.NewBuilder[int](m.FullyQualifiedName(), ctx.Logger()).
		Add("statementWalk", a.statementWalk).
		Add("analyseFunctionLiterals", a.analyseFunctionLiterals).
		Add("linking", a.linking).
		Add("modified", a.modified).
		Add("returnValue", a.returnValue).
		Add("notNull", a.notNull).
		Add("independent", a.independent).
		Add("precondition", a.precondition).
		Add("eventual", a.eventual).
		Build()
	ctx.PublishMethod(a.builder.Snapshot())
	return a, nil
}

// Name implements [Analyser].
func (a *MethodAnalyser) Name() string { return a.method.FullyQualifiedName() }

// Tree returns the statement tree of the body.
func (a *MethodAnalyser) Tree() *statement.Tree { return a.tree }

// Statuses implements [Analyser].
func (a *MethodAnalyser) Statuses() []components.StepStatus { return a.pipeline.Statuses() }

// Analyse implements [Analyser].
func (a *MethodAnalyser) Analyse(iteration int) (components.Status, error) {
	s, err := a.pipeline.Run(iteration)
	if err != nil {
		return s, err
	}
	snap := a.builder.Snapshot()
	a.ctx.PublishMethod(snap)
	for _, o := range a.ctx.Observers() {
		o.Statements(iteration, a.tree)
		o.Method(iteration, snap, a.pipeline.Statuses())
	}
	a.ctx.Logger().Debug("method analysed",
		slog.String("method", a.Name()),
		slog.Int("iteration", iteration),
		slog.String("status", s.String()))
	return s, nil
}

// Freeze implements [Analyser].
func (a *MethodAnalyser) Freeze() error {
	if a.companion != nil {
		if err := a.companion.Freeze(); err != nil {
			return err
		}
	}
	checkContract(a.ctx, a.method.Contract, a.method.Pos, a.Name(), a.builder.Properties())
	if err := annotateMethod(a.builder); err != nil {
		return err
	}
	a.ctx.PublishMethod(a.builder.Freeze())
	return nil
}

func (a *MethodAnalyser) statementWalk(int) (components.Status, error) {
	s, err := a.tree.Walk(a.ctx, a.ctx.walk)
	if err != nil {
		return components.Status{}, err
	}
	a.summary = s
	if causes := s.Causes(); !causes.Empty() {
		return components.Delays(causes), nil
	}
	a.walkDone = true
	a.ctx.Report(s.Messages...)
	return components.Done, nil
}

func (a *MethodAnalyser) analyseFunctionLiterals(int) (components.Status, error) {
	if a.companion == nil {
		return components.Done, nil
	}
	s, err := a.companion.AnalyseOnce()
	if err != nil {
		return components.Status{}, err
	}
	if s.IsDone() {
		return components.Done, nil
	}
	causes := lattice.NewCauses(lattice.Cause{Subject: a.Name() + "$literals", Kind: lattice.CauseNested}).Merge(s.Causes())
	if s.IsProgress() {
		return components.Progress(causes), nil
	}
	return components.Delays(causes), nil
}

// linking closes the links of the body and publishes the per-variable facts.
func (a *MethodAnalyser) linking(int) (components.Status, error) {
	g := linking.NewGraph()
	local := make(map[string]lattice.DV, len(a.summary.Variables))
	for _, vs := range a.summary.Variables {
		g.Add(vs.Variable, vs.Linked)
		local[vs.Variable.FullyQualifiedName()] = vs.Modified
	}
	modified := linking.ContentModified(g, local)
	facts := make([]analysis.VariableFacts, 0, len(a.summary.Variables))
	for _, vs := range a.summary.Variables {
		facts = append(facts, analysis.VariableFacts{
			Variable:        vs.Variable,
			Assigned:        vs.Assigned,
			Values:          vs.Values,
			Read:            vs.Read,
			ContentModified: modified[vs.Variable.FullyQualifiedName()],
			ContextNotNull:  vs.ContextNotNull,
			Size:            vs.Size,
			Linked:          vs.Linked,
		})
	}
	a.facts = analysis.NewMethodFacts(facts)
	causes := a.facts.Causes()
	done := a.walkDone && causes.Empty()
	if err := a.builder.SetFacts(a.facts, done); err != nil {
		return components.Status{}, err
	}
	if done {
		return components.Done, nil
	}
	return components.Delays(causes.Merge(a.summary.Causes())), nil
}

// modified decides whether the method modifies its receiver. Members of a
// call cycle decide together: one modifying member makes them all modifying,
// and they are non-modifying only once every member found no modification.
func (a *MethodAnalyser) modified(int) (components.Status, error) {
	props := a.builder.Properties()
	if a.method.Constructor {
		return set(props, lattice.ModifiedMethod, lattice.FALSE)
	}
	own := a.ownModification()
	idx, inCycle := a.ctx.CallCycleOf(a.method)
	if !inCycle {
		return set(props, lattice.ModifiedMethod, own)
	}
	cycles := a.ctx.CallCycles()
	switch {
	case own.IsTrue():
		cycles.ReportModified(idx)
	case own.IsFalse():
		cycles.ReportNotModified(idx, a.Name())
	default:
		// another member may already have decided for the whole cycle
		if v := cycles.Value(idx); v.IsTrue() {
			return set(props, lattice.ModifiedMethod, v)
		}
		return set(props, lattice.ModifiedMethod, own)
	}
	return set(props, lattice.ModifiedMethod, cycles.Value(idx))
}

func (a *MethodAnalyser) ownModification() lattice.DV {
	var dvs []lattice.DV
	for _, f := range a.facts.All() {
		switch v := f.Variable.(type) {
		case model.This:
			dvs = append(dvs, f.ContentModified)
		case model.FieldReference:
			if !v.IsThis() {
				continue
			}
			if f.Assigned {
				dvs = append(dvs, lattice.TRUE)
			}
			dvs = append(dvs, f.ContentModified)
		}
	}
	for _, l := range a.method.Lambdas {
		dvs = append(dvs, a.ctx.MethodProperty(l, lattice.ModifiedMethod))
	}
	return lattice.Or(dvs...)
}

// returnValue stores the folded return value and derives identity and fluent.
func (a *MethodAnalyser) returnValue(int) (components.Status, error) {
	props := a.builder.Properties()
	if !a.walkDone {
		causes := a.summary.Causes()
		a.builder.ReturnValue.Delay(causes)
		return delay(props, causes, lattice.Identity, lattice.Fluent)
	}
	rv := a.summary.ReturnValue
	if a.method.HasResult() {
		if rv == nil {
			rv = model.Instance{Typ: a.method.Result, ID: a.Name() + ":return"}
		}
		if err := a.builder.ReturnValue.Set(rv); err != nil {
			return components.Status{}, err
		}
	}
	identity, fluent := false, false
	if v := variableOf(rv); v != nil && !a.method.Constructor {
		if len(a.method.Params) > 0 {
			identity = v.FullyQualifiedName() == a.method.Params[0].FullyQualifiedName()
		}
		_, fluent = v.(model.This)
	}
	if _, err := set(props, lattice.Identity, lattice.Bool(identity)); err != nil {
		return components.Status{}, err
	}
	return set(props, lattice.Fluent, lattice.Bool(fluent))
}

func (a *MethodAnalyser) notNull(int) (components.Status, error) {
	props := a.builder.Properties()
	switch {
	case !a.method.HasResult():
		return components.Done, nil
	case a.method.Constructor || !a.method.Result.Nullable():
		return set(props, lattice.NotNull, lattice.Of(lattice.EffectivelyNotNull))
	}
	rv, ok := a.builder.ReturnValue.Get()
	if !ok {
		return delay(props, a.builder.ReturnValue.Causes(), lattice.NotNull)
	}
	dv := lattice.MinOf(lattice.Nullable, lattice.EffectivelyNotNull, a.ctx.NotNullOf(rv, a.method))
	return set(props, lattice.NotNull, dv)
}

// independent grades how much of the receiver's hidden content the return
// value exposes, from the immutability of the fields it links to.
func (a *MethodAnalyser) independent(int) (components.Status, error) {
	props := a.builder.Properties()
	if !a.method.HasResult() || a.method.Constructor || a.method.Result.Kind == model.KindBasic {
		return set(props, lattice.Independent, lattice.Of(lattice.FullyIndependent))
	}
	rf, ok := a.facts.Of(model.ReturnVariable{Method: a.method})
	if !ok {
		return set(props, lattice.Independent, lattice.Of(lattice.FullyIndependent))
	}
	return set(props, lattice.Independent, a.ctx.independenceOfLinks(rf.Linked))
}

// precondition combines the escapes of the body with the field requirements
// of the methods it calls unconditionally on its own receiver.
func (a *MethodAnalyser) precondition(int) (components.Status, error) {
	if !a.walkDone {
		causes := a.summary.Causes()
		a.builder.Precondition.Delay(causes)
		a.builder.PreconditionForEventual.Delay(causes)
		return components.Delays(causes), nil
	}
	pre := a.summary.Precondition
	var causes lattice.Causes
	for _, call := range receiverCalls(a.tree) {
		callee := call.Method
		if callee.Owner != a.method.Owner || callee == a.method || a.ctx.SameCycle(a.method, callee) {
			continue
		}
		ma, ok := a.ctx.Method(callee)
		if !ok {
			continue
		}
		v := ma.Precondition()
		if !v.Done {
			causes = causes.Merge(v.Causes)
			continue
		}
		pre = pre.Combine(eventual.FieldPrecondition(v.V))
	}
	if !causes.Empty() {
		a.builder.Precondition.Delay(causes)
		a.builder.PreconditionForEventual.Delay(causes)
		return components.Delays(causes), nil
	}
	if err := a.builder.Precondition.Set(pre); err != nil {
		return components.Status{}, err
	}
	if err := a.builder.PreconditionForEventual.Set(eventual.FieldPrecondition(pre)); err != nil {
		return components.Status{}, err
	}
	return components.Done, nil
}

// eventual derives the mark/only status against the approved preconditions
// of the owner type. Contracted statuses are taken as they are.
func (a *MethodAnalyser) eventual(int) (components.Status, error) {
	if ev, ok := contractedEventual(a.ctx, a.method); ok {
		return components.Done, a.builder.Eventual.Set(ev)
	}
	if a.method.Constructor || a.method.IsLambda() {
		return components.Done, a.builder.Eventual.Set(analysis.NoEventual)
	}
	ta, ok := a.ctx.Type(a.method.Owner)
	if !ok {
		return components.Done, a.builder.Eventual.Set(analysis.NoEventual)
	}
	causes := ta.ApprovedCauses(analysis.E1).Merge(ta.ApprovedCauses(analysis.E2))
	pre, preDone := a.builder.PreconditionForEventual.Get()
	if !preDone {
		causes = causes.Merge(a.builder.PreconditionForEventual.Causes())
	}
	modified := a.builder.Properties().Get(lattice.ModifiedMethod)
	causes = causes.Merge(modified.Causes())
	if !causes.Empty() {
		a.builder.Eventual.Delay(causes)
		return components.Delays(causes), nil
	}
	approved := combinedApproved(ta)
	if modified.IsFalse() && a.method.HasResult() && a.method.Result.IsBool() {
		rv, ok := a.builder.ReturnValue.Get()
		if !ok {
			causes = a.builder.ReturnValue.Causes()
			a.builder.Eventual.Delay(causes)
			return components.Delays(causes), nil
		}
		if ev := eventual.DetectTestMark(rv, approved); ev.Kind != analysis.NotEventual {
			return components.Done, a.builder.Eventual.Set(ev)
		}
	}
	ev := eventual.Detect(pre, approved, fieldAssignments(a.facts))
	return components.Done, a.builder.Eventual.Set(ev)
}

// fieldAssignments lists every value the body stores in a receiver field.
func fieldAssignments(mf *analysis.MethodFacts) []eventual.Assignment {
	var out []eventual.Assignment
	for _, f := range mf.All() {
		field, ok := model.IsFieldOfThis(f.Variable)
		if !ok || !f.Assigned {
			continue
		}
		for _, v := range f.Values {
			out = append(out, eventual.Assignment{Field: field.Name, Value: v})
		}
	}
	return out
}

// combinedApproved merges both approved maps; level 1 wins on a conflict.
func combinedApproved(ta *analysis.TypeAnalysis) *analysis.ApprovedPreconditions {
	out := analysis.NewApprovedPreconditions()
	for _, l := range []analysis.Level{analysis.E1, analysis.E2} {
		approved := ta.Approved(l)
		for _, f := range approved.Fields() {
			c, _ := approved.Get(f)
			_ = out.Put(f, c)
		}
	}
	out.Freeze()
	return out
}

// contractedEventual turns mark/only directives into a status and reports
// the ones that contradict themselves.
func contractedEventual(ctx *Context, m *model.MethodInfo) (analysis.Eventual, bool) {
	c := m.Contract
	ev := eventual.FromContract(c)
	if ev.Kind == analysis.NotEventual {
		return ev, false
	}
	if err := eventual.CheckLabels(c.Mark); err != nil {
		ctx.Report(message.New(message.DuplicateMark, c.Pos, m.FullyQualifiedName(), "%v", err))
	}
	if len(c.Mark) > 0 && len(c.OnlyBefore)+len(c.OnlyAfter) > 0 {
		ctx.Report(message.New(message.DuplicateMark, c.Pos, m.FullyQualifiedName(), "mark and only on one method"))
	}
	return ev, true
}

// receiverCalls returns the calls on the receiver made by statements that
// are reached unconditionally.
func receiverCalls(t *statement.Tree) []model.MethodCall {
	var out []model.MethodCall
	t.Each(func(n *statement.StatementAnalysis) {
		cm := n.ConditionManager()
		if cm == nil || !model.IsTrue(cm.Condition()) {
			return
		}
		for _, x := range statementExpressions(n.Statement) {
			for _, call := range callsIn(x) {
				if call.Method == nil || call.Object == nil {
					continue
				}
				if _, ok := variableOf(call.Object).(model.This); ok {
					out = append(out, call)
				}
			}
		}
	})
	return out
}

func statementExpressions(s model.Statement) []model.Expression {
	var x model.Expression
	switch s := s.(type) {
	case *model.ExpressionStatement:
		x = s.Expr
	case *model.Assignment:
		x = s.Value
	case *model.ContentAssignment:
		x = s.Value
	case *model.Return:
		x = s.Value
	case *model.Throw:
		x = s.Value
	case *model.If:
		x = s.Condition
	case *model.Loop:
		x = s.Condition
	}
	if x == nil {
		return nil
	}
	return []model.Expression{x}
}

func callsIn(x model.Expression) []model.MethodCall {
	var out []model.MethodCall
	var visit func(model.Expression)
	visitAll := func(xs []model.Expression) {
		for _, x := range xs {
			visit(x)
		}
	}
	visit = func(x model.Expression) {
		switch x := x.(type) {
		case model.MethodCall:
			if x.Object != nil {
				visit(x.Object)
			}
			visitAll(x.Args)
			out = append(out, x)
		case model.ConstructorCall:
			visitAll(x.Args)
		case model.Negation:
			visit(x.Expr)
		case model.And:
			visitAll(x.Parts)
		case model.Or:
			visitAll(x.Parts)
		case model.Equals:
			visit(x.Lhs)
			visit(x.Rhs)
		case model.Compare:
			visit(x.Lhs)
			visit(x.Rhs)
		case model.Length:
			visit(x.Of)
		case model.Index:
			visit(x.Collection)
			visit(x.Key)
		case model.InlineConditional:
			visit(x.Condition)
		case model.Opaque:
			visitAll(x.Parts)
		}
	}
	visit(x)
	return out
}

func variableOf(x model.Expression) model.Variable {
	if ve, ok := x.(model.VariableExpression); ok {
		return ve.Variable
	}
	return nil
}

// =============================================================================
// Shallow method analyser
// =============================================================================

// ShallowMethodAnalyser gives a bodiless method its contracted properties,
// or conservative defaults.
type ShallowMethodAnalyser struct {
	ctx      *Context
	method   *model.MethodInfo
	builder  *analysis.MethodAnalysisBuilder
	pipeline *components.Components[int]
}

var _ Analyser = (*ShallowMethodAnalyser)(nil)

// NewShallowMethodAnalyser creates the analyser of a bodiless method.
func NewShallowMethodAnalyser(ctx *Context, m *model.MethodInfo) *ShallowMethodAnalyser {
	a := &ShallowMethodAnalyser{ctx: ctx, method: m, builder: analysis.NewMethodAnalysisBuilder(m)}
	a.pipeline = components.NewBuilder[int](m.FullyQualifiedName(), ctx.Logger()).
		Add("shallow", a.shallow).
		Build()
	ctx.PublishMethod(a.builder.Snapshot())
	return a
}

// Name implements [Analyser].
func (a *ShallowMethodAnalyser) Name() string { return a.method.FullyQualifiedName() }

// Statuses implements [Analyser].
func (a *ShallowMethodAnalyser) Statuses() []components.StepStatus { return a.pipeline.Statuses() }

// Analyse implements [Analyser].
func (a *ShallowMethodAnalyser) Analyse(iteration int) (components.Status, error) {
	s, err := a.pipeline.Run(iteration)
	if err != nil {
		return s, err
	}
	snap := a.builder.Snapshot()
	a.ctx.PublishMethod(snap)
	for _, o := range a.ctx.Observers() {
		o.Method(iteration, snap, a.pipeline.Statuses())
	}
	return s, nil
}

// Freeze implements [Analyser].
func (a *ShallowMethodAnalyser) Freeze() error {
	if err := annotateMethod(a.builder); err != nil {
		return err
	}
	a.ctx.PublishMethod(a.builder.Freeze())
	return nil
}

func (a *ShallowMethodAnalyser) shallow(int) (components.Status, error) {
	m := a.method
	props := a.builder.Properties()
	independent := lattice.Dependent
	if !m.HasResult() || m.Result.Kind == model.KindBasic {
		independent = lattice.FullyIndependent
	}
	notNull := lattice.Nullable
	if m.HasResult() && !m.Result.Nullable() {
		notNull = lattice.EffectivelyNotNull
	}
	defaults := map[lattice.Property]int{
		lattice.ModifiedMethod: 1,
		lattice.NotNull:        notNull,
		lattice.Independent:    independent,
		lattice.Identity:       0,
		lattice.Fluent:         0,
	}
	for _, p := range lattice.AllProperties() {
		v, ok := m.Contract.Get(p)
		if !ok {
			if v, ok = defaults[p]; !ok {
				continue
			}
		}
		if err := props.Set(p, lattice.Of(v)); err != nil {
			return components.Status{}, err
		}
	}
	if err := a.builder.SetFacts(analysis.NewMethodFacts(nil), true); err != nil {
		return components.Status{}, err
	}
	if m.HasResult() {
		if err := a.builder.ReturnValue.Set(model.Instance{Typ: m.Result, ID: a.Name() + ":return"}); err != nil {
			return components.Status{}, err
		}
	}
	for _, c := range []*analysis.Cell[condition.Precondition]{a.builder.Precondition, a.builder.PreconditionForEventual} {
		if err := c.Set(condition.EmptyPrecondition()); err != nil {
			return components.Status{}, err
		}
	}
	ev, _ := contractedEventual(a.ctx, m)
	return components.Done, a.builder.Eventual.Set(ev)
}

// =============================================================================
// Helpers
// =============================================================================

// set writes dv and turns it into a step status.
func set(props *lattice.Properties, p lattice.Property, dv lattice.DV) (components.Status, error) {
	if err := props.Set(p, dv); err != nil {
		return components.Status{}, err
	}
	return components.Of(dv), nil
}

// delay records why the properties are blocked.
func delay(props *lattice.Properties, causes lattice.Causes, ps ...lattice.Property) (components.Status, error) {
	for _, p := range ps {
		if err := props.Set(p, lattice.DelayedBy(causes)); err != nil {
			return components.Status{}, err
		}
	}
	return components.Delays(causes), nil
}

// independenceOfLinks grades the links of a value to the receiver's fields.
// Links to the receiver itself and to parameters do not count.
func (c *Context) independenceOfLinks(l linking.LinkedVariables) lattice.DV {
	var dvs []lattice.DV
	for _, v := range l.Variables() {
		f, ok := model.IsFieldOfThis(v)
		if !ok {
			continue
		}
		d := l.Get(v)
		switch {
		case d.IsDelayed():
			dvs = append(dvs, d)
		case linking.SharesContent(d.Value()):
			dvs = append(dvs, lattice.IndependenceFromImmutable(c.ImmutableOf(f.Type)))
		case d.Value() < linking.None:
			dvs = append(dvs, lattice.Of(d.Value()-linking.Dependent))
		}
	}
	return lattice.MinOf(lattice.Dependent, lattice.FullyIndependent, dvs...)
}
