// Package analyser holds the entity analysers driven by the primary analyser.
//
// Every analyser owns one builder and a components pipeline. It reads the
// rest of the unit only through the [Context], which hands out the latest
// published snapshot of every other entity:
//
//	MethodAnalyser ──┐            ┌── FieldAnalyser
//	                 ├─ Context ──┤
//	ParameterAnalyser┘  (snapshots)└── TypeAnalyser
//
// Analysers publish a fresh snapshot after every run, delayed or not.
package analyser

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
	"github.com/mpyw/e2immu/internal/statement"
)

// Analyser is one entity analyser.
type Analyser interface {
	// Name is the fully qualified name of the analysed entity.
	Name() string
	// Analyse runs the pending steps once and publishes a snapshot.
	Analyse(iteration int) (components.Status, error)
	// Statuses returns the last status of every step.
	Statuses() []components.StepStatus
	// Freeze checks contracts, transfers properties to annotations and
	// publishes the final snapshot.
	Freeze() error
}

// Companion analyses the function literals of one method body.
type Companion interface {
	// AnalyseOnce runs one iteration over the literals.
	AnalyseOnce() (components.Status, error)
	// Analyses returns the latest snapshots of the literals.
	Analyses() []*analysis.MethodAnalysis
	// Freeze freezes every analyser of the companion.
	Freeze() error
}

// CompanionFactory builds the companion of a method with function literals.
type CompanionFactory func(ctx *Context, enclosing *model.MethodInfo) (Companion, error)

// Observer sees the analysers after each of their runs. It must not write.
type Observer interface {
	Statements(iteration int, tree *statement.Tree)
	Method(iteration int, a *analysis.MethodAnalysis, steps []components.StepStatus)
	Parameter(iteration int, a *analysis.ParameterAnalysis, steps []components.StepStatus)
	Field(iteration int, a *analysis.FieldAnalysis, steps []components.StepStatus)
	Type(iteration int, a *analysis.TypeAnalysis, steps []components.StepStatus)
}

// Settings configures a [Context].
type Settings struct {
	Logger     *slog.Logger
	Walk       statement.Options
	Messages   *message.Bag
	Calls      *linking.CallCycles
	TypeCycles *linking.CallCycles
	Companions CompanionFactory
	Observers  []Observer
}

// Context is the read-through view shared by the analysers of one unit.
// Only the owner of an entity publishes its snapshots.
type Context struct {
	logger     *slog.Logger
	walk       statement.Options
	bag        *message.Bag
	calls      *linking.CallCycles
	typeCycles *linking.CallCycles
	companions CompanionFactory
	observers  []Observer

	types   map[*model.TypeInfo]*analysis.TypeAnalysis
	methods map[*model.MethodInfo]*analysis.MethodAnalysis
	fields  map[*model.FieldInfo]*analysis.FieldAnalysis
	params  map[*model.ParameterInfo]*analysis.ParameterAnalysis
}

// NewContext creates an empty context.
func NewContext(s Settings) *Context {
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	if s.Messages == nil {
		s.Messages = message.NewBag()
	}
	return &Context{
		logger:     s.Logger,
		walk:       s.Walk,
		bag:        s.Messages,
		calls:      s.Calls,
		typeCycles: s.TypeCycles,
		companions: s.Companions,
		observers:  s.Observers,
		types:      make(map[*model.TypeInfo]*analysis.TypeAnalysis),
		methods:    make(map[*model.MethodInfo]*analysis.MethodAnalysis),
		fields:     make(map[*model.FieldInfo]*analysis.FieldAnalysis),
		params:     make(map[*model.ParameterInfo]*analysis.ParameterAnalysis),
	}
}

// Logger returns the engine logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Messages returns the diagnostics bag.
func (c *Context) Messages() *message.Bag { return c.bag }

// Report adds diagnostics.
func (c *Context) Report(ms ...message.Message) { c.bag.AddAll(ms...) }

// CallCycles returns the call-cycle arena.
func (c *Context) CallCycles() *linking.CallCycles { return c.calls }

// Observers returns the registered observers.
func (c *Context) Observers() []Observer { return c.observers }

// PublishType makes a type snapshot visible.
func (c *Context) PublishType(a *analysis.TypeAnalysis) { c.types[a.Type] = a }

// PublishMethod makes a method snapshot visible.
func (c *Context) PublishMethod(a *analysis.MethodAnalysis) { c.methods[a.Method] = a }

// PublishField makes a field snapshot visible.
func (c *Context) PublishField(a *analysis.FieldAnalysis) { c.fields[a.Field] = a }

// PublishParameter makes a parameter snapshot visible.
func (c *Context) PublishParameter(a *analysis.ParameterAnalysis) { c.params[a.Parameter] = a }

// Type returns the latest snapshot of t.
func (c *Context) Type(t *model.TypeInfo) (*analysis.TypeAnalysis, bool) {
	a, ok := c.types[t]
	return a, ok
}

// Method returns the latest snapshot of m.
func (c *Context) Method(m *model.MethodInfo) (*analysis.MethodAnalysis, bool) {
	a, ok := c.methods[m]
	return a, ok
}

// Field returns the latest snapshot of f.
func (c *Context) Field(f *model.FieldInfo) (*analysis.FieldAnalysis, bool) {
	a, ok := c.fields[f]
	return a, ok
}

// Parameter returns the latest snapshot of p.
func (c *Context) Parameter(p *model.ParameterInfo) (*analysis.ParameterAnalysis, bool) {
	a, ok := c.params[p]
	return a, ok
}

// Methods returns every published method snapshot, lambdas included,
// sorted by fully qualified name.
func (c *Context) Methods() []*analysis.MethodAnalysis {
	out := slices.Collect(maps.Values(c.methods))
	slices.SortFunc(out, func(a, b *analysis.MethodAnalysis) int {
		return strings.Compare(a.Method.FullyQualifiedName(), b.Method.FullyQualifiedName())
	})
	return out
}

// MethodProperty implements [statement.Oracle].
func (c *Context) MethodProperty(m *model.MethodInfo, p lattice.Property) lattice.DV {
	if a, ok := c.methods[m]; ok {
		return a.Property(p)
	}
	return lattice.Delayed(lattice.InitialDelay(m.FullyQualifiedName(), p))
}

// ParameterProperty implements [statement.Oracle].
func (c *Context) ParameterProperty(p *model.ParameterInfo, prop lattice.Property) lattice.DV {
	if a, ok := c.params[p]; ok {
		return a.Property(prop)
	}
	return lattice.Delayed(lattice.InitialDelay(p.FullyQualifiedName(), prop))
}

// SameCycle implements [statement.Oracle].
func (c *Context) SameCycle(a, b *model.MethodInfo) bool {
	return c.calls.SameCycle(a.FullyQualifiedName(), b.FullyQualifiedName())
}

// CallCycleOf returns the index of the call cycle m belongs to.
func (c *Context) CallCycleOf(m *model.MethodInfo) (int, bool) {
	return c.calls.IndexOf(m.FullyQualifiedName())
}

// SameTypeCycle reports whether two types reach each other through their fields.
// A type is always in its own cycle.
func (c *Context) SameTypeCycle(a, b *model.TypeInfo) bool {
	if a == b {
		return true
	}
	return c.typeCycles.SameCycle(a.FullyQualifiedName(), b.FullyQualifiedName())
}

// NewCompanion builds the companion for m's function literals, or nil when it has none.
func (c *Context) NewCompanion(m *model.MethodInfo) (Companion, error) {
	if len(m.Lambdas) == 0 || c.companions == nil {
		return nil, nil
	}
	return c.companions(c, m)
}

// ImmutableOf grades the immutability of values of type t.
//
// Basic values are recursively immutable. Unit types and pointers to them
// carry the latest grade of the type. Slices, maps, channels, functions,
// foreign types and interfaces are mutable.
func (c *Context) ImmutableOf(t model.TypeRef) lattice.DV {
	switch t.Kind {
	case model.KindNone, model.KindBasic:
		return lattice.Of(lattice.RecursivelyImmutable)
	case model.KindNamed, model.KindPointer:
		if u := t.UnitType(); u != nil {
			if a, ok := c.types[u]; ok {
				return a.Property(lattice.Immutable)
			}
			return lattice.Delayed(lattice.InitialDelay(u.FullyQualifiedName(), lattice.Immutable))
		}
	}
	return lattice.Of(lattice.Mutable)
}

// ContentImmutable implements [statement.Oracle].
func (c *Context) ContentImmutable(m *model.MethodInfo, t model.TypeRef) lattice.DV {
	if u := t.UnitType(); u != nil && m.Owner != nil && c.SameTypeCycle(m.Owner, u) {
		return lattice.Of(lattice.Mutable)
	}
	return c.ImmutableOf(t)
}

// NotNullOf grades the nullability of a value computed in caller. Calls back
// into caller's own call cycle are neutral, so that recursion is decided by
// the other paths.
func (c *Context) NotNullOf(x model.Expression, caller *model.MethodInfo) lattice.DV {
	notNull := lattice.Of(lattice.EffectivelyNotNull)
	switch x := x.(type) {
	case nil, model.NullConstant:
		return lattice.Of(lattice.Nullable)
	case model.BoolConstant, model.IntConstant, model.StringConstant,
		model.ConstructorCall, model.Lambda, model.Negation, model.And, model.Or,
		model.Equals, model.Compare, model.Length:
		return notNull
	case model.VariableExpression:
		if !x.Variable.Type().Nullable() {
			return notNull
		}
		switch v := x.Variable.(type) {
		case model.This:
			return notNull
		case *model.ParameterInfo:
			return c.ParameterProperty(v, lattice.NotNull)
		case model.FieldReference:
			if a, ok := c.fields[v.Field]; ok && v.IsThis() {
				return a.Property(lattice.NotNull)
			}
		}
	case model.MethodCall:
		if x.Method != nil {
			switch {
			case !x.Method.Result.Nullable():
				return notNull
			case caller != nil && (x.Method == caller || c.SameCycle(caller, x.Method)):
				return lattice.Of(lattice.Content2NotNull)
			}
			return c.MethodProperty(x.Method, lattice.NotNull)
		}
	case model.InlineConditional:
		return lattice.MinOf(lattice.Nullable, lattice.Content2NotNull,
			c.NotNullOf(x.IfTrue, caller), c.NotNullOf(x.IfFalse, caller))
	case model.Instance:
		if !x.Typ.Nullable() {
			return notNull
		}
	}
	return lattice.Of(lattice.Nullable)
}

// methodsOf returns the constructors and methods of t, each followed by its
// function literals.
func methodsOf(t *model.TypeInfo) []*model.MethodInfo {
	var out []*model.MethodInfo
	var add func(m *model.MethodInfo)
	add = func(m *model.MethodInfo) {
		out = append(out, m)
		for _, l := range m.Lambdas {
			add(l)
		}
	}
	for _, m := range t.AllMethods() {
		add(m)
	}
	return out
}
