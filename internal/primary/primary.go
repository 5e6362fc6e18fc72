// Package primary drives the entity analysers of one unit to a fixed point.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│  New(unit)                                                       │
//	│    ├── order types: field types before their users               │
//	│    ├── call cycles (Tarjan over the static call graph)           │
//	│    └── per type: methods + parameters, fields, the type          │
//	│                                                                  │
//	│  Analyse()                                                       │
//	│    iteration 1..10:  every analyser once, in build order         │
//	│      DONE      → freeze, transfer properties to annotations      │
//	│      PROGRESS  → next iteration                                  │
//	│      DELAYS    → ErrNoProgress                                   │
//	│                                                                  │
//	│  function literals: a nested analyser per enclosing method,      │
//	│  stepped once per run of the enclosing method, capped at 20      │
//	└──────────────────────────────────────────────────────────────────┘
//
// The primary analyser owns the call-cycle arena; method analysers only hold
// the index of their cycle.
package primary

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mpyw/e2immu/internal/analyser"
	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/fault"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
	"github.com/mpyw/e2immu/internal/statement"
)

const (
	// IterationCap bounds the iterations of the primary analyser.
	IterationCap = 10
	// NestedIterationCap bounds the iterations of a nested analyser.
	NestedIterationCap = 20
)

// IterationObserver sees the folded status of every iteration.
type IterationObserver interface {
	Iteration(unit string, iteration int, status components.Status)
}

// Options configures the primary analyser.
type Options struct {
	Logger     *slog.Logger
	Walk       statement.Options
	Messages   *message.Bag
	Observers  []analyser.Observer
	Iterations []IterationObserver
}

// Result holds the frozen analyses of a unit, in build order.
type Result struct {
	Iterations int
	Types      []*analysis.TypeAnalysis
	Methods    []*analysis.MethodAnalysis
	Fields     []*analysis.FieldAnalysis
	Parameters []*analysis.ParameterAnalysis
}

// Analyser is the primary analyser of one unit.
type Analyser struct {
	unit       *model.Unit
	ctx        *analyser.Context
	logger     *slog.Logger
	iterations []IterationObserver
	round      round
	order      []*model.TypeInfo
}

// New builds every entity analyser of unit. Analysers publish their initial
// snapshots as they are built, so every entity is visible from the first
// iteration on.
func New(unit *model.Unit, opts Options) (*Analyser, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	order := OrderTypes(unit.Types)
	ctx := analyser.NewContext(analyser.Settings{
		Logger:     opts.Logger,
		Walk:       opts.Walk,
		Messages:   opts.Messages,
		Calls:      CallCycles(order),
		TypeCycles: TypeCycles(order),
		Companions: newCompanion,
		Observers:  opts.Observers,
	})
	p := &Analyser{
		unit:       unit,
		ctx:        ctx,
		logger:     opts.Logger,
		iterations: opts.Iterations,
		round:      round{name: unit.PkgPath, cap: IterationCap},
		order:      order,
	}
	for _, t := range order {
		for _, m := range t.AllMethods() {
			a, err := newMethodAnalyser(ctx, m)
			if err != nil {
				return nil, fault.New("build", m.FullyQualifiedName(), err)
			}
			p.round.add(a)
			for _, param := range m.Params {
				p.round.add(analyser.NewParameterAnalyser(ctx, param))
			}
		}
		for _, f := range t.Fields {
			p.round.add(analyser.NewFieldAnalyser(ctx, f))
		}
		p.round.add(analyser.NewTypeAnalyser(ctx, t))
	}
	return p, nil
}

func newMethodAnalyser(ctx *analyser.Context, m *model.MethodInfo) (analyser.Analyser, error) {
	if m.IsShallow() {
		return analyser.NewShallowMethodAnalyser(ctx, m), nil
	}
	return analyser.NewMethodAnalyser(ctx, m)
}

// Context returns the shared context, for observers and tests.
func (p *Analyser) Context() *analyser.Context { return p.ctx }

// Analysers returns the top-level analysers in build order.
func (p *Analyser) Analysers() []analyser.Analyser { return slices.Clone(p.round.analysers) }

// Analyse iterates until every analyser is done, then freezes them all.
func (p *Analyser) Analyse() (*Result, error) {
	for {
		s, err := p.round.next()
		if err != nil {
			return nil, err
		}
		for _, o := range p.iterations {
			o.Iteration(p.unit.PkgPath, p.round.iteration, s)
		}
		p.logger.Debug("iteration done",
			slog.String("unit", p.unit.PkgPath),
			slog.Int("iteration", p.round.iteration),
			slog.String("status", s.String()))
		switch {
		case s.IsDone():
			if err := p.round.freeze(); err != nil {
				return nil, err
			}
			return p.result(), nil
		case !s.IsProgress():
			return nil, fault.Errorf("analyse", p.unit.PkgPath, "%w after iteration %d: %s",
				fault.ErrNoProgress, p.round.iteration, s.Causes())
		}
	}
}

func (p *Analyser) result() *Result {
	r := &Result{Iterations: p.round.iteration}
	for _, t := range p.order {
		for _, m := range t.AllMethods() {
			p.collectMethod(r, m)
		}
		for _, f := range t.Fields {
			if a, ok := p.ctx.Field(f); ok {
				r.Fields = append(r.Fields, a)
			}
		}
		if a, ok := p.ctx.Type(t); ok {
			r.Types = append(r.Types, a)
		}
	}
	return r
}

func (p *Analyser) collectMethod(r *Result, m *model.MethodInfo) {
	if a, ok := p.ctx.Method(m); ok {
		r.Methods = append(r.Methods, a)
	}
	for _, param := range m.Params {
		if a, ok := p.ctx.Parameter(param); ok {
			r.Parameters = append(r.Parameters, a)
		}
	}
	for _, l := range m.Lambdas {
		p.collectMethod(r, l)
	}
}

// =============================================================================
// Iteration rounds
// =============================================================================

// round runs a fixed list of analysers once per iteration.
type round struct {
	name      string
	cap       int
	iteration int
	analysers []analyser.Analyser
}

func (r *round) add(a analyser.Analyser) { r.analysers = append(r.analysers, a) }

// next runs the following iteration and folds the statuses.
func (r *round) next() (components.Status, error) {
	r.iteration++
	if r.iteration > r.cap {
		return components.Status{}, fault.Errorf("analyse", r.name, "%w: %d", fault.ErrIterationCap, r.cap)
	}
	status := components.Done
	for _, a := range r.analysers {
		s, err := a.Analyse(r.iteration)
		if err != nil {
			return components.Status{}, fault.New("analyse", a.Name(), err)
		}
		status = status.Combine(s)
	}
	return status, nil
}

func (r *round) freeze() error {
	for _, a := range r.analysers {
		if err := a.Freeze(); err != nil {
			return fault.New("freeze", a.Name(), err)
		}
	}
	return nil
}

// =============================================================================
// Nested analysers for function literals
// =============================================================================

// nested analyses the function literals of one method with the shared context.
// It is stepped by the enclosing method analyser, one iteration per call.
type nested struct {
	ctx       *analyser.Context
	enclosing *model.MethodInfo
	round     round
}

var _ analyser.Companion = (*nested)(nil)

func newCompanion(ctx *analyser.Context, enclosing *model.MethodInfo) (analyser.Companion, error) {
	n := &nested{
		ctx:       ctx,
		enclosing: enclosing,
		round:     round{name: enclosing.FullyQualifiedName() + "$literals", cap: NestedIterationCap},
	}
	for _, l := range enclosing.Lambdas {
		a, err := analyser.NewMethodAnalyser(ctx, l)
		if err != nil {
			return nil, err
		}
		n.round.add(a)
		for _, param := range l.Params {
			n.round.add(analyser.NewParameterAnalyser(ctx, param))
		}
	}
	return n, nil
}

func (n *nested) AnalyseOnce() (components.Status, error) { return n.round.next() }

func (n *nested) Analyses() []*analysis.MethodAnalysis {
	out := make([]*analysis.MethodAnalysis, 0, len(n.enclosing.Lambdas))
	for _, l := range n.enclosing.Lambdas {
		if a, ok := n.ctx.Method(l); ok {
			out = append(out, a)
		}
	}
	return out
}

func (n *nested) Freeze() error { return n.round.freeze() }

// =============================================================================
// Dependency order
// =============================================================================

// OrderTypes sorts types so that the unit types used by a type's fields come
// before it. Types reaching each other through their fields keep their
// declaration order among themselves.
func OrderTypes(types []*model.TypeInfo) []*model.TypeInfo {
	byName := make(map[string]*model.TypeInfo, len(types))
	declared := make(map[string]int, len(types))
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.FullyQualifiedName()
		byName[names[i]] = t
		declared[names[i]] = i
	}
	var out []*model.TypeInfo
	for _, comp := range linking.StronglyConnected(names, fieldTypes(byName)) {
		slices.SortFunc(comp, func(a, b string) int { return cmp.Compare(declared[a], declared[b]) })
		for _, n := range comp {
			out = append(out, byName[n])
		}
	}
	return out
}

func fieldTypes(byName map[string]*model.TypeInfo) func(string) []string {
	return func(n string) []string {
		var out []string
		for _, f := range byName[n].Fields {
			if u := elementUnitType(f.Type); u != nil {
				if _, ok := byName[u.FullyQualifiedName()]; ok {
					out = append(out, u.FullyQualifiedName())
				}
			}
		}
		return out
	}
}

// elementUnitType looks through pointers and slices for a unit type.
func elementUnitType(t model.TypeRef) *model.TypeInfo {
	for {
		if u := t.UnitType(); u != nil {
			return u
		}
		if t.Elem == nil {
			return nil
		}
		t = *t.Elem
	}
}

// TypeCycles groups the types that reach each other through their fields.
func TypeCycles(types []*model.TypeInfo) *linking.CallCycles {
	byName := make(map[string]*model.TypeInfo, len(types))
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.FullyQualifiedName()
		byName[names[i]] = t
	}
	return linking.NewCallCycles(names, fieldTypes(byName))
}

// CallCycles groups the methods that call each other, directly or through a
// function literal they declare.
func CallCycles(types []*model.TypeInfo) *linking.CallCycles {
	byName := make(map[string]*model.MethodInfo)
	var names []string
	var add func(m *model.MethodInfo)
	add = func(m *model.MethodInfo) {
		names = append(names, m.FullyQualifiedName())
		byName[m.FullyQualifiedName()] = m
		for _, l := range m.Lambdas {
			add(l)
		}
	}
	for _, t := range types {
		for _, m := range t.AllMethods() {
			add(m)
		}
	}
	return linking.NewCallCycles(names, func(n string) []string {
		m, ok := byName[n]
		if !ok {
			return nil
		}
		out := make([]string, 0, len(m.Calls)+len(m.Lambdas))
		for _, c := range m.Calls {
			out = append(out, c.FullyQualifiedName())
		}
		for _, l := range m.Lambdas {
			out = append(out, l.FullyQualifiedName())
		}
		return out
	})
}

// Run builds and analyses unit in one go.
func Run(unit *model.Unit, opts Options) (*Result, error) {
	p, err := New(unit, opts)
	if err != nil {
		return nil, fmt.Errorf("building analysers of %s: %w", unit.PkgPath, err)
	}
	return p.Analyse()
}
