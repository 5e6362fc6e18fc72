package primary

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/e2immu/internal/analyser"
	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/fault"
	"github.com/mpyw/e2immu/internal/frontend/frontendtest"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
	"github.com/mpyw/e2immu/internal/statement"
)

// run analyses src and returns the frozen result with its messages.
func run(t *testing.T, src string) (*frontendtest.Loaded, *Result, *message.Bag) {
	t.Helper()
	l := frontendtest.Load(t, src)
	bag := message.NewBag()
	res, err := Run(l.Unit, Options{Messages: bag})
	require.NoError(t, err)
	require.LessOrEqual(t, res.Iterations, IterationCap)
	return l, res, bag
}

func methodOf(t *testing.T, res *Result, m *model.MethodInfo) *analysis.MethodAnalysis {
	t.Helper()
	for _, a := range res.Methods {
		if a.Method == m {
			return a
		}
	}
	require.FailNow(t, "no analysis of "+m.FullyQualifiedName())
	return nil
}

func fieldOf(t *testing.T, res *Result, f *model.FieldInfo) *analysis.FieldAnalysis {
	t.Helper()
	for _, a := range res.Fields {
		if a.Field == f {
			return a
		}
	}
	require.FailNow(t, "no analysis of "+f.FullyQualifiedName())
	return nil
}

func typeOf(t *testing.T, res *Result, ti *model.TypeInfo) *analysis.TypeAnalysis {
	t.Helper()
	for _, a := range res.Types {
		if a.Type == ti {
			return a
		}
	}
	require.FailNow(t, "no analysis of "+ti.FullyQualifiedName())
	return nil
}

func paramOf(t *testing.T, res *Result, p *model.ParameterInfo) *analysis.ParameterAnalysis {
	t.Helper()
	for _, a := range res.Parameters {
		if a.Parameter == p {
			return a
		}
	}
	require.FailNow(t, "no analysis of "+p.FullyQualifiedName())
	return nil
}

func TestRun_EffectivelyFinalFields(t *testing.T) {
	t.Parallel()

	l, res, _ := run(t, `package p

type Point struct{ x, y int }

func NewPoint(x, y int) *Point { return &Point{x: x, y: y} }

func (p *Point) X() int { return p.x }
`)
	point := l.Type(t, "Point")
	for _, f := range point.Fields {
		fa := fieldOf(t, res, f)
		assert.True(t, fa.Property(lattice.Final).IsTrue(), f.Name)
		assert.True(t, fa.Final())
	}
	x := methodOf(t, res, l.Method(t, "Point", "X"))
	assert.True(t, x.Property(lattice.ModifiedMethod).IsFalse())
	assert.Contains(t, analysis.FormatAnnotations(x.Annotations()), "@not_modified")

	ta := typeOf(t, res, point)
	assert.Equal(t, lattice.RecursivelyImmutable, ta.Property(lattice.Immutable).Value())
}

func TestRun_SetterMakesMutable(t *testing.T) {
	t.Parallel()

	l, res, _ := run(t, `package p

type Box struct{ v *int }

func NewBox() *Box { return &Box{} }

func (b *Box) Set(v *int) { b.v = v }
`)
	box := l.Type(t, "Box")
	assert.True(t, fieldOf(t, res, box.Fields[0]).Property(lattice.Final).IsFalse())
	assert.True(t, methodOf(t, res, l.Method(t, "Box", "Set")).Property(lattice.ModifiedMethod).IsTrue())
	assert.Equal(t, lattice.Mutable, typeOf(t, res, box).Property(lattice.Immutable).Value())
}

func TestRun_IdentityAndFluent(t *testing.T) {
	t.Parallel()

	l, res, _ := run(t, `package p

type Id struct{}

func (i *Id) Same(x *int) *int { return x }

func (i *Id) Self() *Id { return i }
`)
	same := methodOf(t, res, l.Method(t, "Id", "Same"))
	assert.True(t, same.Property(lattice.Identity).IsTrue())
	assert.True(t, same.Property(lattice.Fluent).IsFalse())

	self := methodOf(t, res, l.Method(t, "Id", "Self"))
	assert.True(t, self.Property(lattice.Fluent).IsTrue())
	assert.True(t, self.Property(lattice.Identity).IsFalse())
	assert.Contains(t, analysis.FormatAnnotations(self.Annotations()), "@fluent")

	for _, ma := range []*analysis.MethodAnalysis{same, self} {
		assert.True(t, ma.Property(lattice.ModifiedMethod).IsFalse(), ma.Method.Name)
		assert.Equal(t, lattice.FullyIndependent, ma.Property(lattice.Independent).Value(), ma.Method.Name)
	}
}

func TestRun_NotNullFromEscape(t *testing.T) {
	t.Parallel()

	l, res, _ := run(t, `package p

type Holder struct{ n int }

func (h *Holder) Use(s *string) int {
	if s == nil {
		panic("nil")
	}
	return len(*s)
}
`)
	use := l.Method(t, "Holder", "Use")
	pa := paramOf(t, res, use.Params[0])
	assert.Equal(t, lattice.EffectivelyNotNull, pa.Property(lattice.NotNull).Value())

	// the precondition is about a parameter, so it never becomes eventual
	ma := methodOf(t, res, use)
	ev := ma.Eventual()
	require.True(t, ev.Done)
	assert.Equal(t, analysis.NotEventual, ev.V.Kind)
}

func TestRun_CallCycleDecidesTogether(t *testing.T) {
	t.Parallel()

	l, res, _ := run(t, `package p

type C struct{ n int }

func (c *C) Even(k int) bool {
	if k == 0 {
		return true
	}
	return c.Odd(k - 1)
}

func (c *C) Odd(k int) bool {
	if k == 0 {
		return false
	}
	c.n++
	return c.Even(k - 1)
}

func (c *C) Ping(k int) bool {
	if k == 0 {
		return true
	}
	return c.Pong(k - 1)
}

func (c *C) Pong(k int) bool {
	if k == 0 {
		return false
	}
	return c.Ping(k - 1)
}
`)
	for _, name := range []string{"Even", "Odd"} {
		ma := methodOf(t, res, l.Method(t, "C", name))
		assert.True(t, ma.Property(lattice.ModifiedMethod).IsTrue(), name)
	}
	for _, name := range []string{"Ping", "Pong"} {
		ma := methodOf(t, res, l.Method(t, "C", name))
		assert.True(t, ma.Property(lattice.ModifiedMethod).IsFalse(), name)
	}
}

func TestRun_FunctionLiterals(t *testing.T) {
	t.Parallel()

	l, res, _ := run(t, `package p

type L struct{ n int }

func (l *L) Bump() {
	f := func() { l.n++ }
	f()
}

func (l *L) Peek() int {
	f := func() int { return l.n }
	return f()
}
`)
	bump := l.Method(t, "L", "Bump")
	require.Len(t, bump.Lambdas, 1)
	assert.True(t, methodOf(t, res, bump.Lambdas[0]).Property(lattice.ModifiedMethod).IsTrue())
	assert.True(t, methodOf(t, res, bump).Property(lattice.ModifiedMethod).IsTrue())
	assert.True(t, methodOf(t, res, l.Method(t, "L", "Peek")).Property(lattice.ModifiedMethod).IsFalse())
}

func TestRun_EventuallyImmutable(t *testing.T) {
	t.Parallel()

	l, res, _ := run(t, `package p

type Config struct {
	frozen bool
	values map[string]string
}

func NewConfig() *Config { return &Config{values: map[string]string{}} }

func (c *Config) Put(k, v string) {
	if c.frozen {
		panic("frozen")
	}
	c.values[k] = v
}

func (c *Config) Freeze() {
	if c.frozen {
		panic("frozen")
	}
	c.frozen = true
}

func (c *Config) Get(k string) string { return c.values[k] }

func (c *Config) IsFrozen() bool { return c.frozen }
`)
	tests := []struct {
		method string
		want   string
	}{
		{"Put", "only before(frozen)"},
		{"Freeze", "mark(frozen)"},
		{"Get", "not eventual"},
		{"IsFrozen", "test mark(frozen)"},
	}
	for _, tt := range tests {
		ev := methodOf(t, res, l.Method(t, "Config", tt.method)).Eventual()
		require.True(t, ev.Done, tt.method)
		assert.Equal(t, tt.want, ev.V.String(), tt.method)
	}

	ta := typeOf(t, res, l.Type(t, "Config"))
	assert.Equal(t, lattice.EventuallyImmutable, ta.Property(lattice.Immutable).Value())
	frozen, ok := ta.Approved(analysis.E1).Get("frozen")
	require.True(t, ok)
	assert.Equal(t, "!frozen", frozen.String())
	assert.Contains(t, analysis.FormatAnnotations(methodOf(t, res, l.Method(t, "Config", "Freeze")).Annotations()), "@mark(frozen)")
}

func TestRun_WritesThroughElements(t *testing.T) {
	t.Parallel()

	l, res, _ := run(t, `package p

type Cell struct{ n int }

type Grid struct {
	items []Cell
	ptrs  []*Cell
}

func NewGrid() *Grid { return &Grid{} }

func (g *Grid) Bump(i int) { g.items[i].n++ }

func (g *Grid) Poke(i int) { g.ptrs[i].n = 7 }
`)
	for _, name := range []string{"Bump", "Poke"} {
		assert.True(t, methodOf(t, res, l.Method(t, "Grid", name)).Property(lattice.ModifiedMethod).IsTrue(), name)
	}
	grid := l.Type(t, "Grid")
	for _, f := range grid.Fields {
		assert.True(t, fieldOf(t, res, f).Property(lattice.ModifiedOutsideMethod).IsTrue(), f.Name)
	}
	assert.Equal(t, lattice.FinalFields, typeOf(t, res, grid).Property(lattice.Immutable).Value())
}

func TestRun_ElementImmutability(t *testing.T) {
	t.Parallel()

	l, res, _ := run(t, `package p

type Dict struct{ values map[string]string }

func NewDict() *Dict { return &Dict{values: map[string]string{}} }

func (d *Dict) Get(k string) string { return d.values[k] }

type Rows struct{ rows [][]int }

func NewRows() *Rows { return &Rows{} }

func (r *Rows) Row(i int) []int { return r.rows[i] }
`)
	assert.Equal(t, lattice.EffectivelyImmutable, typeOf(t, res, l.Type(t, "Dict")).Property(lattice.Immutable).Value(),
		"a string read from the map shares nothing with it")
	assert.Equal(t, lattice.FinalFields, typeOf(t, res, l.Type(t, "Rows")).Property(lattice.Immutable).Value(),
		"a returned row is part of the field")
}

func TestRun_TypeIndependence(t *testing.T) {
	t.Parallel()

	l, res, _ := run(t, `package p

type Holder struct{ Items []int }

type Bag struct{ items []int }

func NewBag() *Bag { return &Bag{} }

func (b *Bag) Len() int { return len(b.items) }

func (b *Bag) Export(dst *Holder) { dst.Items = b.items }

type Counter struct{ n int }

func (c *Counter) N() int { return c.n }
`)
	export := l.Method(t, "Bag", "Export")
	assert.Equal(t, lattice.Dependent, paramOf(t, res, export.Params[0]).Property(lattice.Independent).Value())
	assert.Equal(t, lattice.FullyIndependent, methodOf(t, res, export).Property(lattice.Independent).Value(),
		"no result")
	assert.Equal(t, lattice.Dependent, typeOf(t, res, l.Type(t, "Bag")).Property(lattice.Independent).Value())
	assert.Equal(t, lattice.FullyIndependent, typeOf(t, res, l.Type(t, "Counter")).Property(lattice.Independent).Value())
}

// modifiedTrace records the iteration at which each method first publishes
// a modifying verdict.
type modifiedTrace struct{ first map[string]int }

func (m *modifiedTrace) Statements(int, *statement.Tree) {}
func (m *modifiedTrace) Method(iteration int, a *analysis.MethodAnalysis, _ []components.StepStatus) {
	if _, seen := m.first[a.Method.Name]; !seen && a.Property(lattice.ModifiedMethod).IsTrue() {
		m.first[a.Method.Name] = iteration
	}
}
func (m *modifiedTrace) Parameter(int, *analysis.ParameterAnalysis, []components.StepStatus) {}
func (m *modifiedTrace) Field(int, *analysis.FieldAnalysis, []components.StepStatus)         {}
func (m *modifiedTrace) Type(int, *analysis.TypeAnalysis, []components.StepStatus)           {}

func TestRun_CycleVerdictReachesDelayedMember(t *testing.T) {
	t.Parallel()

	// Odd modifies and is analysed first; Even still waits for Later when
	// the cycle has already decided.
	l := frontendtest.Load(t, `package p

type C struct{ n int }

func (c *C) Odd(k int) bool {
	c.n++
	if k == 0 {
		return false
	}
	return c.Even(k - 1)
}

func (c *C) Even(k int) bool {
	c.Later()
	if k == 0 {
		return true
	}
	return c.Odd(k - 1)
}

func (c *C) Later() bool { return c.n > 0 }
`)
	trace := &modifiedTrace{first: make(map[string]int)}
	res, err := Run(l.Unit, Options{Observers: []analyser.Observer{trace}})
	require.NoError(t, err)
	assert.True(t, methodOf(t, res, l.Method(t, "C", "Even")).Property(lattice.ModifiedMethod).IsTrue())
	require.Contains(t, trace.first, "Odd")
	assert.Equal(t, trace.first["Odd"], trace.first["Even"])
}

func TestRun_ConvergesWithinChainDepth(t *testing.T) {
	t.Parallel()

	// each method waits for the next one; m3 reads a field
	l := frontendtest.Load(t, `package p

type T struct{ n int }

func (t *T) m0() int { return t.m1() }

func (t *T) m1() int { return t.m2() }

func (t *T) m2() int { return t.m3() }

func (t *T) m3() int { return t.n }
`)
	res, err := Run(l.Unit, Options{})
	require.NoError(t, err)
	// the call chain has three edges; the eventual status of m0 adds two
	// more through the approved preconditions of T, which need m0's facts
	const depth = 3 + 2
	assert.GreaterOrEqual(t, res.Iterations, 4, "m0 cannot finish before the chain unwinds")
	assert.LessOrEqual(t, res.Iterations, depth+1)
	for _, m := range l.Type(t, "T").Methods {
		assert.True(t, methodOf(t, res, m).Property(lattice.ModifiedMethod).IsFalse(), m.Name)
	}
}

// =============================================================================
// Iteration control
// =============================================================================

// stuck returns the same status on every iteration.
type stuck struct {
	status components.Status
	frozen bool
}

func (s *stuck) Name() string                           { return "stuck" }
func (s *stuck) Analyse(int) (components.Status, error) { return s.status, nil }
func (s *stuck) Statuses() []components.StepStatus      { return nil }
func (s *stuck) Freeze() error                          { s.frozen = true; return nil }

func newStuck(p *Analyser, status components.Status) *stuck {
	s := &stuck{status: status}
	p.round.add(s)
	return s
}

func bare() *Analyser {
	return &Analyser{
		unit:   &model.Unit{PkgPath: "example.com/p"},
		logger: slog.New(slog.DiscardHandler),
		round:  round{name: "example.com/p", cap: IterationCap},
	}
}

var pending = lattice.NewCauses(lattice.Cause{Subject: "example.com/p.T.m", Kind: lattice.CauseInitial})

func TestAnalyse_IterationCap(t *testing.T) {
	t.Parallel()

	p := bare()
	newStuck(p, components.Progress(pending))
	_, err := p.Analyse()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrIterationCap))
	assert.Equal(t, IterationCap+1, p.round.iteration)
}

func TestAnalyse_NoProgress(t *testing.T) {
	t.Parallel()

	p := bare()
	s := newStuck(p, components.Delays(pending))
	_, err := p.Analyse()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrNoProgress))
	assert.Equal(t, 1, p.round.iteration)
	assert.False(t, s.frozen)
}

type recorder struct{ statuses []string }

func (r *recorder) Iteration(_ string, _ int, s components.Status) {
	r.statuses = append(r.statuses, s.String())
}

func TestAnalyse_ObserversSeeEveryIteration(t *testing.T) {
	t.Parallel()

	l := frontendtest.Load(t, `package p

type T struct{ n int }

func (t *T) N() int { return t.n }
`)
	rec := &recorder{}
	p, err := New(l.Unit, Options{Iterations: []IterationObserver{rec}})
	require.NoError(t, err)
	res, err := p.Analyse()
	require.NoError(t, err)
	assert.Len(t, rec.statuses, res.Iterations)
	assert.Equal(t, components.Done.String(), rec.statuses[len(rec.statuses)-1])
}

// =============================================================================
// Dependency order
// =============================================================================

func TestOrderTypes(t *testing.T) {
	t.Parallel()

	a := &model.TypeInfo{Name: "A", PkgPath: "p"}
	b := &model.TypeInfo{Name: "B", PkgPath: "p"}
	c := &model.TypeInfo{Name: "C", PkgPath: "p"}
	a.Fields = []*model.FieldInfo{{Name: "b", Owner: a, Type: model.PointerTo(model.Named(b))}}
	b.Fields = []*model.FieldInfo{{Name: "cs", Owner: b, Type: model.SliceOf(model.Named(c))}}
	c.Fields = []*model.FieldInfo{{Name: "a", Owner: c, Type: model.PointerTo(model.Named(a))}}
	d := &model.TypeInfo{Name: "D", PkgPath: "p"}
	d.Fields = []*model.FieldInfo{{Name: "a", Owner: d, Type: model.Named(a)}}

	order := OrderTypes([]*model.TypeInfo{d, a, b, c})
	// A, B and C reach each other and keep declaration order; D uses them
	assert.Equal(t, []*model.TypeInfo{a, b, c, d}, order)

	cycles := TypeCycles(order)
	assert.True(t, cycles.SameCycle(a.FullyQualifiedName(), c.FullyQualifiedName()))
	assert.False(t, cycles.SameCycle(a.FullyQualifiedName(), d.FullyQualifiedName()))
}

func TestCallCycles(t *testing.T) {
	t.Parallel()

	typ := &model.TypeInfo{Name: "T", PkgPath: "p"}
	m1 := &model.MethodInfo{Name: "m1", Owner: typ}
	m2 := &model.MethodInfo{Name: "m2", Owner: typ}
	m3 := &model.MethodInfo{Name: "m3", Owner: typ}
	lambda := &model.MethodInfo{Name: "func1", Owner: typ, Enclosing: m2}
	m2.Lambdas = []*model.MethodInfo{lambda}
	m1.Calls = []*model.MethodInfo{m2}
	lambda.Calls = []*model.MethodInfo{m1}
	m3.Calls = []*model.MethodInfo{m1, {Name: "elsewhere", Owner: &model.TypeInfo{Name: "X", PkgPath: "q"}}}
	typ.Methods = []*model.MethodInfo{m1, m2, m3}

	cycles := CallCycles([]*model.TypeInfo{typ})
	assert.True(t, cycles.SameCycle(m1.FullyQualifiedName(), m2.FullyQualifiedName()))
	assert.True(t, cycles.SameCycle(m1.FullyQualifiedName(), lambda.FullyQualifiedName()))
	assert.False(t, cycles.SameCycle(m1.FullyQualifiedName(), m3.FullyQualifiedName()))
}
