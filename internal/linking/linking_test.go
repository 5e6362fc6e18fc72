package linking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/e2immu/internal/lattice"
	. "github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/model"
)

type vars struct {
	f, g, p, q, x model.Variable
}

func newVars() vars {
	t := &model.TypeInfo{Name: "T", PkgPath: "p"}
	f := &model.FieldInfo{Name: "f", Owner: t, Type: model.SliceOf(model.Basic("int"))}
	g := &model.FieldInfo{Name: "g", Owner: t, Type: model.SliceOf(model.Basic("int"))}
	t.Fields = []*model.FieldInfo{f, g}
	m := &model.MethodInfo{Name: "m", Owner: t}
	p := &model.ParameterInfo{Name: "p", Owner: m, Typ: model.SliceOf(model.Basic("int"))}
	q := &model.ParameterInfo{Name: "q", Index: 1, Owner: m, Typ: model.SliceOf(model.Basic("int"))}
	m.Params = []*model.ParameterInfo{p, q}
	return vars{
		f: model.FieldOfThis(f), g: model.FieldOfThis(g), p: p, q: q,
		x: model.LocalVariable{Name: "x", ID: "0", Method: m, Typ: model.SliceOf(model.Basic("int"))},
	}
}

func delayed(s string) lattice.DV { return lattice.Delayed(lattice.InitialDelay(s, lattice.ModifiedVariable)) }

func TestLinkedVariables(t *testing.T) {
	v := newVars()

	t.Run("merge keeps the strongest degree", func(t *testing.T) {
		a := Of(v.p, lattice.Of(Dependent))
		b := Of(v.p, lattice.Of(StaticallyAssigned)).Merge(Of(v.q, lattice.Of(Independent1)))
		got := a.Merge(b)
		assert.Equal(t, StaticallyAssigned, got.Get(v.p).Value())
		assert.Equal(t, Independent1, got.Get(v.q).Value())
		assert.Equal(t, 2, got.Len())
	})

	t.Run("weaken caps the degree", func(t *testing.T) {
		got := Of(v.p, lattice.Of(StaticallyAssigned)).Weaken(lattice.Of(Dependent))
		assert.Equal(t, Dependent, got.Get(v.p).Value())
	})

	t.Run("absent is none", func(t *testing.T) {
		assert.Equal(t, None, LinkedVariables{}.Get(v.p).Value())
	})

	t.Run("delays are visible", func(t *testing.T) {
		got := Of(v.p, delayed("d"))
		assert.True(t, got.IsDelayed())
		assert.True(t, got.Causes().ContainsSubject("d"))
	})
}

func TestClosure(t *testing.T) {
	v := newVars()
	g := NewGraph()
	g.Add(v.f, Of(v.p, lattice.Of(StaticallyAssigned)))
	g.Add(v.x, Of(v.f, lattice.Of(Dependent)))
	g.Add(v.g, Of(v.q, lattice.Of(Independent1)))

	t.Run("reverse edges are followed", func(t *testing.T) {
		members, causes := g.Closure(v.p)
		assert.True(t, causes.Empty())
		assert.Len(t, members, 3, "p, f and x share content")
	})

	t.Run("independent edges do not share content", func(t *testing.T) {
		members, _ := g.Closure(v.q)
		assert.Len(t, members, 1)
	})
}

func TestContentModified(t *testing.T) {
	v := newVars()

	t.Run("TRUE dominates delays", func(t *testing.T) {
		g := NewGraph()
		g.Add(v.f, Of(v.p, lattice.Of(StaticallyAssigned)))
		g.Add(v.x, Of(v.f, lattice.Of(Dependent)))
		got := ContentModified(g, map[string]lattice.DV{
			v.x.FullyQualifiedName(): lattice.TRUE,
			v.f.FullyQualifiedName(): delayed("call"),
		})
		assert.True(t, got[v.p.FullyQualifiedName()].IsTrue(), "modifying x taints p through f")
	})

	t.Run("a delay keeps the closure delayed", func(t *testing.T) {
		g := NewGraph()
		g.Add(v.f, Of(v.p, lattice.Of(StaticallyAssigned)))
		got := ContentModified(g, map[string]lattice.DV{
			v.f.FullyQualifiedName(): delayed("call"),
			v.p.FullyQualifiedName(): lattice.FALSE,
		})
		assert.True(t, got[v.p.FullyQualifiedName()].IsDelayed())
	})

	t.Run("delayed edge keeps the closure delayed", func(t *testing.T) {
		g := NewGraph()
		g.Add(v.f, Of(v.p, delayed("immutable")))
		got := ContentModified(g, map[string]lattice.DV{v.f.FullyQualifiedName(): lattice.FALSE})
		assert.True(t, got[v.p.FullyQualifiedName()].IsDelayed())
	})

	t.Run("otherwise FALSE", func(t *testing.T) {
		g := NewGraph()
		g.Add(v.f, Of(v.p, lattice.Of(StaticallyAssigned)))
		g.AddVariable(v.q)
		got := ContentModified(g, map[string]lattice.DV{v.q.FullyQualifiedName(): lattice.TRUE})
		assert.True(t, got[v.p.FullyQualifiedName()].IsFalse())
		assert.True(t, got[v.f.FullyQualifiedName()].IsFalse())
		assert.True(t, got[v.q.FullyQualifiedName()].IsTrue())
	})
}

func TestStronglyConnected(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a", "d"},
		"d": {},
		"e": {"e"},
	}
	succ := func(n string) []string { return edges[n] }

	comps := StronglyConnected([]string{"a", "b", "c", "d", "e"}, succ)
	assert.Contains(t, comps, []string{"a", "b", "c"})
	assert.Contains(t, comps, []string{"d"})
	assert.Contains(t, comps, []string{"e"})

	cc := NewCallCycles([]string{"a", "b", "c", "d", "e"}, succ)
	assert.Equal(t, 2, cc.Len(), "abc and the self-recursive e")
	assert.True(t, cc.SameCycle("a", "c"))
	assert.False(t, cc.SameCycle("a", "d"))
	_, ok := cc.IndexOf("d")
	assert.False(t, ok)
}

func TestCallCycleUnanimity(t *testing.T) {
	edges := map[string][]string{"a": {"b"}, "b": {"c"}, "c": {"a"}}
	succ := func(n string) []string { return edges[n] }

	t.Run("FALSE only when every member reported", func(t *testing.T) {
		cc := NewCallCycles([]string{"a", "b", "c"}, succ)
		idx, ok := cc.IndexOf("a")
		require.True(t, ok)

		cc.ReportNotModified(idx, "a")
		cc.ReportNotModified(idx, "a")
		cc.ReportNotModified(idx, "b")
		got := cc.Value(idx)
		require.True(t, got.IsDelayed(), "2 of 3 members")
		assert.Equal(t, lattice.CauseCallCycle, got.Causes().List()[0].Kind)

		cc.ReportNotModified(idx, "c")
		assert.True(t, cc.Value(idx).IsFalse())
	})

	t.Run("one modifying member decides at once", func(t *testing.T) {
		cc := NewCallCycles([]string{"a", "b", "c"}, succ)
		idx, _ := cc.IndexOf("b")
		cc.ReportNotModified(idx, "a")
		cc.ReportModified(idx)
		assert.True(t, cc.Value(idx).IsTrue())
	})

	t.Run("strangers are not counted", func(t *testing.T) {
		cc := NewCallCycles([]string{"a", "b", "c"}, succ)
		idx, _ := cc.IndexOf("a")
		for _, m := range []string{"a", "b", "x"} {
			cc.ReportNotModified(idx, m)
		}
		assert.True(t, cc.Value(idx).IsDelayed())
	})
}
