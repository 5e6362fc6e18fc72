package linking

import (
	"maps"
	"slices"

	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/model"
)

// Graph is an undirected view of the links of one method: every edge is
// stored in both directions, so a closure reaches dependents and dependencies alike.
type Graph struct {
	vars  map[string]model.Variable
	edges map[string]map[string]lattice.DV
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{vars: make(map[string]model.Variable), edges: make(map[string]map[string]lattice.DV)}
}

// AddVariable registers a node without edges.
func (g *Graph) AddVariable(v model.Variable) {
	k := v.FullyQualifiedName()
	if _, ok := g.vars[k]; !ok {
		g.vars[k] = v
		g.edges[k] = make(map[string]lattice.DV)
	}
}

// Add records every link of from, plus the reverse edges.
func (g *Graph) Add(from model.Variable, links LinkedVariables) {
	g.AddVariable(from)
	fk := from.FullyQualifiedName()
	for k, l := range links.links {
		if k == fk {
			continue
		}
		g.AddVariable(l.variable)
		g.put(fk, k, l.degree)
		g.put(k, fk, l.degree)
	}
}

func (g *Graph) put(from, to string, d lattice.DV) {
	if cur, ok := g.edges[from][to]; ok {
		d = lattice.MinOf(StaticallyAssigned, None, cur, d)
	}
	g.edges[from][to] = d
}

// Variables returns all nodes sorted by fully qualified name.
func (g *Graph) Variables() []model.Variable {
	keys := slices.Sorted(maps.Keys(g.vars))
	out := make([]model.Variable, len(keys))
	for i, k := range keys {
		out[i] = g.vars[k]
	}
	return out
}

// Closure returns the variables reachable from v through content-sharing
// edges, v included, sorted by name. Delayed edges are followed too; their
// causes are returned so that a verdict over the closure can stay delayed.
func (g *Graph) Closure(v model.Variable) ([]model.Variable, lattice.Causes) {
	start := v.FullyQualifiedName()
	if _, ok := g.vars[start]; !ok {
		return []model.Variable{v}, lattice.Causes{}
	}
	var causes lattice.Causes
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range slices.Sorted(maps.Keys(g.edges[cur])) {
			d := g.edges[cur][next]
			if d.IsDelayed() {
				causes = causes.Merge(d.Causes())
			} else if !SharesContent(d.Value()) {
				continue
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	keys := slices.Sorted(maps.Keys(seen))
	out := make([]model.Variable, len(keys))
	for i, k := range keys {
		out[i] = g.vars[k]
	}
	return out, causes
}

// ContentModified colours every closure of the graph.
//
// local holds the modification observed directly on a variable. For each
// closure: TRUE as soon as one member is TRUE; otherwise delayed when a member
// or an edge is delayed; otherwise FALSE. Variables absent from local count as FALSE.
func ContentModified(g *Graph, local map[string]lattice.DV) map[string]lattice.DV {
	out := make(map[string]lattice.DV, len(g.vars))
	for _, v := range g.Variables() {
		k := v.FullyQualifiedName()
		if _, done := out[k]; done {
			continue
		}
		members, edgeDelays := g.Closure(v)
		dvs := make([]lattice.DV, 0, len(members)+1)
		for _, m := range members {
			if dv, ok := local[m.FullyQualifiedName()]; ok {
				dvs = append(dvs, dv)
			}
		}
		if !edgeDelays.Empty() {
			dvs = append(dvs, lattice.DelayedBy(edgeDelays))
		}
		verdict := lattice.Or(dvs...)
		for _, m := range members {
			mk := m.FullyQualifiedName()
			if prev, ok := out[mk]; ok {
				// Closures through delayed edges may overlap; keep the more decided verdict.
				verdict = lattice.Or(prev, verdict)
			}
			out[mk] = verdict
		}
	}
	for k, dv := range local {
		if _, ok := out[k]; !ok {
			out[k] = dv
		}
	}
	return out
}
