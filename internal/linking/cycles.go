package linking

import (
	"slices"
	"strings"

	"github.com/mpyw/e2immu/internal/lattice"
)

// =============================================================================
// Strongly connected components
// =============================================================================

// StronglyConnected returns the strongly connected components of the graph
// given by nodes and successors, with Tarjan's algorithm. Members of each
// component are sorted; components come out in reverse topological order.
func StronglyConnected(nodes []string, successors func(string) []string) [][]string {
	t := &tarjan{
		successors: successors,
		index:      make(map[string]int, len(nodes)),
		low:        make(map[string]int, len(nodes)),
		onStack:    make(map[string]bool, len(nodes)),
	}
	for _, n := range nodes {
		if _, seen := t.index[n]; !seen {
			t.visit(n)
		}
	}
	return t.components
}

type tarjan struct {
	successors func(string) []string
	next       int
	index      map[string]int
	low        map[string]int
	stack      []string
	onStack    map[string]bool
	components [][]string
}

// visit is recursive; call graphs of one package are shallow enough.
func (t *tarjan) visit(n string) {
	t.index[n], t.low[n] = t.next, t.next
	t.next++
	t.stack = append(t.stack, n)
	t.onStack[n] = true

	for _, s := range t.successors(n) {
		if _, seen := t.index[s]; !seen {
			t.visit(s)
			t.low[n] = min(t.low[n], t.low[s])
		} else if t.onStack[s] {
			t.low[n] = min(t.low[n], t.index[s])
		}
	}

	if t.low[n] != t.index[n] {
		return
	}
	var comp []string
	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[top] = false
		comp = append(comp, top)
		if top == n {
			break
		}
	}
	slices.Sort(comp)
	t.components = append(t.components, comp)
}

// =============================================================================
// Call cycles
// =============================================================================

// CallCycles is the arena of call-cycle decisions of one unit.
//
// A cycle is a group of methods calling each other. The group decides
// MODIFIED_METHOD as a whole:
//
//	any member reports modified      → TRUE immediately
//	every member reports unmodified  → FALSE
//	otherwise                        → delayed
//
// The orchestrator owns the arena; method analysers refer to their cycle by index.
type CallCycles struct {
	cycles   []*cycle
	byMember map[string]int
}

type cycle struct {
	members     []string
	modified    bool
	notModified map[string]bool
}

// NewCallCycles builds the arena from the strongly connected components of the
// call graph. Only components with more than one member, or a member calling
// itself, become cycles.
func NewCallCycles(nodes []string, successors func(string) []string) *CallCycles {
	cc := &CallCycles{byMember: make(map[string]int)}
	for _, comp := range StronglyConnected(nodes, successors) {
		if len(comp) == 1 && !slices.Contains(successors(comp[0]), comp[0]) {
			continue
		}
		idx := len(cc.cycles)
		cc.cycles = append(cc.cycles, &cycle{members: comp, notModified: make(map[string]bool)})
		for _, m := range comp {
			cc.byMember[m] = idx
		}
	}
	return cc
}

// IndexOf returns the cycle a method belongs to.
func (cc *CallCycles) IndexOf(member string) (int, bool) {
	if cc == nil {
		return 0, false
	}
	idx, ok := cc.byMember[member]
	return idx, ok
}

// SameCycle reports whether both methods belong to one cycle.
func (cc *CallCycles) SameCycle(a, b string) bool {
	ia, oka := cc.IndexOf(a)
	ib, okb := cc.IndexOf(b)
	return oka && okb && ia == ib
}

// Len returns the number of cycles.
func (cc *CallCycles) Len() int { return len(cc.cycles) }

// Members returns the sorted members of a cycle.
func (cc *CallCycles) Members(idx int) []string { return slices.Clone(cc.cycles[idx].members) }

// ReportModified marks the whole cycle as modifying.
func (cc *CallCycles) ReportModified(idx int) { cc.cycles[idx].modified = true }

// ReportNotModified counts a member that found no modification of its own.
// Repeated reports by the same member count once.
func (cc *CallCycles) ReportNotModified(idx int, member string) {
	c := cc.cycles[idx]
	if slices.Contains(c.members, member) {
		c.notModified[member] = true
	}
}

// Value returns the group decision.
func (cc *CallCycles) Value(idx int) lattice.DV {
	c := cc.cycles[idx]
	switch {
	case c.modified:
		return lattice.TRUE
	case len(c.notModified) == len(c.members):
		return lattice.FALSE
	}
	return lattice.Delayed(lattice.Cause{
		Subject:  "cycle[" + strings.Join(c.members, ",") + "]",
		Property: lattice.ModifiedMethod,
		Kind:     lattice.CauseCallCycle,
	})
}
