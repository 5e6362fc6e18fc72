// Package linking tracks which variables may share content and propagates
// content modification across them.
//
// A link A → B with degree d means the value of A may derive from B:
//
//	StaticallyAssigned  a = b                 (strongest)
//	Dependent           a = b.sub() / &T{b}    content shared
//	Independent1        only immutable content shared
//	Independent2        ...
//	None                no link                (weakest)
//
// Lower degrees are stronger. Along a path the weakest link counts (max);
// across alternatives the strongest one wins (min).
package linking

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/model"
)

// Link degrees; lower is stronger.
const (
	StaticallyAssigned = 0
	Dependent          = 1
	Independent1       = 2
	Independent2       = 3
	None               = 4
)

// SharesContent reports whether a done degree lets modifications flow.
func SharesContent(degree int) bool { return degree <= Dependent }

// DegreeName renders a done degree.
func DegreeName(degree int) string {
	switch degree {
	case StaticallyAssigned:
		return "statically_assigned"
	case Dependent:
		return "dependent"
	case None:
		return "none"
	default:
		return "independent" + strconv.Itoa(degree-Dependent)
	}
}

type link struct {
	variable model.Variable
	degree   lattice.DV
}

// LinkedVariables is an immutable map from variable to link degree.
// The zero value is empty.
type LinkedVariables struct {
	links map[string]link
}

// Of returns a single link.
func Of(v model.Variable, degree lattice.DV) LinkedVariables {
	return LinkedVariables{links: map[string]link{v.FullyQualifiedName(): {v, degree}}}
}

// Merge combines two maps; for a variable in both, the stronger degree wins.
func (l LinkedVariables) Merge(o LinkedVariables) LinkedVariables {
	if len(o.links) == 0 {
		return l
	}
	if len(l.links) == 0 {
		return o
	}
	out := maps.Clone(l.links)
	for k, ol := range o.links {
		if cur, ok := out[k]; ok {
			out[k] = link{cur.variable, lattice.MinOf(StaticallyAssigned, None, cur.degree, ol.degree)}
			continue
		}
		out[k] = ol
	}
	return LinkedVariables{links: out}
}

// Weaken caps every degree from below: the result is never stronger than degree.
// It is used when a link goes through a call or constructor.
func (l LinkedVariables) Weaken(degree lattice.DV) LinkedVariables {
	if len(l.links) == 0 {
		return l
	}
	out := make(map[string]link, len(l.links))
	for k, cur := range l.links {
		out[k] = link{cur.variable, lattice.MaxOf(StaticallyAssigned, None, cur.degree, degree)}
	}
	return LinkedVariables{links: out}
}

// Remove drops the variables for which drop returns true.
func (l LinkedVariables) Remove(drop func(model.Variable) bool) LinkedVariables {
	out := make(map[string]link, len(l.links))
	for k, cur := range l.links {
		if !drop(cur.variable) {
			out[k] = cur
		}
	}
	return LinkedVariables{links: out}
}

// Get returns the degree of v, None when absent.
func (l LinkedVariables) Get(v model.Variable) lattice.DV {
	if cur, ok := l.links[v.FullyQualifiedName()]; ok {
		return cur.degree
	}
	return lattice.Of(None)
}

// Variables returns the linked variables sorted by fully qualified name.
func (l LinkedVariables) Variables() []model.Variable {
	keys := slices.Sorted(maps.Keys(l.links))
	out := make([]model.Variable, len(keys))
	for i, k := range keys {
		out[i] = l.links[k].variable
	}
	return out
}

// Len returns the number of linked variables.
func (l LinkedVariables) Len() int { return len(l.links) }

// Causes merges the delays of all degrees.
func (l LinkedVariables) Causes() lattice.Causes {
	var c lattice.Causes
	for _, cur := range l.links {
		c = c.Merge(cur.degree.Causes())
	}
	return c
}

// IsDelayed reports whether any degree is delayed.
func (l LinkedVariables) IsDelayed() bool { return !l.Causes().Empty() }

// Equal compares variables and degrees.
func (l LinkedVariables) Equal(o LinkedVariables) bool {
	if len(l.links) != len(o.links) {
		return false
	}
	for k, cur := range l.links {
		ol, ok := o.links[k]
		if !ok || !cur.degree.Equal(ol.degree) {
			return false
		}
	}
	return true
}

func (l LinkedVariables) String() string {
	if len(l.links) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(l.links))
	for _, v := range l.Variables() {
		d := l.links[v.FullyQualifiedName()].degree
		s := d.String()
		if d.IsDone() {
			s = DegreeName(d.Value())
		}
		parts = append(parts, v.SimpleName()+":"+s)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
