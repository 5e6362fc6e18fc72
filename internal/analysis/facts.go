package analysis

import (
	"maps"
	"slices"

	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/model"
)

// VariableFacts summarises one variable over a whole method body.
type VariableFacts struct {
	Variable model.Variable

	// Assigned reports a plain assignment; Values holds every assigned value, evaluated.
	Assigned bool
	Values   []model.Expression
	Read     bool

	// ContentModified is the verdict over the variable's linking closure.
	ContentModified lattice.DV
	// ContextNotNull is the not-null grade the body requires of the variable.
	ContextNotNull lattice.DV
	// Size is the emptiness grade the body requires of the variable.
	Size lattice.DV

	// Linked holds what the variable may share content with at method exit.
	Linked linking.LinkedVariables
}

// Causes merges the delays of the facts.
func (f VariableFacts) Causes() lattice.Causes {
	return f.ContentModified.Causes().
		Merge(f.ContextNotNull.Causes()).
		Merge(f.Size.Causes()).
		Merge(f.Linked.Causes())
}

// MethodFacts is the immutable per-variable summary of one method body,
// read by the field and parameter analysers.
type MethodFacts struct {
	vars map[string]VariableFacts
}

// NewMethodFacts builds the summary.
func NewMethodFacts(facts []VariableFacts) *MethodFacts {
	m := make(map[string]VariableFacts, len(facts))
	for _, f := range facts {
		m[f.Variable.FullyQualifiedName()] = f
	}
	return &MethodFacts{vars: m}
}

// Of returns the facts about v.
func (m *MethodFacts) Of(v model.Variable) (VariableFacts, bool) {
	if m == nil {
		return VariableFacts{}, false
	}
	f, ok := m.vars[v.FullyQualifiedName()]
	return f, ok
}

// Field returns the facts about a field of the receiver.
func (m *MethodFacts) Field(f *model.FieldInfo) (VariableFacts, bool) { return m.Of(model.FieldOfThis(f)) }

// All returns every variable's facts, sorted by fully qualified name.
func (m *MethodFacts) All() []VariableFacts {
	if m == nil {
		return nil
	}
	keys := slices.Sorted(maps.Keys(m.vars))
	out := make([]VariableFacts, len(keys))
	for i, k := range keys {
		out[i] = m.vars[k]
	}
	return out
}

// Causes merges the delays of every variable.
func (m *MethodFacts) Causes() lattice.Causes {
	var c lattice.Causes
	for _, f := range m.All() {
		c = c.Merge(f.Causes())
	}
	return c
}

// AssignedFields returns the receiver fields assigned in the body.
func (m *MethodFacts) AssignedFields() []*model.FieldInfo {
	var out []*model.FieldInfo
	for _, f := range m.All() {
		if fi, ok := model.IsFieldOfThis(f.Variable); ok && f.Assigned {
			out = append(out, fi)
		}
	}
	return out
}
