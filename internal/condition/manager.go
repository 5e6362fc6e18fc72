// Package condition tracks path conditions, in-block state and preconditions.
//
// A [Manager] is an immutable linked record:
//
//	Manager{condition, state, precondition, parent}
//	   │
//	   └─ parent: the manager of the enclosing block
//
// Entering a block pushes a new node whose parent is the enclosing one.
// Adding to the state after a guard replaces the node at the same level.
// Because nodes are never mutated, statements share prefixes freely.
package condition

import (
	"github.com/mpyw/e2immu/internal/model"
)

// LimitOnComplexity caps the size of combined conditions.
// Beyond it the engine gives up on precision and uses an unknown boolean.
const LimitOnComplexity = 200

// Precondition is a requirement on the caller: the method escapes unless Expression holds.
type Precondition struct {
	Expression model.Expression
	Causes     []string // escape sites that contributed, for diagnostics
}

// EmptyPrecondition requires nothing.
func EmptyPrecondition() Precondition { return Precondition{Expression: model.True} }

// IsEmpty reports whether the precondition is trivially true.
func (p Precondition) IsEmpty() bool { return p.Expression == nil || model.IsTrue(p.Expression) }

// Combine conjoins two preconditions.
func (p Precondition) Combine(o Precondition) Precondition {
	switch {
	case o.IsEmpty():
		return p
	case p.IsEmpty():
		return o
	}
	return Precondition{
		Expression: model.NewAnd(p.Expression, o.Expression),
		Causes:     append(append([]string(nil), p.Causes...), o.Causes...),
	}
}

func (p Precondition) String() string {
	if p.Expression == nil {
		return "true"
	}
	return p.Expression.String()
}

// Manager is the immutable condition record of one statement.
type Manager struct {
	condition    model.Expression
	state        model.Expression
	precondition Precondition
	parent       *Manager
}

// Initial returns the manager at the start of a method body.
func Initial() *Manager {
	return &Manager{condition: model.True, state: model.True, precondition: EmptyPrecondition()}
}

// Condition returns the condition that leads into this block.
func (m *Manager) Condition() model.Expression { return m.condition }

// State returns the cumulative state inside this block.
func (m *Manager) State() model.Expression { return m.state }

// Precondition returns the cumulative precondition of the method so far.
func (m *Manager) Precondition() Precondition { return m.precondition }

// Parent returns the manager of the enclosing block, or nil.
func (m *Manager) Parent() *Manager { return m.parent }

// NewAtStartOfNewBlock pushes a block entered under condition, replacing the precondition.
func (m *Manager) NewAtStartOfNewBlock(condition model.Expression, precondition Precondition) *Manager {
	return &Manager{condition: condition, state: model.True, precondition: precondition, parent: m}
}

// NewAtStartOfNewBlockDoNotChangePrecondition pushes a block entered under condition.
func (m *Manager) NewAtStartOfNewBlockDoNotChangePrecondition(condition model.Expression) *Manager {
	return m.NewAtStartOfNewBlock(condition, m.precondition)
}

// NewForNextStatementDoNotChangePrecondition adds to the state at the same level,
// e.g. !c after "if c { return }".
func (m *Manager) NewForNextStatementDoNotChangePrecondition(addToState model.Expression) *Manager {
	if model.IsTrue(addToState) {
		return m
	}
	return &Manager{condition: m.condition, state: combine(m.state, addToState), precondition: m.precondition, parent: m.parent}
}

// WithPrecondition replaces the precondition at the same level.
func (m *Manager) WithPrecondition(precondition Precondition) *Manager {
	return &Manager{condition: m.condition, state: m.state, precondition: precondition, parent: m.parent}
}

// AbsoluteState is the conjunction of condition and state along the parent chain.
func (m *Manager) AbsoluteState() model.Expression {
	if m.parent == nil {
		return m.state
	}
	parent := m.parent.AbsoluteState()
	if m.condition.Complexity()+m.state.Complexity()+parent.Complexity() > LimitOnComplexity {
		return tooComplex()
	}
	return model.NewAnd(m.condition, m.state, parent)
}

// Evaluate simplifies a boolean value under the absolute state and precondition.
// It returns true when the value is implied, false when it contradicts, and the
// value itself otherwise.
func (m *Manager) Evaluate(value model.Expression) model.Expression {
	context := m.AbsoluteState()
	if !m.precondition.IsEmpty() {
		context = model.NewAnd(context, m.precondition.Expression)
	}
	if model.IsTrue(context) {
		return value
	}
	combined := model.NewAnd(context, value)
	if model.IsFalse(combined) {
		return model.False
	}
	if model.Same(combined, context) {
		return model.True
	}
	return value
}

// FindIndividualNullInCondition returns the variables the block condition
// singles out: with requireEqualsNull, each v == nil that alone makes the
// condition hold; otherwise each v != nil it requires.
func (m *Manager) FindIndividualNullInCondition(requireEqualsNull bool) []model.Variable {
	return FindIndividualNull(m.condition, requireEqualsNull)
}

// FindIndividualNullInState is [Manager.FindIndividualNullInCondition] on the absolute state.
func (m *Manager) FindIndividualNullInState(requireEqualsNull bool) []model.Variable {
	return FindIndividualNull(m.AbsoluteState(), requireEqualsNull)
}

// FindIndividualNull extracts the v == nil disjuncts of value, or its v != nil
// conjuncts.
func FindIndividualNull(value model.Expression, requireEqualsNull bool) []model.Variable {
	parts := model.Conjuncts(value)
	if requireEqualsNull {
		parts = []model.Expression{value}
		if or, ok := value.(model.Or); ok {
			parts = or.Parts
		}
	}
	var out []model.Variable
	for _, c := range parts {
		if v, isNull, ok := model.NullClause(c); ok && isNull == requireEqualsNull {
			out = append(out, v)
		}
	}
	return out
}

// EscapeCondition is the conjunction of the block conditions and in-block states
// leading from the method body to this point. The state of the method body
// itself is left out: it holds what earlier guards already established.
func (m *Manager) EscapeCondition() model.Expression {
	var parts []model.Expression
	for x := m; x.parent != nil; x = x.parent {
		parts = append(parts, x.condition, x.state)
	}
	return model.NewAnd(parts...)
}

// PreconditionFromEscape is the negated [Manager.EscapeCondition] with the
// individual not-null clauses on parameters removed: what an escape at this
// point requires from the caller beyond non-nil parameters.
func (m *Manager) PreconditionFromEscape() model.Expression {
	var rest []model.Expression
	for _, c := range model.Conjuncts(model.Not(m.EscapeCondition())) {
		if v, isNull, ok := model.NullClause(c); ok && !isNull {
			if _, isParam := model.IsParameter(v); isParam {
				continue
			}
		}
		rest = append(rest, c)
	}
	return model.NewAnd(rest...)
}

// IsEmpty reports whether no node in the chain carries any information.
func (m *Manager) IsEmpty() bool {
	for x := m; x != nil; x = x.parent {
		if !model.IsTrue(x.condition) || !model.IsTrue(x.state) || !x.precondition.IsEmpty() {
			return false
		}
	}
	return true
}

func (m *Manager) String() string {
	s := "CM{"
	if !model.IsTrue(m.condition) {
		s += "condition=" + m.condition.String() + ";"
	}
	if !model.IsTrue(m.state) {
		s += "state=" + m.state.String() + ";"
	}
	if !m.precondition.IsEmpty() {
		s += "pc=" + m.precondition.String() + ";"
	}
	if m.parent != nil {
		s += "parent=" + m.parent.String()
	}
	return s + "}"
}

func combine(e1, e2 model.Expression) model.Expression {
	if e1.Complexity()+e2.Complexity() > LimitOnComplexity {
		return tooComplex()
	}
	return model.NewAnd(e1, e2)
}

func tooComplex() model.Expression {
	return model.Instance{Typ: model.Basic("bool"), ID: "too-complex"}
}
