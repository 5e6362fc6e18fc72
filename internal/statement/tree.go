// Package statement walks method bodies and summarises what they do to their variables.
//
// A [Tree] is built once per method and re-walked every iteration:
//
//	Tree
//	 ├─ StatementAnalysis "0"
//	 ├─ StatementAnalysis "1"          if c { ... } else { ... }
//	 │   ├─ block 0: "1.0.0", "1.0.1"
//	 │   └─ block 1: "1.1.0"
//	 └─ StatementAnalysis "2" -> "2'"  replaced by its taken branch
//
// Each walk produces a [Summary]: per-variable facts (assignments, values,
// local modification, context not-null, links), the folded return value,
// the precondition collected from escapes, and diagnostics.
package statement

import (
	"maps"
	"slices"

	"github.com/mpyw/e2immu/internal/condition"
	"github.com/mpyw/e2immu/internal/model"
)

// StatementAnalysis is one node of the tree.
type StatementAnalysis struct {
	Index     Index
	Statement model.Statement
	// Blocks holds the first statement of each sub-block; nil for an empty block.
	Blocks []*StatementAnalysis
	Next   *StatementAnalysis

	vars             map[string]*VariableInfoContainer
	conditionManager *condition.Manager
	methodLevelData  MethodLevelData
	neverContinues   FlowFlag
	escapes          FlowFlag
}

// Variable returns the container of a variable, or nil when the statement never saw it.
func (s *StatementAnalysis) Variable(fqn string) *VariableInfoContainer { return s.vars[fqn] }

// Variables returns the names of the variables seen at this statement, sorted.
func (s *StatementAnalysis) Variables() []string { return slices.Sorted(maps.Keys(s.vars)) }

// ConditionManager returns the condition manager the statement was evaluated under.
func (s *StatementAnalysis) ConditionManager() *condition.Manager { return s.conditionManager }

// MethodLevelData returns the method-wide data as of this statement.
func (s *StatementAnalysis) MethodLevelData() MethodLevelData { return s.methodLevelData }

// NeverContinues reports whether control never reaches the next statement.
func (s *StatementAnalysis) NeverContinues() (value, ok bool) { return s.neverContinues.Get() }

// Escapes reports whether every path through the statement panics.
func (s *StatementAnalysis) Escapes() (value, ok bool) { return s.escapes.Get() }

func (s *StatementAnalysis) container(owner string, v model.Variable) *VariableInfoContainer {
	fqn := v.FullyQualifiedName()
	c, ok := s.vars[fqn]
	if !ok {
		c = newContainer(owner + "@" + string(s.Index))
		s.vars[fqn] = c
	}
	return c
}

// Tree is the statement tree of one method body.
type Tree struct {
	Method       *model.MethodInfo
	First        *StatementAnalysis
	nodes        map[Index]*StatementAnalysis
	replacements map[Index]Index
}

// NewTree builds the tree of m's body. A bodiless method gets an empty tree.
func NewTree(m *model.MethodInfo) *Tree {
	t := &Tree{
		Method:       m,
		nodes:        make(map[Index]*StatementAnalysis),
		replacements: make(map[Index]Index),
	}
	if m.Body != nil {
		t.First = t.buildBlock(m.Body, Top)
	}
	return t
}

func (t *Tree) buildBlock(b *model.Block, index func(int) Index) *StatementAnalysis {
	if b == nil {
		return nil
	}
	var first, prev *StatementAnalysis
	for pos, s := range b.Statements {
		node := t.build(s, index(pos))
		if prev == nil {
			first = node
		} else {
			prev.Next = node
		}
		prev = node
	}
	return first
}

func (t *Tree) build(s model.Statement, idx Index) *StatementAnalysis {
	node := &StatementAnalysis{Index: idx, Statement: s, vars: make(map[string]*VariableInfoContainer)}
	t.nodes[idx] = node
	for k, b := range model.SubBlocks(s) {
		node.Blocks = append(node.Blocks, t.buildBlock(b, func(pos int) Index { return idx.Sub(k, pos) }))
	}
	return node
}

// Node returns the node at an index without following replacements.
func (t *Tree) Node(idx Index) *StatementAnalysis { return t.nodes[idx] }

// Resolve follows the replacement table from idx to the statement that is walked.
func (t *Tree) Resolve(idx Index) Index {
	seen := map[Index]bool{idx: true}
	for {
		next, ok := t.replacements[idx]
		if !ok || seen[next] {
			return idx
		}
		seen[next] = true
		idx = next
	}
}

// Replacements returns a copy of the replacement table.
func (t *Tree) Replacements() map[Index]Index { return maps.Clone(t.replacements) }

// replace installs s in place of the statement at idx and returns the new node.
// The new node continues with the old node's successor.
func (t *Tree) replace(idx Index, s model.Statement) *StatementAnalysis {
	old := t.nodes[idx]
	node := t.build(s, idx.Replaced())
	node.Next = old.Next
	t.replacements[idx] = node.Index
	return node
}

func (t *Tree) resolved(node *StatementAnalysis) *StatementAnalysis {
	if node == nil {
		return nil
	}
	return t.nodes[t.Resolve(node.Index)]
}

// Each visits the walked nodes in statement order, descending into sub-blocks.
func (t *Tree) Each(f func(*StatementAnalysis)) {
	var visit func(*StatementAnalysis)
	visit = func(first *StatementAnalysis) {
		for n := t.resolved(first); n != nil; n = t.resolved(n.Next) {
			f(n)
			for _, b := range n.Blocks {
				visit(b)
			}
		}
	}
	visit(t.First)
}
