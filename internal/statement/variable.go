package statement

import (
	"github.com/mpyw/e2immu/internal/condition"
	"github.com/mpyw/e2immu/internal/fault"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/model"
)

// Level is the stage of a statement at which a variable is observed.
type Level uint8

const (
	// Initialiser is the state on entry of the statement.
	Initialiser Level = iota
	// Evaluation is the state after the statement's own expressions.
	Evaluation
	// Merge is the state after the statement's sub-blocks have been merged.
	Merge
)

func (l Level) String() string {
	switch l {
	case Initialiser:
		return "initialiser"
	case Evaluation:
		return "evaluation"
	default:
		return "merge"
	}
}

// VariableInfo is what one statement knows about one variable.
type VariableInfo struct {
	Variable       model.Variable
	Value          model.Expression
	Linked         linking.LinkedVariables
	ContextNotNull lattice.DV
}

// VariableInfoContainer holds the levels of one variable at one statement.
// Every iteration writes the same levels again; values may only move from
// delayed to done, and a done value never changes.
type VariableInfoContainer struct {
	owner  string
	levels [Merge + 1]*VariableInfo
}

func newContainer(owner string) *VariableInfoContainer {
	return &VariableInfoContainer{owner: owner}
}

// Get returns the information at one level.
func (c *VariableInfoContainer) Get(l Level) (*VariableInfo, bool) {
	vi := c.levels[l]
	return vi, vi != nil
}

// Best returns the highest level that was written.
func (c *VariableInfoContainer) Best() *VariableInfo {
	for l := Merge; ; l-- {
		if c.levels[l] != nil {
			return c.levels[l]
		}
		if l == Initialiser {
			return nil
		}
	}
}

// Set writes one level.
func (c *VariableInfoContainer) Set(l Level, vi VariableInfo) error {
	prev := c.levels[l]
	if prev != nil {
		switch {
		case !model.Same(prev.Value, vi.Value):
			return fault.Errorf("set variable", c.owner, "%s at %s: value %v then %v: %w",
				vi.Variable.SimpleName(), l, prev.Value, vi.Value, fault.ErrOverwrite)
		case !prev.Linked.IsDelayed() && !prev.Linked.Equal(vi.Linked):
			return fault.Errorf("set variable", c.owner, "%s at %s: linked %v then %v: %w",
				vi.Variable.SimpleName(), l, prev.Linked, vi.Linked, fault.ErrOverwrite)
		case prev.ContextNotNull.IsDone() && vi.ContextNotNull.IsDelayed():
			return fault.Errorf("set variable", c.owner, "%s at %s: context not null: %w",
				vi.Variable.SimpleName(), l, fault.ErrRegression)
		case prev.ContextNotNull.IsDone() && !prev.ContextNotNull.Equal(vi.ContextNotNull):
			return fault.Errorf("set variable", c.owner, "%s at %s: context not null: %w",
				vi.Variable.SimpleName(), l, fault.ErrOverwrite)
		}
	}
	c.levels[l] = &vi
	return nil
}

// FlowFlag is a write-once boolean.
type FlowFlag struct {
	value, set bool
}

// Set records v; a second call must agree with the first.
func (f *FlowFlag) Set(owner, name string, v bool) error {
	if f.set && f.value != v {
		return fault.Errorf("set flow flag", owner, "%s: %t then %t: %w", name, f.value, v, fault.ErrOverwrite)
	}
	f.value, f.set = v, true
	return nil
}

// Get returns the value and whether it was set.
func (f FlowFlag) Get() (value, ok bool) { return f.value, f.set }

// MethodLevelData is what a statement contributes to the method as a whole.
type MethodLevelData struct {
	// Precondition is the combined precondition of the method up to and
	// including this statement.
	Precondition condition.Precondition
	// LinkingDelays holds the causes of delayed links seen at this statement.
	LinkingDelays lattice.Causes
}
