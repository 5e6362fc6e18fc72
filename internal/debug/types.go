package debug

import (
	"github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/lattice"
)

// Kind names the entity a snapshot was taken of.
type Kind string

const (
	KindStatements Kind = "statements"
	KindMethod     Kind = "method"
	KindParameter  Kind = "parameter"
	KindField      Kind = "field"
	KindType       Kind = "type"
)

// Snapshot is what one analyser published after one of its runs.
type Snapshot struct {
	Iteration int
	Kind      Kind
	Entity    string
	// Properties holds the done properties by name.
	Properties map[string]int
	// Delayed lists the properties still delayed, with their causes.
	Delayed map[string]string
	Steps   []StepInfo
	// Statements lists "index: variables" per statement, for KindStatements.
	Statements  []string
	Annotations string
}

// StepInfo is the state of one analyser step.
type StepInfo struct {
	Name   string
	Status string
	Ran    bool
}

// IterationInfo is the folded status of one primary iteration.
type IterationInfo struct {
	Unit      string
	Iteration int
	Status    string
}

func stepInfos(steps []components.StepStatus) []StepInfo {
	out := make([]StepInfo, len(steps))
	for i, s := range steps {
		out[i] = StepInfo{Name: s.Name, Status: s.Status.String(), Ran: s.Ran}
	}
	return out
}

// propertiesOf splits the properties of an entity into done and delayed.
// Properties delayed only by their initial placeholder were never computed
// for this entity and are left out.
func propertiesOf(entity string, get propertyGetter) (map[string]int, map[string]string) {
	done := make(map[string]int)
	delayed := make(map[string]string)
	for _, p := range lattice.AllProperties() {
		dv := get(p)
		switch {
		case dv.IsDone():
			done[p.String()] = dv.Value()
		case dv.Causes().Len() == 1 && dv.Causes().Contains(lattice.InitialDelay(entity, p)):
		default:
			delayed[p.String()] = dv.Causes().String()
		}
	}
	return done, delayed
}

type propertyGetter = func(lattice.Property) lattice.DV
