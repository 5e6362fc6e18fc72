package debug

import (
	"slices"
	"strings"
	"sync"

	"github.com/mpyw/e2immu/internal/analyser"
	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/primary"
	"github.com/mpyw/e2immu/internal/statement"
)

var (
	_ analyser.Observer         = (*Recorder)(nil)
	_ primary.IterationObserver = (*Recorder)(nil)
)

// Recorder keeps a snapshot of every analyser run, indexed by entity.
// Passes may run in parallel, so every access is locked.
type Recorder struct {
	mu         sync.Mutex
	byEntity   map[string][]Snapshot
	iterations []IterationInfo
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{byEntity: make(map[string][]Snapshot)}
}

func (r *Recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byEntity[s.Entity] = append(r.byEntity[s.Entity], s)
}

// Statements records the statement tree after a walk.
func (r *Recorder) Statements(iteration int, tree *statement.Tree) {
	r.record(Snapshot{
		Iteration:  iteration,
		Kind:       KindStatements,
		Entity:     tree.Method.FullyQualifiedName() + "#body",
		Statements: statementLines(tree),
	})
}

func (r *Recorder) Method(iteration int, a *analysis.MethodAnalysis, steps []components.StepStatus) {
	name := a.Method.FullyQualifiedName()
	done, delayed := propertiesOf(name, a.Property)
	r.record(Snapshot{
		Iteration: iteration, Kind: KindMethod, Entity: name,
		Properties: done, Delayed: delayed, Steps: stepInfos(steps),
		Annotations: analysis.FormatAnnotations(a.Annotations()),
	})
}

func (r *Recorder) Parameter(iteration int, a *analysis.ParameterAnalysis, steps []components.StepStatus) {
	name := a.Parameter.FullyQualifiedName()
	done, delayed := propertiesOf(name, a.Property)
	r.record(Snapshot{
		Iteration: iteration, Kind: KindParameter, Entity: name,
		Properties: done, Delayed: delayed, Steps: stepInfos(steps),
		Annotations: analysis.FormatAnnotations(a.Annotations()),
	})
}

func (r *Recorder) Field(iteration int, a *analysis.FieldAnalysis, steps []components.StepStatus) {
	name := a.Field.FullyQualifiedName()
	done, delayed := propertiesOf(name, a.Property)
	r.record(Snapshot{
		Iteration: iteration, Kind: KindField, Entity: name,
		Properties: done, Delayed: delayed, Steps: stepInfos(steps),
		Annotations: analysis.FormatAnnotations(a.Annotations()),
	})
}

func (r *Recorder) Type(iteration int, a *analysis.TypeAnalysis, steps []components.StepStatus) {
	name := a.Type.FullyQualifiedName()
	done, delayed := propertiesOf(name, a.Property)
	r.record(Snapshot{
		Iteration: iteration, Kind: KindType, Entity: name,
		Properties: done, Delayed: delayed, Steps: stepInfos(steps),
		Annotations: analysis.FormatAnnotations(a.Annotations()),
	})
}

// Iteration records the folded status of a primary iteration.
func (r *Recorder) Iteration(unit string, iteration int, status components.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iterations = append(r.iterations, IterationInfo{Unit: unit, Iteration: iteration, Status: status.String()})
}

// Snapshots returns the snapshots of one entity in recording order.
func (r *Recorder) Snapshots(entity string) []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.byEntity[entity])
}

// Last returns the latest snapshot of one entity.
func (r *Recorder) Last(entity string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byEntity[entity]
	if len(list) == 0 {
		return Snapshot{}, false
	}
	return list[len(list)-1], true
}

// Entities returns the recorded entity names, sorted.
func (r *Recorder) Entities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byEntity))
	for name := range r.byEntity {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Iterations returns the recorded iteration statuses of one unit.
func (r *Recorder) Iterations(unit string) []IterationInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []IterationInfo
	for _, it := range r.iterations {
		if it.Unit == unit {
			out = append(out, it)
		}
	}
	return out
}

// statementLines lists the statements of a tree in walk order.
func statementLines(tree *statement.Tree) []string {
	var out []string
	tree.Each(func(s *statement.StatementAnalysis) {
		out = append(out, s.Index.String()+": "+strings.Join(s.Variables(), ", "))
	})
	return out
}
