package debug

import (
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/mpyw/e2immu/internal/analyser"
	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/primary"
	"github.com/mpyw/e2immu/internal/statement"
)

var (
	_ analyser.Observer         = (*Tracer)(nil)
	_ primary.IterationObserver = (*Tracer)(nil)
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	doneColor   = color.New(color.FgGreen)
	delayColor  = color.New(color.FgYellow)
	iterColor   = color.New(color.FgMagenta, color.Bold)
	faintColor  = color.New(color.Faint)
)

// Tracer prints the snapshots of the entities matching a filter.
type Tracer struct {
	mu     sync.Mutex
	w      io.Writer
	filter *regexp.Regexp
}

// NewTracer writes traces of the entities whose fully qualified name matches
// filter to w. A nil w writes to the colour-aware standard error.
func NewTracer(w io.Writer, filter *regexp.Regexp) *Tracer {
	if w == nil {
		w = color.Error
	}
	return &Tracer{w: w, filter: filter}
}

func (t *Tracer) traced(name string) bool {
	return t.filter != nil && t.filter.MatchString(name)
}

func (t *Tracer) print(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.w, s)
}

func (t *Tracer) Statements(iteration int, tree *statement.Tree) {
	name := tree.Method.FullyQualifiedName()
	if !t.traced(name) {
		return
	}
	t.print(FormatSnapshot(Snapshot{
		Iteration: iteration, Kind: KindStatements, Entity: name, Statements: statementLines(tree),
	}))
}

func (t *Tracer) Method(iteration int, a *analysis.MethodAnalysis, steps []components.StepStatus) {
	t.entity(iteration, KindMethod, a.Method.FullyQualifiedName(), a.Property, a.Annotations(), steps)
}

func (t *Tracer) Parameter(iteration int, a *analysis.ParameterAnalysis, steps []components.StepStatus) {
	t.entity(iteration, KindParameter, a.Parameter.FullyQualifiedName(), a.Property, a.Annotations(), steps)
}

func (t *Tracer) Field(iteration int, a *analysis.FieldAnalysis, steps []components.StepStatus) {
	t.entity(iteration, KindField, a.Field.FullyQualifiedName(), a.Property, a.Annotations(), steps)
}

func (t *Tracer) Type(iteration int, a *analysis.TypeAnalysis, steps []components.StepStatus) {
	t.entity(iteration, KindType, a.Type.FullyQualifiedName(), a.Property, a.Annotations(), steps)
}

func (t *Tracer) entity(iteration int, kind Kind, name string, get propertyGetter, ann []analysis.Annotation, steps []components.StepStatus) {
	if !t.traced(name) {
		return
	}
	done, delayed := propertiesOf(name, get)
	t.print(FormatSnapshot(Snapshot{
		Iteration: iteration, Kind: kind, Entity: name,
		Properties: done, Delayed: delayed, Steps: stepInfos(steps),
		Annotations: analysis.FormatAnnotations(ann),
	}))
}

// Iteration prints one line per primary iteration of a traced unit.
func (t *Tracer) Iteration(unit string, iteration int, status components.Status) {
	if !t.traced(unit) {
		return
	}
	t.print(fmt.Sprintf("%s %s #%d: %s\n", iterColor.Sprint("iteration"), unit, iteration, status))
}

// FormatSnapshot renders a snapshot as an indented tree.
func FormatSnapshot(s Snapshot) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "%s %s (iteration %d)\n", headerColor.Sprint(string(s.Kind)), s.Entity, s.Iteration)

	var lines []string
	for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
		lines = append(lines, doneColor.Sprintf("%s = %d", name, s.Properties[name]))
	}
	for _, name := range slices.Sorted(maps.Keys(s.Delayed)) {
		lines = append(lines, delayColor.Sprintf("%s delayed by %s", name, s.Delayed[name]))
	}
	for _, st := range s.Steps {
		ran := "skipped"
		if st.Ran {
			ran = "ran"
		}
		lines = append(lines, faintColor.Sprintf("step %s: %s (%s)", st.Name, st.Status, ran))
	}
	lines = append(lines, s.Statements...)
	if s.Annotations != "" {
		lines = append(lines, "annotations: "+s.Annotations)
	}

	for i, line := range lines {
		branch := "├─"
		if i == len(lines)-1 {
			branch = "└─"
		}
		fmt.Fprintf(&buf, "  %s %s\n", branch, line)
	}
	return buf.String()
}
