package analysis

import (
	"github.com/mpyw/e2immu/internal/condition"
	"github.com/mpyw/e2immu/internal/fault"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/model"
)

// MethodAnalysis is the immutable snapshot of a method's analysis.
type MethodAnalysis struct {
	Method *model.MethodInfo

	props                   propertyView
	facts                   Value[*MethodFacts]
	returnValue             Value[model.Expression]
	precondition            Value[condition.Precondition]
	preconditionForEventual Value[condition.Precondition]
	eventual                Value[Eventual]
	lambdas                 []*MethodAnalysis
	annotations             []Annotation
	final                   bool
}

// Property returns a property value; unset properties are delayed.
func (a *MethodAnalysis) Property(p lattice.Property) lattice.DV { return a.props.get(p) }

// Facts returns the per-variable summary of the body.
func (a *MethodAnalysis) Facts() Value[*MethodFacts] { return a.facts }

// ReturnValue returns the single expression the method returns.
func (a *MethodAnalysis) ReturnValue() Value[model.Expression] { return a.returnValue }

// Precondition returns what the method requires of its caller.
func (a *MethodAnalysis) Precondition() Value[condition.Precondition] { return a.precondition }

// PreconditionForEventual returns the part of the precondition that is about fields.
func (a *MethodAnalysis) PreconditionForEventual() Value[condition.Precondition] {
	return a.preconditionForEventual
}

// Eventual returns the mark/only status.
func (a *MethodAnalysis) Eventual() Value[Eventual] { return a.eventual }

// Lambdas returns the analyses of the function literals in the body.
func (a *MethodAnalysis) Lambdas() []*MethodAnalysis { return a.lambdas }

// Annotations returns the annotations transferred at the end of the analysis.
func (a *MethodAnalysis) Annotations() []Annotation { return a.annotations }

// Final reports whether the snapshot is the frozen end result.
func (a *MethodAnalysis) Final() bool { return a.final }

// MethodAnalysisBuilder accumulates a method's analysis.
type MethodAnalysisBuilder struct {
	method *model.MethodInfo
	props  *lattice.Properties

	facts     *MethodFacts
	factsDone bool

	ReturnValue             *Cell[model.Expression]
	Precondition            *Cell[condition.Precondition]
	PreconditionForEventual *Cell[condition.Precondition]
	Eventual                *Cell[Eventual]

	lambdas     func() []*MethodAnalysis
	annotations *Annotations
}

func samePrecondition(a, b condition.Precondition) bool {
	return model.Same(a.Expression, b.Expression)
}

// NewMethodAnalysisBuilder starts the analysis of m.
func NewMethodAnalysisBuilder(m *model.MethodInfo) *MethodAnalysisBuilder {
	fqn := m.FullyQualifiedName()
	return &MethodAnalysisBuilder{
		method:                  m,
		props:                   lattice.NewProperties(fqn),
		ReturnValue:             NewCell(fqn, "return value", model.Same),
		Precondition:            NewCell(fqn, "precondition", samePrecondition),
		PreconditionForEventual: NewCell(fqn, "precondition for eventual", samePrecondition),
		Eventual:                NewCell(fqn, "eventual", Eventual.Equal),
		annotations:             NewAnnotations(fqn),
	}
}

// Method returns the analysed method.
func (b *MethodAnalysisBuilder) Method() *model.MethodInfo { return b.method }

// Properties returns the write-once property map.
func (b *MethodAnalysisBuilder) Properties() *lattice.Properties { return b.props }

// Annotations returns the annotation map.
func (b *MethodAnalysisBuilder) Annotations() *Annotations { return b.annotations }

// SetFacts publishes the body summary. Provisional facts may be replaced
// every iteration; once they are published as done they are final.
func (b *MethodAnalysisBuilder) SetFacts(f *MethodFacts, done bool) error {
	if b.factsDone {
		return fault.New("set facts", b.method.FullyQualifiedName(), fault.ErrOverwrite)
	}
	b.facts, b.factsDone = f, done
	return nil
}

// FactsDone reports whether final facts were published.
func (b *MethodAnalysisBuilder) FactsDone() bool { return b.factsDone }

func (b *MethodAnalysisBuilder) readFacts() Value[*MethodFacts] {
	v := Value[*MethodFacts]{V: b.facts, Done: b.factsDone}
	switch {
	case b.factsDone:
	case b.facts == nil:
		v.Causes = lattice.NewCauses(lattice.Cause{Subject: b.method.FullyQualifiedName() + ":facts", Kind: lattice.CauseInitial})
	default:
		v.Causes = b.facts.Causes()
		if v.Causes.Empty() {
			v.Causes = lattice.NewCauses(lattice.Cause{Subject: b.method.FullyQualifiedName() + ":facts", Kind: lattice.CauseLinking})
		}
	}
	return v
}

// SetLambdas installs the source of the companion analyses of the body's function literals.
func (b *MethodAnalysisBuilder) SetLambdas(f func() []*MethodAnalysis) { b.lambdas = f }

// Snapshot publishes the current state.
func (b *MethodAnalysisBuilder) Snapshot() *MethodAnalysis {
	var lambdas []*MethodAnalysis
	if b.lambdas != nil {
		lambdas = b.lambdas()
	}
	return &MethodAnalysis{
		Method:                  b.method,
		props:                   propertyView{b.method.FullyQualifiedName(), b.props.Snapshot()},
		facts:                   b.readFacts(),
		returnValue:             b.ReturnValue.read(),
		precondition:            b.Precondition.read(),
		preconditionForEventual: b.PreconditionForEventual.read(),
		eventual:                b.Eventual.read(),
		lambdas:                 lambdas,
		annotations:             b.annotations.List(),
		final:                   b.props.Frozen(),
	}
}

// Freeze ends the analysis and returns the final snapshot.
func (b *MethodAnalysisBuilder) Freeze() *MethodAnalysis {
	b.props.Freeze()
	return b.Snapshot()
}
