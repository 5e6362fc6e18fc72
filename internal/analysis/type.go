package analysis

import (
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/model"
)

// Level selects one of the two approved-precondition maps.
type Level uint8

const (
	// E1 guards assignments to non-final fields.
	E1 Level = iota
	// E2 guards content modification.
	E2
)

func (l Level) String() string {
	if l == E1 {
		return "E1"
	}
	return "E2"
}

// propertyView is the read side of a frozen or published property map.
type propertyView struct {
	owner  string
	values map[lattice.Property]lattice.DV
}

func (v propertyView) get(p lattice.Property) lattice.DV {
	if dv, ok := v.values[p]; ok {
		return dv
	}
	return lattice.Delayed(lattice.InitialDelay(v.owner, p))
}

// =============================================================================
// Type
// =============================================================================

// TypeAnalysis is the immutable snapshot of a type's analysis.
type TypeAnalysis struct {
	Type        *model.TypeInfo
	props       propertyView
	approved    [2]*ApprovedPreconditions
	annotations []Annotation
	final       bool
}

// Property returns a property value; unset properties are delayed.
func (a *TypeAnalysis) Property(p lattice.Property) lattice.DV { return a.props.get(p) }

// Approved returns a copy of the approved preconditions at one level.
func (a *TypeAnalysis) Approved(l Level) *ApprovedPreconditions { return a.approved[l].clone() }

// ApprovedCauses is empty when the map at level l is frozen, and a delay otherwise.
func (a *TypeAnalysis) ApprovedCauses(l Level) lattice.Causes {
	if a.approved[l].Frozen() {
		return lattice.Causes{}
	}
	return lattice.NewCauses(lattice.Cause{
		Subject:  a.Type.FullyQualifiedName() + ":" + l.String(),
		Property: lattice.Immutable,
		Kind:     lattice.CauseApproved,
	})
}

// Annotations returns the annotations transferred at the end of the analysis.
func (a *TypeAnalysis) Annotations() []Annotation { return a.annotations }

// Final reports whether the snapshot is the frozen end result.
func (a *TypeAnalysis) Final() bool { return a.final }

// TypeAnalysisBuilder accumulates a type's analysis.
type TypeAnalysisBuilder struct {
	typ         *model.TypeInfo
	props       *lattice.Properties
	approved    [2]*ApprovedPreconditions
	annotations *Annotations
}

// NewTypeAnalysisBuilder starts the analysis of t.
func NewTypeAnalysisBuilder(t *model.TypeInfo) *TypeAnalysisBuilder {
	fqn := t.FullyQualifiedName()
	return &TypeAnalysisBuilder{
		typ:         t,
		props:       lattice.NewProperties(fqn),
		approved:    [2]*ApprovedPreconditions{NewApprovedPreconditions(), NewApprovedPreconditions()},
		annotations: NewAnnotations(fqn),
	}
}

// Type returns the analysed type.
func (b *TypeAnalysisBuilder) Type() *model.TypeInfo { return b.typ }

// Properties returns the write-once property map.
func (b *TypeAnalysisBuilder) Properties() *lattice.Properties { return b.props }

// Approved returns the mutable approved-precondition map at one level.
func (b *TypeAnalysisBuilder) Approved(l Level) *ApprovedPreconditions { return b.approved[l] }

// Annotations returns the annotation map.
func (b *TypeAnalysisBuilder) Annotations() *Annotations { return b.annotations }

// Snapshot publishes the current state.
func (b *TypeAnalysisBuilder) Snapshot() *TypeAnalysis {
	return &TypeAnalysis{
		Type:        b.typ,
		props:       propertyView{b.typ.FullyQualifiedName(), b.props.Snapshot()},
		approved:    [2]*ApprovedPreconditions{b.approved[E1].clone(), b.approved[E2].clone()},
		annotations: b.annotations.List(),
		final:       b.props.Frozen(),
	}
}

// Freeze ends the analysis and returns the final snapshot.
func (b *TypeAnalysisBuilder) Freeze() *TypeAnalysis {
	b.props.Freeze()
	return b.Snapshot()
}
