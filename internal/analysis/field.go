package analysis

import (
	"slices"

	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/model"
)

// =============================================================================
// Field
// =============================================================================

// FieldAnalysis is the immutable snapshot of a field's analysis.
type FieldAnalysis struct {
	Field       *model.FieldInfo
	props       propertyView
	values      Value[[]model.Expression]
	linked      Value[linking.LinkedVariables]
	annotations []Annotation
	final       bool
}

// Property returns a property value; unset properties are delayed.
func (a *FieldAnalysis) Property(p lattice.Property) lattice.DV { return a.props.get(p) }

// Values returns every value assigned to the field across the type.
func (a *FieldAnalysis) Values() Value[[]model.Expression] { return a.values }

// Linked returns the variables the field is linked to across the type.
func (a *FieldAnalysis) Linked() Value[linking.LinkedVariables] { return a.linked }

// Annotations returns the annotations transferred at the end of the analysis.
func (a *FieldAnalysis) Annotations() []Annotation { return a.annotations }

// Final reports whether the snapshot is the frozen end result.
func (a *FieldAnalysis) Final() bool { return a.final }

// FieldAnalysisBuilder accumulates a field's analysis.
type FieldAnalysisBuilder struct {
	field       *model.FieldInfo
	props       *lattice.Properties
	Values      *Cell[[]model.Expression]
	Linked      *Cell[linking.LinkedVariables]
	annotations *Annotations
}

func sameValues(a, b []model.Expression) bool { return slices.EqualFunc(a, b, model.Same) }

// NewFieldAnalysisBuilder starts the analysis of f.
func NewFieldAnalysisBuilder(f *model.FieldInfo) *FieldAnalysisBuilder {
	fqn := f.FullyQualifiedName()
	return &FieldAnalysisBuilder{
		field:       f,
		props:       lattice.NewProperties(fqn),
		Values:      NewCell(fqn, "values", sameValues),
		Linked:      NewCell(fqn, "linked variables", linking.LinkedVariables.Equal),
		annotations: NewAnnotations(fqn),
	}
}

// Field returns the analysed field.
func (b *FieldAnalysisBuilder) Field() *model.FieldInfo { return b.field }

// Properties returns the write-once property map.
func (b *FieldAnalysisBuilder) Properties() *lattice.Properties { return b.props }

// Annotations returns the annotation map.
func (b *FieldAnalysisBuilder) Annotations() *Annotations { return b.annotations }

// Snapshot publishes the current state.
func (b *FieldAnalysisBuilder) Snapshot() *FieldAnalysis {
	return &FieldAnalysis{
		Field:       b.field,
		props:       propertyView{b.field.FullyQualifiedName(), b.props.Snapshot()},
		values:      b.Values.read(),
		linked:      b.Linked.read(),
		annotations: b.annotations.List(),
		final:       b.props.Frozen(),
	}
}

// Freeze ends the analysis and returns the final snapshot.
func (b *FieldAnalysisBuilder) Freeze() *FieldAnalysis {
	b.props.Freeze()
	return b.Snapshot()
}

// =============================================================================
// Parameter
// =============================================================================

// ParameterAnalysis is the immutable snapshot of a parameter's analysis.
type ParameterAnalysis struct {
	Parameter       *model.ParameterInfo
	props           propertyView
	assignedToField Value[[]string]
	annotations     []Annotation
	final           bool
}

// Property returns a property value; unset properties are delayed.
func (a *ParameterAnalysis) Property(p lattice.Property) lattice.DV { return a.props.get(p) }

// AssignedToField returns the names of the fields the parameter is stored in.
func (a *ParameterAnalysis) AssignedToField() Value[[]string] { return a.assignedToField }

// Annotations returns the annotations transferred at the end of the analysis.
func (a *ParameterAnalysis) Annotations() []Annotation { return a.annotations }

// Final reports whether the snapshot is the frozen end result.
func (a *ParameterAnalysis) Final() bool { return a.final }

// ParameterAnalysisBuilder accumulates a parameter's analysis.
type ParameterAnalysisBuilder struct {
	param           *model.ParameterInfo
	props           *lattice.Properties
	AssignedToField *Cell[[]string]
	annotations     *Annotations
}

// NewParameterAnalysisBuilder starts the analysis of p.
func NewParameterAnalysisBuilder(p *model.ParameterInfo) *ParameterAnalysisBuilder {
	fqn := p.FullyQualifiedName()
	return &ParameterAnalysisBuilder{
		param:           p,
		props:           lattice.NewProperties(fqn),
		AssignedToField: NewCell(fqn, "assigned to field", slices.Equal[[]string]),
		annotations:     NewAnnotations(fqn),
	}
}

// Parameter returns the analysed parameter.
func (b *ParameterAnalysisBuilder) Parameter() *model.ParameterInfo { return b.param }

// Properties returns the write-once property map.
func (b *ParameterAnalysisBuilder) Properties() *lattice.Properties { return b.props }

// Annotations returns the annotation map.
func (b *ParameterAnalysisBuilder) Annotations() *Annotations { return b.annotations }

// Snapshot publishes the current state.
func (b *ParameterAnalysisBuilder) Snapshot() *ParameterAnalysis {
	return &ParameterAnalysis{
		Parameter:       b.param,
		props:           propertyView{b.param.FullyQualifiedName(), b.props.Snapshot()},
		assignedToField: b.AssignedToField.read(),
		annotations:     b.annotations.List(),
		final:           b.props.Frozen(),
	}
}

// Freeze ends the analysis and returns the final snapshot.
func (b *ParameterAnalysisBuilder) Freeze() *ParameterAnalysis {
	b.props.Freeze()
	return b.Snapshot()
}
