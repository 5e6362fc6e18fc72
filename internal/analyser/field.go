package analyser

import (
	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/model"
)

// FieldAnalyser aggregates what every method of the unit does to one field.
type FieldAnalyser struct {
	ctx      *Context
	field    *model.FieldInfo
	builder  *analysis.FieldAnalysisBuilder
	pipeline *components.Components[int]
}

var _ Analyser = (*FieldAnalyser)(nil)

// NewFieldAnalyser creates the analyser of f and publishes its initial snapshot.
func NewFieldAnalyser(ctx *Context, f *model.FieldInfo) *FieldAnalyser {
	a := &FieldAnalyser{ctx: ctx, field: f, builder: analysis.NewFieldAnalysisBuilder(f)}
	a.pipeline = components.NewBuilder[int](f.FullyQualifiedName(), ctx.Logger()).
		Add("computeFinal", a.computeFinal).
		Add("computeModified", a.computeModified).
		Add("computeValues", a.computeValues).
		Add("computeNotNull", a.computeNotNull).
		Add("computeImmutable", a.computeImmutable).
		Add("computeLinkedVariables", a.computeLinkedVariables).
		Build()
	ctx.PublishField(a.builder.Snapshot())
	return a
}

// Name implements [Analyser].
func (a *FieldAnalyser) Name() string { return a.field.FullyQualifiedName() }

// Statuses implements [Analyser].
func (a *FieldAnalyser) Statuses() []components.StepStatus { return a.pipeline.Statuses() }

// Analyse implements [Analyser].
func (a *FieldAnalyser) Analyse(iteration int) (components.Status, error) {
	s, err := a.pipeline.Run(iteration)
	if err != nil {
		return s, err
	}
	snap := a.builder.Snapshot()
	a.ctx.PublishField(snap)
	for _, o := range a.ctx.Observers() {
		o.Field(iteration, snap, a.pipeline.Statuses())
	}
	return s, nil
}

// Freeze implements [Analyser].
func (a *FieldAnalyser) Freeze() error {
	checkContract(a.ctx, a.field.Contract, a.field.Pos, a.Name(), a.builder.Properties())
	if err := annotateField(a.builder); err != nil {
		return err
	}
	a.ctx.PublishField(a.builder.Freeze())
	return nil
}

// access is what one method does to the field.
type access struct {
	method *model.MethodInfo
	facts  analysis.VariableFacts
	// construction is true for the receiver's own field in a constructor of the owner.
	construction bool
}

// accesses collects the facts about the field from every method of the unit.
// The causes name the methods whose bodies have not been walked yet.
func (a *FieldAnalyser) accesses() ([]access, lattice.Causes) {
	var out []access
	var causes lattice.Causes
	for _, ma := range a.ctx.Methods() {
		mf := ma.Facts()
		if mf.V == nil {
			causes = causes.Merge(mf.Causes)
			continue
		}
		for _, vf := range mf.V.All() {
			fr, ok := vf.Variable.(model.FieldReference)
			if !ok || fr.Field != a.field {
				continue
			}
			m := ma.Method
			out = append(out, access{
				method:       m,
				facts:        vf,
				construction: fr.IsThis() && m.Owner == a.field.Owner && m.InConstruction(),
			})
		}
	}
	return out, causes
}

// computeFinal: an exported field can be assigned by any importer; an
// unexported one is final when no method outside construction assigns it.
func (a *FieldAnalyser) computeFinal(int) (components.Status, error) {
	props := a.builder.Properties()
	if v, ok := a.field.Contract.Get(lattice.Final); ok {
		return set(props, lattice.Final, lattice.Of(v))
	}
	if a.field.Exported {
		return set(props, lattice.Final, lattice.FALSE)
	}
	accesses, causes := a.accesses()
	for _, acc := range accesses {
		if acc.facts.Assigned && !acc.construction {
			return set(props, lattice.Final, lattice.FALSE)
		}
	}
	if !causes.Empty() {
		return delay(props, causes, lattice.Final)
	}
	return set(props, lattice.Final, lattice.TRUE)
}

// computeModified: the field's content is modified outside construction.
func (a *FieldAnalyser) computeModified(int) (components.Status, error) {
	props := a.builder.Properties()
	accesses, causes := a.accesses()
	dvs := []lattice.DV{lattice.FALSE}
	for _, acc := range accesses {
		if !acc.construction {
			dvs = append(dvs, acc.facts.ContentModified)
		}
	}
	if !causes.Empty() {
		dvs = append(dvs, lattice.DelayedBy(causes))
	}
	return set(props, lattice.ModifiedOutsideMethod, lattice.Or(dvs...))
}

// computeValues collects every value assigned to the field, plus its zero
// value when some constructor leaves it alone or the type has none.
func (a *FieldAnalyser) computeValues(int) (components.Status, error) {
	accesses, causes := a.accesses()
	if !causes.Empty() {
		a.builder.Values.Delay(causes)
		return components.Delays(causes), nil
	}
	var values []model.Expression
	assignedBy := make(map[*model.MethodInfo]bool)
	for _, acc := range accesses {
		if !acc.facts.Assigned {
			continue
		}
		values = append(values, acc.facts.Values...)
		assignedBy[acc.method] = true
	}
	constructors := a.field.Owner.Constructors
	zero := len(constructors) == 0
	for _, c := range constructors {
		zero = zero || !assignedBy[c]
	}
	if zero {
		values = append(values, zeroValue(a.field))
	}
	return components.Done, a.builder.Values.Set(values)
}

func zeroValue(f *model.FieldInfo) model.Expression {
	t := f.Type
	switch {
	case t.Nullable():
		return model.NullConstant{}
	case t.IsBool():
		return model.False
	case t.Kind == model.KindBasic && t.Name == "string":
		return model.StringConstant{}
	case t.Kind == model.KindBasic:
		return model.IntConstant{}
	}
	return model.Instance{Typ: t, ID: f.FullyQualifiedName() + ":zero"}
}

func (a *FieldAnalyser) computeNotNull(int) (components.Status, error) {
	props := a.builder.Properties()
	if !a.field.Type.Nullable() {
		return set(props, lattice.NotNull, lattice.Of(lattice.EffectivelyNotNull))
	}
	if v, ok := a.field.Contract.Get(lattice.NotNull); ok {
		return set(props, lattice.NotNull, lattice.Of(v))
	}
	values, ok := a.builder.Values.Get()
	if !ok {
		return delay(props, a.builder.Values.Causes(), lattice.NotNull)
	}
	dvs := make([]lattice.DV, len(values))
	for i, v := range values {
		dvs[i] = a.ctx.NotNullOf(v, nil)
	}
	return set(props, lattice.NotNull, lattice.MinOf(lattice.Nullable, lattice.EffectivelyNotNull, dvs...))
}

// computeImmutable: a field that can be reassigned is mutable whatever its
// type; a final field is as immutable as its type.
func (a *FieldAnalyser) computeImmutable(int) (components.Status, error) {
	props := a.builder.Properties()
	final := props.Get(lattice.Final)
	switch {
	case final.IsDelayed():
		return delay(props, final.Causes(), lattice.Immutable)
	case final.IsFalse():
		return set(props, lattice.Immutable, lattice.Of(lattice.Mutable))
	}
	return set(props, lattice.Immutable, a.ctx.ImmutableOf(a.field.Type))
}

// computeLinkedVariables merges the links the methods of the owner give the
// field, keeping only parameters and other fields.
func (a *FieldAnalyser) computeLinkedVariables(int) (components.Status, error) {
	accesses, causes := a.accesses()
	var linked linking.LinkedVariables
	for _, acc := range accesses {
		if acc.method.Owner != a.field.Owner {
			continue
		}
		linked = linked.Merge(acc.facts.Linked.Remove(func(v model.Variable) bool {
			switch v.(type) {
			case *model.ParameterInfo, model.FieldReference:
				return false
			}
			return true
		}))
	}
	causes = causes.Merge(linked.Causes())
	if !causes.Empty() {
		a.builder.Linked.Delay(causes)
		return components.Delays(causes), nil
	}
	return components.Done, a.builder.Linked.Set(linked)
}
