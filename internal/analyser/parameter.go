package analyser

import (
	"slices"

	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/model"
)

// ParameterAnalyser reads what the owning method's body does to one parameter.
// Parameters of bodiless methods get their contracts or conservative defaults.
type ParameterAnalyser struct {
	ctx      *Context
	param    *model.ParameterInfo
	builder  *analysis.ParameterAnalysisBuilder
	pipeline *components.Components[int]
}

var _ Analyser = (*ParameterAnalyser)(nil)

// NewParameterAnalyser creates the analyser of p and publishes its initial snapshot.
func NewParameterAnalyser(ctx *Context, p *model.ParameterInfo) *ParameterAnalyser {
	a := &ParameterAnalyser{ctx: ctx, param: p, builder: analysis.NewParameterAnalysisBuilder(p)}
	a.pipeline = components.NewBuilder[int](p.FullyQualifiedName(), ctx.Logger()).
		Add("notNull", a.notNull).
		Add("size", a.size).
		Add("modified", a.modified).
		Add("independent", a.independent).
		Add("assignedToField", a.assignedToField).
		Build()
	ctx.PublishParameter(a.builder.Snapshot())
	return a
}

// Name implements [Analyser].
func (a *ParameterAnalyser) Name() string { return a.param.FullyQualifiedName() }

// Statuses implements [Analyser].
func (a *ParameterAnalyser) Statuses() []components.StepStatus { return a.pipeline.Statuses() }

// Analyse implements [Analyser].
func (a *ParameterAnalyser) Analyse(iteration int) (components.Status, error) {
	s, err := a.pipeline.Run(iteration)
	if err != nil {
		return s, err
	}
	snap := a.builder.Snapshot()
	a.ctx.PublishParameter(snap)
	for _, o := range a.ctx.Observers() {
		o.Parameter(iteration, snap, a.pipeline.Statuses())
	}
	return s, nil
}

// Freeze implements [Analyser].
func (a *ParameterAnalyser) Freeze() error {
	if !a.param.Owner.IsShallow() {
		checkContract(a.ctx, a.param.Contract, a.param.Pos, a.Name(), a.builder.Properties())
	}
	if err := annotateParameter(a.builder); err != nil {
		return err
	}
	a.ctx.PublishParameter(a.builder.Freeze())
	return nil
}

// facts returns the owner's facts about the parameter. ok is false while the
// owner has not walked its body yet; the causes say why.
func (a *ParameterAnalyser) facts() (analysis.VariableFacts, lattice.Causes, bool) {
	ma, found := a.ctx.Method(a.param.Owner)
	if !found {
		return analysis.VariableFacts{}, lattice.NewCauses(lattice.InitialDelay(a.param.Owner.FullyQualifiedName(), lattice.ModifiedMethod)), false
	}
	mf := ma.Facts()
	if mf.V == nil {
		return analysis.VariableFacts{}, mf.Causes, false
	}
	vf, ok := mf.V.Of(a.param)
	if !ok {
		vf = analysis.VariableFacts{
			Variable:        a.param,
			ContentModified: lattice.FALSE,
			ContextNotNull:  lattice.Of(lattice.Nullable),
			Size:            lattice.Of(lattice.AnySize),
		}
	}
	return vf, lattice.Causes{}, true
}

// contracted returns the contracted value of p, or the default for shallow owners.
func (a *ParameterAnalyser) contracted(p lattice.Property, shallow int) (lattice.DV, bool) {
	if v, ok := a.param.Contract.Get(p); ok {
		return lattice.Of(v), true
	}
	if a.param.Owner.IsShallow() {
		return lattice.Of(shallow), true
	}
	return lattice.DV{}, false
}

func (a *ParameterAnalyser) notNull(int) (components.Status, error) {
	props := a.builder.Properties()
	if !a.param.Typ.Nullable() {
		return set(props, lattice.NotNull, lattice.Of(lattice.EffectivelyNotNull))
	}
	if dv, ok := a.contracted(lattice.NotNull, lattice.Nullable); ok {
		return set(props, lattice.NotNull, dv)
	}
	vf, causes, ok := a.facts()
	if !ok {
		return delay(props, causes, lattice.NotNull)
	}
	return set(props, lattice.NotNull, vf.ContextNotNull)
}

func (a *ParameterAnalyser) size(int) (components.Status, error) {
	props := a.builder.Properties()
	if !a.param.Typ.HasSize() {
		return set(props, lattice.Size, lattice.Of(lattice.AnySize))
	}
	if dv, ok := a.contracted(lattice.Size, lattice.AnySize); ok {
		return set(props, lattice.Size, dv)
	}
	vf, causes, ok := a.facts()
	if !ok {
		return delay(props, causes, lattice.Size)
	}
	return set(props, lattice.Size, vf.Size)
}

// modified is the content modification of the parameter's linking closure in
// the owner's body. Values are copied on the way in and are never modified.
func (a *ParameterAnalyser) modified(int) (components.Status, error) {
	props := a.builder.Properties()
	if a.param.Typ.IsValue() {
		return set(props, lattice.ModifiedVariable, lattice.FALSE)
	}
	if dv, ok := a.contracted(lattice.ModifiedVariable, 1); ok {
		return set(props, lattice.ModifiedVariable, dv)
	}
	vf, causes, ok := a.facts()
	if !ok {
		return delay(props, causes, lattice.ModifiedVariable)
	}
	return set(props, lattice.ModifiedVariable, vf.ContentModified)
}

// independent grades how much of the argument's content ends up shared with
// the receiver's fields.
func (a *ParameterAnalyser) independent(int) (components.Status, error) {
	props := a.builder.Properties()
	if a.param.Typ.Kind == model.KindBasic {
		return set(props, lattice.Independent, lattice.Of(lattice.FullyIndependent))
	}
	if dv, ok := a.contracted(lattice.Independent, lattice.Dependent); ok {
		return set(props, lattice.Independent, dv)
	}
	ma, found := a.ctx.Method(a.param.Owner)
	if !found || ma.Facts().V == nil {
		_, causes, _ := a.facts()
		return delay(props, causes, lattice.Independent)
	}
	return set(props, lattice.Independent, a.ctx.independenceOfLinks(fieldLinks(ma.Facts().V, a.param)))
}

// fieldLinks collects the links between p and the receiver's fields in both
// directions. Fields reached through p, like p.items, count as p.
func fieldLinks(mf *analysis.MethodFacts, p *model.ParameterInfo) linking.LinkedVariables {
	var out linking.LinkedVariables
	for _, f := range mf.All() {
		if f.Variable != model.Variable(p) && model.RootOf(f.Variable) == model.Variable(p) {
			out = out.Merge(f.Linked)
		}
	}
	if pf, ok := mf.Of(p); ok {
		out = out.Merge(pf.Linked)
	}
	for _, f := range mf.All() {
		if _, isField := model.IsFieldOfThis(f.Variable); !isField {
			continue
		}
		if d := f.Linked.Get(p); d.IsDelayed() || d.Value() < linking.None {
			out = out.Merge(linking.Of(f.Variable, d))
		}
	}
	return out
}

// assignedToField lists the fields the parameter is stored in as is.
func (a *ParameterAnalyser) assignedToField(int) (components.Status, error) {
	ma, found := a.ctx.Method(a.param.Owner)
	if !found || !ma.Facts().Done {
		_, causes, _ := a.facts()
		if found {
			causes = causes.Merge(ma.Facts().Causes)
		}
		a.builder.AssignedToField.Delay(causes)
		return components.Delays(causes), nil
	}
	var names []string
	for _, f := range ma.Facts().V.All() {
		field, ok := model.IsFieldOfThis(f.Variable)
		if !ok {
			continue
		}
		if d := f.Linked.Get(a.param); d.IsDone() && d.Value() == linking.StaticallyAssigned {
			names = append(names, field.Name)
		}
	}
	slices.Sort(names)
	return components.Done, a.builder.AssignedToField.Set(names)
}
