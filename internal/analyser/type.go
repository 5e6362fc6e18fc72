package analyser

import (
	"errors"
	"log/slog"

	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/eventual"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
)

// TypeAnalyser grades the immutability and independence of one type.
type TypeAnalyser struct {
	ctx      *Context
	typ      *model.TypeInfo
	builder  *analysis.TypeAnalysisBuilder
	pipeline *components.Components[int]

	// unguarded lists, per level, the methods that break the level without a precondition.
	unguarded [2][]*model.MethodInfo
}

var _ Analyser = (*TypeAnalyser)(nil)

// NewTypeAnalyser creates the analyser of t and publishes its initial snapshot.
func NewTypeAnalyser(ctx *Context, t *model.TypeInfo) *TypeAnalyser {
	a := &TypeAnalyser{ctx: ctx, typ: t, builder: analysis.NewTypeAnalysisBuilder(t)}
	a.pipeline = components.NewBuilder[int](t.FullyQualifiedName(), ctx.Logger()).
		Add("approvedPreconditionsE1", a.approvedPreconditionsE1).
		Add("approvedPreconditionsE2", a.approvedPreconditionsE2).
		Add("immutable", a.immutable).
		Add("independent", a.independent).
		Build()
	ctx.PublishType(a.builder.Snapshot())
	return a
}

// Name implements [Analyser].
func (a *TypeAnalyser) Name() string { return a.typ.FullyQualifiedName() }

// Statuses implements [Analyser].
func (a *TypeAnalyser) Statuses() []components.StepStatus { return a.pipeline.Statuses() }

// Analyse implements [Analyser].
func (a *TypeAnalyser) Analyse(iteration int) (components.Status, error) {
	s, err := a.pipeline.Run(iteration)
	if err != nil {
		return s, err
	}
	snap := a.builder.Snapshot()
	a.ctx.PublishType(snap)
	for _, o := range a.ctx.Observers() {
		o.Type(iteration, snap, a.pipeline.Statuses())
	}
	a.ctx.Logger().Debug("type analysed",
		slog.String("type", a.Name()),
		slog.Int("iteration", iteration),
		slog.String("status", s.String()))
	return s, nil
}

// Freeze implements [Analyser].
func (a *TypeAnalyser) Freeze() error {
	checkContract(a.ctx, a.typ.Contract, a.typ.Pos, a.Name(), a.builder.Properties())
	if err := annotateType(a.builder); err != nil {
		return err
	}
	a.ctx.PublishType(a.builder.Freeze())
	return nil
}

// mutators returns the methods that run after construction: every method
// other than the constructors, with their function literals.
func (a *TypeAnalyser) mutators() []*model.MethodInfo {
	var out []*model.MethodInfo
	for _, m := range methodsOf(a.typ) {
		if !m.InConstruction() {
			out = append(out, m)
		}
	}
	return out
}

// requirements pairs every method selected by breaks with its field precondition.
func (a *TypeAnalyser) requirements(breaks func(*analysis.MethodFacts) lattice.DV) ([]eventual.Requirement, lattice.Causes) {
	var reqs []eventual.Requirement
	var causes lattice.Causes
	for _, m := range a.mutators() {
		ma, ok := a.ctx.Method(m)
		if !ok {
			continue
		}
		mf := ma.Facts()
		if mf.V == nil {
			causes = causes.Merge(mf.Causes)
			continue
		}
		b := breaks(mf.V)
		if b.IsDelayed() {
			causes = causes.Merge(b.Causes())
			continue
		}
		if !b.IsTrue() {
			continue
		}
		pre := ma.PreconditionForEventual()
		if !pre.Done {
			causes = causes.Merge(pre.Causes)
			continue
		}
		reqs = append(reqs, eventual.Requirement{Method: m, Precondition: pre.V})
	}
	return reqs, causes
}

func assignsField(mf *analysis.MethodFacts) lattice.DV {
	return lattice.Bool(len(mf.AssignedFields()) > 0)
}

func modifiesField(mf *analysis.MethodFacts) lattice.DV {
	var dvs []lattice.DV
	for _, f := range mf.All() {
		if _, ok := model.IsFieldOfThis(f.Variable); ok {
			dvs = append(dvs, f.ContentModified)
		}
	}
	return lattice.Or(dvs...)
}

func (a *TypeAnalyser) approvedPreconditionsE1(int) (components.Status, error) {
	return a.approve(analysis.E1, assignsField)
}

func (a *TypeAnalyser) approvedPreconditionsE2(int) (components.Status, error) {
	return a.approve(analysis.E2, modifiesField)
}

// approve fills and freezes one approved map once every requirement is known.
// A requirement contradicting an approved clause is reported; the first
// clause stays approved.
func (a *TypeAnalyser) approve(l analysis.Level, breaks func(*analysis.MethodFacts) lattice.DV) (components.Status, error) {
	reqs, causes := a.requirements(breaks)
	if !causes.Empty() {
		return components.Delays(causes), nil
	}
	approved := a.builder.Approved(l)
	var unguarded []*model.MethodInfo
	for _, r := range reqs {
		u, err := eventual.Approve(approved, []eventual.Requirement{r})
		if err != nil {
			if !errors.Is(err, analysis.ErrInconsistentPrecondition) {
				return components.Status{}, err
			}
			a.ctx.Report(message.New(message.InconsistentPrecondition, r.Method.Pos, a.Name(), "%s: %v", l, err))
		}
		unguarded = append(unguarded, u...)
	}
	approved.Freeze()
	a.unguarded[l] = unguarded
	return components.Done, nil
}

// immutable grades the type level by level.
//
//	level 1  every field is final, or only methods under an approved
//	         precondition assign them
//	level 2  no field of mutable type is exported, linked to a parameter or
//	         returned; the ones modified are guarded like level 1
//	level 3  every field's type is recursively immutable
//
// Fields typed by a type of the same field cycle do not count: their grade
// depends on this one.
func (a *TypeAnalyser) immutable(int) (components.Status, error) {
	props := a.builder.Properties()
	if a.typ.Interface {
		v, ok := a.typ.Contract.Get(lattice.Immutable)
		if !ok {
			v = lattice.Mutable
		}
		return set(props, lattice.Immutable, lattice.Of(v))
	}
	var causes lattice.Causes
	for _, l := range []analysis.Level{analysis.E1, analysis.E2} {
		if !a.builder.Approved(l).Frozen() {
			causes = causes.Merge(lattice.NewCauses(lattice.Cause{
				Subject:  a.Name() + ":" + l.String(),
				Property: lattice.Immutable,
				Kind:     lattice.CauseApproved,
			}))
		}
	}
	nonFinal := 0
	for _, f := range a.typ.Fields {
		final := a.fieldProperty(f, lattice.Final)
		switch {
		case final.IsDelayed():
			causes = causes.Merge(final.Causes())
		case final.IsFalse():
			nonFinal++
		}
	}
	if !causes.Empty() {
		return delay(props, causes, lattice.Immutable)
	}
	level1 := eventual.Classify(nonFinal, a.unguarded[analysis.E1], a.builder.Approved(analysis.E1))
	if level1 == eventual.Broken {
		return set(props, lattice.Immutable, lattice.Of(lattice.Mutable))
	}

	exposed, causes := a.exposedFields()
	modified, broken, recursive, eventualContent := 0, false, true, false
	for _, f := range a.typ.Fields {
		imm := lattice.Of(lattice.RecursivelyImmutable)
		if u := f.Type.UnitType(); u == nil || !a.ctx.SameTypeCycle(a.typ, u) {
			imm = a.ctx.ImmutableOf(f.Type)
		}
		if imm.IsDelayed() {
			causes = causes.Merge(imm.Causes())
			continue
		}
		recursive = recursive && imm.Value() == lattice.RecursivelyImmutable
		if lattice.ImmutableLevel(imm.Value()) >= 2 {
			eventualContent = eventualContent || lattice.IsEventual(imm.Value())
			continue
		}
		if f.Exported || exposed[f] {
			broken = true
			continue
		}
		linked := a.fieldLinkedToParameter(f)
		mom := a.fieldProperty(f, lattice.ModifiedOutsideMethod)
		switch {
		case linked.IsDelayed():
			causes = causes.Merge(linked.Causes())
		case linked.IsTrue():
			broken = true
		}
		switch {
		case mom.IsDelayed():
			causes = causes.Merge(mom.Causes())
		case mom.IsTrue():
			modified++
		}
	}
	if !causes.Empty() {
		return delay(props, causes, lattice.Immutable)
	}
	level2 := eventual.Broken
	if !broken {
		level2 = eventual.Classify(modified, a.unguarded[analysis.E2], a.builder.Approved(analysis.E2))
	}
	grade := lattice.ImmutableGrade(1, level1 == eventual.Eventual)
	if level2 != eventual.Broken {
		eventually := level1 == eventual.Eventual || level2 == eventual.Eventual || eventualContent
		level := 2
		if recursive {
			level = 3
		}
		grade = lattice.ImmutableGrade(level, eventually)
	}
	return set(props, lattice.Immutable, lattice.Of(grade))
}

func (a *TypeAnalyser) fieldProperty(f *model.FieldInfo, p lattice.Property) lattice.DV {
	if fa, ok := a.ctx.Field(f); ok {
		return fa.Property(p)
	}
	return lattice.Delayed(lattice.InitialDelay(f.FullyQualifiedName(), p))
}

// fieldLinkedToParameter is TRUE when the field shares content with a
// parameter of some method, so that the caller keeps a way in.
func (a *TypeAnalyser) fieldLinkedToParameter(f *model.FieldInfo) lattice.DV {
	fa, ok := a.ctx.Field(f)
	if !ok {
		return lattice.Delayed(lattice.InitialDelay(f.FullyQualifiedName(), lattice.Immutable))
	}
	linked := fa.Linked()
	if !linked.Done {
		return lattice.DelayedBy(linked.Causes)
	}
	for _, v := range linked.V.Variables() {
		if _, isParam := model.IsParameter(v); isParam && linking.SharesContent(linked.V.Get(v).Value()) {
			return lattice.TRUE
		}
	}
	return lattice.FALSE
}

// exposedFields returns the fields whose content some method returns.
func (a *TypeAnalyser) exposedFields() (map[*model.FieldInfo]bool, lattice.Causes) {
	out := make(map[*model.FieldInfo]bool)
	var causes lattice.Causes
	for _, m := range a.mutators() {
		if !m.HasResult() {
			continue
		}
		ma, ok := a.ctx.Method(m)
		if !ok {
			continue
		}
		mf := ma.Facts()
		if mf.V == nil {
			causes = causes.Merge(mf.Causes)
			continue
		}
		rf, ok := mf.V.Of(model.ReturnVariable{Method: m})
		if !ok {
			continue
		}
		for _, v := range rf.Linked.Variables() {
			f, isField := model.IsFieldOfThis(v)
			if !isField {
				continue
			}
			switch d := rf.Linked.Get(v); {
			case d.IsDelayed():
				causes = causes.Merge(d.Causes())
			case linking.SharesContent(d.Value()):
				out[f] = true
			}
		}
	}
	return out, causes
}

// independent is the worst independence of the methods' results and of
// every parameter: content flowing out through either is shared.
func (a *TypeAnalyser) independent(int) (components.Status, error) {
	var dvs []lattice.DV
	for _, m := range a.typ.AllMethods() {
		for _, p := range m.Params {
			dvs = append(dvs, a.ctx.ParameterProperty(p, lattice.Independent))
		}
		if !m.Constructor {
			dvs = append(dvs, a.ctx.MethodProperty(m, lattice.Independent))
		}
	}
	return set(a.builder.Properties(), lattice.Independent,
		lattice.MinOf(lattice.Dependent, lattice.FullyIndependent, dvs...))
}
