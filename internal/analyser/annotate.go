package analyser

import (
	"go/token"
	"slices"
	"strconv"
	"strings"

	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
)

// checkContract reports every contracted property the inferred value does not honour.
// Undecided properties are not checked.
func checkContract(ctx *Context, c model.Contract, pos token.Pos, subject string, props *lattice.Properties) {
	if c.Pos.IsValid() {
		pos = c.Pos
	}
	for _, p := range c.Contracted() {
		want, _ := c.Get(p)
		got := props.Get(p)
		if got.IsDelayed() {
			continue
		}
		kind := message.ContractViolation
		holds := p.AtLeastAsGood(got.Value(), want)
		if p == lattice.Immutable {
			kind = message.IncompatibleImmutability
			sameLevel := lattice.ImmutableLevel(got.Value()) == lattice.ImmutableLevel(want)
			holds = holds && !(sameLevel && lattice.IsEventual(got.Value()) != lattice.IsEventual(want))
		}
		if !holds {
			ctx.Report(message.New(kind, pos, subject, "%s: contracted %s, inferred %s",
				p, gradeName(p, want), gradeName(p, got.Value())))
		}
	}
}

func gradeName(p lattice.Property, v int) string {
	switch p {
	case lattice.Immutable:
		return lattice.ImmutableName(v)
	case lattice.NotNull, lattice.ContextNotNull:
		return [...]string{"nullable", "not_null", "content_not_null", "content2_not_null"}[min(v, 3)]
	case lattice.Independent:
		return independentName(v)
	}
	if p.Best() == 0 || p.Best() == 1 {
		return strconv.FormatBool(v == 1)
	}
	return strconv.Itoa(v)
}

func independentName(v int) string {
	switch v {
	case lattice.Dependent:
		return "dependent"
	case lattice.FullyIndependent:
		return "independent"
	}
	return "independent" + strconv.Itoa(v)
}

// decided returns the value of p when it is done.
func decided(props *lattice.Properties, p lattice.Property) (int, bool) {
	dv := props.Get(p)
	return dv.Value(), dv.IsDone()
}

type annotator struct {
	target *analysis.Annotations
	err    error
}

func (a *annotator) put(name, value string) {
	if a.err == nil {
		a.err = a.target.Put(name, value)
	}
}

func (a *annotator) modified(props *lattice.Properties, p lattice.Property) {
	if v, ok := decided(props, p); ok {
		if v == 1 {
			a.put("modified", "")
		} else {
			a.put("not_modified", "")
		}
	}
}

func (a *annotator) notNull(props *lattice.Properties) {
	if v, ok := decided(props, lattice.NotNull); ok && v >= lattice.EffectivelyNotNull {
		a.put(gradeName(lattice.NotNull, v), "")
	}
}

func (a *annotator) independent(props *lattice.Properties) {
	if v, ok := decided(props, lattice.Independent); ok {
		a.put(independentName(v), "")
	}
}

func (a *annotator) flag(props *lattice.Properties, p lattice.Property, name string) {
	if v, ok := decided(props, p); ok && v == 1 {
		a.put(name, "")
	}
}

func annotateMethod(b *analysis.MethodAnalysisBuilder) error {
	a := &annotator{target: b.Annotations()}
	props := b.Properties()
	a.modified(props, lattice.ModifiedMethod)
	a.flag(props, lattice.Identity, "identity")
	a.flag(props, lattice.Fluent, "fluent")
	if b.Method().HasResult() {
		a.notNull(props)
		a.independent(props)
	}
	if ev, ok := b.Eventual.Get(); ok {
		switch ev.Kind {
		case analysis.Mark:
			a.put("mark", ev.Label())
		case analysis.OnlyBefore:
			a.put("only", "before="+ev.Label())
		case analysis.OnlyAfter:
			a.put("only", "after="+ev.Label())
		case analysis.TestMark:
			a.put("test_mark", ev.Label())
		case analysis.TestMarkBefore:
			a.put("test_mark", "before="+ev.Label())
		}
	}
	return a.err
}

func annotateParameter(b *analysis.ParameterAnalysisBuilder) error {
	a := &annotator{target: b.Annotations()}
	props := b.Properties()
	a.modified(props, lattice.ModifiedVariable)
	a.notNull(props)
	if v, ok := decided(props, lattice.Size); ok && v == lattice.NotEmpty {
		a.put("not_empty", "")
	}
	a.independent(props)
	return a.err
}

func annotateField(b *analysis.FieldAnalysisBuilder) error {
	a := &annotator{target: b.Annotations()}
	props := b.Properties()
	a.flag(props, lattice.Final, "final")
	a.notNull(props)
	a.modified(props, lattice.ModifiedOutsideMethod)
	if v, ok := decided(props, lattice.Immutable); ok && v > lattice.Mutable {
		a.put(lattice.ImmutableName(v), "")
	}
	return a.err
}

// annotateType names the grade of a type. An eventual grade is named after
// its effective counterpart, qualified by the fields that must reach their
// after state, e.g. @immutable(after=frozen).
func annotateType(b *analysis.TypeAnalysisBuilder) error {
	a := &annotator{target: b.Annotations()}
	props := b.Properties()
	if v, ok := decided(props, lattice.Immutable); ok && v > lattice.Mutable {
		if lattice.IsEventual(v) {
			a.put(lattice.ImmutableName(v+1), "after="+approvedLabel(b))
		} else {
			a.put(lattice.ImmutableName(v), "")
		}
	}
	a.independent(props)
	return a.err
}

func approvedLabel(b *analysis.TypeAnalysisBuilder) string {
	seen := make(map[string]bool)
	var fields []string
	for _, l := range []analysis.Level{analysis.E1, analysis.E2} {
		for _, f := range b.Approved(l).Fields() {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	slices.Sort(fields)
	return strings.Join(fields, ",")
}
