package directive

import (
	"fmt"
	"go/token"
	"slices"
	"strings"

	"github.com/mpyw/e2immu/internal/eventual"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/model"
)

// Problem is a directive that cannot be applied where it is written.
type Problem struct {
	Pos  token.Pos
	Text string
}

func problemf(d Directive, format string, args ...any) Problem {
	return Problem{Pos: d.Pos, Text: fmt.Sprintf("//"+directivePrefix+d.Name+": "+format, args...)}
}

// contract accumulates one declaration's contract.
type contract struct {
	c        model.Contract
	problems []Problem
}

func (b *contract) set(d Directive, p lattice.Property, v int) {
	if !b.c.Pos.IsValid() {
		b.c.Pos = d.Pos
	}
	if old, ok := b.c.Get(p); ok && old != v {
		b.problems = append(b.problems, problemf(d, "contradicts an earlier directive on %s", p))
		return
	}
	b.c = b.c.With(p, v)
}

func (b *contract) labels(d Directive, raw string) []string {
	labels := eventual.SafeSplit(raw)
	if len(labels) == 0 {
		b.problems = append(b.problems, problemf(d, "no labels"))
	}
	if !b.c.Pos.IsValid() {
		b.c.Pos = d.Pos
	}
	return labels
}

// TypeContract is the contract of a type declaration.
type TypeContract struct {
	Contract model.Contract
	// Container promises that no method modifies its parameters.
	Container bool
}

// ParseTypeContract builds a type contract from its directives.
func ParseTypeContract(ds []Directive) (TypeContract, []Problem) {
	var b contract
	var out TypeContract
	for _, d := range ds {
		switch d.Name {
		case "ignore":
		case "container":
			out.Container = true
		case "mutable":
			b.set(d, lattice.Immutable, lattice.Mutable)
		case "final", "immutable":
			level := 1
			if d.Name == "immutable" {
				level = 2
				if slices.Contains(d.Args, "recursive") {
					level = 3
				}
			}
			after, eventually := d.Arg("after")
			if eventually {
				b.labels(d, after)
			}
			b.set(d, lattice.Immutable, lattice.ImmutableGrade(level, eventually))
		default:
			b.problems = append(b.problems, problemf(d, "not applicable to a type"))
		}
	}
	out.Contract = b.c
	return out, b.problems
}

// ParseFieldContract builds a field contract from its directives.
func ParseFieldContract(ds []Directive) (model.Contract, []Problem) {
	var b contract
	for _, d := range ds {
		switch d.Name {
		case "ignore":
		case "final":
			b.set(d, lattice.Final, 1)
		case "notnull":
			b.set(d, lattice.NotNull, lattice.EffectivelyNotNull)
		default:
			b.problems = append(b.problems, problemf(d, "not applicable to a field"))
		}
	}
	return b.c, b.problems
}

// MethodContract is the contract of a method and of its parameters.
type MethodContract struct {
	Contract   model.Contract
	Parameters map[string]model.Contract
}

// ParseMethodContract builds the contract of a method with the given
// parameter names from its directives. A directive naming a parameter
// applies to that parameter; without one, it applies to the method.
func ParseMethodContract(ds []Directive, params []string) (MethodContract, []Problem) {
	var b contract
	perParam := make(map[string]*contract)
	var problems []Problem
	paramOf := func(d Directive) (*contract, bool) {
		if len(d.Args) == 0 {
			return nil, false
		}
		name := d.Args[0]
		if !slices.Contains(params, name) {
			problems = append(problems, problemf(d, "no parameter %q", name))
			return nil, true
		}
		if perParam[name] == nil {
			perParam[name] = &contract{}
		}
		return perParam[name], true
	}
	for _, d := range ds {
		switch d.Name {
		case "ignore":
		case "notmodified", "modified":
			v := 0
			if d.Name == "modified" {
				v = 1
			}
			if pc, isParam := paramOf(d); isParam {
				if pc != nil {
					pc.set(d, lattice.ModifiedVariable, v)
				}
				continue
			}
			b.set(d, lattice.ModifiedMethod, v)
		case "notnull":
			if pc, isParam := paramOf(d); isParam {
				if pc != nil {
					pc.set(d, lattice.NotNull, lattice.EffectivelyNotNull)
				}
				continue
			}
			b.set(d, lattice.NotNull, lattice.EffectivelyNotNull)
		case "identity":
			b.set(d, lattice.Identity, 1)
		case "fluent":
			b.set(d, lattice.Fluent, 1)
		case "independent":
			b.set(d, lattice.Independent, lattice.FullyIndependent)
		case "mark":
			b.c.Mark = append(b.c.Mark, b.labels(d, strings.Join(d.Args, ","))...)
		case "only":
			before, hasBefore := d.Arg("before")
			after, hasAfter := d.Arg("after")
			switch {
			case hasBefore == hasAfter:
				b.problems = append(b.problems, problemf(d, "needs exactly one of before= and after="))
			case hasBefore:
				b.c.OnlyBefore = append(b.c.OnlyBefore, b.labels(d, before)...)
			default:
				b.c.OnlyAfter = append(b.c.OnlyAfter, b.labels(d, after)...)
			}
		default:
			b.problems = append(b.problems, problemf(d, "not applicable to a method"))
		}
	}
	out := MethodContract{Contract: b.c, Parameters: make(map[string]model.Contract, len(perParam))}
	problems = append(problems, b.problems...)
	for name, pc := range perParam {
		out.Parameters[name] = pc.c
		problems = append(problems, pc.problems...)
	}
	slices.SortFunc(problems, func(a, b Problem) int { return int(a.Pos) - int(b.Pos) })
	return out, problems
}
