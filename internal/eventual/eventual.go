// Package eventual derives eventual immutability: which preconditions a type
// approves, and which methods flip it from its before to its after state.
//
//	before state            mark              after state
//	  !frozen  ──────────── Freeze() ─────────▶  frozen
//	  @only(before=frozen)   @mark(frozen)     @only(after=frozen)
//	                      IsFrozen(): @test_mark(frozen)
//
// A field that is assigned (level 1) or whose content is modified (level 2)
// outside construction must be guarded by a precondition of the method doing
// it. The guards, collected per field, are the approved preconditions.
package eventual

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/condition"
	"github.com/mpyw/e2immu/internal/model"
)

// ErrDuplicateMark reports a label listed twice in one mark directive.
var ErrDuplicateMark = errors.New("duplicate mark condition")

// SafeSplit splits a comma-separated label list and keeps the non-empty,
// trimmed labels.
func SafeSplit(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CheckLabels rejects repeated labels.
func CheckLabels(labels []string) error {
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			return fmt.Errorf("%w: %s", ErrDuplicateMark, l)
		}
		seen[l] = true
	}
	return nil
}

// FieldPrecondition keeps the clauses of pre that read fields of the receiver.
func FieldPrecondition(pre condition.Precondition) condition.Precondition {
	if pre.IsEmpty() {
		return condition.EmptyPrecondition()
	}
	var kept []model.Expression
	for _, c := range model.Conjuncts(pre.Expression) {
		if len(model.FieldsOf(c)) > 0 {
			kept = append(kept, c)
		}
	}
	return condition.Precondition{Expression: model.NewAnd(kept...), Causes: pre.Causes}
}

// Requirement is the field precondition of a method that assigns non-final
// fields or modifies content.
type Requirement struct {
	Method       *model.MethodInfo
	Precondition condition.Precondition
}

// Approve records every clause of every requirement under each field it reads.
// It returns the methods that need a guard but have none; their fields cannot
// become eventually final or immutable.
func Approve(into *analysis.ApprovedPreconditions, reqs []Requirement) (unguarded []*model.MethodInfo, err error) {
	for _, r := range reqs {
		if r.Precondition.IsEmpty() {
			unguarded = append(unguarded, r.Method)
			continue
		}
		for _, c := range model.Conjuncts(r.Precondition.Expression) {
			for _, f := range model.FieldsOf(c) {
				if err := into.Put(f.Name, c); err != nil {
					return unguarded, fmt.Errorf("%s on field %s: %w", r.Method, f.Name, err)
				}
			}
		}
	}
	return unguarded, nil
}

// Assignment is a value a method stores in a field of the receiver.
type Assignment struct {
	Field string
	Value model.Expression
}

// Detect derives the mark/only status of a method from its field precondition.
//
//   - every clause is an approved clause: the method runs in the before state.
//     It marks when it assigns an approved field a value that falsifies the
//     field's approved clause; otherwise it is only-before.
//   - every clause negates an approved clause: only-after.
func Detect(pre condition.Precondition, approved *analysis.ApprovedPreconditions, assigned []Assignment) analysis.Eventual {
	if pre.IsEmpty() || approved.Len() == 0 {
		return analysis.NoEventual
	}
	fields, before, after := matchClauses(model.Conjuncts(pre.Expression), approved)
	switch {
	case len(fields) == 0:
		return analysis.NoEventual
	case before && flips(fields, approved, assigned):
		return analysis.Eventual{Kind: analysis.Mark, Fields: fields}
	case before:
		return analysis.Eventual{Kind: analysis.OnlyBefore, Fields: fields}
	case after:
		return analysis.Eventual{Kind: analysis.OnlyAfter, Fields: fields}
	}
	return analysis.NoEventual
}

// DetectTestMark derives the status of a non-modifying boolean method from
// the value it returns. Returning the negation of every approved clause it
// reads reports the after state; returning the clauses themselves reports
// the before state.
func DetectTestMark(returned model.Expression, approved *analysis.ApprovedPreconditions) analysis.Eventual {
	if returned == nil || approved.Len() == 0 {
		return analysis.NoEventual
	}
	fields, before, after := matchClauses(model.Conjuncts(returned), approved)
	switch {
	case len(fields) == 0:
		return analysis.NoEventual
	case after:
		return analysis.Eventual{Kind: analysis.TestMark, Fields: fields}
	case before:
		return analysis.Eventual{Kind: analysis.TestMarkBefore, Fields: fields}
	}
	return analysis.NoEventual
}

// matchClauses reports the sorted fields the clauses read, whether every
// clause is an approved clause and whether every clause negates one. A
// clause reading no field clears both.
func matchClauses(clauses []model.Expression, approved *analysis.ApprovedPreconditions) (fields []string, before, after bool) {
	before, after = true, true
	for _, c := range clauses {
		fs := model.FieldsOf(c)
		if len(fs) == 0 {
			return nil, false, false
		}
		matchesBefore, matchesAfter := false, false
		for _, f := range fs {
			if !slices.Contains(fields, f.Name) {
				fields = append(fields, f.Name)
			}
			a, ok := approved.Get(f.Name)
			if !ok {
				continue
			}
			matchesBefore = matchesBefore || model.Same(a, c)
			matchesAfter = matchesAfter || model.Same(model.Not(a), c)
		}
		before = before && matchesBefore
		after = after && matchesAfter
	}
	slices.Sort(fields)
	return fields, before, after
}

// flips reports whether one of the assignments makes the approved clause of
// its field false.
func flips(fields []string, approved *analysis.ApprovedPreconditions, assigned []Assignment) bool {
	for _, as := range assigned {
		if as.Value == nil || !slices.Contains(fields, as.Field) {
			continue
		}
		clause, ok := approved.Get(as.Field)
		if !ok {
			continue
		}
		after := model.Translate(clause, func(v model.Variable) model.Expression {
			if f, isField := model.IsFieldOfThis(v); isField && f.Name == as.Field {
				return as.Value
			}
			return nil
		})
		if model.IsFalse(after) {
			return true
		}
	}
	return false
}

// FromContract turns mark/only directives into a status; the zero contract gives none.
func FromContract(c model.Contract) analysis.Eventual {
	sorted := func(labels []string) []string {
		out := slices.Clone(labels)
		slices.Sort(out)
		return out
	}
	switch {
	case len(c.Mark) > 0:
		return analysis.Eventual{Kind: analysis.Mark, Fields: sorted(c.Mark)}
	case len(c.OnlyBefore) > 0:
		return analysis.Eventual{Kind: analysis.OnlyBefore, Fields: sorted(c.OnlyBefore)}
	case len(c.OnlyAfter) > 0:
		return analysis.Eventual{Kind: analysis.OnlyAfter, Fields: sorted(c.OnlyAfter)}
	}
	return analysis.NoEventual
}

// Status is the outcome of one immutability level.
type Status uint8

const (
	// Effective needs no precondition.
	Effective Status = iota
	// Eventual holds once the approved preconditions are met.
	Eventual
	// Broken cannot hold.
	Broken
)

func (s Status) String() string {
	switch s {
	case Effective:
		return "effective"
	case Eventual:
		return "eventual"
	default:
		return "broken"
	}
}

// Classify decides one level. offending counts the fields that break the
// level without guards; unguarded lists the methods that break it without
// a precondition.
func Classify(offending int, unguarded []*model.MethodInfo, approved *analysis.ApprovedPreconditions) Status {
	switch {
	case offending == 0:
		return Effective
	case len(unguarded) == 0 && approved.Len() > 0:
		return Eventual
	}
	return Broken
}
