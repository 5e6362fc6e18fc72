package analysis

import (
	"errors"
	"maps"
	"slices"

	"github.com/mpyw/e2immu/internal/fault"
	"github.com/mpyw/e2immu/internal/model"
)

// ErrInconsistentPrecondition reports two methods requiring different clauses on one field.
// It is a user-code problem, reported as a diagnostic.
var ErrInconsistentPrecondition = errors.New("inconsistent precondition")

// ApprovedPreconditions maps a field name to the clause that must hold
// before the field may be assigned (level 1) or its content modified (level 2).
// Each field is written at most once; the whole map is frozen once complete.
type ApprovedPreconditions struct {
	clauses map[string]model.Expression
	frozen  bool
}

// NewApprovedPreconditions returns an empty, unfrozen map.
func NewApprovedPreconditions() *ApprovedPreconditions {
	return &ApprovedPreconditions{clauses: make(map[string]model.Expression)}
}

// Put approves clause for field. An identical clause is accepted again;
// a different one returns [ErrInconsistentPrecondition] and keeps the first.
// Writing to a frozen map is an internal error.
func (a *ApprovedPreconditions) Put(field string, clause model.Expression) error {
	if a.frozen {
		return fault.Errorf("approve precondition", field, "%w", fault.ErrFrozen)
	}
	if old, ok := a.clauses[field]; ok {
		if model.Same(old, clause) {
			return nil
		}
		return ErrInconsistentPrecondition
	}
	a.clauses[field] = clause
	return nil
}

// Freeze ends the aggregation.
func (a *ApprovedPreconditions) Freeze() { a.frozen = true }

// Frozen reports whether aggregation has ended.
func (a *ApprovedPreconditions) Frozen() bool { return a.frozen }

// Get returns the approved clause of a field.
func (a *ApprovedPreconditions) Get(field string) (model.Expression, bool) {
	c, ok := a.clauses[field]
	return c, ok
}

// Fields returns the approved field names, sorted.
func (a *ApprovedPreconditions) Fields() []string { return slices.Sorted(maps.Keys(a.clauses)) }

// Len returns the number of approved fields.
func (a *ApprovedPreconditions) Len() int { return len(a.clauses) }

func (a *ApprovedPreconditions) clone() *ApprovedPreconditions {
	return &ApprovedPreconditions{clauses: maps.Clone(a.clauses), frozen: a.frozen}
}
