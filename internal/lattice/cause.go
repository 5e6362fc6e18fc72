package lattice

import (
	"cmp"
	"slices"
	"strings"
)

// CauseKind classifies why a value is delayed.
type CauseKind uint8

const (
	// CauseInitial marks a property that has not been computed yet.
	CauseInitial CauseKind = iota
	// CauseValue marks a delayed variable value inside a statement.
	CauseValue
	// CauseLinking marks linked variables that are not yet established.
	CauseLinking
	// CauseCallCycle marks a call cycle still waiting for unanimity.
	CauseCallCycle
	// CauseCondition marks a delayed path condition or state.
	CauseCondition
	// CausePrecondition marks a precondition that is not yet known.
	CausePrecondition
	// CauseApproved marks approved preconditions that are not yet frozen.
	CauseApproved
	// CauseNested marks a delay inside a nested companion analyser.
	CauseNested
)

var causeKindNames = [...]string{
	CauseInitial:      "initial",
	CauseValue:        "value",
	CauseLinking:      "linking",
	CauseCallCycle:    "call cycle",
	CauseCondition:    "condition",
	CausePrecondition: "precondition",
	CauseApproved:     "approved preconditions",
	CauseNested:       "nested",
}

func (k CauseKind) String() string {
	if int(k) < len(causeKindNames) {
		return causeKindNames[k]
	}
	return "unknown"
}

// Cause names the entity and property that block a value.
type Cause struct {
	Subject  string // fully qualified name of the blocking entity or variable
	Property Property
	Kind     CauseKind
}

// InitialDelay is the cause of a property that has never been written.
func InitialDelay(subject string, p Property) Cause {
	return Cause{Subject: subject, Property: p, Kind: CauseInitial}
}

func (c Cause) String() string {
	return c.Kind.String() + "@" + c.Property.String() + ":" + c.Subject
}

func compareCause(a, b Cause) int {
	if c := cmp.Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Property, b.Property); c != 0 {
		return c
	}
	return cmp.Compare(a.Kind, b.Kind)
}

// Causes is an immutable, sorted set of [Cause] values.
// The zero value is the empty set.
type Causes struct {
	list []Cause
}

// NewCauses builds a set from the given causes.
func NewCauses(cs ...Cause) Causes {
	if len(cs) == 0 {
		return Causes{}
	}
	list := slices.Clone(cs)
	slices.SortFunc(list, compareCause)
	return Causes{list: slices.Compact(list)}
}

// Empty reports whether the set holds no cause.
func (c Causes) Empty() bool { return len(c.list) == 0 }

// Len returns the number of causes.
func (c Causes) Len() int { return len(c.list) }

// List returns a copy of the causes in sorted order.
func (c Causes) List() []Cause { return slices.Clone(c.list) }

// Contains reports whether cause is in the set.
func (c Causes) Contains(cause Cause) bool {
	_, found := slices.BinarySearchFunc(c.list, cause, compareCause)
	return found
}

// ContainsSubject reports whether any cause is attributed to subject.
func (c Causes) ContainsSubject(subject string) bool {
	return slices.ContainsFunc(c.list, func(x Cause) bool { return x.Subject == subject })
}

// Merge returns the union of both sets.
func (c Causes) Merge(o Causes) Causes {
	switch {
	case o.Empty():
		return c
	case c.Empty():
		return o
	}
	merged := make([]Cause, 0, len(c.list)+len(o.list))
	i, j := 0, 0
	for i < len(c.list) && j < len(o.list) {
		switch d := compareCause(c.list[i], o.list[j]); {
		case d < 0:
			merged = append(merged, c.list[i])
			i++
		case d > 0:
			merged = append(merged, o.list[j])
			j++
		default:
			merged = append(merged, c.list[i])
			i++
			j++
		}
	}
	merged = append(merged, c.list[i:]...)
	merged = append(merged, o.list[j:]...)
	return Causes{list: merged}
}

// Equal reports whether both sets hold the same causes.
func (c Causes) Equal(o Causes) bool {
	return slices.Equal(c.list, o.list)
}

func (c Causes) String() string {
	parts := make([]string, len(c.list))
	for i, x := range c.list {
		parts[i] = x.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
