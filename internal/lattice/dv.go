// Package lattice implements the value domain of the inference engine.
//
// Every inferred fact is a [DV], a delay-aware value. A DV is either done,
// holding a concrete grade of some bounded lattice, or delayed, holding the
// set of [Causes] that block it:
//
//	            best
//	             ▲
//	   done ─────┤  grade, only ever moves up across iterations
//	             │
//	            worst
//
//	   delayed: {cause, cause, ...}   not yet known, never "false"
//
// Combinators are monotone. A delayed operand makes the result delayed unless
// the known operands already pin the result to the lattice's extreme element.
package lattice

import (
	"strconv"
)

// DV is a delay-aware property value.
type DV struct {
	value  int
	causes Causes
}

// Common done values.
var (
	FALSE = Of(0)
	TRUE  = Of(1)
)

// Of returns a done value.
func Of(v int) DV { return DV{value: v} }

// Bool returns TRUE or FALSE.
func Bool(b bool) DV {
	if b {
		return TRUE
	}
	return FALSE
}

// Delayed returns a delayed value blocked by the given causes.
func Delayed(c Cause, more ...Cause) DV {
	return DV{causes: NewCauses(append([]Cause{c}, more...)...)}
}

// DelayedBy returns a delayed value for a non-empty set of causes.
// An empty set yields a delay with an anonymous initial cause so that the
// result is never mistaken for a done value.
func DelayedBy(causes Causes) DV {
	if causes.Empty() {
		return Delayed(Cause{Kind: CauseInitial})
	}
	return DV{causes: causes}
}

// IsDone reports whether the value is concrete.
func (d DV) IsDone() bool { return d.causes.Empty() }

// IsDelayed reports whether the value is still blocked.
func (d DV) IsDelayed() bool { return !d.causes.Empty() }

// Value returns the concrete grade. It is meaningless for a delayed value.
func (d DV) Value() int { return d.value }

// Causes returns the delay causes; empty for done values.
func (d DV) Causes() Causes { return d.causes }

// IsTrue reports whether the value is done and TRUE.
func (d DV) IsTrue() bool { return d.IsDone() && d.value == 1 }

// IsFalse reports whether the value is done and FALSE.
func (d DV) IsFalse() bool { return d.IsDone() && d.value == 0 }

// Equal reports whether both values are identical, including delay causes.
func (d DV) Equal(o DV) bool {
	if d.IsDelayed() || o.IsDelayed() {
		return d.causes.Equal(o.causes)
	}
	return d.value == o.value
}

// MergeDelays returns d with the causes of o added when o is delayed.
// A done d becomes delayed when o is delayed.
func (d DV) MergeDelays(o DV) DV {
	if o.IsDone() {
		return d
	}
	return DV{causes: d.causes.Merge(o.causes)}
}

func (d DV) String() string {
	if d.IsDelayed() {
		return "delayed" + d.causes.String()
	}
	return strconv.Itoa(d.value)
}

// MaxOf is the numeric maximum of dvs, resolving early once top is reached by a done operand.
// Without operands it returns floor.
func MaxOf(floor, top int, dvs ...DV) DV {
	best := floor
	var causes Causes
	for _, dv := range dvs {
		if dv.IsDelayed() {
			causes = causes.Merge(dv.causes)
			continue
		}
		if dv.value >= top {
			return Of(top)
		}
		best = max(best, dv.value)
	}
	if !causes.Empty() {
		return DelayedBy(causes)
	}
	return Of(best)
}

// MinOf is the numeric minimum of dvs, resolving early once bottom is reached by a done operand.
// Without operands it returns ceiling.
func MinOf(bottom, ceiling int, dvs ...DV) DV {
	worst := ceiling
	var causes Causes
	for _, dv := range dvs {
		if dv.IsDelayed() {
			causes = causes.Merge(dv.causes)
			continue
		}
		if dv.value <= bottom {
			return Of(bottom)
		}
		worst = min(worst, dv.value)
	}
	if !causes.Empty() {
		return DelayedBy(causes)
	}
	return Of(worst)
}

// Or is the boolean disjunction; a done TRUE dominates any delay.
func Or(dvs ...DV) DV { return MaxOf(0, 1, dvs...) }

// And is the boolean conjunction; a done FALSE dominates any delay.
func And(dvs ...DV) DV { return MinOf(0, 1, dvs...) }

// Better combines values towards the best grade of p.
// The result is done as soon as one operand reaches the best grade.
func (p Property) Better(dvs ...DV) DV {
	if p.Inverted() {
		return MinOf(p.Best(), p.Worst(), dvs...)
	}
	return MaxOf(p.Worst(), p.Best(), dvs...)
}

// Worse combines values towards the worst grade of p.
// The result is done as soon as one operand reaches the worst grade.
func (p Property) Worse(dvs ...DV) DV {
	if p.Inverted() {
		return MaxOf(p.Best(), p.Worst(), dvs...)
	}
	return MinOf(p.Worst(), p.Best(), dvs...)
}

// AtLeastAsGood reports whether the done value a is at least as precise as b for p.
func (p Property) AtLeastAsGood(a, b int) bool {
	if p.Inverted() {
		return a <= b
	}
	return a >= b
}
