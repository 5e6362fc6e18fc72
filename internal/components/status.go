package components

import "github.com/mpyw/e2immu/internal/lattice"

// Kind is the outcome class of an analysis step.
type Kind uint8

const (
	// KindDone means the step has computed everything it will ever compute.
	KindDone Kind = iota
	// KindDelays means the step is blocked and nothing changed since the previous run.
	KindDelays
	// KindProgress means the step is blocked but its state moved since the previous run.
	KindProgress
)

func (k Kind) String() string {
	switch k {
	case KindDone:
		return "DONE"
	case KindDelays:
		return "DELAYS"
	case KindProgress:
		return "PROGRESS"
	default:
		return "UNKNOWN"
	}
}

// Status is the result of running a step or a whole pipeline.
type Status struct {
	kind   Kind
	causes lattice.Causes
}

// Done is the status of a finished step.
var Done = Status{kind: KindDone}

// Delays returns a blocked status.
func Delays(causes lattice.Causes) Status {
	if causes.Empty() {
		causes = lattice.NewCauses(lattice.Cause{Kind: lattice.CauseInitial})
	}
	return Status{kind: KindDelays, causes: causes}
}

// Progress returns a blocked status that nonetheless changed state.
func Progress(causes lattice.Causes) Status {
	return Status{kind: KindProgress, causes: causes}
}

// Of converts a property value into a step status.
func Of(dv lattice.DV) Status {
	if dv.IsDone() {
		return Done
	}
	return Delays(dv.Causes())
}

// OfCauses is [Done] for an empty set, [Delays] otherwise.
func OfCauses(causes lattice.Causes) Status {
	if causes.Empty() {
		return Done
	}
	return Delays(causes)
}

// Kind returns the outcome class.
func (s Status) Kind() Kind { return s.kind }

// IsDone reports whether s is [KindDone].
func (s Status) IsDone() bool { return s.kind == KindDone }

// IsDelayed reports whether s is blocked, with or without progress.
func (s Status) IsDelayed() bool { return s.kind != KindDone }

// IsProgress reports whether s is [KindProgress].
func (s Status) IsProgress() bool { return s.kind == KindProgress }

// Causes returns the delay causes of a blocked status.
func (s Status) Causes() lattice.Causes { return s.causes }

// Combine folds two statuses:
//
//	DONE     + DONE     = DONE
//	DONE     + DELAYS   = DELAYS
//	PROGRESS + anything = PROGRESS
func (s Status) Combine(o Status) Status {
	switch {
	case s.IsDone():
		return o
	case o.IsDone():
		return s
	}
	kind := KindDelays
	if s.IsProgress() || o.IsProgress() {
		kind = KindProgress
	}
	return Status{kind: kind, causes: s.causes.Merge(o.causes)}
}

// Same reports whether both statuses have the same kind and causes.
func (s Status) Same(o Status) bool {
	return s.kind == o.kind && s.causes.Equal(o.causes)
}

func (s Status) String() string {
	if s.IsDone() {
		return s.kind.String()
	}
	return s.kind.String() + s.causes.String()
}
