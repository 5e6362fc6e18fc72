package lattice

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mpyw/e2immu/internal/fault"
)

// Properties is the write-once property map of one analysis builder.
//
// A property may be rewritten while delayed. Once done, rewriting it with the
// same value is a no-op, rewriting it with another value returns
// [fault.ErrOverwrite] and rewriting it with a delay returns [fault.ErrRegression].
type Properties struct {
	owner  string
	values map[Property]DV
	frozen bool
}

// NewProperties creates an empty map owned by the named entity.
func NewProperties(owner string) *Properties {
	return &Properties{owner: owner, values: make(map[Property]DV)}
}

// Owner returns the fully qualified name of the owning entity.
func (p *Properties) Owner() string { return p.owner }

// Get returns the current value; an unset property is delayed with an initial cause.
func (p *Properties) Get(prop Property) DV {
	if v, ok := p.values[prop]; ok {
		return v
	}
	return Delayed(InitialDelay(p.owner, prop))
}

// IsDone reports whether prop holds a concrete value.
func (p *Properties) IsDone(prop Property) bool {
	v, ok := p.values[prop]
	return ok && v.IsDone()
}

// Set writes a value, enforcing write-once semantics for done values.
func (p *Properties) Set(prop Property, v DV) error {
	if p.frozen {
		return fault.New("set "+prop.String(), p.owner, fault.ErrFrozen)
	}
	old, ok := p.values[prop]
	if ok && old.IsDone() {
		switch {
		case v.IsDelayed():
			return fault.Errorf("set "+prop.String(), p.owner, "%w: had %s, got %s", fault.ErrRegression, old, v)
		case v.Value() != old.Value():
			return fault.Errorf("set "+prop.String(), p.owner, "%w: had %s, got %s", fault.ErrOverwrite, old, v)
		}
		return nil
	}
	p.values[prop] = v
	return nil
}

// SetDone writes v only when it is done; delays are dropped silently.
func (p *Properties) SetDone(prop Property, v DV) error {
	if v.IsDelayed() {
		if !p.IsDone(prop) {
			p.values[prop] = v
		}
		return nil
	}
	return p.Set(prop, v)
}

// Freeze forbids any further write.
func (p *Properties) Freeze() { p.frozen = true }

// Frozen reports whether [Properties.Freeze] was called.
func (p *Properties) Frozen() bool { return p.frozen }

// Snapshot returns an independent copy of the current values.
func (p *Properties) Snapshot() map[Property]DV { return maps.Clone(p.values) }

// Delays merges the causes of every delayed property in props.
func (p *Properties) Delays(props ...Property) Causes {
	var causes Causes
	for _, prop := range props {
		causes = causes.Merge(p.Get(prop).Causes())
	}
	return causes
}

func (p *Properties) String() string {
	keys := slices.Sorted(maps.Keys(p.values))
	s := p.owner + "{"
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%s", k, p.values[k])
	}
	return s + "}"
}
