// Package analysis holds the per-entity results of the inference engine.
//
// Every entity has two types:
//
//	XxxBuilder   mutable accumulator, written only by the entity's analyser
//	   │
//	   ├─ Snapshot()  immutable copy published every iteration
//	   └─ Freeze()    final immutable copy; the builder rejects writes afterwards
//	   ▼
//	Xxx          immutable, shared with every other analyser
//
// Readers only ever see the immutable type.
package analysis

import (
	"maps"
	"slices"
	"strings"

	"github.com/mpyw/e2immu/internal/fault"
)

// Annotation is a derived fact in annotation form, e.g. {"only", "after=t"}.
type Annotation struct {
	Name  string
	Value string
}

func (a Annotation) String() string {
	if a.Value == "" {
		return "@" + a.Name
	}
	return "@" + a.Name + "(" + a.Value + ")"
}

// Annotations is a write-once map from annotation name to value.
type Annotations struct {
	owner  string
	values map[string]string
}

// NewAnnotations creates an empty map for the named entity.
func NewAnnotations(owner string) *Annotations {
	return &Annotations{owner: owner, values: make(map[string]string)}
}

// Put adds an annotation; re-adding it with another value is an internal error.
func (a *Annotations) Put(name, value string) error {
	if old, ok := a.values[name]; ok && old != value {
		return fault.Errorf("annotate @"+name, a.owner, "%w: had %q, got %q", fault.ErrOverwrite, old, value)
	}
	a.values[name] = value
	return nil
}

// List returns the annotations sorted by name.
func (a *Annotations) List() []Annotation {
	if a == nil {
		return nil
	}
	names := slices.Sorted(maps.Keys(a.values))
	out := make([]Annotation, len(names))
	for i, n := range names {
		out[i] = Annotation{Name: n, Value: a.values[n]}
	}
	return out
}

// FormatAnnotations renders a list as "@a @b(x)".
func FormatAnnotations(list []Annotation) string {
	parts := make([]string, len(list))
	for i, a := range list {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}
