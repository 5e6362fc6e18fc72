package analysis

import (
	"github.com/mpyw/e2immu/internal/fault"
	"github.com/mpyw/e2immu/internal/lattice"
)

// Cell is a write-once slot for a non-property result such as a return value
// or a precondition. Until it is set it carries the causes that block it.
type Cell[T any] struct {
	owner  string
	name   string
	value  T
	causes lattice.Causes
	done   bool
	same   func(a, b T) bool
}

// NewCell returns an unset cell; same decides whether a second write is a no-op.
func NewCell[T any](owner, name string, same func(a, b T) bool) *Cell[T] {
	return &Cell[T]{owner: owner, name: name, same: same}
}

// Set stores v. Re-setting an equal value is allowed; a different one is an internal error.
func (c *Cell[T]) Set(v T) error {
	if c.done {
		if c.same(c.value, v) {
			return nil
		}
		return fault.New("set "+c.name, c.owner, fault.ErrOverwrite)
	}
	c.value, c.done, c.causes = v, true, lattice.Causes{}
	return nil
}

// Delay records why the cell is still unset. It is ignored once the cell is set.
func (c *Cell[T]) Delay(causes lattice.Causes) {
	if !c.done {
		c.causes = causes
	}
}

// Get returns the value and whether it is set.
func (c *Cell[T]) Get() (T, bool) { return c.value, c.done }

// Causes returns the delay causes of an unset cell, or a generic initial cause.
func (c *Cell[T]) Causes() lattice.Causes {
	if c.done {
		return lattice.Causes{}
	}
	if c.causes.Empty() {
		return lattice.NewCauses(lattice.Cause{Subject: c.owner + ":" + c.name, Kind: lattice.CauseInitial})
	}
	return c.causes
}

// IsDone reports whether the cell is set.
func (c *Cell[T]) IsDone() bool { return c.done }

// Value is the immutable read side of a [Cell].
type Value[T any] struct {
	V      T
	Done   bool
	Causes lattice.Causes
}

func (c *Cell[T]) read() Value[T] { return Value[T]{V: c.value, Done: c.done, Causes: c.Causes()} }
