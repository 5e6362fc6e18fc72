package analysis

import (
	"slices"
	"strings"
)

// EventualKind is the role of a method in an eventually immutable type.
type EventualKind uint8

const (
	NotEventual EventualKind = iota
	Mark                     // flips the type into its after state
	OnlyBefore               // callable only before the flip
	OnlyAfter                // callable only after the flip
	TestMark                 // reports true once flipped
	TestMarkBefore           // reports true until flipped
)

func (k EventualKind) String() string {
	switch k {
	case Mark:
		return "mark"
	case OnlyBefore:
		return "only before"
	case OnlyAfter:
		return "only after"
	case TestMark:
		return "test mark"
	case TestMarkBefore:
		return "test mark before"
	default:
		return "not eventual"
	}
}

// Eventual is the mark/only status of a method.
type Eventual struct {
	Kind   EventualKind
	Fields []string // sorted
}

// NoEventual is the status of a method with no role.
var NoEventual = Eventual{Kind: NotEventual}

// Label is the comma-joined field list, e.g. "count,frozen".
func (e Eventual) Label() string { return strings.Join(e.Fields, ",") }

// Equal compares kind and fields.
func (e Eventual) Equal(o Eventual) bool { return e.Kind == o.Kind && slices.Equal(e.Fields, o.Fields) }

func (e Eventual) String() string {
	if e.Kind == NotEventual {
		return e.Kind.String()
	}
	return e.Kind.String() + "(" + e.Label() + ")"
}
