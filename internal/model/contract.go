package model

import (
	"go/token"
	"maps"
	"slices"

	"github.com/mpyw/e2immu/internal/lattice"
)

// Contract holds the properties a programmer promised through directives.
// The zero value promises nothing.
type Contract struct {
	Properties map[lattice.Property]int
	Mark       []string // labels of a mark directive
	OnlyBefore []string
	OnlyAfter  []string
	Pos        token.Pos
}

// Get returns the contracted value of p.
func (c Contract) Get(p lattice.Property) (int, bool) {
	v, ok := c.Properties[p]
	return v, ok
}

// With returns a copy of c with p contracted to v.
func (c Contract) With(p lattice.Property, v int) Contract {
	c.Properties = maps.Clone(c.Properties)
	if c.Properties == nil {
		c.Properties = make(map[lattice.Property]int)
	}
	c.Properties[p] = v
	return c
}

// Empty reports whether nothing was contracted.
func (c Contract) Empty() bool {
	return len(c.Properties) == 0 && len(c.Mark) == 0 && len(c.OnlyBefore) == 0 && len(c.OnlyAfter) == 0
}

// Contracted returns the contracted properties in declaration order.
func (c Contract) Contracted() []lattice.Property {
	return slices.Sorted(maps.Keys(c.Properties))
}
