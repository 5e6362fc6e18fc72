package contracts

// Counter counts.
type Counter struct{ n int }

//e2immu:notmodified // want `contract violation: modified_method: contracted false, inferred true`
func (c *Counter) Inc() { c.n++ }

//e2immu:notmodified
func (c *Counter) Get() int { return c.n }

//e2immu:immutable // want `incompatible immutability contract: immutable: contracted immutable, inferred mutable`
type Cell struct{ v *int }

func (c *Cell) Set(v *int) { c.v = v }

type Clamp struct{ max int }

func (c *Clamp) Apply(n int) int {
	if n > c.max {
		n = c.max // want `assignment to parameter: n`
	}
	return n
}

type Stop struct{ n int }

func (s *Stop) Now() int {
	return s.n
	s.n++ // want `unreachable statement`
}

//e2immu:notnull missing // want `invalid directive`
func (s *Stop) Later() int { return s.n }
