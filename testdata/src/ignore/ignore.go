package ignore

type Counter struct{ n int }

//e2immu:ignore
//e2immu:notmodified
func (c *Counter) Inc() { c.n++ }

func (c *Counter) Get() int {
	//e2immu:ignore // want `unused ignore directive`
	return c.n
}

type Clamp struct{ max int }

func (c *Clamp) Apply(n int) int {
	if n > c.max {
		n = c.max //e2immu:ignore
	}
	return n
}
