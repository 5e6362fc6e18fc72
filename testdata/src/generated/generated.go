// Code generated by hand for tests. DO NOT EDIT.

package generated

type Counter struct{ n int }

//e2immu:notmodified
func (c *Counter) Inc() { c.n++ }
