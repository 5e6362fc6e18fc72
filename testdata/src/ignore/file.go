// e2immu:ignore
package ignore

type Reset struct{ n int }

//e2immu:notmodified
func (r *Reset) Clear() { r.n = 0 }
