package generated

type Gauge struct{ v int }

//e2immu:notmodified // want `contract violation: modified_method`
func (g *Gauge) Set(v int) { g.v = v }
