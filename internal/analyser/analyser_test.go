package analyser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/e2immu/internal/frontend/frontendtest"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/primary"
)

func analyse(t *testing.T, src string) []message.Message {
	t.Helper()
	l := frontendtest.Load(t, src)
	bag := message.NewBag()
	_, err := primary.Run(l.Unit, primary.Options{Messages: bag})
	require.NoError(t, err)
	return bag.Messages()
}

func kinds(ms []message.Message) []message.Kind {
	out := make([]message.Kind, len(ms))
	for i, m := range ms {
		out[i] = m.Kind
	}
	return out
}

func TestContract_ModifyingMethod(t *testing.T) {
	t.Parallel()

	ms := analyse(t, `package p

type Counter struct{ n int }

//e2immu:notmodified
func (c *Counter) Inc() { c.n++ }
`)
	require.Len(t, ms, 1)
	assert.Equal(t, message.ContractViolation, ms[0].Kind)
	assert.Equal(t, frontendtest.PkgPath+".Counter.Inc", ms[0].Subject)
	assert.Contains(t, ms[0].Text, "contracted false, inferred true")
}

func TestContract_Honoured(t *testing.T) {
	t.Parallel()

	ms := analyse(t, `package p

type Counter struct{ n int }

//e2immu:notmodified
func (c *Counter) Get() int { return c.n }
`)
	assert.Empty(t, ms)
}

func TestContract_ImmutableType(t *testing.T) {
	t.Parallel()

	ms := analyse(t, `package p

//e2immu:immutable
type Cell struct{ v *int }

func (c *Cell) Set(v *int) { c.v = v }
`)
	assert.Contains(t, kinds(ms), message.IncompatibleImmutability)
}

func TestParameter_AssignmentIsReported(t *testing.T) {
	t.Parallel()

	ms := analyse(t, `package p

type T struct{ n int }

func (t *T) Reset(n int) int {
	n = 0
	return n
}
`)
	assert.Contains(t, kinds(ms), message.AssignmentToParameter)
}

func TestParameter_ModifiedThroughCall(t *testing.T) {
	t.Parallel()

	l := frontendtest.Load(t, `package p

type Sink struct{ n int }

func (s *Sink) Fill(xs []int) {
	xs[0] = 1
}

func (s *Sink) Pass(ys []int) {
	s.Fill(ys)
}

func (s *Sink) Look(zs []int) int {
	return len(zs)
}
`)
	p, err := primary.New(l.Unit, primary.Options{})
	require.NoError(t, err)
	_, err = p.Analyse()
	require.NoError(t, err)

	ctx := p.Context()
	for name, want := range map[string]bool{"Fill": true, "Pass": true, "Look": false} {
		m := l.Method(t, "Sink", name)
		pa, ok := ctx.Parameter(m.Params[0])
		require.True(t, ok)
		assert.Equal(t, want, pa.Property(lattice.ModifiedVariable).IsTrue(), name)
	}
}
