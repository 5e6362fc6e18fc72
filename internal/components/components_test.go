package components_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mpyw/e2immu/internal/components"
	"github.com/mpyw/e2immu/internal/lattice"
)

type shared struct{ iteration int }

func blocked(subject string) Status {
	return Delays(lattice.NewCauses(lattice.InitialDelay(subject, lattice.Final)))
}

func TestComponents(t *testing.T) {
	t.Run("done only when every step is done", func(t *testing.T) {
		calls := map[string]int{}
		c := NewBuilder[shared]("T", nil).
			Add("a", func(s shared) (Status, error) {
				calls["a"]++
				return Done, nil
			}).
			Add("b", func(s shared) (Status, error) {
				calls["b"]++
				if s.iteration < 2 {
					return blocked("x"), nil
				}
				return Done, nil
			}).
			Build()

		st, err := c.Run(shared{0})
		require.NoError(t, err)
		assert.Equal(t, KindProgress, st.Kind(), "first run is progress")

		st, err = c.Run(shared{1})
		require.NoError(t, err)
		assert.Equal(t, KindDelays, st.Kind(), "unchanged delay is no progress")
		assert.True(t, st.Causes().ContainsSubject("x"))

		st, err = c.Run(shared{2})
		require.NoError(t, err)
		assert.True(t, st.IsDone())
		assert.True(t, c.Done())

		assert.Equal(t, 1, calls["a"], "done steps are skipped")
		assert.Equal(t, 3, calls["b"])
	})

	t.Run("changed causes count as progress", func(t *testing.T) {
		subjects := []string{"x", "y", "y"}
		i := 0
		c := NewBuilder[shared]("T", nil).
			Add("a", func(shared) (Status, error) {
				s := blocked(subjects[i])
				i++
				return s, nil
			}).
			Build()

		_, _ = c.Run(shared{})
		st, _ := c.Run(shared{})
		assert.True(t, st.IsProgress(), "x -> y changed")
		st, _ = c.Run(shared{})
		assert.Equal(t, KindDelays, st.Kind(), "y -> y did not change")
	})

	t.Run("errors carry owner and step", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewBuilder[shared]("pkg.T.m", nil).
			Add("linking", func(shared) (Status, error) { return Status{}, boom }).
			Build()

		_, err := c.Run(shared{})
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "pkg.T.m")
		assert.Contains(t, err.Error(), "linking")
	})

	t.Run("panics are re-raised", func(t *testing.T) {
		c := NewBuilder[shared]("T", nil).
			Add("a", func(shared) (Status, error) { panic("impossible state") }).
			Build()

		assert.PanicsWithValue(t, "impossible state", func() { _, _ = c.Run(shared{}) })
	})

	t.Run("statuses are recorded per step", func(t *testing.T) {
		c := NewBuilder[shared]("T", nil).
			Add("a", func(shared) (Status, error) { return Done, nil }).
			Add("b", func(shared) (Status, error) { return blocked("z"), nil }).
			Build()
		_, _ = c.Run(shared{})

		got := c.Statuses()
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].Name)
		assert.True(t, got[0].Status.IsDone())
		assert.True(t, got[1].Status.IsDelayed())
	})
}

func TestStatusCombine(t *testing.T) {
	x, y := blocked("x"), blocked("y")

	t.Run("DONE + DONE = DONE", func(t *testing.T) {
		assert.True(t, Done.Combine(Done).IsDone())
	})
	t.Run("DONE + DELAYS = DELAYS", func(t *testing.T) {
		assert.Equal(t, KindDelays, Done.Combine(x).Kind())
	})
	t.Run("PROGRESS dominates DELAYS", func(t *testing.T) {
		got := Progress(x.Causes()).Combine(y)
		assert.True(t, got.IsProgress())
		assert.Equal(t, 2, got.Causes().Len())
	})
	t.Run("Of converts property values", func(t *testing.T) {
		assert.True(t, Of(lattice.TRUE).IsDone())
		assert.True(t, Of(lattice.Delayed(lattice.InitialDelay("a", lattice.Final))).IsDelayed())
	})
}
