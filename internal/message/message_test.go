package message_test

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/mpyw/e2immu/internal/message"
)

func TestBag(t *testing.T) {
	t.Run("duplicates are dropped", func(t *testing.T) {
		b := NewBag()
		m := New(Unreachable, token.Pos(10), "p.T.m", "")
		b.Add(m)
		b.Add(m)
		assert.Equal(t, 1, b.Len())
		assert.False(t, b.HasErrors())
	})

	t.Run("sorted by position", func(t *testing.T) {
		b := NewBag()
		b.AddAll(
			New(ContractViolation, token.Pos(30), "p.T.b", "modified"),
			New(AssignmentToParameter, token.Pos(5), "p.T.a", "x"),
			New(Unreachable, token.Pos(30), "p.T.b", ""),
		)
		got := b.Messages()
		assert.Equal(t, AssignmentToParameter, got[0].Kind)
		assert.Equal(t, ContractViolation, got[1].Kind)
		assert.Equal(t, Unreachable, got[2].Kind)
		assert.True(t, b.HasErrors())
	})

	t.Run("string form", func(t *testing.T) {
		assert.Equal(t, "unreachable statement", New(Unreachable, 0, "", "").String())
		assert.Equal(t, "contract violation: @notmodified on p", New(ContractViolation, 0, "", "@notmodified on %s", "p").String())
		assert.Equal(t, Error, InconsistentPrecondition.Severity())
		assert.Equal(t, "warning", UnusedIgnore.Severity().String())
	})
}
