package model_test

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mpyw/e2immu/internal/model"
)

func fixture() (*TypeInfo, *MethodInfo, *ParameterInfo, *FieldInfo) {
	t := &TypeInfo{Name: "T", PkgPath: "p"}
	f := &FieldInfo{Name: "f", Owner: t, Type: PointerTo(Basic("int"))}
	t.Fields = []*FieldInfo{f}
	m := &MethodInfo{Name: "m", Owner: t}
	p := &ParameterInfo{Name: "p", Owner: m, Typ: PointerTo(Basic("int"))}
	m.Params = []*ParameterInfo{p}
	t.Methods = []*MethodInfo{m}
	return t, m, p, f
}

func TestNot(t *testing.T) {
	_, _, p, f := fixture()
	a := NewEquals(Ref(p), Null)
	b := NewEquals(Ref(FieldOfThis(f)), Null)

	t.Run("double negation", func(t *testing.T) {
		assert.True(t, Same(a, Not(Not(a))))
	})
	t.Run("De Morgan", func(t *testing.T) {
		got := Not(NewOr(a, b))
		and, ok := got.(And)
		require.True(t, ok, "got %s", got)
		assert.Len(t, and.Parts, 2)
	})
	t.Run("comparison flips operator", func(t *testing.T) {
		got := Not(NewCompare(token.GTR, Length{Of: Ref(p)}, IntConstant{Value: 0}))
		assert.Equal(t, "len(p) <= 0", got.String())
	})
}

func TestJunction(t *testing.T) {
	_, _, p, f := fixture()
	a := NewEquals(Ref(p), Null)
	b := NewEquals(Ref(FieldOfThis(f)), Null)

	assert.True(t, IsTrue(NewAnd()), "empty and is true")
	assert.True(t, IsFalse(NewOr()), "empty or is false")
	assert.True(t, Same(a, NewAnd(True, a)), "true is neutral in and")
	assert.True(t, IsFalse(NewAnd(a, False)), "false absorbs and")
	assert.True(t, IsFalse(NewAnd(a, Not(a))), "complementary pair")
	assert.True(t, IsTrue(NewOr(a, Not(a))), "excluded middle")
	assert.True(t, Same(NewAnd(a, b), NewAnd(b, a, a)), "sorted and deduplicated")
	assert.True(t, Same(NewAnd(a, NewAnd(b)), NewAnd(b, a)), "flattened")
}

func TestNewEquals(t *testing.T) {
	_, _, p, _ := fixture()
	assert.Equal(t, "nil == p", NewEquals(Ref(p), Null).String(), "constant goes left")
	assert.True(t, IsTrue(NewEquals(IntConstant{Value: 1}, IntConstant{Value: 1})))
	assert.True(t, IsFalse(NewEquals(IntConstant{Value: 1}, IntConstant{Value: 2})))
	assert.True(t, IsTrue(NewEquals(Ref(p), Ref(p))))
}

func TestNewConditional(t *testing.T) {
	_, _, p, f := fixture()
	c := NewEquals(Ref(p), Null)
	one, two := IntConstant{Value: 1}, IntConstant{Value: 2}

	assert.True(t, Same(one, NewConditional(c, one, one)), "identical branches collapse")
	assert.True(t, Same(one, NewConditional(True, one, two)))
	assert.True(t, Same(NewConditional(c, two, one), NewConditional(Not(c), one, two)), "negated condition swaps")
	assert.True(t, Same(c, NewConditional(c, True, False)))
	assert.Equal(t, "(nil == p) ? 1 : f", NewConditional(c, one, Ref(FieldOfThis(f))).String())
}

func TestClauses(t *testing.T) {
	_, _, p, _ := fixture()

	t.Run("null clause", func(t *testing.T) {
		v, isNull, ok := NullClause(Not(NewEquals(Ref(p), Null)))
		require.True(t, ok)
		assert.False(t, isNull)
		assert.Equal(t, p.FullyQualifiedName(), v.FullyQualifiedName())
	})

	t.Run("size clause", func(t *testing.T) {
		testCases := []struct {
			name     string
			expr     Expression
			notEmpty bool
		}{
			{"len == 0", NewEquals(Length{Of: Ref(p)}, IntConstant{Value: 0}), false},
			{"len != 0", Not(NewEquals(Length{Of: Ref(p)}, IntConstant{Value: 0})), true},
			{"len > 0", NewCompare(token.GTR, Length{Of: Ref(p)}, IntConstant{Value: 0}), true},
			{"len < 1", NewCompare(token.LSS, Length{Of: Ref(p)}, IntConstant{Value: 1}), false},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, notEmpty, ok := SizeClause(tc.expr)
				require.True(t, ok)
				assert.Equal(t, tc.notEmpty, notEmpty)
			})
		}
	})
}

func TestTranslate(t *testing.T) {
	_, m, p, _ := fixture()
	x := LocalVariable{Name: "x", ID: "1", Method: m}
	e := NewAnd(NewEquals(Ref(x), Null), NewEquals(Ref(p), IntConstant{Value: 3}))

	got := Translate(e, func(v Variable) Expression {
		if v.FullyQualifiedName() == x.FullyQualifiedName() {
			return Null
		}
		return nil
	})
	assert.Equal(t, "3 == p", got.String(), "nil == nil folds to true and disappears")
}
