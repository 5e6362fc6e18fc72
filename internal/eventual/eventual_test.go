package eventual_test

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/condition"
	. "github.com/mpyw/e2immu/internal/eventual"
	"github.com/mpyw/e2immu/internal/model"
)

func TestSafeSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a, ,b", []string{"a", "b"}},
		{" frozen , count,", []string{"frozen", "count"}},
		{",,,", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeSplit(tt.in))
		})
	}
}

func TestCheckLabels(t *testing.T) {
	assert.NoError(t, CheckLabels([]string{"a", "b"}))
	assert.ErrorIs(t, CheckLabels([]string{"a", "b", "a"}), ErrDuplicateMark)
}

type fixture struct {
	frozen, count model.Variable
	freeze, add   *model.MethodInfo
}

func newFixture() fixture {
	typ := &model.TypeInfo{Name: "Builder", PkgPath: "p"}
	frozen := &model.FieldInfo{Name: "frozen", Owner: typ, Type: model.Basic("bool")}
	count := &model.FieldInfo{Name: "count", Owner: typ, Type: model.Basic("int")}
	typ.Fields = []*model.FieldInfo{frozen, count}
	return fixture{
		frozen: model.FieldOfThis(frozen),
		count:  model.FieldOfThis(count),
		freeze: &model.MethodInfo{Name: "Freeze", Owner: typ},
		add:    &model.MethodInfo{Name: "Add", Owner: typ},
	}
}

func pre(e model.Expression) condition.Precondition { return condition.Precondition{Expression: e} }

func TestApprove(t *testing.T) {
	fx := newFixture()
	notFrozen := model.Not(model.Ref(fx.frozen))

	t.Run("consistent requirements", func(t *testing.T) {
		a := analysis.NewApprovedPreconditions()
		unguarded, err := Approve(a, []Requirement{
			{Method: fx.freeze, Precondition: pre(notFrozen)},
			{Method: fx.add, Precondition: pre(notFrozen)},
		})
		require.NoError(t, err)
		assert.Empty(t, unguarded)
		assert.Equal(t, []string{"frozen"}, a.Fields())
		assert.Equal(t, Eventual, Classify(2, unguarded, a))
	})

	t.Run("contradicting requirements", func(t *testing.T) {
		a := analysis.NewApprovedPreconditions()
		_, err := Approve(a, []Requirement{
			{Method: fx.freeze, Precondition: pre(notFrozen)},
			{Method: fx.add, Precondition: pre(model.Ref(fx.frozen))},
		})
		assert.ErrorIs(t, err, analysis.ErrInconsistentPrecondition)
		assert.Contains(t, err.Error(), "Builder.Add")
	})

	t.Run("unguarded method breaks the level", func(t *testing.T) {
		a := analysis.NewApprovedPreconditions()
		unguarded, err := Approve(a, []Requirement{
			{Method: fx.freeze, Precondition: pre(notFrozen)},
			{Method: fx.add, Precondition: condition.EmptyPrecondition()},
		})
		require.NoError(t, err)
		assert.Equal(t, []*model.MethodInfo{fx.add}, unguarded)
		assert.Equal(t, Broken, Classify(1, unguarded, a))
		assert.Equal(t, Effective, Classify(0, nil, a))
	})
}

func TestDetect(t *testing.T) {
	fx := newFixture()
	notFrozen := model.Not(model.Ref(fx.frozen))
	approved := analysis.NewApprovedPreconditions()
	require.NoError(t, approved.Put("frozen", notFrozen))
	opaque := model.Opaque{Text: "x"}

	tests := []struct {
		name     string
		pre      condition.Precondition
		assigned []Assignment
		want     string
	}{
		{"assignment falsifies the clause", pre(notFrozen), []Assignment{{Field: "frozen", Value: model.True}}, "mark(frozen)"},
		{"assignment keeps the clause", pre(notFrozen), []Assignment{{Field: "frozen", Value: model.False}}, "only before(frozen)"},
		{"unknown value", pre(notFrozen), []Assignment{{Field: "frozen", Value: opaque}}, "only before(frozen)"},
		{"other field assigned", pre(notFrozen), []Assignment{{Field: "count", Value: model.IntConstant{Value: 1}}}, "only before(frozen)"},
		{"content change only", pre(notFrozen), nil, "only before(frozen)"},
		{"only after", pre(model.Ref(fx.frozen)), nil, "only after(frozen)"},
		{"no precondition", condition.EmptyPrecondition(), []Assignment{{Field: "frozen", Value: model.True}}, "not eventual"},
		{"unrelated field", pre(model.NewCompare(token.GTR, model.Ref(fx.count), model.IntConstant{Value: 3})), nil, "not eventual"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.pre, approved, tt.assigned).String())
		})
	}
}

func TestDetectTestMark(t *testing.T) {
	fx := newFixture()
	notFrozen := model.Not(model.Ref(fx.frozen))
	approved := analysis.NewApprovedPreconditions()
	require.NoError(t, approved.Put("frozen", notFrozen))

	tests := []struct {
		name     string
		returned model.Expression
		want     string
	}{
		{"field itself", model.Ref(fx.frozen), "test mark(frozen)"},
		{"negation", notFrozen, "test mark before(frozen)"},
		{"unrelated field", model.NewCompare(token.GTR, model.Ref(fx.count), model.IntConstant{Value: 0}), "not eventual"},
		{"constant", model.True, "not eventual"},
		{"no value", nil, "not eventual"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectTestMark(tt.returned, approved).String())
		})
	}
	assert.Equal(t, analysis.NoEventual, DetectTestMark(model.Ref(fx.frozen), analysis.NewApprovedPreconditions()))
}

func TestFieldPrecondition(t *testing.T) {
	fx := newFixture()
	p := &model.ParameterInfo{Name: "x", Owner: fx.add, Typ: model.Basic("int")}
	mixed := model.NewAnd(model.Not(model.Ref(fx.frozen)), model.NewCompare(token.GTR, model.Ref(p), model.IntConstant{Value: 0}))
	got := FieldPrecondition(pre(mixed))
	assert.Equal(t, "!frozen", got.String())
	assert.True(t, FieldPrecondition(condition.EmptyPrecondition()).IsEmpty())
}

func TestFromContract(t *testing.T) {
	assert.Equal(t, "mark(a,b)", FromContract(model.Contract{Mark: []string{"b", "a"}}).String())
	assert.Equal(t, "only after(a)", FromContract(model.Contract{OnlyAfter: []string{"a"}}).String())
	assert.Equal(t, analysis.NoEventual, FromContract(model.Contract{}))
}
