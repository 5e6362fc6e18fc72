package statement_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/e2immu/internal/fault"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/linking"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
	. "github.com/mpyw/e2immu/internal/statement"
)

// oracle answers from fixed tables; everything else is delayed.
type oracle struct {
	methods map[string]lattice.DV
	params  map[string]lattice.DV
	cycle   bool
}

func (o oracle) MethodProperty(m *model.MethodInfo, p lattice.Property) lattice.DV {
	if dv, ok := o.methods[m.Name+"/"+p.String()]; ok {
		return dv
	}
	return lattice.Delayed(lattice.InitialDelay(m.FullyQualifiedName(), p))
}

func (o oracle) ParameterProperty(p *model.ParameterInfo, prop lattice.Property) lattice.DV {
	if dv, ok := o.params[p.Name+"/"+prop.String()]; ok {
		return dv
	}
	return lattice.Delayed(lattice.InitialDelay(p.FullyQualifiedName(), prop))
}

func (o oracle) SameCycle(_, _ *model.MethodInfo) bool { return o.cycle }

func (o oracle) ContentImmutable(_ *model.MethodInfo, t model.TypeRef) lattice.DV {
	if t.Kind == model.KindBasic {
		return lattice.Of(lattice.RecursivelyImmutable)
	}
	return lattice.Of(lattice.Mutable)
}

type fixture struct {
	typ          *model.TypeInfo
	frozen, list model.Variable
	m            *model.MethodInfo
	p, c         *model.ParameterInfo
}

func newFixture() fixture {
	typ := &model.TypeInfo{Name: "T", PkgPath: "p"}
	frozen := &model.FieldInfo{Name: "frozen", Owner: typ, Type: model.Basic("bool")}
	list := &model.FieldInfo{Name: "list", Owner: typ, Type: model.SliceOf(model.Basic("int"))}
	typ.Fields = []*model.FieldInfo{frozen, list}
	m := &model.MethodInfo{Name: "m", Owner: typ, Result: model.TypeRef{}}
	p := &model.ParameterInfo{Name: "p", Owner: m, Typ: model.SliceOf(model.Basic("int"))}
	c := &model.ParameterInfo{Name: "c", Index: 1, Owner: m, Typ: model.Basic("bool")}
	m.Params = []*model.ParameterInfo{p, c}
	typ.Methods = []*model.MethodInfo{m}
	return fixture{typ: typ, frozen: model.FieldOfThis(frozen), list: model.FieldOfThis(list), m: m, p: p, c: c}
}

func (fx fixture) body(stmts ...model.Statement) *Tree {
	fx.m.Body = &model.Block{Statements: stmts}
	return NewTree(fx.m)
}

func isNil(v model.Variable) model.Expression { return model.NewEquals(model.Ref(v), model.Null) }

func panics() *model.Block {
	return &model.Block{Statements: []model.Statement{&model.Throw{Value: model.StringConstant{Value: "boom"}}}}
}

func returns(e model.Expression) *model.Block {
	return &model.Block{Statements: []model.Statement{&model.Return{Value: e}}}
}

func walk(t *testing.T, tree *Tree, opts Options) *Summary {
	t.Helper()
	s, err := tree.Walk(oracle{}, opts)
	require.NoError(t, err)
	return s
}

func TestEscape(t *testing.T) {
	t.Run("nil check on a parameter is not a precondition", func(t *testing.T) {
		fx := newFixture()
		tree := fx.body(
			&model.If{Condition: isNil(fx.p), Then: panics()},
			&model.Assignment{Target: fx.list, Value: model.Ref(fx.p)},
		)
		s := walk(t, tree, Options{})
		assert.True(t, s.Precondition.IsEmpty())
		assert.Equal(t, lattice.EffectivelyNotNull, s.Variable(fx.p).ContextNotNull.Value())

		never, ok := tree.Node("0").NeverContinues()
		assert.True(t, ok)
		assert.False(t, never, "only one branch escapes")
		escapes, _ := tree.Node("0.0.0").Escapes()
		assert.True(t, escapes)
	})

	t.Run("field guard becomes the precondition", func(t *testing.T) {
		fx := newFixture()
		tree := fx.body(
			&model.If{Condition: model.Ref(fx.frozen), Then: panics()},
			&model.Assignment{Target: fx.frozen, Value: model.True},
		)
		s := walk(t, tree, Options{})
		assert.Equal(t, "!frozen", s.Precondition.String())
		assert.Equal(t, []string{"0.0.0"}, s.Precondition.Causes)
		assert.Equal(t, "!frozen", tree.Node("1").MethodLevelData().Precondition.String())
	})

	t.Run("size guard on a parameter", func(t *testing.T) {
		fx := newFixture()
		empty := model.NewEquals(model.IntConstant{Value: 0}, model.Length{Of: model.Ref(fx.p)})
		s := walk(t, fx.body(&model.If{Condition: empty, Then: panics()}), Options{})
		assert.Equal(t, lattice.NotEmpty, s.Variable(fx.p).Size.Value())
		assert.True(t, s.Precondition.IsEmpty())
	})

	t.Run("disjunction splits into conjuncts", func(t *testing.T) {
		fx := newFixture()
		cond := model.NewOr(isNil(fx.p), model.Ref(fx.frozen))
		s := walk(t, fx.body(&model.If{Condition: cond, Then: panics()}), Options{})
		assert.Equal(t, lattice.EffectivelyNotNull, s.Variable(fx.p).ContextNotNull.Value())
		assert.Equal(t, "!frozen", s.Precondition.String())
	})

	t.Run("conditional return creates no precondition", func(t *testing.T) {
		fx := newFixture()
		s := walk(t, fx.body(
			&model.If{Condition: model.Ref(fx.frozen), Then: &model.Block{Statements: []model.Statement{&model.Return{}}}},
			&model.Assignment{Target: fx.frozen, Value: model.True},
		), Options{})
		assert.True(t, s.Precondition.IsEmpty())
		assert.Equal(t, lattice.Nullable, s.Variable(fx.p).ContextNotNull.Value())
	})

	t.Run("nested nil check is only a precondition", func(t *testing.T) {
		fx := newFixture()
		inner := &model.Block{Statements: []model.Statement{&model.If{Condition: isNil(fx.p), Then: panics()}}}
		s := walk(t, fx.body(&model.If{Condition: model.Ref(fx.frozen), Then: inner}), Options{})
		assert.Equal(t, lattice.Nullable, s.Variable(fx.p).ContextNotNull.Value(), "p may be nil once frozen is false")
		assert.False(t, s.Precondition.IsEmpty())
		assert.Equal(t, []string{"0.0.0.0.0"}, s.Precondition.Causes)
	})

	t.Run("guarded dereference leaves the parameter nullable", func(t *testing.T) {
		fx := newFixture()
		early := &model.Block{Statements: []model.Statement{&model.Return{}}}
		write := &model.ContentAssignment{Target: fx.p, Value: model.IntConstant{Value: 1}}
		s := walk(t, fx.body(&model.If{Condition: isNil(fx.p), Then: early}, write), Options{})
		assert.Equal(t, lattice.Nullable, s.Variable(fx.p).ContextNotNull.Value())

		fx = newFixture()
		s = walk(t, fx.body(&model.ContentAssignment{Target: fx.p, Value: model.IntConstant{Value: 1}}), Options{})
		assert.Equal(t, lattice.EffectivelyNotNull, s.Variable(fx.p).ContextNotNull.Value())
	})

	t.Run("walking again changes nothing", func(t *testing.T) {
		fx := newFixture()
		tree := fx.body(
			&model.If{Condition: model.NewOr(isNil(fx.p), model.Ref(fx.frozen)), Then: panics()},
			&model.Assignment{Target: fx.frozen, Value: model.True},
		)
		first := walk(t, tree, Options{})
		second := walk(t, tree, Options{})
		assert.Equal(t, first.Precondition.String(), second.Precondition.String())
		assert.Equal(t, first.Variable(fx.p).ContextNotNull, second.Variable(fx.p).ContextNotNull)
	})
}

func TestMerge(t *testing.T) {
	t.Run("if else gives an inline conditional", func(t *testing.T) {
		fx := newFixture()
		fx.m.Result = model.SliceOf(model.Basic("int"))
		other := model.ConstructorCall{Typ: fx.m.Result}
		tree := fx.body(
			&model.If{
				Condition: model.Ref(fx.c),
				Then:      &model.Block{Statements: []model.Statement{&model.Assignment{Target: fx.list, Value: model.Ref(fx.p)}}},
				Else:      &model.Block{Statements: []model.Statement{&model.Assignment{Target: fx.list, Value: other}}},
			},
			&model.Return{Value: model.Ref(fx.list)},
		)
		s := walk(t, tree, Options{})
		want := model.NewConditional(model.Ref(fx.c), model.Ref(fx.p), other)
		assert.Equal(t, want.String(), s.ReturnValue.String())

		again := walk(t, tree, Options{})
		assert.Equal(t, s.ReturnValue.String(), again.ReturnValue.String(), "merging is deterministic")

		vi, ok := tree.Node("0").Variable(fx.list.FullyQualifiedName()).Get(Merge)
		require.True(t, ok)
		assert.Equal(t, want.String(), vi.Value.String())
	})

	t.Run("identical values are kept", func(t *testing.T) {
		fx := newFixture()
		fx.m.Result = model.SliceOf(model.Basic("int"))
		assignP := &model.Block{Statements: []model.Statement{&model.Assignment{Target: fx.list, Value: model.Ref(fx.p)}}}
		s := walk(t, fx.body(
			&model.If{Condition: model.Ref(fx.c), Then: assignP, Else: assignP},
			&model.Return{Value: model.Ref(fx.list)},
		), Options{})
		assert.Equal(t, "p", s.ReturnValue.String())
	})

	t.Run("early returns fold into the return value", func(t *testing.T) {
		fx := newFixture()
		fx.m.Result = model.Basic("int")
		s := walk(t, fx.body(
			&model.If{Condition: model.Ref(fx.c), Then: returns(model.IntConstant{Value: 1})},
			&model.Return{Value: model.IntConstant{Value: 2}},
		), Options{})
		assert.Equal(t, "c ? 1 : 2", s.ReturnValue.String())
	})

	t.Run("loops produce an instance", func(t *testing.T) {
		fx := newFixture()
		fx.m.Result = model.SliceOf(model.Basic("int"))
		tree := fx.body(
			&model.Loop{
				Condition: model.Ref(fx.c),
				Body:      &model.Block{Statements: []model.Statement{&model.Assignment{Target: fx.list, Value: model.Ref(fx.p)}}},
			},
			&model.Return{Value: model.Ref(fx.list)},
		)
		s := walk(t, tree, Options{})
		assert.Equal(t, "instance#0:list:[]int", s.ReturnValue.String())
		assert.Equal(t, linking.StaticallyAssigned, s.Variable(fx.list).Linked.Get(fx.p).Value())
	})
}

func TestTransformation(t *testing.T) {
	build := func(fx fixture) *Tree {
		return fx.body(
			&model.If{Condition: isNil(fx.p), Then: panics()},
			&model.If{
				Condition: isNil(fx.p),
				Then:      &model.Block{Statements: []model.Statement{&model.Assignment{Target: fx.frozen, Value: model.True}}},
			},
		)
	}

	t.Run("constant condition is replaced", func(t *testing.T) {
		fx := newFixture()
		tree := build(fx)
		s := walk(t, tree, Options{})
		assert.Equal(t, Index("1'"), tree.Resolve("1"))
		assert.Equal(t, map[Index]Index{"1": "1'"}, tree.Replacements())
		assert.False(t, s.Variable(fx.frozen) != nil && s.Variable(fx.frozen).Assigned, "dead branch dropped")

		walk(t, tree, Options{})
		assert.Len(t, tree.Replacements(), 1, "replacement happens once")
	})

	t.Run("disabled", func(t *testing.T) {
		fx := newFixture()
		tree := build(fx)
		walk(t, tree, Options{SkipTransformations: true})
		assert.Empty(t, tree.Replacements())
		assert.Equal(t, Index("1"), tree.Resolve("1"))
	})

	t.Run("each visits the walked statements", func(t *testing.T) {
		fx := newFixture()
		tree := build(fx)
		walk(t, tree, Options{})
		var seen []Index
		tree.Each(func(n *StatementAnalysis) { seen = append(seen, n.Index) })
		assert.Equal(t, []Index{"0", "0.0.0", "1'"}, seen)
	})
}

func TestMessages(t *testing.T) {
	fx := newFixture()
	s := walk(t, fx.body(
		&model.Assignment{Target: fx.p, Value: model.Null},
		&model.Return{},
		&model.Assignment{Target: fx.frozen, Value: model.True},
	), Options{ReportUnreachable: true})
	require.Len(t, s.Messages, 2)
	assert.Equal(t, message.AssignmentToParameter, s.Messages[0].Kind)
	assert.Equal(t, "p", s.Messages[0].Text)
	assert.Equal(t, message.Unreachable, s.Messages[1].Kind)
	assert.Nil(t, s.Variable(fx.frozen), "unreachable code contributes nothing")
}

func TestModification(t *testing.T) {
	newCallee := func(fx fixture) *model.MethodInfo {
		callee := &model.MethodInfo{Name: "add", Owner: fx.typ}
		callee.Params = []*model.ParameterInfo{{Name: "x", Owner: callee, Typ: model.SliceOf(model.Basic("int"))}}
		return callee
	}

	t.Run("unknown method on a field", func(t *testing.T) {
		fx := newFixture()
		s := walk(t, fx.body(&model.ExpressionStatement{Expr: model.MethodCall{Object: model.Ref(fx.list), Name: "Reset"}}), Options{})
		assert.True(t, s.Variable(fx.list).Modified.IsTrue())
		assert.True(t, s.Variable(fx.list).Read)
	})

	t.Run("plain function calls do not modify", func(t *testing.T) {
		fx := newFixture()
		s := walk(t, fx.body(&model.ExpressionStatement{Expr: model.MethodCall{Name: "len", Args: []model.Expression{model.Ref(fx.p)}}}), Options{})
		assert.True(t, s.Variable(fx.p).Modified.IsFalse())
	})

	t.Run("unit callee is delayed until analysed", func(t *testing.T) {
		fx := newFixture()
		callee := newCallee(fx)
		tree := fx.body(&model.ExpressionStatement{Expr: model.MethodCall{
			Object: model.Ref(model.This{TypeInfo: fx.typ}), Method: callee, Name: "add", Args: []model.Expression{model.Ref(fx.p)},
		}})
		s, err := tree.Walk(oracle{}, Options{})
		require.NoError(t, err)
		this := s.Variable(model.This{TypeInfo: fx.typ})
		assert.True(t, this.Modified.IsDelayed())
		assert.True(t, s.Variable(fx.p).Modified.IsDelayed())
		assert.False(t, s.Causes().Empty())

		s, err = tree.Walk(oracle{
			methods: map[string]lattice.DV{"add/" + lattice.ModifiedMethod.String(): lattice.FALSE},
			params: map[string]lattice.DV{
				"x/" + lattice.ModifiedVariable.String(): lattice.TRUE,
				"x/" + lattice.NotNull.String():          lattice.Of(lattice.EffectivelyNotNull),
			},
		}, Options{})
		require.NoError(t, err)
		assert.True(t, s.Variable(model.This{TypeInfo: fx.typ}).Modified.IsFalse())
		assert.True(t, s.Variable(fx.p).Modified.IsTrue())
		assert.Equal(t, lattice.EffectivelyNotNull, s.Variable(fx.p).ContextNotNull.Value())
	})

	t.Run("calls inside the cycle are left to the cycle", func(t *testing.T) {
		fx := newFixture()
		s, err := fx.body(&model.ExpressionStatement{Expr: model.MethodCall{
			Object: model.Ref(model.This{TypeInfo: fx.typ}), Method: newCallee(fx), Name: "add",
		}}).Walk(oracle{cycle: true}, Options{})
		require.NoError(t, err)
		assert.True(t, s.CallsInCycle)
		assert.True(t, s.Variable(model.This{TypeInfo: fx.typ}).Modified.IsFalse())
	})

	t.Run("content assignment links and modifies", func(t *testing.T) {
		fx := newFixture()
		s := walk(t, fx.body(&model.ContentAssignment{Target: fx.list, Value: model.Ref(fx.p)}), Options{})
		vs := s.Variable(fx.list)
		assert.True(t, vs.Modified.IsTrue())
		assert.Equal(t, linking.Dependent, vs.Linked.Get(fx.p).Value())
	})

	t.Run("value receiver writes a copy", func(t *testing.T) {
		fx := newFixture()
		fx.m.ValueReceiver = true
		s := walk(t, fx.body(&model.Assignment{Target: fx.frozen, Value: model.True}), Options{})
		assert.Nil(t, s.Variable(fx.frozen))
	})
}

func TestIndexLinks(t *testing.T) {
	returnIndexed := func(fx fixture, elem model.TypeRef) *VariableSummary {
		fx.m.Result = elem
		s := walk(t, fx.body(&model.Return{Value: model.Index{
			Collection: model.Ref(fx.p), Key: model.IntConstant{Value: 0}, Elem: elem,
		}}), Options{})
		rv := s.Variable(model.ReturnVariable{Method: fx.m})
		require.NotNil(t, rv)
		return rv
	}

	t.Run("immutable element shares nothing", func(t *testing.T) {
		rv := returnIndexed(newFixture(), model.Basic("int"))
		assert.Zero(t, rv.Linked.Len())
	})

	t.Run("mutable element depends on its collection", func(t *testing.T) {
		fx := newFixture()
		rv := returnIndexed(fx, model.SliceOf(model.Basic("int")))
		assert.Equal(t, linking.Dependent, rv.Linked.Get(fx.p).Value())
	})
}

func TestVariableInfoContainer(t *testing.T) {
	fx := newFixture()
	tree := fx.body(&model.Assignment{Target: fx.list, Value: model.Ref(fx.p)})
	walk(t, tree, Options{})
	c := tree.Node("0").Variable(fx.list.FullyQualifiedName())
	require.NotNil(t, c)
	_, ok := c.Get(Initialiser)
	assert.False(t, ok, "not bound before the assignment")
	assert.Equal(t, "p", c.Best().Value.String())

	err := c.Set(Evaluation, VariableInfo{Variable: fx.list, Value: model.Null})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrOverwrite))
}

func TestIndex(t *testing.T) {
	tests := []struct {
		index Index
		depth int
	}{
		{"0", 0},
		{"1.0.2", 1},
		{"3'", 0},
		{"1.1.0'.0.4", 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.index), func(t *testing.T) {
			assert.Equal(t, tt.depth, tt.index.Depth())
			enc, err := tt.index.Encode()
			require.NoError(t, err)
			assert.Equal(t, tt.index, DecodeIndex(enc))
		})
	}

	assert.Equal(t, Index("2.1.0"), Top(2).Sub(1, 0))
	_, err := Index("70000").Encode()
	assert.Error(t, err)
}
