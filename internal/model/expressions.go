package model

import (
	"go/token"
	"slices"
	"strings"
)

// Common constants.
var (
	True  Expression = BoolConstant{Value: true}
	False Expression = BoolConstant{Value: false}
	Null  Expression = NullConstant{}
)

// Same reports whether two expressions are structurally identical.
func Same(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// IsTrue reports whether e is the constant true.
func IsTrue(e Expression) bool {
	c, ok := e.(BoolConstant)
	return ok && c.Value
}

// IsFalse reports whether e is the constant false.
func IsFalse(e Expression) bool {
	c, ok := e.(BoolConstant)
	return ok && !c.Value
}

// IsConstant reports whether e is a literal or nil.
func IsConstant(e Expression) bool {
	switch e.(type) {
	case BoolConstant, IntConstant, StringConstant, NullConstant:
		return true
	}
	return false
}

// Ref returns an expression reading v.
func Ref(v Variable) Expression { return VariableExpression{Variable: v} }

// Not negates e, pushing the negation inwards where that keeps the form canonical.
//
//	!true        -> false
//	!!a          -> a
//	!(a && b)    -> !a || !b
//	!(a || b)    -> !a && !b
//	!(x < y)     -> x >= y
func Not(e Expression) Expression {
	switch x := e.(type) {
	case BoolConstant:
		return BoolConstant{Value: !x.Value}
	case Negation:
		return x.Expr
	case And:
		parts := make([]Expression, len(x.Parts))
		for i, p := range x.Parts {
			parts[i] = Not(p)
		}
		return NewOr(parts...)
	case Or:
		parts := make([]Expression, len(x.Parts))
		for i, p := range x.Parts {
			parts[i] = Not(p)
		}
		return NewAnd(parts...)
	case Compare:
		return Compare{Op: negateOp(x.Op), Lhs: x.Lhs, Rhs: x.Rhs}
	}
	return Negation{Expr: e}
}

func negateOp(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GEQ
	case token.LEQ:
		return token.GTR
	case token.GTR:
		return token.LEQ
	default:
		return token.LSS
	}
}

// NewAnd builds a canonical conjunction.
// Nested conjunctions are flattened, true parts dropped, duplicates removed and
// parts sorted; false or a complementary pair collapses the result to false.
func NewAnd(parts ...Expression) Expression {
	return junction(parts, true)
}

// NewOr builds a canonical disjunction, dual to [NewAnd].
func NewOr(parts ...Expression) Expression {
	return junction(parts, false)
}

func junction(parts []Expression, isAnd bool) Expression {
	neutral, absorbing := True, False
	if !isAnd {
		neutral, absorbing = False, True
	}
	var flat []Expression
	var add func(e Expression)
	add = func(e Expression) {
		switch x := e.(type) {
		case And:
			if isAnd {
				for _, p := range x.Parts {
					add(p)
				}
				return
			}
		case Or:
			if !isAnd {
				for _, p := range x.Parts {
					add(p)
				}
				return
			}
		}
		flat = append(flat, e)
	}
	for _, p := range parts {
		add(p)
	}

	seen := make(map[string]bool, len(flat))
	kept := flat[:0]
	for _, p := range flat {
		if Same(p, neutral) {
			continue
		}
		if Same(p, absorbing) {
			return absorbing
		}
		key := p.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, p)
	}
	for _, p := range kept {
		if seen[Not(p).String()] {
			return absorbing
		}
	}

	switch len(kept) {
	case 0:
		return neutral
	case 1:
		return kept[0]
	}
	slices.SortFunc(kept, func(a, b Expression) int { return strings.Compare(a.String(), b.String()) })
	if isAnd {
		return And{Parts: slices.Clip(kept)}
	}
	return Or{Parts: slices.Clip(kept)}
}

// NewEquals builds a canonical equality: constants fold, a constant operand goes left,
// otherwise operands are ordered by their string form.
func NewEquals(lhs, rhs Expression) Expression {
	if IsConstant(lhs) && IsConstant(rhs) {
		return BoolConstant{Value: lhs.String() == rhs.String()}
	}
	if Same(lhs, rhs) {
		return True
	}
	switch {
	case IsConstant(rhs) && !IsConstant(lhs):
		lhs, rhs = rhs, lhs
	case !IsConstant(lhs) && lhs.String() > rhs.String():
		lhs, rhs = rhs, lhs
	}
	return Equals{Lhs: lhs, Rhs: rhs}
}

// NewCompare builds an ordering comparison, folding integer constants.
func NewCompare(op token.Token, lhs, rhs Expression) Expression {
	l, lok := lhs.(IntConstant)
	r, rok := rhs.(IntConstant)
	if lok && rok {
		switch op {
		case token.LSS:
			return BoolConstant{Value: l.Value < r.Value}
		case token.LEQ:
			return BoolConstant{Value: l.Value <= r.Value}
		case token.GTR:
			return BoolConstant{Value: l.Value > r.Value}
		case token.GEQ:
			return BoolConstant{Value: l.Value >= r.Value}
		}
	}
	return Compare{Op: op, Lhs: lhs, Rhs: rhs}
}

// NewConditional builds cond ? a : b, collapsing constant conditions and identical branches.
func NewConditional(cond, a, b Expression) Expression {
	switch {
	case IsTrue(cond):
		return a
	case IsFalse(cond):
		return b
	case Same(a, b):
		return a
	}
	if n, ok := cond.(Negation); ok {
		return InlineConditional{Condition: n.Expr, IfTrue: b, IfFalse: a}
	}
	if a.Complexity() == 1 && b.Complexity() == 1 {
		switch {
		case IsTrue(a) && IsFalse(b):
			return cond
		case IsFalse(a) && IsTrue(b):
			return Not(cond)
		}
	}
	return InlineConditional{Condition: cond, IfTrue: a, IfFalse: b}
}

// Conjuncts returns the top-level parts of a conjunction, or e itself.
func Conjuncts(e Expression) []Expression {
	if IsTrue(e) {
		return nil
	}
	if a, ok := e.(And); ok {
		return slices.Clone(a.Parts)
	}
	return []Expression{e}
}

// NullClause recognises v == nil and !(v == nil).
func NullClause(e Expression) (v Variable, equalsNull bool, ok bool) {
	if n, isNeg := e.(Negation); isNeg {
		v, eq, ok := NullClause(n.Expr)
		return v, !eq, ok
	}
	eq, isEq := e.(Equals)
	if !isEq {
		return nil, false, false
	}
	if _, isNull := eq.Lhs.(NullConstant); !isNull {
		return nil, false, false
	}
	ve, isVar := eq.Rhs.(VariableExpression)
	if !isVar {
		return nil, false, false
	}
	return ve.Variable, true, true
}

// SizeClause recognises emptiness tests on len(v):
//
//	0 == len(v)              empty
//	!(0 == len(v))           not empty
//	len(v) > 0, len(v) >= 1  not empty
//	len(v) <= 0, len(v) < 1  empty
func SizeClause(e Expression) (v Variable, notEmpty bool, ok bool) {
	switch x := e.(type) {
	case Negation:
		v, ne, ok := SizeClause(x.Expr)
		return v, !ne, ok
	case Equals:
		if c, isInt := x.Lhs.(IntConstant); isInt && c.Value == 0 {
			if v := lengthOfVariable(x.Rhs); v != nil {
				return v, false, true
			}
		}
	case Compare:
		v := lengthOfVariable(x.Lhs)
		c, isInt := x.Rhs.(IntConstant)
		if v == nil || !isInt {
			return nil, false, false
		}
		switch {
		case x.Op == token.GTR && c.Value == 0, x.Op == token.GEQ && c.Value == 1:
			return v, true, true
		case x.Op == token.LEQ && c.Value == 0, x.Op == token.LSS && c.Value == 1:
			return v, false, true
		}
	}
	return nil, false, false
}

func lengthOfVariable(e Expression) Variable {
	l, ok := e.(Length)
	if !ok {
		return nil
	}
	ve, ok := l.Of.(VariableExpression)
	if !ok {
		return nil
	}
	return ve.Variable
}

// Translate rebuilds e with every variable read replaced by f(v).
// f returns nil to keep the variable.
func Translate(e Expression, f func(Variable) Expression) Expression {
	tr := func(x Expression) Expression { return Translate(x, f) }
	trAll := func(xs []Expression) []Expression {
		out := make([]Expression, len(xs))
		for i, x := range xs {
			out[i] = tr(x)
		}
		return out
	}
	switch x := e.(type) {
	case VariableExpression:
		if r := f(x.Variable); r != nil {
			return r
		}
		return x
	case Negation:
		return Not(tr(x.Expr))
	case And:
		return NewAnd(trAll(x.Parts)...)
	case Or:
		return NewOr(trAll(x.Parts)...)
	case Equals:
		return NewEquals(tr(x.Lhs), tr(x.Rhs))
	case Compare:
		return NewCompare(x.Op, tr(x.Lhs), tr(x.Rhs))
	case Length:
		return Length{Of: tr(x.Of)}
	case Index:
		return Index{Collection: tr(x.Collection), Key: tr(x.Key), Elem: x.Elem}
	case MethodCall:
		var obj Expression
		if x.Object != nil {
			obj = tr(x.Object)
		}
		return MethodCall{Object: obj, Method: x.Method, Name: x.Name, Args: trAll(x.Args), Pos: x.Pos}
	case ConstructorCall:
		return ConstructorCall{Typ: x.Typ, Constructor: x.Constructor, Args: trAll(x.Args), Pos: x.Pos}
	case InlineConditional:
		return NewConditional(tr(x.Condition), tr(x.IfTrue), tr(x.IfFalse))
	case Opaque:
		return Opaque{Text: x.Text, Parts: trAll(x.Parts)}
	}
	return e
}

// MentionsFieldOrParameter reports whether e reads a field of the receiver or a parameter.
func MentionsFieldOrParameter(e Expression) bool {
	for _, v := range e.Variables() {
		if _, ok := IsFieldOfThis(v); ok {
			return true
		}
		if _, ok := IsParameter(v); ok {
			return true
		}
	}
	return false
}

// FieldsOf returns the receiver fields e reads, sorted by name.
func FieldsOf(e Expression) []*FieldInfo {
	var fs []*FieldInfo
	for _, v := range e.Variables() {
		if f, ok := IsFieldOfThis(v); ok && !slices.Contains(fs, f) {
			fs = append(fs, f)
		}
	}
	slices.SortFunc(fs, func(a, b *FieldInfo) int { return strings.Compare(a.Name, b.Name) })
	return fs
}
