package model

import (
	"go/token"
	"strconv"
	"strings"
)

// Expression is a side-effect-free description of a value.
//
// Expressions are compared structurally through their canonical String form;
// the constructors in this package keep that form canonical.
type Expression interface {
	String() string
	// Variables returns the variables read by the expression, in order of appearance.
	Variables() []Variable
	// Complexity is a size measure used to cap condition growth.
	Complexity() int
	expr()
}

// BoolConstant is true or false.
type BoolConstant struct{ Value bool }

// IntConstant is an integer literal.
type IntConstant struct{ Value int64 }

// StringConstant is a string literal.
type StringConstant struct{ Value string }

// NullConstant is nil.
type NullConstant struct{}

// VariableExpression reads a variable.
type VariableExpression struct{ Variable Variable }

// Negation is logical not.
type Negation struct{ Expr Expression }

// And is a conjunction with at least two sorted, distinct parts.
type And struct{ Parts []Expression }

// Or is a disjunction with at least two sorted, distinct parts.
type Or struct{ Parts []Expression }

// Equals is ==, with a constant operand always on the left.
type Equals struct{ Lhs, Rhs Expression }

// Compare is one of <, <=, >, >=.
type Compare struct {
	Op       token.Token
	Lhs, Rhs Expression
}

// Length is len(Of).
type Length struct{ Of Expression }

// Index reads an element of type Elem: Collection[Key].
type Index struct {
	Collection, Key Expression
	Elem            TypeRef
}

// MethodCall calls Name on Object; Object is nil for plain function calls.
// Method is set when the callee belongs to the unit.
type MethodCall struct {
	Object Expression
	Method *MethodInfo
	Name   string
	Args   []Expression
	Pos    token.Pos
}

// ConstructorCall builds a new value: a composite literal, new(T), make or a constructor function.
type ConstructorCall struct {
	Typ         TypeRef
	Constructor *MethodInfo
	Args        []Expression
	Pos         token.Pos
}

// InlineConditional is cond ? IfTrue : IfFalse.
type InlineConditional struct {
	Condition, IfTrue, IfFalse Expression
}

// Instance is an unknown value of a type; ID makes distinct instances distinct.
type Instance struct {
	Typ TypeRef
	ID  string
}

// Lambda is a function literal, analysed as its own method.
type Lambda struct{ Method *MethodInfo }

// Opaque is an expression the engine does not interpret.
// It still exposes the variables of its parts.
type Opaque struct {
	Text  string
	Parts []Expression
}

func (BoolConstant) expr()       {}
func (IntConstant) expr()        {}
func (StringConstant) expr()     {}
func (NullConstant) expr()       {}
func (VariableExpression) expr() {}
func (Negation) expr()           {}
func (And) expr()                {}
func (Or) expr()                 {}
func (Equals) expr()             {}
func (Compare) expr()            {}
func (Length) expr()             {}
func (Index) expr()              {}
func (MethodCall) expr()         {}
func (ConstructorCall) expr()    {}
func (InlineConditional) expr()  {}
func (Instance) expr()           {}
func (Lambda) expr()             {}
func (Opaque) expr()             {}

func (e BoolConstant) String() string       { return strconv.FormatBool(e.Value) }
func (e IntConstant) String() string        { return strconv.FormatInt(e.Value, 10) }
func (e StringConstant) String() string     { return strconv.Quote(e.Value) }
func (NullConstant) String() string         { return "nil" }
func (e VariableExpression) String() string { return e.Variable.SimpleName() }
func (e Negation) String() string           { return "!" + paren(e.Expr) }
func (e And) String() string                { return join(e.Parts, " && ") }
func (e Or) String() string                 { return join(e.Parts, " || ") }
func (e Equals) String() string             { return e.Lhs.String() + " == " + e.Rhs.String() }
func (e Compare) String() string            { return e.Lhs.String() + " " + e.Op.String() + " " + e.Rhs.String() }
func (e Length) String() string             { return "len(" + e.Of.String() + ")" }
func (e Index) String() string              { return e.Collection.String() + "[" + e.Key.String() + "]" }
func (e Instance) String() string           { return "instance#" + e.ID + ":" + e.Typ.String() }
func (e Lambda) String() string             { return "func#" + e.Method.Name }
func (e Opaque) String() string             { return "<" + e.Text + ">" }

func (e MethodCall) String() string {
	var b strings.Builder
	if e.Object != nil {
		b.WriteString(e.Object.String())
		b.WriteByte('.')
	}
	b.WriteString(e.Name)
	b.WriteString("(" + join(e.Args, ", ") + ")")
	return b.String()
}

func (e ConstructorCall) String() string {
	return "new " + e.Typ.String() + "(" + join(e.Args, ", ") + ")"
}

func (e InlineConditional) String() string {
	return paren(e.Condition) + " ? " + paren(e.IfTrue) + " : " + paren(e.IfFalse)
}

func paren(e Expression) string {
	switch e.(type) {
	case And, Or, InlineConditional, Equals, Compare:
		return "(" + e.String() + ")"
	}
	return e.String()
}

func join(es []Expression, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = paren(e)
	}
	return strings.Join(parts, sep)
}

func (BoolConstant) Variables() []Variable       { return nil }
func (IntConstant) Variables() []Variable        { return nil }
func (StringConstant) Variables() []Variable     { return nil }
func (NullConstant) Variables() []Variable       { return nil }
func (Instance) Variables() []Variable           { return nil }
func (Lambda) Variables() []Variable             { return nil }
func (e VariableExpression) Variables() []Variable { return []Variable{e.Variable} }
func (e Negation) Variables() []Variable         { return e.Expr.Variables() }
func (e And) Variables() []Variable              { return variablesOf(e.Parts...) }
func (e Or) Variables() []Variable               { return variablesOf(e.Parts...) }
func (e Equals) Variables() []Variable           { return variablesOf(e.Lhs, e.Rhs) }
func (e Compare) Variables() []Variable          { return variablesOf(e.Lhs, e.Rhs) }
func (e Length) Variables() []Variable           { return e.Of.Variables() }
func (e Index) Variables() []Variable            { return variablesOf(e.Collection, e.Key) }
func (e ConstructorCall) Variables() []Variable  { return variablesOf(e.Args...) }
func (e Opaque) Variables() []Variable           { return variablesOf(e.Parts...) }

func (e MethodCall) Variables() []Variable {
	if e.Object == nil {
		return variablesOf(e.Args...)
	}
	return variablesOf(append([]Expression{e.Object}, e.Args...)...)
}

func (e InlineConditional) Variables() []Variable {
	return variablesOf(e.Condition, e.IfTrue, e.IfFalse)
}

func variablesOf(es ...Expression) []Variable {
	var vs []Variable
	seen := make(map[string]bool)
	for _, e := range es {
		for _, v := range e.Variables() {
			if name := v.FullyQualifiedName(); !seen[name] {
				seen[name] = true
				vs = append(vs, v)
			}
		}
	}
	return vs
}

func (BoolConstant) Complexity() int         { return 1 }
func (IntConstant) Complexity() int          { return 1 }
func (StringConstant) Complexity() int       { return 1 }
func (NullConstant) Complexity() int         { return 1 }
func (VariableExpression) Complexity() int   { return 1 }
func (Instance) Complexity() int             { return 1 }
func (Lambda) Complexity() int               { return 1 }
func (e Negation) Complexity() int           { return 1 + e.Expr.Complexity() }
func (e And) Complexity() int                { return 1 + complexityOf(e.Parts...) }
func (e Or) Complexity() int                 { return 1 + complexityOf(e.Parts...) }
func (e Equals) Complexity() int             { return 1 + complexityOf(e.Lhs, e.Rhs) }
func (e Compare) Complexity() int            { return 1 + complexityOf(e.Lhs, e.Rhs) }
func (e Length) Complexity() int             { return 1 + e.Of.Complexity() }
func (e Index) Complexity() int              { return 1 + complexityOf(e.Collection, e.Key) }
func (e ConstructorCall) Complexity() int    { return 1 + complexityOf(e.Args...) }
func (e Opaque) Complexity() int             { return 1 + complexityOf(e.Parts...) }
func (e InlineConditional) Complexity() int  { return 1 + complexityOf(e.Condition, e.IfTrue, e.IfFalse) }

func (e MethodCall) Complexity() int {
	c := 1 + complexityOf(e.Args...)
	if e.Object != nil {
		c += e.Object.Complexity()
	}
	return c
}

func complexityOf(es ...Expression) int {
	c := 0
	for _, e := range es {
		c += e.Complexity()
	}
	return c
}
