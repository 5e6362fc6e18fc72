// Package model is the read-only entity model consumed by the inference engine.
//
// The frontend builds one [Unit] per Go package:
//
//	Unit
//	 └─ TypeInfo          named struct or interface type
//	     ├─ FieldInfo     struct field
//	     ├─ MethodInfo    constructor (NewT) or method with receiver T / *T
//	     │   ├─ ParameterInfo
//	     │   ├─ Block     body as statements and expressions
//	     │   └─ MethodInfo lambda (function literal in the body)
//	     └─ Contract      from //e2immu: directives
//
// Nothing in the engine mutates the model after the frontend returns it.
package model

import (
	"go/token"
	"strconv"
)

// Unit is one compilation unit: all types of a package in dependency order.
type Unit struct {
	PkgPath string
	Types   []*TypeInfo
}

// TypeInfo is a named type declared at package level.
type TypeInfo struct {
	Name      string
	PkgPath   string
	Pos       token.Pos
	Interface bool

	Fields       []*FieldInfo
	Constructors []*MethodInfo
	Methods      []*MethodInfo
	Contract     Contract
}

// FullyQualifiedName returns "pkg/path.Name".
func (t *TypeInfo) FullyQualifiedName() string { return t.PkgPath + "." + t.Name }

func (t *TypeInfo) String() string { return t.Name }

// Field returns the field with the given name, or nil.
func (t *TypeInfo) Field(name string) *FieldInfo {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Method returns the method with the given name, or nil.
func (t *TypeInfo) Method(name string) *MethodInfo {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// AllMethods returns constructors, then methods. Lambdas hang off their enclosing method.
func (t *TypeInfo) AllMethods() []*MethodInfo {
	all := make([]*MethodInfo, 0, len(t.Constructors)+len(t.Methods))
	all = append(all, t.Constructors...)
	all = append(all, t.Methods...)
	return all
}

// FieldInfo is a struct field.
type FieldInfo struct {
	Name     string
	Owner    *TypeInfo
	Type     TypeRef
	Pos      token.Pos
	Exported bool
	Contract Contract
}

// FullyQualifiedName returns "pkg/path.Type.field".
func (f *FieldInfo) FullyQualifiedName() string { return f.Owner.FullyQualifiedName() + "." + f.Name }

func (f *FieldInfo) String() string { return f.Owner.Name + "." + f.Name }

// MethodInfo is a method, a constructor function, or a lambda inside either.
type MethodInfo struct {
	Name   string
	Owner  *TypeInfo
	Params []*ParameterInfo
	Result TypeRef // Kind is KindNone when the method returns nothing
	Body   *Block  // nil for interface methods and bodiless declarations
	Pos    token.Pos

	Constructor   bool
	ValueReceiver bool
	Exported      bool

	// Enclosing is the method a lambda is declared in; nil otherwise.
	Enclosing *MethodInfo
	Lambdas   []*MethodInfo

	// Calls lists the methods of the unit that this method calls statically.
	Calls []*MethodInfo

	Contract Contract
}

// FullyQualifiedName returns "pkg/path.Type.method", with a $lambda suffix for lambdas.
func (m *MethodInfo) FullyQualifiedName() string {
	if m.Enclosing != nil {
		return m.Enclosing.FullyQualifiedName() + "$" + m.Name
	}
	return m.Owner.FullyQualifiedName() + "." + m.Name
}

func (m *MethodInfo) String() string {
	if m.Enclosing != nil {
		return m.Enclosing.String() + "$" + m.Name
	}
	return m.Owner.Name + "." + m.Name
}

// IsLambda reports whether m is a function literal.
func (m *MethodInfo) IsLambda() bool { return m.Enclosing != nil }

// IsShallow reports whether m has no body to analyse.
func (m *MethodInfo) IsShallow() bool { return m.Body == nil }

// HasResult reports whether m returns a value.
func (m *MethodInfo) HasResult() bool { return m.Result.Kind != KindNone }

// InConstruction reports whether m runs while the receiver is being built:
// a constructor, or a lambda declared in one.
func (m *MethodInfo) InConstruction() bool {
	for x := m; x != nil; x = x.Enclosing {
		if x.Constructor {
			return true
		}
	}
	return false
}

// ParameterInfo is a method parameter.
type ParameterInfo struct {
	Name     string
	Index    int
	Owner    *MethodInfo
	Typ      TypeRef
	Pos      token.Pos
	Contract Contract
}

// FullyQualifiedName returns "pkg/path.Type.method:index:name".
func (p *ParameterInfo) FullyQualifiedName() string {
	return p.Owner.FullyQualifiedName() + ":" + strconv.Itoa(p.Index) + ":" + p.Name
}

// SimpleName returns the parameter name.
func (p *ParameterInfo) SimpleName() string { return p.Name }

// Type returns the parameter type.
func (p *ParameterInfo) Type() TypeRef { return p.Typ }

func (p *ParameterInfo) String() string { return p.Name }

func (*ParameterInfo) isVariable() {}
