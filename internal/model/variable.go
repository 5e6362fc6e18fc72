package model

// Variable is anything a statement can read, assign or modify.
//
// Variables are compared by [Variable.FullyQualifiedName]; two values with the
// same name denote the same variable within one method.
type Variable interface {
	FullyQualifiedName() string
	SimpleName() string
	Type() TypeRef
	isVariable()
}

// This is the receiver of a method, or the value under construction in a constructor.
type This struct {
	TypeInfo *TypeInfo
}

func (v This) FullyQualifiedName() string { return v.TypeInfo.FullyQualifiedName() + ".this" }
func (This) SimpleName() string           { return "this" }
func (v This) Type() TypeRef              { return PointerTo(Named(v.TypeInfo)) }
func (This) isVariable()                  {}

// FieldReference is a field read through a scope.
// A nil Scope means the field of this.
type FieldReference struct {
	Field *FieldInfo
	Scope Variable
}

// FieldOfThis returns a reference to a field of the receiver.
func FieldOfThis(f *FieldInfo) FieldReference { return FieldReference{Field: f} }

// IsThis reports whether the scope is the receiver.
func (v FieldReference) IsThis() bool {
	if v.Scope == nil {
		return true
	}
	_, ok := v.Scope.(This)
	return ok
}

func (v FieldReference) FullyQualifiedName() string {
	if v.IsThis() {
		return v.Field.FullyQualifiedName()
	}
	return v.Scope.FullyQualifiedName() + "#" + v.Field.FullyQualifiedName()
}

func (v FieldReference) SimpleName() string {
	if v.IsThis() {
		return v.Field.Name
	}
	return v.Scope.SimpleName() + "." + v.Field.Name
}

func (v FieldReference) Type() TypeRef { return v.Field.Type }
func (FieldReference) isVariable()     {}

// LocalVariable is a variable declared in a method body.
// ID disambiguates shadowed declarations with the same name.
type LocalVariable struct {
	Name   string
	ID     string
	Method *MethodInfo
	Typ    TypeRef
}

func (v LocalVariable) FullyQualifiedName() string {
	return v.Method.FullyQualifiedName() + ":" + v.Name + "#" + v.ID
}
func (v LocalVariable) SimpleName() string { return v.Name }
func (v LocalVariable) Type() TypeRef      { return v.Typ }
func (LocalVariable) isVariable()          {}

// ReturnVariable is the value a method returns.
type ReturnVariable struct {
	Method *MethodInfo
}

func (v ReturnVariable) FullyQualifiedName() string { return v.Method.FullyQualifiedName() + ":return" }
func (ReturnVariable) SimpleName() string           { return "return" }
func (v ReturnVariable) Type() TypeRef              { return v.Method.Result }
func (ReturnVariable) isVariable()                  {}

// IsFieldOfThis returns the field when v is a field of the receiver.
func IsFieldOfThis(v Variable) (*FieldInfo, bool) {
	fr, ok := v.(FieldReference)
	if !ok || !fr.IsThis() {
		return nil, false
	}
	return fr.Field, true
}

// IsParameter returns the parameter when v is one.
func IsParameter(v Variable) (*ParameterInfo, bool) {
	p, ok := v.(*ParameterInfo)
	return p, ok
}

// RootOf strips field scopes: the root of p.a.b is p.
func RootOf(v Variable) Variable {
	for {
		fr, ok := v.(FieldReference)
		if !ok || fr.Scope == nil {
			return v
		}
		v = fr.Scope
	}
}
