package model

// TypeKind classifies a [TypeRef].
type TypeKind uint8

const (
	KindNone      TypeKind = iota // no type, e.g. a method without results
	KindBasic                     // booleans, numbers, strings
	KindNamed                     // a struct or interface declared in the unit
	KindPointer                   // pointer to Elem
	KindSlice                     // slice or array of Elem
	KindMap                       // map
	KindChan                      // channel
	KindFunc                      // function value
	KindInterface                 // interface not declared in the unit
	KindExternal                  // named type of another package
)

// TypeRef is the static type of a variable, as far as the engine cares.
type TypeRef struct {
	Kind TypeKind
	Name string
	Info *TypeInfo // set for KindNamed, and for KindPointer to a unit type through Elem
	Elem *TypeRef
}

// Basic returns the reference of a basic type.
func Basic(name string) TypeRef { return TypeRef{Kind: KindBasic, Name: name} }

// Named returns the reference of a unit type.
func Named(t *TypeInfo) TypeRef { return TypeRef{Kind: KindNamed, Name: t.Name, Info: t} }

// PointerTo returns a pointer reference.
func PointerTo(elem TypeRef) TypeRef { return TypeRef{Kind: KindPointer, Name: "*" + elem.Name, Elem: &elem} }

// SliceOf returns a slice reference.
func SliceOf(elem TypeRef) TypeRef { return TypeRef{Kind: KindSlice, Name: "[]" + elem.Name, Elem: &elem} }

// UnitType returns the unit type behind a named type or a pointer to one.
func (t TypeRef) UnitType() *TypeInfo {
	switch t.Kind {
	case KindNamed:
		return t.Info
	case KindPointer:
		if t.Elem != nil {
			return t.Elem.UnitType()
		}
	}
	return nil
}

// Nullable reports whether nil is a valid value of the type.
func (t TypeRef) Nullable() bool {
	switch t.Kind {
	case KindPointer, KindSlice, KindMap, KindChan, KindFunc, KindInterface:
		return true
	case KindNamed:
		return t.Info != nil && t.Info.Interface
	default:
		return false
	}
}

// HasSize reports whether len() applies to values of the type.
func (t TypeRef) HasSize() bool {
	switch t.Kind {
	case KindSlice, KindMap, KindChan:
		return true
	case KindBasic:
		return t.Name == "string"
	}
	return false
}

// IsBool reports whether the type is the predeclared bool.
func (t TypeRef) IsBool() bool { return t.Kind == KindBasic && t.Name == "bool" }

// IsValue reports whether assignment copies the whole value,
// so that modifying the copy never reaches the original.
func (t TypeRef) IsValue() bool {
	switch t.Kind {
	case KindBasic:
		return true
	case KindNamed:
		return t.Info != nil && !t.Info.Interface
	}
	return false
}

func (t TypeRef) String() string {
	if t.Kind == KindNone {
		return "<none>"
	}
	return t.Name
}
