package frontend

import (
	"go/types"

	"github.com/mpyw/e2immu/internal/model"
)

// typeRef maps a go/types type onto the few shapes the engine distinguishes.
// Named types of other packages keep their qualified name so that messages
// stay readable.
func (b *builder) typeRef(t types.Type) model.TypeRef {
	if t == nil {
		return model.TypeRef{}
	}
	if b.refs[t] {
		// a local type reaching itself through its underlying type
		return model.TypeRef{Kind: model.KindExternal, Name: types.TypeString(t, b.qualifier)}
	}
	b.refs[t] = true
	defer delete(b.refs, t)

	switch t := types.Unalias(t).(type) {
	case *types.Basic:
		return model.Basic(t.Name())
	case *types.Pointer:
		return model.PointerTo(b.typeRef(t.Elem()))
	case *types.Slice:
		return model.SliceOf(b.typeRef(t.Elem()))
	case *types.Array:
		return model.SliceOf(b.typeRef(t.Elem()))
	case *types.Map:
		elem := b.typeRef(t.Elem())
		return model.TypeRef{Kind: model.KindMap, Name: types.TypeString(t, b.qualifier), Elem: &elem}
	case *types.Chan:
		elem := b.typeRef(t.Elem())
		return model.TypeRef{Kind: model.KindChan, Name: types.TypeString(t, b.qualifier), Elem: &elem}
	case *types.Signature:
		return model.TypeRef{Kind: model.KindFunc, Name: "func"}
	case *types.Interface:
		return model.TypeRef{Kind: model.KindInterface, Name: types.TypeString(t, b.qualifier)}
	case *types.Struct:
		return model.TypeRef{Kind: model.KindExternal, Name: "struct"}
	case *types.TypeParam:
		// any instantiation may be mutable
		return model.TypeRef{Kind: model.KindInterface, Name: t.Obj().Name()}
	case *types.Named:
		return b.namedRef(t)
	}
	return model.TypeRef{Kind: model.KindExternal, Name: types.TypeString(t, b.qualifier)}
}

func (b *builder) namedRef(t *types.Named) model.TypeRef {
	if info := b.types[t.Origin().Obj()]; info != nil {
		return model.Named(info)
	}
	name := types.TypeString(t, b.qualifier)
	switch u := t.Underlying().(type) {
	case *types.Basic:
		// time.Duration, token.Pos: copied by value like the basic type itself
		return model.Basic(name)
	case *types.Interface:
		return model.TypeRef{Kind: model.KindInterface, Name: name}
	case *types.Struct:
		return model.TypeRef{Kind: model.KindExternal, Name: name}
	default:
		ref := b.typeRef(u)
		ref.Name = name
		return ref
	}
}

// qualifier prints unit types unqualified and others with their package name.
func (b *builder) qualifier(p *types.Package) string {
	if p == b.in.Pkg {
		return ""
	}
	return p.Name()
}
