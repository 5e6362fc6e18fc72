// Package frontendtest loads Go source text into a [model.Unit] for tests.
package frontendtest

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/mpyw/e2immu/internal/frontend"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
)

// PkgPath is the import path every loaded source gets.
const PkgPath = "example.com/p"

// Loaded is a type-checked package with its entity model.
type Loaded struct {
	Fset     *token.FileSet
	File     *ast.File
	Unit     *model.Unit
	Messages []message.Message
}

// Load parses, type-checks and translates one file of package p.
func Load(t testing.TB, src string) *Loaded {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "p.go", src, parser.ParseComments)
	require.NoError(t, err)
	pkg := types.NewPackage(PkgPath, f.Name.Name)
	ssaPkg, info, err := ssautil.BuildPackage(&types.Config{Importer: importer.Default()}, fset, pkg, []*ast.File{f}, ssa.SanityCheckFunctions)
	require.NoError(t, err)
	unit, msgs := frontend.Build(frontend.Input{
		Fset:     fset,
		Files:    []*ast.File{f},
		Pkg:      ssaPkg.Pkg,
		Info:     info,
		SrcFuncs: frontend.SourceFunctions(ssaPkg),
	})
	return &Loaded{Fset: fset, File: f, Unit: unit, Messages: msgs}
}

// Type returns the unit type with the given name.
func (l *Loaded) Type(t testing.TB, name string) *model.TypeInfo {
	t.Helper()
	for _, ti := range l.Unit.Types {
		if ti.Name == name {
			return ti
		}
	}
	require.FailNow(t, "no type "+name)
	return nil
}

// Method returns a method or constructor of a unit type.
func (l *Loaded) Method(t testing.TB, typ, name string) *model.MethodInfo {
	t.Helper()
	for _, m := range l.Type(t, typ).AllMethods() {
		if m.Name == name {
			return m
		}
	}
	require.FailNow(t, "no method "+typ+"."+name)
	return nil
}
