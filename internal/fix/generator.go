// Package fix provides SuggestedFix generation for e2immu diagnostics.
//
// # Fixes
//
// Two kinds of fixes are offered:
//
//  1. Contracts from inferences: the inferred properties of a method or type
//     are written down as directives above its declaration, so later changes
//     that break them are reported.
//
//  2. Unused ignores: an ignore directive that suppressed nothing is removed.
//
// # Example
//
//	// Before
//	type Point struct{ x, y int }
//
//	func (p *Point) X() int { return p.x }
//
//	// After
//	//e2immu:immutable recursive
//	type Point struct{ x, y int }
//
//	//e2immu:notmodified
//	func (p *Point) X() int { return p.x }
package fix

import (
	"go/ast"
	"go/token"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Generator generates SuggestedFixes for the files of one pass.
type Generator struct {
	fset  *token.FileSet
	files map[*token.File]*ast.File // token.File -> ast.File mapping
}

// New creates a new fix Generator.
func New(pass *analysis.Pass) *Generator {
	return NewForFiles(pass.Fset, pass.Files)
}

// NewForFiles creates a Generator over the given files.
func NewForFiles(fset *token.FileSet, files []*ast.File) *Generator {
	m := make(map[*token.File]*ast.File, len(files))
	for _, f := range files {
		if tf := fset.File(f.Pos()); tf != nil {
			m[tf] = f
		}
	}
	return &Generator{fset: fset, files: m}
}

// AddDirectives returns a fix inserting one //e2immu: line per directive
// above the declaration holding pos. It returns nil when pos is not inside a
// top-level function or type declaration.
func (g *Generator) AddDirectives(pos token.Pos, directives []string) []analysis.SuggestedFix {
	if len(directives) == 0 {
		return nil
	}
	at, indent, ok := g.insertionPoint(pos)
	if !ok {
		return nil
	}
	var b strings.Builder
	for _, d := range directives {
		b.WriteString(indent)
		b.WriteString("//e2immu:")
		b.WriteString(d)
		b.WriteByte('\n')
	}
	return []analysis.SuggestedFix{{
		Message:   "Add inferred contracts: " + strings.Join(directives, ", "),
		TextEdits: []analysis.TextEdit{{Pos: at, End: at, NewText: []byte(b.String())}},
	}}
}

// RemoveComment returns a fix deleting the comment starting at pos.
func (g *Generator) RemoveComment(pos token.Pos) []analysis.SuggestedFix {
	file := g.findFileContaining(pos)
	if file == nil {
		return nil
	}
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			if c.Pos() == pos {
				return []analysis.SuggestedFix{{
					Message:   "Remove unused ignore directive",
					TextEdits: []analysis.TextEdit{{Pos: c.Pos(), End: c.End()}},
				}}
			}
		}
	}
	return nil
}

// insertionPoint finds the start of the line a directive goes on: the line of
// the func keyword, or of the type spec for grouped type declarations.
func (g *Generator) insertionPoint(pos token.Pos) (token.Pos, string, bool) {
	file := g.findFileContaining(pos)
	if file == nil {
		return token.NoPos, "", false
	}
	var start token.Pos
	indent := ""
	for _, decl := range file.Decls {
		if pos < decl.Pos() || decl.End() <= pos {
			continue
		}
		switch decl := decl.(type) {
		case *ast.FuncDecl:
			start = decl.Pos()
		case *ast.GenDecl:
			if decl.Tok != token.TYPE {
				return token.NoPos, "", false
			}
			start = decl.Pos()
			if decl.Lparen.IsValid() {
				spec := findSpec(decl, pos)
				if spec == nil {
					return token.NoPos, "", false
				}
				start, indent = spec.Pos(), "\t"
			}
		}
	}
	if !start.IsValid() {
		return token.NoPos, "", false
	}
	tf := g.fset.File(start)
	return tf.LineStart(tf.Line(start)), indent, true
}

func findSpec(decl *ast.GenDecl, pos token.Pos) ast.Spec {
	for _, s := range decl.Specs {
		if s.Pos() <= pos && pos < s.End() {
			return s
		}
	}
	return nil
}

// findFileContaining finds the AST file containing the given position.
func (g *Generator) findFileContaining(pos token.Pos) *ast.File {
	tf := g.fset.File(pos)
	if tf == nil {
		return nil
	}
	return g.files[tf]
}
