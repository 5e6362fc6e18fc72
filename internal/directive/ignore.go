package directive

import (
	"go/ast"
	"go/token"
)

// ignoreEntry tracks an ignore directive and whether it was used.
type ignoreEntry struct {
	pos  token.Pos // Position of the ignore comment
	used bool      // Whether this ignore was actually used to suppress a diagnostic
}

// IgnoreMap tracks line numbers that have ignore comments.
//
// The map uses line numbers as keys:
//   - Positive line: ignore directive for the same and the next line
//   - Line -1: file-level ignore (all lines)
type IgnoreMap map[int]*ignoreEntry

// BuildIgnoreMap scans a file for ignore comments and returns a map.
//
// Example:
//
//	//e2immu:ignore            // Line 5 → map[5] (line-level)
//	c.values[k] = v            // Line 6 → ignored (line 5 covers line 6)
//
//	// File-level ignore (in package doc):
//	// e2immu:ignore           // → map[-1] (special marker)
//	package config             // All lines ignored
func BuildIgnoreMap(fset *token.FileSet, file *ast.File) IgnoreMap {
	m := make(IgnoreMap)
	for _, cg := range file.Comments {
		if cg == file.Doc {
			continue
		}
		for _, c := range cg.List {
			if IsIgnoreDirective(c.Text) {
				m[fset.Position(c.Pos()).Line] = &ignoreEntry{pos: c.Pos()}
			}
		}
	}
	if file.Doc != nil {
		for _, c := range file.Doc.List {
			if IsIgnoreDirective(c.Text) {
				// File-level ignores are always considered used.
				m[-1] = &ignoreEntry{pos: c.Pos(), used: true}
			}
		}
	}
	return m
}

// ShouldIgnore returns true if the given line should be ignored: the file is
// ignored, or the same or the previous line carries an ignore comment.
// A matching entry is marked as used.
func (m IgnoreMap) ShouldIgnore(line int) bool {
	if entry, fileIgnore := m[-1]; fileIgnore {
		entry.used = true
		return true
	}
	if entry, onSameLine := m[line]; onSameLine {
		entry.used = true
		return true
	}
	if entry, onPrevLine := m[line-1]; onPrevLine {
		entry.used = true
		return true
	}
	return false
}

// GetUnusedIgnores returns the positions of ignore directives that were not used.
func (m IgnoreMap) GetUnusedIgnores() []token.Pos {
	var unused []token.Pos
	for line, entry := range m {
		if line == -1 {
			continue
		}
		if !entry.used {
			unused = append(unused, entry.pos)
		}
	}
	return unused
}

// MarkUsed marks the ignore directive at the given line as used.
func (m IgnoreMap) MarkUsed(line int) {
	if entry, ok := m[line]; ok {
		entry.used = true
	}
}

// FunctionIgnoreEntry is a function declaration carrying an ignore directive.
type FunctionIgnoreEntry struct {
	Start, End    token.Pos // extent of the declaration, doc comment excluded
	DirectiveLine int       // line of the ignore directive, for marking it used
}

// BuildFunctionIgnoreSet lists the functions whose diagnostics are suppressed.
// Function literals have no doc comments and are covered by their enclosing
// declaration.
func BuildFunctionIgnoreSet(fset *token.FileSet, file *ast.File) []FunctionIgnoreEntry {
	var out []FunctionIgnoreEntry
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Doc == nil {
			continue
		}
		for _, c := range fd.Doc.List {
			if IsIgnoreDirective(c.Text) {
				out = append(out, FunctionIgnoreEntry{
					Start:         fd.Pos(),
					End:           fd.End(),
					DirectiveLine: fset.Position(c.Pos()).Line,
				})
				break
			}
		}
	}
	return out
}

// Ignores combines the line-level and function-level ignores of one file.
type Ignores struct {
	Lines     IgnoreMap
	Functions []FunctionIgnoreEntry
}

// BuildIgnores scans a file for every kind of ignore directive.
func BuildIgnores(fset *token.FileSet, file *ast.File) Ignores {
	return Ignores{Lines: BuildIgnoreMap(fset, file), Functions: BuildFunctionIgnoreSet(fset, file)}
}

// Suppresses reports whether a diagnostic at pos on the given line is ignored,
// and marks the directive responsible as used.
func (ig Ignores) Suppresses(pos token.Pos, line int) bool {
	for _, f := range ig.Functions {
		if f.Start <= pos && pos < f.End {
			ig.Lines.MarkUsed(f.DirectiveLine)
			return true
		}
	}
	return ig.Lines.ShouldIgnore(line)
}
