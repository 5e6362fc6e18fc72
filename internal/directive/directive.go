// Package directive handles e2immu comment directives.
//
// # Supported Directives
//
// Directives stand in for annotations. They are written as line comments in
// the doc comment of the declaration they apply to:
//
//	//e2immu:immutable [recursive] [after=<labels>]   type contract
//	//e2immu:final [after=<labels>]                   type or field contract
//	//e2immu:mutable                                  type contract
//	//e2immu:container                                no method modifies its parameters
//	//e2immu:notmodified [<param>]                    method or parameter contract
//	//e2immu:modified [<param>]                       method or parameter contract
//	//e2immu:notnull [<param>]                        result, parameter or field contract
//	//e2immu:identity, //e2immu:fluent                method contracts
//	//e2immu:independent                              method contract
//	//e2immu:mark <labels>                            method that flips the state
//	//e2immu:only before=<labels>|after=<labels>      method restricted to one state
//	//e2immu:ignore                                   suppress diagnostics
//
// Labels are comma-separated field names.
//
// # Directive Placement
//
// The ignore directive can be placed:
//   - On the line before the affected code, or on the same line
//   - On a function declaration (function-level ignore)
//   - Before the package declaration (file-level ignore)
//
// # Examples
//
//	//e2immu:immutable after=frozen
//	type Config struct {
//	    frozen bool
//	    values map[string]string
//	}
//
//	//e2immu:mark frozen
//	func (c *Config) Freeze() { ... }
package directive

import (
	"go/ast"
	"go/token"
	"strings"
)

const directivePrefix = "e2immu:"

// Directive is one parsed //e2immu: comment.
type Directive struct {
	Name string
	Args []string
	Pos  token.Pos
}

// Arg returns the argument with the given key=value key, or "".
func (d Directive) Arg(key string) (string, bool) {
	for _, a := range d.Args {
		if k, v, ok := strings.Cut(a, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// Parse parses a comment as a directive.
// Supports both "//e2immu:name args" and "// e2immu:name args"; text after a
// second "//" is a free-form reason and is dropped.
func Parse(c *ast.Comment) (Directive, bool) {
	text, ok := directiveText(c.Text)
	if !ok {
		return Directive{}, false
	}
	text, _, _ = strings.Cut(text, "//")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Directive{}, false
	}
	return Directive{Name: fields[0], Args: fields[1:], Pos: c.Pos()}, true
}

// ParseGroup parses every directive of a comment group, in order.
func ParseGroup(groups ...*ast.CommentGroup) []Directive {
	var out []Directive
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			if d, ok := Parse(c); ok {
				out = append(out, d)
			}
		}
	}
	return out
}

func directiveText(text string) (string, bool) {
	text = strings.TrimPrefix(text, "//")
	text = strings.TrimSpace(text)
	return strings.CutPrefix(text, directivePrefix)
}

// IsIgnoreDirective checks if a comment is an ignore directive.
func IsIgnoreDirective(text string) bool {
	rest, ok := directiveText(text)
	if !ok {
		return false
	}
	name, _, _ := strings.Cut(rest, " ")
	return name == "ignore"
}
