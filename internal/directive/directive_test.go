package directive

import (
	"go/ast"
	"go/parser"
	"go/token"
	"slices"
	"testing"

	"github.com/mpyw/e2immu/internal/lattice"
)

func TestIsIgnoreDirective(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"exact match", "//e2immu:ignore", true},
		{"with space", "// e2immu:ignore", true},
		{"with extra spaces", "//  e2immu:ignore", true},
		{"with reason", "//e2immu:ignore // legacy", true},
		{"other directive", "//e2immu:immutable", false},
		{"prefix of a longer name", "//e2immu:ignored", false},
		{"random comment", "// some comment", false},
		{"empty", "//", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsIgnoreDirective(tt.text); got != tt.expected {
				t.Errorf("IsIgnoreDirective(%q) = %v, want %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		ok   bool
		want Directive
	}{
		{"bare", "//e2immu:fluent", true, Directive{Name: "fluent"}},
		{"arguments", "//e2immu:immutable recursive after=frozen", true,
			Directive{Name: "immutable", Args: []string{"recursive", "after=frozen"}}},
		{"reason dropped", "// e2immu:notnull p // checked by caller", true,
			Directive{Name: "notnull", Args: []string{"p"}}},
		{"no name", "//e2immu:", false, Directive{}},
		{"plain comment", "// immutable", false, Directive{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Parse(&ast.Comment{Text: tt.text})
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if got.Name != tt.want.Name || !slices.Equal(got.Args, tt.want.Args) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDirectiveArg(t *testing.T) {
	t.Parallel()

	d := Directive{Name: "only", Args: []string{"after=frozen,size"}}
	if v, ok := d.Arg("after"); !ok || v != "frozen,size" {
		t.Errorf("Arg(after) = %q, %v", v, ok)
	}
	if _, ok := d.Arg("before"); ok {
		t.Error("Arg(before) should be absent")
	}
}

func TestIgnoreMapShouldIgnore(t *testing.T) {
	t.Parallel()

	t.Run("same line", func(t *testing.T) {
		t.Parallel()

		m := make(IgnoreMap)
		m[10] = &ignoreEntry{pos: token.Pos(100)}
		if !m.ShouldIgnore(10) {
			t.Error("ShouldIgnore(10) should return true (same line)")
		}
	})

	t.Run("next line", func(t *testing.T) {
		t.Parallel()

		m := make(IgnoreMap)
		m[10] = &ignoreEntry{pos: token.Pos(100)}
		if !m.ShouldIgnore(11) {
			t.Error("ShouldIgnore(11) should return true (previous line has ignore)")
		}
	})

	t.Run("two lines below", func(t *testing.T) {
		t.Parallel()

		m := make(IgnoreMap)
		m[10] = &ignoreEntry{pos: token.Pos(100)}
		if m.ShouldIgnore(12) {
			t.Error("ShouldIgnore(12) should return false")
		}
	})

	t.Run("file level", func(t *testing.T) {
		t.Parallel()

		m := make(IgnoreMap)
		m[-1] = &ignoreEntry{pos: token.Pos(1), used: true}
		if !m.ShouldIgnore(100) {
			t.Error("ShouldIgnore(100) should return true with file-level ignore")
		}
	})
}

func TestIgnoreMapGetUnusedIgnores(t *testing.T) {
	t.Parallel()

	m := make(IgnoreMap)
	m[10] = &ignoreEntry{pos: token.Pos(100)}
	m[20] = &ignoreEntry{pos: token.Pos(200)}
	m[-1] = &ignoreEntry{pos: token.Pos(1), used: true}

	m.MarkUsed(20)
	m.MarkUsed(999)

	unused := m.GetUnusedIgnores()
	if len(unused) != 1 || unused[0] != token.Pos(100) {
		t.Errorf("GetUnusedIgnores() = %v, want [100]", unused)
	}
}

func parse(t *testing.T, src string) (*token.FileSet, *ast.File) {
	t.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	return fset, file
}

func TestBuildIgnoreMap(t *testing.T) {
	t.Parallel()

	t.Run("line level", func(t *testing.T) {
		t.Parallel()

		fset, file := parse(t, `package test

func foo() {
	//e2immu:ignore
	_ = 1
}
`)
		m := BuildIgnoreMap(fset, file)
		if _, ok := m[4]; !ok || len(m) != 1 {
			t.Errorf("BuildIgnoreMap() = %v, want one entry at line 4", m)
		}
	})

	t.Run("file level is never unused", func(t *testing.T) {
		t.Parallel()

		fset, file := parse(t, `// e2immu:ignore
package test
`)
		m := BuildIgnoreMap(fset, file)
		if !m.ShouldIgnore(42) {
			t.Error("Expected file-level ignore to affect every line")
		}
		if unused := m.GetUnusedIgnores(); len(unused) != 0 {
			t.Errorf("GetUnusedIgnores() = %v, want none", unused)
		}
	})
}

func TestIgnoresSuppresses(t *testing.T) {
	t.Parallel()

	fset, file := parse(t, `package test

// e2immu:ignore
func ignored() {
	_ = 1
}

func notIgnored() {
	_ = 2
}
`)
	ig := BuildIgnores(fset, file)
	if len(ig.Functions) != 1 {
		t.Fatalf("Expected 1 ignored function, got %d", len(ig.Functions))
	}

	inside := file.Decls[0].(*ast.FuncDecl).Body.Lbrace
	if !ig.Suppresses(inside, fset.Position(inside).Line) {
		t.Error("diagnostic inside an ignored function should be suppressed")
	}
	if unused := ig.Lines.GetUnusedIgnores(); len(unused) != 0 {
		t.Errorf("function-level ignore should be used, got unused %v", unused)
	}

	outside := file.Decls[1].(*ast.FuncDecl).Body.Lbrace
	if ig.Suppresses(outside, fset.Position(outside).Line) {
		t.Error("diagnostic outside should not be suppressed")
	}
}

func directives(texts ...string) []Directive {
	var out []Directive
	for i, text := range texts {
		if d, ok := Parse(&ast.Comment{Slash: token.Pos(i + 1), Text: text}); ok {
			out = append(out, d)
		}
	}
	return out
}

func TestParseTypeContract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		texts []string
		want  int
	}{
		{"final", []string{"//e2immu:final"}, lattice.EffectivelyFinalFields},
		{"eventually final", []string{"//e2immu:final after=count"}, lattice.EventuallyFinalFields},
		{"immutable", []string{"//e2immu:immutable"}, lattice.EffectivelyImmutable},
		{"eventually immutable", []string{"//e2immu:immutable after=frozen"}, lattice.EventuallyImmutable},
		{"recursive", []string{"//e2immu:immutable recursive"}, lattice.RecursivelyImmutable},
		{"mutable", []string{"//e2immu:mutable"}, lattice.Mutable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tc, problems := ParseTypeContract(directives(tt.texts...))
			if len(problems) != 0 {
				t.Fatalf("unexpected problems: %v", problems)
			}
			if got, ok := tc.Contract.Get(lattice.Immutable); !ok || got != tt.want {
				t.Errorf("immutable = %d, %v; want %d", got, ok, tt.want)
			}
			if !tc.Contract.Pos.IsValid() {
				t.Error("contract position should be set")
			}
		})
	}

	t.Run("container", func(t *testing.T) {
		t.Parallel()

		tc, problems := ParseTypeContract(directives("//e2immu:container"))
		if len(problems) != 0 || !tc.Container {
			t.Errorf("container = %v, problems %v", tc.Container, problems)
		}
	})

	t.Run("contradiction", func(t *testing.T) {
		t.Parallel()

		_, problems := ParseTypeContract(directives("//e2immu:immutable", "//e2immu:mutable"))
		if len(problems) != 1 {
			t.Errorf("problems = %v, want one", problems)
		}
	})

	t.Run("method directive on a type", func(t *testing.T) {
		t.Parallel()

		_, problems := ParseTypeContract(directives("//e2immu:fluent"))
		if len(problems) != 1 {
			t.Errorf("problems = %v, want one", problems)
		}
	})

	t.Run("eventual without labels", func(t *testing.T) {
		t.Parallel()

		_, problems := ParseTypeContract(directives("//e2immu:immutable after=,"))
		if len(problems) != 1 {
			t.Errorf("problems = %v, want one", problems)
		}
	})
}

func TestParseFieldContract(t *testing.T) {
	t.Parallel()

	c, problems := ParseFieldContract(directives("//e2immu:final", "//e2immu:notnull", "//e2immu:ignore"))
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if v, _ := c.Get(lattice.Final); v != 1 {
		t.Errorf("final = %d", v)
	}
	if v, _ := c.Get(lattice.NotNull); v != lattice.EffectivelyNotNull {
		t.Errorf("not null = %d", v)
	}

	if _, problems := ParseFieldContract(directives("//e2immu:mark x")); len(problems) != 1 {
		t.Errorf("problems = %v, want one", problems)
	}
}

func TestParseMethodContract(t *testing.T) {
	t.Parallel()

	t.Run("method and parameters", func(t *testing.T) {
		t.Parallel()

		mc, problems := ParseMethodContract(directives(
			"//e2immu:notmodified",
			"//e2immu:fluent",
			"//e2immu:notnull p",
			"//e2immu:modified q",
		), []string{"p", "q"})
		if len(problems) != 0 {
			t.Fatalf("unexpected problems: %v", problems)
		}
		if v, ok := mc.Contract.Get(lattice.ModifiedMethod); !ok || v != 0 {
			t.Errorf("modified method = %d, %v", v, ok)
		}
		if v, _ := mc.Contract.Get(lattice.Fluent); v != 1 {
			t.Errorf("fluent = %d", v)
		}
		if v, _ := mc.Parameters["p"].Get(lattice.NotNull); v != lattice.EffectivelyNotNull {
			t.Errorf("p not null = %d", v)
		}
		if v, _ := mc.Parameters["q"].Get(lattice.ModifiedVariable); v != 1 {
			t.Errorf("q modified = %d", v)
		}
	})

	t.Run("mark keeps non-empty labels", func(t *testing.T) {
		t.Parallel()

		mc, problems := ParseMethodContract(directives("//e2immu:mark frozen, ,size"), nil)
		if len(problems) != 0 {
			t.Fatalf("unexpected problems: %v", problems)
		}
		if !slices.Equal(mc.Contract.Mark, []string{"frozen", "size"}) {
			t.Errorf("mark = %v", mc.Contract.Mark)
		}
	})

	t.Run("only", func(t *testing.T) {
		t.Parallel()

		mc, problems := ParseMethodContract(directives("//e2immu:only after=frozen"), nil)
		if len(problems) != 0 || !slices.Equal(mc.Contract.OnlyAfter, []string{"frozen"}) {
			t.Errorf("only after = %v, problems %v", mc.Contract.OnlyAfter, problems)
		}

		_, problems = ParseMethodContract(directives("//e2immu:only before=a after=b"), nil)
		if len(problems) != 1 {
			t.Errorf("problems = %v, want one", problems)
		}
	})

	t.Run("unknown parameter", func(t *testing.T) {
		t.Parallel()

		_, problems := ParseMethodContract(directives("//e2immu:notnull r"), []string{"p"})
		if len(problems) != 1 {
			t.Errorf("problems = %v, want one", problems)
		}
	})
}
