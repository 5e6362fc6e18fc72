// Package e2immu infers immutability, modification, nullability and
// independence properties of the types and methods of a Go package, and
// checks them against the contracts written as //e2immu: directives.
//
// Each package is analysed on its own. Its struct and interface types,
// their methods, constructors and fields are iterated to a fixed point;
// properties that cannot be decided yet are delays and are retried in the
// next iteration. Contracts that contradict the inferred properties are
// reported as diagnostics.
package e2immu

import (
	"fmt"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/mpyw/e2immu/internal"
	"github.com/mpyw/e2immu/internal/config"
)

const (
	name = "e2immu"
	doc  = "infers immutability and modification properties and checks //e2immu: contracts"
	url  = "https://pkg.go.dev/github.com/mpyw/e2immu"
)

// New creates an analyzer configured by opts. Command line flags registered
// on the analyzer are applied after opts.
func New(opts ...Option) *analysis.Analyzer {
	cfg := config.Default()
	Options(opts).apply(cfg)

	a := &analysis.Analyzer{
		Name:     name,
		Doc:      doc,
		URL:      url,
		Requires: []*analysis.Analyzer{buildssa.Analyzer, inspect.Analyzer},
		Run: func(pass *analysis.Pass) (any, error) {
			return run(pass, cfg)
		},
	}
	registerFlags(&a.Flags, cfg)
	return a
}

// Analyzer is the e2immu analyzer with the default configuration.
var Analyzer = New()

func run(pass *analysis.Pass, cfg *config.Configuration) (any, error) {
	ssaInfo, ok := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)
	if !ok {
		return nil, fmt.Errorf("%s: missing %s result", name, buildssa.Analyzer.Name)
	}
	in, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, fmt.Errorf("%s: missing %s result", name, inspect.Analyzer.Name)
	}
	return nil, internal.Run(pass, ssaInfo, in, cfg)
}
