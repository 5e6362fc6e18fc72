// Package internal bridges one analysis pass and the inference engine.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                            Analysis Flow                             │
//	│                                                                      │
//	│   analyzer.go (public)                                               │
//	│        │                                                             │
//	│        ▼                                                             │
//	│   internal/run.go   ◀── You are here                                 │
//	│   ┌──────────────────────────────────────────────────────────────┐   │
//	│   │  Run()                                                       │   │
//	│   │    ├── skip generated files                                  │   │
//	│   │    ├── collect ignore directives per file                    │   │
//	│   │    ├── build the entity model (internal/frontend)            │   │
//	│   │    ├── iterate to a fixed point (internal/primary)           │   │
//	│   │    ├── report messages, minus ignored ones                   │   │
//	│   │    ├── report inferred annotations (optional, with fixes)    │   │
//	│   │    └── store the frozen analyses (optional)                  │   │
//	│   └──────────────────────────────────────────────────────────────┘   │
//	└──────────────────────────────────────────────────────────────────────┘
//
// An internal-consistency fault aborts the unit: it is logged and reported
// once as "Internal Error: ..." on the package clause.
package internal

import (
	"go/ast"
	"go/token"
	"log/slog"
	"slices"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
	"golang.org/x/tools/go/ast/inspector"

	inference "github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/config"
	"github.com/mpyw/e2immu/internal/debug"
	"github.com/mpyw/e2immu/internal/directive"
	"github.com/mpyw/e2immu/internal/fault"
	"github.com/mpyw/e2immu/internal/fix"
	"github.com/mpyw/e2immu/internal/frontend"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/message"
	"github.com/mpyw/e2immu/internal/model"
	"github.com/mpyw/e2immu/internal/primary"
	"github.com/mpyw/e2immu/internal/store"
)

// =============================================================================
// Entry Point
// =============================================================================

// Run analyses the package of pass and reports its diagnostics.
//
// Processing flow:
//  1. Skip generated files unless the configuration includes them
//  2. Build the ignore directives of every remaining file
//  3. Build the entity model and run the primary analyser
//  4. Report messages, unless suppressed by an ignore directive
//  5. Report unused ignore directives
//  6. Write the frozen analyses to the store
func Run(pass *analysis.Pass, ssaInfo *buildssa.SSA, in *inspector.Inspector, cfg *config.Configuration) error {
	logger := cfg.Logger.With(slog.String("package", pass.Pkg.Path()))
	skipFiles := buildSkipFiles(pass, cfg)

	ignores := make(map[string]directive.Ignores)
	for _, file := range pass.Files {
		filename := pass.Fset.Position(file.Pos()).Filename
		if skipFiles[filename] {
			continue
		}
		ignores[filename] = directive.BuildIgnores(pass.Fset, file)
	}

	unit, msgs := frontend.Build(frontend.Input{
		Fset:      pass.Fset,
		Files:     pass.Files,
		Pkg:       pass.Pkg,
		Info:      pass.TypesInfo,
		Inspector: in,
		SrcFuncs:  ssaInfo.SrcFuncs,
		Skip: func(f *ast.File) bool {
			return skipFiles[pass.Fset.Position(f.Pos()).Filename]
		},
	})
	logger.Debug("entity model built", slog.Int("types", len(unit.Types)))

	bag := message.NewBag()
	bag.AddAll(msgs...)

	observers := slices.Clone(cfg.Observers)
	iterations := slices.Clone(cfg.Iterations)
	if cfg.Debug != nil {
		tracer := debug.NewTracer(nil, cfg.Debug)
		observers = append(observers, tracer)
		iterations = append(iterations, tracer)
	}

	res, err := primary.Run(unit, primary.Options{
		Logger:     logger,
		Walk:       cfg.Walk(),
		Messages:   bag,
		Observers:  observers,
		Iterations: iterations,
	})
	if err != nil {
		if !fault.IsInternal(err) {
			return err
		}
		logger.Error("analysis aborted", slog.Any("error", err))
		reportInternal(pass, err)
		return nil
	}

	r := newReporter(pass, ignores)
	if cfg.Behavior.Enabled(config.ReportInferred) {
		bag.AddAll(inferred(res)...)
		r.suggest = suggestions(res)
	}
	for _, m := range bag.Messages() {
		r.report(m)
	}
	r.reportUnused()

	if cfg.Store != "" {
		return write(cfg.Store, unit.PkgPath, res)
	}
	return nil
}

// buildSkipFiles creates the set of filenames left out of the analysis.
func buildSkipFiles(pass *analysis.Pass, cfg *config.Configuration) map[string]bool {
	skipFiles := make(map[string]bool)
	if cfg.Behavior.Enabled(config.IncludeGenerated) {
		return skipFiles
	}
	for _, file := range pass.Files {
		if ast.IsGenerated(file) {
			skipFiles[pass.Fset.Position(file.Pos()).Filename] = true
		}
	}
	return skipFiles
}

func reportInternal(pass *analysis.Pass, err error) {
	pos := token.NoPos
	if len(pass.Files) > 0 {
		pos = pass.Files[0].Name.Pos()
	}
	pass.Report(analysis.Diagnostic{
		Pos:      pos,
		Category: string(message.InternalError),
		Message:  message.New(message.InternalError, pos, pass.Pkg.Path(), "%v", err).String(),
	})
}

// inferred lists the annotations of every entity as informational messages.
func inferred(res *primary.Result) []message.Message {
	var out []message.Message
	add := func(pos token.Pos, subject string, list []inference.Annotation) {
		if len(list) > 0 && pos.IsValid() {
			out = append(out, message.New(message.InferredAnnotations, pos, subject, "%s", inference.FormatAnnotations(list)))
		}
	}
	for _, a := range res.Types {
		add(a.Type.Pos, a.Type.FullyQualifiedName(), a.Annotations())
	}
	for _, a := range res.Methods {
		add(a.Method.Pos, a.Method.FullyQualifiedName(), a.Annotations())
	}
	for _, a := range res.Fields {
		add(a.Field.Pos, a.Field.FullyQualifiedName(), a.Annotations())
	}
	for _, a := range res.Parameters {
		add(a.Parameter.Pos, a.Parameter.FullyQualifiedName(), a.Annotations())
	}
	return out
}

// suggestions lists, per entity position, the directives that would turn
// the inferred properties of methods and types into contracts. Properties
// that already carry a contract are left out.
func suggestions(res *primary.Result) map[token.Pos][]string {
	out := make(map[token.Pos][]string)
	for _, a := range res.Methods {
		m := a.Method
		if m.IsLambda() || m.IsShallow() || m.Constructor {
			continue
		}
		var ds []string
		if uncontracted(m.Contract, lattice.ModifiedMethod) && a.Property(lattice.ModifiedMethod).IsFalse() {
			ds = append(ds, "notmodified")
		}
		if uncontracted(m.Contract, lattice.Identity) && a.Property(lattice.Identity).IsTrue() {
			ds = append(ds, "identity")
		}
		if uncontracted(m.Contract, lattice.Fluent) && a.Property(lattice.Fluent).IsTrue() {
			ds = append(ds, "fluent")
		}
		if len(ds) > 0 {
			out[m.Pos] = ds
		}
	}
	for _, a := range res.Types {
		t := a.Type
		if t.Interface || !uncontracted(t.Contract, lattice.Immutable) {
			continue
		}
		dv := a.Property(lattice.Immutable)
		if !dv.IsDone() {
			continue
		}
		switch dv.Value() {
		case lattice.FinalFields:
			out[t.Pos] = []string{"final"}
		case lattice.EffectivelyImmutable:
			out[t.Pos] = []string{"immutable"}
		case lattice.RecursivelyImmutable:
			out[t.Pos] = []string{"immutable recursive"}
		}
	}
	return out
}

func uncontracted(c model.Contract, p lattice.Property) bool {
	_, ok := c.Get(p)
	return !ok
}

func write(dir, unit string, res *primary.Result) error {
	s, err := store.Open(dir)
	if err != nil {
		return err
	}
	r, err := store.Encode(unit, res)
	if err != nil {
		return err
	}
	return s.Put(r)
}

// =============================================================================
// Reporting
// =============================================================================

// reporter turns messages into diagnostics.
//
// It ensures:
//   - A message on the same position with the same text is reported once
//   - Ignore directives suppress messages on their lines and functions
//   - Messages in skipped files are dropped
//   - Inferred annotations and unused ignores come with a suggested fix
type reporter struct {
	pass     *analysis.Pass
	ignores  map[string]directive.Ignores
	reported map[reportKey]bool
	fixes    *fix.Generator
	suggest  map[token.Pos][]string
}

type reportKey struct {
	pos  token.Pos
	text string
}

func newReporter(pass *analysis.Pass, ignores map[string]directive.Ignores) *reporter {
	return &reporter{
		pass:     pass,
		ignores:  ignores,
		reported: make(map[reportKey]bool),
		fixes:    fix.New(pass),
	}
}

func (r *reporter) report(m message.Message) {
	text := m.String()
	key := reportKey{m.Pos, text}
	if r.reported[key] {
		return
	}
	r.reported[key] = true

	if m.Pos.IsValid() {
		position := r.pass.Fset.Position(m.Pos)
		ig, ok := r.ignores[position.Filename]
		if !ok {
			return // skipped file
		}
		if ig.Suppresses(m.Pos, position.Line) {
			return
		}
	}
	d := analysis.Diagnostic{Pos: m.Pos, Category: string(m.Kind), Message: text}
	if m.Kind == message.InferredAnnotations {
		d.SuggestedFixes = r.fixes.AddDirectives(m.Pos, r.suggest[m.Pos])
	}
	r.pass.Report(d)
}

// reportUnused reports the ignore directives that suppressed nothing.
func (r *reporter) reportUnused() {
	var unused []token.Pos
	for _, ig := range r.ignores {
		unused = append(unused, ig.Lines.GetUnusedIgnores()...)
	}
	slices.Sort(unused)
	for _, pos := range unused {
		r.pass.Report(analysis.Diagnostic{
			Pos:            pos,
			Category:       string(message.UnusedIgnore),
			Message:        message.New(message.UnusedIgnore, pos, "", "").String(),
			SuggestedFixes: r.fixes.RemoveComment(pos),
		})
	}
}
