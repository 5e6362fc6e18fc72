// Package config holds the settings of one analyzer instance.
//
// Settings come from three places, applied in this order:
//
//  1. defaults ([Default])
//  2. a TOML file named by -config ([Load], [File.Apply])
//  3. command line flags and programmatic options
//
// A [Configuration] is read-only once a pass starts. The visitors it carries
// are shared by every pass of the analyzer.
package config

import (
	"log/slog"
	"regexp"

	"github.com/mpyw/e2immu/internal/analyser"
	"github.com/mpyw/e2immu/internal/primary"
	"github.com/mpyw/e2immu/internal/statement"
)

// Flag is one behaviour switch.
type Flag uint8

const (
	// SkipTransformations disables the rewriting of conditions into
	// preconditions and the pattern transformations of the statement walk.
	SkipTransformations Flag = 1 << iota

	// IncludeGenerated analyses files carrying a "Code generated" header.
	IncludeGenerated

	// ReportUnreachable reports statements after a return or panic.
	ReportUnreachable

	// ReportInferred reports the inferred annotations of every entity as
	// informational diagnostics.
	ReportInferred
)

var flagNames = [...]struct {
	flag Flag
	name string
}{
	{SkipTransformations, "skip-transformations"},
	{IncludeGenerated, "include-generated"},
	{ReportUnreachable, "report-unreachable"},
	{ReportInferred, "report-inferred"},
}

// Name returns the flag's key in the TOML file and on the command line.
func (f Flag) Name() string {
	for _, n := range flagNames {
		if n.flag == f {
			return n.name
		}
	}
	return "unknown"
}

// Configuration is the complete setting of an analyzer.
type Configuration struct {
	Behavior BitMask[Flag]

	// Debug selects the entities whose analysis is traced; nil traces nothing.
	Debug *regexp.Regexp

	// Store is the path the frozen analyses are written to; empty skips the write.
	Store string

	Logger *slog.Logger

	// Observers and Iterations are the debug visitors.
	Observers  []analyser.Observer
	Iterations []primary.IterationObserver
}

// Default returns the configuration used when nothing is set.
func Default() *Configuration {
	return &Configuration{
		Behavior: NewBitMask(ReportUnreachable),
		Logger:   slog.New(slog.DiscardHandler),
	}
}

// Walk returns the statement walk options.
func (c *Configuration) Walk() statement.Options {
	return statement.Options{
		SkipTransformations: c.Behavior.Enabled(SkipTransformations),
		ReportUnreachable:   c.Behavior.Enabled(ReportUnreachable),
	}
}

// Traced reports whether the entity with the given fully qualified name is
// selected by the debug filter.
func (c *Configuration) Traced(name string) bool {
	return c.Debug != nil && c.Debug.MatchString(name)
}

// LogValue implements [slog.LogValuer].
func (c *Configuration) LogValue() slog.Value {
	as := make([]slog.Attr, 0, len(flagNames)+2)
	for _, n := range flagNames {
		as = append(as, slog.Bool(n.name, c.Behavior.Enabled(n.flag)))
	}
	if c.Debug != nil {
		as = append(as, slog.String("debug", c.Debug.String()))
	}
	if c.Store != "" {
		as = append(as, slog.String("store", c.Store))
	}
	return slog.GroupValue(as...)
}
