package gclplugin

import "github.com/mpyw/e2immu"

// Settings are the e2immu settings in .golangci.yaml.
type Settings struct {
	// Config is the path of an e2immu.toml file, applied before the other settings.
	Config *string `json:"config,omitzero"`
	// ReportUnreachable reports statements that can never run.
	ReportUnreachable *bool `json:"report-unreachable,omitzero"`
	// ReportInferred reports the inferred annotations of every entity.
	ReportInferred *bool `json:"report-inferred,omitzero"`
	// SkipTransformations turns off precondition extraction and pattern rewriting.
	SkipTransformations *bool `json:"skip-transformations,omitzero"`
	// Store is the directory the frozen analyses are written to.
	Store *string `json:"store,omitzero"`
}

// Options converts the settings to analyzer options.
func (s Settings) Options() []e2immu.Option {
	var opts []e2immu.Option

	opts = appendOption(opts, s.Config, e2immu.WithConfigFile)
	opts = appendOption(opts, s.ReportUnreachable, e2immu.WithReportUnreachable)
	opts = appendOption(opts, s.ReportInferred, e2immu.WithReportInferred)
	opts = appendOption(opts, s.SkipTransformations, e2immu.WithSkipTransformations)
	opts = appendOption(opts, s.Store, e2immu.WithStore)

	return opts
}

func appendOption[T any](opts []e2immu.Option, value *T, constructor func(T) e2immu.Option) []e2immu.Option {
	if value == nil {
		return opts
	}
	return append(opts, constructor(*value))
}
