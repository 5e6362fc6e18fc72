package e2immu

import (
	"log/slog"
	"regexp"

	"github.com/mpyw/e2immu/internal/config"
)

// Option configures an analyzer built by [New].
type Option interface {
	apply(c *config.Configuration)
	LogAttr() slog.Attr
}

// Options is a list of [Option] values that itself satisfies [Option].
type Options []Option

// LogValue implements [slog.LogValuer].
func (o Options) LogValue() slog.Value {
	as := make([]slog.Attr, 0, len(o))
	as = appendOptions(as, o)
	return slog.GroupValue(as...)
}

func appendOptions(as []slog.Attr, o Options) []slog.Attr {
	for _, opt := range o {
		switch opt := opt.(type) {
		case nil:
			as = append(as, slog.String("nil", "<nil>"))
		case Options:
			as = appendOptions(as, opt)
		default:
			as = append(as, opt.LogAttr())
		}
	}
	return as
}

func (o Options) apply(c *config.Configuration) {
	for _, opt := range o {
		if opt != nil {
			opt.apply(c)
		}
	}
}

// LogAttr is for logging with [slog.Logger.LogAttrs].
func (o Options) LogAttr() slog.Attr { return slog.Any("options", o) }

// WithGenerated analyses generated files too.
func WithGenerated(generated bool) Option {
	return flagOption{flag: config.IncludeGenerated, value: generated}
}

// WithReportUnreachable reports statements that can never run.
func WithReportUnreachable(report bool) Option {
	return flagOption{flag: config.ReportUnreachable, value: report}
}

// WithReportInferred reports the inferred annotations of every entity.
func WithReportInferred(report bool) Option {
	return flagOption{flag: config.ReportInferred, value: report}
}

// WithSkipTransformations turns off precondition extraction and pattern rewriting.
func WithSkipTransformations(skip bool) Option {
	return flagOption{flag: config.SkipTransformations, value: skip}
}

type flagOption struct {
	flag  config.Flag
	value bool
}

func (o flagOption) apply(c *config.Configuration) { c.Behavior.Set(o.flag, o.value) }

func (o flagOption) LogAttr() slog.Attr { return slog.Bool(o.flag.Name(), o.value) }

// WithDebug traces the analysis of the entities whose fully qualified name
// matches filter. A nil filter turns tracing off.
func WithDebug(filter *regexp.Regexp) Option { return debugOption{filter: filter} }

type debugOption struct{ filter *regexp.Regexp }

func (o debugOption) apply(c *config.Configuration) { c.Debug = o.filter }

func (o debugOption) LogAttr() slog.Attr {
	if o.filter == nil {
		return slog.String("debug", "")
	}
	return slog.String("debug", o.filter.String())
}

// WithStore writes the frozen analyses of every package to dir.
func WithStore(dir string) Option { return storeOption{dir: dir} }

type storeOption struct{ dir string }

func (o storeOption) apply(c *config.Configuration) { c.Store = o.dir }

func (o storeOption) LogAttr() slog.Attr { return slog.String("store", o.dir) }

// WithLogger sets the logger of the engine; it logs at debug level.
func WithLogger(logger *slog.Logger) Option { return loggerOption{logger: logger} }

type loggerOption struct{ logger *slog.Logger }

func (o loggerOption) apply(c *config.Configuration) {
	if o.logger != nil {
		c.Logger = o.logger
	}
}

func (o loggerOption) LogAttr() slog.Attr { return slog.Bool("logger", o.logger != nil) }

// WithConfigFile applies the settings of a TOML file. A file that cannot be
// read is logged and otherwise ignored.
func WithConfigFile(path string) Option { return fileOption{path: path} }

type fileOption struct{ path string }

func (o fileOption) apply(c *config.Configuration) {
	if err := loadFile(c, o.path); err != nil {
		c.Logger.Warn("configuration file ignored", slog.String("path", o.path), slog.Any("error", err))
	}
}

func (o fileOption) LogAttr() slog.Attr { return slog.String("config", o.path) }

func loadFile(c *config.Configuration, path string) error {
	f, err := config.Load(path)
	if err != nil {
		return err
	}
	return f.Apply(c)
}
