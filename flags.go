package e2immu

import (
	"flag"
	"strconv"

	"github.com/mpyw/e2immu/internal/config"
)

// registerFlags binds the configuration to command line flags. Flags are
// applied in command line order, so flags after -config override the file.
func registerFlags(flags *flag.FlagSet, c *config.Configuration) {
	for _, f := range [...]struct {
		flag  config.Flag
		usage string
	}{
		{config.IncludeGenerated, "analyse generated files"},
		{config.ReportUnreachable, "report unreachable statements"},
		{config.ReportInferred, "report the inferred annotations of every entity"},
		{config.SkipTransformations, "turn off precondition extraction and pattern rewriting"},
	} {
		flags.Var(boolValue{c: c, flag: f.flag}, f.flag.Name(), f.usage)
	}
	flags.Var(debugValue{c: c}, "debug", "trace the analysis of entities matching this regexp")
	flags.StringVar(&c.Store, "store", c.Store, "write the frozen analyses to this directory")
	flags.Var(fileValue{c: c}, "config", "read settings from this TOML file")
}

// boolValue is a boolean flag backed by one bit of the behaviour mask.
type boolValue struct {
	c    *config.Configuration
	flag config.Flag
}

// Set implements [flag.Value].
func (v boolValue) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	v.c.Behavior.Set(v.flag, b)
	return nil
}

// String implements [flag.Value].
func (v boolValue) String() string {
	if v.c == nil {
		return "false"
	}
	return strconv.FormatBool(v.c.Behavior.Enabled(v.flag))
}

// Get implements [flag.Getter].
func (v boolValue) Get() any { return v.c != nil && v.c.Behavior.Enabled(v.flag) }

// IsBoolFlag marks the flag as boolean.
func (boolValue) IsBoolFlag() bool { return true }

type debugValue struct{ c *config.Configuration }

func (v debugValue) Set(s string) error {
	re, err := config.CompileFilter(s)
	if err != nil {
		return err
	}
	v.c.Debug = re
	return nil
}

func (v debugValue) String() string {
	if v.c == nil || v.c.Debug == nil {
		return ""
	}
	return v.c.Debug.String()
}

type fileValue struct{ c *config.Configuration }

func (v fileValue) Set(s string) error { return loadFile(v.c, s) }

func (v fileValue) String() string { return "" }
