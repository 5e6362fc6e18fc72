package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrUnknownKey is returned when a configuration file holds a key this
// version does not know.
var ErrUnknownKey = errors.New("unknown configuration key")

// File is the content of an e2immu.toml file. Absent keys leave the
// configuration unchanged.
type File struct {
	SkipTransformations *bool   `toml:"skip-transformations"`
	IncludeGenerated    *bool   `toml:"include-generated"`
	ReportUnreachable   *bool   `toml:"report-unreachable"`
	ReportInferred      *bool   `toml:"report-inferred"`
	Debug               *string `toml:"debug"`
	Store               *string `toml:"store"`
}

// Load decodes the TOML file at path.
func Load(path string) (File, error) {
	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return f, checkKeys(path, meta)
}

// Parse decodes TOML text, for tests and embedded defaults.
func Parse(text string) (File, error) {
	var f File
	meta, err := toml.Decode(text, &f)
	if err != nil {
		return File{}, fmt.Errorf("parsing configuration: %w", err)
	}
	return f, checkKeys("configuration", meta)
}

func checkKeys(source string, meta toml.MetaData) error {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	return fmt.Errorf("%s: %w: %s", source, ErrUnknownKey, strings.Join(keys, ", "))
}

// Apply copies the keys present in f to c.
func (f File) Apply(c *Configuration) error {
	for flag, v := range map[Flag]*bool{
		SkipTransformations: f.SkipTransformations,
		IncludeGenerated:    f.IncludeGenerated,
		ReportUnreachable:   f.ReportUnreachable,
		ReportInferred:      f.ReportInferred,
	} {
		if v != nil {
			c.Behavior.Set(flag, *v)
		}
	}
	if f.Debug != nil {
		re, err := CompileFilter(*f.Debug)
		if err != nil {
			return err
		}
		c.Debug = re
	}
	if f.Store != nil {
		c.Store = *f.Store
	}
	return nil
}

// CompileFilter compiles a debug filter; the empty string disables tracing.
func CompileFilter(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid debug filter: %w", err)
	}
	return re, nil
}
