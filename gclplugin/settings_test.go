package gclplugin_test

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/mpyw/e2immu"
	. "github.com/mpyw/e2immu/gclplugin"
)

const allSettings = `{
	"config": "e2immu.toml",
	"report-unreachable": true,
	"report-inferred": false,
	"skip-transformations": true,
	"store": "out"
}`

func TestSettings(t *testing.T) {
	t.Parallel()

	testCases := [...]struct {
		name     string
		settings string
		want     int
	}{
		{"all", allSettings, reflect.TypeFor[Settings]().NumField()},
		{"none", `{}`, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dec := json.NewDecoder(strings.NewReader(tc.settings))
			dec.DisallowUnknownFields()

			var s Settings
			if err := dec.Decode(&s); err != nil {
				t.Fatalf("Can't decode settings: %v", err)
			}

			if got := s.Options(); len(got) != tc.want {
				t.Errorf("Got %d options: %s, want %d", len(got), e2immu.Options(got).LogValue(), tc.want)
			}
		})
	}
}

func TestPlugin(t *testing.T) {
	t.Parallel()

	p, err := New(map[string]any{"report-inferred": true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	analyzers, err := p.BuildAnalyzers()
	if err != nil {
		t.Fatalf("BuildAnalyzers() error = %v", err)
	}
	if len(analyzers) != 1 || analyzers[0].Name != "e2immu" {
		t.Errorf("BuildAnalyzers() = %v, want the e2immu analyzer", analyzers)
	}
}
