package gclplugin

import (
	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"

	"github.com/mpyw/e2immu"
)

func init() { register.Plugin("e2immu", New) }

// New decodes the plugin settings.
func New(rawSettings any) (register.LinterPlugin, error) {
	settings, err := register.DecodeSettings[Settings](rawSettings)
	if err != nil {
		return nil, err
	}
	return Plugin{settings: settings}, nil
}

// Plugin is the golangci-lint view of the analyzer.
type Plugin struct {
	settings Settings
}

// GetLoadMode asks for type information; SSA is built by the analyzer itself.
func (Plugin) GetLoadMode() string {
	return register.LoadModeTypesInfo
}

func (p Plugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	// golangci-lint filters generated files on its own
	opts := append(p.settings.Options(), e2immu.WithGenerated(true))
	return []*analysis.Analyzer{e2immu.New(opts...)}, nil
}
