// Package fixation provides the "fixation" custom stimulus: a fixation cross
// shown at the center of the screen between trials.
package fixation

import (
	"context"
	"fmt"

	"github.com/sloria/paradigm/internal/registry"
	"github.com/sloria/paradigm/internal/settings"
	"github.com/sloria/paradigm/internal/stimulus"
	"github.com/zclconf/go-cty/cty"
)

// DefaultSymbol is drawn when neither the stimulus nor the settings choose one.
const DefaultSymbol = "+"

// SymbolSetting is the settings key that overrides DefaultSymbol for a run.
const SymbolSetting = "fixation_symbol"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Build resolves the symbol from, in order, the `symbol` param, the
// fixation_symbol setting and DefaultSymbol.
func Build(ctx context.Context, spec *stimulus.Spec, cfg *settings.Configuration) (stimulus.Presentable, error) {
	symbol := DefaultSymbol
	if cfg != nil && cfg.Has(SymbolSetting) {
		s, err := cfg.String(SymbolSetting)
		if err != nil {
			return nil, err
		}
		symbol = s
	}
	if v, ok := spec.Param("symbol"); ok {
		if !v.Type().Equals(cty.String) || v.IsNull() {
			return nil, fmt.Errorf("param symbol must be a string")
		}
		symbol = v.AsString()
	}
	return &stimulus.Text{Content: symbol}, nil
}

// Register registers the factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("fixation", Build)
}
