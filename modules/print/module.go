// Package print provides the "print" custom stimulus: a page listing
// resolved settings as `key = value` lines, for the operator to check the
// environment before the participant starts.
package print

import (
	"context"
	"fmt"
	"strings"

	"github.com/sloria/paradigm/internal/registry"
	"github.com/sloria/paradigm/internal/settings"
	"github.com/sloria/paradigm/internal/stimulus"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Build lists the settings named by the `keys` param, or every setting when
// the param is absent. The spec's content, if any, is the first line.
func Build(ctx context.Context, spec *stimulus.Spec, cfg *settings.Configuration) (stimulus.Presentable, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no settings to print")
	}

	keys := cfg.Keys()
	if raw, ok := spec.Param("keys"); ok {
		listVal, err := convert.Convert(raw, cty.List(cty.String))
		if err != nil {
			return nil, fmt.Errorf("param keys must be a list of strings: %w", err)
		}
		keys = nil
		if err := gocty.FromCtyValue(listVal, &keys); err != nil {
			return nil, fmt.Errorf("param keys: %w", err)
		}
	}

	var lines []string
	if spec.Content != "" {
		lines = append(lines, spec.Content)
	}
	for _, k := range keys {
		v, ok := cfg.Get(k)
		if !ok {
			lines = append(lines, fmt.Sprintf("%s = (null)", k))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s = %s", k, formatValue(v)))
	}
	return &stimulus.Text{Content: strings.Join(lines, "\n"), Position: spec.Position}, nil
}

func formatValue(v cty.Value) string {
	if v.IsNull() {
		return "(null)"
	}
	if !v.IsKnown() {
		return "(unknown)"
	}
	switch settings.KindOf(v) {
	case settings.KindString:
		return fmt.Sprintf("%q", v.AsString())
	case settings.KindNumber:
		return v.AsBigFloat().Text('f', -1)
	case settings.KindBool:
		return fmt.Sprintf("%t", v.True())
	case settings.KindList, settings.KindMap:
		var parts []string
		for it := v.ElementIterator(); it.Next(); {
			k, e := it.Element()
			if v.Type().IsObjectType() || v.Type().IsMapType() {
				parts = append(parts, fmt.Sprintf("%s = %s", k.AsString(), formatValue(e)))
			} else {
				parts = append(parts, formatValue(e))
			}
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.GoString()
	}
}

// Register registers the factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("print", Build)
}
