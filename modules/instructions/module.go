// Package instructions provides the "instructions" custom stimulus: a page of
// text assembled from a list of lines, typically followed by a response
// window that waits for the participant to continue.
package instructions

import (
	"context"
	"errors"
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

// Build joins the `lines` param with newlines. The spec's content, if any,
// becomes the page title.
func Build(ctx context.Context, spec *stimulus.Spec, cfg *settings.Configuration) (stimulus.Presentable, error) {
	raw, ok := spec.Param("lines")
	if !ok {
		return nil, errors.New("param lines is required")
	}
	listVal, err := convert.Convert(raw, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("param lines must be a list of strings: %w", err)
	}
	var lines []string
	if err := gocty.FromCtyValue(listVal, &lines); err != nil {
		return nil, fmt.Errorf("param lines: %w", err)
	}

	if spec.Content != "" {
		lines = append([]string{spec.Content, ""}, lines...)
	}
	return &stimulus.Text{Content: strings.Join(lines, "\n"), Position: spec.Position}, nil
}

// Register registers the factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("instructions", Build)
}
