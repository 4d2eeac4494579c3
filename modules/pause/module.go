package pause

import (
	"context"

	"github.com/sloria/paradigm/internal/registry"
	"github.com/sloria/paradigm/internal/settings"
	"github.com/sloria/paradigm/internal/stimulus"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Build returns a blank screen; the spec's duration is the pause length.
func Build(context.Context, *stimulus.Spec, *settings.Configuration) (stimulus.Presentable, error) {
	return &stimulus.Blank{}, nil
}

// Register registers the factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("pause", Build)
}
