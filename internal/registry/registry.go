package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/sloria/paradigm/internal/settings"
	"github.com/sloria/paradigm/internal/stimulus"
)

// ErrUnknownStimulusKind is returned by Build for a spec whose kind, or whose
// custom factory name, has nothing registered.
var ErrUnknownStimulusKind = errors.New("unknown stimulus kind")

// ErrInvalidStimulus is returned by Build when a spec cannot be turned into a
// presentable, for example an image without a path.
var ErrInvalidStimulus = errors.New("invalid stimulus")

// Factory builds the presentable for a custom spec.
type Factory func(ctx context.Context, spec *stimulus.Spec, cfg *settings.Configuration) (stimulus.Presentable, error)

// Module is the interface that every stimulus module implements to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the custom stimulus factories of one application instance.
type Registry struct {
	factories map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a custom factory under name.
func (r *Registry) Register(name string, f Factory) {
	if name == "" || f == nil {
		panic("registry: factory name and function are required")
	}
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("stimulus factory with name '%s' already registered", name))
	}
	slog.Debug("Registering stimulus factory.", "name", name)
	r.factories[name] = f
}

// RegisterModules calls Register on every module.
func (r *Registry) RegisterModules(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// Names returns the registered custom factory names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.factories))
}

// Has reports whether a custom factory is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Build resolves a spec to its presentable.
func (r *Registry) Build(ctx context.Context, spec *stimulus.Spec, cfg *settings.Configuration) (stimulus.Presentable, error) {
	switch spec.Kind {
	case stimulus.KindText:
		return &stimulus.Text{Content: spec.Content, Position: spec.Position}, nil

	case stimulus.KindImage:
		if spec.Content == "" {
			return nil, fmt.Errorf("%w: image %q has no path", ErrInvalidStimulus, spec.Name)
		}
		return &stimulus.Image{Path: spec.Content, Position: spec.Position}, nil

	case stimulus.KindCustom:
		f, ok := r.factories[spec.Factory]
		if !ok {
			return nil, fmt.Errorf("%w: no factory registered as %q (registered: %v)", ErrUnknownStimulusKind, spec.Factory, r.Names())
		}
		p, err := callFactory(ctx, f, spec, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: factory %q: %w", ErrInvalidStimulus, spec.Factory, err)
		}
		if p == nil {
			return nil, fmt.Errorf("%w: factory %q returned no stimulus", ErrInvalidStimulus, spec.Factory)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStimulusKind, spec.Kind)
	}
}

// callFactory runs f, turning a panic into an error so that a faulty factory
// ends the run like any other failed stimulus.
func callFactory(ctx context.Context, f Factory, spec *stimulus.Spec, cfg *settings.Configuration) (p stimulus.Presentable, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("factory panicked: %v", r)
		}
	}()
	return f(ctx, spec, cfg)
}
