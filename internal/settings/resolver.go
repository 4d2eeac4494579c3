package settings

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// MergePolicy selects how an overlay value replaces a base value.
type MergePolicy int

const (
	// MergeReplace replaces the base value wholesale. Collections are never
	// merged element by element.
	MergeReplace MergePolicy = iota

	// MergeShallowMap merges map-valued settings one level deep: keys of the
	// overlay map replace keys of the base map, other base keys are kept.
	// All other kinds are replaced as with MergeReplace.
	MergeShallowMap
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithMergePolicy sets the merge policy. The default is MergeReplace.
func WithMergePolicy(p MergePolicy) Option {
	return func(r *Resolver) {
		r.policy = p
	}
}

// Resolver holds the base layer and the registered overlays.
type Resolver struct {
	base     Layer
	overlays map[string]Layer
	policy   MergePolicy
}

// NewResolver registers a base layer and its environment overlays. Layers are
// copied, so later changes to the caller's maps do not affect resolution.
func NewResolver(base Layer, overlays []Layer, opts ...Option) (*Resolver, error) {
	if base.Name == "" {
		base.Name = "base"
	}
	if err := base.validate(); err != nil {
		return nil, err
	}

	r := &Resolver{
		base:     base.clone(),
		overlays: make(map[string]Layer, len(overlays)),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, overlay := range overlays {
		if overlay.Name == "" {
			return nil, fmt.Errorf("%w: overlay has no name", ErrInvalidLayer)
		}
		if overlay.Name == base.Name {
			return nil, fmt.Errorf("%w: overlay %q has the same name as the base layer", ErrInvalidLayer, overlay.Name)
		}
		if _, exists := r.overlays[overlay.Name]; exists {
			return nil, fmt.Errorf("%w: overlay %q registered twice", ErrInvalidLayer, overlay.Name)
		}
		if err := overlay.validate(); err != nil {
			return nil, err
		}
		r.overlays[overlay.Name] = overlay.clone()
	}
	return r, nil
}

// Environments returns the names of the registered overlays, sorted.
func (r *Resolver) Environments() []string {
	return slices.Sorted(maps.Keys(r.overlays))
}

// Resolve merges the overlay registered as env into a copy of the base layer.
//
// Every overlay key that also exists in the base is checked against the base
// kind before anything is merged, so either the whole overlay applies or no
// Configuration is returned. Overlay keys unknown to the base are added as is.
func (r *Resolver) Resolve(env string) (*Configuration, error) {
	overlay, ok := r.overlays[env]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownEnvironment, env, strings.Join(r.Environments(), ", "))
	}

	var errs []error
	for _, key := range overlay.Keys() {
		baseVal, inBase := r.base.Values[key]
		if !inBase {
			continue
		}
		baseKind, overlayKind := KindOf(baseVal), KindOf(overlay.Values[key])
		if baseKind != overlayKind {
			errs = append(errs, &OverrideError{
				Environment: env,
				Key:         key,
				Base:        baseKind,
				Overlay:     overlayKind,
			})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	merged := maps.Clone(r.base.Values)
	if merged == nil {
		merged = make(map[string]cty.Value, len(overlay.Values))
	}
	for key, val := range overlay.Values {
		baseVal, inBase := merged[key]
		if inBase && r.policy == MergeShallowMap && KindOf(val) == KindMap {
			val = mergeMaps(baseVal, val)
		}
		merged[key] = val
	}

	return newConfiguration(env, merged), nil
}

// mergeMaps overlays the elements of over onto base. Both must be of KindMap.
// The result is an object so that elements of different types can coexist.
func mergeMaps(base, over cty.Value) cty.Value {
	out := make(map[string]cty.Value)
	for k, v := range base.AsValueMap() {
		out[k] = v
	}
	for k, v := range over.AsValueMap() {
		out[k] = v
	}
	return cty.ObjectVal(out)
}
