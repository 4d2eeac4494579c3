package settings

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Layer is a named set of settings: the base layer or one environment overlay.
type Layer struct {
	Name   string
	Source string // file the layer was loaded from, empty for layers built in Go
	Values map[string]cty.Value
}

// NewLayer creates a layer from cty values.
func NewLayer(name string, values map[string]cty.Value) Layer {
	return Layer{Name: name, Values: values}
}

// LayerFromGo builds a layer from native Go values, inferring a cty type for
// each one. Values whose type cannot be inferred (for example untyped `any`
// slices) are rejected.
func LayerFromGo(name string, values map[string]any) (Layer, error) {
	out := make(map[string]cty.Value, len(values))
	for key, v := range values {
		val, err := toCtyValue(v)
		if err != nil {
			return Layer{}, fmt.Errorf("%w: layer %q, setting %q: %w", ErrInvalidLayer, name, key, err)
		}
		out[key] = val
	}
	return NewLayer(name, out), nil
}

func toCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, fmt.Errorf("value is nil")
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}

// Keys returns the layer's setting names in sorted order.
func (l Layer) Keys() []string {
	return slices.Sorted(maps.Keys(l.Values))
}

// validate checks that every value in the layer has a usable kind and is a
// constant with no null elements.
func (l Layer) validate() error {
	where := l.Name
	if l.Source != "" {
		where = fmt.Sprintf("%s (%s)", l.Name, l.Source)
	}
	for _, key := range l.Keys() {
		val := l.Values[key]
		if KindOf(val) == KindInvalid {
			return fmt.Errorf("%w: layer %s, setting %q must be a number, string, bool, list or map", ErrInvalidLayer, where, key)
		}
		if !val.IsWhollyKnown() {
			return fmt.Errorf("%w: layer %s, setting %q is not a constant value", ErrInvalidLayer, where, key)
		}
		if path, ok := findNull(val); ok {
			return fmt.Errorf("%w: layer %s, setting %q has a null element at %s", ErrInvalidLayer, where, key, formatPath(path))
		}
	}
	return nil
}

// findNull reports the path of the first null element nested in v.
func findNull(v cty.Value) (cty.Path, bool) {
	var found cty.Path
	_ = cty.Walk(v, func(path cty.Path, v cty.Value) (bool, error) {
		if found != nil {
			return false, nil
		}
		if v.IsNull() {
			found = path.Copy()
			return false, nil
		}
		return true, nil
	})
	return found, found != nil
}

func formatPath(path cty.Path) string {
	var b strings.Builder
	for _, step := range path {
		switch s := step.(type) {
		case cty.IndexStep:
			switch {
			case s.Key.Type() == cty.String:
				fmt.Fprintf(&b, "[%q]", s.Key.AsString())
			case s.Key.Type() == cty.Number:
				fmt.Fprintf(&b, "[%s]", s.Key.AsBigFloat().Text('f', -1))
			default:
				b.WriteString("[*]") // set element
			}
		case cty.GetAttrStep:
			fmt.Fprintf(&b, ".%s", s.Name)
		}
	}
	return b.String()
}

// clone returns a copy of the layer whose map is not shared with the caller.
func (l Layer) clone() Layer {
	return Layer{Name: l.Name, Source: l.Source, Values: maps.Clone(l.Values)}
}
