package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func mustLayer(t *testing.T, name string, values map[string]any) Layer {
	t.Helper()
	l, err := LayerFromGo(name, values)
	require.NoError(t, err)
	return l
}

func TestResolve_MRIOverridesFullscreen(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	base := mustLayer(t, "base", map[string]any{"screen_width": 1024, "fullscreen": false})
	mri := mustLayer(t, "mri", map[string]any{"fullscreen": true})
	r, err := NewResolver(base, []Layer{mri})
	require.NoError(t, err)

	// --- Act ---
	cfg, err := r.Resolve("mri")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"fullscreen", "screen_width"}, cfg.Keys())
	width, err := cfg.Int("screen_width")
	require.NoError(t, err)
	assert.Equal(t, 1024, width)
	fullscreen, err := cfg.Bool("fullscreen")
	require.NoError(t, err)
	assert.True(t, fullscreen)
	assert.Equal(t, "mri", cfg.Environment())
}

func TestResolve_KeepsEveryBaseKeyAndAddsOverlayKeys(t *testing.T) {
	t.Parallel()

	base := mustLayer(t, "base", map[string]any{
		"test":          false,
		"mouse_visible": false,
		"logging_level": "info",
	})
	overlays := []Layer{
		mustLayer(t, "dev", map[string]any{"logging_level": "debug", "n_runs": 1, "window_dimensions": []int{800, 600}}),
		mustLayer(t, "mri", map[string]any{"window_dimensions": "full_screen", "button_box_rate": 19200}),
		mustLayer(t, "sim", map[string]any{}),
	}
	r, err := NewResolver(base, overlays)
	require.NoError(t, err)

	for _, overlay := range overlays {
		t.Run(overlay.Name, func(t *testing.T) {
			cfg, err := r.Resolve(overlay.Name)
			require.NoError(t, err)

			for _, key := range base.Keys() {
				assert.True(t, cfg.Has(key), "base key %q missing", key)
			}
			for key, want := range overlay.Values {
				got, ok := cfg.Get(key)
				require.True(t, ok, "overlay key %q missing", key)
				assert.True(t, want.RawEquals(got), "key %q: want %#v, got %#v", key, want, got)
			}
		})
	}
}

func TestResolve_UnknownEnvironment(t *testing.T) {
	t.Parallel()

	base := mustLayer(t, "base", map[string]any{"a": 1})
	r, err := NewResolver(base, []Layer{mustLayer(t, "dev", nil)})
	require.NoError(t, err)

	for _, env := range []string{"", "prod", "DEV", "base"} {
		cfg, err := r.Resolve(env)
		require.ErrorIs(t, err, ErrUnknownEnvironment, "env %q", env)
		assert.Nil(t, cfg)
	}
}

func TestResolve_InvalidOverrideIsAtomic(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	base := mustLayer(t, "base", map[string]any{"screen_width": 1024, "title": "exp"})
	bad := mustLayer(t, "bad", map[string]any{
		"screen_width": "wide",
		"title":        "changed",
		"extra":        true,
	})
	r, err := NewResolver(base, []Layer{bad})
	require.NoError(t, err)

	// --- Act ---
	cfg, err := r.Resolve("bad")

	// --- Assert ---
	require.ErrorIs(t, err, ErrInvalidOverride)
	assert.Nil(t, cfg)

	var oe *OverrideError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "screen_width", oe.Key)
	assert.Equal(t, KindNumber, oe.Base)
	assert.Equal(t, KindString, oe.Overlay)

	// The resolver's base layer is untouched.
	assert.True(t, cty.NumberIntVal(1024).RawEquals(r.base.Values["screen_width"]))
	assert.True(t, cty.StringVal("exp").RawEquals(r.base.Values["title"]))
	_, leaked := r.base.Values["extra"]
	assert.False(t, leaked)
}

func TestResolve_ReportsEveryInvalidOverride(t *testing.T) {
	t.Parallel()

	base := mustLayer(t, "base", map[string]any{"a": 1, "b": true, "c": "x"})
	bad := mustLayer(t, "bad", map[string]any{"a": "1", "b": 0, "c": "ok"})
	r, err := NewResolver(base, []Layer{bad})
	require.NoError(t, err)

	_, err = r.Resolve("bad")
	require.ErrorIs(t, err, ErrInvalidOverride)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"b"`)
	assert.NotContains(t, err.Error(), `"c"`)
}

func TestResolve_CollectionsCompareByKind(t *testing.T) {
	t.Parallel()

	base := NewLayer("base", map[string]cty.Value{
		"dims":   cty.TupleVal([]cty.Value{cty.NumberIntVal(800), cty.NumberIntVal(600)}),
		"labels": cty.ObjectVal(map[string]cty.Value{"left": cty.StringVal("L")}),
	})
	overlay := NewLayer("mri", map[string]cty.Value{
		"dims":   cty.ListVal([]cty.Value{cty.NumberIntVal(1920), cty.NumberIntVal(1080)}),
		"labels": cty.MapVal(map[string]cty.Value{"right": cty.StringVal("R")}),
	})
	r, err := NewResolver(base, []Layer{overlay})
	require.NoError(t, err)

	cfg, err := r.Resolve("mri")
	require.NoError(t, err)

	// Replace, not deep merge: the base "left" label is gone.
	labels, _ := cfg.Get("labels")
	assert.True(t, overlay.Values["labels"].RawEquals(labels))
}

func TestResolve_ShallowMapPolicy(t *testing.T) {
	t.Parallel()

	base := NewLayer("base", map[string]cty.Value{
		"labels": cty.ObjectVal(map[string]cty.Value{"left": cty.StringVal("L"), "right": cty.StringVal("R")}),
		"dims":   cty.TupleVal([]cty.Value{cty.NumberIntVal(800), cty.NumberIntVal(600)}),
	})
	overlay := NewLayer("dev", map[string]cty.Value{
		"labels": cty.ObjectVal(map[string]cty.Value{"right": cty.StringVal("Right")}),
		"dims":   cty.TupleVal([]cty.Value{cty.NumberIntVal(1024)}),
	})
	r, err := NewResolver(base, []Layer{overlay}, WithMergePolicy(MergeShallowMap))
	require.NoError(t, err)

	cfg, err := r.Resolve("dev")
	require.NoError(t, err)

	var labels map[string]string
	require.NoError(t, cfg.Decode("labels", &labels))
	assert.Equal(t, map[string]string{"left": "L", "right": "Right"}, labels)

	var dims []int
	require.NoError(t, cfg.Decode("dims", &dims))
	assert.Equal(t, []int{1024}, dims)
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	base := mustLayer(t, "base", map[string]any{"a": 1, "b": []string{"x", "y"}, "c": map[string]int{"k": 2}})
	dev := mustLayer(t, "dev", map[string]any{"a": 2, "d": "new"})
	r, err := NewResolver(base, []Layer{dev})
	require.NoError(t, err)

	first, err := r.Resolve("dev")
	require.NoError(t, err)
	second, err := r.Resolve("dev")
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.True(t, first.Variables().RawEquals(second.Variables()))
}

func TestResolve_CallerMutationDoesNotLeak(t *testing.T) {
	t.Parallel()

	baseValues := map[string]cty.Value{"a": cty.NumberIntVal(1)}
	r, err := NewResolver(NewLayer("base", baseValues), []Layer{NewLayer("dev", nil)})
	require.NoError(t, err)

	baseValues["a"] = cty.StringVal("changed")
	baseValues["b"] = cty.True

	cfg, err := r.Resolve("dev")
	require.NoError(t, err)
	a, err := cfg.Int("a")
	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.False(t, cfg.Has("b"))
}

func TestNewResolver_RejectsInvalidLayers(t *testing.T) {
	t.Parallel()

	valid := NewLayer("base", map[string]cty.Value{"a": cty.NumberIntVal(1)})

	tests := []struct {
		name     string
		base     Layer
		overlays []Layer
		wantMsg  string
	}{
		{
			name: "null base value",
			base: NewLayer("base", map[string]cty.Value{"a": cty.NullVal(cty.String)}),
		},
		{
			name: "unknown overlay value",
			base: valid,
			overlays: []Layer{
				NewLayer("dev", map[string]cty.Value{"a": cty.UnknownVal(cty.Number)}),
			},
		},
		{
			name: "unknown value names its source file",
			base: valid,
			overlays: []Layer{
				{Name: "dev", Source: "settings/dev.hcl", Values: map[string]cty.Value{"a": cty.UnknownVal(cty.Number)}},
			},
			wantMsg: "layer dev (settings/dev.hcl), setting \"a\" is not a constant value",
		},
		{
			name: "null list element",
			base: NewLayer("base", map[string]cty.Value{
				"a": cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NullVal(cty.DynamicPseudoType)}),
			}),
			wantMsg: "setting \"a\" has a null element at [1]",
		},
		{
			name: "null map value",
			base: valid,
			overlays: []Layer{
				NewLayer("dev", map[string]cty.Value{
					"a": cty.ObjectVal(map[string]cty.Value{"width": cty.NullVal(cty.Number)}),
				}),
			},
			wantMsg: "setting \"a\" has a null element at .width",
		},
		{
			name:     "unnamed overlay",
			base:     valid,
			overlays: []Layer{NewLayer("", nil)},
		},
		{
			name:     "duplicate overlay",
			base:     valid,
			overlays: []Layer{NewLayer("dev", nil), NewLayer("dev", nil)},
		},
		{
			name:     "overlay named like base",
			base:     valid,
			overlays: []Layer{NewLayer("base", nil)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewResolver(tc.base, tc.overlays)
			require.ErrorIs(t, err, ErrInvalidLayer)
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestEnvironments_Sorted(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(NewLayer("base", nil), []Layer{NewLayer("sim", nil), NewLayer("dev", nil), NewLayer("mri", nil)})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "mri", "sim"}, r.Environments())
}
