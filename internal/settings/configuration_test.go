package settings

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func resolved(t *testing.T, values map[string]cty.Value) *Configuration {
	t.Helper()
	r, err := NewResolver(NewLayer("base", values), []Layer{NewLayer("dev", nil)})
	require.NoError(t, err)
	cfg, err := r.Resolve("dev")
	require.NoError(t, err)
	return cfg
}

func TestConfiguration_Accessors(t *testing.T) {
	t.Parallel()

	cfg := resolved(t, map[string]cty.Value{
		"title":             cty.StringVal("Stroop"),
		"fixation_duration": cty.NumberFloatVal(0.5),
		"n_runs":            cty.NumberIntVal(3),
		"fullscreen":        cty.True,
	})

	title, err := cfg.String("title")
	require.NoError(t, err)
	assert.Equal(t, "Stroop", title)

	d, err := cfg.Duration("fixation_duration")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)

	n, err := cfg.Int("n_runs")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := cfg.Number("fixation_duration")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 1e-9)

	_, err = cfg.Int("fixation_duration")
	assert.Error(t, err, "0.5 is not a whole number")

	_, err = cfg.String("n_runs")
	assert.ErrorIs(t, err, ErrWrongKind)

	_, err = cfg.Bool("missing")
	assert.ErrorIs(t, err, ErrMissingSetting)
}

func TestConfiguration_Duration(t *testing.T) {
	t.Parallel()

	cfg := resolved(t, map[string]cty.Value{
		"zero":     cty.Zero,
		"long":     cty.NumberIntVal(3600),
		"negative": cty.NumberIntVal(-1),
		"huge":     cty.NumberFloatVal(1e11),
		"enormous": cty.NumberFloatVal(1e300),
	})

	tests := map[string]struct {
		want    time.Duration
		wantErr bool
	}{
		"zero":     {want: 0},
		"long":     {want: time.Hour},
		"negative": {wantErr: true},
		"huge":     {wantErr: true},
		"enormous": {wantErr: true},
	}
	for key, tc := range tests {
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			d, err := cfg.Duration(key)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, d)
		})
	}
}

func TestConfiguration_Decode(t *testing.T) {
	t.Parallel()

	cfg := resolved(t, map[string]cty.Value{
		"window_dimensions": cty.TupleVal([]cty.Value{cty.NumberIntVal(800), cty.NumberIntVal(600)}),
	})

	var dims []int
	require.NoError(t, cfg.Decode("window_dimensions", &dims))
	assert.Equal(t, []int{800, 600}, dims)

	var s string
	assert.Error(t, cfg.Decode("window_dimensions", &s))
	assert.ErrorIs(t, cfg.Decode("nope", &s), ErrMissingSetting)
	assert.Error(t, cfg.Decode("window_dimensions", dims), "non-pointer target")
}

func TestConfiguration_WriteHCL(t *testing.T) {
	t.Parallel()

	cfg := resolved(t, map[string]cty.Value{
		"screen_width": cty.NumberIntVal(1024),
		"fullscreen":   cty.False,
		"env_name":     cty.StringVal("dev"),
	})

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteHCL(&buf))

	out := buf.String()
	assert.Contains(t, out, "screen_width = 1024")
	assert.Contains(t, out, "fullscreen   = false")
	assert.Contains(t, out, `env_name     = "dev"`)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("env_name")), bytes.Index(buf.Bytes(), []byte("screen_width")))
}

func TestConfiguration_Equal(t *testing.T) {
	t.Parallel()

	a := resolved(t, map[string]cty.Value{"x": cty.NumberIntVal(1)})
	b := resolved(t, map[string]cty.Value{"x": cty.NumberIntVal(1)})
	c := resolved(t, map[string]cty.Value{"x": cty.NumberIntVal(2)})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		val  cty.Value
		want Kind
	}{
		{cty.NumberIntVal(1), KindNumber},
		{cty.StringVal("a"), KindString},
		{cty.True, KindBool},
		{cty.ListValEmpty(cty.String), KindList},
		{cty.EmptyTupleVal, KindList},
		{cty.SetVal([]cty.Value{cty.StringVal("a")}), KindList},
		{cty.MapValEmpty(cty.Number), KindMap},
		{cty.EmptyObjectVal, KindMap},
		{cty.NullVal(cty.String), KindInvalid},
		{cty.NilVal, KindInvalid},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, KindOf(tc.val), "%#v", tc.val)
	}
}
