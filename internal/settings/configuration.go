package settings

import (
	"fmt"
	"io"
	"maps"
	"math"
	"reflect"
	"slices"
	"time"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Configuration is the merged, read-only settings of one run.
type Configuration struct {
	env    string
	values map[string]cty.Value
}

func newConfiguration(env string, values map[string]cty.Value) *Configuration {
	return &Configuration{env: env, values: values}
}

// Environment returns the name of the overlay the configuration was resolved for.
func (c *Configuration) Environment() string {
	return c.env
}

// Keys returns all setting names in sorted order.
func (c *Configuration) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Len returns the number of settings.
func (c *Configuration) Len() int {
	return len(c.values)
}

// Has reports whether key is defined.
func (c *Configuration) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Get returns the raw value of a setting.
func (c *Configuration) Get(key string) (cty.Value, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *Configuration) lookup(key string, want Kind) (cty.Value, error) {
	v, ok := c.values[key]
	if !ok {
		return cty.NilVal, fmt.Errorf("%w: %q", ErrMissingSetting, key)
	}
	if got := KindOf(v); got != want {
		return cty.NilVal, fmt.Errorf("%w: %q is %s, not %s", ErrWrongKind, key, got, want)
	}
	return v, nil
}

// String returns a string setting.
func (c *Configuration) String(key string) (string, error) {
	v, err := c.lookup(key, KindString)
	if err != nil {
		return "", err
	}
	return v.AsString(), nil
}

// Number returns a number setting as float64.
func (c *Configuration) Number(key string) (float64, error) {
	v, err := c.lookup(key, KindNumber)
	if err != nil {
		return 0, err
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// Int returns a number setting that must be a whole number.
func (c *Configuration) Int(key string) (int, error) {
	v, err := c.lookup(key, KindNumber)
	if err != nil {
		return 0, err
	}
	var i int
	if err := gocty.FromCtyValue(v, &i); err != nil {
		return 0, fmt.Errorf("setting %q: %w", key, err)
	}
	return i, nil
}

// Bool returns a bool setting.
func (c *Configuration) Bool(key string) (bool, error) {
	v, err := c.lookup(key, KindBool)
	if err != nil {
		return false, err
	}
	return v.True(), nil
}

// Duration interprets a number setting as seconds.
func (c *Configuration) Duration(key string) (time.Duration, error) {
	secs, err := c.Number(key)
	if err != nil {
		return 0, err
	}
	d, err := SecondsToDuration(secs)
	if err != nil {
		return 0, fmt.Errorf("setting %q: %w", key, err)
	}
	return d, nil
}

// maxSeconds is the longest duration, in seconds, a time.Duration can hold.
var maxSeconds = time.Duration(math.MaxInt64).Seconds()

// SecondsToDuration converts a number of seconds to a time.Duration. It fails
// for negative, non-finite and out of range values.
func SecondsToDuration(secs float64) (time.Duration, error) {
	if secs < 0 || math.IsNaN(secs) || secs >= maxSeconds {
		return 0, fmt.Errorf("duration must be between 0 and %.0f seconds, got %v", maxSeconds, secs)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Decode converts a setting into the Go value pointed to by target, using the
// same conversion rules as HCL argument decoding.
func (c *Configuration) Decode(key string, target any) error {
	v, ok := c.values[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingSetting, key)
	}
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("target for decoding must be a non-nil pointer, got %T", target)
	}
	ty, err := gocty.ImpliedType(ptr.Elem().Interface())
	if err != nil {
		return gocty.FromCtyValue(v, target)
	}
	converted, err := convert.Convert(v, ty)
	if err != nil {
		return fmt.Errorf("setting %q: cannot convert %s to %s: %w", key, v.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	return gocty.FromCtyValue(converted, target)
}

// Equal reports whether two configurations hold exactly the same settings for
// the same environment.
func (c *Configuration) Equal(other *Configuration) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.env != other.env || len(c.values) != len(other.values) {
		return false
	}
	for k, v := range c.values {
		ov, ok := other.values[k]
		if !ok || !v.RawEquals(ov) {
			return false
		}
	}
	return true
}

// Variables returns the settings as one object value, suitable for exposing
// them to HCL expressions.
func (c *Configuration) Variables() cty.Value {
	if len(c.values) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(maps.Clone(c.values))
}

// WriteHCL renders the configuration as an HCL settings file.
func (c *Configuration) WriteHCL(w io.Writer) error {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for _, key := range c.Keys() {
		body.SetAttributeValue(key, c.values[key])
	}
	_, err := w.Write(hclwrite.Format(f.Bytes()))
	return err
}
