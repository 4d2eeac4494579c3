package settings

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEnvironment is returned by Resolve when no overlay is
	// registered under the requested environment name.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrInvalidOverride is returned by Resolve when an overlay redefines a
	// base setting with a value of a different kind.
	ErrInvalidOverride = errors.New("invalid override")

	// ErrInvalidLayer is returned when a layer cannot be registered.
	ErrInvalidLayer = errors.New("invalid settings layer")

	// ErrMissingSetting is returned by Configuration accessors for keys that
	// are not defined.
	ErrMissingSetting = errors.New("setting not defined")

	// ErrWrongKind is returned by Configuration accessors when the stored
	// value has a different kind than the one requested.
	ErrWrongKind = errors.New("setting has wrong kind")
)

// OverrideError describes one rejected override. It matches
// ErrInvalidOverride with errors.Is.
type OverrideError struct {
	Environment string
	Key         string
	Base        Kind
	Overlay     Kind
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("%s: environment %q redefines %q as %s, base declares %s",
		ErrInvalidOverride, e.Environment, e.Key, e.Overlay, e.Base)
}

func (e *OverrideError) Unwrap() error {
	return ErrInvalidOverride
}
