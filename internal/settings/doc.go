// Package settings resolves the layered experiment settings for a run.
//
// A run is configured by exactly two layers: a base layer that declares every
// setting together with its semantic type, and one environment overlay (for
// example "dev" or "mri") that selectively redefines base settings and may add
// new ones. The Resolver merges the selected overlay into a copy of the base
// and returns a Configuration, which is never modified afterwards and can be
// shared freely between goroutines.
//
// Values are represented as cty.Value so that settings loaded from HCL files
// and settings built in Go share one type system. Type checking compares the
// semantic Kind of a value (number, string, bool, list, map) rather than the
// exact cty type, so that `[800, 600]` in the base and `[1024, 768, 1]` in an
// overlay are both lists.
package settings
