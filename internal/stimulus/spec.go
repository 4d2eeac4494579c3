// Package stimulus defines the declarative experiment model: the ordered list
// of stimulus specs an experiment author writes, and the presentable objects
// those specs resolve to at run time.
package stimulus

import (
	"fmt"
	"slices"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Kind tags a Spec. Text and image are built in; custom specs name a factory
// registered by an experiment module.
type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindCustom Kind = "custom"
)

// Position is a screen position in normalized units, (0, 0) being the center.
type Position struct {
	X, Y float64
}

// ResponseWindow describes how a participant may respond to a stimulus.
type ResponseWindow struct {
	// Timeout bounds the wait. Zero waits until a response arrives.
	Timeout time.Duration
	// Keys restricts accepted responses. Empty accepts any key.
	Keys []string
}

// Accepts reports whether key is a valid response in this window.
func (w ResponseWindow) Accepts(key string) bool {
	return len(w.Keys) == 0 || slices.Contains(w.Keys, key)
}

// Spec is one entry of an experiment.
type Spec struct {
	Name     string
	Kind     Kind
	Content  string // text to show, or image path for KindImage
	Duration time.Duration
	Position Position

	// Custom stimuli only.
	Factory string
	Params  map[string]cty.Value

	// Sequencing metadata, recorded in the run report.
	Trial     int
	Condition string
	Response  *ResponseWindow

	Source string // file the spec was declared in
}

// Identity is the label used for the spec in logs and reports.
func (s *Spec) Identity() string {
	if s.Kind == KindCustom {
		return fmt.Sprintf("custom.%s.%s", s.Factory, s.Name)
	}
	return fmt.Sprintf("%s.%s", s.Kind, s.Name)
}

// Param returns a custom parameter, or cty.NilVal when absent.
func (s *Spec) Param(name string) (cty.Value, bool) {
	v, ok := s.Params[name]
	return v, ok
}

// NewText builds a text spec.
func NewText(name, content string, d time.Duration) *Spec {
	return &Spec{Name: name, Kind: KindText, Content: content, Duration: d}
}

// NewImage builds an image spec for an asset path.
func NewImage(name, path string, d time.Duration) *Spec {
	return &Spec{Name: name, Kind: KindImage, Content: path, Duration: d}
}

// NewCustom builds a spec whose presentable is produced by the named factory.
func NewCustom(name, factory string, d time.Duration, params map[string]cty.Value) *Spec {
	return &Spec{Name: name, Kind: KindCustom, Factory: factory, Duration: d, Params: params}
}

// WithResponse sets the response window and returns the spec.
func (s *Spec) WithResponse(timeout time.Duration, keys ...string) *Spec {
	s.Response = &ResponseWindow{Timeout: timeout, Keys: keys}
	return s
}

// Experiment is the ordered list of specs. Order is presentation order.
type Experiment struct {
	Stimuli []*Spec
}

// NewExperiment returns an experiment presenting specs in the given order.
func NewExperiment(specs ...*Spec) *Experiment {
	return &Experiment{Stimuli: specs}
}

// Len returns the number of entries.
func (e *Experiment) Len() int {
	return len(e.Stimuli)
}
