// Package toolkit defines the presentation backend the dispatcher drives, and
// a console implementation that draws stimuli as text and reads responses as
// lines from an input stream.
package toolkit

import (
	"context"
	"errors"
	"time"

	"github.com/sloria/paradigm/internal/stimulus"
)

// ErrEscape is returned when the participant or operator presses the escape
// key during presentation or a response window.
var ErrEscape = errors.New("escape key pressed")

// ErrMissingAsset is returned by Prepare when an image file cannot be found.
var ErrMissingAsset = errors.New("missing asset")

// ErrClosed is returned by a toolkit that was closed mid-run.
var ErrClosed = errors.New("toolkit closed")

// Handle is a prepared stimulus. Release frees whatever the toolkit allocated
// for it and is safe to call more than once.
type Handle interface {
	Release()
}

// Response is the outcome of a response window.
type Response struct {
	Key      string
	At       time.Time
	TimedOut bool
}

// Toolkit draws stimuli and collects responses.
type Toolkit interface {
	// Prepare turns a presentable into something the toolkit can draw.
	Prepare(ctx context.Context, p stimulus.Presentable) (Handle, error)
	// Present draws the handle, holds it for d and returns the onset time.
	Present(ctx context.Context, h Handle, d time.Duration) (time.Time, error)
	// AwaitResponse blocks until an accepted key arrives or the window times out.
	AwaitResponse(ctx context.Context, w stimulus.ResponseWindow) (Response, error)
}
