package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/sloria/paradigm/internal/ctxlog"
	"github.com/sloria/paradigm/internal/registry"
	"github.com/sloria/paradigm/internal/report"
	"github.com/sloria/paradigm/internal/settings"
	"github.com/sloria/paradigm/internal/stimulus"
	"github.com/sloria/paradigm/internal/toolkit"
)

var (
	// ErrUnknownStimulusKind aborts a run at an entry nothing can build.
	ErrUnknownStimulusKind = registry.ErrUnknownStimulusKind
	// ErrPresentationFailure wraps any error raised while building,
	// preparing, drawing or awaiting a response for an entry.
	ErrPresentationFailure = errors.New("presentation failure")
	// ErrAborted is returned when the run was stopped from outside, by the
	// escape key or by cancelling the context.
	ErrAborted = errors.New("run aborted")
	// ErrAlreadyRun is returned by a second call to Run.
	ErrAlreadyRun = errors.New("dispatcher has already run")
)

// Dispatcher runs one experiment.
type Dispatcher struct {
	registry *registry.Registry
	toolkit  toolkit.Toolkit
	clock    clockwork.Clock

	state   atomic.Int32
	index   atomic.Int64
	started atomic.Bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock sets the clock used for report timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

// New creates an idle dispatcher.
func New(reg *registry.Registry, tk toolkit.Toolkit, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		toolkit:  tk,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.index.Store(-1)
	return d
}

// State returns the current state. Safe for concurrent use.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Index returns the entry being presented or awaited, the last one touched
// once the run has ended, or -1 before the run starts.
func (d *Dispatcher) Index() int {
	return int(d.index.Load())
}

func (d *Dispatcher) transition(ctx context.Context, to State) {
	from := State(d.state.Swap(int32(to)))
	ctxlog.FromContext(ctx).Debug("Dispatcher state changed.", "from", from, "to", to, "index", d.Index())
}

// Run presents every entry of exp in order. It always returns a report; on
// error the report holds the entries that finished before the failure and is
// marked aborted.
func (d *Dispatcher) Run(ctx context.Context, exp *stimulus.Experiment, cfg *settings.Configuration) (*report.RunReport, error) {
	if !d.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}

	env := ""
	if cfg != nil {
		env = cfg.Environment()
	}
	rep := report.New(env, d.clock.Now())
	ctx = ctxlog.With(ctx, "run_id", rep.RunID.String())
	logger := ctxlog.FromContext(ctx)
	logger.Info("▶️ Run started.", "environment", env, "stimuli", exp.Len())

	for i, spec := range exp.Stimuli {
		d.index.Store(int64(i))
		if err := ctx.Err(); err != nil {
			return d.abort(ctx, rep, fmt.Errorf("%w: before entry %d: %w", ErrAborted, i, err))
		}
		d.transition(ctx, StatePresenting)

		rec, err := d.present(ctx, i, spec, cfg, rep)
		if err != nil {
			return d.abort(ctx, rep, err)
		}
		rep.Append(rec)
	}

	d.transition(ctx, StateComplete)
	rep.Finish(d.clock.Now(), nil)
	logger.Info("🏁 Run complete.", "records", rep.Len())
	return rep, nil
}

func (d *Dispatcher) abort(ctx context.Context, rep *report.RunReport, cause error) (*report.RunReport, error) {
	d.transition(ctx, StateAborted)
	rep.Finish(d.clock.Now(), cause)
	ctxlog.FromContext(ctx).Error("Run aborted.", "index", d.Index(), "records", rep.Len(), "error", cause)
	return rep, cause
}

func (d *Dispatcher) present(ctx context.Context, i int, spec *stimulus.Spec, cfg *settings.Configuration, rep *report.RunReport) (report.Record, error) {
	logger := ctxlog.FromContext(ctx).With("index", i, "stimulus", spec.Identity())

	p, err := d.registry.Build(ctx, spec, cfg)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownStimulusKind) {
			return report.Record{}, fmt.Errorf("entry %d (%s): %w", i, spec.Identity(), err)
		}
		return report.Record{}, d.classify(ctx, i, spec, err)
	}

	h, err := d.toolkit.Prepare(ctx, p)
	if err != nil {
		return report.Record{}, d.classify(ctx, i, spec, err)
	}
	defer h.Release()

	onset, err := d.toolkit.Present(ctx, h, spec.Duration)
	if err != nil {
		return report.Record{}, d.classify(ctx, i, spec, err)
	}
	logger.Debug("Stimulus presented.", "duration", spec.Duration)

	rec := report.Record{
		Name:      spec.Name,
		Kind:      string(spec.Kind),
		Trial:     spec.Trial,
		Condition: spec.Condition,
		Status:    report.RecordShown,
		Onset:     report.Seconds(onset.Sub(rep.StartedAt)),
	}
	if spec.Response == nil {
		return rec, nil
	}

	d.transition(ctx, StateAwaiting)
	resp, err := d.toolkit.AwaitResponse(ctx, *spec.Response)
	if err != nil {
		return report.Record{}, d.classify(ctx, i, spec, err)
	}
	if resp.TimedOut {
		rec.TimedOut = true
		logger.Debug("Response window timed out.")
		return rec, nil
	}
	rec.Response = &report.Response{Key: resp.Key, RT: report.Seconds(resp.At.Sub(onset))}
	logger.Debug("Response recorded.", "key", resp.Key, "rt", resp.At.Sub(onset))
	return rec, nil
}

// classify maps an entry error to ErrAborted for escape and cancellation,
// and to ErrPresentationFailure otherwise.
func (d *Dispatcher) classify(ctx context.Context, i int, spec *stimulus.Spec, err error) error {
	if errors.Is(err, toolkit.ErrEscape) || ctx.Err() != nil {
		return fmt.Errorf("%w: entry %d (%s): %w", ErrAborted, i, spec.Identity(), err)
	}
	return fmt.Errorf("%w: entry %d (%s): %w", ErrPresentationFailure, i, spec.Identity(), err)
}
