package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sloria/paradigm/internal/ctxlog"
	"github.com/sloria/paradigm/internal/dispatch"
	"github.com/sloria/paradigm/internal/hclconf"
	"github.com/sloria/paradigm/internal/report"
)

// Run loads the experiment and presents it. The report is returned, and
// saved when an output path is configured, even when the run fails part way.
func (a *App) Run(ctx context.Context) (*report.RunReport, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	a.mu.Lock()
	a.cancel = cancel
	if a.abortCause != nil {
		cancel(a.abortCause)
	}
	a.mu.Unlock()

	a.logger.Debug("App.Run method started.")
	if a.config.ExperimentPath == "" {
		return nil, errors.New("no experiment path configured")
	}

	if a.config.ControlPort > 0 {
		a.startControlServer(ctx)
		defer a.closeControlServer(ctx)
	}

	exp, err := hclconf.LoadExperiment(ctx, a.config.ExperimentPath, a.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load experiment: %w", err)
	}
	a.logger.Info("Experiment loaded.", "stimuli", exp.Len())

	d := dispatch.New(a.registry, a.presentationToolkit(), dispatch.WithClock(a.clock))
	defer a.closeConsole()
	a.mu.Lock()
	a.dispatcher = d
	a.mu.Unlock()

	rep, runErr := d.Run(ctx, exp, a.settings)
	if runErr != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			runErr = fmt.Errorf("%w (%v)", runErr, cause)
		}
	}

	if a.config.OutputPath != "" {
		format, err := report.ParseFormat(a.config.ReportFormat)
		if err != nil {
			return rep, errors.Join(runErr, err)
		}
		path, err := report.Save(a.config.OutputPath, rep, format)
		if err != nil {
			return rep, errors.Join(runErr, fmt.Errorf("failed to save report: %w", err))
		}
		a.logger.Info("💾 Report saved.", "path", path, "records", rep.Len(), "status", rep.Status)
	}

	a.logger.Debug("App.Run method finished.")
	return rep, runErr
}

// Status is a snapshot of the run for the control server.
type Status struct {
	State       string `json:"state"`
	Index       int    `json:"index"`
	Environment string `json:"environment"`
}

// Status returns the current run state. Safe for concurrent use.
func (a *App) Status() Status {
	a.mu.Lock()
	d := a.dispatcher
	a.mu.Unlock()

	st := Status{State: dispatch.StateIdle.String(), Index: -1, Environment: a.settings.Environment()}
	if d != nil {
		st.State = d.State().String()
		st.Index = d.Index()
	}
	return st
}
