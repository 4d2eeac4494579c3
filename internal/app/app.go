package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sloria/paradigm/internal/ctxlog"
	"github.com/sloria/paradigm/internal/dispatch"
	"github.com/sloria/paradigm/internal/hclconf"
	"github.com/sloria/paradigm/internal/registry"
	"github.com/sloria/paradigm/internal/settings"
	"github.com/sloria/paradigm/internal/toolkit"
)

// Settings keys the application itself reads.
const (
	LoggingLevelSetting = "logging_level"
	EscapeKeySetting    = "escape_key"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	level    *slog.LevelVar
	config   *Config
	settings *settings.Configuration
	registry *registry.Registry
	toolkit  toolkit.Toolkit
	clock    clockwork.Clock

	modules   []registry.Module
	input     io.Reader
	display   io.Writer
	window    toolkit.Display
	escapeKey string
	console   *toolkit.Console

	mu         sync.Mutex
	dispatcher *dispatch.Dispatcher
	cancel     context.CancelCauseFunc
	abortCause error
	httpServer *http.Server
}

// Option customizes an App.
type Option func(*App)

// WithToolkit replaces the console toolkit.
func WithToolkit(tk toolkit.Toolkit) Option {
	return func(a *App) { a.toolkit = tk }
}

// WithClock sets the clock for the dispatcher and the console toolkit.
func WithClock(c clockwork.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithModules replaces the core stimulus modules.
func WithModules(modules ...registry.Module) Option {
	return func(a *App) { a.modules = modules }
}

// WithInput sets where the console toolkit reads key presses. Defaults to stdin.
func WithInput(r io.Reader) Option {
	return func(a *App) { a.input = r }
}

// WithDisplay sets where the console toolkit draws. Defaults to outW.
func WithDisplay(w io.Writer) Option {
	return func(a *App) { a.display = w }
}

// NewApp resolves the settings for cfg.Environment and registers the stimulus
// modules. Nothing is presented until Run. An unknown environment or an
// invalid override fails here.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	a := &App{
		outW:    outW,
		config:  cfg,
		clock:   clockwork.NewRealClock(),
		modules: coreModules,
		input:   os.Stdin,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.display == nil {
		a.display = outW
	}

	a.logger, a.level = newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("Logger configured successfully.")

	base, overlays, err := hclconf.LoadSettings(ctx, cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	resolver, err := settings.NewResolver(base, overlays)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	a.settings, err = resolver.Resolve(cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings: %w", err)
	}
	a.logger.Info("Settings resolved.", "environment", cfg.Environment, "keys", a.settings.Len())

	if cfg.LogLevel == "" && a.settings.Has(LoggingLevelSetting) {
		lvl, err := a.settings.String(LoggingLevelSetting)
		if err != nil {
			return nil, err
		}
		a.level.Set(parseLevel(lvl))
		a.logger.Debug("Log level taken from settings.", "level", lvl)
	}

	a.registry = registry.New()
	a.registry.RegisterModules(a.modules...)
	a.logger.Debug("All stimulus modules registered.", "count", len(a.modules), "factories", a.registry.Names())

	if a.settings.Has(EscapeKeySetting) {
		key, err := a.settings.String(EscapeKeySetting)
		if err != nil {
			return nil, err
		}
		a.escapeKey = key
	}

	a.window, err = toolkit.DisplayFromSettings(a.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to read display settings: %w", err)
	}

	return a, nil
}

// presentationToolkit returns the configured toolkit, creating the console
// toolkit on first use so that input is only read once a run starts.
func (a *App) presentationToolkit() toolkit.Toolkit {
	if a.toolkit != nil {
		return a.toolkit
	}
	opts := []toolkit.ConsoleOption{
		toolkit.WithClock(a.clock),
		toolkit.WithAssetDir(a.config.AssetsPath),
		toolkit.WithDisplay(a.window),
	}
	if a.escapeKey != "" {
		opts = append(opts, toolkit.WithEscapeKey(a.escapeKey))
	}
	a.console = toolkit.NewConsole(a.display, a.input, opts...)
	a.toolkit = a.console
	return a.toolkit
}

// closeConsole stops the console toolkit's input reader, if Run created one.
func (a *App) closeConsole() {
	if a.console == nil {
		return
	}
	if err := a.console.Close(); err != nil {
		a.logger.Warn("Failed to close console.", "error", err)
	}
}

// Settings returns the resolved configuration of the run.
func (a *App) Settings() *settings.Configuration {
	return a.settings
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Abort stops the run at the current stimulus. The dispatcher ends in the
// aborted state and Run still saves the partial report. Calling Abort before
// Run makes Run abort immediately.
func (a *App) Abort(cause error) {
	if cause == nil {
		cause = errors.New("aborted")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger.Warn("Abort requested.", "cause", cause)
	if a.cancel != nil {
		a.cancel(cause)
		return
	}
	if a.abortCause == nil {
		a.abortCause = cause
	}
}
