package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sloria/paradigm/internal/ctxlog"
)

// ErrOperatorAbort is the abort cause used by POST /abort.
var ErrOperatorAbort = errors.New("aborted by operator")

// controlHandler serves the operator endpoints: /health, /status and /abort.
func (a *App) controlHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /status", a.statusHandler)
	mux.HandleFunc("POST /abort", a.abortHandler)
	return mux
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.Status()); err != nil {
		a.logger.Error("Failed to write status.", "error", err)
	}
}

func (a *App) abortHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Info("Abort endpoint hit.", "remote_addr", r.RemoteAddr)
	a.Abort(ErrOperatorAbort)
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "aborting")
}

// startControlServer runs the control server in the background.
func (a *App) startControlServer(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring control server.")

	addr := fmt.Sprintf(":%d", a.config.ControlPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.controlHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.mu.Lock()
	a.httpServer = srv
	a.mu.Unlock()

	go func() {
		logger.Info("🩺 Control server starting", "address", fmt.Sprintf("http://localhost%s/status", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Control server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeControlServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()
	if srv == nil {
		logger.Debug("Control server was not running.")
		return nil
	}

	// The run context may already be cancelled by an abort.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down control server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Control server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Control server shut down gracefully.")
	return nil
}
