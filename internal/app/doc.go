// Package app wires a presentation run together: it resolves the settings
// for the chosen environment, registers the stimulus modules, loads the
// experiment, drives the dispatcher and saves the report. It knows nothing
// about flags or process exit codes.
package app
