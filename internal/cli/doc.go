// Package cli turns command-line flags and PARADIGM_* environment variables
// into an app.Config, and carries the exit code for usage errors.
package cli
