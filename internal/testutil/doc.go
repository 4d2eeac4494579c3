// Package testutil provides shared helpers for tests: a scripted toolkit
// driven by a fake clock, a thread-safe log buffer and a file harness.
package testutil
