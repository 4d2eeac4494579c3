// Package dispatch presents an experiment's stimuli in order through a
// toolkit, collects responses and produces the run report.
//
// A dispatcher moves through Idle, Presenting(i), Awaiting(i) and ends in
// Complete or Aborted. Any failure, an escape key press or a cancelled
// context ends the run at the current entry; the report returned alongside
// the error holds every entry that finished before it.
package dispatch
