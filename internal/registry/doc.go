// Package registry maps the stimulus kinds named in an experiment file to the
// Go code that builds them.
//
// Text and image stimuli are built in. Every other presentable kind is a
// "custom" stimulus: the experiment names a factory (for example "fixation"
// or "pause") and the registry looks it up by that name. Experiment modules
// add factories at startup through the Module interface, so new kinds never
// require changes to the dispatcher.
//
// Registering the same name twice is a programming error and panics.
package registry
