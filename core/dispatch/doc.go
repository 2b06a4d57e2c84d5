// Package dispatch contains the engine that drives the assistant: it polls
// the inputs for token batches, detects the configured key-phrases, asks
// every service to evaluate the remainder, runs the resulting handlers in
// descending order of belief and fans the accumulated response out to the
// outputs.
package dispatch
