// Package pipeline orchestrates harvest runs.
//
// A run is a sequence of passes over one report category. Each pass
// executes the configured steps in order (authenticate, crawl), and the
// runner keeps starting passes until the tree is complete, the pass
// budget runs out, or the operator cancels. Transient pass failures are
// retried after a delay; authentication exhaustion and cancellation end
// the run immediately.
//
// The batch runner layers on top for multi-category harvests: each
// category is an independent run with its own session and snapshot, so
// categories can proceed concurrently without sharing portal state.
package pipeline
