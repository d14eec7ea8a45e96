// Package pipeline drives one orchestrator run: discover candidate files,
// deduplicate by content fingerprint, assign publish slots, and advance ready
// items through the enrich/transform/publish collaborators to a terminal
// state.
//
// A run is strictly sequential per item. The daemon guarantees at most one
// run in flight at a time; the runner itself holds no cross-run locks.
package pipeline
