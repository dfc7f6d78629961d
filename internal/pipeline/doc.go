// Package pipeline runs a review from PDF bytes to a serialized report.
//
// A review is a finite-state machine: Idle, Rendering, Analyzing,
// Aggregating, SelectingJokes, Building and then Done, or Failed when the PDF
// cannot be rendered, no page could be analyzed, the report cannot be
// serialized, or the run is cancelled. Transition is the pure transition
// function; Run carries the state and artifacts of one review; Pipeline
// executes the Steps that perform each phase.
//
// Pages are analyzed concurrently in batches by BatchAnalyzer. A batch that
// fails permanently marks its pages unanalyzed without failing the run.
// Orchestrator wires the stages together from a config.Config.
package pipeline
