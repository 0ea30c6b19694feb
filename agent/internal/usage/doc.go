// Package usage holds the reporter's bookkeeping and report assembly.
//
// Tracker owns the running counters (successes, failures, sequence number).
// It is mutated only by the reporting cycle, which calls exactly one of
// RecordSuccess/RecordFailure followed by AdvanceSequence per iteration.
//
// Generate and ForWrite are pure: they turn metadata plus a counter snapshot
// into a types.Report, and a report plus an optional error into the
// types.WriteRecord persisted to disk.
package usage
