// Package reporter runs the usage-report loop.
//
// Cycle.Run is one iteration: generate a report from the metadata and the
// current counters, send it once, record the outcome, advance the sequence
// number, and write the artifact, which happens whether or not the send worked.
// Nothing inside a cycle escapes it: send and write failures are logged, and a
// panic is recovered at the cycle boundary.
//
// Scheduler.Run drives cycles: one immediately, then a random delay in
// [0, interval) so a fleet started together does not report in lockstep, then
// one cycle per interval until ctx is cancelled. Cycles never overlap.
package reporter
