package usage

import "github.com/obsidianstack/usagestats/pkg/types"

// Tracker holds the report counters. It is not safe for concurrent use;
// a single reporting goroutine owns it.
type Tracker struct {
	c types.Counters
}

// NewTracker returns a Tracker with all counters at zero.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Counters returns a copy of the current counter values.
func (t *Tracker) Counters() types.Counters {
	return t.c
}

// RecordSuccess counts one delivered report.
func (t *Tracker) RecordSuccess() { t.c.Success++ }

// RecordFailure counts one failed delivery.
func (t *Tracker) RecordFailure() { t.c.Failure++ }

// AdvanceSequence marks the end of a cycle regardless of its outcome.
func (t *Tracker) AdvanceSequence() { t.c.Seq++ }
