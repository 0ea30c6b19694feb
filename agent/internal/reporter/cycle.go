package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/obsidianstack/usagestats/agent/internal/usage"
	"github.com/obsidianstack/usagestats/pkg/types"
)

// Toggle reports whether usage reporting is currently enabled.
type Toggle interface {
	Enabled() bool
}

// Transmitter makes one delivery attempt of a report.
type Transmitter interface {
	Send(ctx context.Context, url string, r types.Report) error
}

// Persister replaces the local artifact in dir with rec.
type Persister interface {
	Write(ctx context.Context, dir string, rec types.WriteRecord) error
}

// Outcome describes how a cycle ended.
type Outcome int

const (
	// OutcomeSkipped means reporting was disabled; nothing was sent or written.
	OutcomeSkipped Outcome = iota
	// OutcomeSent means the collector accepted the report.
	OutcomeSent
	// OutcomeFailed means delivery failed and was recorded as a failure.
	OutcomeFailed
	// OutcomeAborted means the cycle panicked and was abandoned.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSent:
		return "sent"
	case OutcomeFailed:
		return "failed"
	case OutcomeAborted:
		return "aborted"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// CycleConfig wires a Cycle to its collaborators.
type CycleConfig struct {
	Metadata    types.Metadata
	Tracker     *usage.Tracker
	Transmitter Transmitter
	Persister   Persister
	Toggle      Toggle
	ReportURL   string
	SessionDir  string
}

// Cycle performs one report iteration. It is not safe for concurrent use.
type Cycle struct {
	cfg CycleConfig
	now func() time.Time // injectable for tests
}

// NewCycle returns a Cycle using cfg.
func NewCycle(cfg CycleConfig) *Cycle {
	return &Cycle{cfg: cfg, now: time.Now}
}

// Run executes one iteration and reports how it ended. It never panics and
// never returns an error; failures are logged.
func (c *Cycle) Run(ctx context.Context) (out Outcome) {
	if !c.cfg.Toggle.Enabled() {
		return OutcomeSkipped
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("reporter: usage report failed",
				"panic", r, "stack", string(debug.Stack()))
			out = OutcomeAborted
		}
	}()

	report := usage.Generate(c.cfg.Metadata, c.cfg.Tracker.Counters(), c.now())

	sendErr := c.send(ctx, report)
	if sendErr != nil {
		slog.Info("reporter: usage report request failed",
			"url", c.cfg.ReportURL, "seq", report.SeqNumber, "err", sendErr)
		c.cfg.Tracker.RecordFailure()
	} else {
		c.cfg.Tracker.RecordSuccess()
	}
	c.cfg.Tracker.AdvanceSequence()

	// The counters already advanced, so the artifact is written even when
	// shutdown cancelled ctx during delivery.
	rec := usage.ForWrite(report, sendErr)
	if err := c.cfg.Persister.Write(context.WithoutCancel(ctx), c.cfg.SessionDir, rec); err != nil {
		slog.Warn("reporter: usage artifact write failed",
			"dir", c.cfg.SessionDir, "seq", report.SeqNumber, "err", err)
	}

	if sendErr != nil {
		return OutcomeFailed
	}
	return OutcomeSent
}

// send converts a panicking transmitter into an ordinary delivery failure so
// the counters and artifact still reflect the attempt.
func (c *Cycle) send(ctx context.Context, r types.Report) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("transmitter panic: %v", p)
		}
	}()
	return c.cfg.Transmitter.Send(ctx, c.cfg.ReportURL, r)
}
