package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/obsidianstack/usagestats/pkg/types"
)

const (
	backoffInitial    = 500 * time.Millisecond
	backoffMax        = 30 * time.Second
	backoffMultiplier = 2.0
)

// ErrExhausted is returned by Collect when no attempt succeeded.
var ErrExhausted = errors.New("metadata: retries exhausted")

// Source produces a metadata snapshot. Each call is one attempt.
type Source interface {
	Fetch(ctx context.Context) (types.Metadata, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (types.Metadata, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context) (types.Metadata, error) { return f(ctx) }

// Collector retries a Source a bounded number of times.
type Collector struct {
	src      Source
	attempts int
	sleepFn  func(ctx context.Context, d time.Duration) error // injectable for tests
}

// NewCollector returns a Collector making at most attempts calls to src.
func NewCollector(src Source, attempts int) *Collector {
	if attempts < 1 {
		attempts = 1
	}
	return &Collector{src: src, attempts: attempts, sleepFn: sleepCtx}
}

// Collect returns the first successful snapshot from the source. It wraps
// ErrExhausted together with the last attempt's error when all attempts fail,
// and returns ctx.Err() if ctx is cancelled while waiting.
func (c *Collector) Collect(ctx context.Context) (types.Metadata, error) {
	bo := newBackoff()
	var lastErr error
	for i := 1; i <= c.attempts; i++ {
		md, err := c.src.Fetch(ctx)
		if err == nil {
			return md, nil
		}
		lastErr = err
		if i == c.attempts {
			break
		}

		wait := bo.next()
		slog.Warn("metadata: fetch failed, will retry",
			"attempt", i, "attempts", c.attempts, "err", err, "retry_in", wait)
		if err := c.sleepFn(ctx, wait); err != nil {
			return types.Metadata{}, err
		}
	}
	return types.Metadata{}, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, c.attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}
