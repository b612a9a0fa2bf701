package eventlog

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// pollBackoff tracks the Subscribe poll loop's wait time: start at
// initial, double after every empty poll, cap at max, reset to initial
// whenever a poll processes at least one event. Built on
// github.com/cenkalti/backoff/v4's ExponentialBackOff, a dependency
// present across the corpus (cacack-my-family, Loofy147-LibraNexus).
type pollBackoff struct {
	b *backoff.ExponentialBackOff
}

// newPollBackoff builds a pollBackoff per spec §4.7: initial interval,
// doubling multiplier, capped interval, and no elapsed-time giveup —
// the subscriber polls forever until its context is canceled.
func newPollBackoff(initial, max time.Duration) *pollBackoff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0
	b.Reset()
	return &pollBackoff{b: b}
}

// next returns how long to sleep before the next poll, advancing the
// backoff's internal state (doubling, capped at MaxInterval).
func (p *pollBackoff) next() time.Duration {
	return p.b.NextBackOff()
}

// reset restores the wait time to the initial interval. Call after any
// poll that processed at least one event.
func (p *pollBackoff) reset() {
	p.b.Reset()
}
