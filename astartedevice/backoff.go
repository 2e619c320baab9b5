package astartedevice

import (
	"math/rand"
	"time"

	"github.com/lucaato/astarte-device-sdk-go/x/mathx"
)

// Backoff implements the full-jittered exponential delay of spec.md §4.5:
// doubling cap on each consecutive HandshakeError entry, reset to
// initialMs on a successful Connected. Grounded on services/bridge/
// bridge.go's backoffSeq, generalized from plain doubling to full jitter
// (spec.md requires a random draw in [0, cap], not the cap itself) and
// exposing the deterministic cap separately so it can be asserted on
// without fighting the jitter (spec.md §8 property 8).
type Backoff struct {
	initialMs int64
	maxMs     int64
	cap       int64
}

// NewBackoff returns a Backoff whose first delay is drawn from
// [0, initialMs].
func NewBackoff(initialMs, maxMs int64) *Backoff {
	if initialMs <= 0 {
		initialMs = 1
	}
	if maxMs < initialMs {
		maxMs = initialMs
	}
	return &Backoff{initialMs: initialMs, maxMs: maxMs, cap: initialMs}
}

// Next draws a jittered delay from [0, cap] and doubles cap (capped at
// maxMs) for the following call.
func (b *Backoff) Next() time.Duration {
	delay := time.Duration(rand.Int63n(b.cap+1)) * time.Millisecond
	b.cap = mathx.Clamp(b.cap*2, b.initialMs, b.maxMs)
	return delay
}

// Cap returns the current deterministic upper bound, non-decreasing
// across consecutive Next calls until Reset.
func (b *Backoff) Cap() int64 { return b.cap }

// Reset returns the cap to initialMs, on a successful Connected.
func (b *Backoff) Reset() { b.cap = b.initialMs }
