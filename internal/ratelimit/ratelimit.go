// Package ratelimit provides the engine's global byte-rate limiter: a
// single shared token bucket, denominated in bytes per second, that
// every hashing worker calls into after each chunk it reads.
//
// golang.org/x/time/rate already implements exactly the strategy this
// component requires — compute the wait duration under a short lock,
// then sleep outside it, then reattempt — so Limiter is a thin,
// byte-denominated wrapper around rate.Limiter rather than a
// hand-rolled bucket.
package ratelimit

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Limiter throttles aggregate byte throughput across every caller.
// The zero value is not usable; construct with New or Disabled.
type Limiter struct {
	rl *rate.Limiter
}

// New creates a Limiter allowing ratePerSec bytes/second on average,
// with burst capacity burstBytes. A ratePerSec of 0 disables limiting
// (Acquire becomes a no-op), matching the "no rate configured" case in
// the specification.
func New(ratePerSec, burstBytes int64) *Limiter {
	if ratePerSec <= 0 {
		return &Limiter{}
	}
	burst := int(burstBytes)
	if burst <= 0 {
		burst = int(ratePerSec)
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Disabled returns a Limiter whose Acquire never blocks.
func Disabled() *Limiter {
	return &Limiter{}
}

// Acquire blocks the caller until n bytes' worth of tokens are
// available. Called after each read chunk with the number of bytes
// just read, per the specification's "present bytes read before
// processing the next chunk" contract.
func (l *Limiter) Acquire(n int64) {
	if l == nil || l.rl == nil || n <= 0 {
		return
	}

	// A single request can exceed the configured burst; rate.Limiter
	// rejects those outright via WaitN, so split oversized requests
	// into burst-sized pieces rather than surfacing an error to a
	// hashing loop that has no way to act on one.
	burst := l.rl.Burst()
	for n > 0 {
		chunk := n
		if burst > 0 && chunk > int64(burst) {
			chunk = int64(burst)
		}
		if chunk > math.MaxInt32 {
			chunk = math.MaxInt32
		}
		_ = l.rl.WaitN(context.Background(), int(chunk))
		n -= chunk
	}
}
