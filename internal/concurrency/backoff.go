// File: internal/concurrency/backoff.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Spin-then-yield helper for short CAS and reclamation waits.

package concurrency

import "runtime"

const spinLimit = 64

// Backoff busy-spins for a short while and then yields the processor.
// The zero value is ready to use. Not safe for concurrent use.
type Backoff struct {
	n int
}

// Wait performs one backoff step.
func (b *Backoff) Wait() {
	if b.n < spinLimit {
		b.n++
		for i := 0; i < b.n; i++ {
			spinHint()
		}
		return
	}
	runtime.Gosched()
}

// Reset restarts the spin phase.
func (b *Backoff) Reset() { b.n = 0 }

// Spins returns the spin steps taken since the last Reset, capped at the spin limit.
func (b *Backoff) Spins() int { return b.n }

//go:noinline
func spinHint() {}
