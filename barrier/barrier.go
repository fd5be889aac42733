// Package barrier provides a reusable phase-counting barrier for a fixed
// group of goroutines. Every participant must call Wait before any of them
// returns from it; the barrier then rearms itself for the next phase.
//
// Example usage:
//
//	b := barrier.New(lanes)
//	for id := 0; id < lanes; id++ {
//		go func() {
//			setup(id)
//			b.Wait() // all setups are visible past this point
//			compute(id)
//			b.Wait()
//		}()
//	}
package barrier

import "sync"

// Barrier is a countdown barrier that counts phases instead of relying on a
// single-use latch, so the same instance can be joined any number of times.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	waiting int
	phase   uint64
}

// New creates a barrier for the given number of parties. Parties below one
// are treated as one, in which case Wait never blocks.
func New(parties int) *Barrier {
	if parties < 1 {
		parties = 1
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Parties returns the number of goroutines that must arrive per phase.
func (b *Barrier) Parties() int {
	return b.parties
}

// Phase returns the number of completed phases.
func (b *Barrier) Phase() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Wait blocks until all parties have called Wait for the current phase.
// Writes made by any party before Wait happen before every party returns.
// It returns the index of the phase that was just completed.
func (b *Barrier) Wait() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	phase := b.phase
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.phase++
		b.cond.Broadcast()
		return phase
	}
	for phase == b.phase {
		b.cond.Wait()
	}
	return phase
}
