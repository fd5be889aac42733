// Package nmp cycle counters used by the profiling protocol
package nmp

import (
	"time"
)

// CycleCounter is the per-worker cycle counter. Lane 0 resets it once all
// lanes are ready; every lane then reads it to take start and end snapshots.
// Reset must be ordered before the reads by a barrier.
type CycleCounter interface {
	// Reset restarts counting from zero
	Reset()
	// Read returns the cycles elapsed since the last Reset
	Read() uint64
	// Close releases any resources held by the counter
	Close() error
}

// ClockCounter derives cycles from the monotonic clock and a fixed worker
// frequency.
type ClockCounter struct {
	mhz   uint64
	start time.Time
}

// NewClockCounter creates a counter ticking at mhz million cycles per second
func NewClockCounter(mhz int) *ClockCounter {
	if mhz <= 0 {
		mhz = DefaultClockMHz
	}
	return &ClockCounter{mhz: uint64(mhz), start: time.Now()}
}

// Reset restarts the counter
func (c *ClockCounter) Reset() {
	c.start = time.Now()
}

// Read returns the elapsed cycles
func (c *ClockCounter) Read() uint64 {
	ns := time.Since(c.start).Nanoseconds()
	if ns < 0 {
		ns = 0
	}
	return uint64(ns) * c.mhz / 1000
}

// Close is a no-op
func (c *ClockCounter) Close() error {
	return nil
}

// newCycleCounter builds the counter selected by cfg. A perf counter that
// cannot be opened falls back to the clock counter with a warning.
func newCycleCounter(cfg Config) CycleCounter {
	if cfg.Counter == CounterPerf {
		counter, err := newPerfCounter()
		if err == nil {
			return counter
		}
		cfg.logger().Printf("perf cycle counter unavailable, using %d MHz clock: %v", cfg.ClockMHz, err)
	}
	return NewClockCounter(cfg.ClockMHz)
}
