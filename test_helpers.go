package nmp

import (
	"io"
	"log"
	"testing"
)

// TestConfig returns a small quiet configuration for tests: lanes lanes with
// blocks of 1<<blockLog2 bytes, logging discarded.
func TestConfig(lanes, blockLog2 int) Config {
	cfg := DefaultConfig()
	cfg.Lanes = lanes
	cfg.BlockSizeLog2 = blockLog2
	cfg.Logger = log.New(io.Discard, "", 0)
	return cfg
}

// AllocOrFail allocates a worker set and fails the test if unsuccessful.
// The set is freed when the test ends.
func AllocOrFail(t testing.TB, workers int, cfg Config) *Set {
	t.Helper()
	set, err := Alloc(workers, cfg)
	if err != nil {
		t.Fatalf("Failed to allocate %d workers: %v", workers, err)
	}
	t.Cleanup(func() {
		if err := set.Free(); err != nil && err != ErrSetFreed {
			t.Errorf("Free failed: %v", err)
		}
	})
	return set
}

// PushOrFail prepares buf on every worker and transfers it, failing the
// test if unsuccessful
func PushOrFail(t testing.TB, set *Set, dir XferDirection, symbol string, offset int, bufs [][]byte) {
	t.Helper()
	for i, buf := range bufs {
		if err := set.PrepareXfer(i, buf); err != nil {
			t.Fatalf("PrepareXfer(%d) failed: %v", i, err)
		}
	}
	size := 0
	if len(bufs) > 0 {
		size = len(bufs[0])
	}
	if err := set.PushXfer(dir, symbol, offset, size); err != nil {
		t.Fatalf("PushXfer %s %s failed: %v", dir, symbol, err)
	}
}

// RunOrFail runs one orchestrated vector addition and fails the test if
// unsuccessful
func RunOrFail[T any](t testing.TB, orch *Orchestrator[T], plan *Plan, a, b []T) *RunResult[T] {
	t.Helper()
	res, err := orch.Run(plan, a, b)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res
}
