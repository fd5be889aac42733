package barrier

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestBarrierSingleParty(t *testing.T) {
	b := New(0)
	if b.Parties() != 1 {
		t.Fatalf("expected 1 party, got %d", b.Parties())
	}
	for i := uint64(0); i < 3; i++ {
		if got := b.Wait(); got != i {
			t.Fatalf("expected phase %d, got %d", i, got)
		}
	}
}

// Every party must observe all writes of the previous phase after Wait.
func TestBarrierPhases(t *testing.T) {
	for _, parties := range []int{1, 2, 3, 8, 24} {
		b := New(parties)
		slots := make([]int, parties)
		var bad atomic.Int32
		var wg sync.WaitGroup
		wg.Add(parties)

		for id := 0; id < parties; id++ {
			go func() {
				defer wg.Done()
				for round := 1; round <= 5; round++ {
					slots[id] = round
					b.Wait()
					for _, v := range slots {
						if v != round {
							bad.Add(1)
						}
					}
					b.Wait()
				}
			}()
		}
		wg.Wait()

		if bad.Load() != 0 {
			t.Errorf("parties=%d: %d stale observations", parties, bad.Load())
		}
		if got := b.Phase(); got != 10 {
			t.Errorf("parties=%d: expected 10 phases, got %d", parties, got)
		}
	}
}
