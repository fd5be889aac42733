package nmp

import (
	"errors"
	"fmt"
	"sync"
)

// runLanes executes the kernel on every lane of the invocation wrapped in
// the profiling protocol:
//
//  1. lane 0 resets the local heap and the cycle counter, then barrier 1
//     so every lane observes the same start instant;
//  2. every lane snapshots t0, runs the kernel, joins barrier 2 and
//     snapshots t1 into its own timing slot;
//  3. barrier 3 publishes all slots, after which lane 0 reduces the maximum
//     and writes the profiling record to the log symbol.
//
// It returns the first lane error, in lane order.
func runLanes(inv *invocation) error {
	lanes := len(inv.errs)
	w := inv.worker

	var wg sync.WaitGroup
	wg.Add(lanes)

	for id := 0; id < lanes; id++ {
		lane := &Lane{id: id, inv: inv}

		// Launch lane goroutine
		go func() {
			defer wg.Done()

			if lane.id == 0 {
				w.local.Reset()
				w.counter.Reset()
			}
			lane.Barrier()
			t0 := lane.Cycles()

			inv.errs[lane.id] = runKernel(inv.kernel, lane)

			lane.Barrier()
			t1 := lane.Cycles()
			inv.timing.record(lane.id, t0, t1)
			lane.Barrier()

			if lane.id == 0 && errors.Join(inv.errs...) == nil {
				inv.errs[0] = writeRecord(w, NewProfilingRecord(inv.timing.max(), t0, t1, lanes))
			}
		}()
	}

	wg.Wait()

	for id, err := range inv.errs {
		if err != nil {
			return NewExecutionError("Launch", fmt.Sprintf("worker %d lane %d", w.id, id), err)
		}
	}
	return nil
}

// runKernel turns a kernel panic into an error so that the lane still joins
// the remaining barriers.
func runKernel(k Kernel, l *Lane) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kernel %s panicked: %v", k.Name(), r)
		}
	}()
	return k.Run(l)
}

func writeRecord(w *Worker, r ProfilingRecord) error {
	buf, err := r.MarshalBinary()
	if err != nil {
		return err
	}
	return w.bank.Write(w.logRegion.Offset, buf)
}
