// Package nmp runs element-wise vector workloads on a set of simulated
// near-memory workers. Every worker owns a large bulk memory reachable only
// through block transfers and a tiny local memory shared by its lanes; the
// host partitions the input, pushes operands, launches all workers and pulls
// results plus a compact profiling record from each of them.
//
// Example usage:
//
//	set, err := nmp.Alloc(64, nmp.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer set.Free()
//
//	orch, err := nmp.NewOrchestrator(set, nmp.Int32)
//	if err != nil {
//		log.Fatal(err)
//	}
//	plan, err := orch.Plan(len(a))
//	if err != nil {
//		log.Fatal(err)
//	}
//	res, err := orch.Run(plan, a, b)
//	// res.Output[i] == a[i] + b[i]
package nmp

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Set is a fixed group of workers allocated together. Workers are launched
// together and transferred to together; the set is the only cross-worker
// ordering point.
type Set struct {
	cfg      Config
	workers  []*Worker
	prepared [][]byte
	stats    *TransferStats
	freed    bool
}

// Alloc allocates n workers. It fails before touching any worker when the
// configuration is invalid or when n exceeds the available workers.
func Alloc(n int, cfg Config) (*Set, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, NewPartitionError("Alloc", fmt.Sprintf("need at least one worker, got %d", n))
	}
	if n > cfg.AvailableWorkers {
		return nil, NewPartitionError("Alloc", fmt.Sprintf("%d workers requested, %d available", n, cfg.AvailableWorkers))
	}

	s := &Set{
		cfg:      cfg,
		workers:  make([]*Worker, n),
		prepared: make([][]byte, n),
		stats:    NewTransferStats(),
	}
	for i := range s.workers {
		s.workers[i] = newWorker(i, cfg)
	}
	cfg.logf("Allocated %d worker(s), %d lane(s) each", n, cfg.Lanes)
	return s, nil
}

// Len returns the number of workers
func (s *Set) Len() int {
	return len(s.workers)
}

// Worker returns worker i
func (s *Set) Worker(i int) *Worker {
	return s.workers[i]
}

// Config returns the configuration the set was allocated with
func (s *Set) Config() Config {
	return s.cfg
}

// Stats returns the transfer statistics of the set
func (s *Set) Stats() *TransferStats {
	return s.stats
}

// Load installs a program on every worker
func (s *Set) Load(p *Program) error {
	if s.freed {
		return ErrSetFreed
	}
	if p == nil || len(p.Kernels) == 0 {
		return NewInvalidArgError("Load", "program has no kernels")
	}
	for _, w := range s.workers {
		w.program = p
	}
	return nil
}

// Launch runs the loaded program on all workers and waits for all of them.
// Workers run concurrently and independently. The first failure is returned
// once every worker has stopped. There is no timeout: a worker that never
// finishes blocks Launch.
func (s *Set) Launch() error {
	if s.freed {
		return ErrSetFreed
	}

	var g errgroup.Group
	for _, w := range s.workers {
		g.Go(w.launch)
	}
	return g.Wait()
}

// Free releases the workers. The set cannot be used afterwards.
func (s *Set) Free() error {
	if s.freed {
		return ErrSetFreed
	}
	s.freed = true

	var first error
	for _, w := range s.workers {
		if err := w.counter.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
