package nmp

import (
	"github.com/LynnColeArt/nmp/barrier"
)

// Kernel is a program a worker runs on all of its lanes.
//
// Prepare is called once per invocation before any lane starts; it checks
// the arguments against the worker memory so that Run can index bulk
// memory without further bounds checks. Run is then called concurrently,
// once per lane.
type Kernel interface {
	Name() string
	Prepare(w *Worker, args Arguments) error
	Run(l *Lane) error
}

// invocation is the state of one kernel launch on one worker. It is created
// fresh for every launch, so nothing carries over between runs.
type invocation struct {
	worker  *Worker
	args    Arguments
	kernel  Kernel
	barrier *barrier.Barrier
	timing  *laneTiming
	errs    []error
}

func newInvocation(w *Worker, args Arguments, kernel Kernel) *invocation {
	lanes := w.cfg.Lanes
	return &invocation{
		worker:  w,
		args:    args,
		kernel:  kernel,
		barrier: barrier.New(lanes),
		timing:  newLaneTiming(lanes),
		errs:    make([]error, lanes),
	}
}

// Lane is the execution context of one lane of a worker.
type Lane struct {
	id  int
	inv *invocation
}

// ID returns the lane index in [0, Lanes)
func (l *Lane) ID() int {
	return l.id
}

// Lanes returns the number of lanes of the worker
func (l *Lane) Lanes() int {
	return l.inv.worker.cfg.Lanes
}

// BlockSize returns the configured block cache capacity
func (l *Lane) BlockSize() int {
	return l.inv.worker.cfg.BlockSize()
}

// Args returns the arguments of the current invocation
func (l *Lane) Args() Arguments {
	return l.inv.args
}

// Bank returns the bulk memory of the worker
func (l *Lane) Bank() *Bank {
	return l.inv.worker.bank
}

// AllocCache allocates a block cache of n bytes from local memory
func (l *Lane) AllocCache(n int) (*BlockCache, error) {
	return NewBlockCache(l.inv.worker.local, n)
}

// Cycles returns the worker cycle counter
func (l *Lane) Cycles() uint64 {
	return l.inv.worker.counter.Read()
}

// Barrier waits until every lane of the worker reaches the same point
func (l *Lane) Barrier() {
	l.inv.barrier.Wait()
}
