package nmp

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// RunResult is everything one orchestrated run brings back to the host.
type RunResult[T any] struct {
	Output    []T               // Device result, exactly Plan.Elements long
	Records   []ProfilingRecord // One record per worker, as read
	MaxCycles uint64            // Largest MaxCycles over valid records
	Stale     []int             // Workers whose record failed the magic check
	Timings   PhaseTimings
}

// Orchestrator drives vector addition runs over a worker set.
type Orchestrator[T any] struct {
	set  *Set
	elem Element[T]
	cfg  Config

	// Padded staging buffers reused across runs of the same plan size
	stageA []T
	stageB []T
}

// NewOrchestrator loads the vector addition program for elem on the set.
func NewOrchestrator[T any](set *Set, elem Element[T]) (*Orchestrator[T], error) {
	if err := set.Load(NewVectorAddProgram(elem)); err != nil {
		return nil, err
	}
	return &Orchestrator[T]{set: set, elem: elem, cfg: set.Config()}, nil
}

// Plan partitions n elements across the set
func (o *Orchestrator[T]) Plan(n int) (*Plan, error) {
	return NewPlan(n, o.set.Len(), o.elem.Size(), o.cfg.AvailableWorkers)
}

// padded returns v when it already covers the padded buffer, otherwise a
// reusable staging copy with zero padding.
func padded[T any](v []T, stage *[]T, n, total int) []T {
	if len(v) >= total {
		return v[:total]
	}
	if cap(*stage) < total {
		*stage = make([]T, total)
	}
	s := (*stage)[:total]
	copy(s, v[:n])
	clear(s[n:])
	return s
}

// Run executes one full round trip: it pushes the argument records, clears
// the log slots, pushes both operands, launches all workers, pulls the
// profiling records and the results, and reduces the cycle counts.
//
// Both operands are pushed on every call: the kernel accumulates into B, so
// relaunching without a fresh push would add A again. Any transfer or launch
// failure aborts the run and is returned without partial results.
func (o *Orchestrator[T]) Run(plan *Plan, a, b []T) (*RunResult[T], error) {
	if plan.Workers != o.set.Len() {
		return nil, NewPartitionError("Run", fmt.Sprintf("plan for %d workers, set has %d", plan.Workers, o.set.Len()))
	}
	if plan.ElementSize != o.elem.Size() {
		return nil, NewPartitionError("Run", fmt.Sprintf("plan for %d-byte elements, %s is %d", plan.ElementSize, o.elem.Name, o.elem.Size()))
	}
	if len(a) < plan.Elements || len(b) < plan.Elements {
		return nil, NewInvalidArgError("Run", fmt.Sprintf("operands hold %d and %d elements, plan needs %d",
			len(a), len(b), plan.Elements))
	}

	total := plan.BufferElements()
	bufA := Bytes(padded(a, &o.stageA, plan.Elements, total))
	bufB := Bytes(padded(b, &o.stageB, plan.Elements, total))
	result := make([]T, total)
	bufC := Bytes(result)
	share := plan.ShareBytes

	res := &RunResult[T]{}

	o.cfg.logf("Load input data")
	start := time.Now()
	if err := o.pushInputs(plan, bufA, bufB); err != nil {
		return nil, err
	}
	res.Timings.Input = time.Since(start)

	o.cfg.logf("Run program on %d worker(s)", plan.Workers)
	start = time.Now()
	if err := o.set.Launch(); err != nil {
		return nil, err
	}
	res.Timings.Kernel = time.Since(start)

	records, err := o.pullRecords()
	if err != nil {
		return nil, err
	}
	res.Records = records
	res.MaxCycles, res.Stale = ReduceRecords(records)
	for _, i := range res.Stale {
		o.cfg.logger().Printf("%v", NewStaleLogError(i, records[i].Magic))
	}
	o.cfg.logf("Worker cycles (whole-kernel, max over workers): %d", res.MaxCycles)

	o.cfg.logf("Retrieve results")
	start = time.Now()
	if share > 0 {
		for i := range plan.Assignments {
			if err := o.set.PrepareXfer(i, bufC[i*share:(i+1)*share]); err != nil {
				return nil, err
			}
		}
		if err := o.set.PushXfer(XferFromWorker, HeapSymbol, plan.Assignments[0].BankB, share); err != nil {
			return nil, err
		}
	}
	res.Timings.Output = time.Since(start)

	res.Output = result[:plan.Elements]
	return res, nil
}

func (o *Orchestrator[T]) pushInputs(plan *Plan, bufA, bufB []byte) error {
	for i, asg := range plan.Assignments {
		rec, err := asg.Arguments().MarshalBinary()
		if err != nil {
			return err
		}
		if err := o.set.PrepareXfer(i, rec); err != nil {
			return err
		}
	}
	if err := o.set.PushXfer(XferToWorker, ArgumentsSymbol, 0, ArgumentsBytes); err != nil {
		return err
	}

	// Zeroed log slots, so a worker that does not finish cannot pass off an
	// earlier run's record as its own
	empty := make([]byte, LogBytes)
	for i := range plan.Assignments {
		if err := o.set.PrepareXfer(i, empty); err != nil {
			return err
		}
	}
	if err := o.set.PushXfer(XferToWorker, LogSymbol, 0, LogBytes); err != nil {
		return err
	}

	share := plan.ShareBytes
	if share == 0 {
		return nil
	}
	for _, op := range []struct {
		buf    []byte
		offset int
	}{
		{bufA, plan.Assignments[0].BankA},
		{bufB, plan.Assignments[0].BankB},
	} {
		for i, asg := range plan.Assignments {
			if err := o.set.PrepareXfer(i, op.buf[asg.HostOffset:asg.HostOffset+share]); err != nil {
				return err
			}
		}
		if err := o.set.PushXfer(XferToWorker, HeapSymbol, op.offset, share); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator[T]) pullRecords() ([]ProfilingRecord, error) {
	logs := lo.Times(o.set.Len(), func(int) []byte {
		return make([]byte, LogBytes)
	})
	for i, buf := range logs {
		if err := o.set.PrepareXfer(i, buf); err != nil {
			return nil, err
		}
	}
	if err := o.set.PushXfer(XferFromWorker, LogSymbol, 0, LogBytes); err != nil {
		return nil, err
	}

	records := make([]ProfilingRecord, len(logs))
	for i, buf := range logs {
		if err := records[i].UnmarshalBinary(buf); err != nil {
			return nil, err
		}
	}
	return records, nil
}
