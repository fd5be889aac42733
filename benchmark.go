package nmp

import (
	"fmt"
	"math/rand"
)

// Scaling selects how the input size relates to the worker count
type Scaling int

const (
	WeakScaling   Scaling = iota // InputSize elements per worker
	StrongScaling                // InputSize elements in total
)

// BenchmarkParams are the run-level knobs of the vector addition benchmark
type BenchmarkParams struct {
	Test      string  // Name used in result files
	InputSize int     // Elements, per worker or in total depending on Scaling
	Warmup    int     // Untimed repetitions
	Reps      int     // Timed repetitions
	Scaling   Scaling // Weak or strong scaling
	Detailed  bool    // Report every mismatching index
}

// DefaultBenchmarkParams returns the default parameters
func DefaultBenchmarkParams() BenchmarkParams {
	return BenchmarkParams{
		Test:      "VA",
		InputSize: 2621440,
		Warmup:    1,
		Reps:      3,
		Scaling:   WeakScaling,
	}
}

// Validate checks the parameters
func (p BenchmarkParams) Validate() error {
	if p.InputSize < 0 {
		return NewInvalidArgError("Benchmark", "input size < 0")
	}
	if p.Warmup < 0 {
		return NewInvalidArgError("Benchmark", "warmup < 0")
	}
	if p.Reps <= 0 {
		return NewInvalidArgError("Benchmark", "repetitions <= 0")
	}
	if p.Scaling != WeakScaling && p.Scaling != StrongScaling {
		return NewInvalidArgError("Benchmark", fmt.Sprintf("scaling %d is not supported", p.Scaling))
	}
	return nil
}

// Elements returns the total element count for a worker count
func (p BenchmarkParams) Elements(workers int) int {
	if p.Scaling == WeakScaling {
		return p.InputSize * workers
	}
	return p.InputSize
}

// GenerateInputs fills the first n elements of a and b with deterministic
// pseudo-random values (seed 0), alternating between a and b.
func GenerateInputs[T any](elem Element[T], a, b []T, n int) {
	rng := rand.New(rand.NewSource(0))
	for i := 0; i < n; i++ {
		a[i] = elem.FromInt(int64(rng.Int31()))
		b[i] = elem.FromInt(int64(rng.Int31()))
	}
}

// RunBenchmark runs warmup and timed repetitions of vector addition on the
// set. Every repetition recomputes the host reference and re-pushes both
// operands. The last device result is verified against the reference.
//
// Fatal errors abort and are returned with an empty summary. A verification
// mismatch still produces a full summary, is reported, and is returned as a
// verification error so the caller can set a failing exit status.
func RunBenchmark[T comparable](set *Set, elem Element[T], p BenchmarkParams, v Verifier, rep Reporter) (Summary, error) {
	if err := p.Validate(); err != nil {
		return Summary{}, err
	}
	orch, err := NewOrchestrator(set, elem)
	if err != nil {
		return Summary{}, err
	}
	n := p.Elements(set.Len())
	plan, err := orch.Plan(n)
	if err != nil {
		return Summary{}, err
	}

	cfg := set.Config()
	a := make([]T, plan.BufferElements())
	b := make([]T, plan.BufferElements())
	c := make([]T, n)
	GenerateInputs(elem, a, b, n)

	timer := NewTimer()
	var last *RunResult[T]
	for r := 0; r < p.Warmup+p.Reps; r++ {
		measured := r >= p.Warmup

		if measured {
			timer.Start(PhaseReference)
		}
		ComputeReference(elem, c, a, b, n)
		if measured {
			timer.Stop(PhaseReference)
		}

		res, err := orch.Run(plan, a, b)
		if err != nil {
			return Summary{}, err
		}
		if measured {
			timer.AddRun(res.Timings)
		}
		last = res
	}

	verdict := Verify(v, c, last.Output, n)
	cfg.logf("%s", verdict)

	s := NewSummary(timer)
	s.Test = p.Test
	s.Element = elem.Name
	s.Elements = n
	s.Workers = set.Len()
	s.Lanes = cfg.Lanes
	s.BlockSize = cfg.BlockSize()
	s.MaxCycles = last.MaxCycles
	s.Stale = len(last.Stale)
	s.Verified = verdict.Equal
	s.Host = DetectHost().String()

	if rep != nil {
		if err := rep.Report(s); err != nil {
			return s, err
		}
	}
	return s, verdict.Err()
}
