package nmp

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase names one timed section of a benchmark repetition.
type Phase int

const (
	PhaseReference Phase = iota // Host reference computation
	PhaseInput                  // Host to worker transfer of arguments and operands
	PhaseKernel                 // Launch and wait for all workers
	PhaseOutput                 // Worker to host transfer of results
	numPhases
)

// Phases lists every phase in report order
var Phases = []Phase{PhaseReference, PhaseInput, PhaseKernel, PhaseOutput}

// String returns the label printed for the phase
func (p Phase) String() string {
	switch p {
	case PhaseReference:
		return "CPU"
	case PhaseInput:
		return "CPU-DPU"
	case PhaseKernel:
		return "DPU Kernel"
	case PhaseOutput:
		return "DPU-CPU"
	default:
		return "unknown"
	}
}

// Column returns the result-file column of the phase
func (p Phase) Column() string {
	switch p {
	case PhaseReference:
		return "CPU"
	case PhaseInput:
		return "U_C2D"
	case PhaseKernel:
		return "UPMEM"
	case PhaseOutput:
		return "U_D2C"
	default:
		return "unknown"
	}
}

// PhaseTimings are the durations of the transfer and kernel phases of one run
type PhaseTimings struct {
	Input  time.Duration
	Kernel time.Duration
	Output time.Duration
}

// Timer accumulates per-phase samples over repetitions.
type Timer struct {
	started [numPhases]time.Time
	samples [numPhases][]float64 // milliseconds
}

// NewTimer creates an empty timer
func NewTimer() *Timer {
	return &Timer{}
}

// Start begins timing a phase
func (t *Timer) Start(p Phase) {
	t.started[p] = time.Now()
}

// Stop ends timing a phase and records the sample
func (t *Timer) Stop(p Phase) {
	t.Add(p, time.Since(t.started[p]))
}

// Add records a sample measured elsewhere
func (t *Timer) Add(p Phase, d time.Duration) {
	t.samples[p] = append(t.samples[p], float64(d.Nanoseconds())/1e6)
}

// AddRun records the phases measured by one orchestrator run
func (t *Timer) AddRun(pt PhaseTimings) {
	t.Add(PhaseInput, pt.Input)
	t.Add(PhaseKernel, pt.Kernel)
	t.Add(PhaseOutput, pt.Output)
}

// Samples returns the number of samples of a phase
func (t *Timer) Samples(p Phase) int {
	return len(t.samples[p])
}

// Mean returns the average of a phase in milliseconds, 0 without samples
func (t *Timer) Mean(p Phase) float64 {
	if len(t.samples[p]) == 0 {
		return 0
	}
	return stat.Mean(t.samples[p], nil)
}

// StdDev returns the sample standard deviation in milliseconds, 0 with fewer
// than two samples
func (t *Timer) StdDev(p Phase) float64 {
	if len(t.samples[p]) < 2 {
		return 0
	}
	return stat.StdDev(t.samples[p], nil)
}
