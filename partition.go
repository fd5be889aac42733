package nmp

import (
	"fmt"
)

// Assignment is the share of the input one worker processes.
type Assignment struct {
	Worker        int    // Worker index
	HostOffset    int    // Byte offset of the share in the host A, B and result buffers
	BankA         int    // Heap offset of operand A on the worker
	BankB         int    // Heap offset of operand B (and of the result) on the worker
	Bytes         int    // True bytes to process
	TransferBytes int    // Bytes moved per operand, padded to TransferAlignment
	Kernel        uint32 // Kernel selector
}

// Arguments returns the argument record pushed to the worker
func (a Assignment) Arguments() Arguments {
	return Arguments{
		Size:         uint32(a.Bytes),
		TransferSize: uint32(a.TransferBytes),
		Kernel:       a.Kernel,
	}
}

// Plan is the partition of one input across a worker set.
type Plan struct {
	Elements          int // Logical element count N
	ElementSize       int // Element width in bytes
	Workers           int // Worker count W
	TotalBytes        int // N * ElementSize
	AlignedTotalBytes int // TotalBytes rounded up to TransferAlignment
	ShareBytes        int // Uniform per-worker share, aligned
	Assignments       []Assignment
}

func roundUp(n, align int) int {
	return (n + align - 1) / align * align
}

func divCeil(n, d int) int {
	return (n + d - 1) / d
}

// NewPlan partitions n elements of elemSize bytes across workers, given
// that the pool can provide available workers.
//
// Every worker gets the same aligned share of ceil(n/workers) elements and
// the last worker gets what remains. When the uniform share overshoots the
// input, later workers are clamped down to the remaining bytes (possibly
// zero), so counts never go negative and always sum to n*elemSize.
func NewPlan(n, workers, elemSize, available int) (*Plan, error) {
	if workers < 1 {
		return nil, NewPartitionError("NewPlan", fmt.Sprintf("need at least one worker, got %d", workers))
	}
	if workers > available {
		return nil, NewPartitionError("NewPlan", fmt.Sprintf("%d workers requested, %d available", workers, available))
	}
	if n < 0 {
		return nil, NewPartitionError("NewPlan", fmt.Sprintf("negative element count %d", n))
	}
	switch elemSize {
	case 1, 2, 4, 8:
	default:
		return nil, NewPartitionError("NewPlan", fmt.Sprintf("unsupported element width %d", elemSize))
	}

	p := &Plan{
		Elements:          n,
		ElementSize:       elemSize,
		Workers:           workers,
		TotalBytes:        n * elemSize,
		AlignedTotalBytes: roundUp(n*elemSize, TransferAlignment),
		ShareBytes:        roundUp(divCeil(n, workers)*elemSize, TransferAlignment),
		Assignments:       make([]Assignment, workers),
	}

	for i := range p.Assignments {
		remaining := max(0, p.TotalBytes-i*p.ShareBytes)
		p.Assignments[i] = Assignment{
			Worker:        i,
			HostOffset:    i * p.ShareBytes,
			BankA:         0,
			BankB:         p.ShareBytes,
			Bytes:         min(p.ShareBytes, remaining),
			TransferBytes: p.ShareBytes,
			Kernel:        VectorAddKernel,
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// BufferBytes returns the size of a padded host buffer: one full share per
// worker, never less than AlignedTotalBytes.
func (p *Plan) BufferBytes() int {
	return p.Workers * p.ShareBytes
}

// BufferElements returns BufferBytes in elements
func (p *Plan) BufferElements() int {
	return p.BufferBytes() / p.ElementSize
}

// Validate asserts the layout invariants once so that transfers and kernels
// can rely on them: operand regions fit the worker heap without overlapping
// each other or the log slot, shares are aligned, and the true byte counts
// add up to the input.
func (p *Plan) Validate() error {
	if p.ShareBytes%TransferAlignment != 0 {
		return NewPartitionError("Validate", fmt.Sprintf("share %d not aligned to %d", p.ShareBytes, TransferAlignment))
	}
	if HeapOffset+2*p.ShareBytes > BulkMemorySize {
		return NewPartitionError("Validate", fmt.Sprintf("two operands of %d bytes do not fit a %d byte bank",
			p.ShareBytes, BulkMemorySize-HeapOffset))
	}

	log := Region{Offset: 0, Size: LogBytes}
	sum := 0
	for _, a := range p.Assignments {
		ra := Region{Offset: HeapOffset + a.BankA, Size: a.TransferBytes}
		rb := Region{Offset: HeapOffset + a.BankB, Size: a.TransferBytes}
		if ra.Overlaps(rb) || ra.Overlaps(log) || rb.Overlaps(log) {
			return NewPartitionError("Validate", fmt.Sprintf("worker %d operand regions overlap", a.Worker))
		}
		if a.Bytes < 0 || a.Bytes > a.TransferBytes {
			return NewPartitionError("Validate", fmt.Sprintf("worker %d processes %d of %d bytes",
				a.Worker, a.Bytes, a.TransferBytes))
		}
		sum += a.Bytes
	}
	if sum != p.TotalBytes {
		return NewPartitionError("Validate", fmt.Sprintf("shares sum to %d bytes, input has %d", sum, p.TotalBytes))
	}
	return nil
}
