package nmp

import (
	"fmt"
)

// VectorAddKernel is the selector of the vector addition kernel in the
// programs built by NewVectorAddProgram.
const VectorAddKernel = 0

// vectorAdd computes B += A over the worker's share. A sits at the start of
// the heap and B right after A's transfer-padded region; results overwrite B.
type vectorAdd[T any] struct {
	elem Element[T]
}

// NewVectorAdd returns the tiled vector addition kernel for an element type.
func NewVectorAdd[T any](elem Element[T]) Kernel {
	return &vectorAdd[T]{elem: elem}
}

// NewVectorAddProgram returns a program whose kernel 0 is vector addition.
func NewVectorAddProgram[T any](elem Element[T]) *Program {
	return NewProgram("va-"+elem.Name, NewVectorAdd(elem))
}

func (k *vectorAdd[T]) Name() string {
	return "vector_addition_" + k.elem.Name
}

// operands returns the bank regions of A and B for the arguments
func operands(args Arguments) (a, b Region) {
	a = Region{Offset: HeapOffset, Size: int(args.TransferSize)}
	b = Region{Offset: a.End(), Size: int(args.TransferSize)}
	return a, b
}

// Prepare checks the arguments once so that the lane loop stays free of
// bounds checks: both operand regions lie inside the bank, never overlap
// each other or the log slot, and the processed size is a whole number of
// elements within the transfer size.
func (k *vectorAdd[T]) Prepare(w *Worker, args Arguments) error {
	if args.Size > args.TransferSize {
		return NewExecutionError("Prepare", fmt.Sprintf("size %d exceeds transfer size %d", args.Size, args.TransferSize), nil)
	}
	if int(args.Size)%k.elem.Size() != 0 {
		return NewExecutionError("Prepare", fmt.Sprintf("size %d is not a multiple of %s width %d",
			args.Size, k.elem.Name, k.elem.Size()), nil)
	}
	a, b := operands(args)
	if a.Overlaps(w.logRegion) || b.Overlaps(w.logRegion) || a.Overlaps(b) {
		return NewExecutionError("Prepare", "operand regions overlap", nil)
	}
	if b.End() > w.bank.Capacity() {
		return NewExecutionError("Prepare", fmt.Sprintf("operands end at %d, bank holds %d", b.End(), w.bank.Capacity()), nil)
	}
	return w.bank.Reserve(max(b.End(), w.logRegion.End()))
}

// Run processes blocks lane, lane+L, lane+2L, ... of the share. The final
// block may be partial; nothing past args.Size is read or written.
func (k *vectorAdd[T]) Run(l *Lane) error {
	bs := l.BlockSize()
	cacheA, err := l.AllocCache(bs)
	if err != nil {
		return err
	}
	cacheB, err := l.AllocCache(bs)
	if err != nil {
		return err
	}

	args := l.Args()
	size := int(args.Size)
	a, b := operands(args)
	bank := l.Bank()
	stride := bs * l.Lanes()

	for off := l.ID() * bs; off < size; off += stride {
		n := bs
		if off+bs >= size {
			n = size - off
		}

		blockA := cacheA.Load(bank, a.Offset+off, n)
		blockB := cacheB.Load(bank, b.Offset+off, n)

		k.elem.Add(View[T](blockB), View[T](blockA))

		cacheB.Store(bank, b.Offset+off, n)
	}
	return nil
}
