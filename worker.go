package nmp

import (
	"fmt"
)

// Worker is one independent compute unit: a bulk-memory bank, a small local
// memory shared by its lanes, a host-visible argument record and a cycle
// counter. Workers never share memory with each other.
type Worker struct {
	id        int
	cfg       Config
	bank      *Bank
	local     *LocalMemory
	args      []byte
	counter   CycleCounter
	program   *Program
	logRegion Region
	heap      Region
}

func newWorker(id int, cfg Config) *Worker {
	return &Worker{
		id:        id,
		cfg:       cfg,
		bank:      NewBank(BulkMemorySize),
		local:     NewLocalMemory(LocalMemorySize - ArgumentsBytes),
		args:      make([]byte, ArgumentsBytes),
		counter:   newCycleCounter(cfg),
		logRegion: Region{Offset: 0, Size: LogBytes},
		heap:      Region{Offset: HeapOffset, Size: BulkMemorySize - HeapOffset},
	}
}

// ID returns the index of the worker in its set
func (w *Worker) ID() int {
	return w.id
}

// Bank returns the bulk memory of the worker
func (w *Worker) Bank() *Bank {
	return w.bank
}

// symbol resolves a symbol name to its backing memory and region
func (w *Worker) symbol(name string) (Region, bool) {
	switch name {
	case ArgumentsSymbol:
		return Region{Offset: 0, Size: len(w.args)}, true
	case LogSymbol:
		return w.logRegion, true
	case HeapSymbol:
		return w.heap, true
	default:
		return Region{}, false
	}
}

// CopyTo writes src into symbol at offset
func (w *Worker) CopyTo(symbol string, offset int, src []byte) error {
	r, ok := w.symbol(symbol)
	if !ok {
		return NewTransferError("CopyTo", fmt.Sprintf("worker %d has no symbol %q", w.id, symbol), ErrUnknownSymbol)
	}
	if !r.Contains(r.Offset+offset, len(src)) {
		return NewTransferError("CopyTo", fmt.Sprintf("[%d, %d) outside symbol %q of %d bytes",
			offset, offset+len(src), symbol, r.Size), nil)
	}
	if symbol == ArgumentsSymbol {
		copy(w.args[offset:], src)
		return nil
	}
	return w.bank.Write(r.Offset+offset, src)
}

// CopyFrom reads len(dst) bytes of symbol at offset into dst
func (w *Worker) CopyFrom(symbol string, offset int, dst []byte) error {
	r, ok := w.symbol(symbol)
	if !ok {
		return NewTransferError("CopyFrom", fmt.Sprintf("worker %d has no symbol %q", w.id, symbol), ErrUnknownSymbol)
	}
	if !r.Contains(r.Offset+offset, len(dst)) {
		return NewTransferError("CopyFrom", fmt.Sprintf("[%d, %d) outside symbol %q of %d bytes",
			offset, offset+len(dst), symbol, r.Size), nil)
	}
	if symbol == ArgumentsSymbol {
		copy(dst, w.args[offset:])
		return nil
	}
	return w.bank.Read(r.Offset+offset, dst)
}

// Record reads the profiling record currently in the log slot
func (w *Worker) Record() (ProfilingRecord, error) {
	buf := make([]byte, LogBytes)
	var r ProfilingRecord
	if err := w.CopyFrom(LogSymbol, 0, buf); err != nil {
		return r, err
	}
	err := r.UnmarshalBinary(buf)
	return r, err
}

// launch runs the selected kernel of the loaded program on all lanes and
// blocks until every lane has finished.
func (w *Worker) launch() error {
	if w.program == nil {
		return ErrNoProgram
	}
	var args Arguments
	if err := args.UnmarshalBinary(w.args); err != nil {
		return err
	}
	kernel, err := w.program.Kernel(args.Kernel)
	if err != nil {
		return err
	}
	if err := kernel.Prepare(w, args); err != nil {
		return err
	}
	return runLanes(newInvocation(w, args, kernel))
}
