package nmp

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// PrepareXfer registers the host buffer worker i takes part in the next
// PushXfer with. Buffers stay registered until that transfer completes.
func (s *Set) PrepareXfer(i int, buf []byte) error {
	if s.freed {
		return ErrSetFreed
	}
	if i < 0 || i >= len(s.workers) {
		return NewTransferError("PrepareXfer", fmt.Sprintf("worker %d outside set of %d", i, len(s.workers)), nil)
	}
	s.prepared[i] = buf
	return nil
}

// PushXfer moves size bytes between every prepared host buffer and symbol at
// offset on the matching worker, in parallel across workers. Offset and size
// must be multiples of TransferAlignment and every worker must have a
// prepared buffer of at least size bytes. A failure on any worker fails the
// whole transfer; prepared buffers are released either way.
func (s *Set) PushXfer(dir XferDirection, symbol string, offset, size int) error {
	if s.freed {
		return ErrSetFreed
	}
	defer clear(s.prepared)

	if offset%TransferAlignment != 0 || size%TransferAlignment != 0 || offset < 0 || size < 0 {
		return NewTransferError("PushXfer", fmt.Sprintf("offset %d and size %d must be non-negative multiples of %d",
			offset, size, TransferAlignment), nil)
	}
	for i, buf := range s.prepared {
		if len(buf) < size {
			return NewTransferError("PushXfer", fmt.Sprintf("worker %d prepared %d bytes, transfer needs %d",
				i, len(buf), size), nil)
		}
	}

	var g errgroup.Group
	for i, w := range s.workers {
		buf := s.prepared[i][:size]
		g.Go(func() error {
			if dir == XferToWorker {
				return w.CopyTo(symbol, offset, buf)
			}
			return w.CopyFrom(symbol, offset, buf)
		})
	}
	if err := g.Wait(); err != nil {
		return NewTransferError("PushXfer", fmt.Sprintf("%s %s", dir, symbol), err)
	}

	s.stats.Record(dir, int64(size)*int64(len(s.workers)))
	return nil
}

// TransferStats tracks host/worker transfer volume.
type TransferStats struct {
	transfers       atomic.Int64
	toWorkerBytes   atomic.Int64
	fromWorkerBytes atomic.Int64
}

// NewTransferStats creates empty statistics
func NewTransferStats() *TransferStats {
	return &TransferStats{}
}

// Record registers a completed transfer for statistics.
func (t *TransferStats) Record(dir XferDirection, bytes int64) {
	if t == nil {
		return
	}
	if bytes < 0 {
		bytes = 0
	}
	t.transfers.Add(1)
	switch dir {
	case XferToWorker:
		t.toWorkerBytes.Add(bytes)
	case XferFromWorker:
		t.fromWorkerBytes.Add(bytes)
	}
}

// Totals expose aggregate statistics for logging.
func (t *TransferStats) Totals() (transfers int64, bytes int64) {
	if t == nil {
		return 0, 0
	}
	return t.transfers.Load(), t.toWorkerBytes.Load() + t.fromWorkerBytes.Load()
}

func (t *TransferStats) ToWorkerBytes() int64 {
	if t == nil {
		return 0
	}
	return t.toWorkerBytes.Load()
}

func (t *TransferStats) FromWorkerBytes() int64 {
	if t == nil {
		return 0
	}
	return t.fromWorkerBytes.Load()
}
