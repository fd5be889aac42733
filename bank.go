package nmp

import (
	"fmt"
)

// XferDirection specifies the direction of a host/worker transfer.
type XferDirection int

const (
	XferToWorker   XferDirection = iota // Host to worker transfer
	XferFromWorker                      // Worker to host transfer
)

// String returns the direction as it appears in logs
func (d XferDirection) String() string {
	switch d {
	case XferToWorker:
		return "to-worker"
	case XferFromWorker:
		return "from-worker"
	default:
		return "unknown"
	}
}

// Region is an offset/length pair into a worker memory.
type Region struct {
	Offset int
	Size   int
}

// End returns the first byte past the region
func (r Region) End() int {
	return r.Offset + r.Size
}

// Overlaps reports whether two non-empty regions share a byte
func (r Region) Overlaps(o Region) bool {
	if r.Size == 0 || o.Size == 0 {
		return false
	}
	return r.Offset < o.End() && o.Offset < r.End()
}

// Contains reports whether [offset, offset+n) lies inside the region
func (r Region) Contains(offset, n int) bool {
	return offset >= r.Offset && n >= 0 && offset+n <= r.End()
}

// Bank is the bulk memory of one worker. It is reached only through block
// reads and writes. Memory that was never written reads as zero; the backing
// buffer grows on demand up to the bank capacity so that idle workers do not
// hold their whole capacity.
type Bank struct {
	capacity int
	data     []byte
}

// NewBank creates a bank with the given capacity in bytes
func NewBank(capacity int) *Bank {
	return &Bank{capacity: capacity}
}

// Capacity returns the size of the bank in bytes
func (b *Bank) Capacity() int {
	return b.capacity
}

// Resident returns the number of bytes currently backed by memory
func (b *Bank) Resident() int {
	return len(b.data)
}

func (b *Bank) check(op string, offset, n int) error {
	if offset < 0 || n < 0 || offset+n > b.capacity {
		return NewTransferError(op, fmt.Sprintf("range [%d, %d) outside bank of %d bytes",
			offset, offset+n, b.capacity), nil)
	}
	return nil
}

// Reserve makes [0, end) resident. Callers reserve a region before handing
// views of it to concurrent lanes, so that lanes never grow the buffer.
func (b *Bank) Reserve(end int) error {
	if err := b.check("Reserve", 0, end); err != nil {
		return err
	}
	if end <= len(b.data) {
		return nil
	}
	if end <= cap(b.data) {
		b.data = b.data[:end]
		return nil
	}
	grown := make([]byte, end, min(b.capacity, max(end, 2*cap(b.data))))
	copy(grown, b.data)
	b.data = grown
	return nil
}

// Read copies len(dst) bytes starting at offset into dst.
func (b *Bank) Read(offset int, dst []byte) error {
	if err := b.check("Read", offset, len(dst)); err != nil {
		return err
	}
	n := 0
	if offset < len(b.data) {
		n = copy(dst, b.data[offset:])
	}
	clear(dst[n:])
	return nil
}

// Write copies src into the bank starting at offset.
func (b *Bank) Write(offset int, src []byte) error {
	if err := b.check("Write", offset, len(src)); err != nil {
		return err
	}
	if err := b.Reserve(offset + len(src)); err != nil {
		return err
	}
	copy(b.data[offset:], src)
	return nil
}

// view returns the resident bytes of r without bounds checks. The region must
// have been reserved.
func (b *Bank) view(r Region) []byte {
	return b.data[r.Offset:r.End():r.End()]
}
