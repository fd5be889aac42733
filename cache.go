package nmp

import (
	"fmt"
	"sync"
	"unsafe"
)

// LocalMemory is the small fast memory of one worker. Lanes carve their
// caches out of it with a bump allocator that lane 0 resets at the start of
// every invocation. The backing store is word-typed so that every allocation
// is 8-byte aligned.
type LocalMemory struct {
	mu    sync.Mutex
	words []uint64
	used  int
}

// NewLocalMemory creates a local memory of size bytes (rounded up to a word)
func NewLocalMemory(size int) *LocalMemory {
	return &LocalMemory{
		words: make([]uint64, (size+7)/8),
	}
}

// Size returns the capacity in bytes
func (m *LocalMemory) Size() int {
	return len(m.words) * 8
}

// Used returns the bytes handed out since the last Reset
func (m *LocalMemory) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

// Reset releases every allocation. Only call it while no lane holds a cache.
func (m *LocalMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used = 0
}

// Alloc returns n bytes (rounded up to a word) of zeroed local memory.
// Safe for concurrent use by lanes.
func (m *LocalMemory) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, NewInvalidArgError("Alloc", fmt.Sprintf("negative size %d", n))
	}
	aligned := (n + 7) &^ 7

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.used+aligned > m.Size() {
		return nil, NewExecutionError("Alloc",
			fmt.Sprintf("local memory exhausted: %d used, %d requested, %d total", m.used, aligned, m.Size()), nil)
	}
	words := m.words[m.used/8 : (m.used+aligned)/8]
	m.used += aligned
	clear(words)
	if aligned == 0 {
		return []byte{}, nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), aligned)[:n:n], nil
}

// BlockCache stages one bulk-memory block in local memory. A cache belongs
// to exactly one lane and is reused for every block that lane processes.
type BlockCache struct {
	buf []byte
}

// NewBlockCache allocates a cache of the given capacity from local memory.
func NewBlockCache(mem *LocalMemory, capacity int) (*BlockCache, error) {
	buf, err := mem.Alloc(capacity)
	if err != nil {
		return nil, err
	}
	return &BlockCache{buf: buf}, nil
}

// Capacity returns the block size in bytes
func (c *BlockCache) Capacity() int {
	return len(c.buf)
}

// Load copies n bytes of the bank starting at offset into the cache and
// returns the filled part. The region must be resident and n must not
// exceed the capacity.
func (c *BlockCache) Load(bank *Bank, offset, n int) []byte {
	dst := c.buf[:n]
	copy(dst, bank.data[offset:offset+n])
	return dst
}

// Store writes the first n cached bytes back to the bank at offset.
func (c *BlockCache) Store(bank *Bank, offset, n int) {
	copy(bank.data[offset:offset+n], c.buf[:n])
}

// Bytes returns the first n bytes of the cache
func (c *BlockCache) Bytes(n int) []byte {
	return c.buf[:n]
}

// View reinterprets a word-aligned byte slice as a slice of T. Trailing
// bytes that do not fill a whole element are dropped.
func View[T any](b []byte) []T {
	size := int(unsafe.Sizeof(*new(T)))
	if len(b) < size {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/size)
}

// Bytes reinterprets a slice of T as its raw little-endian bytes on the
// supported (little-endian) hosts.
func Bytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(s[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*size)
}
