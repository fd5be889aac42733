// Package nmp configuration constants
package nmp

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Memory geometry of one worker (in bytes)
const (
	// Bulk memory per worker
	BulkMemorySize = 64 << 20 // 64MB

	// Local memory per worker, shared by all of its lanes
	LocalMemorySize = 64 << 10 // 64KB

	// Host transfers and bank regions are aligned to this many bytes
	TransferAlignment = 8
)

// Profiling log layout
const (
	// Words in one profiling record
	LogWords = 8

	// Bytes reserved for the record at the start of bulk memory
	LogBytes = LogWords * 8

	// Magic word 0 of a valid record ("SKLOGV1")
	LogMagic = 0x534B4C4F475631

	// Bulk-memory offset where the heap starts, right after the log slot
	HeapOffset = LogBytes
)

// Symbols exposed by every worker
const (
	// Kernel argument record, host visible, lives in local memory
	ArgumentsSymbol = "DPU_INPUT_ARGUMENTS"

	// Profiling record in bulk memory
	LogSymbol = "sk_log"

	// Bulk-memory heap used for operands
	HeapSymbol = "DPU_MRAM_HEAP_POINTER_NAME"

	// Padded size of the argument record
	ArgumentsBytes = 16
)

// Lane and block limits
const (
	// Default lanes per worker
	DefaultLanes = 16

	// Maximum lanes per worker
	MaxLanes = 24

	// Default log2 of the block size (1024 bytes)
	DefaultBlockSizeLog2 = 10

	// Smallest block: one aligned transfer
	MinBlockSizeLog2 = 3

	// Largest single block transfer
	MaxBlockSizeLog2 = 11
)

// Timing and pool parameters
const (
	// Worker clock used to derive cycles from elapsed time
	DefaultClockMHz = 350

	// Workers a pool can hand out
	DefaultAvailableWorkers = 2560

	// Default worker count of a run
	DefaultWorkers = 64
)

// CounterKind selects how a worker measures cycles.
type CounterKind string

const (
	// CounterClock derives cycles from the monotonic clock and ClockMHz
	CounterClock CounterKind = "clock"

	// CounterPerf reads CPU cycles from the Linux perf interface and falls
	// back to CounterClock when it is unavailable
	CounterPerf CounterKind = "perf"
)

// Config holds the static topology of a worker set. It is fixed for the
// lifetime of the set.
type Config struct {
	Lanes            int         // Lanes per worker
	BlockSizeLog2    int         // log2 of the block cache capacity
	AvailableWorkers int         // Workers the underlying pool can provide
	ClockMHz         int         // Clock used by CounterClock
	Counter          CounterKind // Cycle counter implementation
	Verbose          bool        // Log progress of every phase
	Logger           *log.Logger // Destination for progress and warnings
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Lanes:            DefaultLanes,
		BlockSizeLog2:    DefaultBlockSizeLog2,
		AvailableWorkers: DefaultAvailableWorkers,
		ClockMHz:         DefaultClockMHz,
		Counter:          CounterClock,
		Logger:           log.New(os.Stderr, "nmp: ", log.LstdFlags),
	}
}

// BlockSize returns the block cache capacity in bytes
func (c Config) BlockSize() int {
	return 1 << c.BlockSizeLog2
}

// Validate checks every parameter and the local-memory budget of the lanes.
func (c Config) Validate() error {
	if c.Lanes <= 0 {
		return NewInvalidArgError("Config", "lanes <= 0")
	}
	if c.Lanes > MaxLanes {
		return NewInvalidArgError("Config", fmt.Sprintf("lanes %d > %d", c.Lanes, MaxLanes))
	}
	if c.BlockSizeLog2 < MinBlockSizeLog2 || c.BlockSizeLog2 > MaxBlockSizeLog2 {
		return NewInvalidArgError("Config", fmt.Sprintf("block size log2 %d outside [%d, %d]",
			c.BlockSizeLog2, MinBlockSizeLog2, MaxBlockSizeLog2))
	}
	if c.AvailableWorkers <= 0 {
		return NewInvalidArgError("Config", "available workers <= 0")
	}
	if c.ClockMHz <= 0 {
		return NewInvalidArgError("Config", "clock MHz <= 0")
	}
	switch c.Counter {
	case CounterClock, CounterPerf:
	default:
		return NewInvalidArgError("Config", fmt.Sprintf("counter %q is not supported", c.Counter))
	}

	// Two caches per lane plus the argument record
	need := 2*c.Lanes*c.BlockSize() + ArgumentsBytes
	if need > LocalMemorySize {
		return NewInvalidArgError("Config", fmt.Sprintf("lane caches need %d bytes, local memory holds %d",
			need, LocalMemorySize))
	}
	return nil
}

func (c Config) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return c.Logger
}

func (c Config) logf(format string, args ...interface{}) {
	if c.Verbose {
		c.logger().Printf(format, args...)
	}
}
