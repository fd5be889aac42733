//go:build linux

// Package nmp Linux hardware cycle counter
package nmp

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// perfCounter reads CPU cycles of the host process through perf_event_open.
// It counts the opening thread and every thread it spawns afterwards, which
// covers the lane goroutines' threads.
type perfCounter struct {
	fd int
}

func newPerfCounter() (CycleCounter, error) {
	attr := &unix.PerfEventAttr{
		Type:   unix.PERF_TYPE_HARDWARE,
		Size:   uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Config: unix.PERF_COUNT_HW_CPU_CYCLES,
		Bits:   unix.PerfBitInherit | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv,
	}

	// Monitor this process on any CPU
	fd, err := unix.PerfEventOpen(attr, 0, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("failed to open perf cycles event: %w", err)
	}
	if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to enable perf cycles event: %w", err)
	}
	return &perfCounter{fd: fd}, nil
}

func (c *perfCounter) Reset() {
	unix.IoctlSetInt(c.fd, unix.PERF_EVENT_IOC_RESET, 0)
}

func (c *perfCounter) Read() uint64 {
	var buf [8]byte
	n, err := unix.Read(c.fd, buf[:])
	if err != nil || n != len(buf) {
		return 0
	}
	return binary.NativeEndian.Uint64(buf[:])
}

func (c *perfCounter) Close() error {
	unix.IoctlSetInt(c.fd, unix.PERF_EVENT_IOC_DISABLE, 0)
	return unix.Close(c.fd)
}
