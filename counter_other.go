//go:build !linux

// Package nmp cycle counter stubs for non-Linux platforms
package nmp

import "errors"

// newPerfCounter is unavailable on non-Linux platforms
func newPerfCounter() (CycleCounter, error) {
	return nil, errors.New("perf cycle counters are only available on Linux")
}
