package nmp

import (
	"encoding/binary"
	"fmt"
)

// Arguments is the record the host pushes to every worker before a launch.
// It selects the kernel and tells it how many bytes to process.
type Arguments struct {
	Size         uint32 // Bytes this worker processes
	TransferSize uint32 // Bytes reserved per operand in the worker heap
	Kernel       uint32 // Index into the loaded program
}

// MarshalBinary encodes the arguments as a padded little-endian record
func (a Arguments) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ArgumentsBytes)
	binary.LittleEndian.PutUint32(buf[0:], a.Size)
	binary.LittleEndian.PutUint32(buf[4:], a.TransferSize)
	binary.LittleEndian.PutUint32(buf[8:], a.Kernel)
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary
func (a *Arguments) UnmarshalBinary(data []byte) error {
	if len(data) < 12 {
		return NewTransferError("Arguments", fmt.Sprintf("record is %d bytes, want %d", len(data), ArgumentsBytes), nil)
	}
	a.Size = binary.LittleEndian.Uint32(data[0:])
	a.TransferSize = binary.LittleEndian.Uint32(data[4:])
	a.Kernel = binary.LittleEndian.Uint32(data[8:])
	return nil
}

// Program is the kernel table loaded onto every worker of a set. The
// argument record's Kernel field indexes it.
type Program struct {
	Name    string
	Kernels []Kernel
}

// NewProgram creates a program from its kernels, in selector order
func NewProgram(name string, kernels ...Kernel) *Program {
	return &Program{Name: name, Kernels: kernels}
}

// Kernel returns the kernel for a selector
func (p *Program) Kernel(selector uint32) (Kernel, error) {
	if int(selector) >= len(p.Kernels) {
		return nil, NewExecutionError("Launch",
			fmt.Sprintf("kernel %d not in program %q with %d kernel(s)", selector, p.Name, len(p.Kernels)), nil)
	}
	return p.Kernels[selector], nil
}
