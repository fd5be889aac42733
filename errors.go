// Package nmp structured error types for better error handling
package nmp

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Partition errors: the run cannot be laid out on the workers
	ErrTypePartition ErrorType = iota
	// Transfer errors: a push or pull between host and worker failed
	ErrTypeTransfer
	// Execution errors: a launch could not start or a kernel rejected its arguments
	ErrTypeExecution
	// Stale profiling records
	ErrTypeStaleLog
	// Reference and device results differ
	ErrTypeVerification
	// Invalid argument errors
	ErrTypeInvalidArg
)

// NMPError represents a structured error with context
type NMPError struct {
	Type    ErrorType
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Additional context
}

// Error implements the error interface
func (e *NMPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nmp %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("nmp %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *NMPError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error must abort the run.
func (e *NMPError) Fatal() bool {
	switch e.Type {
	case ErrTypeStaleLog, ErrTypeVerification:
		return false
	default:
		return true
	}
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypePartition:
		return "Partition"
	case ErrTypeTransfer:
		return "Transfer"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeStaleLog:
		return "StaleLog"
	case ErrTypeVerification:
		return "Verification"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewPartitionError creates an error for a run that cannot be partitioned
func NewPartitionError(op string, message string) error {
	return &NMPError{
		Type:    ErrTypePartition,
		Op:      op,
		Message: message,
	}
}

// NewTransferError creates a host/worker transfer error
func NewTransferError(op string, message string, err error) error {
	return &NMPError{
		Type:    ErrTypeTransfer,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &NMPError{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewStaleLogError creates a warning for a worker whose profiling record
// failed validation. The worker index travels in Context.
func NewStaleLogError(worker int, magic uint64) error {
	return &NMPError{
		Type:    ErrTypeStaleLog,
		Op:      "ReduceRecords",
		Message: fmt.Sprintf("worker %d log magic %#x does not match %#x", worker, magic, uint64(LogMagic)),
		Context: worker,
	}
}

// NewVerificationError creates a mismatch report. The mismatch count travels
// in Context.
func NewVerificationError(op string, mismatches int) error {
	return &NMPError{
		Type:    ErrTypeVerification,
		Op:      op,
		Message: fmt.Sprintf("%d element(s) differ", mismatches),
		Context: mismatches,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &NMPError{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// Common pre-defined errors

var (
	// ErrNoProgram indicates a launch before any program was loaded
	ErrNoProgram = NewExecutionError("Launch", "no program loaded", nil)

	// ErrSetFreed indicates use of a worker set after Free
	ErrSetFreed = NewInvalidArgError("Set", "worker set already freed")

	// ErrUnknownSymbol indicates a transfer to a symbol the worker does not expose
	ErrUnknownSymbol = NewTransferError("PushXfer", "unknown symbol", nil)
)

func errorType(err error) (ErrorType, bool) {
	var e *NMPError
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

// IsPartitionError checks if an error is a partition error
func IsPartitionError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypePartition
}

// IsTransferError checks if an error is a transfer error
func IsTransferError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTransfer
}

// IsExecutionError checks if an error is an execution error
func IsExecutionError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeExecution
}

// IsStaleLogError checks if an error is a stale log warning
func IsStaleLogError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeStaleLog
}

// IsVerificationError checks if an error is a verification mismatch
func IsVerificationError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeVerification
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeInvalidArg
}
