// Package nmp verification of device results against the host reference
package nmp

import (
	"fmt"
	"log"
)

// Mismatch is one index where the device result differs from the reference
type Mismatch[T any] struct {
	Index int
	Want  T
	Got   T
}

// VerificationResult is the verdict of comparing two result buffers
type VerificationResult[T any] struct {
	Equal      bool
	NumErrors  int
	TotalItems int
	FirstError int // Index of first error, -1 if none

	// Per-index mismatches, filled only in detailed mode
	Details []Mismatch[T]
}

// String formats the verification result for display
func (r VerificationResult[T]) String() string {
	if r.Equal {
		return "[OK] Outputs are equal"
	}
	return fmt.Sprintf("[ERROR] Outputs differ! %d/%d values differ, first at index %d",
		r.NumErrors, r.TotalItems, r.FirstError)
}

// Err returns a verification error when the outputs differ
func (r VerificationResult[T]) Err() error {
	if r.Equal {
		return nil
	}
	return NewVerificationError("Verify", r.NumErrors)
}

// Verifier compares device results with the host reference. Results are
// compared for exact equality since both sides run the same element add.
type Verifier struct {
	// Detailed records and logs every mismatching index
	Detailed bool

	// Logger receives detailed mismatch lines; nil discards them
	Logger *log.Logger
}

// Verify compares the first n elements of ref and got. Both buffers must
// hold at least n elements; a shorter buffer counts every element as wrong.
func Verify[T comparable](v Verifier, ref, got []T, n int) VerificationResult[T] {
	result := VerificationResult[T]{
		TotalItems: n,
		FirstError: -1,
	}

	if len(ref) < n || len(got) < n {
		result.NumErrors = n
		result.FirstError = 0
		return result
	}

	for i := 0; i < n; i++ {
		if ref[i] == got[i] {
			continue
		}
		result.NumErrors++
		if result.FirstError == -1 {
			result.FirstError = i
		}
		if v.Detailed {
			result.Details = append(result.Details, Mismatch[T]{Index: i, Want: ref[i], Got: got[i]})
			if v.Logger != nil {
				v.Logger.Printf("%d: %v -- %v", i, ref[i], got[i])
			}
		}
	}

	result.Equal = result.NumErrors == 0
	return result
}

// ComputeReference computes c[i] = a[i] + b[i] on the host with the same
// element add the workers use, so a correct device result is bit-identical.
func ComputeReference[T any](elem Element[T], c, a, b []T, n int) {
	copy(c[:n], b[:n])
	elem.Add(c[:n], a[:n])
}
