package nmp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestNewPlanUneven(t *testing.T) {
	// 17 int32 over 4 workers: ceil(17/4)=5 elements, 20 bytes, aligned to 24
	p, err := NewPlan(17, 4, 4, DefaultAvailableWorkers)
	if err != nil {
		t.Fatal(err)
	}
	if p.ShareBytes != 24 {
		t.Errorf("ShareBytes = %d, want 24", p.ShareBytes)
	}
	if p.TotalBytes != 68 || p.AlignedTotalBytes != 72 {
		t.Errorf("TotalBytes = %d, AlignedTotalBytes = %d", p.TotalBytes, p.AlignedTotalBytes)
	}

	want := []int{24, 24, 20, 0}
	got := make([]int, len(p.Assignments))
	for i, a := range p.Assignments {
		got[i] = a.Bytes
		if a.HostOffset != i*24 || a.TransferBytes != 24 || a.BankB != 24 {
			t.Errorf("worker %d assignment %+v", i, a)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("per-worker bytes (-want +got):\n%s", diff)
	}
	if p.BufferBytes() != 96 || p.BufferElements() != 24 {
		t.Errorf("BufferBytes = %d, BufferElements = %d", p.BufferBytes(), p.BufferElements())
	}
}

func TestNewPlanEven(t *testing.T) {
	p, err := NewPlan(1024, 8, 8, DefaultAvailableWorkers)
	if err != nil {
		t.Fatal(err)
	}
	want := Assignment{Worker: 3, HostOffset: 3 * 1024, BankA: 0, BankB: 1024, Bytes: 1024, TransferBytes: 1024}
	if diff := cmp.Diff(want, p.Assignments[3]); diff != "" {
		t.Errorf("assignment (-want +got):\n%s", diff)
	}
}

func TestNewPlanEmpty(t *testing.T) {
	p, err := NewPlan(0, 4, 4, DefaultAvailableWorkers)
	if err != nil {
		t.Fatal(err)
	}
	if p.ShareBytes != 0 || p.TotalBytes != 0 {
		t.Errorf("ShareBytes = %d, TotalBytes = %d", p.ShareBytes, p.TotalBytes)
	}
	for _, a := range p.Assignments {
		if a.Bytes != 0 {
			t.Errorf("worker %d processes %d bytes", a.Worker, a.Bytes)
		}
	}
}

func TestNewPlanErrors(t *testing.T) {
	tests := []struct {
		name                    string
		n, workers, elem, avail int
	}{
		{"no workers", 10, 0, 4, 64},
		{"too many workers", 10, 65, 4, 64},
		{"negative count", -1, 4, 4, 64},
		{"odd element", 10, 4, 3, 64},
		{"wide element", 10, 4, 16, 64},
		// Two operands of 40MB each do not fit one bank
		{"share too large", 10 << 20, 1, 4, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(tt.n, tt.workers, tt.elem, tt.avail)
			if !IsPartitionError(err) {
				t.Errorf("NewPlan() = %v, want partition error", err)
			}
		})
	}
}

// The share sizes must cover the input exactly for any shape
func TestPlanInvariants(t *testing.T) {
	for _, elem := range []int{1, 2, 4, 8} {
		for _, workers := range []int{1, 2, 3, 7, 64} {
			for _, n := range []int{0, 1, 5, 17, 63, 64, 65, 1000, 4097} {
				p, err := NewPlan(n, workers, elem, DefaultAvailableWorkers)
				if err != nil {
					t.Fatalf("NewPlan(%d, %d, %d): %v", n, workers, elem, err)
				}
				sum := 0
				for _, a := range p.Assignments {
					if a.Bytes < 0 || a.Bytes > a.TransferBytes {
						t.Fatalf("n=%d w=%d e=%d worker %d bytes %d", n, workers, elem, a.Worker, a.Bytes)
					}
					if a.TransferBytes%TransferAlignment != 0 {
						t.Fatalf("unaligned transfer %d", a.TransferBytes)
					}
					sum += a.Bytes
				}
				last := p.Assignments[len(p.Assignments)-1].Bytes
				for _, a := range p.Assignments {
					if last > a.Bytes {
						t.Fatalf("n=%d w=%d e=%d: last worker %d bytes above worker %d with %d",
							n, workers, elem, last, a.Worker, a.Bytes)
					}
				}
				if sum != n*elem {
					t.Fatalf("n=%d w=%d e=%d: shares sum to %d", n, workers, elem, sum)
				}
				if p.BufferBytes() < p.AlignedTotalBytes {
					t.Fatalf("buffer %d smaller than aligned total %d", p.BufferBytes(), p.AlignedTotalBytes)
				}
			}
		}
	}
}

func TestPlanValidateRejectsTampering(t *testing.T) {
	p, err := NewPlan(100, 4, 4, DefaultAvailableWorkers)
	if err != nil {
		t.Fatal(err)
	}

	bad := *p
	bad.Assignments = append([]Assignment(nil), p.Assignments...)
	bad.Assignments[1].Bytes += 4
	if err := bad.Validate(); !IsPartitionError(err) {
		t.Errorf("Validate() with inflated share = %v", err)
	}

	bad.Assignments = append([]Assignment(nil), p.Assignments...)
	bad.Assignments[0].BankB = 8
	if err := bad.Validate(); !IsPartitionError(err) {
		t.Errorf("Validate() with overlapping operands = %v", err)
	}
}

func TestAssignmentArguments(t *testing.T) {
	p, err := NewPlan(17, 4, 4, DefaultAvailableWorkers)
	if err != nil {
		t.Fatal(err)
	}
	got := []Arguments{}
	for _, a := range p.Assignments {
		got = append(got, a.Arguments())
	}
	want := []Arguments{
		{Size: 24, TransferSize: 24},
		{Size: 24, TransferSize: 24},
		{Size: 20, TransferSize: 24},
		{Size: 0, TransferSize: 24},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("arguments (-want +got):\n%s", diff)
	}
}
