package nmp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/x448/float16"
)

// tickCounter advances by one cycle on every read so that lane deltas are
// never zero.
type tickCounter struct {
	ticks atomic.Uint64
}

func (c *tickCounter) Reset()       { c.ticks.Store(0) }
func (c *tickCounter) Read() uint64 { return c.ticks.Add(1) }
func (c *tickCounter) Close() error { return nil }

func useTickCounters(set *Set) {
	for i := 0; i < set.Len(); i++ {
		set.Worker(i).counter = &tickCounter{}
	}
}

func sequence[T any](elem Element[T], n int, scale int64) []T {
	s := make([]T, n)
	for i := range s {
		s[i] = elem.FromInt(int64(i) * scale)
	}
	return s
}

func checkVectorAdd[T comparable](t *testing.T, elem Element[T], set *Set, n int) *RunResult[T] {
	t.Helper()
	orch, err := NewOrchestrator(set, elem)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := orch.Plan(n)
	if err != nil {
		t.Fatal(err)
	}
	a := sequence(elem, n, 3)
	b := sequence(elem, n, 7)
	res := RunOrFail(t, orch, plan, a, b)

	want := make([]T, n)
	ComputeReference(elem, want, a, b, n)
	if diff := cmp.Diff(want, res.Output); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	return res
}

func TestVectorAddUneven(t *testing.T) {
	// 4-element blocks, 2 lanes, 17 elements over 4 workers
	set := AllocOrFail(t, 4, TestConfig(2, 4))
	useTickCounters(set)

	res := checkVectorAdd(t, Int32, set, 17)
	if len(res.Output) != 17 {
		t.Errorf("len(Output) = %d, want 17", len(res.Output))
	}
	if len(res.Stale) != 0 {
		t.Errorf("stale records %v", res.Stale)
	}
	for i, r := range res.Records {
		if !r.Valid() || r.Done != 1 || r.Lanes != 2 {
			t.Errorf("worker %d record %+v", i, r)
		}
		// The reported max covers at least lane 0's own span
		if r.MaxCycles < r.End-r.Start {
			t.Errorf("worker %d max %d below lane 0 delta %d", i, r.MaxCycles, r.End-r.Start)
		}
	}
	if res.MaxCycles == 0 {
		t.Error("MaxCycles = 0")
	}
}

func TestVectorAddEmpty(t *testing.T) {
	set := AllocOrFail(t, 4, TestConfig(2, 4))
	res := checkVectorAdd(t, Int32, set, 0)
	if len(res.Output) != 0 {
		t.Errorf("len(Output) = %d, want 0", len(res.Output))
	}
	// Workers still run and log
	for i, r := range res.Records {
		if !r.Valid() {
			t.Errorf("worker %d record not valid", i)
		}
	}
}

func TestVectorAddShapes(t *testing.T) {
	for _, lanes := range []int{1, 2, 3, 16, MaxLanes} {
		for _, log2 := range []int{MinBlockSizeLog2, 4, 7, DefaultBlockSizeLog2, MaxBlockSizeLog2} {
			cfg := TestConfig(lanes, log2)
			if cfg.Validate() != nil {
				continue
			}
			for _, n := range []int{1, 17, 1000, 4099} {
				t.Run(fmt.Sprintf("L%d/B%d/N%d", lanes, cfg.BlockSize(), n), func(t *testing.T) {
					set := AllocOrFail(t, 3, cfg)
					checkVectorAdd(t, Int32, set, n)
				})
			}
		}
	}
}

func TestVectorAddElementTypes(t *testing.T) {
	cfg := TestConfig(4, 5)
	t.Run("uint32", func(t *testing.T) { checkVectorAdd(t, Uint32, AllocOrFail(t, 5, cfg), 333) })
	t.Run("int64", func(t *testing.T) { checkVectorAdd(t, Int64, AllocOrFail(t, 5, cfg), 333) })
	t.Run("uint64", func(t *testing.T) { checkVectorAdd(t, Uint64, AllocOrFail(t, 5, cfg), 333) })
	t.Run("float32", func(t *testing.T) { checkVectorAdd(t, Float32, AllocOrFail(t, 5, cfg), 333) })
	t.Run("float64", func(t *testing.T) { checkVectorAdd(t, Float64, AllocOrFail(t, 5, cfg), 333) })
	t.Run("float16", func(t *testing.T) {
		res := checkVectorAdd(t, Float16, AllocOrFail(t, 5, cfg), 333)
		if got := res.Output[10].Float32(); got != 100 {
			t.Errorf("Output[10] = %v, want 100", got)
		}
	})
}

// Run pushes both operands every time, so repeating it never accumulates
func TestRunRepeatable(t *testing.T) {
	set := AllocOrFail(t, 2, TestConfig(2, 4))
	orch, err := NewOrchestrator(set, Int32)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := orch.Plan(9)
	if err != nil {
		t.Fatal(err)
	}
	a := sequence(Int32, 9, 1)
	b := sequence(Int32, 9, 1)
	first := RunOrFail(t, orch, plan, a, b)
	out := append([]int32(nil), first.Output...)
	second := RunOrFail(t, orch, plan, a, b)
	if diff := cmp.Diff(out, second.Output); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
	// Inputs are left alone
	if a[8] != 8 || b[8] != 8 {
		t.Errorf("inputs modified: a[8]=%d b[8]=%d", a[8], b[8])
	}
}

// Relaunching without re-pushing adds A into the previous result again
func TestRelaunchAccumulates(t *testing.T) {
	set := AllocOrFail(t, 2, TestConfig(2, 4))
	orch, err := NewOrchestrator(set, Int32)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := orch.Plan(10)
	if err != nil {
		t.Fatal(err)
	}
	a := sequence(Int32, 10, 1)
	b := make([]int32, 10)
	RunOrFail(t, orch, plan, a, b)

	if err := set.Launch(); err != nil {
		t.Fatal(err)
	}
	share := plan.ShareBytes
	out := make([]byte, plan.BufferBytes())
	bufs := [][]byte{out[:share], out[share:]}
	PushOrFail(t, set, XferFromWorker, HeapSymbol, plan.Assignments[0].BankB, bufs)
	got := View[int32](out)[:10]
	for i, v := range got {
		if v != int32(2*i) {
			t.Fatalf("element %d = %d, want %d", i, v, 2*i)
		}
	}
}

func TestKernelStopsAtSize(t *testing.T) {
	set := AllocOrFail(t, 1, TestConfig(2, 3))
	if err := set.Load(NewVectorAddProgram(Int32)); err != nil {
		t.Fatal(err)
	}

	// 5 elements to process inside a 6-element transfer
	args, _ := Arguments{Size: 20, TransferSize: 24}.MarshalBinary()
	PushOrFail(t, set, XferToWorker, ArgumentsSymbol, 0, [][]byte{args})
	ones := Bytes([]int32{1, 1, 1, 1, 1, 1})
	PushOrFail(t, set, XferToWorker, HeapSymbol, 0, [][]byte{ones})
	PushOrFail(t, set, XferToWorker, HeapSymbol, 24, [][]byte{make([]byte, 24)})

	if err := set.Launch(); err != nil {
		t.Fatal(err)
	}

	out := make([]byte, 24)
	PushOrFail(t, set, XferFromWorker, HeapSymbol, 24, [][]byte{out})
	if diff := cmp.Diff([]int32{1, 1, 1, 1, 1, 0}, View[int32](out)); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}
}

func TestStaleRecordDetected(t *testing.T) {
	set := AllocOrFail(t, 4, TestConfig(2, 4))
	orch, err := NewOrchestrator(set, Int32)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := orch.Plan(32)
	if err != nil {
		t.Fatal(err)
	}
	RunOrFail(t, orch, plan, sequence(Int32, 32, 1), sequence(Int32, 32, 1))

	// Corrupt the magic of worker 2
	bad := make([]byte, LogBytes)
	binary.LittleEndian.PutUint64(bad, 0x1234)
	binary.LittleEndian.PutUint64(bad[8:], 1<<60)
	if err := set.Worker(2).CopyTo(LogSymbol, 0, bad); err != nil {
		t.Fatal(err)
	}

	records, err := orch.pullRecords()
	if err != nil {
		t.Fatal(err)
	}
	mx, stale := ReduceRecords(records)
	if diff := cmp.Diff([]int{2}, stale); diff != "" {
		t.Errorf("stale (-want +got):\n%s", diff)
	}
	if mx == 1<<60 {
		t.Error("stale record contributed to the maximum")
	}
}

func TestLogSlotClearedBeforeLaunch(t *testing.T) {
	set := AllocOrFail(t, 2, TestConfig(2, 4))
	orch, err := NewOrchestrator(set, Int32)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := orch.Plan(8)
	if err != nil {
		t.Fatal(err)
	}
	RunOrFail(t, orch, plan, sequence(Int32, 8, 1), sequence(Int32, 8, 1))

	// A second run whose launch fails must not leave the old record valid
	set.Load(NewProgram("broken", failingKernel{lane: 0}))
	if _, err := orch.Run(plan, sequence(Int32, 8, 1), sequence(Int32, 8, 1)); !IsExecutionError(err) {
		t.Fatalf("Run() = %v, want execution error", err)
	}
	for i := 0; i < set.Len(); i++ {
		r, err := set.Worker(i).Record()
		if err != nil {
			t.Fatal(err)
		}
		if r.Valid() {
			t.Errorf("worker %d kept a valid record from the previous run", i)
		}
	}
}

// failingKernel fails on one lane, or panics when panics is set
type failingKernel struct {
	lane   int
	panics bool
}

func (k failingKernel) Name() string                         { return "failing" }
func (k failingKernel) Prepare(w *Worker, a Arguments) error { return nil }
func (k failingKernel) Run(l *Lane) error {
	if l.ID() != k.lane {
		return nil
	}
	if k.panics {
		panic("boom")
	}
	return errors.New("lane failed")
}

func TestLaunchErrors(t *testing.T) {
	t.Run("no program", func(t *testing.T) {
		set := AllocOrFail(t, 2, TestConfig(2, 4))
		if err := set.Launch(); !errors.Is(err, ErrNoProgram) {
			t.Errorf("Launch() = %v, want ErrNoProgram", err)
		}
	})

	t.Run("empty program", func(t *testing.T) {
		set := AllocOrFail(t, 1, TestConfig(2, 4))
		if err := set.Load(NewProgram("empty")); !IsInvalidArgError(err) {
			t.Errorf("Load() = %v, want invalid argument error", err)
		}
	})

	t.Run("bad selector", func(t *testing.T) {
		set := AllocOrFail(t, 1, TestConfig(2, 4))
		set.Load(NewVectorAddProgram(Int32))
		args, _ := Arguments{Kernel: 3}.MarshalBinary()
		PushOrFail(t, set, XferToWorker, ArgumentsSymbol, 0, [][]byte{args})
		if err := set.Launch(); !IsExecutionError(err) {
			t.Errorf("Launch() = %v, want execution error", err)
		}
	})

	t.Run("size past transfer", func(t *testing.T) {
		set := AllocOrFail(t, 1, TestConfig(2, 4))
		set.Load(NewVectorAddProgram(Int32))
		args, _ := Arguments{Size: 32, TransferSize: 16}.MarshalBinary()
		PushOrFail(t, set, XferToWorker, ArgumentsSymbol, 0, [][]byte{args})
		if err := set.Launch(); !IsExecutionError(err) {
			t.Errorf("Launch() = %v, want execution error", err)
		}
	})

	t.Run("partial element", func(t *testing.T) {
		set := AllocOrFail(t, 1, TestConfig(2, 4))
		set.Load(NewVectorAddProgram(Int64))
		args, _ := Arguments{Size: 12, TransferSize: 16}.MarshalBinary()
		PushOrFail(t, set, XferToWorker, ArgumentsSymbol, 0, [][]byte{args})
		if err := set.Launch(); !IsExecutionError(err) {
			t.Errorf("Launch() = %v, want execution error", err)
		}
	})

	for _, panics := range []bool{false, true} {
		t.Run(fmt.Sprintf("lane failure panics=%v", panics), func(t *testing.T) {
			set := AllocOrFail(t, 3, TestConfig(4, 4))
			set.Load(NewProgram("failing", failingKernel{lane: 2, panics: panics}))
			PushOrFail(t, set, XferToWorker, ArgumentsSymbol, 0,
				[][]byte{make([]byte, ArgumentsBytes), make([]byte, ArgumentsBytes), make([]byte, ArgumentsBytes)})
			err := set.Launch()
			if !IsExecutionError(err) {
				t.Fatalf("Launch() = %v, want execution error", err)
			}
			// No record for a failed invocation
			r, rerr := set.Worker(0).Record()
			if rerr != nil {
				t.Fatal(rerr)
			}
			if r.Valid() {
				t.Error("failed invocation wrote a valid record")
			}
		})
	}
}

func TestRunPlanMismatch(t *testing.T) {
	set := AllocOrFail(t, 2, TestConfig(2, 4))
	orch, err := NewOrchestrator(set, Int32)
	if err != nil {
		t.Fatal(err)
	}

	other, _ := NewPlan(8, 3, 4, DefaultAvailableWorkers)
	if _, err := orch.Run(other, make([]int32, 8), make([]int32, 8)); !IsPartitionError(err) {
		t.Errorf("Run() with foreign plan = %v, want partition error", err)
	}
	wide, _ := NewPlan(8, 2, 8, DefaultAvailableWorkers)
	if _, err := orch.Run(wide, make([]int32, 8), make([]int32, 8)); !IsPartitionError(err) {
		t.Errorf("Run() with wrong element width = %v, want partition error", err)
	}
	plan, _ := orch.Plan(8)
	if _, err := orch.Run(plan, make([]int32, 7), make([]int32, 8)); !IsInvalidArgError(err) {
		t.Errorf("Run() with short operand = %v, want invalid argument error", err)
	}
}

func TestFloat16Rounding(t *testing.T) {
	set := AllocOrFail(t, 1, TestConfig(1, 3))
	orch, err := NewOrchestrator(set, Float16)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := orch.Plan(3)
	if err != nil {
		t.Fatal(err)
	}
	a := []float16.Float16{float16.Fromfloat32(2048), float16.Fromfloat32(0.5), float16.Fromfloat32(-1)}
	b := []float16.Float16{float16.Fromfloat32(1), float16.Fromfloat32(0.25), float16.Fromfloat32(1)}
	res := RunOrFail(t, orch, plan, a, b)
	// 2049 is not representable and rounds to even
	want := []float32{2048, 0.75, 0}
	for i, w := range want {
		if got := res.Output[i].Float32(); got != w {
			t.Errorf("Output[%d] = %v, want %v", i, got, w)
		}
	}
}
