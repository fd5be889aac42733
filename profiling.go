package nmp

import (
	"encoding/binary"
	"fmt"

	"github.com/samber/lo"
)

// ProfilingRecord is the fixed 8-word log a worker writes at the end of a
// kernel invocation. The host trusts words 1-7 only when Magic matches.
type ProfilingRecord struct {
	Magic     uint64    // LogMagic when the record was written by a completed run
	MaxCycles uint64    // Largest lane cycle delta
	Start     uint64    // Start snapshot of lane 0
	End       uint64    // End snapshot of lane 0
	Lanes     uint64    // Lane count of the worker
	Reserved  [2]uint64 // Always zero
	Done      uint64    // 1 once the record is complete
}

// NewProfilingRecord builds a completed record
func NewProfilingRecord(maxCycles, start, end uint64, lanes int) ProfilingRecord {
	return ProfilingRecord{
		Magic:     LogMagic,
		MaxCycles: maxCycles,
		Start:     start,
		End:       end,
		Lanes:     uint64(lanes),
		Done:      1,
	}
}

// Valid reports whether the record carries the magic word
func (r ProfilingRecord) Valid() bool {
	return r.Magic == LogMagic
}

// Words returns the record in wire order
func (r ProfilingRecord) Words() [LogWords]uint64 {
	return [LogWords]uint64{
		r.Magic, r.MaxCycles, r.Start, r.End, r.Lanes,
		r.Reserved[0], r.Reserved[1], r.Done,
	}
}

// MarshalBinary encodes the record as 8 little-endian words
func (r ProfilingRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, LogBytes)
	for _, w := range r.Words() {
		buf = binary.LittleEndian.AppendUint64(buf, w)
	}
	return buf, nil
}

// UnmarshalBinary decodes 8 little-endian words
func (r *ProfilingRecord) UnmarshalBinary(data []byte) error {
	if len(data) != LogBytes {
		return NewTransferError("ProfilingRecord", fmt.Sprintf("record is %d bytes, want %d", len(data), LogBytes), nil)
	}
	var w [LogWords]uint64
	for i := range w {
		w[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	*r = ProfilingRecord{
		Magic:     w[0],
		MaxCycles: w[1],
		Start:     w[2],
		End:       w[3],
		Lanes:     w[4],
		Reserved:  [2]uint64{w[5], w[6]},
		Done:      w[7],
	}
	return nil
}

// ReduceRecords returns the largest MaxCycles over the valid records and the
// indices of the records that failed the magic check.
func ReduceRecords(records []ProfilingRecord) (maxCycles uint64, stale []int) {
	for i, r := range records {
		if !r.Valid() {
			stale = append(stale, i)
		}
	}
	valid := lo.Filter(records, func(r ProfilingRecord, _ int) bool {
		return r.Valid()
	})
	maxCycles = lo.Max(lo.Map(valid, func(r ProfilingRecord, _ int) uint64 {
		return r.MaxCycles
	}))
	return maxCycles, stale
}

// laneTiming holds the per-lane cycle snapshots of one invocation.
type laneTiming struct {
	start []uint64
	end   []uint64
}

func newLaneTiming(lanes int) *laneTiming {
	return &laneTiming{
		start: make([]uint64, lanes),
		end:   make([]uint64, lanes),
	}
}

// record stores the snapshots of one lane. Each lane writes only its own slot.
func (t *laneTiming) record(lane int, t0, t1 uint64) {
	t.start[lane] = t0
	t.end[lane] = t1
}

// max returns the largest lane delta. Call only after every lane recorded.
func (t *laneTiming) max() uint64 {
	var mx uint64
	for i := range t.start {
		if t.end[i] > t.start[i] {
			mx = max(mx, t.end[i]-t.start[i])
		}
	}
	return mx
}
