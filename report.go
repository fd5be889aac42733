package nmp

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// PhaseSummary is the aggregate of one timed phase over the measured
// repetitions
type PhaseSummary struct {
	Name     string  `json:"name"`
	Column   string  `json:"column"`
	MeanMs   float64 `json:"mean_ms"`
	StdDevMs float64 `json:"stddev_ms,omitempty"`
	Samples  int     `json:"samples"`
}

// Summary is what a benchmark hands to its reporters: four timed phases and
// the aggregate cycle count.
type Summary struct {
	Test      string         `json:"test"`
	Element   string         `json:"element"`
	Elements  int            `json:"elements"`
	Workers   int            `json:"workers"`
	Lanes     int            `json:"lanes"`
	BlockSize int            `json:"block_size"`
	Phases    []PhaseSummary `json:"phases"`
	MaxCycles uint64         `json:"max_cycles"`
	Stale     int            `json:"stale_records,omitempty"`
	Verified  bool           `json:"verified"`
	Host      string         `json:"host"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewSummary collects the phases of a timer into a summary
func NewSummary(t *Timer) Summary {
	s := Summary{Timestamp: time.Now()}
	for _, p := range Phases {
		s.Phases = append(s.Phases, PhaseSummary{
			Name:     p.String(),
			Column:   p.Column(),
			MeanMs:   t.Mean(p),
			StdDevMs: t.StdDev(p),
			Samples:  t.Samples(p),
		})
	}
	return s
}

// Reporter receives the summary of a finished benchmark. Reporters only
// format or persist it.
type Reporter interface {
	Report(s Summary) error
}

// Reporters fans a summary out to several reporters, returning all errors
type Reporters []Reporter

// Report implements Reporter
func (rs Reporters) Report(s Summary) error {
	var errs []error
	for _, r := range rs {
		if err := r.Report(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TextReporter prints the summary in the benchmark's console format.
type TextReporter struct {
	W io.Writer
}

// Report implements Reporter
func (r TextReporter) Report(s Summary) error {
	w := r.W
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "nr_elements\t%d\ttype\t%s\n", s.Elements, s.Element)
	fmt.Fprintf(w, "NR_WORKERS\t%d\tNR_LANES\t%d\tBL\t%d\n", s.Workers, s.Lanes, s.BlockSize)
	for _, p := range s.Phases {
		fmt.Fprintf(w, "%s Time (ms): %f\n", p.Name, p.MeanMs)
	}
	fmt.Fprintf(w, "Worker cycles (whole-kernel, max over workers): %d\n", s.MaxCycles)
	if s.Verified {
		fmt.Fprintln(w, "[OK] Outputs are equal")
	} else {
		fmt.Fprintln(w, "[ERROR] Outputs differ!")
	}
	return nil
}

// JSONReporter keeps every summary of a session in one JSON file, rewritten
// after each report so nothing is lost on a crash.
type JSONReporter struct {
	mu          sync.Mutex
	results     []Summary
	sessionFile string
}

// NewJSONReporter creates the log directory and the session file
// <dir>/<session>_<timestamp>.json.
func NewJSONReporter(dir, session string) (*JSONReporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	timestamp := time.Now().Format("20060102_150405")
	r := &JSONReporter{
		sessionFile: filepath.Join(dir, fmt.Sprintf("%s_%s.json", session, timestamp)),
	}
	return r, r.flush()
}

// Path returns the session file
func (r *JSONReporter) Path() string {
	return r.sessionFile
}

// Report implements Reporter
func (r *JSONReporter) Report(s Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, s)
	return r.flush()
}

// flush writes results to disk
func (r *JSONReporter) flush() error {
	data, err := json.MarshalIndent(r.results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return os.WriteFile(r.sessionFile, data, 0644)
}

// CSVReporter appends one row per phase to a results file shared by all
// benchmarks: test, column, mean milliseconds, elements, workers, timestamp.
type CSVReporter struct {
	Path string
}

var csvHeader = []string{"test", "column", "mean_ms", "elements", "workers", "timestamp"}

// Report implements Reporter
func (r CSVReporter) Report(s Summary) error {
	_, statErr := os.Stat(r.Path)
	f, err := os.OpenFile(r.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if errors.Is(statErr, os.ErrNotExist) {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	ts := s.Timestamp.Format(time.RFC3339)
	for _, p := range s.Phases {
		row := []string{
			s.Test,
			p.Column,
			strconv.FormatFloat(p.MeanMs, 'f', 6, 64),
			strconv.Itoa(s.Elements),
			strconv.Itoa(s.Workers),
			ts,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
