// Command results-parser summarizes the CSV results nmpva appends to.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/stat"
)

// Row is one phase measurement of one benchmark run
type Row struct {
	Test     string
	Column   string
	MeanMs   float64
	Elements int
	Workers  int
}

// Result aggregates every run of one test, size and phase
type Result struct {
	Test     string
	Column   string
	Elements int
	Workers  int
	Runs     int
	MeanMs   float64
	MinMs    float64
	MaxMs    float64
}

func main() {
	var csvFile string
	pflag.StringVar(&csvFile, "file", "", "CSV results file to parse")
	pflag.Parse()

	if csvFile == "" {
		fmt.Println("Usage: results-parser --file <results.csv>")
		os.Exit(1)
	}

	file, err := os.Open(csvFile)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	rows, err := parseRows(file)
	if err != nil {
		log.Fatal(err)
	}
	printSummary(os.Stdout, summarize(rows))
}

func parseRows(r io.Reader) ([]Row, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}

	var rows []Row
	for i, rec := range records {
		// Header lines repeat when several files were concatenated
		if len(rec) < 5 || rec[0] == "test" {
			continue
		}
		mean, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		elements, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		workers, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		rows = append(rows, Row{Test: rec[0], Column: rec[1], MeanMs: mean, Elements: elements, Workers: workers})
	}
	return rows, nil
}

func summarize(rows []Row) []Result {
	groups := lo.GroupBy(rows, func(r Row) string {
		return fmt.Sprintf("%s|%d|%d|%s", r.Test, r.Workers, r.Elements, r.Column)
	})

	results := make([]Result, 0, len(groups))
	for _, g := range groups {
		ms := lo.Map(g, func(r Row, _ int) float64 { return r.MeanMs })
		results = append(results, Result{
			Test:     g[0].Test,
			Column:   g[0].Column,
			Elements: g[0].Elements,
			Workers:  g[0].Workers,
			Runs:     len(g),
			MeanMs:   stat.Mean(ms, nil),
			MinMs:    lo.Min(ms),
			MaxMs:    lo.Max(ms),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Test != b.Test {
			return a.Test < b.Test
		}
		if a.Workers != b.Workers {
			return a.Workers < b.Workers
		}
		if a.Elements != b.Elements {
			return a.Elements < b.Elements
		}
		return a.Column < b.Column
	})
	return results
}

func printSummary(w io.Writer, results []Result) {
	fmt.Fprintln(w, "\nBenchmark Results Summary")
	fmt.Fprintln(w, "=========================")
	fmt.Fprintf(w, "%-10s %8s %12s %-8s %5s %12s %12s %12s\n",
		"Test", "Workers", "Elements", "Phase", "Runs", "Mean ms", "Min ms", "Max ms")
	fmt.Fprintln(w, strings.Repeat("-", 86))

	for _, r := range results {
		fmt.Fprintf(w, "%-10s %8d %12d %-8s %5d %12.4f %12.4f %12.4f\n",
			r.Test, r.Workers, r.Elements, r.Column, r.Runs, r.MeanMs, r.MinMs, r.MaxMs)
	}
}
