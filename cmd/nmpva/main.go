// Copyright ©2024 The NMP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nmpva runs the vector addition benchmark on a set of near-memory
// workers and verifies the result against the host.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/LynnColeArt/nmp"
)

// Exit status
const (
	exitOK       = 0
	exitMismatch = 1
	exitFatal    = 2
)

type options struct {
	workers    int
	lanes      int
	blockLog2  int
	warmup     int
	reps       int
	exp        int
	inputSize  int
	elemType   string
	counter    string
	reportJSON string
	reportCSV  string
	verbose    bool
	detailed   bool
}

func defaultOptions() options {
	p := nmp.DefaultBenchmarkParams()
	return options{
		workers:   nmp.DefaultWorkers,
		lanes:     nmp.DefaultLanes,
		blockLog2: nmp.DefaultBlockSizeLog2,
		warmup:    p.Warmup,
		reps:      p.Reps,
		exp:       int(p.Scaling),
		inputSize: p.InputSize,
		elemType:  "int32",
		counter:   string(nmp.CounterClock),
	}
}

func addFlags(fs *pflag.FlagSet, o *options) {
	fs.IntVarP(&o.workers, "workers", "d", o.workers, "number of workers")
	fs.IntVarP(&o.lanes, "lanes", "t", o.lanes, "lanes per worker")
	fs.IntVarP(&o.blockLog2, "block-log2", "b", o.blockLog2, "log2 of the block size in bytes")
	fs.IntVarP(&o.warmup, "warmup", "w", o.warmup, "number of untimed warmup repetitions")
	fs.IntVarP(&o.reps, "reps", "e", o.reps, "number of timed repetitions")
	fs.IntVarP(&o.exp, "exp", "x", o.exp, "0 = weak scaling (input size per worker), 1 = strong scaling")
	fs.IntVarP(&o.inputSize, "input-size", "i", o.inputSize, "input size in elements")
	fs.StringVar(&o.elemType, "type", o.elemType, "element type: "+strings.Join(nmp.ElementNames, ", "))
	fs.StringVar(&o.counter, "counter", o.counter, "cycle counter: clock or perf")
	fs.StringVar(&o.reportJSON, "report-json", "", "directory for the JSON session log")
	fs.StringVar(&o.reportCSV, "report-csv", "", "CSV file results are appended to")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log every phase")
	fs.BoolVar(&o.detailed, "detailed", false, "print every mismatching element")
}

func (o options) config() nmp.Config {
	cfg := nmp.DefaultConfig()
	cfg.Lanes = o.lanes
	cfg.BlockSizeLog2 = o.blockLog2
	cfg.Counter = nmp.CounterKind(o.counter)
	cfg.Verbose = o.verbose
	return cfg
}

func (o options) params() nmp.BenchmarkParams {
	p := nmp.DefaultBenchmarkParams()
	p.InputSize = o.inputSize
	p.Warmup = o.warmup
	p.Reps = o.reps
	p.Scaling = nmp.Scaling(o.exp)
	p.Detailed = o.detailed
	return p
}

func (o options) reporter(stdout io.Writer) (nmp.Reporter, error) {
	rs := nmp.Reporters{nmp.TextReporter{W: stdout}}
	if o.reportJSON != "" {
		jr, err := nmp.NewJSONReporter(o.reportJSON, "va")
		if err != nil {
			return nil, err
		}
		rs = append(rs, jr)
	}
	if o.reportCSV != "" {
		rs = append(rs, nmp.CSVReporter{Path: o.reportCSV})
	}
	return rs, nil
}

func run[T comparable](set *nmp.Set, elem nmp.Element[T], p nmp.BenchmarkParams, v nmp.Verifier, rep nmp.Reporter) error {
	_, err := nmp.RunBenchmark(set, elem, p, v, rep)
	return err
}

func benchmark(o options, stdout io.Writer, logger *log.Logger) error {
	cfg := o.config()
	cfg.Logger = logger
	if err := cfg.Validate(); err != nil {
		return err
	}
	p := o.params()
	if err := p.Validate(); err != nil {
		return err
	}
	rep, err := o.reporter(stdout)
	if err != nil {
		return err
	}

	set, err := nmp.Alloc(o.workers, cfg)
	if err != nil {
		return err
	}
	freed := false
	free := func() {
		if !freed {
			freed = true
			set.Free()
		}
	}
	atexit.Register(free)
	defer free()

	logger.Printf("Allocated %d worker(s) on %s", set.Len(), nmp.DetectHost())

	v := nmp.Verifier{Detailed: o.detailed, Logger: logger}
	switch o.elemType {
	case "int32":
		return run(set, nmp.Int32, p, v, rep)
	case "uint32":
		return run(set, nmp.Uint32, p, v, rep)
	case "int64":
		return run(set, nmp.Int64, p, v, rep)
	case "uint64":
		return run(set, nmp.Uint64, p, v, rep)
	case "float32":
		return run(set, nmp.Float32, p, v, rep)
	case "float64":
		return run(set, nmp.Float64, p, v, rep)
	case "float16":
		return run(set, nmp.Float16, p, v, rep)
	default:
		return nmp.NewInvalidArgError("nmpva", fmt.Sprintf("unknown element type %q", o.elemType))
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := defaultOptions()
	cmd := &cobra.Command{
		Use:           "nmpva",
		Short:         "Vector addition on near-memory workers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return benchmark(o, stdout, log.New(stderr, "nmpva: ", 0))
		},
	}
	addFlags(cmd.Flags(), &o)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the module version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version, sum := nmp.Version()
			if version == "" {
				version = "(devel)"
			}
			fmt.Fprintf(stdout, "nmp %s %s\n", version, sum)
			fmt.Fprintf(stdout, "host %s\n", nmp.DetectHost())
		},
	})
	return cmd
}

// execute runs the command line and maps the outcome to an exit status
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()

	var nerr *nmp.NMPError
	switch {
	case err == nil:
		return exitOK
	case nmp.IsVerificationError(err):
		return exitMismatch
	case errors.As(err, &nerr) && !nerr.Fatal():
		fmt.Fprintf(stderr, "nmpva: %v\n", err)
		return exitMismatch
	default:
		fmt.Fprintf(stderr, "nmpva: %v\n", err)
		return exitFatal
	}
}

func main() {
	atexit.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
