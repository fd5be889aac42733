// Copyright ©2024 The NMP Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nmp is a tiled near-memory processing engine.
//
// A Set of workers each own a 64MB bulk-memory bank and a 64KB local memory.
// Lanes of a worker stream fixed-size blocks of the bank through lane-owned
// caches, compute, write the blocks back, and time themselves with a
// three-barrier protocol whose result is an 8-word ProfilingRecord in the
// bank's log slot.
//
// On the host side a Plan splits the input into aligned per-worker shares,
// and an Orchestrator pushes arguments and operands, launches every worker,
// and pulls results and profiling records back:
//   - PartitionPlanner: NewPlan
//   - WorkerKernel: NewVectorAdd
//   - ProfilingReducer: the lane protocol in execution.go, ReduceRecords
//   - TransferOrchestrator: Orchestrator.Run
//
// RunBenchmark wraps all of it into the repeated, verified and reported
// benchmark that cmd/nmpva exposes on the command line.
package nmp
