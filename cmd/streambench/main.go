// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Streambench measures the cost of elementwise transcendental kernels
// (sine, sigmoid) under several execution strategies on a fixed core
// group, and the latency gap between the scratchpad and main memory
// tiers. It prints one line per measurement:
//
//	<op>, size: <N>: <cycles> cycles
//
// Only the designated core of the platform group reports; a process
// started with a nonzero core index exits with a sentinel status and
// produces no output.
package main

import (
	"flag"
	"math"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
	"github.com/grailbio/streambench/bench"
	"github.com/grailbio/streambench/cluster"
	"github.com/grailbio/streambench/elemwise"
	"github.com/grailbio/streambench/lut"
	"github.com/grailbio/streambench/mem"
	"github.com/grailbio/streambench/vec"
	"github.com/klauspost/cpuid/v2"
)

// Verification tolerances. The periodic kernel accumulates more
// argument-reduction error across strategies than the saturating one.
const (
	sinTol     = 1e-5
	sigmoidTol = 1e-6
)

// workerExit is the sentinel status for non-reporting cores.
const workerExit = 1

func main() {
	var (
		size      = flag.Int("size", 1024, "number of elements per benchmark array")
		cores     = flag.Int("cores", 0, "core group size for the parallel strategies; 0 uses the platform group size")
		tableSize = flag.Int("table-size", 4096, "number of lookup table samples")
		scratch   = flag.Int("scratchpad", 1<<16, "scratchpad capacity, in elements")
		tsvPath   = flag.String("tsv", "", "also write measurements to this TSV file")
	)
	log.AddFlags()
	flag.Parse()

	// Allocation, timing, and reporting belong to the designated core
	// alone.
	self := cluster.Self()
	if self.Index != 0 {
		os.Exit(workerExit)
	}
	groupSize := *cores
	if groupSize == 0 {
		groupSize = self.Count
	}
	log.Printf("streambench: %s, group of %d cores, size %d", cpuid.CPU.BrandName, groupSize, *size)

	tbl, err := lut.Build(*tableSize)
	must.Nil(err)

	var ms []bench.Measurement
	ms = append(ms, sinSuite(*size, groupSize, tbl)...)
	ms = append(ms, sigmoidSuite(*size, groupSize)...)
	ms = append(ms, memSuite(*size, *scratch)...)

	bench.SetSpeedups(ms)
	must.Nil(bench.WriteText(os.Stdout, ms))
	if *tsvPath != "" {
		f, err := os.Create(*tsvPath)
		must.Nil(err)
		must.Nil(bench.WriteTSV(f, ms))
		must.Nil(f.Close())
	}
}

func sinSuite(n, cores int, tbl *lut.Table) []bench.Measurement {
	base := elemwise.Baseline(elemwise.Sin32)
	// The table-driven measurement needs in-domain inputs; every other
	// variant uses the harness's default fill.
	domainFill := func(dst []float32) { vec.FillDomain(dst, 0, 2*math.Pi) }
	return []bench.Measurement{
		bench.Run(bench.Config[float32]{Op: "sin_baseline", N: n, Cores: 1,
			Strategy: base, Baseline: base, Tol: sinTol}),
		bench.Run(bench.Config[float32]{Op: "sin_stream", N: n, Cores: 1,
			Strategy: elemwise.StreamOffload(elemwise.Sin32), Baseline: base, Tol: sinTol}),
		bench.Run(bench.Config[float32]{Op: "sin_parallel", N: n, Cores: cores,
			Strategy: elemwise.Parallel(elemwise.Sin32), Baseline: base, Tol: sinTol}),
		bench.Run(bench.Config[float32]{Op: "sin_stream_parallel", N: n, Cores: cores,
			Strategy: elemwise.StreamParallel(elemwise.Sin32), Baseline: base, Tol: sinTol}),
		bench.Run(bench.Config[float32]{Op: "sin_lookup", N: n, Cores: 1,
			Strategy: elemwise.Lookup(tbl), Baseline: base, Fill: domainFill, Tol: tbl.MaxErr()}),
	}
}

func sigmoidSuite(n, cores int) []bench.Measurement {
	base := elemwise.Baseline(elemwise.Sigmoid64)
	return []bench.Measurement{
		bench.Run(bench.Config[float64]{Op: "sigmoid_baseline", N: n, Cores: 1,
			Strategy: base, Baseline: base, Tol: sigmoidTol}),
		bench.Run(bench.Config[float64]{Op: "sigmoid_stream", N: n, Cores: 1,
			Strategy: elemwise.StreamOffload(elemwise.Sigmoid64), Baseline: base, Tol: sigmoidTol}),
		bench.Run(bench.Config[float64]{Op: "sigmoid_parallel", N: n, Cores: cores,
			Strategy: elemwise.Parallel(elemwise.Sigmoid64), Baseline: base, Tol: sigmoidTol}),
		bench.Run(bench.Config[float64]{Op: "sigmoid_stream_parallel", N: n, Cores: cores,
			Strategy: elemwise.StreamParallel(elemwise.Sigmoid64), Baseline: base, Tol: sigmoidTol}),
	}
}

func memSuite(n, scratch int) []bench.Measurement {
	sp := mem.NewScratchpad[float32](scratch)
	if n > sp.Free() {
		n = sp.Free()
	}
	return []bench.Measurement{
		bench.CopyMainToMain(n),
		bench.CopyScratchpadToMain(sp, n),
	}
}
