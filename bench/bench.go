// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bench is the benchmark harness. It owns buffer allocation,
// deterministic input data, cycle counting, verification against the
// baseline, and reporting. Only the group's designated core runs the
// harness; worker cores execute strategies and nothing else. A
// verification failure is recorded and reported, never fatal: every
// measurement is independent.
package bench

import (
	"time"

	"github.com/grailbio/streambench/cluster"
	"github.com/grailbio/streambench/elemwise"
	"github.com/grailbio/streambench/mem"
	"github.com/grailbio/streambench/vec"
)

// InputOffset is the constant in the deterministic default fill
// in[i] = i - InputOffset.
const InputOffset = 20.0

var epoch = time.Now()

// Cycles reads the monotonic cycle counter bracketing every
// measurement. The default implementation counts nanoseconds on the
// runtime's monotonic clock; tests substitute a deterministic counter.
var Cycles = func() uint64 { return uint64(time.Since(epoch)) }

// A Measurement is the outcome of timing one strategy at one size.
type Measurement struct {
	// Op names the measured operation, "<family>_<variant>".
	Op string
	// Size is the array length.
	Size int
	// Cores is the core-group size the strategy ran on.
	Cores int
	// Cycles is the elapsed cycle count of the strategy invocation.
	Cycles uint64
	// Verified reports whether the output matched the baseline within
	// the configured tolerance.
	Verified bool
	// MaxAbsErr is the largest elementwise deviation from the baseline.
	MaxAbsErr float64
	// Speedup is the baseline-relative speedup, filled by SetSpeedups.
	Speedup float64
	// Err is set when the strategy itself failed; the measurement then
	// carries no timing.
	Err error
}

// A Config describes one measurement.
type Config[T vec.Elem] struct {
	// Op names the measurement in reports.
	Op string
	// N is the array length.
	N int
	// Cores is the core-group size; 1 runs the strategy on a single
	// core without launching a group.
	Cores int
	// Strategy is the variant under measurement.
	Strategy elemwise.Strategy[T]
	// Baseline computes the reference output the strategy is verified
	// against. It runs unmeasured, on a single core, before the
	// strategy.
	Baseline elemwise.Strategy[T]
	// Fill populates the input buffer. Nil means the default
	// deterministic fill in[i] = i - InputOffset.
	Fill func([]T)
	// Tol is the verification tolerance, as a maximum absolute
	// elementwise deviation from the baseline.
	Tol float64
}

// Run executes one measurement: it allocates disjoint input and output
// buffers, fills the input, computes the baseline reference, invokes
// the strategy between two counter reads, and verifies the output
// elementwise. For Cores > 1 the strategy is invoked identically on
// every core of the group, and the timed region spans the whole group's
// execution.
func Run[T vec.Elem](c Config[T]) Measurement {
	m := Measurement{Op: c.Op, Size: c.N, Cores: c.Cores}
	var (
		in   = mem.Alloc[T](c.N)
		out  = mem.Alloc[T](c.N)
		want = mem.Alloc[T](c.N)
	)
	if c.Fill != nil {
		c.Fill(in)
	} else {
		vec.Fill(in, InputOffset)
	}
	if err := c.Baseline(cluster.Solo(), in, want); err != nil {
		m.Err = err
		return m
	}
	var err error
	start := Cycles()
	if c.Cores > 1 {
		err = cluster.Run(c.Cores, func(g cluster.Group) error {
			return c.Strategy(g, in, out)
		})
	} else {
		err = c.Strategy(cluster.Solo(), in, out)
	}
	m.Cycles = Cycles() - start
	if err != nil {
		m.Err = err
		return m
	}
	m.MaxAbsErr, _ = vec.MaxAbsDiff(out, want)
	m.Verified = m.MaxAbsErr <= c.Tol
	return m
}
