// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package elemwise_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/streambench/cluster"
	"github.com/grailbio/streambench/elemwise"
	"github.com/grailbio/streambench/lut"
	"github.com/grailbio/streambench/vec"
)

const (
	sinTol     = 1e-5
	sigmoidTol = 1e-6
)

// invoke runs a strategy the way the harness does: single-core variants
// on a solo descriptor, parallel variants once per core of the group.
func invoke[T vec.Elem](s elemwise.Strategy[T], cores int, in, out []T) error {
	if cores == 1 {
		return s(cluster.Solo(), in, out)
	}
	return cluster.Run(cores, func(g cluster.Group) error {
		return s(g, in, out)
	})
}

type variant32 struct {
	s     elemwise.Strategy[float32]
	cores int
}

func variants32() map[string]variant32 {
	return map[string]variant32{
		"baseline":        {elemwise.Baseline(elemwise.Sin32), 1},
		"stream":          {elemwise.StreamOffload(elemwise.Sin32), 1},
		"parallel":        {elemwise.Parallel(elemwise.Sin32), 4},
		"stream_parallel": {elemwise.StreamParallel(elemwise.Sin32), 4},
		"parallel_wide":   {elemwise.Parallel(elemwise.Sin32), 9},
	}
}

// TestStrategiesMatchBaseline: every variant must agree elementwise
// with the sequential baseline, across sizes that exercise empty
// remainders, remainders, and ranges shorter than the core count.
func TestStrategiesMatchBaseline(t *testing.T) {
	for name, v := range variants32() {
		for _, n := range []int{1, 3, 7, 64, 100, 1000} {
			t.Run(fmt.Sprintf("%s/n=%d", name, n), func(t *testing.T) {
				in := make([]float32, n)
				vec.Fill(in, 20)
				want := make([]float32, n)
				if err := elemwise.Baseline(elemwise.Sin32)(cluster.Solo(), in, want); err != nil {
					t.Fatal(err)
				}
				got := make([]float32, n)
				if err := invoke(v.s, v.cores, in, got); err != nil {
					t.Fatal(err)
				}
				if d, i := vec.MaxAbsDiff(got, want); d > sinTol {
					t.Errorf("diverges from baseline by %g at index %d", d, i)
				}
			})
		}
	}
}

// TestSinScenario pins the baseline itself against the math library:
// n=64, in[i] = i-20, out[i] = sin(i-20).
func TestSinScenario(t *testing.T) {
	const n = 64
	in := make([]float32, n)
	vec.Fill(in, 20)
	out := make([]float32, n)
	if err := elemwise.Baseline(elemwise.Sin32)(cluster.Solo(), in, out); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		want := math.Sin(float64(i) - 20)
		if d := math.Abs(float64(out[i]) - want); d > sinTol {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
}

func TestSigmoidStrategies(t *testing.T) {
	const n = 64
	in := make([]float64, n)
	vec.Fill(in, 20)
	want := make([]float64, n)
	for i := range in {
		want[i] = 1 / (1 + math.Exp(-in[i]))
	}
	for name, v := range map[string]struct {
		s     elemwise.Strategy[float64]
		cores int
	}{
		"baseline":        {elemwise.Baseline(elemwise.Sigmoid64), 1},
		"stream":          {elemwise.StreamOffload(elemwise.Sigmoid64), 1},
		"parallel":        {elemwise.Parallel(elemwise.Sigmoid64), 4},
		"stream_parallel": {elemwise.StreamParallel(elemwise.Sigmoid64), 3},
	} {
		got := make([]float64, n)
		if err := invoke(v.s, v.cores, in, got); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if d, i := vec.MaxAbsDiff(got, want); d > sigmoidTol {
			t.Errorf("%s: diverges by %g at index %d", name, d, i)
		}
	}
}

// TestEveryElementWritten: parallel variants must cover the whole
// output between them, leak nothing, and touch nothing twice. A NaN
// prefill catches unwritten positions.
func TestEveryElementWritten(t *testing.T) {
	const n, cores = 103, 5
	in := make([]float32, n)
	vec.Fill(in, 20)
	for name, s := range map[string]elemwise.Strategy[float32]{
		"parallel":        elemwise.Parallel(elemwise.Sin32),
		"stream_parallel": elemwise.StreamParallel(elemwise.Sin32),
	} {
		out := make([]float32, n)
		nan := float32(math.NaN())
		for i := range out {
			out[i] = nan
		}
		if err := invoke(s, cores, in, out); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		for i, v := range out {
			if v != v {
				t.Errorf("%s: out[%d] never written", name, i)
			}
		}
	}
}

// TestIdempotent: repeated invocations on the same input with fresh
// output buffers are bit-identical; strategies carry no hidden state.
func TestIdempotent(t *testing.T) {
	const n = 257
	in := make([]float32, n)
	vec.Fill(in, 20)
	for name, v := range variants32() {
		first := make([]float32, n)
		if err := invoke(v.s, v.cores, in, first); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		for trial := 0; trial < 3; trial++ {
			out := make([]float32, n)
			if err := invoke(v.s, v.cores, in, out); err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			for i := range out {
				if out[i] != first[i] {
					t.Fatalf("%s trial %d: out[%d] = %v, want %v", name, trial, i, out[i], first[i])
				}
			}
		}
	}
}

func TestPreconditions(t *testing.T) {
	s := elemwise.Baseline(elemwise.Sin32)
	buf := make([]float32, 4)
	for name, err := range map[string]error{
		"length mismatch": s(cluster.Solo(), buf, make([]float32, 3)),
		"empty input":     s(cluster.Solo(), nil, nil),
		"aliased buffers": s(cluster.Solo(), buf, buf),
		"bad descriptor":  s(cluster.Group{Index: 2, Count: 2}, buf, make([]float32, 4)),
	} {
		if !errors.Is(errors.Precondition, err) {
			t.Errorf("%s: got %v, want precondition error", name, err)
		}
	}
}

func TestLookupStrategy(t *testing.T) {
	tbl, err := lut.Build(4096)
	if err != nil {
		t.Fatal(err)
	}
	const n = 64
	in := make([]float32, n)
	vec.FillDomain(in, 0, 2*math.Pi)
	out := make([]float32, n)
	if err := elemwise.Lookup(tbl)(cluster.Solo(), in, out); err != nil {
		t.Fatal(err)
	}
	for i, x := range in {
		if d := math.Abs(float64(out[i]) - math.Sin(float64(x))); d > tbl.MaxErr() {
			t.Errorf("out[%d]: error %g exceeds table bound %g", i, d, tbl.MaxErr())
		}
	}

	// Out-of-domain inputs fail explicitly.
	vec.Fill(in, 20)
	err = elemwise.Lookup(tbl)(cluster.Solo(), in, out)
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want invalid error", err)
	}
}

// TestStreamLookupUnimplemented: the streamed table-lookup variant is a
// deliberate gap and must refuse to run rather than silently work.
func TestStreamLookupUnimplemented(t *testing.T) {
	tbl, err := lut.Build(16)
	if err != nil {
		t.Fatal(err)
	}
	in := make([]float32, 4)
	out := make([]float32, 4)
	if err := elemwise.StreamLookup(tbl)(cluster.Solo(), in, out); !errors.Is(errors.NotSupported, err) {
		t.Errorf("got %v, want not supported error", err)
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want untouched output", i, v)
		}
	}
}

func BenchmarkSinBaseline(b *testing.B) {
	in := make([]float32, 1024)
	vec.Fill(in, 20)
	out := make([]float32, 1024)
	s := elemwise.Baseline(elemwise.Sin32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s(cluster.Solo(), in, out)
	}
}

func BenchmarkSinLookup(b *testing.B) {
	tbl, err := lut.Build(4096)
	if err != nil {
		b.Fatal(err)
	}
	in := make([]float32, 1024)
	vec.FillDomain(in, 0, 2*math.Pi)
	out := make([]float32, 1024)
	s := elemwise.Lookup(tbl)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s(cluster.Solo(), in, out)
	}
}
