// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package vec defines the flat numeric buffers the benchmark strategies
// operate on, together with deterministic fills and elementwise
// comparison helpers. Buffers are plain slices: the caller owns both the
// input and the output of a strategy invocation, and the two must not
// alias.
package vec

import (
	"math"
	"runtime"

	"github.com/grailbio/base/traverse"
)

// Elem constrains the element types the benchmark kernels support.
type Elem interface {
	~float32 | ~float64
}

// Fill populates dst with the deterministic benchmark input
// dst[i] = i - offset.
func Fill[T Elem](dst []T, offset float64) {
	for i := range dst {
		dst[i] = T(float64(i) - offset)
	}
}

// FillDomain populates dst with len(dst) equally spaced samples of
// [lo, hi). Table-driven benchmarks use it to keep their inputs inside
// the table's domain.
func FillDomain[T Elem](dst []T, lo, hi float64) {
	step := (hi - lo) / float64(len(dst))
	for i := range dst {
		dst[i] = T(lo + float64(i)*step)
	}
}

// Comparisons below this size are not worth fanning out.
const serialThreshold = 1 << 16

// MaxAbsDiff returns the largest elementwise absolute difference between
// a and b and the index at which it occurs, or (0, -1) if the slices are
// elementwise identical. A NaN in either slice counts as an infinite
// difference. It panics if the lengths differ. Large inputs are compared
// in parallel.
func MaxAbsDiff[T Elem](a, b []T) (float64, int) {
	if len(a) != len(b) {
		panic("vec: MaxAbsDiff called with mismatched lengths")
	}
	if len(a) < serialThreshold {
		return maxAbsDiffSerial(a, b, 0)
	}
	type chunkMax struct {
		diff float64
		idx  int
	}
	nchunk := runtime.GOMAXPROCS(0)
	size := (len(a) + nchunk - 1) / nchunk
	maxes := make([]chunkMax, nchunk)
	_ = traverse.Each(nchunk, func(c int) error {
		start := c * size
		end := start + size
		if start >= len(a) {
			maxes[c] = chunkMax{0, -1}
			return nil
		}
		if end > len(a) {
			end = len(a)
		}
		d, i := maxAbsDiffSerial(a[start:end], b[start:end], start)
		maxes[c] = chunkMax{d, i}
		return nil
	})
	best := chunkMax{0, -1}
	for _, m := range maxes {
		if m.idx >= 0 && (best.idx < 0 || m.diff > best.diff) {
			best = m
		}
	}
	return best.diff, best.idx
}

func maxAbsDiffSerial[T Elem](a, b []T, base int) (float64, int) {
	var (
		diff = 0.0
		idx  = -1
	)
	for i := range a {
		d := math.Abs(float64(a[i]) - float64(b[i]))
		if math.IsNaN(d) {
			// A NaN on either side never compares greater, so it would
			// otherwise slip past the scan. It is an unconditional
			// mismatch.
			return math.Inf(1), base + i
		}
		if d > diff || idx < 0 && d > 0 {
			diff, idx = d, base+i
		}
	}
	return diff, idx
}
