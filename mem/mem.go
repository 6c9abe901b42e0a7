// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package mem provides the two memory tiers the latency benchmark
// compares: a fixed-capacity, pre-touched scratchpad arena standing in
// for core-local fast memory, and plain main-memory allocation.
package mem

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/streambench/vec"
)

// A Scratchpad is a bump allocator over a fixed buffer, modeling the
// cluster's core-local scratchpad: allocation never moves data, there
// is no per-allocation free, and capacity is small and fixed. The
// backing buffer is touched at construction so that later accesses stay
// in the fast tier.
type Scratchpad[T vec.Elem] struct {
	buf []T
	off int
}

// NewScratchpad returns a scratchpad holding capacity elements.
func NewScratchpad[T vec.Elem](capacity int) *Scratchpad[T] {
	buf := make([]T, capacity)
	// Fault every page in up front.
	for i := range buf {
		buf[i] = 0
	}
	return &Scratchpad[T]{buf: buf}
}

// Alloc carves an n-element slice out of the scratchpad. It returns an
// Unavailable error when the remaining capacity is too small.
func (s *Scratchpad[T]) Alloc(n int) ([]T, error) {
	if n < 0 {
		return nil, errors.E(errors.Precondition,
			fmt.Sprintf("mem: negative allocation %d", n))
	}
	if s.off+n > len(s.buf) {
		return nil, errors.E(errors.Unavailable,
			fmt.Sprintf("mem: scratchpad exhausted: need %d elements, %d free", n, s.Free()))
	}
	p := s.buf[s.off : s.off+n : s.off+n]
	s.off += n
	return p, nil
}

// Free returns the number of unallocated elements remaining.
func (s *Scratchpad[T]) Free() int { return len(s.buf) - s.off }

// Reset reclaims every scratchpad allocation at once. Slices handed out
// before the reset must not be used afterwards.
func (s *Scratchpad[T]) Reset() { s.off = 0 }

// Alloc allocates an n-element main-memory buffer.
func Alloc[T vec.Elem](n int) []T { return make([]T, n) }
