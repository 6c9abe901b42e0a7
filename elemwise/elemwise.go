// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package elemwise implements the benchmark's execution strategies:
// several ways of evaluating the same pure elementwise kernel over an
// array. Every variant honors one contract: len(in) == len(out), both
// buffers are caller-owned and disjoint, and out[i] depends only on
// in[i]. Single-core variants run on one core; parallel variants are
// invoked identically on every core of a group and write only their own
// partition of the output, so they need no synchronization beyond the
// launch barrier the platform provides.
package elemwise

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/streambench/cluster"
	"github.com/grailbio/streambench/vec"
)

// A Func is the scalar kernel a strategy evaluates elementwise. Kernels
// must be pure: the strategies may evaluate them in any per-core order
// and verify their output against the sequential baseline.
type Func[T vec.Elem] func(T) T

// A Strategy evaluates a kernel over in, writing results to out. For
// parallel variants the platform invokes the same strategy on every
// core of the group, passing each core its own descriptor.
type Strategy[T vec.Elem] func(g cluster.Group, in, out []T) error

// check validates the shared strategy preconditions. The hardware
// original leaves these unchecked; here a violation fails fast instead
// of corrupting memory.
func check[T vec.Elem](g cluster.Group, in, out []T) error {
	if err := g.Err(); err != nil {
		return err
	}
	if len(in) == 0 {
		return errors.E(errors.Precondition, "elemwise: empty input")
	}
	if len(in) != len(out) {
		return errors.E(errors.Precondition,
			fmt.Sprintf("elemwise: length mismatch: input %d, output %d", len(in), len(out)))
	}
	if &in[0] == &out[0] {
		return errors.E(errors.Precondition, "elemwise: input and output buffers alias")
	}
	return nil
}

// Baseline returns the reference strategy: a sequential scalar loop on
// a single core. It is both the slowest-but-simplest variant and the
// ground truth the harness verifies every other variant against.
func Baseline[T vec.Elem](f Func[T]) Strategy[T] {
	return func(g cluster.Group, in, out []T) error {
		if err := check(g, in, out); err != nil {
			return err
		}
		for i, v := range in {
			out[i] = f(v)
		}
		return nil
	}
}

// Parallel returns the multi-core strategy: each core evaluates the
// scalar kernel over its own partition, plus its remainder element if
// one is assigned, in increasing index order.
func Parallel[T vec.Elem](f Func[T]) Strategy[T] {
	return func(g cluster.Group, in, out []T) error {
		if err := check(g, in, out); err != nil {
			return err
		}
		p := g.Partition(len(in))
		for i := p.Offset; i < p.Offset+p.Len; i++ {
			out[i] = f(in[i])
		}
		if p.HasExtra {
			out[p.Extra] = f(in[p.Extra])
		}
		return nil
	}
}
