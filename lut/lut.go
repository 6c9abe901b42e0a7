// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package lut builds the sampled sine table used by the table-lookup
// strategy, trading accuracy for a single table read per element.
package lut

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
)

// A Table is a read-only sampled approximation of sine over one period.
// Sample k holds sin(k/scale) with scale = size/(2π), so an input x
// maps to sample floor(x*scale). Tables are built once, on a single
// core, before any parallel strategy runs; evaluation is safe to share
// across cores.
type Table struct {
	samples []float32
	scale   float64
}

// Build samples sine at size equally spaced points over [0, 2π).
func Build(size int) (*Table, error) {
	if size <= 0 {
		return nil, errors.E(errors.Precondition,
			fmt.Sprintf("lut: invalid table size %d", size))
	}
	t := &Table{
		samples: make([]float32, size),
		scale:   float64(size) / (2 * math.Pi),
	}
	for k := range t.samples {
		t.samples[k] = float32(math.Sin(float64(k) / t.scale))
	}
	return t, nil
}

// Size returns the number of stored samples.
func (t *Table) Size() int { return len(t.samples) }

// Scale returns the factor mapping an input value to a sample index.
func (t *Table) Scale() float64 { return t.scale }

// MaxErr returns the worst-case absolute error of the approximation for
// in-domain inputs: one sample step, since floor-indexing is off by at
// most one step and the function's slope is at most 1.
func (t *Table) MaxErr() float64 { return 1 / t.scale }

// At reads the sample for x with no domain check, exactly as the
// hardware implementation does: an input outside [0, 2π) indexes out of
// bounds. There is deliberately no modulo reduction of the input; the
// checked entry point is Lookup.
func (t *Table) At(x float32) float32 {
	return t.samples[int(float64(x)*t.scale)]
}

// Lookup reads the sample for x, rejecting out-of-domain inputs with an
// Invalid error instead of an out-of-bounds access.
func (t *Table) Lookup(x float32) (float32, error) {
	// Floor rather than truncate so that small negatives land at -1 and
	// are rejected instead of sharing sample 0 with the in-domain inputs.
	k := int(math.Floor(float64(x) * t.scale))
	if k < 0 || k >= len(t.samples) {
		return 0, errors.E(errors.Invalid,
			fmt.Sprintf("lut: input %v outside the table domain [0, 2π)", x))
	}
	return t.samples[k], nil
}
