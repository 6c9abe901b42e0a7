// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package lut_test

import (
	"math"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/streambench/lut"
)

func TestBuild(t *testing.T) {
	tbl, err := lut.Build(1024)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := tbl.Size(), 1024; got != want {
		t.Errorf("got size %d, want %d", got, want)
	}
	if got, want := tbl.Scale(), float64(1024)/(2*math.Pi); got != want {
		t.Errorf("got scale %v, want %v", got, want)
	}
}

func TestBuildBadSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := lut.Build(size); !errors.Is(errors.Precondition, err) {
			t.Errorf("size %d: got %v, want precondition error", size, err)
		}
	}
}

// TestRoundTrip: evaluating the table at one sample point per cell
// reproduces the stored values exactly, establishing that evaluation
// addresses the table consistently with its construction.
func TestRoundTrip(t *testing.T) {
	const size = 512
	tbl, err := lut.Build(size)
	if err != nil {
		t.Fatal(err)
	}
	for k := 0; k < size; k++ {
		// Cell midpoints truncate back to index k regardless of
		// float32 rounding.
		x := float32((float64(k) + 0.5) / tbl.Scale())
		want := float32(math.Sin(float64(k) / tbl.Scale()))
		if got := tbl.At(x); got != want {
			t.Fatalf("At(%v): got %v, want %v", x, got, want)
		}
		got, err := tbl.Lookup(x)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("Lookup(%v): got %v, want %v", x, got, want)
		}
	}
}

func TestLookupDomain(t *testing.T) {
	tbl, err := lut.Build(256)
	if err != nil {
		t.Fatal(err)
	}
	// -0.01 and -1e-4 sit within one sample step of zero; truncation
	// toward zero would map them to sample 0 instead of rejecting them.
	for _, x := range []float32{-0.5, -0.01, -1e-4, 7, 100} {
		if _, err := tbl.Lookup(x); !errors.Is(errors.Invalid, err) {
			t.Errorf("Lookup(%v): got %v, want invalid error", x, err)
		}
	}
	if got, err := tbl.Lookup(0); err != nil || got != 0 {
		t.Errorf("Lookup(0): got (%v, %v), want (0, nil)", got, err)
	}
}

// TestApproximationError: in-domain lookups stay within the documented
// worst-case error of the true function.
func TestApproximationError(t *testing.T) {
	tbl, err := lut.Build(4096)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10000; i++ {
		x := 2 * math.Pi * float64(i) / 10000
		got, err := tbl.Lookup(float32(x))
		if err != nil {
			t.Fatal(err)
		}
		if d := math.Abs(float64(got) - math.Sin(x)); d > tbl.MaxErr() {
			t.Fatalf("x=%v: error %v exceeds bound %v", x, d, tbl.MaxErr())
		}
	}
}
