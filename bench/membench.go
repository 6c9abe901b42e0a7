// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bench

import (
	"github.com/grailbio/streambench/mem"
	"github.com/grailbio/streambench/vec"
)

// Memory-tier benchmark: the same element-by-element copy loop timed
// with the source buffer resident in each tier. The loop is written out
// rather than using copy so both measurements execute identical
// instruction sequences.

// CopyMainToMain times copying n elements between two freshly allocated
// main-memory buffers.
func CopyMainToMain(n int) Measurement {
	src := mem.Alloc[float32](n)
	vec.Fill(src, InputOffset)
	return timeCopy("copy_main_to_main", src, n)
}

// CopyScratchpadToMain times copying n elements from a
// scratchpad-resident buffer into a main-memory buffer.
func CopyScratchpadToMain(sp *mem.Scratchpad[float32], n int) Measurement {
	src, err := sp.Alloc(n)
	if err != nil {
		return Measurement{Op: "copy_scratchpad_to_main", Size: n, Cores: 1, Err: err}
	}
	vec.Fill(src, InputOffset)
	return timeCopy("copy_scratchpad_to_main", src, n)
}

func timeCopy(op string, src []float32, n int) Measurement {
	m := Measurement{Op: op, Size: n, Cores: 1}
	dst := mem.Alloc[float32](n)
	start := Cycles()
	for i := 0; i < n; i++ {
		dst[i] = src[i]
	}
	m.Cycles = Cycles() - start
	m.MaxAbsErr, _ = vec.MaxAbsDiff(dst, src)
	m.Verified = m.MaxAbsErr == 0
	return m
}
