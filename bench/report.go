// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bench

import (
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/tsv"
)

// Line returns the measurement's report line in the fixed
// "<op>, size: <N>: <cycles> cycles" format.
func (m Measurement) Line() string {
	return fmt.Sprintf("%s, size: %d: %d cycles", m.Op, m.Size, m.Cycles)
}

// family returns the kernel family of an operation name,
// "<family>_<variant>".
func family(op string) string {
	if i := strings.Index(op, "_"); i >= 0 {
		return op[:i]
	}
	return op
}

// SetSpeedups fills each measurement's Speedup field relative to the
// "<family>_baseline" measurement of the same family and size.
// Measurements without a matching baseline, and failed measurements,
// are left at zero.
func SetSpeedups(ms []Measurement) {
	type key struct {
		family string
		size   int
	}
	base := make(map[key]uint64)
	for _, m := range ms {
		if m.Err == nil && strings.HasSuffix(m.Op, "_baseline") {
			base[key{family(m.Op), m.Size}] = m.Cycles
		}
	}
	for i := range ms {
		m := &ms[i]
		if m.Err != nil || m.Cycles == 0 {
			continue
		}
		if b, ok := base[key{family(m.Op), m.Size}]; ok {
			m.Speedup = float64(b) / float64(m.Cycles)
		}
	}
}

// WriteText writes one report line per measurement to w. Strategy
// errors and verification failures are reported in place; they do not
// stop the report.
func WriteText(w io.Writer, ms []Measurement) error {
	for _, m := range ms {
		if m.Err != nil {
			if _, err := fmt.Fprintf(w, "%s, size: %d: error: %v\n", m.Op, m.Size, m.Err); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintln(w, m.Line()); err != nil {
			return err
		}
		if !m.Verified {
			if _, err := fmt.Fprintf(w, "%s: verification FAILED: max abs err %g\n", m.Op, m.MaxAbsErr); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteTSV writes the measurements as a TSV table for downstream
// analysis (e.g. speedup plots). Failed measurements are written with
// an error column instead of timing data.
func WriteTSV(w io.Writer, ms []Measurement) error {
	type row struct {
		Op        string  `tsv:"op"`
		Size      int     `tsv:"size"`
		Cores     int     `tsv:"cores"`
		Cycles    uint64  `tsv:"cycles"`
		Verified  bool    `tsv:"verified"`
		MaxAbsErr float64 `tsv:"max_abs_err"`
		Speedup   float64 `tsv:"speedup"`
		Error     string  `tsv:"error"`
	}
	rw := tsv.NewRowWriter(w)
	for _, m := range ms {
		r := row{
			Op:        m.Op,
			Size:      m.Size,
			Cores:     m.Cores,
			Cycles:    m.Cycles,
			Verified:  m.Verified,
			MaxAbsErr: m.MaxAbsErr,
			Speedup:   m.Speedup,
		}
		if m.Err != nil {
			r = row{Op: m.Op, Size: m.Size, Cores: m.Cores, Error: m.Err.Error()}
		}
		if err := rw.Write(&r); err != nil {
			return err
		}
	}
	return rw.Flush()
}
