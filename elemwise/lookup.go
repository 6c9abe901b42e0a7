// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package elemwise

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/streambench/cluster"
	"github.com/grailbio/streambench/lut"
)

// Lookup returns the table-approximation strategy: a sequential scalar
// loop that replaces the transcendental call with a single table read
// per element. Inputs must lie inside the table's domain; out-of-domain
// values fail with an Invalid error rather than reading out of bounds.
func Lookup(tbl *lut.Table) Strategy[float32] {
	return func(g cluster.Group, in, out []float32) error {
		if err := check(g, in, out); err != nil {
			return err
		}
		for i, v := range in {
			r, err := tbl.Lookup(v)
			if err != nil {
				return err
			}
			out[i] = r
		}
		return nil
	}
}

// StreamLookup is the stream-offloaded variant of Lookup. It is
// intentionally not implemented: the table-index computation (scale,
// truncate, indexed load) cannot be expressed inside the
// stream-decoupled register sequence without clobbering the stream
// registers mid-pattern. The variant exists so the gap stays visible;
// it always returns NotSupported and writes nothing.
func StreamLookup(tbl *lut.Table) Strategy[float32] {
	return func(cluster.Group, []float32, []float32) error {
		return errors.E(errors.NotSupported,
			"elemwise: streamed table lookup is not implemented")
	}
}
