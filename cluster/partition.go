// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cluster

// A Partition is one core's contiguous share of an n-element array: Len
// elements starting at Offset, plus at most one remainder element at
// flat index Extra when HasExtra is set. Remainder elements sit after
// the evenly divided block, handed to the lowest-indexed cores first.
// This placement determines which physical elements land in each core's
// range; verification against the baseline depends on it.
type Partition struct {
	Len      int
	Offset   int
	HasExtra bool
	Extra    int
}

// Partition computes core g's share of an n-element array. It is a pure
// function of (n, g.Count, g.Index), recomputed on every invocation and
// never cached. Groups larger than n yield zero-length spans; such
// cores may still be handed a single remainder element. Degenerate
// inputs (n < 0, malformed g) are the caller's responsibility; the
// strategies validate them up front via Group.Err.
func (g Group) Partition(n int) Partition {
	local := n / g.Count
	p := Partition{
		Len:    local,
		Offset: g.Index * local,
	}
	if r := n - local*g.Count; g.Index < r {
		p.HasExtra = true
		p.Extra = local*g.Count + g.Index
	}
	return p
}
