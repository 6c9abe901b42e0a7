// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package elemwise

import (
	"github.com/grailbio/streambench/cluster"
	"github.com/grailbio/streambench/stream"
	"github.com/grailbio/streambench/vec"
)

// StreamOffload returns the stream-offloaded strategy: two movers are
// configured over the whole array, one reading the input and one
// writing the output, and the loop issues exactly len(in) transfers.
// The engine is disabled around every kernel call, because the callee
// is free to use the registers the streams feed and drain, and re-enabled
// before the result is produced. Close verifies the loop and the
// address generator agree on the transfer count.
func StreamOffload[T vec.Elem](f Func[T]) Strategy[T] {
	return func(g cluster.Group, in, out []T) error {
		if err := check(g, in, out); err != nil {
			return err
		}
		return streamRegion(f, in, out)
	}
}

// StreamParallel combines the two techniques: each core partitions the
// array, applies the stream-offload loop over only its local sub-range,
// and computes its remainder element, if any, with a plain scalar call.
// One element is not worth adding to the stream.
func StreamParallel[T vec.Elem](f Func[T]) Strategy[T] {
	return func(g cluster.Group, in, out []T) error {
		if err := check(g, in, out); err != nil {
			return err
		}
		p := g.Partition(len(in))
		if p.Len > 0 {
			lo, hi := p.Offset, p.Offset+p.Len
			if err := streamRegion(f, in[lo:hi], out[lo:hi]); err != nil {
				return err
			}
		}
		if p.HasExtra {
			out[p.Extra] = f(in[p.Extra])
		}
		return nil
	}
}

// streamRegion runs the stream-offloaded loop over one contiguous
// range. The loop bound must equal the configured pattern length: the
// address generator only advances on consuming and producing
// instructions, so under- or over-iterating desynchronizes it from the
// program. Close detects either mismatch.
func streamRegion[T vec.Elem](f Func[T], in, out []T) error {
	eng := stream.New[T]()
	defer eng.Disable()
	rd, err := eng.Read(in, stream.Loop1D(len(in)))
	if err != nil {
		return err
	}
	wr, err := eng.Write(out, stream.Loop1D(len(out)))
	if err != nil {
		return err
	}
	eng.Enable()
	for i := 0; i < len(in); i++ {
		v, err := rd.Next()
		if err != nil {
			return err
		}
		// The kernel owns the register file until it returns.
		eng.Disable()
		r := f(v)
		eng.Enable()
		if err := wr.Put(r); err != nil {
			return err
		}
	}
	eng.Disable()
	return eng.Close()
}
