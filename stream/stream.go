// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package stream models the hardware stream engine: an address
// generator that feeds successive array elements into a dedicated
// compute register, and drains results from another, with no index
// arithmetic in the instruction stream. The engine only advances when
// the program issues a consuming or producing instruction, so the
// program must issue exactly the configured number of transfers or the
// hardware and software views of the pattern desynchronize.
//
// The model makes that invariant checkable instead of documented: a
// configured Mover permits exactly its configured transfer count,
// transfers are legal only while the engine is enabled, and Close
// verifies both sides finished the pattern. Violations surface as fatal
// Integrity errors rather than as stale stream state leaking into
// unrelated instructions.
package stream

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/streambench/vec"
)

// Config describes a one-dimensional stream pattern. The hardware
// supports deeper loop nests; the benchmark only ever uses 1-D
// patterns, so that is all the model admits.
type Config struct {
	// Length is the number of elements the pattern covers.
	Length int
	// Stride is the distance between successive elements, in elements.
	// The hardware takes a byte stride; the element width is implied by
	// the mover's type.
	Stride int
	// Repeat is the number of times each element is delivered. 1 means
	// every element is transferred exactly once.
	Repeat int
}

// Loop1D returns the pattern used by all benchmark strategies: a
// unit-stride pass over n elements, each transferred once.
func Loop1D(n int) Config { return Config{Length: n, Stride: 1, Repeat: 1} }

// transfers returns the total number of transfers the pattern issues.
func (c Config) transfers() int { return c.Length * c.Repeat }

// Mover directions. One engine has one slot per direction.
const (
	dirRead = iota
	dirWrite
	numDirs
)

// An Engine is one core's stream engine: at most one read mover and one
// write mover sharing a single enable bit. An Engine is scoped to one
// strategy invocation; it is configured, enabled, used, disabled, and
// closed, in that order.
type Engine[T vec.Elem] struct {
	enabled bool
	movers  [numDirs]*Mover[T]
}

// New returns an idle, disabled engine.
func New[T vec.Elem]() *Engine[T] { return &Engine[T]{} }

// Read binds the read-direction mover to src with the given pattern.
func (e *Engine[T]) Read(src []T, cfg Config) (*Mover[T], error) {
	return e.bind(dirRead, src, cfg)
}

// Write binds the write-direction mover to dst with the given pattern.
func (e *Engine[T]) Write(dst []T, cfg Config) (*Mover[T], error) {
	return e.bind(dirWrite, dst, cfg)
}

func (e *Engine[T]) bind(dir int, data []T, cfg Config) (*Mover[T], error) {
	if e.movers[dir] != nil {
		return nil, errors.E(errors.Precondition, "stream: direction already bound")
	}
	if cfg.Length <= 0 || cfg.Stride < 1 || cfg.Repeat < 1 {
		return nil, errors.E(errors.Precondition,
			fmt.Sprintf("stream: invalid pattern %+v", cfg))
	}
	if need := 1 + (cfg.Length-1)*cfg.Stride; need > len(data) {
		return nil, errors.E(errors.Precondition,
			fmt.Sprintf("stream: pattern needs %d elements, buffer has %d", need, len(data)))
	}
	m := &Mover[T]{eng: e, dir: dir, data: data, cfg: cfg}
	e.movers[dir] = m
	return m, nil
}

// Enable turns on stream semantics for both movers. Streaming is off by
// default: code that does not benefit from streams must have the full
// register set available.
func (e *Engine[T]) Enable() { e.enabled = true }

// Disable suspends stream semantics. It must bracket any subroutine
// call made inside a stream region, because the callee is free to use
// the registers the engine feeds and drains.
func (e *Engine[T]) Disable() { e.enabled = false }

// Close disables the engine and verifies that every bound mover issued
// exactly its configured number of transfers. A shortfall means the
// loop desynchronized from the address generator, which on hardware
// leaks stale stream state into whatever reuses those registers next;
// the error is fatal by construction.
func (e *Engine[T]) Close() error {
	e.enabled = false
	for _, m := range e.movers {
		if m == nil {
			continue
		}
		if want := m.cfg.transfers(); m.issued != want {
			return errors.E(errors.Integrity, errors.Fatal,
				fmt.Sprintf("stream: desynchronized: %d of %d transfers issued", m.issued, want))
		}
	}
	return nil
}

// A Mover is one bound data mover: the read mover delivers successive
// input elements, the write mover accepts successive results. A mover
// issues at most Config.Length * Config.Repeat transfers over its
// lifetime.
type Mover[T vec.Elem] struct {
	eng    *Engine[T]
	dir    int
	data   []T
	cfg    Config
	issued int
}

// Next consumes the next element of a read stream.
func (m *Mover[T]) Next() (T, error) {
	var zero T
	if m.dir != dirRead {
		return zero, errors.E(errors.Precondition, "stream: Next on a write mover")
	}
	i, err := m.advance()
	if err != nil {
		return zero, err
	}
	return m.data[i], nil
}

// Put produces the next element of a write stream.
func (m *Mover[T]) Put(v T) error {
	if m.dir != dirWrite {
		return errors.E(errors.Precondition, "stream: Put on a read mover")
	}
	i, err := m.advance()
	if err != nil {
		return err
	}
	m.data[i] = v
	return nil
}

func (m *Mover[T]) advance() (int, error) {
	if !m.eng.enabled {
		return 0, errors.E(errors.Integrity, errors.Fatal,
			"stream: transfer issued while the engine is disabled")
	}
	if m.issued >= m.cfg.transfers() {
		return 0, errors.E(errors.Integrity, errors.Fatal,
			fmt.Sprintf("stream: transfer past the configured pattern of %d", m.cfg.transfers()))
	}
	i := m.issued / m.cfg.Repeat * m.cfg.Stride
	m.issued++
	return i, nil
}
