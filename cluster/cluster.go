// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package cluster models the fixed SPMD core group the benchmark
// strategies execute on: per-core identity, deterministic work
// partitioning with remainder redistribution, and a launcher that runs
// the same routine once per core. There is no dynamic scheduling and no
// synchronization beyond the launch and completion barriers; parallel
// strategies rely on their output ranges being disjoint by construction.
package cluster

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/grailbio/base/errors"
)

// Environment variables through which the platform assigns a process
// its core identity.
const (
	indexEnv = "STREAMBENCH_CORE_INDEX"
	countEnv = "STREAMBENCH_CORE_COUNT"
)

// A Group identifies one core within a fixed-size core group. It is
// immutable for the duration of a strategy invocation and is supplied
// by the platform, never computed by the core.
type Group struct {
	// Index is this core's index, 0 <= Index < Count.
	Index int
	// Count is the total number of cooperating cores.
	Count int
}

// Solo returns the descriptor for a single-core invocation.
func Solo() Group { return Group{Index: 0, Count: 1} }

// Self returns the process's core identity as assigned by the platform
// through the STREAMBENCH_CORE_INDEX and STREAMBENCH_CORE_COUNT
// environment variables. Absent an assignment, the process is the sole
// reporting core of a group sized to the machine.
func Self() Group {
	g := Group{Index: 0, Count: runtime.NumCPU()}
	if v, err := strconv.Atoi(os.Getenv(indexEnv)); err == nil {
		g.Index = v
	}
	if v, err := strconv.Atoi(os.Getenv(countEnv)); err == nil {
		g.Count = v
	}
	return g
}

// Err returns a Precondition error if the descriptor is malformed.
func (g Group) Err() error {
	if g.Count <= 0 || g.Index < 0 || g.Index >= g.Count {
		return errors.E(errors.Precondition,
			fmt.Sprintf("cluster: invalid core descriptor %d/%d", g.Index, g.Count))
	}
	return nil
}

// Run invokes fn once per core of a group of the given size, one
// goroutine per core, and returns after every invocation has completed.
// All cores are started together, approximating the lock-step entry the
// hardware platform provides. The first error is returned; panics in
// any core are propagated to the caller.
func Run(count int, fn func(g Group) error) error {
	if count <= 0 {
		return errors.E(errors.Precondition,
			fmt.Sprintf("cluster: invalid core count %d", count))
	}
	var (
		first errors.Once
		wg    sync.WaitGroup
	)
	wg.Add(count)
	for i := 0; i < count; i++ {
		go func(g Group) {
			defer wg.Done()
			if err := apply(fn, g); err != nil {
				first.Set(err)
			}
		}(Group{Index: i, Count: count})
	}
	wg.Wait()
	err := first.Err()
	if err == nil {
		return nil
	}
	if err, ok := err.(panicErr); ok {
		panic(fmt.Sprintf("cluster core: %v\n%s", err.v, string(err.stack)))
	}
	return err
}

func apply(fn func(Group) error, g Group) (err error) {
	defer func() {
		if perr := recover(); perr != nil {
			err = panicErr{perr, debug.Stack()}
		}
	}()
	return fn(g)
}

type panicErr struct {
	v     interface{}
	stack []byte
}

func (p panicErr) Error() string { return fmt.Sprint(p.v) }
