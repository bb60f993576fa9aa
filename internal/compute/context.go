// Copyright (C) 2021 The gpiv authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package compute

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// Execution context for data-parallel kernels. All windows of one PIV pass
// are independent, so kernels are fanned out over a fixed set of workers.
// Passes are synchronous: every launch waits for all workers before returning.
type Context struct {
	Workers int
}

// Returns a context using all available hardware threads
func NewContext() *Context {
	return &Context{Workers: runtime.GOMAXPROCS(0)}
}

// Returns a context with the given number of workers, at least one
func NewContextWith(workers int) *Context {
	if workers<1 { workers=1 }
	return &Context{Workers: workers}
}

// Describes the compute device for diagnostics
func (c *Context) Describe() string {
	return fmt.Sprintf("%s, %d workers, AVX2 %v, %d MiB physical memory",
		cpuid.CPU.BrandName, c.Workers, cpuid.CPU.AVX2(), memory.TotalMemory()/1024/1024)
}

// Free physical memory in bytes, for sizing diagnostics only
func (c *Context) FreeMemory() uint64 {
	return memory.FreeMemory()
}

// Runs kernel(i) for each i in [0,n), spread across the workers.
// Kernels must not share mutable state across indices.
func (c *Context) For(n int, kernel func(i int)) {
	c.ForChunks(n, func(lo, hi int) {
		for i:=lo; i<hi; i++ { kernel(i) }
	})
}

// Splits [0,n) into per-worker chunks and runs kernel(lo,hi) on each.
// Use this variant when a kernel needs worker-local scratch, e.g. FFT plans.
func (c *Context) ForChunks(n int, kernel func(lo, hi int)) {
	if n<=0 { return }
	workers:=c.Workers
	if workers>n { workers=n }
	if workers==1 {
		kernel(0, n)
		return
	}
	chunk:=(n+workers-1)/workers
	var wg sync.WaitGroup
	for lo:=0; lo<n; lo+=chunk {
		hi:=lo+chunk
		if hi>n { hi=n }
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			kernel(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
