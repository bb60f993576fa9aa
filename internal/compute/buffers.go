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
	"runtime"
	"sync"
)

// Pools of constant sized arrays, to reduce allocation overhead for the
// per-iteration window stacks and FFT buffers. Window stack memory scales
// with nWindows*fftSize^2 and is reallocated every iteration otherwise.

var poolFloat32=struct{
	sync.RWMutex
	m map[int]*sync.Pool
}{m: make(map[int]*sync.Pool)}

var poolComplex128=struct{
	sync.RWMutex
	m map[int]*sync.Pool
}{m: make(map[int]*sync.Pool)}

// Clears all memory pools and triggers garbage collection
func ClearPools() {
	poolFloat32=struct{
		sync.RWMutex
		m map[int]*sync.Pool
	}{m: make(map[int]*sync.Pool)}

	poolComplex128=struct{
		sync.RWMutex
		m map[int]*sync.Pool
	}{m: make(map[int]*sync.Pool)}

	runtime.GC()
}

// Returns a pool for []float32 arrays of the given size
func getSizedPoolFloat32(size int) *sync.Pool {
	poolFloat32.RLock()
	pool:=poolFloat32.m[size]
	poolFloat32.RUnlock()
	if pool==nil {
		pool=&sync.Pool{
			New: func() interface{} {
				return make([]float32, size)
			},
		}
		poolFloat32.Lock()
		poolFloat32.m[size]=pool
		poolFloat32.Unlock()
	}
	return pool
}

// Retrieves an array of given size and type from pool
func GetArrayOfFloat32FromPool(size int) []float32 {
	pool:=getSizedPoolFloat32(size)
	return pool.Get().([]float32)
}

// Returns an array of given size and type to the pool
func PutArrayOfFloat32IntoPool(arr []float32) {
	pool:=getSizedPoolFloat32(cap(arr))
	pool.Put(arr[:cap(arr)])
}

// Returns a pool for []complex128 arrays of the given size
func getSizedPoolComplex128(size int) *sync.Pool {
	poolComplex128.RLock()
	pool:=poolComplex128.m[size]
	poolComplex128.RUnlock()
	if pool==nil {
		pool=&sync.Pool{
			New: func() interface{} {
				return make([]complex128, size)
			},
		}
		poolComplex128.Lock()
		poolComplex128.m[size]=pool
		poolComplex128.Unlock()
	}
	return pool
}

// Retrieves an array of given size and type from pool
func GetArrayOfComplex128FromPool(size int) []complex128 {
	pool:=getSizedPoolComplex128(size)
	return pool.Get().([]complex128)
}

// Returns an array of given size and type to the pool
func PutArrayOfComplex128IntoPool(arr []complex128) {
	pool:=getSizedPoolComplex128(cap(arr))
	pool.Put(arr[:cap(arr)])
}
