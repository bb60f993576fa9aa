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
	"sync/atomic"
	"testing"
)

func TestForCoversAllIndices(t *testing.T) {
	for _, workers:=range []int{1, 2, 7} {
		for _, n:=range []int{0, 1, 5, 100} {
			ctx:=NewContextWith(workers)
			hits:=make([]int32, n)
			ctx.For(n, func(i int) { atomic.AddInt32(&hits[i], 1) })
			for i, h:=range hits {
				if h!=1 { t.Fatalf("workers %d n %d: index %d visited %d times", workers, n, i, h) }
			}
		}
	}
}

func TestForChunksPartition(t *testing.T) {
	ctx:=NewContextWith(4)
	n:=103
	hits:=make([]int32, n)
	var chunks int32
	ctx.ForChunks(n, func(lo, hi int) {
		atomic.AddInt32(&chunks, 1)
		if lo>=hi { t.Errorf("empty chunk [%d,%d)", lo, hi) }
		for i:=lo; i<hi; i++ { atomic.AddInt32(&hits[i], 1) }
	})
	for i, h:=range hits {
		if h!=1 { t.Fatalf("index %d visited %d times", i, h) }
	}
	if chunks<1 || chunks>4 { t.Errorf("%d chunks for 4 workers", chunks) }
}

func TestNewContextWith(t *testing.T) {
	if ctx:=NewContextWith(0); ctx.Workers!=1 { t.Errorf("workers %d, expected clamp to 1", ctx.Workers) }
	if ctx:=NewContext(); ctx.Workers<1 { t.Errorf("workers %d, expected at least 1", ctx.Workers) }
}

func TestPools(t *testing.T) {
	a:=GetArrayOfFloat32FromPool(100)
	if len(a)!=100 { t.Errorf("got length %d, expected 100", len(a)) }
	PutArrayOfFloat32IntoPool(a)
	b:=GetArrayOfComplex128FromPool(64)
	if len(b)!=64 { t.Errorf("got length %d, expected 64", len(b)) }
	PutArrayOfComplex128IntoPool(b)
	ClearPools()
	c:=GetArrayOfFloat32FromPool(7)
	if len(c)!=7 { t.Errorf("got length %d, expected 7", len(c)) }
}
