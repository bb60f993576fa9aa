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


package synth

import (
	"testing"
)

func TestPair(t *testing.T) {
	p:=NewParams()
	p.Height, p.Width=64, 96
	p.NumParticles=128
	frameA, frameB:=Pair(p, 3, -2)
	if len(frameA)!=64*96 || len(frameB)!=64*96 {
		t.Fatalf("frames have %d and %d pixels, expected %d", len(frameA), len(frameB), 64*96)
	}
	var sumA, sumB, maxA int64
	for i:=range frameA {
		if frameA[i]<0 || frameB[i]<0 { t.Fatalf("negative intensity at %d", i) }
		if frameA[i]>4095 || frameB[i]>4095 { t.Fatalf("intensity beyond clip range at %d", i) }
		sumA+=int64(frameA[i])
		sumB+=int64(frameB[i])
		if int64(frameA[i])>maxA { maxA=int64(frameA[i]) }
	}
	if sumA==0 { t.Fatalf("first frame is empty") }
	if maxA<int64(p.Intensity/2) { t.Errorf("peak intensity %d well below configured %g", maxA, p.Intensity) }
	// wrap-around shifting conserves total intensity up to clipping
	diff:=sumA-sumB
	if diff<0 { diff=-diff }
	if float64(diff)>0.02*float64(sumA) {
		t.Errorf("frame intensities %d and %d differ by more than 2%%", sumA, sumB)
	}
}

// The same seed must reproduce the identical pair
func TestPairDeterministic(t *testing.T) {
	p:=NewParams()
	p.Height, p.Width=32, 32
	p.NumParticles=16
	a1, b1:=Pair(p, 1, 1)
	a2, b2:=Pair(p, 1, 1)
	for i:=range a1 {
		if a1[i]!=a2[i] || b1[i]!=b2[i] { t.Fatalf("pairs differ at %d for equal seeds", i) }
	}
}

func TestWrap(t *testing.T) {
	tests:=[]struct{ v, n, expected float32 }{
		{5, 10, 5}, {-1, 10, 9}, {10, 10, 0}, {23, 10, 3},
	}
	for i, tc:=range tests {
		if got:=wrap(tc.v, tc.n); got!=tc.expected {
			t.Errorf("%d: wrap(%g,%g)=%g, expected %g", i, tc.v, tc.n, got, tc.expected)
		}
	}
}
