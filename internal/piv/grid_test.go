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


package piv

import (
	"testing"
)

func TestNewGrid(t *testing.T) {
	tests:=[]struct{
		ht, wd, ws   int
		overlap      float32
		nRow, nCol   int
		spacing      int
		wantErr      bool
	}{
		{512, 512, 32, 0.5, 31, 31, 16, false},
		{512, 512, 16, 0.5,  63, 63,  8, false},
		{256, 128, 32, 0.5, 15,  7, 16, false},
		{512, 512, 64, 0.25, 31, 31, 16, false},
		{512, 512,  7, 0.5,  0,  0,  0, true},  // too small
		{512, 512, 20, 0.5,  0,  0,  0, true},  // not a multiple of 8
		{512, 512, 32, 0,    0,  0,  0, true},  // overlap out of range
		{512, 512, 32, 1,    0,  0,  0, true},  // overlap out of range
		{16,  16,  32, 0.5,  0,  0,  0, true},  // frame too small
	}
	for i, tc:=range tests {
		g, err:=NewGrid(tc.ht, tc.wd, tc.ws, tc.overlap)
		if tc.wantErr {
			if err==nil { t.Errorf("%d: expected error, got grid %v", i, g) }
			continue
		}
		if err!=nil { t.Errorf("%d: unexpected error %s", i, err.Error()); continue }
		if g.NRow!=tc.nRow || g.NCol!=tc.nCol || g.Spacing!=tc.spacing {
			t.Errorf("%d: got %dx%d spacing %d, expected %dx%d spacing %d", i, g.NRow, g.NCol, g.Spacing, tc.nRow, tc.nCol, tc.spacing)
		}
	}
}

func TestGridCoords(t *testing.T) {
	g, err:=NewGrid(128, 96, 32, 0.5)
	if err!=nil { t.Fatal(err) }
	x, y:=g.Coords()
	if len(x)!=g.NumWindows() || len(y)!=g.NumWindows() { t.Fatalf("coordinate planes have %d and %d entries, expected %d", len(x), len(y), g.NumWindows()) }
	if x[0]!=16 || y[0]!=16 { t.Errorf("first node at (%g,%g), expected (16,16)", x[0], y[0]) }
	last:=g.NumWindows()-1
	if x[last]!=float32(g.NCol*16) || y[last]!=float32(g.NRow*16) {
		t.Errorf("last node at (%g,%g), expected (%d,%d)", x[last], y[last], g.NCol*16, g.NRow*16)
	}
	// all nodes must lie strictly inside the frame
	for i:=range x {
		if x[i]<=0 || x[i]>=96 || y[i]<=0 || y[i]>=128 {
			t.Fatalf("node %d at (%g,%g) outside 128x96 frame", i, x[i], y[i])
		}
	}
}

func TestSampleMask(t *testing.T) {
	ht, wd:=128, 128
	g, err:=NewGrid(ht, wd, 32, 0.5)
	if err!=nil { t.Fatal(err) }

	all:=g.SampleMask(nil, wd)
	for i, v:=range all {
		if v!=1 { t.Fatalf("nil mask: node %d is %d, expected 1", i, v) }
	}

	// mask out the left half of the image
	mask:=make([]int32, ht*wd)
	for y:=0; y<ht; y++ {
		for x:=wd/2; x<wd; x++ { mask[y*wd+x]=1 }
	}
	sampled:=g.SampleMask(mask, wd)
	for i:=0; i<g.NRow; i++ {
		for j:=0; j<g.NCol; j++ {
			expected:=int32(0)
			if (j+1)*g.Spacing>=wd/2 { expected=1 }
			if got:=sampled[i*g.NCol+j]; got!=expected {
				t.Fatalf("node (%d,%d) sampled as %d, expected %d", i, j, got, expected)
			}
		}
	}
}
