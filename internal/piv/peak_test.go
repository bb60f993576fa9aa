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
	"math"
	"testing"
)

func TestFindPeak(t *testing.T) {
	n:=8
	corr:=make([]float32, n*n)
	corr[3*n+5]=2
	row, col, max:=findPeak(corr, n)
	if row!=3 || col!=5 || max!=2 { t.Errorf("peak at (%d,%d) value %g, expected (3,5) value 2", row, col, max) }

	// planes without signal report the center, i.e. zero displacement
	for i:=range corr { corr[i]=0.05 }
	row, col, _=findPeak(corr, n)
	if row!=n/2 || col!=n/2 { t.Errorf("weak plane peak at (%d,%d), expected center (%d,%d)", row, col, n/2, n/2) }
}

// The three point estimators must recover the fractional peak position of a
// sampled Gaussian. The gaussian fit is exact there, the others approximate.
func TestSubpixelPeak(t *testing.T) {
	n:=32
	cy, cx:=16.3, 14.6
	sigma2:=4.0
	corr:=make([]float32, n*n)
	for y:=0; y<n; y++ {
		for x:=0; x<n; x++ {
			d:=(float64(y)-cy)*(float64(y)-cy)+(float64(x)-cx)*(float64(x)-cx)
			corr[y*n+x]=float32(math.Exp(-d/sigma2))
		}
	}
	row, col, _:=findPeak(corr, n)

	tests:=[]struct{
		method string
		tol    float64
	}{
		{SubpixelGaussian, 0.01},
		{SubpixelParabolic, 0.15},
		{SubpixelCentroid, 0.35},
	}
	for _, tc:=range tests {
		rowSp, colSp:=subpixelPeak(corr, n, row, col, tc.method)
		if math.Abs(rowSp-cy)>tc.tol || math.Abs(colSp-cx)>tc.tol {
			t.Errorf("%s: subpixel peak at (%.3f,%.3f), expected (%.1f,%.1f)", tc.method, rowSp, colSp, cy, cx)
		}
	}
}

// Border peaks must clamp inwards instead of reading out of bounds
func TestSubpixelPeakBorder(t *testing.T) {
	n:=8
	corr:=make([]float32, n*n)
	corr[0]=1
	rowSp, colSp:=subpixelPeak(corr, n, 0, 0, SubpixelGaussian)
	if math.IsNaN(rowSp) || math.IsNaN(colSp) { t.Errorf("border peak gives NaN subpixel position") }
	if rowSp<0 || rowSp>=float64(n) || colSp<0 || colSp>=float64(n) {
		t.Errorf("border peak at (%g,%g) outside the plane", rowSp, colSp)
	}
}
