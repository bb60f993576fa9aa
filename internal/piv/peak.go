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
)

// Subpixel peak estimation methods
const (
	SubpixelGaussian  = "gaussian"
	SubpixelParabolic = "parabolic"
	SubpixelCentroid  = "centroid"
)

// Floor for correlation values entering a logarithm or denominator
const smallestFloat = 1e-20

// Locates the maximum of a correlation plane. Planes with a maximum below
// 0.1 carry no usable signal and report the center, i.e. zero displacement.
func findPeak(corr []float32, n int) (row, col int, max float32) {
	max=corr[0]
	idx:=0
	for i, v:=range corr {
		if v>max { max=v; idx=i }
	}
	if max<0.1 { return n/2, n/2, max }
	return idx/n, idx%n, max
}

// Refines an integer peak location to subpixel precision from the peak value
// and its four direct neighbors. Peaks on the plane border are clamped one
// pixel inwards first.
func subpixelPeak(corr []float32, n, row, col int, method string) (rowSp, colSp float64) {
	if row<1 { row=1 }
	if row>n-2 { row=n-2 }
	if col<1 { col=1 }
	if col>n-2 { col=n-2 }
	c :=float64(corr[row*n+col])
	cl:=float64(corr[(row-1)*n+col])
	cr:=float64(corr[(row+1)*n+col])
	cd:=float64(corr[row*n+col-1])
	cu:=float64(corr[row*n+col+1])

	switch method {
	case SubpixelParabolic:
		rowSp=float64(row)+safeRatio(cl-cr, 2*cl-4*c+2*cr)
		colSp=float64(col)+safeRatio(cd-cu, 2*cd-4*c+2*cu)
	case SubpixelCentroid:
		rowSp=float64(row)+safeRatio(cr-cl, cl+c+cr)
		colSp=float64(col)+safeRatio(cu-cd, cd+c+cu)
	default: // gaussian
		lc, lcl, lcr, lcd, lcu:=logFloor(c), logFloor(cl), logFloor(cr), logFloor(cd), logFloor(cu)
		rowSp=float64(row)+safeRatio(lcl-lcr, 2*lcl-4*lc+2*lcr)
		colSp=float64(col)+safeRatio(lcd-lcu, 2*lcd-4*lc+2*lcu)
	}
	return rowSp, colSp
}

// Natural log with values at or below zero floored to the smallest float,
// so side lobes of the correlation plane cannot produce NaN offsets
func logFloor(v float64) float64 {
	if v<=0 { v=smallestFloat }
	return math.Log(v)
}

// Three point ratio with a zero offset for flat or degenerate neighborhoods
func safeRatio(num, den float64) float64 {
	r:=num/(den+smallestFloat)
	if math.IsNaN(r) || math.IsInf(r, 0) || r<=-1 || r>=1 { return 0 }
	return r
}
