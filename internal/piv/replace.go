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

// Replaces flagged vectors of a grid plane in place. On the first iteration
// no earlier field exists, so flagged nodes take their neighborhood mean.
// Later iterations take the value of the previous iteration directly when
// the grids match, or interpolated from the previous grid when they differ.
func ReplaceVectors(f, fMean, fPrev []float32, flags []int32, prevGrid, curGrid *Grid, iteration int) {
	switch {
	case iteration==0:
		for node, flag:=range flags {
			if flag==1 { f[node]=fMean[node] }
		}
	case prevGrid.NRow==curGrid.NRow && prevGrid.NCol==curGrid.NCol:
		for node, flag:=range flags {
			if flag==1 { f[node]=fPrev[node] }
		}
	default:
		for i:=0; i<curGrid.NRow; i++ {
			for j:=0; j<curGrid.NCol; j++ {
				node:=i*curGrid.NCol+j
				if flags[node]==1 { f[node]=interpolateAt(fPrev, prevGrid, curGrid, i, j) }
			}
		}
	}
}

// Interpolates a grid plane from one grid onto another, returning a new
// plane on the target grid. Used as predictor when the window size shrinks
// between iterations.
func InterpolateField(f []float32, fromGrid, toGrid *Grid) []float32 {
	out:=make([]float32, toGrid.NumWindows())
	for i:=0; i<toGrid.NRow; i++ {
		for j:=0; j<toGrid.NCol; j++ {
			out[i*toGrid.NCol+j]=interpolateAt(f, fromGrid, toGrid, i, j)
		}
	}
	return out
}

// Bilinear interpolation of a source plane at target node (i,j). Bracket
// degeneration at the grid borders reduces this to linear interpolation on
// the edges and to a plain copy at the corners.
func interpolateAt(f []float32, fromGrid, toGrid *Grid, i, j int) float32 {
	rLow, rHigh, wy:=bracket(i, toGrid.Spacing, fromGrid.Spacing, fromGrid.NRow-1)
	cLow, cHigh, wx:=bracket(j, toGrid.Spacing, fromGrid.Spacing, fromGrid.NCol-1)
	nCol:=fromGrid.NCol
	f11:=f[rLow *nCol+cLow ]
	f12:=f[rLow *nCol+cHigh]
	f21:=f[rHigh*nCol+cLow ]
	f22:=f[rHigh*nCol+cHigh]
	return f11*(1-wy)*(1-wx) + f12*(1-wy)*wx + f21*wy*(1-wx) + f22*wy*wx
}

// Locates the pair of source grid nodes bracketing target node pos on one
// axis, by direct division since node coordinates are integer multiples of
// the grid spacing. Returns the bracket indices and the fractional weight
// of the upper one. Targets outside the source span clamp to the nearest
// border node with zero weight.
func bracket(pos, spTo, spFrom, max int) (low, high int, w float32) {
	t:=(pos+1)*spTo
	low=t/spFrom-1
	high=low
	if t%spFrom!=0 { high=low+1 }
	if low<0 { return 0, 0, 0 }
	if high>max {
		if low>max { low=max }
		return low, low, 0
	}
	if low==high { return low, low, 0 }
	w=float32(t-(low+1)*spFrom)/float32(spFrom)
	return low, high, w
}
