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
	"fmt"
	"math"
	"strings"
)

// Vector validation methods, combinable with '+', e.g. "median+s2n"
const (
	ValidationMedian = "median"
	ValidationMean   = "mean"
	ValidationRMS    = "rms"
	ValidationS2N    = "s2n"
)

// Validator detects spurious vectors by comparing each node against the
// statistics of its up to eight neighbors. Masked nodes are never flagged
// and never contribute to a neighborhood.
type Validator struct {
	Methods                              []string
	MedianTol, MeanTol, RMSTol, S2NTol   float32
}

// Parses a '+'-combined method list into a validator with the given tolerances
func NewValidator(methods string, medianTol, meanTol, rmsTol, s2nTol float32) (*Validator, error) {
	var ms []string
	for _, m:=range strings.Split(methods, "+") {
		m=strings.TrimSpace(m)
		switch m {
		case ValidationMedian, ValidationMean, ValidationRMS, ValidationS2N:
			ms=append(ms, m)
		case "":
		default:
			return nil, fmt.Errorf("invalid parameter: unknown validation method %q", m)
		}
	}
	if len(ms)==0 { return nil, fmt.Errorf("invalid parameter: no validation method given") }
	return &Validator{Methods: ms, MedianTol: medianTol, MeanTol: meanTol, RMSTol: rmsTol, S2NTol: s2nTol}, nil
}

// Flags outliers in a velocity field. u, v and mask are row-major grid
// planes; s2n may be nil unless the s2n method is selected. Returns a flag
// plane (1=spurious) plus the neighborhood means of u and v, which double
// as replacement values on the first iteration.
func (val *Validator) Validate(u, v, s2n []float32, mask []int32, nRow, nCol int) (flags []int32, uMean, vMean []float32, err error) {
	n:=nRow*nCol
	if len(u)!=n || len(v)!=n {
		return nil, nil, nil, fmt.Errorf("invalid parameter: field length %d and %d do not match %dx%d grid", len(u), len(v), nRow, nCol)
	}
	present:=findNeighbours(nRow, nCol, mask)
	uNb:=gatherNeighbours(u, present, nRow, nCol)
	vNb:=gatherNeighbours(v, present, nRow, nCol)

	flags=make([]int32, n)
	uMean=make([]float32, n)
	vMean=make([]float32, n)

	var needS2N bool
	for _, m:=range val.Methods { if m==ValidationS2N { needS2N=true } }
	if needS2N && s2n==nil {
		return nil, nil, nil, fmt.Errorf("invalid parameter: s2n validation selected but no s2n data given")
	}
	s2nThreshold:=float32(math.Log10(float64(val.S2NTol)))

	for node:=0; node<n; node++ {
		p:=present[node*8:node*8+8]
		var su, sv [8]float32
		var pu, pv [8]uint8
		copy(su[:], uNb[node*8:node*8+8])
		copy(sv[:], vNb[node*8:node*8+8])
		copy(pu[:], p)
		copy(pv[:], p)
		sortNeighbours(&su, &pu)
		sortNeighbours(&sv, &pv)

		count:=0
		for _, f:=range p { if f==1 { count++ } }
		uMean[node]=neighbourMean(uNb[node*8:node*8+8], p, count)
		vMean[node]=neighbourMean(vNb[node*8:node*8+8], p, count)

		if mask!=nil && mask[node]==0 { continue }
		for _, m:=range val.Methods {
			var bad bool
			// nodes without any valid neighborhood cannot be inconsistent
			// with it, only the s2n criterion still applies
			if count==0 && m!=ValidationS2N { continue }
			switch m {
			case ValidationMedian:
				uMed:=sortedMedian(&su, count)
				vMed:=sortedMedian(&sv, count)
				uFluc:=neighbourMedianFluc(uNb[node*8:node*8+8], p, count, uMed)
				vFluc:=neighbourMedianFluc(vNb[node*8:node*8+8], p, count, vMed)
				bad=exceeds(u[node], uMed, uFluc, val.MedianTol) || exceeds(v[node], vMed, vFluc, val.MedianTol)
			case ValidationMean:
				uFluc:=neighbourAbsFluc(uNb[node*8:node*8+8], p, count, uMean[node])
				vFluc:=neighbourAbsFluc(vNb[node*8:node*8+8], p, count, vMean[node])
				bad=exceeds(u[node], uMean[node], uFluc, val.MeanTol) || exceeds(v[node], vMean[node], vFluc, val.MeanTol)
			case ValidationRMS:
				uFluc:=neighbourRMSFluc(uNb[node*8:node*8+8], p, count, uMean[node])
				vFluc:=neighbourRMSFluc(vNb[node*8:node*8+8], p, count, vMean[node])
				bad=exceeds(u[node], uMean[node], uFluc, val.RMSTol) || exceeds(v[node], vMean[node], vFluc, val.RMSTol)
			case ValidationS2N:
				r:=float64(s2n[node])
				bad=r<=0 || float32(math.Log10(r))<s2nThreshold
			}
			if bad { flags[node]=1; break }
		}
	}
	return flags, uMean, vMean, nil
}

// Offsets of the eight neighbors in row-major flag order:
// 0..2 upper row, 3..4 same row, 5..7 lower row, left to right each.
var neighbourOffsets=[8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{ 0, -1},          { 0, 1},
	{ 1, -1}, { 1, 0}, { 1, 1},
}

// Presence flags of the eight neighbors of each node, shape (n, 8).
// A neighbor is present when it lies inside the grid and is not masked out.
func findNeighbours(nRow, nCol int, mask []int32) []uint8 {
	present:=make([]uint8, nRow*nCol*8)
	for i:=0; i<nRow; i++ {
		for j:=0; j<nCol; j++ {
			node:=i*nCol+j
			for nb, off:=range neighbourOffsets {
				ni, nj:=i+off[0], j+off[1]
				if ni<0 || ni>=nRow || nj<0 || nj>=nCol { continue }
				if mask!=nil && mask[ni*nCol+nj]==0 { continue }
				present[node*8+nb]=1
			}
		}
	}
	return present
}

// Neighbor values of each node, shape (n, 8), zero where absent
func gatherNeighbours(f []float32, present []uint8, nRow, nCol int) []float32 {
	vals:=make([]float32, nRow*nCol*8)
	for i:=0; i<nRow; i++ {
		for j:=0; j<nCol; j++ {
			node:=i*nCol+j
			for nb, off:=range neighbourOffsets {
				if present[node*8+nb]==0 { continue }
				vals[node*8+nb]=f[(i+off[0])*nCol+j+off[1]]
			}
		}
	}
	return vals
}

// Compare-exchange pairs of an 8-element sorting network
var sortPairs=[19][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{1, 2}, {5, 6}, {0, 4}, {3, 7},
	{1, 5}, {2, 6},
	{1, 4}, {3, 6},
	{2, 4}, {3, 5},
	{3, 4},
}

// Sorts eight neighbor values ascending with a fixed sorting network,
// moving absent entries past all present ones. Branch-free per compare,
// so every node costs the same regardless of data.
func sortNeighbours(vals *[8]float32, present *[8]uint8) {
	for _, pair:=range sortPairs {
		a, b:=pair[0], pair[1]
		if present[a]==0 && present[b]==1 || present[a]==1 && present[b]==1 && vals[a]>vals[b] {
			vals[a], vals[b]=vals[b], vals[a]
			present[a], present[b]=present[b], present[a]
		}
	}
}

// Median of the first count sorted entries, zero for an empty neighborhood
func sortedMedian(sorted *[8]float32, count int) float32 {
	if count==0 { return 0 }
	if count%2==0 { return (sorted[count/2-1]+sorted[count/2])/2 }
	return sorted[count/2]
}

// Mean of the present neighbor values
func neighbourMean(vals []float32, present []uint8, count int) float32 {
	if count==0 { return 0 }
	sum:=float32(0)
	for nb:=0; nb<8; nb++ {
		if present[nb]==1 { sum+=vals[nb] }
	}
	return sum/float32(count)
}

// Median of the absolute residuals around a center value
func neighbourMedianFluc(vals []float32, present []uint8, count int, center float32) float32 {
	var resid [8]float32
	var p [8]uint8
	for nb:=0; nb<8; nb++ {
		if present[nb]==1 {
			p[nb]=1
			r:=vals[nb]-center
			if r<0 { r=-r }
			resid[nb]=r
		}
	}
	sortNeighbours(&resid, &p)
	return sortedMedian(&resid, count)
}

// Mean of the absolute residuals around a center value
func neighbourAbsFluc(vals []float32, present []uint8, count int, center float32) float32 {
	if count==0 { return 0 }
	sum:=float32(0)
	for nb:=0; nb<8; nb++ {
		if present[nb]==1 {
			r:=vals[nb]-center
			if r<0 { r=-r }
			sum+=r
		}
	}
	return sum/float32(count)
}

// Root mean square of the residuals around a center value
func neighbourRMSFluc(vals []float32, present []uint8, count int, center float32) float32 {
	if count==0 { return 0 }
	sum:=float64(0)
	for nb:=0; nb<8; nb++ {
		if present[nb]==1 {
			r:=float64(vals[nb]-center)
			sum+=r*r
		}
	}
	return float32(math.Sqrt(sum/float64(count)))
}

// Normalized residual test. The 0.1 term keeps uniform neighborhoods with
// tiny fluctuations from flagging everything.
func exceeds(value, stat, fluc, tol float32) bool {
	r:=value-stat
	if r<0 { r=-r }
	return r/(fluc+0.1)>tol
}
