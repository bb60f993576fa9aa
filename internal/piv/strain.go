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
)

// Estimates the velocity gradient planes of a field by finite differences,
// central in the interior and one-sided on the edges. u and v are row-major
// grid planes, spacing is the node distance in pixels.
func ComputeStrain(u, v []float32, nRow, nCol int, spacing float32) (*Strain, error) {
	if spacing<=0 { return nil, fmt.Errorf("invalid parameter: spacing %g must be positive", spacing) }
	if len(u)!=nRow*nCol || len(v)!=nRow*nCol {
		return nil, fmt.Errorf("invalid parameter: field length %d and %d do not match %dx%d grid", len(u), len(v), nRow, nCol)
	}
	s:=&Strain{
		UX: make([]float32, nRow*nCol),
		UY: make([]float32, nRow*nCol),
		VX: make([]float32, nRow*nCol),
		VY: make([]float32, nRow*nCol),
	}
	gradientX(u, s.UX, nRow, nCol, spacing)
	gradientY(u, s.UY, nRow, nCol, spacing)
	gradientX(v, s.VX, nRow, nCol, spacing)
	gradientY(v, s.VY, nRow, nCol, spacing)
	return s, nil
}

// Derivative along columns, df/dx
func gradientX(f, out []float32, nRow, nCol int, h float32) {
	for i:=0; i<nRow; i++ {
		row:=f[i*nCol:(i+1)*nCol]
		o:=out[i*nCol:(i+1)*nCol]
		if nCol==1 {
			o[0]=0
			continue
		}
		o[0]=(row[1]-row[0])/h
		for j:=1; j<nCol-1; j++ {
			o[j]=(row[j+1]-row[j-1])/(2*h)
		}
		o[nCol-1]=(row[nCol-1]-row[nCol-2])/h
	}
}

// Derivative along rows, df/dy
func gradientY(f, out []float32, nRow, nCol int, h float32) {
	for j:=0; j<nCol; j++ {
		if nRow==1 {
			out[j]=0
			continue
		}
		out[j]=(f[nCol+j]-f[j])/h
		for i:=1; i<nRow-1; i++ {
			out[i*nCol+j]=(f[(i+1)*nCol+j]-f[(i-1)*nCol+j])/(2*h)
		}
		out[(nRow-1)*nCol+j]=(f[(nRow-1)*nCol+j]-f[(nRow-2)*nCol+j])/h
	}
}
