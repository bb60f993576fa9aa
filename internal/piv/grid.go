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

// Grid of interrogation window centers for one iteration. Node (i,j) sits at
// pixel coordinates x=(j+1)*Spacing, y=(i+1)*Spacing with row 0 at the top of
// the image. Spacing is WindowSize*OverlapRatio rounded to whole pixels.
type Grid struct {
	NRow, NCol int
	WindowSize int
	Spacing    int
}

// Creates the window grid for the given frame shape, window size and overlap
// ratio. Fails for window sizes below 8 or not a multiple of 8, and for
// overlap ratios outside (0,1).
func NewGrid(height, width, windowSize int, overlapRatio float32) (*Grid, error) {
	if windowSize<8 { return nil, fmt.Errorf("invalid parameter: window size %d is too small, must be at least 8", windowSize) }
	if windowSize%8!=0 { return nil, fmt.Errorf("invalid parameter: window size %d must be a multiple of 8", windowSize) }
	if overlapRatio<=0 || overlapRatio>=1 { return nil, fmt.Errorf("invalid parameter: overlap ratio %g must be in (0,1)", overlapRatio) }

	spacing:=int(float32(windowSize)*overlapRatio)
	nRow:=(height-spacing)/spacing
	nCol:=(width -spacing)/spacing
	if nRow<1 || nCol<1 {
		return nil, fmt.Errorf("invalid parameter: window size %d with overlap %g yields no windows for %dx%d frame", windowSize, overlapRatio, height, width)
	}
	return &Grid{NRow: nRow, NCol: nCol, WindowSize: windowSize, Spacing: spacing}, nil
}

// Number of grid nodes
func (g *Grid) NumWindows() int { return g.NRow*g.NCol }

// X coordinate of column j
func (g *Grid) X(j int) float32 { return float32((j+1)*g.Spacing) }

// Y coordinate of row i, measured downwards from the top of the image
func (g *Grid) Y(i int) float32 { return float32((i+1)*g.Spacing) }

// Coordinate planes of the grid, row-major, shape (NRow, NCol)
func (g *Grid) Coords() (x, y []float32) {
	x=make([]float32, g.NumWindows())
	y=make([]float32, g.NumWindows())
	for i:=0; i<g.NRow; i++ {
		for j:=0; j<g.NCol; j++ {
			x[i*g.NCol+j]=g.X(j)
			y[i*g.NCol+j]=g.Y(i)
		}
	}
	return x, y
}

// Samples a static image mask (1=flow field, 0=background) onto the grid by
// nearest neighbor lookup at each node center. A nil mask yields all ones.
func (g *Grid) SampleMask(mask []int32, width int) []int32 {
	nodeMask:=make([]int32, g.NumWindows())
	if mask==nil {
		for i:=range nodeMask { nodeMask[i]=1 }
		return nodeMask
	}
	for i:=0; i<g.NRow; i++ {
		for j:=0; j<g.NCol; j++ {
			x:=(j+1)*g.Spacing
			y:=(i+1)*g.Spacing
			nodeMask[i*g.NCol+j]=mask[y*width+x]
		}
	}
	return nodeMask
}

// Pretty prints the grid shape
func (g *Grid) String() string {
	return fmt.Sprintf("%dx%d nodes, window %d px, spacing %d px", g.NRow, g.NCol, g.WindowSize, g.Spacing)
}
