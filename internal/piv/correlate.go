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

	"github.com/mkammer/gpiv/internal/compute"
)

// Correlator computes per-window FFT cross-correlation between two frames
// and extracts subpixel peak displacements. The correlation planes of the
// last call are retained for signal-to-noise estimation.
type Correlator struct {
	ctx            *compute.Context
	frameA, frameB []float32
	ht, wd         int
	nfft           int
	subpixelMethod string

	// state of the most recent Correlate call
	fftSize  int
	nWindows int
	maps     []float32 // correlation planes, shape (nWindows, fftSize, fftSize)
	peakRow  []int
	peakCol  []int
	corrMax  []float32
}

// Returns a correlator over two frames of the given shape. nfft is the FFT
// oversampling factor and must be a positive power of two.
func NewCorrelator(ctx *compute.Context, frameA, frameB []float32, ht, wd, nfft int, subpixelMethod string) (*Correlator, error) {
	if len(frameA)!=ht*wd || len(frameB)!=ht*wd {
		return nil, fmt.Errorf("invalid parameter: frame length %d and %d do not match %dx%d shape", len(frameA), len(frameB), ht, wd)
	}
	if nfft<1 || nfft&(nfft-1)!=0 {
		return nil, fmt.Errorf("invalid parameter: nfft %d must be a positive power of two", nfft)
	}
	switch subpixelMethod {
	case SubpixelGaussian, SubpixelParabolic, SubpixelCentroid:
	default:
		return nil, fmt.Errorf("invalid parameter: unknown subpixel method %q", subpixelMethod)
	}
	return &Correlator{ctx: ctx, frameA: frameA, frameB: frameB, ht: ht, wd: wd, nfft: nfft, subpixelMethod: subpixelMethod}, nil
}

// Correlates the interrogation windows of both frames on the given grid
// and returns the subpixel peak displacement per node, row part in iPeak
// and column part in jPeak. extendedSize widens the search windows beyond
// the grid window size; pass 0 to disable. shiftX/shiftY and strain, when
// non-nil, deform the windows of both frames symmetrically around the
// predicted displacement before correlating.
func (c *Correlator) Correlate(g *Grid, extendedSize int, shiftX, shiftY []float32, strain *Strain) (iPeak, jPeak []float32, err error) {
	ws:=g.WindowSize
	ext:=ws
	if extendedSize>ws {
		if extendedSize%8!=0 {
			return nil, nil, fmt.Errorf("invalid parameter: extended size %d must be a multiple of 8", extendedSize)
		}
		ext=extendedSize
	}
	n:=g.NumWindows()
	fftSize:=ext*c.nfft

	stackA:=compute.GetArrayOfFloat32FromPool(n*ext*ext)
	defer compute.PutArrayOfFloat32IntoPool(stackA)
	stackB:=compute.GetArrayOfFloat32FromPool(n*ext*ext)
	defer compute.PutArrayOfFloat32IntoPool(stackB)

	if shiftX!=nil && shiftY!=nil {
		sliceWindowsDeform(c.ctx, c.frameA, c.ht, c.wd, g, ext, shiftX, shiftY, strain, -0.5, stackA)
		sliceWindowsDeform(c.ctx, c.frameB, c.ht, c.wd, g, ext, shiftX, shiftY, strain, +0.5, stackB)
	} else {
		sliceWindows(c.ctx, c.frameA, c.ht, c.wd, g, ext, stackA)
		sliceWindows(c.ctx, c.frameB, c.ht, c.wd, g, ext, stackB)
	}
	normalizeWindows(c.ctx, stackA, n, ext)
	normalizeWindows(c.ctx, stackB, n, ext)

	c.reuseState(n, fftSize)
	iPeak=make([]float32, n)
	jPeak=make([]float32, n)

	// first frame windows keep only the central ws x ws region, so the
	// search area of the second frame may extend beyond them
	s0:=(ext-ws)/2
	s1:=ext-s0
	planeSize:=fftSize*fftSize

	c.ctx.ForChunks(n, func(lo, hi int) {
		plan:=newFFTPlan(fftSize)
		bufA:=compute.GetArrayOfFloat32FromPool(planeSize)
		defer compute.PutArrayOfFloat32IntoPool(bufA)
		bufB:=compute.GetArrayOfFloat32FromPool(planeSize)
		defer compute.PutArrayOfFloat32IntoPool(bufB)

		for w:=lo; w<hi; w++ {
			winA:=stackA[w*ext*ext:(w+1)*ext*ext]
			winB:=stackB[w*ext*ext:(w+1)*ext*ext]
			for i:=range bufA { bufA[i]=0 }
			for i:=range bufB { bufB[i]=0 }
			for y:=s0; y<s1; y++ {
				for x:=s0; x<s1; x++ { bufA[y*fftSize+x]=winA[y*ext+x] }
			}
			for y:=0; y<ext; y++ {
				for x:=0; x<ext; x++ { bufB[y*fftSize+x]=winB[y*ext+x] }
			}
			corr:=c.maps[w*planeSize:(w+1)*planeSize]
			plan.crossCorrelate(bufA, bufB, corr)
			row, col, max:=findPeak(corr, fftSize)
			c.peakRow[w]=row
			c.peakCol[w]=col
			c.corrMax[w]=max
			rowSp, colSp:=subpixelPeak(corr, fftSize, row, col, c.subpixelMethod)
			iPeak[w]=float32(rowSp)-float32(fftSize)/2
			jPeak[w]=float32(colSp)-float32(fftSize)/2
		}
	})
	return iPeak, jPeak, nil
}

// Allocates or reuses the per-window result arrays for a pass
func (c *Correlator) reuseState(n, fftSize int) {
	planeSize:=fftSize*fftSize
	if c.maps!=nil && (c.nWindows!=n || c.fftSize!=fftSize) {
		compute.PutArrayOfFloat32IntoPool(c.maps)
		c.maps=nil
	}
	if c.maps==nil {
		c.maps=compute.GetArrayOfFloat32FromPool(n*planeSize)
		c.peakRow=make([]int, n)
		c.peakCol=make([]int, n)
		c.corrMax=make([]float32, n)
	}
	c.nWindows=n
	c.fftSize=fftSize
}

// Releases the retained correlation planes back to the pool
func (c *Correlator) Release() {
	if c.maps!=nil {
		compute.PutArrayOfFloat32IntoPool(c.maps)
		c.maps=nil
	}
}
