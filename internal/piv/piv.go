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


// Iterative window deformation PIV with multigrid refinement.
// Each iteration correlates interrogation windows of both frames, validates
// the resulting vectors against their neighbors, and feeds the field as
// displacement predictor into the next, finer iteration.
package piv

import (
	"fmt"
	"io"
	"math"

	"github.com/mkammer/gpiv/internal/compute"
	"github.com/mkammer/gpiv/internal/smooth"
)

// PIV runs an iterative deformation analysis over frame pairs of a fixed
// shape. The grids of all iterations are derived once from the config.
type PIV struct {
	ctx   *compute.Context
	ht, wd int
	mask  []int32
	cfg   *Config
	grids []*Grid
}

// Velocity field of one analyzed frame pair. All planes are row-major with
// shape (NRow, NCol). X runs rightwards and Y upwards, so V is positive for
// upward flow. Interpolated marks the nodes replaced during validation of
// the final iteration, S2N holds their signal-to-noise ratios.
type Result struct {
	NRow         int       `json:"nRow"`
	NCol         int       `json:"nCol"`
	X            []float32 `json:"x"`
	Y            []float32 `json:"y"`
	U            []float32 `json:"u"`
	V            []float32 `json:"v"`
	S2N          []float32 `json:"s2n"`
	Interpolated []int32   `json:"interpolated"`
}

// Prepares an analysis for frames of the given shape. mask is an optional
// row-major image plane with 1 for flow field and 0 for background, or nil.
func New(ctx *compute.Context, height, width int, mask []int32, cfg *Config) (*PIV, error) {
	if err:=cfg.Validate(); err!=nil { return nil, err }
	if mask!=nil && len(mask)!=height*width {
		return nil, fmt.Errorf("invalid parameter: mask length %d does not match %dx%d shape", len(mask), height, width)
	}
	var grids []*Grid
	for _, ws:=range cfg.WindowSizes() {
		g, err:=NewGrid(height, width, ws, cfg.Overlap)
		if err!=nil { return nil, err }
		grids=append(grids, g)
	}
	return &PIV{ctx: ctx, ht: height, wd: width, mask: mask, cfg: cfg, grids: grids}, nil
}

// Analyzes one frame pair and returns the velocity field on the final grid.
// Per-iteration progress is logged to logWriter unless nil.
func (p *PIV) Run(frameA, frameB []int32, logWriter io.Writer) (*Result, error) {
	size:=p.ht*p.wd
	if len(frameA)!=size || len(frameB)!=size {
		return nil, fmt.Errorf("invalid parameter: frame length %d and %d do not match %dx%d shape", len(frameA), len(frameB), p.ht, p.wd)
	}
	fA:=compute.GetArrayOfFloat32FromPool(size)
	defer compute.PutArrayOfFloat32IntoPool(fA)
	fB:=compute.GetArrayOfFloat32FromPool(size)
	defer compute.PutArrayOfFloat32IntoPool(fB)
	for i:=0; i<size; i++ { fA[i]=float32(frameA[i]) }
	for i:=0; i<size; i++ { fB[i]=float32(frameB[i]) }

	corr, err:=NewCorrelator(p.ctx, fA, fB, p.ht, p.wd, p.cfg.NFFT, p.cfg.SubpixelMethod)
	if err!=nil { return nil, err }
	defer corr.Release()

	var validator *Validator
	if p.cfg.NumValidationIters>0 {
		validator, err=NewValidator(p.cfg.ValidationMethod, p.cfg.MedianTol, p.cfg.MeanTol, p.cfg.RMSTol, p.cfg.S2NTol)
		if err!=nil { return nil, err }
	}
	needS2N:=false
	if validator!=nil {
		for _, m:=range validator.Methods { if m==ValidationS2N { needS2N=true } }
	}

	var u, v, dpX, dpY, s2n []float32
	var flags []int32
	var prevGrid *Grid
	var uPrev, vPrev []float32

	for k, g:=range p.grids {
		n:=g.NumWindows()
		nodeMask:=g.SampleMask(p.mask, p.wd)

		var shiftX, shiftY []float32
		var strain *Strain
		if k>0 {
			shiftX, shiftY=dpX, dpY
			if p.cfg.Deform {
				strain, err=ComputeStrain(dpX, dpY, g.NRow, g.NCol, float32(g.Spacing))
				if err!=nil { return nil, err }
			}
		}
		extendedSize:=0
		if k==0 && p.cfg.ExtendRatio>=2 { extendedSize=g.WindowSize*p.cfg.ExtendRatio }

		iPeak, jPeak, err:=corr.Correlate(g, extendedSize, shiftX, shiftY, strain)
		if err!=nil { return nil, err }

		u=make([]float32, n)
		v=make([]float32, n)
		for node:=0; node<n; node++ {
			m:=float32(nodeMask[node])
			if k>0 {
				u[node]=(dpX[node]+jPeak[node])*m
				v[node]=(dpY[node]+iPeak[node])*m
			} else {
				u[node]=jPeak[node]*m
				v[node]=iPeak[node]*m
			}
		}
		logf(logWriter, "Iteration %d: %s, residual %.4f\n", k+1, g, residual(iPeak, jPeak))

		s2n=nil
		last:=k==len(p.grids)-1
		if needS2N || last {
			s2n, err=corr.SigToNoiseRatio(p.cfg.S2NMethod, p.cfg.S2NWidth)
			if err!=nil { return nil, err }
		}

		flags=make([]int32, n)
		if validator!=nil && !(k==0 && p.cfg.TrustFirstIter) {
			for round:=0; round<p.cfg.NumValidationIters; round++ {
				roundFlags, uMean, vMean, err:=validator.Validate(u, v, s2n, nodeMask, g.NRow, g.NCol)
				if err!=nil { return nil, err }
				numFlagged:=0
				for node, f:=range roundFlags {
					if f==1 { numFlagged++; flags[node]=1 }
				}
				logf(logWriter, "  Validation round %d: %d of %d vectors replaced\n", round+1, numFlagged, n)
				if numFlagged==0 { break }
				ReplaceVectors(u, uMean, uPrev, roundFlags, prevGrid, g, k)
				ReplaceVectors(v, vMean, vPrev, roundFlags, prevGrid, g, k)
			}
		}

		if !last {
			next:=p.grids[k+1]
			if next.NRow==g.NRow && next.NCol==g.NCol {
				dpX=append([]float32(nil), u...)
				dpY=append([]float32(nil), v...)
			} else {
				dpX=InterpolateField(u, g, next)
				dpY=InterpolateField(v, g, next)
			}
			if p.cfg.Smooth {
				dpX=smooth.Field(dpX, next.NCol, p.cfg.SmoothPar)
				dpY=smooth.Field(dpY, next.NCol, p.cfg.SmoothPar)
			}
		}
		prevGrid=g
		uPrev, vPrev=u, v
	}

	g:=p.grids[len(p.grids)-1]
	res:=&Result{
		NRow: g.NRow, NCol: g.NCol,
		X: make([]float32, g.NumWindows()),
		Y: make([]float32, g.NumWindows()),
		U: make([]float32, g.NumWindows()),
		V: make([]float32, g.NumWindows()),
		S2N: s2n,
		Interpolated: flags,
	}
	for i:=0; i<g.NRow; i++ {
		for j:=0; j<g.NCol; j++ {
			node:=i*g.NCol+j
			res.X[node]=g.X(j)
			res.Y[node]=float32(p.ht)-g.Y(i)
			res.U[node]=u[node]/p.cfg.DT
			res.V[node]=-v[node]/p.cfg.DT
		}
	}
	return res, nil
}

// RMS residual displacement of one iteration, relative to the half pixel
// convergence target of the deformation scheme
func residual(iPeak, jPeak []float32) float64 {
	sum:=float64(0)
	for node:=range iPeak {
		sum+=float64(iPeak[node])*float64(iPeak[node])+float64(jPeak[node])*float64(jPeak[node])
	}
	r:=math.Sqrt(sum/float64(len(iPeak)))/0.5
	if math.IsInf(r, 0) { return math.NaN() }
	return r
}

func logf(w io.Writer, format string, args ...interface{}) {
	if w==nil { return }
	fmt.Fprintf(w, format, args...)
}

// Analyzes a single frame pair with the given config. For repeated analysis
// of equally shaped pairs, create a PIV once and reuse it.
func Process(ctx *compute.Context, frameA, frameB []int32, height, width int, mask []int32, cfg *Config, logWriter io.Writer) (*Result, error) {
	p, err:=New(ctx, height, width, mask, cfg)
	if err!=nil { return nil, err }
	return p.Run(frameA, frameB, logWriter)
}

// Single pass correlation with a search area larger than the interrogation
// window, for large displacements without iterative refinement. searchSize
// must be a multiple of 8 no smaller than windowSize.
func ExtendedSearchArea(ctx *compute.Context, frameA, frameB []int32, height, width, windowSize, searchSize int, overlap, dt float32) (*Result, error) {
	if searchSize<windowSize {
		return nil, fmt.Errorf("invalid parameter: search size %d is smaller than window size %d", searchSize, windowSize)
	}
	if dt<=0 { return nil, fmt.Errorf("invalid parameter: frame interval %g must be positive", dt) }
	g, err:=NewGrid(height, width, windowSize, overlap)
	if err!=nil { return nil, err }
	size:=height*width
	if len(frameA)!=size || len(frameB)!=size {
		return nil, fmt.Errorf("invalid parameter: frame length %d and %d do not match %dx%d shape", len(frameA), len(frameB), height, width)
	}
	fA:=make([]float32, size)
	fB:=make([]float32, size)
	for i:=0; i<size; i++ { fA[i]=float32(frameA[i]) }
	for i:=0; i<size; i++ { fB[i]=float32(frameB[i]) }

	corr, err:=NewCorrelator(ctx, fA, fB, height, width, 2, SubpixelGaussian)
	if err!=nil { return nil, err }
	defer corr.Release()
	iPeak, jPeak, err:=corr.Correlate(g, searchSize, nil, nil, nil)
	if err!=nil { return nil, err }
	s2n, err:=corr.SigToNoiseRatio(S2NPeakToPeak, 2)
	if err!=nil { return nil, err }

	res:=&Result{
		NRow: g.NRow, NCol: g.NCol,
		X: make([]float32, g.NumWindows()),
		Y: make([]float32, g.NumWindows()),
		U: make([]float32, g.NumWindows()),
		V: make([]float32, g.NumWindows()),
		S2N: s2n,
		Interpolated: make([]int32, g.NumWindows()),
	}
	for i:=0; i<g.NRow; i++ {
		for j:=0; j<g.NCol; j++ {
			node:=i*g.NCol+j
			res.X[node]=g.X(j)
			res.Y[node]=float32(height)-g.Y(i)
			res.U[node]=jPeak[node]/dt
			res.V[node]=-iPeak[node]/dt
		}
	}
	return res, nil
}
