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
)

// Signal-to-noise estimation methods
const (
	S2NPeakToPeak = "peak2peak"
	S2NPeakToMean = "peak2mean"
)

// Estimates the signal-to-noise ratio of each correlation plane from the
// most recent Correlate call. peak2peak divides the primary peak by the
// second highest peak outside a masked region of half width `width` around
// the primary; peak2mean divides it by the plane mean. Windows with a
// negligible primary peak or a peak on the plane border report zero.
func (c *Correlator) SigToNoiseRatio(method string, width int) ([]float32, error) {
	if c.maps==nil { return nil, fmt.Errorf("no correlation data: call Correlate first") }
	if width<1 { return nil, fmt.Errorf("invalid parameter: mask width %d must be at least one", width) }
	switch method {
	case S2NPeakToPeak, S2NPeakToMean:
	default:
		return nil, fmt.Errorf("invalid parameter: unknown signal-to-noise method %q", method)
	}

	n:=c.fftSize
	planeSize:=n*n
	s2n:=make([]float32, c.nWindows)
	c.ctx.For(c.nWindows, func(w int) {
		peak1:=float64(c.corrMax[w])
		row, col:=c.peakRow[w], c.peakCol[w]
		if peak1<1e-3 || row==0 || row==n-1 || col==0 || col==n-1 {
			s2n[w]=0
			return
		}
		corr:=c.maps[w*planeSize:(w+1)*planeSize]
		var noise float64
		if method==S2NPeakToPeak {
			noise=secondPeak(corr, n, row, col, width)
		} else {
			sum:=float64(0)
			for _, v:=range corr { sum+=float64(v) }
			noise=sum/float64(planeSize)
		}
		if noise<=0 { noise=smallestFloat }
		r:=peak1/noise
		if math.IsNaN(r) { r=0 }
		s2n[w]=float32(r)
	})
	return s2n, nil
}

// Highest correlation value outside the masked region around the primary peak
func secondPeak(corr []float32, n, row, col, width int) float64 {
	y0:=row-width
	y1:=row+width
	x0:=col-width
	x1:=col+width
	max:=float32(math.Inf(-1))
	for y:=0; y<n; y++ {
		inY:=y>=y0 && y<=y1
		for x:=0; x<n; x++ {
			if inY && x>=x0 && x<=x1 { continue }
			if v:=corr[y*n+x]; v>max { max=v }
		}
	}
	return float64(max)
}
