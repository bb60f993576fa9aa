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


package smooth

import (
	"math"
)

// Computes a 1D Gaussian kernel of the given standard deviation. Each cell
// holds the integral of the Gaussian over the cell extent, so narrow kernels
// stay accurate. The kernel is normalized to sum one.
func GaussianKernel1D(sigma float32) []float32 {
	radius:=int(float32(math.Ceil(float64(sigma)*2.5)))
	if radius<1 { radius=1 }
	kernel:=make([]float32, 2*radius+1)
	denom:=float64(sigma)*math.Sqrt2
	sum:=float32(0)
	for i:=-radius; i<=radius; i++ {
		v:=float32(0.5*(math.Erf((float64(i)+0.5)/denom)-math.Erf((float64(i)-0.5)/denom)))
		kernel[i+radius]=v
		sum+=v
	}
	for i:=range kernel { kernel[i]/=sum }
	return kernel
}

// Convolves data of the given width with a 1D kernel in the X direction,
// reflecting at the boundaries. Returns a newly allocated result.
func Convolve1DX(data []float32, width int, kernel []float32) []float32 {
	height:=len(data)/width
	radius:=len(kernel)/2
	res:=make([]float32, len(data))
	for y:=0; y<height; y++ {
		row:=data[y*width:(y+1)*width]
		out:=res[y*width:(y+1)*width]
		for x:=0; x<width; x++ {
			sum:=float32(0)
			for k:=-radius; k<=radius; k++ {
				sum+=kernel[k+radius]*row[reflect(x+k, width)]
			}
			out[x]=sum
		}
	}
	return res
}

// Convolves data of the given width with a 1D kernel in the Y direction,
// reflecting at the boundaries. Returns a newly allocated result.
func Convolve1DY(data []float32, width int, kernel []float32) []float32 {
	height:=len(data)/width
	radius:=len(kernel)/2
	res:=make([]float32, len(data))
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			sum:=float32(0)
			for k:=-radius; k<=radius; k++ {
				sum+=kernel[k+radius]*data[reflect(y+k, height)*width+x]
			}
			res[y*width+x]=sum
		}
	}
	return res
}

// Reflects an index into [0,n), mirroring at both ends
func reflect(i, n int) int {
	for i<0 || i>=n {
		if i<0 { i=-i-1 }
		if i>=n { i=2*n-i-1 }
	}
	return i
}

// Smooths a row-major field of the given width with a separable Gaussian.
// Applied to the displacement predictor between iterations, it keeps noise
// from one pass from deforming the windows of the next.
func Field(data []float32, width int, sigma float32) []float32 {
	kernel:=GaussianKernel1D(sigma)
	tmp:=Convolve1DX(data, width, kernel)
	return Convolve1DY(tmp, width, kernel)
}
