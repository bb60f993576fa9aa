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
	"github.com/mkammer/gpiv/internal/compute"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Worker-local 2D FFT over square complex buffers of size n x n.
// fourier.CmplxFFT plans are stateful and not safe for concurrent use,
// so each correlation worker creates its own.
type fftPlan struct {
	n    int
	fft  *fourier.CmplxFFT
	row  []complex128
}

func newFFTPlan(n int) *fftPlan {
	return &fftPlan{
		n:   n,
		fft: fourier.NewCmplxFFT(n),
		row: make([]complex128, n),
	}
}

// In-place 2D forward FFT by row-column decomposition
func (p *fftPlan) forward2D(data []complex128) {
	n:=p.n
	for y:=0; y<n; y++ {
		row:=data[y*n:(y+1)*n]
		copy(p.row, row)
		copy(row, p.fft.Coefficients(nil, p.row))
	}
	for x:=0; x<n; x++ {
		for y:=0; y<n; y++ { p.row[y]=data[y*n+x] }
		col:=p.fft.Coefficients(nil, p.row)
		for y:=0; y<n; y++ { data[y*n+x]=col[y] }
	}
}

// In-place 2D inverse FFT. Sequence is unnormalized, so results are
// scaled by 1/n per axis.
func (p *fftPlan) inverse2D(data []complex128) {
	n:=p.n
	scale:=complex(1/float64(n*n), 0)
	for y:=0; y<n; y++ {
		row:=data[y*n:(y+1)*n]
		copy(p.row, row)
		copy(row, p.fft.Sequence(nil, p.row))
	}
	for x:=0; x<n; x++ {
		for y:=0; y<n; y++ { p.row[y]=data[y*n+x] }
		col:=p.fft.Sequence(nil, p.row)
		for y:=0; y<n; y++ { data[y*n+x]=col[y]*scale }
	}
}

// Circular cross-correlation of two real windows via the correlation
// theorem: corr = fftshift(Re(IFFT(conj(FFT(a)) * FFT(b)))). The result
// is written into out, with zero displacement at index (n/2, n/2).
func (p *fftPlan) crossCorrelate(a, b, out []float32) {
	n:=p.n
	size:=n*n
	bufA:=compute.GetArrayOfComplex128FromPool(size)
	defer compute.PutArrayOfComplex128IntoPool(bufA)
	bufB:=compute.GetArrayOfComplex128FromPool(size)
	defer compute.PutArrayOfComplex128IntoPool(bufB)

	for i:=0; i<size; i++ { bufA[i]=complex(float64(a[i]), 0) }
	for i:=0; i<size; i++ { bufB[i]=complex(float64(b[i]), 0) }
	p.forward2D(bufA)
	p.forward2D(bufB)
	for i:=0; i<size; i++ {
		ar, ai:=real(bufA[i]), imag(bufA[i])
		br, bi:=real(bufB[i]), imag(bufB[i])
		// conj(A)*B
		bufA[i]=complex(ar*br+ai*bi, ar*bi-ai*br)
	}
	p.inverse2D(bufA)

	// fftshift moves the zero-displacement peak to the center
	half:=n/2
	for y:=0; y<n; y++ {
		srcY:=(y+half)%n
		for x:=0; x<n; x++ {
			srcX:=(x+half)%n
			out[y*n+x]=float32(real(bufA[srcY*n+srcX]))
		}
	}
}
