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


// Synthetic particle image generation for testing and benchmarking.
package synth

import (
	"math"

	"github.com/valyala/fastrand"
)

// Parameters of a synthetic particle image pair
type Params struct {
	Height, Width int
	NumParticles  int
	Diameter      float32 // particle image diameter in pixels
	Intensity     float32 // peak intensity per particle
	Seed          uint32
}

// Returns synthesis parameters producing a densely seeded 512x512 pair
func NewParams() *Params {
	return &Params{Height: 512, Width: 512, NumParticles: 4096, Diameter: 3, Intensity: 220, Seed: 1}
}

// Generates a frame pair where every particle moves by (shiftX, shiftY)
// pixels between exposures, wrapping around the frame borders so particle
// density stays uniform. shiftY is positive downwards, matching image rows.
func Pair(p *Params, shiftX, shiftY float32) (frameA, frameB []int32) {
	rng:=&fastrand.RNG{}
	rng.Seed(p.Seed)
	xs:=make([]float32, p.NumParticles)
	ys:=make([]float32, p.NumParticles)
	for i:=0; i<p.NumParticles; i++ {
		xs[i]=float32(rng.Uint32n(uint32(p.Width *16)))/16
		ys[i]=float32(rng.Uint32n(uint32(p.Height*16)))/16
	}
	frameA=render(p, xs, ys, 0, 0)
	frameB=render(p, xs, ys, shiftX, shiftY)
	return frameA, frameB
}

// Renders particles as Gaussian blobs into an integer intensity frame,
// positions wrapped into the frame extent
func render(p *Params, xs, ys []float32, shiftX, shiftY float32) []int32 {
	frame:=make([]int32, p.Height*p.Width)
	sigma2:=float64(p.Diameter*p.Diameter)/8
	radius:=int(p.Diameter)+2
	for i:=range xs {
		px:=wrap(xs[i]+shiftX, float32(p.Width))
		py:=wrap(ys[i]+shiftY, float32(p.Height))
		x0:=int(px)-radius
		y0:=int(py)-radius
		for y:=y0; y<=y0+2*radius; y++ {
			wy:=((y%p.Height)+p.Height)%p.Height
			for x:=x0; x<=x0+2*radius; x++ {
				wx:=((x%p.Width)+p.Width)%p.Width
				dx:=float64(float32(x)-px)
				dy:=float64(float32(y)-py)
				v:=float64(p.Intensity)*math.Exp(-(dx*dx+dy*dy)/sigma2)
				frame[wy*p.Width+wx]+=int32(v)
			}
		}
	}
	for i, v:=range frame {
		if v>4095 { frame[i]=4095 }
	}
	return frame
}

func wrap(v, n float32) float32 {
	for v<0 { v+=n }
	for v>=n { v-=n }
	return v
}
