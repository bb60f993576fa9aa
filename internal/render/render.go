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


// Velocity field rendering.
package render

import (
	"bufio"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/mkammer/gpiv/internal/piv"
)

// Renders a velocity field as a magnitude map, one square cell per grid
// node, blue for slow and red for fast flow. Nodes replaced during
// validation are dimmed. Row 0 of the field is drawn at the bottom, Y up.
func Magnitude(res *piv.Result, cellSize int) *image.RGBA {
	if cellSize<1 { cellSize=1 }
	maxMag:=float64(0)
	mags:=make([]float64, res.NRow*res.NCol)
	for node:=range mags {
		m:=math.Sqrt(float64(res.U[node])*float64(res.U[node])+float64(res.V[node])*float64(res.V[node]))
		mags[node]=m
		if m>maxMag { maxMag=m }
	}
	if maxMag==0 { maxMag=1 }

	img:=image.NewRGBA(image.Rect(0, 0, res.NCol*cellSize, res.NRow*cellSize))
	for i:=0; i<res.NRow; i++ {
		for j:=0; j<res.NCol; j++ {
			node:=i*res.NCol+j
			hue:=240*(1-mags[node]/maxMag)
			val:=1.0
			if res.Interpolated!=nil && res.Interpolated[node]==1 { val=0.6 }
			c:=colorful.Hsv(hue, 1, val)
			// final grid row 0 has the highest Y, so it lands at the top
			for y:=i*cellSize; y<(i+1)*cellSize; y++ {
				for x:=j*cellSize; x<(j+1)*cellSize; x++ {
					img.Set(x, y, c)
				}
			}
		}
	}
	return img
}

// Saves an image as PNG
func SavePNG(img image.Image, fileName string) error {
	f, err:=os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err!=nil { return err }
	defer f.Close()
	w:=bufio.NewWriter(f)
	if err:=png.Encode(w, img); err!=nil { return err }
	return w.Flush()
}
