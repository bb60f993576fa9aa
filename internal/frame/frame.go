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


// Frame loading and result export.
package frame

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	_ "golang.org/x/image/tiff" // TIFF support for image.Decode
	_ "image/jpeg"

	"github.com/mkammer/gpiv/internal/piv"
)

// Loads a camera frame in PNG, TIFF or JPEG format as a row-major plane of
// gray intensities, 16 bit range
func LoadGray(fileName string) (data []int32, height, width int, err error) {
	f, err:=os.Open(fileName)
	if err!=nil { return nil, 0, 0, err }
	defer f.Close()
	img, _, err:=image.Decode(bufio.NewReader(f))
	if err!=nil { return nil, 0, 0, fmt.Errorf("%s: %s", fileName, err.Error()) }

	bounds:=img.Bounds()
	width =bounds.Dx()
	height=bounds.Dy()
	data=make([]int32, height*width)
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			c:=color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			data[y*width+x]=int32(c.Y)
		}
	}
	return data, height, width, nil
}

// Saves a gray intensity plane as 16 bit PNG, clipping to the valid range
func SaveGray(data []int32, height, width int, fileName string) error {
	img:=image.NewGray16(image.Rect(0, 0, width, height))
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			v:=data[y*width+x]
			if v<0 { v=0 }
			if v>65535 { v=65535 }
			img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}
	f, err:=os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err!=nil { return err }
	defer f.Close()
	w:=bufio.NewWriter(f)
	if err:=png.Encode(w, img); err!=nil { return err }
	return w.Flush()
}

// Writes a velocity field as CSV with one node per line
func WriteCSV(res *piv.Result, fileName string) error {
	f, err:=os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err!=nil { return err }
	defer f.Close()
	w:=bufio.NewWriter(f)
	fmt.Fprintf(w, "x,y,u,v,s2n,interpolated\n")
	for node:=0; node<res.NRow*res.NCol; node++ {
		s2n:=float32(0)
		if res.S2N!=nil { s2n=res.S2N[node] }
		fmt.Fprintf(w, "%g,%g,%g,%g,%g,%d\n", res.X[node], res.Y[node], res.U[node], res.V[node], s2n, res.Interpolated[node])
	}
	return w.Flush()
}
