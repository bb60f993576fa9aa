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

// Velocity gradient planes on the grid, row-major, shape (NRow, NCol).
// UX is du/dx, UY is du/dy, VX is dv/dx, VY is dv/dy in pixel units.
type Strain struct {
	UX, UY, VX, VY []float32
}

// Cuts interrogation windows of the given extent out of a frame, one window
// per grid node, without deformation. Pixels outside the frame are zero.
// The stack is row-major, shape (nWindows, ext, ext).
func sliceWindows(ctx forRunner, frame []float32, ht, wd int, g *Grid, ext int, stack []float32) {
	diff:=g.Spacing-ext/2
	nCol:=g.NCol
	ctx.For(g.NumWindows(), func(w int) {
		baseX:=(w%nCol)*g.Spacing+diff
		baseY:=(w/nCol)*g.Spacing+diff
		win:=stack[w*ext*ext:(w+1)*ext*ext]
		for indY:=0; indY<ext; indY++ {
			y:=baseY+indY
			if y<0 || y>=ht {
				for indX:=0; indX<ext; indX++ { win[indY*ext+indX]=0 }
				continue
			}
			row:=frame[y*wd:(y+1)*wd]
			for indX:=0; indX<ext; indX++ {
				x:=baseX+indX
				if x<0 || x>=wd {
					win[indY*ext+indX]=0
				} else {
					win[indY*ext+indX]=row[x]
				}
			}
		}
	})
}

// Cuts interrogation windows out of a frame, deforming each window by the
// predicted displacement and the local velocity gradients. Each source pixel
// is shifted by factor times the node displacement plus the first order
// gradient term, then sampled with bilinear interpolation. Factor is -0.5
// for the first frame and +0.5 for the second, splitting the deformation
// symmetrically. Pixels whose footprint leaves the frame are zero.
func sliceWindowsDeform(ctx forRunner, frame []float32, ht, wd int, g *Grid, ext int,
	shiftX, shiftY []float32, strain *Strain, factor float32, stack []float32) {
	diff:=g.Spacing-ext/2
	nCol:=g.NCol
	half:=float32(ext)/2
	ctx.For(g.NumWindows(), func(w int) {
		baseX:=float32((w%nCol)*g.Spacing+diff)
		baseY:=float32((w/nCol)*g.Spacing+diff)
		dx:=shiftX[w]*factor
		dy:=shiftY[w]*factor
		var ux, uy, vx, vy float32
		if strain!=nil {
			ux=strain.UX[w]*factor
			uy=strain.UY[w]*factor
			vx=strain.VX[w]*factor
			vy=strain.VY[w]*factor
		}
		win:=stack[w*ext*ext:(w+1)*ext*ext]
		for indY:=0; indY<ext; indY++ {
			rY:=float32(indY)-half+0.5
			for indX:=0; indX<ext; indX++ {
				rX:=float32(indX)-half+0.5
				xShift:=baseX+float32(indX)+dx+rX*ux+rY*uy
				yShift:=baseY+float32(indY)+dy+rX*vx+rY*vy
				win[indY*ext+indX]=sampleBilinear(frame, ht, wd, xShift, yShift)
			}
		}
	})
}

// Bilinear sample of a frame at fractional coordinates, zero outside
func sampleBilinear(frame []float32, ht, wd int, x, y float32) float32 {
	x1:=floorInt(x)
	x2:=ceilInt(x)
	y1:=floorInt(y)
	y2:=ceilInt(y)
	if x2==x1 { x2=x1+1 }
	if y2==y1 { y2=y1+1 }
	if x1<0 || x2>=wd || y1<0 || y2>=ht { return 0 }
	fx:=x-float32(x1)
	fy:=y-float32(y1)
	f11:=frame[y1*wd+x1]
	f21:=frame[y1*wd+x2]
	f12:=frame[y2*wd+x1]
	f22:=frame[y2*wd+x2]
	return f11*(1-fx)*(1-fy) + f21*fx*(1-fy) + f12*(1-fx)*fy + f22*fx*fy
}

func floorInt(v float32) int {
	i:=int(v)
	if float32(i)>v { i-- }
	return i
}

func ceilInt(v float32) int {
	i:=int(v)
	if float32(i)<v { i++ }
	return i
}

// Subtracts the mean of each window in place, removing background intensity
// so the correlation peak reflects particle displacement only
func normalizeWindows(ctx forRunner, stack []float32, nWindows, ext int) {
	size:=ext*ext
	ctx.For(nWindows, func(w int) {
		win:=stack[w*size:(w+1)*size]
		sum:=float32(0)
		for _, v:=range win { sum+=v }
		mean:=sum/float32(size)
		for i:=range win { win[i]-=mean }
	})
}

// Minimal parallel-for interface, satisfied by compute.Context
type forRunner interface {
	For(n int, kernel func(i int))
	ForChunks(n int, kernel func(lo, hi int))
}
