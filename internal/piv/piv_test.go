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
	"sort"
	"testing"

	"github.com/mkammer/gpiv/internal/compute"
	"github.com/mkammer/gpiv/internal/synth"
)

// Median of a result plane over the nodes away from the frame borders
func resultInteriorMedian(f []float32, res *Result, ht, wd int, margin float32) float32 {
	var vals []float32
	for node:=0; node<res.NRow*res.NCol; node++ {
		if res.X[node]<margin || res.X[node]>float32(wd)-margin { continue }
		if res.Y[node]<margin || res.Y[node]>float32(ht)-margin { continue }
		vals=append(vals, f[node])
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i]<vals[j] })
	return vals[len(vals)/2]
}

// A uniform particle shift of (8,-4) image pixels must come out as a
// velocity of u=8 rightwards and v=4 upwards, since image rows grow
// downwards but the result Y axis points up
func TestProcessKnownShift(t *testing.T) {
	p:=synth.NewParams()
	p.Height, p.Width=256, 256
	p.NumParticles=2048
	frameA, frameB:=synth.Pair(p, 8, -4)

	cfg:=NewConfig()
	cfg.MinWindowSize=16
	cfg.WindowSizeIters=[]int{1, 1}

	ctx:=compute.NewContext()
	res, err:=Process(ctx, frameA, frameB, p.Height, p.Width, nil, cfg, nil)
	if err!=nil { t.Fatal(err) }
	if res.NRow!=31 || res.NCol!=31 {
		t.Fatalf("result grid %dx%d, expected 31x31", res.NRow, res.NCol)
	}

	mu:=resultInteriorMedian(res.U, res, p.Height, p.Width, 48)
	mv:=resultInteriorMedian(res.V, res, p.Height, p.Width, 48)
	if !within(mu, 8, 0.2) || !within(mv, 4, 0.2) {
		t.Errorf("median velocity (%g,%g), expected (8,4)", mu, mv)
	}
	if res.S2N==nil || len(res.S2N)!=res.NRow*res.NCol {
		t.Errorf("missing signal-to-noise plane in result")
	}
	if len(res.Interpolated)!=res.NRow*res.NCol {
		t.Errorf("missing replacement plane in result")
	}
}

// Empty frames carry no correlation signal and must yield a zero field
func TestProcessZeroFrames(t *testing.T) {
	ht, wd:=128, 128
	zero:=make([]int32, ht*wd)
	cfg:=NewConfig()
	ctx:=compute.NewContextWith(2)
	res, err:=Process(ctx, zero, zero, ht, wd, nil, cfg, nil)
	if err!=nil { t.Fatal(err) }
	for node:=0; node<res.NRow*res.NCol; node++ {
		if res.U[node]!=0 || res.V[node]!=0 {
			t.Fatalf("node %d velocity (%g,%g) on empty frames, expected zero", node, res.U[node], res.V[node])
		}
	}
}

// Nodes on masked background must carry zero velocity
func TestProcessMasked(t *testing.T) {
	p:=synth.NewParams()
	p.Height, p.Width=128, 128
	p.NumParticles=512
	frameA, frameB:=synth.Pair(p, 4, 0)

	// mask out the top half of the image
	mask:=make([]int32, p.Height*p.Width)
	for y:=p.Height/2; y<p.Height; y++ {
		for x:=0; x<p.Width; x++ { mask[y*p.Width+x]=1 }
	}
	cfg:=NewConfig()
	cfg.NumValidationIters=0
	ctx:=compute.NewContext()
	res, err:=Process(ctx, frameA, frameB, p.Height, p.Width, mask, cfg, nil)
	if err!=nil { t.Fatal(err) }
	for node:=0; node<res.NRow*res.NCol; node++ {
		// result Y points up, so the masked image top is high Y
		if res.Y[node]>float32(p.Height)/2 {
			if res.U[node]!=0 || res.V[node]!=0 {
				t.Fatalf("masked node %d has velocity (%g,%g), expected zero", node, res.U[node], res.V[node])
			}
		}
	}
}

func TestExtendedSearchArea(t *testing.T) {
	p:=synth.NewParams()
	p.Height, p.Width=256, 256
	p.NumParticles=2048
	frameA, frameB:=synth.Pair(p, 11, 0)

	ctx:=compute.NewContext()
	// a displacement of 11 px exceeds a quarter of the 16 px windows, the
	// extended search area still resolves it in a single pass
	res, err:=ExtendedSearchArea(ctx, frameA, frameB, p.Height, p.Width, 16, 32, 0.5, 1)
	if err!=nil { t.Fatal(err) }
	mu:=resultInteriorMedian(res.U, res, p.Height, p.Width, 48)
	mv:=resultInteriorMedian(res.V, res, p.Height, p.Width, 48)
	if !within(mu, 11, 0.3) || !within(mv, 0, 0.3) {
		t.Errorf("median velocity (%g,%g), expected (11,0)", mu, mv)
	}

	if _, err:=ExtendedSearchArea(ctx, frameA, frameB, p.Height, p.Width, 32, 16, 0.5, 1); err==nil {
		t.Errorf("expected error for search size below window size")
	}
}

func TestConfigValidate(t *testing.T) {
	good:=NewConfig()
	if err:=good.Validate(); err!=nil { t.Fatalf("default config invalid: %s", err.Error()) }

	tests:=[]func(c *Config){
		func(c *Config) { c.MinWindowSize=12 },
		func(c *Config) { c.WindowSizeIters=nil },
		func(c *Config) { c.WindowSizeIters=[]int{1, 0} },
		func(c *Config) { c.Overlap=1 },
		func(c *Config) { c.DT=0 },
		func(c *Config) { c.ValidationMethod="bogus" },
		func(c *Config) { c.S2NMethod="bogus" },
		func(c *Config) { c.S2NWidth=0 },
		func(c *Config) { c.SubpixelMethod="bogus" },
		func(c *Config) { c.NFFT=3 },
		func(c *Config) { c.ExtendRatio=1 },
	}
	for i, mutate:=range tests {
		cfg:=NewConfig()
		mutate(cfg)
		if err:=cfg.Validate(); err==nil { t.Errorf("%d: expected validation error", i) }
	}
}

func TestConfigWindowSizes(t *testing.T) {
	cfg:=NewConfig()
	cfg.MinWindowSize=16
	cfg.WindowSizeIters=[]int{1, 2, 3}
	expected:=[]int{64, 32, 32, 16, 16, 16}
	sizes:=cfg.WindowSizes()
	if len(sizes)!=len(expected) { t.Fatalf("%d window sizes, expected %d", len(sizes), len(expected)) }
	for i:=range sizes {
		if sizes[i]!=expected[i] { t.Errorf("size %d is %d, expected %d", i, sizes[i], expected[i]) }
	}
}

func TestConfigSaveLoad(t *testing.T) {
	cfg:=NewConfig()
	cfg.MinWindowSize=24
	cfg.Overlap=0.25
	cfg.ValidationMethod="median+s2n"
	fileName:=t.TempDir()+"/params.yaml"
	if err:=cfg.Save(fileName); err!=nil { t.Fatal(err) }
	loaded, err:=LoadConfig(fileName)
	if err!=nil { t.Fatal(err) }
	if loaded.MinWindowSize!=24 || loaded.Overlap!=0.25 || loaded.ValidationMethod!="median+s2n" {
		t.Errorf("loaded config %+v differs from saved", loaded)
	}
}
