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


package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/mkammer/gpiv/internal"
	"github.com/mkammer/gpiv/internal/compute"
	"github.com/mkammer/gpiv/internal/frame"
	"github.com/mkammer/gpiv/internal/piv"
	"github.com/mkammer/gpiv/internal/render"
	"github.com/mkammer/gpiv/internal/rest"
	"github.com/mkammer/gpiv/internal/synth"
)

const version = "0.2.1"

var commit = "" // Commit hash, set via ldflags -X main.commit

// General flags
var out        = flag.String("out", "field.csv", "save velocity field as CSV to `file`")
var png        = flag.String("png", "", "save velocity magnitude rendering as PNG to `file`")
var cellSize   = flag.Int("cellSize", 8, "cell size in pixels for the PNG rendering")
var logFile    = flag.String("log", "", "write log output to `file` in addition to stdout")
var params     = flag.String("params", "", "load analysis parameters from YAML `file`")
var saveParams = flag.String("saveParams", "", "save effective analysis parameters as YAML to `file`")
var maskFile   = flag.String("mask", "", "load static image mask from `file`, white=flow black=background")
var jobs       = flag.Int("jobs", 0, "number of worker threads, 0=all hardware threads")

// Analysis flags, overriding the parameter file
var minWin      = flag.Int("minWin", 16, "final interrogation window size in pixels, multiple of 8")
var wsIters     = flag.String("wsIters", "1,2", "iterations per window size, largest window first")
var overlap     = flag.Float64("overlap", 0.5, "window overlap ratio in (0,1)")
var dt          = flag.Float64("dt", 1, "time between frames in seconds")
var deform      = flag.Bool("deform", true, "deform windows by the local velocity gradient")
var smooth      = flag.Bool("smooth", true, "smooth the displacement predictor between iterations")
var smoothPar   = flag.Float64("smoothPar", 0.5, "smoothing strength in grid nodes")
var valIters    = flag.Int("valIters", 1, "validation and replacement rounds per iteration, 0=off")
var valMethod   = flag.String("valMethod", "median", "validation methods, '+'-combined: median|mean|rms|s2n")
var medianTol   = flag.Float64("medianTol", 2, "tolerance of the median validation")
var meanTol     = flag.Float64("meanTol", 2, "tolerance of the mean validation")
var rmsTol      = flag.Float64("rmsTol", 2, "tolerance of the rms validation")
var s2nTol      = flag.Float64("s2nTol", 2, "minimum signal-to-noise ratio for the s2n validation")
var s2nMethod   = flag.String("s2nMethod", "peak2peak", "signal-to-noise method: peak2peak|peak2mean")
var s2nWidth    = flag.Int("s2nWidth", 2, "half width of the peak mask for peak2peak")
var subpixel    = flag.String("subpixel", "gaussian", "subpixel peak method: gaussian|parabolic|centroid")
var nfft        = flag.Int("nfft", 2, "FFT oversampling factor, power of two")
var extendRatio = flag.Int("extendRatio", 0, "search area extension factor for the first iteration, 0=off")
var trustFirst  = flag.Bool("trustFirst", true, "skip validation on the first iteration")

// Synthesis flags
var synthWidth     = flag.Int("width", 512, "synthetic frame width in pixels")
var synthHeight    = flag.Int("height", 512, "synthetic frame height in pixels")
var synthParticles = flag.Int("particles", 4096, "number of synthetic particles")
var synthDiameter  = flag.Float64("diameter", 3, "synthetic particle image diameter in pixels")
var synthShiftX    = flag.Float64("shiftX", 0, "synthetic particle shift in x, pixels")
var synthShiftY    = flag.Float64("shiftY", 0, "synthetic particle shift in y, pixels, positive downwards")
var synthSeed      = flag.Int("seed", 1, "random seed for particle placement")

// Serve flags
var port = flag.Int("port", 8080, "port number for serve mode")

// Profiling flags
var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

func main() {
	flag.Usage=func() {
		fmt.Fprintf(os.Stderr, `gpiv version %s
Iterative window deformation particle image velocimetry

Usage syntax:

   gpiv [-flag value] (piv|synth|serve|version|help) [frameA frameB]

Commands:
   piv      analyze a frame pair, given as two image files
   synth    generate a synthetic frame pair, written to frameA/frameB paths
   serve    run HTTP server on given port
   version  show version information
   help     show this help

Flags:
`, version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *logFile!="" {
		err:=internal.LogAlsoToFile(*logFile)
		if err!=nil { internal.LogFatalf("Unable to open log file %s\n", *logFile) }
	}
	defer internal.LogSync()

	if *cpuprofile!="" {
		f, err:=os.Create(*cpuprofile)
		if err!=nil { internal.LogFatal("Could not create CPU profile: ", err) }
		defer f.Close()
		if err:=pprof.StartCPUProfile(f); err!=nil { internal.LogFatal("Could not start CPU profile: ", err) }
		defer pprof.StopCPUProfile()
	}

	ctx:=compute.NewContext()
	if *jobs>0 { ctx=compute.NewContextWith(*jobs) }

	args:=flag.Args()
	if len(args)<1 {
		flag.Usage()
		return
	}
	switch args[0] {
	case "piv":
		if len(args)!=3 { internal.LogFatal("piv requires exactly two frame file arguments") }
		cmdPIV(ctx, args[1], args[2])
	case "synth":
		if len(args)!=3 { internal.LogFatal("synth requires exactly two output file arguments") }
		cmdSynth(args[1], args[2])
	case "serve":
		internal.LogPrintf("Serving on port %d using %s\n", *port, ctx.Describe())
		err:=rest.Serve(ctx, *port)
		if err!=nil { internal.LogFatal("Server failed: ", err) }
	case "version":
		internal.LogPrintf("gpiv version %s", version)
		if commit!="" { internal.LogPrintf(" commit %s", commit) }
		internal.LogPrintf("\nRunning on %s\n", ctx.Describe())
	case "help", "?":
		flag.Usage()
	default:
		internal.LogFatalf("Unknown command '%s'. Run 'gpiv help' for usage\n", args[0])
	}

	if *memprofile!="" {
		f, err:=os.Create(*memprofile)
		if err!=nil { internal.LogFatal("Could not create memory profile: ", err) }
		defer f.Close()
		runtime.GC()
		if err:=pprof.WriteHeapProfile(f); err!=nil { internal.LogFatal("Could not write memory profile: ", err) }
	}
}

// Analyzes a frame pair given as image files and exports the field
func cmdPIV(ctx *compute.Context, fileA, fileB string) {
	cfg:=configFromFlags()
	if err:=cfg.Validate(); err!=nil { internal.LogFatal(err) }
	if *saveParams!="" {
		if err:=cfg.Save(*saveParams); err!=nil { internal.LogFatal(err) }
	}

	internal.LogPrintf("gpiv version %s using %s\n", version, ctx.Describe())
	frameA, htA, wdA, err:=frame.LoadGray(fileA)
	if err!=nil { internal.LogFatal(err) }
	frameB, htB, wdB, err:=frame.LoadGray(fileB)
	if err!=nil { internal.LogFatal(err) }
	if htA!=htB || wdA!=wdB {
		internal.LogFatalf("Frame shapes %dx%d and %dx%d do not match\n", htA, wdA, htB, wdB)
	}
	internal.LogPrintf("Loaded frame pair %s %s of %dx%d pixels\n", fileA, fileB, htA, wdA)

	var mask []int32
	if *maskFile!="" {
		var htM, wdM int
		mask, htM, wdM, err=frame.LoadGray(*maskFile)
		if err!=nil { internal.LogFatal(err) }
		if htM!=htA || wdM!=wdA { internal.LogFatalf("Mask shape %dx%d does not match frames\n", htM, wdM) }
		for i, v:=range mask {
			if v>0 { mask[i]=1 }
		}
	}

	res, err:=piv.Process(ctx, frameA, frameB, htA, wdA, mask, cfg, logWriter{})
	if err!=nil { internal.LogFatal(err) }

	if *out!="" {
		if err:=frame.WriteCSV(res, *out); err!=nil { internal.LogFatal(err) }
		internal.LogPrintf("Saved velocity field to %s\n", *out)
	}
	if *png!="" {
		img:=render.Magnitude(res, *cellSize)
		if err:=render.SavePNG(img, *png); err!=nil { internal.LogFatal(err) }
		internal.LogPrintf("Saved magnitude rendering to %s\n", *png)
	}
	compute.ClearPools()
}

// Generates a synthetic frame pair with a uniform particle shift
func cmdSynth(fileA, fileB string) {
	p:=synth.NewParams()
	p.Height   =*synthHeight
	p.Width    =*synthWidth
	p.NumParticles=*synthParticles
	p.Diameter =float32(*synthDiameter)
	p.Seed     =uint32(*synthSeed)
	frameA, frameB:=synth.Pair(p, float32(*synthShiftX), float32(*synthShiftY))
	if err:=frame.SaveGray(frameA, p.Height, p.Width, fileA); err!=nil { internal.LogFatal(err) }
	if err:=frame.SaveGray(frameB, p.Height, p.Width, fileB); err!=nil { internal.LogFatal(err) }
	internal.LogPrintf("Saved synthetic %dx%d frame pair with shift (%g,%g) to %s and %s\n",
		p.Height, p.Width, *synthShiftX, *synthShiftY, fileA, fileB)
}

// Builds the analysis config from the parameter file and flag overrides
func configFromFlags() *piv.Config {
	cfg:=piv.NewConfig()
	if *params!="" {
		var err error
		cfg, err=piv.LoadConfig(*params)
		if err!=nil { internal.LogFatal(err) }
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "minWin":      cfg.MinWindowSize=*minWin
		case "wsIters":     cfg.WindowSizeIters=parseIntList(*wsIters)
		case "overlap":     cfg.Overlap=float32(*overlap)
		case "dt":          cfg.DT=float32(*dt)
		case "deform":      cfg.Deform=*deform
		case "smooth":      cfg.Smooth=*smooth
		case "smoothPar":   cfg.SmoothPar=float32(*smoothPar)
		case "valIters":    cfg.NumValidationIters=*valIters
		case "valMethod":   cfg.ValidationMethod=*valMethod
		case "medianTol":   cfg.MedianTol=float32(*medianTol)
		case "meanTol":     cfg.MeanTol=float32(*meanTol)
		case "rmsTol":      cfg.RMSTol=float32(*rmsTol)
		case "s2nTol":      cfg.S2NTol=float32(*s2nTol)
		case "s2nMethod":   cfg.S2NMethod=*s2nMethod
		case "s2nWidth":    cfg.S2NWidth=*s2nWidth
		case "subpixel":    cfg.SubpixelMethod=*subpixel
		case "nfft":        cfg.NFFT=*nfft
		case "extendRatio": cfg.ExtendRatio=*extendRatio
		case "trustFirst":  cfg.TrustFirstIter=*trustFirst
		}
	})
	return cfg
}

// Parses a comma separated list of positive integers
func parseIntList(s string) []int {
	var res []int
	for _, part:=range strings.Split(s, ",") {
		v, err:=strconv.Atoi(strings.TrimSpace(part))
		if err!=nil { internal.LogFatalf("Invalid integer list '%s'\n", s) }
		res=append(res, v)
	}
	return res
}

// Adapts the singleton log writer to io.Writer for analysis progress output
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	return internal.LogPrint(string(p))
}
