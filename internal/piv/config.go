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
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all parameters of an iterative PIV analysis. The window size
// schedule starts at MinWindowSize*2^(len(WindowSizeIters)-1) and halves with
// every entry, running each size for the given number of iterations.
type Config struct {
	MinWindowSize   int       `yaml:"minWindowSize"`
	WindowSizeIters []int     `yaml:"windowSizeIters"`
	Overlap         float32   `yaml:"overlap"`
	DT              float32   `yaml:"dt"`
	Deform          bool      `yaml:"deform"`
	Smooth          bool      `yaml:"smooth"`
	SmoothPar       float32   `yaml:"smoothPar"`
	NumValidationIters int    `yaml:"numValidationIters"`
	ValidationMethod   string `yaml:"validationMethod"`
	MedianTol       float32   `yaml:"medianTol"`
	MeanTol         float32   `yaml:"meanTol"`
	RMSTol          float32   `yaml:"rmsTol"`
	S2NTol          float32   `yaml:"s2nTol"`
	S2NMethod       string    `yaml:"s2nMethod"`
	S2NWidth        int       `yaml:"s2nWidth"`
	SubpixelMethod  string    `yaml:"subpixelMethod"`
	NFFT            int       `yaml:"nfft"`
	ExtendRatio     int       `yaml:"extendRatio"`
	TrustFirstIter  bool      `yaml:"trustFirstIter"`
}

// Returns a config with the default parameters
func NewConfig() *Config {
	return &Config{
		MinWindowSize:      16,
		WindowSizeIters:    []int{1, 2},
		Overlap:            0.5,
		DT:                 1,
		Deform:             true,
		Smooth:             true,
		SmoothPar:          0.5,
		NumValidationIters: 1,
		ValidationMethod:   ValidationMedian,
		MedianTol:          2,
		MeanTol:            2,
		RMSTol:             2,
		S2NTol:             2,
		S2NMethod:          S2NPeakToPeak,
		S2NWidth:           2,
		SubpixelMethod:     SubpixelGaussian,
		NFFT:               2,
		ExtendRatio:        0,
		TrustFirstIter:     true,
	}
}

// Checks parameter ranges and combinations
func (c *Config) Validate() error {
	if c.MinWindowSize<8 || c.MinWindowSize%8!=0 {
		return fmt.Errorf("invalid parameter: minimum window size %d must be a multiple of 8 and at least 8", c.MinWindowSize)
	}
	if len(c.WindowSizeIters)==0 {
		return fmt.Errorf("invalid parameter: empty window size schedule")
	}
	for _, iters:=range c.WindowSizeIters {
		if iters<1 { return fmt.Errorf("invalid parameter: window size schedule entry %d must be at least one iteration", iters) }
	}
	if c.Overlap<=0 || c.Overlap>=1 {
		return fmt.Errorf("invalid parameter: overlap %g must be in (0,1)", c.Overlap)
	}
	if c.DT<=0 { return fmt.Errorf("invalid parameter: frame interval %g must be positive", c.DT) }
	if c.SmoothPar<=0 && c.Smooth { return fmt.Errorf("invalid parameter: smoothing parameter %g must be positive", c.SmoothPar) }
	if c.NumValidationIters<0 { return fmt.Errorf("invalid parameter: negative validation iterations %d", c.NumValidationIters) }
	if c.NumValidationIters>0 {
		if _, err:=NewValidator(c.ValidationMethod, c.MedianTol, c.MeanTol, c.RMSTol, c.S2NTol); err!=nil { return err }
	}
	switch c.S2NMethod {
	case S2NPeakToPeak, S2NPeakToMean:
	default:
		return fmt.Errorf("invalid parameter: unknown signal-to-noise method %q", c.S2NMethod)
	}
	if c.S2NWidth<1 { return fmt.Errorf("invalid parameter: signal-to-noise mask width %d must be at least one", c.S2NWidth) }
	switch c.SubpixelMethod {
	case SubpixelGaussian, SubpixelParabolic, SubpixelCentroid:
	default:
		return fmt.Errorf("invalid parameter: unknown subpixel method %q", c.SubpixelMethod)
	}
	if c.NFFT<1 || c.NFFT&(c.NFFT-1)!=0 {
		return fmt.Errorf("invalid parameter: nfft %d must be a positive power of two", c.NFFT)
	}
	if c.ExtendRatio<0 || c.ExtendRatio==1 {
		return fmt.Errorf("invalid parameter: extend ratio %d must be zero or at least two", c.ExtendRatio)
	}
	return nil
}

// Window sizes of all iterations, largest first
func (c *Config) WindowSizes() []int {
	var sizes []int
	numSizes:=len(c.WindowSizeIters)
	for i, iters:=range c.WindowSizeIters {
		ws:=c.MinWindowSize<<(numSizes-i-1)
		for n:=0; n<iters; n++ { sizes=append(sizes, ws) }
	}
	return sizes
}

// Loads a config in YAML format, with defaults for all omitted parameters
func LoadConfig(fileName string) (*Config, error) {
	data, err:=os.ReadFile(fileName)
	if err!=nil { return nil, err }
	cfg:=NewConfig()
	if err:=yaml.Unmarshal(data, cfg); err!=nil { return nil, err }
	if err:=cfg.Validate(); err!=nil { return nil, err }
	return cfg, nil
}

// Saves the config in YAML format
func (c *Config) Save(fileName string) error {
	data, err:=yaml.Marshal(c)
	if err!=nil { return err }
	return os.WriteFile(fileName, data, 0644)
}
