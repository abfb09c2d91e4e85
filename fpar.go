/*
Copyright (C) 2026 the MODVIR authors.
This file is part of MODVIR.

MODVIR is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MODVIR is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MODVIR.  If not, see <http://www.gnu.org/licenses/>.
*/

package modvir

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// NTYPE is the number of land cover classes in the classification
// used by the Los formulation.
const NTYPE = 18

// FPARMethod is an interface for NDVI-to-fPAR conversion
// formulations. Implementations are pure functions over a full grid:
// they never modify their inputs, and cells with NaN NDVI always come
// out as fPAR = 0.
type FPARMethod interface {
	// Name returns the configuration name of the formulation.
	Name() string

	// FPAR converts a gridded NDVI field to a gridded fPAR field.
	// lctype holds per-cell land cover class ids; formulations that
	// do not use land cover ignore it, and it may then be nil.
	FPAR(ndvi, lctype *sparse.DenseArray) (*sparse.DenseArray, error)
}

// FPARMethodByName returns the conversion formulation with the given
// configuration name. Valid options are "los", "linear", and "ramp".
func FPARMethodByName(name string) (FPARMethod, error) {
	switch name {
	case "los":
		return Los{Params: DefaultLosParams()}, nil
	case "linear":
		return Linear{Params: DefaultLinearParams()}, nil
	case "ramp":
		return Ramp{Params: DefaultRampParams()}, nil
	default:
		return nil, fmt.Errorf("modvir: the fPAR method you specified, '%s', is invalid. Valid options are los, linear, and ramp", name)
	}
}

// LosParams holds the parameters of the Los formulation: per-class
// 2nd- and 98th-percentile NDVI and the global fPAR bounds.
type LosParams struct {
	NDVI02P, NDVI98P []float64
	FPMin, FPMax     float64
}

// DefaultLosParams returns the percentile tables and fPAR bounds from
// Los et al. (2000):
// https://doi.org/10.1175/1525-7541(2000)001<0183:AGYBLS>2.0.CO;2.
// The percentiles must match the land cover type definitions.
func DefaultLosParams() LosParams {
	return LosParams{
		NDVI02P: []float64{0.0330, 0.0330, 0.0330, 0.0330, 0.0330, 0.0330,
			0.0330, 0.0330, 0.0330, 0.0330, 0.0330, 0.0330, 0.0330, 0.0330,
			0.0330, 0.0330, 0.0330, 0.0330},
		NDVI98P: []float64{0.7200, 0.8400, 0.8800, 0.8000, 0.8800, 0.8600,
			0.7400, 0.7200, 0.8000, 0.8000, 0.7200, 0.7800, 0.7800, 0.7800,
			0.8200, 0.7200, 0.7200, 0.7200},
		FPMin: 0.01,
		FPMax: 0.95,
	}
}

// Los converts NDVI to fPAR using the Los et al. (2000) formulation,
// averaging a simple-ratio-based estimate with an NDVI-based estimate,
// both parameterized by per-cell land cover class.
//
// This formulation has not been verified against its reference and is
// not used in the default pipeline.
type Los struct {
	Params LosParams
}

// Name fulfills the FPARMethod interface.
func (Los) Name() string { return "los" }

// simpleRatio is the simple-ratio transform of an NDVI value.
func simpleRatio(x float64) float64 {
	return (1 + x) / (1 - x)
}

// FPAR fulfills the FPARMethod interface. Cells with NaN NDVI or a
// class id outside [0, NTYPE) yield fPAR = 0; an out-of-range class is
// a data-quality issue, not an abort.
func (l Los) FPAR(ndvi, lctype *sparse.DenseArray) (*sparse.DenseArray, error) {
	if lctype == nil {
		return nil, fmt.Errorf("modvir: fPAR method los requires a land cover type field")
	}
	if len(lctype.Shape) != len(ndvi.Shape) || lctype.Shape[0] != ndvi.Shape[0] || lctype.Shape[1] != ndvi.Shape[1] {
		return nil, &ShapeMismatchError{Name: "land cover", Want: ndvi.Shape, Got: lctype.Shape}
	}
	fpar := sparse.ZerosDense(ndvi.Shape...)
	for i, v := range ndvi.Elements {
		if math.IsNaN(v) {
			continue
		}
		lc := lctype.Elements[i]
		if math.IsNaN(lc) || lc < -0.5 {
			continue
		}
		k := f2i(lc)
		if k >= len(l.Params.NDVI02P) {
			continue
		}
		n0 := l.Params.NDVI02P[k]
		n1 := l.Params.NDVI98P[k]
		s0 := simpleRatio(n0)
		s1 := simpleRatio(n1)
		s := simpleRatio(math.Min(v, n1))

		fpsr := (s-s0)*(l.Params.FPMax-l.Params.FPMin)/(s1-s0) + l.Params.FPMin
		fpnd := (v-n0)*(l.Params.FPMax-l.Params.FPMin)/(n1-n0) + l.Params.FPMin

		fpsr = clamp(fpsr, l.Params.FPMin, l.Params.FPMax)
		fpnd = clamp(fpnd, l.Params.FPMin, l.Params.FPMax)

		fpar.Elements[i] = 0.5 * (fpsr + fpnd)
	}
	return fpar, nil
}

// LinearParams holds the parameters of the global linear formulation.
type LinearParams struct {
	N0, N1       float64
	FPMin, FPMax float64
}

// DefaultLinearParams returns the standard global linear parameters.
func DefaultLinearParams() LinearParams {
	return LinearParams{N0: 0.10, N1: 0.80, FPMin: 0.01, FPMax: 0.95}
}

// Linear converts NDVI to fPAR using a single global linear transform
// with no land cover input.
type Linear struct {
	Params LinearParams
}

// Name fulfills the FPARMethod interface.
func (Linear) Name() string { return "linear" }

// FPAR fulfills the FPARMethod interface.
func (l Linear) FPAR(ndvi, _ *sparse.DenseArray) (*sparse.DenseArray, error) {
	fpar := sparse.ZerosDense(ndvi.Shape...)
	for i, v := range ndvi.Elements {
		if math.IsNaN(v) {
			continue
		}
		fp := (v-l.Params.N0)*(l.Params.FPMax-l.Params.FPMin)/(l.Params.N1-l.Params.N0) + l.Params.FPMin
		fpar.Elements[i] = clamp(fp, l.Params.FPMin, l.Params.FPMax)
	}
	return fpar, nil
}

// RampParams holds the thresholds of the saturating ramp formulation.
type RampParams struct {
	N0, N1 float64
}

// DefaultRampParams returns the thresholds from Joiner et al. (2018).
func DefaultRampParams() RampParams {
	return RampParams{N0: 0.15, N1: 0.75}
}

// Ramp converts NDVI to fPAR using the Joiner et al. (2018)
// formulation: zero up to N0, a linear ramp between N0 and N1, and
// NDVI passed through unchanged above N1. No clamping is applied.
// This is the default formulation.
type Ramp struct {
	Params RampParams
}

// Name fulfills the FPARMethod interface.
func (Ramp) Name() string { return "ramp" }

// FPAR fulfills the FPARMethod interface.
func (r Ramp) FPAR(ndvi, _ *sparse.DenseArray) (*sparse.DenseArray, error) {
	fpar := sparse.ZerosDense(ndvi.Shape...)
	for i, v := range ndvi.Elements {
		switch {
		case math.IsNaN(v) || v <= r.Params.N0:
			// fpar stays 0.
		case v <= r.Params.N1:
			fpar.Elements[i] = (v - r.Params.N0) / (r.Params.N1 - r.Params.N0) * r.Params.N1
		default:
			fpar.Elements[i] = v
		}
	}
	return fpar, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// f2i converts a float to an int (rounding).
func f2i(f float64) int {
	return int(f + 0.5)
}
