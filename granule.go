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
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Granule variable names. Red and NIR can have different QC.
const (
	redVar   = "Nadir_Reflectance_Band1"
	redQCVar = "BRDF_Albedo_Band_Mandatory_Quality_Band1"
	nirVar   = "Nadir_Reflectance_Band2"
	nirQCVar = "BRDF_Albedo_Band_Mandatory_Quality_Band2"

	yVar = "y"
	xVar = "x"
)

// Granule holds one swath file's reflectance and quality bands
// together with the per-pixel coordinate mesh computed from the
// file's native sinusoidal projection axes. All arrays share the
// same shape.
type Granule struct {
	Name string

	Red, NIR     *sparse.DenseArray
	RedQC, NIRQC *sparse.DenseArray

	Lat, Lon *sparse.DenseArray
}

// ReadGranule opens the granule file with the given name and reads the
// red and near-infrared reflectance bands, their mandatory quality
// bands, and the projection axes. Read errors are returned to the
// caller rather than being masked; the caller decides whether to skip
// the file or abort the compositing period.
func ReadGranule(filename string) (*Granule, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("modvir: opening granule: %v", err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("modvir: opening granule %s: %v", filename, err)
	}

	g := &Granule{Name: filepath.Base(filename)}
	for _, v := range []struct {
		name string
		dst  **sparse.DenseArray
	}{
		{redVar, &g.Red},
		{nirVar, &g.NIR},
		{redQCVar, &g.RedQC},
		{nirQCVar, &g.NIRQC},
	} {
		data, err := readGranuleVar(ff, v.name)
		if err != nil {
			return nil, fmt.Errorf("modvir: granule %s: %v", filename, err)
		}
		*v.dst = data
	}

	y, err := readAxis(ff, yVar)
	if err != nil {
		return nil, fmt.Errorf("modvir: granule %s: %v", filename, err)
	}
	x, err := readAxis(ff, xVar)
	if err != nil {
		return nil, fmt.Errorf("modvir: granule %s: %v", filename, err)
	}
	g.Lat, g.Lon = SinusoidalMesh(y, x)

	if err := g.checkShapes(); err != nil {
		return nil, fmt.Errorf("modvir: granule %s: %v", filename, err)
	}
	return g, nil
}

// checkShapes verifies that every band is aligned with the pixel mesh.
func (g *Granule) checkShapes() error {
	for _, a := range []*sparse.DenseArray{g.NIR, g.RedQC, g.NIRQC, g.Lat, g.Lon} {
		if len(a.Shape) != len(g.Red.Shape) {
			return fmt.Errorf("mismatched band shapes %v and %v", g.Red.Shape, a.Shape)
		}
		for i, n := range g.Red.Shape {
			if a.Shape[i] != n {
				return fmt.Errorf("mismatched band shapes %v and %v", g.Red.Shape, a.Shape)
			}
		}
	}
	return nil
}

// readGranuleVar reads variable name out of netcdf file ff as a 2-d
// array, dropping any leading length-1 dimensions (e.g. a band or
// time dimension).
func readGranuleVar(ff *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := ff.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("variable %v not in file", name)
	}
	for len(dims) > 2 && dims[0] == 1 {
		dims = dims[1:]
	}
	nread := 1
	for _, dim := range dims {
		nread *= dim
	}
	r := ff.Reader(name, nil, nil)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s: %v", name, err)
	}
	data := sparse.ZerosDense(dims...)
	if err := fillFloat64(data.Elements, buf); err != nil {
		return nil, fmt.Errorf("reading variable %s: %v", name, err)
	}
	return data, nil
}

// readAxis reads a 1-d coordinate variable.
func readAxis(ff *cdf.File, name string) ([]float64, error) {
	dims := ff.Header.Lengths(name)
	if len(dims) != 1 {
		return nil, fmt.Errorf("axis variable %v is not 1-d", name)
	}
	r := ff.Reader(name, nil, nil)
	buf := r.Zero(dims[0])
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading axis %s: %v", name, err)
	}
	out := make([]float64, dims[0])
	if err := fillFloat64(out, buf); err != nil {
		return nil, fmt.Errorf("reading axis %s: %v", name, err)
	}
	return out, nil
}

// fillFloat64 copies a typed buffer returned by a cdf Reader into dst.
func fillFloat64(dst []float64, buf interface{}) error {
	switch b := buf.(type) {
	case []float64:
		copy(dst, b)
	case []float32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []int32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []int8:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []byte:
		for i, v := range b {
			dst[i] = float64(v)
		}
	default:
		return fmt.Errorf("unsupported netcdf data type %T", buf)
	}
	return nil
}
