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
	"os"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// VegIndex holds the gridded vegetation index product: the NDVI field,
// the optional fPAR field added by a conversion formulation, and the
// provenance and convention metadata that accompany them to the output
// file. Fields are stored at float64 precision and serialized at
// float32 precision.
type VegIndex struct {
	Grid *Grid

	NDVI *sparse.DenseArray
	FPAR *sparse.DenseArray // nil until AddFPAR is called

	Conventions string
	Institution string
	Contact     string
	Title       string

	// InputFiles lists the base names of the granule files that
	// contributed to the NDVI field.
	InputFiles []string
}

// NewVegIndex creates a vegetation index product on the given grid
// with a blank (all-NaN) NDVI field and default metadata.
func NewVegIndex(grid *Grid) *VegIndex {
	ndvi := sparse.ZerosDense(grid.Nlat, grid.Nlon)
	for i := range ndvi.Elements {
		ndvi.Elements[i] = math.NaN()
	}
	return &VegIndex{
		Grid:        grid,
		NDVI:        ndvi,
		Conventions: "CF-1.9",
		Institution: "NASA Goddard Space Flight Center",
		Contact:     "Brad Weir <brad.weir@nasa.gov>",
		Title:       "MODIS/VIIRS daily vegetation (NDVI/fPAR) data",
	}
}

// SetNDVI stores an aggregated NDVI field and the names of the files
// that contributed to it.
func (v *VegIndex) SetNDVI(ndvi *sparse.DenseArray, inputFiles []string) error {
	if len(ndvi.Shape) != 2 || ndvi.Shape[0] != v.Grid.Nlat || ndvi.Shape[1] != v.Grid.Nlon {
		return &ShapeMismatchError{Name: "NDVI", Want: []int{v.Grid.Nlat, v.Grid.Nlon}, Got: ndvi.Shape}
	}
	v.NDVI = ndvi
	v.InputFiles = inputFiles
	return nil
}

// AddFPAR derives the fPAR field from the stored NDVI field using the
// given conversion formulation. lctype may be nil for formulations
// that do not use land cover.
func (v *VegIndex) AddFPAR(m FPARMethod, lctype *sparse.DenseArray) error {
	fpar, err := m.FPAR(v.NDVI, lctype)
	if err != nil {
		return err
	}
	v.FPAR = fpar
	return nil
}

// Write writes the product to netcdf file w. No-data cells are written
// as NaN directly; no _FillValue attribute is set. The history
// attribute is stamped with the (close enough) creation time.
func (v *VegIndex) Write(w *os.File) error {
	h := cdf.NewHeader([]string{"lat", "lon"}, []int{v.Grid.Nlat, v.Grid.Nlon})
	h.AddAttribute("", "Conventions", v.Conventions)
	h.AddAttribute("", "institution", v.Institution)
	h.AddAttribute("", "contact", v.Contact)
	h.AddAttribute("", "title", v.Title)
	h.AddAttribute("", "history", "Created on "+time.Now().Format(time.RFC3339))
	h.AddAttribute("", "input_files", strings.Join(v.InputFiles, ", "))

	h.AddVariable("lat", []string{"lat"}, []float32{0})
	h.AddAttribute("lat", "long_name", "latitude")
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", []string{"lon"}, []float32{0})
	h.AddAttribute("lon", "long_name", "longitude")
	h.AddAttribute("lon", "units", "degrees_east")

	h.AddVariable("NDVI", []string{"lat", "lon"}, []float32{0})
	h.AddAttribute("NDVI", "long_name", "Normalized difference vegetation index (NDVI)")
	h.AddAttribute("NDVI", "units", "1")
	if v.FPAR != nil {
		h.AddVariable("fPAR", []string{"lat", "lon"}, []float32{0})
		h.AddAttribute("fPAR", "long_name", "Fraction (absorbed) Photosynthetically Available Radiation (fPAR)")
		h.AddAttribute("fPAR", "units", "1")
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	if err := writeNCF(f, "lat", v.Grid.LatCenters); err != nil {
		return fmt.Errorf("modvir: writing variable lat to netcdf file: %v", err)
	}
	if err := writeNCF(f, "lon", v.Grid.LonCenters); err != nil {
		return fmt.Errorf("modvir: writing variable lon to netcdf file: %v", err)
	}
	if err := writeNCF(f, "NDVI", v.NDVI.Elements); err != nil {
		return fmt.Errorf("modvir: writing variable NDVI to netcdf file: %v", err)
	}
	if v.FPAR != nil {
		if err := writeNCF(f, "fPAR", v.FPAR.Elements); err != nil {
			return fmt.Errorf("modvir: writing variable fPAR to netcdf file: %v", err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// writeNCF writes data to variable Var in netcdf file f at float32
// precision.
func writeNCF(f *cdf.File, Var string, data []float64) error {
	end := f.Header.Lengths(Var)
	n := 1
	for _, v := range end {
		n *= v
	}
	if len(data) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data))
	}
	data32 := make([]float32, len(data))
	for i, e := range data {
		data32[i] = float32(e)
	}
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	_, err := w.Write(data32)
	return err
}

// LoadVegIndex loads a previously written vegetation index product
// from a netcdf file.
func LoadVegIndex(rw cdf.ReaderWriterAt) (*VegIndex, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("modvir.LoadVegIndex: %v", err)
	}
	dims := f.Header.Lengths("NDVI")
	if len(dims) != 2 {
		return nil, fmt.Errorf("modvir.LoadVegIndex: NDVI variable is not 2-d")
	}
	grid, err := NewGrid(dims[0], dims[1])
	if err != nil {
		return nil, fmt.Errorf("modvir.LoadVegIndex: %v", err)
	}
	v := NewVegIndex(grid)

	for _, a := range []struct {
		name string
		dst  *string
	}{
		{"Conventions", &v.Conventions},
		{"institution", &v.Institution},
		{"contact", &v.Contact},
		{"title", &v.Title},
	} {
		if s, ok := f.Header.GetAttribute("", a.name).(string); ok {
			*a.dst = s
		}
	}
	if s, ok := f.Header.GetAttribute("", "input_files").(string); ok && s != "" {
		v.InputFiles = strings.Split(s, ", ")
	}

	v.NDVI, err = readGranuleVar(f, "NDVI")
	if err != nil {
		return nil, fmt.Errorf("modvir.LoadVegIndex: %v", err)
	}
	for _, name := range f.Header.Variables() {
		if name == "fPAR" {
			v.FPAR, err = readGranuleVar(f, "fPAR")
			if err != nil {
				return nil, fmt.Errorf("modvir.LoadVegIndex: %v", err)
			}
		}
	}
	return v, nil
}
