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

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// ReadGridVar reads a constant per-cell ancillary field (for example a
// climatological blend mask or a land cover classification) from a
// netcdf file and checks that it matches the output grid shape.
func ReadGridVar(filename, varName string, grid *Grid) (*sparse.DenseArray, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("modvir: opening %s: %v", filename, err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("modvir: opening %s: %v", filename, err)
	}
	data, err := readGranuleVar(ff, varName)
	if err != nil {
		return nil, fmt.Errorf("modvir: %s: %v", filename, err)
	}
	if len(data.Shape) != 2 || data.Shape[0] != grid.Nlat || data.Shape[1] != grid.Nlon {
		return nil, &ShapeMismatchError{Name: varName, Want: []int{grid.Nlat, grid.Nlon}, Got: data.Shape}
	}
	return data, nil
}
