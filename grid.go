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
	"sort"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// rEarth is the radius [m] of the sphere underlying the MODIS
// sinusoidal projection.
const rEarth = 6371007.181

// Grid is a regular global latitude/longitude output grid.
// Cell edges are used for binning input pixels and cell centers
// label the output coordinate axes.
type Grid struct {
	Nlat, Nlon int

	// LatEdges and LonEdges are the cell edge coordinates [degrees];
	// they have lengths Nlat+1 and Nlon+1 and increase monotonically.
	LatEdges, LonEdges []float64

	// LatCenters and LonCenters are the cell center coordinates
	// [degrees]; they have lengths Nlat and Nlon.
	LatCenters, LonCenters []float64
}

// NewGrid creates a global grid with the given number of rows (nlat)
// and columns (nlon), spanning [-90,90] degrees latitude and
// [-180,180] degrees longitude.
func NewGrid(nlat, nlon int) (*Grid, error) {
	if nlat < 1 || nlon < 1 {
		return nil, fmt.Errorf("modvir: invalid grid dimensions %d×%d", nlat, nlon)
	}
	g := &Grid{
		Nlat:     nlat,
		Nlon:     nlon,
		LatEdges: floats.Span(make([]float64, nlat+1), -90, 90),
		LonEdges: floats.Span(make([]float64, nlon+1), -180, 180),
	}
	g.LatCenters = edgeCenters(g.LatEdges)
	g.LonCenters = edgeCenters(g.LonEdges)
	return g, nil
}

func edgeCenters(edges []float64) []float64 {
	c := make([]float64, len(edges)-1)
	for i := range c {
		c[i] = (edges[i] + edges[i+1]) / 2
	}
	return c
}

// binIndex returns the index of the edge interval containing v.
// Values on a shared interior edge belong to the upper interval and
// the rightmost edge belongs to the last interval, matching standard
// histogram conventions.
func binIndex(edges []float64, v float64) (int, bool) {
	n := len(edges) - 1
	if math.IsNaN(v) || v < edges[0] || v > edges[n] {
		return 0, false
	}
	if v == edges[n] {
		return n - 1, true
	}
	i := sort.SearchFloat64s(edges, v)
	if i < n && edges[i] == v {
		return i, true
	}
	return i - 1, true
}

// SinusoidalMesh converts sinusoidal projection axis coordinates
// (y and x, in meters) to per-pixel latitude and longitude meshes
// [degrees] with shape [len(y), len(x)]. Pixels that unproject to
// coordinates outside the valid longitude range fall outside every
// grid cell and are dropped during binning.
func SinusoidalMesh(y, x []float64) (lat, lon *sparse.DenseArray) {
	lat = sparse.ZerosDense(len(y), len(x))
	lon = sparse.ZerosDense(len(y), len(x))
	for j, yv := range y {
		φ := yv / rEarth
		latDeg := φ * 180 / math.Pi
		cosφ := math.Cos(φ)
		for i, xv := range x {
			lat.Set(latDeg, j, i)
			lon.Set(xv/(rEarth*cosφ)*180/math.Pi, j, i)
		}
	}
	return lat, lon
}
