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
	"math"
	"testing"
)

func TestNewGrid(t *testing.T) {
	g, err := NewGrid(4, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.LatEdges) != 5 || len(g.LonEdges) != 9 {
		t.Fatalf("edge lengths %d, %d", len(g.LatEdges), len(g.LonEdges))
	}
	if len(g.LatCenters) != 4 || len(g.LonCenters) != 8 {
		t.Fatalf("center lengths %d, %d", len(g.LatCenters), len(g.LonCenters))
	}
	for _, edges := range [][]float64{g.LatEdges, g.LonEdges} {
		for i := 1; i < len(edges); i++ {
			if edges[i] <= edges[i-1] {
				t.Errorf("edges not strictly monotonic at %d: %g, %g", i, edges[i-1], edges[i])
			}
		}
	}
	for i, c := range g.LatCenters {
		if c <= g.LatEdges[i] || c >= g.LatEdges[i+1] {
			t.Errorf("latitude center %d (%g) not strictly inside [%g, %g]",
				i, c, g.LatEdges[i], g.LatEdges[i+1])
		}
	}
	for i, c := range g.LonCenters {
		if c <= g.LonEdges[i] || c >= g.LonEdges[i+1] {
			t.Errorf("longitude center %d (%g) not strictly inside [%g, %g]",
				i, c, g.LonEdges[i], g.LonEdges[i+1])
		}
	}

	if _, err := NewGrid(0, 10); err == nil {
		t.Error("expected error for empty grid")
	}
}

func TestBinIndex(t *testing.T) {
	edges := []float64{-90, -45, 0, 45, 90}
	tests := []struct {
		v    float64
		want int
		ok   bool
	}{
		{-90, 0, true},
		{-46, 0, true},
		{-45, 1, true}, // shared edge belongs to the upper interval
		{0, 2, true},
		{44.9, 2, true},
		{90, 3, true}, // rightmost edge belongs to the last interval
		{90.1, 0, false},
		{-90.1, 0, false},
		{math.NaN(), 0, false},
	}
	for _, test := range tests {
		got, ok := binIndex(edges, test.v)
		if ok != test.ok || (ok && got != test.want) {
			t.Errorf("binIndex(%g) = %d, %v; want %d, %v", test.v, got, ok, test.want, test.ok)
		}
	}
}

func TestSinusoidalMesh(t *testing.T) {
	const tolerance = 1.0e-9
	y := []float64{0, rEarth * math.Pi / 4}
	x := []float64{0, rEarth * math.Pi / 2}
	lat, lon := SinusoidalMesh(y, x)
	if lat.Shape[0] != 2 || lat.Shape[1] != 2 {
		t.Fatalf("mesh shape %v", lat.Shape)
	}
	if math.Abs(lat.Get(0, 0)) > tolerance || math.Abs(lon.Get(0, 0)) > tolerance {
		t.Errorf("origin maps to %g, %g", lat.Get(0, 0), lon.Get(0, 0))
	}
	if diff := math.Abs(lat.Get(1, 0) - 45); diff > tolerance {
		t.Errorf("lat(1,0) = %g; want 45", lat.Get(1, 0))
	}
	if diff := math.Abs(lon.Get(0, 1) - 90); diff > tolerance {
		t.Errorf("lon(0,1) = %g; want 90", lon.Get(0, 1))
	}
	// Meridians converge away from the equator.
	want := 90 / math.Cos(math.Pi/4)
	if diff := math.Abs(lon.Get(1, 1) - want); diff > tolerance {
		t.Errorf("lon(1,1) = %g; want %g", lon.Get(1, 1), want)
	}
}
