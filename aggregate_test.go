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

	"github.com/ctessum/sparse"
)

// testGrid returns a 2×2 global grid with cell centers at
// (±45, ±90) degrees.
func testGrid(t *testing.T) *Grid {
	g, err := NewGrid(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// synthGranule builds a granule from flat pixel slices; all quality
// flags are zero (usable) unless overridden afterwards.
func synthGranule(name string, shape []int, lat, lon, red, nir []float64) *Granule {
	g := &Granule{
		Name:  name,
		Red:   sparse.ZerosDense(shape...),
		NIR:   sparse.ZerosDense(shape...),
		RedQC: sparse.ZerosDense(shape...),
		NIRQC: sparse.ZerosDense(shape...),
		Lat:   sparse.ZerosDense(shape...),
		Lon:   sparse.ZerosDense(shape...),
	}
	copy(g.Red.Elements, red)
	copy(g.NIR.Elements, nir)
	copy(g.Lat.Elements, lat)
	copy(g.Lon.Elements, lon)
	return g
}

// fourCellGranule maps four pixels one-to-one onto the cells of the
// 2×2 test grid.
func fourCellGranule(name string, red, nir []float64) *Granule {
	return synthGranule(name, []int{2, 2},
		[]float64{-45, -45, 45, 45},
		[]float64{-90, 90, -90, 90},
		red, nir)
}

func TestAggregateNoFiles(t *testing.T) {
	grid := testGrid(t)
	_, _, err := Aggregate(grid, t.TempDir(), nil, DefaultQCParams(), 1, nil)
	if err == nil {
		t.Fatal("expected NoInputDataError for empty directory")
	}
	if _, ok := err.(*NoInputDataError); !ok {
		t.Fatalf("expected NoInputDataError, got %T: %v", err, err)
	}
}

func TestRegridScenario(t *testing.T) {
	const tolerance = 1.0e-6
	grid := testGrid(t)
	qc := DefaultQCParams()

	g := fourCellGranule("synthetic.hdf",
		[]float64{100, 100, 200, 200},
		[]float64{300, 300, 400, 400})

	acc := NewAccumulator(grid)
	if err := acc.Add(g, qc); err != nil {
		t.Fatal(err)
	}
	for i, num := range acc.Num.Elements {
		if num != 1 {
			t.Errorf("cell %d count = %g; want 1", i, num)
		}
	}
	ndvi, err := acc.NDVI(nil, qc)
	if err != nil {
		t.Fatal(err)
	}
	wantNDVI := []float64{0.5, 0.5, 1. / 3., 1. / 3.}
	for i, want := range wantNDVI {
		if diff := math.Abs(ndvi.Elements[i] - want); diff > tolerance {
			t.Errorf("ndvi[%d] = %g; want %g", i, ndvi.Elements[i], want)
		}
	}

	fpar, err := Ramp{Params: DefaultRampParams()}.FPAR(ndvi, nil)
	if err != nil {
		t.Fatal(err)
	}
	p := DefaultRampParams()
	for i, v := range wantNDVI {
		want := (v - p.N0) / (p.N1 - p.N0) * p.N1
		if diff := math.Abs(fpar.Elements[i] - want); diff > tolerance {
			t.Errorf("fpar[%d] = %g; want %g", i, fpar.Elements[i], want)
		}
	}
}

func TestAccumulationCommutes(t *testing.T) {
	grid := testGrid(t)
	qc := DefaultQCParams()

	g1 := fourCellGranule("a.hdf",
		[]float64{100, 110, 120, 130},
		[]float64{300, 310, 320, 330})
	g2 := fourCellGranule("b.hdf",
		[]float64{200, 210, 220, 230},
		[]float64{400, 410, 420, 430})

	sequential := NewAccumulator(grid)
	if err := sequential.Add(g1, qc); err != nil {
		t.Fatal(err)
	}
	if err := sequential.Add(g2, qc); err != nil {
		t.Fatal(err)
	}

	partA := NewAccumulator(grid)
	if err := partA.Add(g1, qc); err != nil {
		t.Fatal(err)
	}
	partB := NewAccumulator(grid)
	if err := partB.Add(g2, qc); err != nil {
		t.Fatal(err)
	}
	if err := partA.Merge(partB); err != nil {
		t.Fatal(err)
	}

	for i := range sequential.Num.Elements {
		if partA.Num.Elements[i] != sequential.Num.Elements[i] ||
			partA.Red.Elements[i] != sequential.Red.Elements[i] ||
			partA.NIR.Elements[i] != sequential.NIR.Elements[i] {
			t.Errorf("cell %d: merged (%g, %g, %g) != sequential (%g, %g, %g)",
				i, partA.Num.Elements[i], partA.Red.Elements[i], partA.NIR.Elements[i],
				sequential.Num.Elements[i], sequential.Red.Elements[i], sequential.NIR.Elements[i])
		}
	}
}

func TestQCExclusion(t *testing.T) {
	grid := testGrid(t)
	qc := DefaultQCParams()

	tests := []struct {
		name   string
		mutate func(g *Granule)
		binned float64 // expected count in cell (0,0)
	}{
		{"clean", func(g *Granule) {}, 1},
		{"red fill", func(g *Granule) { g.Red.Elements[0] = 32767 }, 0},
		{"negative red fill", func(g *Granule) { g.Red.Elements[0] = -32767 }, 0},
		{"nir fill", func(g *Granule) { g.NIR.Elements[0] = 32767 }, 0},
		{"red qc unusable", func(g *Granule) { g.RedQC.Elements[0] = 255 }, 0},
		{"nir qc unusable", func(g *Granule) { g.NIRQC.Elements[0] = 255 }, 0},
		{"below ndvi floor", func(g *Granule) {
			// Implied NDVI = -0.5, below the -0.3 floor.
			g.Red.Elements[0] = 300
			g.NIR.Elements[0] = 100
		}, 0},
	}
	for _, test := range tests {
		g := synthGranule(test.name, []int{1, 1},
			[]float64{-45}, []float64{-90},
			[]float64{100}, []float64{300})
		test.mutate(g)
		acc := NewAccumulator(grid)
		if err := acc.Add(g, qc); err != nil {
			t.Fatal(err)
		}
		if got := acc.Num.Get(0, 0); got != test.binned {
			t.Errorf("%s: count = %g; want %g", test.name, got, test.binned)
		}
	}
}

func TestUndefinedPropagation(t *testing.T) {
	grid := testGrid(t)
	qc := DefaultQCParams()

	ndvi, err := NewAccumulator(grid).NDVI(nil, qc)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range ndvi.Elements {
		if !math.IsNaN(v) {
			t.Errorf("empty cell %d has ndvi %g; want NaN", i, v)
		}
	}

	lctype := sparse.ZerosDense(grid.Nlat, grid.Nlon)
	methods := []FPARMethod{
		Los{Params: DefaultLosParams()},
		Linear{Params: DefaultLinearParams()},
		Ramp{Params: DefaultRampParams()},
	}
	for _, m := range methods {
		fpar, err := m.FPAR(ndvi, lctype)
		if err != nil {
			t.Fatal(err)
		}
		for i, v := range fpar.Elements {
			if v != 0 {
				t.Errorf("%s: undefined cell %d has fpar %g; want 0", m.Name(), i, v)
			}
		}
	}
}

func TestMaskBlending(t *testing.T) {
	const tolerance = 1.0e-12
	grid := testGrid(t)
	qc := DefaultQCParams()

	acc := NewAccumulator(grid)
	g := fourCellGranule("mask.hdf",
		[]float64{100, 100, 200, 200},
		[]float64{300, 300, 400, 400})
	if err := acc.Add(g, qc); err != nil {
		t.Fatal(err)
	}
	unblended, err := acc.NDVI(nil, qc)
	if err != nil {
		t.Fatal(err)
	}

	ones := sparse.ZerosDense(grid.Nlat, grid.Nlon)
	for i := range ones.Elements {
		ones.Elements[i] = 1
	}
	blended, err := acc.NDVI(ones, qc)
	if err != nil {
		t.Fatal(err)
	}
	for i := range blended.Elements {
		if diff := math.Abs(blended.Elements[i] - unblended.Elements[i]); diff > tolerance {
			t.Errorf("mask=1 changed cell %d: %g vs %g", i, blended.Elements[i], unblended.Elements[i])
		}
	}

	zeros := sparse.ZerosDense(grid.Nlat, grid.Nlon)
	collapsed, err := acc.NDVI(zeros, qc)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range collapsed.Elements {
		if diff := math.Abs(v - qc.NDVIMin); diff > tolerance {
			t.Errorf("mask=0 cell %d = %g; want %g", i, v, qc.NDVIMin)
		}
	}

	badMask := sparse.ZerosDense(grid.Nlat, grid.Nlon+1)
	if _, err := acc.NDVI(badMask, qc); err == nil {
		t.Error("expected ShapeMismatchError for wrong mask shape")
	} else if _, ok := err.(*ShapeMismatchError); !ok {
		t.Errorf("expected ShapeMismatchError, got %T: %v", err, err)
	}
}

func TestDivide(t *testing.T) {
	if !math.IsNaN(divide(0, 0)) {
		t.Error("0/0 should be NaN")
	}
	if !math.IsNaN(divide(1, 0)) {
		t.Error("x/0 should be NaN, not infinite")
	}
	if divide(1, 2) != 0.5 {
		t.Error("1/2 should be 0.5")
	}
}
