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
	"path/filepath"
	"sort"

	"github.com/ctessum/sparse"
)

// QCParams holds the pixel screening parameters for regridding.
// The zero value is not useful; start from DefaultQCParams.
type QCParams struct {
	// Fill is the reflectance fill sentinel magnitude.
	// QC = QCFill and reflectance = Fill are equivalent, but the
	// reflectance sometimes shows up as -Fill.
	Fill float64

	// QCFill marks a pixel whose quality band says it is unusable.
	// QC = 0 is too strict over cloudy regions, e.g., the Amazon,
	// so any value other than QCFill is accepted.
	QCFill float64

	// NDVIMin is the NDVI floor below which pixels are excluded.
	// A simple way to exclude most water, etc.
	NDVIMin float64
}

// DefaultQCParams returns the standard screening parameters for
// MODIS/VIIRS nadir reflectance products.
func DefaultQCParams() QCParams {
	return QCParams{Fill: 32767, QCFill: 255, NDVIMin: -0.3}
}

// usable reports whether the pixel with the given reflectances and
// quality flags should be binned. The NDVI floor is applied without
// dividing so that zero-sum pixels cannot trap here.
func (qc QCParams) usable(red, nir, redqc, nirqc float64) bool {
	return math.Abs(red) != qc.Fill && redqc != qc.QCFill &&
		math.Abs(nir) != qc.Fill && nirqc != qc.QCFill &&
		qc.NDVIMin*(nir+red) <= nir-red
}

// NoInputDataError indicates that a compositing period had no granule
// files to aggregate, which is a hard failure: no output can be
// produced for that period.
type NoInputDataError struct {
	Dir string
}

func (e *NoInputDataError) Error() string {
	return fmt.Sprintf("modvir: no granule files to open in %s", e.Dir)
}

// ShapeMismatchError indicates that a caller-supplied field does not
// match the output grid shape. No reshaping is attempted.
type ShapeMismatchError struct {
	Name      string
	Want, Got []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("modvir: %s shape %v does not match grid shape %v", e.Name, e.Got, e.Want)
}

// Accumulator holds the running per-cell aggregate over a batch of
// granules: the pixel count and the summed red and near-infrared
// reflectances. Accumulation is associative and commutative, so
// partial accumulators built from disjoint subsets of a granule list
// can be merged element-wise in any order.
type Accumulator struct {
	grid *Grid

	Num, Red, NIR *sparse.DenseArray
}

// NewAccumulator creates an empty accumulator on the given grid.
func NewAccumulator(grid *Grid) *Accumulator {
	return &Accumulator{
		grid: grid,
		Num:  sparse.ZerosDense(grid.Nlat, grid.Nlon),
		Red:  sparse.ZerosDense(grid.Nlat, grid.Nlon),
		NIR:  sparse.ZerosDense(grid.Nlat, grid.Nlon),
	}
}

// Add bins one granule into the accumulator, skipping pixels that
// fail quality control or fall outside the grid.
func (a *Accumulator) Add(g *Granule, qc QCParams) error {
	if err := g.checkShapes(); err != nil {
		return fmt.Errorf("modvir: granule %s: %v", g.Name, err)
	}
	for i, red := range g.Red.Elements {
		nir := g.NIR.Elements[i]
		if !qc.usable(red, nir, g.RedQC.Elements[i], g.NIRQC.Elements[i]) {
			continue
		}
		jj, ok := binIndex(a.grid.LatEdges, g.Lat.Elements[i])
		if !ok {
			continue
		}
		ii, ok := binIndex(a.grid.LonEdges, g.Lon.Elements[i])
		if !ok {
			continue
		}
		a.Num.AddVal(1, jj, ii)
		a.Red.AddVal(red, jj, ii)
		a.NIR.AddVal(nir, jj, ii)
	}
	return nil
}

// Merge adds the contents of b into a element-wise.
func (a *Accumulator) Merge(b *Accumulator) error {
	if b.grid.Nlat != a.grid.Nlat || b.grid.Nlon != a.grid.Nlon {
		return &ShapeMismatchError{Name: "accumulator", Want: a.Num.Shape, Got: b.Num.Shape}
	}
	a.Num.AddDense(b.Num)
	a.Red.AddDense(b.Red)
	a.NIR.AddDense(b.NIR)
	return nil
}

// NDVI consumes the accumulator and returns the per-cell normalized
// difference vegetation index. Cells without any contributing pixels
// come out as NaN; that is the expected "no data" marker and is
// propagated silently. If mask is non-nil, the NDVI anomaly above the
// floor is rescaled by the per-cell mask fraction:
//
//	ndvi = (ndvi - NDVIMin)*mask + NDVIMin
//
// so mask = 1 leaves a cell unchanged and mask = 0 collapses it to the
// floor. The mask range is not validated.
func (a *Accumulator) NDVI(mask *sparse.DenseArray, qc QCParams) (*sparse.DenseArray, error) {
	if mask != nil {
		if len(mask.Shape) != 2 || mask.Shape[0] != a.grid.Nlat || mask.Shape[1] != a.grid.Nlon {
			return nil, &ShapeMismatchError{Name: "mask", Want: []int{a.grid.Nlat, a.grid.Nlon}, Got: mask.Shape}
		}
	}
	ndvi := sparse.ZerosDense(a.grid.Nlat, a.grid.Nlon)
	for i, red := range a.Red.Elements {
		nir := a.NIR.Elements[i]
		ndvi.Elements[i] = divide(nir-red, nir+red)
	}
	if mask != nil {
		for i, v := range ndvi.Elements {
			ndvi.Elements[i] = (v-qc.NDVIMin)*mask.Elements[i] + qc.NDVIMin
		}
	}
	return ndvi, nil
}

// divide returns a/b, yielding NaN instead of a trap or an infinity
// when b is zero.
func divide(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

// Aggregate regrids all granule files (*.hdf) in dir onto grid and
// returns the resulting NDVI field along with the sorted base names of
// the contributing files. If mask is non-nil it is blended into the
// result as described in Accumulator.NDVI. The granule files are
// partitioned into nproc contiguous chunks that are read and binned
// concurrently; the partial accumulators are merged in chunk order so
// that results do not depend on goroutine scheduling. If msgChan is
// not nil, status messages will be sent to it.
func Aggregate(grid *Grid, dir string, mask *sparse.DenseArray, qc QCParams, nproc int, msgChan chan string) (*sparse.DenseArray, []string, error) {
	flist, err := filepath.Glob(filepath.Join(dir, "*.hdf"))
	if err != nil {
		return nil, nil, fmt.Errorf("modvir: listing granules: %v", err)
	}
	if len(flist) == 0 {
		return nil, nil, &NoInputDataError{Dir: dir}
	}
	sort.Strings(flist)

	acc, err := accumulateFiles(grid, flist, qc, nproc, msgChan)
	if err != nil {
		return nil, nil, err
	}
	ndvi, err := acc.NDVI(mask, qc)
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, len(flist))
	for i, f := range flist {
		names[i] = filepath.Base(f)
	}
	return ndvi, names, nil
}

// accumulateFiles reads and bins the given granule files using nproc
// concurrent workers and merges the partial results.
func accumulateFiles(grid *Grid, flist []string, qc QCParams, nproc int, msgChan chan string) (*Accumulator, error) {
	if nproc < 1 {
		nproc = 1
	}
	if nproc > len(flist) {
		nproc = len(flist)
	}

	partials := make([]*Accumulator, nproc)
	errChan := make(chan error)
	for w := 0; w < nproc; w++ {
		lo := w * len(flist) / nproc
		hi := (w + 1) * len(flist) / nproc
		go func(w, lo, hi int) {
			a := NewAccumulator(grid)
			for _, file := range flist[lo:hi] {
				g, err := ReadGranule(file)
				if err != nil {
					errChan <- err
					return
				}
				if err := a.Add(g, qc); err != nil {
					errChan <- err
					return
				}
				if msgChan != nil {
					msgChan <- fmt.Sprintf("Binned granule %s", g.Name)
				}
			}
			partials[w] = a
			errChan <- nil
		}(w, lo, hi)
	}
	var firstErr error
	for w := 0; w < nproc; w++ {
		if err := <-errChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	acc := NewAccumulator(grid)
	for _, p := range partials {
		if err := acc.Merge(p); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
