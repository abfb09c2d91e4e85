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

package modvirutil

import (
	"fmt"
	"os"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/modvir"
)

// Regrid aggregates the granule files in inputDir onto an nlat×nlon
// grid, derives NDVI, optionally blends in the climatological mask
// from maskFile, converts to fPAR using the named method ("none"
// skips the conversion), and writes the product to outputFile.
func Regrid(nlat, nlon int, inputDir, outputFile, maskFile, maskVar, lcFile, lcVar, method string, nproc int, institution, contact string) error {
	if inputDir == "" {
		return fmt.Errorf("modvir: configuration variable InputDir is not specified")
	}
	outputFile, err := checkOutputFile(outputFile)
	if err != nil {
		return err
	}

	grid, err := modvir.NewGrid(nlat, nlon)
	if err != nil {
		return err
	}

	var mask *sparse.DenseArray
	if maskFile != "" {
		mask, err = modvir.ReadGridVar(os.ExpandEnv(maskFile), maskVar, grid)
		if err != nil {
			return err
		}
	}

	msgChan := logChan()
	ndvi, inputFiles, err := modvir.Aggregate(grid, os.ExpandEnv(inputDir), mask, modvir.DefaultQCParams(), nproc, msgChan)
	if err != nil {
		return err
	}

	v := modvir.NewVegIndex(grid)
	v.Institution = institution
	v.Contact = contact
	if err := v.SetNDVI(ndvi, inputFiles); err != nil {
		return err
	}

	if err := addFPAR(v, grid, lcFile, lcVar, method); err != nil {
		return err
	}
	return writeVegIndex(v, outputFile)
}

// FPAR loads a previously written NDVI product from ndviFile, converts
// it to fPAR using the named method, and writes the result to
// outputFile.
func FPAR(ndviFile, outputFile, lcFile, lcVar, method string) error {
	outputFile, err := checkOutputFile(outputFile)
	if err != nil {
		return err
	}
	f, err := os.Open(os.ExpandEnv(ndviFile))
	if err != nil {
		return fmt.Errorf("modvir: opening NDVI file: %v", err)
	}
	v, err := modvir.LoadVegIndex(f)
	if err != nil {
		f.Close()
		return err
	}
	f.Close()

	if err := addFPAR(v, v.Grid, lcFile, lcVar, method); err != nil {
		return err
	}
	return writeVegIndex(v, outputFile)
}

func addFPAR(v *modvir.VegIndex, grid *modvir.Grid, lcFile, lcVar, method string) error {
	if method == "none" {
		return nil
	}
	m, err := modvir.FPARMethodByName(method)
	if err != nil {
		return err
	}
	var lctype *sparse.DenseArray
	if lcFile != "" {
		lctype, err = modvir.ReadGridVar(os.ExpandEnv(lcFile), lcVar, grid)
		if err != nil {
			return err
		}
	}
	logger.Infof("Converting NDVI to fPAR using method %s", m.Name())
	return v.AddFPAR(m, lctype)
}

func writeVegIndex(v *modvir.VegIndex, outputFile string) error {
	ff, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("modvir: creating output file: %v", err)
	}
	if err := v.Write(ff); err != nil {
		ff.Close()
		return fmt.Errorf("modvir: writing output file: %v", err)
	}
	if err := ff.Close(); err != nil {
		return fmt.Errorf("modvir: closing output file: %v", err)
	}
	logger.Infof("Wrote %s", outputFile)
	return nil
}
