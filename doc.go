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

// Package modvir regrids daily MODIS/VIIRS surface reflectance granules
// from their native sinusoidal projection onto a regular latitude/longitude
// grid, derives the normalized difference vegetation index (NDVI), and
// converts NDVI to the fraction of absorbed photosynthetically active
// radiation (fPAR).
package modvir

// Version gives the version number of this version of MODVIR.
const Version = "0.1.0"
