/*
Copyright © 2019 the goesgrid authors.
This file is part of goesgrid.

goesgrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

goesgrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with goesgrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package goesgrid

import (
	"fmt"
	"math"
)

// NearestPixel returns the column (x) and row (y) index of the cell in g
// that is closest to the point (lon, lat), using the Euclidean distance in
// degrees. Cells without a valid location are ignored. When more than one
// cell is equally close, the first one in row-major order is returned.
func NearestPixel(g *CoordinateGrid, lon, lat float64) (x, y int, err error) {
	if err = g.check(); err != nil {
		return
	}
	_, nx := g.Shape()
	best := math.Inf(1)
	kBest := -1
	for k, glon := range g.Lon.Elements {
		glat := g.Lat.Elements[k]
		if !IsValid(glon) || !IsValid(glat) {
			continue
		}
		d := math.Hypot(glon-lon, glat-lat)
		if d < best {
			best, kBest = d, k
		}
	}
	if kBest < 0 {
		ny, _ := g.Shape()
		return 0, 0, fmt.Errorf("goesgrid: no valid pixels in the %dx%d grid: %w", ny, nx, ErrEmptySelection)
	}
	return kBest % nx, kBest / nx, nil
}

// FindPixelsOfRegion returns the smallest window of g that contains
// every cell located within region r. ErrEmptySelection is returned if no
// cell is within r.
func FindPixelsOfRegion(g *CoordinateGrid, r RegionBounds) (PixelIndexBounds, error) {
	if err := g.check(); err != nil {
		return PixelIndexBounds{}, err
	}
	if err := r.Validate(); err != nil {
		return PixelIndexBounds{}, err
	}
	ny, nx := g.Shape()
	b := PixelIndexBounds{XMin: nx, XMax: -1, YMin: ny, YMax: -1}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			k := j*nx + i
			lon, lat := g.Lon.Elements[k], g.Lat.Elements[k]
			if !IsValid(lon) || !IsValid(lat) || !r.Contains(lon, lat) {
				continue
			}
			if i < b.XMin {
				b.XMin = i
			}
			if i > b.XMax {
				b.XMax = i
			}
			if j < b.YMin {
				b.YMin = j
			}
			b.YMax = j
		}
	}
	if b.XMax < 0 {
		return PixelIndexBounds{}, fmt.Errorf("goesgrid: no pixels of the %dx%d grid are within region %v: %w",
			ny, nx, r, ErrEmptySelection)
	}
	return b, nil
}
