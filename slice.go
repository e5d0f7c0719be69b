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

	"github.com/ctessum/sparse"
)

// DefaultDecimation is the default stride used for the coarse search
// pass when slicing an image to a region.
const DefaultDecimation = 4

// SliceOptions hold settings for slicing an image.
type SliceOptions struct {
	// Decimation is the stride of the coarse search grid. Values less
	// than 1 are replaced with DefaultDecimation.
	Decimation int

	// Corners specifies that the returned grid should hold the pixel
	// corners rather than the pixel centers.
	Corners bool
}

// Slice is a window of an image.
type Slice struct {
	// Field is the data within the window. It is nil if no data
	// were given to be sliced. Cells with missing data or without a
	// valid location are set to NaN.
	Field *Field

	// Grid holds the pixel-center coordinates of the window, or the
	// pixel-corner coordinates if corners were requested.
	Grid *CoordinateGrid

	// Limits is the location of the window within the grid it was
	// taken from.
	Limits PixelIndexBounds
}

// FindRegion returns the pixel bounds, within the full scan with scan
// angles x and y, of the pixels located in region r, along with the
// pixel-center coordinates of those pixels.
//
// The search is done in two passes to avoid navigating the full image:
// first a coarse grid made from every decimation'th scan angle is
// navigated and searched, and then only the matching part of the full
// resolution grid, padded by decimation pixels on each side, is navigated
// and searched again to find the exact bounds.
func (n Navigator) FindRegion(x, y []float64, r RegionBounds, decimation int) (PixelIndexBounds, *CoordinateGrid, error) {
	if err := r.Validate(); err != nil {
		return PixelIndexBounds{}, nil, err
	}
	d := decimation
	if d < 1 {
		d = DefaultDecimation
	}
	coarse, err := n.Navigate(stride(x, d), stride(y, d))
	if err != nil {
		return PixelIndexBounds{}, nil, err
	}
	cb, err := FindPixelsOfRegion(coarse, r)
	if err != nil {
		return PixelIndexBounds{}, nil, err
	}
	pad := PixelIndexBounds{
		XMin: clamp(cb.XMin*d-d, len(x)-1),
		XMax: clamp((cb.XMax+1)*d-1+d, len(x)-1),
		YMin: clamp(cb.YMin*d-d, len(y)-1),
		YMax: clamp((cb.YMax+1)*d-1+d, len(y)-1),
	}
	fine, err := n.Navigate(x[pad.XMin:pad.XMax+1], y[pad.YMin:pad.YMax+1])
	if err != nil {
		return PixelIndexBounds{}, nil, err
	}
	fb, err := FindPixelsOfRegion(fine, r)
	if err != nil {
		return PixelIndexBounds{}, nil, err
	}
	limits := PixelIndexBounds{
		XMin: pad.XMin + fb.XMin,
		XMax: pad.XMin + fb.XMax,
		YMin: pad.YMin + fb.YMin,
		YMax: pad.YMin + fb.YMax,
	}
	return limits, fine.Window(fb), nil
}

// SliceImage returns the window of field f, with scan angles x and y,
// that covers region r. f may be nil, in which case only the
// coordinates are returned.
func (n Navigator) SliceImage(f *Field, x, y []float64, r RegionBounds, opts SliceOptions) (*Slice, error) {
	if err := checkImage(f, x, y); err != nil {
		return nil, err
	}
	limits, centers, err := n.FindRegion(x, y, r, opts.Decimation)
	if err != nil {
		return nil, err
	}
	if !opts.Corners {
		return &Slice{Field: maskField(f, limits, centers.Lon), Grid: centers, Limits: limits}, nil
	}
	return n.sliceCorners(f, x, y, limits)
}

// SlicePixels returns the window b of field f, with scan angles x and y.
// f may be nil, in which case only the coordinates are returned.
func (n Navigator) SlicePixels(f *Field, x, y []float64, b PixelIndexBounds, opts SliceOptions) (*Slice, error) {
	if err := checkImage(f, x, y); err != nil {
		return nil, err
	}
	if err := b.Validate(len(y), len(x)); err != nil {
		return nil, err
	}
	if opts.Corners {
		return n.sliceCorners(f, x, y, b)
	}
	g, err := n.Navigate(x[b.XMin:b.XMax+1], y[b.YMin:b.YMax+1])
	if err != nil {
		return nil, err
	}
	return &Slice{Field: maskField(f, b, g.Lon), Grid: g, Limits: b}, nil
}

// sliceCorners navigates the pixel corners of window b.
func (n Navigator) sliceCorners(f *Field, x, y []float64, b PixelIndexBounds) (*Slice, error) {
	xc, err := cornerAngles(x)
	if err != nil {
		return nil, err
	}
	yc, err := cornerAngles(y)
	if err != nil {
		return nil, err
	}
	g, err := n.Navigate(xc[b.XMin:b.XMax+2], yc[b.YMin:b.YMax+2])
	if err != nil {
		return nil, err
	}
	return &Slice{Field: maskField(f, b, CornerToCenterSize(g.Lon)), Grid: g, Limits: b}, nil
}

// SliceGrid returns the window of field f, located on the already
// navigated grid g, that covers region r. f may be nil. Slicing the
// result again with the same region returns the same window.
func SliceGrid(f *Field, g *CoordinateGrid, r RegionBounds) (*Slice, error) {
	if f != nil {
		if err := f.checkShape(g); err != nil {
			return nil, err
		}
	}
	b, err := FindPixelsOfRegion(g, r)
	if err != nil {
		return nil, err
	}
	w := g.Window(b)
	return &Slice{Field: maskField(f, b, w.Lon), Grid: w, Limits: b}, nil
}

// checkImage makes sure that f, if present, has the shape of the
// scan with angles x and y.
func checkImage(f *Field, x, y []float64) error {
	if len(x) == 0 || len(y) == 0 {
		return fmt.Errorf("goesgrid: image has %d x and %d y scan angles: %w", len(x), len(y), ErrInvalidShape)
	}
	if f == nil {
		return nil
	}
	if f.Data == nil || len(f.Data.Shape) != 2 || f.Data.Shape[0] != len(y) || f.Data.Shape[1] != len(x) {
		var s []int
		if f.Data != nil {
			s = f.Data.Shape
		}
		return fmt.Errorf("goesgrid: field %s has shape %v but scan angles have shape [%d %d]: %w",
			f.Name, s, len(y), len(x), ErrInvalidShape)
	}
	return nil
}

// maskField returns window b of f, with cells that are missing or
// where lon is not valid set to NaN. lon must have the shape of the
// window. A nil field returns nil.
func maskField(f *Field, b PixelIndexBounds, lon *sparse.DenseArray) *Field {
	if f == nil {
		return nil
	}
	o := f.Window(b)
	for k, v := range o.Data.Elements {
		if f.IsMissing(v) || !IsValid(lon.Elements[k]) {
			o.Data.Elements[k] = math.NaN()
		}
	}
	o.Missing = math.NaN()
	return o
}

// stride returns every d'th element of v.
func stride(v []float64, d int) []float64 {
	o := make([]float64, 0, (len(v)+d-1)/d)
	for i := 0; i < len(v); i += d {
		o = append(o, v[i])
	}
	return o
}

// clamp limits i to the range [0, hi].
func clamp(i, hi int) int {
	if i < 0 {
		return 0
	}
	if i > hi {
		return hi
	}
	return i
}
