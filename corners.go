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

	"github.com/ctessum/sparse"
)

// Corners calculates the coordinates of the pixel corners of grid g,
// which holds pixel-center coordinates. The result has one more row and
// one more column than g. Each corner is the midpoint of the two adjacent
// valid centers; at the edge of the grid or of the valid region the
// corner is extrapolated from the spacing of the two nearest valid
// centers. Corners with no pair of valid centers to extrapolate from are
// set to Sentinel. In particular, a valid center whose neighbors along a
// row or column are both invalid has no spacing to extrapolate
// symmetrically from, so its corners along that line are Sentinel
// rather than an invented width.
func Corners(g *CoordinateGrid) (*CoordinateGrid, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	if ny, nx := g.Shape(); ny == 0 || nx == 0 {
		return nil, fmt.Errorf("goesgrid: corners of an empty %dx%d grid: %w", ny, nx, ErrInvalidShape)
	}
	o := &CoordinateGrid{
		Lon: midpointY(midpointX(g.Lon)),
		Lat: midpointX(midpointY(g.Lat)),
	}
	o.pairSentinels()
	return o, nil
}

// midpointX returns the midpoints between adjacent columns of a.
// The result has one more column than a.
func midpointX(a *sparse.DenseArray) *sparse.DenseArray {
	ny, nx := a.Shape[0], a.Shape[1]
	o := sparse.ZerosDense(ny, nx+1)
	for j := 0; j < ny; j++ {
		midpointLine(a.Elements[j*nx:(j+1)*nx], o.Elements[j*(nx+1):(j+1)*(nx+1)])
	}
	return o
}

// midpointY returns the midpoints between adjacent rows of a.
// The result has one more row than a.
func midpointY(a *sparse.DenseArray) *sparse.DenseArray {
	ny, nx := a.Shape[0], a.Shape[1]
	o := sparse.ZerosDense(ny+1, nx)
	in := make([]float64, ny)
	out := make([]float64, ny+1)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			in[j] = a.Elements[j*nx+i]
		}
		midpointLine(in, out)
		for j, v := range out {
			o.Elements[j*nx+i] = v
		}
	}
	return o
}

// midpointLine calculates the len(in)+1 edge values of the cells with
// center values in and stores them in out.
func midpointLine(in, out []float64) {
	at := func(k int) float64 {
		if k < 0 || k >= len(in) {
			return Sentinel
		}
		return in[k]
	}
	for k := range out {
		field, right, left, left2 := at(k), at(k+1), at(k-1), at(k-2)
		switch {
		case IsValid(field) && IsValid(left):
			out[k] = (left + field) / 2
		case IsValid(field) && IsValid(right):
			out[k] = field - (right-field)/2
		case !IsValid(field) && IsValid(left) && IsValid(left2):
			out[k] = left + (left-left2)/2
		default:
			out[k] = Sentinel
		}
	}
}

// CornerToCenterSize removes the middle row and the middle column of a,
// converting an array with the shape of a corner grid to the shape of the
// corresponding center grid.
func CornerToCenterSize(a *sparse.DenseArray) *sparse.DenseArray {
	ny, nx := a.Shape[0]-1, a.Shape[1]-1
	dropRow, dropCol := ny/2, nx/2
	o := sparse.ZerosDense(ny, nx)
	jj := 0
	for j := 0; j <= ny; j++ {
		if j == dropRow {
			continue
		}
		ii := 0
		for i := 0; i <= nx; i++ {
			if i == dropCol {
				continue
			}
			o.Elements[jj*nx+ii] = a.Elements[j*(nx+1)+i]
			ii++
		}
		jj++
	}
	return o
}
