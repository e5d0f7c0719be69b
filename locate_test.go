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
	"errors"
	"testing"
)

func TestNearestPixelExact(t *testing.T) {
	g := regularGrid(6, 7, -80, 10, 0.5)
	for j := 0; j < 6; j++ {
		for i := 0; i < 7; i++ {
			k := j*7 + i
			x, y, err := NearestPixel(g, g.Lon.Elements[k], g.Lat.Elements[k])
			if err != nil {
				t.Fatal(err)
			}
			if x != i || y != j {
				t.Errorf("have (%d, %d), want (%d, %d)", x, y, i, j)
			}
		}
	}
}

func TestNearestPixelTie(t *testing.T) {
	g := regularGrid(2, 2, 0, 1, 1)
	// The point is equally far from all four centers.
	x, y, err := NearestPixel(g, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if x != 0 || y != 0 {
		t.Errorf("have (%d, %d), want the first cell (0, 0)", x, y)
	}
}

func TestNearestPixelSkipsSentinels(t *testing.T) {
	g := testGrid(1, 3, []float64{Sentinel, -75, -74}, []float64{Sentinel, 0, 0})
	x, _, err := NearestPixel(g, -999, -999)
	if err != nil {
		t.Fatal(err)
	}
	if x != 1 {
		t.Errorf("have x=%d, want 1", x)
	}
}

func TestFindPixelsOfRegion(t *testing.T) {
	g := regularGrid(10, 10, -80, 10, 1)
	g.Lon.Elements[0], g.Lat.Elements[0] = Sentinel, Sentinel
	r := RegionBounds{West: -77.5, East: -74, South: 3, North: 6.5}
	b, err := FindPixelsOfRegion(g, r)
	if err != nil {
		t.Fatal(err)
	}
	want := PixelIndexBounds{XMin: 3, XMax: 6, YMin: 4, YMax: 7}
	if b != want {
		t.Errorf("have %+v, want %+v", b, want)
	}
}

func TestFindPixelsOfRegionOutside(t *testing.T) {
	g := regularGrid(10, 10, -80, 10, 1)
	_, err := FindPixelsOfRegion(g, RegionBounds{West: 10, East: 20, South: 30, North: 40})
	if !errors.Is(err, ErrEmptySelection) {
		t.Errorf("have error %v, want ErrEmptySelection", err)
	}
}

func TestNearestPixelEmpty(t *testing.T) {
	g := testGrid(1, 2, []float64{Sentinel, Sentinel}, []float64{Sentinel, Sentinel})
	if _, _, err := NearestPixel(g, 0, 0); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("have error %v, want ErrEmptySelection", err)
	}
}
