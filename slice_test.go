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
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// testScan returns scan angles covering about 16 degrees around the
// sub-satellite point, along with a field whose values are the
// row-major pixel indices.
func testScan() (x, y []float64, f *Field) {
	for i := 0; i <= 100; i++ {
		x = append(x, -0.05+0.001*float64(i))
		y = append(y, 0.05-0.001*float64(i))
	}
	f = NewField("Rad", Radiance, len(y), len(x))
	for k := range f.Data.Elements {
		f.Data.Elements[k] = float64(k)
	}
	return
}

func TestFindRegion(t *testing.T) {
	x, y, _ := testScan()
	n := testNavigator(Analytic)
	full, err := n.Navigate(x, y)
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		r    RegionBounds
		want PixelIndexBounds
	}{
		{
			r:    RegionBounds{West: -80, East: -70, South: -5, North: 5},
			want: PixelIndexBounds{XMin: 35, XMax: 65, YMin: 35, YMax: 65},
		},
		{
			r:    RegionBounds{West: -76, East: -74, South: 1, North: 3},
			want: PixelIndexBounds{XMin: 47, XMax: 53, YMin: 41, YMax: 46},
		},
		{
			r:    RegionBounds{West: -90, East: -60, South: -20, North: 20},
			want: PixelIndexBounds{XMin: 5, XMax: 95, YMin: 0, YMax: 100},
		},
	} {
		t.Run(test.r.String(), func(t *testing.T) {
			b, g, err := n.FindRegion(x, y, test.r, DefaultDecimation)
			if err != nil {
				t.Fatal(err)
			}
			if b != test.want {
				t.Errorf("have %+v, want %+v", b, test.want)
			}
			// The two-pass search gives the same result as searching
			// the full image.
			bFull, err := FindPixelsOfRegion(full, test.r)
			if err != nil {
				t.Fatal(err)
			}
			if b != bFull {
				t.Errorf("two-pass bounds %+v differ from full search %+v", b, bFull)
			}
			want := full.Window(b)
			if diff := cmp.Diff(want.Lon.Elements, g.Lon.Elements, approx); diff != "" {
				t.Errorf("longitude (-want +have):\n%s", diff)
			}
		})
	}
}

func TestFindRegionSmall(t *testing.T) {
	x, y, _ := testScan()
	n := testNavigator(Analytic)
	r := RegionBounds{West: -75.3, East: -74.7, South: -0.2, North: 0.4}
	// The region is smaller than the coarse grid spacing.
	if _, _, err := n.FindRegion(x, y, r, 4); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("have error %v, want ErrEmptySelection", err)
	}
	b, _, err := n.FindRegion(x, y, r, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := PixelIndexBounds{XMin: 50, XMax: 50, YMin: 49, YMax: 50}
	if b != want {
		t.Errorf("have %+v, want %+v", b, want)
	}
}

func TestSliceImage(t *testing.T) {
	x, y, f := testScan()
	f.Data.Elements[40*101+40] = math.NaN()
	n := testNavigator(Analytic)
	r := RegionBounds{West: -80, East: -70, South: -5, North: 5}
	s, err := n.SliceImage(f, x, y, r, SliceOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Limits != s.Field.Limits {
		t.Errorf("field limits %+v differ from slice limits %+v", s.Field.Limits, s.Limits)
	}
	ny, nx := s.Field.Shape()
	gny, gnx := s.Grid.Shape()
	if ny != s.Limits.Rows() || nx != s.Limits.Cols() || gny != ny || gnx != nx {
		t.Fatalf("field is %dx%d and grid is %dx%d, want %dx%d", ny, nx, gny, gnx, s.Limits.Rows(), s.Limits.Cols())
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			jj, ii := j+s.Limits.YMin, i+s.Limits.XMin
			v := s.Field.Data.Elements[j*nx+i]
			if jj == 40 && ii == 40 {
				if !math.IsNaN(v) {
					t.Errorf("missing value should be NaN but is %g", v)
				}
				continue
			}
			if v != float64(jj*101+ii) {
				t.Errorf("cell (%d, %d): have %g, want %d", j, i, v, jj*101+ii)
			}
		}
	}
	// The original field is not modified.
	if f.Data.Elements[0] != 0 || len(f.Data.Elements) != 101*101 {
		t.Error("input field was modified")
	}

	// Finding the region again in the window covers the whole window.
	b, err := FindPixelsOfRegion(s.Grid, r)
	if err != nil {
		t.Fatal(err)
	}
	if want := (PixelIndexBounds{XMin: 0, XMax: nx - 1, YMin: 0, YMax: ny - 1}); b != want {
		t.Errorf("round trip: have %+v, want %+v", b, want)
	}
}

func TestSliceImageCorners(t *testing.T) {
	x, y, f := testScan()
	n := testNavigator(ProjInverse)
	r := RegionBounds{West: -76, East: -74, South: 1, North: 3}
	s, err := n.SliceImage(f, x, y, r, SliceOptions{Corners: true})
	if err != nil {
		t.Fatal(err)
	}
	ny, nx := s.Field.Shape()
	gny, gnx := s.Grid.Shape()
	if gny != ny+1 || gnx != nx+1 {
		t.Errorf("corner grid is %dx%d but field is %dx%d", gny, gnx, ny, nx)
	}
	corners, err := n.NavigateCorners(x, y)
	if err != nil {
		t.Fatal(err)
	}
	want := corners.Window(PixelIndexBounds{
		XMin: s.Limits.XMin, XMax: s.Limits.XMax + 1,
		YMin: s.Limits.YMin, YMax: s.Limits.YMax + 1,
	})
	if diff := cmp.Diff(want.Lat.Elements, s.Grid.Lat.Elements, approx); diff != "" {
		t.Errorf("latitude (-want +have):\n%s", diff)
	}
}

func TestSlicePixels(t *testing.T) {
	x, y, f := testScan()
	n := testNavigator(Analytic)
	b := PixelIndexBounds{XMin: 10, XMax: 19, YMin: 90, YMax: 100}
	s, err := n.SlicePixels(f, x, y, b, SliceOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ny, nx := s.Field.Shape(); ny != 11 || nx != 10 {
		t.Errorf("have %dx%d, want 11x10", ny, nx)
	}
	if s.Field.Data.Elements[0] != float64(90*101+10) {
		t.Errorf("first value: have %g", s.Field.Data.Elements[0])
	}
	b.XMax = 101
	if _, err := n.SlicePixels(f, x, y, b, SliceOptions{}); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("have error %v, want ErrInvalidShape", err)
	}
	if _, err := n.SlicePixels(f, x[1:], y, PixelIndexBounds{}, SliceOptions{}); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("have error %v, want ErrInvalidShape", err)
	}
}

func TestSliceGridIdempotent(t *testing.T) {
	x, y, f := testScan()
	g, err := testNavigator(Analytic).Navigate(x, y)
	if err != nil {
		t.Fatal(err)
	}
	r := RegionBounds{West: -79, East: -73, South: -2, North: 4}
	s1, err := SliceGrid(f, g, r)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := SliceGrid(s1.Field, s1.Grid, r)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s1.Field.Data.Shape, s2.Field.Data.Shape); diff != "" {
		t.Fatalf("shape (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(s1.Field.Data.Elements, s2.Field.Data.Elements, approx); diff != "" {
		t.Errorf("field (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(s1.Grid.Lon.Elements, s2.Grid.Lon.Elements, approx); diff != "" {
		t.Errorf("longitude (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(s1.Grid.Lat.Elements, s2.Grid.Lat.Elements, approx); diff != "" {
		t.Errorf("latitude (-first +second):\n%s", diff)
	}
	if s2.Field.Limits != s1.Field.Limits {
		t.Errorf("limits changed from %+v to %+v", s1.Field.Limits, s2.Field.Limits)
	}
}

func TestSliceGridNoField(t *testing.T) {
	g := regularGrid(5, 5, -80, 10, 1)
	s, err := SliceGrid(nil, g, RegionBounds{West: -79, East: -78, South: 7, North: 9})
	if err != nil {
		t.Fatal(err)
	}
	if s.Field != nil {
		t.Error("field should be nil")
	}
	if want := (PixelIndexBounds{XMin: 1, XMax: 2, YMin: 1, YMax: 3}); s.Limits != want {
		t.Errorf("have %+v, want %+v", s.Limits, want)
	}
}
