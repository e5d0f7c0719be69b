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

// Package goesgrid navigates geostationary imager scans and regrids
// their pixels and point observations onto geographic grids.
package goesgrid

import (
	"fmt"
	"math"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// Version gives the version number.
const Version = "0.4.0"

// Sentinel marks coordinate cells that have no valid geographic location,
// for example pixels beyond the limb of the Earth.
const Sentinel = -999.99

// Coordinate values at or below validFloor are treated as sentinel values.
const validFloor = -400.0

// IsValid returns whether v is a valid coordinate value rather than
// Sentinel.
func IsValid(v float64) bool {
	return v > validFloor
}

// CoordinateGrid holds the longitude and latitude, in degrees, of each
// cell of a two-dimensional grid with shape [y, x]. A cell that is invalid
// in longitude is always invalid in latitude and vice versa.
type CoordinateGrid struct {
	Lon, Lat *sparse.DenseArray
}

// NewCoordinateGrid returns a zero-valued grid with ny rows and nx columns.
func NewCoordinateGrid(ny, nx int) *CoordinateGrid {
	return &CoordinateGrid{
		Lon: sparse.ZerosDense(ny, nx),
		Lat: sparse.ZerosDense(ny, nx),
	}
}

// Shape returns the number of rows and columns in g.
func (g *CoordinateGrid) Shape() (ny, nx int) {
	return g.Lon.Shape[0], g.Lon.Shape[1]
}

// Valid returns whether cell (j, i) holds a valid location.
func (g *CoordinateGrid) Valid(j, i int) bool {
	_, nx := g.Shape()
	k := j*nx + i
	return IsValid(g.Lon.Elements[k]) && IsValid(g.Lat.Elements[k])
}

// check makes sure the longitude and latitude arrays are two-dimensional
// and have the same shape.
func (g *CoordinateGrid) check() error {
	if g == nil || g.Lon == nil || g.Lat == nil {
		return fmt.Errorf("goesgrid: missing coordinate array: %w", ErrInvalidShape)
	}
	if len(g.Lon.Shape) != 2 || !sameShape(g.Lon.Shape, g.Lat.Shape) {
		return fmt.Errorf("goesgrid: longitude shape %v and latitude shape %v must be equal and 2-D: %w",
			g.Lon.Shape, g.Lat.Shape, ErrInvalidShape)
	}
	return nil
}

// pairSentinels sets both coordinates of any cell that is undefined or out
// of the physical range to Sentinel.
func (g *CoordinateGrid) pairSentinels() {
	for k, lon := range g.Lon.Elements {
		lat := g.Lat.Elements[k]
		if math.IsNaN(lon) || math.IsNaN(lat) || lon < -360 || lon > 360 || lat < -90 || lat > 90 {
			g.Lon.Elements[k] = Sentinel
			g.Lat.Elements[k] = Sentinel
		}
	}
}

// Window returns a copy of the cells of g that are within b.
func (g *CoordinateGrid) Window(b PixelIndexBounds) *CoordinateGrid {
	return &CoordinateGrid{
		Lon: window(g.Lon, b),
		Lat: window(g.Lat, b),
	}
}

// window copies the cells of a that are within b into a new array.
func window(a *sparse.DenseArray, b PixelIndexBounds) *sparse.DenseArray {
	nx := a.Shape[1]
	o := sparse.ZerosDense(b.Rows(), b.Cols())
	for j := b.YMin; j <= b.YMax; j++ {
		copy(o.Elements[(j-b.YMin)*b.Cols():(j-b.YMin+1)*b.Cols()],
			a.Elements[j*nx+b.XMin:j*nx+b.XMax+1])
	}
	return o
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FieldKind identifies the physical meaning of a Field.
type FieldKind int

// These are the kinds of fields that are understood.
const (
	Generic FieldKind = iota
	Radiance
	ReflectanceFactor
	Reflectance
	BrightnessTemperature
	CosineZenith
	Density
)

var kindAttributes = map[FieldKind]struct{ longName, standardName, units string }{
	Radiance:              {"ABI L1b Radiances", "toa_outgoing_radiance_per_unit_wavenumber", "mW m-2 sr-1 (cm-1)-1"},
	ReflectanceFactor:     {"ABI L2+ Cloud and Moisture Imagery reflectance factor", "toa_lambertian_equivalent_albedo_multiplied_by_cosine_solar_zenith_angle", "1"},
	Reflectance:           {"reflectance", "toa_lambertian_equivalent_albedo", "1"},
	BrightnessTemperature: {"ABI L2+ Cloud and Moisture Imagery brightness temperature", "toa_brightness_temperature", "K"},
	CosineZenith:          {"cosine of solar zenith angle", "cosine_of_solar_zenith_angle", "1"},
	Density:               {"Lightning density", "lightning_density", "count"},
}

func (k FieldKind) String() string {
	switch k {
	case Radiance:
		return "radiance"
	case ReflectanceFactor:
		return "reflectance factor"
	case Reflectance:
		return "reflectance"
	case BrightnessTemperature:
		return "brightness temperature"
	case CosineZenith:
		return "cosine of solar zenith angle"
	case Density:
		return "density"
	default:
		return "generic"
	}
}

// Field is a two-dimensional array of data values with shape [y, x].
type Field struct {
	Name         string
	LongName     string
	StandardName string
	Units        string
	Kind         FieldKind

	Data *sparse.DenseArray

	// Missing is the value used for missing data. It is NaN unless the
	// field was constructed otherwise.
	Missing float64

	// Time is the scan start time of the data, if known.
	Time time.Time

	// Limits is the location of the field within the full image it was
	// taken from.
	Limits PixelIndexBounds
}

// NewField returns a new zero-valued field of the given kind with
// ny rows and nx columns.
func NewField(name string, kind FieldKind, ny, nx int) *Field {
	f := &Field{
		Name:    name,
		Kind:    kind,
		Data:    sparse.ZerosDense(ny, nx),
		Missing: math.NaN(),
		Limits:  PixelIndexBounds{XMin: 0, XMax: nx - 1, YMin: 0, YMax: ny - 1},
	}
	f.setKind(kind)
	return f
}

// setKind sets the kind of f along with its descriptive attributes.
func (f *Field) setKind(k FieldKind) {
	f.Kind = k
	if a, ok := kindAttributes[k]; ok {
		f.LongName, f.StandardName, f.Units = a.longName, a.standardName, a.units
	}
}

// Shape returns the number of rows and columns in f.
func (f *Field) Shape() (ny, nx int) {
	return f.Data.Shape[0], f.Data.Shape[1]
}

// IsMissing returns whether v represents missing data in f.
func (f *Field) IsMissing(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return !math.IsNaN(f.Missing) && v == f.Missing
}

// like returns an empty field with the same metadata and shape as f.
func (f *Field) like() *Field {
	o := *f
	o.Data = sparse.ZerosDense(f.Data.Shape...)
	return &o
}

// Window returns a copy of the cells of f that are within b.
func (f *Field) Window(b PixelIndexBounds) *Field {
	o := *f
	o.Data = window(f.Data, b)
	o.Limits = PixelIndexBounds{
		XMin: f.Limits.XMin + b.XMin,
		XMax: f.Limits.XMin + b.XMax,
		YMin: f.Limits.YMin + b.YMin,
		YMax: f.Limits.YMin + b.YMax,
	}
	return &o
}

// checkShape returns an error if f and g do not have the same
// two-dimensional shape.
func (f *Field) checkShape(g *CoordinateGrid) error {
	if err := g.check(); err != nil {
		return err
	}
	if f == nil || f.Data == nil || !sameShape(f.Data.Shape, g.Lon.Shape) {
		var s []int
		if f != nil && f.Data != nil {
			s = f.Data.Shape
		}
		return fmt.Errorf("goesgrid: field %v and coordinate %v shapes differ: %w",
			s, g.Lon.Shape, ErrInvalidShape)
	}
	return nil
}

// DensityGrid holds counts of point observations in each cell of a
// gridmap, in row-major order with shape [Ny, Nx].
type DensityGrid struct {
	Ny, Nx int
	Counts []int32
}

// NewDensityGrid returns an all-zero density grid.
func NewDensityGrid(ny, nx int) *DensityGrid {
	return &DensityGrid{Ny: ny, Nx: nx, Counts: make([]int32, ny*nx)}
}

// At returns the count in cell (j, i).
func (d *DensityGrid) At(j, i int) int32 {
	return d.Counts[j*d.Nx+i]
}

// Total returns the sum of the counts in all cells.
func (d *DensityGrid) Total() int64 {
	var t int64
	for _, c := range d.Counts {
		t += int64(c)
	}
	return t
}

// Field returns the counts in d as a Field.
func (d *DensityGrid) Field() *Field {
	f := NewField("density", Density, d.Ny, d.Nx)
	for i, c := range d.Counts {
		f.Data.Elements[i] = float64(c)
	}
	return f
}

// RegionBounds is a rectangular geographic region in degrees.
// Regions that cross the antimeridian are not supported.
type RegionBounds struct {
	West, East, South, North float64
}

// NewRegionBounds returns a region from a slice of
// [west, east, south, north] values.
func NewRegionBounds(v []float64) (RegionBounds, error) {
	if len(v) != 4 {
		return RegionBounds{}, fmt.Errorf("goesgrid: region needs 4 values [W, E, S, N] but has %d: %w",
			len(v), ErrInvalidShape)
	}
	r := RegionBounds{West: v[0], East: v[1], South: v[2], North: v[3]}
	return r, r.Validate()
}

// Validate returns an error if r is malformed.
func (r RegionBounds) Validate() error {
	if !(r.West < r.East) || !(r.South < r.North) {
		return fmt.Errorf("goesgrid: region %v must have west < east and south < north: %w", r, ErrInvalidShape)
	}
	return nil
}

// Contains returns whether the point (lon, lat) is inside r, including
// its edges.
func (r RegionBounds) Contains(lon, lat float64) bool {
	return lon >= r.West && lon <= r.East && lat >= r.South && lat <= r.North
}

// Bounds returns r as a geometric bounding box.
func (r RegionBounds) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: r.West, Y: r.South},
		Max: geom.Point{X: r.East, Y: r.North},
	}
}

func (r RegionBounds) String() string {
	return fmt.Sprintf("[W=%g, E=%g, S=%g, N=%g]", r.West, r.East, r.South, r.North)
}

// PixelIndexBounds is an inclusive, zero-based window of pixel indices.
type PixelIndexBounds struct {
	XMin, XMax, YMin, YMax int
}

// NewPixelIndexBounds returns pixel bounds from a slice of
// [xmin, xmax, ymin, ymax] values.
func NewPixelIndexBounds(v []int) (PixelIndexBounds, error) {
	if len(v) != 4 {
		return PixelIndexBounds{}, fmt.Errorf("goesgrid: pixel bounds need 4 values [xmin, xmax, ymin, ymax] but have %d: %w",
			len(v), ErrInvalidShape)
	}
	return PixelIndexBounds{XMin: v[0], XMax: v[1], YMin: v[2], YMax: v[3]}, nil
}

// Validate returns an error if b is not ordered or does not fit in a
// grid with ny rows and nx columns.
func (b PixelIndexBounds) Validate(ny, nx int) error {
	if b.XMin < 0 || b.YMin < 0 || b.XMin > b.XMax || b.YMin > b.YMax || b.XMax >= nx || b.YMax >= ny {
		return fmt.Errorf("goesgrid: pixel bounds %+v do not fit in a %dx%d grid: %w", b, ny, nx, ErrInvalidShape)
	}
	return nil
}

// Rows returns the number of rows in b.
func (b PixelIndexBounds) Rows() int { return b.YMax - b.YMin + 1 }

// Cols returns the number of columns in b.
func (b PixelIndexBounds) Cols() int { return b.XMax - b.XMin + 1 }

// PointCloud holds the locations of discrete observations such as
// lightning flashes. Time is optional.
type PointCloud struct {
	Lon, Lat []float64
	Time     []time.Time
}

// Len returns the number of points in p.
func (p *PointCloud) Len() int {
	return len(p.Lon)
}

// Validate returns an error if the arrays in p have different lengths.
func (p *PointCloud) Validate() error {
	if len(p.Lon) != len(p.Lat) || (p.Time != nil && len(p.Time) != len(p.Lon)) {
		return fmt.Errorf("goesgrid: point cloud has %d longitudes, %d latitudes and %d times: %w",
			len(p.Lon), len(p.Lat), len(p.Time), ErrInvalidShape)
	}
	return nil
}

// Append adds the points in p2 to p.
func (p *PointCloud) Append(p2 *PointCloud) {
	p.Lon = append(p.Lon, p2.Lon...)
	p.Lat = append(p.Lat, p2.Lat...)
	if p2.Time != nil || p.Time != nil {
		for len(p.Time) < len(p.Lon)-len(p2.Lon) {
			p.Time = append(p.Time, time.Time{})
		}
		if p2.Time != nil {
			p.Time = append(p.Time, p2.Time...)
		} else {
			p.Time = append(p.Time, make([]time.Time, len(p2.Lon))...)
		}
	}
}
