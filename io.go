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
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Scan holds an imager scan read from a netCDF file.
type Scan struct {
	// X and Y are the east-west and north-south scan angles in radians.
	X, Y []float64

	Projection ImagerProjection
	Platform   Platform

	// Field holds the requested variable. It is nil if no variable
	// was requested.
	Field *Field

	// Calibration holds the radiance conversion constants. It is nil
	// if the file does not contain them.
	Calibration *Calibration

	Start, End time.Time

	// ProcessingLevel is the data processing level, for example "L1b".
	ProcessingLevel string
}

// Navigator returns a navigator for s using the given solver.
func (s *Scan) Navigator(solver Solver) Navigator {
	return Navigator{Projection: s.Projection, Platform: s.Platform, Solver: solver}
}

// UpLevel converts the radiance field in s to a reflectance factor or
// brightness temperature, depending on the band.
func (s *Scan) UpLevel() (*Field, error) {
	if s.ProcessingLevel != "L1b" {
		return nil, fmt.Errorf("goesgrid: only L1b radiances can be up-levelled but processing level is %q", s.ProcessingLevel)
	}
	if s.Calibration == nil {
		return nil, fmt.Errorf("goesgrid: scan has no calibration constants")
	}
	return UpLevel(s.Field, *s.Calibration)
}

// ReadScan reads the scan angles and projection information from the
// netCDF file r, along with variable if it is not empty.
// Packed variables are unpacked and fill values are replaced with NaN.
// r must be a classic or 64-bit offset netCDF file; netCDF-4 files give
// ErrUnsupportedFormat.
func ReadScan(r cdf.ReaderWriterAt, variable string) (*Scan, error) {
	if err := checkFormat(r); err != nil {
		return nil, fmt.Errorf("goesgrid: opening scan file: %w", err)
	}
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("goesgrid: opening scan file: %v", err)
	}
	s := new(Scan)
	if s.X, err = readVar(f, "x", nil, nil); err != nil {
		return nil, err
	}
	if s.Y, err = readVar(f, "y", nil, nil); err != nil {
		return nil, err
	}

	const pv = "goes_imager_projection"
	if !hasVar(f, pv) {
		return nil, fmt.Errorf("goesgrid: scan file has no %s variable", pv)
	}
	s.Projection.SatLon, _ = attrFloat(f, pv, "longitude_of_projection_origin")
	s.Projection.SatHeight, _ = attrFloat(f, pv, "perspective_point_height")
	s.Projection.SemiMajor, _ = attrFloat(f, pv, "semi_major_axis")
	s.Projection.SemiMinor, _ = attrFloat(f, pv, "semi_minor_axis")
	s.Projection.Sweep = attrString(f, pv, "sweep_angle_axis")
	if s.Projection.SemiMajor == 0 || s.Projection.SemiMinor == 0 {
		p, err := EllipsoidProjection("GRS80", s.Projection.SatLon, s.Projection.SatHeight, s.Projection.Sweep)
		if err != nil {
			return nil, err
		}
		s.Projection = p
	}

	if id := attrString(f, "", "platform_ID"); id != "" {
		if s.Platform, err = PlatformByName(id); err != nil {
			return nil, err
		}
	}
	level := strings.Fields(attrString(f, "", "processing_level"))
	if len(level) > 0 {
		s.ProcessingLevel = level[len(level)-1]
	}
	s.Start = parseCoverageTime(attrString(f, "", "time_coverage_start"))
	s.End = parseCoverageTime(attrString(f, "", "time_coverage_end"))

	if hasVar(f, "band_id") {
		c := new(Calibration)
		band, err := readVar(f, "band_id", nil, nil)
		if err != nil {
			return nil, err
		}
		if len(band) > 0 {
			c.Band = int(band[0])
		}
		for name, dst := range map[string]*float64{
			"kappa0": &c.Kappa0, "planck_fk1": &c.Fk1, "planck_fk2": &c.Fk2,
			"planck_bc1": &c.Bc1, "planck_bc2": &c.Bc2,
		} {
			if !hasVar(f, name) {
				continue
			}
			v, err := readVar(f, name, nil, nil)
			if err != nil {
				return nil, err
			}
			if len(v) > 0 {
				*dst = v[0]
			}
		}
		s.Calibration = c
	}

	if variable == "" {
		return s, nil
	}
	if !hasVar(f, variable) {
		return nil, fmt.Errorf("goesgrid: variable %s not in scan file", variable)
	}
	dims := f.Header.Dimensions(variable)
	if len(dims) != 2 || dims[0] != "y" || dims[1] != "x" {
		return nil, fmt.Errorf("goesgrid: variable %s has dimensions %v rather than [y x]: %w",
			variable, dims, ErrInvalidShape)
	}
	data, err := readVar(f, variable, nil, nil)
	if err != nil {
		return nil, err
	}
	field := &Field{
		Name:         variable,
		LongName:     attrString(f, variable, "long_name"),
		StandardName: attrString(f, variable, "standard_name"),
		Units:        attrString(f, variable, "units"),
		Data:         sparse.ZerosDense(len(s.Y), len(s.X)),
		Missing:      math.NaN(),
		Time:         s.Start,
		Limits:       PixelIndexBounds{XMax: len(s.X) - 1, YMax: len(s.Y) - 1},
	}
	field.Kind = kindOf(variable, field.LongName)
	copy(field.Data.Elements, data)
	s.Field = field
	return s, nil
}

// ReadPoints reads point observations from the one-dimensional
// variables lonVar and latVar in netCDF file r. If timeVar is not empty,
// the time of each point is read from it; it must have units of the form
// "seconds since 2000-01-01 12:00:00". Points with a missing longitude or
// latitude are skipped.
func ReadPoints(r cdf.ReaderWriterAt, lonVar, latVar, timeVar string) (*PointCloud, error) {
	if err := checkFormat(r); err != nil {
		return nil, fmt.Errorf("goesgrid: opening point file: %w", err)
	}
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("goesgrid: opening point file: %v", err)
	}
	lon, err := readVar(f, lonVar, nil, nil)
	if err != nil {
		return nil, err
	}
	lat, err := readVar(f, latVar, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(lon) != len(lat) {
		return nil, fmt.Errorf("goesgrid: %s has %d values but %s has %d: %w", lonVar, len(lon), latVar, len(lat), ErrInvalidShape)
	}
	var times []time.Time
	if timeVar != "" {
		t, err := readVar(f, timeVar, nil, nil)
		if err != nil {
			return nil, err
		}
		if len(t) != len(lon) {
			return nil, fmt.Errorf("goesgrid: %s has %d values but %s has %d: %w", timeVar, len(t), lonVar, len(lon), ErrInvalidShape)
		}
		epoch, err := parseTimeUnits(attrString(f, timeVar, "units"))
		if err != nil {
			return nil, fmt.Errorf("goesgrid: variable %s: %v", timeVar, err)
		}
		times = make([]time.Time, len(t))
		for i, v := range t {
			times[i] = epoch.Add(time.Duration(v * float64(time.Second)))
		}
	}
	p := new(PointCloud)
	for i := range lon {
		if math.IsNaN(lon[i]) || math.IsNaN(lat[i]) {
			continue
		}
		p.Lon = append(p.Lon, lon[i])
		p.Lat = append(p.Lat, lat[i])
		if times != nil {
			p.Time = append(p.Time, times[i])
		}
	}
	return p, nil
}

// hdf5Magic starts every netCDF-4 file.
const hdf5Magic = "\x89HDF\r\n\x1a\n"

// checkFormat returns ErrUnsupportedFormat if r holds a netCDF-4 file,
// which cannot be read by the classic netCDF reader.
func checkFormat(r io.ReaderAt) error {
	magic := make([]byte, len(hdf5Magic))
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return err
	}
	if string(magic[:n]) == hdf5Magic {
		return fmt.Errorf("netCDF-4/HDF5 input must be converted to classic netCDF: %w", ErrUnsupportedFormat)
	}
	return nil
}

// WriteNetCDF writes the given two-dimensional fields to netCDF file w.
// Fields with the same shape share dimensions.
func WriteNetCDF(w *os.File, fields ...*Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("goesgrid: no fields to write")
	}
	var dimNames []string
	var dimLengths []int
	varDims := make([][]string, len(fields))
	shapes := make(map[[2]int][]string)
	for i, f := range fields {
		if f == nil || f.Data == nil || len(f.Data.Shape) != 2 {
			return fmt.Errorf("goesgrid: field %d is not two-dimensional: %w", i, ErrInvalidShape)
		}
		s := [2]int{f.Data.Shape[0], f.Data.Shape[1]}
		d, ok := shapes[s]
		if !ok {
			suffix := ""
			if len(shapes) > 0 {
				suffix = fmt.Sprint(len(shapes) + 1)
			}
			d = []string{"y" + suffix, "x" + suffix}
			shapes[s] = d
			dimNames = append(dimNames, d...)
			dimLengths = append(dimLengths, s[0], s[1])
		}
		varDims[i] = d
	}

	h := cdf.NewHeader(dimNames, dimLengths)
	h.AddAttribute("", "Conventions", "CF-1.7")
	h.AddAttribute("", "source", "goesgrid v"+Version)
	for i, f := range fields {
		h.AddVariable(f.Name, varDims[i], []float32{0})
		if f.LongName != "" {
			h.AddAttribute(f.Name, "long_name", f.LongName)
		}
		if f.StandardName != "" {
			h.AddAttribute(f.Name, "standard_name", f.StandardName)
		}
		if f.Units != "" {
			h.AddAttribute(f.Name, "units", f.Units)
		}
		if !f.Time.IsZero() {
			h.AddAttribute(f.Name, "time", f.Time.UTC().Format(time.RFC3339))
		}
		h.AddAttribute(f.Name, "pixels_limits", []int32{
			int32(f.Limits.XMin), int32(f.Limits.XMax), int32(f.Limits.YMin), int32(f.Limits.YMax)})
	}
	h.Define()
	ff, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("goesgrid: creating netCDF file: %v", err)
	}
	for _, f := range fields {
		if err := writeNCF(ff, f.Name, f.Data); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(w)
}

// Fields returns the longitude and latitude in g as fields named
// prefix+"lon" and prefix+"lat".
func (g *CoordinateGrid) Fields(prefix string) (lon, lat *Field) {
	ny, nx := g.Shape()
	lon = &Field{Name: prefix + "lon", LongName: "longitude", StandardName: "longitude", Units: "degrees_east",
		Data: g.Lon, Missing: Sentinel, Limits: PixelIndexBounds{XMax: nx - 1, YMax: ny - 1}}
	lat = &Field{Name: prefix + "lat", LongName: "latitude", StandardName: "latitude", Units: "degrees_north",
		Data: g.Lat, Missing: Sentinel, Limits: PixelIndexBounds{XMax: nx - 1, YMax: ny - 1}}
	return
}

// writeNCF writes data to variable v in f.
func writeNCF(f *cdf.File, v string, data *sparse.DenseArray) error {
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(v)
	start := make([]int, len(end))
	w := f.Writer(v, start, end)
	if _, err := w.Write(data32); err != nil {
		return fmt.Errorf("goesgrid: writing netCDF variable %s: %v", v, err)
	}
	return nil
}

func hasVar(f *cdf.File, v string) bool {
	for _, vv := range f.Header.Variables() {
		if vv == v {
			return true
		}
	}
	return false
}

// readVar reads variable v from f, between begin and end, which may
// be nil to read the whole variable. Packed values are unpacked using the
// scale_factor and add_offset attributes, and values equal to _FillValue
// are set to NaN.
func readVar(f *cdf.File, v string, begin, end []int) ([]float64, error) {
	if !hasVar(f, v) {
		return nil, fmt.Errorf("goesgrid: variable %s not in file", v)
	}
	r := f.Reader(v, begin, end)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("goesgrid: reading variable %s: %v", v, err)
	}
	unsigned := strings.EqualFold(attrString(f, v, "_Unsigned"), "true")
	raw, err := toFloat64(buf, unsigned)
	if err != nil {
		return nil, fmt.Errorf("goesgrid: variable %s: %v", v, err)
	}
	fill, hasFill := attrFloat(f, v, "_FillValue")
	if hasFill && unsigned {
		fill = unsign(fill, buf)
	}
	scale, ok := attrFloat(f, v, "scale_factor")
	if !ok {
		scale = 1
	}
	offset, _ := attrFloat(f, v, "add_offset")
	for i, x := range raw {
		if hasFill && x == fill {
			raw[i] = math.NaN()
			continue
		}
		raw[i] = x*scale + offset
	}
	return raw, nil
}

// toFloat64 converts a buffer read from a netCDF file to float64.
func toFloat64(buf interface{}, unsigned bool) ([]float64, error) {
	var o []float64
	switch b := buf.(type) {
	case []float64:
		o = append(o, b...)
	case []float32:
		o = make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
	case []int32:
		o = make([]float64, len(b))
		for i, v := range b {
			if unsigned {
				o[i] = float64(uint32(v))
			} else {
				o[i] = float64(v)
			}
		}
	case []int16:
		o = make([]float64, len(b))
		for i, v := range b {
			if unsigned {
				o[i] = float64(uint16(v))
			} else {
				o[i] = float64(v)
			}
		}
	case []int8:
		o = make([]float64, len(b))
		for i, v := range b {
			if unsigned {
				o[i] = float64(uint8(v))
			} else {
				o[i] = float64(v)
			}
		}
	case []uint8:
		o = make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported data type %T", buf)
	}
	return o, nil
}

// unsign reinterprets a signed fill value as unsigned, matching the
// type of buf.
func unsign(v float64, buf interface{}) float64 {
	switch buf.(type) {
	case []int16:
		return float64(uint16(int16(v)))
	case []int8:
		return float64(uint8(int8(v)))
	case []int32:
		return float64(uint32(int32(v)))
	}
	return v
}

// attrFloat returns the first value of numeric attribute a of
// variable v.
func attrFloat(f *cdf.File, v, a string) (float64, bool) {
	switch x := f.Header.GetAttribute(v, a).(type) {
	case []float64:
		if len(x) > 0 {
			return x[0], true
		}
	case []float32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int16:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int8:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []uint8:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	}
	return 0, false
}

// attrString returns text attribute a of variable v, or an empty string
// if it does not exist.
func attrString(f *cdf.File, v, a string) string {
	if s, ok := f.Header.GetAttribute(v, a).(string); ok {
		return strings.TrimRight(s, "\x00")
	}
	return ""
}

// kindOf guesses the kind of a variable from its name and long name.
func kindOf(name, longName string) FieldKind {
	l := strings.ToLower(longName)
	switch {
	case name == "Rad" || strings.Contains(l, "radiance"):
		return Radiance
	case strings.Contains(l, "reflectance factor"):
		return ReflectanceFactor
	case strings.Contains(l, "brightness temperature"):
		return BrightnessTemperature
	case strings.Contains(l, "reflectance"):
		return Reflectance
	default:
		return Generic
	}
}

// parseCoverageTime parses a time_coverage_start or time_coverage_end
// attribute, returning the zero time if it cannot be parsed.
func parseCoverageTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// parseTimeUnits returns the epoch of CF time units of the form
// "seconds since 2000-01-01 12:00:00".
func parseTimeUnits(units string) (time.Time, error) {
	const prefix = "seconds since "
	if !strings.HasPrefix(units, prefix) {
		return time.Time{}, fmt.Errorf("unsupported time units %q", units)
	}
	s := strings.TrimSpace(strings.TrimPrefix(units, prefix))
	for _, layout := range []string{"2006-01-02 15:04:05.999999999", "2006-01-02T15:04:05Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time units %q", units)
}
