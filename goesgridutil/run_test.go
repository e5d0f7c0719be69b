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

package goesgridutil

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/goesgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testScanName  = "OR_ABI-L1b-RadC-M6C02_G16_s20192001701123_e20192001703496_c20192001703530.nc"
	testPointName = "OR_GLM-L2-LCFA_G16_s20192000000000_e20192000000200_c20192000000227.nc"
)

func writeVar(t *testing.T, f *cdf.File, v string, data interface{}) {
	t.Helper()
	end := f.Header.Lengths(v)
	start := make([]int, len(end))
	_, err := f.Writer(v, start, end).Write(data)
	require.NoError(t, err, v)
}

// writeTestScan writes a 20x30 band 2 radiance scan centered on the
// sub-satellite point of GOES-16 to dir and returns its path.
func writeTestScan(t *testing.T, dir string) string {
	t.Helper()
	const ny, nx = 20, 30
	p := filepath.Join(dir, testScanName)
	w, err := os.Create(p)
	require.NoError(t, err)
	defer w.Close()

	h := cdf.NewHeader([]string{"y", "x", "band"}, []int{ny, nx, 1})
	h.AddAttribute("", "platform_ID", "G16")
	h.AddAttribute("", "processing_level", "National Aeronautics and Space Administration (NASA) L1b")
	h.AddAttribute("", "time_coverage_start", "2019-07-19T17:01:12.3Z")
	h.AddAttribute("", "time_coverage_end", "2019-07-19T17:03:49.6Z")

	h.AddVariable("x", []string{"x"}, []int16{0})
	h.AddAttribute("x", "scale_factor", []float32{0.001})
	h.AddAttribute("x", "add_offset", []float32{-0.0145})
	h.AddVariable("y", []string{"y"}, []int16{0})
	h.AddAttribute("y", "scale_factor", []float32{-0.001})
	h.AddAttribute("y", "add_offset", []float32{0.0095})

	h.AddVariable("goes_imager_projection", []string{}, []int32{0})
	h.AddAttribute("goes_imager_projection", "longitude_of_projection_origin", []float64{-75})
	h.AddAttribute("goes_imager_projection", "perspective_point_height", []float64{35786023})
	h.AddAttribute("goes_imager_projection", "semi_major_axis", []float64{6378137})
	h.AddAttribute("goes_imager_projection", "semi_minor_axis", []float64{6356752.31414})
	h.AddAttribute("goes_imager_projection", "sweep_angle_axis", "x")

	h.AddVariable("Rad", []string{"y", "x"}, []int16{0})
	h.AddAttribute("Rad", "long_name", "ABI L1b Radiances")
	h.AddAttribute("Rad", "units", "mW m-2 sr-1 (cm-1)-1")
	h.AddAttribute("Rad", "scale_factor", []float32{0.5})
	h.AddAttribute("Rad", "add_offset", []float32{1})
	h.AddAttribute("Rad", "_FillValue", []int16{-1})

	h.AddVariable("band_id", []string{"band"}, []uint8{0})
	h.AddVariable("kappa0", []string{"band"}, []float32{0})
	h.Define()

	f, err := cdf.Create(w, h)
	require.NoError(t, err)
	x := make([]int16, nx)
	for i := range x {
		x[i] = int16(i)
	}
	y := make([]int16, ny)
	for i := range y {
		y[i] = int16(i)
	}
	rad := make([]int16, ny*nx)
	for i := range rad {
		rad[i] = int16(i % 97)
	}
	writeVar(t, f, "x", x)
	writeVar(t, f, "y", y)
	writeVar(t, f, "Rad", rad)
	writeVar(t, f, "band_id", []uint8{2})
	writeVar(t, f, "kappa0", []float32{0.0019})
	require.NoError(t, cdf.UpdateNumRecs(w))
	return p
}

// writeTestPoints writes three flashes in the region
// (-80, -79, 0, 1) to dir and returns the file path.
func writeTestPoints(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, testPointName)
	w, err := os.Create(p)
	require.NoError(t, err)
	defer w.Close()
	h := cdf.NewHeader([]string{"number_of_flashes"}, []int{4})
	for _, v := range []string{"flash_lon", "flash_lat"} {
		h.AddVariable(v, []string{"number_of_flashes"}, []float32{0})
		h.AddAttribute(v, "_FillValue", []float32{-999})
	}
	h.Define()
	f, err := cdf.Create(w, h)
	require.NoError(t, err)
	writeVar(t, f, "flash_lon", []float32{-79.9, -79.6, -999, -79.1})
	writeVar(t, f, "flash_lat", []float32{0.9, 0.4, 0.5, 0.1})
	require.NoError(t, cdf.UpdateNumRecs(w))
	return p
}

// readOutput returns the values of variable v in netCDF file p.
func readOutput(t *testing.T, p, v string) (data []float32, shape []int) {
	t.Helper()
	r, err := os.Open(p)
	require.NoError(t, err)
	defer r.Close()
	f, err := cdf.Open(r)
	require.NoError(t, err)
	require.Contains(t, f.Header.Variables(), v)
	rr := f.Reader(v, nil, nil)
	buf := rr.Zero(-1)
	_, err = rr.Read(buf)
	require.NoError(t, err)
	return buf.([]float32), f.Header.Lengths(v)
}

func TestNavigate(t *testing.T) {
	dir := t.TempDir()
	c := &ScanConfig{Input: writeTestScan(t, dir)}
	out := filepath.Join(dir, "nav.nc")
	require.NoError(t, Navigate(context.Background(), c, out, true))

	lon, shape := readOutput(t, out, "lon")
	assert.Equal(t, []int{20, 30}, shape)
	lat, _ := readOutput(t, out, "lat")
	// The sub-satellite point is between the middle four pixels.
	k := 10*30 + 15
	assert.InDelta(t, -75, lon[k], 0.5)
	assert.InDelta(t, 0, lat[k], 0.5)
	assert.Greater(t, lon[k], lon[k-1])
	assert.Less(t, lat[k], lat[k-30])

	_, shape = readOutput(t, out, "corner_lon")
	assert.Equal(t, []int{21, 31}, shape)
}

func TestNavigatePlatformOverride(t *testing.T) {
	dir := t.TempDir()
	c := &ScanConfig{Input: writeTestScan(t, dir), Platform: "not a satellite"}
	err := Navigate(context.Background(), c, filepath.Join(dir, "nav.nc"), false)
	assert.Error(t, err)
}

func TestSliceRegion(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "slice.nc")
	c := &SliceConfig{
		ScanConfig:  ScanConfig{Input: writeTestScan(t, dir)},
		Output:      out,
		Variable:    "Rad",
		Region:      &goesgrid.RegionBounds{West: -76, East: -74, South: -1, North: 1},
		Expressions: map[string]string{"RadK": "Rad * 1000", "dlon": "lon + 75"},
		Plot:        filepath.Join(dir, "slice.png"),
	}
	require.NoError(t, Slice(context.Background(), c))

	rad, shape := readOutput(t, out, "Rad")
	require.Len(t, shape, 2)
	assert.True(t, shape[0] > 0 && shape[0] < 20, "rows %d", shape[0])
	assert.True(t, shape[1] > 0 && shape[1] < 30, "columns %d", shape[1])
	lon, _ := readOutput(t, out, "lon")
	lat, _ := readOutput(t, out, "lat")
	for i := range lon {
		assert.True(t, lon[i] >= -76 && lon[i] <= -74, "lon %g", lon[i])
		assert.True(t, lat[i] >= -1 && lat[i] <= 1, "lat %g", lat[i])
	}
	radK, _ := readOutput(t, out, "RadK")
	for i, v := range rad {
		assert.InDelta(t, v*1000, radK[i], 1e-2)
	}
	dlon, _ := readOutput(t, out, "dlon")
	for i, v := range lon {
		assert.InDelta(t, v+75, dlon[i], 1e-4)
	}
	_, err := os.Stat(c.Plot)
	assert.NoError(t, err)
}

func TestSlicePixelsUpLevel(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "slice.nc")
	c := &SliceConfig{
		ScanConfig: ScanConfig{Input: writeTestScan(t, dir)},
		Output:     out,
		Variable:   "Rad",
		Pixels:     &goesgrid.PixelIndexBounds{XMin: 2, XMax: 5, YMin: 1, YMax: 3},
		UpLevel:    true,
		Options:    goesgrid.SliceOptions{Corners: true},
	}
	require.NoError(t, Slice(context.Background(), c))
	rf, shape := readOutput(t, out, "Rad")
	assert.Equal(t, []int{3, 4}, shape)
	// Pixel (1, 2) holds packed value 32.
	assert.InDelta(t, 0.0019*(32*0.5+1), rf[0], 1e-6)
	_, shape = readOutput(t, out, "corner_lon")
	assert.Equal(t, []int{4, 5}, shape)
}

func TestSliceNeedsOneSelection(t *testing.T) {
	dir := t.TempDir()
	c := &SliceConfig{
		ScanConfig: ScanConfig{Input: writeTestScan(t, dir)},
		Output:     filepath.Join(dir, "slice.nc"),
		Variable:   "Rad",
	}
	assert.Error(t, Slice(context.Background(), c))
	c.Region = &goesgrid.RegionBounds{West: -76, East: -74, South: -1, North: 1}
	c.Pixels = &goesgrid.PixelIndexBounds{XMax: 1, YMax: 1}
	assert.Error(t, Slice(context.Background(), c))
}

func TestSliceNeedsVariable(t *testing.T) {
	dir := t.TempDir()
	c := &SliceConfig{
		ScanConfig: ScanConfig{Input: writeTestScan(t, dir)},
		Output:     filepath.Join(dir, "slice.nc"),
		Region:     &goesgrid.RegionBounds{West: -76, East: -74, South: -1, North: 1},
	}
	err := Slice(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable")
	assert.NoFileExists(t, c.Output)
}

func TestCosZ(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "cosz.nc")
	c := &CosZConfig{
		ScanConfig: ScanConfig{Input: writeTestScan(t, dir)},
		Output:     out,
		Region:     &goesgrid.RegionBounds{West: -76, East: -74, South: -1, North: 1},
	}
	require.NoError(t, CosZ(context.Background(), c))
	cosz, _ := readOutput(t, out, "cosz")
	require.NotEmpty(t, cosz)
	for _, v := range cosz {
		// Close to solar noon in July near the equator.
		assert.True(t, v > 0.8 && v <= 1, "cosz %g", v)
	}

	// At midnight the sun is below the horizon everywhere in the scan.
	c.Time = time.Date(2019, 7, 19, 5, 0, 0, 0, time.UTC)
	c.Region = nil
	require.NoError(t, CosZ(context.Background(), c))
	cosz, shape := readOutput(t, out, "cosz")
	assert.Equal(t, []int{20, 30}, shape)
	for _, v := range cosz {
		assert.True(t, math.IsNaN(float64(v)), "cosz %g", v)
	}
}

func TestAccumulate(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "density.nc")
	c := &AccumulateConfig{
		Inputs:     []string{writeTestPoints(t, dir)},
		LonVar:     "flash_lon",
		LatVar:     "flash_lat",
		Region:     goesgrid.RegionBounds{West: -80, East: -79, South: 0, North: 1},
		Resolution: goesgrid.KmPerDegree / 2,
		Output:     out,
		Shapefile:  filepath.Join(dir, "density.shp"),
		Plot:       filepath.Join(dir, "density.png"),
	}
	require.NoError(t, Accumulate(context.Background(), c))
	d, shape := readOutput(t, out, "density")
	assert.Equal(t, []int{2, 2}, shape)
	assert.Equal(t, []float32{1, 0, 1, 1}, d)
	_, shape = readOutput(t, out, "corner_lat")
	assert.Equal(t, []int{3, 3}, shape)
	for _, f := range []string{c.Shapefile, c.Plot} {
		_, err := os.Stat(f)
		assert.NoError(t, err, f)
	}

	c.Inputs = nil
	assert.Error(t, Accumulate(context.Background(), c))
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestScan(t, dir)
	writeTestPoints(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("x"), 0644))

	ctx := context.Background()
	ini := time.Date(2019, 7, 19, 0, 0, 0, 0, time.UTC)
	b := new(bytes.Buffer)
	require.NoError(t, Files(ctx, &FilesConfig{Location: dir, Ini: ini, Fin: ini.Add(time.Hour)}, b))
	assert.Equal(t, filepath.Join(dir, testPointName)+"\n", b.String())

	b.Reset()
	require.NoError(t, Files(ctx, &FilesConfig{Location: dir, Ini: ini}, b))
	assert.Equal(t, []string{filepath.Join(dir, testPointName), filepath.Join(dir, testScanName)},
		strings.Fields(b.String()))

	b.Reset()
	cat := filepath.Join(dir, "catalog.db")
	require.NoError(t, Files(ctx, &FilesConfig{Location: dir, Catalog: cat, Product: "ABI-L1b-RadC", Band: 2}, b))
	assert.Equal(t, filepath.Join(dir, testScanName)+"\n", b.String())

	// The catalog remembers the files without a location.
	b.Reset()
	require.NoError(t, Files(ctx, &FilesConfig{Catalog: cat, Platform: "G16", Ini: ini}, b))
	assert.Len(t, strings.Fields(b.String()), 2)

	assert.Error(t, Files(ctx, &FilesConfig{}, b))
	assert.Error(t, Files(ctx, &FilesConfig{Location: dir, Ini: ini, Fin: ini}, b))
}

func TestRootCommands(t *testing.T) {
	dir := t.TempDir()
	in := writeTestScan(t, dir)

	out := new(bytes.Buffer)
	Root.SetOut(out)
	Root.SetArgs([]string{"version"})
	require.NoError(t, Root.Execute())
	assert.Equal(t, "goesgrid v"+goesgrid.Version+"\n", out.String())

	nav := filepath.Join(dir, "nav.nc")
	Root.SetArgs([]string{"navigate", "--input=" + in, "--output=" + nav, "--log-level=warn"})
	require.NoError(t, Root.Execute())
	_, shape := readOutput(t, nav, "lat")
	assert.Equal(t, []int{20, 30}, shape)

	out.Reset()
	Root.SetArgs([]string{"files", dir, "--start=2019-07-19T17:00:00Z", "--end=2019-07-19T18:00:00Z"})
	require.NoError(t, Root.Execute())
	assert.Equal(t, in+"\n", out.String())

	Root.SetArgs([]string{"files", dir, "--time-mode=middle"})
	assert.Error(t, Root.Execute())
}
