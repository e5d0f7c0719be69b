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
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/goesgrid"
	"github.com/spatialmodel/goesgrid/catalog"
)

// ScanConfig holds the settings shared by the commands that read an
// imager scan.
type ScanConfig struct {
	// Input is the location of the scan file.
	Input string

	// Platform, if not empty, overrides the platform given in the
	// scan file.
	Platform string

	Solver goesgrid.Solver

	// Cache holds navigated grids. If it is nil, a new in-memory cache
	// is used.
	Cache *goesgrid.NavigationCache
}

// readScan reads the scan file along with variable, which may be empty.
func (c *ScanConfig) readScan(ctx context.Context, variable string) (*goesgrid.Scan, error) {
	local, cleanup, err := maybeDownload(ctx, c.Input)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("goesgridutil: %v", err)
	}
	defer f.Close()
	s, err := goesgrid.ReadScan(f, variable)
	if err != nil {
		return nil, fmt.Errorf("goesgridutil: reading %s: %v", c.Input, err)
	}
	if c.Platform != "" {
		if s.Platform, err = goesgrid.PlatformByName(c.Platform); err != nil {
			return nil, err
		}
	}
	logrus.WithFields(logrus.Fields{
		"file":     c.Input,
		"platform": s.Platform.ID,
		"shape":    fmt.Sprintf("%dx%d", len(s.Y), len(s.X)),
		"start":    s.Start,
	}).Info("goesgridutil: read scan")
	return s, nil
}

// navigate returns the navigated pixel centers, or corners, of s.
func (c *ScanConfig) navigate(ctx context.Context, s *goesgrid.Scan, corners bool) (*goesgrid.CoordinateGrid, error) {
	if c.Cache == nil {
		c.Cache = goesgrid.NewNavigationCache(4, "")
	}
	return c.Cache.Get(ctx, goesgrid.NavigationRequest{
		Navigator: s.Navigator(c.Solver),
		X:         s.X,
		Y:         s.Y,
		Corners:   corners,
	})
}

// writeFields writes fields to a netCDF file at output, which may be a
// blob storage location.
func writeFields(ctx context.Context, output string, fields ...*goesgrid.Field) error {
	var u uploader
	local := u.maybeUpload(output)
	if u.err != nil {
		return fmt.Errorf("goesgridutil: preparing output: %v", u.err)
	}
	w, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("goesgridutil: %v", err)
	}
	if err := goesgrid.WriteNetCDF(w, fields...); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("goesgridutil: %v", err)
	}
	logrus.WithField("file", output).Info("goesgridutil: wrote output")
	return u.upload(ctx)
}

// savePlot plots f to filename, which may be a blob storage location.
func savePlot(ctx context.Context, f *goesgrid.Field, filename string) error {
	var u uploader
	local := u.maybeUpload(filename)
	if u.err != nil {
		return fmt.Errorf("goesgridutil: preparing plot: %v", u.err)
	}
	if err := plotField(f, local); err != nil {
		return err
	}
	return u.upload(ctx)
}

// Navigate navigates the pixels of a scan and writes their longitudes
// and latitudes to output. If corners is true, the pixel corners are
// written as well.
func Navigate(ctx context.Context, c *ScanConfig, output string, corners bool) error {
	s, err := c.readScan(ctx, "")
	if err != nil {
		return err
	}
	g, err := c.navigate(ctx, s, false)
	if err != nil {
		return err
	}
	lon, lat := g.Fields("")
	fields := []*goesgrid.Field{lon, lat}
	if corners {
		gc, err := c.navigate(ctx, s, true)
		if err != nil {
			return err
		}
		clon, clat := gc.Fields("corner_")
		fields = append(fields, clon, clat)
	}
	return writeFields(ctx, output, fields...)
}

// SliceConfig holds the settings for slicing a scan.
type SliceConfig struct {
	ScanConfig

	// Output is the netCDF file to write.
	Output string

	// Variable is the scan variable to slice.
	Variable string

	// Exactly one of Region and Pixels must be set.
	Region *goesgrid.RegionBounds
	Pixels *goesgrid.PixelIndexBounds

	Options goesgrid.SliceOptions

	// UpLevel specifies that L1b radiances should be converted to
	// reflectance factor or brightness temperature.
	UpLevel bool

	// Expressions are derived fields to calculate from the sliced
	// variable and, if pixel centers are being returned, the "lon" and
	// "lat" coordinates.
	Expressions map[string]string

	// Plot, if not empty, is the image file to plot the slice to.
	Plot string
}

// Slice slices a scan variable to a region or pixel window and writes
// it, along with its coordinates and any derived fields, to c.Output.
func Slice(ctx context.Context, c *SliceConfig) error {
	if (c.Region == nil) == (c.Pixels == nil) {
		return fmt.Errorf("goesgridutil: exactly one of a domain or a pixel window must be given")
	}
	if c.Variable == "" {
		return fmt.Errorf("goesgridutil: a variable to slice must be given")
	}
	s, err := c.readScan(ctx, c.Variable)
	if err != nil {
		return err
	}
	field := s.Field
	if c.UpLevel {
		if field, err = s.UpLevel(); err != nil {
			return err
		}
	}
	n := s.Navigator(c.Solver)
	var sl *goesgrid.Slice
	if c.Region != nil {
		sl, err = n.SliceImage(field, s.X, s.Y, *c.Region, c.Options)
	} else {
		sl, err = n.SlicePixels(field, s.X, s.Y, *c.Pixels, c.Options)
	}
	if err != nil {
		return err
	}
	logrus.WithField("pixels", fmt.Sprintf("%+v", sl.Limits)).Info("goesgridutil: sliced scan")

	prefix := ""
	if c.Options.Corners {
		prefix = "corner_"
	}
	lon, lat := sl.Grid.Fields(prefix)
	fields := []*goesgrid.Field{sl.Field, lon, lat}
	if len(c.Expressions) > 0 {
		vars := map[string]*goesgrid.Field{sl.Field.Name: sl.Field}
		if !c.Options.Corners {
			vars["lon"], vars["lat"] = lon, lat
		}
		derived, err := goesgrid.EvaluateAll(c.Expressions, vars)
		if err != nil {
			return err
		}
		fields = append(fields, derived...)
	}
	if err := writeFields(ctx, c.Output, fields...); err != nil {
		return err
	}
	if c.Plot != "" {
		return savePlot(ctx, sl.Field, c.Plot)
	}
	return nil
}

// CosZConfig holds the settings for calculating the cosine of the solar
// zenith angle over a scan.
type CosZConfig struct {
	ScanConfig
	Output string

	// Time is the time to calculate the angle at. If it is zero, the
	// scan start time is used.
	Time time.Time

	// MinCos is the smallest cosine that is kept.
	MinCos float64

	// Region, if not nil, limits the output to the pixels within it.
	Region *goesgrid.RegionBounds

	Plot string
}

// CosZ calculates the cosine of the solar zenith angle at each pixel
// of a scan and writes it to c.Output.
func CosZ(ctx context.Context, c *CosZConfig) error {
	s, err := c.readScan(ctx, "")
	if err != nil {
		return err
	}
	g, err := c.navigate(ctx, s, false)
	if err != nil {
		return err
	}
	if c.Region != nil {
		sl, err := goesgrid.SliceGrid(nil, g, *c.Region)
		if err != nil {
			return err
		}
		g = sl.Grid
	}
	t := c.Time
	if t.IsZero() {
		t = s.Start
	}
	if t.IsZero() {
		return fmt.Errorf("goesgridutil: scan %s has no start time; please specify a time", c.Input)
	}
	cosz, err := goesgrid.CosineOfSolarZenithAngle(g, t, c.MinCos)
	if err != nil {
		return err
	}
	lon, lat := g.Fields("")
	if err := writeFields(ctx, c.Output, cosz, lon, lat); err != nil {
		return err
	}
	if c.Plot != "" {
		return savePlot(ctx, cosz, c.Plot)
	}
	return nil
}

// AccumulateConfig holds the settings for counting point observations
// in a gridmap.
type AccumulateConfig struct {
	// Inputs are the point files to read.
	Inputs []string

	// LonVar, LatVar and TimeVar are the names of the point variables.
	// TimeVar may be empty.
	LonVar, LatVar, TimeVar string

	Region goesgrid.RegionBounds

	// Resolution is the gridmap cell size in kilometers.
	Resolution float64

	TileX, TileY, TileZ int

	// Output is the netCDF file to write. Shapefile and Plot are
	// optional additional outputs.
	Output, Shapefile, Plot string
}

// Accumulate counts the points in the input files in the cells of a
// gridmap and writes the counts along with the cell coordinates.
func Accumulate(ctx context.Context, c *AccumulateConfig) error {
	if len(c.Inputs) == 0 {
		return fmt.Errorf("goesgridutil: no point files to accumulate")
	}
	corners, err := goesgrid.CreateGridmap(c.Region, c.Resolution)
	if err != nil {
		return err
	}
	points := new(goesgrid.PointCloud)
	for _, in := range c.Inputs {
		p, err := readPoints(ctx, in, c.LonVar, c.LatVar, c.TimeVar)
		if err != nil {
			return err
		}
		points.Append(p)
	}
	a := goesgrid.Accumulator{TileX: c.TileX, TileY: c.TileY, TileZ: c.TileZ, Log: logrus.StandardLogger()}
	density, err := a.Accumulate(ctx, points, corners)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"points":  points.Len(),
		"counted": density.Total(),
	}).Info("goesgridutil: accumulated points")

	centers, err := goesgrid.GridmapCenters(corners)
	if err != nil {
		return err
	}
	lon, lat := centers.Fields("")
	clon, clat := corners.Fields("corner_")
	d := density.Field()
	if err := writeFields(ctx, c.Output, d, lon, lat, clon, clat); err != nil {
		return err
	}
	if c.Shapefile != "" {
		var u uploader
		local := u.maybeUpload(c.Shapefile)
		if u.err != nil {
			return fmt.Errorf("goesgridutil: preparing shapefile: %v", u.err)
		}
		if err := goesgrid.WriteDensityShapefile(local, corners, density); err != nil {
			return err
		}
		if err := u.upload(ctx); err != nil {
			return err
		}
	}
	if c.Plot != "" {
		return savePlot(ctx, d, c.Plot)
	}
	return nil
}

func readPoints(ctx context.Context, in, lonVar, latVar, timeVar string) (*goesgrid.PointCloud, error) {
	local, cleanup, err := maybeDownload(ctx, in)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("goesgridutil: %v", err)
	}
	defer f.Close()
	p, err := goesgrid.ReadPoints(f, lonVar, latVar, timeVar)
	if err != nil {
		return nil, fmt.Errorf("goesgridutil: reading %s: %v", in, err)
	}
	logrus.WithFields(logrus.Fields{"file": in, "points": p.Len()}).Debug("goesgridutil: read points")
	return p, nil
}

// FilesConfig holds the settings for finding product files.
type FilesConfig struct {
	// Location is a local directory or glob pattern, or a blob storage
	// prefix, to search. It may be empty if Catalog is set.
	Location string

	// Ini and Fin bound the time window, [Ini, Fin).
	Ini, Fin time.Time
	Mode     goesgrid.TimeMode

	// Catalog, if not empty, is a SQLite database that the files at
	// Location are added to and then searched.
	Catalog string

	// Product, Platform and Band restrict catalog searches.
	Product, Platform string
	Band              int
}

// Files writes the paths of the files matching c to w, one per line.
func Files(ctx context.Context, c *FilesConfig, w io.Writer) error {
	if c.Location == "" && c.Catalog == "" {
		return fmt.Errorf("goesgridutil: either a location or a catalog is needed to find files")
	}
	if !c.Fin.IsZero() && !c.Ini.Before(c.Fin) {
		return fmt.Errorf("goesgridutil: start time %v is not before end time %v", c.Ini, c.Fin)
	}
	var names []string
	if c.Location != "" {
		var err error
		if names, err = listFiles(ctx, c.Location); err != nil {
			return err
		}
	}
	if c.Catalog == "" {
		fin := c.Fin
		if fin.IsZero() {
			fin = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
		}
		for _, f := range goesgrid.LocateFiles(names, c.Ini, fin, c.Mode) {
			fmt.Fprintln(w, f.Name)
		}
		return nil
	}

	db, err := catalog.Open(os.ExpandEnv(c.Catalog))
	if err != nil {
		return err
	}
	defer db.Close()
	var granules []catalog.Granule
	for _, name := range names {
		g, err := catalog.ParseGranule(name)
		if err != nil {
			logrus.WithField("file", name).Debug("goesgridutil: skipping file that is not a product file")
			continue
		}
		granules = append(granules, g)
	}
	if len(granules) > 0 {
		if err := db.Add(ctx, granules...); err != nil {
			return err
		}
		logrus.WithField("files", len(granules)).Info("goesgridutil: added files to catalog")
	}
	found, err := db.Find(ctx, catalog.Query{
		Product:  c.Product,
		Platform: c.Platform,
		Band:     c.Band,
		Ini:      c.Ini,
		Fin:      c.Fin,
		Mode:     c.Mode,
	})
	if err != nil {
		return err
	}
	for _, g := range found {
		fmt.Fprintln(w, g.Path)
	}
	return nil
}
