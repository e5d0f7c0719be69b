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

// Package goesgridutil contains the command-line interface for goesgrid.
package goesgridutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spatialmodel/goesgrid"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to goesgrid.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-level",
			usage: `
              log-level specifies the logging level: one of debug, info,
              warn or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "input",
			usage: `
              input specifies the input files. The scan commands take a
              single ABI netCDF file and accumulate takes one or more point
              (for example GLM) files. Files can be local paths,
              http(s):// URLs or blob storage URLs (gs://, s3:// or file://).`,
			shorthand:  "i",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{navigateCmd.Flags(), sliceCmd.Flags(), coszCmd.Flags(), accumulateCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output specifies the path to the netCDF file to write.
              It can also be a blob storage URL.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{navigateCmd.Flags(), sliceCmd.Flags(), coszCmd.Flags(), accumulateCmd.Flags()},
		},
		{
			name: "variable",
			usage: `
              variable specifies the scan variable to slice.`,
			defaultVal: "Rad",
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "platform",
			usage: `
              platform overrides the satellite platform given in the
              scan file, for example "G16" or "GOES-17". For the files
              command it restricts catalog searches to one platform.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{navigateCmd.Flags(), sliceCmd.Flags(), coszCmd.Flags(), filesCmd.Flags()},
		},
		{
			name: "solver",
			usage: `
              solver specifies how scan angles are converted to
              longitudes and latitudes: "analytic" for the closed-form
              fixed grid equations or "proj" for the general projection
              inverse.`,
			defaultVal: "analytic",
			flagsets:   []*pflag.FlagSet{navigateCmd.Flags(), sliceCmd.Flags(), coszCmd.Flags()},
		},
		{
			name: "cache-dir",
			usage: `
              cache-dir specifies a directory where navigated grids are
              stored for reuse by later runs. If empty, grids are only
              cached in memory.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{navigateCmd.Flags(), sliceCmd.Flags(), coszCmd.Flags()},
		},
		{
			name: "corners",
			usage: `
              corners specifies that pixel corner coordinates should be
              calculated in addition to (navigate) or instead of (slice)
              pixel centers.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{navigateCmd.Flags(), sliceCmd.Flags()},
		},
		{
			name: "domain",
			usage: `
              domain specifies the region of interest as
              west,east,south,north in degrees.`,
			shorthand:  "d",
			defaultVal: []float64{},
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags(), coszCmd.Flags(), accumulateCmd.Flags()},
		},
		{
			name: "pixels",
			usage: `
              pixels specifies a window of the scan as
              xmin,xmax,ymin,ymax pixel indices, inclusive. It is used
              instead of domain.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "decimation",
			usage: `
              decimation specifies the step of the coarse pass used to
              find the pixels of a domain. Larger steps are faster but may
              miss domains smaller than the step.`,
			defaultVal: goesgrid.DefaultDecimation,
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "uplevel",
			usage: `
              uplevel specifies that L1b radiances should be converted to
              reflectance factor (bands 1-6) or brightness temperature
              (bands 7-16) before slicing.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "expressions",
			usage: `
              expressions specifies derived fields to calculate from the
              sliced variable and its "lon" and "lat" coordinates, as a
              JSON object of names to expressions, for example
              {"RadK": "Rad * 1000"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags()},
		},
		{
			name: "plot",
			usage: `
              plot specifies an image file (for example out.png) to plot
              the result to.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{sliceCmd.Flags(), coszCmd.Flags(), accumulateCmd.Flags()},
		},
		{
			name: "time",
			usage: `
              time specifies the time to calculate the solar zenith angle
              at. The default is the scan start time.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{coszCmd.Flags()},
		},
		{
			name: "min-cos",
			usage: `
              min-cos specifies the smallest cosine of the solar zenith
              angle that is kept. Smaller values are set to missing.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{coszCmd.Flags()},
		},
		{
			name: "resolution",
			usage: `
              resolution specifies the gridmap cell size in kilometers.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{accumulateCmd.Flags()},
		},
		{
			name: "tile-x",
			usage: `
              tile-x specifies the number of gridmap columns in each
              accumulation tile.`,
			defaultVal: goesgrid.DefaultTileX,
			flagsets:   []*pflag.FlagSet{accumulateCmd.Flags()},
		},
		{
			name: "tile-y",
			usage: `
              tile-y specifies the number of gridmap rows in each
              accumulation tile.`,
			defaultVal: goesgrid.DefaultTileY,
			flagsets:   []*pflag.FlagSet{accumulateCmd.Flags()},
		},
		{
			name: "tile-z",
			usage: `
              tile-z specifies the number of points processed at a time
              in each accumulation tile.`,
			defaultVal: goesgrid.DefaultTileZ,
			flagsets:   []*pflag.FlagSet{accumulateCmd.Flags()},
		},
		{
			name: "lon-var",
			usage: `
              lon-var specifies the longitude variable of the point files.`,
			defaultVal: "flash_lon",
			flagsets:   []*pflag.FlagSet{accumulateCmd.Flags()},
		},
		{
			name: "lat-var",
			usage: `
              lat-var specifies the latitude variable of the point files.`,
			defaultVal: "flash_lat",
			flagsets:   []*pflag.FlagSet{accumulateCmd.Flags()},
		},
		{
			name: "time-var",
			usage: `
              time-var specifies the time variable of the point files.
              It may be empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{accumulateCmd.Flags()},
		},
		{
			name: "shapefile",
			usage: `
              shapefile specifies a shapefile to write the gridmap cells
              and their counts to.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{accumulateCmd.Flags()},
		},
		{
			name: "start",
			usage: `
              start specifies the beginning of the time window (inclusive)
              to find files in, for example "2019-07-19T00:00:00Z".`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{filesCmd.Flags()},
		},
		{
			name: "end",
			usage: `
              end specifies the end of the time window (exclusive) to
              find files in. If empty, the window has no end.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{filesCmd.Flags()},
		},
		{
			name: "time-mode",
			usage: `
              time-mode specifies which scan times must be within the
              time window: "start", "end" or "both".`,
			defaultVal: "start",
			flagsets:   []*pflag.FlagSet{filesCmd.Flags()},
		},
		{
			name: "catalog",
			usage: `
              catalog specifies a SQLite database to add the files that
              are found to and to search.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{filesCmd.Flags()},
		},
		{
			name: "product",
			usage: `
              product restricts catalog searches to one product, for
              example "ABI-L1b-RadC".`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{filesCmd.Flags()},
		},
		{
			name: "band",
			usage: `
              band restricts catalog searches to one ABI band. Zero means
              any band.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{filesCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GOESGRID")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case []float64:
				if option.shorthand == "" {
					set.Float64Slice(option.name, option.defaultVal.([]float64), option.usage)
				} else {
					set.Float64SliceP(option.name, option.shorthand, option.defaultVal.([]float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(navigateCmd)
	Root.AddCommand(sliceCmd)
	Root.AddCommand(coszCmd)
	Root.AddCommand(accumulateCmd)
	Root.AddCommand(filesCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("goesgridutil: problem reading configuration file: %v", err)
		}
	}
	return setLogging(Cfg.GetString("log-level"), isatty.IsTerminal(os.Stderr.Fd()))
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "goesgrid",
	Short: "Navigation and regridding of GOES satellite data.",
	Long: `goesgrid converts the scan angles of GOES-R series Advanced Baseline
Imager (ABI) data to longitudes and latitudes, slices scans to regions of
interest, and counts point observations such as Geostationary Lightning
Mapper (GLM) flashes on regular grids.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GOESGRID_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of goesgrid.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("goesgrid v%s\n", goesgrid.Version)
	},
	DisableAutoGenTag: true,
}

// scanConfig returns the scan settings given in cfg.
func scanConfig(cfg *viper.Viper) (*ScanConfig, error) {
	in, err := singleInput(cfg)
	if err != nil {
		return nil, err
	}
	solver, err := goesgrid.ParseSolver(cfg.GetString("solver"))
	if err != nil {
		return nil, err
	}
	return &ScanConfig{
		Input:    in,
		Platform: cfg.GetString("platform"),
		Solver:   solver,
		Cache:    goesgrid.NewNavigationCache(4, os.ExpandEnv(cfg.GetString("cache-dir"))),
	}, nil
}

var navigateCmd = &cobra.Command{
	Use:   "navigate",
	Short: "Calculate pixel coordinates",
	Long: `navigate calculates the longitude and latitude of each pixel of an
ABI scan and writes them to a netCDF file. Pixels that do not view the
Earth are given the value -999.99.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := scanConfig(Cfg)
		if err != nil {
			return err
		}
		output, err := checkOutputFile(Cfg.GetString("output"))
		if err != nil {
			return err
		}
		return Navigate(cmd.Context(), c, output, Cfg.GetBool("corners"))
	},
	DisableAutoGenTag: true,
}

var sliceCmd = &cobra.Command{
	Use:   "slice",
	Short: "Slice a scan to a region",
	Long: `slice extracts the smallest window of an ABI scan that covers a
domain, or a window given by pixel indices, and writes the variable
along with its coordinates and any derived expressions to a netCDF file.
Pixels in the window that are outside of the Earth are set to missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scanConfig(Cfg)
		if err != nil {
			return err
		}
		c := &SliceConfig{
			ScanConfig: *sc,
			Variable:   Cfg.GetString("variable"),
			UpLevel:    Cfg.GetBool("uplevel"),
			Plot:       os.ExpandEnv(Cfg.GetString("plot")),
			Options: goesgrid.SliceOptions{
				Decimation: Cfg.GetInt("decimation"),
				Corners:    Cfg.GetBool("corners"),
			},
		}
		if c.Output, err = checkOutputFile(Cfg.GetString("output")); err != nil {
			return err
		}
		if c.Region, err = regionConfig(Cfg); err != nil {
			return err
		}
		if c.Pixels, err = pixelsConfig(Cfg); err != nil {
			return err
		}
		exprs, err := getStringMapString("expressions", Cfg)
		if err != nil {
			return err
		}
		c.Expressions = checkExpressions(exprs)
		return Slice(cmd.Context(), c)
	},
	DisableAutoGenTag: true,
}

var coszCmd = &cobra.Command{
	Use:   "cosz",
	Short: "Calculate the solar zenith angle",
	Long: `cosz calculates the cosine of the solar zenith angle at each pixel of
an ABI scan, optionally limited to a domain, and writes it to a netCDF
file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scanConfig(Cfg)
		if err != nil {
			return err
		}
		c := &CosZConfig{
			ScanConfig: *sc,
			MinCos:     Cfg.GetFloat64("min-cos"),
			Plot:       os.ExpandEnv(Cfg.GetString("plot")),
		}
		if c.Output, err = checkOutputFile(Cfg.GetString("output")); err != nil {
			return err
		}
		if c.Time, err = parseTime("time", Cfg.GetString("time")); err != nil {
			return err
		}
		if c.Region, err = regionConfig(Cfg); err != nil {
			return err
		}
		return CosZ(cmd.Context(), c)
	},
	DisableAutoGenTag: true,
}

var accumulateCmd = &cobra.Command{
	Use:   "accumulate",
	Short: "Count points on a grid",
	Long: `accumulate counts the point observations, for example GLM flashes, in
one or more files in the cells of a regular longitude-latitude grid
covering a domain, and writes the counts to a netCDF file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := regionConfig(Cfg)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("goesgridutil: accumulate needs a domain")
		}
		c := &AccumulateConfig{
			Inputs:     inputConfig(Cfg),
			LonVar:     Cfg.GetString("lon-var"),
			LatVar:     Cfg.GetString("lat-var"),
			TimeVar:    Cfg.GetString("time-var"),
			Region:     *r,
			Resolution: Cfg.GetFloat64("resolution"),
			TileX:      Cfg.GetInt("tile-x"),
			TileY:      Cfg.GetInt("tile-y"),
			TileZ:      Cfg.GetInt("tile-z"),
			Shapefile:  os.ExpandEnv(Cfg.GetString("shapefile")),
			Plot:       os.ExpandEnv(Cfg.GetString("plot")),
		}
		if c.Output, err = checkOutputFile(Cfg.GetString("output")); err != nil {
			return err
		}
		return Accumulate(cmd.Context(), c)
	},
	DisableAutoGenTag: true,
}

var filesCmd = &cobra.Command{
	Use:   "files [location]",
	Short: "Find product files",
	Long: `files prints the product files in a location whose scan times are
within a time window. The location can be a local directory or glob
pattern, or a blob storage prefix such as
gs://gcp-public-data-goes-16/ABI-L1b-RadC/2019/200/00/. If a catalog is
given, the files are added to it and the catalog is searched instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := &FilesConfig{
			Catalog:  Cfg.GetString("catalog"),
			Product:  Cfg.GetString("product"),
			Platform: Cfg.GetString("platform"),
			Band:     cast.ToInt(Cfg.Get("band")),
		}
		if len(args) == 1 {
			c.Location = os.ExpandEnv(args[0])
		}
		var err error
		if c.Ini, err = parseTime("start", Cfg.GetString("start")); err != nil {
			return err
		}
		if c.Fin, err = parseTime("end", Cfg.GetString("end")); err != nil {
			return err
		}
		if c.Mode, err = goesgrid.ParseTimeMode(Cfg.GetString("time-mode")); err != nil {
			return err
		}
		return Files(cmd.Context(), c, cmd.OutOrStdout())
	},
	DisableAutoGenTag: true,
}
