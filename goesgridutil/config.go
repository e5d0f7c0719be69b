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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/goesgrid"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// splitList splits a list given as a string, such as "[1,2,3]" or "1, 2, 3",
// into its elements.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	o := strings.Split(s, ",")
	for i, v := range o {
		o[i] = strings.TrimSpace(v)
	}
	return o
}

// toFloat64SliceE converts a configuration value to a slice of float64,
// accounting for the fact that it might be a string if it was set
// from a command line argument or an environment variable.
func toFloat64SliceE(v interface{}) ([]float64, error) {
	var items []interface{}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []float64:
		return t, nil
	case string:
		for _, s := range splitList(t) {
			items = append(items, s)
		}
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	case []interface{}:
		items = t
	default:
		return nil, fmt.Errorf("invalid type %T for list of numbers", v)
	}
	if len(items) == 0 {
		return nil, nil
	}
	o := make([]float64, len(items))
	for i, item := range items {
		f, err := cast.ToFloat64E(item)
		if err != nil {
			return nil, err
		}
		o[i] = f
	}
	return o, nil
}

// toIntSliceE converts a configuration value to a slice of int.
func toIntSliceE(v interface{}) ([]int, error) {
	if s, ok := v.(string); ok {
		var o []int
		for _, item := range splitList(s) {
			i, err := cast.ToIntE(item)
			if err != nil {
				return nil, err
			}
			o = append(o, i)
		}
		return o, nil
	}
	if v == nil {
		return nil, nil
	}
	return cast.ToIntSliceE(v)
}

// getStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func getStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch t := i.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return t, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(t)
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		o := make(map[string]string)
		if err := json.Unmarshal([]byte(t), &o); err != nil {
			return nil, fmt.Errorf("goesgridutil: %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("goesgridutil: invalid type for %s: %#v", varName, i)
	}
}

// checkExpressions removes end lines and expands environment
// variables in derived-field expressions.
func checkExpressions(exprs map[string]string) map[string]string {
	o := make(map[string]string, len(exprs))
	for k, v := range exprs {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o
}

// regionConfig returns the region given by the domain option, or nil if
// it is not set.
func regionConfig(cfg *viper.Viper) (*goesgrid.RegionBounds, error) {
	v, err := toFloat64SliceE(cfg.Get("domain"))
	if err != nil {
		return nil, fmt.Errorf("goesgridutil: domain: %v", err)
	}
	if len(v) == 0 {
		return nil, nil
	}
	r, err := goesgrid.NewRegionBounds(v)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// pixelsConfig returns the pixel window given by the pixels option, or
// nil if it is not set.
func pixelsConfig(cfg *viper.Viper) (*goesgrid.PixelIndexBounds, error) {
	v, err := toIntSliceE(cfg.Get("pixels"))
	if err != nil {
		return nil, fmt.Errorf("goesgridutil: pixels: %v", err)
	}
	if len(v) == 0 {
		return nil, nil
	}
	b, err := goesgrid.NewPixelIndexBounds(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// parseTime parses a time given in the configuration. Times without a
// time zone are in UTC. An empty string returns the zero time.
func parseTime(name, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, err := cast.ToTimeInDefaultLocationE(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("goesgridutil: %s: %v", name, err)
	}
	return t.UTC(), nil
}

// inputConfig returns the input files, with environment variables expanded.
func inputConfig(cfg *viper.Viper) []string {
	var o []string
	for _, s := range expandStringSlice(cast.ToStringSlice(cfg.Get("input"))) {
		if s != "" {
			o = append(o, s)
		}
	}
	return o
}

// singleInput returns the one input file that scan commands need.
func singleInput(cfg *viper.Viper) (string, error) {
	in := inputConfig(cfg)
	if len(in) != 1 {
		return "", fmt.Errorf("goesgridutil: exactly one input scan file is needed but %d were given", len(in))
	}
	return in[0], nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`goesgridutil: you need to specify an output file (for example: --output=out.nc)`)
	}
	f = os.ExpandEnv(f)
	if IsBlob(f) {
		if _, _, err := splitBlob(f); err != nil {
			return f, err
		}
		return f, nil
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("goesgridutil: the output directory doesn't exist: %v", err)
	}
	return f, nil
}

// setLogging sets the level and format of the standard logger.
// Colors are only used when out is a terminal.
func setLogging(level string, colors bool) error {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("goesgridutil: %v", err)
	}
	logrus.SetLevel(l)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors: !colors,
		FullTimestamp: true,
	})
	return nil
}
