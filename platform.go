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
	"strings"
)

// Platform describes a geostationary satellite.
type Platform struct {
	// ID is the platform identifier used in file names and
	// metadata, for example "G16".
	ID   string
	Name string

	// SatLon is the nominal sub-satellite longitude in degrees.
	SatLon float64

	// WrapsDateline specifies that positive longitudes calculated for
	// this platform should be shifted by -360 degrees so that its
	// field of view is continuous across the antimeridian.
	WrapsDateline bool
}

// Platforms holds the known satellites.
var Platforms = []Platform{
	{ID: "G16", Name: "GOES-16", SatLon: -75.2},
	{ID: "G17", Name: "GOES-17", SatLon: -137.2, WrapsDateline: true},
	{ID: "G18", Name: "GOES-18", SatLon: -137.0},
	{ID: "G19", Name: "GOES-19", SatLon: -75.2},
}

// PlatformByName returns the platform matching name, which can be an ID
// such as "G17" or a name such as "GOES-17" or "goes17".
func PlatformByName(name string) (Platform, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	s = strings.Replace(s, "-", "", -1)
	s = strings.TrimPrefix(s, "GOES")
	s = "G" + strings.TrimPrefix(s, "G")
	for _, p := range Platforms {
		if p.ID == s {
			return p, nil
		}
	}
	return Platform{}, fmt.Errorf("goesgrid: unknown platform %q", name)
}

// wrap applies the platform longitude shift, if any, to lon.
func (p Platform) wrap(lon float64) float64 {
	if p.WrapsDateline && lon > 0 {
		return lon - 360
	}
	return lon
}
