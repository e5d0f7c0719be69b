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
	"math"
)

// Calibration holds the constants needed to convert L1b radiances to
// reflectance factors or brightness temperatures.
type Calibration struct {
	// Band is the ABI band (channel) number, 1 through 16.
	Band int

	// Kappa0 converts radiance to reflectance factor for the
	// reflective bands (1 through 6).
	Kappa0 float64

	// Planck constants for the emissive bands (7 through 16).
	Fk1, Fk2, Bc1, Bc2 float64
}

// Reflective returns whether the band measures reflected sunlight.
func (c Calibration) Reflective() bool {
	return c.Band < 7
}

// UpLevel converts the radiance field rad to a reflectance factor for
// the reflective bands or to a brightness temperature in kelvin for the
// emissive bands. Missing radiances remain missing.
func UpLevel(rad *Field, c Calibration) (*Field, error) {
	if rad == nil || rad.Kind != Radiance {
		var k FieldKind
		if rad != nil {
			k = rad.Kind
		}
		return nil, fmt.Errorf("goesgrid: up-levelling needs a radiance field but have %s: %w", k, ErrTypeMismatch)
	}
	if c.Band < 1 || c.Band > 16 {
		return nil, fmt.Errorf("goesgrid: invalid band %d", c.Band)
	}
	o := rad.like()
	o.Missing = math.NaN()
	if c.Reflective() {
		o.setKind(ReflectanceFactor)
	} else {
		o.setKind(BrightnessTemperature)
	}
	for k, v := range rad.Data.Elements {
		switch {
		case rad.IsMissing(v):
			o.Data.Elements[k] = math.NaN()
		case c.Reflective():
			o.Data.Elements[k] = c.Kappa0 * v
		default:
			o.Data.Elements[k] = (c.Fk2/math.Log(c.Fk1/v+1) - c.Bc1) / c.Bc2
		}
	}
	return o, nil
}
