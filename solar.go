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
	"time"
)

// solarPosition returns the solar declination in radians and the equation
// of time in minutes for the given day of the year, using a truncated
// Fourier series.
func solarPosition(doy int) (declination, eqTime float64) {
	g := 2 * math.Pi * float64(doy-1) / 365
	declination = 0.006918 - 0.399912*math.Cos(g) + 0.070257*math.Sin(g) -
		0.006758*math.Cos(2*g) + 0.000907*math.Sin(2*g) -
		0.002697*math.Cos(3*g) + 0.00148*math.Sin(3*g)
	eqTime = 229.18 * (0.0000075 + 0.001868*math.Cos(g) - 0.032077*math.Sin(g) -
		0.014615*math.Cos(2*g) - 0.04089*math.Sin(2*g))
	return
}

// timeZoneOffset returns the offset in hours of the nominal time zone
// containing lon, where the 24 zones are 15 degrees wide and centered
// on -165 + 15k degrees. Longitudes that are not valid return NaN.
func timeZoneOffset(lon float64) float64 {
	if !IsValid(lon) {
		return math.NaN()
	}
	var o float64
	for k := 0; k < 24; k++ {
		cm := -165.0 + 15*float64(k)
		if lon >= cm-7.5 && lon < cm+7.5 {
			o += float64(k - 11)
		}
	}
	return o
}

// CosineOfSolarZenithAngle returns the cosine of the solar zenith angle
// at each cell of g at time t. Cells with a value less than minCos, or
// without a valid location, are set to NaN.
func CosineOfSolarZenithAngle(g *CoordinateGrid, t time.Time, minCos float64) (*Field, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	t = t.UTC()
	decl, eqTime := solarPosition(t.YearDay())
	sinDecl, cosDecl := math.Sincos(decl)
	hour := float64(t.Hour()) + float64(t.Minute())/60

	ny, nx := g.Shape()
	f := NewField("cosz", CosineZenith, ny, nx)
	f.Time = t
	for k, lon := range g.Lon.Elements {
		lat := g.Lat.Elements[k]
		if !IsValid(lat) {
			f.Data.Elements[k] = math.NaN()
			continue
		}
		tz := timeZoneOffset(lon)
		omega := (math.Pi / 12) * (hour + tz - 12 + (lon-tz*15)/15 + eqTime/60)
		sinLat, cosLat := math.Sincos(lat * math.Pi / 180)
		c := sinDecl*sinLat + cosDecl*cosLat*math.Cos(omega)
		if c < minCos || math.IsNaN(c) {
			c = math.NaN()
		}
		f.Data.Elements[k] = c
	}
	return f, nil
}

// OrbitalFactor returns the ratio of the solar irradiance at time t to
// that at the mean Earth-Sun distance.
func OrbitalFactor(t time.Time) float64 {
	return 1 + 0.033*math.Cos(2*math.Pi*float64(t.UTC().YearDay())/365)
}

// ReflectanceFactorToReflectance converts a reflectance factor field,
// located on grid g, to reflectance by dividing by the cosine of the
// solar zenith angle at the time of the field. Cells where the cosine is
// less than minCos are set to NaN. ErrTypeMismatch is returned if f
// is not a reflectance factor.
func ReflectanceFactorToReflectance(f *Field, g *CoordinateGrid, minCos float64) (*Field, error) {
	if f == nil || f.Kind != ReflectanceFactor {
		var k FieldKind
		if f != nil {
			k = f.Kind
		}
		return nil, fmt.Errorf("goesgrid: conversion to reflectance needs a reflectance factor field but have %s: %w",
			k, ErrTypeMismatch)
	}
	if err := f.checkShape(g); err != nil {
		return nil, err
	}
	if f.Time.IsZero() {
		return nil, fmt.Errorf("goesgrid: reflectance factor field %s has no time", f.Name)
	}
	cosz, err := CosineOfSolarZenithAngle(g, f.Time, minCos)
	if err != nil {
		return nil, err
	}
	o := f.like()
	o.setKind(Reflectance)
	o.Missing = math.NaN()
	for k, v := range f.Data.Elements {
		if f.IsMissing(v) {
			o.Data.Elements[k] = math.NaN()
			continue
		}
		o.Data.Elements[k] = v / cosz.Data.Elements[k]
	}
	return o, nil
}
