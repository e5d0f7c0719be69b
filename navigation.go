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
	"strings"

	"github.com/ctessum/geom/proj"
)

// Solver specifies the method used to convert scan angles to
// geographic coordinates.
type Solver int

const (
	// Analytic solves the line-of-sight and ellipsoid intersection
	// directly, as described in the GOES-R product user guide.
	Analytic Solver = iota

	// ProjInverse uses the inverse of the ellipsoidal geostationary
	// satellite map projection with the specified sweep axis.
	ProjInverse
)

// ParseSolver returns the solver with the given name, which
// is either "analytic" or "proj".
func ParseSolver(s string) (Solver, error) {
	switch strings.ToLower(s) {
	case "analytic", "":
		return Analytic, nil
	case "proj", "geos":
		return ProjInverse, nil
	default:
		return Analytic, fmt.Errorf("goesgrid: invalid solver %q; valid options are 'analytic' and 'proj'", s)
	}
}

func (s Solver) String() string {
	if s == ProjInverse {
		return "proj"
	}
	return "analytic"
}

// ImagerProjection holds the fixed-grid projection parameters of an
// imager scan.
type ImagerProjection struct {
	// SatLon is the sub-satellite longitude in degrees.
	SatLon float64

	// SatHeight is the height of the satellite above the equator
	// (the perspective point height) in meters.
	SatHeight float64

	// SemiMajor and SemiMinor are the equatorial and polar radii of the
	// Earth ellipsoid in meters.
	SemiMajor, SemiMinor float64

	// Sweep is the sweep-angle axis, either "x" or "y".
	Sweep string
}

// EllipsoidProjection returns a projection using the radii of the named
// ellipsoid (for example "GRS80" or "WGS84").
func EllipsoidProjection(ellps string, satLon, satHeight float64, sweep string) (ImagerProjection, error) {
	sr, err := proj.Parse("+proj=longlat +ellps=" + ellps)
	if err != nil {
		return ImagerProjection{}, fmt.Errorf("goesgrid: ellipsoid %s: %v", ellps, err)
	}
	b := sr.B
	if b == 0 && sr.Rf != 0 {
		b = sr.A * (1 - 1/sr.Rf)
	}
	return ImagerProjection{
		SatLon:    satLon,
		SatHeight: satHeight,
		SemiMajor: sr.A,
		SemiMinor: b,
		Sweep:     sweep,
	}, nil
}

func (p ImagerProjection) check() error {
	if p.SatHeight <= 0 || p.SemiMajor <= 0 || p.SemiMinor <= 0 || p.SemiMinor > p.SemiMajor {
		return fmt.Errorf("goesgrid: invalid imager projection %+v: %w", p, ErrInvalidShape)
	}
	return nil
}

// Navigator converts imager scan angles to geographic coordinates.
type Navigator struct {
	Projection ImagerProjection
	Platform   Platform
	Solver     Solver
}

// Navigate returns the coordinates of the pixel centers of the scan with
// east-west scan angles x and north-south scan angles y, both in radians.
// The returned grid has len(y) rows and len(x) columns.
// Pixels where the line of sight does not intersect the Earth are set
// to Sentinel.
func (n Navigator) Navigate(x, y []float64) (*CoordinateGrid, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, fmt.Errorf("goesgrid: navigation needs non-empty scan angles but have %d x and %d y: %w",
			len(x), len(y), ErrInvalidShape)
	}
	if err := n.Projection.check(); err != nil {
		return nil, err
	}
	var g *CoordinateGrid
	switch n.Solver {
	case Analytic:
		g = n.analytic(x, y)
	case ProjInverse:
		g = n.projInverse(x, y)
	default:
		return nil, fmt.Errorf("goesgrid: invalid solver %d", n.Solver)
	}
	if n.Platform.WrapsDateline {
		for k, lon := range g.Lon.Elements {
			g.Lon.Elements[k] = n.Platform.wrap(lon)
		}
	}
	g.pairSentinels()
	return g, nil
}

// NavigateCorners returns the coordinates of the pixel corners of the scan
// with pixel-center scan angles x and y. Each axis is extended by half a
// pixel on each side before navigation, so the result has len(y)+1 rows
// and len(x)+1 columns.
func (n Navigator) NavigateCorners(x, y []float64) (*CoordinateGrid, error) {
	xc, err := cornerAngles(x)
	if err != nil {
		return nil, err
	}
	yc, err := cornerAngles(y)
	if err != nil {
		return nil, err
	}
	return n.Navigate(xc, yc)
}

// cornerAngles returns the scan angles of the edges of the pixels with
// centers at v.
func cornerAngles(v []float64) ([]float64, error) {
	if len(v) < 2 {
		return nil, fmt.Errorf("goesgrid: corner calculation needs at least 2 scan angles but has %d: %w",
			len(v), ErrInvalidShape)
	}
	d := v[1] - v[0]
	o := make([]float64, len(v)+1)
	for i, vv := range v {
		o[i] = vv - d/2
	}
	o[len(v)] = v[len(v)-1] + d/2
	return o, nil
}

// analytic navigates using the closed-form solution from the GOES-R
// product user guide, volume 3, section 5.1.2.8.
func (n Navigator) analytic(x, y []float64) *CoordinateGrid {
	p := n.Projection
	req, rpol := p.SemiMajor, p.SemiMinor
	h := p.SatHeight + req
	r2 := (req * req) / (rpol * rpol)
	lambda0 := p.SatLon * math.Pi / 180
	c := h*h - req*req

	g := NewCoordinateGrid(len(y), len(x))
	for j, yv := range y {
		siny, cosy := math.Sincos(yv)
		for i, xv := range x {
			k := j*len(x) + i
			sinx, cosx := math.Sincos(xv)
			a := sinx*sinx + cosx*cosx*(cosy*cosy+r2*siny*siny)
			b := -2 * h * cosx * cosy
			det := b*b - 4*a*c
			if det < 0 {
				g.Lon.Elements[k], g.Lat.Elements[k] = math.NaN(), math.NaN()
				continue
			}
			rs := (-b - math.Sqrt(det)) / (2 * a)
			sx := rs * cosx * cosy
			sy := -rs * sinx
			sz := rs * cosx * siny
			g.Lat.Elements[k] = math.Atan(r2*sz/math.Hypot(h-sx, sy)) * 180 / math.Pi
			g.Lon.Elements[k] = (lambda0 - math.Atan(sy/(h-sx))) * 180 / math.Pi
		}
	}
	return g
}

// projInverse navigates using the inverse ellipsoidal geostationary
// projection. With a sweep of "x" the projection is flipped so that
// the instrument scans along the x axis, as for GOES.
func (n Navigator) projInverse(x, y []float64) *CoordinateGrid {
	p := n.Projection
	radiusG1 := p.SatHeight / p.SemiMajor
	radiusG := 1 + radiusG1
	c := radiusG*radiusG - 1
	radiusP := p.SemiMinor / p.SemiMajor
	radiusPInv2 := 1 / (radiusP * radiusP)
	flip := strings.ToLower(p.Sweep) == "x"

	g := NewCoordinateGrid(len(y), len(x))
	for j, yv := range y {
		for i, xv := range x {
			k := j*len(x) + i
			vx := -1.0
			var vy, vz float64
			if flip {
				vz = math.Tan(yv)
				vy = math.Tan(xv) * math.Hypot(1, vz)
			} else {
				vy = math.Tan(xv)
				vz = math.Tan(yv) * math.Hypot(1, vy)
			}
			a := vz / radiusP
			a = vy*vy + a*a + vx*vx
			b := 2 * radiusG * vx
			det := b*b - 4*a*c
			if det < 0 {
				g.Lon.Elements[k], g.Lat.Elements[k] = math.NaN(), math.NaN()
				continue
			}
			s := (-b - math.Sqrt(det)) / (2 * a)
			vx = radiusG + s*vx
			vy *= s
			vz *= s
			lam := math.Atan2(vy, vx)
			phi := math.Atan(vz * math.Cos(lam) / vx)
			phi = math.Atan(radiusPInv2 * math.Tan(phi))
			g.Lon.Elements[k] = math.Remainder(lam*180/math.Pi+p.SatLon, 360)
			g.Lat.Elements[k] = phi * 180 / math.Pi
		}
	}
	return g
}
