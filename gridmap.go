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
	"context"
	"fmt"
	"io"
	"math"
	"runtime"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// KmPerDegree is the approximate length of one degree of latitude.
const KmPerDegree = 111.0

// CreateGridmap returns the corner coordinates of an equirectangular grid
// covering region r with cells that are resolution kilometers wide.
// Row 0 is the northern edge of the grid. The number of cells in each
// direction is rounded up, so the grid may extend past the east and
// south edges of r.
func CreateGridmap(r RegionBounds, resolution float64) (*CoordinateGrid, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if !(resolution > 0) {
		return nil, fmt.Errorf("goesgrid: gridmap resolution must be positive but is %g", resolution)
	}
	step := resolution / KmPerDegree
	nx := int(math.Ceil((r.East - r.West) * KmPerDegree / resolution))
	ny := int(math.Ceil((r.North - r.South) * KmPerDegree / resolution))
	g := NewCoordinateGrid(ny+1, nx+1)
	for j := 0; j <= ny; j++ {
		lat := r.North - float64(j)*step
		for i := 0; i <= nx; i++ {
			k := j*(nx+1) + i
			g.Lon.Elements[k] = r.West + float64(i)*step
			g.Lat.Elements[k] = lat
		}
	}
	return g, nil
}

// gridmapAxes returns the center longitudes of the columns and the
// center latitudes of the rows of the equirectangular gridmap with corner
// coordinates c.
func gridmapAxes(c *CoordinateGrid) (lon, lat []float64, err error) {
	if err = c.check(); err != nil {
		return
	}
	ny, nx := c.Shape()
	if ny < 2 || nx < 2 {
		return nil, nil, fmt.Errorf("goesgrid: gridmap corners must be at least 2x2 but are %dx%d: %w",
			ny, nx, ErrInvalidShape)
	}
	dx := c.Lon.Elements[1] - c.Lon.Elements[0]
	dy := c.Lat.Elements[nx] - c.Lat.Elements[0]
	lon = make([]float64, nx-1)
	for i := range lon {
		lon[i] = c.Lon.Elements[i] + dx/2
	}
	lat = make([]float64, ny-1)
	for j := range lat {
		lat[j] = c.Lat.Elements[j*nx] + dy/2
	}
	return lon, lat, nil
}

// GridmapCenters returns the cell-center coordinates of the gridmap with
// corner coordinates c.
func GridmapCenters(c *CoordinateGrid) (*CoordinateGrid, error) {
	lon, lat, err := gridmapAxes(c)
	if err != nil {
		return nil, err
	}
	g := NewCoordinateGrid(len(lat), len(lon))
	for j, y := range lat {
		for i, x := range lon {
			g.Lon.Elements[j*len(lon)+i] = x
			g.Lat.Elements[j*len(lon)+i] = y
		}
	}
	return g, nil
}

// Accumulator counts point observations in the cells of a gridmap.
// Each point is assigned to the cell with the nearest center.
//
// To avoid calculating the distance between every point and every
// cell, the gridmap is split into tiles of TileX by TileY cells and
// each point is only compared with the cells of the tiles whose corner
// bounding boxes contain it. The points of a tile are processed in
// chunks of TileZ points. The tile and chunk sizes only affect speed
// and memory use, not the result.
type Accumulator struct {
	TileX, TileY, TileZ int

	// Workers is the number of tiles processed concurrently.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int

	// Log receives debugging messages. If it is nil, nothing is
	// logged.
	Log logrus.FieldLogger
}

// These are the default tiling parameters.
const (
	DefaultTileX = 50
	DefaultTileY = 50
	DefaultTileZ = 200
)

// Accumulate counts the points in p in the cells of the gridmap with
// corner coordinates c using the default settings.
func Accumulate(p *PointCloud, c *CoordinateGrid) (*DensityGrid, error) {
	var a Accumulator
	return a.Accumulate(context.Background(), p, c)
}

var discardLogger = &logrus.Logger{Out: io.Discard, Formatter: new(logrus.TextFormatter), Hooks: make(logrus.LevelHooks), Level: logrus.PanicLevel}

// indexedPoint is a point observation that can be stored in a
// spatial index.
type indexedPoint struct {
	geom.Point
	i int
}

// tile is a rectangular block of gridmap cells.
type tile struct {
	x0, x1, y0, y1 int // center indices, end exclusive
	points         []int
}

// candidate is the nearest cell to a point within one tile.
type candidate struct {
	point int
	cell  int
	dist  float64
}

// Accumulate counts the points in p in the cells of the gridmap with
// corner coordinates c. The returned grid has the shape of the gridmap
// cell centers. Points outside of the gridmap are ignored.
func (a *Accumulator) Accumulate(ctx context.Context, p *PointCloud, c *CoordinateGrid) (*DensityGrid, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	lonCen, latCen, err := gridmapAxes(c)
	if err != nil {
		return nil, err
	}
	log := a.Log
	if log == nil {
		log = discardLogger
	}
	tx, ty, tz := a.TileX, a.TileY, a.TileZ
	if tx < 1 {
		tx = DefaultTileX
	}
	if ty < 1 {
		ty = DefaultTileY
	}
	if tz < 1 {
		tz = DefaultTileZ
	}
	workers := a.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	ny, nx := len(latCen), len(lonCen)
	density := NewDensityGrid(ny, nx)
	nxc := nx + 1
	cornerLon := func(i int) float64 { return c.Lon.Elements[i] }
	cornerLat := func(j int) float64 { return c.Lat.Elements[j*nxc] }
	extent := &geom.Bounds{
		Min: geom.Point{X: cornerLon(0), Y: cornerLat(ny)},
		Max: geom.Point{X: cornerLon(nx), Y: cornerLat(0)},
	}

	index := rtree.NewTree(25, 50)
	var inside int
	for i, lon := range p.Lon {
		pt := geom.Point{X: lon, Y: p.Lat[i]}
		if pt.X >= extent.Min.X && pt.X <= extent.Max.X && pt.Y >= extent.Min.Y && pt.Y <= extent.Max.Y {
			index.Insert(&indexedPoint{Point: pt, i: i})
			inside++
		}
	}
	log.WithFields(logrus.Fields{"points": p.Len(), "inside": inside}).Debug("goesgrid: accumulating points in gridmap")
	if inside == 0 {
		return density, nil
	}

	var tiles []*tile
	for y0 := 0; y0 < ny; y0 += ty {
		for x0 := 0; x0 < nx; x0 += tx {
			t := &tile{x0: x0, x1: min(x0+tx, nx), y0: y0, y1: min(y0+ty, ny)}
			b := geom.NewBounds()
			b.Extend(&geom.Bounds{
				Min: geom.Point{X: cornerLon(t.x0), Y: cornerLat(t.y0)},
				Max: geom.Point{X: cornerLon(t.x0), Y: cornerLat(t.y0)},
			})
			b.Extend(&geom.Bounds{
				Min: geom.Point{X: cornerLon(t.x1), Y: cornerLat(t.y1)},
				Max: geom.Point{X: cornerLon(t.x1), Y: cornerLat(t.y1)},
			})
			for _, s := range index.SearchIntersect(b) {
				t.points = append(t.points, s.(*indexedPoint).i)
			}
			if len(t.points) > 0 {
				tiles = append(tiles, t)
			}
		}
	}

	results := make([][]candidate, len(tiles))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for ti, t := range tiles {
		ti, t := ti, t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[ti] = t.nearest(p, lonCen, latCen, tz)
			log.WithFields(logrus.Fields{
				"tile":   ti,
				"points": len(t.points),
				"cells":  (t.x1 - t.x0) * (t.y1 - t.y0),
			}).Debug("goesgrid: accumulated tile")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A point on the edge between tiles is a candidate in each of them;
	// keep the closest cell, or the first in row-major order if equally
	// close.
	best := make(map[int]candidate, inside)
	for _, r := range results {
		for _, cd := range r {
			b, ok := best[cd.point]
			if !ok || cd.dist < b.dist || (cd.dist == b.dist && cd.cell < b.cell) {
				best[cd.point] = cd
			}
		}
	}
	for _, cd := range best {
		density.Counts[cd.cell]++
	}
	return density, nil
}

// nearest returns the nearest cell in t to each of the points of t.
// Distances are calculated for chunks of chunk points at a time.
func (t *tile) nearest(p *PointCloud, lonCen, latCen []float64, chunk int) []candidate {
	w := t.x1 - t.x0
	cells := w * (t.y1 - t.y0)
	nx := len(lonCen)
	o := make([]candidate, 0, len(t.points))
	dist := make([]float64, min(chunk, len(t.points))*cells)
	for c0 := 0; c0 < len(t.points); c0 += chunk {
		pts := t.points[c0:min(c0+chunk, len(t.points))]
		for n, pi := range pts {
			d := dist[n*cells : (n+1)*cells]
			for j := t.y0; j < t.y1; j++ {
				for i := t.x0; i < t.x1; i++ {
					d[(j-t.y0)*w+i-t.x0] = math.Hypot(lonCen[i]-p.Lon[pi], latCen[j]-p.Lat[pi])
				}
			}
		}
		for n, pi := range pts {
			d := dist[n*cells : (n+1)*cells]
			k := floats.MinIdx(d)
			o = append(o, candidate{
				point: pi,
				cell:  (t.y0+k/w)*nx + t.x0 + k%w,
				dist:  d[k],
			})
		}
	}
	return o
}
