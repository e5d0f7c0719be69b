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
	"os"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// wgs84 is the well-known text of the geographic coordinate system that
// gridmaps are defined in.
const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// densityCell is a shapefile record for one gridmap cell.
type densityCell struct {
	geom.Polygon
	Row, Col, Count int
}

// WriteDensityShapefile writes a polygon shapefile to filename with one
// record for each cell of density that has a non-zero count. c holds the
// corner coordinates of the gridmap the density was accumulated in.
// A projection file is written alongside the shapefile.
func WriteDensityShapefile(filename string, c *CoordinateGrid, density *DensityGrid) error {
	if err := c.check(); err != nil {
		return err
	}
	ny, nx := c.Shape()
	if density == nil || density.Ny != ny-1 || density.Nx != nx-1 {
		return fmt.Errorf("goesgrid: density grid does not match %dx%d gridmap corners: %w", ny, nx, ErrInvalidShape)
	}
	e, err := shp.NewEncoder(filename, densityCell{})
	if err != nil {
		return fmt.Errorf("goesgrid: creating density shapefile: %v", err)
	}
	pt := func(j, i int) geom.Point {
		k := j*nx + i
		return geom.Point{X: c.Lon.Elements[k], Y: c.Lat.Elements[k]}
	}
	for j := 0; j < density.Ny; j++ {
		for i := 0; i < density.Nx; i++ {
			n := density.At(j, i)
			if n == 0 {
				continue
			}
			// Row 0 is the northern edge, so this ring is clockwise.
			rec := densityCell{
				Polygon: geom.Polygon{{pt(j, i), pt(j, i+1), pt(j+1, i+1), pt(j+1, i), pt(j, i)}},
				Row:     j,
				Col:     i,
				Count:   int(n),
			}
			if err = e.Encode(rec); err != nil {
				e.Close()
				return fmt.Errorf("goesgrid: writing density shapefile: %v", err)
			}
		}
	}
	e.Close()

	prj := strings.TrimSuffix(filename, ".shp") + ".prj"
	if err := os.WriteFile(prj, []byte(wgs84), 0644); err != nil {
		return fmt.Errorf("goesgrid: writing density shapefile projection: %v", err)
	}
	return nil
}
