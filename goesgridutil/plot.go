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
	"fmt"
	"math"

	"github.com/spatialmodel/goesgrid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// fieldGrid adapts a field to plotter.GridXYZ. The first row of the
// field, which is the northernmost, is drawn at the top.
type fieldGrid struct {
	f *goesgrid.Field
}

func (g fieldGrid) Dims() (c, r int) {
	ny, nx := g.f.Shape()
	return nx, ny
}

func (g fieldGrid) Z(c, r int) float64 {
	ny, nx := g.f.Shape()
	v := g.f.Data.Elements[(ny-1-r)*nx+c]
	if g.f.IsMissing(v) {
		return math.NaN()
	}
	return v
}

func (g fieldGrid) X(c int) float64 {
	return float64(g.f.Limits.XMin + c)
}

func (g fieldGrid) Y(r int) float64 {
	ny, _ := g.f.Shape()
	return -float64(g.f.Limits.YMin + ny - 1 - r)
}

// plotField saves a heat map of f to filename. The image format is
// chosen from the file extension.
func plotField(f *goesgrid.Field, filename string) error {
	ny, nx := f.Shape()
	if ny < 2 || nx < 2 {
		return fmt.Errorf("goesgridutil: field %s is too small to plot (%dx%d)", f.Name, ny, nx)
	}
	var finite bool
	for _, v := range f.Data.Elements {
		if !f.IsMissing(v) && !math.IsInf(v, 0) {
			finite = true
			break
		}
	}
	if !finite {
		return fmt.Errorf("goesgridutil: field %s has no data to plot", f.Name)
	}

	cm := moreland.ExtendedBlackBody()
	cm.SetMin(0)
	cm.SetMax(1)
	h := plotter.NewHeatMap(fieldGrid{f: f}, cm.Palette(255))
	if h.Max == h.Min {
		h.Max = h.Min + 1
	}

	p := plot.New()
	p.Title.Text = f.Name
	if f.Units != "" {
		p.Title.Text += " [" + f.Units + "]"
	}
	p.X.Label.Text = "x pixel"
	p.Y.Label.Text = "-y pixel"
	p.Add(h)

	width := 8 * vg.Inch
	height := width * vg.Length(ny) / vg.Length(nx)
	if height < 3*vg.Inch {
		height = 3 * vg.Inch
	} else if height > 12*vg.Inch {
		height = 12 * vg.Inch
	}
	if err := p.Save(width, height, filename); err != nil {
		return fmt.Errorf("goesgridutil: saving plot: %v", err)
	}
	return nil
}
