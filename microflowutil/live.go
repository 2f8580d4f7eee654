/*
Copyright © 2019 the microflow authors.
This file is part of microflow.

microflow is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

microflow is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with microflow.  If not, see <http://www.gnu.org/licenses/>.
*/

package microflowutil

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/spatialmodel/microflow"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// speedGrid presents the horizontal wind speed at one layer of a
// domain as a plotter.GridXYZ.
type speedGrid struct {
	d *microflow.Domain
	k int
}

func (s speedGrid) Dims() (c, r int) { return s.d.Grid.NII, s.d.Grid.NJJ }

func (s speedGrid) Z(c, r int) float64 {
	u, v, _ := s.d.CellVelocity(c+1, r+1, s.k)
	return math.Hypot(u, v)
}

func (s speedGrid) X(c int) float64 {
	x, _ := s.d.Grid.CellCenter(c+1, 1)
	return x
}

func (s speedGrid) Y(r int) float64 {
	_, y := s.d.Grid.CellCenter(1, r+1)
	return y
}

// LiveImage returns a function that draws the horizontal wind speed at
// layer k as a PNG image in directory dir. It is meant to be used as
// microflow.Domain.LiveOutput. If k is outside of the grid, the lowest
// layer is drawn.
func LiveImage(dir, situation string, k int) func(iteration int, d *microflow.Domain) error {
	return func(iteration int, d *microflow.Domain) error {
		layer := k
		if layer < 1 || layer > d.Grid.NKK {
			layer = 1
		}
		p, err := plot.New()
		if err != nil {
			return err
		}
		p.Title.Text = fmt.Sprintf("%s: wind speed at %.1f m, iteration %d",
			situation, d.Grid.ZSP[layer], iteration)
		p.X.Label.Text = "x [m]"
		p.Y.Label.Text = "y [m]"
		p.Add(plotter.NewHeatMap(speedGrid{d: d, k: layer}, palette.Heat(12, 1)))

		f := filepath.Join(dir, fmt.Sprintf("%s_%06d.png", situation, iteration))
		return p.Save(6*vg.Inch, 6*vg.Inch, f)
	}
}
