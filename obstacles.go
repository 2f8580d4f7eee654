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

package microflow

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// Building is a building footprint with a uniform height.
type Building struct {
	geom.Polygon
	Height float64 // [m]
}

// Vegetation is an area covered by a plant canopy.
type Vegetation struct {
	geom.Polygon
	Height float64 // canopy height [m]

	// Drag is the product of the canopy drag coefficient and the
	// leaf area density [1/m].
	Drag float64
}

// Obstacles holds the obstacle information for every column in a grid.
type Obstacles struct {
	g *Grid

	cut       []float64 // obstacle cut height [m]
	vegHeight []float64 // canopy height [m]
	vegDrag   []float64 // canopy drag [1/m]
}

// NewObstacles returns an obstacle-free set of columns for g.
func (g *Grid) NewObstacles() *Obstacles {
	return &Obstacles{
		g:         g,
		cut:       make([]float64, g.ncol()),
		vegHeight: make([]float64, g.ncol()),
		vegDrag:   make([]float64, g.ncol()),
	}
}

// SetBuilding raises the obstacle cut height of column (i, j) to h,
// if h is higher than the current cut height.
func (o *Obstacles) SetBuilding(i, j int, h float64) {
	c := o.g.cidx(i, j)
	o.cut[c] = math.Max(o.cut[c], h)
}

// SetVegetation sets the canopy of column (i, j). Where canopies overlap
// the taller canopy and the larger drag are kept.
func (o *Obstacles) SetVegetation(i, j int, h, drag float64) {
	c := o.g.cidx(i, j)
	o.vegHeight[c] = math.Max(o.vegHeight[c], h)
	o.vegDrag[c] = math.Max(o.vegDrag[c], drag)
}

// Cut returns the obstacle cut height of column (i, j).
func (o *Obstacles) Cut(i, j int) float64 { return o.cut[o.g.cidx(i, j)] }

// Canopy returns the canopy height and drag of column (i, j).
func (o *Obstacles) Canopy(i, j int) (height, drag float64) {
	c := o.g.cidx(i, j)
	return o.vegHeight[c], o.vegDrag[c]
}

// Rasterize returns the obstacle information created by assigning
// each building and vegetation area to the columns whose centres
// fall within it.
func (g *Grid) Rasterize(buildings []Building, vegetation []Vegetation) (*Obstacles, error) {
	o := g.NewObstacles()

	bTree := rtree.NewTree(25, 50)
	for i := range buildings {
		b := &buildings[i]
		if !(b.Height >= 0) {
			return nil, fmt.Errorf("microflow: building %d has invalid height %g", i, b.Height)
		}
		bTree.Insert(b)
	}
	vTree := rtree.NewTree(25, 50)
	for i := range vegetation {
		v := &vegetation[i]
		if !(v.Height >= 0) || !(v.Drag >= 0) {
			return nil, fmt.Errorf("microflow: vegetation area %d has invalid height %g or drag %g", i, v.Height, v.Drag)
		}
		vTree.Insert(v)
	}

	for i := 1; i <= g.NII; i++ {
		for j := 1; j <= g.NJJ; j++ {
			x, y := g.CellCenter(i, j)
			p := geom.Point{X: x, Y: y}
			for _, bI := range bTree.SearchIntersect(p.Bounds()) {
				b := bI.(*Building)
				if p.Within(b.Polygon) != geom.Outside {
					o.SetBuilding(i, j, b.Height)
				}
			}
			for _, vI := range vTree.SearchIntersect(p.Bounds()) {
				v := vI.(*Vegetation)
				if p.Within(v.Polygon) != geom.Outside {
					o.SetVegetation(i, j, v.Height, v.Drag)
				}
			}
		}
	}
	return o, nil
}
