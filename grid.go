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
)

// Grid describes the structured staggered mesh that the wind field is
// calculated on. Columns (i, j) and layers k are 1-based; every array
// built from a Grid carries a one-cell halo on each side, so valid
// indices run from 0 to NII+1, NJJ+1 and NKK+1.
type Grid struct {
	NII, NJJ, NKK int // number of columns in x and y, number of layers

	DX, DY float64 // horizontal cell size [m]
	X0, Y0 float64 // south-west corner of the domain [m]

	// HOKART holds the heights of the layer tops above ground [m].
	// HOKART[0] is always 0.
	HOKART []float64

	// DZK is the thickness of each layer [m], including the halo.
	DZK []float64

	// ZSP is the height of each layer centre above ground [m],
	// including the halo.
	ZSP []float64
}

// NewGrid creates a new grid with nii × njj columns of size dx × dy whose
// south-west corner is at (x0, y0). layerTops are the heights of the top of
// each vertical layer, starting with the lowest layer, and must be strictly
// increasing.
func NewGrid(nii, njj int, dx, dy, x0, y0 float64, layerTops []float64) (*Grid, error) {
	if nii < 1 || njj < 1 {
		return nil, fmt.Errorf("microflow: grid must have at least one column in each direction; got %d×%d", nii, njj)
	}
	if !(dx > 0) || !(dy > 0) {
		return nil, fmt.Errorf("microflow: grid cell size must be > 0; got dx=%g, dy=%g", dx, dy)
	}
	if len(layerTops) == 0 {
		return nil, fmt.Errorf("microflow: grid must have at least one vertical layer")
	}
	g := &Grid{
		NII:    nii,
		NJJ:    njj,
		NKK:    len(layerTops),
		DX:     dx,
		DY:     dy,
		X0:     x0,
		Y0:     y0,
		HOKART: make([]float64, len(layerTops)+1),
	}
	copy(g.HOKART[1:], layerTops)
	for k := 1; k <= g.NKK; k++ {
		if !(g.HOKART[k] > g.HOKART[k-1]) {
			return nil, fmt.Errorf("microflow: layer tops must be strictly increasing and > 0; layer %d top=%g, below=%g",
				k, g.HOKART[k], g.HOKART[k-1])
		}
	}
	g.DZK = make([]float64, g.NKK+2)
	g.ZSP = make([]float64, g.NKK+2)
	for k := 1; k <= g.NKK; k++ {
		g.DZK[k] = g.HOKART[k] - g.HOKART[k-1]
		g.ZSP[k] = g.HOKART[k-1] + g.DZK[k]/2
	}
	g.DZK[0] = g.DZK[1]
	g.DZK[g.NKK+1] = g.DZK[g.NKK]
	g.ZSP[0] = -g.ZSP[1]
	g.ZSP[g.NKK+1] = g.HOKART[g.NKK] + g.DZK[g.NKK]/2
	return g, nil
}

// UniformLayers returns the layer tops for n layers of thickness dz.
func UniformLayers(n int, dz float64) []float64 {
	o := make([]float64, n)
	for k := range o {
		o[k] = float64(k+1) * dz
	}
	return o
}

// StretchedLayers returns the layer tops for n layers where the lowest
// layer is dz0 thick and each following layer is stretch times thicker
// than the one below it.
func StretchedLayers(n int, dz0, stretch float64) []float64 {
	o := make([]float64, n)
	z, dz := 0., dz0
	for k := range o {
		z += dz
		o[k] = z
		dz *= stretch
	}
	return o
}

// Top returns the height of the domain top [m].
func (g *Grid) Top() float64 { return g.HOKART[g.NKK] }

// ncol returns the number of columns including the halo.
func (g *Grid) ncol() int { return (g.NII + 2) * (g.NJJ + 2) }

// cidx returns the index of column (i, j) in per-column arrays.
func (g *Grid) cidx(i, j int) int { return i*(g.NJJ+2) + j }

// CellCenter returns the horizontal coordinates of the centre of column (i, j).
func (g *Grid) CellCenter(i, j int) (x, y float64) {
	return g.X0 + (float64(i)-0.5)*g.DX, g.Y0 + (float64(j)-0.5)*g.DY
}

// Column returns the column that contains the horizontal position (x, y)
// and whether that position is within the domain.
func (g *Grid) Column(x, y float64) (i, j int, ok bool) {
	fi := (x - g.X0) / g.DX
	fj := (y - g.Y0) / g.DY
	if fi < 0 || fj < 0 || fi >= float64(g.NII) || fj >= float64(g.NJJ) || math.IsNaN(fi) || math.IsNaN(fj) {
		return 0, 0, false
	}
	return int(fi) + 1, int(fj) + 1, true
}

// minSpacing returns the smallest cell dimension in the grid.
func (g *Grid) minSpacing() float64 {
	m := math.Min(g.DX, g.DY)
	for k := 1; k <= g.NKK; k++ {
		m = math.Min(m, g.DZK[k])
	}
	return m
}

// Field is a 3-D array of values on the grid, including the halo.
// Values are stored contiguously in k so that a vertical column can be
// accessed as a slice.
type Field struct {
	Data       []float64
	ni, nj, nk int
}

// NewField allocates a zero-valued field on the grid.
func (g *Grid) NewField() *Field {
	ni, nj, nk := g.NII+2, g.NJJ+2, g.NKK+2
	return &Field{
		Data: make([]float64, ni*nj*nk),
		ni:   ni,
		nj:   nj,
		nk:   nk,
	}
}

// Index returns the location of (i, j, k) in f.Data.
func (f *Field) Index(i, j, k int) int { return (i*f.nj+j)*f.nk + k }

// At returns the value at (i, j, k).
func (f *Field) At(i, j, k int) float64 { return f.Data[(i*f.nj+j)*f.nk+k] }

// Set sets the value at (i, j, k).
func (f *Field) Set(v float64, i, j, k int) { f.Data[(i*f.nj+j)*f.nk+k] = v }

// Column returns the vertical column (i, j) as a slice indexed by k.
// Changes to the returned slice change the field.
func (f *Field) Column(i, j int) []float64 {
	s := (i*f.nj + j) * f.nk
	return f.Data[s : s+f.nk]
}

// Zero sets all values to zero.
func (f *Field) Zero() {
	for i := range f.Data {
		f.Data[i] = 0
	}
}

// Fill sets all values to v.
func (f *Field) Fill(v float64) {
	for i := range f.Data {
		f.Data[i] = v
	}
}

// CopyFrom copies the values of o into f. The fields must
// have been allocated on the same grid.
func (f *Field) CopyFrom(o *Field) { copy(f.Data, o.Data) }
