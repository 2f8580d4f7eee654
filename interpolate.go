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

// CellVelocity returns the wind at the centre of cell (i, j, k),
// averaged from the velocities on its faces.
func (d *Domain) CellVelocity(i, j, k int) (u, v, w float64) {
	u, v = d.cellUV(i, j, k)
	return u, v, d.cellW(i, j, k)
}

// WindAt returns the wind at position (x, y) and height z above ground,
// taken from the cell that contains the position. ok is false if the
// position is outside of the domain.
func (d *Domain) WindAt(x, y, z float64) (u, v, w float64, ok bool) {
	g := d.Grid
	i, j, inside := g.Column(x, y)
	if !inside || z < 0 || z > g.Top() {
		return 0, 0, 0, false
	}
	k := BinarySearch(g.HOKART, z)
	u, v, w = d.CellVelocity(i, j, k)
	return u, v, w, true
}
