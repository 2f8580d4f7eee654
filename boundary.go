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

// BoundaryConditions returns a function that sets the velocities on the
// edges of the solved region. Where the flow leaves the region the edge
// velocity is copied from the face two cells inward, or from the adjacent
// face if the region is a single cell wide there; where it enters, the
// edge keeps its value. The top ghost layer duplicates the highest layer.
func BoundaryConditions() DomainManipulator {
	return func(d *Domain) error {
		g := d.Grid
		// West and east edges, one row at a time.
		d.workers.run(g.NJJ, func(_, jj int) {
			j := jj + 1
			for i := 1; i <= g.NII+1; i++ {
				west := i > 1 && d.active[g.cidx(i-1, j)]
				east := i <= g.NII && d.active[g.cidx(i, j)]
				if west == east {
					continue
				}
				u := d.U.Column(i, j)
				k0 := d.uStart[g.cidx(i, j)]
				if east {
					src := i + 1
					if i+1 <= g.NII && d.active[g.cidx(i+1, j)] {
						src = i + 2
					}
					in := d.U.Column(src, j)
					for k := k0; k <= g.NKK; k++ {
						if in[k] < 0 {
							u[k] = in[k]
						}
					}
				} else {
					src := i - 1
					if i-2 >= 1 && d.active[g.cidx(i-2, j)] {
						src = i - 2
					}
					in := d.U.Column(src, j)
					for k := k0; k <= g.NKK; k++ {
						if in[k] > 0 {
							u[k] = in[k]
						}
					}
				}
			}
		})
		// South and north edges, one column line at a time.
		d.workers.run(g.NII, func(_, ii int) {
			i := ii + 1
			for j := 1; j <= g.NJJ+1; j++ {
				south := j > 1 && d.active[g.cidx(i, j-1)]
				north := j <= g.NJJ && d.active[g.cidx(i, j)]
				if south == north {
					continue
				}
				v := d.V.Column(i, j)
				k0 := d.vStart[g.cidx(i, j)]
				if north {
					src := j + 1
					if j+1 <= g.NJJ && d.active[g.cidx(i, j+1)] {
						src = j + 2
					}
					in := d.V.Column(i, src)
					for k := k0; k <= g.NKK; k++ {
						if in[k] < 0 {
							v[k] = in[k]
						}
					}
				} else {
					src := j - 1
					if j-2 >= 1 && d.active[g.cidx(i, j-2)] {
						src = j - 2
					}
					in := d.V.Column(i, src)
					for k := k0; k <= g.NKK; k++ {
						if in[k] > 0 {
							v[k] = in[k]
						}
					}
				}
			}
		})
		// Top ghost layer.
		top := g.NKK + 1
		d.workers.run(g.NII+2, func(_, i int) {
			for j := 0; j <= g.NJJ+1; j++ {
				u := d.U.Column(i, j)
				v := d.V.Column(i, j)
				u[top] = u[top-1]
				v[top] = v[top-1]
			}
		})
		return nil
	}
}
