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
	"math"
)

// InitializeFlat returns a function that builds the obstacle mask and
// fills the wind field from profile p: above the obstacles the wind
// follows the profile, and within them it is zero.
func InitializeFlat(p *Profile) DomainManipulator {
	return func(d *Domain) error {
		d.Profile = p
		d.setMask()
		g := d.Grid

		// The profile does not vary horizontally, so it only has to
		// be evaluated once per layer.
		uk := make([]float64, g.NKK+2)
		vk := make([]float64, g.NKK+2)
		for k := 1; k <= g.NKK; k++ {
			uk[k], vk[k] = p.Interpolate(g.ZSP[k])
		}
		uk[g.NKK+1], vk[g.NKK+1] = uk[g.NKK], vk[g.NKK]

		d.workers.run(g.NII+2, func(_, i int) {
			for j := 0; j <= g.NJJ+1; j++ {
				u := d.U.Column(i, j)
				v := d.V.Column(i, j)
				c := g.cidx(i, j)
				for k := g.NKK + 1; k >= 1; k-- {
					if k < d.uStart[c] {
						u[k] = 0
					} else {
						u[k] = uk[k]
					}
					if k < d.vStart[c] {
						v[k] = 0
					} else {
						v[k] = vk[k]
					}
				}
			}
		})

		d.uTop = math.Hypot(p.Interpolate(g.Top()))
		d.initialMaxSpeed = d.maxFaceSpeed()
		d.maxSpeed = d.initialMaxSpeed
		d.Closure.Init(d)
		return nil
	}
}

// setMask calculates the obstacle and sub-domain information for
// each column from d.Obstacles.
func (d *Domain) setMask() {
	g := d.Grid
	d.maxObstacleHeight = 0
	maxLayer := 0
	for i := 1; i <= g.NII; i++ {
		for j := 1; j <= g.NJJ; j++ {
			c := g.cidx(i, j)
			cut := d.Obstacles.cut[c]
			kk := 0
			for k := 1; k <= g.NKK && g.ZSP[k] <= cut; k++ {
				kk = k
			}
			d.kkart[c] = kk
			d.buiHeight[c] = g.HOKART[kk]
			d.maxObstacleHeight = math.Max(d.maxObstacleHeight, d.buiHeight[c])

			vh := d.Obstacles.vegHeight[c]
			vt := 0
			if d.Obstacles.vegDrag[c] > 0 {
				for k := 1; k <= g.NKK && g.ZSP[k] <= vh; k++ {
					vt = k
				}
			}
			d.vegTop[c] = vt
			d.vegDrag[c] = d.Obstacles.vegDrag[c]
			if kk > maxLayer {
				maxLayer = kk
			}
			if vt > maxLayer {
				maxLayer = vt
			}
		}
	}
	// The halo replicates its neighbouring columns.
	for i := 0; i <= g.NII+1; i++ {
		for j := 0; j <= g.NJJ+1; j++ {
			ii := clamp(i, 1, g.NII)
			jj := clamp(j, 1, g.NJJ)
			if ii == i && jj == j {
				continue
			}
			c, cc := g.cidx(i, j), g.cidx(ii, jj)
			d.kkart[c] = d.kkart[cc]
			d.buiHeight[c] = d.buiHeight[cc]
			d.vegTop[c] = 0
			d.vegDrag[c] = 0
		}
	}
	for i := 0; i <= g.NII+1; i++ {
		for j := 0; j <= g.NJJ+1; j++ {
			c := g.cidx(i, j)
			d.uStart[c] = d.kkart[c] + 1
			d.vStart[c] = d.kkart[c] + 1
			if i > 0 {
				d.uStart[c] = imax(d.kkart[g.cidx(i-1, j)], d.kkart[c]) + 1
			}
			if j > 0 {
				d.vStart[c] = imax(d.kkart[g.cidx(i, j-1)], d.kkart[c]) + 1
			}
		}
	}

	d.kTop = g.NKK
	if maxLayer+d.Config.MarginLayers < g.NKK {
		d.kTop = maxLayer + d.Config.MarginLayers
	}
	if d.kTop < 1 {
		d.kTop = 1
	}
	d.setSubDomain()
}

// setSubDomain marks the columns within the sub-domain radius of
// any obstacle or canopy as active.
func (d *Domain) setSubDomain() {
	g := d.Grid
	for c := range d.active {
		d.active[c] = false
	}
	r := d.Config.SubDomainRadius
	for i := 1; i <= g.NII; i++ {
		for j := 1; j <= g.NJJ; j++ {
			if r <= 0 {
				d.active[g.cidx(i, j)] = true
				continue
			}
			c := g.cidx(i, j)
			if d.kkart[c] == 0 && d.vegTop[c] == 0 {
				continue
			}
			for ii := imax(1, i-r); ii <= imin(g.NII, i+r); ii++ {
				for jj := imax(1, j-r); jj <= imin(g.NJJ, j+r); jj++ {
					d.active[g.cidx(ii, jj)] = true
				}
			}
		}
	}
}

// WakeAttenuation returns a function that reduces the wind speed
// downwind of obstacles using a logarithmic distance relation.
// Obstacles are searched for in eight directions, up to the configured
// search radius, from every column that is at least that far from the
// domain edge. Every obstacle that is taller than a cell reduces the
// wind in that cell by a factor of min(1, 0.19·ln(10·(d+0.5))), where d
// is the distance to the obstacle in meters.
func WakeAttenuation() DomainManipulator {
	return func(d *Domain) error {
		g := d.Grid
		r := d.Config.WakeSearchRadius
		if r <= 0 {
			return nil
		}
		dirs := [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
		step := [8]float64{g.DX, g.DX, g.DY, g.DY}
		diag := math.Hypot(g.DX, g.DY)
		for n := 4; n < 8; n++ {
			step[n] = diag
		}

		f := d.scratch
		f.Fill(1)
		d.workers.run(g.NII, func(_, ii int) {
			i := ii + 1
			if i <= r || i > g.NII-r {
				return
			}
			for j := r + 1; j <= g.NJJ-r; j++ {
				col := f.Column(i, j)
				kk := d.kkart[g.cidx(i, j)]
				for n, dir := range dirs {
					for m := 1; m <= r; m++ {
						kn := d.kkart[g.cidx(i+m*dir[0], j+m*dir[1])]
						if kn <= kk {
							continue
						}
						// kn blocks layers kk+1..kn of this column.
						fac := math.Min(1, 0.19*math.Log(10*(float64(m)*step[n]+0.5)))
						for k := kk + 1; k <= kn; k++ {
							col[k] *= fac
						}
						break
					}
				}
			}
		})
		for i := 1; i <= g.NII; i++ {
			for j := 1; j <= g.NJJ; j++ {
				fc := f.Column(i, j)
				u := d.U.Column(i, j)
				v := d.V.Column(i, j)
				for k := 1; k <= g.NKK; k++ {
					u[k] *= fc[k]
					v[k] *= fc[k]
				}
			}
		}
		return nil
	}
}

// ConserveMass returns a function that sets the vertical velocities so
// that the net flow out of every cell is zero, integrating upward from
// the ground or obstacle top of each column. Horizontal faces that touch
// obstacles are zeroed first.
func ConserveMass() DomainManipulator {
	return func(d *Domain) error {
		g := d.Grid
		d.applyMask()
		d.workers.run(g.NII*g.NJJ, func(_, item int) {
			i, j := item/g.NJJ+1, item%g.NJJ+1
			kk := d.kkart[g.cidx(i, j)]
			w := d.W.Column(i, j)
			ui, ue := d.U.Column(i, j), d.U.Column(i+1, j)
			vs, vn := d.V.Column(i, j), d.V.Column(i, j+1)
			for k := 0; k <= kk+1 && k <= g.NKK+1; k++ {
				w[k] = 0
			}
			for k := kk + 1; k <= g.NKK; k++ {
				horiz := ((ue[k]-ui[k])/g.DX + (vn[k]-vs[k])/g.DY) * g.DZK[k]
				w[k+1] = w[k] - horiz
			}
		})
		return nil
	}
}

// applyMask sets all velocities on faces that touch obstacles to zero.
func (d *Domain) applyMask() {
	g := d.Grid
	d.workers.run(g.NII+2, func(_, i int) {
		for j := 0; j <= g.NJJ+1; j++ {
			c := g.cidx(i, j)
			u := d.U.Column(i, j)
			v := d.V.Column(i, j)
			w := d.W.Column(i, j)
			for k := 0; k < d.uStart[c] && k <= g.NKK+1; k++ {
				u[k] = 0
			}
			for k := 0; k < d.vStart[c] && k <= g.NKK+1; k++ {
				v[k] = 0
			}
			for k := 0; k <= d.kkart[c]+1 && k <= g.NKK+1; k++ {
				w[k] = 0
			}
		}
	})
}

// maxFaceSpeed returns the largest horizontal face velocity magnitude.
func (d *Domain) maxFaceSpeed() float64 {
	g := d.Grid
	d.workers.resetMax()
	d.workers.run(g.NII+1, func(p, ii int) {
		i := ii + 1
		for j := 1; j <= g.NJJ+1; j++ {
			u := d.U.Column(i, j)
			v := d.V.Column(i, j)
			for k := 1; k <= g.NKK; k++ {
				d.workers.observe(p, math.Abs(u[k]))
				d.workers.observe(p, math.Abs(v[k]))
			}
		}
	})
	return d.workers.max()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func imax(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func imin(a, b int) int {
	if a < b {
		return a
	}
	return b
}
