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

import "math"

// Horizontal sweep directions for the pressure correction.
const (
	sweepEast  = 1 // rows, west to east
	sweepWest  = 2 // rows, east to west
	sweepNorth = 3 // columns, south to north
	sweepSouth = 4 // columns, north to south
)

// PressureCorrection returns a function that calculates the pressure
// correction needed to remove the divergence of the current velocity field,
// adds the relaxed correction to the pressure, and corrects the velocities.
func PressureCorrection() DomainManipulator {
	return func(d *Domain) error {
		d.dt = d.Config.Courant * d.Grid.minSpacing() / math.Max(d.maxSpeed, 0.1)
		d.divergence()
		d.PC.Zero()
		for s := 0; s < d.Config.PressureSweeps; s++ {
			d.pressureSweep((d.Direction-1+s)%4 + 1)
		}
		d.updatePressure()
		d.correctVelocities()
		return nil
	}
}

// solvable returns whether column (i, j) has any free cells in the
// solved region.
func (d *Domain) solvable(i, j int) bool {
	c := d.Grid.cidx(i, j)
	return d.active[c] && d.kkart[c] < d.kTop
}

// uInterior returns whether the west face of column (i, j) lies between
// two active columns, so that its velocity is calculated rather than
// being set by a boundary condition.
func (d *Domain) uInterior(i, j int) bool {
	g := d.Grid
	return i > 1 && i <= g.NII && j >= 1 && j <= g.NJJ &&
		d.active[g.cidx(i-1, j)] && d.active[g.cidx(i, j)]
}

// vInterior is the south-face equivalent of uInterior.
func (d *Domain) vInterior(i, j int) bool {
	g := d.Grid
	return j > 1 && j <= g.NJJ && i >= 1 && i <= g.NII &&
		d.active[g.cidx(i, j-1)] && d.active[g.cidx(i, j)]
}

// divergence calculates the net volume flow out of every free cell
// in the solved region.
func (d *Domain) divergence() {
	g := d.Grid
	d.workers.run(g.NII*g.NJJ, func(_, item int) {
		i, j := item/g.NJJ+1, item%g.NJJ+1
		if !d.solvable(i, j) {
			return
		}
		div := d.div.Column(i, j)
		ui, ue := d.U.Column(i, j), d.U.Column(i+1, j)
		vs, vn := d.V.Column(i, j), d.V.Column(i, j+1)
		w := d.W.Column(i, j)
		for k := d.kkart[g.cidx(i, j)] + 1; k <= d.kTop; k++ {
			div[k] = (ue[k]-ui[k])*g.DY*g.DZK[k] +
				(vn[k]-vs[k])*g.DX*g.DZK[k] +
				(w[k+1]-w[k])*g.DX*g.DY
		}
	})
}

// pressureSweep carries out one line-by-line sweep of the pressure
// correction equation in the given direction. Lines perpendicular to the
// sweep are solved concurrently; within a line, columns are visited in
// sweep order and use the corrections just calculated for their upstream
// neighbour. Corrections from neighbouring lines come from the previous
// sweep.
func (d *Domain) pressureSweep(dir int) {
	g := d.Grid
	d.pc0.CopyFrom(d.PC)
	switch dir {
	case sweepEast, sweepWest:
		d.workers.run(g.NJJ, func(p, jj int) {
			j := jj + 1
			for n := 0; n < g.NII; n++ {
				i := n + 1
				if dir == sweepWest {
					i = g.NII - n
				}
				d.pressureColumn(d.workers.lines[p], i, j, d.PC, d.pc0)
			}
		})
	case sweepNorth, sweepSouth:
		d.workers.run(g.NII, func(p, ii int) {
			i := ii + 1
			for n := 0; n < g.NJJ; n++ {
				j := n + 1
				if dir == sweepSouth {
					j = g.NJJ - n
				}
				d.pressureColumn(d.workers.lines[p], i, j, d.pc0, d.PC)
			}
		})
	}
}

// pressureColumn solves the pressure correction equation along
// column (i, j). East-west neighbour values are read from ew and
// north-south neighbour values from ns.
func (d *Domain) pressureColumn(l *line, i, j int, ew, ns *Field) {
	if !d.solvable(i, j) {
		return
	}
	g := d.Grid
	ks := d.kkart[g.cidx(i, j)] + 1
	uw, ue := d.uInterior(i, j), d.uInterior(i+1, j)
	vs, vn := d.vInterior(i, j), d.vInterior(i, j+1)
	kuw, kue := d.uStart[g.cidx(i, j)], d.uStart[g.cidx(i+1, j)]
	kvs, kvn := d.vStart[g.cidx(i, j)], d.vStart[g.cidx(i, j+1)]
	pw, pe := ew.Column(i-1, j), ew.Column(i+1, j)
	ps, pn := ns.Column(i, j-1), ns.Column(i, j+1)
	div := d.div.Column(i, j)
	dt := d.dt

	for k := ks; k <= d.kTop; k++ {
		var aE, aW, aN, aS, aT, aB float64
		ax := dt * g.DY * g.DZK[k] / g.DX
		ay := dt * g.DX * g.DZK[k] / g.DY
		if ue && k >= kue {
			aE = ax
		}
		if uw && k >= kuw {
			aW = ax
		}
		if vn && k >= kvn {
			aN = ay
		}
		if vs && k >= kvs {
			aS = ay
		}
		// Above the solved region the correction is zero, but the
		// top face can still carry flow.
		aT = dt * g.DX * g.DY / (0.5 * (g.DZK[k] + g.DZK[k+1]))
		if k > ks {
			aB = dt * g.DX * g.DY / (0.5 * (g.DZK[k-1] + g.DZK[k]))
		}
		l.AP[k] = aE + aW + aN + aS + aT + aB
		l.B[k] = aE*pe[k] + aW*pw[k] + aN*pn[k] + aS*ps[k] - div[k]
		l.AT[k] = aT
		l.AB[k] = aB
	}
	l.solve(d.PC.Column(i, j), ks, d.kTop)
}

// updatePressure adds the relaxed pressure correction to the running
// pressure, rounding the result, and records the largest change.
func (d *Domain) updatePressure() {
	g := d.Grid
	fr := d.frund
	relax := d.Config.RelaxPressure
	d.workers.resetMax()
	d.workers.run(g.NII*g.NJJ, func(p, item int) {
		i, j := item/g.NJJ+1, item%g.NJJ+1
		if !d.solvable(i, j) {
			return
		}
		pr := d.P.Column(i, j)
		dp := d.DP.Column(i, j)
		pc := d.PC.Column(i, j)
		for k := d.kkart[g.cidx(i, j)] + 1; k <= d.kTop; k++ {
			pNew := quantize(pr[k]+relax*pc[k], fr)
			dp[k] = pNew - pr[k]
			pr[k] = pNew
			d.workers.observe(p, math.Abs(dp[k]))
		}
	})
	d.dUMax = d.workers.max()
}

// correctVelocities adjusts the velocities on the faces of the solved
// region by the gradient of the latest pressure change.
func (d *Domain) correctVelocities() {
	g := d.Grid
	fr := d.frund
	dt := d.dt
	d.workers.run(g.NII*g.NJJ, func(_, item int) {
		i, j := item/g.NJJ+1, item%g.NJJ+1
		c := g.cidx(i, j)
		if d.uInterior(i, j) {
			u := d.U.Column(i, j)
			pw, pp := d.DP.Column(i-1, j), d.DP.Column(i, j)
			for k := d.uStart[c]; k <= d.kTop; k++ {
				u[k] = quantize(u[k]+dt/g.DX*(pw[k]-pp[k]), fr)
			}
		}
		if d.vInterior(i, j) {
			v := d.V.Column(i, j)
			ps, pp := d.DP.Column(i, j-1), d.DP.Column(i, j)
			for k := d.vStart[c]; k <= d.kTop; k++ {
				v[k] = quantize(v[k]+dt/g.DY*(ps[k]-pp[k]), fr)
			}
		}
		if d.solvable(i, j) {
			w := d.W.Column(i, j)
			pp := d.DP.Column(i, j)
			for k := d.kkart[c] + 2; k <= d.kTop+1; k++ {
				w[k] = quantize(w[k]+dt/(0.5*(g.DZK[k-1]+g.DZK[k]))*(pp[k-1]-pp[k]), fr)
			}
		}
	})
}

// quantize rounds v to the nearest multiple of 1/fr.
func quantize(v, fr float64) float64 {
	return math.Round(v*fr) / fr
}
