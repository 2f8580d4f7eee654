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

// Component identifies a velocity component.
type Component int

// The velocity components.
const (
	ComponentU Component = iota
	ComponentV
	ComponentW
)

// Momentum returns a function that updates the velocities in the solved
// region by solving the momentum equation for each component. The
// components are solved concurrently; each one reads the other components
// as they were at the start of the step.
func Momentum() DomainManipulator {
	return func(d *Domain) error {
		g := d.Grid
		d.Closure.Update(d)
		d.u0.CopyFrom(d.U)
		d.v0.CopyFrom(d.V)
		d.w0.CopyFrom(d.W)
		n := g.NII * g.NJJ
		d.workers.run(3*n, func(p, item int) {
			c, col := Component(item%3), item/3
			i, j := col/g.NJJ+1, col%g.NJJ+1
			l := d.workers.lines[p]
			switch c {
			case ComponentU:
				if d.uInterior(i, j) {
					d.momentumU(l, i, j)
				}
			case ComponentV:
				if d.vInterior(i, j) {
					d.momentumV(l, i, j)
				}
			case ComponentW:
				if d.solvable(i, j) {
					d.momentumW(l, i, j)
				}
			}
		})
		d.maxSpeed = d.maxFaceSpeed()
		return nil
	}
}

// powerLaw returns the coefficient of the neighbour across a face with
// diffusive conductance D and volume flow F toward that neighbour,
// using the power-law scheme. With no diffusion it reduces to upwinding.
func powerLaw(D, F float64) float64 {
	a := 0.
	if D > 0 {
		t := 1 - 0.1*math.Abs(F/D)
		if t > 0 {
			a = D * t * t * t * t * t
		}
	}
	return a + math.Max(-F, 0)
}

// terrainDrag returns the drag coefficient of bare terrain with
// roughness length z0 for a velocity at distance zp from the ground.
func terrainDrag(zp, z0 float64) float64 {
	r := zp / z0
	if !(r >= 1.5) {
		r = 1.5
	}
	c := vonKarman / math.Log(r)
	return c * c
}

// buildingDrag returns the drag coefficient of a building surface with
// roughness length z0 for a velocity at distance zp from the surface.
// The log law is offset by z0 so it stays finite for any zp > 0.
func buildingDrag(zp, z0 float64) float64 {
	c := vonKarman / math.Log1p(zp/z0)
	return c * c
}

// wallDrag returns the drag coefficient of the surface below a face
// between columns c1 and c2. A building roof under either column
// makes it a building surface.
func (d *Domain) wallDrag(c1, c2 int, zp float64) float64 {
	if d.kkart[c1] > 0 || d.kkart[c2] > 0 {
		return buildingDrag(zp, d.Config.BuildingRoughness)
	}
	return terrainDrag(zp, d.Profile.Roughness)
}

// canopyDrag returns the vegetation drag [1/m] in layer k of column c.
func (d *Domain) canopyDrag(c, k int) float64 {
	if k <= d.vegTop[c] {
		return d.vegDrag[c]
	}
	return 0
}

// momentumU solves the momentum equation for the west face of column (i, j).
func (d *Domain) momentumU(l *line, i, j int) {
	g := d.Grid
	cw, cp := g.cidx(i-1, j), g.cidx(i, j)
	ks := d.uStart[cp]
	if ks > d.kTop {
		return
	}
	dx, dy := g.DX, g.DY
	u0 := d.u0.Column(i, j)
	uw, ue := d.u0.Column(i-1, j), d.u0.Column(i+1, j)
	var us, un []float64
	if d.uInterior(i, j-1) {
		us = d.u0.Column(i, j-1)
	}
	if d.uInterior(i, j+1) {
		un = d.u0.Column(i, j+1)
	}
	vsw, vse := d.v0.Column(i-1, j), d.v0.Column(i, j)
	vnw, vne := d.v0.Column(i-1, j+1), d.v0.Column(i, j+1)
	ww, wp := d.w0.Column(i-1, j), d.w0.Column(i, j)
	pw, pp := d.P.Column(i-1, j), d.P.Column(i, j)
	nhw, nhp := d.ViscH.Column(i-1, j), d.ViscH.Column(i, j)
	nvw, nvp := d.ViscV.Column(i-1, j), d.ViscV.Column(i, j)
	cd := d.wallDrag(cw, cp, g.DZK[ks]/2)

	for k := ks; k <= d.kTop; k++ {
		dz := g.DZK[k]
		vol := dx * dy * dz
		nh := 0.5 * (nhw[k] + nhp[k])
		nv := 0.5 * (nvw[k] + nvp[k])

		fe := 0.5 * (u0[k] + ue[k]) * dy * dz
		fw := 0.5 * (uw[k] + u0[k]) * dy * dz
		fn := 0.5 * (vnw[k] + vne[k]) * dx * dz
		fs := 0.5 * (vsw[k] + vse[k]) * dx * dz
		ft := 0.5 * (ww[k+1] + wp[k+1]) * dx * dy
		fb := 0.5 * (ww[k] + wp[k]) * dx * dy

		aE := powerLaw(nh*dy*dz/dx, fe)
		aW := powerLaw(nh*dy*dz/dx, -fw)
		var aN, aS float64
		if un != nil {
			aN = powerLaw(nh*dx*dz/dy, fn)
		}
		if us != nil {
			aS = powerLaw(nh*dx*dz/dy, -fs)
		}
		aT := powerLaw(nv*dx*dy/(0.5*(dz+g.DZK[k+1])), ft)
		var aB, friction, cross, src float64
		if k > ks {
			aB = powerLaw(nv*dx*dy/(0.5*(dz+g.DZK[k-1])), -fb)
			cross = nv * dy * (wp[k+1] - ww[k+1] - wp[k] + ww[k])
			src = d.Closure.Source(d, ComponentU, i, j, k)
		} else {
			vAvg := 0.25 * (vsw[k] + vse[k] + vnw[k] + vne[k])
			friction = cd * math.Hypot(u0[k], vAvg) * dx * dy
		}
		drag := 0.5 * (d.canopyDrag(cw, k) + d.canopyDrag(cp, k)) * math.Abs(u0[k]) * vol

		b := vol/d.dt*u0[k] + (pw[k]-pp[k])*dy*dz + cross + src +
			aE*ue[k] + aW*uw[k]
		if un != nil {
			b += aN * un[k]
		}
		if us != nil {
			b += aS * us[k]
		}
		l.AP[k] = aE + aW + aN + aS + aT + aB + vol/d.dt + friction + drag
		l.AT[k] = aT
		l.AB[k] = aB
		l.B[k] = b
	}
	l.B[d.kTop] += l.AT[d.kTop] * u0[d.kTop+1]
	d.relaxInto(l, d.U.Column(i, j), u0, ks)
}

// momentumV solves the momentum equation for the south face of column (i, j).
func (d *Domain) momentumV(l *line, i, j int) {
	g := d.Grid
	cs, cp := g.cidx(i, j-1), g.cidx(i, j)
	ks := d.vStart[cp]
	if ks > d.kTop {
		return
	}
	dx, dy := g.DX, g.DY
	v0 := d.v0.Column(i, j)
	vs, vn := d.v0.Column(i, j-1), d.v0.Column(i, j+1)
	var vw, ve []float64
	if d.vInterior(i-1, j) {
		vw = d.v0.Column(i-1, j)
	}
	if d.vInterior(i+1, j) {
		ve = d.v0.Column(i+1, j)
	}
	usw, use := d.u0.Column(i, j-1), d.u0.Column(i+1, j-1)
	unw, une := d.u0.Column(i, j), d.u0.Column(i+1, j)
	ws, wp := d.w0.Column(i, j-1), d.w0.Column(i, j)
	ps, pp := d.P.Column(i, j-1), d.P.Column(i, j)
	nhs, nhp := d.ViscH.Column(i, j-1), d.ViscH.Column(i, j)
	nvs, nvp := d.ViscV.Column(i, j-1), d.ViscV.Column(i, j)
	cd := d.wallDrag(cs, cp, g.DZK[ks]/2)

	for k := ks; k <= d.kTop; k++ {
		dz := g.DZK[k]
		vol := dx * dy * dz
		nh := 0.5 * (nhs[k] + nhp[k])
		nv := 0.5 * (nvs[k] + nvp[k])

		fn := 0.5 * (v0[k] + vn[k]) * dx * dz
		fs := 0.5 * (vs[k] + v0[k]) * dx * dz
		fe := 0.5 * (use[k] + une[k]) * dy * dz
		fw := 0.5 * (usw[k] + unw[k]) * dy * dz
		ft := 0.5 * (ws[k+1] + wp[k+1]) * dx * dy
		fb := 0.5 * (ws[k] + wp[k]) * dx * dy

		aN := powerLaw(nh*dx*dz/dy, fn)
		aS := powerLaw(nh*dx*dz/dy, -fs)
		var aE, aW float64
		if ve != nil {
			aE = powerLaw(nh*dy*dz/dx, fe)
		}
		if vw != nil {
			aW = powerLaw(nh*dy*dz/dx, -fw)
		}
		aT := powerLaw(nv*dx*dy/(0.5*(dz+g.DZK[k+1])), ft)
		var aB, friction, cross, src float64
		if k > ks {
			aB = powerLaw(nv*dx*dy/(0.5*(dz+g.DZK[k-1])), -fb)
			cross = nv * dx * (wp[k+1] - ws[k+1] - wp[k] + ws[k])
			src = d.Closure.Source(d, ComponentV, i, j, k)
		} else {
			uAvg := 0.25 * (usw[k] + use[k] + unw[k] + une[k])
			friction = cd * math.Hypot(v0[k], uAvg) * dx * dy
		}
		drag := 0.5 * (d.canopyDrag(cs, k) + d.canopyDrag(cp, k)) * math.Abs(v0[k]) * vol

		b := vol/d.dt*v0[k] + (ps[k]-pp[k])*dx*dz + cross + src +
			aN*vn[k] + aS*vs[k]
		if ve != nil {
			b += aE * ve[k]
		}
		if vw != nil {
			b += aW * vw[k]
		}
		l.AP[k] = aE + aW + aN + aS + aT + aB + vol/d.dt + friction + drag
		l.AT[k] = aT
		l.AB[k] = aB
		l.B[k] = b
	}
	l.B[d.kTop] += l.AT[d.kTop] * v0[d.kTop+1]
	d.relaxInto(l, d.V.Column(i, j), v0, ks)
}

// momentumW solves the momentum equation for the bottom faces of the
// cells in column (i, j). The lowest face of the column is a wall.
func (d *Domain) momentumW(l *line, i, j int) {
	g := d.Grid
	c := g.cidx(i, j)
	ks := d.kkart[c] + 2
	if ks > d.kTop {
		return
	}
	dx, dy := g.DX, g.DY
	w0 := d.w0.Column(i, j)
	var ww, we, ws, wn []float64
	if i > 1 && d.active[g.cidx(i-1, j)] {
		ww = d.w0.Column(i-1, j)
	}
	if i < g.NII && d.active[g.cidx(i+1, j)] {
		we = d.w0.Column(i+1, j)
	}
	if j > 1 && d.active[g.cidx(i, j-1)] {
		ws = d.w0.Column(i, j-1)
	}
	if j < g.NJJ && d.active[g.cidx(i, j+1)] {
		wn = d.w0.Column(i, j+1)
	}
	uw, ue := d.u0.Column(i, j), d.u0.Column(i+1, j)
	vs, vn := d.v0.Column(i, j), d.v0.Column(i, j+1)
	pp := d.P.Column(i, j)
	nhp, nvp := d.ViscH.Column(i, j), d.ViscV.Column(i, j)

	for k := ks; k <= d.kTop; k++ {
		dzw := 0.5 * (g.DZK[k-1] + g.DZK[k])
		vol := dx * dy * dzw
		nh := 0.5 * (nhp[k-1] + nhp[k])
		nv := 0.5 * (nvp[k-1] + nvp[k])

		fe := 0.5 * (ue[k-1] + ue[k]) * dy * dzw
		fw := 0.5 * (uw[k-1] + uw[k]) * dy * dzw
		fn := 0.5 * (vn[k-1] + vn[k]) * dx * dzw
		fs := 0.5 * (vs[k-1] + vs[k]) * dx * dzw
		ft := 0.5 * (w0[k] + w0[k+1]) * dx * dy
		fb := 0.5 * (w0[k-1] + w0[k]) * dx * dy

		var aE, aW, aN, aS float64
		if we != nil {
			aE = powerLaw(nh*dy*dzw/dx, fe)
		}
		if ww != nil {
			aW = powerLaw(nh*dy*dzw/dx, -fw)
		}
		if wn != nil {
			aN = powerLaw(nh*dx*dzw/dy, fn)
		}
		if ws != nil {
			aS = powerLaw(nh*dx*dzw/dy, -fs)
		}
		aT := powerLaw(nv*dx*dy/g.DZK[k], ft)
		aB := powerLaw(nv*dx*dy/g.DZK[k-1], -fb)
		var cross, src float64
		if k > ks {
			cross = nh*dy*(ue[k]-ue[k-1]-uw[k]+uw[k-1]) + nh*dx*(vn[k]-vn[k-1]-vs[k]+vs[k-1])
			src = d.Closure.Source(d, ComponentW, i, j, k)
		}
		drag := d.canopyDrag(c, k) * math.Abs(w0[k]) * vol

		b := vol/d.dt*w0[k] + (pp[k-1]-pp[k])*dx*dy + cross + src
		if we != nil {
			b += aE * we[k]
		}
		if ww != nil {
			b += aW * ww[k]
		}
		if wn != nil {
			b += aN * wn[k]
		}
		if ws != nil {
			b += aS * ws[k]
		}
		l.AP[k] = aE + aW + aN + aS + aT + aB + vol/d.dt + drag
		l.AT[k] = aT
		// The face below the lowest one is a wall with zero velocity,
		// so its coefficient only contributes to AP.
		if k > ks {
			l.AB[k] = aB
		} else {
			l.AB[k] = 0
		}
		l.B[k] = b
	}
	l.B[d.kTop] += l.AT[d.kTop] * w0[d.kTop+1]
	d.relaxInto(l, d.W.Column(i, j), w0, ks)
}

// relaxInto solves l for layers ks to d.kTop and stores the
// under-relaxed result in dst, where old holds the previous values.
func (d *Domain) relaxInto(l *line, dst, old []float64, ks int) {
	l.solve(l.X, ks, d.kTop)
	r := d.Config.RelaxVelocity
	for k := ks; k <= d.kTop; k++ {
		dst[k] = old[k] + r*(l.X[k]-old[k])
	}
}
