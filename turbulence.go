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

// cMu is the eddy viscosity constant of the k-ε model.
const cMu = 0.09

// Closure is a turbulence closure model. It provides the eddy
// viscosities and any additional momentum sources.
type Closure interface {
	// Init sets up the turbulence fields from d.Profile after the
	// obstacle mask has been calculated.
	Init(d *Domain)

	// Update sets d.ViscH and d.ViscV for the coming momentum step.
	Update(d *Domain)

	// Source returns the additional momentum source [m⁴/s²] for
	// component c on the face with column index (i, j) and layer k.
	Source(d *Domain, c Component, i, j, k int) float64

	// Advance transports any turbulence quantities after the velocities
	// have been updated.
	Advance(d *Domain)
}

// NewClosure returns the turbulence closure with the given model number.
func NewClosure(model int) (Closure, error) {
	switch model {
	case ModelNoDiffusion:
		return NoDiffusion{}, nil
	case ModelMixingLength:
		return &MixingLength{}, nil
	case ModelKEpsilon:
		return NewKEpsilon(), nil
	default:
		return nil, fmt.Errorf("microflow: invalid turbulence model %d", model)
	}
}

// Turbulence returns a function that advances the turbulence closure.
func Turbulence() DomainManipulator {
	return func(d *Domain) error {
		d.Closure.Advance(d)
		return nil
	}
}

// NoDiffusion is an inviscid closure: momentum is only advected.
type NoDiffusion struct{}

// Init implements Closure.
func (NoDiffusion) Init(d *Domain) {}

// Update implements Closure.
func (NoDiffusion) Update(d *Domain) {}

// Source implements Closure.
func (NoDiffusion) Source(d *Domain, c Component, i, j, k int) float64 { return 0 }

// Advance implements Closure.
func (NoDiffusion) Advance(d *Domain) {}

// MixingLength is an algebraic closure where the eddy viscosity is
// Cμ·√k·z′, with k the turbulent kinetic energy of the profile and z′
// the height above the obstacle top of the column.
type MixingLength struct {
	// MaxLength, if > 0, caps z′ [m].
	MaxLength float64
}

// Init implements Closure.
func (m *MixingLength) Init(d *Domain) {
	g := d.Grid
	d.workers.run(g.NII+2, func(_, i int) {
		for j := 0; j <= g.NJJ+1; j++ {
			kk := d.kkart[g.cidx(i, j)]
			tke := d.TKE.Column(i, j)
			vh, vv := d.ViscH.Column(i, j), d.ViscV.Column(i, j)
			for k := kk + 1; k <= g.NKK+1; k++ {
				tke[k] = d.Profile.TKE(g.ZSP[k])
				zs := g.ZSP[k] - g.HOKART[kk]
				if m.MaxLength > 0 && zs > m.MaxLength {
					zs = m.MaxLength
				}
				vh[k] = cMu * math.Sqrt(tke[k]) * zs
				vv[k] = vh[k]
			}
		}
	})
}

// Update implements Closure.
func (m *MixingLength) Update(d *Domain) {}

// Source implements Closure.
func (m *MixingLength) Source(d *Domain, c Component, i, j, k int) float64 { return 0 }

// Advance implements Closure.
func (m *MixingLength) Advance(d *Domain) {}

// KEpsilon is the standard two-equation k-ε closure with wall functions.
type KEpsilon struct {
	C1, C2         float64 // ε production and destruction constants
	SigmaK, SigmaE float64 // turbulent Prandtl numbers for k and ε

	MinTKE, MinEps float64 // lower limits of k [m²/s²] and ε [m²/s³]

	// Lower limits of the horizontal and vertical eddy viscosity [m²/s].
	MinViscH, MinViscV float64

	MaxVisc float64 // upper limit of the eddy viscosity [m²/s]

	k0, e0 *Field
}

// NewKEpsilon returns a k-ε closure with the standard constants.
func NewKEpsilon() *KEpsilon {
	return &KEpsilon{
		C1:       1.44,
		C2:       1.92,
		SigmaK:   1.0,
		SigmaE:   1.3,
		MinTKE:   1e-4,
		MinEps:   1e-6,
		MinViscH: 0.01,
		MinViscV: 0.001,
		MaxVisc:  100,
	}
}

// floor returns x if it is at least lo and lo otherwise,
// including when x is NaN.
func floor(x, lo float64) float64 {
	if !(x >= lo) {
		return lo
	}
	return x
}

// Init implements Closure.
func (ke *KEpsilon) Init(d *Domain) {
	g := d.Grid
	if ke.k0 == nil || len(ke.k0.Data) != len(d.TKE.Data) {
		ke.k0, ke.e0 = g.NewField(), g.NewField()
	}
	d.workers.run(g.NII+2, func(_, i int) {
		for j := 0; j <= g.NJJ+1; j++ {
			kk := d.kkart[g.cidx(i, j)]
			tke, eps := d.TKE.Column(i, j), d.Eps.Column(i, j)
			for k := 0; k <= g.NKK+1; k++ {
				if k <= kk {
					tke[k], eps[k] = ke.MinTKE, ke.MinEps
					continue
				}
				zs := math.Max(g.ZSP[k]-g.HOKART[kk], g.DZK[k]/2)
				tke[k] = floor(d.Profile.TKE(g.ZSP[k]), ke.MinTKE)
				eps[k] = floor(d.Profile.Dissipation(zs), ke.MinEps)
			}
		}
	})
	ke.Update(d)
}

// Update implements Closure.
func (ke *KEpsilon) Update(d *Domain) {
	for n, k := range d.TKE.Data {
		v := cMu * k * k / d.Eps.Data[n]
		if !(v <= ke.MaxVisc) {
			v = ke.MaxVisc
		}
		d.ViscH.Data[n] = floor(v, ke.MinViscH)
		d.ViscV.Data[n] = floor(v, ke.MinViscV)
	}
}

// Source implements Closure. It is the gradient of the isotropic part of
// the Reynolds stress, -2/3·∇k.
func (ke *KEpsilon) Source(d *Domain, c Component, i, j, k int) float64 {
	g := d.Grid
	switch c {
	case ComponentU:
		return -2. / 3. * (d.TKE.At(i, j, k) - d.TKE.At(i-1, j, k)) * g.DY * g.DZK[k]
	case ComponentV:
		return -2. / 3. * (d.TKE.At(i, j, k) - d.TKE.At(i, j-1, k)) * g.DX * g.DZK[k]
	default:
		return -2. / 3. * (d.TKE.At(i, j, k) - d.TKE.At(i, j, k-1)) * g.DX * g.DY
	}
}

// Advance implements Closure. It solves the transport equations of k and
// ε in each column of the solved region, with wall-function values in the
// lowest free cell.
func (ke *KEpsilon) Advance(d *Domain) {
	g := d.Grid
	ke.k0.CopyFrom(d.TKE)
	ke.e0.CopyFrom(d.Eps)
	d.workers.run(g.NII*g.NJJ, func(p, item int) {
		i, j := item/g.NJJ+1, item%g.NJJ+1
		if !d.solvable(i, j) {
			return
		}
		ke.advanceColumn(d, d.workers.lines[p], i, j)
	})
}

// cellUV returns the cell-centred horizontal velocity at (i, j, k).
func (d *Domain) cellUV(i, j, k int) (u, v float64) {
	return 0.5 * (d.U.At(i, j, k) + d.U.At(i+1, j, k)),
		0.5 * (d.V.At(i, j, k) + d.V.At(i, j+1, k))
}

// cellW returns the cell-centred vertical velocity at (i, j, k).
func (d *Domain) cellW(i, j, k int) float64 {
	return 0.5 * (d.W.At(i, j, k) + d.W.At(i, j, k+1))
}

// shear returns the squared strain rate 2·S_ij·S_ij at (i, j, k).
// Horizontal gradients are one-sided at the domain edges.
func (d *Domain) shear(i, j, k int) float64 {
	g := d.Grid
	dudx := (d.U.At(i+1, j, k) - d.U.At(i, j, k)) / g.DX
	dvdy := (d.V.At(i, j+1, k) - d.V.At(i, j, k)) / g.DY
	dwdz := (d.W.At(i, j, k+1) - d.W.At(i, j, k)) / g.DZK[k]

	ie, iw := imin(i+1, g.NII), imax(i-1, 1)
	jn, js := imin(j+1, g.NJJ), imax(j-1, 1)
	lx := float64(ie-iw) * g.DX
	ly := float64(jn-js) * g.DY

	var dudy, dvdx, dwdx, dwdy float64
	if lx > 0 {
		_, ve := d.cellUV(ie, j, k)
		_, vw := d.cellUV(iw, j, k)
		dvdx = (ve - vw) / lx
		dwdx = (d.cellW(ie, j, k) - d.cellW(iw, j, k)) / lx
	}
	if ly > 0 {
		un, _ := d.cellUV(i, jn, k)
		us, _ := d.cellUV(i, js, k)
		dudy = (un - us) / ly
		dwdy = (d.cellW(i, jn, k) - d.cellW(i, js, k)) / ly
	}

	ut, vt := d.cellUV(i, j, k+1)
	ub, vb := d.cellUV(i, j, k-1)
	dzc := g.ZSP[k+1] - g.ZSP[k-1]
	if k-1 <= d.kkart[g.cidx(i, j)] {
		// The cell below is solid; difference to the wall instead.
		ub, vb = 0, 0
		dzc = g.ZSP[k+1] - g.HOKART[k-1]
	}
	dudz := (ut - ub) / dzc
	dvdz := (vt - vb) / dzc

	return 2*(dudx*dudx+dvdy*dvdy+dwdz*dwdz) +
		(dudy+dvdx)*(dudy+dvdx) + (dudz+dwdx)*(dudz+dwdx) + (dvdz+dwdy)*(dvdz+dwdy)
}

func (ke *KEpsilon) advanceColumn(d *Domain, l *line, i, j int) {
	g := d.Grid
	c := g.cidx(i, j)
	kk := d.kkart[c]
	ks := kk + 1
	dx, dy := g.DX, g.DY

	// Wall function values in the lowest free cell.
	zp := g.DZK[ks] / 2
	uc, vc := d.cellUV(i, j, ks)
	ustar := math.Sqrt(d.wallDrag(c, c, zp)) * math.Hypot(uc, vc)
	tke, eps := d.TKE.Column(i, j), d.Eps.Column(i, j)
	tke[ks] = floor(ustar*ustar/math.Sqrt(cMu), ke.MinTKE)
	eps[ks] = floor(ustar*ustar*ustar/(vonKarman*zp), ke.MinEps)
	if ks+1 > d.kTop {
		return
	}

	k0, e0 := ke.k0.Column(i, j), ke.e0.Column(i, j)
	type nbr struct {
		k, e []float64
		ok   bool
		kk   int
	}
	var nb [4]nbr // east, west, north, south
	for n, o := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		ii, jj := i+o[0], j+o[1]
		if ii < 1 || ii > g.NII || jj < 1 || jj > g.NJJ || !d.active[g.cidx(ii, jj)] {
			continue
		}
		nb[n] = nbr{k: ke.k0.Column(ii, jj), e: ke.e0.Column(ii, jj), ok: true, kk: d.kkart[g.cidx(ii, jj)]}
	}
	ue, uw := d.U.Column(i+1, j), d.U.Column(i, j)
	vn, vs := d.V.Column(i, j+1), d.V.Column(i, j)
	w := d.W.Column(i, j)
	nh, nv := d.ViscH.Column(i, j), d.ViscV.Column(i, j)
	r := d.Config.RelaxVelocity

	// Both equations share the same advection and diffusion coefficients
	// apart from the turbulent Prandtl number, so they are assembled
	// together and solved one after the other.
	for _, eq := range []struct {
		x, x0 []float64
		sigma float64
		isEps bool
	}{{tke, k0, ke.SigmaK, false}, {eps, e0, ke.SigmaE, true}} {
		for k := ks + 1; k <= d.kTop; k++ {
			dz := g.DZK[k]
			vol := dx * dy * dz
			gh, gv := nh[k]/eq.sigma, nv[k]/eq.sigma

			fe, fw := ue[k]*dy*dz, uw[k]*dy*dz
			fn, fs := vn[k]*dx*dz, vs[k]*dx*dz
			ft, fb := w[k+1]*dx*dy, w[k]*dx*dy

			a := [4]float64{
				powerLaw(gh*dy*dz/dx, fe),
				powerLaw(gh*dy*dz/dx, -fw),
				powerLaw(gh*dx*dz/dy, fn),
				powerLaw(gh*dx*dz/dy, -fs),
			}
			b := vol / d.dt * eq.x0[k]
			ap := vol / d.dt
			for n := range nb {
				if !nb[n].ok || k <= nb[n].kk {
					a[n] = 0
					continue
				}
				if eq.isEps {
					b += a[n] * nb[n].e[k]
				} else {
					b += a[n] * nb[n].k[k]
				}
				ap += a[n]
			}
			aT := powerLaw(gv*dx*dy/(0.5*(dz+g.DZK[k+1])), ft)
			aB := powerLaw(gv*dx*dy/(0.5*(dz+g.DZK[k-1])), -fb)

			prod := 0.5 * (nh[k] + nv[k]) * d.shear(i, j, k) * vol
			rate := e0[k] / k0[k]
			if eq.isEps {
				b += ke.C1 * rate * prod
				ap += ke.C2 * rate * vol
			} else {
				b += prod
				ap += rate * vol
			}
			l.AP[k] = ap + aT + aB
			l.AT[k] = aT
			l.AB[k] = aB
			l.B[k] = b
		}
		l.B[ks+1] += l.AB[ks+1] * eq.x[ks]
		l.B[d.kTop] += l.AT[d.kTop] * eq.x0[d.kTop+1]
		l.solve(l.X, ks+1, d.kTop)
		lo := ke.MinTKE
		if eq.isEps {
			lo = ke.MinEps
		}
		for k := ks + 1; k <= d.kTop; k++ {
			eq.x[k] = floor(eq.x0[k]+r*(l.X[k]-eq.x0[k]), lo)
		}
	}
}
