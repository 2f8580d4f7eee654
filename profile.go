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

// vonKarman is the von Kármán constant.
const vonKarman = 0.4

// ProfileLevel holds wind observations at one measurement height.
type ProfileLevel struct {
	Height         float64 // measurement height above ground [m]
	U, V           float64 // wind components [m/s]
	SigmaU, SigmaV float64 // wind component standard deviations [m/s]
}

// Profile is the vertical wind profile of one weather situation.
type Profile struct {
	// Levels must be sorted by increasing height.
	Levels []ProfileLevel

	UStar               float64 // friction velocity [m/s]
	ObukhovLength       float64 // [m]; negative for unstable conditions, 0 for neutral
	BoundaryLayerHeight float64 // [m]
	Roughness           float64 // terrain roughness length [m]
}

// Compact returns a copy of p with all of the calm levels (where both
// wind components are zero) removed.
func (p *Profile) Compact() *Profile {
	o := *p
	o.Levels = make([]ProfileLevel, 0, len(p.Levels))
	for _, l := range p.Levels {
		if l.U == 0 && l.V == 0 {
			continue
		}
		o.Levels = append(o.Levels, l)
	}
	return &o
}

// Validate checks whether p can be used to initialize a wind field.
func (p *Profile) Validate() error {
	if len(p.Levels) == 0 {
		return fmt.Errorf("microflow: wind profile has no levels with non-zero wind speed")
	}
	for i, l := range p.Levels {
		if !(l.Height > 0) {
			return fmt.Errorf("microflow: wind profile level %d height must be > 0; got %g", i, l.Height)
		}
		if i > 0 && !(l.Height > p.Levels[i-1].Height) {
			return fmt.Errorf("microflow: wind profile heights must be increasing; level %d (%g m) <= level %d (%g m)",
				i, l.Height, i-1, p.Levels[i-1].Height)
		}
	}
	if !(p.Roughness > 0) {
		return fmt.Errorf("microflow: roughness length must be > 0; got %g", p.Roughness)
	}
	return nil
}

// Exponent returns the stability-dependent exponent of the power-law
// wind profile.
func (p *Profile) Exponent() float64 {
	var e float64
	switch {
	case p.ObukhovLength > 0:
		e = 0.56 * math.Pow(p.ObukhovLength, -0.15)
	case p.ObukhovLength < 0:
		e = math.Max(0.35-0.4*math.Pow(math.Abs(p.ObukhovLength), -0.15), 0.05)
	default:
		e = 0.35 // neutral: the limit of the unstable branch
	}
	return math.Min(math.Max(e, 0.05), 0.6)
}

func (p *Profile) powerLaw(z, zRef float64) float64 {
	if z <= 0 {
		return 0
	}
	return math.Pow(z/zRef, p.Exponent())
}

// Interpolate returns the wind components at height z [m] above ground.
// Below the lowest measurement the wind follows a power law; above the
// highest measurement it follows a power law if there is only one
// measurement and is held constant otherwise.
func (p *Profile) Interpolate(z float64) (u, v float64) {
	l := p.Levels
	n := len(l)
	if n == 0 {
		return 0, 0
	}
	if z <= l[0].Height {
		f := p.powerLaw(z, l[0].Height)
		return l[0].U * f, l[0].V * f
	}
	if z >= l[n-1].Height {
		f := 1.
		if n == 1 {
			f = p.powerLaw(z, l[0].Height)
		}
		return l[n-1].U * f, l[n-1].V * f
	}
	m := bracket(l, z)
	w := (z - l[m-1].Height) / (l[m].Height - l[m-1].Height)
	return l[m-1].U + w*(l[m].U-l[m-1].U), l[m-1].V + w*(l[m].V-l[m-1].V)
}

// Sigmas returns the standard deviations of the horizontal wind components
// at height z. Values are held constant outside of the measured range.
func (p *Profile) Sigmas(z float64) (su, sv float64) {
	l := p.Levels
	n := len(l)
	if n == 0 {
		return 0, 0
	}
	if z <= l[0].Height {
		return l[0].SigmaU, l[0].SigmaV
	}
	if z >= l[n-1].Height {
		return l[n-1].SigmaU, l[n-1].SigmaV
	}
	m := bracket(l, z)
	w := (z - l[m-1].Height) / (l[m].Height - l[m-1].Height)
	return l[m-1].SigmaU + w*(l[m].SigmaU-l[m-1].SigmaU), l[m-1].SigmaV + w*(l[m].SigmaV-l[m-1].SigmaV)
}

// bracket returns the index m of the first level at or above z.
// z must be within the range of the levels.
func bracket(l []ProfileLevel, z float64) int {
	m := 1
	for m < len(l)-1 && l[m].Height < z {
		m++
	}
	return m
}

// SigmaW returns the standard deviation of the vertical wind at height z,
// adjusted for atmospheric stability.
func (p *Profile) SigmaW(z float64) float64 {
	switch {
	case p.ObukhovLength > 0:
		r := 0.
		if p.BoundaryLayerHeight > 0 {
			r = math.Min(z/p.BoundaryLayerHeight, 0.99)
		}
		return 1.3 * p.UStar * math.Pow(1-r, 0.75)
	case p.ObukhovLength < 0:
		return 1.25 * p.UStar * math.Cbrt(1+3*z/math.Abs(p.ObukhovLength))
	default:
		return 1.25 * p.UStar
	}
}

// TKE returns the turbulent kinetic energy [m²/s²] implied by the profile
// at height z.
func (p *Profile) TKE(z float64) float64 {
	su, sv := p.Sigmas(z)
	sw := p.SigmaW(z)
	return 0.5 * (su*su + sv*sv + sw*sw)
}

// Dissipation returns the dissipation rate of turbulent kinetic energy
// [m²/s³] at height z above the nearest surface, following
// Monin-Obukhov similarity.
func (p *Profile) Dissipation(z float64) float64 {
	phi := 1.
	switch {
	case p.ObukhovLength > 0:
		phi = 1 + 5*z/p.ObukhovLength
	case p.ObukhovLength < 0:
		phi = math.Pow(1-16*z/p.ObukhovLength, -0.25)
	}
	return p.UStar * p.UStar * p.UStar / (vonKarman * z) * phi
}

// BinarySearch returns the index k of the layer that contains height z,
// so that hokart[k-1] < z ≤ hokart[k]. hokart holds the layer-top heights
// with hokart[0] = 0. Heights below the first layer or above the last
// are clamped to 1 and len(hokart)-1, respectively.
func BinarySearch(hokart []float64, z float64) int {
	nkk := len(hokart) - 1
	if nkk < 1 || z <= hokart[1] {
		return 1
	}
	if z > hokart[nkk] {
		return nkk
	}
	// Coarse search to narrow the bracket.
	lo, hi := 1, nkk
	step := nkk / 8
	if step > 1 {
		for k := lo + step; k < nkk; k += step {
			if hokart[k] >= z {
				hi = k
				break
			}
			lo = k
		}
	}
	// hokart[lo] < z ≤ hokart[hi]
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if hokart[mid] >= z {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}
