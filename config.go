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
	"runtime"
)

// Fidelity levels of the wind field calculation.
const (
	FidelityInitial    = 0 // power-law initialization only
	FidelityDiagnostic = 1 // mass-consistent diagnostic field
	FidelityPrognostic = 2 // full prognostic solution
)

const (
	checkPeriod          = 100 // iterations per convergence window
	defaultThreshold     = 0.012
	defaultMaxHorizontal = 55.
	defaultMaxVertical   = 20.
)

// Turbulence closure model selectors.
const (
	ModelNoDiffusion  = 0
	ModelMixingLength = 1
	ModelKEpsilon     = 2
)

// Config holds the settings for the wind field calculation.
type Config struct {
	FidelityLevel int // see Fidelity constants

	MinIterations int // minimum number of iterations before convergence is accepted
	MaxIterations int // iteration cap

	RelaxVelocity float64 // under-relaxation factor for the momentum equations
	RelaxPressure float64 // under-relaxation factor for the pressure correction

	BuildingRoughness float64 // roughness length of building surfaces [m]

	// SubDomainRadius is the number of columns around each obstacle that
	// are solved prognostically. If ≤ 0, the whole domain is solved.
	SubDomainRadius int

	TurbulenceModel int // see Model constants

	// MarginLayers is the number of layers above the tallest obstacle that
	// are included in the solution.
	MarginLayers int

	// WakeSearchRadius is the number of columns searched for upwind
	// obstacles by the diagnostic wake parameterization.
	WakeSearchRadius int

	Processors int // number of workers; values < 1 use all CPUs

	PressureSweeps int // directional pressure-correction sweeps per iteration

	ConvergenceThreshold float64

	// RoundingDivisor sets the precision that pressures and velocities are
	// rounded to. If 0, a default is chosen for the turbulence model.
	RoundingDivisor float64

	Courant float64 // pseudo-time step Courant number

	DiagnosticIterations int // pressure-correction iterations at FidelityDiagnostic

	MaxHorizontalSpeed  float64 // absolute velocity limits for validation [m/s]
	MaxVerticalSpeed    float64
	RelativeSpeedFactor float64 // relative limit as a multiple of the initial maximum speed
}

// DefaultConfig returns the default settings.
func DefaultConfig() *Config {
	return &Config{
		FidelityLevel:        FidelityPrognostic,
		MinIterations:        100,
		MaxIterations:        500,
		RelaxVelocity:        0.1,
		RelaxPressure:        0.1,
		BuildingRoughness:    0.01,
		SubDomainRadius:      15,
		TurbulenceModel:      ModelMixingLength,
		MarginLayers:         5,
		WakeSearchRadius:     10,
		Processors:           runtime.NumCPU(),
		PressureSweeps:       4,
		ConvergenceThreshold: defaultThreshold,
		Courant:              0.5,
		DiagnosticIterations: 50,
		MaxHorizontalSpeed:   defaultMaxHorizontal,
		MaxVerticalSpeed:     defaultMaxVertical,
		RelativeSpeedFactor:  10,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.FidelityLevel < FidelityInitial || c.FidelityLevel > FidelityPrognostic {
		return fmt.Errorf("microflow: FidelityLevel must be 0, 1, or 2; got %d", c.FidelityLevel)
	}
	if c.TurbulenceModel < ModelNoDiffusion || c.TurbulenceModel > ModelKEpsilon {
		return fmt.Errorf("microflow: TurbulenceModel must be 0, 1, or 2; got %d", c.TurbulenceModel)
	}
	if c.MinIterations < 0 || c.MaxIterations < 1 {
		return fmt.Errorf("microflow: MinIterations must be >= 0 and MaxIterations >= 1; got %d and %d",
			c.MinIterations, c.MaxIterations)
	}
	if c.MinIterations > c.MaxIterations {
		return fmt.Errorf("microflow: MinIterations (%d) must not be greater than MaxIterations (%d)",
			c.MinIterations, c.MaxIterations)
	}
	vars := []float64{c.RelaxVelocity, c.RelaxPressure}
	varNames := []string{"RelaxVelocity", "RelaxPressure"}
	for i, v := range vars {
		if !(v > 0 && v <= 1) {
			return fmt.Errorf("microflow: %s=%g but should be in (0, 1]", varNames[i], v)
		}
	}
	vars = []float64{c.BuildingRoughness, c.ConvergenceThreshold, c.Courant,
		c.MaxHorizontalSpeed, c.MaxVerticalSpeed, c.RelativeSpeedFactor}
	varNames = []string{"BuildingRoughness", "ConvergenceThreshold", "Courant",
		"MaxHorizontalSpeed", "MaxVerticalSpeed", "RelativeSpeedFactor"}
	for i, v := range vars {
		if !(v > 0) {
			return fmt.Errorf("microflow: %s=%g but should be > 0", varNames[i], v)
		}
	}
	if c.RoundingDivisor < 0 {
		return fmt.Errorf("microflow: RoundingDivisor=%g but should be >= 0", c.RoundingDivisor)
	}
	if c.MarginLayers < 0 || c.WakeSearchRadius < 0 {
		return fmt.Errorf("microflow: MarginLayers and WakeSearchRadius must be >= 0; got %d and %d",
			c.MarginLayers, c.WakeSearchRadius)
	}
	if c.PressureSweeps < 1 {
		return fmt.Errorf("microflow: PressureSweeps must be >= 1; got %d", c.PressureSweeps)
	}
	if c.FidelityLevel == FidelityDiagnostic && c.DiagnosticIterations < 1 {
		return fmt.Errorf("microflow: DiagnosticIterations must be >= 1; got %d", c.DiagnosticIterations)
	}
	return nil
}

// frund returns the rounding divisor for pressures and velocities.
func (c *Config) frund() float64 {
	if c.RoundingDivisor > 0 {
		return c.RoundingDivisor
	}
	if c.TurbulenceModel == ModelKEpsilon {
		return 10000
	}
	return 1000
}
