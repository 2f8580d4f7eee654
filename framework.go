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

// Package microflow is a microscale prognostic wind-field model. It
// calculates mass-conserving three-dimensional wind fields around buildings
// and vegetation from a vertical wind profile.
package microflow

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Version gives the version number.
const Version = "0.3.0"

// Status is the state of a wind field calculation.
type Status int

// These are the possible calculation states.
const (
	Initializing Status = iota
	Iterating
	Converged
	IterationCapReached
)

func (s Status) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case IterationCapReached:
		return "iteration cap reached"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// DomainManipulator is a function that operates on the model domain.
type DomainManipulator func(d *Domain) error

// Domain holds the current state of the wind field calculation.
// Arrays are allocated once by NewDomain and reused for every
// weather situation.
type Domain struct {
	Grid      *Grid
	Config    *Config
	Obstacles *Obstacles
	Profile   *Profile
	Closure   Closure

	// Log receives progress and diagnostic messages.
	Log logrus.FieldLogger

	// LiveOutput, if not nil, is called every 100 iterations
	// with the current state of the calculation.
	LiveOutput func(iteration int, d *Domain) error

	// InitFuncs are functions to be called in the given order
	// at the beginning of the calculation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order
	// repeatedly until the calculation is done.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be called in the given order
	// after the calculation is done.
	CleanupFuncs []DomainManipulator

	// Face velocities [m/s]. U[i] is on the west face of column i,
	// V[j] is on the south face of row j, and W[k] is on the bottom
	// face of layer k.
	U, V, W *Field

	P  *Field // running pressure [m²/s²]
	DP *Field // pressure change during the most recent iteration
	PC *Field // pressure correction

	TKE, Eps     *Field // turbulent kinetic energy [m²/s²] and its dissipation rate [m²/s³]
	ViscH, ViscV *Field // horizontal and vertical eddy viscosity [m²/s]

	Status    Status
	Iteration int

	// Direction is the first horizontal pressure sweep direction of
	// the current iteration, from 1 to 4.
	Direction int

	u0, v0, w0 *Field // velocity snapshots
	pc0        *Field // pressure-correction snapshot
	div        *Field // cell divergence [m³/s]
	scratch    *Field

	kkart     []int     // index of the highest blocked layer in each column
	buiHeight []float64 // height of the highest blocked layer top in each column
	uStart    []int     // lowest free layer of each west face
	vStart    []int     // lowest free layer of each south face
	active    []bool    // whether each column is part of the solved sub-domain
	vegTop    []int     // highest layer within the canopy of each column
	vegDrag   []float64

	maxObstacleHeight float64
	kTop              int // top layer of the solved region

	dt              float64 // pseudo time step [s]
	maxSpeed        float64 // maximum speed after the most recent momentum step
	initialMaxSpeed float64
	uTop            float64 // wind speed at the domain top
	frund           float64 // pressure rounding divisor
	dUMax           float64 // maximum pressure change in the current iteration

	window  []float64
	windows int // number of completed windows
	report  Report
	done    bool

	workers *workers
}

// NewDomain allocates a domain for calculating wind fields on grid g with
// the given configuration and obstacles. If obstacles is nil, the domain is
// obstacle free.
func NewDomain(g *Grid, c *Config, obstacles *Obstacles) (*Domain, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if obstacles == nil {
		obstacles = g.NewObstacles()
	}
	if obstacles.g != g {
		return nil, fmt.Errorf("microflow: obstacles were created for a different grid")
	}
	closure, err := NewClosure(c.TurbulenceModel)
	if err != nil {
		return nil, err
	}
	d := &Domain{
		Grid:      g,
		Config:    c,
		Obstacles: obstacles,
		Closure:   closure,
		Log:       logrus.StandardLogger(),

		U:       g.NewField(),
		V:       g.NewField(),
		W:       g.NewField(),
		P:       g.NewField(),
		DP:      g.NewField(),
		PC:      g.NewField(),
		TKE:     g.NewField(),
		Eps:     g.NewField(),
		ViscH:   g.NewField(),
		ViscV:   g.NewField(),
		u0:      g.NewField(),
		v0:      g.NewField(),
		w0:      g.NewField(),
		pc0:     g.NewField(),
		div:     g.NewField(),
		scratch: g.NewField(),

		kkart:     make([]int, g.ncol()),
		buiHeight: make([]float64, g.ncol()),
		uStart:    make([]int, g.ncol()),
		vStart:    make([]int, g.ncol()),
		active:    make([]bool, g.ncol()),
		vegTop:    make([]int, g.ncol()),
		vegDrag:   make([]float64, g.ncol()),

		frund:   c.frund(),
		window:  make([]float64, 0, checkPeriod),
		workers: newWorkers(c.Processors, g.NKK+2),
	}
	return d, nil
}

// Init initializes the simulation by running d.InitFuncs.
func (d *Domain) Init() error {
	d.Status = Initializing
	for i, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return fmt.Errorf("microflow: problem running initialization function %d: %v", i, err)
		}
	}
	return nil
}

// Run carries out the calculation by repeatedly running d.RunFuncs
// until one of them marks the calculation as done.
func (d *Domain) Run() error {
	if len(d.RunFuncs) == 0 {
		d.Status = Converged
		return nil
	}
	d.Status = Iterating
	for !d.done {
		for _, f := range d.RunFuncs {
			if err := f(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cleanup finishes the calculation by running d.CleanupFuncs.
func (d *Domain) Cleanup() error {
	for _, f := range d.CleanupFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Solve calculates the wind field for the weather situation described
// by profile at the fidelity level set in the configuration. The arrays
// of d are reset first, so Solve can be called repeatedly for different
// weather situations. Numerical problems do not cause an error; they are
// logged and recorded in the returned report.
func (d *Domain) Solve(profile *Profile) (*Report, error) {
	p := profile.Compact()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	d.InitFuncs = []DomainManipulator{
		Reset(),
		InitializeFlat(p),
	}
	d.RunFuncs = nil
	switch d.Config.FidelityLevel {
	case FidelityDiagnostic:
		d.InitFuncs = append(d.InitFuncs, WakeAttenuation())
		d.RunFuncs = DiagnosticSolver()
	case FidelityPrognostic:
		d.RunFuncs = []DomainManipulator{
			BoundaryConditions(),
			PressureCorrection(),
			Momentum(),
			Turbulence(),
			ConvergenceCheck(),
		}
	}
	d.CleanupFuncs = []DomainManipulator{
		ConserveMass(),
		ValidateVelocities(),
	}
	if err := d.Init(); err != nil {
		return nil, err
	}
	if err := d.Run(); err != nil {
		return nil, err
	}
	if err := d.Cleanup(); err != nil {
		return nil, err
	}
	return d.Report(), nil
}

// Reset clears the state of the domain so that a new weather situation
// can be calculated. Changes to the pressure rounding settings of
// d.Config take effect here.
func Reset() DomainManipulator {
	return func(d *Domain) error {
		for _, f := range []*Field{d.U, d.V, d.W, d.P, d.DP, d.PC, d.TKE, d.Eps,
			d.ViscH, d.ViscV, d.u0, d.v0, d.w0, d.pc0, d.div, d.scratch} {
			f.Zero()
		}
		d.Status = Initializing
		d.Iteration = 0
		d.Direction = 1
		d.window = d.window[:0]
		d.windows = 0
		d.report = Report{}
		d.done = false
		d.dUMax = 0
		d.frund = d.Config.frund()
		return nil
	}
}

// ObstacleTop returns the index of the highest blocked layer in
// column (i, j), or 0 if the column is unobstructed.
func (d *Domain) ObstacleTop(i, j int) int { return d.kkart[d.Grid.cidx(i, j)] }

// BuildingHeight returns the height of the top of the highest blocked
// layer in column (i, j).
func (d *Domain) BuildingHeight(i, j int) float64 { return d.buiHeight[d.Grid.cidx(i, j)] }

// MaxObstacleHeight returns the height of the tallest obstacle in the domain.
func (d *Domain) MaxObstacleHeight() float64 { return d.maxObstacleHeight }

// Active returns whether column (i, j) is part of the solved sub-domain.
func (d *Domain) Active(i, j int) bool { return d.active[d.Grid.cidx(i, j)] }

// SolveTop returns the index of the highest layer included in the solution.
func (d *Domain) SolveTop() int { return d.kTop }
