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

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// maxReportedViolations is the number of velocity violations that are
// kept in a Report and written to the log.
const maxReportedViolations = 100

// Report summarizes the outcome of a wind field calculation.
type Report struct {
	Status     Status
	Iterations int

	// FirstWindowMean and LastWindowMean are the mean maximum pressure
	// changes over the first and last 100-iteration windows.
	FirstWindowMean, LastWindowMean float64

	// Worsened is true if the last window mean is larger than the first.
	Worsened bool

	// Violations holds the first velocities that exceed the realistic
	// limits, and NumViolations is the total number of them.
	Violations    []Violation
	NumViolations int
}

// Violation is a face velocity that exceeds the realistic limits.
type Violation struct {
	Component Component
	I, J, K   int
	Value     float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s(%d,%d,%d)=%g", [...]string{"U", "V", "W"}[v.Component], v.I, v.J, v.K, v.Value)
}

// Report returns a summary of the most recent calculation.
func (d *Domain) Report() *Report {
	r := d.report
	r.Status = d.Status
	r.Iterations = d.Iteration
	r.Worsened = r.LastWindowMean > r.FirstWindowMean
	return &r
}

// ConvergenceCheck returns a function that finishes each iteration of the
// prognostic solver. Every 100 iterations it calls the live output hook and
// compares the mean of the maximum pressure change over the last 100
// iterations, normalized by the squared wind speed at the domain top, to the
// convergence threshold. The calculation stops when the threshold is met
// after the minimum number of iterations, or when the maximum number of
// iterations is reached.
func ConvergenceCheck() DomainManipulator {
	return func(d *Domain) error {
		d.Iteration++
		d.window = append(d.window, d.dUMax)
		d.Direction = d.Direction%4 + 1

		if d.Iteration%checkPeriod == 0 && d.LiveOutput != nil {
			if err := d.LiveOutput(d.Iteration, d); err != nil {
				return fmt.Errorf("microflow: live output: %v", err)
			}
		}

		atCap := d.Iteration >= d.Config.MaxIterations
		if len(d.window) == checkPeriod || (atCap && len(d.window) > 0) {
			mean := d.closeWindow()
			ratio := mean / math.Max(d.uTop*d.uTop, 0.01)
			d.Log.WithFields(logrus.Fields{
				"iteration": d.Iteration,
				"mean":      mean,
				"ratio":     ratio,
			}).Info("microflow convergence check")
			if ratio < d.Config.ConvergenceThreshold && d.Iteration >= d.Config.MinIterations {
				d.Status = Converged
				d.done = true
				return nil
			}
		}
		if atCap {
			d.Status = IterationCapReached
			d.done = true
			r := d.Report()
			d.Log.WithFields(logrus.Fields{
				"iterations": d.Iteration,
				"first_mean": r.FirstWindowMean,
				"last_mean":  r.LastWindowMean,
				"worsened":   r.Worsened,
			}).Warn("microflow: wind field did not converge")
		}
		return nil
	}
}

// closeWindow records the mean of the current window and starts a new one.
func (d *Domain) closeWindow() float64 {
	mean := stat.Mean(d.window, nil)
	if d.windows == 0 {
		d.report.FirstWindowMean = mean
	}
	d.windows++
	d.report.LastWindowMean = mean
	d.window = d.window[:0]
	return mean
}

// DiagnosticSolver returns the functions that make up one iteration of
// the diagnostic solver: the pressure-correction loop without the
// momentum and turbulence steps. The diagnostic solver runs for a fixed
// number of iterations, after which it is considered converged.
func DiagnosticSolver() []DomainManipulator {
	return []DomainManipulator{
		BoundaryConditions(),
		PressureCorrection(),
		func(d *Domain) error {
			d.Iteration++
			d.window = append(d.window, d.dUMax)
			d.Direction = d.Direction%4 + 1
			if len(d.window) == checkPeriod {
				d.closeWindow()
			}
			if d.Iteration >= d.Config.DiagnosticIterations {
				if len(d.window) > 0 {
					d.closeWindow()
				}
				d.Status = Converged
				d.done = true
			}
			return nil
		},
	}
}

// ValidateVelocities returns a function that checks the final wind field
// for unrealistic velocities. A velocity is unrealistic if it is not a
// number, or if it exceeds both the absolute limit for its direction and
// the relative limit based on the largest initial velocity. Violations are
// logged and reported but do not cause an error.
func ValidateVelocities() DomainManipulator {
	return func(d *Domain) error {
		g := d.Grid
		c := d.Config
		rel := c.RelativeSpeedFactor * d.initialMaxSpeed
		limH := math.Max(c.MaxHorizontalSpeed, rel)
		limV := math.Max(c.MaxVerticalSpeed, rel)
		d.report.Violations = d.report.Violations[:0]
		d.report.NumViolations = 0
		check := func(comp Component, f *Field, lim float64, i, j, k int) {
			v := f.At(i, j, k)
			if !(math.Abs(v) <= lim) {
				d.report.NumViolations++
				if len(d.report.Violations) < maxReportedViolations {
					d.report.Violations = append(d.report.Violations, Violation{
						Component: comp, I: i, J: j, K: k, Value: v,
					})
				}
			}
		}
		for i := 1; i <= g.NII+1; i++ {
			for j := 1; j <= g.NJJ+1; j++ {
				for k := 1; k <= g.NKK; k++ {
					if j <= g.NJJ {
						check(ComponentU, d.U, limH, i, j, k)
					}
					if i <= g.NII {
						check(ComponentV, d.V, limH, i, j, k)
					}
					if i <= g.NII && j <= g.NJJ {
						check(ComponentW, d.W, limV, i, j, k+1)
					}
				}
			}
		}
		for _, v := range d.report.Violations {
			d.Log.WithFields(logrus.Fields{
				"component": [...]string{"U", "V", "W"}[v.Component],
				"i":         v.I,
				"j":         v.J,
				"k":         v.K,
				"value":     v.Value,
			}).Warn("microflow: unrealistic velocity")
		}
		if d.report.NumViolations > len(d.report.Violations) {
			d.Log.Warnf("microflow: %d further unrealistic velocities not shown",
				d.report.NumViolations-len(d.report.Violations))
		}
		return nil
	}
}
