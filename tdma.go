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

// line holds the coefficients of a vertical line of finite-volume
// equations of the form
//  AP[k]·x[k] = AT[k]·x[k+1] + AB[k]·x[k-1] + B[k]
// along with scratch space for solving them. One line is kept per
// worker so that solving does not allocate.
type line struct {
	AP, AT, AB, B []float64
	X             []float64 // solution
	p, q          []float64
}

func newLine(n int) *line {
	return &line{
		AP: make([]float64, n),
		AT: make([]float64, n),
		AB: make([]float64, n),
		B:  make([]float64, n),
		X:  make([]float64, n),
		p:  make([]float64, n),
		q:  make([]float64, n),
	}
}

// solve solves the line for k0 ≤ k ≤ k1 with the tridiagonal matrix
// algorithm and stores the result in x. Values of x outside of [k0, k1]
// are not changed; AB[k0] and AT[k1] must already have been moved to the
// right hand side by the caller.
func (l *line) solve(x []float64, k0, k1 int) {
	if k1 < k0 {
		return
	}
	l.p[k0] = l.AT[k0] / l.AP[k0]
	l.q[k0] = l.B[k0] / l.AP[k0]
	for k := k0 + 1; k <= k1; k++ {
		den := l.AP[k] - l.AB[k]*l.p[k-1]
		l.p[k] = l.AT[k] / den
		l.q[k] = (l.B[k] + l.AB[k]*l.q[k-1]) / den
	}
	x[k1] = l.q[k1]
	for k := k1 - 1; k >= k0; k-- {
		x[k] = l.p[k]*x[k+1] + l.q[k]
	}
}
