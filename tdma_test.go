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
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestTDMA(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	const n = 9
	for _, bounds := range [][2]int{{1, 7}, {0, 8}, {3, 3}, {2, 5}} {
		k0, k1 := bounds[0], bounds[1]
		l := newLine(n)
		for k := 0; k < n; k++ {
			l.AT[k] = r.Float64()
			l.AB[k] = r.Float64()
			l.AP[k] = l.AT[k] + l.AB[k] + 0.1 + r.Float64()
			l.B[k] = r.Float64()*2 - 1
		}
		m := k1 - k0 + 1
		a := mat.NewDense(m, m, nil)
		b := mat.NewVecDense(m, nil)
		for k := k0; k <= k1; k++ {
			row := k - k0
			a.Set(row, row, l.AP[k])
			if k > k0 {
				a.Set(row, row-1, -l.AB[k])
			}
			if k < k1 {
				a.Set(row, row+1, -l.AT[k])
			}
			b.SetVec(row, l.B[k])
		}
		var want mat.VecDense
		if err := want.SolveVec(a, b); err != nil {
			t.Fatal(err)
		}

		x := make([]float64, n)
		for k := range x {
			x[k] = -99
		}
		l.solve(x, k0, k1)
		for k := 0; k < n; k++ {
			if k < k0 || k > k1 {
				if x[k] != -99 {
					t.Errorf("k=%d outside of [%d, %d] was changed", k, k0, k1)
				}
				continue
			}
			if absDifferent(x[k], want.AtVec(k-k0), 1e-10) {
				t.Errorf("[%d, %d] k=%d: have %g, want %g", k0, k1, k, x[k], want.AtVec(k-k0))
			}
		}
	}
}

func TestTDMAEmpty(t *testing.T) {
	l := newLine(3)
	x := []float64{1, 2, 3}
	l.solve(x, 2, 1)
	if x[0] != 1 || x[1] != 2 || x[2] != 3 {
		t.Errorf("empty range changed the solution: %v", x)
	}
}
