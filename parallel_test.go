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
	"math/rand"
	"sync/atomic"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestWorkersRun(t *testing.T) {
	for _, n := range []int{1, 2, 3, 8} {
		w := newWorkers(n, 4)
		const items = 1001
		counts := make([]int32, items)
		w.run(items, func(p, item int) {
			if p < 0 || p >= w.n {
				t.Errorf("worker index %d out of range", p)
			}
			atomic.AddInt32(&counts[item], 1)
		})
		for i, c := range counts {
			if c != 1 {
				t.Fatalf("%d workers: item %d processed %d times", n, i, c)
			}
		}
	}
}

func TestWorkersMax(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	vals := make([]float64, 5000)
	for i := range vals {
		vals[i] = r.Float64() * 100
	}
	want := floats.Max(vals)
	w := newWorkers(4, 4)
	for rep := 0; rep < 3; rep++ {
		w.resetMax()
		w.run(len(vals), func(p, item int) {
			w.observe(p, vals[item])
		})
		if have := w.max(); have != want {
			t.Errorf("have %g, want %g", have, want)
		}
	}

	w.resetMax()
	w.run(len(vals), func(p, item int) {
		v := vals[item]
		if item == 1234 {
			v = math.NaN()
		}
		w.observe(p, v)
	})
	if !math.IsNaN(w.max()) {
		t.Errorf("NaN should propagate to the maximum; have %g", w.max())
	}
}
