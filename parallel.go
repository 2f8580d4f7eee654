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
	"runtime"
	"sync"
)

// slot is a per-worker accumulator padded to fill a cache line.
type slot struct {
	v float64
	_ [7]float64
}

// workers runs calculations concurrently over a fixed number of
// goroutines. Each worker has its own scratch line and reduction slot,
// so calculations never need to lock.
type workers struct {
	n     int
	lines []*line
	slots []slot
}

// newWorkers creates a pool of n workers, where n is capped at the number
// of available CPUs. Each worker gets a scratch line of length nk.
func newWorkers(n, nk int) *workers {
	if n < 1 || n > runtime.NumCPU() {
		n = runtime.NumCPU()
	}
	w := &workers{
		n:     n,
		lines: make([]*line, n),
		slots: make([]slot, n),
	}
	for p := range w.lines {
		w.lines[p] = newLine(nk)
	}
	return w
}

// run calls f for every item in [0, n), distributing items among the
// workers in a strided fashion, and returns after all calls have finished.
// f receives the index of the worker that calls it.
func (w *workers) run(n int, f func(p, item int)) {
	if w.n == 1 || n < 2 {
		for ii := 0; ii < n; ii++ {
			f(0, ii)
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(w.n)
	for pp := 0; pp < w.n; pp++ {
		go func(pp int) {
			for ii := pp; ii < n; ii += w.n {
				f(pp, ii)
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()
}

// resetMax clears the reduction slots.
func (w *workers) resetMax() {
	for p := range w.slots {
		w.slots[p].v = 0
	}
}

// observe records v as a candidate for the maximum seen by worker p.
// NaN values propagate to the result.
func (w *workers) observe(p int, v float64) {
	if v > w.slots[p].v || math.IsNaN(v) {
		w.slots[p].v = v
	}
}

// max returns the maximum of all values observed since the last reset.
// It must only be called after run has returned.
func (w *workers) max() float64 {
	m := 0.
	for p := range w.slots {
		v := w.slots[p].v
		if v > m || math.IsNaN(v) {
			m = v
		}
	}
	return m
}
