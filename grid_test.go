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
	"reflect"
	"testing"
)

func TestNewGrid(t *testing.T) {
	g, err := NewGrid(4, 3, 2, 5, 100, 200, []float64{1, 3, 6})
	if err != nil {
		t.Fatal(err)
	}
	if g.NKK != 3 {
		t.Errorf("NKK: have %d, want 3", g.NKK)
	}
	if want := []float64{0, 1, 3, 6}; !reflect.DeepEqual(g.HOKART, want) {
		t.Errorf("HOKART: have %v, want %v", g.HOKART, want)
	}
	if want := []float64{1, 1, 2, 3, 3}; !reflect.DeepEqual(g.DZK, want) {
		t.Errorf("DZK: have %v, want %v", g.DZK, want)
	}
	if want := []float64{-0.5, 0.5, 2, 4.5, 7.5}; !reflect.DeepEqual(g.ZSP, want) {
		t.Errorf("ZSP: have %v, want %v", g.ZSP, want)
	}
	if g.Top() != 6 {
		t.Errorf("top: have %g, want 6", g.Top())
	}
	if m := g.minSpacing(); m != 1 {
		t.Errorf("min spacing: have %g, want 1", m)
	}
}

func TestNewGridErrors(t *testing.T) {
	tests := []struct {
		name     string
		nii, njj int
		dx, dy   float64
		tops     []float64
	}{
		{name: "no columns", nii: 0, njj: 1, dx: 1, dy: 1, tops: []float64{1}},
		{name: "zero dx", nii: 1, njj: 1, dx: 0, dy: 1, tops: []float64{1}},
		{name: "no layers", nii: 1, njj: 1, dx: 1, dy: 1},
		{name: "decreasing", nii: 1, njj: 1, dx: 1, dy: 1, tops: []float64{2, 1}},
		{name: "ground", nii: 1, njj: 1, dx: 1, dy: 1, tops: []float64{0, 1}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := NewGrid(test.nii, test.njj, test.dx, test.dy, 0, 0, test.tops); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestLayers(t *testing.T) {
	if have, want := UniformLayers(3, 2), []float64{2, 4, 6}; !reflect.DeepEqual(have, want) {
		t.Errorf("uniform: have %v, want %v", have, want)
	}
	if have, want := StretchedLayers(3, 1, 2), []float64{1, 3, 7}; !reflect.DeepEqual(have, want) {
		t.Errorf("stretched: have %v, want %v", have, want)
	}
}

func TestGridColumn(t *testing.T) {
	g, err := NewGrid(4, 3, 2, 5, 100, 200, UniformLayers(2, 1))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		x, y float64
		i, j int
		ok   bool
	}{
		{x: 100, y: 200, i: 1, j: 1, ok: true},
		{x: 101.9, y: 204.9, i: 1, j: 1, ok: true},
		{x: 102, y: 205, i: 2, j: 2, ok: true},
		{x: 107.9, y: 214.9, i: 4, j: 3, ok: true},
		{x: 108, y: 210},
		{x: 99.9, y: 210},
		{x: 104, y: 215},
	}
	for _, test := range tests {
		i, j, ok := g.Column(test.x, test.y)
		if i != test.i || j != test.j || ok != test.ok {
			t.Errorf("(%g, %g): have (%d, %d, %v), want (%d, %d, %v)",
				test.x, test.y, i, j, ok, test.i, test.j, test.ok)
		}
		if !ok {
			continue
		}
		x, y := g.CellCenter(i, j)
		if ii, jj, _ := g.Column(x, y); ii != i || jj != j {
			t.Errorf("cell centre (%g, %g) is in column (%d, %d), want (%d, %d)", x, y, ii, jj, i, j)
		}
	}
}

func TestField(t *testing.T) {
	g, err := NewGrid(2, 3, 1, 1, 0, 0, UniformLayers(4, 1))
	if err != nil {
		t.Fatal(err)
	}
	f := g.NewField()
	if len(f.Data) != 4*5*6 {
		t.Fatalf("length: have %d, want %d", len(f.Data), 4*5*6)
	}
	f.Set(3, 1, 2, 4)
	if f.At(1, 2, 4) != 3 {
		t.Errorf("have %g, want 3", f.At(1, 2, 4))
	}
	// Layers of a column are contiguous.
	if f.Index(1, 2, 5)-f.Index(1, 2, 4) != 1 {
		t.Errorf("layers are not contiguous")
	}
	col := f.Column(1, 2)
	if col[4] != 3 || len(col) != 6 {
		t.Errorf("column: have %v", col)
	}
	col[0] = 7
	if f.At(1, 2, 0) != 7 {
		t.Errorf("column does not share storage with the field")
	}
	o := g.NewField()
	o.CopyFrom(f)
	if !reflect.DeepEqual(o.Data, f.Data) {
		t.Errorf("copy differs")
	}
	f.Fill(2)
	f.Zero()
	for _, v := range f.Data {
		if v != 0 {
			t.Fatalf("field not zeroed")
		}
	}
}
