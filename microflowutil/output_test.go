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

package microflowutil

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/microflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatDomain returns an obstacle-free domain initialized with a
// power-law profile.
func flatDomain(t *testing.T) *microflow.Domain {
	g, err := microflow.NewGrid(4, 3, 2, 2, 100, 200, microflow.UniformLayers(3, 2))
	require.NoError(t, err)
	c := microflow.DefaultConfig()
	c.FidelityLevel = microflow.FidelityInitial
	c.Processors = 1
	d, err := microflow.NewDomain(g, c, nil)
	require.NoError(t, err)
	log := logrus.New()
	log.Out = ioutil.Discard
	d.Log = log
	_, err = d.Solve(&microflow.Profile{
		Levels:    []microflow.ProfileLevel{{Height: 10, U: 3, V: 1}},
		UStar:     0.3,
		Roughness: 0.1,
	})
	require.NoError(t, err)
	return d
}

func TestNewOutputter(t *testing.T) {
	_, err := NewOutputter("x.nc", map[string]string{"Speed": "sqrt(U*U+V*V)", "Wabs": "abs(W)"}, nil)
	assert.NoError(t, err)

	_, err = NewOutputter("x.nc", map[string]string{"X": "U+Q"}, nil)
	assert.EqualError(t, err, "microflow: output variable X: undefined variable name 'Q'")

	_, err = NewOutputter("x.nc", map[string]string{"a-b": "U"}, nil)
	assert.Error(t, err)

	_, err = NewOutputter("x.nc", map[string]string{"X": "U+"}, nil)
	assert.Error(t, err)
}

func TestResults(t *testing.T) {
	d := flatDomain(t)
	o, err := NewOutputter("x.nc", map[string]string{
		"Speed":   "sqrt(U*U + V*V)",
		"Height":  "Z",
		"Blocked": "Blocked",
		"Fast":    "max(U, 2*V)",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Blocked", "U", "V", "Z"}, o.modelVariables)

	res, err := o.Results(d)
	require.NoError(t, err)
	g := d.Grid
	for k := 1; k <= g.NKK; k++ {
		for j := 1; j <= g.NJJ; j++ {
			for i := 1; i <= g.NII; i++ {
				u, v, _ := d.CellVelocity(i, j, k)
				assert.InDelta(t, math.Hypot(u, v), res["Speed"].Get(k-1, j-1, i-1), 1e-12)
				assert.InDelta(t, math.Max(u, 2*v), res["Fast"].Get(k-1, j-1, i-1), 1e-12)
				assert.Equal(t, g.ZSP[k], res["Height"].Get(k-1, j-1, i-1))
				assert.Equal(t, 0.0, res["Blocked"].Get(k-1, j-1, i-1))
			}
		}
	}
	assert.True(t, res["Speed"].Get(2, 1, 1) > res["Speed"].Get(0, 1, 1), "speed should increase with height")
}

func TestOutput(t *testing.T) {
	dir, err := ioutil.TempDir("", "microflow")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	d := flatDomain(t)
	fname := filepath.Join(dir, "flat.nc")
	o, err := NewOutputter(fname, map[string]string{"U": "U", "Speed": "sqrt(U*U + V*V)"}, nil)
	require.NoError(t, err)
	require.NoError(t, o.Output(d, "flat"))

	ff, err := os.Open(fname)
	require.NoError(t, err)
	defer ff.Close()
	f, err := cdf.Open(ff)
	require.NoError(t, err)

	assert.Equal(t, "flat", f.Header.GetAttribute("", "situation"))
	assert.Equal(t, "converged", f.Header.GetAttribute("", "status"))
	assert.Equal(t, []float64{100}, f.Header.GetAttribute("", "x0"))
	assert.Equal(t, "m/s", f.Header.GetAttribute("U", "units"))
	assert.Equal(t, []int{3, 3, 4}, f.Header.Lengths("Speed"))

	tops := make([]float64, 4)
	_, err = f.Reader("LayerTop", nil, nil).Read(tops)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 4, 6}, tops)

	res, err := o.Results(d)
	require.NoError(t, err)
	speed := make([]float32, 3*3*4)
	_, err = f.Reader("Speed", nil, nil).Read(speed)
	require.NoError(t, err)
	for i, v := range res["Speed"].Elements {
		assert.Equal(t, float32(v), speed[i])
	}
}
