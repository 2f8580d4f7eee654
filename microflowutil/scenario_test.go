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
	"math"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadScenario(t *testing.T) {
	s, err := ReadScenarioFile("../testdata/cube.toml")
	require.NoError(t, err)

	assert.Equal(t, GridConfig{NX: 24, NY: 16, NZ: 12, DX: 2, DY: 2, LayerThickness: 2, Stretch: 1}, s.Grid)
	require.Len(t, s.Building, 1)
	assert.Equal(t, "cube", s.Building[0].Name)
	assert.Equal(t, 6.0, s.Building[0].Height)
	assert.Len(t, s.Building[0].Footprint, 4)
	require.Len(t, s.Vegetation, 1)
	assert.Equal(t, 0.2, s.Vegetation[0].Drag)

	require.Len(t, s.Situation, 2)
	assert.Equal(t, "west", s.Situation[0].Name)
	assert.Len(t, s.Situation[0].Level, 2)
	assert.Equal(t, 200.0, s.Situation[1].ObukhovLength)
	assert.Equal(t, 0.8, s.Situation[1].Level[0].SigmaU)
}

func TestReadScenarioDefaultNames(t *testing.T) {
	s, err := ReadScenario(strings.NewReader(`
[[Situation]]
  [[Situation.Level]]
  Height = 10.0
  Speed = 2.0
[[Situation]]
Name = "b"
  [[Situation.Level]]
  Height = 10.0
  Speed = 2.0
`))
	require.NoError(t, err)
	assert.Equal(t, "situation001", s.Situation[0].Name)
	assert.Equal(t, "b", s.Situation[1].Name)
}

func TestReadScenarioErrors(t *testing.T) {
	_, err := ReadScenario(strings.NewReader("[Grid]\nNX = 3\n"))
	assert.EqualError(t, err, "microflow: scenario has no weather situations")

	_, err = ReadScenario(strings.NewReader("[Grid\n"))
	assert.Error(t, err)

	_, err = ReadScenarioFile("does_not_exist.toml")
	assert.Error(t, err)
}

func TestScenarioGrid(t *testing.T) {
	s := &Scenario{Grid: GridConfig{NX: 3, NY: 2, NZ: 3, DX: 5, DY: 4, LayerThickness: 1, Stretch: 2}}
	g, err := s.NewGrid()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 3, 7}, g.HOKART)
	assert.Equal(t, 3, g.NII)
	assert.Equal(t, 2, g.NJJ)

	s.Grid.Stretch = 0
	g, err = s.NewGrid()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, g.HOKART)

	s.Grid.LayerThickness = 0
	_, err = s.NewGrid()
	assert.Error(t, err)
}

func TestScenarioObstacles(t *testing.T) {
	s, err := ReadScenarioFile("../testdata/cube.toml")
	require.NoError(t, err)
	g, err := s.NewGrid()
	require.NoError(t, err)
	o, err := s.Obstacles(g)
	require.NoError(t, err)

	for i := 1; i <= g.NII; i++ {
		for j := 1; j <= g.NJJ; j++ {
			want := 0.0
			if i >= 9 && i <= 11 && j >= 8 && j <= 10 {
				want = 6
			}
			assert.Equal(t, want, o.Cut(i, j), "cut (%d,%d)", i, j)
		}
	}
	h, drag := o.Canopy(19, 6)
	assert.Equal(t, 4.0, h)
	assert.Equal(t, 0.2, drag)
	h, _ = o.Canopy(18, 6)
	assert.Equal(t, 0.0, h)
}

func TestFootprint(t *testing.T) {
	square := geom.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}}

	p, err := footprint([][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, "")
	require.NoError(t, err)
	assert.Equal(t, square, p)

	p, err = footprint(nil, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Area())

	_, err = footprint(nil, `{"type":"Point","coordinates":[0,0]}`)
	assert.Error(t, err)
	_, err = footprint([][2]float64{{0, 0}, {1, 0}}, "")
	assert.Error(t, err)
	_, err = footprint([][2]float64{{0, 0}, {1, 0}, {1, 1}}, `{"type":"Polygon"}`)
	assert.Error(t, err)
	_, err = footprint(nil, "")
	assert.Error(t, err)
}

func TestWindComponents(t *testing.T) {
	tests := []struct {
		speed, direction, u, v float64
	}{
		{speed: 5, direction: 270, u: 5, v: 0},
		{speed: 5, direction: 90, u: -5, v: 0},
		{speed: 2, direction: 0, u: 0, v: -2},
		{speed: 2, direction: 180, u: 0, v: 2},
		{speed: math.Sqrt2, direction: 225, u: 1, v: 1},
	}
	for _, test := range tests {
		u, v := windComponents(test.speed, test.direction)
		assert.InDelta(t, test.u, u, 1e-12, "u for %g°", test.direction)
		assert.InDelta(t, test.v, v, 1e-12, "v for %g°", test.direction)
	}
}

func TestSituationProfile(t *testing.T) {
	s := SituationConfig{
		UStar: 0.3, ObukhovLength: -50, BoundaryLayerHeight: 1000, Roughness: 0.5,
		Level: []LevelConfig{
			{Height: 10, Speed: 4, Direction: 270, SigmaU: 1, SigmaV: 0.9},
			{Height: 50, Speed: 6, Direction: 270},
		},
	}
	p := s.Profile()
	require.Len(t, p.Levels, 2)
	assert.InDelta(t, 4, p.Levels[0].U, 1e-12)
	assert.InDelta(t, 6, p.Levels[1].U, 1e-12)
	assert.Equal(t, 0.9, p.Levels[0].SigmaV)
	assert.Equal(t, -50.0, p.ObukhovLength)
	assert.NoError(t, p.Validate())
}
