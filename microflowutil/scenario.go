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
	"fmt"
	"io"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/spatialmodel/microflow"
)

// Scenario describes the model domain and the weather situations
// that wind fields should be calculated for.
type Scenario struct {
	Grid GridConfig

	Building   []BuildingConfig
	Vegetation []VegetationConfig
	Situation  []SituationConfig
}

// GridConfig specifies the computational grid.
type GridConfig struct {
	NX, NY, NZ int     // number of columns in x and y, number of layers
	DX, DY     float64 // horizontal cell size [m]
	X0, Y0     float64 // south-west corner [m]

	// LayerThickness is the thickness of the lowest layer [m], and
	// each following layer is Stretch times thicker than the one below.
	LayerThickness float64
	Stretch        float64
}

// BuildingConfig is a building footprint, given either as a list of
// [x, y] vertices or as a GeoJSON polygon.
type BuildingConfig struct {
	Name      string
	Height    float64
	Footprint [][2]float64
	GeoJSON   string
}

// VegetationConfig is a plant canopy area.
type VegetationConfig struct {
	Name      string
	Height    float64
	Drag      float64 // drag coefficient × leaf area density [1/m]
	Footprint [][2]float64
	GeoJSON   string
}

// SituationConfig is one weather situation.
type SituationConfig struct {
	Name                string
	UStar               float64
	ObukhovLength       float64
	BoundaryLayerHeight float64
	Roughness           float64
	Level               []LevelConfig
}

// LevelConfig is a wind measurement. Direction is the direction the wind
// blows from, in degrees clockwise from north.
type LevelConfig struct {
	Height    float64
	Speed     float64
	Direction float64
	SigmaU    float64
	SigmaV    float64
}

// ReadScenario decodes a TOML scenario.
func ReadScenario(r io.Reader) (*Scenario, error) {
	s := new(Scenario)
	if _, err := toml.DecodeReader(r, s); err != nil {
		return nil, fmt.Errorf("microflow: reading scenario: %v", err)
	}
	if len(s.Situation) == 0 {
		return nil, fmt.Errorf("microflow: scenario has no weather situations")
	}
	for i := range s.Situation {
		if s.Situation[i].Name == "" {
			s.Situation[i].Name = fmt.Sprintf("situation%03d", i+1)
		}
	}
	return s, nil
}

// ReadScenarioFile decodes the TOML scenario in the named file.
func ReadScenarioFile(filename string) (*Scenario, error) {
	f, err := os.Open(os.ExpandEnv(filename))
	if err != nil {
		return nil, fmt.Errorf("microflow: opening scenario file: %v", err)
	}
	defer f.Close()
	return ReadScenario(f)
}

// NewGrid creates the grid specified by the scenario.
func (s *Scenario) NewGrid() (*microflow.Grid, error) {
	c := s.Grid
	stretch := c.Stretch
	if stretch == 0 {
		stretch = 1
	}
	if !(c.LayerThickness > 0) || !(stretch > 0) {
		return nil, fmt.Errorf("microflow: Grid.LayerThickness and Grid.Stretch must be > 0; got %g and %g",
			c.LayerThickness, stretch)
	}
	if c.NZ < 1 {
		return nil, fmt.Errorf("microflow: Grid.NZ must be >= 1; got %d", c.NZ)
	}
	return microflow.NewGrid(c.NX, c.NY, c.DX, c.DY, c.X0, c.Y0,
		microflow.StretchedLayers(c.NZ, c.LayerThickness, stretch))
}

// Obstacles rasterizes the buildings and vegetation of the
// scenario onto g.
func (s *Scenario) Obstacles(g *microflow.Grid) (*microflow.Obstacles, error) {
	buildings := make([]microflow.Building, len(s.Building))
	for i, b := range s.Building {
		p, err := footprint(b.Footprint, b.GeoJSON)
		if err != nil {
			return nil, fmt.Errorf("microflow: building %d (%s): %v", i, b.Name, err)
		}
		buildings[i] = microflow.Building{Polygon: p, Height: b.Height}
	}
	vegetation := make([]microflow.Vegetation, len(s.Vegetation))
	for i, v := range s.Vegetation {
		p, err := footprint(v.Footprint, v.GeoJSON)
		if err != nil {
			return nil, fmt.Errorf("microflow: vegetation %d (%s): %v", i, v.Name, err)
		}
		vegetation[i] = microflow.Vegetation{Polygon: p, Height: v.Height, Drag: v.Drag}
	}
	return g.Rasterize(buildings, vegetation)
}

// footprint returns the polygon given by either a vertex list or
// a GeoJSON geometry.
func footprint(vertices [][2]float64, geoJSON string) (geom.Polygon, error) {
	switch {
	case len(vertices) > 0 && geoJSON != "":
		return nil, fmt.Errorf("only one of Footprint and GeoJSON may be specified")
	case len(vertices) > 0:
		if len(vertices) < 3 {
			return nil, fmt.Errorf("footprint needs at least 3 vertices; got %d", len(vertices))
		}
		path := make(geom.Path, len(vertices))
		for i, v := range vertices {
			path[i] = geom.Point{X: v[0], Y: v[1]}
		}
		return geom.Polygon{path}, nil
	case geoJSON != "":
		g, err := geojson.Decode([]byte(geoJSON))
		if err != nil {
			return nil, fmt.Errorf("decoding GeoJSON footprint: %v", err)
		}
		p, ok := g.(geom.Polygon)
		if !ok {
			return nil, fmt.Errorf("invalid footprint geometry type %T", g)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("no footprint specified")
	}
}

// Profile returns the wind profile of the situation.
func (s SituationConfig) Profile() *microflow.Profile {
	p := &microflow.Profile{
		Levels:              make([]microflow.ProfileLevel, len(s.Level)),
		UStar:               s.UStar,
		ObukhovLength:       s.ObukhovLength,
		BoundaryLayerHeight: s.BoundaryLayerHeight,
		Roughness:           s.Roughness,
	}
	for i, l := range s.Level {
		u, v := windComponents(l.Speed, l.Direction)
		p.Levels[i] = microflow.ProfileLevel{
			Height: l.Height,
			U:      u,
			V:      v,
			SigmaU: l.SigmaU,
			SigmaV: l.SigmaV,
		}
	}
	return p
}

// windComponents converts a wind speed and the direction the wind
// comes from into eastward and northward components.
func windComponents(speed, direction float64) (u, v float64) {
	r := direction * math.Pi / 180
	u, v = -speed*math.Sin(r), -speed*math.Cos(r)
	// Remove rounding noise so that winds along the axes are exact.
	if math.Abs(u) < 1e-12*speed {
		u = 0
	}
	if math.Abs(v) < 1e-12*speed {
		v = 0
	}
	return u, v
}
